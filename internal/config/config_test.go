package config

import (
	"path/filepath"
	"testing"
)

func TestDefaults(t *testing.T) {
	cfg := Defaults()
	if cfg.Port != 3389 {
		t.Fatalf("default port = %d, want 3389", cfg.Port)
	}
	if cfg.ConfigDir != "/etc/xrdp" {
		t.Fatalf("default config dir = %s", cfg.ConfigDir)
	}
	if cfg.PrimaryConfigPath() != "/etc/xrdp/xrdp.ini" {
		t.Fatalf("primary config path = %s", cfg.PrimaryConfigPath())
	}
	if cfg.PrimaryBackupPath() != "/etc/xrdp/xrdp.ini.bak" {
		t.Fatalf("backup path = %s", cfg.PrimaryBackupPath())
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("RDP_SETUP_CONFIG_DIR", "/tmp/xrdp-test")
	t.Setenv("RDP_SETUP_PORT", "3390")
	t.Setenv("RDP_SETUP_REPORT_PATH", "/tmp/report.txt")

	cfg := Load()
	if cfg.ConfigDir != "/tmp/xrdp-test" {
		t.Fatalf("config dir override = %s", cfg.ConfigDir)
	}
	if cfg.StartWMPath != filepath.Join("/tmp/xrdp-test", "startwm.sh") {
		t.Fatalf("startwm path should follow config dir, got %s", cfg.StartWMPath)
	}
	if cfg.Port != 3390 {
		t.Fatalf("port override = %d", cfg.Port)
	}
	if cfg.ReportPath != "/tmp/report.txt" {
		t.Fatalf("report path override = %s", cfg.ReportPath)
	}
}

func TestLoadIgnoresBadPort(t *testing.T) {
	t.Setenv("RDP_SETUP_PORT", "not-a-port")
	cfg := Load()
	if cfg.Port != 3389 {
		t.Fatalf("bad port env should keep default, got %d", cfg.Port)
	}
}
