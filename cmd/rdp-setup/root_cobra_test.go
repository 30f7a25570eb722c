package main

import (
	"testing"
)

func TestLoadCfgFlagOverrides(t *testing.T) {
	origConfigDir := flagConfigDir
	origReportPath := flagReportPath
	origPort := flagPort
	defer func() {
		flagConfigDir = origConfigDir
		flagReportPath = origReportPath
		flagPort = origPort
	}()

	flagConfigDir = "/tmp/xrdp-test"
	flagReportPath = "/tmp/report-test.txt"
	flagPort = 3390

	cfg := loadCfg()
	if cfg.ConfigDir != "/tmp/xrdp-test" {
		t.Errorf("ConfigDir = %q", cfg.ConfigDir)
	}
	if cfg.StartWMPath != "/tmp/xrdp-test/startwm.sh" {
		t.Errorf("StartWMPath should follow --config-dir, got %q", cfg.StartWMPath)
	}
	if cfg.ReportPath != "/tmp/report-test.txt" {
		t.Errorf("ReportPath = %q", cfg.ReportPath)
	}
	if cfg.Port != 3390 {
		t.Errorf("Port = %d", cfg.Port)
	}
}

func TestLoadCfgDefaultsWithoutFlags(t *testing.T) {
	origConfigDir := flagConfigDir
	origReportPath := flagReportPath
	origPort := flagPort
	defer func() {
		flagConfigDir = origConfigDir
		flagReportPath = origReportPath
		flagPort = origPort
	}()

	flagConfigDir = ""
	flagReportPath = ""
	flagPort = 0

	cfg := loadCfg()
	if cfg.ConfigDir != "/etc/xrdp" {
		t.Errorf("ConfigDir = %q, want /etc/xrdp", cfg.ConfigDir)
	}
	if cfg.Port != 3389 {
		t.Errorf("Port = %d, want 3389", cfg.Port)
	}
}

func TestAllCommandsRegistered(t *testing.T) {
	for _, name := range []string{
		"setup", "status", "dashboard",
		"users", "report", "logs",
		"backup", "doctor",
		"update", "version", "completion",
	} {
		if findSubcommand(name) == nil {
			t.Errorf("command %q not registered", name)
		}
	}
}
