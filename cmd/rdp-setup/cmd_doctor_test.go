package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rdptools/rdp-setup-cli/internal/config"
	ui "github.com/rdptools/rdp-setup-cli/internal/ui"
)

func quietColors() *ui.ColorConfig {
	c := ui.NewColorConfig()
	c.Enabled = false
	c.EmojiEnabled = false
	return c
}

func TestCheckConfigFiles_AllPresent(t *testing.T) {
	dir := t.TempDir()
	cfg := config.Defaults()
	cfg.ConfigDir = dir
	cfg.StartWMPath = filepath.Join(dir, "startwm.sh")

	for _, name := range []string{"xrdp.ini", "sesman.ini", "startwm.sh"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	r := checkConfigFiles(cfg, quietColors())
	if r.Status != "pass" {
		t.Errorf("status = %q, want pass (%s)", r.Status, r.Message)
	}
}

func TestCheckConfigFiles_Missing(t *testing.T) {
	dir := t.TempDir()
	cfg := config.Defaults()
	cfg.ConfigDir = dir
	cfg.StartWMPath = filepath.Join(dir, "startwm.sh")

	r := checkConfigFiles(cfg, quietColors())
	if r.Status != "fail" {
		t.Errorf("status = %q, want fail", r.Status)
	}
	if !containsSubstr(r.Message, "xrdp.ini") {
		t.Errorf("message should name missing files: %s", r.Message)
	}
}

func TestCheckReportPath_Writable(t *testing.T) {
	cfg := config.Defaults()
	cfg.ReportPath = filepath.Join(t.TempDir(), "report.txt")

	r := checkReportPath(cfg, quietColors())
	if r.Status != "pass" {
		t.Errorf("status = %q, want pass (%s)", r.Status, r.Message)
	}
}

func TestCheckReportPath_Unwritable(t *testing.T) {
	cfg := config.Defaults()
	cfg.ReportPath = filepath.Join(t.TempDir(), "missing", "report.txt")

	r := checkReportPath(cfg, quietColors())
	if r.Status != "fail" {
		t.Errorf("status = %q, want fail", r.Status)
	}
}

func TestCheckBackupDir_Missing(t *testing.T) {
	cfg := config.Defaults()
	cfg.BackupDir = filepath.Join(t.TempDir(), "backups")

	r := checkBackupDir(cfg, quietColors())
	if r.Status != "warn" {
		t.Errorf("status = %q, want warn", r.Status)
	}
}

func TestCheckBackupDir_Present(t *testing.T) {
	cfg := config.Defaults()
	cfg.BackupDir = t.TempDir()

	r := checkBackupDir(cfg, quietColors())
	if r.Status != "pass" {
		t.Errorf("status = %q, want pass (%s)", r.Status, r.Message)
	}
}
