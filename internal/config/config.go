package config

import (
	"os"
	"path/filepath"
	"strconv"
)

// Config holds user/system configuration for the setup tool.
// Values come from Defaults(), then RDP_SETUP_* environment
// overrides, then persistent flags (applied in loadCfg).
type Config struct {
	Port          int    // RDP listening port
	ConfigDir     string // xrdp configuration directory
	StartWMPath   string // session startup script path
	ReportPath    string // where the setup summary is persisted
	PasswdPath    string // account database path
	ServerLogPath string // xrdp daemon log
	SesmanLogPath string // session broker log
	IPEchoURL     string // public IP echo endpoint
	ServerUnit    string // systemd unit for the RDP daemon
	SesmanUnit    string // systemd unit for the session broker
	BackupDir     string // where `backup` archives land
	SesmanPort    int    // session broker listening port
	MaxSessions   int    // concurrent session cap written to sesman.ini
}

// Defaults returns the stock Debian/Ubuntu xrdp layout.
func Defaults() Config {
	return Config{
		Port:          3389,
		ConfigDir:     "/etc/xrdp",
		StartWMPath:   "/etc/xrdp/startwm.sh",
		ReportPath:    "/tmp/rdp-setup-report.txt",
		PasswdPath:    "/etc/passwd",
		ServerLogPath: "/var/log/xrdp.log",
		SesmanLogPath: "/var/log/xrdp-sesman.log",
		IPEchoURL:     "https://ifconfig.me/ip",
		ServerUnit:    "xrdp",
		SesmanUnit:    "xrdp-sesman",
		BackupDir:     "/var/backups/rdp-setup",
		SesmanPort:    3350,
		MaxSessions:   10,
	}
}

// Load returns defaults with RDP_SETUP_* environment overrides applied.
// Flags cover the remaining options.
func Load() Config {
	cfg := Defaults()
	if v := os.Getenv("RDP_SETUP_CONFIG_DIR"); v != "" {
		cfg.ConfigDir = v
		cfg.StartWMPath = filepath.Join(v, "startwm.sh")
	}
	if v := os.Getenv("RDP_SETUP_REPORT_PATH"); v != "" {
		cfg.ReportPath = v
	}
	if v := os.Getenv("RDP_SETUP_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil && p > 0 {
			cfg.Port = p
		}
	}
	if v := os.Getenv("RDP_SETUP_IP_ECHO_URL"); v != "" {
		cfg.IPEchoURL = v
	}
	return cfg
}

// PrimaryConfigPath is the xrdp.ini location under ConfigDir.
func (c Config) PrimaryConfigPath() string { return filepath.Join(c.ConfigDir, "xrdp.ini") }

// SesmanConfigPath is the sesman.ini location under ConfigDir.
func (c Config) SesmanConfigPath() string { return filepath.Join(c.ConfigDir, "sesman.ini") }

// PrimaryBackupPath is where xrdp.ini is copied before overwrite.
func (c Config) PrimaryBackupPath() string { return c.PrimaryConfigPath() + ".bak" }
