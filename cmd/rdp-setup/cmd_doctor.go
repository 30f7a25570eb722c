package main

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/shirou/gopsutil/v3/disk"
	"github.com/spf13/cobra"

	"github.com/rdptools/rdp-setup-cli/internal/config"
	"github.com/rdptools/rdp-setup-cli/internal/exitcodes"
	"github.com/rdptools/rdp-setup-cli/internal/hostinfo"
	"github.com/rdptools/rdp-setup-cli/internal/pkgmgr"
	"github.com/rdptools/rdp-setup-cli/internal/sysd"
	ui "github.com/rdptools/rdp-setup-cli/internal/ui"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Run diagnostic checks on the xrdp installation",
	Long: `Performs health checks on the remote desktop setup including:
- Installed packages and configuration files
- Service status (xrdp, xrdp-sesman)
- Listener ports
- Report path and backup directory writability
- Public IP reachability`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runDoctor,
}

type checkResult struct {
	Name    string
	Status  string // "pass", "warn", "fail"
	Message string
	Details []string
}

func runDoctor(cmd *cobra.Command, args []string) error {
	cfg := loadCfg()
	c := ui.NewColorConfigFromGlobal()
	sd := sysd.New()

	fmt.Println(c.Header(" REMOTE DESKTOP HEALTH CHECK "))
	fmt.Println()

	results := []checkResult{}
	results = append(results, checkPackages(cmd.Context(), c))
	results = append(results, checkConfigFiles(cfg, c))
	results = append(results, checkServices(cmd.Context(), cfg, sd, c))
	results = append(results, checkPorts(cfg, c))
	results = append(results, checkDiskSpace(c))
	results = append(results, checkReportPath(cfg, c))
	results = append(results, checkBackupDir(cfg, c))
	results = append(results, checkPublicIP(cmd.Context(), cfg, c))

	fmt.Println()
	fmt.Println(c.Separator(60))

	passed := 0
	warned := 0
	failed := 0
	for _, r := range results {
		switch r.Status {
		case "pass":
			passed++
		case "warn":
			warned++
		case "fail":
			failed++
		}
	}

	summary := fmt.Sprintf("Checks: %d passed, %d warnings, %d failed", passed, warned, failed)
	if failed > 0 {
		fmt.Println(c.Error("✗ " + summary))
		return exitcodes.ValidationErr("")
	} else if warned > 0 {
		fmt.Println(c.Warning("⚠ " + summary))
	} else {
		fmt.Println(c.Success("✓ " + summary))
	}

	return nil
}

func checkPackages(ctx context.Context, c *ui.ColorConfig) checkResult {
	result := checkResult{Name: "Packages"}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	missing := []string{}
	for _, pkg := range pkgmgr.Packages {
		out, err := exec.CommandContext(ctx, "dpkg-query", "-W", "-f=${Status}", pkg).Output()
		if err != nil || !strings.Contains(string(out), "install ok installed") {
			missing = append(missing, pkg)
		}
	}

	if len(missing) == len(pkgmgr.Packages) {
		result.Status = "fail"
		result.Message = "xrdp packages not installed"
		result.Details = []string{"Run 'sudo rdp-setup setup' to install"}
	} else if len(missing) > 0 {
		result.Status = "warn"
		result.Message = fmt.Sprintf("Missing packages: %s", strings.Join(missing, ", "))
		result.Details = []string{"Run 'sudo rdp-setup setup' to repair"}
	} else {
		result.Status = "pass"
		result.Message = "All required packages installed"
	}

	printCheck(result, c)
	return result
}

func checkConfigFiles(cfg config.Config, c *ui.ColorConfig) checkResult {
	result := checkResult{Name: "Configuration Files"}

	missing := []string{}
	for _, path := range []string{cfg.PrimaryConfigPath(), cfg.SesmanConfigPath(), cfg.StartWMPath} {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			missing = append(missing, filepath.Base(path))
		}
	}

	if len(missing) > 0 {
		result.Status = "fail"
		result.Message = fmt.Sprintf("Missing configuration files: %s", strings.Join(missing, ", "))
		result.Details = []string{"Run 'sudo rdp-setup setup' to install configuration"}
	} else {
		result.Status = "pass"
		result.Message = "All configuration files present"
		if _, err := os.Stat(cfg.PrimaryBackupPath()); err == nil {
			result.Details = []string{"Original xrdp.ini preserved at " + cfg.PrimaryBackupPath()}
		}
	}

	printCheck(result, c)
	return result
}

func checkServices(ctx context.Context, cfg config.Config, sd sysd.Service, c *ui.ColorConfig) checkResult {
	result := checkResult{Name: "Services"}

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	inactive := []string{}
	disabled := []string{}
	for _, unit := range []string{cfg.ServerUnit, cfg.SesmanUnit} {
		if active, _ := sd.IsActive(ctx, unit); !active {
			inactive = append(inactive, unit)
		}
		if enabled, _ := sd.IsEnabled(ctx, unit); !enabled {
			disabled = append(disabled, unit)
		}
	}

	switch {
	case len(inactive) > 0:
		result.Status = "fail"
		result.Message = fmt.Sprintf("Not running: %s", strings.Join(inactive, ", "))
		result.Details = []string{
			"Restart with 'sudo systemctl restart " + strings.Join(inactive, " ") + "'",
			"Check 'rdp-setup logs' for errors",
		}
	case len(disabled) > 0:
		result.Status = "warn"
		result.Message = fmt.Sprintf("Running but not enabled at boot: %s", strings.Join(disabled, ", "))
		result.Details = []string{"Enable with 'sudo systemctl enable " + strings.Join(disabled, " ") + "'"}
	default:
		result.Status = "pass"
		result.Message = "xrdp and xrdp-sesman active and enabled"
	}

	printCheck(result, c)
	return result
}

func checkPorts(cfg config.Config, c *ui.ColorConfig) checkResult {
	result := checkResult{Name: "Listener Ports"}

	rdpOpen := probePort(cfg.Port)
	sesmanOpen := probePort(cfg.SesmanPort)

	switch {
	case rdpOpen && sesmanOpen:
		result.Status = "pass"
		result.Message = fmt.Sprintf("RDP port %d and sesman port %d listening", cfg.Port, cfg.SesmanPort)
	case rdpOpen:
		result.Status = "warn"
		result.Message = fmt.Sprintf("RDP port %d open but sesman port %d closed", cfg.Port, cfg.SesmanPort)
		result.Details = []string{"Sessions will fail to start; check 'rdp-setup logs --sesman'"}
	default:
		result.Status = "fail"
		result.Message = fmt.Sprintf("RDP port %d not listening", cfg.Port)
		result.Details = []string{
			"Check if xrdp is running",
			"Verify the port setting in " + cfg.PrimaryConfigPath(),
		}
	}

	printCheck(result, c)
	return result
}

func checkDiskSpace(c *ui.ColorConfig) checkResult {
	result := checkResult{Name: "Disk Space"}

	usage, err := disk.Usage("/")
	switch {
	case err != nil:
		result.Status = "warn"
		result.Message = "Could not check disk space"
		result.Details = []string{fmt.Sprintf("Error: %v", err)}
	case usage.Free < 1<<30:
		result.Status = "fail"
		result.Message = fmt.Sprintf("Only %s free on /", ui.FormatBytes(usage.Free))
		result.Details = []string{"Sessions need scratch space; free up disk before connecting"}
	case usage.UsedPercent > 90:
		result.Status = "warn"
		result.Message = fmt.Sprintf("Root filesystem %.0f%% full (%s free)", usage.UsedPercent, ui.FormatBytes(usage.Free))
	default:
		result.Status = "pass"
		result.Message = fmt.Sprintf("%s free on / (%.0f%% used)", ui.FormatBytes(usage.Free), usage.UsedPercent)
	}

	printCheck(result, c)
	return result
}

func checkReportPath(cfg config.Config, c *ui.ColorConfig) checkResult {
	result := checkResult{Name: "Report Path"}

	dir := filepath.Dir(cfg.ReportPath)
	testFile := filepath.Join(dir, ".rdp-setup-writecheck")
	if err := os.WriteFile(testFile, []byte("test"), 0o644); err != nil {
		result.Status = "fail"
		result.Message = fmt.Sprintf("Cannot write to %s", dir)
		result.Details = []string{fmt.Sprintf("Error: %v", err)}
	} else {
		os.Remove(testFile)
		result.Status = "pass"
		result.Message = fmt.Sprintf("Report destination writable (%s)", cfg.ReportPath)
	}

	printCheck(result, c)
	return result
}

func checkBackupDir(cfg config.Config, c *ui.ColorConfig) checkResult {
	result := checkResult{Name: "Backup Directory"}

	info, err := os.Stat(cfg.BackupDir)
	switch {
	case os.IsNotExist(err):
		result.Status = "warn"
		result.Message = fmt.Sprintf("Backup directory %s does not exist", cfg.BackupDir)
		result.Details = []string{"It is created on first 'rdp-setup backup'"}
	case err != nil:
		result.Status = "warn"
		result.Message = "Could not check backup directory"
		result.Details = []string{fmt.Sprintf("Error: %v", err)}
	case !info.IsDir():
		result.Status = "fail"
		result.Message = fmt.Sprintf("%s is not a directory", cfg.BackupDir)
	default:
		result.Status = "pass"
		result.Message = fmt.Sprintf("Backup directory present (%s)", cfg.BackupDir)
	}

	printCheck(result, c)
	return result
}

func checkPublicIP(ctx context.Context, cfg config.Config, c *ui.ColorConfig) checkResult {
	result := checkResult{Name: "Public IP"}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	svc := hostinfo.New(hostinfo.Options{IPEchoURL: cfg.IPEchoURL})
	ip, err := svc.PublicIP(ctx)
	if err != nil {
		result.Status = "warn"
		result.Message = "Public IP could not be determined"
		result.Details = []string{
			fmt.Sprintf("Error: %v", err),
			"Remote clients may still reach the host via its local address",
		}
	} else {
		result.Status = "pass"
		result.Message = fmt.Sprintf("Public IP %s", ip)
	}

	printCheck(result, c)
	return result
}

func printCheck(r checkResult, c *ui.ColorConfig) {
	icon := ""
	msg := ""

	switch r.Status {
	case "pass":
		icon = c.Success("✓")
		msg = c.Success(r.Message)
	case "warn":
		icon = c.Warning("⚠")
		msg = c.Warning(r.Message)
	case "fail":
		icon = c.Error("✗")
		msg = c.Error(r.Message)
	}

	fmt.Printf("%s %s: %s\n", icon, c.Apply(c.Theme.Header, r.Name), msg)

	for _, detail := range r.Details {
		fmt.Printf("  %s %s\n", c.Apply(c.Theme.Pending, "→"), detail)
	}
}

func init() {
	rootCmd.AddCommand(doctorCmd)
}
