package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/rdptools/rdp-setup-cli/internal/config"
	"github.com/rdptools/rdp-setup-cli/internal/exitcodes"
	"github.com/rdptools/rdp-setup-cli/internal/sysd"
	"github.com/rdptools/rdp-setup-cli/internal/sysinfo"
	ui "github.com/rdptools/rdp-setup-cli/internal/ui"
)

// statusResult models the service and host fields shown by the `status`
// command. It is also used for JSON and YAML output.
type statusResult struct {
	// Service state
	ServerActive   bool `json:"server_active" yaml:"server_active"`
	ServerEnabled  bool `json:"server_enabled" yaml:"server_enabled"`
	SesmanActive   bool `json:"sesman_active" yaml:"sesman_active"`
	SesmanEnabled  bool `json:"sesman_enabled" yaml:"sesman_enabled"`
	RDPPortOpen    bool `json:"rdp_port_open" yaml:"rdp_port_open"`
	SesmanPortOpen bool `json:"sesman_port_open" yaml:"sesman_port_open"`

	// Installation state
	ConfigInstalled bool `json:"config_installed" yaml:"config_installed"`
	BackupPresent   bool `json:"backup_present" yaml:"backup_present"`
	ReportPresent   bool `json:"report_present" yaml:"report_present"`

	// Host metrics
	Hostname   string  `json:"hostname,omitempty" yaml:"hostname,omitempty"`
	CPUPercent float64 `json:"cpu_percent,omitempty" yaml:"cpu_percent,omitempty"`
	MemoryPct  float64 `json:"memory_percent,omitempty" yaml:"memory_percent,omitempty"`
	DiskPct    float64 `json:"disk_percent,omitempty" yaml:"disk_percent,omitempty"`
	UptimeSec  uint64  `json:"uptime_sec,omitempty" yaml:"uptime_sec,omitempty"`

	Error string `json:"error,omitempty" yaml:"error,omitempty"`
}

// Healthy reports whether the host is serving RDP right now.
func (r statusResult) Healthy() bool {
	return r.ServerActive && r.SesmanActive && r.RDPPortOpen
}

// computeStatus gathers service state from systemd and host metrics from
// a one-shot collector snapshot. Everything is best-effort.
func computeStatus(ctx context.Context, cfg config.Config, sd sysd.Service, col *sysinfo.Collector) statusResult {
	res := statusResult{}

	unitCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	res.ServerActive, _ = sd.IsActive(unitCtx, cfg.ServerUnit)
	res.ServerEnabled, _ = sd.IsEnabled(unitCtx, cfg.ServerUnit)
	res.SesmanActive, _ = sd.IsActive(unitCtx, cfg.SesmanUnit)
	res.SesmanEnabled, _ = sd.IsEnabled(unitCtx, cfg.SesmanUnit)

	if _, err := os.Stat(cfg.PrimaryConfigPath()); err == nil {
		res.ConfigInstalled = true
	}
	if _, err := os.Stat(cfg.PrimaryBackupPath()); err == nil {
		res.BackupPresent = true
	}
	if _, err := os.Stat(cfg.ReportPath); err == nil {
		res.ReportPresent = true
	}

	snapCtx, snapCancel := context.WithTimeout(ctx, 2*time.Second)
	defer snapCancel()
	snap := col.Collect(snapCtx, cfg.Port, cfg.SesmanPort)
	res.RDPPortOpen = snap.Listener.RDPPortOpen
	res.SesmanPortOpen = snap.Listener.SesmanPortOpen
	res.Hostname = snap.Host.Hostname
	res.CPUPercent = snap.System.CPUPercent
	if snap.System.MemTotal > 0 {
		res.MemoryPct = float64(snap.System.MemUsed) / float64(snap.System.MemTotal) * 100
	}
	if snap.System.DiskTotal > 0 {
		res.DiskPct = float64(snap.System.DiskUsed) / float64(snap.System.DiskTotal) * 100
	}
	res.UptimeSec = snap.Host.UptimeSec

	return res
}

// printStatusText prints a human-friendly status summary.
func printStatusText(result statusResult, cfg config.Config) {
	c := ui.NewColorConfig()

	boxStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("63")).
		Padding(0, 1).
		Width(40)

	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("39")).
		Width(36).
		Align(lipgloss.Center)

	state := func(ok bool, okText, badText string) string {
		if ok {
			return fmt.Sprintf("%s %s", c.StatusIcon("active"), okText)
		}
		return fmt.Sprintf("%s %s", c.StatusIcon("inactive"), badText)
	}

	serviceLines := []string{
		"xrdp         " + state(result.ServerActive, "Active", "Inactive"),
		"xrdp-sesman  " + state(result.SesmanActive, "Active", "Inactive"),
		fmt.Sprintf("Port %-6d  %s", cfg.Port, state(result.RDPPortOpen, "Listening", "Closed")),
	}
	if result.ServerEnabled && result.SesmanEnabled {
		serviceLines = append(serviceLines, c.Description("Both units enabled at boot"))
	} else {
		serviceLines = append(serviceLines, c.Warning("Units not enabled at boot"))
	}
	serviceBox := boxStyle.Render(
		titleStyle.Render("SERVICES") + "\n" + strings.Join(serviceLines, "\n"),
	)

	hostLines := []string{}
	if result.Hostname != "" {
		hostLines = append(hostLines, fmt.Sprintf("Host:    %s", result.Hostname))
	}
	if result.CPUPercent > 0 {
		hostLines = append(hostLines, fmt.Sprintf("CPU:     %.1f%%", result.CPUPercent))
	}
	if result.MemoryPct > 0 {
		hostLines = append(hostLines, fmt.Sprintf("Memory:  %.1f%%", result.MemoryPct))
	}
	if result.DiskPct > 0 {
		hostLines = append(hostLines, fmt.Sprintf("Disk:    %.1f%%", result.DiskPct))
	}
	if result.UptimeSec > 0 {
		hostLines = append(hostLines, fmt.Sprintf("Uptime:  %s", ui.FormatUptime(result.UptimeSec)))
	}
	if len(hostLines) == 0 {
		hostLines = append(hostLines, c.Description("metrics unavailable"))
	}
	hostBox := boxStyle.Render(
		titleStyle.Render("HOST") + "\n" + strings.Join(hostLines, "\n"),
	)

	fmt.Println(lipgloss.JoinHorizontal(lipgloss.Top, serviceBox, hostBox))

	install := []string{}
	if !result.ConfigInstalled {
		install = append(install, "config not installed")
	}
	if result.BackupPresent {
		install = append(install, "original config backed up")
	}
	if result.ReportPresent {
		install = append(install, "report at "+cfg.ReportPath)
	}
	if len(install) > 0 {
		fmt.Printf("%s %s\n", c.Info("ℹ"), strings.Join(install, "; "))
	}

	if !result.ConfigInstalled {
		fmt.Printf("\n%s Run 'sudo rdp-setup setup' to install\n", c.Info("ℹ"))
	} else if !result.Healthy() {
		fmt.Printf("\n%s Not serving RDP; try 'rdp-setup doctor'\n", c.Warning("⚠"))
	}
}

func init() {
	var strict bool

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show xrdp service and host state",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := loadCfg()
			col := sysinfo.NewWithoutCPU()
			defer col.Stop()

			result := computeStatus(cmd.Context(), cfg, sysd.New(), col)

			switch flagOutput {
			case "json":
				getPrinter().JSON(result)
			case "yaml":
				data, err := yaml.Marshal(result)
				if err != nil {
					return err
				}
				fmt.Print(string(data))
			default:
				printStatusText(result, cfg)
			}

			if strict && !result.Healthy() {
				return silentErr{exitcodes.ValidationErr("host is not serving RDP")}
			}
			return nil
		},
	}

	statusCmd.Flags().BoolVar(&strict, "strict", false, "Exit non-zero unless services are active and the port is open")

	rootCmd.AddCommand(statusCmd)
}
