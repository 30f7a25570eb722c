package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/rdptools/rdp-setup-cli/internal/report"
)

// handleReport regenerates the setup report from the current host state.
func handleReport(ctx context.Context, d *Deps) error {
	host := d.Host.Collect(ctx)
	accounts, err := d.Users.Eligible()
	if err != nil {
		d.Printer.Warn(fmt.Sprintf("user enumeration failed: %v", err))
		accounts = nil
	}

	unitCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	serverActive, _ := d.Sysd.IsActive(unitCtx, d.Cfg.ServerUnit)
	sesmanActive, _ := d.Sysd.IsActive(unitCtx, d.Cfg.SesmanUnit)

	fwNote := "firewall state unknown"
	if fw, err := d.Firewall.Status(unitCtx); err == nil {
		switch {
		case !fw.Present:
			fwNote = "ufw not installed; no firewall rule added"
		case fw.Active:
			fwNote = "ufw active"
		default:
			fwNote = "ufw present but inactive"
		}
	}

	text, err := report.Write(d.Cfg.ReportPath, report.Data{
		Host:  host,
		Port:  d.Cfg.Port,
		Users: accounts,
		ServicesState: fmt.Sprintf("%s %s, %s %s",
			d.Cfg.ServerUnit, activeWord(serverActive),
			d.Cfg.SesmanUnit, activeWord(sesmanActive)),
		FirewallNote: fwNote,
		GeneratedAt:  time.Now(),
	})
	if err != nil {
		if flagOutput == "json" {
			d.Printer.JSON(map[string]any{"ok": false, "error": err.Error()})
		} else {
			d.Printer.Error(fmt.Sprintf("report not written: %v", err))
		}
		return silentErr{err}
	}

	if flagOutput == "json" {
		d.Printer.JSON(map[string]any{"ok": true, "report_path": d.Cfg.ReportPath})
		return nil
	}
	fmt.Fprint(d.Output, text)
	d.Printer.Success(fmt.Sprintf("report written to %s", d.Cfg.ReportPath))
	return nil
}

func activeWord(active bool) string {
	if active {
		return "active"
	}
	return "inactive"
}

func init() {
	reportCmd := &cobra.Command{
		Use:   "report",
		Short: "Regenerate the setup report",
		Long: `Rebuild the connection report from the current host state: hostname,
public and local IP, eligible users and service status. The report is
written to the configured report path and echoed to stdout.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return handleReport(cmd.Context(), newDeps())
		},
	}

	rootCmd.AddCommand(reportCmd)
}
