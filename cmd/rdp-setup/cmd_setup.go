package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rdptools/rdp-setup-cli/internal/exitcodes"
	"github.com/rdptools/rdp-setup-cli/internal/setup"
	ui "github.com/rdptools/rdp-setup-cli/internal/ui"
)

// runSetupCore contains the testable logic for the setup RunE handler.
func runSetupCore(ctx context.Context, s setup.Service, opts setup.Options, port int, p ui.Printer) error {
	if flagOutput != "json" && !flagQuiet {
		opts.Progress = func(msg string) { p.Info(msg) }
	}

	res, err := s.Run(ctx, opts)
	if err != nil {
		if flagOutput == "json" {
			p.JSON(map[string]any{"ok": false, "error": err.Error()})
			return silentErr{err}
		}
		ui.PrintError(setupErrorMessage(err))
		return silentErr{err}
	}

	if flagOutput == "json" {
		p.JSON(res)
		return nil
	}

	for _, w := range res.Warnings {
		p.Warn(w)
	}

	if res.DryRun {
		p.Success(fmt.Sprintf("Dry run complete: host %s, %d eligible user(s), no changes made",
			res.Host.Hostname, len(res.Users)))
		return nil
	}

	if res.ReportText != "" {
		fmt.Println()
		fmt.Print(res.ReportText)
	}
	if res.Health.OK() {
		p.Success(fmt.Sprintf("xrdp is up; connect to port %d", port))
	} else {
		p.Warn("setup finished but services are not active yet; check 'rdp-setup logs'")
	}
	return nil
}

// setupErrorMessage maps pipeline failures to actionable guidance.
func setupErrorMessage(err error) ui.ErrorMessage {
	msg := ui.ErrorMessage{Problem: err.Error()}
	switch exitcodes.CodeForError(err) {
	case exitcodes.PreconditionFailed:
		msg.Actions = []string{"Re-run with sudo: sudo rdp-setup setup"}
	case exitcodes.ProcessError:
		msg.Causes = []string{
			"Another apt/dpkg process holds the lock",
			"A service failed to start",
		}
		msg.Actions = []string{
			"Wait for unattended-upgrades to finish and retry",
			"Inspect service state with 'rdp-setup doctor'",
		}
		msg.Hints = []string{"rdp-setup logs -f"}
	default:
		msg.Hints = []string{"rdp-setup doctor"}
	}
	return msg
}

func init() {
	var (
		skipUpgrade bool
		dryRun      bool
	)

	setupCmd := &cobra.Command{
		Use:   "setup",
		Short: "Install and configure the xrdp remote desktop stack",
		Long: `Install xrdp and its dependencies, write the server configuration,
enable the services, open the firewall port and write a setup report.

Must run as root. Use --dry-run to preview without touching the system.

Examples:
  sudo rdp-setup setup                 # Full installation
  sudo rdp-setup setup --skip-upgrade  # Skip apt-get upgrade
  rdp-setup setup --dry-run            # Validate without changes`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := loadCfg()
			s, err := setup.New(cfg)
			if err != nil {
				return err
			}
			return runSetupCore(cmd.Context(), s,
				setup.Options{SkipUpgrade: skipUpgrade, DryRun: dryRun}, cfg.Port, getPrinter())
		},
	}

	setupCmd.Flags().BoolVar(&skipUpgrade, "skip-upgrade", false, "Skip apt-get upgrade during package sync")
	setupCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Discover and validate without changing the system")

	rootCmd.AddCommand(setupCmd)
}
