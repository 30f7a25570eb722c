package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/rdptools/rdp-setup-cli/internal/dashboard"
	ui "github.com/rdptools/rdp-setup-cli/internal/ui"
)

// dashboardCoreDeps holds injectable dependencies for runDashboardCmdCore.
type dashboardCoreDeps struct {
	isTTY          func() bool
	runStatic      func(ctx context.Context, opts dashboard.Options) error
	runInteractive func(opts dashboard.Options) error
}

// runDashboardCmdCore contains the testable logic for the dashboard RunE
// handler. Non-TTY environments (CI, pipes) get a static snapshot.
func runDashboardCmdCore(ctx context.Context, opts dashboard.Options, static bool, deps dashboardCoreDeps) error {
	if static || !deps.isTTY() {
		return deps.runStatic(ctx, opts)
	}
	return deps.runInteractive(opts)
}

// runDashboardStatic performs a single fetch and prints a text snapshot.
func runDashboardStatic(ctx context.Context, opts dashboard.Options) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	out, err := dashboard.RenderStatic(ctx, opts)
	if err != nil {
		return fmt.Errorf("dashboard snapshot failed: %w", err)
	}
	fmt.Print(out)
	return nil
}

// runDashboardInteractive launches the Bubble Tea TUI program.
func runDashboardInteractive(opts dashboard.Options) error {
	err := dashboard.Run(opts)

	// Clear stale terminal responses left over from the alternate screen
	ui.ResetTerminalAfterTUI()

	if err != nil {
		return fmt.Errorf("dashboard error: %w", err)
	}
	return nil
}

func init() {
	var (
		refreshInterval time.Duration
		static          bool
	)

	dashboardCmd := &cobra.Command{
		Use:   "dashboard",
		Short: "Live dashboard with service and host metrics",
		Long: `Launch an interactive terminal dashboard showing real-time host state:

  • xrdp and xrdp-sesman service status
  • RDP and session manager listener ports
  • CPU, memory, disk and uptime
  • Eligible RDP accounts

The dashboard auto-refreshes every 2 seconds by default. Press 'q' to quit.

For non-interactive environments (CI/pipes), dashboard automatically falls
back to a static text snapshot.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := dashboard.Options{
				Config:          loadCfg(),
				RefreshInterval: refreshInterval,
				NoColor:         flagNoColor,
				NoEmoji:         flagNoEmoji,
				CLIVersion:      Version,
			}
			return runDashboardCmdCore(cmd.Context(), opts, static, dashboardCoreDeps{
				isTTY:          func() bool { return term.IsTerminal(int(os.Stdout.Fd())) },
				runStatic:      runDashboardStatic,
				runInteractive: runDashboardInteractive,
			})
		},
	}

	dashboardCmd.Flags().DurationVar(&refreshInterval, "refresh-interval", 2*time.Second, "Dashboard refresh interval")
	dashboardCmd.Flags().BoolVar(&static, "static", false, "Print one snapshot and exit")

	rootCmd.AddCommand(dashboardCmd)
}
