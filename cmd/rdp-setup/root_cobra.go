package main

import (
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/spf13/cobra"

	"github.com/rdptools/rdp-setup-cli/internal/config"
	"github.com/rdptools/rdp-setup-cli/internal/exitcodes"
	ui "github.com/rdptools/rdp-setup-cli/internal/ui"
	"github.com/rdptools/rdp-setup-cli/internal/update"
)

// Version information - set via -ldflags during build
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildDate = "unknown"
)

// updateCheckResult stores the result of the background update check
var (
	updateCheckResult *update.CheckResult
	updateCheckMu     sync.Mutex
)

// rootCmd wires the CLI surface using Cobra. Persistent flags are applied
// to a loaded config in loadCfg(). Subcommands implement the operations
// (setup, status, doctor, users, report, logs, backup, dashboard, update).
var rootCmd = &cobra.Command{
	Use:           "rdp-setup",
	Short:         "Remote Desktop Setup",
	Long:          "Install and manage an xrdp remote desktop host: setup, status, users, logs, and maintenance tasks.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		ui.InitGlobal(ui.Config{
			NoColor:        flagNoColor,
			NoEmoji:        flagNoEmoji,
			Yes:            flagYes,
			NonInteractive: flagNonInteractive,
			Verbose:        flagVerbose,
			Quiet:          flagQuiet,
		})

		// Set NO_COLOR so lipgloss and other libraries respect the flag
		if flagNoColor {
			os.Setenv("NO_COLOR", "1")
		}

		if !shouldSkipUpdateCheck(cmd) {
			go checkForUpdateBackground()
		}
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		updateCheckMu.Lock()
		result := updateCheckResult
		updateCheckMu.Unlock()
		if !shouldSkipUpdateCheck(cmd) && result != nil && result.UpdateAvailable {
			showUpdateNotification(result.LatestVersion)
		}
	},
}

var (
	flagConfigDir      string
	flagReportPath     string
	flagPort           int
	flagOutput         string
	flagVerbose        bool
	flagQuiet          bool
	flagNoColor        bool
	flagNoEmoji        bool
	flagYes            bool
	flagNonInteractive bool
)

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfigDir, "config-dir", "", "xrdp config directory (overrides env)")
	rootCmd.PersistentFlags().StringVar(&flagReportPath, "report-path", "", "Setup report destination (overrides env)")
	rootCmd.PersistentFlags().IntVar(&flagPort, "port", 0, "RDP listen port (overrides env)")
	rootCmd.PersistentFlags().StringVarP(&flagOutput, "output", "o", "text", "Output format: json|yaml|text")
	rootCmd.PersistentFlags().BoolVar(&flagVerbose, "verbose", false, "Verbose output")
	rootCmd.PersistentFlags().BoolVarP(&flagQuiet, "quiet", "q", false, "Quiet mode: minimal output")
	rootCmd.PersistentFlags().BoolVar(&flagNoColor, "no-color", false, "Disable ANSI colors")
	rootCmd.PersistentFlags().BoolVar(&flagNoEmoji, "no-emoji", false, "Disable emoji output")
	rootCmd.PersistentFlags().BoolVarP(&flagYes, "yes", "y", false, "Assume yes for all prompts")
	rootCmd.PersistentFlags().BoolVar(&flagNonInteractive, "non-interactive", false, "Fail instead of prompting")

	// Replace root help to present grouped, example-rich output.
	// Subcommands keep cobra's default help.
	rootCmd.SetHelpFunc(func(cmd *cobra.Command, args []string) {
		if cmd != rootCmd {
			fmt.Fprintln(os.Stdout, cmd.UsageString())
			return
		}
		// Help runs before PersistentPreRun, so manually configure colors
		c := ui.NewColorConfig()
		c.Enabled = c.Enabled && !flagNoColor
		c.EmojiEnabled = c.EmojiEnabled && !flagNoEmoji
		w := os.Stdout

		const cmdWidth = 28

		fmt.Fprintln(w, c.Header(" Remote Desktop Setup "))
		fmt.Fprintln(w, c.Description("Install and manage an xrdp remote desktop host."))
		fmt.Fprintln(w, c.Separator(50))
		fmt.Fprintln(w)

		fmt.Fprintln(w, c.SubHeader("USAGE"))
		fmt.Fprintf(w, "  %s <command> [flags]\n", "rdp-setup")
		fmt.Fprintln(w)

		fmt.Fprintln(w, c.SubHeader("Quick Start"))
		fmt.Fprintln(w, c.FormatCommandAligned("setup", "Install and configure xrdp (needs root)", cmdWidth))
		fmt.Fprintln(w, c.FormatCommandAligned("status", "Show services, ports, and host state", cmdWidth))
		fmt.Fprintln(w, c.FormatCommandAligned("dashboard", "Live dashboard with host metrics", cmdWidth))
		fmt.Fprintln(w)

		fmt.Fprintln(w, c.SubHeader("Operations"))
		fmt.Fprintln(w, c.FormatCommandAligned("users", "List accounts that can log in over RDP", cmdWidth))
		fmt.Fprintln(w, c.FormatCommandAligned("report", "Regenerate the setup report", cmdWidth))
		fmt.Fprintln(w, c.FormatCommandAligned("logs", "Show xrdp logs (use -f to follow)", cmdWidth))
		fmt.Fprintln(w)

		fmt.Fprintln(w, c.SubHeader("Maintenance"))
		fmt.Fprintln(w, c.FormatCommandAligned("backup", "Archive the xrdp config directory", cmdWidth))
		fmt.Fprintln(w, c.FormatCommandAligned("doctor", "Run diagnostic checks", cmdWidth))
		fmt.Fprintln(w)

		fmt.Fprintln(w, c.SubHeader("Upgrades"))
		fmt.Fprintln(w, c.FormatCommandAligned("update", "Update rdp-setup to the latest version", cmdWidth))
		fmt.Fprintln(w, c.FormatCommandAligned("version", "Show version information", cmdWidth))
		fmt.Fprintln(w)
	})
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		var se silentErr
		if !errors.As(err, &se) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(exitcodes.CodeForError(err))
	}
}

// loadCfg reads defaults + env via internal/config.Load() and then
// applies overrides from persistent flags.
func loadCfg() config.Config {
	cfg := config.Load()
	if flagConfigDir != "" {
		cfg.ConfigDir = flagConfigDir
		cfg.StartWMPath = flagConfigDir + "/startwm.sh"
	}
	if flagReportPath != "" {
		cfg.ReportPath = flagReportPath
	}
	if flagPort > 0 {
		cfg.Port = flagPort
	}
	return cfg
}
