package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	ui "github.com/rdptools/rdp-setup-cli/internal/ui"
)

// logDeps holds injectable dependencies for handleLogsCore.
type logDeps struct {
	isTerminal func(fd int) bool
	runLogUI   func(ctx context.Context, opts ui.LogUIOptions) error
	printLast  func(path string, n int) error
	stat       func(name string) (os.FileInfo, error)
}

// handleLogs shows or follows an xrdp log file. It validates the log
// path and prints structured JSON errors when --output=json.
func handleLogs(path string, follow bool, lines int) error {
	return handleLogsCore(path, follow, lines, logDeps{
		isTerminal: func(fd int) bool { return term.IsTerminal(fd) },
		runLogUI:   ui.RunLogUI,
		printLast: func(p string, n int) error {
			return ui.PrintLastLines(p, os.Stdout, n, !flagNoColor)
		},
		stat: os.Stat,
	})
}

// handleLogsCore contains the testable core logic for handleLogs.
func handleLogsCore(path string, follow bool, lines int, deps logDeps) error {
	if path == "" {
		if flagOutput == "json" {
			getPrinter().JSON(map[string]any{"ok": false, "error": "no log path configured"})
		} else {
			getPrinter().Error("no log path configured")
		}
		return fmt.Errorf("no log path configured")
	}
	if _, err := deps.stat(path); err != nil {
		if flagOutput == "json" {
			getPrinter().JSON(map[string]any{"ok": false, "error": "log file not found", "path": path})
		} else {
			getPrinter().Error(fmt.Sprintf("log file not found: %s (has setup run yet?)", path))
		}
		return fmt.Errorf("log file not found: %s", path)
	}

	if !follow {
		return deps.printLast(path, lines)
	}

	interactive := deps.isTerminal(int(os.Stdin.Fd())) && deps.isTerminal(int(os.Stdout.Fd())) && !flagNonInteractive

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Ctrl+C stops the viewer; xrdp itself keeps running
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigs)
	go func() {
		<-sigs
		cancel()
	}()

	return deps.runLogUI(ctx, ui.LogUIOptions{
		LogPath:    path,
		Backlog:    lines,
		ShowFooter: interactive,
		NoColor:    flagNoColor,
	})
}

func init() {
	var (
		follow bool
		lines  int
		sesman bool
	)

	logsCmd := &cobra.Command{
		Use:   "logs",
		Short: "Show xrdp logs",
		Long: `Print recent lines from the xrdp server log, or follow it live with -f.
Use --sesman to read the session manager log instead.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := loadCfg()
			path := cfg.ServerLogPath
			if sesman {
				path = cfg.SesmanLogPath
			}
			return handleLogs(path, follow, lines)
		},
	}

	logsCmd.Flags().BoolVarP(&follow, "follow", "f", false, "Follow the log as it grows")
	logsCmd.Flags().IntVarP(&lines, "lines", "n", 50, "Number of recent lines to show")
	logsCmd.Flags().BoolVar(&sesman, "sesman", false, "Show the xrdp-sesman log instead")

	rootCmd.AddCommand(logsCmd)
}
