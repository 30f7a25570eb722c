package ui

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/nxadm/tail"
	"golang.org/x/term"
)

// LogUIOptions configures the log viewer
type LogUIOptions struct {
	LogPath    string // path to the log file to follow
	Backlog    int    // recent lines to print before following
	ShowFooter bool   // enable the sticky controls footer
	NoColor    bool   // respect --no-color
}

// RunLogUI follows a log file with a sticky controls footer. Ctrl+C exits
// the viewer; the xrdp services keep running. Falls back to a plain tail
// for non-TTY environments (pipes, CI).
func RunLogUI(ctx context.Context, opts LogUIOptions) error {
	stdin := int(os.Stdin.Fd())
	stdout := int(os.Stdout.Fd())
	if !term.IsTerminal(stdin) || !term.IsTerminal(stdout) || !opts.ShowFooter {
		return tailFollow(ctx, opts.LogPath)
	}

	rows, cols, err := term.GetSize(stdout)
	if err != nil || rows < 5 || cols < 20 {
		return tailFollow(ctx, opts.LogPath)
	}

	oldState, err := term.MakeRaw(stdin)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Cannot enable viewer mode; showing plain logs.")
		return tailFollow(ctx, opts.LogPath)
	}
	// Restore cooked mode on every exit path
	defer func() {
		_ = term.Restore(stdin, oldState)
		fmt.Fprint(os.Stdout, "\x1b[?7h") // re-enable line wrap
	}()

	fmt.Fprint(os.Stdout, "\x1b[?7l") // disable line wrap

	footerRaw := "Controls: Ctrl+C to exit viewer (services keep running)"
	if len(footerRaw) > cols {
		footerRaw = footerRaw[:cols]
	}
	footerStyled := footerRaw
	if !opts.NoColor {
		footerStyled = "\x1b[1m" + footerRaw + "\x1b[0m"
	}
	renderFooter := func() {
		fmt.Fprint(os.Stdout, "\x1b7")
		fmt.Fprintf(os.Stdout, "\x1b[%d;1H\x1b[2K", rows-1)
		fmt.Fprintf(os.Stdout, "\x1b[%d;1H\x1b[2K%s", rows, footerStyled)
		fmt.Fprint(os.Stdout, "\x1b8")
	}
	renderFooter()
	defer renderFooter()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGHUP)
	defer signal.Stop(sigCh)
	go func() {
		<-sigCh
		cancel()
	}()

	logErr := make(chan error, 1)
	go func() {
		logErr <- streamLogs(ctx, opts, renderFooter)
	}()

	keyCh := make(chan byte, 16)
	go func() {
		buf := make([]byte, 1)
		for {
			n, err := os.Stdin.Read(buf)
			if err != nil || n == 0 {
				return
			}
			keyCh <- buf[0]
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-logErr:
			if err != nil && err != context.Canceled {
				fmt.Fprintf(os.Stdout, "\r\nLog streaming error: %v\r\n", err)
			}
			return err
		case key := <-keyCh:
			if key == 3 || key == 'q' { // Ctrl+C or q
				return nil
			}
		}
	}
}

// streamLogs follows the log file with rotation support using github.com/nxadm/tail
func streamLogs(ctx context.Context, opts LogUIOptions, onPrint func()) error {
	// xrdp creates its log on first start; wait briefly rather than erroring
	for i := 0; i < 50; i++ {
		if _, err := os.Stat(opts.LogPath); err == nil {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(100 * time.Millisecond):
		}
	}

	if opts.Backlog > 0 {
		if err := PrintLastLines(opts.LogPath, os.Stdout, opts.Backlog, !opts.NoColor); err == nil && onPrint != nil {
			onPrint()
		}
	}

	t, err := tail.TailFile(opts.LogPath, tail.Config{
		Follow:    true,
		ReOpen:    true,  // logrotate moves xrdp.log aside
		MustExist: false,
		Poll:      false,
		Location:  &tail.SeekInfo{Offset: 0, Whence: io.SeekEnd},
	})
	if err != nil {
		return fmt.Errorf("failed to tail log: %w", err)
	}
	defer t.Cleanup()

	for {
		select {
		case <-ctx.Done():
			return nil
		case line := <-t.Lines:
			if line == nil {
				return nil
			}
			if line.Err != nil {
				return line.Err
			}
			text := line.Text
			if !opts.NoColor {
				text = colorizeLogLine(text)
			}
			// \r\n keeps columns aligned in raw mode
			fmt.Fprintf(os.Stdout, "%s\r\n", text)
			if onPrint != nil {
				onPrint()
			}
		}
	}
}

// colorizeLogLine applies ANSI color based on xrdp/sesman log severity
func colorizeLogLine(line string) string {
	lower := strings.ToLower(line)
	switch {
	case strings.Contains(lower, "[error]") || strings.Contains(lower, "[core]") || strings.Contains(lower, "error") || strings.Contains(lower, "fatal"):
		return "\033[31m" + line + "\033[0m"
	case strings.Contains(lower, "[warn]") || strings.Contains(lower, "warning"):
		return "\033[33m" + line + "\033[0m"
	case strings.Contains(lower, "[info]"):
		return "\033[32m" + line + "\033[0m"
	case strings.Contains(lower, "[debug]") || strings.Contains(lower, "[trace]"):
		return "\033[90m" + line + "\033[0m"
	}
	return line
}

// PrintLastLines writes the last maxLines lines of the file to out.
// Used by the non-follow logs path and as viewer backlog.
func PrintLastLines(path string, out io.Writer, maxLines int, colorize bool) error {
	if maxLines <= 0 {
		return nil
	}
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	scanner := bufio.NewScanner(f)
	// allow long log lines up to 512 KiB
	bufSize := 512 * 1024
	scanner.Buffer(make([]byte, bufSize), bufSize)

	buf := make([]string, 0, maxLines)
	for scanner.Scan() {
		if len(buf) == maxLines {
			copy(buf, buf[1:])
			buf[len(buf)-1] = scanner.Text()
		} else {
			buf = append(buf, scanner.Text())
		}
	}
	if err := scanner.Err(); err != nil {
		return err
	}
	for _, line := range buf {
		if colorize {
			line = colorizeLogLine(line)
		}
		fmt.Fprintln(out, line)
	}
	return nil
}

// tailFollow is a simple fallback for non-TTY environments.
// Shells out to tail -F with -f fallback for minimal systems.
func tailFollow(ctx context.Context, logPath string) error {
	cmd := exec.CommandContext(ctx, "tail", "-F", logPath)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		cmd = exec.CommandContext(ctx, "tail", "-f", logPath)
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr
		return cmd.Run()
	}
	return nil
}
