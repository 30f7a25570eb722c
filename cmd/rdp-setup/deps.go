package main

import (
	"bufio"
	"fmt"
	"io"
	"net"
	"os"
	"strings"
	"time"

	"golang.org/x/term"

	"github.com/rdptools/rdp-setup-cli/internal/backup"
	"github.com/rdptools/rdp-setup-cli/internal/config"
	"github.com/rdptools/rdp-setup-cli/internal/firewall"
	"github.com/rdptools/rdp-setup-cli/internal/hostinfo"
	"github.com/rdptools/rdp-setup-cli/internal/sysd"
	ui "github.com/rdptools/rdp-setup-cli/internal/ui"
	"github.com/rdptools/rdp-setup-cli/internal/users"
)

// Prompter abstracts interactive terminal I/O for testability.
type Prompter interface {
	// ReadLine displays the prompt and reads a line of input.
	ReadLine(prompt string) (string, error)
	// IsInteractive returns whether the terminal supports interactive input.
	IsInteractive() bool
}

// Deps holds all injectable dependencies for command handlers.
type Deps struct {
	Cfg      config.Config
	Sysd     sysd.Service
	Firewall firewall.Service
	Users    users.Service
	Host     hostinfo.Service
	Backup   backup.Service
	Printer  ui.Printer
	Prompter Prompter
	Output   io.Writer
	Probe    func(port int) bool
}

// ttyPrompter is the production implementation of Prompter.
// It uses /dev/tty when stdin is not a terminal (e.g., piped input).
type ttyPrompter struct{}

func (p *ttyPrompter) ReadLine(prompt string) (string, error) {
	fmt.Print(prompt)

	var reader *bufio.Reader
	if term.IsTerminal(int(os.Stdin.Fd())) {
		reader = bufio.NewReader(os.Stdin)
	} else {
		tty, err := os.OpenFile("/dev/tty", os.O_RDONLY, 0)
		if err != nil {
			return "", fmt.Errorf("no interactive terminal available: %w", err)
		}
		defer tty.Close()
		reader = bufio.NewReader(tty)
	}

	line, err := reader.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func (p *ttyPrompter) IsInteractive() bool {
	if flagNonInteractive {
		return false
	}
	if term.IsTerminal(int(os.Stdin.Fd())) {
		return true
	}
	tty, err := os.OpenFile("/dev/tty", os.O_RDONLY, 0)
	if err == nil {
		tty.Close()
		return true
	}
	return false
}

// probePort reports whether a local TCP listener answers on the port.
func probePort(port int) bool {
	conn, err := net.DialTimeout("tcp", fmt.Sprintf("127.0.0.1:%d", port), 2*time.Second)
	if err != nil {
		return false
	}
	_ = conn.Close()
	return true
}

// newDeps creates production dependencies from the current flags and config.
func newDeps() *Deps {
	cfg := loadCfg()
	return &Deps{
		Cfg:      cfg,
		Sysd:     sysd.New(),
		Firewall: firewall.New(),
		Users:    users.New(users.Options{PasswdPath: cfg.PasswdPath}),
		Host:     hostinfo.New(hostinfo.Options{IPEchoURL: cfg.IPEchoURL}),
		Backup:   backup.New(backup.Options{ConfigDir: cfg.ConfigDir, BackupDir: cfg.BackupDir}),
		Printer:  getPrinter(),
		Prompter: &ttyPrompter{},
		Output:   os.Stdout,
		Probe:    probePort,
	}
}
