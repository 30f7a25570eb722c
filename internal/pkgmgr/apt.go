// Package pkgmgr installs and refreshes the Debian packages xrdp needs.
package pkgmgr

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// Packages is the set required for a working xrdp host: the RDP server
// itself, the Xorg backend, and the X session plumbing.
var Packages = []string{"xrdp", "xorgxrdp", "xauth", "xorg", "dbus-x11"}

// Runner runs package manager commands.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) error
}

// Options configures a package sync.
type Options struct {
	SkipUpgrade bool         // refresh indexes and install, but skip dist upgrade
	Progress    func(string) // progress message callback
}

// Service drives apt.
type Service interface {
	Sync(ctx context.Context, opts Options) error
	Update(ctx context.Context) error
	Upgrade(ctx context.Context) error
	Install(ctx context.Context, pkgs ...string) error
}

type svc struct {
	run Runner
}

// New builds a service with a real apt runner.
func New() Service {
	return &svc{run: defaultRunner{}}
}

// NewWith allows injecting a runner for testing.
func NewWith(r Runner) Service {
	if r == nil {
		r = defaultRunner{}
	}
	return &svc{run: r}
}

type defaultRunner struct{}

func (defaultRunner) Run(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	// apt must never stop to ask questions during an unattended install
	cmd.Env = append(os.Environ(), "DEBIAN_FRONTEND=noninteractive")
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%s %s: %w: %s", name, strings.Join(args, " "), err, lastLines(out.String(), 5))
	}
	return nil
}

// lastLines keeps the tail of command output for error messages.
func lastLines(s string, n int) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, " | ")
}

// Sync refreshes indexes, optionally upgrades the system, and installs the
// xrdp package set. Fails fast: a failed stage stops the sync.
func (s *svc) Sync(ctx context.Context, opts Options) error {
	progress := opts.Progress
	if progress == nil {
		progress = func(string) {}
	}

	progress("Refreshing package indexes...")
	if err := s.Update(ctx); err != nil {
		return err
	}

	if !opts.SkipUpgrade {
		progress("Upgrading installed packages...")
		if err := s.Upgrade(ctx); err != nil {
			return err
		}
	}

	progress(fmt.Sprintf("Installing %s...", strings.Join(Packages, " ")))
	return s.Install(ctx, Packages...)
}

func (s *svc) Update(ctx context.Context) error {
	if err := s.run.Run(ctx, "apt-get", "update", "-y"); err != nil {
		return fmt.Errorf("apt update: %w", err)
	}
	return nil
}

func (s *svc) Upgrade(ctx context.Context) error {
	if err := s.run.Run(ctx, "apt-get", "upgrade", "-y"); err != nil {
		return fmt.Errorf("apt upgrade: %w", err)
	}
	return nil
}

func (s *svc) Install(ctx context.Context, pkgs ...string) error {
	if len(pkgs) == 0 {
		return nil
	}
	args := append([]string{"install", "-y"}, pkgs...)
	if err := s.run.Run(ctx, "apt-get", args...); err != nil {
		return fmt.Errorf("apt install: %w", err)
	}
	return nil
}
