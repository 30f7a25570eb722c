// Package firewall opens the RDP port through ufw when ufw is present.
package firewall

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// Runner executes ufw commands.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (string, error)
}

// LookPathFunc locates a binary on PATH; injectable for tests.
type LookPathFunc func(file string) (string, error)

// Result describes what the firewall step did.
type Result struct {
	Present bool `json:"present"` // ufw binary found on PATH
	Active  bool `json:"active"`  // ufw reports Status: active
	Opened  bool `json:"opened"`  // allow rule was applied
}

// Service manages the firewall rule for the RDP port.
type Service interface {
	// EnsureOpen allows the port through ufw. Hosts without ufw are
	// skipped silently; that is a normal Debian configuration.
	EnsureOpen(ctx context.Context, port int) (Result, error)
	Status(ctx context.Context) (Result, error)
}

type svc struct {
	run      Runner
	lookPath LookPathFunc
}

// New builds a service backed by the real ufw binary.
func New() Service {
	return &svc{run: defaultRunner{}, lookPath: exec.LookPath}
}

// NewWith allows injecting dependencies for testing.
func NewWith(r Runner, lp LookPathFunc) Service {
	if r == nil {
		r = defaultRunner{}
	}
	if lp == nil {
		lp = exec.LookPath
	}
	return &svc{run: r, lookPath: lp}
}

type defaultRunner struct{}

func (defaultRunner) Run(ctx context.Context, name string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var buf bytes.Buffer
	cmd.Stdout = &buf
	cmd.Stderr = &buf
	err := cmd.Run()
	return strings.TrimSpace(buf.String()), err
}

func (s *svc) EnsureOpen(ctx context.Context, port int) (Result, error) {
	res, err := s.Status(ctx)
	if err != nil || !res.Present {
		return res, err
	}

	rule := fmt.Sprintf("%d/tcp", port)
	if _, err := s.run.Run(ctx, "ufw", "allow", rule); err != nil {
		return res, fmt.Errorf("ufw allow %s: %w", rule, err)
	}
	res.Opened = true

	if res.Active {
		if _, err := s.run.Run(ctx, "ufw", "reload"); err != nil {
			return res, fmt.Errorf("ufw reload: %w", err)
		}
	}
	return res, nil
}

func (s *svc) Status(ctx context.Context) (Result, error) {
	if _, err := s.lookPath("ufw"); err != nil {
		return Result{}, nil
	}
	res := Result{Present: true}

	out, err := s.run.Run(ctx, "ufw", "status")
	if err != nil {
		// status needs root; treat as present but state unknown
		return res, nil
	}
	res.Active = strings.Contains(out, "Status: active")
	return res, nil
}
