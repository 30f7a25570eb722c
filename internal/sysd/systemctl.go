// Package sysd manages the xrdp systemd units.
package sysd

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// Runner executes systemctl. Output returns trimmed combined output and the
// command exit code; err is non-nil only when the command could not run.
type Runner interface {
	Output(ctx context.Context, args ...string) (out string, code int, err error)
}

// Service controls systemd units.
type Service interface {
	Enable(ctx context.Context, unit string) error
	Restart(ctx context.Context, unit string) error
	Stop(ctx context.Context, unit string) error
	// IsActive reports the unit state. "is-active" exits non-zero for
	// inactive units; that is a state, not an error.
	IsActive(ctx context.Context, unit string) (bool, error)
	IsEnabled(ctx context.Context, unit string) (bool, error)
}

type svc struct {
	run Runner
}

// New builds a service backed by the real systemctl binary.
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

func (defaultRunner) Output(ctx context.Context, args ...string) (string, int, error) {
	cmd := exec.CommandContext(ctx, "systemctl", args...)
	var buf bytes.Buffer
	cmd.Stdout = &buf
	cmd.Stderr = &buf
	err := cmd.Run()
	out := strings.TrimSpace(buf.String())
	if err == nil {
		return out, 0, nil
	}
	if ee, ok := err.(*exec.ExitError); ok {
		return out, ee.ExitCode(), nil
	}
	return out, -1, err
}

func (s *svc) Enable(ctx context.Context, unit string) error {
	return s.expectZero(ctx, "enable", unit)
}

func (s *svc) Restart(ctx context.Context, unit string) error {
	return s.expectZero(ctx, "restart", unit)
}

func (s *svc) Stop(ctx context.Context, unit string) error {
	return s.expectZero(ctx, "stop", unit)
}

func (s *svc) IsActive(ctx context.Context, unit string) (bool, error) {
	out, code, err := s.run.Output(ctx, "is-active", unit)
	if err != nil {
		return false, fmt.Errorf("systemctl is-active %s: %w", unit, err)
	}
	// exit 0 with "active"; exit 3 covers inactive and activating
	return code == 0 && out == "active", nil
}

func (s *svc) IsEnabled(ctx context.Context, unit string) (bool, error) {
	out, code, err := s.run.Output(ctx, "is-enabled", unit)
	if err != nil {
		return false, fmt.Errorf("systemctl is-enabled %s: %w", unit, err)
	}
	return code == 0 && (out == "enabled" || out == "enabled-runtime"), nil
}

func (s *svc) expectZero(ctx context.Context, verb, unit string) error {
	out, code, err := s.run.Output(ctx, verb, unit)
	if err != nil {
		return fmt.Errorf("systemctl %s %s: %w", verb, unit, err)
	}
	if code != 0 {
		if out != "" {
			return fmt.Errorf("systemctl %s %s exited %d: %s", verb, unit, code, out)
		}
		return fmt.Errorf("systemctl %s %s exited %d", verb, unit, code)
	}
	return nil
}
