package main

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/spf13/cobra"

	"github.com/rdptools/rdp-setup-cli/internal/backup"
	"github.com/rdptools/rdp-setup-cli/internal/config"
	"github.com/rdptools/rdp-setup-cli/internal/firewall"
	"github.com/rdptools/rdp-setup-cli/internal/hostinfo"
	ui "github.com/rdptools/rdp-setup-cli/internal/ui"
	"github.com/rdptools/rdp-setup-cli/internal/users"
)

func containsSubstr(s, sub string) bool { return strings.Contains(s, sub) }

// findSubcommand looks up a registered subcommand by name.
func findSubcommand(name string) *cobra.Command {
	for _, c := range rootCmd.Commands() {
		if c.Name() == name {
			return c
		}
	}
	return nil
}

// resetFlags restores global flag state after a test mutates it.
func resetFlags(t *testing.T) {
	t.Helper()
	origOutput := flagOutput
	origQuiet := flagQuiet
	origNoColor := flagNoColor
	origYes := flagYes
	origNonInteractive := flagNonInteractive
	t.Cleanup(func() {
		flagOutput = origOutput
		flagQuiet = origQuiet
		flagNoColor = origNoColor
		flagYes = origYes
		flagNonInteractive = origNonInteractive
	})
}

// fakeSysd implements sysd.Service with canned answers.
type fakeSysd struct {
	active  map[string]bool
	enabled map[string]bool
	calls   []string
}

func (f *fakeSysd) Enable(ctx context.Context, unit string) error {
	f.calls = append(f.calls, "enable "+unit)
	return nil
}

func (f *fakeSysd) Restart(ctx context.Context, unit string) error {
	f.calls = append(f.calls, "restart "+unit)
	return nil
}

func (f *fakeSysd) Stop(ctx context.Context, unit string) error {
	f.calls = append(f.calls, "stop "+unit)
	return nil
}

func (f *fakeSysd) IsActive(ctx context.Context, unit string) (bool, error) {
	return f.active[unit], nil
}

func (f *fakeSysd) IsEnabled(ctx context.Context, unit string) (bool, error) {
	return f.enabled[unit], nil
}

// fakeUsers implements users.Service.
type fakeUsers struct {
	accounts []users.Account
	err      error
}

func (f *fakeUsers) All() ([]users.Account, error)      { return f.accounts, f.err }
func (f *fakeUsers) Eligible() ([]users.Account, error) { return f.accounts, f.err }

// fakeHost implements hostinfo.Service.
type fakeHost struct {
	info hostinfo.Info
}

func (f *fakeHost) Collect(ctx context.Context) hostinfo.Info { return f.info }

func (f *fakeHost) PublicIP(ctx context.Context) (string, error) {
	if f.info.PublicIP == hostinfo.UnknownPublicIP {
		return "", context.DeadlineExceeded
	}
	return f.info.PublicIP, nil
}

func (f *fakeHost) LocalIP() (string, error) { return f.info.LocalIP, nil }

// fakeFirewall implements firewall.Service.
type fakeFirewall struct {
	result firewall.Result
	err    error
}

func (f *fakeFirewall) EnsureOpen(ctx context.Context, port int) (firewall.Result, error) {
	return f.result, f.err
}

func (f *fakeFirewall) Status(ctx context.Context) (firewall.Result, error) {
	return f.result, f.err
}

// fakeBackup implements backup.Service.
type fakeBackup struct {
	created   string
	createErr error
	verifyErr error
	entries   []backup.Entry
	listErr   error
}

func (f *fakeBackup) Create(ctx context.Context) (string, error) { return f.created, f.createErr }
func (f *fakeBackup) Verify(path string) error                   { return f.verifyErr }
func (f *fakeBackup) List() ([]backup.Entry, error)              { return f.entries, f.listErr }

// fakePrompter implements Prompter with a scripted answer.
type fakePrompter struct {
	answer string
	err    error
}

func (f *fakePrompter) ReadLine(prompt string) (string, error) { return f.answer, f.err }
func (f *fakePrompter) IsInteractive() bool                    { return true }

// testDeps builds a Deps with fakes and a buffer for output.
func testDeps(cfg config.Config) (*Deps, *bytes.Buffer) {
	var buf bytes.Buffer
	return &Deps{
		Cfg:      cfg,
		Sysd:     &fakeSysd{active: map[string]bool{}, enabled: map[string]bool{}},
		Firewall: &fakeFirewall{},
		Users:    &fakeUsers{},
		Host:     &fakeHost{},
		Backup:   &fakeBackup{},
		Printer:  ui.NewPrinter("text"),
		Prompter: &fakePrompter{answer: "y"},
		Output:   &buf,
		Probe:    func(port int) bool { return false },
	}, &buf
}
