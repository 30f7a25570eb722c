package setup

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rdptools/rdp-setup-cli/internal/config"
	"github.com/rdptools/rdp-setup-cli/internal/exitcodes"
	"github.com/rdptools/rdp-setup-cli/internal/firewall"
	"github.com/rdptools/rdp-setup-cli/internal/hostinfo"
	"github.com/rdptools/rdp-setup-cli/internal/pkgmgr"
	"github.com/rdptools/rdp-setup-cli/internal/rdpconf"
	"github.com/rdptools/rdp-setup-cli/internal/users"
)

// ---- fakes ----

type fakePkg struct {
	synced  bool
	syncErr error
}

func (f *fakePkg) Sync(ctx context.Context, opts pkgmgr.Options) error {
	f.synced = true
	return f.syncErr
}
func (f *fakePkg) Update(ctx context.Context) error                  { return nil }
func (f *fakePkg) Upgrade(ctx context.Context) error                 { return nil }
func (f *fakePkg) Install(ctx context.Context, pkgs ...string) error { return nil }

type fakeConf struct {
	applied   bool
	appliedIP string
	applyErr  error
}

func (f *fakeConf) Render(p rdpconf.Params) ([]rdpconf.File, error) {
	if p.LocalIP == "" {
		return nil, errors.New("LocalIP required")
	}
	return []rdpconf.File{{Name: "xrdp.ini"}}, nil
}
func (f *fakeConf) Backup() (bool, error) { return false, nil }
func (f *fakeConf) Apply(p rdpconf.Params) error {
	f.applied = true
	f.appliedIP = p.LocalIP
	return f.applyErr
}

type fakeSysd struct {
	enabled    []string
	restarted  []string
	active     map[string]bool
	restartErr error
}

func (f *fakeSysd) Enable(ctx context.Context, unit string) error {
	f.enabled = append(f.enabled, unit)
	return nil
}
func (f *fakeSysd) Restart(ctx context.Context, unit string) error {
	if f.restartErr != nil {
		return f.restartErr
	}
	f.restarted = append(f.restarted, unit)
	return nil
}
func (f *fakeSysd) Stop(ctx context.Context, unit string) error { return nil }
func (f *fakeSysd) IsActive(ctx context.Context, unit string) (bool, error) {
	return f.active[unit], nil
}
func (f *fakeSysd) IsEnabled(ctx context.Context, unit string) (bool, error) { return true, nil }

type fakeFirewall struct {
	res firewall.Result
	err error
}

func (f *fakeFirewall) EnsureOpen(ctx context.Context, port int) (firewall.Result, error) {
	return f.res, f.err
}
func (f *fakeFirewall) Status(ctx context.Context) (firewall.Result, error) { return f.res, nil }

type fakeHost struct {
	info hostinfo.Info
}

func (f *fakeHost) Collect(ctx context.Context) hostinfo.Info { return f.info }
func (f *fakeHost) PublicIP(ctx context.Context) (string, error) {
	return f.info.PublicIP, nil
}
func (f *fakeHost) LocalIP() (string, error) { return f.info.LocalIP, nil }

type fakeUsers struct {
	accounts []users.Account
	err      error
}

func (f *fakeUsers) All() ([]users.Account, error)      { return f.accounts, f.err }
func (f *fakeUsers) Eligible() ([]users.Account, error) { return f.accounts, f.err }

// ---- helpers ----

func testDeps(t *testing.T) Deps {
	t.Helper()
	cfg := config.Defaults()
	cfg.ReportPath = filepath.Join(t.TempDir(), "report.txt")
	return Deps{
		Cfg:      cfg,
		Pkg:      &fakePkg{},
		Conf:     &fakeConf{},
		Sysd:     &fakeSysd{active: map[string]bool{"xrdp": true, "xrdp-sesman": true}},
		Firewall: &fakeFirewall{res: firewall.Result{Present: true, Active: true, Opened: true}},
		Host: &fakeHost{info: hostinfo.Info{
			Hostname: "testhost",
			PublicIP: "203.0.113.7",
			LocalIP:  "192.168.1.50",
		}},
		Users:   &fakeUsers{accounts: []users.Account{{Name: "alice", UID: 1000, Home: "/home/alice"}}},
		Geteuid: func() int { return 0 },
		Probe:   func(port int) bool { return true },
	}
}

// ---- tests ----

func TestRunHappyPath(t *testing.T) {
	d := testDeps(t)
	s := NewWith(d)

	var steps []string
	res, err := s.Run(context.Background(), Options{Progress: func(m string) { steps = append(steps, m) }})
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	if !d.Pkg.(*fakePkg).synced {
		t.Error("packages were not synced")
	}
	conf := d.Conf.(*fakeConf)
	if !conf.applied || conf.appliedIP != "192.168.1.50" {
		t.Errorf("config apply = %v ip %q", conf.applied, conf.appliedIP)
	}
	sd := d.Sysd.(*fakeSysd)
	if strings.Join(sd.enabled, ",") != "xrdp,xrdp-sesman" {
		t.Errorf("enabled units = %v", sd.enabled)
	}
	if strings.Join(sd.restarted, ",") != "xrdp,xrdp-sesman" {
		t.Errorf("restarted units = %v", sd.restarted)
	}
	if !res.Health.OK() || !res.Health.PortOpen {
		t.Errorf("health = %+v", res.Health)
	}
	if res.ReportPath == "" {
		t.Fatal("report was not written")
	}
	if _, err := os.Stat(res.ReportPath); err != nil {
		t.Fatalf("report file missing: %v", err)
	}
	if len(res.Users) != 1 || res.Users[0].Name != "alice" {
		t.Errorf("users = %v", res.Users)
	}
	if len(steps) == 0 {
		t.Error("progress callback never fired")
	}
}

func TestRunRefusesWithoutRoot(t *testing.T) {
	d := testDeps(t)
	d.Geteuid = func() int { return 1000 }
	s := NewWith(d)

	_, err := s.Run(context.Background(), Options{})
	if err == nil {
		t.Fatal("expected precondition error without root")
	}
	if got := exitcodes.CodeForError(err); got != exitcodes.PreconditionFailed {
		t.Fatalf("exit code = %d, want %d", got, exitcodes.PreconditionFailed)
	}
	// nothing may have been mutated
	if d.Pkg.(*fakePkg).synced {
		t.Error("package sync must not run without root")
	}
	if d.Conf.(*fakeConf).applied {
		t.Error("config must not be applied without root")
	}
}

func TestRunStopsAfterPackageFailure(t *testing.T) {
	d := testDeps(t)
	d.Pkg = &fakePkg{syncErr: errors.New("apt install: exit status 100")}
	s := NewWith(d)

	_, err := s.Run(context.Background(), Options{})
	if err == nil {
		t.Fatal("expected error when package sync fails")
	}
	if got := exitcodes.CodeForError(err); got != exitcodes.ProcessError {
		t.Fatalf("exit code = %d, want %d", got, exitcodes.ProcessError)
	}
	if d.Conf.(*fakeConf).applied {
		t.Error("config stage must not run after package failure")
	}
	if len(d.Sysd.(*fakeSysd).restarted) != 0 {
		t.Error("service stage must not run after package failure")
	}
}

func TestRunStopsAfterRestartFailure(t *testing.T) {
	d := testDeps(t)
	d.Sysd = &fakeSysd{restartErr: errors.New("exited 1"), active: map[string]bool{}}
	s := NewWith(d)

	_, err := s.Run(context.Background(), Options{})
	if err == nil {
		t.Fatal("expected error when restart fails")
	}
	if got := exitcodes.CodeForError(err); got != exitcodes.ProcessError {
		t.Fatalf("exit code = %d, want %d", got, exitcodes.ProcessError)
	}
}

func TestRunDegradedPublicIPContinues(t *testing.T) {
	d := testDeps(t)
	d.Host = &fakeHost{info: hostinfo.Info{
		Hostname: "testhost",
		PublicIP: hostinfo.UnknownPublicIP,
		LocalIP:  "192.168.1.50",
	}}
	s := NewWith(d)

	res, err := s.Run(context.Background(), Options{})
	if err != nil {
		t.Fatalf("Run() should continue with unknown public IP, got %v", err)
	}
	if res.ReportPath == "" {
		t.Fatal("report should still be written")
	}
	data, _ := os.ReadFile(res.ReportPath)
	if !strings.Contains(string(data), hostinfo.UnknownPublicIP) {
		t.Error("report should carry the placeholder")
	}
	if len(res.Warnings) == 0 {
		t.Error("a warning should record the degraded lookup")
	}
}

func TestRunFirewallFailureIsWarning(t *testing.T) {
	d := testDeps(t)
	d.Firewall = &fakeFirewall{
		res: firewall.Result{Present: true},
		err: errors.New("ufw allow failed"),
	}
	s := NewWith(d)

	res, err := s.Run(context.Background(), Options{})
	if err != nil {
		t.Fatalf("firewall failure must not abort setup, got %v", err)
	}
	found := false
	for _, w := range res.Warnings {
		if strings.Contains(w, "firewall") {
			found = true
		}
	}
	if !found {
		t.Errorf("warnings = %v, want a firewall entry", res.Warnings)
	}
}

func TestRunDryRunMutatesNothing(t *testing.T) {
	d := testDeps(t)
	d.Geteuid = func() int { return 1000 } // dry run works without root
	s := NewWith(d)

	res, err := s.Run(context.Background(), Options{DryRun: true})
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if !res.DryRun {
		t.Error("result should be marked dry run")
	}
	if d.Pkg.(*fakePkg).synced {
		t.Error("dry run must not sync packages")
	}
	if d.Conf.(*fakeConf).applied {
		t.Error("dry run must not write config")
	}
	if len(d.Sysd.(*fakeSysd).restarted) != 0 {
		t.Error("dry run must not restart services")
	}
	if res.ReportPath != "" {
		t.Error("dry run must not write the report")
	}
}

func TestRunNoLocalIP(t *testing.T) {
	d := testDeps(t)
	d.Host = &fakeHost{info: hostinfo.Info{Hostname: "h", PublicIP: hostinfo.UnknownPublicIP}}
	s := NewWith(d)

	_, err := s.Run(context.Background(), Options{})
	if err == nil {
		t.Fatal("expected error without a local IP")
	}
	if got := exitcodes.CodeForError(err); got != exitcodes.PreconditionFailed {
		t.Fatalf("exit code = %d, want %d", got, exitcodes.PreconditionFailed)
	}
}
