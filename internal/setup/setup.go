// Package setup orchestrates the full xrdp installation pipeline: privilege
// check, package sync, host discovery, config install, service activation,
// firewall rule, user enumeration, report and a final health check.
package setup

import (
	"context"
	"fmt"
	"net"
	"os"
	"time"

	"github.com/rdptools/rdp-setup-cli/internal/config"
	"github.com/rdptools/rdp-setup-cli/internal/exitcodes"
	"github.com/rdptools/rdp-setup-cli/internal/firewall"
	"github.com/rdptools/rdp-setup-cli/internal/hostinfo"
	"github.com/rdptools/rdp-setup-cli/internal/pkgmgr"
	"github.com/rdptools/rdp-setup-cli/internal/rdpconf"
	"github.com/rdptools/rdp-setup-cli/internal/report"
	"github.com/rdptools/rdp-setup-cli/internal/sysd"
	"github.com/rdptools/rdp-setup-cli/internal/users"
)

// Options configures one setup run.
type Options struct {
	SkipUpgrade bool         // skip apt-get upgrade
	DryRun      bool         // discover and render, mutate nothing
	Progress    func(string) // progress message callback
}

// Health is the advisory post-setup check. Failures here do not fail the
// run; services can take a moment to settle.
type Health struct {
	ServerActive bool `json:"server_active"`
	SesmanActive bool `json:"sesman_active"`
	PortOpen     bool `json:"port_open"`
}

func (h Health) OK() bool { return h.ServerActive && h.SesmanActive }

// Result is what a setup run produced.
type Result struct {
	Host       hostinfo.Info   `json:"host"`
	Users      []users.Account `json:"users"`
	Firewall   firewall.Result `json:"firewall"`
	Health     Health          `json:"health"`
	ReportPath string          `json:"report_path,omitempty"`
	ReportText string          `json:"-"`
	Warnings   []string        `json:"warnings,omitempty"`
	DryRun     bool            `json:"dry_run,omitempty"`
}

// Service runs the pipeline.
type Service interface {
	Run(ctx context.Context, opts Options) (Result, error)
}

// PortProbe checks for a local TCP listener; injectable for tests.
type PortProbe func(port int) bool

// Deps are the pipeline's collaborators. Zero fields get real defaults.
type Deps struct {
	Cfg      config.Config
	Pkg      pkgmgr.Service
	Conf     rdpconf.Service
	Sysd     sysd.Service
	Firewall firewall.Service
	Host     hostinfo.Service
	Users    users.Service
	Geteuid  func() int
	Probe    PortProbe
}

type svc struct {
	d Deps
}

// New builds a service with real dependencies for the given config.
func New(cfg config.Config) (Service, error) {
	conf, err := rdpconf.New(rdpconf.Options{
		ConfigDir:   cfg.ConfigDir,
		StartWMPath: cfg.StartWMPath,
	})
	if err != nil {
		return nil, err
	}
	return NewWith(Deps{
		Cfg:      cfg,
		Pkg:      pkgmgr.New(),
		Conf:     conf,
		Sysd:     sysd.New(),
		Firewall: firewall.New(),
		Host:     hostinfo.New(hostinfo.Options{IPEchoURL: cfg.IPEchoURL}),
		Users:    users.New(users.Options{PasswdPath: cfg.PasswdPath}),
	}), nil
}

// NewWith allows injecting dependencies for testing.
func NewWith(d Deps) Service {
	if d.Geteuid == nil {
		d.Geteuid = os.Geteuid
	}
	if d.Probe == nil {
		d.Probe = defaultProbe
	}
	return &svc{d: d}
}

// Run executes the pipeline. Package, config and service failures abort;
// discovery, firewall and user enumeration degrade with warnings.
func (s *svc) Run(ctx context.Context, opts Options) (Result, error) {
	progress := opts.Progress
	if progress == nil {
		progress = func(string) {}
	}
	res := Result{DryRun: opts.DryRun}

	// The pipeline mutates the system; refuse to start without root.
	if s.d.Geteuid() != 0 && !opts.DryRun {
		return res, exitcodes.PreconditionError("this command must run as root (try sudo)")
	}

	if opts.DryRun {
		progress("Dry run: discovering host identity...")
		res.Host = s.d.Host.Collect(ctx)
		if res.Host.LocalIP == "" {
			return res, exitcodes.PreconditionError("no usable local IPv4 address found")
		}
		progress("Dry run: validating config templates...")
		if _, err := s.d.Conf.Render(s.params(res.Host.LocalIP)); err != nil {
			return res, err
		}
		res.Users = s.enumerateUsers(&res)
		return res, nil
	}

	progress("Synchronizing packages...")
	if err := s.d.Pkg.Sync(ctx, pkgmgr.Options{SkipUpgrade: opts.SkipUpgrade, Progress: progress}); err != nil {
		return res, exitcodes.WrapError(exitcodes.ProcessError, "package sync failed", err)
	}

	progress("Discovering host identity...")
	res.Host = s.d.Host.Collect(ctx)
	if res.Host.PublicIP == hostinfo.UnknownPublicIP {
		res.Warnings = append(res.Warnings, "public IP could not be determined; report will show a placeholder")
	}
	if res.Host.LocalIP == "" {
		return res, exitcodes.PreconditionError("no usable local IPv4 address found")
	}

	progress("Installing xrdp configuration...")
	if err := s.d.Conf.Apply(s.params(res.Host.LocalIP)); err != nil {
		return res, exitcodes.WrapError(exitcodes.GeneralError, "config install failed", err)
	}

	progress("Enabling and restarting services...")
	for _, unit := range []string{s.d.Cfg.ServerUnit, s.d.Cfg.SesmanUnit} {
		if err := s.d.Sysd.Enable(ctx, unit); err != nil {
			return res, exitcodes.WrapError(exitcodes.ProcessError, "enable "+unit, err)
		}
		if err := s.d.Sysd.Restart(ctx, unit); err != nil {
			return res, exitcodes.WrapError(exitcodes.ProcessError, "restart "+unit, err)
		}
	}

	progress("Configuring firewall...")
	fw, err := s.d.Firewall.EnsureOpen(ctx, s.d.Cfg.Port)
	res.Firewall = fw
	if err != nil {
		res.Warnings = append(res.Warnings, fmt.Sprintf("firewall rule failed: %v", err))
	}

	progress("Enumerating eligible users...")
	res.Users = s.enumerateUsers(&res)

	progress("Writing setup report...")
	text, err := report.Write(s.d.Cfg.ReportPath, report.Data{
		Host:          res.Host,
		Port:          s.d.Cfg.Port,
		Users:         res.Users,
		FirewallNote:  firewallNote(fw),
		ServicesState: fmt.Sprintf("%s and %s restarted", s.d.Cfg.ServerUnit, s.d.Cfg.SesmanUnit),
		GeneratedAt:   time.Now(),
	})
	if err != nil {
		res.Warnings = append(res.Warnings, fmt.Sprintf("report not written: %v", err))
	} else {
		res.ReportPath = s.d.Cfg.ReportPath
		res.ReportText = text
	}

	progress("Running health check...")
	res.Health = s.healthCheck(ctx)
	if !res.Health.OK() {
		res.Warnings = append(res.Warnings, "services are not active yet; check logs with 'rdp-setup logs'")
	}
	return res, nil
}

func (s *svc) params(localIP string) rdpconf.Params {
	return rdpconf.Params{
		Port:          s.d.Cfg.Port,
		LocalIP:       localIP,
		SesmanPort:    s.d.Cfg.SesmanPort,
		MaxSessions:   s.d.Cfg.MaxSessions,
		ServerLogPath: s.d.Cfg.ServerLogPath,
		SesmanLogPath: s.d.Cfg.SesmanLogPath,
	}
}

func (s *svc) enumerateUsers(res *Result) []users.Account {
	accounts, err := s.d.Users.Eligible()
	if err != nil {
		res.Warnings = append(res.Warnings, fmt.Sprintf("user enumeration failed: %v", err))
		return nil
	}
	return accounts
}

func (s *svc) healthCheck(ctx context.Context) Health {
	h := Health{}
	h.ServerActive, _ = s.d.Sysd.IsActive(ctx, s.d.Cfg.ServerUnit)
	h.SesmanActive, _ = s.d.Sysd.IsActive(ctx, s.d.Cfg.SesmanUnit)
	h.PortOpen = s.d.Probe(s.d.Cfg.Port)
	return h
}

func defaultProbe(port int) bool {
	conn, err := net.DialTimeout("tcp", fmt.Sprintf("127.0.0.1:%d", port), 2*time.Second)
	if err != nil {
		return false
	}
	_ = conn.Close()
	return true
}

func firewallNote(fw firewall.Result) string {
	switch {
	case !fw.Present:
		return "ufw not installed; no firewall rule added"
	case fw.Opened && fw.Active:
		return "ufw rule added and reloaded"
	case fw.Opened:
		return "ufw rule added (firewall currently inactive)"
	default:
		return "ufw present but rule not applied"
	}
}
