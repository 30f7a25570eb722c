package dashboard

import (
	"context"
	"time"

	"github.com/rdptools/rdp-setup-cli/internal/config"
	"github.com/rdptools/rdp-setup-cli/internal/sysinfo"
	"github.com/rdptools/rdp-setup-cli/internal/users"
)

// Message types for the Bubble Tea event loop.

// tickMsg triggers a periodic data refresh
type tickMsg time.Time

// dataMsg carries a successful fetch
type dataMsg Data

// dataErrMsg carries a failed fetch
type dataErrMsg struct {
	err error
}

// fetchStartedMsg carries the cancel func for an in-flight fetch so it is
// assigned on the UI thread, not in the Cmd goroutine
type fetchStartedMsg struct {
	cancel context.CancelFunc
}

// Services is the systemd view of the xrdp stack.
type Services struct {
	ServerActive  bool
	ServerEnabled bool
	SesmanActive  bool
	SesmanEnabled bool
}

// Data aggregates everything the dashboard shows.
type Data struct {
	Snapshot sysinfo.Snapshot
	Services Services
	Users    []users.Account

	UpdateInfo struct {
		Available     bool
		LatestVersion string
	}

	CLIVersion string
	LastUpdate time.Time
	Err        error
}

// Fetcher collects a fresh Data; injectable for tests.
type Fetcher func(ctx context.Context) (Data, error)

// Options configures dashboard behavior.
type Options struct {
	Config          config.Config
	RefreshInterval time.Duration
	NoColor         bool
	NoEmoji         bool
	CLIVersion      string
	Fetch           Fetcher
}
