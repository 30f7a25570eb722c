// Package dashboard renders a live terminal view of the xrdp host:
// service state, listener ports, host resources and eligible users.
package dashboard

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/rdptools/rdp-setup-cli/internal/sysd"
	"github.com/rdptools/rdp-setup-cli/internal/sysinfo"
	"github.com/rdptools/rdp-setup-cli/internal/users"
)

// keyMap defines keyboard shortcuts
type keyMap struct {
	Quit    key.Binding
	Refresh key.Binding
	Help    key.Binding
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Quit, k.Refresh, k.Help}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{{k.Quit, k.Refresh, k.Help}}
}

func newKeyMap() keyMap {
	return keyMap{
		Quit:    key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
		Refresh: key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "refresh now")),
		Help:    key.NewBinding(key.WithKeys("h"), key.WithHelp("h", "toggle help")),
	}
}

func tickCmd(interval time.Duration) tea.Cmd {
	return tea.Tick(interval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Dashboard is the Bubble Tea model.
type Dashboard struct {
	opts     Options
	data     Data
	lastOK   time.Time
	err      error
	keys     keyMap
	help     help.Model
	spinner  spinner.Model
	registry *Registry
	width    int
	height   int
	showHelp bool
	loading  bool

	fetchCancel context.CancelFunc
	collector   *sysinfo.Collector
}

// New creates a Dashboard. A nil Fetch gets the default system fetcher.
func New(opts Options) *Dashboard {
	if opts.RefreshInterval <= 0 {
		opts.RefreshInterval = 2 * time.Second
	}

	collector := sysinfo.New()
	if opts.Fetch == nil {
		opts.Fetch = defaultFetcher(opts, collector)
	}

	registry := NewRegistry()
	registry.Register(newHeaderPanel())
	registry.Register(newServicesPanel(opts.NoEmoji))
	registry.Register(newResourcesPanel())
	registry.Register(newUsersPanel())

	s := spinner.New()
	s.Spinner = spinner.Dot

	return &Dashboard{
		opts:      opts,
		keys:      newKeyMap(),
		help:      help.New(),
		spinner:   s,
		registry:  registry,
		loading:   true,
		collector: collector,
	}
}

// defaultFetcher probes systemd, the local listeners and the passwd database.
func defaultFetcher(opts Options, collector *sysinfo.Collector) Fetcher {
	sd := sysd.New()
	us := users.New(users.Options{PasswdPath: opts.Config.PasswdPath})
	cfg := opts.Config

	return func(ctx context.Context) (Data, error) {
		d := Data{CLIVersion: opts.CLIVersion}
		d.Snapshot = collector.Collect(ctx, cfg.Port, cfg.SesmanPort)
		d.Services.ServerActive, _ = sd.IsActive(ctx, cfg.ServerUnit)
		d.Services.ServerEnabled, _ = sd.IsEnabled(ctx, cfg.ServerUnit)
		d.Services.SesmanActive, _ = sd.IsActive(ctx, cfg.SesmanUnit)
		d.Services.SesmanEnabled, _ = sd.IsEnabled(ctx, cfg.SesmanUnit)
		if accounts, err := us.Eligible(); err == nil {
			d.Users = accounts
		}
		d.LastUpdate = time.Now()
		return d, nil
	}
}

func (m *Dashboard) Init() tea.Cmd {
	m.spinner.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))
	return tea.Batch(
		m.spinner.Tick,
		m.fetchCmd(),
		tickCmd(m.opts.RefreshInterval),
	)
}

func (m *Dashboard) fetchCmd() tea.Cmd {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	fetch := m.opts.Fetch
	return tea.Batch(
		func() tea.Msg { return fetchStartedMsg{cancel: cancel} },
		func() tea.Msg {
			d, err := fetch(ctx)
			if err != nil {
				return dataErrMsg{err: err}
			}
			return dataMsg(d)
		},
	)
}

func (m *Dashboard) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			if m.fetchCancel != nil {
				m.fetchCancel()
			}
			m.collector.Stop()
			return m, tea.Quit
		case key.Matches(msg, m.keys.Refresh):
			return m, m.fetchCmd()
		case key.Matches(msg, m.keys.Help):
			m.showHelp = !m.showHelp
			return m, nil
		}
		return m, nil

	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		return m, nil

	case fetchStartedMsg:
		// assign cancel on the UI thread, cancelling any previous fetch
		if m.fetchCancel != nil {
			m.fetchCancel()
		}
		m.fetchCancel = msg.cancel
		return m, nil

	case tickMsg:
		// only tickMsg schedules the next tick; avoids double tickers
		cmds := []tea.Cmd{tickCmd(m.opts.RefreshInterval)}
		if m.fetchCancel == nil {
			cmds = append(cmds, m.fetchCmd())
		}
		return m, tea.Batch(cmds...)

	case dataMsg:
		m.data = Data(msg)
		m.lastOK = time.Now()
		m.err = nil
		m.loading = false
		m.fetchCancel = nil
		return m, tea.Batch(m.registry.UpdateAll(msg, m.data)...)

	case dataErrMsg:
		m.err = msg.err
		m.data.Err = msg.err
		m.loading = false
		m.fetchCancel = nil
		return m, tea.Batch(m.registry.UpdateAll(msg, m.data)...)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *Dashboard) View() string {
	if m.loading {
		return m.spinner.View() + " Collecting host state...\n"
	}

	width := m.width
	if width <= 0 {
		width = 80
	}

	header := m.registry.Get("header").View(width, 3)
	half := width / 2
	row := lipgloss.JoinHorizontal(lipgloss.Top,
		m.registry.Get("services").View(half, 8),
		m.registry.Get("resources").View(width-half, 8),
	)
	usersPanel := m.registry.Get("users").View(width, 8)

	body := lipgloss.JoinVertical(lipgloss.Left, header, row, usersPanel)
	if m.showHelp {
		return body + "\n" + m.help.FullHelpView(m.keys.FullHelp())
	}
	return body + "\n" + m.help.ShortHelpView(m.keys.ShortHelp())
}

// Run starts the interactive dashboard in the alternate screen.
func Run(opts Options) error {
	p := tea.NewProgram(New(opts), tea.WithAltScreen())
	_, err := p.Run()
	return err
}

// RenderStatic produces a one-shot, non-interactive render for pipes and CI.
func RenderStatic(ctx context.Context, opts Options) (string, error) {
	m := New(opts)
	defer m.collector.Stop()

	d, err := m.opts.Fetch(ctx)
	if err != nil {
		return "", err
	}
	m.data = d
	m.loading = false
	m.width = 80
	m.registry.UpdateAll(dataMsg(d), d)
	return m.View(), nil
}
