package dashboard

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/rdptools/rdp-setup-cli/internal/ui"
)

var (
	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1)

	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))
	okStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	badStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	dimStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
)

func renderPanel(title, content string, width int) string {
	inner := titleStyle.Render(title) + "\n" + content
	w := width - 4 // border and padding
	if w < 10 {
		w = 10
	}
	return panelStyle.Width(w).Render(inner)
}

func stateLabel(active bool, noEmoji bool) string {
	if active {
		if noEmoji {
			return okStyle.Render("active")
		}
		return okStyle.Render("● active")
	}
	if noEmoji {
		return badStyle.Render("inactive")
	}
	return badStyle.Render("○ inactive")
}

// ---- header ----

type headerPanel struct {
	BaseComponent
	data Data
}

func newHeaderPanel() *headerPanel {
	return &headerPanel{BaseComponent: BaseComponent{id: "header", title: "rdp-setup"}}
}

func (p *headerPanel) Update(msg tea.Msg, data Data) (Component, tea.Cmd) {
	p.data = data
	return p, nil
}

func (p *headerPanel) View(width, height int) string {
	line := fmt.Sprintf("Remote Desktop Host  v%s", p.data.CLIVersion)
	if p.data.UpdateInfo.Available {
		line += fmt.Sprintf("  (update %s available)", p.data.UpdateInfo.LatestVersion)
	}
	if !p.data.LastUpdate.IsZero() {
		line += dimStyle.Render(fmt.Sprintf("  refreshed %s", p.data.LastUpdate.Format("15:04:05")))
	}
	if p.data.Err != nil {
		line += "\n" + badStyle.Render("fetch error: "+p.data.Err.Error())
	}
	if p.CheckCache(line, width, height) {
		return p.GetCached()
	}
	out := renderPanel("rdp-setup dashboard", line, width)
	p.UpdateCache(out)
	return out
}

// ---- services ----

type servicesPanel struct {
	BaseComponent
	noEmoji bool
	data    Data
}

func newServicesPanel(noEmoji bool) *servicesPanel {
	return &servicesPanel{
		BaseComponent: BaseComponent{id: "services", title: "Services"},
		noEmoji:       noEmoji,
	}
}

func (p *servicesPanel) Update(msg tea.Msg, data Data) (Component, tea.Cmd) {
	p.data = data
	return p, nil
}

func (p *servicesPanel) View(width, height int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "xrdp         %s", stateLabel(p.data.Services.ServerActive, p.noEmoji))
	if p.data.Services.ServerEnabled {
		b.WriteString(dimStyle.Render("  enabled"))
	}
	b.WriteString("\n")
	fmt.Fprintf(&b, "xrdp-sesman  %s", stateLabel(p.data.Services.SesmanActive, p.noEmoji))
	if p.data.Services.SesmanEnabled {
		b.WriteString(dimStyle.Render("  enabled"))
	}
	b.WriteString("\n\n")

	port := func(open bool) string {
		if open {
			return okStyle.Render("listening")
		}
		return badStyle.Render("closed")
	}
	fmt.Fprintf(&b, "RDP port     %s\n", port(p.data.Snapshot.Listener.RDPPortOpen))
	fmt.Fprintf(&b, "sesman port  %s", port(p.data.Snapshot.Listener.SesmanPortOpen))

	content := b.String()
	if p.CheckCache(content, width, height) {
		return p.GetCached()
	}
	out := renderPanel("Services", content, width)
	p.UpdateCache(out)
	return out
}

// ---- resources ----

type resourcesPanel struct {
	BaseComponent
	data Data
}

func newResourcesPanel() *resourcesPanel {
	return &resourcesPanel{BaseComponent: BaseComponent{id: "resources", title: "Resources"}}
}

func (p *resourcesPanel) Update(msg tea.Msg, data Data) (Component, tea.Cmd) {
	p.data = data
	return p, nil
}

func (p *resourcesPanel) View(width, height int) string {
	sys := p.data.Snapshot.System
	host := p.data.Snapshot.Host

	var b strings.Builder
	fmt.Fprintf(&b, "CPU     %5.1f%%\n", sys.CPUPercent)
	fmt.Fprintf(&b, "Memory  %s / %s\n", ui.FormatBytes(sys.MemUsed), ui.FormatBytes(sys.MemTotal))
	fmt.Fprintf(&b, "Disk    %s / %s\n", ui.FormatBytes(sys.DiskUsed), ui.FormatBytes(sys.DiskTotal))
	fmt.Fprintf(&b, "Uptime  %s", ui.FormatUptime(host.UptimeSec))

	content := b.String()
	if p.CheckCache(content, width, height) {
		return p.GetCached()
	}
	out := renderPanel("Resources", content, width)
	p.UpdateCache(out)
	return out
}

// ---- users ----

type usersPanel struct {
	BaseComponent
	data Data
}

func newUsersPanel() *usersPanel {
	return &usersPanel{BaseComponent: BaseComponent{id: "users", title: "RDP Users"}}
}

func (p *usersPanel) Update(msg tea.Msg, data Data) (Component, tea.Cmd) {
	p.data = data
	return p, nil
}

func (p *usersPanel) View(width, height int) string {
	var b strings.Builder
	if len(p.data.Users) == 0 {
		b.WriteString(dimStyle.Render("no eligible accounts"))
	} else {
		shown := p.data.Users
		const maxRows = 5
		overflow := 0
		if len(shown) > maxRows {
			overflow = len(shown) - maxRows
			shown = shown[:maxRows]
		}
		for i, u := range shown {
			if i > 0 {
				b.WriteString("\n")
			}
			fmt.Fprintf(&b, "%-16s uid %-6d %s", u.Name, u.UID, dimStyle.Render(u.Home))
		}
		if overflow > 0 {
			fmt.Fprintf(&b, "\n%s", dimStyle.Render(fmt.Sprintf("… and %d more", overflow)))
		}
	}

	content := b.String()
	if p.CheckCache(content, width, height) {
		return p.GetCached()
	}
	out := renderPanel(fmt.Sprintf("RDP Users (%d)", len(p.data.Users)), content, width)
	p.UpdateCache(out)
	return out
}
