// Package report renders the post-setup summary written to disk and echoed
// to the operator.
package report

import (
	"bytes"
	"fmt"
	"os"
	"text/template"
	"time"

	"github.com/rdptools/rdp-setup-cli/internal/hostinfo"
	"github.com/rdptools/rdp-setup-cli/internal/users"
)

// Data is everything the report needs.
type Data struct {
	Host          hostinfo.Info
	Port          int
	Users         []users.Account
	FirewallNote  string
	GeneratedAt   time.Time
	ServicesState string // e.g. "xrdp active, xrdp-sesman active"
}

const reportTemplate = `==========================================================
 Remote Desktop (xrdp) Setup Report
==========================================================
Generated: {{.GeneratedAt.Format "Mon, 02 Jan 2006 15:04:05 MST"}}

Host
  Hostname : {{.Host.Hostname}}
  Public IP: {{.Host.PublicIP}}
  Local IP : {{.Host.LocalIP}}
  RDP Port : {{.Port}}
  Services : {{.ServicesState}}
{{- if .FirewallNote}}
  Firewall : {{.FirewallNote}}
{{- end}}

Connect from Windows
  mstsc /v:{{if ne .Host.PublicIP "Unable to determine"}}{{.Host.PublicIP}}{{else}}{{.Host.LocalIP}}{{end}}:{{.Port}}

Connect from macOS / Linux
  Use a Remote Desktop client with host {{if ne .Host.PublicIP "Unable to determine"}}{{.Host.PublicIP}}{{else}}{{.Host.LocalIP}}{{end}} and port {{.Port}}.

Accounts that can log in
{{- if .Users}}
{{- range .Users}}
  - {{.Name}} (uid {{.UID}}, home {{.Home}})
{{- end}}
{{- else}}
  (none found; create a user with a home directory and interactive shell)
{{- end}}

Security reminders
  - RDP credentials are the system login credentials. Use strong passwords.
  - Consider restricting port {{.Port}} to trusted networks or a VPN.
  - Root login over RDP is disabled in sesman.ini; keep it that way.
==========================================================
`

var tpl = template.Must(template.New("report").Parse(reportTemplate))

// Build renders the report text.
func Build(d Data) (string, error) {
	if d.GeneratedAt.IsZero() {
		d.GeneratedAt = time.Now()
	}
	var buf bytes.Buffer
	if err := tpl.Execute(&buf, d); err != nil {
		return "", fmt.Errorf("render report: %w", err)
	}
	return buf.String(), nil
}

// Write renders the report and stores it at path, world readable so any
// local user can find the connection details.
func Write(path string, d Data) (string, error) {
	text, err := Build(d)
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
		return "", fmt.Errorf("write report: %w", err)
	}
	return text, nil
}
