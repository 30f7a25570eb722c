// Package hostinfo discovers the identity of the host an RDP client needs
// to reach: hostname, public IP and primary local IP.
package hostinfo

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"strings"
	"time"
)

// UnknownPublicIP is the placeholder used when the public address cannot
// be determined. It is written into the report verbatim.
const UnknownPublicIP = "Unable to determine"

// DefaultTimeout bounds the public IP lookup.
const DefaultTimeout = 10 * time.Second

// HTTPDoer is the subset of http.Client used for the public IP lookup.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Info is the discovered host identity.
type Info struct {
	Hostname string `json:"hostname"`
	PublicIP string `json:"public_ip"`
	LocalIP  string `json:"local_ip"`
}

// Degraded reports whether any field fell back to a placeholder.
func (i Info) Degraded() bool {
	return i.PublicIP == UnknownPublicIP || i.LocalIP == "" || i.Hostname == ""
}

// Options configures discovery.
type Options struct {
	IPEchoURL string   // endpoint returning the caller's public IP as text
	Client    HTTPDoer // nil means a default client with DefaultTimeout
}

// Service discovers host identity.
type Service interface {
	Collect(ctx context.Context) Info
	PublicIP(ctx context.Context) (string, error)
	LocalIP() (string, error)
}

type service struct {
	url    string
	client HTTPDoer
}

// New creates a discovery service.
func New(opts Options) Service {
	c := opts.Client
	if c == nil {
		c = &http.Client{Timeout: DefaultTimeout}
	}
	return &service{url: opts.IPEchoURL, client: c}
}

// Collect gathers all identity fields. Failures degrade individual fields
// rather than aborting: a host with no internet still gets a useful report.
func (s *service) Collect(ctx context.Context) Info {
	info := Info{PublicIP: UnknownPublicIP}

	if name, err := os.Hostname(); err == nil {
		info.Hostname = name
	}
	if ip, err := s.PublicIP(ctx); err == nil {
		info.PublicIP = ip
	}
	if ip, err := s.LocalIP(); err == nil {
		info.LocalIP = ip
	}
	return info
}

// PublicIP queries the IP echo endpoint. Returns UnknownPublicIP with a
// non-nil error on any failure (network, non-200, unparseable body).
func (s *service) PublicIP(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return UnknownPublicIP, err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return UnknownPublicIP, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return UnknownPublicIP, fmt.Errorf("ip echo returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 256))
	if err != nil {
		return UnknownPublicIP, err
	}
	ip := strings.TrimSpace(string(body))
	if net.ParseIP(ip) == nil {
		return UnknownPublicIP, fmt.Errorf("ip echo returned invalid address %q", ip)
	}
	return ip, nil
}

// LocalIP returns the first global unicast IPv4 address on an up,
// non-loopback interface. This is the address xrdp binds to.
func (s *service) LocalIP() (string, error) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return "", err
	}
	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}
		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}
		for _, addr := range addrs {
			ipnet, ok := addr.(*net.IPNet)
			if !ok {
				continue
			}
			ip := ipnet.IP.To4()
			if ip == nil || !ip.IsGlobalUnicast() {
				continue
			}
			return ip.String(), nil
		}
	}
	return "", fmt.Errorf("no usable IPv4 address found")
}
