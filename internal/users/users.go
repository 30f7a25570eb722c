// Package users enumerates local accounts that can start an RDP session.
package users

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// MinLoginUID is the first UID handed out to human accounts on Debian.
const MinLoginUID = 1000

// deniedShells mark accounts that cannot log in interactively.
var deniedShells = map[string]bool{
	"/usr/sbin/nologin": true,
	"/bin/false":        true,
}

// Account is a single passwd entry.
type Account struct {
	Name  string `json:"name"`
	UID   int    `json:"uid"`
	GID   int    `json:"gid"`
	Home  string `json:"home"`
	Shell string `json:"shell"`
}

// StatFunc checks path existence; injectable for tests.
type StatFunc func(path string) (os.FileInfo, error)

// Options configures enumeration.
type Options struct {
	PasswdPath string
	MinUID     int      // 0 means MinLoginUID
	Stat       StatFunc // nil means os.Stat
}

// Service enumerates accounts.
type Service interface {
	All() ([]Account, error)
	Eligible() ([]Account, error)
}

type service struct {
	path   string
	minUID int
	stat   StatFunc
}

// New creates an account enumeration service.
func New(opts Options) Service {
	minUID := opts.MinUID
	if minUID == 0 {
		minUID = MinLoginUID
	}
	stat := opts.Stat
	if stat == nil {
		stat = os.Stat
	}
	return &service{path: opts.PasswdPath, minUID: minUID, stat: stat}
}

// All returns every well-formed passwd entry in file order.
func (s *service) All() ([]Account, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("open passwd database: %w", err)
	}
	defer func() { _ = f.Close() }()
	return Parse(f)
}

// Eligible returns accounts that can hold an RDP session: login-range UID,
// an interactive shell, and an existing home directory.
func (s *service) Eligible() ([]Account, error) {
	all, err := s.All()
	if err != nil {
		return nil, err
	}

	out := make([]Account, 0, len(all))
	for _, a := range all {
		if a.UID < s.minUID {
			continue
		}
		if deniedShells[a.Shell] {
			continue
		}
		if fi, err := s.stat(a.Home); err != nil || !fi.IsDir() {
			continue
		}
		out = append(out, a)
	}
	return out, nil
}

// Parse reads passwd-format records (name:passwd:uid:gid:gecos:home:shell).
// Records keep the order they appear in, the way the database itself lists
// them. Malformed lines are skipped; a single bad record should not hide
// the rest.
func Parse(r io.Reader) ([]Account, error) {
	var out []Account
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Split(line, ":")
		if len(fields) != 7 {
			continue
		}
		uid, err := strconv.Atoi(fields[2])
		if err != nil {
			continue
		}
		gid, err := strconv.Atoi(fields[3])
		if err != nil {
			continue
		}
		out = append(out, Account{
			Name:  fields[0],
			UID:   uid,
			GID:   gid,
			Home:  fields[5],
			Shell: fields[6],
		})
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read passwd database: %w", err)
	}
	return out, nil
}

// Names returns just the account names.
func Names(accounts []Account) []string {
	names := make([]string, len(accounts))
	for i, a := range accounts {
		names[i] = a.Name
	}
	return names
}
