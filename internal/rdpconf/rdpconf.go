// Package rdpconf renders and installs the xrdp configuration files:
// xrdp.ini, sesman.ini and the startwm.sh session script.
package rdpconf

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"text/template"
)

// Params holds the values substituted into the config templates.
type Params struct {
	Port          int    // RDP listen port
	LocalIP       string // address the Xorg backend binds to
	SesmanPort    int    // session manager listen port
	MaxSessions   int
	ServerLogPath string
	SesmanLogPath string
}

// File is one rendered config file ready to be installed.
type File struct {
	Name string // base name inside the config dir
	Data []byte
	Mode os.FileMode
}

// Options configures the installer.
type Options struct {
	ConfigDir   string // usually /etc/xrdp
	StartWMPath string // usually /etc/xrdp/startwm.sh
}

// Service renders and installs the xrdp configuration.
type Service interface {
	// Render produces all config files in memory. Nothing touches disk.
	Render(p Params) ([]File, error)
	// Backup copies xrdp.ini to xrdp.ini.bak. The first backup wins so
	// the distro original survives repeated runs. Only the primary config
	// is backed up; sesman.ini and startwm.sh are not.
	Backup() (bool, error)
	// Apply backs up, renders and installs all files. Render errors abort
	// before any file is written.
	Apply(p Params) error
}

type svc struct {
	dir     string
	startwm string
	tpls    *template.Template
}

// New creates a config installer.
func New(opts Options) (Service, error) {
	if opts.ConfigDir == "" {
		return nil, fmt.Errorf("ConfigDir required")
	}
	startwm := opts.StartWMPath
	if startwm == "" {
		startwm = filepath.Join(opts.ConfigDir, "startwm.sh")
	}

	tpls := template.New("rdpconf")
	for name, text := range map[string]string{
		"xrdp.ini":   xrdpINITemplate,
		"sesman.ini": sesmanINITemplate,
		"startwm.sh": startwmTemplate,
	} {
		if _, err := tpls.New(name).Parse(text); err != nil {
			return nil, fmt.Errorf("parse %s template: %w", name, err)
		}
	}
	return &svc{dir: opts.ConfigDir, startwm: startwm, tpls: tpls}, nil
}

func (s *svc) Render(p Params) ([]File, error) {
	if p.Port <= 0 || p.Port > 65535 {
		return nil, fmt.Errorf("invalid port %d", p.Port)
	}
	if p.LocalIP == "" {
		return nil, fmt.Errorf("LocalIP required")
	}

	files := []File{
		{Name: "xrdp.ini", Mode: 0o644},
		{Name: "sesman.ini", Mode: 0o644},
		{Name: "startwm.sh", Mode: 0o755},
	}
	for i := range files {
		var buf bytes.Buffer
		if err := s.tpls.ExecuteTemplate(&buf, files[i].Name, p); err != nil {
			return nil, fmt.Errorf("render %s: %w", files[i].Name, err)
		}
		files[i].Data = buf.Bytes()
	}
	return files, nil
}

func (s *svc) Backup() (bool, error) {
	src := filepath.Join(s.dir, "xrdp.ini")
	dst := src + ".bak"

	if _, err := os.Stat(dst); err == nil {
		return false, nil // keep the original backup
	}
	data, err := os.ReadFile(src)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil // fresh install, nothing to back up
		}
		return false, fmt.Errorf("read %s: %w", src, err)
	}
	if err := os.WriteFile(dst, data, 0o644); err != nil {
		return false, fmt.Errorf("write %s: %w", dst, err)
	}
	return true, nil
}

func (s *svc) Apply(p Params) error {
	files, err := s.Render(p)
	if err != nil {
		return err
	}
	if _, err := s.Backup(); err != nil {
		return err
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	for _, f := range files {
		path := filepath.Join(s.dir, f.Name)
		if f.Name == "startwm.sh" {
			path = s.startwm
		}
		if err := writeFileAtomic(path, f.Data, f.Mode); err != nil {
			return fmt.Errorf("install %s: %w", f.Name, err)
		}
	}
	return nil
}

// writeFileAtomic writes via a temp file and rename so a crash mid-write
// never leaves a truncated config for xrdp to choke on.
func writeFileAtomic(path string, data []byte, mode os.FileMode) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".tmp*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Chmod(mode); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
