package rdpconf

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func testParams() Params {
	return Params{
		Port:          3389,
		LocalIP:       "192.168.1.50",
		SesmanPort:    3350,
		MaxSessions:   10,
		ServerLogPath: "/var/log/xrdp.log",
		SesmanLogPath: "/var/log/xrdp-sesman.log",
	}
}

func newSvc(t *testing.T, dir string) Service {
	t.Helper()
	s, err := New(Options{ConfigDir: dir})
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func TestRenderSubstitutions(t *testing.T) {
	s := newSvc(t, t.TempDir())
	files, err := s.Render(testParams())
	if err != nil {
		t.Fatalf("Render() error: %v", err)
	}
	if len(files) != 3 {
		t.Fatalf("Render() produced %d files, want 3", len(files))
	}

	byName := map[string]File{}
	for _, f := range files {
		byName[f.Name] = f
	}

	xrdp := string(byName["xrdp.ini"].Data)
	if !strings.Contains(xrdp, "port=3389") {
		t.Error("xrdp.ini missing port=3389")
	}
	if !strings.Contains(xrdp, "ip=192.168.1.50") {
		t.Error("xrdp.ini missing Xorg backend ip")
	}
	if !strings.Contains(xrdp, "security_layer=negotiate") || !strings.Contains(xrdp, "crypt_level=high") {
		t.Error("xrdp.ini missing security settings")
	}

	sesman := string(byName["sesman.ini"].Data)
	if !strings.Contains(sesman, "ListenPort=3350") {
		t.Error("sesman.ini missing ListenPort")
	}
	if !strings.Contains(sesman, "AllowRootLogin=false") {
		t.Error("sesman.ini missing AllowRootLogin=false")
	}
	if !strings.Contains(sesman, "MaxSessions=10") {
		t.Error("sesman.ini missing MaxSessions")
	}

	startwm := byName["startwm.sh"]
	if !strings.HasPrefix(string(startwm.Data), "#!/bin/sh") {
		t.Error("startwm.sh missing shebang")
	}
	if !strings.Contains(string(startwm.Data), "exec /etc/X11/Xsession") {
		t.Error("startwm.sh missing Xsession exec")
	}
	if startwm.Mode != 0o755 {
		t.Errorf("startwm.sh mode = %o, want 0755", startwm.Mode)
	}
}

func TestRenderIdempotent(t *testing.T) {
	s := newSvc(t, t.TempDir())
	p := testParams()
	a, err := s.Render(p)
	if err != nil {
		t.Fatal(err)
	}
	b, err := s.Render(p)
	if err != nil {
		t.Fatal(err)
	}
	for i := range a {
		if !bytes.Equal(a[i].Data, b[i].Data) {
			t.Fatalf("%s differs between identical renders", a[i].Name)
		}
	}
}

func TestRenderValidation(t *testing.T) {
	s := newSvc(t, t.TempDir())

	p := testParams()
	p.Port = 0
	if _, err := s.Render(p); err == nil {
		t.Error("expected error for port 0")
	}

	p = testParams()
	p.LocalIP = ""
	if _, err := s.Render(p); err == nil {
		t.Error("expected error for empty LocalIP")
	}
}

func TestBackupPreservesOriginal(t *testing.T) {
	dir := t.TempDir()
	orig := []byte("[Globals]\nport=3389\n; distro original\n")
	if err := os.WriteFile(filepath.Join(dir, "xrdp.ini"), orig, 0o644); err != nil {
		t.Fatal(err)
	}

	s := newSvc(t, dir)
	made, err := s.Backup()
	if err != nil {
		t.Fatalf("Backup() error: %v", err)
	}
	if !made {
		t.Fatal("first Backup() should create the .bak file")
	}

	bak, err := os.ReadFile(filepath.Join(dir, "xrdp.ini.bak"))
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(bak, orig) {
		t.Fatal("backup must be byte-identical to the original")
	}

	// a second run must not clobber the original backup
	if err := s.Apply(testParams()); err != nil {
		t.Fatalf("Apply() error: %v", err)
	}
	made, err = s.Backup()
	if err != nil {
		t.Fatal(err)
	}
	if made {
		t.Fatal("second Backup() should keep the existing .bak")
	}
	bak2, _ := os.ReadFile(filepath.Join(dir, "xrdp.ini.bak"))
	if !bytes.Equal(bak2, orig) {
		t.Fatal("re-running setup must not overwrite the original backup")
	}
}

func TestBackupFreshInstall(t *testing.T) {
	s := newSvc(t, t.TempDir())
	made, err := s.Backup()
	if err != nil {
		t.Fatalf("Backup() error: %v", err)
	}
	if made {
		t.Fatal("Backup() without an existing xrdp.ini should be a no-op")
	}
}

func TestApplyInstallsAll(t *testing.T) {
	dir := t.TempDir()
	s := newSvc(t, dir)

	if err := s.Apply(testParams()); err != nil {
		t.Fatalf("Apply() error: %v", err)
	}

	for _, name := range []string{"xrdp.ini", "sesman.ini", "startwm.sh"} {
		fi, err := os.Stat(filepath.Join(dir, name))
		if err != nil {
			t.Fatalf("%s not installed: %v", name, err)
		}
		if name == "startwm.sh" && fi.Mode().Perm() != 0o755 {
			t.Errorf("startwm.sh perm = %o, want 0755", fi.Mode().Perm())
		}
	}

	// only the primary config gets a backup
	if _, err := os.Stat(filepath.Join(dir, "sesman.ini.bak")); !os.IsNotExist(err) {
		t.Error("sesman.ini must not be backed up")
	}
}

func TestApplyRenderFailureTouchesNothing(t *testing.T) {
	dir := t.TempDir()
	s := newSvc(t, dir)

	p := testParams()
	p.Port = -1
	if err := s.Apply(p); err == nil {
		t.Fatal("expected render failure")
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Fatalf("failed Apply() must not write files, found %d entries", len(entries))
	}
}
