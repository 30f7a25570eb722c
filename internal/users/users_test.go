package users

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const samplePasswd = `root:x:0:0:root:/root:/bin/bash
daemon:x:1:1:daemon:/usr/sbin:/usr/sbin/nologin
alice:x:1000:1000:Alice:/home/alice:/bin/bash
bob:x:1001:1001:Bob:/home/bob:/bin/bash
svc:x:1002:1002::/home/svc:/bin/false
nobody:x:65534:65534:nobody:/nonexistent:/usr/sbin/nologin
`

func writePasswd(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "passwd")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestParse(t *testing.T) {
	accounts, err := Parse(strings.NewReader(samplePasswd))
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if len(accounts) != 6 {
		t.Fatalf("Parse() returned %d accounts, want 6", len(accounts))
	}
	// file order, so root comes first
	if accounts[0].Name != "root" || accounts[0].UID != 0 {
		t.Fatalf("unexpected first account: %+v", accounts[0])
	}
	if accounts[2].Name != "alice" || accounts[2].UID != 1000 || accounts[2].Shell != "/bin/bash" {
		t.Fatalf("unexpected third account: %+v", accounts[2])
	}
}

func TestParseKeepsFileOrder(t *testing.T) {
	in := "zed:x:1003:1003::/home/zed:/bin/bash\n" +
		"alice:x:1000:1000::/home/alice:/bin/bash\n" +
		"mallory:x:1001:1001::/home/mallory:/bin/bash\n"
	accounts, err := Parse(strings.NewReader(in))
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	want := []string{"zed", "alice", "mallory"}
	got := Names(accounts)
	if len(got) != len(want) {
		t.Fatalf("Parse() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Parse() order = %v, want %v", got, want)
		}
	}
}

func TestEligibleKeepsFileOrder(t *testing.T) {
	path := writePasswd(t, "zed:x:1003:1003::/home/zed:/bin/bash\nalice:x:1000:1000::/home/alice:/bin/bash\n")
	stat := func(p string) (os.FileInfo, error) { return os.Stat(filepath.Dir(path)) }

	s := New(Options{PasswdPath: path, Stat: stat})
	got, err := s.Eligible()
	if err != nil {
		t.Fatalf("Eligible() error: %v", err)
	}
	if len(got) != 2 || got[0].Name != "zed" || got[1].Name != "alice" {
		t.Fatalf("Eligible() = %v, want [zed alice] in file order", Names(got))
	}
}

func TestParseSkipsMalformed(t *testing.T) {
	in := "broken line without colons\nshort:x:1000\nok:x:1000:1000::/home/ok:/bin/bash\nbaduid:x:abc:1:::/bin/bash\n"
	accounts, err := Parse(strings.NewReader(in))
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if len(accounts) != 1 || accounts[0].Name != "ok" {
		t.Fatalf("Parse() = %+v, want only the well-formed record", accounts)
	}
}

func TestEligible(t *testing.T) {
	path := writePasswd(t, samplePasswd)

	// alice has a home directory, bob does not
	homes := map[string]bool{"/home/alice": true}
	stat := func(p string) (os.FileInfo, error) {
		if homes[p] {
			return os.Stat(filepath.Dir(path)) // any real directory
		}
		return nil, os.ErrNotExist
	}

	s := New(Options{PasswdPath: path, Stat: stat})
	got, err := s.Eligible()
	if err != nil {
		t.Fatalf("Eligible() error: %v", err)
	}
	if len(got) != 1 || got[0].Name != "alice" {
		t.Fatalf("Eligible() = %v, want exactly [alice]", Names(got))
	}
}

func TestEligibleExcludesSystemShells(t *testing.T) {
	path := writePasswd(t, "svc:x:1500:1500::/home/svc:/bin/false\nops:x:1501:1501::/home/ops:/usr/sbin/nologin\n")
	stat := func(p string) (os.FileInfo, error) { return os.Stat(filepath.Dir(path)) }

	s := New(Options{PasswdPath: path, Stat: stat})
	got, err := s.Eligible()
	if err != nil {
		t.Fatalf("Eligible() error: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("Eligible() = %v, want none", Names(got))
	}
}

func TestAllMissingFile(t *testing.T) {
	s := New(Options{PasswdPath: filepath.Join(t.TempDir(), "absent")})
	if _, err := s.All(); err == nil {
		t.Fatal("expected error for missing passwd database")
	}
}
