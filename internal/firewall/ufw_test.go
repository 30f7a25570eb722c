package firewall

import (
	"context"
	"errors"
	"strings"
	"testing"
)

type fakeRunner struct {
	calls  [][]string
	status string
	failOn string
}

func (f *fakeRunner) Run(ctx context.Context, name string, args ...string) (string, error) {
	call := append([]string{name}, args...)
	f.calls = append(f.calls, call)
	joined := strings.Join(call, " ")
	if f.failOn != "" && strings.Contains(joined, f.failOn) {
		return "", errors.New("command failed")
	}
	if strings.Contains(joined, "status") {
		return f.status, nil
	}
	return "", nil
}

func found(string) (string, error)    { return "/usr/sbin/ufw", nil }
func notFound(string) (string, error) { return "", errors.New("not found") }

func TestEnsureOpenSkipsWithoutUfw(t *testing.T) {
	fr := &fakeRunner{}
	s := NewWith(fr, notFound)

	res, err := s.EnsureOpen(context.Background(), 3389)
	if err != nil {
		t.Fatalf("EnsureOpen() error: %v", err)
	}
	if res.Present || res.Opened {
		t.Fatalf("missing ufw should skip silently, got %+v", res)
	}
	if len(fr.calls) != 0 {
		t.Fatal("no ufw commands should run when the binary is absent")
	}
}

func TestEnsureOpenActiveFirewall(t *testing.T) {
	fr := &fakeRunner{status: "Status: active"}
	s := NewWith(fr, found)

	res, err := s.EnsureOpen(context.Background(), 3389)
	if err != nil {
		t.Fatalf("EnsureOpen() error: %v", err)
	}
	if !res.Present || !res.Active || !res.Opened {
		t.Fatalf("unexpected result: %+v", res)
	}

	var got []string
	for _, c := range fr.calls {
		got = append(got, strings.Join(c, " "))
	}
	want := []string{"ufw status", "ufw allow 3389/tcp", "ufw reload"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Fatalf("calls = %v, want %v", got, want)
	}
}

func TestEnsureOpenInactiveSkipsReload(t *testing.T) {
	fr := &fakeRunner{status: "Status: inactive"}
	s := NewWith(fr, found)

	res, err := s.EnsureOpen(context.Background(), 3389)
	if err != nil {
		t.Fatalf("EnsureOpen() error: %v", err)
	}
	if !res.Opened {
		t.Fatal("rule should still be added while ufw is inactive")
	}
	for _, c := range fr.calls {
		if c[1] == "reload" {
			t.Fatal("reload should be skipped for an inactive firewall")
		}
	}
}

func TestEnsureOpenAllowFailure(t *testing.T) {
	fr := &fakeRunner{status: "Status: active", failOn: "allow"}
	s := NewWith(fr, found)

	if _, err := s.EnsureOpen(context.Background(), 3389); err == nil {
		t.Fatal("expected error when ufw allow fails")
	}
}
