package pkgmgr

import (
	"context"
	"errors"
	"strings"
	"testing"
)

type fakeRunner struct {
	calls  [][]string
	failOn string // substring of the joined command that should fail
}

func (f *fakeRunner) Run(ctx context.Context, name string, args ...string) error {
	call := append([]string{name}, args...)
	f.calls = append(f.calls, call)
	if f.failOn != "" && strings.Contains(strings.Join(call, " "), f.failOn) {
		return errors.New("exit status 100")
	}
	return nil
}

func TestSyncRunsFullSequence(t *testing.T) {
	fr := &fakeRunner{}
	s := NewWith(fr)

	if err := s.Sync(context.Background(), Options{}); err != nil {
		t.Fatalf("Sync() error: %v", err)
	}
	if len(fr.calls) != 3 {
		t.Fatalf("Sync() made %d calls, want 3: %v", len(fr.calls), fr.calls)
	}
	wantPrefixes := []string{
		"apt-get update -y",
		"apt-get upgrade -y",
		"apt-get install -y xrdp xorgxrdp xauth xorg dbus-x11",
	}
	for i, want := range wantPrefixes {
		got := strings.Join(fr.calls[i], " ")
		if got != want {
			t.Errorf("call %d = %q, want %q", i, got, want)
		}
	}
}

func TestSyncSkipUpgrade(t *testing.T) {
	fr := &fakeRunner{}
	s := NewWith(fr)

	if err := s.Sync(context.Background(), Options{SkipUpgrade: true}); err != nil {
		t.Fatalf("Sync() error: %v", err)
	}
	for _, call := range fr.calls {
		if call[1] == "upgrade" {
			t.Fatal("SkipUpgrade should suppress apt-get upgrade")
		}
	}
	if len(fr.calls) != 2 {
		t.Fatalf("Sync() made %d calls, want 2", len(fr.calls))
	}
}

func TestSyncStopsOnUpdateFailure(t *testing.T) {
	fr := &fakeRunner{failOn: "update"}
	s := NewWith(fr)

	err := s.Sync(context.Background(), Options{})
	if err == nil {
		t.Fatal("expected error when apt-get update fails")
	}
	if len(fr.calls) != 1 {
		t.Fatalf("Sync() should stop after failed update, made %d calls", len(fr.calls))
	}
}

func TestSyncStopsOnInstallFailure(t *testing.T) {
	fr := &fakeRunner{failOn: "install"}
	s := NewWith(fr)

	err := s.Sync(context.Background(), Options{SkipUpgrade: true})
	if err == nil {
		t.Fatal("expected error when apt-get install fails")
	}
	if !strings.Contains(err.Error(), "apt install") {
		t.Fatalf("error should identify the failing stage: %v", err)
	}
}

func TestInstallNoPackages(t *testing.T) {
	fr := &fakeRunner{}
	s := NewWith(fr)
	if err := s.Install(context.Background()); err != nil {
		t.Fatalf("Install() with no packages should be a no-op, got %v", err)
	}
	if len(fr.calls) != 0 {
		t.Fatal("Install() with no packages should not invoke apt")
	}
}
