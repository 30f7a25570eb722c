package main

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rdptools/rdp-setup-cli/internal/backup"
	"github.com/rdptools/rdp-setup-cli/internal/config"
	"github.com/rdptools/rdp-setup-cli/internal/exitcodes"
)

func TestHandleBackupCreate(t *testing.T) {
	resetFlags(t)
	flagOutput = "text"

	d, _ := testDeps(config.Defaults())
	d.Backup = &fakeBackup{created: "/var/backups/rdp-setup/xrdp-config-20260824-120000.tar.lz4"}

	if err := handleBackupCreate(context.Background(), d); err != nil {
		t.Fatalf("handleBackupCreate() error: %v", err)
	}
}

func TestHandleBackupCreate_Error(t *testing.T) {
	resetFlags(t)
	flagOutput = "text"

	d, _ := testDeps(config.Defaults())
	d.Backup = &fakeBackup{createErr: errors.New("config dir missing")}

	if err := handleBackupCreate(context.Background(), d); err == nil {
		t.Fatal("expected error")
	}
}

func TestHandleBackupVerify_FailureIsValidationError(t *testing.T) {
	resetFlags(t)
	flagOutput = "text"

	d, _ := testDeps(config.Defaults())
	d.Backup = &fakeBackup{verifyErr: errors.New("checksum mismatch")}

	err := handleBackupVerify(d, "/tmp/archive.tar.lz4")
	if err == nil {
		t.Fatal("expected error")
	}
	if code := exitcodes.CodeForError(err); code != exitcodes.ValidationError {
		t.Errorf("exit code = %d, want %d", code, exitcodes.ValidationError)
	}
}

func TestHandleBackupList(t *testing.T) {
	resetFlags(t)
	flagOutput = "text"

	d, buf := testDeps(config.Defaults())
	d.Backup = &fakeBackup{entries: []backup.Entry{
		{Path: "/var/backups/rdp-setup/a.tar.lz4", Size: 2048, CreatedAt: time.Now()},
	}}

	if err := handleBackupList(d); err != nil {
		t.Fatalf("handleBackupList() error: %v", err)
	}
	if !containsSubstr(buf.String(), "a.tar.lz4") {
		t.Errorf("listing missing archive path:\n%s", buf.String())
	}
}

func TestHandleBackupList_Empty(t *testing.T) {
	resetFlags(t)
	flagOutput = "text"

	d, _ := testDeps(config.Defaults())
	if err := handleBackupList(d); err != nil {
		t.Fatalf("empty list should not error: %v", err)
	}
}
