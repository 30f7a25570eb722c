package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rdptools/rdp-setup-cli/internal/exitcodes"
	ui "github.com/rdptools/rdp-setup-cli/internal/ui"
)

// handleBackupCreate archives the xrdp config directory and prints the
// resulting path, or a JSON object when --output=json.
func handleBackupCreate(ctx context.Context, d *Deps) error {
	path, err := d.Backup.Create(ctx)
	if err != nil {
		if flagOutput == "json" {
			d.Printer.JSON(map[string]any{"ok": false, "error": err.Error()})
		} else {
			d.Printer.Error(fmt.Sprintf("backup error: %v", err))
		}
		return silentErr{err}
	}
	if flagOutput == "json" {
		d.Printer.JSON(map[string]any{"ok": true, "backup_path": path})
	} else {
		d.Printer.Success(fmt.Sprintf("backup created: %s", path))
	}
	return nil
}

// handleBackupVerify checks an archive against its checksum manifest.
func handleBackupVerify(d *Deps, path string) error {
	if err := d.Backup.Verify(path); err != nil {
		if flagOutput == "json" {
			d.Printer.JSON(map[string]any{"ok": false, "path": path, "error": err.Error()})
		} else {
			d.Printer.Error(fmt.Sprintf("verification failed: %v", err))
		}
		return silentErr{exitcodes.WrapError(exitcodes.ValidationError, "backup verification", err)}
	}
	if flagOutput == "json" {
		d.Printer.JSON(map[string]any{"ok": true, "path": path})
	} else {
		d.Printer.Success(fmt.Sprintf("archive verified: %s", path))
	}
	return nil
}

// handleBackupList prints stored archives, newest first.
func handleBackupList(d *Deps) error {
	entries, err := d.Backup.List()
	if err != nil {
		if flagOutput == "json" {
			d.Printer.JSON(map[string]any{"ok": false, "error": err.Error()})
		} else {
			d.Printer.Error(fmt.Sprintf("list error: %v", err))
		}
		return silentErr{err}
	}
	if flagOutput == "json" {
		d.Printer.JSON(map[string]any{"ok": true, "backups": entries})
		return nil
	}
	if len(entries) == 0 {
		d.Printer.Info("no backups found")
		return nil
	}
	for _, e := range entries {
		fmt.Fprintf(d.Output, "%s  %8s  %s\n",
			e.CreatedAt.Format("2006-01-02 15:04:05"), ui.FormatBytes(uint64(e.Size)), e.Path)
	}
	return nil
}

func init() {
	var (
		verifyPath string
		list       bool
	)

	backupCmd := &cobra.Command{
		Use:   "backup",
		Short: "Archive the xrdp config directory",
		Long: `Create a compressed archive of the xrdp configuration with a checksum
manifest, list stored archives, or verify one against its manifest.

Examples:
  rdp-setup backup                       # Create a new archive
  rdp-setup backup --list                # List stored archives
  rdp-setup backup --verify <archive>    # Verify an archive`,
		RunE: func(cmd *cobra.Command, args []string) error {
			d := newDeps()
			switch {
			case list:
				return handleBackupList(d)
			case verifyPath != "":
				return handleBackupVerify(d, verifyPath)
			default:
				return handleBackupCreate(cmd.Context(), d)
			}
		},
	}

	backupCmd.Flags().StringVar(&verifyPath, "verify", "", "Verify the given archive instead of creating one")
	backupCmd.Flags().BoolVar(&list, "list", false, "List stored archives")

	rootCmd.AddCommand(backupCmd)
}
