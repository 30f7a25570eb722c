package main

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/spf13/cobra"

	ui "github.com/rdptools/rdp-setup-cli/internal/ui"
	"github.com/rdptools/rdp-setup-cli/internal/update"
)

// CLIUpdater abstracts update operations for testability.
type CLIUpdater interface {
	Download(asset *update.Asset, progress update.ProgressFunc) ([]byte, error)
	VerifyChecksum(data []byte, release *update.Release, assetName string) error
	ExtractBinary(archiveData []byte) ([]byte, error)
	Install(binaryData []byte) error
	Rollback() error
}

// releaseFetcher resolves a release; tag "" means latest.
type releaseFetcher func(tag string) (*update.Release, error)

type updateCoreOpts struct {
	checkOnly      bool
	force          bool
	version        string
	skipVerify     bool
	currentVersion string
	binaryPath     string
}

// runUpdateCore contains the core update logic, testable with a mocked
// CLIUpdater and fetcher.
func runUpdateCore(updater CLIUpdater, fetch releaseFetcher, opts updateCoreOpts, p ui.Printer, prompter Prompter, output io.Writer, verifyBinary func(string) (string, error)) error {
	var release *update.Release
	var err error
	if opts.version != "" {
		p.Info(fmt.Sprintf("Fetching release %s...", opts.version))
		release, err = fetch(opts.version)
	} else {
		p.Info("Checking for updates...")
		release, err = fetch("")
	}
	if err != nil {
		return fmt.Errorf("failed to fetch release: %w", err)
	}

	latestVersion := strings.TrimPrefix(release.TagName, "v")
	currentVersion := strings.TrimPrefix(opts.currentVersion, "v")

	updateAvailable := update.IsNewerVersion(opts.currentVersion, release.TagName)
	_ = update.SaveCache(stateDir(), &update.CacheEntry{
		CheckedAt:       time.Now(),
		LatestVersion:   latestVersion,
		UpdateAvailable: updateAvailable,
	})

	if !opts.force && !updateAvailable {
		p.Success(fmt.Sprintf("Already up to date (v%s)", currentVersion))
		return nil
	}

	fmt.Fprintln(output)
	p.Info(fmt.Sprintf("Update available: v%s → v%s", currentVersion, latestVersion))

	// Changelog, first 10 lines
	if release.Body != "" {
		fmt.Fprintln(output)
		fmt.Fprintln(output, "Changelog:")
		lines := strings.Split(release.Body, "\n")
		maxLines := 10
		if len(lines) < maxLines {
			maxLines = len(lines)
		}
		for _, line := range lines[:maxLines] {
			fmt.Fprintf(output, "  %s\n", line)
		}
		if len(lines) > 10 {
			fmt.Fprintf(output, "  ... (see %s for full changelog)\n", release.HTMLURL)
		}
	}
	fmt.Fprintln(output)

	if opts.checkOnly {
		p.Info("Run 'rdp-setup update' to install")
		return nil
	}

	if !opts.force && !flagYes {
		response, err := prompter.ReadLine("Update now? [Y/n]: ")
		if err != nil {
			p.Warn("Update cancelled")
			return nil
		}
		response = strings.ToLower(response)
		if response != "" && response != "y" && response != "yes" {
			p.Warn("Update cancelled")
			return nil
		}
	}

	asset, err := update.GetAssetForPlatform(release)
	if err != nil {
		return err
	}

	p.Info(fmt.Sprintf("Downloading %s...", asset.Name))
	bar := ui.NewProgressBar(output, asset.Size)
	archiveData, err := updater.Download(asset, func(downloaded, total int64) {
		bar.Update(downloaded)
	})
	bar.Finish()
	if err != nil {
		return fmt.Errorf("download failed: %w", err)
	}

	if !opts.skipVerify {
		p.Info("Verifying checksum...")
		if err := updater.VerifyChecksum(archiveData, release, asset.Name); err != nil {
			return fmt.Errorf("checksum verification failed: %w", err)
		}
		p.Success("Checksum verified")
	} else {
		p.Warn("Skipping checksum verification (not recommended)")
	}

	p.Info("Extracting binary...")
	binaryData, err := updater.ExtractBinary(archiveData)
	if err != nil {
		return fmt.Errorf("extraction failed: %w", err)
	}

	p.Info("Installing...")
	if err := updater.Install(binaryData); err != nil {
		return fmt.Errorf("installation failed: %w", err)
	}

	p.Info("Verifying installation...")
	if verifyBinary != nil {
		if _, verErr := verifyBinary(opts.binaryPath); verErr != nil {
			p.Warn("Verification failed, rolling back...")
			if rbErr := updater.Rollback(); rbErr != nil {
				return fmt.Errorf("rollback failed: %w (original error: %v)", rbErr, verErr)
			}
			return fmt.Errorf("new binary verification failed, rolled back: %w", verErr)
		}
	}

	fmt.Fprintln(output)
	p.Success(fmt.Sprintf("Updated to v%s", latestVersion))
	return nil
}

func init() {
	var (
		checkOnly  bool
		force      bool
		version    string
		skipVerify bool
	)

	updateCmd := &cobra.Command{
		Use:   "update",
		Short: "Update rdp-setup to the latest version",
		Long: `Check for and install the latest version of rdp-setup.

The update command downloads pre-built binaries from GitHub Releases,
verifies the checksum, and replaces the current binary.

Examples:
  rdp-setup update                   # Update to latest version
  rdp-setup update --check           # Check only, don't install
  rdp-setup update --force           # Skip confirmation
  rdp-setup update --version v1.2.0  # Install specific version`,
		RunE: func(cmd *cobra.Command, args []string) error {
			updater, err := update.NewUpdater(Version)
			if err != nil {
				return fmt.Errorf("failed to initialize updater: %w", err)
			}

			opts := updateCoreOpts{
				checkOnly:      checkOnly,
				force:          force,
				version:        version,
				skipVerify:     skipVerify,
				currentVersion: Version,
				binaryPath:     updater.BinaryPath,
			}

			fetch := func(tag string) (*update.Release, error) {
				if tag == "" {
					return update.FetchLatestRelease()
				}
				return update.FetchReleaseByTag(tag)
			}

			verifyBinary := func(path string) (string, error) {
				verifyCmd := exec.Command(path, "version")
				var stdout bytes.Buffer
				verifyCmd.Stdout = &stdout
				if err := verifyCmd.Run(); err != nil {
					return "", err
				}
				return strings.TrimSpace(stdout.String()), nil
			}

			return runUpdateCore(updater, fetch, opts, getPrinter(), &ttyPrompter{}, os.Stdout, verifyBinary)
		},
	}

	updateCmd.Flags().BoolVar(&checkOnly, "check", false, "Only check for updates, don't install")
	updateCmd.Flags().BoolVar(&force, "force", false, "Skip confirmation prompt")
	updateCmd.Flags().StringVar(&version, "version", "", "Install specific version (e.g., v1.2.0)")
	updateCmd.Flags().BoolVar(&skipVerify, "no-verify", false, "Skip checksum verification (not recommended)")

	rootCmd.AddCommand(updateCmd)
}
