// Package backup archives the xrdp configuration directory so a bad config
// push can be rolled back. Archives are tar streams compressed with lz4 and
// carry an xxhash64 manifest for integrity checks.
package backup

import (
	"archive/tar"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/pierrec/lz4/v4"
)

// ManifestExt is appended to the archive name for its checksum file.
const ManifestExt = ".xxh64"

// Options configures the archiver.
type Options struct {
	ConfigDir string // directory to archive, usually /etc/xrdp
	BackupDir string // where archives land, usually /var/backups/rdp-setup
}

// Entry describes one stored archive.
type Entry struct {
	Path      string    `json:"path"`
	Size      int64     `json:"size"`
	CreatedAt time.Time `json:"created_at"`
}

// Service creates and verifies config archives.
type Service interface {
	Create(ctx context.Context) (string, error)
	Verify(path string) error
	List() ([]Entry, error)
}

type svc struct {
	cfgDir string
	bakDir string
	now    func() time.Time
}

// New creates an archiver.
func New(opts Options) Service {
	return &svc{cfgDir: opts.ConfigDir, bakDir: opts.BackupDir, now: time.Now}
}

// Create archives the config directory. The archive and its manifest are
// written atomically enough for our purposes: manifest last, so a manifest
// always refers to a complete archive.
func (s *svc) Create(ctx context.Context) (string, error) {
	if _, err := os.Stat(s.cfgDir); err != nil {
		return "", fmt.Errorf("config dir: %w", err)
	}
	if err := os.MkdirAll(s.bakDir, 0o755); err != nil {
		return "", fmt.Errorf("create backup dir: %w", err)
	}

	name := fmt.Sprintf("xrdp-config-%s.tar.lz4", s.now().Format("20060102-150405"))
	path := filepath.Join(s.bakDir, name)

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return "", fmt.Errorf("create archive: %w", err)
	}

	digest := xxhash.New()
	lzw := lz4.NewWriter(io.MultiWriter(f, digest))
	tw := tar.NewWriter(lzw)

	err = s.addTree(ctx, tw)
	if cerr := tw.Close(); err == nil {
		err = cerr
	}
	if cerr := lzw.Close(); err == nil {
		err = cerr
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(path)
		return "", err
	}

	manifest := fmt.Sprintf("%016x  %s\n", digest.Sum64(), name)
	if err := os.WriteFile(path+ManifestExt, []byte(manifest), 0o644); err != nil {
		_ = os.Remove(path)
		return "", fmt.Errorf("write manifest: %w", err)
	}
	return path, nil
}

func (s *svc) addTree(ctx context.Context, tw *tar.Writer) error {
	return filepath.Walk(s.cfgDir, func(path string, fi os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		rel, err := filepath.Rel(s.cfgDir, path)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}

		hdr, err := tar.FileInfoHeader(fi, "")
		if err != nil {
			return err
		}
		hdr.Name = filepath.ToSlash(rel)
		if err := tw.WriteHeader(hdr); err != nil {
			return err
		}
		if !fi.Mode().IsRegular() {
			return nil
		}

		f, err := os.Open(path)
		if err != nil {
			return err
		}
		_, err = io.Copy(tw, f)
		if cerr := f.Close(); err == nil {
			err = cerr
		}
		return err
	})
}

// Verify recomputes the archive digest against its manifest and walks the
// tar stream end to end, so truncation and corruption are both caught.
func (s *svc) Verify(path string) error {
	want, err := readManifest(path + ManifestExt)
	if err != nil {
		return err
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open archive: %w", err)
	}
	defer func() { _ = f.Close() }()

	digest := xxhash.New()
	tee := io.TeeReader(f, digest)
	tr := tar.NewReader(lz4.NewReader(tee))
	for {
		_, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("archive corrupted: %w", err)
		}
		if _, err := io.Copy(io.Discard, tr); err != nil {
			return fmt.Errorf("archive corrupted: %w", err)
		}
	}
	// drain trailing bytes so the digest covers the whole file
	if _, err := io.Copy(io.Discard, tee); err != nil {
		return err
	}

	if got := digest.Sum64(); got != want {
		return fmt.Errorf("checksum mismatch: archive %016x, manifest %016x", got, want)
	}
	return nil
}

// List returns stored archives, newest first.
func (s *svc) List() ([]Entry, error) {
	entries, err := os.ReadDir(s.bakDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var out []Entry
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".tar.lz4") {
			continue
		}
		fi, err := e.Info()
		if err != nil {
			continue
		}
		out = append(out, Entry{
			Path:      filepath.Join(s.bakDir, e.Name()),
			Size:      fi.Size(),
			CreatedAt: fi.ModTime(),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func readManifest(path string) (uint64, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("read manifest: %w", err)
	}
	fields := strings.Fields(string(data))
	if len(fields) == 0 {
		return 0, fmt.Errorf("manifest %s is empty", path)
	}
	var sum uint64
	if _, err := fmt.Sscanf(fields[0], "%x", &sum); err != nil {
		return 0, fmt.Errorf("manifest %s malformed: %w", path, err)
	}
	return sum, nil
}
