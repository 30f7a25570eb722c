package update

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"
)

const (
	cacheFileName = ".update-check"
	cacheDuration = 10 * time.Minute
)

// CacheEntry stores the last update check result
type CacheEntry struct {
	CheckedAt       time.Time `json:"checked_at"`
	LatestVersion   string    `json:"latest_version"`
	UpdateAvailable bool      `json:"update_available"`
}

// GetCachePath returns the path to the cache file under stateDir.
func GetCachePath(stateDir string) string {
	return filepath.Join(stateDir, cacheFileName)
}

// LoadCache loads the cached update check result
func LoadCache(stateDir string) (*CacheEntry, error) {
	data, err := os.ReadFile(GetCachePath(stateDir))
	if err != nil {
		return nil, err
	}
	var entry CacheEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, err
	}
	return &entry, nil
}

// SaveCache saves the update check result
func SaveCache(stateDir string, entry *CacheEntry) error {
	data, err := json.MarshalIndent(entry, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(GetCachePath(stateDir), data, 0o644)
}

// IsCacheValid returns true if the cache is fresh (< 10m old)
func IsCacheValid(entry *CacheEntry) bool {
	return time.Since(entry.CheckedAt) < cacheDuration
}

// ForceCheck performs a fresh update check, ignoring the cache, and stores
// the result. Used by status and dashboard for immediate notification.
func ForceCheck(stateDir, currentVersion string) (*CheckResult, error) {
	updater, err := NewUpdater(currentVersion)
	if err != nil {
		return nil, err
	}
	result, err := updater.Check()
	if err != nil {
		return nil, err
	}
	_ = SaveCache(stateDir, &CacheEntry{
		CheckedAt:       time.Now(),
		LatestVersion:   result.LatestVersion,
		UpdateAvailable: result.UpdateAvailable,
	})
	return result, nil
}
