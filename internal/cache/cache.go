// Package cache implements the persistent content cache. One JSON file per
// key; the key is the SHA-256 of the exact URL string used for fetching. The
// cache is an optimization, never a source of truth: read failures surface as
// misses and write failures are swallowed.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
)

// Entry is the whole-file JSON payload stored per URL.
type Entry struct {
	URL           string    `json:"url"`
	CachedAt      time.Time `json:"cached_at"`
	HTML          string    `json:"html,omitempty"`
	ExtractedText string    `json:"extracted_text"`
	Method        string    `json:"method"`
	WordCount     int       `json:"word_count"`
}

// Cache is a directory of per-URL entry files.
type Cache struct {
	dir    string
	logger *zap.Logger
}

// New creates the cache directory if needed.
func New(dir string, logger *zap.Logger) (*Cache, error) {
	if dir == "" {
		return nil, fmt.Errorf("cache dir is required")
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create cache dir %s: %w", dir, err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Cache{dir: dir, logger: logger}, nil
}

// Key returns the hex SHA-256 digest of the URL string.
func Key(url string) string {
	sum := sha256.Sum256([]byte(url))
	return hex.EncodeToString(sum[:])
}

func (c *Cache) path(url string) string {
	return filepath.Join(c.dir, Key(url)+".json")
}

// Read returns the cached entry for the URL, or nil on miss or any failure.
func (c *Cache) Read(url string) *Entry {
	raw, err := os.ReadFile(c.path(url))
	if err != nil {
		return nil
	}
	var entry Entry
	if err := json.Unmarshal(raw, &entry); err != nil {
		c.logger.Debug("cache entry unreadable", zap.String("url", url), zap.Error(err))
		return nil
	}
	return &entry
}

// Write stores the entry under the URL's key. The URL and timestamp fields
// are stamped here. Failures are logged and swallowed; the replace is atomic
// (temp file + rename), so concurrent same-key writers end last-write-wins
// without corruption.
func (c *Cache) Write(url string, entry Entry) {
	entry.URL = url
	entry.CachedAt = time.Now().UTC()

	payload, err := json.Marshal(entry)
	if err != nil {
		c.logger.Debug("cache marshal failed", zap.String("url", url), zap.Error(err))
		return
	}

	target := c.path(url)
	tmp, err := os.CreateTemp(c.dir, Key(url)+".*.tmp")
	if err != nil {
		c.logger.Debug("cache temp file failed", zap.String("url", url), zap.Error(err))
		return
	}
	name := tmp.Name()
	if _, err := tmp.Write(payload); err != nil {
		_ = tmp.Close()
		_ = os.Remove(name)
		c.logger.Debug("cache write failed", zap.String("url", url), zap.Error(err))
		return
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(name)
		return
	}
	if err := os.Rename(name, target); err != nil {
		_ = os.Remove(name)
		c.logger.Debug("cache rename failed", zap.String("url", url), zap.Error(err))
	}
}
