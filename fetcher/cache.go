package fetcher

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/shiro46mt/jp-medicine-master/catalog"
	"github.com/shiro46mt/jp-medicine-master/logging"
)

// Cache keeps decoded raw files on disk. Published files never change once they are in the
// catalog, so entries never expire. A nil *Cache disables caching.
type Cache struct {
	dir string
}

// NewCache returns a cache rooted at dir, or nil when dir is empty.
func NewCache(dir string) *Cache {
	if dir == "" {
		return nil
	}
	return &Cache{dir: filepath.Clean(dir)}
}

func (c *Cache) path(kind catalog.Kind, identifier string) (string, error) {
	p := filepath.Clean(filepath.Join(c.dir, string(kind), filepath.FromSlash(identifier)))
	if !strings.HasPrefix(p, c.dir+string(filepath.Separator)) {
		return "", fmt.Errorf("invalid cache path: %s", identifier)
	}
	return p, nil
}

// Get returns the cached content of kind/identifier.
func (c *Cache) Get(kind catalog.Kind, identifier string) ([]byte, bool) {
	if c == nil {
		return nil, false
	}
	p, err := c.path(kind, identifier)
	if err != nil {
		return nil, false
	}
	b, err := os.ReadFile(p)
	if err != nil {
		return nil, false
	}
	return b, true
}

// Put stores content for kind/identifier. The file is written under a temporary name and
// renamed so concurrent readers never see a partial file.
func (c *Cache) Put(kind catalog.Kind, identifier string, content []byte) error {
	if c == nil {
		return nil
	}
	p, err := c.path(kind, identifier)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0750); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(p), ".part-*")
	if err != nil {
		return fmt.Errorf("failed to create cache file: %w", err)
	}
	defer func() {
		if err := os.Remove(tmp.Name()); err != nil && !os.IsNotExist(err) {
			logging.Warn("Failed to remove temporary cache file", "error", err)
		}
	}()

	if _, err := tmp.Write(content); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write cache file %s: %w", p, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close cache file %s: %w", p, err)
	}
	if err := os.Rename(tmp.Name(), p); err != nil {
		return fmt.Errorf("failed to move cache file into place: %w", err)
	}
	return nil
}
