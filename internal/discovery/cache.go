package discovery

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/Kobeeeef/XTABLES/pkg/config"
)

// CacheFile is the advisory endpoint-hint file described in §6. Missing or
// unreadable is treated as absent; concurrent writers from multiple
// processes may clobber each other, which is acceptable since a bad cache
// entry self-heals through the rest of the resolver chain.
type CacheFile struct {
	path string
}

// NewCacheFile returns a CacheFile rooted at os.TempDir().
func NewCacheFile() *CacheFile {
	return &CacheFile{path: filepath.Join(os.TempDir(), config.TempConnectionFileName)}
}

// Get reads the cached address, returning ("", false) if the file is
// missing, unreadable, or empty.
func (c *CacheFile) Get() (string, bool) {
	b, err := os.ReadFile(c.path)
	if err != nil {
		return "", false
	}
	addr := strings.TrimSpace(string(b))
	if addr == "" {
		return "", false
	}
	return addr, true
}

// Set writes addr to the cache file, best-effort.
func (c *CacheFile) Set(addr string) {
	_ = os.WriteFile(c.path, []byte(addr), 0o644)
}

// Invalidate removes the cache file, best-effort. Called when a
// previously-cached address turns out to be unreachable.
func (c *CacheFile) Invalidate() {
	_ = os.Remove(c.path)
}
