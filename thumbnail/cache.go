package thumbnail

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"os"
	"path/filepath"

	"dupescan/logging"
)

// DiskCache is the content-addressed thumbnail store. Keys derive from the
// file identity (canonical path, size, mtime) plus the requested size, so
// a changed file simply addresses a new entry and old ones become orphaned
// garbage rather than stale data.
type DiskCache struct {
	dir      string
	disabled bool
}

// NewDiskCache creates the cache rooted at dir, creating it if needed. If
// the directory cannot be created the cache is disabled and every
// operation becomes a no-op.
func NewDiskCache(dir string) *DiskCache {
	if dir == "" {
		return &DiskCache{disabled: true}
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		logging.LogWarning("thumbnail cache unavailable at %s: %v", dir, err)
		return &DiskCache{disabled: true}
	}
	return &DiskCache{dir: dir}
}

// key builds the cache key for path at maxSize. Returns false when the
// file cannot be identified (deleted mid-scan etc.).
func (c *DiskCache) key(path string, maxSize int) (string, bool) {
	info, err := os.Stat(path)
	if err != nil {
		return "", false
	}
	canonical, err := filepath.Abs(path)
	if err != nil {
		return "", false
	}
	if resolved, err := filepath.EvalSymlinks(canonical); err == nil {
		canonical = resolved
	}

	var buf [8]byte
	h := sha256.New()
	h.Write([]byte(canonical))
	binary.LittleEndian.PutUint64(buf[:], uint64(info.Size()))
	h.Write(buf[:])
	binary.LittleEndian.PutUint64(buf[:], uint64(info.ModTime().UnixNano()))
	h.Write(buf[:])
	binary.LittleEndian.PutUint32(buf[:4], uint32(maxSize))
	h.Write(buf[:4])

	return hex.EncodeToString(h.Sum(nil)), true
}

// entryPath maps a key to its file, sharded by the first two hex chars so
// no single directory grows huge.
func (c *DiskCache) entryPath(key string) string {
	return filepath.Join(c.dir, key[:2], key+".thumb")
}

// Get returns the cached RGBA raster for path at maxSize, or ok=false on
// any miss (no entry, unreadable entry, corrupt entry, unidentifiable
// file).
func (c *DiskCache) Get(path string, maxSize int) (rgba []byte, width, height int, ok bool) {
	if c.disabled {
		return nil, 0, 0, false
	}
	key, ok := c.key(path, maxSize)
	if !ok {
		return nil, 0, 0, false
	}

	data, err := os.ReadFile(c.entryPath(key))
	if err != nil {
		return nil, 0, 0, false
	}
	rgba, width, height, err = decodeRaster(data)
	if err != nil {
		logging.DebugLog("dropping corrupt thumbnail cache entry %s: %v", key, err)
		return nil, 0, 0, false
	}
	return rgba, width, height, true
}

// Put stores a raster for path at maxSize. Best-effort: failures are
// logged and swallowed, the caller already has the pixels.
func (c *DiskCache) Put(path string, maxSize int, rgba []byte, width, height int) {
	if c.disabled {
		return
	}
	key, ok := c.key(path, maxSize)
	if !ok {
		return
	}

	entry := c.entryPath(key)
	if err := os.MkdirAll(filepath.Dir(entry), 0755); err != nil {
		logging.LogWarning("cannot create thumbnail cache shard: %v", err)
		return
	}
	if err := os.WriteFile(entry, encodeRaster(rgba, width, height), 0644); err != nil {
		logging.LogWarning("cannot write thumbnail cache entry: %v", err)
	}
}
