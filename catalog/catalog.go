// Package catalog is the persistent cache behind repeated scans: one
// SQLite row per file path holding the file identity (size, mtime), the
// duplicate-scan hashes and the metadata summary fields. A cached value is
// only ever returned while the stored identity still matches the file on
// disk, so callers can skip recomputation without a staleness check of
// their own.
package catalog

import (
	"database/sql"
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"

	"dupescan/logging"
	"dupescan/types"

	_ "github.com/mattn/go-sqlite3"
)

const schema = `
CREATE TABLE IF NOT EXISTS images (
	id INTEGER PRIMARY KEY,
	path TEXT NOT NULL UNIQUE,
	file_size INTEGER NOT NULL,
	mtime_ns INTEGER NOT NULL,
	width INTEGER,
	height INTEGER,
	date_taken TEXT,
	date_modified TEXT,
	content_hash BLOB,
	perceptual_hash BLOB
);
CREATE INDEX IF NOT EXISTS idx_images_content_hash ON images(content_hash);`

// Catalog wraps the database handle. A nil db means the catalog is
// disabled: every read misses and every write is dropped, so the features
// above it degrade to always-recompute instead of failing.
type Catalog struct {
	db *sql.DB
}

// Open opens (creating if needed) the catalog database at dbPath. An
// empty path is an error; the sqlite driver would otherwise open an
// anonymous temporary database, which looks enabled but persists nothing.
func Open(dbPath string) (*Catalog, error) {
	if dbPath == "" {
		return nil, fmt.Errorf("no catalog database path")
	}
	if dir := filepath.Dir(dbPath); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("cannot create catalog directory %s: %v", dir, err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath+"?_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("cannot open catalog %s: %v", dbPath, err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("cannot initialize catalog schema: %v", err)
	}

	return &Catalog{db: db}, nil
}

// OpenOrDisabled opens the catalog, falling back to a disabled instance
// when the database cannot be opened. An empty dbPath means caching is
// turned off and yields a disabled instance directly. Scans still work
// either way, they just recompute everything.
func OpenOrDisabled(dbPath string) *Catalog {
	if dbPath == "" {
		return Disabled()
	}
	cat, err := Open(dbPath)
	if err != nil {
		logging.LogWarning("catalog unavailable, caching disabled: %v", err)
		return Disabled()
	}
	return cat
}

// Disabled returns a catalog whose reads always miss and whose writes are
// silently dropped.
func Disabled() *Catalog {
	return &Catalog{}
}

// Enabled reports whether the catalog is backed by a database.
func (c *Catalog) Enabled() bool {
	return c.db != nil
}

// Close releases the database handle.
func (c *Catalog) Close() error {
	if c.db == nil {
		return nil
	}
	return c.db.Close()
}

// FileIdentity returns the size and mtime (nanoseconds since epoch) used
// as the cache-validity key for path.
func FileIdentity(path string) (size int64, mtimeNS int64, err error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, 0, err
	}
	return info.Size(), info.ModTime().UnixNano(), nil
}

// GetFingerprint returns the cached fingerprint for path, but only while
// the stored size and mtime still match the file on disk exactly. A
// missing row, a stale identity, absent hash columns or a malformed hash
// all count as a miss, never as an error.
func (c *Catalog) GetFingerprint(path string) (types.Fingerprint, bool) {
	var fp types.Fingerprint
	if c.db == nil {
		return fp, false
	}

	diskSize, diskMtime, err := FileIdentity(path)
	if err != nil {
		return fp, false
	}

	var dbSize, dbMtime int64
	var contentHash, perceptualHash []byte
	err = c.db.QueryRow(
		`SELECT file_size, mtime_ns, content_hash, perceptual_hash FROM images WHERE path = ?`,
		path,
	).Scan(&dbSize, &dbMtime, &contentHash, &perceptualHash)
	if err != nil {
		return fp, false
	}

	if dbSize != diskSize || dbMtime != diskMtime {
		return fp, false
	}
	if len(contentHash) != 32 || len(perceptualHash) != 8 {
		// Corrupt or partially-written row: treat as a miss so it gets
		// recomputed and overwritten.
		return fp, false
	}

	copy(fp.ContentHash[:], contentHash)
	fp.PerceptualHash = binary.BigEndian.Uint64(perceptualHash)
	return fp, true
}

// PutFingerprint upserts the identity and hash columns for path. The
// summary columns of an existing row are left untouched, so the two field
// groups can be filled independently. Last write wins; failures are
// logged and dropped.
func (c *Catalog) PutFingerprint(path string, size, mtimeNS int64, fp types.Fingerprint) {
	if c.db == nil {
		return
	}

	phash := make([]byte, 8)
	binary.BigEndian.PutUint64(phash, fp.PerceptualHash)

	_, err := c.db.Exec(
		`INSERT INTO images (path, file_size, mtime_ns, content_hash, perceptual_hash)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(path) DO UPDATE SET
			file_size = excluded.file_size,
			mtime_ns = excluded.mtime_ns,
			content_hash = excluded.content_hash,
			perceptual_hash = excluded.perceptual_hash`,
		path, size, mtimeNS, fp.ContentHash[:], phash,
	)
	if err != nil {
		logging.LogError("cannot store fingerprint for %s: %v", path, err)
	}
}

// GetSummary returns the cached metadata summary for path under the same
// freshness rule as GetFingerprint. A row whose summary fields are all
// empty is a miss so the read can be retried.
func (c *Catalog) GetSummary(path string) (types.FileSummary, bool) {
	var summary types.FileSummary
	if c.db == nil {
		return summary, false
	}

	diskSize, diskMtime, err := FileIdentity(path)
	if err != nil {
		return summary, false
	}

	var dbSize, dbMtime int64
	var width, height sql.NullInt64
	var dateTaken, dateModified sql.NullString
	err = c.db.QueryRow(
		`SELECT file_size, mtime_ns, width, height, date_taken, date_modified FROM images WHERE path = ?`,
		path,
	).Scan(&dbSize, &dbMtime, &width, &height, &dateTaken, &dateModified)
	if err != nil {
		return summary, false
	}

	if dbSize != diskSize || dbMtime != diskMtime {
		return summary, false
	}

	summary = types.FileSummary{
		Filename:     filepath.Base(path),
		FileSize:     diskSize,
		Width:        int(width.Int64),
		Height:       int(height.Int64),
		DateTaken:    dateTaken.String,
		DateModified: dateModified.String,
	}
	if summary.Empty() {
		return types.FileSummary{}, false
	}
	return summary, true
}

// PutSummary upserts the identity and summary columns for path, leaving
// the hash columns of an existing row untouched.
func (c *Catalog) PutSummary(path string, size, mtimeNS int64, summary types.FileSummary) {
	if c.db == nil {
		return
	}

	var width, height interface{}
	if summary.HasDimensions() {
		width, height = summary.Width, summary.Height
	}
	var dateTaken, dateModified interface{}
	if summary.DateTaken != "" {
		dateTaken = summary.DateTaken
	}
	if summary.DateModified != "" {
		dateModified = summary.DateModified
	}

	_, err := c.db.Exec(
		`INSERT INTO images (path, file_size, mtime_ns, width, height, date_taken, date_modified)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(path) DO UPDATE SET
			file_size = excluded.file_size,
			mtime_ns = excluded.mtime_ns,
			width = excluded.width,
			height = excluded.height,
			date_taken = excluded.date_taken,
			date_modified = excluded.date_modified`,
		path, size, mtimeNS, width, height, dateTaken, dateModified,
	)
	if err != nil {
		logging.LogError("cannot store summary for %s: %v", path, err)
	}
}

// PruneMissing deletes every row whose path no longer exists on disk and
// returns how many were removed. Safe to call while readers are active;
// deletes are per-row and best-effort.
func (c *Catalog) PruneMissing() int {
	if c.db == nil {
		return 0
	}

	rows, err := c.db.Query(`SELECT path FROM images`)
	if err != nil {
		logging.LogError("cannot list catalog paths: %v", err)
		return 0
	}

	var paths []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err == nil {
			paths = append(paths, p)
		}
	}
	rows.Close()

	pruned := 0
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil || !os.IsNotExist(err) {
			continue
		}
		if _, err := c.db.Exec(`DELETE FROM images WHERE path = ?`, p); err == nil {
			pruned++
		}
	}
	if pruned > 0 {
		logging.DebugLog("pruned %d missing files from catalog", pruned)
	}
	return pruned
}

// Count returns the number of rows in the catalog, for stats output.
func (c *Catalog) Count() int {
	if c.db == nil {
		return 0
	}
	var n int
	if err := c.db.QueryRow(`SELECT COUNT(*) FROM images`).Scan(&n); err != nil {
		return 0
	}
	return n
}
