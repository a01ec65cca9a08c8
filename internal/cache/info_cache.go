package cache

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"lorikeet/internal/iiif"
	"lorikeet/internal/imageinfo"
)

const (
	infoFilename    = "info.json"
	profileFilename = "profile.icc"
)

// InfoCache stores metadata records durably on the filesystem, shadowed by a
// bounded in-memory LRU. The filesystem is the source of truth; the memory
// tier is a rebuildable accelerator shared by nothing, so independent
// processes over the same root stay consistent.
//
// Storage is partitioned by scheme and the memory tier keys by the full
// originating URL, so the same identifier requested over http and https is
// two distinct entries throughout.
type InfoCache struct {
	httpRoot  string
	httpsRoot string
	mem       *lru
	log       *zap.Logger
}

// NewInfoCache creates a cache rooted at root with at most capacity entries
// held in memory.
func NewInfoCache(root string, capacity int, log *zap.Logger) *InfoCache {
	return &InfoCache{
		httpRoot:  filepath.Join(root, "http"),
		httpsRoot: filepath.Join(root, "https"),
		mem:       newLRU(capacity),
		log:       log,
	}
}

func (c *InfoCache) root(id iiif.Identity) string {
	if id.Scheme == iiif.SchemeHTTPS {
		return c.httpsRoot
	}
	return c.httpRoot
}

func (c *InfoCache) infoPath(id iiif.Identity) string {
	return filepath.Join(c.root(id), filepath.FromSlash(id.AsPath), infoFilename)
}

func (c *InfoCache) profilePath(id iiif.Identity) string {
	return filepath.Join(c.root(id), filepath.FromSlash(id.AsPath), profileFilename)
}

// Get returns the record and its last-modified time, or ok=false on a miss.
// A memory hit returns immediately; otherwise the record is hydrated from
// disk and inserted into the memory tier. Two callers racing on the same
// miss may both read disk and both insert; the values are equal, so the
// second insert is harmless.
func (c *InfoCache) Get(id iiif.Identity) (*imageinfo.ImageInfo, time.Time, bool, error) {
	if info, lastMod, ok := c.mem.Get(id.URL); ok {
		return info, lastMod, true, nil
	}

	fp := c.infoPath(id)
	fi, err := os.Stat(fp)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, time.Time{}, false, nil
	}
	if err != nil {
		return nil, time.Time{}, false, err
	}

	data, err := os.ReadFile(fp)
	if err != nil {
		return nil, time.Time{}, false, err
	}
	info, err := imageinfo.FromJSON(data)
	if err != nil {
		return nil, time.Time{}, false, &DeserializationError{Path: fp, Err: err}
	}

	icc, err := os.ReadFile(c.profilePath(id))
	switch {
	case err == nil:
		info.ColorProfile = icc
	case !errors.Is(err, fs.ErrNotExist):
		return nil, time.Time{}, false, err
	}

	lastMod := fi.ModTime().UTC()
	c.mem.Put(id.URL, info, lastMod)
	c.log.Debug("info record read from file system", zap.String("url", id.URL))

	return info, lastMod, true, nil
}

// Contains reports whether a record is durable on disk. It never consults or
// populates the memory tier, so it stays cheap and leaves recency order
// untouched.
func (c *InfoCache) Contains(id iiif.Identity) bool {
	_, err := os.Stat(c.infoPath(id))
	return err == nil
}

// Put persists the record and inserts it into the memory tier with the fresh
// file modification time, which it also returns.
func (c *InfoCache) Put(id iiif.Identity, info *imageinfo.ImageInfo) (time.Time, error) {
	fp := c.infoPath(id)
	if err := ensureDir(filepath.Dir(fp)); err != nil {
		return time.Time{}, err
	}

	data, err := info.ToJSON()
	if err != nil {
		return time.Time{}, err
	}
	if err := os.WriteFile(fp, data, 0644); err != nil {
		return time.Time{}, err
	}
	if len(info.ColorProfile) > 0 {
		if err := os.WriteFile(c.profilePath(id), info.ColorProfile, 0644); err != nil {
			return time.Time{}, err
		}
	}

	fi, err := os.Stat(fp)
	if err != nil {
		return time.Time{}, err
	}
	lastMod := fi.ModTime().UTC()
	c.mem.Put(id.URL, info, lastMod)

	return lastMod, nil
}

// Delete removes the identity from memory and disk. The identity must be in
// the memory tier; asking to delete an untracked identity returns
// ErrNotInMemory. Removing the record's now-possibly-empty directory is best
// effort.
func (c *InfoCache) Delete(id iiif.Identity) error {
	if !c.mem.Remove(id.URL) {
		return fmt.Errorf("%w: %s", ErrNotInMemory, id.URL)
	}

	fp := c.infoPath(id)
	if err := os.Remove(fp); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	if err := os.Remove(c.profilePath(id)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}

	// Not empty or already gone is fine.
	os.Remove(filepath.Dir(fp))

	return nil
}
