package cache

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"lorikeet/internal/iiif"
)

// DerivativeCache stores rendered derivatives on the filesystem. There is no
// memory tier: derivatives are large binary files, and the OS page cache
// serves them better than an application-level copy would.
//
// Exactly one file exists per canonical parameter encoding. A non-canonical
// request spelling that resolves to the same output gets a symbolic link to
// the canonical file, never a second copy of the bytes.
type DerivativeCache struct {
	root string
	log  *zap.Logger
}

func NewDerivativeCache(root string, log *zap.Logger) (*DerivativeCache, error) {
	if err := ensureDir(root); err != nil {
		return nil, err
	}
	return &DerivativeCache{root: root, log: log}, nil
}

func (c *DerivativeCache) requestPath(id iiif.Identity) string {
	return filepath.Join(c.root, filepath.FromSlash(id.AsPath))
}

func (c *DerivativeCache) canonicalPath(id iiif.Identity) string {
	return filepath.Join(c.root, filepath.FromSlash(id.CanonicalPath))
}

// Get returns the stored file for the request as spelled, with its
// modification time, or ok=false on a miss. Stat follows alias links, so a
// hit through an alias reports the canonical file's attributes.
func (c *DerivativeCache) Get(id iiif.Identity) (string, time.Time, bool) {
	fp := c.requestPath(id)
	fi, err := os.Stat(fp)
	if err != nil {
		return "", time.Time{}, false
	}
	return fp, fi.ModTime().UTC(), true
}

// Reserve allocates the canonical location for the identity, creating parent
// directories as needed, and returns it. The file itself is not created; the
// rendering pipeline writes its bytes there directly.
func (c *DerivativeCache) Reserve(id iiif.Identity) (string, error) {
	fp := c.canonicalPath(id)
	if err := ensureDir(filepath.Dir(fp)); err != nil {
		return "", err
	}
	return fp, nil
}

// Put records that the derivative for id now lives at canonicalPath. For a
// canonical identity there is nothing to do. Otherwise an alias link is
// created from the requested path to the canonical file, replacing any stale
// link already there.
func (c *DerivativeCache) Put(id iiif.Identity, canonicalPath string) error {
	if id.IsCanonical {
		return nil
	}

	link := c.requestPath(id)
	if link == canonicalPath {
		// A self-referential link would be unusable.
		c.log.Warn("requested and canonical paths coincide, not creating alias",
			zap.String("path", link))
		return nil
	}

	if err := ensureDir(filepath.Dir(link)); err != nil {
		return err
	}
	if _, err := os.Lstat(link); err == nil {
		if err := os.Remove(link); err != nil {
			return err
		}
	} else if !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	if err := os.Symlink(canonicalPath, link); err != nil {
		return err
	}
	c.log.Debug("created alias", zap.String("from", link), zap.String("to", canonicalPath))

	return nil
}
