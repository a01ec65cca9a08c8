package resolver

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

// ErrNotFound means no source image exists for the identifier. Distinct from
// I/O failures, which are returned verbatim.
var ErrNotFound = errors.New("no source image for identifier")

var extensions = map[string]bool{
	".tif":  true,
	".tiff": true,
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".webp": true,
}

// Resolver maps external identifiers to source image files under a single
// root directory. Identifiers may contain slashes; they may not escape the
// root.
type Resolver struct {
	sourceDir string
	log       *zap.Logger
}

func New(sourceDir string, log *zap.Logger) *Resolver {
	return &Resolver{sourceDir: sourceDir, log: log}
}

// Resolve returns the path of the source image for identifier.
func (r *Resolver) Resolve(identifier string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(identifier))
	if clean == "." || filepath.IsAbs(clean) || strings.HasPrefix(clean, "..") {
		return "", fmt.Errorf("%w: %q escapes the source root", ErrNotFound, identifier)
	}

	ext := strings.ToLower(filepath.Ext(clean))
	if !extensions[ext] {
		return "", fmt.Errorf("%w: unsupported extension %q", ErrNotFound, ext)
	}

	fp := filepath.Join(r.sourceDir, clean)
	fi, err := os.Stat(fp)
	if errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("%w: %s", ErrNotFound, identifier)
	}
	if err != nil {
		return "", err
	}
	if fi.IsDir() {
		return "", fmt.Errorf("%w: %s", ErrNotFound, identifier)
	}

	r.log.Debug("resolved identifier", zap.String("identifier", identifier), zap.String("path", fp))
	return fp, nil
}
