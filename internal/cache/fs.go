package cache

import (
	"errors"
	"io/fs"
	"os"
)

// ensureDir creates dir and any missing parents. Losing a creation race to a
// concurrent process is success; both caches share this helper so the
// race tolerance lives in one place. Any other failure is returned verbatim.
func ensureDir(dir string) error {
	err := os.MkdirAll(dir, 0755)
	if err == nil || errors.Is(err, fs.ErrExist) {
		return nil
	}
	return err
}
