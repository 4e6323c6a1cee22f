package fetch

import (
	"errors"
	"io/fs"
	"os"
	"runtime"
)

var (
	renameFile  = os.Rename
	runtimeGOOS = runtime.GOOS
)

// replaceFile moves src over dst. Windows may refuse to replace a file that
// is being scanned or indexed, in which case dst is removed and the rename
// retried once.
func replaceFile(src, dst string) error {
	err := renameFile(src, dst)
	if err == nil {
		return nil
	}

	if runtimeGOOS != "windows" || !(errors.Is(err, fs.ErrExist) || errors.Is(err, fs.ErrPermission)) {
		return err
	}

	if rmErr := os.Remove(dst); rmErr != nil && !errors.Is(rmErr, fs.ErrNotExist) {
		return err
	}
	return renameFile(src, dst)
}
