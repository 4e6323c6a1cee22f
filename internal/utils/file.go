package utils

import (
	"fmt"
	"io"
	"os"
)

// CopyFile copies src to dst, creating the parent directory. A zero perm
// keeps the permission bits of src. An existing dst is replaced even when it
// is read-only.
func CopyFile(src, dst string, perm os.FileMode) error {
	if err := EnsureParent(dst); err != nil {
		return err
	}

	srcFile, err := os.Open(src)
	if err != nil {
		return err
	}
	defer srcFile.Close()

	if perm == 0 {
		info, err := srcFile.Stat()
		if err != nil {
			return err
		}
		perm = info.Mode().Perm()
	}

	if err := os.Remove(dst); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("replace %q: %w", dst, err)
	}

	dstFile, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, perm)
	if err != nil {
		return err
	}

	if _, err := io.Copy(dstFile, srcFile); err != nil {
		dstFile.Close()
		return err
	}
	return dstFile.Close()
}
