package selfupdate

import (
	"archive/tar"
	"archive/zip"
	"bufio"
	"bytes"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/flier268/Minecraft-updater/internal/utils"
)

var ErrUnsafeArchivePath = errors.New("archive entry escapes extraction directory")

var (
	zipMagic  = []byte("PK\x03\x04")
	gzipMagic = []byte{0x1f, 0x8b}
)

// extractArchive unpacks a .zip or .tar.gz file into dst, detected by
// content rather than name.
func extractArchive(archivePath, dst string) error {
	f, err := os.Open(archivePath)
	if err != nil {
		return fmt.Errorf("archive open %q: %w", archivePath, err)
	}
	head, _ := bufio.NewReader(f).Peek(4)
	f.Close()

	switch {
	case bytes.HasPrefix(head, zipMagic):
		return extractZip(archivePath, dst)
	case bytes.HasPrefix(head, gzipMagic):
		return extractTarGz(archivePath, dst)
	default:
		return fmt.Errorf("archive %q: unsupported format", archivePath)
	}
}

// safeJoin joins an archive entry name to dst, refusing names that would
// land outside dst.
func safeJoin(dst, name string) (string, error) {
	name = strings.ReplaceAll(name, "\\", "/")
	target := filepath.Join(dst, filepath.FromSlash(name))
	rel, err := filepath.Rel(dst, target)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) || filepath.IsAbs(name) {
		return "", fmt.Errorf("%w: %q", ErrUnsafeArchivePath, name)
	}
	return target, nil
}

func writeEntry(target string, mode os.FileMode, r io.Reader) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode.Perm()|0o200)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, r); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

func extractZip(zipPath, dst string) error {
	r, err := zip.OpenReader(zipPath)
	if err != nil {
		return fmt.Errorf("zip open %q: %w", zipPath, err)
	}
	defer r.Close()

	for _, f := range r.File {
		target, err := safeJoin(dst, f.Name)
		if err != nil {
			return err
		}

		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return fmt.Errorf("failed to create directory: %w", err)
			}
			continue
		}

		rc, err := f.Open()
		if err != nil {
			return fmt.Errorf("zip open file %q: %w", f.Name, err)
		}
		err = writeEntry(target, f.Mode(), rc)
		rc.Close()
		if err != nil {
			return fmt.Errorf("zip extract file %q: %w", f.Name, err)
		}
	}

	return nil
}

func extractTarGz(tarPath, dst string) error {
	f, err := os.Open(tarPath)
	if err != nil {
		return fmt.Errorf("tar open %q: %w", tarPath, err)
	}
	defer f.Close()

	gz, err := gzip.NewReader(f)
	if err != nil {
		return fmt.Errorf("gzip open %q: %w", tarPath, err)
	}
	defer gz.Close()

	tr := tar.NewReader(gz)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("tar read %q: %w", tarPath, err)
		}

		target, err := safeJoin(dst, hdr.Name)
		if err != nil {
			return err
		}

		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0o755); err != nil {
				return fmt.Errorf("failed to create directory: %w", err)
			}
		case tar.TypeReg:
			if err := writeEntry(target, os.FileMode(hdr.Mode), tr); err != nil {
				return fmt.Errorf("tar extract file %q: %w", hdr.Name, err)
			}
		default:
			// links and devices are not part of release archives
		}
	}
}

// findExecutableDir returns the first directory under root, breadth of root
// first then subdirectories in name order, that contains a file named exe.
func findExecutableDir(root, exe string) (string, bool) {
	if info, err := os.Stat(filepath.Join(root, exe)); err == nil && !info.IsDir() {
		return root, true
	}

	entries, err := os.ReadDir(root)
	if err != nil {
		return "", false
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if dir, ok := findExecutableDir(filepath.Join(root, e.Name()), exe); ok {
			return dir, true
		}
	}
	return "", false
}

// copyDir copies every file under src into dst, overwriting existing files
// and keeping permission bits.
func copyDir(src, dst string) error {
	return filepath.WalkDir(src, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}

		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)

		if d.IsDir() {
			return utils.EnsureDir(target)
		}
		return utils.CopyFile(path, target, 0)
	})
}
