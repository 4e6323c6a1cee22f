// Package hashing computes the content digests that manifest entries are
// compared against.
package hashing

import (
	"crypto/md5"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"io"
	"os"
	"strings"
)

// Algorithm identifies a digest algorithm used in manifests.
type Algorithm string

const (
	SHA256 Algorithm = "sha256"
	// MD5 is only kept for manifests published before the switch to SHA256.
	MD5 Algorithm = "md5"

	Default = SHA256
)

var ErrUnknownAlgorithm = errors.New("unknown hash algorithm")

func ParseAlgorithm(s string) (Algorithm, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "sha256", "sha-256":
		return SHA256, nil
	case "md5":
		return MD5, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownAlgorithm, s)
	}
}

// HexLen is the length of the hex encoded digest.
func (a Algorithm) HexLen() int {
	switch a {
	case MD5:
		return md5.Size * 2
	default:
		return sha256.Size * 2
	}
}

func (a Algorithm) New() hash.Hash {
	switch a {
	case MD5:
		return md5.New()
	default:
		return sha256.New()
	}
}

func (a Algorithm) String() string {
	return string(a)
}

// ForDigest picks the algorithm that produced a hex digest from its length.
// A 32 char digest is always MD5, never a truncated SHA256.
func ForDigest(digest string) (Algorithm, bool) {
	switch len(strings.TrimSpace(digest)) {
	case SHA256.HexLen():
		return SHA256, true
	case MD5.HexLen():
		return MD5, true
	default:
		return "", false
	}
}

// Equal compares two hex digests ignoring case.
func Equal(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}

// HashReader streams r and returns the lowercase hex digest.
func HashReader(r io.Reader, algo Algorithm) (string, error) {
	h := algo.New()
	if _, err := io.Copy(h, r); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// HashFile returns the lowercase hex digest of the file at path. A missing
// file yields an error matching fs.ErrNotExist.
func HashFile(path string, algo Algorithm) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("hash %q: %w", path, err)
	}
	defer file.Close()

	sum, err := HashReader(file, algo)
	if err != nil {
		return "", fmt.Errorf("hash %q: %w", path, err)
	}
	return sum, nil
}
