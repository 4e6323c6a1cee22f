package hashing

import (
	"fmt"
	"os"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

const defaultCacheSize = 4096

type cacheKey struct {
	path    string
	algo    Algorithm
	size    int64
	modTime time.Time
}

// Hasher hashes files and remembers digests of files whose size and
// modification time have not changed since they were last hashed.
type Hasher struct {
	algo  Algorithm
	cache *lru.Cache[cacheKey, string]
}

func NewHasher(algo Algorithm) *Hasher {
	cache, _ := lru.New[cacheKey, string](defaultCacheSize)
	return &Hasher{algo: algo, cache: cache}
}

func (h *Hasher) Algorithm() Algorithm {
	return h.algo
}

// Hash digests path with the default algorithm of the hasher.
func (h *Hasher) Hash(path string) (string, error) {
	return h.HashWith(path, h.algo)
}

// HashMatching digests path with the algorithm that produced expected, so a
// legacy MD5 entry is compared against an MD5 digest.
func (h *Hasher) HashMatching(path, expected string) (string, error) {
	algo, ok := ForDigest(expected)
	if !ok {
		algo = h.algo
	}
	return h.HashWith(path, algo)
}

func (h *Hasher) HashWith(path string, algo Algorithm) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("hash %q: %w", path, err)
	}

	key := cacheKey{path: path, algo: algo, size: info.Size(), modTime: info.ModTime()}
	if sum, ok := h.cache.Get(key); ok {
		return sum, nil
	}

	sum, err := HashFile(path, algo)
	if err != nil {
		return "", err
	}
	h.cache.Add(key, sum)
	return sum, nil
}

// Forget drops cached digests, e.g. after the caller rewrote files in place
// within the filesystem's mtime granularity.
func (h *Hasher) Forget() {
	h.cache.Purge()
}
