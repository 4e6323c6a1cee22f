package pack

import (
	"fmt"
	"net"
	"net/url"
	"strings"

	"github.com/flier268/Minecraft-updater/internal/hashing"
)

// Validator decides whether decoded entries can be trusted. Hashes are
// accepted when their length matches one of the configured algorithms.
type Validator struct {
	algos []hashing.Algorithm
}

// NewValidator accepts SHA256 digests only unless other algorithms are
// given.
func NewValidator(algos ...hashing.Algorithm) *Validator {
	if len(algos) == 0 {
		algos = []hashing.Algorithm{hashing.SHA256}
	}
	return &Validator{algos: algos}
}

// NewLegacyValidator also accepts 32 char MD5 digests.
func NewLegacyValidator() *Validator {
	return NewValidator(hashing.SHA256, hashing.MD5)
}

func (v *Validator) ValidateHash(h string) error {
	if h == "" {
		return nil
	}
	if !isHex(h) {
		return fmt.Errorf("%w: %q is not hex", ErrInvalidHash, h)
	}
	for _, algo := range v.algos {
		if len(h) == algo.HexLen() {
			return nil
		}
	}
	return fmt.Errorf("%w: %d hex chars", ErrInvalidHash, len(h))
}

func isHex(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') && (c < 'A' || c > 'F') {
			return false
		}
	}
	return true
}

// ValidateURL accepts an empty string or an absolute http(s) URL whose host
// contains a dot or is an IP literal.
func (v *Validator) ValidateURL(raw string) error {
	if raw == "" {
		return nil
	}
	if strings.ContainsAny(raw, " \t\r\n") {
		return fmt.Errorf("%w: contains whitespace", ErrInvalidURL)
	}

	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidURL, err)
	}

	switch strings.ToLower(u.Scheme) {
	case "http", "https":
	default:
		return fmt.Errorf("%w: unsupported scheme %q", ErrInvalidURL, u.Scheme)
	}

	host := u.Hostname()
	if host == "" {
		return fmt.Errorf("%w: missing host", ErrInvalidURL)
	}
	if !strings.Contains(host, ".") && net.ParseIP(host) == nil {
		return fmt.Errorf("%w: host %q", ErrInvalidURL, host)
	}
	return nil
}

// ValidatePath rejects blank paths, traversal, rooted paths and drive
// letters.
func (v *Validator) ValidatePath(p string) error {
	switch {
	case strings.TrimSpace(p) == "":
		return fmt.Errorf("%w: empty", ErrInvalidPath)
	case strings.Contains(p, ".."):
		return fmt.Errorf("%w: %q contains ..", ErrInvalidPath, p)
	case p[0] == '/' || p[0] == '\\':
		return fmt.Errorf("%w: %q is rooted", ErrInvalidPath, p)
	case hasDriveLetter(p):
		return fmt.Errorf("%w: %q has a drive letter", ErrInvalidPath, p)
	case strings.ContainsRune(p, 0):
		return fmt.Errorf("%w: %q contains NUL", ErrInvalidPath, p)
	}
	return nil
}

func hasDriveLetter(p string) bool {
	if len(p) < 2 || p[1] != ':' {
		return false
	}
	c := p[0]
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

// ValidateEntry checks the path first, then the URL of non deletions, then
// the hash. The returned error is a *ValidationError.
func (v *Validator) ValidateEntry(e Entry) error {
	if err := v.ValidatePath(e.Path); err != nil {
		return &ValidationError{Entry: e, Err: err}
	}
	if e.Delete && e.DownloadIfMissing {
		return &ValidationError{Entry: e, Err: ErrConflictingFlags}
	}
	if !e.Delete {
		if e.URL == "" {
			return &ValidationError{Entry: e, Err: ErrMissingURL}
		}
		if err := v.ValidateURL(e.URL); err != nil {
			return &ValidationError{Entry: e, Err: err}
		}
	}
	if err := v.ValidateHash(e.Hash); err != nil {
		return &ValidationError{Entry: e, Err: err}
	}
	return nil
}

// Filter returns the entries that validate, in order, and the errors for
// the rejected ones.
func (v *Validator) Filter(entries []Entry) ([]Entry, []*ValidationError) {
	accepted := make([]Entry, 0, len(entries))
	var rejected []*ValidationError
	for _, e := range entries {
		if err := v.ValidateEntry(e); err != nil {
			rejected = append(rejected, err.(*ValidationError))
			continue
		}
		accepted = append(accepted, e)
	}
	return accepted, rejected
}
