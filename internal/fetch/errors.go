package fetch

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrDownload matches every *DownloadError with errors.Is.
var ErrDownload = errors.New("download failed")

// HTTPError is returned for a non 2xx response.
type HTTPError struct {
	URL        string // redacted
	StatusCode int
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("fetch: %s: %d %s", e.URL, e.StatusCode, http.StatusText(e.StatusCode))
}

// HashMismatchError is returned when downloaded content does not hash to the
// expected digest. The destination is left untouched.
type HashMismatchError struct {
	Path     string
	Expected string
	Actual   string
}

func (e *HashMismatchError) Error() string {
	return fmt.Sprintf("fetch: %s: hash mismatch: expected %s, got %s", e.Path, e.Expected, e.Actual)
}

// DownloadError wraps every failure of a verified download.
type DownloadError struct {
	URL  string // redacted
	Path string
	Err  error
}

func (e *DownloadError) Error() string {
	return fmt.Sprintf("fetch: download %s to %q: %v", e.URL, e.Path, e.Err)
}

func (e *DownloadError) Unwrap() error {
	return e.Err
}

func (e *DownloadError) Is(target error) bool {
	return target == ErrDownload
}
