package version

import (
	"fmt"
	"strings"

	goversion "github.com/hashicorp/go-version"
)

// FallbackMinimum is assumed when a manifest declares no minimum version or
// one that does not parse.
const FallbackMinimum = "0.0.0"

// Parse parses a dotted version, tolerating a leading "v". Pre-release and
// build metadata are dropped so that a development build of 1.4.0 satisfies a
// minimum of 1.4.0.
func Parse(s string) (*goversion.Version, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "v")
	v, err := goversion.NewVersion(s)
	if err != nil {
		return nil, fmt.Errorf("parse version %q: %w", s, err)
	}
	return goversion.Must(goversion.NewVersion(v.Core().String())), nil
}

// Compare returns -1, 0 or 1 as a is older, equal to or newer than b.
func Compare(a, b string) (int, error) {
	va, err := Parse(a)
	if err != nil {
		return 0, err
	}
	vb, err := Parse(b)
	if err != nil {
		return 0, err
	}
	return va.Compare(vb), nil
}

// Satisfies reports whether current is at least minimum. An empty or
// unparseable minimum falls back to FallbackMinimum; the returned bool
// reports whether the fallback was used.
func Satisfies(current, minimum string) (ok bool, fellBack bool, err error) {
	cur, err := Parse(current)
	if err != nil {
		return false, false, err
	}

	floor, perr := Parse(minimum)
	if strings.TrimSpace(minimum) == "" || perr != nil {
		fellBack = true
		floor = goversion.Must(goversion.NewVersion(FallbackMinimum))
	}

	return cur.GreaterThanOrEqual(floor), fellBack, nil
}

// IsNewer reports whether candidate is strictly newer than current.
func IsNewer(candidate, current string) bool {
	c, err := Compare(candidate, current)
	return err == nil && c > 0
}
