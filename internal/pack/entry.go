// Package pack models the update manifest ("pack"): one entry per file that
// must exist, be removed or be fetched when absent, plus an optional minimum
// client version.
package pack

const (
	deletePrefix            = '#'
	downloadIfMissingPrefix = ':'
	fieldSep                = "||"
)

type Kind int

const (
	KindSync Kind = iota
	KindDelete
	KindDownloadIfMissing
)

func (k Kind) String() string {
	switch k {
	case KindDelete:
		return "delete"
	case KindDownloadIfMissing:
		return "download-if-missing"
	default:
		return "sync"
	}
}

// Entry is one manifest line. Path is relative and slash separated.
type Entry struct {
	Path              string
	Hash              string
	URL               string
	Delete            bool
	DownloadIfMissing bool

	// MinimumVersion is the manifest wide minimum client version in force
	// when the entry was decoded.
	MinimumVersion string
}

func (e Entry) Kind() Kind {
	switch {
	case e.Delete:
		return KindDelete
	case e.DownloadIfMissing:
		return KindDownloadIfMissing
	default:
		return KindSync
	}
}

// Manifest is a decoded pack. Entries keep their textual order.
type Manifest struct {
	Entries        []Entry
	MinimumVersion string
	// Warnings holds the non fatal problems found while decoding.
	Warnings []*ParseError
}

// Encode renders the manifest back to text.
func (m *Manifest) Encode() string {
	return Encode(m.Entries, m.MinimumVersion)
}

// Partition splits entries into deletions, download-if-missing and plain sync
// entries, preserving order within each group.
func Partition(entries []Entry) (deletions, ifMissing, plain []Entry) {
	for _, e := range entries {
		switch e.Kind() {
		case KindDelete:
			deletions = append(deletions, e)
		case KindDownloadIfMissing:
			ifMissing = append(ifMissing, e)
		default:
			plain = append(plain, e)
		}
	}
	return deletions, ifMissing, plain
}
