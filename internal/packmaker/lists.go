package packmaker

import (
	"github.com/flier268/Minecraft-updater/internal/pack"
)

// Lists groups manifest entries the way they are written: sync entries,
// then deletions, then download-if-missing entries.
type Lists struct {
	Sync              []pack.Entry
	Delete            []pack.Entry
	DownloadIfMissing []pack.Entry
}

// Split regroups a decoded manifest.
func Split(m *pack.Manifest) *Lists {
	deletions, ifMissing, plain := pack.Partition(m.Entries)
	return &Lists{Sync: plain, Delete: deletions, DownloadIfMissing: ifMissing}
}

func (l *Lists) Merge(other *Lists) {
	if other == nil {
		return
	}
	l.Sync = append(l.Sync, other.Sync...)
	l.Delete = append(l.Delete, other.Delete...)
	l.DownloadIfMissing = append(l.DownloadIfMissing, other.DownloadIfMissing...)
}

// Clear empties one list.
func (l *Lists) Clear(kind ListKind) {
	switch kind {
	case ListDelete:
		l.Delete = nil
	case ListDownloadIfMissing:
		l.DownloadIfMissing = nil
	default:
		l.Sync = nil
	}
}

func (l *Lists) Len() int {
	return len(l.Sync) + len(l.Delete) + len(l.DownloadIfMissing)
}

func (l *Lists) Entries() []pack.Entry {
	entries := make([]pack.Entry, 0, l.Len())
	entries = append(entries, l.Sync...)
	entries = append(entries, l.Delete...)
	return append(entries, l.DownloadIfMissing...)
}

func (l *Lists) Encode(minVersion string) string {
	return pack.Encode(l.Entries(), minVersion)
}
