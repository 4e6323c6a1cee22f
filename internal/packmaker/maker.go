// Package packmaker builds manifests from files under a pack root, the
// server side counterpart of the sync engine.
package packmaker

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/flier268/Minecraft-updater/internal/hashing"
	"github.com/flier268/Minecraft-updater/internal/pack"
	"github.com/flier268/Minecraft-updater/internal/utils"
)

const (
	DefaultBaseURL = "http://aaa.bb.com/"
	nameDelimiters = "+-_"
)

var ErrEmptyRoot = errors.New("pack root is empty")

type ListKind int

const (
	ListSync ListKind = iota
	ListDelete
	ListDownloadIfMissing
)

func (k ListKind) String() string {
	switch k {
	case ListDelete:
		return "delete"
	case ListDownloadIfMissing:
		return "download-if-missing"
	default:
		return "sync"
	}
}

func ParseListKind(s string) (ListKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "sync":
		return ListSync, nil
	case "delete":
		return ListDelete, nil
	case "download-if-missing", "if-missing", "missing":
		return ListDownloadIfMissing, nil
	}
	return ListSync, fmt.Errorf("unknown list %q", s)
}

// Maker turns files under Root into manifest entries.
type Maker struct {
	Root    string
	BaseURL string

	Algorithm hashing.Algorithm

	// AddModsToDelete and AddConfigToDelete add a delete entry for every
	// synced file under mods/ or config/, so older builds of the same file
	// are removed on clients.
	AddModsToDelete   bool
	AddConfigToDelete bool

	// Excludes are doublestar patterns matched against slash separated
	// paths relative to Root, on top of .packignore.
	Excludes []string

	logger *slog.Logger
	hasher *hashing.Hasher
	ignore *IgnoreList
}

type Option func(*Maker)

func WithAlgorithm(algo hashing.Algorithm) Option {
	return func(m *Maker) {
		if algo != "" {
			m.Algorithm = algo
		}
	}
}

func WithExcludes(patterns ...string) Option {
	return func(m *Maker) {
		m.Excludes = append(m.Excludes, patterns...)
	}
}

func WithDeleteGuards(mods, config bool) Option {
	return func(m *Maker) {
		m.AddModsToDelete = mods
		m.AddConfigToDelete = config
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(m *Maker) {
		if l != nil {
			m.logger = l
		}
	}
}

func New(root, baseURL string, opts ...Option) (*Maker, error) {
	if strings.TrimSpace(root) == "" {
		return nil, ErrEmptyRoot
	}
	abs, err := utils.ResolvePath(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve path %s: %w", root, err)
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	m := &Maker{
		Root:            abs,
		BaseURL:         baseURL,
		Algorithm:       hashing.Default,
		AddModsToDelete: true,
		logger:          utils.DiscardLogger(),
	}
	for _, opt := range opts {
		opt(m)
	}

	m.hasher = hashing.NewHasher(m.Algorithm)
	m.ignore = NewIgnoreList(m.Root, m.Excludes...)
	m.ignore.Load()
	return m, nil
}

// Add hashes every file in paths, walking directories, and returns the new
// entries for the given list. Paths outside Root and ignored files are
// skipped and reported.
func (m *Maker) Add(paths []string, kind ListKind) (*Lists, []string, error) {
	lists := &Lists{}
	var skipped []string

	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return nil, nil, fmt.Errorf("resolve %q: %w", p, err)
		}
		if !m.within(abs) {
			m.logger.Warn("skipping path outside pack root", "path", abs, "root", m.Root)
			skipped = append(skipped, p)
			continue
		}

		err = filepath.WalkDir(abs, func(file string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				return nil
			}

			rel, err := filepath.Rel(m.Root, file)
			if err != nil {
				return err
			}
			rel = filepath.ToSlash(rel)

			if m.ignore.ShouldIgnore(rel) {
				m.logger.Debug("ignored", "path", rel)
				skipped = append(skipped, rel)
				return nil
			}

			return m.addFile(lists, file, rel, kind)
		})
		if err != nil {
			return nil, nil, fmt.Errorf("add %q: %w", p, err)
		}
	}

	m.logger.Info("pack entries added", "list", kind, "sync", len(lists.Sync), "delete", len(lists.Delete), "ifMissing", len(lists.DownloadIfMissing), "skipped", len(skipped))
	return lists, skipped, nil
}

func (m *Maker) within(abs string) bool {
	rel, err := filepath.Rel(m.Root, abs)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

func (m *Maker) addFile(lists *Lists, file, rel string, kind ListKind) error {
	sum, err := m.hasher.Hash(file)
	if err != nil {
		return err
	}

	switch kind {
	case ListSync:
		lists.Sync = append(lists.Sync, pack.Entry{Path: rel, Hash: sum, URL: m.URLFor(rel)})
		if m.guarded(rel) {
			lists.Delete = append(lists.Delete, pack.Entry{Path: DeleteName(rel), Hash: sum, Delete: true})
		}
	case ListDelete:
		lists.Delete = append(lists.Delete, pack.Entry{Path: DeleteName(rel), Hash: sum, Delete: true})
	case ListDownloadIfMissing:
		lists.DownloadIfMissing = append(lists.DownloadIfMissing, pack.Entry{Path: rel, Hash: sum, URL: m.URLFor(rel), DownloadIfMissing: true})
	}
	return nil
}

func (m *Maker) guarded(rel string) bool {
	top, _, _ := strings.Cut(rel, "/")
	return (m.AddModsToDelete && strings.EqualFold(top, "mods")) ||
		(m.AddConfigToDelete && strings.EqualFold(top, "config"))
}

// URLFor joins BaseURL and a relative path, escaping each segment.
func (m *Maker) URLFor(rel string) string {
	segments := strings.Split(rel, "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return strings.TrimSuffix(m.BaseURL, "/") + "/" + strings.Join(segments, "/")
}

// DeleteName cuts the file name at its first + - _ so that every version of
// a file matches, e.g. mods/jei_1.20-15.2.jar becomes mods/jei. Names that
// start with a delimiter are kept whole.
func DeleteName(rel string) string {
	dir, name := path.Split(rel)
	if i := strings.IndexAny(name, nameDelimiters); i > 0 {
		name = name[:i]
	}
	return dir + name
}

// Load decodes a manifest file into lists.
func Load(file string) (*Lists, *pack.Manifest, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, nil, fmt.Errorf("read manifest %q: %w", file, err)
	}
	m := pack.Decode(string(data))
	return Split(m), m, nil
}
