package packmaker

import (
	"bufio"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"
	gitignore "github.com/sabhiram/go-gitignore"

	"github.com/flier268/Minecraft-updater/internal/utils"
)

const ignoreFile = ".packignore"

var defaultIgnoreLines = []string{
	// updater
	ignoreFile,
	".minecraft_updater.lock",
	"*.tmp.*",
	"*.temp.*",
	"Minecraft_updater.log",
	// launcher noise
	"logs/",
	"crash-reports/",
	"*.log",
	// OS-specific
	".DS_Store",
	"Thumbs.db",
	"desktop.ini",
}

// IgnoreList decides which files under the pack root never become entries:
// the built in defaults, the root's .packignore and any extra doublestar
// patterns.
type IgnoreList struct {
	baseDir  string
	excludes []string
	ignore   *gitignore.GitIgnore
}

func NewIgnoreList(baseDir string, excludes ...string) *IgnoreList {
	return &IgnoreList{baseDir: baseDir, excludes: excludes}
}

func (l *IgnoreList) Load() {
	ignorePath := filepath.Join(l.baseDir, ignoreFile)
	ignoreLines := append([]string(nil), defaultIgnoreLines...)

	if utils.FileExists(ignorePath) {
		ignoreLines = append(ignoreLines, readIgnoreLines(ignorePath)...)
	}

	l.ignore = gitignore.CompileIgnoreLines(ignoreLines...)
}

func readIgnoreLines(path string) []string {
	file, err := os.Open(path)
	if err != nil {
		slog.Warn("failed to open pack ignore file", "path", path, "error", err)
		return nil
	}
	defer file.Close()

	var lines []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		if line := scanner.Text(); line != "" {
			lines = append(lines, line)
		}
	}

	if err := scanner.Err(); err != nil {
		slog.Warn("error reading pack ignore file", "path", path, "error", err)
	} else {
		slog.Debug("loaded pack ignore file", "path", path, "rules", len(lines))
	}
	return lines
}

// ShouldIgnore takes a slash separated path relative to the base dir.
func (l *IgnoreList) ShouldIgnore(rel string) bool {
	if l.ignore == nil {
		l.Load()
	}
	if l.ignore.MatchesPath(rel) {
		return true
	}
	for _, pattern := range l.excludes {
		if ok, _ := doublestar.Match(pattern, rel); ok {
			return true
		}
	}
	return false
}
