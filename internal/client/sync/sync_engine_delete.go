package sync

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/flier268/Minecraft-updater/internal/client/workspace"
	"github.com/flier268/Minecraft-updater/internal/hashing"
	"github.com/flier268/Minecraft-updater/internal/pack"
)

// deletionDelimiters separate a file name from its version suffix, as in
// "OptiFine_HD_U_E3.jar" or "jei-1.12.2-4.16.jar".
const deletionDelimiters = "+-_"

// matchesDeletion reports whether the local file rel is targeted by the
// deletion entry path entryPath. Both are slash separated and relative to
// the sync root; rel must sit in the same directory as entryPath.
//
// A file matches when it equals entryPath, or when it starts with entryPath
// followed by a delimiter ("mods/B" matches "mods/B-1.0.jar"), or when it
// starts with entryPath without its extension followed by a delimiter and
// carries the same extension ("mods/B.jar" matches "mods/B-1.0.jar").
// Comparisons ignore case.
func matchesDeletion(rel, entryPath string) bool {
	if strings.EqualFold(rel, entryPath) {
		return true
	}
	if hasDelimitedPrefix(rel, entryPath) {
		return true
	}

	ext := path.Ext(entryPath)
	if ext == "" || !strings.EqualFold(path.Ext(rel), ext) {
		return false
	}
	return hasDelimitedPrefix(rel, strings.TrimSuffix(entryPath, ext))
}

func hasDelimitedPrefix(s, prefix string) bool {
	if prefix == "" || len(s) <= len(prefix)+1 {
		return false
	}
	return strings.EqualFold(s[:len(prefix)], prefix) && strings.IndexByte(deletionDelimiters, s[len(prefix)]) >= 0
}

// planDeletion lists the files in the directory of e that match it. A match
// whose content already has the entry's hash is kept.
func (se *SyncEngine) planDeletion(e pack.Entry) []PlannedOp {
	rel := workspace.NormPath(e.Path)
	dir := path.Dir(rel)

	absDir, err := se.workspace.AbsPath(dir)
	if err != nil {
		se.logger.Warn("sync", "op", ActionDelete, "path", rel, "error", err)
		return nil
	}

	dirEntries, err := os.ReadDir(absDir)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			se.logger.Warn("sync", "op", ActionDelete, "path", rel, "error", err)
		}
		return nil
	}

	var ops []PlannedOp
	for _, de := range dirEntries {
		if de.IsDir() {
			continue
		}

		candidate := de.Name()
		if dir != "." {
			candidate = dir + "/" + de.Name()
		}
		if !matchesDeletion(candidate, rel) {
			continue
		}

		abs := filepath.Join(absDir, de.Name())
		if abs == se.workspace.LockPath() {
			continue
		}

		if e.Hash != "" {
			sum, err := se.hasher.HashMatching(abs, e.Hash)
			if err != nil {
				se.logger.Warn("sync", "op", ActionDelete, "path", candidate, "error", err)
			} else if hashing.Equal(sum, e.Hash) {
				ops = append(ops, PlannedOp{Path: candidate, Action: ActionKeep, Reason: ReasonProtectedHash, Entry: e})
				continue
			}
		}

		ops = append(ops, PlannedOp{Path: candidate, Action: ActionDelete, Reason: ReasonDeleteGuard, Entry: e})
	}
	return ops
}

// applyDeletions removes the planned files. Failures are recorded and the
// pass goes on.
func (se *SyncEngine) applyDeletions(ops []PlannedOp, result *SyncResult) {
	for _, op := range ops {
		if op.Action == ActionKeep {
			se.logger.Debug("sync", "op", ActionKeep, "path", op.Path, "reason", op.Reason)
			result.Kept = append(result.Kept, op.Path)
			continue
		}

		abs, err := se.workspace.AbsPath(op.Path)
		if err == nil {
			err = os.Remove(abs)
		}

		switch {
		case err == nil:
			se.logger.Info("sync", "op", ActionDelete, "path", op.Path, "entry", op.Entry.Path)
			se.observer.log("Deleted "+op.Path, ColorWarning)
			result.Deleted = append(result.Deleted, op.Path)
		case errors.Is(err, fs.ErrNotExist):
			se.logger.Debug("sync", "op", ActionDelete, "path", op.Path, "message", "file was already deleted")
		default:
			inUse := &FileInUseError{Path: op.Path, Err: err}
			se.logger.Error("sync", "op", ActionDelete, "path", op.Path, "error", err)
			se.observer.log(fmt.Sprintf("Could not delete %s, is the game still running?", op.Path), ColorError)
			result.Failed = append(result.Failed, FileError{Path: op.Path, Err: inUse})
		}
	}
}
