package sync

import (
	"os"

	"github.com/flier268/Minecraft-updater/internal/hashing"
	"github.com/flier268/Minecraft-updater/internal/pack"
)

// planTransfer decides whether a non deletion entry needs a download.
// Download-if-missing entries are never hash checked once present.
func (se *SyncEngine) planTransfer(rel string, e pack.Entry) PlannedOp {
	op := PlannedOp{Path: rel, Action: ActionDownload, Reason: ReasonMissing, Entry: e}

	dest, err := se.workspace.AbsPath(rel)
	if err != nil {
		return op
	}

	if _, err := os.Stat(dest); err != nil {
		return op
	}

	switch {
	case e.DownloadIfMissing:
		op.Action, op.Reason = ActionSkip, ReasonPresent
	case e.Hash == "":
		op.Reason = ReasonNoHash
	default:
		sum, err := se.hasher.HashMatching(dest, e.Hash)
		if err == nil && hashing.Equal(sum, e.Hash) {
			op.Action, op.Reason = ActionSkip, ReasonUpToDate
		} else {
			op.Reason = ReasonHashMismatch
		}
	}
	return op
}
