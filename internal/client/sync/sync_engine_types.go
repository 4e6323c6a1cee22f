package sync

import (
	"context"
	"fmt"
	"time"

	"github.com/flier268/Minecraft-updater/internal/fetch"
	"github.com/flier268/Minecraft-updater/internal/pack"
)

// Color hints how a user facing message should be rendered.
type Color string

const (
	ColorDefault Color = ""
	ColorInfo    Color = "info"
	ColorSuccess Color = "success"
	ColorWarning Color = "warning"
	ColorError   Color = "error"
)

// Observer receives progress and user facing messages. Nil fields are
// ignored. An engine built WithObserver never calls it concurrently, and
// progress never goes backwards.
type Observer struct {
	OnProgress func(current, total int)
	OnLog      func(message string, color Color)
}

func (o Observer) progress(current, total int) {
	if o.OnProgress != nil {
		o.OnProgress(current, total)
	}
}

func (o Observer) log(message string, color Color) {
	if o.OnLog != nil {
		o.OnLog(message, color)
	}
}

// Logf formats a message for OnLog.
func (o Observer) Logf(color Color, format string, args ...any) {
	if o.OnLog != nil {
		o.OnLog(fmt.Sprintf(format, args...), color)
	}
}

// Action is what a pass does with a single path.
type Action string

const (
	ActionDelete   Action = "delete"
	ActionKeep     Action = "keep"
	ActionDownload Action = "download"
	ActionSkip     Action = "skip"
)

// Reason explains an Action.
type Reason string

const (
	ReasonMissing       Reason = "missing"
	ReasonHashMismatch  Reason = "hash mismatch"
	ReasonNoHash        Reason = "no hash declared"
	ReasonUpToDate      Reason = "up to date"
	ReasonPresent       Reason = "present"
	ReasonDuplicate     Reason = "duplicate path"
	ReasonDeleteGuard   Reason = "differs from deletion entry"
	ReasonProtectedHash Reason = "hash matches deletion entry"
)

// PlannedOp is a single decision of a pass.
type PlannedOp struct {
	Path   string // slash separated, relative to the sync root
	Action Action
	Reason Reason
	Entry  pack.Entry
}

// Plan is the set of decisions a pass would make without making them.
type Plan struct {
	Deletions      []PlannedOp
	Transfers      []PlannedOp // downloads and skips of non deletion entries, in manifest order
	Rejected       []*pack.ValidationError
	Warnings       []*pack.ParseError
	MinimumVersion string
}

// Total is the number of progress units of the pass.
func (p *Plan) Total() int {
	return len(p.Transfers)
}

func (p *Plan) Downloads() []PlannedOp {
	var out []PlannedOp
	for _, op := range p.Transfers {
		if op.Action == ActionDownload {
			out = append(out, op)
		}
	}
	return out
}

// FileError is a per file failure that did not abort the pass.
type FileError struct {
	Path string
	Err  error
}

func (e FileError) Error() string {
	return e.Path + ": " + e.Err.Error()
}

// SyncResult summarizes a pass.
type SyncResult struct {
	Total      int
	Completed  int
	Downloaded []string
	Skipped    []string
	Deleted    []string
	Kept       []string
	Failed     []FileError
	Rejected   []*pack.ValidationError
	Warnings   []*pack.ParseError

	MinimumVersion string
	Duration       time.Duration
}

func (r *SyncResult) HasErrors() bool {
	return len(r.Failed) > 0
}

// Fetcher is the network boundary of the engine.
type Fetcher interface {
	FetchText(ctx context.Context, url string) (string, error)
	DownloadVerified(ctx context.Context, url, dest, expectedHash string, opts ...fetch.DownloadOption) error
	Redact(url string) string
}

var _ Fetcher = (*fetch.Client)(nil)
