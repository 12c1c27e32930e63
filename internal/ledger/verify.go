package ledger

import (
	"errors"
	"fmt"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// ErrRewritten indicates that existing log content was changed rather than appended to.
var ErrRewritten = errors.New("log content was rewritten")

// Verification is the result of comparing a log snapshot with its current content.
type Verification struct {
	Appended []string // lines added after the snapshot, in order
	Patch    string   // diff-match-patch text from snapshot to current; empty for pure appends
}

// Verify checks the append-only contract between an earlier snapshot of a log
// and its current content. The snapshot must be a prefix of current. On a
// rewrite it returns ErrRewritten and a Verification whose Patch shows the change.
// Line endings are normalized before comparing.
func Verify(snapshot, current string) (*Verification, error) {
	snapshot = normalize(snapshot)
	current = normalize(current)

	if strings.HasPrefix(current, snapshot) {
		return &Verification{Appended: splitLines(current[len(snapshot):])}, nil
	}

	dmp := diffmatchpatch.New()
	diffs := dmp.DiffMain(snapshot, current, false)
	patchText := dmp.PatchToText(dmp.PatchMake(snapshot, diffs))

	return &Verification{Patch: patchText}, fmt.Errorf("%w: %d byte(s) of earlier content changed",
		ErrRewritten, changedBytes(diffs))
}

// changedBytes counts snapshot bytes that were deleted from the log.
func changedBytes(diffs []diffmatchpatch.Diff) int {
	n := 0
	for _, d := range diffs {
		if d.Type == diffmatchpatch.DiffDelete {
			n += len(d.Text)
		}
	}
	return n
}

// normalize converts CRLF to LF.
func normalize(s string) string {
	return strings.ReplaceAll(s, "\r\n", "\n")
}

func splitLines(s string) []string {
	s = strings.TrimSuffix(s, "\n")
	if s == "" {
		return nil
	}
	return strings.Split(s, "\n")
}
