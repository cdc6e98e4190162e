// Package report emits the line-oriented progress log and the final summary.
package report

import (
	"fmt"
	"io"

	"github.com/naka-gawa/github-forker/internal/domain"
)

// Emitter receives one notice per processed repository plus the final tally.
type Emitter interface {
	Skip(repo domain.Repository, target string)
	Fork(repo domain.Repository, target string)
	Fail(repo domain.Repository, err error)
	Summary(tally domain.Tally)
}

// Text writes the human-readable report the CLI prints to stdout.
type Text struct {
	w io.Writer
}

// NewText creates a Text emitter writing to w.
func NewText(w io.Writer) *Text {
	return &Text{w: w}
}

func (t *Text) Skip(repo domain.Repository, target string) {
	fmt.Fprintf(t.w, "[skip] %s (already exists at %s)\n", repo.FullName(), target)
}

func (t *Text) Fork(repo domain.Repository, target string) {
	fmt.Fprintf(t.w, "[fork] %s -> %s/%s\n", repo.FullName(), target, repo.Name)
}

func (t *Text) Fail(repo domain.Repository, err error) {
	fmt.Fprintf(t.w, "[fail] %s: %v\n", repo.FullName(), err)
}

func (t *Text) Summary(tally domain.Tally) {
	fmt.Fprintf(t.w, "created: %d\nskipped: %d\nfailed:  %d\n", tally.Created, tally.Skipped, tally.Failed)
}
