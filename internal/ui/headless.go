package ui

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"golang.org/x/term"

	"github.com/mosmello93/focus-timer/internal/usecase"
)

// IsInteractive reports whether f is a terminal the TUI can drive.
func IsInteractive(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// Reporter prints one line per meaningful change of the timer. It is the
// front-end used when no terminal is attached (service, redirected output).
type Reporter struct {
	out  io.Writer
	now  func() time.Time
	last *usecase.View
}

// NewReporter creates a reporter writing to out.
func NewReporter(out io.Writer) *Reporter {
	return &Reporter{out: out, now: time.Now}
}

// Report prints v when its mode, exhausted state, connectivity or notice
// changed since the last report.
func (r *Reporter) Report(v usecase.View) {
	if r.last != nil && !changed(*r.last, v) {
		return
	}
	line := StatusLine(v)
	if v.Notice != "" && (r.last == nil || r.last.Notice != v.Notice) {
		line += fmt.Sprintf(" notice=%q", v.Notice)
	}
	fmt.Fprintf(r.out, "%s %s\n", r.now().Format("15:04:05"), line)
	r.last = &v
}

func changed(a, b usecase.View) bool {
	return a.Mode != b.Mode ||
		a.Exhausted != b.Exhausted ||
		a.Connected != b.Connected ||
		a.ConnectivityKnown != b.ConnectivityKnown ||
		(b.Notice != "" && a.Notice != b.Notice)
}

// RunHeadless reports views until ctx is canceled or views is closed.
func RunHeadless(ctx context.Context, views <-chan usecase.View, out io.Writer) error {
	r := NewReporter(out)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case v, ok := <-views:
			if !ok {
				return nil
			}
			r.Report(v)
		}
	}
}
