// Package report renders the end-of-run summary.
package report

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/aretw0/clapper/internal/presentation/tui"
	"github.com/aretw0/clapper/pkg/domain"
	"github.com/muesli/termenv"
	"golang.org/x/term"
)

// Summary is everything the reporter shows. It is only read.
type Summary struct {
	RunID      string
	LogPath    string
	StatePath  string
	StartedAt  time.Time
	FinishedAt time.Time
	DryRun     bool
	ExitCode   int
	Outcomes   []domain.StageOutcome

	// Replay marks a summary rebuilt from a state sink after the fact. The
	// exit code is not part of the state and is not shown.
	Replay bool
}

// Failed returns the first outcome that failed, if any.
func (s Summary) Failed() (domain.StageOutcome, bool) {
	for _, o := range s.Outcomes {
		if o.Status.IsFailure() {
			return o, true
		}
	}
	return domain.StageOutcome{}, false
}

// Markdown renders the summary as a markdown document.
func Markdown(s Summary) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Pipeline run %s\n\n", s.RunID)
	if s.DryRun {
		b.WriteString("_Dry run: no stage was executed._\n\n")
	}

	b.WriteString("| Stage | Status | Duration |\n")
	b.WriteString("|-------|--------|----------|\n")
	for _, o := range s.Outcomes {
		fmt.Fprintf(&b, "| %s | %s | %ds |\n", o.Stage, o.Status, o.DurationSeconds())
	}
	if len(s.Outcomes) == 0 {
		b.WriteString("| _none_ | | |\n")
	}
	b.WriteString("\n")

	fmt.Fprintf(&b, "- **Log:** `%s`\n", s.LogPath)
	fmt.Fprintf(&b, "- **State:** `%s`\n", s.StatePath)
	fmt.Fprintf(&b, "- **Started:** %s\n", s.StartedAt.UTC().Format(time.RFC3339))
	fmt.Fprintf(&b, "- **Finished:** %s (%s)\n",
		s.FinishedAt.UTC().Format(time.RFC3339),
		s.FinishedAt.Sub(s.StartedAt).Truncate(time.Second))
	if s.Replay {
		b.WriteString("- **Exit code:** n/a (read from state)\n")
	} else {
		fmt.Fprintf(&b, "- **Exit code:** %d\n", s.ExitCode)
	}
	return b.String()
}

// Verdict is the one-line result of the run.
func Verdict(s Summary) string {
	if s.Replay {
		if failed, ok := s.Failed(); ok {
			return fmt.Sprintf("Pipeline stopped at %s (%s)", failed.Stage, failed.Status)
		}
		return fmt.Sprintf("%d stage outcomes recorded", len(s.Outcomes))
	}
	if failed, ok := s.Failed(); ok && s.ExitCode != domain.ExitOK {
		return fmt.Sprintf("Pipeline %s at %s (exit code %d)", strings.ToLower(failed.Status.String()), failed.Stage, s.ExitCode)
	}
	if s.ExitCode != domain.ExitOK {
		return fmt.Sprintf("Pipeline aborted (exit code %d)", s.ExitCode)
	}
	if s.DryRun {
		return "Dry run complete"
	}
	return "Pipeline completed successfully"
}

// Reporter writes summaries to an output.
type Reporter struct {
	out    io.Writer
	styled bool
}

// Option configures a Reporter.
type Option func(*Reporter)

// WithStyled forces styled (true) or plain (false) output.
func WithStyled(styled bool) Option {
	return func(r *Reporter) {
		r.styled = styled
	}
}

// New creates a reporter. Output is styled when out is a terminal.
func New(out io.Writer, opts ...Option) *Reporter {
	r := &Reporter{out: out, styled: isTerminal(out)}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// Render writes the summary.
func (r *Reporter) Render(s Summary) error {
	md := Markdown(s)
	verdict := Verdict(s)

	if !r.styled {
		_, err := fmt.Fprintf(r.out, "%s\n%s\n", md, verdict)
		return err
	}

	render, err := tui.NewRenderer()
	if err != nil {
		return fmt.Errorf("failed to create renderer: %w", err)
	}
	rendered, err := render(md)
	if err != nil {
		return fmt.Errorf("failed to render summary: %w", err)
	}

	p := termenv.ColorProfile()
	color := "#22c55e"
	_, failed := s.Failed()
	switch {
	case s.ExitCode != domain.ExitOK, s.Replay && failed:
		color = "#ef4444"
	case s.DryRun:
		color = "#818cf8"
	}
	line := termenv.String(verdict).Foreground(p.Color(color)).Bold()

	_, err = fmt.Fprintf(r.out, "%s\n%s\n", rendered, line)
	return err
}
