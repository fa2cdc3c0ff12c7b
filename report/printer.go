package report

import (
	"fmt"
	"io"
	"time"

	"github.com/fatih/color"
)

// maxListedErrors caps the per-line errors printed in a summary.
const maxListedErrors = 20

// Printer renders summaries for a terminal.
type Printer struct {
	out       io.Writer
	useColors bool
}

// NewPrinter creates a printer writing to out.
func NewPrinter(out io.Writer, useColors bool) *Printer {
	return &Printer{out: out, useColors: useColors}
}

func (p *Printer) paint(attrs []color.Attribute, format string, args ...any) {
	if p.useColors {
		c := color.New(attrs...)
		c.EnableColor()
		c.Fprintf(p.out, format, args...)
		return
	}
	fmt.Fprintf(p.out, format, args...)
}

// Summary prints one run summary.
func (p *Printer) Summary(s Summary) {
	status := []color.Attribute{color.FgGreen, color.Bold}
	if s.Errored > 0 {
		status = []color.Attribute{color.FgYellow, color.Bold}
	}
	p.paint(status, "%s complete", s.Stage)
	if s.Input != "" {
		fmt.Fprintf(p.out, ": %s", s.Input)
		if s.Output != "" {
			fmt.Fprintf(p.out, " -> %s", s.Output)
		}
	}
	fmt.Fprintln(p.out)

	fmt.Fprintf(p.out, "  Run:       %s\n", s.RunID)
	if s.Namespace != "" {
		fmt.Fprintf(p.out, "  Namespace: %s\n", s.Namespace)
	}
	fmt.Fprintf(p.out, "  Records:   %d\n", s.Total())
	fmt.Fprintf(p.out, "  Processed: %d\n", s.Processed)
	fmt.Fprintf(p.out, "  Skipped (already had embeddings): %d\n", s.Skipped)
	if s.Errored > 0 {
		p.paint([]color.Attribute{color.FgRed}, "  Errors:    %d\n", s.Errored)
	} else {
		fmt.Fprintf(p.out, "  Errors:    %d\n", s.Errored)
	}
	fmt.Fprintf(p.out, "  Written:   %d lines\n", s.Written)
	fmt.Fprintf(p.out, "  Elapsed:   %s\n", s.Elapsed.Round(time.Millisecond))

	for i, e := range s.Errors {
		if i == maxListedErrors {
			fmt.Fprintf(p.out, "    ... and %d more\n", len(s.Errors)-maxListedErrors)
			break
		}
		fmt.Fprintf(p.out, "    line %d: %s\n", e.Line, e.Detail)
	}

	if u := s.Upload; u != nil {
		p.paint([]color.Attribute{color.FgCyan}, "  Upload accepted\n")
		fmt.Fprintf(p.out, "    Source ID:       %s\n", u.SourceID)
		fmt.Fprintf(p.out, "    Chunks created:  %d\n", u.ChunksCreated)
		fmt.Fprintf(p.out, "    Qdrant uploaded: %t\n", u.QdrantUploaded)
		if u.SourceTitle != "" {
			fmt.Fprintf(p.out, "    Source title:    %s\n", u.SourceTitle)
		}
		if u.Author != "" {
			fmt.Fprintf(p.out, "    Author:          %s\n", u.Author)
		}
	}
}

// Failure prints a fatal error for a run.
func (p *Printer) Failure(stage string, err error) {
	p.paint([]color.Attribute{color.FgRed, color.Bold}, "%s failed: ", stage)
	fmt.Fprintln(p.out, err)
}
