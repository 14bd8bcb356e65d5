package commands

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/muesli/termenv"
	"go.trai.ch/stale/internal/core/domain"
	"go.trai.ch/stale/internal/ui/output"
	"go.trai.ch/stale/internal/ui/style"
)

type renderOptions struct {
	// Base is the directory paths are shown relative to.
	Base string
	// Quiet limits the report to stale outputs and drops the summary.
	Quiet bool
}

// renderReport writes one line per verdict followed by a summary.
func renderReport(w io.Writer, report *domain.Report, opts renderOptions) error {
	out := output.New(w)

	var b strings.Builder
	for _, v := range report.Verdicts {
		if !v.Stale && opts.Quiet {
			continue
		}

		badge := style.Verdict(v.Stale)
		status := output.Paint(out, badge.Text(), termenv.RGBColor(string(badge.Color)))
		source := output.Paint(out, "("+relative(opts.Base, v.Target.Template)+")", termenv.RGBColor(string(style.Slate)))
		fmt.Fprintf(&b, "%s %s %s\n", status, relative(opts.Base, v.Target.Output), source)
	}

	if !opts.Quiet {
		b.WriteString(summary(report) + "\n")
	}

	_, err := out.WriteString(b.String())
	return err
}

func summary(report *domain.Report) string {
	total, stale := len(report.Verdicts), report.StaleCount()
	if stale == 0 {
		return fmt.Sprintf("all %d %s up to date", total, plural(total, "output"))
	}
	return fmt.Sprintf("%d of %d %s stale", stale, total, plural(total, "output"))
}

func plural(n int, word string) string {
	if n == 1 {
		return word
	}
	return word + "s"
}

// relative shows path relative to base when it lies below it.
func relative(base, path string) string {
	if base == "" {
		return path
	}
	rel, err := filepath.Rel(base, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return path
	}
	return rel
}
