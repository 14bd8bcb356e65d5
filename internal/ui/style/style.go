// Package style holds the colours and icons shared by the report and the logger.
package style

import "github.com/charmbracelet/lipgloss"

// Colours.
var (
	Slate  = lipgloss.Color("#667085")
	Green  = lipgloss.Color("#22A06B")
	Red    = lipgloss.Color("#D93025")
	Yellow = lipgloss.Color("#F59E0B")
)

// Icons.
const (
	Check   = "✓"
	Cross   = "✗"
	Warning = "!"
)

// Badge is how one verdict is shown in a report.
type Badge struct {
	Icon  string
	Label string
	Color lipgloss.Color
}

// Text is the icon followed by the label.
func (b Badge) Text() string {
	return b.Icon + " " + b.Label
}

var (
	// Fresh marks an output that is up to date with its templates.
	Fresh = Badge{Icon: Check, Label: "fresh", Color: Green}
	// Stale marks an output that must be recompiled.
	Stale = Badge{Icon: Cross, Label: "stale", Color: Red}
)

// Verdict returns the badge for a staleness verdict.
func Verdict(stale bool) Badge {
	if stale {
		return Stale
	}
	return Fresh
}
