// Package tui renders CLI output: styled summaries, progress bars,
// warning listings. No interactive widgets, just clean prints.
package tui

import (
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/schollz/progressbar/v3"

	"github.com/resflow/resflow/internal/model"
	"github.com/resflow/resflow/pkg/grid"
)

// Colors (Swiss minimal)
var (
	accent  = lipgloss.Color("#FF0000")
	muted   = lipgloss.Color("#666666")
	success = lipgloss.Color("#00CC66")
	white   = lipgloss.Color("#FFFFFF")
)

// Styles
var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(white)
	accentStyle  = lipgloss.NewStyle().Foreground(accent).Bold(true)
	mutedStyle   = lipgloss.NewStyle().Foreground(muted)
	successStyle = lipgloss.NewStyle().Foreground(success).Bold(true)
)

// Summary describes a finished extraction for printing.
type Summary struct {
	Case     string
	Property string
	Shape    string
	Markers  int
	Steps    int
	Warnings []model.Warning
	Array    *grid.Array
	SavedTo  string
	Duration time.Duration
}

// PrintSummary prints the post-conversion report.
func PrintSummary(s *Summary) {
	fmt.Println()
	fmt.Println(successStyle.Render("  ✓ EXTRACTION COMPLETE"))
	fmt.Println()
	fmt.Printf("  %s %s / %s\n", mutedStyle.Render("Case:"), titleStyle.Render(s.Case), titleStyle.Render(s.Property))
	fmt.Printf("  %s %s\n", mutedStyle.Render("Shape:"), titleStyle.Render(s.Shape))
	fmt.Printf("  %s %d markers, %d populated\n", mutedStyle.Render("Steps:"), s.Markers, s.Steps)

	if s.Array != nil && s.Array.NT > 0 {
		first, last := s.Array.Stats(0), s.Array.Stats(s.Array.NT-1)
		fmt.Printf("  %s %.4g … %.4g (first step), %.4g … %.4g (last step)\n",
			mutedStyle.Render("Range:"), first.Min, first.Max, last.Min, last.Max)
	}
	if s.SavedTo != "" {
		fmt.Printf("  %s %s\n", mutedStyle.Render("Saved:"), s.SavedTo)
	}
	if s.Duration > 0 {
		fmt.Printf("  %s %s\n", mutedStyle.Render("Time:"), formatDuration(s.Duration))
	}

	PrintWarnings(s.Warnings)
	fmt.Println()
}

// PrintWarnings lists structured warnings, capped to keep long
// degraded parses readable.
func PrintWarnings(warnings []model.Warning) {
	if len(warnings) == 0 {
		return
	}
	fmt.Println()
	fmt.Println(accentStyle.Render(fmt.Sprintf("  %d warning(s)", len(warnings))))
	const maxShown = 10
	for i, w := range warnings {
		if i == maxShown {
			fmt.Println(mutedStyle.Render(fmt.Sprintf("  … and %d more", len(warnings)-maxShown)))
			break
		}
		fmt.Println(mutedStyle.Render("  " + w.String()))
	}
}

// ShowProgress creates a byte progress bar for parsing.
func ShowProgress(total int64, description string) *progressbar.ProgressBar {
	return progressbar.NewOptions64(total,
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowBytes(true),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "█",
			SaucerHead:    "█",
			SaucerPadding: "░",
			BarStart:      "",
			BarEnd:        "",
		}),
		progressbar.OptionThrottle(100*time.Millisecond),
		progressbar.OptionClearOnFinish(),
	)
}

// ClearLine clears the current line.
func ClearLine() {
	fmt.Print("\r\033[K")
}

// Infof prints a muted informational line.
func Infof(format string, args ...interface{}) {
	fmt.Println(mutedStyle.Render("  " + fmt.Sprintf(format, args...)))
}

// formatDuration formats a duration in a human-readable way.
func formatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
}
