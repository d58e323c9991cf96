package ui

import (
	"fmt"
	"strings"
	"sync"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
	"github.com/raulshma/devbox-sub000/internal/types"
)

// ProgressBar represents a styled progress bar
type ProgressBar struct {
	progress progress.Model
	current  int
	total    int
	label    string
	mu       sync.Mutex
}

// NewProgressBar creates a new progress bar
func NewProgressBar(total int, label string) *ProgressBar {
	p := progress.New(
		progress.WithDefaultGradient(),
		progress.WithWidth(40),
		progress.WithoutPercentage(),
	)
	p.FullColor = string(ColorPrimary)
	p.EmptyColor = string(ColorMuted)

	return &ProgressBar{
		progress: p,
		current:  0,
		total:    total,
		label:    label,
	}
}

// Increment increments the progress
func (pb *ProgressBar) Increment() {
	pb.mu.Lock()
	defer pb.mu.Unlock()
	if pb.current < pb.total {
		pb.current++
	}
}

// SetCurrent sets the current value, never moving backwards
func (pb *ProgressBar) SetCurrent(n int) {
	pb.mu.Lock()
	defer pb.mu.Unlock()
	if n > pb.current {
		pb.current = min(n, pb.total)
	}
}

// Finished reports whether every step has been counted
func (pb *ProgressBar) Finished() bool {
	pb.mu.Lock()
	defer pb.mu.Unlock()
	return pb.current >= pb.total
}

// Percent returns completion in [0, 1]
func (pb *ProgressBar) Percent() float64 {
	pb.mu.Lock()
	defer pb.mu.Unlock()
	if pb.total == 0 {
		return 0
	}
	return float64(pb.current) / float64(pb.total)
}

// View returns the rendered progress bar
func (pb *ProgressBar) View() string {
	percent := pb.Percent()

	pb.mu.Lock()
	defer pb.mu.Unlock()
	bar := pb.progress.ViewAs(percent)
	countStr := CountStyle.Render(fmt.Sprintf("%d/%d", pb.current, pb.total))

	return fmt.Sprintf("%s %s %s", InfoStyle.Render(pb.label), bar, countStr)
}

// OperationSummary displays a summary of operations
type OperationSummary struct {
	types.Summary
	DryRun bool
}

// NewOperationSummary tallies results for display
func NewOperationSummary(results []types.RenameResult, dryRun bool) *OperationSummary {
	return &OperationSummary{Summary: types.Summarize(results), DryRun: dryRun}
}

// View returns the formatted summary
func (s *OperationSummary) View() string {
	var sb strings.Builder

	title := "📊 Operation Summary"
	if s.DryRun {
		title += " (dry run)"
	}
	sb.WriteString(TitleStyle.Render(title) + "\n")
	sb.WriteString(strings.Repeat("─", 40) + "\n\n")

	sb.WriteString(fmt.Sprintf("  %s Files processed:     %s\n",
		IconDot, RenderCount(s.Total)))

	if s.Renamed > 0 {
		sb.WriteString(fmt.Sprintf("  %s Files renamed:       %s\n",
			IconRename, RenderCount(s.Renamed)))
	}

	if s.Unchanged > 0 {
		sb.WriteString(fmt.Sprintf("  %s Unchanged:           %s\n",
			IconSame, MutedStyle.Render(fmt.Sprintf("%d", s.Unchanged))))
	}

	if s.Skipped > 0 {
		sb.WriteString(fmt.Sprintf("  %s Skipped:             %s\n",
			IconSkip, WarningStyle.Render(fmt.Sprintf("%d", s.Skipped))))
	}

	if s.Overwritten > 0 {
		sb.WriteString(fmt.Sprintf("  %s Overwritten:         %s\n",
			IconOverwrite, WarningStyle.Render(fmt.Sprintf("%d", s.Overwritten))))
	}

	if s.Suffixed > 0 {
		sb.WriteString(fmt.Sprintf("  %s Disambiguated:       %s\n",
			IconSuffix, InfoStyle.Render(fmt.Sprintf("%d", s.Suffixed))))
	}

	if s.BackedUp > 0 {
		sb.WriteString(fmt.Sprintf("  %s Backed up:           %s\n",
			IconBackup, InfoStyle.Render(fmt.Sprintf("%d", s.BackedUp))))
	}

	if s.Failed > 0 {
		sb.WriteString(fmt.Sprintf("  %s Errors:              %s\n",
			IconError, ErrorStyle.Render(fmt.Sprintf("%d", s.Failed))))
	}

	sb.WriteString("\n" + strings.Repeat("─", 40))

	return BoxStyle.Render(sb.String())
}

// FileTable displays a styled table of files
type FileTable struct {
	Headers []string
	Rows    [][]string
}

// NewFileTable creates a new file table
func NewFileTable(headers []string) *FileTable {
	return &FileTable{
		Headers: headers,
		Rows:    make([][]string, 0),
	}
}

// AddRow adds a row to the table
func (t *FileTable) AddRow(row ...string) {
	t.Rows = append(t.Rows, row)
}

// View renders the table
func (t *FileTable) View() string {
	if len(t.Rows) == 0 {
		return MutedStyle.Render("(no items)")
	}

	// Column widths in terminal cells, capped at 50
	widths := make([]int, len(t.Headers))
	for i, h := range t.Headers {
		widths[i] = runewidth.StringWidth(h)
	}
	for _, row := range t.Rows {
		for i, cell := range row {
			if w := runewidth.StringWidth(cell); i < len(widths) && w > widths[i] {
				widths[i] = min(w, 50)
			}
		}
	}

	var sb strings.Builder

	headerStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(ColorSecondary).
		BorderStyle(lipgloss.NormalBorder()).
		BorderBottom(true).
		BorderForeground(ColorMuted)

	var headerCells []string
	for i, h := range t.Headers {
		headerCells = append(headerCells, lipgloss.NewStyle().
			Width(widths[i]).
			Render(h))
	}
	sb.WriteString(headerStyle.Render(strings.Join(headerCells, "  ")))
	sb.WriteString("\n")

	for _, row := range t.Rows {
		var cells []string
		for i, cell := range row {
			if i < len(widths) {
				cells = append(cells, lipgloss.NewStyle().
					Width(widths[i]).
					Render(Truncate(cell, widths[i])))
			}
		}
		sb.WriteString(strings.Join(cells, "  "))
		sb.WriteString("\n")
	}

	return sb.String()
}
