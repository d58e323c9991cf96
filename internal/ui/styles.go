package ui

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
	"github.com/raulshma/devbox-sub000/internal/types"
)

// Color Palette - Monokai-inspired theme
var (
	ColorPrimary   = lipgloss.Color("#A6E22E") // Green
	ColorSecondary = lipgloss.Color("#66D9EF") // Cyan
	ColorAccent    = lipgloss.Color("#F92672") // Magenta/Pink
	ColorWarning   = lipgloss.Color("#FD971F") // Orange
	ColorError     = lipgloss.Color("#F92672") // Red/Pink
	ColorMuted     = lipgloss.Color("#75715E") // Gray
	ColorHighlight = lipgloss.Color("#E6DB74") // Yellow
	ColorWhite     = lipgloss.Color("#F8F8F2") // White
	ColorDark      = lipgloss.Color("#272822") // Dark background
)

// Base Styles
var (
	// Title styles
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorSecondary).
			MarginBottom(1)

	SubtitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorMuted)

	// Section header
	SectionStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorHighlight).
			BorderStyle(lipgloss.NormalBorder()).
			BorderBottom(true).
			BorderForeground(ColorMuted).
			MarginTop(1).
			MarginBottom(1)

	// Success message
	SuccessStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorPrimary)

	// Warning message
	WarningStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorWarning)

	// Error message
	ErrorStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorError)

	// Info message
	InfoStyle = lipgloss.NewStyle().
			Foreground(ColorSecondary)

	// Muted text
	MutedStyle = lipgloss.NewStyle().
			Foreground(ColorMuted)

	// File path style
	FilePathStyle = lipgloss.NewStyle().
			Foreground(ColorWhite)

	// New file name style
	NewNameStyle = lipgloss.NewStyle().
			Foreground(ColorSecondary).
			Bold(true)

	// Arrow style
	ArrowStyle = lipgloss.NewStyle().
			Foreground(ColorAccent).
			Bold(true)

	// Skipped style
	SkippedStyle = lipgloss.NewStyle().
			Foreground(ColorMuted).
			Strikethrough(true)

	// Conflict style
	ConflictStyle = lipgloss.NewStyle().
			Foreground(ColorWarning).
			Bold(true)

	// Count/number style
	CountStyle = lipgloss.NewStyle().
			Foreground(ColorHighlight).
			Bold(true)

	// Box styles
	BoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorMuted).
			Padding(1, 2)

	// Summary box
	SummaryBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.DoubleBorder()).
			BorderForeground(ColorSecondary).
			Padding(1, 2).
			MarginTop(1)

	// Badge styles
	BadgeSuccess = lipgloss.NewStyle().
			Background(ColorPrimary).
			Foreground(ColorDark).
			Bold(true).
			Padding(0, 1)

	BadgeWarning = lipgloss.NewStyle().
			Background(ColorWarning).
			Foreground(ColorDark).
			Bold(true).
			Padding(0, 1)

	BadgeError = lipgloss.NewStyle().
			Background(ColorError).
			Foreground(ColorWhite).
			Bold(true).
			Padding(0, 1)

	BadgeInfo = lipgloss.NewStyle().
			Background(ColorSecondary).
			Foreground(ColorDark).
			Bold(true).
			Padding(0, 1)
)

// Icons
const (
	IconSuccess    = "✓"
	IconError      = "✗"
	IconWarning    = "⚠"
	IconInfo       = "ℹ"
	IconRename     = "✏️"
	IconSearch     = "🔍"
	IconArrowRight = "→"
	IconDot        = "•"
	IconSkip       = "⏭"
	IconOverwrite  = "♻"
	IconSuffix     = "#"
	IconBackup     = "💾"
	IconUndo       = "↩"
	IconHistory    = "🕘"
	IconSame       = "="
)

// Helper functions
func RenderSuccess(msg string) string {
	return SuccessStyle.Render(IconSuccess+" ") + msg
}

func RenderError(msg string) string {
	return ErrorStyle.Render(IconError+" ") + msg
}

func RenderWarning(msg string) string {
	return WarningStyle.Render(IconWarning+" ") + msg
}

func RenderInfo(msg string) string {
	return InfoStyle.Render(IconInfo+" ") + msg
}

func RenderFileRename(oldName, newName string) string {
	return FilePathStyle.Render(oldName) + " " +
		ArrowStyle.Render(IconArrowRight) + " " +
		NewNameStyle.Render(newName)
}

func RenderFileSkipped(name string) string {
	return SkippedStyle.Render(name)
}

func RenderConflict(action types.ConflictAction) string {
	switch action {
	case types.ConflictSkipped:
		return ConflictStyle.Render(IconSkip + " skipped")
	case types.ConflictOverwritten:
		return ConflictStyle.Render(IconOverwrite + " overwritten")
	case types.ConflictRenamed:
		return ConflictStyle.Render(IconSuffix + " renamed")
	case types.ConflictBackedUp:
		return ConflictStyle.Render(IconBackup + " backed up")
	}
	return ""
}

func RenderCount(count int) string {
	return CountStyle.Render(fmt.Sprintf("%d", count))
}

// Truncate shortens s to at most width terminal cells
func Truncate(s string, width int) string {
	return runewidth.Truncate(s, width, "...")
}
