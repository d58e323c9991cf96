package ui

import (
	"bytes"
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/raulshma/devbox-sub000/internal/types"
	"github.com/stretchr/testify/assert"
)

func init() {
	// Force color output for testing
	lipgloss.SetColorProfile(termenv.TrueColor)
}

func TestRenderSuccess(t *testing.T) {
	msg := "Operation successful"
	output := RenderSuccess(msg)

	// Check content
	assert.Contains(t, output, msg)
	assert.Contains(t, output, IconSuccess)

	// Check style (rough check for ANSI codes)
	// We just want to ensure it's not raw text.
	assert.NotEqual(t, IconSuccess+" "+msg, output)
}

func TestRenderError(t *testing.T) {
	msg := "Something went wrong"
	output := RenderError(msg)

	assert.Contains(t, output, msg)
	assert.Contains(t, output, IconError)
}

func TestRenderWarning(t *testing.T) {
	msg := "Be careful"
	output := RenderWarning(msg)

	assert.Contains(t, output, msg)
	assert.Contains(t, output, IconWarning)
}

func TestRenderInfo(t *testing.T) {
	msg := "Just a note"
	output := RenderInfo(msg)

	assert.Contains(t, output, msg)
	assert.Contains(t, output, IconInfo)
}

func TestRenderFileRename(t *testing.T) {
	oldName := "old.txt"
	newName := "new.txt"
	output := RenderFileRename(oldName, newName)

	assert.Contains(t, output, oldName)
	assert.Contains(t, output, newName)
	assert.Contains(t, output, IconArrowRight)
}

func TestRenderFileSkipped(t *testing.T) {
	name := "skipped.txt"
	output := RenderFileSkipped(name)

	// Strikethrough may be applied per character, so only spot-check letters.
	assert.Contains(t, output, "s")
	assert.Contains(t, output, "k")

	// \x1b[9m is strikethrough, possibly folded into a longer SGR sequence.
	assert.True(t, strings.Contains(output, ";9m") || strings.Contains(output, "\x1b[9m"), "Expected strikethrough ansi code")
}

func TestRenderConflict(t *testing.T) {
	testCases := []struct {
		action   types.ConflictAction
		expected string
	}{
		{types.ConflictSkipped, "skipped"},
		{types.ConflictOverwritten, "overwritten"},
		{types.ConflictRenamed, "renamed"},
		{types.ConflictBackedUp, "backed up"},
	}

	for _, tc := range testCases {
		assert.Contains(t, RenderConflict(tc.action), tc.expected)
	}
	assert.Empty(t, RenderConflict(""))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short.txt", Truncate("short.txt", 20))
	assert.Equal(t, "abcdefg...", Truncate("abcdefghijklmnop", 10))
	// Wide runes count as two cells.
	assert.Equal(t, "日本...", Truncate("日本語のファイル名.txt", 7))
}

func TestRenderCount(t *testing.T) {
	count := 42
	output := RenderCount(count)

	assert.Contains(t, output, "42")
}

func TestOperationSummaryView(t *testing.T) {
	results := []types.RenameResult{
		{Success: true, SourcePath: "/d/a", TargetPath: "/d/b"},
		{Success: true, SourcePath: "/d/c", TargetPath: "/d/c_1", ConflictAction: types.ConflictRenamed},
		{SourcePath: "/d/e", TargetPath: "/d/f", ConflictAction: types.ConflictSkipped},
		{SourcePath: "/d/g", TargetPath: "/d/h", Error: "permission denied"},
	}
	view := NewOperationSummary(results, true).View()

	assert.Contains(t, view, "dry run")
	assert.Contains(t, view, "Files renamed")
	assert.Contains(t, view, "Disambiguated")
	assert.Contains(t, view, "Skipped")
	assert.Contains(t, view, "Errors")
	assert.NotContains(t, view, "Backed up")
}

func TestFileTableView(t *testing.T) {
	table := NewFileTable([]string{"Name", "Size"})
	assert.Contains(t, table.View(), "no items")

	table.AddRow("photo.jpg", "12")
	table.AddRow(strings.Repeat("x", 80), "3")
	view := table.View()
	assert.Contains(t, view, "photo.jpg")
	assert.Contains(t, view, "...")
	assert.NotContains(t, view, strings.Repeat("x", 51))
}

func TestPrinterResults(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf, false, false)

	p.PrintResults([]types.RenameResult{
		{Success: true, SourcePath: "/d/old.txt", TargetPath: "/d/new.txt"},
		{Success: true, SourcePath: "/d/same.txt", TargetPath: "/d/same.txt"},
		{Success: true, SourcePath: "/d/x.txt", TargetPath: "/d/y.txt", ConflictAction: types.ConflictBackedUp, BackupPath: "/d/y.txt.bak"},
		{SourcePath: "/d/bad.txt", TargetPath: "/d/worse.txt", Error: "permission denied"},
	})

	out := buf.String()
	assert.Contains(t, out, "old.txt")
	assert.Contains(t, out, "new.txt")
	assert.Contains(t, out, "y.txt.bak")
	assert.Contains(t, out, "permission denied")
	assert.NotContains(t, out, "same.txt")
}

func TestPrinterJSONModeIsSilent(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf, false, true)

	p.Banner()
	p.PrintPreview([]types.RenameOperation{{SourcePath: "/d/a", OriginalName: "a", NewName: "b"}})
	p.Success("done")
	p.PrintHistory(nil)

	assert.Empty(t, buf.String())
}

func TestPrinterHistoryNewestFirst(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf, false, false)

	p.PrintHistory([]types.HistoryEntry{
		{Directory: "/older", Operations: make([]types.RenameOperation, 2)},
		{Directory: "/newer", Operations: make([]types.RenameOperation, 1)},
	})

	out := buf.String()
	assert.Less(t, strings.Index(out, "/newer"), strings.Index(out, "/older"))
}

func TestProgressBar(t *testing.T) {
	pb := NewProgressBar(4, "Renaming")
	assert.False(t, pb.Finished())

	pb.SetCurrent(3)
	pb.SetCurrent(2)
	assert.InDelta(t, 0.75, pb.Percent(), 0.001)

	pb.Increment()
	pb.Increment()
	assert.True(t, pb.Finished())
	assert.Contains(t, pb.View(), "4/4")
}
