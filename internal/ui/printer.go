package ui

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/raulshma/devbox-sub000/internal/types"
)

const nameWidth = 40

// Printer handles all console output with rich styling
type Printer struct {
	out     io.Writer
	verbose bool
	json    bool
	mu      sync.Mutex
}

// NewPrinter creates a new printer writing to out
func NewPrinter(out io.Writer, verbose, json bool) *Printer {
	return &Printer{
		out:     out,
		verbose: verbose,
		json:    json,
	}
}

// Banner prints the application banner
func (p *Printer) Banner() {
	if p.json {
		return
	}

	banner := lipgloss.NewStyle().
		Bold(true).
		Foreground(ColorSecondary).
		Render(`
   ╔═══════════════════════════════════════╗
   ║      ✏️  Batch Renamer                ║
   ║   Rename, resolve conflicts, undo     ║
   ╚═══════════════════════════════════════╝
`)
	fmt.Fprintln(p.out, banner)
}

// DryRunBanner prints the dry run mode banner
func (p *Printer) DryRunBanner() {
	if p.json {
		return
	}

	banner := lipgloss.NewStyle().
		Bold(true).
		Background(ColorWarning).
		Foreground(ColorDark).
		Padding(0, 2).
		Render("🔍 DRY RUN MODE - No changes will be made")

	fmt.Fprintln(p.out)
	fmt.Fprintln(p.out, banner)
	fmt.Fprintln(p.out)
}

// Section prints a section header
func (p *Printer) Section(title string) {
	if p.json {
		return
	}

	header := SectionStyle.Render(title)
	fmt.Fprintln(p.out, header)
}

// ScanStart prints scan start message
func (p *Printer) ScanStart(path string) {
	if p.json {
		return
	}

	fmt.Fprintln(p.out, InfoStyle.Render(fmt.Sprintf("%s Scanning: ", IconSearch))+
		FilePathStyle.Render(path))
}

// ScanComplete prints scan completion message
func (p *Printer) ScanComplete(count int) {
	if p.json {
		return
	}

	fmt.Fprintln(p.out, RenderSuccess(fmt.Sprintf("Found %s files to process",
		CountStyle.Render(fmt.Sprintf("%d", count)))))
}

// PrintPreview prints the computed operations before execution
func (p *Printer) PrintPreview(ops []types.RenameOperation) {
	if p.json {
		return
	}

	var changes []types.RenameOperation
	for _, op := range ops {
		if op.OriginalName != op.NewName {
			changes = append(changes, op)
		}
	}

	if len(changes) == 0 {
		fmt.Fprintln(p.out, MutedStyle.Render("  (no renames needed)"))
		return
	}

	p.Section(fmt.Sprintf("%s Files to Rename (%d)", IconRename, len(changes)))

	for i, op := range changes {
		if i >= 20 && !p.verbose {
			remaining := len(changes) - 20
			fmt.Fprintln(p.out, MutedStyle.Render(fmt.Sprintf("  ... and %d more", remaining)))
			break
		}

		fmt.Fprintf(p.out, "  %s %s\n",
			MutedStyle.Render(fmt.Sprintf("%3d.", i+1)),
			RenderFileRename(Truncate(op.OriginalName, nameWidth), Truncate(op.NewName, nameWidth)))
	}
	fmt.Fprintln(p.out)
}

// PrintResults prints what happened to each operation. Unchanged files are
// only listed in verbose mode.
func (p *Printer) PrintResults(results []types.RenameResult) {
	if p.json {
		return
	}

	p.Section(fmt.Sprintf("%s Results", IconRename))

	shown := 0
	for _, r := range results {
		if r.Success && r.SourcePath == r.TargetPath && !p.verbose {
			continue
		}
		if shown >= 20 && !p.verbose {
			fmt.Fprintln(p.out, MutedStyle.Render("  ... more results hidden, use --verbose"))
			break
		}
		shown++
		fmt.Fprintln(p.out, "  "+p.resultLine(r))
	}
	if shown == 0 {
		fmt.Fprintln(p.out, MutedStyle.Render("  (nothing changed)"))
	}
	fmt.Fprintln(p.out)
}

func (p *Printer) resultLine(r types.RenameResult) string {
	from := Truncate(filepath.Base(r.SourcePath), nameWidth)
	to := Truncate(filepath.Base(r.TargetPath), nameWidth)

	switch {
	case r.Error != "":
		return RenderError(from + " " + ErrorStyle.Render(r.Error))
	case r.ConflictAction == types.ConflictSkipped:
		line := RenderFileSkipped(from) + " " + RenderConflict(r.ConflictAction)
		if r.ConflictReason != "" {
			line += " " + MutedStyle.Render("("+r.ConflictReason+")")
		}
		return line
	case r.SourcePath == r.TargetPath:
		return MutedStyle.Render(IconSame+" "+from)
	}

	line := SuccessStyle.Render(IconSuccess) + " " + RenderFileRename(from, to)
	if r.ConflictAction != "" {
		line += " " + RenderConflict(r.ConflictAction)
	}
	if r.BackupPath != "" {
		line += " " + MutedStyle.Render("backup: "+filepath.Base(r.BackupPath))
	}
	return line
}

// PrintHistory prints recorded batches, newest first
func (p *Printer) PrintHistory(entries []types.HistoryEntry) {
	if p.json {
		return
	}

	if len(entries) == 0 {
		fmt.Fprintln(p.out, MutedStyle.Render("  (history is empty)"))
		return
	}

	p.Section(fmt.Sprintf("%s History (%d)", IconHistory, len(entries)))

	table := NewFileTable([]string{"#", "When", "Directory", "Files", "Renamed"})
	for i := len(entries) - 1; i >= 0; i-- {
		e := entries[i]
		renamed := 0
		for _, rb := range e.RollbackInfo {
			if rb.Success && rb.SourcePath != rb.TargetPath {
				renamed++
			}
		}
		table.AddRow(
			fmt.Sprintf("%d", len(entries)-i),
			e.Timestamp.Local().Format("2006-01-02 15:04:05"),
			e.Directory,
			fmt.Sprintf("%d", len(e.Operations)),
			fmt.Sprintf("%d", renamed),
		)
	}
	fmt.Fprintln(p.out, table.View())
}

// PrintSummary prints the operation summary
func (p *Printer) PrintSummary(summary *OperationSummary) {
	if p.json {
		return
	}

	fmt.Fprintln(p.out, summary.View())
}

// Progress redraws a progress bar in place. It is safe to call from the
// executor's parallel workers.
func (p *Printer) Progress(pb *ProgressBar) {
	if p.json {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprint(p.out, "\r"+pb.View())
	if pb.Finished() {
		fmt.Fprintln(p.out)
	}
}

// Success prints a success message
func (p *Printer) Success(msg string) {
	if p.json {
		return
	}
	fmt.Fprintln(p.out, RenderSuccess(msg))
}

// Warning prints a warning message
func (p *Printer) Warning(msg string) {
	if p.json {
		return
	}
	fmt.Fprintln(p.out, RenderWarning(msg))
}

// Error prints an error message
func (p *Printer) Error(msg string) {
	if p.json {
		return
	}
	fmt.Fprintln(p.out, RenderError(msg))
}

// Info prints an info message
func (p *Printer) Info(msg string) {
	if p.json {
		return
	}
	fmt.Fprintln(p.out, RenderInfo(msg))
}

// Divider prints a divider line
func (p *Printer) Divider() {
	if p.json {
		return
	}
	fmt.Fprintln(p.out, MutedStyle.Render(strings.Repeat("─", 50)))
}

// Done prints the completion message
func (p *Printer) Done() {
	if p.json {
		return
	}

	done := lipgloss.NewStyle().
		Bold(true).
		Foreground(ColorPrimary).
		Render(fmt.Sprintf("\n%s Operation completed successfully!", IconSuccess))

	fmt.Fprintln(p.out, done)
}
