package jsonoutput

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/raulshma/devbox-sub000/internal/types"
)

const (
	StatusPlanned   = "planned"
	StatusRenamed   = "renamed"
	StatusUnchanged = "unchanged"
	StatusSkipped   = "skipped"
	StatusFailed    = "failed"
)

// FromOperations creates an OperationsOutput for a preview that has not
// been executed
func FromOperations(ops []types.RenameOperation, targetDir string) *types.OperationsOutput {
	renames := []types.RenameEntry{}
	for _, op := range ops {
		status := StatusPlanned
		if op.OriginalName == op.NewName {
			status = StatusUnchanged
		}
		renames = append(renames, types.RenameEntry{
			From:   makeRelativePath(op.SourcePath, targetDir),
			To:     makeRelativePath(filepath.Join(filepath.Dir(op.SourcePath), op.NewName), targetDir),
			Status: status,
		})
	}
	sortEntries(renames)

	return &types.OperationsOutput{
		DryRun:  true,
		Renames: renames,
		Summary: types.Summary{Total: len(ops)},
	}
}

// FromResults creates an OperationsOutput from executed results
func FromResults(results []types.RenameResult, targetDir string, dryRun bool) *types.OperationsOutput {
	renames := []types.RenameEntry{}
	for _, r := range results {
		renames = append(renames, types.RenameEntry{
			From:           makeRelativePath(r.SourcePath, targetDir),
			To:             makeRelativePath(r.TargetPath, targetDir),
			Status:         status(r),
			ConflictAction: r.ConflictAction,
			Reason:         r.ConflictReason,
			Error:          r.Error,
		})
	}
	sortEntries(renames)

	return &types.OperationsOutput{
		DryRun:  dryRun,
		Renames: renames,
		Summary: types.Summarize(results),
	}
}

func status(r types.RenameResult) string {
	switch {
	case r.Error != "":
		return StatusFailed
	case r.ConflictAction == types.ConflictSkipped:
		return StatusSkipped
	case r.SourcePath == r.TargetPath:
		return StatusUnchanged
	case r.Success:
		return StatusRenamed
	}
	return StatusSkipped
}

// Sort renames by 'from' path for deterministic output
func sortEntries(entries []types.RenameEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].From < entries[j].From
	})
}

// ToJSON converts the OperationsOutput to a JSON string
func ToJSON(output *types.OperationsOutput) (string, error) {
	return marshal(output)
}

// HistoryToJSON converts recorded batches to a JSON string
func HistoryToJSON(entries []types.HistoryEntry) (string, error) {
	if entries == nil {
		entries = []types.HistoryEntry{}
	}
	return marshal(entries)
}

func marshal(v any) (string, error) {
	jsonBytes, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", fmt.Errorf("JSON serialization failed: %w", err)
	}
	return string(jsonBytes), nil
}

// makeRelativePath converts an absolute path to a relative path using forward slashes
func makeRelativePath(path, targetDir string) string {
	relPath, err := filepath.Rel(targetDir, path)
	if err != nil {
		// Fallback to absolute path if relative conversion fails
		relPath = path
	}

	// Convert to forward slashes for JSON output (POSIX-style)
	relPath = strings.ReplaceAll(relPath, "\\", "/")

	if relPath == "." {
		relPath = ""
	}

	return relPath
}
