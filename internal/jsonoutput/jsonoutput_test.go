package jsonoutput

import (
	"encoding/json"
	"testing"

	"github.com/raulshma/devbox-sub000/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromOperations(t *testing.T) {
	ops := []types.RenameOperation{
		{SourcePath: "/lib/sub/b.txt", OriginalName: "b.txt", NewName: "B.txt"},
		{SourcePath: "/lib/a.txt", OriginalName: "a.txt", NewName: "a.txt"},
	}

	out := FromOperations(ops, "/lib")
	assert.True(t, out.DryRun)
	require.Len(t, out.Renames, 2)
	assert.Equal(t, types.RenameEntry{From: "a.txt", To: "a.txt", Status: StatusUnchanged}, out.Renames[0])
	assert.Equal(t, types.RenameEntry{From: "sub/b.txt", To: "sub/B.txt", Status: StatusPlanned}, out.Renames[1])
	assert.Equal(t, 2, out.Summary.Total)
}

func TestFromResults(t *testing.T) {
	results := []types.RenameResult{
		{ID: 0, Success: true, SourcePath: "/lib/c.txt", TargetPath: "/lib/c_1.txt", ConflictAction: types.ConflictRenamed, ConflictReason: "destination exists, using c_1.txt"},
		{ID: 1, SourcePath: "/lib/a.txt", TargetPath: "/lib/b.txt", ConflictAction: types.ConflictSkipped, ConflictReason: "destination exists"},
		{ID: 2, SourcePath: "/lib/z.txt", TargetPath: "/lib/y.txt", Error: "permission denied"},
	}

	out := FromResults(results, "/lib", false)
	assert.False(t, out.DryRun)
	require.Len(t, out.Renames, 3)
	assert.Equal(t, StatusSkipped, out.Renames[0].Status)
	assert.Equal(t, StatusRenamed, out.Renames[1].Status)
	assert.Equal(t, types.ConflictRenamed, out.Renames[1].ConflictAction)
	assert.Equal(t, StatusFailed, out.Renames[2].Status)
	assert.Equal(t, "permission denied", out.Renames[2].Error)

	assert.Equal(t, 1, out.Summary.Renamed)
	assert.Equal(t, 1, out.Summary.Suffixed)
	assert.Equal(t, 1, out.Summary.Skipped)
	assert.Equal(t, 1, out.Summary.Failed)
}

func TestToJSONShape(t *testing.T) {
	out := FromResults(nil, "/lib", true)
	s, err := ToJSON(out)
	require.NoError(t, err)

	var decoded map[string]json.RawMessage
	require.NoError(t, json.Unmarshal([]byte(s), &decoded))
	assert.JSONEq(t, "true", string(decoded["dry_run"]))
	assert.JSONEq(t, "[]", string(decoded["renames"]))
	assert.Contains(t, decoded, "summary")
}

func TestHistoryToJSON(t *testing.T) {
	s, err := HistoryToJSON(nil)
	require.NoError(t, err)
	assert.JSONEq(t, "[]", s)

	s, err = HistoryToJSON([]types.HistoryEntry{{Directory: "/lib"}})
	require.NoError(t, err)
	assert.Contains(t, s, `"rollbackInfo"`)
}

func TestMakeRelativePath(t *testing.T) {
	assert.Equal(t, "a/b.txt", makeRelativePath("/root/a/b.txt", "/root"))
	assert.Equal(t, "", makeRelativePath("/root", "/root"))
	assert.Equal(t, "../x.txt", makeRelativePath("/x.txt", "/root"))
}
