package types

import (
	"errors"
	"fmt"
	"time"
)

// ErrValidation is wrapped by every batch-level validation failure.
// A batch that fails validation has touched nothing on disk.
var ErrValidation = errors.New("validation failed")

// RenameOperation represents a single computed rename
type RenameOperation struct {
	SourcePath   string `json:"sourcePath"`
	OriginalName string `json:"originalName"`
	NewName      string `json:"newName"`
}

// ConflictAction records what a conflict strategy did to an operation
type ConflictAction string

const (
	ConflictSkipped     ConflictAction = "skipped"
	ConflictOverwritten ConflictAction = "overwritten"
	ConflictRenamed     ConflictAction = "renamed"
	ConflictBackedUp    ConflictAction = "backed-up"
)

// RenameResult is the authoritative record of what happened to one operation
type RenameResult struct {
	// ID is the index of the originating operation in the batch.
	ID                  int            `json:"id"`
	Success             bool           `json:"success"`
	SourcePath          string         `json:"sourcePath"`
	TargetPath          string         `json:"targetPath"`
	Error               string         `json:"error,omitempty"`
	ConflictAction      ConflictAction `json:"conflictAction,omitempty"`
	OriginalDestination string         `json:"originalDestination,omitempty"`
	BackupPath          string         `json:"backupPath,omitempty"`
	ConflictReason      string         `json:"conflictReason,omitempty"`
	// Merge lists what a directory merge moved, so it can be undone
	// entry by entry.
	Merge *MergeRecord `json:"merge,omitempty"`

	Err error `json:"-"`
}

// MergedEntry is one path moved by a directory merge, relative to both
// merged directories. Dir marks a directory merged into an existing one;
// BackupPath is where the destination file it replaced was moved.
type MergedEntry struct {
	Path       string `json:"path"`
	Dir        bool   `json:"dir,omitempty"`
	BackupPath string `json:"backupPath,omitempty"`
}

// MergeRecord lists merged entries in the order they were moved
type MergeRecord struct {
	Entries []MergedEntry `json:"entries"`
}

// Moved reports whether the merge changed anything on disk
func (m *MergeRecord) Moved() bool {
	return m != nil && len(m.Entries) > 0
}

// Fail marks the result as failed with err
func (r *RenameResult) Fail(err error) {
	r.Success = false
	r.Err = err
	r.Error = err.Error()
}

// NumberingFormat describes sequential numbering
type NumberingFormat struct {
	Prefix     string `json:"prefix,omitempty"`
	Start      int    `json:"start"`
	End        int    `json:"end"`
	Step       int    `json:"step"`
	Padding    int    `json:"padding"`
	SortByName bool   `json:"sortByName"`
}

// NewNumberingFormat builds a format whose padding follows the width of end,
// so numbers inserted later keep the same width.
func NewNumberingFormat(prefix string, start, end, step int, sortByName bool) NumberingFormat {
	return NumberingFormat{
		Prefix:     prefix,
		Start:      start,
		End:        end,
		Step:       step,
		Padding:    len(fmt.Sprint(end)),
		SortByName: sortByName,
	}
}

// RollbackInfo is the per-operation outcome needed to reverse it
type RollbackInfo struct {
	SourcePath     string         `json:"sourcePath"`
	TargetPath     string         `json:"targetPath"`
	Success        bool           `json:"success"`
	ConflictAction ConflictAction `json:"conflictAction,omitempty"`
	BackupPath     string         `json:"backupPath,omitempty"`
	Merge          *MergeRecord   `json:"merge,omitempty"`
}

// HistoryEntry is one recorded batch
type HistoryEntry struct {
	Timestamp    time.Time         `json:"timestamp"`
	Operations   []RenameOperation `json:"operations"`
	Directory    string            `json:"directory"`
	RollbackInfo []RollbackInfo    `json:"rollbackInfo"`
}

// NewHistoryEntry builds an entry from a batch and its results
func NewHistoryEntry(ops []RenameOperation, results []RenameResult, directory string, at time.Time) HistoryEntry {
	rollback := make([]RollbackInfo, 0, len(results))
	for _, r := range results {
		rollback = append(rollback, RollbackInfo{
			SourcePath:     r.SourcePath,
			TargetPath:     r.TargetPath,
			Success:        r.Success,
			ConflictAction: r.ConflictAction,
			BackupPath:     r.BackupPath,
			Merge:          r.Merge,
		})
	}
	return HistoryEntry{
		Timestamp:    at,
		Operations:   ops,
		Directory:    directory,
		RollbackInfo: rollback,
	}
}

// ExecOptions controls how a batch is executed
type ExecOptions struct {
	DryRun              bool
	Parallel            bool
	ConflictStrategy    string
	RenameSuffix        string
	MaxRenameAttempts   int
	BackupSuffix        string
	MaxConcurrency      int
	TaskTimeout         time.Duration
	ParallelThreshold   int
	PreserveTimestamps  bool
	PreservePermissions bool

	// Progress, if set, is called after each operation completes. Parallel
	// runs call it from several goroutines.
	Progress func(done, total int)
}

// DefaultExecOptions returns the options used when the caller sets nothing
func DefaultExecOptions() ExecOptions {
	return ExecOptions{
		ConflictStrategy:    "skip",
		RenameSuffix:        "_",
		MaxRenameAttempts:   100,
		BackupSuffix:        ".bak",
		MaxConcurrency:      8,
		TaskTimeout:         30 * time.Second,
		ParallelThreshold:   200,
		PreserveTimestamps:  true,
		PreservePermissions: true,
	}
}

// Summary counts results by outcome
type Summary struct {
	Total       int `json:"total"`
	Renamed     int `json:"renamed"`
	Unchanged   int `json:"unchanged"`
	Skipped     int `json:"skipped"`
	Overwritten int `json:"overwritten"`
	Suffixed    int `json:"suffixed"`
	BackedUp    int `json:"backed_up"`
	Failed      int `json:"failed"`
}

// Summarize tallies a result set
func Summarize(results []RenameResult) Summary {
	s := Summary{Total: len(results)}
	for _, r := range results {
		switch {
		case r.Error != "":
			s.Failed++
		case r.ConflictAction == ConflictSkipped:
			s.Skipped++
		case r.Success && r.SourcePath == r.TargetPath:
			s.Unchanged++
		case r.Success:
			s.Renamed++
		}
		switch r.ConflictAction {
		case ConflictOverwritten:
			s.Overwritten++
		case ConflictRenamed:
			s.Suffixed++
		case ConflictBackedUp:
			s.BackedUp++
		}
	}
	return s
}

// RenameEntry is a single rename in JSON output
type RenameEntry struct {
	From           string         `json:"from"`
	To             string         `json:"to"`
	Status         string         `json:"status"`
	ConflictAction ConflictAction `json:"conflict_action,omitempty"`
	Reason         string         `json:"reason,omitempty"`
	Error          string         `json:"error,omitempty"`
}

// OperationsOutput represents the complete JSON output
type OperationsOutput struct {
	DryRun  bool          `json:"dry_run"`
	Renames []RenameEntry `json:"renames"`
	Summary Summary       `json:"summary"`
}

// Config holds the application configuration
type Config struct {
	Path          string
	Pattern       string
	MaxDepth      int
	MinSize       int64
	MaxSize       int64
	NewerThan     *time.Time
	OlderThan     *time.Time
	Include       []string
	Exclude       []string
	IncludeHidden bool

	DryRun      bool
	Json        bool
	Tui         bool
	Verbose     bool
	LogFile     *string
	HistoryFile *string

	Exec ExecOptions
}

// Validate checks the configuration values are in range
func (c *Config) Validate() error {
	if c.Path == "" {
		return fmt.Errorf("%w: path is required", ErrValidation)
	}
	if c.MinSize < 0 || c.MaxSize < 0 {
		return fmt.Errorf("%w: size filters must not be negative", ErrValidation)
	}
	if c.MaxSize > 0 && c.MinSize > c.MaxSize {
		return fmt.Errorf("%w: min-size %d exceeds max-size %d", ErrValidation, c.MinSize, c.MaxSize)
	}
	if c.Exec.MaxConcurrency < 1 || c.Exec.MaxConcurrency > 256 {
		return fmt.Errorf("%w: max concurrency must be between 1 and 256", ErrValidation)
	}
	if c.Exec.TaskTimeout < time.Second || c.Exec.TaskTimeout > 10*time.Minute {
		return fmt.Errorf("%w: task timeout must be between 1s and 10m", ErrValidation)
	}
	if c.Exec.MaxRenameAttempts < 1 || c.Exec.MaxRenameAttempts > 10000 {
		return fmt.Errorf("%w: max rename attempts must be between 1 and 10000", ErrValidation)
	}
	if c.Exec.BackupSuffix == "" {
		return fmt.Errorf("%w: backup suffix must not be empty", ErrValidation)
	}
	return nil
}
