package conflict

import (
	"errors"
	"fmt"
	"strings"

	"github.com/raulshma/devbox-sub000/internal/types"
)

var (
	// ErrUnknownStrategy is returned by ParseStrategy for an unrecognised name.
	ErrUnknownStrategy = fmt.Errorf("%w: unknown conflict strategy", types.ErrValidation)
	// ErrUnsupportedInParallel marks an operation whose conflict needs a
	// strategy that cannot be resolved race-free by concurrent workers.
	ErrUnsupportedInParallel = errors.New("conflict strategy not supported under parallelism")
	// ErrBackupExhausted is returned when no free backup name is found.
	ErrBackupExhausted = errors.New("no free backup name")
)

// Strategy is the policy applied when a destination already exists
type Strategy int

const (
	Skip Strategy = iota
	Overwrite
	Rename
	KeepNewer
	KeepOlder
	KeepLarger
	KeepSmaller
	Backup
	SkipIdentical
	Merge
)

var strategyNames = map[Strategy]string{
	Skip:          "skip",
	Overwrite:     "overwrite",
	Rename:        "rename",
	KeepNewer:     "keep-newer",
	KeepOlder:     "keep-older",
	KeepLarger:    "keep-larger",
	KeepSmaller:   "keep-smaller",
	Backup:        "backup",
	SkipIdentical: "skip-identical",
	Merge:         "merge",
}

// Strategies lists every strategy in declaration order
func Strategies() []Strategy {
	return []Strategy{Skip, Overwrite, Rename, KeepNewer, KeepOlder, KeepLarger, KeepSmaller, Backup, SkipIdentical, Merge}
}

func (s Strategy) String() string {
	if name, ok := strategyNames[s]; ok {
		return name
	}
	return fmt.Sprintf("strategy(%d)", int(s))
}

// ParallelSafe reports whether concurrent workers can apply s without
// racing each other's existence checks.
func (s Strategy) ParallelSafe() bool {
	return s == Skip || s == Overwrite
}

// ParseStrategy maps a strategy name to its value
func ParseStrategy(name string) (Strategy, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for s, n := range strategyNames {
		if n == name {
			return s, nil
		}
	}
	return Skip, fmt.Errorf("%w: %q", ErrUnknownStrategy, name)
}

// Action is a strategy's verdict for one conflict
type Action int

const (
	ActionSkip Action = iota
	ActionProceed
	ActionRename
	ActionBackup
)

func (a Action) String() string {
	switch a {
	case ActionSkip:
		return "skip"
	case ActionProceed:
		return "proceed"
	case ActionRename:
		return "rename"
	case ActionBackup:
		return "backup"
	default:
		return "unknown"
	}
}

// OperationKind tells the resolver whether the source survives the operation
type OperationKind int

const (
	OperationMove OperationKind = iota
	OperationCopy
)

// Resolution is the outcome of resolving one conflict
type Resolution struct {
	Action         Action
	NewDestination string
	BackupPath     string
	Reason         string
}
