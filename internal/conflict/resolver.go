package conflict

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/raulshma/devbox-sub000/internal/fsops"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
)

// Options configures a Resolver
type Options struct {
	Strategy           Strategy
	RenameSuffix       string
	MaxRenameAttempts  int
	BackupSuffix       string
	PreserveTimestamps bool
}

// DefaultOptions returns skip with the usual suffixes and a 100 attempt cap
func DefaultOptions() Options {
	return Options{
		Strategy:           Skip,
		RenameSuffix:       "_",
		MaxRenameAttempts:  100,
		BackupSuffix:       ".bak",
		PreserveTimestamps: true,
	}
}

// FileConflict describes a source whose destination already exists
type FileConflict struct {
	Source      string
	Destination string
	SourceStats os.FileInfo
	DestStats   os.FileInfo

	fs        afero.Fs
	identical *bool
}

// Identical compares contents, hashing only when the sizes agree. The
// answer is cached so a conflict is hashed at most once.
func (c *FileConflict) Identical() (bool, error) {
	if c.identical != nil {
		return *c.identical, nil
	}

	same := false
	if c.SourceStats.Mode().IsRegular() && c.DestStats.Mode().IsRegular() && c.SourceStats.Size() == c.DestStats.Size() {
		srcSum, err := computeMD5(c.fs, c.Source)
		if err != nil {
			return false, fmt.Errorf("checksum %s: %w", c.Source, err)
		}
		dstSum, err := computeMD5(c.fs, c.Destination)
		if err != nil {
			return false, fmt.Errorf("checksum %s: %w", c.Destination, err)
		}
		same = srcSum == dstSum
	}
	c.identical = &same
	return same, nil
}

type resolveFunc func(r *Resolver, c *FileConflict, kind OperationKind) (Resolution, error)

// resolvers holds one decision function per strategy
var resolvers = map[Strategy]resolveFunc{
	Skip:          resolveSkip,
	Overwrite:     resolveOverwrite,
	Rename:        resolveRename,
	KeepNewer:     resolveKeepNewer,
	KeepOlder:     resolveKeepOlder,
	KeepLarger:    resolveKeepLarger,
	KeepSmaller:   resolveKeepSmaller,
	Backup:        resolveBackup,
	SkipIdentical: resolveSkipIdentical,
	Merge:         resolveMerge,
}

// Resolver decides what to do when a destination exists
type Resolver struct {
	fs   afero.Fs
	opts Options
}

// NewResolver creates a resolver, filling unset options with defaults
func NewResolver(fs afero.Fs, opts Options) *Resolver {
	def := DefaultOptions()
	if opts.RenameSuffix == "" {
		opts.RenameSuffix = def.RenameSuffix
	}
	if opts.MaxRenameAttempts <= 0 {
		opts.MaxRenameAttempts = def.MaxRenameAttempts
	}
	if opts.BackupSuffix == "" {
		opts.BackupSuffix = def.BackupSuffix
	}
	return &Resolver{fs: fs, opts: opts}
}

// Strategy returns the active strategy
func (r *Resolver) Strategy() Strategy {
	return r.opts.Strategy
}

// Resolve decides the fate of moving or copying src onto dst. It only reads
// metadata; backups are created separately by CreateBackup.
func (r *Resolver) Resolve(src, dst string, kind OperationKind) (Resolution, error) {
	destStats, err := r.fs.Stat(dst)
	if errors.Is(err, os.ErrNotExist) {
		return Resolution{Action: ActionProceed, Reason: "destination is free"}, nil
	}
	if err != nil {
		return Resolution{}, err
	}
	srcStats, err := r.fs.Stat(src)
	if err != nil {
		return Resolution{}, err
	}

	fn, ok := resolvers[r.opts.Strategy]
	if !ok {
		return Resolution{}, fmt.Errorf("%w: %s", ErrUnknownStrategy, r.opts.Strategy)
	}

	c := &FileConflict{Source: src, Destination: dst, SourceStats: srcStats, DestStats: destStats, fs: r.fs}
	res, err := fn(r, c, kind)
	if err != nil {
		return Resolution{}, err
	}

	log.Debug().
		Str("source", src).
		Str("destination", dst).
		Str("strategy", r.opts.Strategy.String()).
		Str("action", res.Action.String()).
		Str("reason", res.Reason).
		Msg("Resolved conflict")
	return res, nil
}

func resolveSkip(_ *Resolver, _ *FileConflict, _ OperationKind) (Resolution, error) {
	return Resolution{Action: ActionSkip, Reason: "destination exists"}, nil
}

func resolveOverwrite(_ *Resolver, _ *FileConflict, _ OperationKind) (Resolution, error) {
	return Resolution{Action: ActionProceed, Reason: "overwriting destination"}, nil
}

func resolveRename(r *Resolver, c *FileConflict, _ OperationKind) (Resolution, error) {
	candidate, ok := r.UniqueName(c.Destination)
	if !ok {
		return Resolution{
			Action: ActionSkip,
			Reason: fmt.Sprintf("no free name after %d attempts", r.opts.MaxRenameAttempts),
		}, nil
	}
	return Resolution{Action: ActionRename, NewDestination: candidate, Reason: "destination exists, using " + filepath.Base(candidate)}, nil
}

func resolveKeepNewer(_ *Resolver, c *FileConflict, _ OperationKind) (Resolution, error) {
	if c.SourceStats.ModTime().After(c.DestStats.ModTime()) {
		return Resolution{Action: ActionProceed, Reason: "source is newer"}, nil
	}
	return Resolution{Action: ActionSkip, Reason: "destination is not older than source"}, nil
}

func resolveKeepOlder(_ *Resolver, c *FileConflict, _ OperationKind) (Resolution, error) {
	if c.SourceStats.ModTime().Before(c.DestStats.ModTime()) {
		return Resolution{Action: ActionProceed, Reason: "source is older"}, nil
	}
	return Resolution{Action: ActionSkip, Reason: "destination is not newer than source"}, nil
}

func resolveKeepLarger(_ *Resolver, c *FileConflict, _ OperationKind) (Resolution, error) {
	if c.SourceStats.Size() > c.DestStats.Size() {
		return Resolution{Action: ActionProceed, Reason: "source is larger"}, nil
	}
	return Resolution{Action: ActionSkip, Reason: "destination is not smaller than source"}, nil
}

func resolveKeepSmaller(_ *Resolver, c *FileConflict, _ OperationKind) (Resolution, error) {
	if c.SourceStats.Size() < c.DestStats.Size() {
		return Resolution{Action: ActionProceed, Reason: "source is smaller"}, nil
	}
	return Resolution{Action: ActionSkip, Reason: "destination is not larger than source"}, nil
}

func resolveBackup(r *Resolver, c *FileConflict, _ OperationKind) (Resolution, error) {
	backup, err := r.BackupPathFor(c.Destination)
	if err != nil {
		return Resolution{}, err
	}
	return Resolution{Action: ActionBackup, BackupPath: backup, Reason: "backing up destination to " + filepath.Base(backup)}, nil
}

func resolveSkipIdentical(_ *Resolver, c *FileConflict, _ OperationKind) (Resolution, error) {
	same, err := c.Identical()
	if err != nil {
		return Resolution{}, err
	}
	if same {
		return Resolution{Action: ActionSkip, Reason: "destination has identical content"}, nil
	}
	return Resolution{Action: ActionProceed, Reason: "contents differ"}, nil
}

func resolveMerge(_ *Resolver, c *FileConflict, _ OperationKind) (Resolution, error) {
	if c.SourceStats.IsDir() && c.DestStats.IsDir() {
		return Resolution{Action: ActionProceed, Reason: "merging directories"}, nil
	}
	return Resolution{Action: ActionSkip, Reason: "merge needs two directories"}, nil
}

// UniqueName probes stem+suffix+n+ext for n = 1..MaxRenameAttempts and
// returns the first that does not exist.
func (r *Resolver) UniqueName(dst string) (string, bool) {
	dir := filepath.Dir(dst)
	base := filepath.Base(dst)
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	if stem == "" {
		stem, ext = base, ""
	}

	for n := 1; n <= r.opts.MaxRenameAttempts; n++ {
		candidate := filepath.Join(dir, fmt.Sprintf("%s%s%d%s", stem, r.opts.RenameSuffix, n, ext))
		if !fsops.Exists(r.fs, candidate) {
			return candidate, true
		}
	}
	return "", false
}

// BackupPathFor returns dst+BackupSuffix, or dst+BackupSuffix+".n" when
// that is taken.
func (r *Resolver) BackupPathFor(dst string) (string, error) {
	backup := dst + r.opts.BackupSuffix
	if !fsops.Exists(r.fs, backup) {
		return backup, nil
	}
	for n := 1; n <= r.opts.MaxRenameAttempts; n++ {
		candidate := fmt.Sprintf("%s.%d", backup, n)
		if !fsops.Exists(r.fs, candidate) {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("%w for %s after %d attempts", ErrBackupExhausted, dst, r.opts.MaxRenameAttempts)
}

// CreateBackup copies dst to backupPath, keeping its timestamps when
// configured to.
func (r *Resolver) CreateBackup(dst, backupPath string) error {
	err := fsops.CopyFile(r.fs, dst, backupPath, fsops.MoveOptions{
		PreservePermissions: true,
		PreserveTimestamps:  r.opts.PreserveTimestamps,
	})
	if err != nil {
		return fmt.Errorf("backup %s: %w", dst, err)
	}
	log.Debug().Str("file", dst).Str("backup", backupPath).Msg("Created backup")
	return nil
}
