package fsops

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
)

// MoveOptions controls what a cross-device fallback copy carries over
type MoveOptions struct {
	PreservePermissions bool
	PreserveTimestamps  bool
}

// Exists reports whether path exists. Stat errors other than not-exist are
// treated as existing so callers never clobber a path they cannot inspect.
func Exists(fs afero.Fs, path string) bool {
	_, err := fs.Stat(path)
	if err == nil {
		return true
	}
	return !errors.Is(err, os.ErrNotExist)
}

// IsCaseOnlyRename reports whether src and dst differ only in letter case.
func IsCaseOnlyRename(src, dst string) bool {
	return src != dst && strings.EqualFold(filepath.Clean(src), filepath.Clean(dst))
}

// SameFile reports whether a and b resolve to the same file, as case
// variants do on case-insensitive filesystems.
func SameFile(fs afero.Fs, a, b string) bool {
	ai, err := fs.Stat(a)
	if err != nil {
		return false
	}
	bi, err := fs.Stat(b)
	if err != nil {
		return false
	}
	return os.SameFile(ai, bi)
}

// FreeForCaseRename reports whether src can be recased to dst: dst is
// either missing or src itself seen through a case-insensitive filesystem.
func FreeForCaseRename(fs afero.Fs, src, dst string) bool {
	return IsCaseOnlyRename(src, dst) && (!Exists(fs, dst) || SameFile(fs, src, dst))
}

// IsCrossDevice reports whether err is the "invalid cross-device link" error
// returned by rename(2) when src and dst live on different filesystems.
func IsCrossDevice(err error) bool {
	return errors.Is(err, syscall.EXDEV)
}

// Move renames src to dst. When the rename crosses a device boundary it falls
// back to copy-then-delete, reapplying mode and times as requested.
func Move(fs afero.Fs, src, dst string, opts MoveOptions) error {
	err := fs.Rename(src, dst)
	if err == nil {
		return nil
	}
	if !IsCrossDevice(err) {
		return err
	}

	log.Debug().Str("from", src).Str("to", dst).Msg("Cross-device rename, falling back to copy")

	info, err := fs.Stat(src)
	if err != nil {
		return err
	}
	if info.IsDir() {
		return fmt.Errorf("cannot move directory %s across devices", src)
	}
	if err := CopyFile(fs, src, dst, opts); err != nil {
		return err
	}
	if err := fs.Remove(src); err != nil {
		return fmt.Errorf("copied to %s but failed to remove source: %w", dst, err)
	}
	return nil
}

// CopyFile copies the regular file src to dst, replacing dst.
func CopyFile(fs afero.Fs, src, dst string, opts MoveOptions) error {
	info, err := fs.Stat(src)
	if err != nil {
		return err
	}

	in, err := fs.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := fs.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("copy %s: %w", src, err)
	}
	if err := out.Close(); err != nil {
		return err
	}

	if opts.PreservePermissions {
		if err := fs.Chmod(dst, info.Mode()); err != nil {
			return fmt.Errorf("preserve mode on %s: %w", dst, err)
		}
	}
	if opts.PreserveTimestamps {
		if err := fs.Chtimes(dst, info.ModTime(), info.ModTime()); err != nil {
			return fmt.Errorf("preserve times on %s: %w", dst, err)
		}
	}
	return nil
}
