// Package installer applies a one-time text patch to a host source file.
package installer

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
)

var (
	// ErrAnchorNotFound is returned when the anchor does not match the target file.
	ErrAnchorNotFound = errors.New("patch anchor not found")
	// ErrMarkerNotInBlock is returned when the patch block does not contain its marker,
	// which would make the patch reapply on every run.
	ErrMarkerNotInBlock = errors.New("patch block does not contain the marker")
)

// Defaults patch a host server file right after it registers its object_info routes.
const (
	DefaultMarker = "// objinfo:patched"
	DefaultAnchor = `(\n\ttable\.Handle\(http\.MethodGet, objinfo\.RouteNode, [^\n]*\n)`
	DefaultBlock  = "\t// objinfo:patched\n\tinstallObjectInfo(table)\n"
)

// Result reports what Install did.
type Result int

// Install results.
const (
	Patched Result = iota
	AlreadyPatched
)

func (r Result) String() string {
	if r == AlreadyPatched {
		return "already patched"
	}

	return "patched"
}

// Options describe a patch. Block is inserted right after the anchor's first capture
// group, or after the whole match when the anchor has no group. The anchor is matched
// with "." also matching newlines.
type Options struct {
	Anchor string
	Marker string
	Block  string
}

// DefaultOptions returns the patch used by the patch command when no flags override it.
func DefaultOptions() Options {
	return Options{Anchor: DefaultAnchor, Marker: DefaultMarker, Block: DefaultBlock}
}

// BackupPath returns where Install keeps the pre-patch copy of path.
func BackupPath(path string) string {
	return path + ".bak"
}

// Install patches the file at path once. A file that already contains the marker is left
// untouched. Otherwise the original content is written to BackupPath(path), replacing an
// older backup, and the patched content replaces the file through a rename.
func Install(fs afero.Fs, path string, opts Options) (Result, error) {
	if opts.Marker == "" || !strings.Contains(opts.Block, opts.Marker) {
		return 0, ErrMarkerNotInBlock
	}

	content, err := afero.ReadFile(fs, path)
	if err != nil {
		return 0, fmt.Errorf("read target: %w", err)
	}

	if bytes.Contains(content, []byte(opts.Marker)) {
		log.Info().Str("event", "patch_present").Str("file", path).Msg("patch already installed")
		return AlreadyPatched, nil
	}

	re, err := regexp.Compile("(?s)" + opts.Anchor)
	if err != nil {
		return 0, fmt.Errorf("compile anchor: %w", err)
	}
	loc := re.FindSubmatchIndex(content)
	if loc == nil {
		return 0, ErrAnchorNotFound
	}
	at := loc[1]
	if len(loc) >= 4 && loc[3] >= 0 {
		at = loc[3]
	}

	patched := make([]byte, 0, len(content)+len(opts.Block))
	patched = append(patched, content[:at]...)
	patched = append(patched, opts.Block...)
	patched = append(patched, content[at:]...)

	info, err := fs.Stat(path)
	if err != nil {
		return 0, fmt.Errorf("stat target: %w", err)
	}

	if err := writeBackup(fs, BackupPath(path), content, info.Mode().Perm()); err != nil {
		return 0, err
	}
	if err := replaceFile(fs, path, patched, info.Mode().Perm()); err != nil {
		return 0, err
	}

	log.Info().
		Str("event", "patch_installed").
		Str("file", path).
		Str("backup", BackupPath(path)).
		Msg("patch installed")

	return Patched, nil
}

func writeBackup(fs afero.Fs, path string, content []byte, perm os.FileMode) error {
	if err := fs.Remove(path); err != nil && !isNotExist(fs, path) {
		return fmt.Errorf("remove old backup: %w", err)
	}
	if err := afero.WriteFile(fs, path, content, perm); err != nil {
		return fmt.Errorf("write backup: %w", err)
	}

	return nil
}

// replaceFile writes content to a temporary file next to path and renames it over path.
func replaceFile(fs afero.Fs, path string, content []byte, perm os.FileMode) error {
	dir, base := filepath.Split(path)
	if dir == "" {
		dir = "."
	}

	tmp, err := afero.TempFile(fs, dir, "."+base+".tmp*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()

	_, werr := tmp.Write(content)
	cerr := tmp.Close()
	if err := errors.Join(werr, cerr); err != nil {
		_ = fs.Remove(tmpName)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := fs.Chmod(tmpName, perm); err != nil {
		_ = fs.Remove(tmpName)
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := fs.Rename(tmpName, path); err != nil {
		_ = fs.Remove(tmpName)
		return fmt.Errorf("replace target: %w", err)
	}

	return nil
}

func isNotExist(fs afero.Fs, path string) bool {
	ok, err := afero.Exists(fs, path)
	return err == nil && !ok
}
