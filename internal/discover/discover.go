// Package discover implements the default Discoverer (supplemented
// feature, see SPEC_FULL.md): it walks one or more mail-profile roots
// looking for mbox files, optionally including a client's "Local Folders"
// subtree and filtering paths against an exclusion regex list.
package discover

import (
	"context"
	"io/fs"
	"path/filepath"
	"regexp"

	"github.com/rotisserie/eris"

	"github.com/nmartinon/mboxzilla-go/internal/ports"
)

// WalkFunc walks a default discoverer's roots; New sets it to
// filepath.WalkDir against the real filesystem.
type WalkFunc func(root string, fn fs.WalkDirFunc) error

// Default is the default Discoverer implementation: it walks Roots (and,
// when WithLocalFolders is set, LocalFoldersRoot too), yielding every
// regular file whose name has no extension or a ".sbd"-unrelated plain
// name — matching how Thunderbird/Mozilla profiles store one mbox file per
// folder, no extension — except those matching any of Exclude.
type Default struct {
	Roots            []string
	LocalFoldersRoot string
	WithLocalFolders bool
	Exclude          []*regexp.Regexp
	Walk             WalkFunc
}

// New builds a Default discoverer. excludePatterns are compiled as regular
// expressions; an invalid pattern is a configuration error (spec §7,
// ConfigError), returned immediately rather than silently ignored.
func New(roots []string, localFoldersRoot string, withLocalFolders bool, excludePatterns []string) (*Default, error) {
	d := &Default{Roots: roots, LocalFoldersRoot: localFoldersRoot, WithLocalFolders: withLocalFolders, Walk: filepath.WalkDir}
	for _, p := range excludePatterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, eris.Wrapf(err, "discover: invalid --source-exclude pattern %q", p)
		}
		d.Exclude = append(d.Exclude, re)
	}
	return d, nil
}

func (d *Default) Discover(ctx context.Context) ([]ports.MboxLocation, error) {
	roots := append([]string{}, d.Roots...)
	if d.WithLocalFolders && d.LocalFoldersRoot != "" {
		roots = append(roots, d.LocalFoldersRoot)
	}

	var out []ports.MboxLocation
	for _, root := range roots {
		label := filepath.Base(root)
		err := d.Walk(root, func(path string, entry fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
			if entry.IsDir() {
				return nil
			}
			if d.excluded(path) {
				return nil
			}
			if filepath.Ext(path) != "" {
				return nil
			}
			out = append(out, ports.MboxLocation{Label: label, Path: path})
			return nil
		})
		if err != nil {
			return nil, eris.Wrapf(err, "discover: walking %s", root)
		}
	}
	return out, nil
}

func (d *Default) excluded(path string) bool {
	for _, re := range d.Exclude {
		if re.MatchString(path) {
			return true
		}
	}
	return false
}
