package fscache

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
)

// maxLinks bounds the number of symlinks followed while resolving a path.
const maxLinks = 255

// Realpath returns the absolute path of path with every symlink resolved.
// ".." is applied after the preceding component is resolved. Components
// that do not exist are appended lexically. On filesystems that do not
// support symlinks the result is the cleaned absolute path.
func Realpath(fsys afero.Fs, path string) (string, error) {
	abs := path
	if !filepath.IsAbs(abs) {
		wd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("failed to make %s absolute: %w", path, err)
		}
		abs = wd + string(filepath.Separator) + path
	}

	lstater, ok1 := fsys.(afero.Lstater)
	reader, ok2 := fsys.(afero.LinkReader)
	if !ok1 || !ok2 {
		return filepath.Clean(abs), nil
	}

	volume := filepath.VolumeName(abs)
	sep := string(filepath.Separator)
	resolved := volume + sep
	rest := splitPath(abs[len(volume):])
	links := 0

	for len(rest) > 0 {
		name := rest[0]
		rest = rest[1:]

		if name == ".." {
			resolved = filepath.Dir(resolved)
			continue
		}

		next := filepath.Join(resolved, name)
		info, lstatCalled, err := lstater.LstatIfPossible(next)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return filepath.Join(append([]string{next}, rest...)...), nil
			}
			return "", fmt.Errorf("failed to stat %s: %w", next, err)
		}
		if !lstatCalled || info.Mode()&os.ModeSymlink == 0 {
			resolved = next
			continue
		}

		links++
		if links > maxLinks {
			return "", fmt.Errorf("%s: %w", path, ErrTooManyLinks)
		}

		target, err := reader.ReadlinkIfPossible(next)
		if err != nil {
			return "", fmt.Errorf("failed to read link %s: %w", next, err)
		}
		if filepath.IsAbs(target) {
			volume = filepath.VolumeName(target)
			resolved = volume + sep
			target = target[len(volume):]
		}
		rest = append(splitPath(target), rest...)
	}

	return resolved, nil
}

func splitPath(p string) []string {
	parts := strings.Split(p, string(filepath.Separator))
	out := parts[:0]
	for _, part := range parts {
		if part != "" && part != "." {
			out = append(out, part)
		}
	}
	return out
}
