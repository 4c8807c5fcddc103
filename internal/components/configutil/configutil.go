// Package configutil reads json5 config files that may be overridden by a
// `.local` sibling, e.g. ddfeed.local.json5 over ddfeed.json5.
package configutil

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"dario.cat/mergo"
	"github.com/titanous/json5"
)

func splitExt(f string) (string, string) {
	for i := len(f) - 1; i >= 0; i-- {
		if f[i] == '.' {
			return f[0:i], f[i+1:]
		}
	}
	return f, ""
}

// LocalPath returns the path of the local overrides of the config at name.
func LocalPath(name string) string {
	prefix, ext := splitExt(filepath.Base(name))
	local := prefix + ".local"
	if ext != "" {
		local += "." + ext
	}
	return filepath.Join(filepath.Dir(name), local)
}

// readLayer reads a single config file, an empty or missing file is
// reported as not found.
func readLayer[T any](path string) (T, bool, error) {
	var out T
	contents, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return out, false, nil
	}
	if err != nil {
		return out, false, err
	}
	if len(bytes.TrimSpace(contents)) == 0 {
		return out, false, nil
	}
	err = json5.Unmarshal(contents, &out)
	if err != nil {
		return out, false, fmt.Errorf("parse %s: %w", path, err)
	}
	return out, true, nil
}

// ReadConfig reads the config at name (which should carry an extension) and
// merges its local overrides over it, non-zero local fields win. When
// neither file exists os.ErrNotExist is returned.
func ReadConfig[T any](name string) (T, error) {
	out, found, err := readLayer[T](name)
	if err != nil {
		return out, err
	}

	localPath := LocalPath(name)
	override, foundLocal, err := readLayer[T](localPath)
	if err != nil {
		return out, err
	}
	if !found && !foundLocal {
		return out, os.ErrNotExist
	}
	if !foundLocal {
		return out, nil
	}

	err = mergo.Merge(&out, override, mergo.WithOverride)
	if err != nil {
		return out, fmt.Errorf("merge %s: %w", localPath, err)
	}
	slog.Debug("merged config with local overrides", "local", localPath)
	return out, nil
}

// Find walks up from the working directory to the filesystem root and
// returns the path of the first config called name, a directory with only
// the local overrides counts.
func Find(name string) (string, error) {
	current, err := os.Getwd()
	if err != nil {
		return "", err
	}
	for {
		candidate := filepath.Join(current, name)
		if exists(candidate) || exists(LocalPath(candidate)) {
			return candidate, nil
		}
		parent := filepath.Dir(current)
		if parent == current {
			return "", os.ErrNotExist
		}
		current = parent
	}
}

func exists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// ReadRecursively is ReadConfig on the config Find returns.
func ReadRecursively[T any](name string) (T, error) {
	path, err := Find(name)
	if err != nil {
		var out T
		return out, err
	}
	return ReadConfig[T](path)
}
