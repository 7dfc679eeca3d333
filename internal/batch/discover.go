package batch

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"github.com/30Piraten/fmtcf/internal/resolver"
)

// skipDirs are never descended into.
var skipDirs = map[string]bool{
	".git":         true,
	"node_modules": true,
}

// Discover lists candidate files under root. Tagged mode picks *.fmtcf
// templates; bare mode picks files whose base name matches one of include,
// or every regular file when include is empty. Binary files are filtered
// later, when they are read.
func Discover(root string, mode resolver.Mode, include []string) ([]string, error) {
	for _, pattern := range include {
		if _, err := filepath.Match(pattern, ""); err != nil {
			return nil, fmt.Errorf("bad include pattern %q: %w", pattern, err)
		}
	}

	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != root && skipDirs[d.Name()] {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		if matches(mode, d.Name(), include) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", root, err)
	}

	sort.Strings(files)
	return files, nil
}

func matches(mode resolver.Mode, name string, include []string) bool {
	if mode == resolver.Tagged {
		return strings.HasSuffix(name, resolver.TemplateSuffix) && name != resolver.TemplateSuffix
	}
	if len(include) == 0 {
		return true
	}
	for _, pattern := range include {
		if ok, _ := filepath.Match(pattern, name); ok {
			return true
		}
	}
	return false
}
