package resolver

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

// TemplateSuffix marks a tagged-mode template file.
const TemplateSuffix = ".fmtcf"

// sniffLen is how much of a file IsBinary inspects.
const sniffLen = 8000

// OutputPath strips the template suffix: config.json.fmtcf -> config.json.
// It reports false when path does not carry the suffix.
func OutputPath(path string) (string, bool) {
	if !strings.HasSuffix(path, TemplateSuffix) || len(path) == len(TemplateSuffix) {
		return "", false
	}
	out := strings.TrimSuffix(path, TemplateSuffix)
	if filepath.Base(out) == "" || strings.HasSuffix(out, string(filepath.Separator)) {
		return "", false
	}
	return out, true
}

// IsBinary reports whether data looks like a binary file: a NUL byte in the
// first 8000 bytes.
func IsBinary(data []byte) bool {
	if len(data) > sniffLen {
		data = data[:sniffLen]
	}
	return bytes.IndexByte(data, 0) >= 0
}

// ProcessFile resolves the template at in and writes the result to out. When
// out is empty the tagged output name is derived from in, and bare mode
// rewrites in place. Skips come back as *SkipError; fatal failures as
// *FileError. Nothing is written unless every token resolved.
func (r *Resolver) ProcessFile(ctx context.Context, mode Mode, in, out string) error {
	if out == "" {
		if mode == Tagged {
			var ok bool
			if out, ok = OutputPath(in); !ok {
				return &SkipError{Path: in, Reason: NoTemplateSuffix}
			}
		} else {
			out = in
		}
	}

	data, err := os.ReadFile(in)
	if err != nil {
		return &FileError{Path: in, Err: fmt.Errorf("read template: %w", err)}
	}
	if IsBinary(data) {
		return &SkipError{Path: in, Reason: Binary}
	}

	resolved, err := r.Resolve(ctx, mode, data)
	if err != nil {
		return &FileError{Path: in, Err: err}
	}

	info, err := os.Stat(in)
	if err != nil {
		return &FileError{Path: in, Err: err}
	}
	if err := writeFileAtomic(out, resolved, info.Mode().Perm()); err != nil {
		return &FileError{Path: in, Err: err}
	}

	r.logger.Info("processed file",
		zap.String("input", in),
		zap.String("output", out),
		zap.Stringer("mode", mode))
	return nil
}

// writeFileAtomic writes data next to path and renames it into place, so a
// reader never sees a half written file.
func writeFileAtomic(path string, data []byte, perm os.FileMode) (err error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer func() {
		if err != nil {
			_ = os.Remove(tmp.Name())
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write output: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("close output: %w", err)
	}
	if err = os.Chmod(tmp.Name(), perm); err != nil {
		return fmt.Errorf("chmod output: %w", err)
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename output: %w", err)
	}
	return nil
}
