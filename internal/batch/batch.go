// Package batch runs the resolver over many files on a bounded worker pool.
package batch

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"

	"github.com/30Piraten/fmtcf/internal/resolver"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Options configures a batch run.
type Options struct {
	Mode resolver.Mode
	// Workers bounds how many files are resolved at once. Zero means GOMAXPROCS.
	Workers int
	// FailFast stops scheduling new files after the first fatal error.
	FailFast bool
	// Root is the directory relative output paths are computed from.
	Root string
	// OutDir, when set, receives outputs under the same relative path
	// instead of writing next to the input.
	OutDir string
}

// Output records one written file.
type Output struct {
	Input  string
	Output string
}

// Report summarizes a batch run.
type Report struct {
	Processed []Output
	Skipped   []*resolver.SkipError
	Failed    []*resolver.FileError
	// Cancelled lists files never attempted because the run stopped early.
	Cancelled []string
}

// Err joins every fatal file error, or returns nil.
func (r *Report) Err() error {
	if len(r.Failed) == 0 {
		return nil
	}
	errs := make([]error, len(r.Failed))
	for i, f := range r.Failed {
		errs[i] = f
	}
	return errors.Join(errs...)
}

// Driver resolves files independently and collects the outcome.
type Driver struct {
	resolver *resolver.Resolver
	opts     Options
	logger   *zap.Logger
}

// New returns a Driver. A nil logger disables logging.
func New(r *resolver.Resolver, opts Options, logger *zap.Logger) *Driver {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Workers <= 0 {
		opts.Workers = runtime.GOMAXPROCS(0)
	}
	return &Driver{resolver: r, opts: opts, logger: logger}
}

// Run processes files and returns the report. The error is non-nil when at
// least one file failed or ctx was cancelled.
func (d *Driver) Run(ctx context.Context, files []string) (*Report, error) {
	report := &Report{}
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.opts.Workers)

	for i, file := range files {
		if gctx.Err() != nil {
			mu.Lock()
			report.Cancelled = append(report.Cancelled, files[i:]...)
			mu.Unlock()
			break
		}

		g.Go(func() error {
			if gctx.Err() != nil {
				mu.Lock()
				report.Cancelled = append(report.Cancelled, file)
				mu.Unlock()
				return nil
			}

			target, err := d.target(file)
			if err == nil {
				err = d.resolver.ProcessFile(gctx, d.opts.Mode, file, target)
			}

			mu.Lock()
			defer mu.Unlock()
			return d.record(report, file, target, err)
		})
	}

	waitErr := g.Wait()
	report.sort()

	d.logger.Info("batch finished",
		zap.Stringer("mode", d.opts.Mode),
		zap.Int("processed", len(report.Processed)),
		zap.Int("skipped", len(report.Skipped)),
		zap.Int("failed", len(report.Failed)),
		zap.Int("cancelled", len(report.Cancelled)))

	if err := report.Err(); err != nil {
		return report, err
	}
	if waitErr != nil {
		return report, waitErr
	}
	return report, ctx.Err()
}

// record files the outcome of one file. It must be called with the report
// lock held. Returning an error cancels the group, so only fatal errors in
// fail-fast mode are returned.
func (d *Driver) record(report *Report, file, target string, err error) error {
	var skip *resolver.SkipError
	switch {
	case err == nil:
		if target == "" {
			target, _ = defaultTarget(d.opts.Mode, file)
		}
		report.Processed = append(report.Processed, Output{Input: file, Output: target})
		return nil
	case errors.As(err, &skip):
		d.logger.Warn("skipping file", zap.String("file", file), zap.Stringer("reason", skip.Reason))
		report.Skipped = append(report.Skipped, skip)
		return nil
	}

	var fileErr *resolver.FileError
	if !errors.As(err, &fileErr) {
		fileErr = &resolver.FileError{Path: file, Err: err}
	}
	d.logger.Error("failed to process file", zap.String("file", file), zap.Error(fileErr.Err))
	report.Failed = append(report.Failed, fileErr)
	if d.opts.FailFast {
		return fileErr
	}
	return nil
}

// target computes where file's output goes. An empty result lets the
// resolver pick its default location.
func (d *Driver) target(file string) (string, error) {
	if d.opts.OutDir == "" {
		return "", nil
	}
	out, ok := defaultTarget(d.opts.Mode, file)
	if !ok {
		// The resolver reports the skip.
		return "", nil
	}
	rel, err := filepath.Rel(d.opts.Root, out)
	if err != nil {
		return "", fmt.Errorf("output path: %w", err)
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("output path: %s is outside %s", file, d.opts.Root)
	}
	return filepath.Join(d.opts.OutDir, rel), nil
}

func defaultTarget(mode resolver.Mode, file string) (string, bool) {
	if mode == resolver.Tagged {
		return resolver.OutputPath(file)
	}
	return file, true
}

func (r *Report) sort() {
	sort.Slice(r.Processed, func(i, j int) bool { return r.Processed[i].Input < r.Processed[j].Input })
	sort.Slice(r.Skipped, func(i, j int) bool { return r.Skipped[i].Path < r.Skipped[j].Path })
	sort.Slice(r.Failed, func(i, j int) bool { return r.Failed[i].Path < r.Failed[j].Path })
	sort.Strings(r.Cancelled)
}
