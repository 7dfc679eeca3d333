package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/30Piraten/fmtcf/internal/batch"
	"github.com/30Piraten/fmtcf/internal/resolver"
	"github.com/30Piraten/fmtcf/internal/source"
	"github.com/spf13/cobra"
)

// newSourceSet builds the lookup sources for a run. Tests replace it.
var newSourceSet = func(ctx context.Context) (*source.Set, error) {
	cfg, err := source.LoadAWSConfig(ctx, source.AWSOptions{
		Region:      region,
		Profile:     profile,
		MaxAttempts: maxAttempts,
	})
	if err != nil {
		return nil, err
	}
	return source.NewSet(source.AWSSources(cfg),
		source.WithTimeout(lookupTimeout),
		source.WithLogger(logger)), nil
}

// collectFiles expands path arguments: directories are walked, files are
// taken as given so the resolver can report why it skips them.
func collectFiles(paths []string, mode resolver.Mode, include []string) ([]string, error) {
	if len(paths) == 0 {
		paths = []string{"."}
	}
	var files []string
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			files = append(files, p)
			continue
		}
		found, err := batch.Discover(p, mode, include)
		if err != nil {
			return nil, err
		}
		files = append(files, found...)
	}
	return files, nil
}

// defaultRoot picks the directory relative output paths are computed from:
// the only argument when it is a directory, else the working directory.
func defaultRoot(paths []string) string {
	if len(paths) == 1 {
		if info, err := os.Stat(paths[0]); err == nil && info.IsDir() {
			return filepath.Clean(paths[0])
		}
	}
	return "."
}

// runBatch resolves files and prints a one line summary. The returned error
// names every failed file.
func runBatch(ctx context.Context, cmd *cobra.Command, r *resolver.Resolver, opts batch.Options, files []string) (*batch.Report, error) {
	opts.Workers = workers
	opts.FailFast = failFast

	report, err := batch.New(r, opts, logger).Run(ctx, files)
	cmd.Printf("%s: %d processed, %d skipped, %d failed\n",
		opts.Mode, len(report.Processed), len(report.Skipped), len(report.Failed))
	if err != nil && len(report.Failed) > 0 {
		return report, fmt.Errorf("%d file(s) failed:\n%w", len(report.Failed), err)
	}
	if err != nil {
		return report, err
	}
	return report, nil
}
