package main

import (
	"fmt"

	"github.com/30Piraten/fmtcf/internal/batch"
	"github.com/30Piraten/fmtcf/internal/publish"
	"github.com/30Piraten/fmtcf/internal/resolver"
	"github.com/30Piraten/fmtcf/internal/source"
	"github.com/30Piraten/fmtcf/internal/values"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/spf13/cobra"
)

var (
	substituteValues  []string
	substituteInclude []string
	substituteRoot    string
	substituteOutDir  string
	substituteBucket  string
	substitutePrefix  string
	substituteIgnore  []string
	substituteStrict  bool
)

// newUploader builds the S3 sync target. Tests replace it.
var newUploader = func(cmd *cobra.Command, bucket, prefix string) (*publish.Uploader, error) {
	cfg, err := source.LoadAWSConfig(cmd.Context(), source.AWSOptions{
		Region:      region,
		Profile:     profile,
		MaxAttempts: maxAttempts,
	})
	if err != nil {
		return nil, err
	}
	return publish.NewUploader(s3.NewFromConfig(cfg), bucket, prefix, logger), nil
}

// substituteCmd resolves bare __name__ tokens against value tables
var substituteCmd = &cobra.Command{
	Use:   "substitute --values FILE [paths...]",
	Short: "Replace __name__ tokens in text files with values from a value table",
	Long: `Replaces __name__ tokens in text files, typically a built web bundle, with
values from one or more value tables. Supported tables:

  *.json, *.jsonc   flat object or the output of "terraform output -json"
  *.yaml, *.yml     flat mapping
  *.env             dotenv file

Files are rewritten in place unless --out-dir is given. With --bucket the
written files are uploaded to S3 once every file has resolved.

Names that bundlers and runtimes emit, such as __webpack_require__ and
__proto__, are left untouched unless a value table defines them. Add more
with --ignore, or pass --strict to require every name.`,
	Example: `  terraform output -json > outputs.json
  fmtcf substitute --values outputs.json --include '*.html' --include '*.js' dist/`,
	RunE: runSubstitute,
}

func init() {
	flags := substituteCmd.Flags()
	flags.StringSliceVar(&substituteValues, "values", nil, "value table files, later files win (required)")
	flags.StringSliceVar(&substituteInclude, "include", nil, "base name glob of files to process when walking directories (default all)")
	flags.StringVar(&substituteRoot, "root", "", "directory output and object paths are relative to (default: the only directory argument, else .)")
	flags.StringVarP(&substituteOutDir, "out-dir", "o", "", "write outputs under this directory instead of in place")
	flags.StringVar(&substituteBucket, "bucket", "", "S3 bucket to upload outputs to")
	flags.StringVar(&substitutePrefix, "prefix", "", "key prefix for uploaded outputs")
	flags.StringSliceVar(&substituteIgnore, "ignore", nil, "extra names to leave untouched when no table defines them")
	flags.BoolVar(&substituteStrict, "strict", false, "fail on every name missing from the value tables, including runtime names")
	_ = substituteCmd.MarkFlagRequired("values")
}

func runSubstitute(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	table, err := values.LoadFiles(substituteValues...)
	if err != nil {
		return err
	}
	files, err := collectFiles(args, resolver.Bare, substituteInclude)
	if err != nil {
		return err
	}

	root := substituteRoot
	if root == "" {
		root = defaultRoot(args)
	}
	ignored := substituteIgnore
	if !substituteStrict {
		ignored = append(ignored, resolver.RuntimeNames...)
	}
	r := resolver.New(nil,
		resolver.WithValues(table),
		resolver.WithIgnoredNames(ignored...),
		resolver.WithLogger(logger))
	report, err := runBatch(ctx, cmd, r, batch.Options{
		Mode:   resolver.Bare,
		Root:   root,
		OutDir: substituteOutDir,
	}, files)
	if err != nil {
		return err
	}

	if substituteBucket == "" {
		return nil
	}
	uploader, err := newUploader(cmd, substituteBucket, substitutePrefix)
	if err != nil {
		return err
	}
	outputs := make([]string, len(report.Processed))
	for i, o := range report.Processed {
		outputs[i] = o.Output
	}
	syncRoot := root
	if substituteOutDir != "" {
		syncRoot = substituteOutDir
	}
	if err := uploader.Sync(ctx, syncRoot, outputs); err != nil {
		return fmt.Errorf("sync outputs: %w", err)
	}
	cmd.Printf("uploaded %d file(s) to s3://%s/%s\n", len(outputs), substituteBucket, substitutePrefix)
	return nil
}
