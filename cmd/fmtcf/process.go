package main

import (
	"github.com/30Piraten/fmtcf/internal/batch"
	"github.com/30Piraten/fmtcf/internal/resolver"
	"github.com/spf13/cobra"
)

var processOutDir string

// processCmd resolves tagged *.fmtcf templates
var processCmd = &cobra.Command{
	Use:   "process [paths...]",
	Short: "Resolve AWS-PARAMETER::, AWS-SECRET:: and ENV:: tokens in *.fmtcf templates",
	Long: `Resolves every *.fmtcf template found under the given paths (default: the
current directory) and writes the result next to it without the suffix:

  config.json.fmtcf -> config.json

Files given explicitly without the .fmtcf suffix are skipped with a warning.
A template with an unknown prefix or a value that cannot be looked up
produces no output and makes the command exit non-zero.`,
	RunE: runProcess,
}

func init() {
	processCmd.Flags().StringVarP(&processOutDir, "out-dir", "o", "", "write outputs under this directory instead of next to the templates")
}

func runProcess(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	files, err := collectFiles(args, resolver.Tagged, nil)
	if err != nil {
		return err
	}

	set, err := newSourceSet(ctx)
	if err != nil {
		return err
	}
	r := resolver.New(set, resolver.WithLogger(logger))

	_, err = runBatch(ctx, cmd, r, batch.Options{
		Mode:   resolver.Tagged,
		Root:   defaultRoot(args),
		OutDir: processOutDir,
	}, files)
	return err
}
