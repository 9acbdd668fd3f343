package main

import (
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/trezcool/gradebook/core"
	"github.com/trezcool/gradebook/core/instance"
	"github.com/trezcool/gradebook/core/results"
)

var errNoActiveInstance = errors.New("no active results instance for this class, session and term")

type importOptions struct {
	scopeFlags
	file     string
	format   string
	daysOpen int
}

func (cli *commandLine) importCmd() *cobra.Command {
	var opts importOptions

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import a gradebook file with the scope's active results instance",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.importFile(cmd, opts)
		},
	}
	opts.register(cmd)
	cmd.Flags().StringVar(&opts.file, "file", "", "Gradebook file, .csv or .xlsx (required)")
	cmd.Flags().StringVar(&opts.format, "format", "", "File format: csv or xlsx (default: from the file extension)")
	cmd.Flags().IntVar(&opts.daysOpen, "days-open", 0, "Days school was open, for bare attendance cells")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func (cli *commandLine) importFile(cmd *cobra.Command, opts importOptions) error {
	ctx := cmd.Context()
	scope := opts.scope()

	format := core.CleanString(opts.format, true /* lower */)
	if format == "" {
		format = results.FormatFromFilename(opts.file)
	}

	inst, err := cli.svcs.Instances.GetActive(ctx, scope)
	if err != nil {
		if errors.Cause(err) == instance.ErrNotFound {
			return errNoActiveInstance
		}
		return errors.Wrap(err, "finding active results instance")
	}

	f, err := os.Open(strings.TrimSpace(opts.file))
	if err != nil {
		return errors.Wrap(err, "opening gradebook file")
	}
	defer func() { _ = f.Close() }()

	summary, err := cli.svcs.Results.Import(ctx, inst.ImportRequest(format, opts.daysOpen), f)
	if err != nil {
		return err
	}
	return cli.printJSON(summary)
}

func (cli *commandLine) recomputeCmd() *cobra.Command {
	var flags scopeFlags

	cmd := &cobra.Command{
		Use:   "recompute",
		Short: "Recompute class statistics and positions of a scope",
		RunE: func(cmd *cobra.Command, args []string) error {
			records, err := cli.svcs.Results.Recompute(cmd.Context(), flags.scope())
			if err != nil {
				return err
			}
			return cli.printJSON(records)
		},
	}
	flags.register(cmd)
	return cmd
}
