package main

import (
	"database/sql"
	"encoding/json"
	"io"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/trezcool/gradebook/apps/shared"
	"github.com/trezcool/gradebook/core/results"
)

var errHelp = errors.New("help provided")

type commandLine struct {
	db   *sql.DB // nil for the memory engine
	svcs *shared.Services
	out  io.Writer
}

// scopeFlags are the flags naming one class, session and term of a school.
type scopeFlags struct {
	school, class, session, term string
}

func (f *scopeFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.school, "school", "", "School ID (required)")
	cmd.Flags().StringVar(&f.class, "class", "", "Class ID (required)")
	cmd.Flags().StringVar(&f.session, "session", "", "Academic session ID (required)")
	cmd.Flags().StringVar(&f.term, "term", "", "Term ID (required)")
	for _, name := range []string{"school", "class", "session", "term"} {
		_ = cmd.MarkFlagRequired(name)
	}
}

func (f scopeFlags) scope() results.Scope {
	return results.Scope{SchoolID: f.school, ClassID: f.class, SessionID: f.session, TermID: f.term}
}

func (cli *commandLine) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "admin",
		Short:         "Gradebook administration commands",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			_ = cmd.Usage()
			return errHelp
		},
	}
	root.SetOut(cli.out)
	root.AddCommand(cli.migrateCmd(), cli.importCmd(), cli.recomputeCmd(), cli.studentsCmd(), cli.tokenCmd())
	return root
}

// run executes the command line args, args[0] being the program name.
func (cli *commandLine) run(args []string) error {
	root := cli.rootCmd()
	if len(args) > 0 {
		args = args[1:]
	}
	root.SetArgs(args)
	return root.Execute()
}

func (cli *commandLine) printJSON(v interface{}) error {
	enc := json.NewEncoder(cli.out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return errors.Wrap(err, "printing output")
	}
	return nil
}
