package main

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/trezcool/gradebook/storage/database"
)

var (
	gooseRunFunc = database.RunMigration // mockable

	errNoDatabase = errors.New("migrations need the postgres database engine")
)

func (cli *commandLine) migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:                "migrate COMMAND [ARGS...]",
		Short:              "Run a goose migration command (up, up-by-one, up-to, down, down-to, redo, reset, status, version, create, fix)",
		DisableFlagParsing: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				_ = cmd.Usage()
				return errHelp
			}
			return cli.migrate(args)
		},
	}
}

func (cli *commandLine) migrate(args []string) error {
	if cli.db == nil {
		return errNoDatabase
	}
	return gooseRunFunc(cli.db, args[0], args[1:]...)
}
