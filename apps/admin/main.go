package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	"github.com/trezcool/gradebook/apps/shared"
	"github.com/trezcool/gradebook/core"
)

func main() {
	conf := core.NewConfig()
	logger := shared.NewLogger("ADMIN", conf)

	ctx := context.Background()
	svcs, err := shared.NewServices(ctx, conf, logger, logger)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up services: %v", err), err)
	}

	var db *sql.DB
	if sqlxDB := svcs.DB(); sqlxDB != nil {
		db = sqlxDB.DB
	}

	cli := commandLine{db: db, svcs: svcs, out: os.Stdout}
	err = cli.run(os.Args)
	if cErr := svcs.Close(); cErr != nil {
		logger.Error("Failed to close", cErr)
	}
	if err != nil {
		if err != errHelp {
			logger.Error(fmt.Sprintf("error: %v", err), err)
		}
		os.Exit(1)
	}
}
