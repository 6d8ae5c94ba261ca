package main

import (
	"database/sql"

	"github.com/trezcool/goose"

	appfs "github.com/trezcool/gradebook/fs"
)

// mockable
var gooseRunFunc = func(command string, db *sql.DB, args ...string) error {
	return goose.RunFS(command, db, appfs.FS, appfs.MigrationsDir, args...)
}

func (cli *commandLine) migrate(args []string) error {
	return gooseRunFunc(args[0], cli.db, args[1:]...)
}
