package main

import (
	"context"
	"os"

	"github.com/pkg/errors"

	"github.com/trezcool/gradebook/core/score"
)

// exportBroadsheet writes the broadsheet of classLevel to path, or to the CLI output when path is empty.
func (cli *commandLine) exportBroadsheet(termID, classLevel, path string) error {
	bs, err := cli.scoreSvc.Broadsheet(context.Background(), termID, classLevel)
	if err != nil {
		return err
	}

	if path == "" {
		return score.WriteBroadsheetCSV(cli.out, bs)
	}

	file, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "creating output file")
	}
	if err = score.WriteBroadsheetCSV(file, bs); err != nil {
		_ = file.Close()
		return err
	}
	return file.Close()
}
