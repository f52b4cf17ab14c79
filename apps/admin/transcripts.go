package main

import (
	"context"
	"strconv"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/pkg/errors"
)

func (cli *commandLine) importTranscripts(ctx context.Context, path string) error {
	data, err := readFileFunc(path)
	if err != nil {
		return errors.Wrapf(err, "reading %s", path)
	}
	rows, err := decodeRows(data)
	if err != nil {
		return err
	}

	report, err := cli.transcripts.Import(ctx, rows)
	if err != nil {
		return err
	}

	table := tablewriter.NewWriter(cli.out)
	table.SetHeader([]string{"Import", "Cleared", "Inserted", "Took"})
	table.Append([]string{
		report.ID.String(),
		strconv.Itoa(report.Cleared),
		strconv.Itoa(report.Inserted),
		report.FinishedAt.Sub(report.StartedAt).String(),
	})
	table.Render()
	color.New(color.FgGreen).Fprintf(cli.out, "imported %d transcript rows\n", report.Inserted)
	return nil
}
