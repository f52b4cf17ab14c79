package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/dtsmedt/PlanOfStudy/core/approval"
	"github.com/dtsmedt/PlanOfStudy/core/plan"
	"github.com/dtsmedt/PlanOfStudy/core/reconcile"
	"github.com/dtsmedt/PlanOfStudy/core/transcript"
)

var (
	readFileFunc = os.ReadFile // mockable

	errHelp = errors.New("help provided")
)

type commandLine struct {
	db          *sqlx.DB
	out         io.Writer
	plans       *plan.Service
	transcripts *transcript.Service
	reconciler  *reconcile.Service
	approvals   *approval.Service
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage:")
	fmt.Fprintln(cli.out, "  migrate COMMAND [ARGS]                    - run a goose command (up, down, status, ...)")
	fmt.Fprintln(cli.out, "  import-transcripts -file ROWS.json        - replace the transcript table")
	fmt.Fprintln(cli.out, "  reconcile -pid PID -degree MS|PhD|MSA     - compare a plan of study with the transcript")
	fmt.Fprintln(cli.out, "  validate -pid PID -degree MS|PhD|MSA      - check a plan of study against the degree requirements")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	importCmd := flag.NewFlagSet("import-transcripts", flag.ExitOnError)
	importFile := importCmd.String("file", "", "JSON file holding an array of transcript rows.")

	reconcileCmd := flag.NewFlagSet("reconcile", flag.ExitOnError)
	reconcilePID := reconcileCmd.String("pid", "", "The student's PID.")
	reconcileDegree := reconcileCmd.String("degree", "", "The degree type: MS, PhD or MSA.")

	validateCmd := flag.NewFlagSet("validate", flag.ExitOnError)
	validatePID := validateCmd.String("pid", "", "The student's PID.")
	validateDegree := validateCmd.String("degree", "", "The degree type: MS, PhD or MSA.")

	ctx := context.Background()

	switch args[1] {
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])
	case "import-transcripts":
		if err := importCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *importFile == "" {
			importCmd.Usage()
			return errHelp
		}
		return cli.importTranscripts(ctx, *importFile)
	case "reconcile":
		if err := reconcileCmd.Parse(args[2:]); err != nil {
			return err
		}
		degree, ok := plan.ParseDegreeType(*reconcileDegree)
		if *reconcilePID == "" || !ok {
			reconcileCmd.Usage()
			return errHelp
		}
		return cli.reconcile(ctx, *reconcilePID, degree)
	case "validate":
		if err := validateCmd.Parse(args[2:]); err != nil {
			return err
		}
		degree, ok := plan.ParseDegreeType(*validateDegree)
		if *validatePID == "" || !ok {
			validateCmd.Usage()
			return errHelp
		}
		return cli.validate(ctx, *validatePID, degree)
	default:
		cli.printUsage()
		return errHelp
	}
}

func decodeRows(data []byte) ([]transcript.Record, error) {
	var rows []transcript.Record
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, errors.Wrap(err, "decoding transcript rows")
	}
	return rows, nil
}
