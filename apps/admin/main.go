package main

import (
	"log"
	"os"

	"github.com/dtsmedt/PlanOfStudy/core"
	"github.com/dtsmedt/PlanOfStudy/core/approval"
	"github.com/dtsmedt/PlanOfStudy/core/plan"
	"github.com/dtsmedt/PlanOfStudy/core/reconcile"
	"github.com/dtsmedt/PlanOfStudy/core/transcript"
	logsvc "github.com/dtsmedt/PlanOfStudy/services/logger"
	"github.com/dtsmedt/PlanOfStudy/storage/database"
	sqlxrepos "github.com/dtsmedt/PlanOfStudy/storage/database/sqlx"
)

func main() {
	conf := core.NewConfig()

	zl, err := logsvc.NewZapLogger(conf)
	if err != nil {
		log.Fatalf("setting up logger: %v", err)
	}
	logger := zl.Named("admin")

	// set up DB
	db, err := database.Open(conf)
	errAndDie(logger, err)

	// set up repos & services
	courses := sqlxrepos.NewCatalogRepository(db)
	plans := sqlxrepos.NewPlanRepository(db)
	records := sqlxrepos.NewTranscriptRepository(db, conf.Import.BatchSize)

	validate, translator := core.NewValidator()
	plan.InitValidators(validate, translator)
	planSvc := plan.NewService(plans, courses, validate, translator, logger)

	// start CLI
	cli := commandLine{
		db:          db,
		out:         os.Stdout,
		plans:       planSvc,
		transcripts: transcript.NewService(records, validate, translator, logger),
		reconciler:  reconcile.NewService(plans, records, courses, logger),
		approvals:   approval.NewService(planSvc, courses, logger),
	}
	err = cli.run(os.Args)
	_ = db.Close()
	_ = zl.Sync()
	if err != nil {
		if err != errHelp {
			logger.Error("command failed", err)
		}
		os.Exit(1)
	}
}

func errAndDie(logger core.Logger, err error) {
	if err != nil {
		logger.Fatal("admin failed", err)
	}
}
