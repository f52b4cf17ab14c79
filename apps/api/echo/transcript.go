package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/dtsmedt/PlanOfStudy/core/approval"
	"github.com/dtsmedt/PlanOfStudy/core/plan"
	"github.com/dtsmedt/PlanOfStudy/core/transcript"
)

type transcriptApi struct {
	plans *plan.Service
	svc   *transcript.Service
}

func registerTranscriptAPI(g *echo.Group, plans *plan.Service, svc *transcript.Service) {
	api := transcriptApi{plans: plans, svc: svc}

	ag := g.Group("", requireActor)
	ag.GET("/students/:pid/transcripts", api.queryStudent)

	gc := ag.Group("/transcripts", roleMiddleware(approval.RoleGradCoordinator))
	gc.GET("", api.queryByName)
	gc.POST("/import", api.importRows)
}

func (api *transcriptApi) queryStudent(ctx echo.Context) error {
	pid := ctx.Param("pid")
	if !canAccessStudent(contextActor(ctx), pid) {
		return errHttpNotFound
	}
	s, err := api.plans.GetStudent(ctx.Request().Context(), pid)
	if err != nil {
		return errors.Wrap(err, "finding student")
	}

	rows, err := api.svc.ListByStudentName(ctx.Request().Context(), transcript.StudentName(s.First, s.Last))
	if err != nil {
		return errors.Wrap(err, "querying transcripts")
	}
	if rows == nil {
		rows = []transcript.Record{}
	}
	return ctx.JSON(http.StatusOK, rows)
}

// queryByName looks transcripts up by the registrar's "Last, First" name.
func (api *transcriptApi) queryByName(ctx echo.Context) error {
	rows, err := api.svc.ListByStudentName(ctx.Request().Context(), ctx.QueryParam("name"))
	if err != nil {
		return errors.Wrap(err, "querying transcripts")
	}
	if rows == nil {
		rows = []transcript.Record{}
	}
	return ctx.JSON(http.StatusOK, rows)
}

func (api *transcriptApi) importRows(ctx echo.Context) error {
	var data ImportRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ImportRequest")
	}

	report, err := api.svc.Import(ctx.Request().Context(), data.Rows)
	if err != nil {
		return errors.Wrap(err, "importing transcripts")
	}
	return ctx.JSON(http.StatusCreated, report)
}
