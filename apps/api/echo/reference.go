package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/dtsmedt/PlanOfStudy/core/approval"
	"github.com/dtsmedt/PlanOfStudy/core/catalog"
	"github.com/dtsmedt/PlanOfStudy/core/plan"
	"github.com/dtsmedt/PlanOfStudy/core/term"
)

type referenceApi struct {
	catalog catalog.Repository
}

func registerReferenceAPI(g *echo.Group, courses catalog.Repository) {
	api := referenceApi{catalog: courses}

	g.GET("/terms", api.queryTerms)
	g.GET("/areas", api.queryAreas)
	g.GET("/courses", api.queryCourses)
	g.GET("/statuses", api.queryStatuses)
	g.GET("/degree-types", api.queryDegreeTypes)
}

func (api *referenceApi) queryTerms(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, term.All)
}

func (api *referenceApi) queryAreas(ctx echo.Context) error {
	areas, err := api.catalog.ListAreas(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying areas")
	}
	if areas == nil {
		areas = []catalog.Area{}
	}
	return ctx.JSON(http.StatusOK, areas)
}

func (api *referenceApi) queryCourses(ctx echo.Context) error {
	area, err := queryArea(ctx)
	if err != nil {
		return err
	}
	courses, err := api.catalog.ListCoursesByArea(ctx.Request().Context(), area)
	if err != nil {
		return errors.Wrap(err, "querying courses")
	}
	if courses == nil {
		courses = []catalog.Course{}
	}
	return ctx.JSON(http.StatusOK, courses)
}

// queryStatuses lists the statuses the caller works with: every status for students,
// the reviewer's own statuses otherwise.
func (api *referenceApi) queryStatuses(ctx echo.Context) error {
	actor := contextActor(ctx)
	statuses := plan.Statuses
	if actor.Roles.Has(approval.RoleChair) || actor.IsGradCoordinator() {
		statuses = approval.VisibleStatuses(actor.Roles)
	}
	return ctx.JSON(http.StatusOK, statusResponses(statuses))
}

func (api *referenceApi) queryDegreeTypes(ctx echo.Context) error {
	out := make([]DegreeResponse, 0, len(plan.DegreeTypes))
	for _, d := range plan.DegreeTypes {
		out = append(out, DegreeResponse{ID: d, Name: d.String()})
	}
	return ctx.JSON(http.StatusOK, out)
}
