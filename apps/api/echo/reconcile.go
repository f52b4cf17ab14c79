package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/dtsmedt/PlanOfStudy/core/action"
	"github.com/dtsmedt/PlanOfStudy/core/plan"
	"github.com/dtsmedt/PlanOfStudy/core/reconcile"
)

type reconcileApi struct {
	svc     *reconcile.Service
	applier *action.Applier
}

func registerReconcileAPI(g *echo.Group, plans *plan.Service, svc *reconcile.Service, applier *action.Applier) {
	api := reconcileApi{svc: svc, applier: applier}

	// no sub-group here: Group.Use would register catch-all routes over GET /plans/:id
	loadPlan := planMiddleware(plans)
	g.GET("/plans/:id/reconciliation", api.compare, requireActor, loadPlan)
	g.POST("/plans/:id/actions", api.apply, requireActor, loadPlan, ownerOrGradCoordinator)
}

// compare diffs the plan against the student's transcript.
func (api *reconcileApi) compare(ctx echo.Context) error {
	p, err := contextPlan(ctx)
	if err != nil {
		return err
	}
	result, err := api.svc.Compare(ctx.Request().Context(), p.StudentKey, p.Degree)
	if err != nil {
		return errors.Wrap(err, "reconciling plan")
	}
	return ctx.JSON(http.StatusOK, result)
}

// apply runs the accepted actions in order and stops at the first failure;
// actions applied before it are kept.
func (api *reconcileApi) apply(ctx echo.Context) error {
	p, err := contextPlan(ctx)
	if err != nil {
		return err
	}
	var data ActionsRequest
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ActionsRequest")
	}

	outcomes, err := api.applier.ApplyAll(ctx.Request().Context(), p, data.Actions)
	if err != nil {
		return errors.Wrap(err, "applying actions")
	}
	if outcomes == nil {
		outcomes = []action.Outcome{}
	}
	return ctx.JSON(http.StatusOK, OutcomesResponse{Outcomes: outcomes})
}
