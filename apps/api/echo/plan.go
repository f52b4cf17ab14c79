package echoapi

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/dtsmedt/PlanOfStudy/core/approval"
	"github.com/dtsmedt/PlanOfStudy/core/plan"
)

type planApi struct {
	svc      *plan.Service
	approval *approval.Service
}

func registerPlanAPI(g *echo.Group, svc *plan.Service, approvalSvc *approval.Service) {
	api := planApi{svc: svc, approval: approvalSvc}

	ag := g.Group("", requireActor)
	ag.GET("/students/:pid", api.retrieveStudent)
	ag.PUT("/students/:pid", api.saveStudent)
	ag.POST("/plans", api.ensure)
	ag.POST("/validation", api.validateDraft)
	ag.GET("/pending", api.pending, roleMiddleware(approval.RoleChair, approval.RoleGradCoordinator))

	// detail endpoints; registered one by one since a "/plans/:id" sub-group would add
	// catch-all routes shadowing GET /plans/:id
	loadPlan := planMiddleware(svc)
	detail := func(method, path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) {
		ag.Add(method, "/plans/:id"+path, h, append([]echo.MiddlewareFunc{loadPlan}, m...)...)
	}
	detail(http.MethodGet, "", api.retrieve)
	detail(http.MethodGet, "/transitions", api.transitions)
	detail(http.MethodPut, "/chair", api.setChair, ownerOrGradCoordinator)

	detail(http.MethodGet, "/courses", api.queryCourses)
	detail(http.MethodPut, "/courses", api.replaceCourses, ownerOrGradCoordinator)
	detail(http.MethodPost, "/courses", api.addCourse, ownerOrGradCoordinator)
	detail(http.MethodDelete, "/courses/:courseId", api.destroyCourse, ownerOrGradCoordinator)
	detail(http.MethodPut, "/courses/:courseId/move", api.moveCourse, ownerOrGradCoordinator)

	detail(http.MethodGet, "/transfers", api.queryTransfers)
	detail(http.MethodGet, "/transfers/credits", api.transferCredits)
	detail(http.MethodPut, "/transfers", api.replaceTransfers, ownerOrGradCoordinator)
	detail(http.MethodPost, "/transfers", api.addTransfer, ownerOrGradCoordinator)
	detail(http.MethodDelete, "/transfers/:transferId", api.destroyTransfer, ownerOrGradCoordinator)

	detail(http.MethodGet, "/committee", api.queryCommittee)
	detail(http.MethodPut, "/committee", api.replaceCommittee, ownerOrGradCoordinator)

	detail(http.MethodGet, "/ignored", api.queryIgnored)
	detail(http.MethodPost, "/ignored", api.ignore, ownerOrGradCoordinator)

	detail(http.MethodGet, "/history", api.queryHistory)
	detail(http.MethodPost, "/comments", api.comment)
	detail(http.MethodPut, "/status", api.setStatus)
	detail(http.MethodPost, "/submit", api.submit)
	detail(http.MethodGet, "/validation", api.validate)
}

// Students & Plans

func (api *planApi) retrieveStudent(ctx echo.Context) error {
	pid := ctx.Param("pid")
	if !canAccessStudent(contextActor(ctx), pid) {
		return errHttpNotFound
	}
	s, err := api.svc.GetStudent(ctx.Request().Context(), pid)
	if err != nil {
		return errors.Wrap(err, "finding student")
	}
	return ctx.JSON(http.StatusOK, s)
}

func (api *planApi) saveStudent(ctx echo.Context) error {
	actor := contextActor(ctx)
	pid := strings.TrimSpace(ctx.Param("pid"))
	if !strings.EqualFold(actor.Key, pid) && !actor.IsGradCoordinator() {
		return errHttpForbidden
	}

	var data plan.Student
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to Student")
	}
	data.Key = pid

	s, err := api.svc.SaveStudent(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "saving student")
	}
	return ctx.JSON(http.StatusOK, s)
}

// ensure returns the caller's plan for a degree, creating it on first use.
// The grad coordinator may open a plan for any student.
func (api *planApi) ensure(ctx echo.Context) error {
	var data EnsurePlanRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to EnsurePlanRequest")
	}

	actor := contextActor(ctx)
	pid := strings.TrimSpace(data.StudentKey)
	if pid == "" {
		pid = actor.Key
	}
	if !strings.EqualFold(actor.Key, pid) && !actor.IsGradCoordinator() {
		return errHttpForbidden
	}
	degree, _ := plan.ParseDegreeType(data.Degree)

	p, err := api.svc.EnsurePlan(ctx.Request().Context(), pid, degree)
	if err != nil {
		return errors.Wrap(err, "ensuring plan")
	}
	return ctx.JSON(http.StatusOK, p)
}

func (api *planApi) retrieve(ctx echo.Context) error {
	p, err := contextPlan(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, p)
}

// transitions lists the statuses the caller may move the plan to.
func (api *planApi) transitions(ctx echo.Context) error {
	p, err := contextPlan(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, statusResponses(approval.Next(contextActor(ctx), p)))
}

func (api *planApi) setChair(ctx echo.Context) error {
	p, err := contextPlan(ctx)
	if err != nil {
		return err
	}
	var data ChairRequest
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ChairRequest")
	}

	p, err = api.svc.SetCommitteeChair(ctx.Request().Context(), p.ID, data.CommitteeChair)
	if err != nil {
		return errors.Wrap(err, "setting committee chair")
	}
	return ctx.JSON(http.StatusOK, p)
}

// Planned courses

func (api *planApi) queryCourses(ctx echo.Context) error {
	p, err := contextPlan(ctx)
	if err != nil {
		return err
	}
	rows, err := api.svc.ListPlannedCourses(ctx.Request().Context(), p.ID)
	if err != nil {
		return errors.Wrap(err, "querying planned courses")
	}
	if rows == nil {
		rows = []plan.PlannedCourse{}
	}
	return ctx.JSON(http.StatusOK, rows)
}

func (api *planApi) replaceCourses(ctx echo.Context) error {
	p, err := contextPlan(ctx)
	if err != nil {
		return err
	}
	var data PlannedCoursesRequest
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to PlannedCoursesRequest")
	}

	rows, err := api.svc.ReplacePlannedCourses(ctx.Request().Context(), p.ID, data.Rows)
	if err != nil {
		return errors.Wrap(err, "replacing planned courses")
	}
	if rows == nil {
		rows = []plan.PlannedCourse{}
	}
	return ctx.JSON(http.StatusOK, rows)
}

func (api *planApi) addCourse(ctx echo.Context) error {
	p, err := contextPlan(ctx)
	if err != nil {
		return err
	}
	var data plan.NewPlannedCourse
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewPlannedCourse")
	}

	pc, err := api.svc.AddPlannedCourse(ctx.Request().Context(), p.ID, data)
	if err != nil {
		return errors.Wrap(err, "adding planned course")
	}
	return ctx.JSON(http.StatusCreated, pc)
}

func (api *planApi) destroyCourse(ctx echo.Context) error {
	p, err := contextPlan(ctx)
	if err != nil {
		return err
	}
	id, err := paramID(ctx, "courseId")
	if err != nil {
		return err
	}

	if _, err = api.svc.DeletePlannedCourse(ctx.Request().Context(), p.ID, id); err != nil {
		return errors.Wrap(err, "deleting planned course")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *planApi) moveCourse(ctx echo.Context) error {
	p, err := contextPlan(ctx)
	if err != nil {
		return err
	}
	id, err := paramID(ctx, "courseId")
	if err != nil {
		return err
	}
	var data plan.MoveCourse
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to MoveCourse")
	}

	if err = api.svc.MovePlannedCourse(ctx.Request().Context(), p.ID, id, data); err != nil {
		return errors.Wrap(err, "moving planned course")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// Transfers

func (api *planApi) queryTransfers(ctx echo.Context) error {
	p, err := contextPlan(ctx)
	if err != nil {
		return err
	}
	rows, err := api.svc.ListTransfers(ctx.Request().Context(), p.ID)
	if err != nil {
		return errors.Wrap(err, "querying transfers")
	}
	if rows == nil {
		rows = []plan.TransferCourse{}
	}
	return ctx.JSON(http.StatusOK, rows)
}

func (api *planApi) transferCredits(ctx echo.Context) error {
	p, err := contextPlan(ctx)
	if err != nil {
		return err
	}
	sum, err := api.svc.SumTransferCredits(ctx.Request().Context(), p.ID)
	if err != nil {
		return errors.Wrap(err, "summing transfer credits")
	}
	return ctx.JSON(http.StatusOK, echo.Map{"credit_hours": sum})
}

func (api *planApi) replaceTransfers(ctx echo.Context) error {
	p, err := contextPlan(ctx)
	if err != nil {
		return err
	}
	var data TransfersRequest
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to TransfersRequest")
	}

	rows, err := api.svc.ReplaceTransfers(ctx.Request().Context(), p.ID, data.Rows)
	if err != nil {
		return errors.Wrap(err, "replacing transfers")
	}
	if rows == nil {
		rows = []plan.TransferCourse{}
	}
	return ctx.JSON(http.StatusOK, rows)
}

func (api *planApi) addTransfer(ctx echo.Context) error {
	p, err := contextPlan(ctx)
	if err != nil {
		return err
	}
	var data plan.NewTransferCourse
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewTransferCourse")
	}

	tc, err := api.svc.AddTransfer(ctx.Request().Context(), p.ID, data)
	if err != nil {
		return errors.Wrap(err, "adding transfer")
	}
	return ctx.JSON(http.StatusCreated, tc)
}

func (api *planApi) destroyTransfer(ctx echo.Context) error {
	p, err := contextPlan(ctx)
	if err != nil {
		return err
	}
	id, err := paramID(ctx, "transferId")
	if err != nil {
		return err
	}

	if _, err = api.svc.DeleteTransfer(ctx.Request().Context(), p.ID, id); err != nil {
		return errors.Wrap(err, "deleting transfer")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// Committee

func (api *planApi) queryCommittee(ctx echo.Context) error {
	p, err := contextPlan(ctx)
	if err != nil {
		return err
	}
	members, err := api.svc.ListCommittee(ctx.Request().Context(), p.ID)
	if err != nil {
		return errors.Wrap(err, "querying committee")
	}
	if members == nil {
		members = []plan.CommitteeMember{}
	}
	return ctx.JSON(http.StatusOK, members)
}

func (api *planApi) replaceCommittee(ctx echo.Context) error {
	p, err := contextPlan(ctx)
	if err != nil {
		return err
	}
	var data CommitteeRequest
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to CommitteeRequest")
	}

	members, err := api.svc.ReplaceCommittee(ctx.Request().Context(), p.ID, data.Members)
	if err != nil {
		return errors.Wrap(err, "replacing committee")
	}
	if members == nil {
		members = []plan.CommitteeMember{}
	}
	return ctx.JSON(http.StatusOK, members)
}

// Ignored courses

func (api *planApi) queryIgnored(ctx echo.Context) error {
	p, err := contextPlan(ctx)
	if err != nil {
		return err
	}
	rows, err := api.svc.ListIgnoredCourses(ctx.Request().Context(), p.StudentKey, p.Degree)
	if err != nil {
		return errors.Wrap(err, "querying ignored courses")
	}
	if rows == nil {
		rows = []plan.IgnoredCourse{}
	}
	return ctx.JSON(http.StatusOK, rows)
}

func (api *planApi) ignore(ctx echo.Context) error {
	p, err := contextPlan(ctx)
	if err != nil {
		return err
	}
	var data plan.IgnoredCourse
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to IgnoredCourse")
	}
	data.StudentKey, data.Degree = p.StudentKey, p.Degree

	ic, err := api.svc.IgnoreCourse(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "ignoring course")
	}
	return ctx.JSON(http.StatusOK, ic)
}

// Workflow

func (api *planApi) queryHistory(ctx echo.Context) error {
	p, err := contextPlan(ctx)
	if err != nil {
		return err
	}
	rows, err := api.svc.ListHistory(ctx.Request().Context(), p.ID)
	if err != nil {
		return errors.Wrap(err, "querying history")
	}
	if rows == nil {
		rows = []plan.HistoryEntry{}
	}
	return ctx.JSON(http.StatusOK, rows)
}

func (api *planApi) comment(ctx echo.Context) error {
	p, err := contextPlan(ctx)
	if err != nil {
		return err
	}
	var data NoteRequest
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NoteRequest")
	}

	h, err := api.approval.Comment(ctx.Request().Context(), contextActor(ctx), p.ID, data.Note)
	if err != nil {
		return errors.Wrap(err, "commenting")
	}
	return ctx.JSON(http.StatusCreated, h)
}

func (api *planApi) setStatus(ctx echo.Context) error {
	p, err := contextPlan(ctx)
	if err != nil {
		return err
	}
	var data StatusRequest
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to StatusRequest")
	}

	p, err = api.approval.Transition(ctx.Request().Context(), contextActor(ctx), p.ID, data.Status, data.Note)
	if err != nil {
		return errors.Wrap(err, "updating status")
	}
	return ctx.JSON(http.StatusOK, p)
}

func (api *planApi) submit(ctx echo.Context) error {
	p, err := contextPlan(ctx)
	if err != nil {
		return err
	}
	var data NoteRequest
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NoteRequest")
	}

	p, report, err := api.approval.Submit(ctx.Request().Context(), contextActor(ctx), p.ID, data.Note)
	if err != nil {
		return errors.Wrap(err, "submitting plan")
	}
	return ctx.JSON(http.StatusOK, SubmitResponse{Plan: p, Report: report})
}

func (api *planApi) validate(ctx echo.Context) error {
	p, err := contextPlan(ctx)
	if err != nil {
		return err
	}
	report, err := api.approval.Evaluate(ctx.Request().Context(), p)
	if err != nil {
		return errors.Wrap(err, "evaluating plan")
	}
	return ctx.JSON(http.StatusOK, report)
}

func (api *planApi) validateDraft(ctx echo.Context) error {
	var data DraftRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to DraftRequest")
	}
	report, err := api.approval.ValidateDraft(ctx.Request().Context(), data.input())
	if err != nil {
		return errors.Wrap(err, "validating draft")
	}
	return ctx.JSON(http.StatusOK, report)
}

func (api *planApi) pending(ctx echo.Context) error {
	ordering := new(Ordering)
	ordering.Bind(ctx)

	plans, err := api.approval.Pending(ctx.Request().Context(), contextActor(ctx), ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying pending plans")
	}
	if plans == nil {
		plans = []plan.Plan{}
	}
	return ctx.JSON(http.StatusOK, plans)
}
