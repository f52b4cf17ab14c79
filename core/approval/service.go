package approval

import (
	"context"
	"sort"

	"github.com/kat-co/vala"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/dtsmedt/PlanOfStudy/core"
	"github.com/dtsmedt/PlanOfStudy/core/catalog"
	"github.com/dtsmedt/PlanOfStudy/core/plan"
	"github.com/dtsmedt/PlanOfStudy/core/requirement"
)

var (
	ErrNotEligible    = errors.New("Plan of study does not meet the degree requirements.")
	ErrNoteRequired   = errors.New("A note is required to reject a plan of study.")
	ErrCommentMissing = errors.New("Comment cannot be blank.")
)

type Service struct {
	plans   *plan.Service
	courses catalog.Repository
	log     core.Logger
}

func NewService(plans *plan.Service, courses catalog.Repository, logger core.Logger) *Service {
	vala.BeginValidation().Validate(
		vala.IsNotNil(plans, "plans"),
		vala.IsNotNil(courses, "courses"),
		vala.IsNotNil(logger, "logger"),
	).CheckAndPanic()

	return &Service{plans: plans, courses: courses, log: logger}
}

// Evaluate runs the requirement validator over the stored plan.
func (svc *Service) Evaluate(ctx context.Context, p plan.Plan) (requirement.Report, error) {
	var (
		planned   []plan.PlannedCourse
		transfers []plan.TransferCourse
		committee []plan.CommitteeMember
		courses   []catalog.Course
	)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		planned, err = svc.plans.ListPlannedCourses(ctx, p.ID)
		return errors.Wrap(err, "loading planned courses")
	})
	g.Go(func() (err error) {
		transfers, err = svc.plans.ListTransfers(ctx, p.ID)
		return errors.Wrap(err, "loading transfers")
	})
	g.Go(func() (err error) {
		committee, err = svc.plans.ListCommittee(ctx, p.ID)
		return errors.Wrap(err, "loading committee")
	})
	g.Go(func() (err error) {
		courses, err = svc.courses.ListCoursesByArea(ctx, nil)
		return errors.Wrap(err, "loading catalog")
	})
	if err := g.Wait(); err != nil {
		return requirement.Report{}, err
	}

	return requirement.Validate(requirement.Input{
		Degree:    p.Degree,
		Groups:    requirement.GroupPlanned(planned),
		Transfers: transfers,
		Committee: committee,
		Chair:     p.CommitteeChair,
		Courses:   catalog.CoursesByID(courses),
	}), nil
}

// ValidateDraft runs the requirement validator over an unsaved plan; the catalog is loaded here.
func (svc *Service) ValidateDraft(ctx context.Context, in requirement.Input) (requirement.Report, error) {
	if !in.Degree.Valid() {
		return requirement.Report{}, core.NewValidationError(plan.ErrInvalidDegree)
	}
	courses, err := svc.courses.ListCoursesByArea(ctx, nil)
	if err != nil {
		return requirement.Report{}, errors.Wrap(err, "loading catalog")
	}
	in.Courses = catalog.CoursesByID(courses)
	return requirement.Validate(in), nil
}

// Submit sends a saved plan to the graduate coordinator. Only the owner may submit, and only a plan
// that meets every requirement; otherwise the report explains what is missing.
func (svc *Service) Submit(ctx context.Context, actor Actor, planID int, note string) (plan.Plan, requirement.Report, error) {
	p, err := svc.plans.GetPlanByID(ctx, planID)
	if err != nil {
		return plan.Plan{}, requirement.Report{}, err
	}
	t, _ := Find(plan.StatusSaved, plan.StatusPendingGradCoordinator)
	if !actor.IsOwner(p) {
		return p, requirement.Report{}, core.NewForbiddenError("only the student may submit their plan of study")
	}
	if !actor.Can(t, p) {
		return p, requirement.Report{}, core.NewValidationError(
			errors.Errorf("cannot submit a plan of study while %q", p.Status.String()),
		)
	}

	report, err := svc.Evaluate(ctx, p)
	if err != nil {
		return p, requirement.Report{}, err
	}
	if !report.SubmitEligible() {
		failed := report.Flags.Failed()
		fields := make([]core.FieldError, 0, len(failed)+len(report.RowViolations))
		for _, flag := range failed {
			fields = append(fields, core.FieldError{Field: flag, Error: "requirement not met"})
		}
		for _, rv := range report.RowViolations {
			fields = append(fields, core.FieldError{Field: "rows[" + rv.RowID + "]", Error: rv.Messages[0]})
		}
		return p, report, core.NewValidationError(ErrNotEligible, fields...)
	}

	p, err = svc.apply(ctx, actor, p, t, note)
	return p, report, err
}

// Transition moves the plan to `to` on behalf of `actor`. Submission goes through Submit.
func (svc *Service) Transition(ctx context.Context, actor Actor, planID int, to plan.Status, note string) (plan.Plan, error) {
	if to == plan.StatusPendingGradCoordinator {
		p, _, err := svc.Submit(ctx, actor, planID, note)
		return p, err
	}
	if !to.Valid() {
		return plan.Plan{}, core.NewValidationError(nil, core.FieldError{Field: "status", Error: "invalid status"})
	}

	p, err := svc.plans.GetPlanByID(ctx, planID)
	if err != nil {
		return plan.Plan{}, err
	}
	t, ok := Find(p.Status, to)
	if !ok {
		return p, core.NewValidationError(
			errors.Errorf("cannot move a plan of study from %q to %q", p.Status.String(), to.String()),
		)
	}
	if !actor.Can(t, p) {
		return p, core.NewForbiddenError("only the " + t.Signer.String() + " may do this")
	}
	if t.Rejects() && core.CleanString(note) == "" {
		return p, core.NewValidationError(ErrNoteRequired, core.FieldError{Field: "note", Error: ErrNoteRequired.Error()})
	}
	return svc.apply(ctx, actor, p, t, note)
}

func (svc *Service) apply(ctx context.Context, actor Actor, p plan.Plan, t Transition, note string) (plan.Plan, error) {
	updated, err := svc.plans.SetStatus(ctx, p.ID, t.To)
	if err != nil {
		return p, errors.Wrap(err, "updating status")
	}
	if _, err := svc.plans.AddHistory(ctx, plan.HistoryEntry{
		PlanID:    p.ID,
		Status:    t.To,
		Note:      note,
		ChangedBy: actor.displayName(),
	}); err != nil {
		return updated, err
	}

	svc.log.Info("plan status changed",
		"pos_id", p.ID,
		"from", t.From.String(),
		"to", t.To.String(),
		"by", actor.Key,
	)
	return updated, nil
}

// Comment appends a note to the plan history without changing its status.
func (svc *Service) Comment(ctx context.Context, actor Actor, planID int, note string) (plan.HistoryEntry, error) {
	if core.CleanString(note) == "" {
		return plan.HistoryEntry{}, core.NewValidationError(ErrCommentMissing)
	}
	p, err := svc.plans.GetPlanByID(ctx, planID)
	if err != nil {
		return plan.HistoryEntry{}, err
	}
	if !actor.IsOwner(p) && !actor.IsGradCoordinator() && !actor.ChairsPlan(p) {
		return plan.HistoryEntry{}, core.NewForbiddenError("permission denied")
	}
	return svc.plans.AddHistory(ctx, plan.HistoryEntry{
		PlanID:    p.ID,
		Status:    p.Status,
		Note:      note,
		ChangedBy: actor.displayName(),
	})
}

// Pending lists the plans waiting on `actor`. A chair only sees the plans they chair.
func (svc *Service) Pending(ctx context.Context, actor Actor, orderings []core.DBOrdering) ([]plan.Plan, error) {
	var plans []plan.Plan
	if actor.IsGradCoordinator() {
		gc, err := svc.plans.ListPlans(ctx, plan.Filter{
			Statuses:  PendingStatuses(RoleGradCoordinator),
			Orderings: orderings,
		})
		if err != nil {
			return nil, err
		}
		plans = append(plans, gc...)
	}
	if actor.Roles.Has(RoleChair) && actor.Key != "" {
		chaired, err := svc.plans.ListPlans(ctx, plan.Filter{
			Statuses:       PendingStatuses(RoleChair),
			CommitteeChair: actor.Key,
			Orderings:      orderings,
		})
		if err != nil {
			return nil, err
		}
		plans = append(plans, chaired...)
	}
	if actor.IsGradCoordinator() && actor.Roles.Has(RoleChair) {
		sort.SliceStable(plans, func(i, j int) bool { return plans[i].ID < plans[j].ID })
	}
	return plans, nil
}

func (a Actor) displayName() string {
	if name := core.CleanString(a.Name); name != "" {
		return name
	}
	return a.Key
}
