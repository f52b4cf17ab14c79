// Package action applies accepted reconciliation items to a plan of study.
package action

import (
	"context"

	"github.com/kat-co/vala"
	"github.com/pkg/errors"

	"github.com/dtsmedt/PlanOfStudy/core"
	"github.com/dtsmedt/PlanOfStudy/core/catalog"
	"github.com/dtsmedt/PlanOfStudy/core/plan"
	"github.com/dtsmedt/PlanOfStudy/core/reconcile"
	"github.com/dtsmedt/PlanOfStudy/core/term"
)

type Kind string

const (
	KindAdd    Kind = "add"
	KindRemove Kind = "remove"
	KindMove   Kind = "move"
	KindIgnore Kind = "ignore"
)

func (k Kind) Valid() bool {
	switch k {
	case KindAdd, KindRemove, KindMove, KindIgnore:
		return true
	}
	return false
}

// Action is one accepted item. Which fields are used depends on Kind:
// add takes CourseID, Term, Year and optionally Area and CreditHours;
// remove takes PlannedCourseID; move takes PlannedCourseID, Term and Year;
// ignore takes Code, Term and Year.
type Action struct {
	Kind            Kind    `json:"kind"`
	PlannedCourseID int     `json:"planned_course_id,omitempty"`
	CourseID        int     `json:"course_id,omitempty"`
	Code            string  `json:"code,omitempty"`
	Term            term.ID `json:"term_id,omitempty"`
	Year            int     `json:"year,omitempty"`
	Area            *int    `json:"course_area,omitempty"`
	CreditHours     *int    `json:"credit_hours,omitempty"`
}

// Outcome reports what an action did. Changed is false when the plan already reflected it.
type Outcome struct {
	Action  Action              `json:"action"`
	Changed bool                `json:"changed"`
	Planned *plan.PlannedCourse `json:"planned_course,omitempty"`
}

// Add accepts a reconciliation add. Adds with a missing term take the given slot; area picks
// among several catalog areas and may be nil.
func Add(a reconcile.Add, slot *term.Bucket, area *int) Action {
	act := Action{Kind: KindAdd, CourseID: a.CourseID, Code: a.Code, Area: area}
	if b, ok := a.Bucket(); ok {
		act.Term, act.Year = b.Term, b.Year
	}
	if slot != nil {
		act.Term, act.Year = slot.Term, slot.Year
	}
	return act
}

func Remove(r reconcile.Remove) Action {
	return Action{Kind: KindRemove, PlannedCourseID: r.PlannedCourseID, Code: r.Code, Term: r.Term, Year: r.Year}
}

// RemoveMissing drops a planned course the transcript shows was never taken.
func RemoveMissing(m reconcile.Missing) Action {
	return Action{Kind: KindRemove, PlannedCourseID: m.PlannedCourseID, Code: m.Code, Term: m.Term, Year: m.Year}
}

// Move reschedules a planned course the transcript shows was taken in another term.
func Move(plannedCourseID int, to term.Bucket) Action {
	return Action{Kind: KindMove, PlannedCourseID: plannedCourseID, Term: to.Term, Year: to.Year}
}

// Ignore dismisses an add so later reconciliations stop reporting it.
func Ignore(a reconcile.Add) Action {
	act := Action{Kind: KindIgnore, Code: a.Code}
	if b, ok := a.Bucket(); ok {
		act.Term, act.Year = b.Term, b.Year
	}
	return act
}

type Applier struct {
	plans *plan.Service
	log   core.Logger
}

func NewApplier(plans *plan.Service, logger core.Logger) *Applier {
	vala.BeginValidation().Validate(
		vala.IsNotNil(plans, "plans"),
		vala.IsNotNil(logger, "logger"),
	).CheckAndPanic()

	return &Applier{plans: plans, log: logger}
}

// Apply issues the single mutation `act` stands for against plan `p`.
// Re-applying an action that already took effect changes nothing and does not fail.
func (ap *Applier) Apply(ctx context.Context, p plan.Plan, act Action) (Outcome, error) {
	out := Outcome{Action: act}
	var err error

	switch act.Kind {
	case KindAdd:
		out, err = ap.add(ctx, p, act)
	case KindRemove:
		if act.PlannedCourseID <= 0 {
			return out, core.NewValidationError(nil, core.FieldError{Field: "planned_course_id", Error: "planned_course_id is required"})
		}
		out.Changed, err = ap.plans.DeletePlannedCourse(ctx, p.ID, act.PlannedCourseID)
	case KindMove:
		if act.PlannedCourseID <= 0 {
			return out, core.NewValidationError(nil, core.FieldError{Field: "planned_course_id", Error: "planned_course_id is required"})
		}
		out, err = ap.move(ctx, p, act)
	case KindIgnore:
		out.Changed, err = ap.ignore(ctx, p, act)
	default:
		return out, core.NewValidationError(errors.Errorf("unknown action kind %q", act.Kind))
	}
	if err != nil {
		return out, err
	}

	ap.log.Info("plan action applied", "pos_id", p.ID, "kind", string(act.Kind), "code", act.Code, "changed", out.Changed)
	return out, nil
}

func (ap *Applier) add(ctx context.Context, p plan.Plan, act Action) (Outcome, error) {
	out := Outcome{Action: act}
	rows, err := ap.plans.ListPlannedCourses(ctx, p.ID)
	if err != nil {
		return out, err
	}
	for i := range rows {
		if rows[i].CourseID == act.CourseID && rows[i].Term == act.Term && rows[i].Year == act.Year {
			out.Planned = &rows[i]
			return out, nil
		}
	}

	pc, err := ap.plans.AddPlannedCourse(ctx, p.ID, plan.NewPlannedCourse{
		CourseID:    act.CourseID,
		CreditHours: act.CreditHours,
		Term:        act.Term,
		Year:        act.Year,
		Area:        act.Area,
	})
	if err != nil {
		return out, err
	}
	out.Changed = true
	out.Planned = &pc
	return out, nil
}

func (ap *Applier) move(ctx context.Context, p plan.Plan, act Action) (Outcome, error) {
	out := Outcome{Action: act}
	rows, err := ap.plans.ListPlannedCourses(ctx, p.ID)
	if err != nil {
		return out, err
	}
	for i := range rows {
		if rows[i].ID != act.PlannedCourseID {
			continue
		}
		out.Changed = rows[i].Term != act.Term || rows[i].Year != act.Year
		if !out.Changed {
			out.Planned = &rows[i]
			return out, nil
		}
		if err := ap.plans.MovePlannedCourse(ctx, p.ID, act.PlannedCourseID, plan.MoveCourse{Term: act.Term, Year: act.Year}); err != nil {
			return out, err
		}
		moved := rows[i]
		moved.Term, moved.Year = act.Term, act.Year
		out.Planned = &moved
		return out, nil
	}
	return out, plan.ErrPlannedCourseNotFound
}

func (ap *Applier) ignore(ctx context.Context, p plan.Plan, act Action) (bool, error) {
	ic := plan.IgnoredCourse{
		StudentKey: p.StudentKey,
		Degree:     p.Degree,
		CourseCode: catalog.NormalizeCode(act.Code),
		Term:       act.Term,
		Year:       act.Year,
	}
	existing, err := ap.plans.ListIgnoredCourses(ctx, p.StudentKey, p.Degree)
	if err != nil {
		return false, err
	}
	for _, e := range existing {
		if e == ic {
			return false, nil
		}
	}
	if _, err := ap.plans.IgnoreCourse(ctx, ic); err != nil {
		return false, err
	}
	return true, nil
}

// ApplyAll applies the actions in order and stops at the first failure. The outcomes of the
// actions applied before the failure are returned with the error.
func (ap *Applier) ApplyAll(ctx context.Context, p plan.Plan, actions []Action) ([]Outcome, error) {
	outcomes := make([]Outcome, 0, len(actions))
	for i, act := range actions {
		out, err := ap.Apply(ctx, p, act)
		if err != nil {
			return outcomes, errors.WithMessagef(err, "action %d (%s)", i+1, act.Kind)
		}
		outcomes = append(outcomes, out)
	}
	return outcomes, nil
}
