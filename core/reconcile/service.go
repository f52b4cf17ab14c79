package reconcile

import (
	"context"

	"github.com/kat-co/vala"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/dtsmedt/PlanOfStudy/core"
	"github.com/dtsmedt/PlanOfStudy/core/catalog"
	"github.com/dtsmedt/PlanOfStudy/core/plan"
	"github.com/dtsmedt/PlanOfStudy/core/transcript"
)

type Service struct {
	plans       plan.Repository
	transcripts transcript.Repository
	courses     catalog.Repository
	log         core.Logger
}

func NewService(
	plans plan.Repository,
	transcripts transcript.Repository,
	courses catalog.Repository,
	logger core.Logger,
) *Service {
	vala.BeginValidation().Validate(
		vala.IsNotNil(plans, "plans"),
		vala.IsNotNil(transcripts, "transcripts"),
		vala.IsNotNil(courses, "courses"),
		vala.IsNotNil(logger, "logger"),
	).CheckAndPanic()

	return &Service{plans: plans, transcripts: transcripts, courses: courses, log: logger}
}

// Compare loads everything the student's plan is reconciled against and runs Reconcile.
// A student without a plan yet is compared against an empty plan.
func (svc *Service) Compare(ctx context.Context, studentKey string, degree plan.DegreeType) (Result, error) {
	studentKey = core.CleanString(studentKey)
	if studentKey == "" {
		return Result{}, core.NewValidationError(plan.ErrInvalidStudent)
	}
	if !degree.Valid() {
		return Result{}, core.NewValidationError(plan.ErrInvalidDegree)
	}

	var (
		records []transcript.Record
		planned []plan.PlannedCourse
		ignored []plan.IgnoredCourse
		courses []catalog.Course
	)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s, err := svc.plans.GetStudent(ctx, studentKey)
		if err != nil {
			return err
		}
		records, err = svc.transcripts.ListByStudentName(ctx, transcript.StudentName(s.First, s.Last))
		return errors.Wrap(err, "loading transcripts")
	})
	g.Go(func() error {
		p, err := svc.plans.GetPlan(ctx, studentKey, degree)
		if err != nil {
			if errors.Cause(err) == plan.ErrNotFound {
				return nil
			}
			return err
		}
		planned, err = svc.plans.ListPlannedCourses(ctx, p.ID)
		return errors.Wrap(err, "loading planned courses")
	})
	g.Go(func() error {
		var err error
		ignored, err = svc.plans.ListIgnoredCourses(ctx, studentKey, degree)
		return errors.Wrap(err, "loading ignored courses")
	})
	g.Go(func() error {
		var err error
		courses, err = svc.courses.ListCoursesByArea(ctx, nil)
		return errors.Wrap(err, "loading catalog")
	})
	if err := g.Wait(); err != nil {
		return Result{}, err
	}

	result := Reconcile(records, planned, ignored, courses)
	svc.log.Debug("transcript reconciled",
		"pid", studentKey,
		"pos_type", degree.String(),
		"transcripts", len(records),
		"to_add", len(result.ToAdd),
		"to_remove", len(result.ToRemove),
		"to_missing", len(result.ToMissing),
		"to_ignore", len(result.ToIgnore),
	)
	return result, nil
}
