package action_test

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dtsmedt/PlanOfStudy/core"
	"github.com/dtsmedt/PlanOfStudy/core/action"
	"github.com/dtsmedt/PlanOfStudy/core/plan"
	"github.com/dtsmedt/PlanOfStudy/core/reconcile"
	"github.com/dtsmedt/PlanOfStudy/core/term"
	"github.com/dtsmedt/PlanOfStudy/core/transcript"
	"github.com/dtsmedt/PlanOfStudy/storage/database/dummy"
	"github.com/dtsmedt/PlanOfStudy/tests"
)

type fixture struct {
	repo      plan.Repository
	plans     *plan.Service
	applier   *action.Applier
	reconcile *reconcile.Service
	records   transcript.Repository
}

func setup(t *testing.T) fixture {
	db := testutil.OpenDB(t)
	repo := dummydb.NewPlanRepository(db)
	courses := dummydb.NewCatalogRepository(db)
	records := dummydb.NewTranscriptRepository(db)
	validate, translator := testutil.NewValidator()
	plans := plan.NewService(repo, courses, validate, translator, &core.NopLogger{})

	return fixture{
		repo:      repo,
		plans:     plans,
		applier:   action.NewApplier(plans, &core.NopLogger{}),
		reconcile: reconcile.NewService(repo, records, courses, &core.NopLogger{}),
		records:   records,
	}
}

func bucket(id term.ID, year int) *term.Bucket {
	return &term.Bucket{Term: id, Year: year}
}

func TestApplier_Apply(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	p := testutil.CreatePlan(t, f.repo, "jdoe", plan.DegreeMS, "", plan.StatusSaved)
	pc := testutil.AddPlanned(t, f.repo, p.ID, testutil.CourseCompilers, 2, 3, term.Fall, 2024)

	tests := []struct {
		name        string
		act         action.Action
		wantChanged bool
		wantErr     bool
	}{
		{
			name:        "add",
			act:         action.Action{Kind: action.KindAdd, CourseID: testutil.CourseAlgorithms, Term: term.Fall, Year: 2024},
			wantChanged: true,
		},
		{
			name: "add again",
			act:  action.Action{Kind: action.KindAdd, CourseID: testutil.CourseAlgorithms, Term: term.Fall, Year: 2024},
		},
		{
			name:        "add same course in another term",
			act:         action.Action{Kind: action.KindAdd, CourseID: testutil.CourseAlgorithms, Term: term.Spring, Year: 2025},
			wantChanged: true,
		},
		{
			name:    "add with ambiguous area",
			act:     action.Action{Kind: action.KindAdd, CourseID: testutil.CourseMultiArea, Term: term.Fall, Year: 2024},
			wantErr: true,
		},
		{
			name: "move to the same slot",
			act:  action.Move(pc.ID, term.Bucket{Term: term.Fall, Year: 2024}),
		},
		{
			name:        "move",
			act:         action.Move(pc.ID, term.Bucket{Term: term.Summer1, Year: 2025}),
			wantChanged: true,
		},
		{
			name:    "move unknown row",
			act:     action.Move(9999, term.Bucket{Term: term.Summer1, Year: 2025}),
			wantErr: true,
		},
		{
			name:        "ignore",
			act:         action.Action{Kind: action.KindIgnore, Code: "hist 1000", Term: term.Fall, Year: 2024},
			wantChanged: true,
		},
		{
			name: "ignore again",
			act:  action.Action{Kind: action.KindIgnore, Code: "HIST  1000", Term: term.Fall, Year: 2024},
		},
		{
			name:        "remove",
			act:         action.Remove(reconcile.Remove{PlannedCourseID: pc.ID, Code: "CS 5214"}),
			wantChanged: true,
		},
		{
			name: "remove again",
			act:  action.Remove(reconcile.Remove{PlannedCourseID: pc.ID, Code: "CS 5214"}),
		},
		{
			name:    "remove without id",
			act:     action.Action{Kind: action.KindRemove},
			wantErr: true,
		},
		{
			name:    "unknown kind",
			act:     action.Action{Kind: "drop"},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := f.applier.Apply(ctx, p, tt.act)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantChanged, out.Changed)
		})
	}

	rows, err := f.plans.ListPlannedCourses(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	for _, r := range rows {
		assert.Equal(t, testutil.CourseAlgorithms, r.CourseID)
	}
}

func TestApplier_ReadOnlyPlan(t *testing.T) {
	f := setup(t)
	p := testutil.CreatePlan(t, f.repo, "jdoe", plan.DegreeMS, "", plan.StatusPendingFaculty)

	_, err := f.applier.Apply(context.Background(), p, action.Action{
		Kind: action.KindAdd, CourseID: testutil.CourseAlgorithms, Term: term.Fall, Year: 2024,
	})
	vErr, ok := errors.Cause(err).(*core.ValidationError)
	require.True(t, ok)
	assert.Contains(t, vErr.Error(), "read-only")
}

func TestApplier_ApplyAllStopsAtFirstFailure(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	p := testutil.CreatePlan(t, f.repo, "jdoe", plan.DegreeMS, "", plan.StatusSaved)

	outcomes, err := f.applier.ApplyAll(ctx, p, []action.Action{
		{Kind: action.KindAdd, CourseID: testutil.CourseAlgorithms, Term: term.Fall, Year: 2024},
		{Kind: action.KindRemove},
		{Kind: action.KindAdd, CourseID: testutil.CourseCompilers, Term: term.Fall, Year: 2024},
	})
	require.Error(t, err)
	assert.Equal(t, "action 2 (remove): planned_course_id: planned_course_id is required", err.Error())
	_, ok := errors.Cause(err).(*core.ValidationError)
	assert.True(t, ok)
	require.Len(t, outcomes, 1)
	assert.True(t, outcomes[0].Changed)

	rows, err := f.plans.ListPlannedCourses(ctx, p.ID)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestApplier_ConvergesWithReconcile(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	testutil.CreateStudent(t, f.repo, "jdoe", "Jane", "Doe")
	p := testutil.CreatePlan(t, f.repo, "jdoe", plan.DegreeMS, "", plan.StatusSaved)
	testutil.AddPlanned(t, f.repo, p.ID, testutil.CourseCompilers, 2, 3, term.Fall, 2024)
	testutil.AddPlanned(t, f.repo, p.ID, testutil.CourseAdvAlgo, 1, 3, term.Fall, 2024)

	_, err := f.records.InsertMany(ctx, []transcript.Record{
		{Name: "Doe, Jane", Subject: "CS", Number: "5114", TermTaken: "202408", CreditHours: 3, Grade: "A"},
		{Name: "Doe, Jane", Subject: "CS", Number: "5214", TermTaken: "202408", CreditHours: 3, Grade: "F"},
		{Name: "Doe, Jane", Subject: "HIST", Number: "1000", TermTaken: "202408", CreditHours: 3, Grade: "A"},
		{Name: "Doe, Jane", Subject: "CS", Number: "5525", TermTaken: "202501", CreditHours: 3, Grade: "B"},
		{Name: "Doe, Jane", Subject: "CS", Number: "5314", TermTaken: "2024", CreditHours: 3, Grade: "B"},
	})
	require.NoError(t, err)

	result, err := f.reconcile.Compare(ctx, "jdoe", plan.DegreeMS)
	require.NoError(t, err)
	require.Len(t, result.ToAdd, 3)
	require.Len(t, result.ToRemove, 1)
	require.Len(t, result.ToMissing, 1)
	require.Len(t, result.ToIgnore, 1)

	var actions []action.Action
	for _, a := range result.ToAdd {
		switch {
		case a.MissingTerm:
			actions = append(actions, action.Add(a, bucket(term.Fall, 2025), nil))
		case a.NeedsArea():
			actions = append(actions, action.Add(a, nil, &a.Areas[0]))
		default:
			actions = append(actions, action.Add(a, nil, nil))
		}
	}
	for _, r := range result.ToRemove {
		actions = append(actions, action.Remove(r))
	}
	for _, m := range result.ToMissing {
		actions = append(actions, action.RemoveMissing(m))
	}
	for _, ig := range result.ToIgnore {
		actions = append(actions, action.Action{Kind: action.KindIgnore, Code: ig.Code, Term: *ig.Term, Year: *ig.Year})
	}

	outcomes, err := f.applier.ApplyAll(ctx, p, actions)
	require.NoError(t, err)
	for _, out := range outcomes {
		assert.True(t, out.Changed, "%+v", out.Action)
	}

	again, err := f.reconcile.Compare(ctx, "jdoe", plan.DegreeMS)
	require.NoError(t, err)
	assert.Empty(t, again.ToAdd)
	assert.Empty(t, again.ToRemove)
	assert.Empty(t, again.ToMissing)
	assert.Empty(t, again.ToIgnore)

	outcomes, err = f.applier.ApplyAll(ctx, p, actions)
	require.NoError(t, err)
	for _, out := range outcomes {
		assert.False(t, out.Changed, "%+v", out.Action)
	}
}
