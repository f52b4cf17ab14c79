package approval_test

import (
	"context"
	"strconv"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dtsmedt/PlanOfStudy/core"
	"github.com/dtsmedt/PlanOfStudy/core/approval"
	"github.com/dtsmedt/PlanOfStudy/core/catalog"
	"github.com/dtsmedt/PlanOfStudy/core/plan"
	"github.com/dtsmedt/PlanOfStudy/core/requirement"
	"github.com/dtsmedt/PlanOfStudy/core/term"
	"github.com/dtsmedt/PlanOfStudy/storage/database/dummy"
	"github.com/dtsmedt/PlanOfStudy/tests"
)

var (
	student    = approval.Actor{Key: "jdoe", Name: "Jane Doe"}
	chair      = approval.Actor{Key: "faculty1", Name: "Prof. One", Roles: approval.RoleChair}
	otherChair = approval.Actor{Key: "faculty2", Roles: approval.RoleChair}
	gc         = approval.Actor{Key: "gc1", Name: "Grad Coordinator", Roles: approval.RoleGradCoordinator}
)

func setup(t *testing.T) (*approval.Service, *plan.Service, plan.Repository) {
	db := testutil.OpenDB(t)
	repo := dummydb.NewPlanRepository(db)
	courses := dummydb.NewCatalogRepository(db)
	validate, translator := testutil.NewValidator()
	plans := plan.NewService(repo, courses, validate, translator, &core.NopLogger{})
	return approval.NewService(plans, courses, &core.NopLogger{}), plans, repo
}

// eligibleMS stores an MS plan that meets every requirement: 29 planned credits plus 3 transferred.
func eligibleMS(t *testing.T, repo plan.Repository, key string) plan.Plan {
	p := testutil.CreatePlan(t, repo, key, plan.DegreeMS, chair.Key, plan.StatusSaved)
	ctx := context.Background()

	testutil.AddPlanned(t, repo, p.ID, testutil.CourseSeminar, 1, 1, term.Fall, 2024)
	testutil.AddPlanned(t, repo, p.ID, testutil.CourseEthics, 0, 3, term.Fall, 2024)
	testutil.AddPlanned(t, repo, p.ID, testutil.CourseAlgorithms, 1, 3, term.Fall, 2024)
	testutil.AddPlanned(t, repo, p.ID, testutil.CourseMSResearch, 1, 3, term.Fall, 2024)
	testutil.AddPlanned(t, repo, p.ID, testutil.CourseSeminar, 1, 1, term.Spring, 2025)
	testutil.AddPlanned(t, repo, p.ID, testutil.CourseCompilers, 2, 3, term.Spring, 2025)
	testutil.AddPlanned(t, repo, p.ID, testutil.CourseNetworks, 3, 3, term.Spring, 2025)
	testutil.AddPlanned(t, repo, p.ID, testutil.CourseMSResearch, 1, 3, term.Spring, 2025)
	testutil.AddPlanned(t, repo, p.ID, testutil.CourseAdvAlgo, 1, 3, term.Fall, 2025)
	testutil.AddPlanned(t, repo, p.ID, testutil.CourseAnalysis, 4, 3, term.Fall, 2025)
	testutil.AddPlanned(t, repo, p.ID, testutil.CourseNumerical, catalog.AreaCognate, 3, term.Fall, 2025)

	_, err := repo.AddTransfer(ctx, plan.TransferCourse{PlanID: p.ID, Description: "Operating Systems", CreditHours: 3, Grade: "A"})
	require.NoError(t, err)
	_, err = repo.ReplaceCommittee(ctx, p.ID, []plan.CommitteeMember{
		{First: "Ada", Last: "Lovelace", Department: "CS", Role: "Member", Institution: "VT"},
	})
	require.NoError(t, err)
	return p
}

func TestService_Evaluate(t *testing.T) {
	svc, _, repo := setup(t)
	p := eligibleMS(t, repo, "jdoe")

	report, err := svc.Evaluate(context.Background(), p)
	require.NoError(t, err)
	assert.Empty(t, report.Messages())
	assert.True(t, report.SubmitEligible())
	assert.Equal(t, 32, report.TotalWithTransfer)
}

func TestService_Submit(t *testing.T) {
	svc, plans, repo := setup(t)
	ctx := context.Background()

	t.Run("not the owner", func(t *testing.T) {
		p := eligibleMS(t, repo, "owner1")
		_, _, err := svc.Submit(ctx, gc, p.ID, "")
		assert.True(t, core.IsForbidden(err))
	})

	t.Run("missing plan", func(t *testing.T) {
		_, _, err := svc.Submit(ctx, student, 9999, "")
		assert.True(t, core.IsNotFound(err))
	})

	t.Run("not eligible", func(t *testing.T) {
		p := testutil.CreatePlan(t, repo, "jdoe", plan.DegreePhD, "", plan.StatusSaved)
		testutil.AddPlanned(t, repo, p.ID, testutil.CourseAlgorithms, 1, 3, term.Fall, 2024)
		research := testutil.AddPlanned(t, repo, p.ID, testutil.CoursePhDResearch, 1, 0, term.Fall, 2024)

		got, report, err := svc.Submit(ctx, student, p.ID, "")
		vErr, ok := errors.Cause(err).(*core.ValidationError)
		require.True(t, ok, "%v", err)
		assert.Equal(t, approval.ErrNotEligible, vErr.Err)
		assert.False(t, report.SubmitEligible())

		fields := map[string]bool{}
		for _, f := range vErr.Fields {
			fields[f.Field] = true
		}
		assert.True(t, fields["phdTotalCreditsOK"])
		assert.True(t, fields["committeeChairOK"])
		assert.True(t, fields["rows["+strconv.Itoa(research.ID)+"]"])
		assert.Equal(t, plan.StatusSaved, got.Status)

		history, err := plans.ListHistory(ctx, p.ID)
		require.NoError(t, err)
		assert.Empty(t, history)
	})

	t.Run("eligible", func(t *testing.T) {
		p := eligibleMS(t, repo, "jdoe")

		got, report, err := svc.Submit(ctx, student, p.ID, "ready")
		require.NoError(t, err)
		assert.True(t, report.SubmitEligible())
		assert.Equal(t, plan.StatusPendingGradCoordinator, got.Status)

		history, err := plans.ListHistory(ctx, p.ID)
		require.NoError(t, err)
		require.Len(t, history, 1)
		assert.Equal(t, plan.StatusPendingGradCoordinator, history[0].Status)
		assert.Equal(t, "ready", history[0].Note)
		assert.Equal(t, "Jane Doe", history[0].ChangedBy)

		_, _, err = svc.Submit(ctx, student, p.ID, "")
		_, ok := errors.Cause(err).(*core.ValidationError)
		assert.True(t, ok, "%v", err)
	})
}

func TestService_Transition(t *testing.T) {
	svc, plans, repo := setup(t)
	ctx := context.Background()
	p := eligibleMS(t, repo, "jdoe")

	steps := []struct {
		name       string
		actor      approval.Actor
		to         plan.Status
		note       string
		wantErr    func(error) bool
		wantStatus plan.Status
	}{
		{name: "skip ahead", actor: gc, to: plan.StatusApproved, wantErr: isValidation, wantStatus: plan.StatusSaved},
		{name: "submit", actor: student, to: plan.StatusPendingGradCoordinator, wantStatus: plan.StatusPendingGradCoordinator},
		{name: "student cannot review", actor: student, to: plan.StatusPendingFaculty, wantErr: core.IsForbidden, wantStatus: plan.StatusPendingGradCoordinator},
		{name: "to chair", actor: gc, to: plan.StatusPendingFaculty, wantStatus: plan.StatusPendingFaculty},
		{name: "another chair", actor: otherChair, to: plan.StatusAwaitingKey, wantErr: core.IsForbidden, wantStatus: plan.StatusPendingFaculty},
		{name: "gc is not the chair", actor: gc, to: plan.StatusAwaitingKey, wantErr: core.IsForbidden, wantStatus: plan.StatusPendingFaculty},
		{name: "chair signs", actor: chair, to: plan.StatusAwaitingKey, note: "looks good", wantStatus: plan.StatusAwaitingKey},
		{name: "to grad school", actor: gc, to: plan.StatusPendingGradSchool, wantStatus: plan.StatusPendingGradSchool},
		{name: "approve", actor: gc, to: plan.StatusApproved, wantStatus: plan.StatusApproved},
		{name: "approved is final", actor: gc, to: plan.StatusRejected, note: "late", wantErr: isValidation, wantStatus: plan.StatusApproved},
		{name: "invalid status", actor: gc, to: plan.Status(42), wantErr: isValidation, wantStatus: plan.StatusApproved},
	}
	for _, st := range steps {
		t.Run(st.name, func(t *testing.T) {
			_, err := svc.Transition(ctx, st.actor, p.ID, st.to, st.note)
			if st.wantErr != nil {
				assert.True(t, st.wantErr(err), "%v", err)
			} else {
				assert.NoError(t, err)
			}
			got, err := plans.GetPlanByID(ctx, p.ID)
			require.NoError(t, err)
			assert.Equal(t, st.wantStatus, got.Status)
		})
	}

	history, err := plans.ListHistory(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, history, 5)
	assert.Equal(t, "Prof. One", history[2].ChangedBy)
	assert.Equal(t, "looks good", history[2].Note)
	assert.Equal(t, plan.StatusApproved, history[4].Status)
}

func TestService_Reject(t *testing.T) {
	svc, plans, repo := setup(t)
	ctx := context.Background()
	p := eligibleMS(t, repo, "jdoe")
	_, err := plans.SetStatus(ctx, p.ID, plan.StatusPendingFaculty)
	require.NoError(t, err)

	_, err = svc.Transition(ctx, chair, p.ID, plan.StatusRejected, "  ")
	vErr, ok := errors.Cause(err).(*core.ValidationError)
	require.True(t, ok, "%v", err)
	assert.Equal(t, approval.ErrNoteRequired, vErr.Err)

	got, err := svc.Transition(ctx, chair, p.ID, plan.StatusRejected, "needs a cognate")
	require.NoError(t, err)
	assert.Equal(t, plan.StatusRejected, got.Status)

	_, err = plans.AddPlannedCourse(ctx, p.ID, plan.NewPlannedCourse{CourseID: testutil.CourseAlgorithms, Term: term.Spring, Year: 2026})
	assert.Error(t, err, "rejected plans are read-only")

	_, err = svc.Transition(ctx, student, p.ID, plan.StatusPendingGradCoordinator, "")
	assert.True(t, isValidation(err), "%v", err)
}

func TestService_Comment(t *testing.T) {
	svc, plans, repo := setup(t)
	ctx := context.Background()
	p := testutil.CreatePlan(t, repo, "jdoe", plan.DegreeMS, chair.Key, plan.StatusPendingFaculty)

	tests := []struct {
		name    string
		actor   approval.Actor
		note    string
		wantErr func(error) bool
	}{
		{name: "owner", actor: student, note: "question"},
		{name: "chair", actor: chair, note: "answer"},
		{name: "grad coordinator", actor: gc, note: "noted"},
		{name: "other chair", actor: otherChair, note: "hi", wantErr: core.IsForbidden},
		{name: "stranger", actor: approval.Actor{Key: "asmith"}, note: "hi", wantErr: core.IsForbidden},
		{name: "blank", actor: student, note: " ", wantErr: isValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, err := svc.Comment(ctx, tt.actor, p.ID, tt.note)
			if tt.wantErr != nil {
				assert.True(t, tt.wantErr(err), "%v", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, plan.StatusPendingFaculty, h.Status)
		})
	}

	history, err := plans.ListHistory(ctx, p.ID)
	require.NoError(t, err)
	assert.Len(t, history, 3)
	got, err := plans.GetPlanByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, plan.StatusPendingFaculty, got.Status)
}

func TestService_Pending(t *testing.T) {
	svc, _, repo := setup(t)
	ctx := context.Background()

	p1 := testutil.CreatePlan(t, repo, "s1", plan.DegreeMS, "faculty1", plan.StatusPendingGradCoordinator)
	p2 := testutil.CreatePlan(t, repo, "s2", plan.DegreeMS, "faculty1", plan.StatusPendingFaculty)
	testutil.CreatePlan(t, repo, "s3", plan.DegreeMS, "faculty2", plan.StatusPendingFaculty)
	p4 := testutil.CreatePlan(t, repo, "s4", plan.DegreePhD, "faculty1", plan.StatusPendingGradSchool)
	testutil.CreatePlan(t, repo, "s5", plan.DegreeMS, "faculty1", plan.StatusSaved)
	testutil.CreatePlan(t, repo, "s6", plan.DegreeMS, "faculty1", plan.StatusApproved)

	ids := func(plans []plan.Plan) []int {
		out := make([]int, 0, len(plans))
		for _, p := range plans {
			out = append(out, p.ID)
		}
		return out
	}

	tests := []struct {
		name  string
		actor approval.Actor
		want  []int
	}{
		{name: "student", actor: student, want: []int{}},
		{name: "chair", actor: chair, want: []int{p2.ID}},
		{name: "grad coordinator", actor: gc, want: []int{p1.ID, p4.ID}},
		{name: "both roles", actor: approval.Actor{Key: "faculty1", Roles: approval.RoleChair | approval.RoleGradCoordinator}, want: []int{p1.ID, p2.ID, p4.ID}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := svc.Pending(ctx, tt.actor, []core.DBOrdering{{Field: "pos_id", Ascending: true}})
			require.NoError(t, err)
			assert.Equal(t, tt.want, ids(got))
		})
	}
}

func isValidation(err error) bool {
	_, ok := errors.Cause(err).(*core.ValidationError)
	return ok
}

func TestService_ValidateDraft(t *testing.T) {
	svc, _, _ := setup(t)
	ctx := context.Background()
	area := func(a int) *int { return &a }

	_, err := svc.ValidateDraft(ctx, requirement.Input{})
	assert.True(t, isValidation(err), "%v", err)

	report, err := svc.ValidateDraft(ctx, requirement.Input{
		Degree: plan.DegreeMS,
		Groups: []requirement.TermGroup{
			{Term: term.Fall, Year: 2024, Rows: []requirement.Row{
				{ID: "a", Area: area(1), CourseID: testutil.CourseAlgorithms},
				{ID: "b", CourseID: testutil.CourseCompilers},
			}},
		},
		Chair: "faculty1",
	})
	require.NoError(t, err)
	assert.False(t, report.SubmitEligible())
	require.Len(t, report.RowViolations, 1)
	assert.Equal(t, "b", report.RowViolations[0].RowID)
	require.Len(t, report.Planned, 1)
	assert.Equal(t, "CS 5114", report.Planned[0].Code())
	assert.Equal(t, 3, report.PlannedCredits)
}
