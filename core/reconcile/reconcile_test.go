package reconcile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dtsmedt/PlanOfStudy/core/catalog"
	"github.com/dtsmedt/PlanOfStudy/core/plan"
	"github.com/dtsmedt/PlanOfStudy/core/term"
	"github.com/dtsmedt/PlanOfStudy/core/transcript"
)

var testCatalog = []catalog.Course{
	{ID: 100, SubjectCode: "CS", CourseNumber: "5000", Credits: 3, Areas: []int{1}},
	{ID: 101, SubjectCode: "CS", CourseNumber: "5010", Credits: 3, Areas: []int{2}},
	{ID: 102, SubjectCode: "CS", CourseNumber: "5020", Credits: 3, Areas: []int{3}},
	{ID: 103, SubjectCode: "CS", CourseNumber: "5030", Credits: 3, Areas: []int{4, 1}},
	{ID: 104, SubjectCode: "CS", CourseNumber: "5040", Credits: 3, Areas: []int{5}},
}

func rec(code, number, termTaken, grade string) transcript.Record {
	return transcript.Record{Name: "Doe, Jane", Subject: code, Number: number, TermTaken: termTaken, Grade: grade, CreditHours: 3}
}

func planned(id, courseID int, subject, number string, id2 term.ID, year int) plan.PlannedCourse {
	area := 1
	return plan.PlannedCourse{
		ID: id, CourseID: courseID, Area: &area, CreditHours: 3, Term: id2, Year: year,
		SubjectCode: subject, CourseNumber: number,
	}
}

func intPtr(i int) *int { return &i }

func termPtr(id term.ID) *term.ID { return &id }

// checkInvariants asserts the guarantees every result holds regardless of input.
func checkInvariants(t *testing.T, records []transcript.Record, pcs []plan.PlannedCourse, res Result) {
	t.Helper()

	passedIn := map[term.Bucket]map[string]bool{}
	failedIn := map[term.Bucket]map[string]bool{}
	attended := map[term.Bucket]bool{}
	for _, r := range records {
		for _, b := range term.Buckets(r.TermTaken) {
			attended[b] = true
			target := failedIn
			if r.Passed() {
				target = passedIn
			}
			if target[b] == nil {
				target[b] = map[string]bool{}
			}
			target[b][r.Code()] = true
		}
	}
	plannedIn := map[term.Bucket]map[string]bool{}
	for _, pc := range pcs {
		if plannedIn[pc.Bucket()] == nil {
			plannedIn[pc.Bucket()] = map[string]bool{}
		}
		plannedIn[pc.Bucket()][pc.Code()] = true
	}

	for _, a := range res.ToAdd {
		if b, ok := a.Bucket(); ok {
			assert.True(t, passedIn[b][a.Code], "add %s %s has no passing grade", a.Code, b)
		}
		assert.NotZero(t, a.CourseID)
	}
	for _, r := range res.ToRemove {
		b := term.Bucket{Year: r.Year, Term: r.Term}
		assert.True(t, failedIn[b][r.Code], "remove %s %s has no failing grade", r.Code, b)
		assert.True(t, plannedIn[b][r.Code], "remove %s %s is not planned", r.Code, b)
	}
	for _, m := range res.ToMissing {
		b := term.Bucket{Year: m.Year, Term: m.Term}
		assert.True(t, attended[b], "missing %s reported for a term without transcript rows", m.Code)
	}
	assert.Equal(t, term.All, res.Terms)
}

func TestReconcile(t *testing.T) {
	tests := []struct {
		name    string
		records []transcript.Record
		planned []plan.PlannedCourse
		ignored []plan.IgnoredCourse
		want    Result
	}{
		{
			name:    "passed course not planned",
			records: []transcript.Record{rec("CS", "5000", "202408", "A")},
			want: Result{
				ToAdd: []Add{{Year: intPtr(2024), Term: termPtr(term.Fall), Code: "CS 5000", Grade: PassGrade, CourseID: 100, Areas: []int{1}}},
			},
		},
		{
			name:    "failed planned course",
			records: []transcript.Record{rec("CS", "5010", "202408", " f ")},
			planned: []plan.PlannedCourse{planned(7, 101, "CS", "5010", term.Fall, 2024)},
			want: Result{
				ToRemove: []Remove{{PlannedCourseID: 7, Code: "CS 5010", Year: 2024, Term: term.Fall, Grade: "F"}},
			},
		},
		{
			name:    "planned course absent from an attended term",
			records: []transcript.Record{rec("CS", "5000", "202408", "B")},
			planned: []plan.PlannedCourse{
				planned(8, 102, "CS", "5020", term.Fall, 2024),
				planned(9, 100, "CS", "5000", term.Fall, 2024),
			},
			want: Result{
				ToMissing: []Missing{{PlannedCourseID: 8, Code: "CS 5020", Year: 2024, Term: term.Fall}},
			},
		},
		{
			name:    "term without transcript rows is not missing",
			records: []transcript.Record{rec("CS", "5000", "202408", "A")},
			planned: []plan.PlannedCourse{
				planned(9, 100, "CS", "5000", term.Fall, 2024),
				planned(10, 102, "CS", "5020", term.Spring, 2025),
			},
			want: Result{},
		},
		{
			name:    "passed course planned in another term",
			records: []transcript.Record{rec("CS", "5000", "202501", "A")},
			planned: []plan.PlannedCourse{planned(9, 100, "CS", "5000", term.Fall, 2024)},
			want: Result{
				ToAdd: []Add{{Year: intPtr(2025), Term: termPtr(term.Spring), Code: "CS 5000", Grade: PassGrade, CourseID: 100, Areas: []int{1}}},
			},
		},
		{
			name: "unmapped term falls back",
			records: []transcript.Record{
				rec("CS", "5000", "202403", "A"),
				rec("CS", "5010", "2024", "B"),
				rec("CS", "5020", "202403", "F"),
			},
			planned: []plan.PlannedCourse{planned(9, 101, "CS", "5010", term.Fall, 2023)},
			ignored: []plan.IgnoredCourse{{StudentKey: "jdoe", Degree: plan.DegreeMS, CourseCode: "CS 5000", Term: term.Fall, Year: 2024}},
			want: Result{
				ToAdd: []Add{{Code: "CS 5000", Grade: PassGrade, CourseID: 100, Areas: []int{1}, MissingTerm: true}},
			},
		},
		{
			name:    "course outside the catalog",
			records: []transcript.Record{rec("CS", "5001", "202408", "A"), rec("HIST", "1000", "2024", "A")},
			want: Result{
				ToIgnore: []Ignore{
					{
						Year: intPtr(2024), Term: termPtr(term.Fall), Code: "CS 5001", Grade: PassGrade,
						Reason:      "CS 5001 is not in the plan of study course catalog",
						Suggestions: []string{"CS 5000", "CS 5010", "CS 5020"},
					},
					{
						Code: "HIST 1000", Grade: PassGrade,
						Reason: "HIST 1000 is not in the plan of study course catalog",
					},
				},
			},
		},
		{
			name:    "course with several areas",
			records: []transcript.Record{rec("cs", "5030", "202412", "C")},
			want: Result{
				ToAdd: []Add{{Year: intPtr(2024), Term: termPtr(term.Winter), Code: "CS 5030", Grade: PassGrade, CourseID: 103, Areas: []int{1, 4}}},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Reconcile(tt.records, tt.planned, tt.ignored, testCatalog)
			checkInvariants(t, tt.records, tt.planned, got)

			assert.Equal(t, tt.want.ToAdd, got.ToAdd)
			assert.Equal(t, tt.want.ToRemove, got.ToRemove)
			assert.Equal(t, tt.want.ToMissing, got.ToMissing)
			if tt.want.ToIgnore == nil {
				assert.Empty(t, got.ToIgnore)
			} else {
				require.Len(t, got.ToIgnore, len(tt.want.ToIgnore))
				for i, want := range tt.want.ToIgnore {
					assert.Equal(t, want.Code, got.ToIgnore[i].Code)
					assert.Equal(t, want.Year, got.ToIgnore[i].Year)
					assert.Equal(t, want.Term, got.ToIgnore[i].Term)
					assert.Equal(t, want.Reason, got.ToIgnore[i].Reason)
					assert.ElementsMatch(t, want.Suggestions, got.ToIgnore[i].Suggestions)
				}
			}
		})
	}
}

func TestReconcile_NeedsArea(t *testing.T) {
	res := Reconcile([]transcript.Record{rec("CS", "5030", "202408", "A"), rec("CS", "5000", "202408", "A")}, nil, nil, testCatalog)
	require.Len(t, res.ToAdd, 2)
	assert.False(t, res.ToAdd[0].NeedsArea())
	assert.True(t, res.ToAdd[1].NeedsArea())
}

func TestReconcile_IgnoreOnlySuppressesThatAdd(t *testing.T) {
	records := []transcript.Record{
		rec("CS", "5000", "202408", "A"),
		rec("CS", "5000", "202501", "A"),
		rec("CS", "5040", "202408", "A"),
		rec("CS", "5010", "202408", "D"),
	}
	pcs := []plan.PlannedCourse{
		planned(1, 101, "CS", "5010", term.Fall, 2024),
		planned(2, 102, "CS", "5020", term.Fall, 2024),
	}

	before := Reconcile(records, pcs, nil, testCatalog)
	require.Len(t, before.ToAdd, 3)

	ignored := []plan.IgnoredCourse{{StudentKey: "jdoe", Degree: plan.DegreeMS, CourseCode: "cs 5000", Term: term.Fall, Year: 2024}}
	after := Reconcile(records, pcs, ignored, testCatalog)
	checkInvariants(t, records, pcs, after)

	assert.Equal(t, []Add{before.ToAdd[1], before.ToAdd[2]}, after.ToAdd)
	assert.Equal(t, "CS 5040", after.ToAdd[0].Code)
	assert.Equal(t, 2025, *after.ToAdd[1].Year)
	assert.Equal(t, before.ToRemove, after.ToRemove)
	assert.Equal(t, before.ToMissing, after.ToMissing)
	assert.Equal(t, before.ToIgnore, after.ToIgnore)
}

func TestReconcile_AddConverges(t *testing.T) {
	records := []transcript.Record{rec("CS", "5000", "202408", "A"), rec("CS", "5040", "202408", "B")}

	res := Reconcile(records, nil, nil, testCatalog)
	require.Len(t, res.ToAdd, 2)

	add := res.ToAdd[0]
	pcs := []plan.PlannedCourse{planned(1, add.CourseID, "CS", "5000", *add.Term, *add.Year)}

	res = Reconcile(records, pcs, nil, testCatalog)
	require.Len(t, res.ToAdd, 1)
	assert.Equal(t, "CS 5040", res.ToAdd[0].Code)
	assert.Empty(t, res.ToRemove)
	assert.Empty(t, res.ToMissing)
}

// Registrar suffix "05" covers two summer terms, so one record is matched against both.
func TestReconcile_AmbiguousSummerFansOut(t *testing.T) {
	records := []transcript.Record{rec("CS", "5000", "202405", "A")}

	res := Reconcile(records, nil, nil, testCatalog)
	require.Len(t, res.ToAdd, 2)
	assert.Equal(t, term.Summer1, *res.ToAdd[0].Term)
	assert.Equal(t, term.Summer3, *res.ToAdd[1].Term)

	pcs := []plan.PlannedCourse{planned(1, 100, "CS", "5000", term.Summer1, 2024)}
	res = Reconcile(records, pcs, nil, testCatalog)
	require.Len(t, res.ToAdd, 1)
	assert.Equal(t, term.Summer3, *res.ToAdd[0].Term)
}

// A code attempted twice in the same slot can be reported in more than one category.
func TestReconcile_CategoriesOverlap(t *testing.T) {
	records := []transcript.Record{
		rec("CS", "5000", "202405", "F"),
		rec("CS", "5000", "202405", "A"),
	}
	pcs := []plan.PlannedCourse{planned(4, 100, "CS", "5000", term.Summer1, 2024)}

	res := Reconcile(records, pcs, nil, testCatalog)
	checkInvariants(t, records, pcs, res)

	require.Len(t, res.ToAdd, 1)
	assert.Equal(t, term.Summer3, *res.ToAdd[0].Term)
	assert.Equal(t, []Remove{{PlannedCourseID: 4, Code: "CS 5000", Year: 2024, Term: term.Summer1, Grade: "F"}}, res.ToRemove)
	assert.Empty(t, res.ToMissing)
}

func TestReconcile_RemoveIsReportedOncePerRowAndGrade(t *testing.T) {
	records := []transcript.Record{
		rec("CS", "5010", "202408", "F"),
		rec("CS", "5010", "202408", "F"),
		rec("CS", "5010", "202408", "I"),
	}
	pcs := []plan.PlannedCourse{planned(3, 101, "CS", "5010", term.Fall, 2024)}

	res := Reconcile(records, pcs, nil, testCatalog)
	assert.Equal(t, []Remove{
		{PlannedCourseID: 3, Code: "CS 5010", Year: 2024, Term: term.Fall, Grade: "F"},
		{PlannedCourseID: 3, Code: "CS 5010", Year: 2024, Term: term.Fall, Grade: "I"},
	}, res.ToRemove)
}
