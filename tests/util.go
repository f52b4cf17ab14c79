package testutil

import (
	"context"
	"testing"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/dtsmedt/PlanOfStudy/core"
	"github.com/dtsmedt/PlanOfStudy/core/catalog"
	"github.com/dtsmedt/PlanOfStudy/core/plan"
	"github.com/dtsmedt/PlanOfStudy/core/term"
	"github.com/dtsmedt/PlanOfStudy/storage/database/dummy"
)

// Catalog course ids.
const (
	CourseSeminar     = 1
	CourseMSResearch  = 2
	CourseEthics      = 3
	CourseAlgorithms  = 4
	CourseCompilers   = 5
	CourseNetworks    = 6
	CourseAdvAlgo     = 7
	CourseAnalysis    = 8
	CourseNumerical   = 9
	CourseMultiArea   = 10
	CourseNoArea      = 11
	CoursePhDResearch = 12
)

var (
	Areas = []catalog.Area{
		{ID: 0, Description: "Ethics and Professionalism"},
		{ID: 1, Description: "Algorithms and Theory"},
		{ID: 2, Description: "Programming Languages"},
		{ID: 3, Description: "Systems and Networking"},
		{ID: 4, Description: "Software Engineering"},
		{ID: 5, Description: "Data and Information"},
		{ID: catalog.AreaCognate, Description: "Cognate"},
	}

	Courses = []catalog.Course{
		{ID: CourseSeminar, SubjectCode: "CS", CourseNumber: "5944", Title: "Graduate Seminar", Credits: 1, Areas: []int{1}},
		{ID: CourseMSResearch, SubjectCode: "CS", CourseNumber: "5994", Title: "Research and Thesis", Credits: 0, Areas: []int{1}},
		{ID: CourseEthics, SubjectCode: "CS", CourseNumber: "5014", Title: "Research Methods", Credits: 3, Areas: []int{0}},
		{ID: CourseAlgorithms, SubjectCode: "CS", CourseNumber: "5114", Title: "Theory of Algorithms", Credits: 3, Areas: []int{1}},
		{ID: CourseCompilers, SubjectCode: "CS", CourseNumber: "5214", Title: "Compilers", Credits: 3, Areas: []int{2}},
		{ID: CourseNetworks, SubjectCode: "CS", CourseNumber: "5314", Title: "Networks", Credits: 3, Areas: []int{3}},
		{ID: CourseAdvAlgo, SubjectCode: "CS", CourseNumber: "6114", Title: "Advanced Algorithms", Credits: 3, Areas: []int{1}},
		{ID: CourseAnalysis, SubjectCode: "CS", CourseNumber: "6214", Title: "Program Analysis", Credits: 3, Areas: []int{4}},
		{ID: CourseNumerical, SubjectCode: "MATH", CourseNumber: "4445", Title: "Numerical Analysis", Credits: 3, Areas: []int{catalog.AreaCognate}},
		{ID: CourseMultiArea, SubjectCode: "CS", CourseNumber: "5525", Title: "Data Analytics", Credits: 3, Areas: []int{4, 5}},
		{ID: CourseNoArea, SubjectCode: "CS", CourseNumber: "5900", Title: "Special Topics", Credits: 0},
		{ID: CoursePhDResearch, SubjectCode: "CS", CourseNumber: "7994", Title: "Research and Dissertation", Credits: 0, Areas: []int{1}},
	}
)

// OpenDB opens an in-memory store seeded with the test catalog.
func OpenDB(t *testing.T) *dummydb.DB {
	db, err := dummydb.Open()
	if err != nil {
		t.Fatalf("OpenDB() failed: %v", err)
	}
	db.SeedCatalog(Courses, Areas)
	return db
}

// NewValidator returns a validator with every package's rules registered.
func NewValidator() (*validator.Validate, ut.Translator) {
	validate, translator := core.NewValidator()
	plan.InitValidators(validate, translator)
	return validate, translator
}

func CreateStudent(t *testing.T, repo plan.Repository, key, first, last string) plan.Student {
	s, err := repo.UpsertStudent(context.Background(), plan.Student{Key: key, First: first, Last: last})
	if err != nil {
		t.Fatalf("CreateStudent() failed: %v", err)
	}
	return s
}

func CreatePlan(t *testing.T, repo plan.Repository, studentKey string, degree plan.DegreeType, chair string, status plan.Status) plan.Plan {
	p, err := repo.UpsertPlan(context.Background(), studentKey, degree, &chair, &status)
	if err != nil {
		t.Fatalf("CreatePlan() failed: %v", err)
	}
	return p
}

func AddPlanned(t *testing.T, repo plan.Repository, planID, courseID, area, hours int, id term.ID, year int) plan.PlannedCourse {
	pc, err := repo.AddPlannedCourse(context.Background(), plan.PlannedCourse{
		PlanID:      planID,
		CourseID:    courseID,
		Area:        &area,
		CreditHours: hours,
		Term:        id,
		Year:        year,
	})
	if err != nil {
		t.Fatalf("AddPlanned() failed: %v", err)
	}
	return pc
}

func IntPtr(i int) *int {
	return &i
}
