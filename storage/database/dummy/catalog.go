package dummydb

import (
	"context"
	"sort"

	"github.com/dtsmedt/PlanOfStudy/core/catalog"
)

type catalogRepository struct {
	db *courseTable
}

var _ catalog.Repository = (*catalogRepository)(nil) // interface compliance check

func NewCatalogRepository(db *DB) catalog.Repository {
	return &catalogRepository{db: db.course}
}

func copyCourse(c catalog.Course) catalog.Course {
	c.Areas = append([]int(nil), c.Areas...)
	sort.Ints(c.Areas)
	return c
}

func (repo *catalogRepository) ListCoursesByArea(_ context.Context, area *int) ([]catalog.Course, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	courses := make([]catalog.Course, 0, len(repo.db.table))
	for _, c := range repo.db.table {
		if area != nil && !c.HasArea(*area) {
			continue
		}
		courses = append(courses, copyCourse(c))
	}
	sort.Slice(courses, func(i, j int) bool {
		if courses[i].SubjectCode != courses[j].SubjectCode {
			return courses[i].SubjectCode < courses[j].SubjectCode
		}
		if courses[i].CourseNumber != courses[j].CourseNumber {
			return courses[i].CourseNumber < courses[j].CourseNumber
		}
		return courses[i].ID < courses[j].ID
	})
	return courses, nil
}

func (repo *catalogRepository) ListAreasForCourse(_ context.Context, courseID int) ([]int, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	c, ok := repo.db.table[courseID]
	if !ok {
		return []int{}, nil
	}
	return copyCourse(c).Areas, nil
}

func (repo *catalogRepository) GetCourse(_ context.Context, id int) (catalog.Course, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if c, ok := repo.db.table[id]; ok {
		return copyCourse(c), nil
	}
	return catalog.Course{}, catalog.ErrCourseNotFound
}

func (repo *catalogRepository) ListAreas(_ context.Context) ([]catalog.Area, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	areas := make([]catalog.Area, 0, len(repo.db.areas))
	for _, a := range repo.db.areas {
		areas = append(areas, a)
	}
	sort.Slice(areas, func(i, j int) bool { return areas[i].ID < areas[j].ID })
	return areas, nil
}
