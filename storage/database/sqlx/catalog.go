package sqlxrepos

import (
	"context"
	"database/sql"
	"sort"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/dtsmedt/PlanOfStudy/core/catalog"
)

const courseColumns = "c.course_id, c.subject_code, c.course_number, c.title, c.credits"

type catalogRepository struct {
	db *sqlx.DB
}

var _ catalog.Repository = (*catalogRepository)(nil) // interface compliance check

func NewCatalogRepository(db *sqlx.DB) catalog.Repository {
	return &catalogRepository{db: db}
}

type courseArea struct {
	Course int `db:"course"`
	Area   int `db:"area"`
}

// attachAreas loads the area mapping of `courses` in one query.
func (repo *catalogRepository) attachAreas(ctx context.Context, courses []catalog.Course) error {
	if len(courses) == 0 {
		return nil
	}
	ids := make([]int, 0, len(courses))
	for _, c := range courses {
		ids = append(ids, c.ID)
	}
	q, args, err := sqlx.In("SELECT course, area FROM pos_course_areas WHERE course IN (?) ORDER BY course, area", ids)
	if err != nil {
		return errors.Wrap(err, "building course areas query")
	}
	var rows []courseArea
	if err = repo.db.SelectContext(ctx, &rows, repo.db.Rebind(q), args...); err != nil {
		return errors.Wrap(err, "selecting course areas")
	}

	byCourse := make(map[int][]int, len(courses))
	for _, r := range rows {
		byCourse[r.Course] = append(byCourse[r.Course], r.Area)
	}
	for i := range courses {
		courses[i].Areas = byCourse[courses[i].ID]
	}
	return nil
}

func (repo *catalogRepository) ListCoursesByArea(ctx context.Context, area *int) ([]catalog.Course, error) {
	var (
		courses []catalog.Course
		err     error
	)
	if area == nil {
		err = repo.db.SelectContext(ctx, &courses,
			"SELECT "+courseColumns+" FROM pos_courses c ORDER BY c.subject_code, c.course_number, c.course_id")
	} else {
		err = repo.db.SelectContext(ctx, &courses,
			"SELECT "+courseColumns+" FROM pos_courses c JOIN pos_course_areas j ON j.course = c.course_id "+
				"WHERE j.area = $1 ORDER BY c.subject_code, c.course_number, c.course_id", *area)
	}
	if err != nil {
		return nil, errors.Wrap(err, "selecting courses")
	}
	if err = repo.attachAreas(ctx, courses); err != nil {
		return nil, err
	}
	return courses, nil
}

func (repo *catalogRepository) ListAreasForCourse(ctx context.Context, courseID int) ([]int, error) {
	areas := make([]int, 0)
	if err := repo.db.SelectContext(ctx, &areas, "SELECT area FROM pos_course_areas WHERE course = $1", courseID); err != nil {
		return nil, errors.Wrap(err, "selecting course areas")
	}
	sort.Ints(areas)
	return areas, nil
}

func (repo *catalogRepository) GetCourse(ctx context.Context, id int) (catalog.Course, error) {
	var c catalog.Course
	err := repo.db.GetContext(ctx, &c, "SELECT "+courseColumns+" FROM pos_courses c WHERE c.course_id = $1", id)
	if err == sql.ErrNoRows {
		return catalog.Course{}, catalog.ErrCourseNotFound
	}
	if err != nil {
		return catalog.Course{}, errors.Wrap(err, "selecting course")
	}
	courses := []catalog.Course{c}
	if err = repo.attachAreas(ctx, courses); err != nil {
		return catalog.Course{}, err
	}
	return courses[0], nil
}

func (repo *catalogRepository) ListAreas(ctx context.Context) ([]catalog.Area, error) {
	var areas []catalog.Area
	err := repo.db.SelectContext(ctx, &areas,
		"SELECT pos_area AS area_id, area_description AS description FROM pos_areas ORDER BY pos_area")
	return areas, errors.Wrap(err, "selecting areas")
}
