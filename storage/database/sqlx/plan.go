package sqlxrepos

import (
	"context"
	"database/sql"
	"strconv"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/dtsmedt/PlanOfStudy/core/plan"
	"github.com/dtsmedt/PlanOfStudy/core/term"
)

type planRepository struct {
	db *sqlx.DB
}

var _ plan.Repository = (*planRepository)(nil) // interface compliance check

func NewPlanRepository(db *sqlx.DB) plan.Repository {
	return &planRepository{db: db}
}

type (
	planRow struct {
		ID         int         `db:"pos_id"`
		StudentKey string      `db:"pid"`
		Degree     int         `db:"pos_type"`
		Chair      null.String `db:"committee_chair"`
		Status     int         `db:"current_status"`
		CreatedAt  time.Time   `db:"created_at"`
		UpdatedAt  time.Time   `db:"updated_at"`
	}

	plannedRow struct {
		ID              int      `db:"planned_course_id"`
		PlanID          int      `db:"plan_of_study"`
		CourseID        int      `db:"planned_course"`
		Area            null.Int `db:"course_area"`
		CreditHours     int      `db:"credit_hours"`
		Term            int      `db:"planned_term"`
		Year            int      `db:"term_year"`
		SubjectCode     string   `db:"subject_code"`
		CourseNumber    string   `db:"course_number"`
		Title           string   `db:"title"`
		AreaDescription string   `db:"area_description"`
	}

	historyRow struct {
		ID        int         `db:"history_id"`
		PlanID    int         `db:"plan_of_study"`
		Status    int         `db:"history_status"`
		Note      null.String `db:"note"`
		ChangedBy null.String `db:"changed_by"`
		CreatedAt time.Time   `db:"date_changed"`
	}
)

func (r planRow) plan() plan.Plan {
	return plan.Plan{
		ID:             r.ID,
		StudentKey:     r.StudentKey,
		Degree:         plan.DegreeType(r.Degree),
		CommitteeChair: r.Chair.String,
		Status:         plan.Status(r.Status),
		CreatedAt:      r.CreatedAt,
		UpdatedAt:      r.UpdatedAt,
	}
}

func (r plannedRow) planned() plan.PlannedCourse {
	return plan.PlannedCourse{
		ID:              r.ID,
		PlanID:          r.PlanID,
		CourseID:        r.CourseID,
		Area:            r.Area.Ptr(),
		CreditHours:     r.CreditHours,
		Term:            term.ID(r.Term),
		Year:            r.Year,
		SubjectCode:     r.SubjectCode,
		CourseNumber:    r.CourseNumber,
		Title:           r.Title,
		AreaDescription: r.AreaDescription,
	}
}

func (r historyRow) entry() plan.HistoryEntry {
	return plan.HistoryEntry{
		ID:        r.ID,
		PlanID:    r.PlanID,
		Status:    plan.Status(r.Status),
		Note:      r.Note.String,
		ChangedBy: r.ChangedBy.String,
		CreatedAt: r.CreatedAt,
	}
}

// Students

func (repo *planRepository) GetStudent(ctx context.Context, key string) (plan.Student, error) {
	var s plan.Student
	err := repo.db.GetContext(ctx, &s, "SELECT pid, first, last FROM pos_students WHERE pid = $1", key)
	if err == sql.ErrNoRows {
		return plan.Student{}, plan.ErrStudentNotFound
	}
	return s, errors.Wrap(err, "selecting student")
}

func (repo *planRepository) UpsertStudent(ctx context.Context, s plan.Student) (plan.Student, error) {
	_, err := repo.db.ExecContext(ctx, `
		INSERT INTO pos_students (pid, first, last) VALUES ($1, $2, $3)
		ON CONFLICT (pid) DO UPDATE SET first = EXCLUDED.first, last = EXCLUDED.last`,
		s.Key, s.First, s.Last)
	if err != nil {
		return plan.Student{}, errors.Wrap(err, "upserting student")
	}
	return s, nil
}

// Plans

const planColumns = "pos_id, pid, pos_type, committee_chair, current_status, created_at, updated_at"

func (repo *planRepository) getPlan(ctx context.Context, where string, args ...interface{}) (plan.Plan, error) {
	var row planRow
	err := repo.db.GetContext(ctx, &row, "SELECT "+planColumns+" FROM pos_plan_of_study WHERE "+where, args...)
	if err == sql.ErrNoRows {
		return plan.Plan{}, plan.ErrNotFound
	}
	if err != nil {
		return plan.Plan{}, errors.Wrap(err, "selecting plan")
	}
	return row.plan(), nil
}

func (repo *planRepository) GetPlan(ctx context.Context, studentKey string, degree plan.DegreeType) (plan.Plan, error) {
	return repo.getPlan(ctx, "pid = $1 AND pos_type = $2", studentKey, int(degree))
}

func (repo *planRepository) GetPlanByID(ctx context.Context, id int) (plan.Plan, error) {
	return repo.getPlan(ctx, "pos_id = $1", id)
}

func (repo *planRepository) UpsertPlan(
	ctx context.Context,
	studentKey string,
	degree plan.DegreeType,
	chair *string,
	status *plan.Status,
) (plan.Plan, error) {
	var st null.Int
	if status != nil {
		st = null.IntFrom(int(*status))
	}
	var row planRow
	err := repo.db.GetContext(ctx, &row, `
		INSERT INTO pos_plan_of_study (pid, pos_type, committee_chair, current_status)
		VALUES ($1, $2, $3, COALESCE($4, `+strconv.Itoa(int(plan.StatusSaved))+`))
		ON CONFLICT (pid, pos_type) DO UPDATE SET
			committee_chair = COALESCE($3, pos_plan_of_study.committee_chair),
			current_status = COALESCE($4, pos_plan_of_study.current_status),
			updated_at = now()
		RETURNING `+planColumns,
		studentKey, int(degree), null.StringFromPtr(chair), st)
	if err != nil {
		return plan.Plan{}, errors.Wrap(err, "upserting plan")
	}
	return row.plan(), nil
}

func (repo *planRepository) ListPlans(ctx context.Context, filter plan.Filter) ([]plan.Plan, error) {
	var (
		where []string
		args  []interface{}
	)
	arg := func(v interface{}) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}
	if len(filter.Statuses) > 0 {
		statuses := make([]int64, 0, len(filter.Statuses))
		for _, s := range filter.Statuses {
			statuses = append(statuses, int64(s))
		}
		where = append(where, "current_status = ANY("+arg(pq.Array(statuses))+")")
	}
	if filter.CommitteeChair != "" {
		where = append(where, "lower(committee_chair) = lower("+arg(filter.CommitteeChair)+")")
	}
	if filter.Degree != 0 {
		where = append(where, "pos_type = "+arg(int(filter.Degree)))
	}

	q := "SELECT " + planColumns + " FROM pos_plan_of_study"
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	order := make([]string, 0, len(filter.Orderings)+1)
	for _, ord := range filter.Orderings {
		order = append(order, ord.String())
	}
	q += " ORDER BY " + strings.Join(append(order, "pos_id ASC"), ", ")

	var rows []planRow
	if err := repo.db.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, errors.Wrap(err, "selecting plans")
	}
	plans := make([]plan.Plan, 0, len(rows))
	for _, r := range rows {
		plans = append(plans, r.plan())
	}
	return plans, nil
}

// Planned courses

const plannedSelect = `
	SELECT pc.planned_course_id, pc.plan_of_study, pc.planned_course, pc.course_area, pc.credit_hours,
		pc.planned_term, pc.term_year,
		COALESCE(c.subject_code, '') AS subject_code,
		COALESCE(c.course_number, '') AS course_number,
		COALESCE(c.title, '') AS title,
		COALESCE(a.area_description, '') AS area_description
	FROM pos_planned_courses pc
	LEFT JOIN pos_courses c ON c.course_id = pc.planned_course
	LEFT JOIN pos_areas a ON a.pos_area = pc.course_area`

func listPlanned(ctx context.Context, q sqlx.QueryerContext, planID int) ([]plan.PlannedCourse, error) {
	var rows []plannedRow
	err := sqlx.SelectContext(ctx, q, &rows,
		plannedSelect+" WHERE pc.plan_of_study = $1 ORDER BY pc.term_year, pc.planned_term, pc.planned_course_id", planID)
	if err != nil {
		return nil, errors.Wrap(err, "selecting planned courses")
	}
	planned := make([]plan.PlannedCourse, 0, len(rows))
	for _, r := range rows {
		planned = append(planned, r.planned())
	}
	return planned, nil
}

func (repo *planRepository) ListPlannedCourses(ctx context.Context, planID int) ([]plan.PlannedCourse, error) {
	return listPlanned(ctx, repo.db, planID)
}

func (repo *planRepository) GetPlannedCourse(ctx context.Context, id int) (plan.PlannedCourse, error) {
	var row plannedRow
	err := repo.db.GetContext(ctx, &row, plannedSelect+" WHERE pc.planned_course_id = $1", id)
	if err == sql.ErrNoRows {
		return plan.PlannedCourse{}, plan.ErrPlannedCourseNotFound
	}
	if err != nil {
		return plan.PlannedCourse{}, errors.Wrap(err, "selecting planned course")
	}
	return row.planned(), nil
}

const plannedInsert = "INSERT INTO pos_planned_courses (plan_of_study, planned_course, course_area, credit_hours, planned_term, term_year) VALUES "

func plannedArgs(pc plan.PlannedCourse) []interface{} {
	return []interface{}{pc.PlanID, pc.CourseID, null.IntFromPtr(pc.Area), pc.CreditHours, int(pc.Term), pc.Year}
}

func (repo *planRepository) ReplacePlannedCourses(ctx context.Context, planID int, rows []plan.PlannedCourse) ([]plan.PlannedCourse, error) {
	var saved []plan.PlannedCourse
	err := withTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM pos_planned_courses WHERE plan_of_study = $1", planID); err != nil {
			return errors.Wrap(err, "deleting planned courses")
		}
		if len(rows) > 0 {
			args := make([]interface{}, 0, len(rows)*6)
			for _, pc := range rows {
				pc.PlanID = planID
				args = append(args, plannedArgs(pc)...)
			}
			if _, err := tx.ExecContext(ctx, plannedInsert+valuesClause(len(rows), 6), args...); err != nil {
				return errors.Wrap(err, "inserting planned courses")
			}
		}
		var err error
		saved, err = listPlanned(ctx, tx, planID)
		return err
	})
	return saved, err
}

func (repo *planRepository) AddPlannedCourse(ctx context.Context, pc plan.PlannedCourse) (plan.PlannedCourse, error) {
	var id int
	err := repo.db.GetContext(ctx, &id, plannedInsert+valuesClause(1, 6)+" RETURNING planned_course_id", plannedArgs(pc)...)
	if err != nil {
		return plan.PlannedCourse{}, errors.Wrap(err, "inserting planned course")
	}
	return repo.GetPlannedCourse(ctx, id)
}

func (repo *planRepository) DeletePlannedCourse(ctx context.Context, id int) (bool, error) {
	ok, err := affected(repo.db.ExecContext(ctx, "DELETE FROM pos_planned_courses WHERE planned_course_id = $1", id))
	return ok, errors.Wrap(err, "deleting planned course")
}

func (repo *planRepository) UpdatePlannedCourseTerm(ctx context.Context, id int, termID term.ID, year int) (bool, error) {
	ok, err := affected(repo.db.ExecContext(ctx,
		"UPDATE pos_planned_courses SET planned_term = $1, term_year = $2 WHERE planned_course_id = $3",
		int(termID), year, id))
	return ok, errors.Wrap(err, "moving planned course")
}

// Transfers

const transferColumns = "transfer_id, plan_of_study, description, credit_hours, grade"

type transferRow struct {
	ID          int    `db:"transfer_id"`
	PlanID      int    `db:"plan_of_study"`
	Description string `db:"description"`
	CreditHours int    `db:"credit_hours"`
	Grade       string `db:"grade"`
}

func (r transferRow) transfer() plan.TransferCourse {
	return plan.TransferCourse(r)
}

func listTransfers(ctx context.Context, q sqlx.QueryerContext, planID int) ([]plan.TransferCourse, error) {
	var rows []transferRow
	err := sqlx.SelectContext(ctx, q, &rows,
		"SELECT "+transferColumns+" FROM pos_transfer_courses WHERE plan_of_study = $1 ORDER BY transfer_id", planID)
	if err != nil {
		return nil, errors.Wrap(err, "selecting transfers")
	}
	transfers := make([]plan.TransferCourse, 0, len(rows))
	for _, r := range rows {
		transfers = append(transfers, r.transfer())
	}
	return transfers, nil
}

func (repo *planRepository) ListTransfers(ctx context.Context, planID int) ([]plan.TransferCourse, error) {
	return listTransfers(ctx, repo.db, planID)
}

func (repo *planRepository) ReplaceTransfers(ctx context.Context, planID int, rows []plan.TransferCourse) ([]plan.TransferCourse, error) {
	var saved []plan.TransferCourse
	err := withTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM pos_transfer_courses WHERE plan_of_study = $1", planID); err != nil {
			return errors.Wrap(err, "deleting transfers")
		}
		if len(rows) > 0 {
			args := make([]interface{}, 0, len(rows)*4)
			for _, tc := range rows {
				args = append(args, planID, tc.Description, tc.CreditHours, tc.Grade)
			}
			q := "INSERT INTO pos_transfer_courses (plan_of_study, description, credit_hours, grade) VALUES " + valuesClause(len(rows), 4)
			if _, err := tx.ExecContext(ctx, q, args...); err != nil {
				return errors.Wrap(err, "inserting transfers")
			}
		}
		var err error
		saved, err = listTransfers(ctx, tx, planID)
		return err
	})
	return saved, err
}

func (repo *planRepository) AddTransfer(ctx context.Context, tc plan.TransferCourse) (plan.TransferCourse, error) {
	var row transferRow
	err := repo.db.GetContext(ctx, &row, `
		INSERT INTO pos_transfer_courses (plan_of_study, description, credit_hours, grade)
		VALUES ($1, $2, $3, $4) RETURNING `+transferColumns,
		tc.PlanID, tc.Description, tc.CreditHours, tc.Grade)
	if err != nil {
		return plan.TransferCourse{}, errors.Wrap(err, "inserting transfer")
	}
	return row.transfer(), nil
}

func (repo *planRepository) DeleteTransfer(ctx context.Context, planID, id int) (bool, error) {
	ok, err := affected(repo.db.ExecContext(ctx,
		"DELETE FROM pos_transfer_courses WHERE transfer_id = $1 AND plan_of_study = $2", id, planID))
	return ok, errors.Wrap(err, "deleting transfer")
}

// Committee

func listCommittee(ctx context.Context, q sqlx.QueryerContext, planID int) ([]plan.CommitteeMember, error) {
	members := make([]plan.CommitteeMember, 0)
	err := sqlx.SelectContext(ctx, q, &members, `
		SELECT approval_id, pos_id, first, last, department, role, institution
		FROM pos_committee WHERE pos_id = $1 ORDER BY approval_id`, planID)
	return members, errors.Wrap(err, "selecting committee")
}

func (repo *planRepository) ListCommittee(ctx context.Context, planID int) ([]plan.CommitteeMember, error) {
	return listCommittee(ctx, repo.db, planID)
}

func (repo *planRepository) ReplaceCommittee(ctx context.Context, planID int, members []plan.CommitteeMember) ([]plan.CommitteeMember, error) {
	var saved []plan.CommitteeMember
	err := withTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM pos_committee WHERE pos_id = $1", planID); err != nil {
			return errors.Wrap(err, "deleting committee")
		}
		if len(members) > 0 {
			args := make([]interface{}, 0, len(members)*6)
			for _, m := range members {
				args = append(args, planID, m.First, m.Last, m.Department, m.Role, m.Institution)
			}
			q := "INSERT INTO pos_committee (pos_id, first, last, department, role, institution) VALUES " + valuesClause(len(members), 6)
			if _, err := tx.ExecContext(ctx, q, args...); err != nil {
				return errors.Wrap(err, "inserting committee")
			}
		}
		var err error
		saved, err = listCommittee(ctx, tx, planID)
		return err
	})
	return saved, err
}

// Ignored courses

func (repo *planRepository) ListIgnoredCourses(ctx context.Context, studentKey string, degree plan.DegreeType) ([]plan.IgnoredCourse, error) {
	ignored := make([]plan.IgnoredCourse, 0)
	err := repo.db.SelectContext(ctx, &ignored, `
		SELECT pid, pos_type, course_code, planned_term, term_year
		FROM pos_ignored_courses
		WHERE pid = $1 AND pos_type = $2
		ORDER BY term_year, planned_term, course_code`, studentKey, int(degree))
	return ignored, errors.Wrap(err, "selecting ignored courses")
}

func (repo *planRepository) UpsertIgnoredCourse(ctx context.Context, ic plan.IgnoredCourse) (plan.IgnoredCourse, error) {
	_, err := repo.db.ExecContext(ctx, `
		INSERT INTO pos_ignored_courses (pid, pos_type, course_code, planned_term, term_year)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (pid, pos_type, course_code, planned_term, term_year) DO NOTHING`,
		ic.StudentKey, int(ic.Degree), ic.CourseCode, int(ic.Term), ic.Year)
	if err != nil {
		return plan.IgnoredCourse{}, errors.Wrap(err, "inserting ignored course")
	}
	return ic, nil
}

// History

const historyColumns = "history_id, plan_of_study, history_status, note, changed_by, date_changed"

func (repo *planRepository) AddHistory(ctx context.Context, h plan.HistoryEntry) (plan.HistoryEntry, error) {
	var row historyRow
	err := repo.db.GetContext(ctx, &row, `
		INSERT INTO pos_history (plan_of_study, history_status, note, changed_by)
		VALUES ($1, $2, $3, $4) RETURNING `+historyColumns,
		h.PlanID, int(h.Status), null.NewString(h.Note, h.Note != ""), null.NewString(h.ChangedBy, h.ChangedBy != ""))
	if err != nil {
		return plan.HistoryEntry{}, errors.Wrap(err, "inserting history")
	}
	return row.entry(), nil
}

func (repo *planRepository) ListHistory(ctx context.Context, planID int) ([]plan.HistoryEntry, error) {
	var rows []historyRow
	err := repo.db.SelectContext(ctx, &rows,
		"SELECT "+historyColumns+" FROM pos_history WHERE plan_of_study = $1 ORDER BY date_changed, history_id", planID)
	if err != nil {
		return nil, errors.Wrap(err, "selecting history")
	}
	history := make([]plan.HistoryEntry, 0, len(rows))
	for _, r := range rows {
		history = append(history, r.entry())
	}
	return history, nil
}
