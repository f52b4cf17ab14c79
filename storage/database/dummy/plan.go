package dummydb

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/dtsmedt/PlanOfStudy/core/plan"
	"github.com/dtsmedt/PlanOfStudy/core/term"
)

type planRepository struct {
	db *DB
}

var _ plan.Repository = (*planRepository)(nil) // interface compliance check

func NewPlanRepository(db *DB) plan.Repository {
	return &planRepository{db: db}
}

// Students

func (repo *planRepository) GetStudent(_ context.Context, key string) (plan.Student, error) {
	repo.db.student.RLock()
	defer repo.db.student.RUnlock()

	if s, ok := repo.db.student.table[key]; ok {
		return s, nil
	}
	return plan.Student{}, plan.ErrStudentNotFound
}

func (repo *planRepository) UpsertStudent(_ context.Context, s plan.Student) (plan.Student, error) {
	repo.db.student.Lock()
	defer repo.db.student.Unlock()

	repo.db.student.table[s.Key] = s
	return s, nil
}

// Plans

func (repo *planRepository) GetPlan(_ context.Context, studentKey string, degree plan.DegreeType) (plan.Plan, error) {
	repo.db.plan.RLock()
	defer repo.db.plan.RUnlock()

	if p := repo.findPlan(studentKey, degree); p != nil {
		return *p, nil
	}
	return plan.Plan{}, plan.ErrNotFound
}

func (repo *planRepository) findPlan(studentKey string, degree plan.DegreeType) *plan.Plan {
	for _, p := range repo.db.plan.table {
		if p.StudentKey == studentKey && p.Degree == degree {
			return p
		}
	}
	return nil
}

func (repo *planRepository) GetPlanByID(_ context.Context, id int) (plan.Plan, error) {
	repo.db.plan.RLock()
	defer repo.db.plan.RUnlock()

	if p, ok := repo.db.plan.table[id]; ok {
		return *p, nil
	}
	return plan.Plan{}, plan.ErrNotFound
}

func (repo *planRepository) UpsertPlan(
	_ context.Context,
	studentKey string,
	degree plan.DegreeType,
	chair *string,
	status *plan.Status,
) (plan.Plan, error) {
	repo.db.plan.Lock()
	defer repo.db.plan.Unlock()

	now := time.Now().UTC()
	p := repo.findPlan(studentKey, degree)
	if p == nil {
		repo.db.plan.seq++
		p = &plan.Plan{
			ID:         repo.db.plan.seq,
			StudentKey: studentKey,
			Degree:     degree,
			Status:     plan.StatusSaved,
			CreatedAt:  now,
		}
		repo.db.plan.table[p.ID] = p
	}
	if chair != nil {
		p.CommitteeChair = *chair
	}
	if status != nil {
		p.Status = *status
	}
	p.UpdatedAt = now
	return *p, nil
}

func (repo *planRepository) ListPlans(_ context.Context, filter plan.Filter) ([]plan.Plan, error) {
	repo.db.plan.RLock()
	defer repo.db.plan.RUnlock()

	var plans []plan.Plan
	for _, p := range repo.db.plan.table {
		if len(filter.Statuses) > 0 && !hasStatus(filter.Statuses, p.Status) {
			continue
		}
		if filter.CommitteeChair != "" && !strings.EqualFold(filter.CommitteeChair, p.CommitteeChair) {
			continue
		}
		if filter.Degree != 0 && filter.Degree != p.Degree {
			continue
		}
		plans = append(plans, *p)
	}

	sort.Slice(plans, func(i, j int) bool { return plans[i].ID < plans[j].ID })
	for k := len(filter.Orderings) - 1; k >= 0; k-- {
		ord := filter.Orderings[k]
		sort.SliceStable(plans, func(i, j int) bool {
			less, greater := comparePlans(plans[i], plans[j], ord.Field)
			if ord.Ascending {
				return less
			}
			return greater
		})
	}
	return plans, nil
}

func hasStatus(statuses []plan.Status, s plan.Status) bool {
	for _, st := range statuses {
		if st == s {
			return true
		}
	}
	return false
}

func comparePlans(a, b plan.Plan, field string) (less, greater bool) {
	switch field {
	case "pid":
		return a.StudentKey < b.StudentKey, a.StudentKey > b.StudentKey
	case "pos_type":
		return a.Degree < b.Degree, a.Degree > b.Degree
	case "current_status":
		return a.Status < b.Status, a.Status > b.Status
	case "updated_at":
		return a.UpdatedAt.Before(b.UpdatedAt), a.UpdatedAt.After(b.UpdatedAt)
	default:
		return a.ID < b.ID, a.ID > b.ID
	}
}

// Planned courses

// label joins the catalog labels onto a planned course.
func (repo *planRepository) label(pc plan.PlannedCourse) plan.PlannedCourse {
	repo.db.course.RLock()
	defer repo.db.course.RUnlock()

	if c, ok := repo.db.course.table[pc.CourseID]; ok {
		pc.SubjectCode = c.SubjectCode
		pc.CourseNumber = c.CourseNumber
		pc.Title = c.Title
	}
	if pc.Area != nil {
		area := *pc.Area
		pc.Area = &area
		if a, ok := repo.db.course.areas[area]; ok {
			pc.AreaDescription = a.Description
		}
	}
	return pc
}

func (repo *planRepository) ListPlannedCourses(_ context.Context, planID int) ([]plan.PlannedCourse, error) {
	repo.db.planned.RLock()
	defer repo.db.planned.RUnlock()

	var rows []plan.PlannedCourse
	for _, pc := range repo.db.planned.table {
		if pc.PlanID == planID {
			rows = append(rows, repo.label(*pc))
		}
	}
	sort.Slice(rows, func(i, j int) bool {
		bi, bj := rows[i].Bucket(), rows[j].Bucket()
		if bi != bj {
			return bi.Less(bj)
		}
		return rows[i].ID < rows[j].ID
	})
	return rows, nil
}

func (repo *planRepository) GetPlannedCourse(_ context.Context, id int) (plan.PlannedCourse, error) {
	repo.db.planned.RLock()
	defer repo.db.planned.RUnlock()

	if pc, ok := repo.db.planned.table[id]; ok {
		return repo.label(*pc), nil
	}
	return plan.PlannedCourse{}, plan.ErrPlannedCourseNotFound
}

func (repo *planRepository) insertPlanned(pc plan.PlannedCourse) plan.PlannedCourse {
	repo.db.planned.seq++
	pc.ID = repo.db.planned.seq
	if pc.Area != nil {
		area := *pc.Area
		pc.Area = &area
	}
	repo.db.planned.table[pc.ID] = &pc
	return repo.label(pc)
}

func (repo *planRepository) ReplacePlannedCourses(_ context.Context, planID int, rows []plan.PlannedCourse) ([]plan.PlannedCourse, error) {
	repo.db.planned.Lock()
	defer repo.db.planned.Unlock()

	for id, pc := range repo.db.planned.table {
		if pc.PlanID == planID {
			delete(repo.db.planned.table, id)
		}
	}
	saved := make([]plan.PlannedCourse, 0, len(rows))
	for _, pc := range rows {
		pc.PlanID = planID
		saved = append(saved, repo.insertPlanned(pc))
	}
	return saved, nil
}

func (repo *planRepository) AddPlannedCourse(_ context.Context, pc plan.PlannedCourse) (plan.PlannedCourse, error) {
	repo.db.planned.Lock()
	defer repo.db.planned.Unlock()

	return repo.insertPlanned(pc), nil
}

func (repo *planRepository) DeletePlannedCourse(_ context.Context, id int) (bool, error) {
	repo.db.planned.Lock()
	defer repo.db.planned.Unlock()

	if _, ok := repo.db.planned.table[id]; !ok {
		return false, nil
	}
	delete(repo.db.planned.table, id)
	return true, nil
}

func (repo *planRepository) UpdatePlannedCourseTerm(_ context.Context, id int, termID term.ID, year int) (bool, error) {
	repo.db.planned.Lock()
	defer repo.db.planned.Unlock()

	pc, ok := repo.db.planned.table[id]
	if !ok {
		return false, nil
	}
	pc.Term = termID
	pc.Year = year
	return true, nil
}

// Transfers

func (repo *planRepository) ListTransfers(_ context.Context, planID int) ([]plan.TransferCourse, error) {
	repo.db.transfer.RLock()
	defer repo.db.transfer.RUnlock()

	var rows []plan.TransferCourse
	for _, tc := range repo.db.transfer.table {
		if tc.PlanID == planID {
			rows = append(rows, *tc)
		}
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].ID < rows[j].ID })
	return rows, nil
}

func (repo *planRepository) insertTransfer(tc plan.TransferCourse) plan.TransferCourse {
	repo.db.transfer.seq++
	tc.ID = repo.db.transfer.seq
	repo.db.transfer.table[tc.ID] = &tc
	return tc
}

func (repo *planRepository) ReplaceTransfers(_ context.Context, planID int, rows []plan.TransferCourse) ([]plan.TransferCourse, error) {
	repo.db.transfer.Lock()
	defer repo.db.transfer.Unlock()

	for id, tc := range repo.db.transfer.table {
		if tc.PlanID == planID {
			delete(repo.db.transfer.table, id)
		}
	}
	saved := make([]plan.TransferCourse, 0, len(rows))
	for _, tc := range rows {
		tc.PlanID = planID
		saved = append(saved, repo.insertTransfer(tc))
	}
	return saved, nil
}

func (repo *planRepository) AddTransfer(_ context.Context, tc plan.TransferCourse) (plan.TransferCourse, error) {
	repo.db.transfer.Lock()
	defer repo.db.transfer.Unlock()

	return repo.insertTransfer(tc), nil
}

func (repo *planRepository) DeleteTransfer(_ context.Context, planID, id int) (bool, error) {
	repo.db.transfer.Lock()
	defer repo.db.transfer.Unlock()

	if tc, ok := repo.db.transfer.table[id]; !ok || tc.PlanID != planID {
		return false, nil
	}
	delete(repo.db.transfer.table, id)
	return true, nil
}

// Committee

func (repo *planRepository) ListCommittee(_ context.Context, planID int) ([]plan.CommitteeMember, error) {
	repo.db.committee.RLock()
	defer repo.db.committee.RUnlock()

	var rows []plan.CommitteeMember
	for _, m := range repo.db.committee.table {
		if m.PlanID == planID {
			rows = append(rows, *m)
		}
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].ID < rows[j].ID })
	return rows, nil
}

func (repo *planRepository) ReplaceCommittee(_ context.Context, planID int, members []plan.CommitteeMember) ([]plan.CommitteeMember, error) {
	repo.db.committee.Lock()
	defer repo.db.committee.Unlock()

	for id, m := range repo.db.committee.table {
		if m.PlanID == planID {
			delete(repo.db.committee.table, id)
		}
	}
	saved := make([]plan.CommitteeMember, 0, len(members))
	for _, m := range members {
		repo.db.committee.seq++
		m.ID = repo.db.committee.seq
		m.PlanID = planID
		row := m
		repo.db.committee.table[m.ID] = &row
		saved = append(saved, m)
	}
	return saved, nil
}

// Ignored courses

func (repo *planRepository) ListIgnoredCourses(_ context.Context, studentKey string, degree plan.DegreeType) ([]plan.IgnoredCourse, error) {
	repo.db.ignored.RLock()
	defer repo.db.ignored.RUnlock()

	var rows []plan.IgnoredCourse
	for _, ic := range repo.db.ignored.rows {
		if ic.StudentKey == studentKey && ic.Degree == degree {
			rows = append(rows, ic)
		}
	}
	return rows, nil
}

func (repo *planRepository) UpsertIgnoredCourse(_ context.Context, ic plan.IgnoredCourse) (plan.IgnoredCourse, error) {
	repo.db.ignored.Lock()
	defer repo.db.ignored.Unlock()

	for _, existing := range repo.db.ignored.rows {
		if existing == ic {
			return existing, nil
		}
	}
	repo.db.ignored.rows = append(repo.db.ignored.rows, ic)
	return ic, nil
}

// History

func (repo *planRepository) AddHistory(_ context.Context, h plan.HistoryEntry) (plan.HistoryEntry, error) {
	repo.db.history.Lock()
	defer repo.db.history.Unlock()

	repo.db.history.seq++
	h.ID = repo.db.history.seq
	h.CreatedAt = time.Now().UTC()
	repo.db.history.rows = append(repo.db.history.rows, h)
	return h, nil
}

func (repo *planRepository) ListHistory(_ context.Context, planID int) ([]plan.HistoryEntry, error) {
	repo.db.history.RLock()
	defer repo.db.history.RUnlock()

	var rows []plan.HistoryEntry
	for _, h := range repo.db.history.rows {
		if h.PlanID == planID {
			rows = append(rows, h)
		}
	}
	return rows, nil
}
