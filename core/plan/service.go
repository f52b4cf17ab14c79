package plan

import (
	"context"
	"fmt"
	"strings"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/kat-co/vala"
	"github.com/pkg/errors"

	"github.com/dtsmedt/PlanOfStudy/core"
	"github.com/dtsmedt/PlanOfStudy/core/catalog"
	"github.com/dtsmedt/PlanOfStudy/core/term"
)

var (
	// errors
	ErrNotFound               = core.NewNotFoundError("plan of study not found")
	ErrStudentNotFound        = core.NewNotFoundError("student not found")
	ErrPlannedCourseNotFound  = core.NewNotFoundError("planned course not found")
	ErrTransferNotFound       = core.NewNotFoundError("transfer course not found")
	ErrInvalidDegree          = errors.New("Invalid pos_type")
	ErrInvalidStudent         = errors.New("Invalid pid")
	ErrCourseCodeRequired     = errors.New("course_code required")
	ErrPlannedTermRequired    = errors.New("planned_term required")
	ErrTermYearRequired       = errors.New("term_year required")
	ErrTransferDescRequired   = errors.New("Description required")
	ErrTransferCreditNegative = errors.New("credit_hours must be a non-negative integer")
)

type (
	Filter struct {
		Statuses       []Status
		CommitteeChair string
		Degree         DegreeType
		Orderings      []core.DBOrdering
	}

	// Repository is the Plan Store.
	// Not-found lookups return the package sentinels; deletes and updates of missing rows report false.
	Repository interface {
		GetStudent(ctx context.Context, key string) (Student, error)
		UpsertStudent(ctx context.Context, s Student) (Student, error)

		GetPlan(ctx context.Context, studentKey string, degree DegreeType) (Plan, error)
		GetPlanByID(ctx context.Context, id int) (Plan, error)
		// UpsertPlan creates the (studentKey, degree) plan when missing and sets chair and status when not nil.
		UpsertPlan(ctx context.Context, studentKey string, degree DegreeType, chair *string, status *Status) (Plan, error)
		ListPlans(ctx context.Context, filter Filter) ([]Plan, error)

		// ListPlannedCourses lists the rows of a plan with their catalog labels joined.
		ListPlannedCourses(ctx context.Context, planID int) ([]PlannedCourse, error)
		GetPlannedCourse(ctx context.Context, id int) (PlannedCourse, error)
		ReplacePlannedCourses(ctx context.Context, planID int, rows []PlannedCourse) ([]PlannedCourse, error)
		AddPlannedCourse(ctx context.Context, pc PlannedCourse) (PlannedCourse, error)
		DeletePlannedCourse(ctx context.Context, id int) (bool, error)
		UpdatePlannedCourseTerm(ctx context.Context, id int, termID term.ID, year int) (bool, error)

		ListTransfers(ctx context.Context, planID int) ([]TransferCourse, error)
		ReplaceTransfers(ctx context.Context, planID int, rows []TransferCourse) ([]TransferCourse, error)
		AddTransfer(ctx context.Context, tc TransferCourse) (TransferCourse, error)
		// DeleteTransfer removes the row only when it belongs to planID.
		DeleteTransfer(ctx context.Context, planID, id int) (bool, error)

		ListCommittee(ctx context.Context, planID int) ([]CommitteeMember, error)
		ReplaceCommittee(ctx context.Context, planID int, members []CommitteeMember) ([]CommitteeMember, error)

		ListIgnoredCourses(ctx context.Context, studentKey string, degree DegreeType) ([]IgnoredCourse, error)
		// UpsertIgnoredCourse is a no-op when the same ignore already exists.
		UpsertIgnoredCourse(ctx context.Context, ic IgnoredCourse) (IgnoredCourse, error)

		AddHistory(ctx context.Context, h HistoryEntry) (HistoryEntry, error)
		ListHistory(ctx context.Context, planID int) ([]HistoryEntry, error)
	}

	Service struct {
		repo       Repository
		courses    catalog.Repository
		validate   *validator.Validate
		translator ut.Translator
		log        core.Logger
	}
)

func NewService(
	repo Repository,
	courses catalog.Repository,
	validate *validator.Validate,
	translator ut.Translator,
	logger core.Logger,
) *Service {
	vala.BeginValidation().Validate(
		vala.IsNotNil(repo, "repo"),
		vala.IsNotNil(courses, "courses"),
		vala.IsNotNil(validate, "validate"),
		vala.IsNotNil(translator, "translator"),
		vala.IsNotNil(logger, "logger"),
	).CheckAndPanic()

	return &Service{repo: repo, courses: courses, validate: validate, translator: translator, log: logger}
}

// Repo exposes the underlying store to collaborators that only read.
func (svc *Service) Repo() Repository {
	return svc.repo
}

func (svc *Service) check(s interface{}) error {
	return core.CheckStruct(svc.validate, svc.translator, s)
}

// Students & Plans

func (svc *Service) GetStudent(ctx context.Context, key string) (Student, error) {
	return svc.repo.GetStudent(ctx, core.CleanString(key))
}

func (svc *Service) SaveStudent(ctx context.Context, s Student) (Student, error) {
	s.Key = core.CleanString(s.Key)
	s.First = core.CleanString(s.First)
	s.Last = core.CleanString(s.Last)
	if s.Key == "" || s.First == "" || s.Last == "" {
		return Student{}, core.NewValidationError(errors.New("pid, first, and last are required."))
	}
	return svc.repo.UpsertStudent(ctx, s)
}

func (svc *Service) GetPlan(ctx context.Context, studentKey string, degree DegreeType) (Plan, error) {
	if err := checkPlanKey(studentKey, degree); err != nil {
		return Plan{}, err
	}
	return svc.repo.GetPlan(ctx, core.CleanString(studentKey), degree)
}

func (svc *Service) GetPlanByID(ctx context.Context, id int) (Plan, error) {
	return svc.repo.GetPlanByID(ctx, id)
}

// EnsurePlan returns the (studentKey, degree) plan, creating it in the Saved status on first use.
func (svc *Service) EnsurePlan(ctx context.Context, studentKey string, degree DegreeType) (Plan, error) {
	p, err := svc.GetPlan(ctx, studentKey, degree)
	if err == nil {
		return p, nil
	}
	if errors.Cause(err) != ErrNotFound {
		return Plan{}, err
	}
	status := StatusSaved
	p, err = svc.repo.UpsertPlan(ctx, core.CleanString(studentKey), degree, nil, &status)
	if err != nil {
		return Plan{}, errors.Wrap(err, "creating plan")
	}
	svc.log.Info("plan created", "pos_id", p.ID, "pid", p.StudentKey, "pos_type", p.Degree.String())
	return p, nil
}

func (svc *Service) ListPlans(ctx context.Context, filter Filter) ([]Plan, error) {
	filter.Orderings = core.FilterOrderings(filter.Orderings, "pos_id", "pid", "pos_type", "current_status", "updated_at")
	return svc.repo.ListPlans(ctx, filter)
}

// SetCommitteeChair sets (or clears, with "") the faculty chairing the plan's committee.
func (svc *Service) SetCommitteeChair(ctx context.Context, planID int, chair string) (Plan, error) {
	p, err := svc.editablePlan(ctx, planID)
	if err != nil {
		return Plan{}, err
	}
	chair = core.CleanString(chair)
	return svc.repo.UpsertPlan(ctx, p.StudentKey, p.Degree, &chair, nil)
}

// SetStatus moves the plan to `status` without any workflow check; callers own the rules.
func (svc *Service) SetStatus(ctx context.Context, planID int, status Status) (Plan, error) {
	p, err := svc.repo.GetPlanByID(ctx, planID)
	if err != nil {
		return Plan{}, err
	}
	return svc.repo.UpsertPlan(ctx, p.StudentKey, p.Degree, nil, &status)
}

// editablePlan loads the plan and rejects writes unless it is saved.
func (svc *Service) editablePlan(ctx context.Context, planID int) (Plan, error) {
	p, err := svc.repo.GetPlanByID(ctx, planID)
	if err != nil {
		return Plan{}, err
	}
	if !p.Status.Editable() {
		return Plan{}, core.NewValidationError(
			errors.Errorf("plan of study is read-only while %q", p.Status.String()),
		)
	}
	return p, nil
}

// Planned courses

func (svc *Service) ListPlannedCourses(ctx context.Context, planID int) ([]PlannedCourse, error) {
	return svc.repo.ListPlannedCourses(ctx, planID)
}

// resolve validates `npc` and turns it into a storable row using the catalog resolution rules.
func (svc *Service) resolve(ctx context.Context, planID int, npc NewPlannedCourse) (PlannedCourse, error) {
	if err := svc.check(npc); err != nil {
		return PlannedCourse{}, err
	}
	course, err := svc.courses.GetCourse(ctx, npc.CourseID)
	if err != nil {
		return PlannedCourse{}, err
	}
	area, err := ResolveArea(course, npc.Area)
	if err != nil {
		return PlannedCourse{}, err
	}
	return PlannedCourse{
		PlanID:       planID,
		CourseID:     course.ID,
		Area:         &area,
		CreditHours:  ResolveCreditHours(course, npc.CreditHours),
		Term:         npc.Term,
		Year:         npc.Year,
		SubjectCode:  course.SubjectCode,
		CourseNumber: course.CourseNumber,
		Title:        course.Title,
	}, nil
}

// ReplacePlannedCourses swaps the whole planned set. Rows that fail validation or cannot be
// resolved against the catalog are skipped and logged, the rest are saved.
func (svc *Service) ReplacePlannedCourses(ctx context.Context, planID int, rows []NewPlannedCourse) ([]PlannedCourse, error) {
	if _, err := svc.editablePlan(ctx, planID); err != nil {
		return nil, err
	}

	resolved := make([]PlannedCourse, 0, len(rows))
	for i, npc := range rows {
		pc, err := svc.resolve(ctx, planID, npc)
		if err != nil {
			if errors.Cause(err) == catalog.ErrCourseNotFound || isInputError(err) {
				svc.log.Warn("skipping planned course row", "pos_id", planID, "row", i+1, "error", err.Error())
				continue
			}
			return nil, err
		}
		resolved = append(resolved, pc)
	}

	saved, err := svc.repo.ReplacePlannedCourses(ctx, planID, resolved)
	if err != nil {
		return nil, errors.Wrap(err, "replacing planned courses")
	}
	svc.log.Info("planned courses replaced", "pos_id", planID, "received", len(rows), "saved", len(saved))
	return saved, nil
}

func (svc *Service) AddPlannedCourse(ctx context.Context, planID int, npc NewPlannedCourse) (PlannedCourse, error) {
	if _, err := svc.editablePlan(ctx, planID); err != nil {
		return PlannedCourse{}, err
	}
	pc, err := svc.resolve(ctx, planID, npc)
	if err != nil {
		return PlannedCourse{}, err
	}
	saved, err := svc.repo.AddPlannedCourse(ctx, pc)
	if err != nil {
		return PlannedCourse{}, errors.Wrap(err, "adding planned course")
	}
	return saved, nil
}

// DeletePlannedCourse removes a row of the plan. Deleting a row that is already gone reports false.
func (svc *Service) DeletePlannedCourse(ctx context.Context, planID, id int) (bool, error) {
	if _, err := svc.editablePlan(ctx, planID); err != nil {
		return false, err
	}
	pc, err := svc.repo.GetPlannedCourse(ctx, id)
	if err != nil {
		if errors.Cause(err) == ErrPlannedCourseNotFound {
			return false, nil
		}
		return false, err
	}
	if pc.PlanID != planID {
		return false, ErrPlannedCourseNotFound
	}
	return svc.repo.DeletePlannedCourse(ctx, id)
}

// MovePlannedCourse changes the term and year of a row of the plan.
func (svc *Service) MovePlannedCourse(ctx context.Context, planID, id int, mv MoveCourse) error {
	if _, err := svc.editablePlan(ctx, planID); err != nil {
		return err
	}
	if err := svc.check(mv); err != nil {
		return err
	}
	pc, err := svc.repo.GetPlannedCourse(ctx, id)
	if err != nil {
		return err
	}
	if pc.PlanID != planID {
		return ErrPlannedCourseNotFound
	}
	ok, err := svc.repo.UpdatePlannedCourseTerm(ctx, id, mv.Term, mv.Year)
	if err != nil {
		return errors.Wrap(err, "moving planned course")
	}
	if !ok {
		return ErrPlannedCourseNotFound
	}
	return nil
}

// Transfers

func (svc *Service) ListTransfers(ctx context.Context, planID int) ([]TransferCourse, error) {
	return svc.repo.ListTransfers(ctx, planID)
}

func (svc *Service) newTransfer(planID int, ntc NewTransferCourse) (TransferCourse, error) {
	ntc.Description = core.CleanString(ntc.Description)
	ntc.Grade = strings.ToUpper(core.CleanString(ntc.Grade))
	if err := svc.check(ntc); err != nil {
		return TransferCourse{}, err
	}
	return TransferCourse{
		PlanID:      planID,
		Description: ntc.Description,
		CreditHours: ntc.CreditHours,
		Grade:       ntc.Grade,
	}, nil
}

// ReplaceTransfers validates every row first; one bad row rejects the whole set.
func (svc *Service) ReplaceTransfers(ctx context.Context, planID int, rows []NewTransferCourse) ([]TransferCourse, error) {
	if _, err := svc.editablePlan(ctx, planID); err != nil {
		return nil, err
	}
	transfers := make([]TransferCourse, 0, len(rows))
	for i, ntc := range rows {
		tc, err := svc.newTransfer(planID, ntc)
		if err != nil {
			return nil, prefixFields(err, fmt.Sprintf("rows[%d].", i))
		}
		transfers = append(transfers, tc)
	}
	return svc.repo.ReplaceTransfers(ctx, planID, transfers)
}

func (svc *Service) AddTransfer(ctx context.Context, planID int, ntc NewTransferCourse) (TransferCourse, error) {
	if _, err := svc.editablePlan(ctx, planID); err != nil {
		return TransferCourse{}, err
	}
	tc, err := svc.newTransfer(planID, ntc)
	if err != nil {
		return TransferCourse{}, err
	}
	return svc.repo.AddTransfer(ctx, tc)
}

// DeleteTransfer removes a transfer of the plan. Rows that are gone or belong to another plan
// are left alone and reported as false.
func (svc *Service) DeleteTransfer(ctx context.Context, planID, id int) (bool, error) {
	if _, err := svc.editablePlan(ctx, planID); err != nil {
		return false, err
	}
	return svc.repo.DeleteTransfer(ctx, planID, id)
}

func (svc *Service) SumTransferCredits(ctx context.Context, planID int) (int, error) {
	transfers, err := svc.repo.ListTransfers(ctx, planID)
	if err != nil {
		return 0, err
	}
	var total int
	for _, tc := range transfers {
		total += tc.CreditHours
	}
	return total, nil
}

// Committee

func (svc *Service) ListCommittee(ctx context.Context, planID int) ([]CommitteeMember, error) {
	return svc.repo.ListCommittee(ctx, planID)
}

// ReplaceCommittee drops fully blank rows and rejects partially filled ones.
func (svc *Service) ReplaceCommittee(ctx context.Context, planID int, members []CommitteeMember) ([]CommitteeMember, error) {
	if _, err := svc.editablePlan(ctx, planID); err != nil {
		return nil, err
	}
	kept := make([]CommitteeMember, 0, len(members))
	for i, m := range members {
		if m.Blank() {
			continue
		}
		if missing := m.MissingFields(); len(missing) > 0 {
			return nil, core.NewValidationError(
				errors.Errorf("Member #%d missing: %s", i+1, strings.Join(missing, ", ")),
			)
		}
		kept = append(kept, CommitteeMember{
			PlanID:      planID,
			First:       core.CleanString(m.First),
			Last:        core.CleanString(m.Last),
			Department:  core.CleanString(m.Department),
			Role:        core.CleanString(m.Role),
			Institution: core.CleanString(m.Institution),
		})
	}
	return svc.repo.ReplaceCommittee(ctx, planID, kept)
}

// Ignored courses

func (svc *Service) ListIgnoredCourses(ctx context.Context, studentKey string, degree DegreeType) ([]IgnoredCourse, error) {
	if err := checkPlanKey(studentKey, degree); err != nil {
		return nil, err
	}
	return svc.repo.ListIgnoredCourses(ctx, core.CleanString(studentKey), degree)
}

// IgnoreCourse records that a transcript course in a given term is deliberately left out of the plan.
func (svc *Service) IgnoreCourse(ctx context.Context, ic IgnoredCourse) (IgnoredCourse, error) {
	ic.StudentKey = core.CleanString(ic.StudentKey)
	ic.CourseCode = catalog.NormalizeCode(ic.CourseCode)
	if err := checkPlanKey(ic.StudentKey, ic.Degree); err != nil {
		return IgnoredCourse{}, err
	}
	switch {
	case ic.CourseCode == "":
		return IgnoredCourse{}, core.NewValidationError(ErrCourseCodeRequired)
	case ic.Term <= 0:
		return IgnoredCourse{}, core.NewValidationError(ErrPlannedTermRequired)
	case ic.Year <= 0:
		return IgnoredCourse{}, core.NewValidationError(ErrTermYearRequired)
	}
	return svc.repo.UpsertIgnoredCourse(ctx, ic)
}

// History

func (svc *Service) ListHistory(ctx context.Context, planID int) ([]HistoryEntry, error) {
	if _, err := svc.repo.GetPlanByID(ctx, planID); err != nil {
		return nil, err
	}
	return svc.repo.ListHistory(ctx, planID)
}

func (svc *Service) AddHistory(ctx context.Context, h HistoryEntry) (HistoryEntry, error) {
	h.Note = core.CleanString(h.Note)
	h.ChangedBy = core.CleanString(h.ChangedBy)
	entry, err := svc.repo.AddHistory(ctx, h)
	if err != nil {
		return HistoryEntry{}, errors.Wrap(err, "adding history")
	}
	return entry, nil
}

// helpers

func checkPlanKey(studentKey string, degree DegreeType) error {
	if core.CleanString(studentKey) == "" {
		return core.NewValidationError(ErrInvalidStudent)
	}
	if !degree.Valid() {
		return core.NewValidationError(ErrInvalidDegree)
	}
	return nil
}

// isInputError reports whether err is caused by the caller's input rather than the store.
func isInputError(err error) bool {
	switch errors.Cause(err).(type) {
	case *core.ValidationError, *core.AmbiguousError:
		return true
	}
	return false
}

// prefixFields namespaces the field names of a *core.ValidationError.
func prefixFields(err error, prefix string) error {
	if vErr, ok := errors.Cause(err).(*core.ValidationError); ok {
		for i := range vErr.Fields {
			vErr.Fields[i].Field = prefix + vErr.Fields[i].Field
		}
	}
	return err
}
