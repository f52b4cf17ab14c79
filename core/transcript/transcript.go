package transcript

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/kat-co/vala"
	"github.com/pkg/errors"

	"github.com/dtsmedt/PlanOfStudy/core"
	"github.com/dtsmedt/PlanOfStudy/core/catalog"
)

var (
	ErrImportInProgress = errors.New("A submission is currently being processed. Please try again in a moment.")
	ErrNoRows           = errors.New("no transcript rows to import")

	// PassingGrades are the grades that earn plan credit.
	PassingGrades = map[string]bool{"A": true, "B": true, "C": true}
)

type (
	// Record is one completed-course row of the registrar feed. Records are never edited,
	// the whole set is replaced on every import.
	Record struct {
		ID          int       `json:"id" db:"id"`
		StudentKey  string    `json:"student_id" db:"student_id" validate:"max=16"`
		Name        string    `json:"name" db:"name" validate:"notblank"`
		Subject     string    `json:"subj_expanded" db:"subj_expanded" validate:"notblank"`
		Number      string    `json:"crse_numb" db:"crse_numb" validate:"notblank"`
		TermTaken   string    `json:"term_taken" db:"term_taken"`
		CreditHours float64   `json:"credit_hours" db:"credit_hours" validate:"gte=0"`
		Grade       string    `json:"grade" db:"grade"`
		CreatedAt   time.Time `json:"created_at" db:"created_at"`
	}

	Repository interface {
		// ListByStudentName lists the rows whose name is exactly `lastFirst`, ordered by term.
		ListByStudentName(ctx context.Context, lastFirst string) ([]Record, error)
		Clear(ctx context.Context) (int, error)
		InsertMany(ctx context.Context, rows []Record) (int, error)
	}

	ImportReport struct {
		ID         uuid.UUID `json:"id"`
		Cleared    int       `json:"cleared"`
		Inserted   int       `json:"inserted"`
		StartedAt  time.Time `json:"started_at"`
		FinishedAt time.Time `json:"finished_at"`
	}

	Service struct {
		repo       Repository
		validate   *validator.Validate
		translator ut.Translator
		log        core.Logger

		// importing is held for the whole clear + insert so at most one import runs at a time.
		importing sync.Mutex
	}
)

// Code is the canonical course code of the record.
func (r Record) Code() string {
	return catalog.Code(r.Subject, r.Number)
}

// NormalizedGrade is the trimmed, upper-cased grade.
func (r Record) NormalizedGrade() string {
	return strings.ToUpper(strings.TrimSpace(r.Grade))
}

func (r Record) Passed() bool {
	return PassingGrades[r.NormalizedGrade()]
}

// NormalizeName canonicalizes a "Last, First" lookup key.
func NormalizeName(lastFirst string) string {
	return core.CollapseSpaces(lastFirst)
}

// StudentName builds the "Last, First" key transcripts are filed under.
func StudentName(first, last string) string {
	return NormalizeName(strings.TrimSpace(last) + ", " + strings.TrimSpace(first))
}

func NewService(repo Repository, validate *validator.Validate, translator ut.Translator, logger core.Logger) *Service {
	vala.BeginValidation().Validate(
		vala.IsNotNil(repo, "repo"),
		vala.IsNotNil(validate, "validate"),
		vala.IsNotNil(translator, "translator"),
		vala.IsNotNil(logger, "logger"),
	).CheckAndPanic()

	return &Service{repo: repo, validate: validate, translator: translator, log: logger}
}

func (svc *Service) ListByStudentName(ctx context.Context, lastFirst string) ([]Record, error) {
	name := NormalizeName(lastFirst)
	if name == "" {
		return nil, core.NewValidationError(nil, core.FieldError{Field: "name", Error: "name is required"})
	}
	return svc.repo.ListByStudentName(ctx, name)
}

// Import replaces the whole transcript table with `rows`.
// Rows are validated first so a bad file never clears the table.
func (svc *Service) Import(ctx context.Context, rows []Record) (ImportReport, error) {
	if !svc.importing.TryLock() {
		return ImportReport{}, core.NewValidationError(ErrImportInProgress)
	}
	defer svc.importing.Unlock()

	if len(rows) == 0 {
		return ImportReport{}, core.NewValidationError(ErrNoRows)
	}
	clean := make([]Record, 0, len(rows))
	for i, row := range rows {
		row.Name = NormalizeName(row.Name)
		row.Subject = strings.ToUpper(strings.TrimSpace(row.Subject))
		row.Number = strings.TrimSpace(row.Number)
		row.TermTaken = strings.TrimSpace(row.TermTaken)
		row.Grade = row.NormalizedGrade()
		if err := core.CheckStruct(svc.validate, svc.translator, row); err != nil {
			if vErr, ok := err.(*core.ValidationError); ok {
				for j := range vErr.Fields {
					vErr.Fields[j].Field = fmt.Sprintf("rows[%d].%s", i, vErr.Fields[j].Field)
				}
			}
			return ImportReport{}, err
		}
		clean = append(clean, row)
	}

	report := ImportReport{ID: uuid.New(), StartedAt: time.Now().UTC()}
	svc.log.Info("transcript import started", "import_id", report.ID.String(), "rows", len(clean))

	cleared, err := svc.repo.Clear(ctx)
	if err != nil {
		return ImportReport{}, errors.Wrap(err, "clearing transcripts")
	}
	report.Cleared = cleared

	inserted, err := svc.repo.InsertMany(ctx, clean)
	if err != nil {
		return ImportReport{}, errors.Wrap(err, "inserting transcripts")
	}
	report.Inserted = inserted
	report.FinishedAt = time.Now().UTC()

	svc.log.Info("transcript import finished", "import_id", report.ID.String(), "cleared", cleared, "inserted", inserted)
	return report, nil
}
