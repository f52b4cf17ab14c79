package transcript

import (
	"context"
	"sync"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dtsmedt/PlanOfStudy/core"
)

type memRepo struct {
	mu      sync.Mutex
	rows    []Record
	block   chan struct{}
	entered chan struct{}
}

func (repo *memRepo) ListByStudentName(_ context.Context, lastFirst string) ([]Record, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	var out []Record
	for _, r := range repo.rows {
		if r.Name == lastFirst {
			out = append(out, r)
		}
	}
	return out, nil
}

func (repo *memRepo) Clear(_ context.Context) (int, error) {
	if repo.block != nil {
		repo.entered <- struct{}{}
		<-repo.block
	}
	repo.mu.Lock()
	defer repo.mu.Unlock()
	n := len(repo.rows)
	repo.rows = nil
	return n, nil
}

func (repo *memRepo) InsertMany(_ context.Context, rows []Record) (int, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	repo.rows = append(repo.rows, rows...)
	return len(rows), nil
}

func newService(repo Repository) *Service {
	validate, translator := core.NewValidator()
	return NewService(repo, validate, translator, &core.NopLogger{})
}

func TestNormalizeName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Doe, Jane", "Doe, Jane"},
		{"  Doe,   Jane ", "Doe, Jane"},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeName(tt.in))
		})
	}
	assert.Equal(t, "Doe, Jane", StudentName(" Jane ", "Doe"))
}

func TestRecord(t *testing.T) {
	r := Record{Subject: "cs", Number: " 5114 ", Grade: " b+ "}
	assert.Equal(t, "CS 5114", r.Code())
	assert.Equal(t, "B+", r.NormalizedGrade())
	assert.False(t, r.Passed())

	r.Grade = "c"
	assert.True(t, r.Passed())
}

func TestService_Import(t *testing.T) {
	ctx := context.Background()
	repo := &memRepo{rows: []Record{{Name: "Old, Row"}}}
	svc := newService(repo)

	_, err := svc.Import(ctx, nil)
	assert.Equal(t, ErrNoRows, errors.Cause(err).(*core.ValidationError).Err)

	_, err = svc.Import(ctx, []Record{
		{Name: "Doe, Jane", Subject: "CS", Number: "5114", TermTaken: "202408", CreditHours: 3, Grade: "A"},
		{Name: "Doe, Jane", Subject: " ", Number: "5214", TermTaken: "202408", CreditHours: 3, Grade: "A"},
	})
	vErr, ok := errors.Cause(err).(*core.ValidationError)
	require.True(t, ok)
	require.Len(t, vErr.Fields, 1)
	assert.Equal(t, "rows[1].subj_expanded", vErr.Fields[0].Field)
	assert.Len(t, repo.rows, 1, "a rejected file must not clear the table")

	report, err := svc.Import(ctx, []Record{
		{Name: " Doe,  Jane", Subject: "cs", Number: "5114", TermTaken: "202408", CreditHours: 3, Grade: " a "},
		{Name: "Doe, Jane", Subject: "CS", Number: "5214", TermTaken: "202501", CreditHours: 3, Grade: "B"},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Cleared)
	assert.Equal(t, 2, report.Inserted)
	assert.False(t, report.FinishedAt.Before(report.StartedAt))

	rows, err := svc.ListByStudentName(ctx, "Doe,   Jane ")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "CS", rows[0].Subject)
	assert.Equal(t, "A", rows[0].Grade)

	_, err = svc.ListByStudentName(ctx, "  ")
	assert.Error(t, err)
}

func TestService_ImportIsExclusive(t *testing.T) {
	ctx := context.Background()
	repo := &memRepo{block: make(chan struct{}), entered: make(chan struct{})}
	svc := newService(repo)
	rows := []Record{{Name: "Doe, Jane", Subject: "CS", Number: "5114", TermTaken: "202408", CreditHours: 3, Grade: "A"}}

	done := make(chan error)
	go func() {
		_, err := svc.Import(ctx, rows)
		done <- err
	}()
	<-repo.entered

	_, err := svc.Import(ctx, rows)
	require.Error(t, err)
	assert.Equal(t, ErrImportInProgress.Error(), err.Error())

	close(repo.block)
	require.NoError(t, <-done)
}
