package dummydb

import (
	"context"
	"sort"
	"time"

	"github.com/dtsmedt/PlanOfStudy/core/transcript"
)

type transcriptRepository struct {
	db *transcriptTable
}

var _ transcript.Repository = (*transcriptRepository)(nil) // interface compliance check

func NewTranscriptRepository(db *DB) transcript.Repository {
	return &transcriptRepository{db: db.transcript}
}

func (repo *transcriptRepository) ListByStudentName(_ context.Context, lastFirst string) ([]transcript.Record, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var records []transcript.Record
	for _, r := range repo.db.rows {
		if r.Name == lastFirst {
			records = append(records, r)
		}
	}
	sort.SliceStable(records, func(i, j int) bool { return records[i].TermTaken < records[j].TermTaken })
	return records, nil
}

func (repo *transcriptRepository) Clear(_ context.Context) (int, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	n := len(repo.db.rows)
	repo.db.rows = nil
	return n, nil
}

func (repo *transcriptRepository) InsertMany(_ context.Context, rows []transcript.Record) (int, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	now := time.Now().UTC()
	for _, r := range rows {
		repo.db.seq++
		r.ID = repo.db.seq
		r.CreatedAt = now
		repo.db.rows = append(repo.db.rows, r)
	}
	return len(rows), nil
}
