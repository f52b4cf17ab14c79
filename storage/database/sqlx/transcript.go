package sqlxrepos

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/dtsmedt/PlanOfStudy/core/transcript"
)

const transcriptColumns = 7

type transcriptRepository struct {
	db        *sqlx.DB
	batchSize int
}

var _ transcript.Repository = (*transcriptRepository)(nil) // interface compliance check

// NewTranscriptRepository inserts imports `batchSize` rows per statement.
func NewTranscriptRepository(db *sqlx.DB, batchSize int) transcript.Repository {
	if batchSize <= 0 {
		batchSize = 500
	}
	return &transcriptRepository{db: db, batchSize: batchSize}
}

type transcriptRow struct {
	transcript.Record
	StudentKey null.String `db:"student_id"`
	TermTaken  null.String `db:"term_taken"`
	Grade      null.String `db:"grade"`
}

func (r transcriptRow) record() transcript.Record {
	rec := r.Record
	rec.StudentKey = r.StudentKey.String
	rec.TermTaken = r.TermTaken.String
	rec.Grade = r.Grade.String
	return rec
}

func (repo *transcriptRepository) ListByStudentName(ctx context.Context, lastFirst string) ([]transcript.Record, error) {
	var rows []transcriptRow
	err := repo.db.SelectContext(ctx, &rows, `
		SELECT id, student_id, name, subj_expanded, crse_numb, term_taken, credit_hours, grade, created_at
		FROM pos_transcripts
		WHERE name = $1
		ORDER BY term_taken, id`, lastFirst)
	if err != nil {
		return nil, errors.Wrap(err, "selecting transcripts")
	}
	records := make([]transcript.Record, 0, len(rows))
	for _, r := range rows {
		records = append(records, r.record())
	}
	return records, nil
}

func (repo *transcriptRepository) Clear(ctx context.Context) (int, error) {
	res, err := repo.db.ExecContext(ctx, "DELETE FROM pos_transcripts")
	if err != nil {
		return 0, errors.Wrap(err, "clearing transcripts")
	}
	n, err := res.RowsAffected()
	return int(n), errors.Wrap(err, "clearing transcripts")
}

func (repo *transcriptRepository) InsertMany(ctx context.Context, rows []transcript.Record) (int, error) {
	inserted := 0
	err := withTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		for start := 0; start < len(rows); start += repo.batchSize {
			end := start + repo.batchSize
			if end > len(rows) {
				end = len(rows)
			}
			batch := rows[start:end]

			args := make([]interface{}, 0, len(batch)*transcriptColumns)
			for _, r := range batch {
				args = append(args,
					null.NewString(r.StudentKey, r.StudentKey != ""),
					r.Name,
					r.Subject,
					r.Number,
					null.NewString(r.TermTaken, r.TermTaken != ""),
					r.CreditHours,
					null.NewString(r.Grade, r.Grade != ""),
				)
			}
			q := "INSERT INTO pos_transcripts (student_id, name, subj_expanded, crse_numb, term_taken, credit_hours, grade) VALUES " +
				valuesClause(len(batch), transcriptColumns)
			if _, err := tx.ExecContext(ctx, q, args...); err != nil {
				return errors.Wrapf(err, "inserting transcripts %d-%d", start+1, end)
			}
			inserted += len(batch)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return inserted, nil
}
