package sqlxrepos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/gradebook/core/score"
)

const scoreColumns = "id, student_id, subject_id, term_id, class_score, exam_score, total, grade, entered_by, created_at, updated_at"

type scoreRow struct {
	ID         string      `db:"id"`
	StudentID  string      `db:"student_id"`
	SubjectID  string      `db:"subject_id"`
	TermID     string      `db:"term_id"`
	ClassScore int         `db:"class_score"`
	ExamScore  int         `db:"exam_score"`
	Total      int         `db:"total"`
	Grade      string      `db:"grade"`
	EnteredBy  null.String `db:"entered_by"`
	CreatedAt  time.Time   `db:"created_at"`
	UpdatedAt  time.Time   `db:"updated_at"`
}

func toScoreRow(s score.Score) scoreRow {
	return scoreRow{
		ID:         s.ID,
		StudentID:  s.StudentID,
		SubjectID:  s.SubjectID,
		TermID:     s.TermID,
		ClassScore: s.ClassScore,
		ExamScore:  s.ExamScore,
		Total:      s.Total,
		Grade:      s.Grade,
		EnteredBy:  null.NewString(s.EnteredBy, s.EnteredBy != ""),
		CreatedAt:  s.CreatedAt.UTC(),
		UpdatedAt:  s.UpdatedAt.UTC(),
	}
}

func (r scoreRow) score() score.Score {
	return score.Score{
		ID:         r.ID,
		StudentID:  r.StudentID,
		SubjectID:  r.SubjectID,
		TermID:     r.TermID,
		ClassScore: r.ClassScore,
		ExamScore:  r.ExamScore,
		Total:      r.Total,
		Grade:      r.Grade,
		EnteredBy:  r.EnteredBy.String,
		CreatedAt:  r.CreatedAt.UTC(),
		UpdatedAt:  r.UpdatedAt.UTC(),
	}
}

type scoreRepository struct {
	db *sqlx.DB
}

var _ score.Repository = (*scoreRepository)(nil) // interface compliance check

func NewScoreRepository(db *sqlx.DB) score.Repository {
	return &scoreRepository{db: db}
}

func (repo *scoreRepository) Upsert(ctx context.Context, scores []score.Score) ([]score.Score, error) {
	saved := make([]score.Score, 0, len(scores))
	err := inTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		stmt, err := tx.PrepareNamedContext(ctx,
			"INSERT INTO scores ("+scoreColumns+") VALUES "+
				"(:id, :student_id, :subject_id, :term_id, :class_score, :exam_score, :total, :grade, :entered_by, :created_at, :updated_at)"+
				" ON CONFLICT (student_id, subject_id, term_id) DO UPDATE SET"+
				" class_score = EXCLUDED.class_score, exam_score = EXCLUDED.exam_score,"+
				" total = EXCLUDED.total, grade = EXCLUDED.grade,"+
				" entered_by = EXCLUDED.entered_by, updated_at = EXCLUDED.updated_at"+
				" RETURNING "+scoreColumns)
		if err != nil {
			return errors.Wrap(err, "preparing upsert")
		}
		defer func() { _ = stmt.Close() }()

		for _, s := range scores {
			s.ID = uuid.New().String()
			var r scoreRow
			if err = stmt.GetContext(ctx, &r, toScoreRow(s)); err != nil {
				return errors.Wrap(err, "upserting score")
			}
			saved = append(saved, r.score())
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return saved, nil
}

func (repo *scoreRepository) Query(ctx context.Context, filter score.Filter) ([]score.Score, error) {
	var wb whereBuilder
	for _, f := range []struct{ col, val string }{
		{"s.term_id", filter.TermID},
		{"s.subject_id", filter.SubjectID},
		{"s.student_id", filter.StudentID},
	} {
		if f.val == "" {
			continue
		}
		if !isUUID(f.val) {
			return []score.Score{}, nil
		}
		wb.add(f.col+" = ?", f.val)
	}

	from := " FROM scores s"
	if filter.ClassLevel != "" {
		from += " JOIN students st ON st.id = s.student_id"
		wb.add("st.class_level = ?", filter.ClassLevel)
	}

	var rows []scoreRow
	q := "SELECT " + prefixed("s.", scoreColumns) + from + wb.String() + " ORDER BY s.created_at, s.id"
	if err := repo.db.SelectContext(ctx, &rows, q, wb.args...); err != nil {
		return nil, errors.Wrap(err, "querying scores")
	}
	scores := make([]score.Score, 0, len(rows))
	for _, r := range rows {
		scores = append(scores, r.score())
	}
	return scores, nil
}

func (repo *scoreRepository) Delete(ctx context.Context, ids ...string) error {
	ids = validUUIDs(ids)
	if len(ids) == 0 {
		return nil
	}
	_, err := repo.db.ExecContext(ctx, "DELETE FROM scores WHERE id = ANY($1::uuid[])", pq.Array(ids))
	return errors.Wrap(err, "deleting scores")
}
