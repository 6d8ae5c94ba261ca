package score

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/gradebook/core"
	"github.com/trezcool/gradebook/core/grading"
)

// Score is the persisted form of a grading.ScoreRecord.
type Score struct {
	ID         string    `json:"id"`
	StudentID  string    `json:"student_id"`
	SubjectID  string    `json:"subject_id"`
	TermID     string    `json:"term_id"`
	ClassScore int       `json:"class_score"`
	ExamScore  int       `json:"exam_score"`
	Total      int       `json:"total"`
	Grade      string    `json:"grade"`
	EnteredBy  string    `json:"entered_by,omitempty"`
	CreatedAt  time.Time `json:"created_at"` // UTC
	UpdatedAt  time.Time `json:"updated_at"` // UTC
}

func fromRecord(rec *grading.ScoreRecord, enteredBy string, now time.Time) Score {
	return Score{
		StudentID:  rec.StudentID,
		SubjectID:  rec.SubjectID,
		TermID:     rec.TermID,
		ClassScore: rec.ClassComponent(),
		ExamScore:  rec.ExamComponent(),
		Total:      rec.Total(),
		Grade:      rec.Grade(),
		EnteredBy:  enteredBy,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// ScoreEntry is one score submitted by a teacher or an admin.
type ScoreEntry struct {
	StudentID  string `json:"student_id" validate:"required,uuid"`
	SubjectID  string `json:"subject_id" validate:"required,uuid"`
	TermID     string `json:"term_id" validate:"required,uuid"`
	ClassScore int    `json:"class_score" validate:"min=0"`
	ExamScore  int    `json:"exam_score" validate:"min=0"`
}

type ScoreBatch struct {
	Entries []ScoreEntry `json:"entries" validate:"required,min=1,dive"`
}

func (sb *ScoreBatch) Validate(validate *validator.Validate) error {
	for i := range sb.Entries {
		sb.Entries[i].StudentID = core.CleanString(sb.Entries[i].StudentID, true /* lower */)
		sb.Entries[i].SubjectID = core.CleanString(sb.Entries[i].SubjectID, true /* lower */)
		sb.Entries[i].TermID = core.CleanString(sb.Entries[i].TermID, true /* lower */)
	}
	return validate.Struct(sb)
}

type Filter struct {
	TermID     string `query:"term_id"`
	SubjectID  string `query:"subject_id"`
	StudentID  string `query:"student_id"`
	ClassLevel string `query:"class_level"`
}

func (f *Filter) Clean() {
	f.TermID = core.CleanString(f.TermID, true /* lower */)
	f.SubjectID = core.CleanString(f.SubjectID, true /* lower */)
	f.StudentID = core.CleanString(f.StudentID, true /* lower */)
	f.ClassLevel = core.CleanString(f.ClassLevel)
}

// BroadsheetQuery selects a broadsheet. The current term is used when TermID is empty.
type BroadsheetQuery struct {
	TermID     string `query:"term_id" json:"term_id"`
	ClassLevel string `query:"class_level" json:"class_level" validate:"required"`
}

func (bq *BroadsheetQuery) Validate(validate *validator.Validate) error {
	bq.TermID = core.CleanString(bq.TermID, true /* lower */)
	bq.ClassLevel = core.CleanString(bq.ClassLevel)
	return validate.Struct(bq)
}
