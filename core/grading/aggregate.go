package grading

import (
	"math"

	"github.com/pkg/errors"

	"github.com/trezcool/gradebook/core"
)

const (
	errNegativeComponent = "score cannot be negative"
	errTotalOverflow     = "total is out of range"
)

// Aggregation holds the values derived from a pair of score components.
type Aggregation struct {
	Total int    `json:"total"`
	Grade string `json:"grade"`
}

// Aggregate sums the class and exam components and grades the total.
// It does not enforce caps, which are a policy of the caller, but the total must fit
// a 32-bit integer.
func Aggregate(class, exam int, scale *Scale) (Aggregation, error) {
	if scale == nil {
		return Aggregation{}, errors.New("grading.Aggregate: nil scale")
	}
	if err := validateComponents(class, exam); err != nil {
		return Aggregation{}, err
	}
	total := class + exam
	return Aggregation{Total: total, Grade: scale.Classify(total).Grade}, nil
}

func validateComponents(class, exam int) error {
	var flds []core.FieldError
	if class < 0 {
		flds = append(flds, core.FieldError{Field: "class_score", Error: errNegativeComponent})
	}
	if exam < 0 {
		flds = append(flds, core.FieldError{Field: "exam_score", Error: errNegativeComponent})
	}
	// totals are stored as 32-bit integers
	if flds == nil && class > math.MaxInt32-exam {
		flds = append(flds, core.FieldError{Field: "exam_score", Error: errTotalOverflow})
	}
	if flds != nil {
		return core.NewValidationError(nil, flds...)
	}
	return nil
}

// ScoreRecord is one (student, subject, term) score.
// Total and Grade are re-derived on every component change.
type ScoreRecord struct {
	StudentID string
	SubjectID string
	TermID    string

	scale *Scale
	class int
	exam  int
	agg   Aggregation
}

func NewScoreRecord(studentID, subjectID, termID string, class, exam int, scale *Scale) (*ScoreRecord, error) {
	agg, err := Aggregate(class, exam, scale)
	if err != nil {
		return nil, err
	}
	return &ScoreRecord{
		StudentID: studentID,
		SubjectID: subjectID,
		TermID:    termID,
		scale:     scale,
		class:     class,
		exam:      exam,
		agg:       agg,
	}, nil
}

func (r *ScoreRecord) ClassComponent() int { return r.class }
func (r *ScoreRecord) ExamComponent() int  { return r.exam }
func (r *ScoreRecord) Total() int          { return r.agg.Total }
func (r *ScoreRecord) Grade() string       { return r.agg.Grade }

func (r *ScoreRecord) SetClassComponent(class int) error {
	return r.SetComponents(class, r.exam)
}

func (r *ScoreRecord) SetExamComponent(exam int) error {
	return r.SetComponents(r.class, exam)
}

// SetComponents replaces both components. The record is left untouched on error.
func (r *ScoreRecord) SetComponents(class, exam int) error {
	agg, err := Aggregate(class, exam, r.scale)
	if err != nil {
		return err
	}
	r.class, r.exam, r.agg = class, exam, agg
	return nil
}
