package academic

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/gradebook/core"
	"github.com/trezcool/gradebook/core/grading"
)

type Term struct {
	ID           string    `json:"id"`
	Label        string    `json:"label"`         // "Term 1"
	AcademicYear string    `json:"academic_year"` // "2024/2025"
	StartsOn     null.Time `json:"starts_on"`
	EndsOn       null.Time `json:"ends_on"`
	IsCurrent    bool      `json:"is_current"`
	CreatedAt    time.Time `json:"created_at"`
}

// FullLabel is the label printed on broadsheets.
func (t Term) FullLabel() string {
	if t.AcademicYear == "" {
		return t.Label
	}
	return t.Label + " " + t.AcademicYear
}

type NewTerm struct {
	Label        string    `json:"label" validate:"required,notblank,max=50"`
	AcademicYear string    `json:"academic_year" validate:"required,academicyear"`
	StartsOn     null.Time `json:"starts_on"`
	EndsOn       null.Time `json:"ends_on"`
	IsCurrent    bool      `json:"is_current"`
}

func (nt *NewTerm) Validate(validate *validator.Validate) error {
	nt.Label = core.CleanString(nt.Label)
	nt.AcademicYear = core.CleanString(nt.AcademicYear)
	return validate.Struct(nt)
}

type Subject struct {
	ID          string    `json:"id"`
	Code        string    `json:"code"`
	Name        string    `json:"name"`
	ClassLevels []string  `json:"class_levels"` // empty: offered at every level
	CreatedAt   time.Time `json:"created_at"`
}

func (s Subject) OfferedAt(level string) bool {
	if len(s.ClassLevels) == 0 {
		return true
	}
	for _, lvl := range s.ClassLevels {
		if lvl == level {
			return true
		}
	}
	return false
}

func (s Subject) Column() grading.Subject {
	return grading.Subject{ID: s.ID, Code: s.Code, Name: s.Name}
}

type NewSubject struct {
	Code        string   `json:"code" validate:"required,max=20,alphanum_"`
	Name        string   `json:"name" validate:"required,notblank,max=100"`
	ClassLevels []string `json:"class_levels" validate:"omitempty,dive,classlevel"`
}

func (ns *NewSubject) Validate(validate *validator.Validate) error {
	ns.Code = strings.ToUpper(core.CleanString(ns.Code))
	ns.Name = core.CleanString(ns.Name)
	for i, lvl := range ns.ClassLevels {
		ns.ClassLevels[i] = core.CleanString(lvl)
	}
	return validate.Struct(ns)
}

type Student struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	ClassLevel string    `json:"class_level"`
	CreatedAt  time.Time `json:"created_at"` // UTC
	UpdatedAt  time.Time `json:"updated_at"` // UTC
}

type NewStudent struct {
	Name       string `json:"name" validate:"required,notblank,max=255"`
	ClassLevel string `json:"class_level" validate:"required,classlevel"`
}

func (ns *NewStudent) Validate(validate *validator.Validate) error {
	ns.Name = core.CleanString(ns.Name)
	ns.ClassLevel = core.CleanString(ns.ClassLevel)
	return validate.Struct(ns)
}

type UpdateStudent struct {
	Name       string `json:"name" validate:"omitempty,max=255"`
	ClassLevel string `json:"class_level" validate:"omitempty,classlevel"`
}

func (us *UpdateStudent) Validate(orig Student, validate *validator.Validate) error {
	if name := core.CleanString(us.Name); name != "" {
		us.Name = name
	} else {
		us.Name = orig.Name
	}
	if lvl := core.CleanString(us.ClassLevel); lvl != "" {
		us.ClassLevel = lvl
	} else {
		us.ClassLevel = orig.ClassLevel
	}
	return validate.Struct(us)
}

type StudentFilter struct {
	ClassLevel string `query:"class_level"`
	Search     string `query:"search"`
}

func (sf *StudentFilter) Clean() {
	sf.ClassLevel = core.CleanString(sf.ClassLevel)
	sf.Search = core.CleanString(sf.Search)
}

// Assignment allows a teacher to enter scores of a subject for one class level.
type Assignment struct {
	ID         string    `json:"id"`
	TeacherID  string    `json:"teacher_id"`
	SubjectID  string    `json:"subject_id"`
	ClassLevel string    `json:"class_level"`
	CreatedAt  time.Time `json:"created_at"`
}

type NewAssignment struct {
	TeacherID  string `json:"teacher_id" validate:"required,uuid"`
	SubjectID  string `json:"subject_id" validate:"required,uuid"`
	ClassLevel string `json:"class_level" validate:"required,classlevel"`
}

func (na *NewAssignment) Validate(validate *validator.Validate) error {
	na.TeacherID = core.CleanString(na.TeacherID, true /* lower */)
	na.SubjectID = core.CleanString(na.SubjectID, true /* lower */)
	na.ClassLevel = core.CleanString(na.ClassLevel)
	return validate.Struct(na)
}

type AssignmentFilter struct {
	TeacherID  string `query:"teacher_id"`
	SubjectID  string `query:"subject_id"`
	ClassLevel string `query:"class_level"`
}
