package academic

import (
	"context"
	"time"

	"github.com/kat-co/vala"
	"github.com/pkg/errors"

	"github.com/trezcool/gradebook/core"
	"github.com/trezcool/gradebook/core/grading"
	"github.com/trezcool/gradebook/core/user"
)

var (
	// errors
	ErrTermNotFound       = errors.New("term not found")
	ErrNoCurrentTerm      = errors.New("no current term")
	ErrTermExists         = errors.New("this term already exists for the academic year")
	ErrSubjectNotFound    = errors.New("subject not found")
	ErrSubjectCodeExists  = errors.New("a subject with this code already exists")
	ErrStudentNotFound    = errors.New("student not found")
	ErrAssignmentNotFound = errors.New("assignment not found")
	ErrAssignmentExists   = errors.New("this subject is already assigned to the teacher for this class level")
	ErrNotATeacher        = errors.New("user is not an active teacher")
	ErrSubjectNotOffered  = errors.New("subject is not offered at this class level")
)

type (
	Repository interface {
		CreateTerm(ctx context.Context, term Term) (Term, error)
		// QueryTerms returns the terms, latest academic year first.
		QueryTerms(ctx context.Context) ([]Term, error)
		GetTerm(ctx context.Context, id string) (Term, error)
		GetCurrentTerm(ctx context.Context) (Term, error)
		// SetCurrentTerm marks the term as current and un-marks every other term.
		SetCurrentTerm(ctx context.Context, id string) (Term, error)
		DeleteTerm(ctx context.Context, id string) error

		CreateSubject(ctx context.Context, subj Subject) (Subject, error)
		// QuerySubjects returns the subjects offered at classLevel (every subject if empty), ordered by code.
		QuerySubjects(ctx context.Context, classLevel string) ([]Subject, error)
		GetSubject(ctx context.Context, id string) (Subject, error)
		DeleteSubject(ctx context.Context, id string) error

		CreateStudent(ctx context.Context, std Student) (Student, error)
		// QueryStudents returns students in roster order: creation time, then ID.
		QueryStudents(ctx context.Context, filter StudentFilter) ([]Student, error)
		GetStudent(ctx context.Context, id string) (Student, error)
		UpdateStudent(ctx context.Context, std Student) (Student, error)
		DeleteStudent(ctx context.Context, id string) error

		CreateAssignment(ctx context.Context, asg Assignment) (Assignment, error)
		QueryAssignments(ctx context.Context, filter AssignmentFilter) ([]Assignment, error)
		DeleteAssignment(ctx context.Context, id string) error
	}

	Service interface {
		CreateTerm(ctx context.Context, nt NewTerm) (Term, error)
		QueryTerms(ctx context.Context) ([]Term, error)
		GetTerm(ctx context.Context, id string) (Term, error)
		CurrentTerm(ctx context.Context) (Term, error)
		SetCurrentTerm(ctx context.Context, id string) (Term, error)
		DeleteTerm(ctx context.Context, id string) error

		CreateSubject(ctx context.Context, ns NewSubject) (Subject, error)
		QuerySubjects(ctx context.Context, classLevel string) ([]Subject, error)
		GetSubject(ctx context.Context, id string) (Subject, error)
		DeleteSubject(ctx context.Context, id string) error

		CreateStudent(ctx context.Context, ns NewStudent) (Student, error)
		QueryStudents(ctx context.Context, filter StudentFilter) ([]Student, error)
		GetStudent(ctx context.Context, id string) (Student, error)
		UpdateStudent(ctx context.Context, id string, us UpdateStudent) (Student, error)
		DeleteStudent(ctx context.Context, id string) error

		Assign(ctx context.Context, na NewAssignment) (Assignment, error)
		QueryAssignments(ctx context.Context, filter AssignmentFilter) ([]Assignment, error)
		DeleteAssignment(ctx context.Context, id string) error
		CanTeach(ctx context.Context, teacherID, subjectID, classLevel string) (bool, error)

		// Roster returns the students of classLevel as ranking entries, in roster order.
		Roster(ctx context.Context, classLevel string) ([]grading.RosterEntry, error)
	}

	service struct {
		repo   Repository
		usrSvc user.Service
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository, usrSvc user.Service) Service {
	vala.BeginValidation().Validate(
		vala.IsNotNil(repo, "repo"),
		vala.IsNotNil(usrSvc, "usrSvc"),
	).CheckAndPanic()

	return &service{repo: repo, usrSvc: usrSvc}
}

// Terms

func (svc *service) CreateTerm(ctx context.Context, nt NewTerm) (Term, error) {
	term := Term{
		Label:        nt.Label,
		AcademicYear: nt.AcademicYear,
		StartsOn:     nt.StartsOn,
		EndsOn:       nt.EndsOn,
		CreatedAt:    time.Now().UTC(),
	}
	term, err := svc.repo.CreateTerm(ctx, term)
	if err != nil {
		if errors.Cause(err) == ErrTermExists {
			return Term{}, core.NewValidationError(err, core.FieldError{Field: "label", Error: err.Error()})
		}
		return Term{}, errors.Wrap(err, "creating term")
	}
	if nt.IsCurrent {
		return svc.repo.SetCurrentTerm(ctx, term.ID)
	}
	return term, nil
}

func (svc *service) QueryTerms(ctx context.Context) ([]Term, error) {
	return svc.repo.QueryTerms(ctx)
}

func (svc *service) GetTerm(ctx context.Context, id string) (Term, error) {
	return svc.repo.GetTerm(ctx, id)
}

func (svc *service) CurrentTerm(ctx context.Context) (Term, error) {
	return svc.repo.GetCurrentTerm(ctx)
}

func (svc *service) SetCurrentTerm(ctx context.Context, id string) (Term, error) {
	return svc.repo.SetCurrentTerm(ctx, id)
}

func (svc *service) DeleteTerm(ctx context.Context, id string) error {
	return svc.repo.DeleteTerm(ctx, id)
}

// Subjects

func (svc *service) CreateSubject(ctx context.Context, ns NewSubject) (Subject, error) {
	subj := Subject{
		Code:        ns.Code,
		Name:        ns.Name,
		ClassLevels: ns.ClassLevels,
		CreatedAt:   time.Now().UTC(),
	}
	if subj.ClassLevels == nil {
		subj.ClassLevels = []string{}
	}
	subj, err := svc.repo.CreateSubject(ctx, subj)
	if err != nil {
		if errors.Cause(err) == ErrSubjectCodeExists {
			return Subject{}, core.NewValidationError(err, core.FieldError{Field: "code", Error: err.Error()})
		}
		return Subject{}, errors.Wrap(err, "creating subject")
	}
	return subj, nil
}

func (svc *service) QuerySubjects(ctx context.Context, classLevel string) ([]Subject, error) {
	return svc.repo.QuerySubjects(ctx, classLevel)
}

func (svc *service) GetSubject(ctx context.Context, id string) (Subject, error) {
	return svc.repo.GetSubject(ctx, id)
}

func (svc *service) DeleteSubject(ctx context.Context, id string) error {
	return svc.repo.DeleteSubject(ctx, id)
}

// Students

func (svc *service) CreateStudent(ctx context.Context, ns NewStudent) (Student, error) {
	now := time.Now().UTC()
	std := Student{
		Name:       ns.Name,
		ClassLevel: ns.ClassLevel,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	return svc.repo.CreateStudent(ctx, std)
}

func (svc *service) QueryStudents(ctx context.Context, filter StudentFilter) ([]Student, error) {
	return svc.repo.QueryStudents(ctx, filter)
}

func (svc *service) GetStudent(ctx context.Context, id string) (Student, error) {
	return svc.repo.GetStudent(ctx, id)
}

func (svc *service) UpdateStudent(ctx context.Context, id string, us UpdateStudent) (Student, error) {
	std, err := svc.repo.GetStudent(ctx, id)
	if err != nil {
		return Student{}, err
	}
	std.Name = us.Name
	std.ClassLevel = us.ClassLevel
	std.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateStudent(ctx, std)
}

func (svc *service) DeleteStudent(ctx context.Context, id string) error {
	return svc.repo.DeleteStudent(ctx, id)
}

// Assignments

func (svc *service) Assign(ctx context.Context, na NewAssignment) (Assignment, error) {
	teacher, err := svc.usrSvc.GetByID(ctx, na.TeacherID)
	if err != nil {
		if errors.Cause(err) == user.ErrNotFound {
			return Assignment{}, core.NewValidationError(ErrNotATeacher, core.FieldError{Field: "teacher_id", Error: ErrNotATeacher.Error()})
		}
		return Assignment{}, errors.Wrap(err, "finding teacher")
	}
	if !(teacher.IsTeacher() && teacher.IsActive) {
		return Assignment{}, core.NewValidationError(ErrNotATeacher, core.FieldError{Field: "teacher_id", Error: ErrNotATeacher.Error()})
	}

	subj, err := svc.repo.GetSubject(ctx, na.SubjectID)
	if err != nil {
		if errors.Cause(err) == ErrSubjectNotFound {
			return Assignment{}, core.NewValidationError(err, core.FieldError{Field: "subject_id", Error: err.Error()})
		}
		return Assignment{}, errors.Wrap(err, "finding subject")
	}
	if !subj.OfferedAt(na.ClassLevel) {
		return Assignment{}, core.NewValidationError(ErrSubjectNotOffered, core.FieldError{Field: "class_level", Error: ErrSubjectNotOffered.Error()})
	}

	asg := Assignment{
		TeacherID:  teacher.ID,
		SubjectID:  subj.ID,
		ClassLevel: na.ClassLevel,
		CreatedAt:  time.Now().UTC(),
	}
	asg, err = svc.repo.CreateAssignment(ctx, asg)
	if err != nil {
		if errors.Cause(err) == ErrAssignmentExists {
			return Assignment{}, core.NewValidationError(err)
		}
		return Assignment{}, errors.Wrap(err, "creating assignment")
	}
	return asg, nil
}

func (svc *service) QueryAssignments(ctx context.Context, filter AssignmentFilter) ([]Assignment, error) {
	return svc.repo.QueryAssignments(ctx, filter)
}

func (svc *service) DeleteAssignment(ctx context.Context, id string) error {
	return svc.repo.DeleteAssignment(ctx, id)
}

func (svc *service) CanTeach(ctx context.Context, teacherID, subjectID, classLevel string) (bool, error) {
	asgs, err := svc.repo.QueryAssignments(ctx, AssignmentFilter{
		TeacherID:  teacherID,
		SubjectID:  subjectID,
		ClassLevel: classLevel,
	})
	if err != nil {
		return false, errors.Wrap(err, "querying assignments")
	}
	return len(asgs) > 0, nil
}

// Roster

func (svc *service) Roster(ctx context.Context, classLevel string) ([]grading.RosterEntry, error) {
	stds, err := svc.repo.QueryStudents(ctx, StudentFilter{ClassLevel: classLevel})
	if err != nil {
		return nil, errors.Wrap(err, "querying students")
	}
	roster := make([]grading.RosterEntry, 0, len(stds))
	for _, std := range stds {
		roster = append(roster, grading.RosterEntry{
			StudentID:  std.ID,
			Name:       std.Name,
			ClassLevel: std.ClassLevel,
		})
	}
	return roster, nil
}
