package inmem

import (
	"context"
	"sort"
	"strings"

	"github.com/trezcool/gradebook/core/academic"
)

type academicRepository struct {
	db *DB
}

var _ academic.Repository = (*academicRepository)(nil) // interface compliance check

func NewAcademicRepository(db *DB) academic.Repository {
	return &academicRepository{db: db}
}

func copySubject(subj academic.Subject) academic.Subject {
	levels := make([]string, len(subj.ClassLevels))
	copy(levels, subj.ClassLevels)
	subj.ClassLevels = levels
	return subj
}

// Terms

func (repo *academicRepository) CreateTerm(_ context.Context, term academic.Term) (academic.Term, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	for _, t := range repo.db.terms {
		if t.Label == term.Label && t.AcademicYear == term.AcademicYear {
			return academic.Term{}, academic.ErrTermExists
		}
	}
	term.ID = repo.db.newID()
	term.IsCurrent = false
	repo.db.terms[term.ID] = &term
	return term, nil
}

func (repo *academicRepository) QueryTerms(_ context.Context) ([]academic.Term, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	terms := make([]academic.Term, 0, len(repo.db.terms))
	for _, t := range repo.db.terms {
		terms = append(terms, *t)
	}
	sort.Slice(terms, func(i, j int) bool {
		if terms[i].AcademicYear != terms[j].AcademicYear {
			return terms[i].AcademicYear > terms[j].AcademicYear
		}
		return terms[i].Label < terms[j].Label
	})
	return terms, nil
}

func (repo *academicRepository) GetTerm(_ context.Context, id string) (academic.Term, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if t, ok := repo.db.terms[id]; ok {
		return *t, nil
	}
	return academic.Term{}, academic.ErrTermNotFound
}

func (repo *academicRepository) GetCurrentTerm(_ context.Context) (academic.Term, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, t := range repo.db.terms {
		if t.IsCurrent {
			return *t, nil
		}
	}
	return academic.Term{}, academic.ErrNoCurrentTerm
}

func (repo *academicRepository) SetCurrentTerm(_ context.Context, id string) (academic.Term, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	term, ok := repo.db.terms[id]
	if !ok {
		return academic.Term{}, academic.ErrTermNotFound
	}
	for _, t := range repo.db.terms {
		t.IsCurrent = false
	}
	term.IsCurrent = true
	return *term, nil
}

func (repo *academicRepository) DeleteTerm(_ context.Context, id string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.terms[id]; !ok {
		return academic.ErrTermNotFound
	}
	delete(repo.db.terms, id)
	for sid, s := range repo.db.scores {
		if s.TermID == id {
			delete(repo.db.scores, sid)
		}
	}
	return nil
}

// Subjects

func (repo *academicRepository) CreateSubject(_ context.Context, subj academic.Subject) (academic.Subject, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	for _, s := range repo.db.subjects {
		if s.Code == subj.Code {
			return academic.Subject{}, academic.ErrSubjectCodeExists
		}
	}
	subj = copySubject(subj)
	subj.ID = repo.db.newID()
	repo.db.subjects[subj.ID] = &subj
	return copySubject(subj), nil
}

func (repo *academicRepository) QuerySubjects(_ context.Context, classLevel string) ([]academic.Subject, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	subjects := make([]academic.Subject, 0, len(repo.db.subjects))
	for _, s := range repo.db.subjects {
		if classLevel == "" || s.OfferedAt(classLevel) {
			subjects = append(subjects, copySubject(*s))
		}
	}
	sort.Slice(subjects, func(i, j int) bool { return subjects[i].Code < subjects[j].Code })
	return subjects, nil
}

func (repo *academicRepository) GetSubject(_ context.Context, id string) (academic.Subject, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if s, ok := repo.db.subjects[id]; ok {
		return copySubject(*s), nil
	}
	return academic.Subject{}, academic.ErrSubjectNotFound
}

func (repo *academicRepository) DeleteSubject(_ context.Context, id string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.subjects[id]; !ok {
		return academic.ErrSubjectNotFound
	}
	delete(repo.db.subjects, id)
	for aid, a := range repo.db.assignments {
		if a.SubjectID == id {
			delete(repo.db.assignments, aid)
		}
	}
	for sid, s := range repo.db.scores {
		if s.SubjectID == id {
			delete(repo.db.scores, sid)
		}
	}
	return nil
}

// Students

func (repo *academicRepository) CreateStudent(_ context.Context, std academic.Student) (academic.Student, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	std.ID = repo.db.newID()
	repo.db.students[std.ID] = &std
	return std, nil
}

func (repo *academicRepository) QueryStudents(_ context.Context, filter academic.StudentFilter) ([]academic.Student, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	search := strings.ToLower(filter.Search)
	students := make([]academic.Student, 0, len(repo.db.students))
	for _, s := range repo.db.students {
		if filter.ClassLevel != "" && s.ClassLevel != filter.ClassLevel {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(s.Name), search) {
			continue
		}
		students = append(students, *s)
	}
	// roster order
	sort.Slice(students, func(i, j int) bool { return repo.db.before(students[i].ID, students[j].ID) })
	return students, nil
}

func (repo *academicRepository) GetStudent(_ context.Context, id string) (academic.Student, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if s, ok := repo.db.students[id]; ok {
		return *s, nil
	}
	return academic.Student{}, academic.ErrStudentNotFound
}

func (repo *academicRepository) UpdateStudent(_ context.Context, std academic.Student) (academic.Student, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	orig, ok := repo.db.students[std.ID]
	if !ok {
		return academic.Student{}, academic.ErrStudentNotFound
	}
	orig.Name = std.Name
	orig.ClassLevel = std.ClassLevel
	orig.UpdatedAt = std.UpdatedAt
	return *orig, nil
}

func (repo *academicRepository) DeleteStudent(_ context.Context, id string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.students[id]; !ok {
		return academic.ErrStudentNotFound
	}
	delete(repo.db.students, id)
	for sid, s := range repo.db.scores {
		if s.StudentID == id {
			delete(repo.db.scores, sid)
		}
	}
	return nil
}

// Assignments

func (repo *academicRepository) CreateAssignment(_ context.Context, asg academic.Assignment) (academic.Assignment, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	for _, a := range repo.db.assignments {
		if a.TeacherID == asg.TeacherID && a.SubjectID == asg.SubjectID && a.ClassLevel == asg.ClassLevel {
			return academic.Assignment{}, academic.ErrAssignmentExists
		}
	}
	asg.ID = repo.db.newID()
	repo.db.assignments[asg.ID] = &asg
	return asg, nil
}

func (repo *academicRepository) QueryAssignments(_ context.Context, filter academic.AssignmentFilter) ([]academic.Assignment, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	asgs := make([]academic.Assignment, 0)
	for _, a := range repo.db.assignments {
		if filter.TeacherID != "" && a.TeacherID != filter.TeacherID {
			continue
		}
		if filter.SubjectID != "" && a.SubjectID != filter.SubjectID {
			continue
		}
		if filter.ClassLevel != "" && a.ClassLevel != filter.ClassLevel {
			continue
		}
		asgs = append(asgs, *a)
	}
	sort.Slice(asgs, func(i, j int) bool { return repo.db.before(asgs[i].ID, asgs[j].ID) })
	return asgs, nil
}

func (repo *academicRepository) DeleteAssignment(_ context.Context, id string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.assignments[id]; !ok {
		return academic.ErrAssignmentNotFound
	}
	delete(repo.db.assignments, id)
	return nil
}
