package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/gradebook/core/academic"
)

const (
	termColumns       = "id, label, academic_year, starts_on, ends_on, is_current, created_at"
	subjectColumns    = "id, code, name, class_levels, created_at"
	studentColumns    = "id, name, class_level, created_at, updated_at"
	assignmentColumns = "id, teacher_id, subject_id, class_level, created_at"
)

type (
	termRow struct {
		ID           string    `db:"id"`
		Label        string    `db:"label"`
		AcademicYear string    `db:"academic_year"`
		StartsOn     null.Time `db:"starts_on"`
		EndsOn       null.Time `db:"ends_on"`
		IsCurrent    bool      `db:"is_current"`
		CreatedAt    time.Time `db:"created_at"`
	}

	subjectRow struct {
		ID          string         `db:"id"`
		Code        string         `db:"code"`
		Name        string         `db:"name"`
		ClassLevels pq.StringArray `db:"class_levels"`
		CreatedAt   time.Time      `db:"created_at"`
	}

	studentRow struct {
		ID         string    `db:"id"`
		Name       string    `db:"name"`
		ClassLevel string    `db:"class_level"`
		CreatedAt  time.Time `db:"created_at"`
		UpdatedAt  time.Time `db:"updated_at"`
	}

	assignmentRow struct {
		ID         string    `db:"id"`
		TeacherID  string    `db:"teacher_id"`
		SubjectID  string    `db:"subject_id"`
		ClassLevel string    `db:"class_level"`
		CreatedAt  time.Time `db:"created_at"`
	}
)

func (r termRow) term() academic.Term {
	return academic.Term{
		ID:           r.ID,
		Label:        r.Label,
		AcademicYear: r.AcademicYear,
		StartsOn:     r.StartsOn,
		EndsOn:       r.EndsOn,
		IsCurrent:    r.IsCurrent,
		CreatedAt:    r.CreatedAt.UTC(),
	}
}

func (r subjectRow) subject() academic.Subject {
	levels := []string(r.ClassLevels)
	if levels == nil {
		levels = []string{}
	}
	return academic.Subject{ID: r.ID, Code: r.Code, Name: r.Name, ClassLevels: levels, CreatedAt: r.CreatedAt.UTC()}
}

func (r studentRow) student() academic.Student {
	return academic.Student{
		ID:         r.ID,
		Name:       r.Name,
		ClassLevel: r.ClassLevel,
		CreatedAt:  r.CreatedAt.UTC(),
		UpdatedAt:  r.UpdatedAt.UTC(),
	}
}

func (r assignmentRow) assignment() academic.Assignment {
	return academic.Assignment{
		ID:         r.ID,
		TeacherID:  r.TeacherID,
		SubjectID:  r.SubjectID,
		ClassLevel: r.ClassLevel,
		CreatedAt:  r.CreatedAt.UTC(),
	}
}

type academicRepository struct {
	db *sqlx.DB
}

var _ academic.Repository = (*academicRepository)(nil) // interface compliance check

func NewAcademicRepository(db *sqlx.DB) academic.Repository {
	return &academicRepository{db: db}
}

func trapNoRows(err error, notFound error, msg string) error {
	if err == sql.ErrNoRows {
		return notFound
	}
	return errors.Wrap(err, msg)
}

// deleteByID deletes the row with id in table, or returns notFound.
func (repo *academicRepository) deleteByID(ctx context.Context, table, id string, notFound error) error {
	if !isUUID(id) {
		return notFound
	}
	res, err := repo.db.ExecContext(ctx, "DELETE FROM "+table+" WHERE id = $1", id)
	if err != nil {
		return errors.Wrapf(err, "deleting from %s", table)
	}
	if n, err := rowsAffected(res); err != nil {
		return err
	} else if n == 0 {
		return notFound
	}
	return nil
}

// Terms

func (repo *academicRepository) CreateTerm(ctx context.Context, term academic.Term) (academic.Term, error) {
	var r termRow
	err := repo.db.GetContext(ctx, &r,
		"INSERT INTO terms ("+termColumns+") VALUES ($1, $2, $3, $4, $5, false, $6) RETURNING "+termColumns,
		uuid.New().String(), term.Label, term.AcademicYear, term.StartsOn, term.EndsOn, term.CreatedAt.UTC())
	if err != nil {
		if constraint, ok := uniqueConstraint(err); ok && constraint == "terms_label_year_key" {
			return academic.Term{}, academic.ErrTermExists
		}
		return academic.Term{}, errors.Wrap(err, "inserting term")
	}
	return r.term(), nil
}

func (repo *academicRepository) QueryTerms(ctx context.Context) ([]academic.Term, error) {
	var rows []termRow
	if err := repo.db.SelectContext(ctx, &rows,
		"SELECT "+termColumns+" FROM terms ORDER BY academic_year DESC, label ASC"); err != nil {
		return nil, errors.Wrap(err, "querying terms")
	}
	terms := make([]academic.Term, 0, len(rows))
	for _, r := range rows {
		terms = append(terms, r.term())
	}
	return terms, nil
}

func (repo *academicRepository) GetTerm(ctx context.Context, id string) (academic.Term, error) {
	if !isUUID(id) {
		return academic.Term{}, academic.ErrTermNotFound
	}
	var r termRow
	if err := repo.db.GetContext(ctx, &r, "SELECT "+termColumns+" FROM terms WHERE id = $1", id); err != nil {
		return academic.Term{}, trapNoRows(err, academic.ErrTermNotFound, "finding term")
	}
	return r.term(), nil
}

func (repo *academicRepository) GetCurrentTerm(ctx context.Context) (academic.Term, error) {
	var r termRow
	if err := repo.db.GetContext(ctx, &r, "SELECT "+termColumns+" FROM terms WHERE is_current LIMIT 1"); err != nil {
		return academic.Term{}, trapNoRows(err, academic.ErrNoCurrentTerm, "finding current term")
	}
	return r.term(), nil
}

func (repo *academicRepository) SetCurrentTerm(ctx context.Context, id string) (academic.Term, error) {
	if !isUUID(id) {
		return academic.Term{}, academic.ErrTermNotFound
	}

	var r termRow
	err := inTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, "UPDATE terms SET is_current = false WHERE is_current AND id <> $1", id); err != nil {
			return errors.Wrap(err, "clearing current term")
		}
		err := tx.GetContext(ctx, &r, "UPDATE terms SET is_current = true WHERE id = $1 RETURNING "+termColumns, id)
		return trapNoRows(err, academic.ErrTermNotFound, "setting current term")
	})
	if err != nil {
		return academic.Term{}, err
	}
	return r.term(), nil
}

func (repo *academicRepository) DeleteTerm(ctx context.Context, id string) error {
	return repo.deleteByID(ctx, "terms", id, academic.ErrTermNotFound)
}

// Subjects

func (repo *academicRepository) CreateSubject(ctx context.Context, subj academic.Subject) (academic.Subject, error) {
	var r subjectRow
	err := repo.db.GetContext(ctx, &r,
		"INSERT INTO subjects ("+subjectColumns+") VALUES ($1, $2, $3, $4, $5) RETURNING "+subjectColumns,
		uuid.New().String(), subj.Code, subj.Name, pq.StringArray(subj.ClassLevels), subj.CreatedAt.UTC())
	if err != nil {
		if _, ok := uniqueConstraint(err); ok {
			return academic.Subject{}, academic.ErrSubjectCodeExists
		}
		return academic.Subject{}, errors.Wrap(err, "inserting subject")
	}
	return r.subject(), nil
}

func (repo *academicRepository) QuerySubjects(ctx context.Context, classLevel string) ([]academic.Subject, error) {
	var rows []subjectRow
	err := repo.db.SelectContext(ctx, &rows,
		"SELECT "+subjectColumns+" FROM subjects"+
			" WHERE $1 = '' OR cardinality(class_levels) = 0 OR $1 = ANY(class_levels)"+
			" ORDER BY code",
		classLevel)
	if err != nil {
		return nil, errors.Wrap(err, "querying subjects")
	}
	subjects := make([]academic.Subject, 0, len(rows))
	for _, r := range rows {
		subjects = append(subjects, r.subject())
	}
	return subjects, nil
}

func (repo *academicRepository) GetSubject(ctx context.Context, id string) (academic.Subject, error) {
	if !isUUID(id) {
		return academic.Subject{}, academic.ErrSubjectNotFound
	}
	var r subjectRow
	if err := repo.db.GetContext(ctx, &r, "SELECT "+subjectColumns+" FROM subjects WHERE id = $1", id); err != nil {
		return academic.Subject{}, trapNoRows(err, academic.ErrSubjectNotFound, "finding subject")
	}
	return r.subject(), nil
}

func (repo *academicRepository) DeleteSubject(ctx context.Context, id string) error {
	return repo.deleteByID(ctx, "subjects", id, academic.ErrSubjectNotFound)
}

// Students

func (repo *academicRepository) CreateStudent(ctx context.Context, std academic.Student) (academic.Student, error) {
	var r studentRow
	err := repo.db.GetContext(ctx, &r,
		"INSERT INTO students ("+studentColumns+") VALUES ($1, $2, $3, $4, $5) RETURNING "+studentColumns,
		uuid.New().String(), std.Name, std.ClassLevel, std.CreatedAt.UTC(), std.UpdatedAt.UTC())
	if err != nil {
		return academic.Student{}, errors.Wrap(err, "inserting student")
	}
	return r.student(), nil
}

func (repo *academicRepository) QueryStudents(ctx context.Context, filter academic.StudentFilter) ([]academic.Student, error) {
	var wb whereBuilder
	if filter.ClassLevel != "" {
		wb.add("class_level = ?", filter.ClassLevel)
	}
	if filter.Search != "" {
		wb.add("name ILIKE ?", "%"+filter.Search+"%")
	}

	var rows []studentRow
	if err := repo.db.SelectContext(ctx, &rows,
		"SELECT "+studentColumns+" FROM students"+wb.String()+" ORDER BY created_at, id", wb.args...); err != nil {
		return nil, errors.Wrap(err, "querying students")
	}
	students := make([]academic.Student, 0, len(rows))
	for _, r := range rows {
		students = append(students, r.student())
	}
	return students, nil
}

func (repo *academicRepository) GetStudent(ctx context.Context, id string) (academic.Student, error) {
	if !isUUID(id) {
		return academic.Student{}, academic.ErrStudentNotFound
	}
	var r studentRow
	if err := repo.db.GetContext(ctx, &r, "SELECT "+studentColumns+" FROM students WHERE id = $1", id); err != nil {
		return academic.Student{}, trapNoRows(err, academic.ErrStudentNotFound, "finding student")
	}
	return r.student(), nil
}

func (repo *academicRepository) UpdateStudent(ctx context.Context, std academic.Student) (academic.Student, error) {
	if !isUUID(std.ID) {
		return academic.Student{}, academic.ErrStudentNotFound
	}
	var r studentRow
	err := repo.db.GetContext(ctx, &r,
		"UPDATE students SET name = $1, class_level = $2, updated_at = $3 WHERE id = $4 RETURNING "+studentColumns,
		std.Name, std.ClassLevel, std.UpdatedAt.UTC(), std.ID)
	if err != nil {
		return academic.Student{}, trapNoRows(err, academic.ErrStudentNotFound, "updating student")
	}
	return r.student(), nil
}

func (repo *academicRepository) DeleteStudent(ctx context.Context, id string) error {
	return repo.deleteByID(ctx, "students", id, academic.ErrStudentNotFound)
}

// Assignments

func (repo *academicRepository) CreateAssignment(ctx context.Context, asg academic.Assignment) (academic.Assignment, error) {
	var r assignmentRow
	err := repo.db.GetContext(ctx, &r,
		"INSERT INTO subject_assignments ("+assignmentColumns+") VALUES ($1, $2, $3, $4, $5) RETURNING "+assignmentColumns,
		uuid.New().String(), asg.TeacherID, asg.SubjectID, asg.ClassLevel, asg.CreatedAt.UTC())
	if err != nil {
		if _, ok := uniqueConstraint(err); ok {
			return academic.Assignment{}, academic.ErrAssignmentExists
		}
		return academic.Assignment{}, errors.Wrap(err, "inserting assignment")
	}
	return r.assignment(), nil
}

func (repo *academicRepository) QueryAssignments(ctx context.Context, filter academic.AssignmentFilter) ([]academic.Assignment, error) {
	var wb whereBuilder
	if filter.TeacherID != "" {
		if !isUUID(filter.TeacherID) {
			return []academic.Assignment{}, nil
		}
		wb.add("teacher_id = ?", filter.TeacherID)
	}
	if filter.SubjectID != "" {
		if !isUUID(filter.SubjectID) {
			return []academic.Assignment{}, nil
		}
		wb.add("subject_id = ?", filter.SubjectID)
	}
	if filter.ClassLevel != "" {
		wb.add("class_level = ?", filter.ClassLevel)
	}

	var rows []assignmentRow
	if err := repo.db.SelectContext(ctx, &rows,
		"SELECT "+assignmentColumns+" FROM subject_assignments"+wb.String()+" ORDER BY created_at, id", wb.args...); err != nil {
		return nil, errors.Wrap(err, "querying assignments")
	}
	asgs := make([]academic.Assignment, 0, len(rows))
	for _, r := range rows {
		asgs = append(asgs, r.assignment())
	}
	return asgs, nil
}

func (repo *academicRepository) DeleteAssignment(ctx context.Context, id string) error {
	return repo.deleteByID(ctx, "subject_assignments", id, academic.ErrAssignmentNotFound)
}
