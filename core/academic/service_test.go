package academic_test

import (
	"context"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/gradebook/core"
	"github.com/trezcool/gradebook/core/academic"
	"github.com/trezcool/gradebook/core/grading"
	"github.com/trezcool/gradebook/core/user"
	emailsvc "github.com/trezcool/gradebook/services/email"
	"github.com/trezcool/gradebook/storage/database/inmem"
	"github.com/trezcool/gradebook/tests"
)

type fixture struct {
	svc     academic.Service
	repo    academic.Repository
	usrRepo user.Repository
}

func setup(t *testing.T) fixture {
	t.Helper()
	conf := testutil.NewConfig()
	logger := &testutil.LoggerMock{}

	db := inmem.Open()
	usrRepo := inmem.NewUserRepository(db)
	repo := inmem.NewAcademicRepository(db)
	usrSvc := user.NewService(usrRepo, emailsvc.NewConsoleServiceMock(conf, logger), conf, logger)

	return fixture{
		svc:     academic.NewService(repo, usrSvc),
		repo:    repo,
		usrRepo: usrRepo,
	}
}

func fieldErrors(t *testing.T, err error) []core.FieldError {
	t.Helper()
	vErr, ok := errors.Cause(err).(*core.ValidationError)
	require.True(t, ok, "want *core.ValidationError, got %T (%v)", err, err)
	return vErr.Fields
}

func TestService_Terms(t *testing.T) {
	fx := setup(t)
	ctx := context.Background()

	_, err := fx.svc.CurrentTerm(ctx)
	assert.Equal(t, academic.ErrNoCurrentTerm, errors.Cause(err))

	t1, err := fx.svc.CreateTerm(ctx, academic.NewTerm{Label: "Term 1", AcademicYear: "2024/2025", IsCurrent: true})
	require.NoError(t, err)
	assert.True(t, t1.IsCurrent)
	assert.Equal(t, "Term 1 2024/2025", t1.FullLabel())

	t2, err := fx.svc.CreateTerm(ctx, academic.NewTerm{Label: "Term 2", AcademicYear: "2024/2025"})
	require.NoError(t, err)
	assert.False(t, t2.IsCurrent)

	_, err = fx.svc.CreateTerm(ctx, academic.NewTerm{Label: "Term 1", AcademicYear: "2024/2025"})
	assert.Equal(t, []core.FieldError{{Field: "label", Error: academic.ErrTermExists.Error()}}, fieldErrors(t, err))

	cur, err := fx.svc.CurrentTerm(ctx)
	require.NoError(t, err)
	assert.Equal(t, t1.ID, cur.ID)

	// only one current term at a time
	_, err = fx.svc.SetCurrentTerm(ctx, t2.ID)
	require.NoError(t, err)
	terms, err := fx.svc.QueryTerms(ctx)
	require.NoError(t, err)
	require.Len(t, terms, 2)
	for _, term := range terms {
		assert.Equal(t, term.ID == t2.ID, term.IsCurrent, term.Label)
	}

	_, err = fx.svc.SetCurrentTerm(ctx, "lol")
	assert.Equal(t, academic.ErrTermNotFound, errors.Cause(err))

	require.NoError(t, fx.svc.DeleteTerm(ctx, t2.ID))
	_, err = fx.svc.CurrentTerm(ctx)
	assert.Equal(t, academic.ErrNoCurrentTerm, errors.Cause(err))
}

func TestService_Subjects(t *testing.T) {
	fx := setup(t)
	ctx := context.Background()

	eng, err := fx.svc.CreateSubject(ctx, academic.NewSubject{Code: "ENG", Name: "English"})
	require.NoError(t, err)
	assert.Equal(t, []string{}, eng.ClassLevels)

	_, err = fx.svc.CreateSubject(ctx, academic.NewSubject{Code: "FRE", Name: "French", ClassLevels: []string{"JHS 1", "JHS 2"}})
	require.NoError(t, err)

	_, err = fx.svc.CreateSubject(ctx, academic.NewSubject{Code: "ENG", Name: "English Language"})
	assert.Equal(t, []core.FieldError{{Field: "code", Error: academic.ErrSubjectCodeExists.Error()}}, fieldErrors(t, err))

	codes := func(level string) []string {
		subjects, err := fx.svc.QuerySubjects(ctx, level)
		require.NoError(t, err)
		cs := make([]string, 0, len(subjects))
		for _, s := range subjects {
			cs = append(cs, s.Code)
		}
		return cs
	}
	assert.Equal(t, []string{"ENG", "FRE"}, codes(""))
	assert.Equal(t, []string{"ENG", "FRE"}, codes("JHS 1"))
	assert.Equal(t, []string{"ENG"}, codes("Basic 6"))
}

func TestService_StudentsAndRoster(t *testing.T) {
	fx := setup(t)
	ctx := context.Background()

	names := []string{"Yaa Asantewaa", "Kojo Antwi", "Akosua Agyapong"}
	for _, name := range names {
		_, err := fx.svc.CreateStudent(ctx, academic.NewStudent{Name: name, ClassLevel: "Basic 6"})
		require.NoError(t, err)
	}
	other, err := fx.svc.CreateStudent(ctx, academic.NewStudent{Name: "Kwesi Pratt", ClassLevel: "Basic 5"})
	require.NoError(t, err)

	// roster keeps creation order
	roster, err := fx.svc.Roster(ctx, "Basic 6")
	require.NoError(t, err)
	require.Len(t, roster, 3)
	for i, entry := range roster {
		assert.Equal(t, names[i], entry.Name)
		assert.Equal(t, "Basic 6", entry.ClassLevel)
	}

	// promote
	updated, err := fx.svc.UpdateStudent(ctx, other.ID, academic.UpdateStudent{Name: other.Name, ClassLevel: "Basic 6"})
	require.NoError(t, err)
	assert.Equal(t, "Basic 6", updated.ClassLevel)

	roster, err = fx.svc.Roster(ctx, "Basic 6")
	require.NoError(t, err)
	require.Len(t, roster, 4)
	assert.Equal(t, grading.RosterEntry{StudentID: other.ID, Name: "Kwesi Pratt", ClassLevel: "Basic 6"}, roster[3])

	roster, err = fx.svc.Roster(ctx, "Basic 5")
	require.NoError(t, err)
	assert.Empty(t, roster)

	_, err = fx.svc.UpdateStudent(ctx, "lol", academic.UpdateStudent{Name: "X", ClassLevel: "Basic 1"})
	assert.Equal(t, academic.ErrStudentNotFound, errors.Cause(err))
}

func TestService_Assign(t *testing.T) {
	fx := setup(t)
	ctx := context.Background()

	teacher := testutil.CreateUser(t, fx.usrRepo, "Efua Sutherland", "efua", "efua@test.gh", "", user.RoleTeacher, true)
	inactive := testutil.CreateUser(t, fx.usrRepo, "Ayi Kwei", "ayi", "ayi@test.gh", "", user.RoleTeacher, false)
	admin := testutil.CreateUser(t, fx.usrRepo, "Head", "head", "head@test.gh", "", user.RoleAdmin, true)
	eng := testutil.CreateSubject(t, fx.repo, "ENG", "English", "Basic 6")

	notATeacher := []core.FieldError{{Field: "teacher_id", Error: academic.ErrNotATeacher.Error()}}
	tests := []struct {
		name       string
		na         academic.NewAssignment
		wantFields []core.FieldError
	}{
		{name: "unknown teacher", na: academic.NewAssignment{TeacherID: "lol", SubjectID: eng.ID, ClassLevel: "Basic 6"}, wantFields: notATeacher},
		{name: "inactive teacher", na: academic.NewAssignment{TeacherID: inactive.ID, SubjectID: eng.ID, ClassLevel: "Basic 6"}, wantFields: notATeacher},
		{name: "admin", na: academic.NewAssignment{TeacherID: admin.ID, SubjectID: eng.ID, ClassLevel: "Basic 6"}, wantFields: notATeacher},
		{
			name:       "unknown subject",
			na:         academic.NewAssignment{TeacherID: teacher.ID, SubjectID: "lol", ClassLevel: "Basic 6"},
			wantFields: []core.FieldError{{Field: "subject_id", Error: academic.ErrSubjectNotFound.Error()}},
		},
		{
			name:       "subject not offered",
			na:         academic.NewAssignment{TeacherID: teacher.ID, SubjectID: eng.ID, ClassLevel: "Basic 5"},
			wantFields: []core.FieldError{{Field: "class_level", Error: academic.ErrSubjectNotOffered.Error()}},
		},
		{name: "ok", na: academic.NewAssignment{TeacherID: teacher.ID, SubjectID: eng.ID, ClassLevel: "Basic 6"}},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			asg, err := fx.svc.Assign(ctx, tt.na)
			if tt.wantFields != nil {
				assert.Equal(t, tt.wantFields, fieldErrors(t, err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, teacher.ID, asg.TeacherID)
		})
	}

	_, err := fx.svc.Assign(ctx, academic.NewAssignment{TeacherID: teacher.ID, SubjectID: eng.ID, ClassLevel: "Basic 6"})
	assert.True(t, core.IsValidationError(err))
	assert.Equal(t, academic.ErrAssignmentExists, errors.Cause(err).(*core.ValidationError).Err)

	ok, err := fx.svc.CanTeach(ctx, teacher.ID, eng.ID, "Basic 6")
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = fx.svc.CanTeach(ctx, teacher.ID, eng.ID, "Basic 5")
	require.NoError(t, err)
	assert.False(t, ok)

	// removing the subject revokes its assignments
	require.NoError(t, fx.svc.DeleteSubject(ctx, eng.ID))
	ok, err = fx.svc.CanTeach(ctx, teacher.ID, eng.ID, "Basic 6")
	require.NoError(t, err)
	assert.False(t, ok)
}

type validatable interface {
	Validate(*validator.Validate) error
}

func TestValidators(t *testing.T) {
	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	academic.InitValidators(validate, translator)

	day := func(d int) null.Time { return null.TimeFrom(time.Date(2024, time.September, d, 0, 0, 0, 0, time.UTC)) }

	tests := []struct {
		name    string
		data    validatable
		wantTag string // first failing tag, empty when valid
	}{
		{name: "term ok", data: &academic.NewTerm{Label: "Term 1", AcademicYear: "2024/2025", StartsOn: day(2), EndsOn: day(20)}},
		{name: "term year format", data: &academic.NewTerm{Label: "Term 1", AcademicYear: "2024-2025"}, wantTag: "academicyear"},
		{name: "term non consecutive years", data: &academic.NewTerm{Label: "Term 1", AcademicYear: "2024/2026"}, wantTag: "academicyear"},
		{name: "term ends before start", data: &academic.NewTerm{Label: "Term 1", AcademicYear: "2024/2025", StartsOn: day(20), EndsOn: day(2)}, wantTag: "termdates"},
		{name: "term blank label", data: &academic.NewTerm{Label: "  ", AcademicYear: "2024/2025"}, wantTag: "required"},
		{name: "subject ok", data: &academic.NewSubject{Code: "int_sci", Name: "Integrated Science", ClassLevels: []string{"JHS 1"}}},
		{name: "subject unknown level", data: &academic.NewSubject{Code: "ENG", Name: "English", ClassLevels: []string{"Grade 12"}}, wantTag: "classlevel"},
		{name: "student ok", data: &academic.NewStudent{Name: "Ama", ClassLevel: " Basic 6 "}},
		{name: "student unknown level", data: &academic.NewStudent{Name: "Ama", ClassLevel: "Primary 6"}, wantTag: "classlevel"},
		{name: "assignment non uuid", data: &academic.NewAssignment{TeacherID: "lol", SubjectID: "lol", ClassLevel: "Basic 6"}, wantTag: "uuid"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			err := tt.data.Validate(validate)
			if tt.wantTag == "" {
				assert.NoError(t, err)
				return
			}
			var vErrs validator.ValidationErrors
			require.True(t, errors.As(err, &vErrs), "got %v", err)
			assert.Equal(t, tt.wantTag, vErrs[0].Tag())
		})
	}
}
