package score

import (
	"context"
	"fmt"
	"net/mail"
	"time"

	"github.com/kat-co/vala"
	"github.com/pkg/errors"

	"github.com/trezcool/gradebook/core"
	"github.com/trezcool/gradebook/core/academic"
	"github.com/trezcool/gradebook/core/grading"
	"github.com/trezcool/gradebook/core/user"
)

var (
	// errors
	ErrNotAssigned = errors.New("you are not assigned to this subject for this class level")
)

type (
	Repository interface {
		// Upsert inserts or updates scores keyed by (student, subject, term), all or nothing.
		Upsert(ctx context.Context, scores []Score) ([]Score, error)
		Query(ctx context.Context, filter Filter) ([]Score, error)
		Delete(ctx context.Context, ids ...string) error
	}

	Service interface {
		// Enter validates and stores a batch of scores entered by usr.
		// Teachers may only enter scores of subjects assigned to them for the student's class level.
		Enter(ctx context.Context, usr user.User, entries []ScoreEntry) ([]Score, error)
		Query(ctx context.Context, filter Filter) ([]Score, error)
		Delete(ctx context.Context, ids ...string) error
		// Broadsheet ranks the students of classLevel for the term over the subjects offered at that level.
		Broadsheet(ctx context.Context, termID, classLevel string) (grading.Broadsheet, error)
		// MailBroadsheet sends the broadsheet as a CSV attachment.
		MailBroadsheet(ctx context.Context, termID, classLevel string, to ...mail.Address) error
		Scale() *grading.Scale
	}

	Policy struct {
		ClassScoreMax int // 0: uncapped
		ExamScoreMax  int // 0: uncapped
	}

	service struct {
		repo        Repository
		academicSvc academic.Service
		mailSvc     core.EmailService
		scale       *grading.Scale
		policy      Policy
		logger      core.Logger
	}
)

var _ Service = (*service)(nil)

func NewService(
	repo Repository,
	academicSvc academic.Service,
	mailSvc core.EmailService,
	scale *grading.Scale,
	conf *core.Config,
	logger core.Logger,
) Service {
	vala.BeginValidation().Validate(
		vala.IsNotNil(repo, "repo"),
		vala.IsNotNil(academicSvc, "academicSvc"),
		vala.IsNotNil(mailSvc, "mailSvc"),
		vala.IsNotNil(scale, "scale"),
		vala.IsNotNil(conf, "conf"),
		vala.IsNotNil(logger, "logger"),
	).CheckAndPanic()

	return &service{
		repo:        repo,
		academicSvc: academicSvc,
		mailSvc:     mailSvc,
		scale:       scale,
		policy: Policy{
			ClassScoreMax: conf.Grading.ClassScoreMax,
			ExamScoreMax:  conf.Grading.ExamScoreMax,
		},
		logger: logger,
	}
}

func (svc *service) Scale() *grading.Scale { return svc.scale }

// check rejects components above the configured caps.
func (p Policy) check(idx int, entry ScoreEntry) []core.FieldError {
	var flds []core.FieldError
	if p.ClassScoreMax > 0 && entry.ClassScore > p.ClassScoreMax {
		flds = append(flds, core.FieldError{
			Field: fmt.Sprintf("entries[%d].class_score", idx),
			Error: fmt.Sprintf("class score cannot exceed %d", p.ClassScoreMax),
		})
	}
	if p.ExamScoreMax > 0 && entry.ExamScore > p.ExamScoreMax {
		flds = append(flds, core.FieldError{
			Field: fmt.Sprintf("entries[%d].exam_score", idx),
			Error: fmt.Sprintf("exam score cannot exceed %d", p.ExamScoreMax),
		})
	}
	return flds
}

func (svc *service) Enter(ctx context.Context, usr user.User, entries []ScoreEntry) ([]Score, error) {
	if len(entries) == 0 {
		return []Score{}, nil
	}

	var (
		now      = time.Now().UTC()
		scores   = make([]Score, 0, len(entries))
		flds     []core.FieldError
		students = make(map[string]academic.Student)
		subjects = make(map[string]academic.Subject)
		terms    = make(map[string]struct{})
	)

	fieldErr := func(idx int, field string, err error) {
		flds = append(flds, core.FieldError{Field: fmt.Sprintf("entries[%d].%s", idx, field), Error: err.Error()})
	}

	for i, entry := range entries {
		if pErrs := svc.policy.check(i, entry); pErrs != nil {
			flds = append(flds, pErrs...)
			continue
		}

		std, ok := students[entry.StudentID]
		if !ok {
			var err error
			if std, err = svc.academicSvc.GetStudent(ctx, entry.StudentID); err != nil {
				if errors.Cause(err) == academic.ErrStudentNotFound {
					fieldErr(i, "student_id", err)
					continue
				}
				return nil, errors.Wrap(err, "finding student")
			}
			students[entry.StudentID] = std
		}

		subj, ok := subjects[entry.SubjectID]
		if !ok {
			var err error
			if subj, err = svc.academicSvc.GetSubject(ctx, entry.SubjectID); err != nil {
				if errors.Cause(err) == academic.ErrSubjectNotFound {
					fieldErr(i, "subject_id", err)
					continue
				}
				return nil, errors.Wrap(err, "finding subject")
			}
			subjects[entry.SubjectID] = subj
		}
		if !subj.OfferedAt(std.ClassLevel) {
			fieldErr(i, "subject_id", academic.ErrSubjectNotOffered)
			continue
		}

		if _, ok = terms[entry.TermID]; !ok {
			if _, err := svc.academicSvc.GetTerm(ctx, entry.TermID); err != nil {
				if errors.Cause(err) == academic.ErrTermNotFound {
					fieldErr(i, "term_id", err)
					continue
				}
				return nil, errors.Wrap(err, "finding term")
			}
			terms[entry.TermID] = struct{}{}
		}

		if !usr.IsAdmin() {
			canTeach, err := svc.academicSvc.CanTeach(ctx, usr.ID, subj.ID, std.ClassLevel)
			if err != nil {
				return nil, errors.Wrap(err, "checking assignment")
			}
			if !canTeach {
				return nil, ErrNotAssigned
			}
		}

		rec, err := grading.NewScoreRecord(std.ID, subj.ID, entry.TermID, entry.ClassScore, entry.ExamScore, svc.scale)
		if err != nil {
			if vErr, ok := errors.Cause(err).(*core.ValidationError); ok {
				for _, f := range vErr.Fields {
					flds = append(flds, core.FieldError{Field: fmt.Sprintf("entries[%d].%s", i, f.Field), Error: f.Error})
				}
				continue
			}
			return nil, errors.Wrap(err, "aggregating score")
		}
		scores = append(scores, fromRecord(rec, usr.ID, now))
	}

	if flds != nil {
		return nil, core.NewValidationError(nil, flds...)
	}

	scores, err := svc.repo.Upsert(ctx, scores)
	return scores, errors.Wrap(err, "saving scores")
}

func (svc *service) Query(ctx context.Context, filter Filter) ([]Score, error) {
	return svc.repo.Query(ctx, filter)
}

func (svc *service) Delete(ctx context.Context, ids ...string) error {
	return svc.repo.Delete(ctx, ids...)
}

func (svc *service) Broadsheet(ctx context.Context, termID, classLevel string) (grading.Broadsheet, error) {
	var (
		term academic.Term
		err  error
	)
	if termID == "" {
		term, err = svc.academicSvc.CurrentTerm(ctx)
	} else {
		term, err = svc.academicSvc.GetTerm(ctx, termID)
	}
	if err != nil {
		return grading.Broadsheet{}, errors.Wrap(err, "finding term")
	}

	// snapshot: roster, subjects & scores are all loaded before ranking
	roster, err := svc.academicSvc.Roster(ctx, classLevel)
	if err != nil {
		return grading.Broadsheet{}, errors.Wrap(err, "loading roster")
	}

	var subjects []academic.Subject
	if academic.IsClassLevel(classLevel) {
		if subjects, err = svc.academicSvc.QuerySubjects(ctx, classLevel); err != nil {
			return grading.Broadsheet{}, errors.Wrap(err, "loading subjects")
		}
	}
	columns := make([]grading.Subject, 0, len(subjects))
	for _, subj := range subjects {
		columns = append(columns, subj.Column())
	}

	scores, err := svc.repo.Query(ctx, Filter{TermID: term.ID, ClassLevel: classLevel})
	if err != nil {
		return grading.Broadsheet{}, errors.Wrap(err, "loading scores")
	}

	rows := grading.Rank(roster, classLevel, columns, grading.TotalLookup(snapshotProvider(scores)))
	return grading.Assemble(rows, columns, classLevel, term.FullLabel()), nil
}

// snapshotProvider serves score components from an in-memory snapshot.
func snapshotProvider(scores []Score) grading.ScoreProvider {
	type key struct{ student, subject string }

	index := make(map[key]grading.Components, len(scores))
	for _, s := range scores {
		index[key{s.StudentID, s.SubjectID}] = grading.Components{Class: s.ClassScore, Exam: s.ExamScore}
	}
	return func(studentID, subjectID string) (grading.Components, bool) {
		comps, ok := index[key{studentID, subjectID}]
		return comps, ok
	}
}
