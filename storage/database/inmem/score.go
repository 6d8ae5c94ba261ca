package inmem

import (
	"context"
	"sort"

	"github.com/trezcool/gradebook/core/score"
)

type scoreRepository struct {
	db *DB
}

var _ score.Repository = (*scoreRepository)(nil) // interface compliance check

func NewScoreRepository(db *DB) score.Repository {
	return &scoreRepository{db: db}
}

func (repo *scoreRepository) find(studentID, subjectID, termID string) *score.Score {
	for _, s := range repo.db.scores {
		if s.StudentID == studentID && s.SubjectID == subjectID && s.TermID == termID {
			return s
		}
	}
	return nil
}

func (repo *scoreRepository) Upsert(_ context.Context, scores []score.Score) ([]score.Score, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	// all or nothing: check references before writing
	for _, s := range scores {
		if _, ok := repo.db.students[s.StudentID]; !ok {
			return nil, errMissingReference("student", s.StudentID)
		}
		if _, ok := repo.db.subjects[s.SubjectID]; !ok {
			return nil, errMissingReference("subject", s.SubjectID)
		}
		if _, ok := repo.db.terms[s.TermID]; !ok {
			return nil, errMissingReference("term", s.TermID)
		}
	}

	saved := make([]score.Score, 0, len(scores))
	for _, s := range scores {
		if existing := repo.find(s.StudentID, s.SubjectID, s.TermID); existing != nil {
			existing.ClassScore = s.ClassScore
			existing.ExamScore = s.ExamScore
			existing.Total = s.Total
			existing.Grade = s.Grade
			existing.EnteredBy = s.EnteredBy
			existing.UpdatedAt = s.UpdatedAt
			saved = append(saved, *existing)
			continue
		}
		s := s
		s.ID = repo.db.newID()
		repo.db.scores[s.ID] = &s
		saved = append(saved, s)
	}
	return saved, nil
}

func (repo *scoreRepository) Query(_ context.Context, filter score.Filter) ([]score.Score, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	scores := make([]score.Score, 0)
	for _, s := range repo.db.scores {
		if filter.TermID != "" && s.TermID != filter.TermID {
			continue
		}
		if filter.SubjectID != "" && s.SubjectID != filter.SubjectID {
			continue
		}
		if filter.StudentID != "" && s.StudentID != filter.StudentID {
			continue
		}
		if filter.ClassLevel != "" {
			std, ok := repo.db.students[s.StudentID]
			if !ok || std.ClassLevel != filter.ClassLevel {
				continue
			}
		}
		scores = append(scores, *s)
	}
	sort.Slice(scores, func(i, j int) bool { return repo.db.before(scores[i].ID, scores[j].ID) })
	return scores, nil
}

func (repo *scoreRepository) Delete(_ context.Context, ids ...string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	for _, id := range ids {
		delete(repo.db.scores, id)
	}
	return nil
}
