package grading

import "sort"

type (
	// RosterEntry is a student as seen by the ranking engine.
	RosterEntry struct {
		StudentID  string
		Name       string
		ClassLevel string
	}

	// Subject is a broadsheet column.
	Subject struct {
		ID   string
		Code string
		Name string
	}

	// ScoreLookup returns the total score of a student in a subject.
	// It must be defined for every pair; missing scores are 0.
	ScoreLookup func(studentID, subjectID string) int

	// Components are the two partial scores of a subject.
	Components struct {
		Class int
		Exam  int
	}

	// ScoreProvider returns the components of a student in a subject,
	// or false when the score has not been entered yet.
	ScoreProvider func(studentID, subjectID string) (Components, bool)

	// RankedRow is one student's line of a ranking.
	RankedRow struct {
		Position  int    `json:"position"`
		StudentID string `json:"student_id"`
		Name      string `json:"name"`
		Scores    []int  `json:"scores"` // aligned with the ranked subjects
		Total     int    `json:"total"`
	}
)

// TotalLookup turns a ScoreProvider into a ScoreLookup where
// scores not yet entered contribute 0.
func TotalLookup(provider ScoreProvider) ScoreLookup {
	return func(studentID, subjectID string) int {
		comps, ok := provider(studentID, subjectID)
		if !ok {
			return 0
		}
		return comps.Class + comps.Exam
	}
}

// Rank ranks the students of classLevel by descending total over subjects.
// Ties keep roster order; positions are 1..n with no shared ranks.
func Rank(roster []RosterEntry, classLevel string, subjects []Subject, lookup ScoreLookup) []RankedRow {
	rows := make([]RankedRow, 0, len(roster))
	for _, entry := range roster {
		if entry.ClassLevel != classLevel {
			continue
		}
		row := RankedRow{
			StudentID: entry.StudentID,
			Name:      entry.Name,
			Scores:    make([]int, len(subjects)),
		}
		for i, subj := range subjects {
			score := lookup(entry.StudentID, subj.ID)
			row.Scores[i] = score
			row.Total += score
		}
		rows = append(rows, row)
	}

	sort.SliceStable(rows, func(i, j int) bool { return rows[i].Total > rows[j].Total })
	for i := range rows {
		rows[i].Position = i + 1
	}
	return rows
}
