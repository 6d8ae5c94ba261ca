package grading

// Column is a broadsheet subject column.
type Column struct {
	Code      string `json:"code"`
	SubjectID string `json:"subject_id"`
}

// Broadsheet is the tabular report of a class for a term.
// It shares no memory with the inputs it was assembled from.
type Broadsheet struct {
	ClassLevel string      `json:"class_level"`
	TermLabel  string      `json:"term_label"`
	Columns    []Column    `json:"columns"`
	Rows       []RankedRow `json:"rows"`
}

// Assemble builds a Broadsheet from rows produced by Rank over the same subjects.
// Row scores are the values captured while ranking; nothing is looked up again.
// Scores are matched to subjects by index: a shorter row is padded with zeros
// and a longer one is cut to len(subjects). Total is kept as ranked.
func Assemble(rows []RankedRow, subjects []Subject, classLevel, termLabel string) Broadsheet {
	bs := Broadsheet{
		ClassLevel: classLevel,
		TermLabel:  termLabel,
		Columns:    make([]Column, len(subjects)),
		Rows:       make([]RankedRow, len(rows)),
	}
	for i, subj := range subjects {
		bs.Columns[i] = Column{Code: subj.Code, SubjectID: subj.ID}
	}
	for i, row := range rows {
		scores := make([]int, len(subjects))
		copy(scores, row.Scores)
		row.Scores = scores
		bs.Rows[i] = row
	}
	return bs
}

// Len returns the number of rows.
func (bs Broadsheet) Len() int { return len(bs.Rows) }

// Cell returns the score of row in column col.
func (bs Broadsheet) Cell(row, col int) int { return bs.Rows[row].Scores[col] }
