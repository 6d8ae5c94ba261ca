package score

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"net/mail"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/trezcool/gradebook/core"
	"github.com/trezcool/gradebook/core/grading"
)

const csvContentType = "text/csv"

// WriteBroadsheetCSV writes bs as CSV: position, student, one column per subject code, total.
func WriteBroadsheetCSV(w io.Writer, bs grading.Broadsheet) error {
	cw := csv.NewWriter(w)

	header := make([]string, 0, len(bs.Columns)+4)
	header = append(header, "Position", "Student ID", "Name")
	for _, col := range bs.Columns {
		header = append(header, col.Code)
	}
	header = append(header, "Total")
	if err := cw.Write(header); err != nil {
		return errors.Wrap(err, "writing header")
	}

	for _, row := range bs.Rows {
		record := make([]string, 0, len(header))
		record = append(record, strconv.Itoa(row.Position), row.StudentID, row.Name)
		for _, s := range row.Scores {
			record = append(record, strconv.Itoa(s))
		}
		record = append(record, strconv.Itoa(row.Total))
		if err := cw.Write(record); err != nil {
			return errors.Wrap(err, "writing row")
		}
	}

	cw.Flush()
	return errors.Wrap(cw.Error(), "flushing csv")
}

// BroadsheetFilename returns the attachment name of bs: "basic-6_term-1-2024-2025.csv".
func BroadsheetFilename(bs grading.Broadsheet) string {
	slug := func(s string) string {
		s = strings.ToLower(core.CleanString(s))
		return strings.NewReplacer(" ", "-", "/", "-").Replace(s)
	}
	return fmt.Sprintf("%s_%s.csv", slug(bs.ClassLevel), slug(bs.TermLabel))
}

func (svc *service) MailBroadsheet(ctx context.Context, termID, classLevel string, to ...mail.Address) error {
	if len(to) == 0 {
		return core.NewValidationError(nil, core.FieldError{Field: "recipients", Error: "at least one recipient is required"})
	}

	bs, err := svc.Broadsheet(ctx, termID, classLevel)
	if err != nil {
		return errors.Wrap(err, "building broadsheet")
	}

	var buff bytes.Buffer
	if err = WriteBroadsheetCSV(&buff, bs); err != nil {
		return errors.Wrap(err, "writing broadsheet csv")
	}

	msg := &core.EmailMessage{
		To:           to,
		Subject:      fmt.Sprintf("%s broadsheet - %s", bs.ClassLevel, bs.TermLabel),
		TemplateName: "broadsheet",
		TemplateData: struct {
			ClassLevel string
			TermLabel  string
			Students   int
			Subjects   int
		}{
			ClassLevel: bs.ClassLevel,
			TermLabel:  bs.TermLabel,
			Students:   bs.Len(),
			Subjects:   len(bs.Columns),
		},
	}
	if err = msg.Render(); err != nil {
		return errors.Wrap(err, "rendering broadsheet email")
	}
	if err = msg.Attach(&buff, BroadsheetFilename(bs), csvContentType); err != nil {
		return errors.Wrap(err, "attaching broadsheet")
	}

	svc.mailSvc.SendMessages(msg)
	return nil
}
