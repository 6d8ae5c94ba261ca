package schedsvc

import (
	"context"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/kat-co/vala"
	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"

	"github.com/trezcool/gradebook/core"
	"github.com/trezcool/gradebook/core/academic"
	"github.com/trezcool/gradebook/core/score"
)

const jobTimeout = 10 * time.Minute

// ReportScheduler mails the broadsheets of the current term on a cron schedule.
type ReportScheduler struct {
	cron        *cron.Cron
	schedule    string
	recipients  []mail.Address
	academicSvc academic.Service
	scoreSvc    score.Service
	logger      core.Logger
}

// NewReportScheduler parses conf.Reports.Schedule, a standard 5-field cron expression.
// the scheduler is disabled when the schedule or the recipients are empty.
func NewReportScheduler(
	conf *core.Config,
	academicSvc academic.Service,
	scoreSvc score.Service,
	logger core.Logger,
) (*ReportScheduler, error) {
	vala.BeginValidation().Validate(
		vala.IsNotNil(conf, "conf"),
		vala.IsNotNil(academicSvc, "academicSvc"),
		vala.IsNotNil(scoreSvc, "scoreSvc"),
		vala.IsNotNil(logger, "logger"),
	).CheckAndPanic()

	rs := &ReportScheduler{
		schedule:    strings.TrimSpace(conf.Reports.Schedule),
		recipients:  conf.Reports.Recipients,
		academicSvc: academicSvc,
		scoreSvc:    scoreSvc,
		logger:      logger,
	}
	if !rs.Enabled() {
		return rs, nil
	}

	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	rs.cron = cron.New(cron.WithParser(parser))
	if _, err := rs.cron.AddFunc(rs.schedule, rs.run); err != nil {
		return nil, errors.Wrapf(err, "invalid reports schedule %q", rs.schedule)
	}
	return rs, nil
}

func (rs *ReportScheduler) Enabled() bool {
	return rs.schedule != "" && len(rs.recipients) > 0
}

// Start runs the scheduler in its own goroutine.
func (rs *ReportScheduler) Start() {
	if rs.cron == nil {
		rs.logger.Info("broadsheet reports disabled")
		return
	}
	rs.cron.Start()
	rs.logger.Info(fmt.Sprintf("broadsheet reports scheduled (cron: %s)", rs.schedule))
}

// Stop prevents new runs and waits for a running one until ctx is done.
func (rs *ReportScheduler) Stop(ctx context.Context) {
	if rs.cron == nil {
		return
	}
	select {
	case <-rs.cron.Stop().Done():
	case <-ctx.Done():
	}
}

func (rs *ReportScheduler) run() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	sent, err := rs.MailCurrentTerm(ctx)
	if err != nil {
		rs.logger.Error(fmt.Sprintf("schedsvc.run: %v", err), err)
		return
	}
	rs.logger.Info(fmt.Sprintf("broadsheet reports sent: %d", sent))
}

// MailCurrentTerm mails one broadsheet per class level having students, and returns how many were sent.
// nothing is sent when no term is current.
func (rs *ReportScheduler) MailCurrentTerm(ctx context.Context) (int, error) {
	term, err := rs.academicSvc.CurrentTerm(ctx)
	if err != nil {
		if errors.Cause(err) == academic.ErrNoCurrentTerm {
			rs.logger.Warn("broadsheet reports skipped: no current term")
			return 0, nil
		}
		return 0, errors.Wrap(err, "finding current term")
	}

	var sent int
	for _, level := range academic.ClassLevels {
		roster, err := rs.academicSvc.Roster(ctx, level)
		if err != nil {
			return sent, errors.Wrapf(err, "loading %s roster", level)
		}
		if len(roster) == 0 {
			continue
		}
		if err = rs.scoreSvc.MailBroadsheet(ctx, term.ID, level, rs.recipients...); err != nil {
			return sent, errors.Wrapf(err, "mailing %s broadsheet", level)
		}
		sent++
	}
	return sent, nil
}
