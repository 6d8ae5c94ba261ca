package testutil

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/trezcool/gradebook/core"
	"github.com/trezcool/gradebook/core/academic"
	"github.com/trezcool/gradebook/core/user"
	"github.com/trezcool/gradebook/storage/database"
)

// NewConfig returns the configuration used by tests.
func NewConfig() *core.Config {
	conf := core.NewConfig()
	conf.TestMode = true
	conf.Debug = false
	conf.RollbarToken = ""
	conf.SendgridApiKey = ""
	conf.Server.DisableReqLogs = true
	conf.Reports.Schedule = ""
	return conf
}

// PrepareDB sets up a migrated postgres test database.
// the test is skipped unless TEST_DATABASE_HOST is set.
func PrepareDB(t *testing.T) *sqlx.DB {
	host := os.Getenv("TEST_DATABASE_HOST")
	if host == "" {
		t.Skip("TEST_DATABASE_HOST not set")
	}

	conf := NewConfig()
	conf.Database.Host = host
	conf.Database.Name = "gradebook_test"
	conf.Database.InMemory = false

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, err := database.Setup(ctx, conf)
	if err != nil {
		t.Fatalf("PrepareDB() failed: %v", err)
	}
	t.Cleanup(func() {
		_ = database.Migrate(db, "reset")
		_ = db.Close()
	})
	return db
}

// LogEntry is one event recorded by LoggerMock.
type LogEntry struct {
	Level string
	Msg   string
	Args  []interface{}
}

// LoggerMock records events instead of reporting them.
type LoggerMock struct {
	mu      sync.Mutex
	entries []LogEntry
}

var _ core.Logger = (*LoggerMock)(nil)

func (l *LoggerMock) log(level, msg string, args []interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, LogEntry{Level: level, Msg: msg, Args: args})
}

func (l *LoggerMock) Debug(msg string, args ...interface{}) { l.log("DEBUG", msg, args) }
func (l *LoggerMock) Info(msg string, args ...interface{})  { l.log("INFO", msg, args) }
func (l *LoggerMock) Warn(msg string, args ...interface{})  { l.log("WARN", msg, args) }
func (l *LoggerMock) Error(msg string, args ...interface{}) { l.log("ERROR", msg, args) }
func (l *LoggerMock) Fatal(msg string, args ...interface{}) { l.log("FATAL", msg, args) }

// Entries returns the recorded events of level (all when empty).
func (l *LoggerMock) Entries(level string) []LogEntry {
	l.mu.Lock()
	defer l.mu.Unlock()

	var entries []LogEntry
	for _, e := range l.entries {
		if level == "" || e.Level == level {
			entries = append(entries, e)
		}
	}
	return entries
}

func CreateUser(
	t *testing.T,
	repo user.Repository,
	name, uname, email, pwd string,
	role user.Role,
	isActive bool,
	createdAt ...time.Time,
) user.User {
	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	usr := user.User{
		Name:      name,
		Username:  uname,
		Email:     email,
		Role:      role,
		IsActive:  isActive,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	}
	if pwd != "" {
		if err := usr.SetPassword(pwd); err != nil {
			t.Fatalf("CreateUser() failed: %v", err)
		}
	}
	usr, err := repo.Create(context.Background(), usr)
	if err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	return usr
}

func CreateTerm(t *testing.T, repo academic.Repository, label, year string, current bool) academic.Term {
	ctx := context.Background()
	term, err := repo.CreateTerm(ctx, academic.Term{Label: label, AcademicYear: year, CreatedAt: time.Now().UTC()})
	if err != nil {
		t.Fatalf("CreateTerm() failed: %v", err)
	}
	if current {
		if term, err = repo.SetCurrentTerm(ctx, term.ID); err != nil {
			t.Fatalf("CreateTerm() failed: %v", err)
		}
	}
	return term
}

func CreateSubject(t *testing.T, repo academic.Repository, code, name string, levels ...string) academic.Subject {
	if levels == nil {
		levels = []string{}
	}
	subj, err := repo.CreateSubject(context.Background(), academic.Subject{
		Code:        code,
		Name:        name,
		ClassLevels: levels,
		CreatedAt:   time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("CreateSubject() failed: %v", err)
	}
	return subj
}

func CreateStudent(t *testing.T, repo academic.Repository, name, level string) academic.Student {
	now := time.Now().UTC()
	std, err := repo.CreateStudent(context.Background(), academic.Student{
		Name:       name,
		ClassLevel: level,
		CreatedAt:  now,
		UpdatedAt:  now,
	})
	if err != nil {
		t.Fatalf("CreateStudent() failed: %v", err)
	}
	return std
}

func CreateAssignment(t *testing.T, repo academic.Repository, teacherID, subjectID, level string) academic.Assignment {
	asg, err := repo.CreateAssignment(context.Background(), academic.Assignment{
		TeacherID:  teacherID,
		SubjectID:  subjectID,
		ClassLevel: level,
		CreatedAt:  time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("CreateAssignment() failed: %v", err)
	}
	return asg
}
