// Package inmem implements the repositories in memory. Used by tests and local runs without Postgres.
package inmem

import (
	"sync"

	"github.com/google/uuid"

	"github.com/trezcool/gradebook/core/academic"
	"github.com/trezcool/gradebook/core/score"
	"github.com/trezcool/gradebook/core/user"
)

// DB holds every table behind a single lock, so multi table operations are atomic.
type DB struct {
	sync.RWMutex

	users       map[string]*user.User
	terms       map[string]*academic.Term
	subjects    map[string]*academic.Subject
	students    map[string]*academic.Student
	assignments map[string]*academic.Assignment
	scores      map[string]*score.Score

	seq   int64
	order map[string]int64 // id -> insertion sequence
}

func Open() *DB {
	return &DB{
		users:       make(map[string]*user.User),
		terms:       make(map[string]*academic.Term),
		subjects:    make(map[string]*academic.Subject),
		students:    make(map[string]*academic.Student),
		assignments: make(map[string]*academic.Assignment),
		scores:      make(map[string]*score.Score),
		order:       make(map[string]int64),
	}
}

// newID returns a new UUID and records its insertion order. Callers hold the write lock.
func (db *DB) newID() string {
	id := uuid.New().String()
	db.seq++
	db.order[id] = db.seq
	return id
}

// before reports whether a was inserted before b.
func (db *DB) before(a, b string) bool {
	return db.order[a] < db.order[b]
}

// Flush empties every table.
func (db *DB) Flush() {
	db.Lock()
	defer db.Unlock()

	db.users = make(map[string]*user.User)
	db.terms = make(map[string]*academic.Term)
	db.subjects = make(map[string]*academic.Subject)
	db.students = make(map[string]*academic.Student)
	db.assignments = make(map[string]*academic.Assignment)
	db.scores = make(map[string]*score.Score)
	db.order = make(map[string]int64)
}

type missingReferenceError struct {
	table string
	id    string
}

func (err *missingReferenceError) Error() string {
	return "inmem: missing " + err.table + " " + err.id
}

func errMissingReference(table, id string) error {
	return &missingReferenceError{table: table, id: id}
}
