// Package sqlxrepos implements the repositories on PostgreSQL with sqlx.
package sqlxrepos

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/trezcool/gradebook/core"
)

const uniqueViolation = "23505"

// uniqueConstraint returns the name of the violated unique constraint, if any.
func uniqueConstraint(err error) (string, bool) {
	if pqErr, ok := errors.Cause(err).(*pq.Error); ok && pqErr.Code == uniqueViolation {
		return pqErr.Constraint, true
	}
	return "", false
}

func isUUID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

// validUUIDs drops the ids that are not UUIDs; they cannot match any row.
func validUUIDs(ids []string) []string {
	valid := make([]string, 0, len(ids))
	for _, id := range ids {
		if isUUID(id) {
			valid = append(valid, id)
		}
	}
	return valid
}

// whereBuilder accumulates AND-ed conditions with positional args.
type whereBuilder struct {
	conds []string
	args  []interface{}
}

// add appends cond where every `?` is a reference to arg.
func (wb *whereBuilder) add(cond string, arg interface{}) {
	wb.args = append(wb.args, arg)
	wb.conds = append(wb.conds, strings.ReplaceAll(cond, "?", fmt.Sprintf("$%d", len(wb.args))))
}

func (wb *whereBuilder) String() string {
	if len(wb.conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(wb.conds, " AND ")
}

// orderBy builds an ORDER BY clause keeping only the allowed fields.
func orderBy(ordering []core.DBOrdering, allowed map[string]string, dflt string) string {
	terms := make([]string, 0, len(ordering))
	for _, ord := range ordering {
		if col, ok := allowed[ord.Field]; ok {
			terms = append(terms, core.DBOrdering{Field: col, Ascending: ord.Ascending}.String())
		}
	}
	if len(terms) == 0 {
		return " ORDER BY " + dflt
	}
	return " ORDER BY " + strings.Join(terms, ", ")
}

func rowsAffected(res interface{ RowsAffected() (int64, error) }) (int64, error) {
	n, err := res.RowsAffected()
	return n, errors.Wrap(err, "getting rows affected")
}

// inTx runs fn in a transaction, rolled back when fn fails.
func inTx(ctx context.Context, db *sqlx.DB, fn func(tx *sqlx.Tx) error) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "beginning transaction")
	}
	if err = fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return errors.Wrap(tx.Commit(), "committing transaction")
}

// prefixed qualifies every column of a comma separated list: prefixed("s.", "a, b") == "s.a, s.b".
func prefixed(prefix, columns string) string {
	cols := strings.Split(columns, ", ")
	for i, c := range cols {
		cols[i] = prefix + c
	}
	return strings.Join(cols, ", ")
}
