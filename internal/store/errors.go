package store

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// ErrNotFound is returned by the fetch helpers when no row matches.
var ErrNotFound = errors.New("not found")

// ErrBadCursor marks a pagination cursor that cannot be parsed. It is
// caller input, so the read surface maps it to a 400, not a 500.
var ErrBadCursor = errors.New("bad cursor")

// OrderingViolationError means an insert arrived before its hard-referenced
// parent: a tweet before its author, or media before its tweet. Callers are
// contractually required to store parents first, so this is a programming
// error and is never swallowed.
type OrderingViolationError struct {
	Entity    string // the missing entity kind: "user" or "tweet"
	Key       string // the missing entity's external key
	Dependent string // external id of the row that needed it
}

func (e *OrderingViolationError) Error() string {
	return fmt.Sprintf("ordering violation: %s %s not stored yet, required by %s", e.Entity, e.Key, e.Dependent)
}

func IsOrderingViolation(err error) bool {
	var ov *OrderingViolationError
	return errors.As(err, &ov)
}

// isUniqueViolation recognizes the benign natural-key race between two
// concurrent rounds hitting a unique constraint the upsert's conflict
// target doesn't name.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func mapNoRows(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}
