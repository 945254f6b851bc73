package store

import (
	"errors"

	"github.com/lib/pq"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("not found")

// ErrDuplicate is returned when a write violates a unique constraint.
var ErrDuplicate = errors.New("duplicate record")

// ErrConflict is returned when a conditional write found its condition unmet.
var ErrConflict = errors.New("conflicting record")

// ErrReferenced is returned when a row cannot be deleted while others still
// point at it.
var ErrReferenced = errors.New("record still referenced")

const (
	pqUniqueViolation     = "23505"
	pqForeignKeyViolation = "23503"
)

func translateError(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case pqUniqueViolation:
			return ErrDuplicate
		case pqForeignKeyViolation:
			return ErrReferenced
		}
	}
	return err
}
