package service

import (
	"errors"
	"fmt"
	"strings"

	"github.com/iliyamo/signal-checkin/internal/repository"
)

var (
	// ErrNotPermitted is returned when the policy denies the principal.
	ErrNotPermitted = errors.New("not permitted")

	// ErrConflict is returned when a write collides with an existing row.
	ErrConflict = fmt.Errorf("already exists: %w", repository.ErrConflict)

	// ErrNotFound is returned for rows that do not exist or are not visible
	// to the principal.
	ErrNotFound = fmt.Errorf("entry %w", repository.ErrNotFound)

	// ErrStorage is returned when the store stayed unavailable after the
	// bounded retry.
	ErrStorage = errors.New("storage unavailable")
)

// ValidationError lists every violated constraint, in check order.
type ValidationError struct {
	Violations []string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Violations, ", ")
}

// storeError maps a repository error onto the service error set.
func storeError(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrConflict):
		return fmt.Errorf("%s: %w", op, ErrConflict)
	case errors.Is(err, repository.ErrNotFound):
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	case errors.Is(err, repository.ErrUnavailable):
		return fmt.Errorf("%s: %w: %v", op, ErrStorage, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}
