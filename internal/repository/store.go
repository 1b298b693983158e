package repository

import (
	"context"

	"github.com/iliyamo/signal-checkin/internal/model"
)

// EntryStore persists journal entries. Sensitive fields arrive and leave as
// ciphertext.
type EntryStore interface {
	Insert(ctx context.Context, e model.Entry) error
	Get(ctx context.Context, id string) (model.Entry, error)
	// ListForOwner returns at most limit entries, newest date first and the
	// highest entry number first within a date.
	ListForOwner(ctx context.Context, userID string, limit int) ([]model.Entry, error)
	// Update rewrites the mutable columns of the row matching both e.ID and
	// e.UserID.
	Update(ctx context.Context, e model.Entry) error
	Delete(ctx context.Context, id, userID string) error
	// MaxEntryNumber returns 0 when the owner has no entry on date.
	MaxEntryNumber(ctx context.Context, userID, date string) (int, error)
	CountDistinctDates(ctx context.Context, userID string, window int) (int, error)
}

// SignupStore persists beta signups. It is append-only.
type SignupStore interface {
	InsertIfAbsent(ctx context.Context, s model.Signup) error
	List(ctx context.Context, limit int) ([]model.Signup, error)
}

var (
	_ EntryStore  = (*EntryRepo)(nil)
	_ SignupStore = (*SignupRepo)(nil)
)
