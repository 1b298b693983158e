package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/iliyamo/signal-checkin/internal/model"
)

type SignupRepo struct{ DB *sql.DB }

func NewSignupRepo(db *sql.DB) *SignupRepo { return &SignupRepo{DB: db} }

// NormalizeEmail trims and lower-cases an address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// InsertIfAbsent stores s unless its email is already registered, in which
// case ErrConflict is returned and the existing row is kept.
func (r *SignupRepo) InsertIfAbsent(ctx context.Context, s model.Signup) error {
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO signups (id, email, created_at) VALUES (?,?,?)",
		s.ID, NormalizeEmail(s.Email), s.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("insert signup: %w", classify(err))
	}
	return nil
}

// List returns the newest signups first.
func (r *SignupRepo) List(ctx context.Context, limit int) ([]model.Signup, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT id, email, created_at FROM signups ORDER BY created_at DESC, email LIMIT ?", limit)
	if err != nil {
		return nil, fmt.Errorf("list signups: %w", classify(err))
	}
	defer rows.Close()

	out := make([]model.Signup, 0)
	for rows.Next() {
		var s model.Signup
		if err := rows.Scan(&s.ID, &s.Email, utcTime{&s.CreatedAt}); err != nil {
			return nil, fmt.Errorf("list signups: %w", classify(err))
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list signups: %w", classify(err))
	}
	return out, nil
}
