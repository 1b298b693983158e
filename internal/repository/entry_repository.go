package repository

import (
	"context"      // deadlines and cancellation for DB operations
	"database/sql" // generic database access
	"encoding/json"
	"fmt"

	"github.com/iliyamo/signal-checkin/internal/fieldcrypt"
	"github.com/iliyamo/signal-checkin/internal/model"
)

const entryColumns = `id, user_id, date, sleep_hours, sleep_quality, energy, deep_work_blocks,
	transcript, reflection_summary, likely_drivers, predicted_impact, experiment_for_tomorrow,
	is_outlier, entry_number, is_follow_up, created_at`

// EntryRepo encapsulates all queries against the `entries` table.
type EntryRepo struct {
	db                *sql.DB
	enforceCiphertext bool
}

// NewEntryRepo constructs an EntryRepo. When enforceCiphertext is true,
// non-empty sensitive values must have the ciphertext shape or the write is
// refused with ErrCiphertextRequired.
func NewEntryRepo(db *sql.DB, enforceCiphertext bool) *EntryRepo {
	return &EntryRepo{db: db, enforceCiphertext: enforceCiphertext}
}

// Insert stores a new entry. A duplicate id or (user_id, date, entry_number)
// yields ErrConflict; the existing row is left untouched.
func (r *EntryRepo) Insert(ctx context.Context, e model.Entry) error {
	if err := r.checkCiphertext(e); err != nil {
		return err
	}
	drivers, err := encodeDrivers(e.LikelyDrivers)
	if err != nil {
		return err
	}
	const q = `INSERT INTO entries (` + entryColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err = r.db.ExecContext(ctx, q,
		e.ID, e.UserID, e.Date, e.SleepHours, e.SleepQuality, e.Energy, e.DeepWorkBlocks,
		e.Transcript, e.ReflectionSummary, drivers, e.PredictedImpact, e.ExperimentForTomorrow,
		e.IsOutlier, e.EntryNumber, e.IsFollowUp, e.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("insert entry: %w", classify(err))
	}
	return nil
}

// Get fetches an entry by id regardless of owner. Missing rows yield
// ErrNotFound.
func (r *EntryRepo) Get(ctx context.Context, id string) (model.Entry, error) {
	const q = `SELECT ` + entryColumns + ` FROM entries WHERE id = ?`
	e, err := scanEntry(r.db.QueryRowContext(ctx, q, id))
	if err != nil {
		return model.Entry{}, fmt.Errorf("get entry: %w", classify(err))
	}
	return e, nil
}

// ListForOwner returns the owner's entries ordered by date and entry number,
// newest first.
func (r *EntryRepo) ListForOwner(ctx context.Context, userID string, limit int) ([]model.Entry, error) {
	const q = `SELECT ` + entryColumns + `
		FROM entries WHERE user_id = ?
		ORDER BY date DESC, entry_number DESC
		LIMIT ?`
	rows, err := r.db.QueryContext(ctx, q, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", classify(err))
	}
	defer rows.Close()

	out := make([]model.Entry, 0)
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("list entries: %w", classify(err))
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list entries: %w", classify(err))
	}
	return out, nil
}

// Update rewrites the mutable columns. id, user_id, date, entry_number and
// created_at are never touched. It returns ErrNotFound when no row matches
// both id and owner.
func (r *EntryRepo) Update(ctx context.Context, e model.Entry) error {
	if err := r.checkCiphertext(e); err != nil {
		return err
	}
	drivers, err := encodeDrivers(e.LikelyDrivers)
	if err != nil {
		return err
	}
	const q = `UPDATE entries SET
			sleep_hours = ?, sleep_quality = ?, energy = ?, deep_work_blocks = ?,
			transcript = ?, reflection_summary = ?, likely_drivers = ?,
			predicted_impact = ?, experiment_for_tomorrow = ?,
			is_outlier = ?, is_follow_up = ?
		WHERE id = ? AND user_id = ?`
	res, err := r.db.ExecContext(ctx, q,
		e.SleepHours, e.SleepQuality, e.Energy, e.DeepWorkBlocks,
		e.Transcript, e.ReflectionSummary, drivers,
		e.PredictedImpact, e.ExperimentForTomorrow,
		e.IsOutlier, e.IsFollowUp,
		e.ID, e.UserID)
	if err != nil {
		return fmt.Errorf("update entry: %w", classify(err))
	}
	return affectedOne(res, "update entry")
}

// Delete removes the row matching id and owner.
func (r *EntryRepo) Delete(ctx context.Context, id, userID string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM entries WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("delete entry: %w", classify(err))
	}
	return affectedOne(res, "delete entry")
}

// MaxEntryNumber returns the highest entry number the owner has on date, or
// 0 when there is none.
func (r *EntryRepo) MaxEntryNumber(ctx context.Context, userID, date string) (int, error) {
	var n sql.NullInt64
	err := r.db.QueryRowContext(ctx,
		`SELECT MAX(entry_number) FROM entries WHERE user_id = ? AND date = ?`,
		userID, date).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("max entry number: %w", classify(err))
	}
	return int(n.Int64), nil
}

// CountDistinctDates returns how many different days appear among the owner's
// newest window entries.
func (r *EntryRepo) CountDistinctDates(ctx context.Context, userID string, window int) (int, error) {
	const q = `SELECT COUNT(DISTINCT date) FROM (
		SELECT date FROM entries WHERE user_id = ?
		ORDER BY date DESC, entry_number DESC
		LIMIT ?) AS recent`
	var n int
	err := r.db.QueryRowContext(ctx, q, userID, window).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count entry dates: %w", classify(err))
	}
	return n, nil
}

func (r *EntryRepo) checkCiphertext(e model.Entry) error {
	if !r.enforceCiphertext {
		return nil
	}
	for _, v := range []string{e.Transcript, e.ReflectionSummary} {
		if v != "" && !fieldcrypt.LooksEncrypted(v) {
			return ErrCiphertextRequired
		}
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(s rowScanner) (model.Entry, error) {
	var (
		e       model.Entry
		drivers string
	)
	err := s.Scan(&e.ID, &e.UserID, &e.Date, &e.SleepHours, &e.SleepQuality, &e.Energy, &e.DeepWorkBlocks,
		&e.Transcript, &e.ReflectionSummary, &drivers, &e.PredictedImpact, &e.ExperimentForTomorrow,
		&e.IsOutlier, &e.EntryNumber, &e.IsFollowUp, utcTime{&e.CreatedAt})
	if err != nil {
		return model.Entry{}, err
	}
	e.LikelyDrivers = decodeDrivers(drivers)
	return e, nil
}

func encodeDrivers(d []string) (string, error) {
	if len(d) == 0 {
		return "[]", nil
	}
	b, err := json.Marshal(d)
	if err != nil {
		return "", fmt.Errorf("encode likely_drivers: %w", err)
	}
	return string(b), nil
}

// decodeDrivers tolerates legacy or hand-edited values by falling back to an
// empty list.
func decodeDrivers(s string) []string {
	out := []string{}
	if s == "" {
		return out
	}
	if err := json.Unmarshal([]byte(s), &out); err != nil || out == nil {
		return []string{}
	}
	return out
}

func affectedOne(res sql.Result, op string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, classify(err))
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	return nil
}
