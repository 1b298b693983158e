package model

import "time"

// Signup is a beta waitlist registration from the `signups` table. Rows are
// append-only.
type Signup struct {
	ID        string    // signups.id
	Email     string    // signups.email, trimmed and lower-cased
	CreatedAt time.Time // signups.created_at (UTC)
}
