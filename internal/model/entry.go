package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Sensitive column names. Only these two columns are encrypted at rest.
const (
	FieldTranscript        = "transcript"
	FieldReflectionSummary = "reflection_summary"
)

// Entry represents one daily check-in as stored in the `entries` table.
// The json tags are omitted here because handlers define their own response
// types.
//
// Transcript and ReflectionSummary hold ciphertext when the struct travels
// between the service and the repository, and plaintext once the service has
// decrypted them for a response.
//
// Fields:
//
//	ID                    – UUID generated by the application.
//	UserID                – owning user; never reassigned.
//	Date                  – calendar day, YYYY-MM-DD.
//	EntryNumber           – 1 for the first check-in of the day, 2.. for follow-ups.
//	UnreadableFields      – sensitive fields that failed to decrypt on read; not persisted.
type Entry struct {
	ID                    string          // entries.id
	UserID                string          // entries.user_id
	Date                  string          // entries.date
	SleepHours            decimal.Decimal // entries.sleep_hours
	SleepQuality          int             // entries.sleep_quality
	Energy                int             // entries.energy
	DeepWorkBlocks        int             // entries.deep_work_blocks
	Transcript            string          // entries.transcript
	ReflectionSummary     string          // entries.reflection_summary
	LikelyDrivers         []string        // entries.likely_drivers (JSON array)
	PredictedImpact       string          // entries.predicted_impact
	ExperimentForTomorrow string          // entries.experiment_for_tomorrow
	IsOutlier             bool            // entries.is_outlier
	EntryNumber           int             // entries.entry_number
	IsFollowUp            bool            // entries.is_follow_up
	CreatedAt             time.Time       // entries.created_at (UTC)

	UnreadableFields []string
}
