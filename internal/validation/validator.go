// Package validation checks journal entry candidates against the domain
// constraints before anything is encrypted or stored.
package validation

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

// Violation identifiers, reported in this order.
const (
	SleepHoursRange         = "sleep_hours_range"
	SleepQualityRange       = "sleep_quality_range"
	EnergyRange             = "energy_range"
	DeepWorkBlocksRange     = "deep_work_blocks_range"
	TranscriptLength        = "transcript_length"
	ReflectionSummaryLength = "reflection_summary_length"
	DateFormat              = "date_format"
	EntryNumberRange        = "entry_number_range"
)

// Limits on free-text fields, counted in characters of plaintext.
const (
	MaxTranscriptChars        = 10000
	MaxReflectionSummaryChars = 15000
	MaxEntryNumber            = 32767

	// SleepHoursPlaces is the number of decimal places sleep_hours keeps
	// in storage (DECIMAL(4,2)).
	SleepHoursPlaces = 2
)

const dateLayout = "2006-01-02"

var maxSleepHours = decimal.NewFromInt(24)

// Candidate is the plaintext view of an entry about to be persisted. For an
// update it is the stored entry with the patch applied.
type Candidate struct {
	Date              string
	SleepHours        decimal.Decimal
	SleepQuality      int
	Energy            int
	DeepWorkBlocks    int
	Transcript        string
	ReflectionSummary string
	EntryNumber       int
}

// Validate returns the identifiers of every violated constraint. A nil result
// means c may be persisted.
func Validate(c Candidate) []string {
	var v []string
	if c.SleepHours.IsNegative() || c.SleepHours.GreaterThan(maxSleepHours) ||
		!c.SleepHours.Equal(c.SleepHours.Truncate(SleepHoursPlaces)) {
		v = append(v, SleepHoursRange)
	}
	if !inRange(c.SleepQuality, 1, 5) {
		v = append(v, SleepQualityRange)
	}
	if !inRange(c.Energy, 1, 5) {
		v = append(v, EnergyRange)
	}
	if !inRange(c.DeepWorkBlocks, 0, 5) {
		v = append(v, DeepWorkBlocksRange)
	}
	if utf8.RuneCountInString(c.Transcript) > MaxTranscriptChars {
		v = append(v, TranscriptLength)
	}
	if utf8.RuneCountInString(c.ReflectionSummary) > MaxReflectionSummaryChars {
		v = append(v, ReflectionSummaryLength)
	}
	if !ValidDate(c.Date) {
		v = append(v, DateFormat)
	}
	if !inRange(c.EntryNumber, 1, MaxEntryNumber) {
		v = append(v, EntryNumberRange)
	}
	return v
}

// ValidDate reports whether s is a real calendar date written YYYY-MM-DD.
func ValidDate(s string) bool {
	if len(s) != len(dateLayout) {
		return false
	}
	_, err := time.Parse(dateLayout, s)
	return err == nil
}

// Sanitize removes C0 control characters other than tab, newline and carriage
// return, then trims surrounding whitespace.
func Sanitize(s string) string {
	if s == "" {
		return ""
	}
	clean := strings.Map(func(r rune) rune {
		switch {
		case r == '\t' || r == '\n' || r == '\r':
			return r
		case r < 0x20:
			return -1
		}
		return r
	}, s)
	return strings.TrimSpace(clean)
}

func inRange(n, lo, hi int) bool { return n >= lo && n <= hi }
