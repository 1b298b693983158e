package handler

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iliyamo/signal-checkin/internal/model"
	"github.com/iliyamo/signal-checkin/internal/service"
)

// ----- DTOs -----

type entryReq struct {
	// UserID is the declared owner; omitted means the caller.
	UserID                string          `json:"user_id"`
	Date                  string          `json:"date"`
	SleepHours            decimal.Decimal `json:"sleep_hours"`
	SleepQuality          int             `json:"sleep_quality"`
	Energy                int             `json:"energy"`
	DeepWorkBlocks        int             `json:"deep_work_blocks"`
	Transcript            string          `json:"transcript"`
	ReflectionSummary     string          `json:"reflection_summary"`
	LikelyDrivers         []string        `json:"likely_drivers"`
	PredictedImpact       string          `json:"predicted_impact"`
	ExperimentForTomorrow string          `json:"experiment_for_tomorrow"`
	IsOutlier             bool            `json:"is_outlier"`
	EntryNumber           int             `json:"entry_number"`
	IsFollowUp            bool            `json:"is_follow_up"`
}

func (r entryReq) input() service.EntryInput {
	return service.EntryInput{
		UserID:                r.UserID,
		Date:                  r.Date,
		SleepHours:            r.SleepHours,
		SleepQuality:          r.SleepQuality,
		Energy:                r.Energy,
		DeepWorkBlocks:        r.DeepWorkBlocks,
		Transcript:            r.Transcript,
		ReflectionSummary:     r.ReflectionSummary,
		LikelyDrivers:         r.LikelyDrivers,
		PredictedImpact:       r.PredictedImpact,
		ExperimentForTomorrow: r.ExperimentForTomorrow,
		IsOutlier:             r.IsOutlier,
		EntryNumber:           r.EntryNumber,
		IsFollowUp:            r.IsFollowUp,
	}
}

type entryPatchReq struct {
	SleepHours            *decimal.Decimal `json:"sleep_hours"`
	SleepQuality          *int             `json:"sleep_quality"`
	Energy                *int             `json:"energy"`
	DeepWorkBlocks        *int             `json:"deep_work_blocks"`
	Transcript            *string          `json:"transcript"`
	ReflectionSummary     *string          `json:"reflection_summary"`
	LikelyDrivers         *[]string        `json:"likely_drivers"`
	PredictedImpact       *string          `json:"predicted_impact"`
	ExperimentForTomorrow *string          `json:"experiment_for_tomorrow"`
	IsOutlier             *bool            `json:"is_outlier"`
	IsFollowUp            *bool            `json:"is_follow_up"`

	// identity fields; present only to be refused
	UserID      *string `json:"user_id"`
	Date        *string `json:"date"`
	EntryNumber *int    `json:"entry_number"`
	CreatedAt   *string `json:"created_at"`
}

// immutable lists the identity fields a patch tried to set.
func (r entryPatchReq) immutable() []string {
	var out []string
	if r.UserID != nil {
		out = append(out, "user_id")
	}
	if r.Date != nil {
		out = append(out, "date")
	}
	if r.EntryNumber != nil {
		out = append(out, "entry_number")
	}
	if r.CreatedAt != nil {
		out = append(out, "created_at")
	}
	return out
}

func (r entryPatchReq) patch() service.EntryPatch {
	return service.EntryPatch{
		SleepHours:            r.SleepHours,
		SleepQuality:          r.SleepQuality,
		Energy:                r.Energy,
		DeepWorkBlocks:        r.DeepWorkBlocks,
		Transcript:            r.Transcript,
		ReflectionSummary:     r.ReflectionSummary,
		LikelyDrivers:         r.LikelyDrivers,
		PredictedImpact:       r.PredictedImpact,
		ExperimentForTomorrow: r.ExperimentForTomorrow,
		IsOutlier:             r.IsOutlier,
		IsFollowUp:            r.IsFollowUp,
	}
}

type entryResp struct {
	ID                    string      `json:"id"`
	UserID                string      `json:"user_id"`
	Date                  string      `json:"date"`
	SleepHours            json.Number `json:"sleep_hours"`
	SleepQuality          int         `json:"sleep_quality"`
	Energy                int         `json:"energy"`
	DeepWorkBlocks        int         `json:"deep_work_blocks"`
	Transcript            string      `json:"transcript"`
	ReflectionSummary     string      `json:"reflection_summary"`
	LikelyDrivers         []string    `json:"likely_drivers"`
	PredictedImpact       string      `json:"predicted_impact"`
	ExperimentForTomorrow string      `json:"experiment_for_tomorrow"`
	IsOutlier             bool        `json:"is_outlier"`
	EntryNumber           int         `json:"entry_number"`
	IsFollowUp            bool        `json:"is_follow_up"`
	CreatedAt             time.Time   `json:"created_at"`
	UnreadableFields      []string    `json:"unreadable_fields,omitempty"`
	IsFinalForDay         *bool       `json:"is_final_for_day,omitempty"`
}

func toEntryResp(e model.Entry) entryResp {
	drivers := e.LikelyDrivers
	if drivers == nil {
		drivers = []string{}
	}
	return entryResp{
		ID:                    e.ID,
		UserID:                e.UserID,
		Date:                  e.Date,
		SleepHours:            json.Number(e.SleepHours.String()),
		SleepQuality:          e.SleepQuality,
		Energy:                e.Energy,
		DeepWorkBlocks:        e.DeepWorkBlocks,
		Transcript:            e.Transcript,
		ReflectionSummary:     e.ReflectionSummary,
		LikelyDrivers:         drivers,
		PredictedImpact:       e.PredictedImpact,
		ExperimentForTomorrow: e.ExperimentForTomorrow,
		IsOutlier:             e.IsOutlier,
		EntryNumber:           e.EntryNumber,
		IsFollowUp:            e.IsFollowUp,
		CreatedAt:             e.CreatedAt,
		UnreadableFields:      e.UnreadableFields,
	}
}

type summaryResp struct {
	Locked              bool         `json:"locked"`
	EntriesCount        int          `json:"entries_count"`
	Needed              int          `json:"needed"`
	EntriesConsidered   int          `json:"entries_considered,omitempty"`
	AvgSleep            *json.Number `json:"avg_sleep,omitempty"`
	AvgSleepQuality     *json.Number `json:"avg_sleep_quality,omitempty"`
	AvgEnergy           *json.Number `json:"avg_energy,omitempty"`
	TotalDeepWorkBlocks int          `json:"total_deep_work_blocks"`
}

func toSummaryResp(s service.Summary) summaryResp {
	out := summaryResp{
		Locked:              s.Locked,
		EntriesCount:        s.DistinctDays,
		Needed:              s.DaysNeeded,
		EntriesConsidered:   s.EntriesConsidered,
		TotalDeepWorkBlocks: s.TotalDeepWorkBlocks,
	}
	if !s.Locked {
		out.AvgSleep = number(s.AvgSleepHours)
		out.AvgSleepQuality = number(s.AvgSleepQuality)
		out.AvgEnergy = number(s.AvgEnergy)
	}
	return out
}

func number(d decimal.Decimal) *json.Number {
	n := json.Number(d.String())
	return &n
}

type signupReq struct {
	Email string `json:"email"`
}

type signupResp struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

func toSignupResp(s model.Signup) signupResp {
	return signupResp{ID: s.ID, Email: s.Email, CreatedAt: s.CreatedAt}
}
