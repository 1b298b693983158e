package service

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/iliyamo/signal-checkin/internal/authz"
	"github.com/iliyamo/signal-checkin/internal/model"
)

const (
	// SummaryDaysNeeded is how many distinct check-in days unlock a summary.
	SummaryDaysNeeded = 7
	// SummaryLookback is how many recent entries are searched for distinct
	// days.
	SummaryLookback = 30
	// SummaryWindow is how many recent entries the averages cover.
	SummaryWindow = 14
)

// Summary aggregates the numeric fields of a principal's recent entries. It
// never contains journal text.
type Summary struct {
	Locked              bool
	DistinctDays        int
	DaysNeeded          int
	EntriesConsidered   int
	AvgSleepHours       decimal.Decimal
	AvgSleepQuality     decimal.Decimal
	AvgEnergy           decimal.Decimal
	TotalDeepWorkBlocks int
}

// Summarize reports averages over the latest entries once the principal's
// newest SummaryLookback entries span enough distinct days.
func (j *Journal) Summarize(ctx context.Context, p authz.Principal) (Summary, error) {
	owner, ok := authz.ReadScope(p)
	if !ok || !authz.Authorize(p, authz.OpRead, authz.ResourceEntry, owner) {
		j.deny(p, "summarize")
		return Summary{}, ErrNotPermitted
	}

	s := Summary{DaysNeeded: SummaryDaysNeeded}
	err := j.withStore(ctx, "count entry dates", func(ctx context.Context, _ int) error {
		var err error
		s.DistinctDays, err = j.entries.CountDistinctDates(ctx, owner, SummaryLookback)
		return err
	})
	if err != nil {
		return Summary{}, storeError("summarize", err)
	}
	if s.DistinctDays < SummaryDaysNeeded {
		s.Locked = true
		return s, nil
	}

	var rows []model.Entry
	err = j.withStore(ctx, "list entries", func(ctx context.Context, _ int) error {
		var err error
		rows, err = j.entries.ListForOwner(ctx, owner, SummaryWindow)
		return err
	})
	if err != nil {
		return Summary{}, storeError("summarize", err)
	}

	var sleep, quality, energy decimal.Decimal
	for _, e := range rows {
		sleep = sleep.Add(e.SleepHours)
		quality = quality.Add(decimal.NewFromInt(int64(e.SleepQuality)))
		energy = energy.Add(decimal.NewFromInt(int64(e.Energy)))
		s.TotalDeepWorkBlocks += e.DeepWorkBlocks
	}
	s.EntriesConsidered = len(rows)
	if n := decimal.NewFromInt(int64(len(rows))); len(rows) > 0 {
		s.AvgSleepHours = sleep.Div(n).Round(1)
		s.AvgSleepQuality = quality.Div(n).Round(1)
		s.AvgEnergy = energy.Div(n).Round(1)
	}
	return s, nil
}
