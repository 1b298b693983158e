package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/iliyamo/signal-checkin/internal/authz"
	"github.com/iliyamo/signal-checkin/internal/database"
	"github.com/iliyamo/signal-checkin/internal/fieldcrypt"
	"github.com/iliyamo/signal-checkin/internal/model"
	"github.com/iliyamo/signal-checkin/internal/queue"
	"github.com/iliyamo/signal-checkin/internal/repository"
	"github.com/iliyamo/signal-checkin/internal/utils"
)

const (
	u1 = "6f1c2a8e-3b7d-4c51-9a0e-2d4f8b6c1e3a"
	u2 = "0b9e7d65-1f2a-4c3b-8d4e-5a6b7c8d9e0f"

	jwtSecret = "service-test-secret-0123456789abcdef"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []queue.Event
	err    error
}

func (r *recordingPublisher) Publish(_ context.Context, ev queue.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return r.err
}

type fixture struct {
	j       *Journal
	db      *sql.DB
	entries *repository.EntryRepo
	crypt   *fieldcrypt.Gateway
	events  *recordingPublisher
}

func testGateway() *fieldcrypt.Gateway {
	var key [fieldcrypt.KeySize]byte
	copy(key[:], "0123456789abcdef0123456789abcdef")
	return fieldcrypt.New(key)
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := database.OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "journal.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	f := &fixture{
		db:      db,
		entries: repository.NewEntryRepo(db, true),
		crypt:   testGateway(),
		events:  &recordingPublisher{},
	}
	f.j = New(f.entries, repository.NewSignupRepo(db), f.crypt, f.events, zaptest.NewLogger(t),
		Options{Backoff: time.Millisecond})
	return f
}

func servicePrincipal(t *testing.T, sub string) authz.Principal {
	t.Helper()
	tok, err := utils.NewAccessToken(jwtSecret, sub, time.Hour, utils.TokenOptions{Audience: authz.DefaultAudience})
	require.NoError(t, err)
	claims, ok := authz.NewResolver(jwtSecret, "").Verify(tok.Bearer())
	require.True(t, ok)
	return authz.ServicePrincipal(claims)
}

func input(date string, n int) EntryInput {
	return EntryInput{
		Date:              date,
		SleepHours:        decimal.RequireFromString("7.5"),
		SleepQuality:      4,
		Energy:            3,
		DeepWorkBlocks:    2,
		Transcript:        "woke up at six, long walk",
		ReflectionSummary: "energy was steady after the walk",
		LikelyDrivers:     []string{"exercise", "  "},
		EntryNumber:       n,
		IsFollowUp:        n > 1,
	}
}

func ptr[T any](v T) *T { return &v }

func countEntries(t *testing.T, db *sql.DB) int {
	t.Helper()
	var n int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM entries").Scan(&n))
	return n
}

func TestScenarioOwnershipAndUniqueness(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	p1, p2 := authz.User(u1), authz.User(u2)

	first, err := f.j.SubmitEntry(ctx, p1, input("2024-01-01", 1))
	require.NoError(t, err)
	assert.Equal(t, u1, first.UserID)

	followUp, err := f.j.SubmitEntry(ctx, p1, input("2024-01-01", 2))
	require.NoError(t, err)
	assert.True(t, followUp.IsFollowUp)

	_, err = f.j.SubmitEntry(ctx, p1, input("2024-01-01", 2))
	assert.ErrorIs(t, err, ErrConflict)

	list, err := f.j.ListEntries(ctx, p1)
	require.NoError(t, err)
	assert.Len(t, list, 2)

	other, err := f.j.ListEntries(ctx, p2)
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestSubmitForAnotherOwnerIsDenied(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	in := input("2024-01-01", 1)
	in.UserID = u2
	_, err := f.j.SubmitEntry(ctx, authz.User(u1), in)
	assert.ErrorIs(t, err, ErrNotPermitted)
	assert.Equal(t, 0, countEntries(t, f.db))
}

func TestAnonymousIsDenied(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	e, err := f.j.SubmitEntry(ctx, authz.User(u1), input("2024-01-01", 1))
	require.NoError(t, err)

	anon := authz.Anonymous()
	_, err = f.j.SubmitEntry(ctx, anon, input("2024-01-02", 1))
	assert.ErrorIs(t, err, ErrNotPermitted)
	_, err = f.j.ListEntries(ctx, anon)
	assert.ErrorIs(t, err, ErrNotPermitted)
	_, err = f.j.UpdateEntry(ctx, anon, e.ID, EntryPatch{Energy: ptr(5)})
	assert.ErrorIs(t, err, ErrNotPermitted)
	assert.ErrorIs(t, f.j.DeleteEntry(ctx, anon, e.ID), ErrNotPermitted)
	_, err = f.j.GetEntry(ctx, anon, e.ID)
	assert.ErrorIs(t, err, ErrNotPermitted)
	_, err = f.j.Summarize(ctx, anon)
	assert.ErrorIs(t, err, ErrNotPermitted)

	assert.Equal(t, 1, countEntries(t, f.db))
}

func TestSleepHoursBoundaries(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	p := authz.User(u1)

	for i, hours := range []string{"0", "24"} {
		in := input(fmt.Sprintf("2024-01-0%d", i+1), 1)
		in.SleepHours = decimal.RequireFromString(hours)
		_, err := f.j.SubmitEntry(ctx, p, in)
		require.NoError(t, err, hours)
	}

	for _, hours := range []string{"-0.5", "24.5"} {
		in := input("2024-02-01", 1)
		in.SleepHours = decimal.RequireFromString(hours)
		_, err := f.j.SubmitEntry(ctx, p, in)
		var ve *ValidationError
		require.ErrorAs(t, err, &ve, hours)
		assert.Equal(t, []string{"sleep_hours_range"}, ve.Violations)
	}
	assert.Equal(t, 2, countEntries(t, f.db))
}

func TestValidationCollectsAllViolations(t *testing.T) {
	f := newFixture(t)
	in := input("2024-13-01", 1)
	in.Energy = 0
	in.Transcript = strings.Repeat("x", 10001)

	_, err := f.j.SubmitEntry(context.Background(), authz.User(u1), in)
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, []string{"energy_range", "transcript_length", "date_format"}, ve.Violations)
	assert.Contains(t, err.Error(), "energy_range")
}

func TestSensitiveFieldsAreCiphertextAtRest(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	in := input("2024-01-01", 1)
	in.Transcript = "  had a rough night\x00 "
	e, err := f.j.SubmitEntry(ctx, authz.User(u1), in)
	require.NoError(t, err)
	assert.Equal(t, "had a rough night", e.Transcript)
	assert.Equal(t, []string{"exercise"}, e.LikelyDrivers)

	var transcript, summary string
	require.NoError(t, f.db.QueryRow("SELECT transcript, reflection_summary FROM entries WHERE id = ?", e.ID).
		Scan(&transcript, &summary))
	assert.NotContains(t, transcript, "rough night")
	assert.True(t, fieldcrypt.LooksEncrypted(transcript))
	assert.True(t, fieldcrypt.LooksEncrypted(summary))

	pt, err := f.crypt.Decrypt(transcript)
	require.NoError(t, err)
	assert.Equal(t, "had a rough night", pt)

	list, err := f.j.ListEntries(ctx, authz.User(u1))
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "had a rough night", list[0].Transcript)
	assert.Empty(t, list[0].UnreadableFields)
}

func TestUnreadableFieldIsReportedNotFatal(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	e, err := f.j.SubmitEntry(ctx, authz.User(u1), input("2024-01-01", 1))
	require.NoError(t, err)

	_, err = f.db.Exec("UPDATE entries SET transcript = ? WHERE id = ?", "enc1-"+strings.Repeat("QUJD", 20), e.ID)
	require.NoError(t, err)

	list, err := f.j.ListEntries(ctx, authz.User(u1))
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Empty(t, list[0].Transcript)
	assert.Equal(t, []string{model.FieldTranscript}, list[0].UnreadableFields)
	assert.Equal(t, "energy was steady after the walk", list[0].ReflectionSummary)

	// patching another field keeps the stored transcript as is
	updated, err := f.j.UpdateEntry(ctx, authz.User(u1), e.ID, EntryPatch{Energy: ptr(5)})
	require.NoError(t, err)
	assert.Equal(t, 5, updated.Energy)
	assert.Equal(t, []string{model.FieldTranscript}, updated.UnreadableFields)

	// replacing it makes the entry readable again
	updated, err = f.j.UpdateEntry(ctx, authz.User(u1), e.ID, EntryPatch{Transcript: ptr("rewritten")})
	require.NoError(t, err)
	assert.Equal(t, "rewritten", updated.Transcript)
	assert.Empty(t, updated.UnreadableFields)
}

func TestUpdateEntry(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	e, err := f.j.SubmitEntry(ctx, authz.User(u1), input("2024-01-01", 1))
	require.NoError(t, err)

	t.Run("owner patches", func(t *testing.T) {
		got, err := f.j.UpdateEntry(ctx, authz.User(u1), e.ID, EntryPatch{
			SleepHours:    ptr(decimal.RequireFromString("8")),
			Transcript:    ptr("updated text"),
			LikelyDrivers: ptr([]string{"late coffee"}),
			IsOutlier:     ptr(true),
		})
		require.NoError(t, err)
		assert.Equal(t, u1, got.UserID)
		assert.Equal(t, "2024-01-01", got.Date)
		assert.Equal(t, "updated text", got.Transcript)
		assert.Equal(t, "energy was steady after the walk", got.ReflectionSummary)
		assert.True(t, got.IsOutlier)
		assert.True(t, e.CreatedAt.Equal(got.CreatedAt))

		detail, err := f.j.GetEntry(ctx, authz.User(u1), e.ID)
		require.NoError(t, err)
		assert.Equal(t, "updated text", detail.Transcript)
		assert.Equal(t, []string{"late coffee"}, detail.LikelyDrivers)
		assert.True(t, detail.SleepHours.Equal(decimal.NewFromInt(8)))
	})

	t.Run("merged candidate is revalidated", func(t *testing.T) {
		_, err := f.j.UpdateEntry(ctx, authz.User(u1), e.ID, EntryPatch{SleepQuality: ptr(9)})
		var ve *ValidationError
		require.ErrorAs(t, err, &ve)
		assert.Equal(t, []string{"sleep_quality_range"}, ve.Violations)
	})

	t.Run("other user sees not found", func(t *testing.T) {
		_, err := f.j.UpdateEntry(ctx, authz.User(u2), e.ID, EntryPatch{Energy: ptr(1)})
		assert.ErrorIs(t, err, ErrNotFound)

		got, err := f.j.GetEntry(ctx, authz.User(u1), e.ID)
		require.NoError(t, err)
		assert.NotEqual(t, 1, got.Energy)
	})

	t.Run("unknown id", func(t *testing.T) {
		_, err := f.j.UpdateEntry(ctx, authz.User(u1), "11111111-2222-3333-4444-555555555555", EntryPatch{})
		assert.ErrorIs(t, err, ErrNotFound)
		_, err = f.j.UpdateEntry(ctx, authz.User(u1), "not-a-uuid", EntryPatch{})
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestDeleteEntry(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	e, err := f.j.SubmitEntry(ctx, authz.User(u1), input("2024-01-01", 1))
	require.NoError(t, err)

	assert.ErrorIs(t, f.j.DeleteEntry(ctx, authz.User(u2), e.ID), ErrNotFound)
	require.NoError(t, f.j.DeleteEntry(ctx, authz.User(u1), e.ID))
	assert.ErrorIs(t, f.j.DeleteEntry(ctx, authz.User(u1), e.ID), ErrNotFound)
	assert.Equal(t, 0, countEntries(t, f.db))
}

func TestGetEntryFinalForDay(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	p := authz.User(u1)
	first, err := f.j.SubmitEntry(ctx, p, input("2024-01-01", 1))
	require.NoError(t, err)

	d, err := f.j.GetEntry(ctx, p, first.ID)
	require.NoError(t, err)
	assert.True(t, d.IsFinalForDay)

	second, err := f.j.SubmitEntry(ctx, p, input("2024-01-01", 2))
	require.NoError(t, err)

	d, err = f.j.GetEntry(ctx, p, first.ID)
	require.NoError(t, err)
	assert.False(t, d.IsFinalForDay)

	d, err = f.j.GetEntry(ctx, p, second.ID)
	require.NoError(t, err)
	assert.True(t, d.IsFinalForDay)

	_, err = f.j.GetEntry(ctx, authz.User(u2), second.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestServicePrincipalActsForVerifiedOwnerOnly(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	svc := servicePrincipal(t, u1)

	e, err := f.j.SubmitEntry(ctx, svc, input("2024-01-01", 1))
	require.NoError(t, err)
	assert.Equal(t, u1, e.UserID)

	in := input("2024-01-02", 1)
	in.UserID = u2
	_, err = f.j.SubmitEntry(ctx, svc, in)
	assert.ErrorIs(t, err, ErrNotPermitted)

	list, err := f.j.ListEntries(ctx, svc)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestSignups(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	s, err := f.j.SubmitSignup(ctx, authz.Anonymous(), "  Grace@Example.com")
	require.NoError(t, err)
	assert.Equal(t, "grace@example.com", s.Email)

	_, err = f.j.SubmitSignup(ctx, authz.User(u1), "grace@example.com")
	assert.ErrorIs(t, err, ErrConflict)

	_, err = f.j.SubmitSignup(ctx, authz.Anonymous(), "not-an-email")
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, []string{"email_format"}, ve.Violations)

	_, err = f.j.ListSignups(ctx, authz.User(u1))
	assert.ErrorIs(t, err, ErrNotPermitted)
	_, err = f.j.ListSignups(ctx, authz.Anonymous())
	assert.ErrorIs(t, err, ErrNotPermitted)

	list, err := f.j.ListSignups(ctx, servicePrincipal(t, u1))
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, s.ID, list[0].ID)
}

func TestSummarize(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	p := authz.User(u1)

	for d := 1; d <= 6; d++ {
		_, err := f.j.SubmitEntry(ctx, p, input(fmt.Sprintf("2024-01-%02d", d), 1))
		require.NoError(t, err)
	}
	// a follow-up does not add a day
	_, err := f.j.SubmitEntry(ctx, p, input("2024-01-06", 2))
	require.NoError(t, err)

	s, err := f.j.Summarize(ctx, p)
	require.NoError(t, err)
	assert.True(t, s.Locked)
	assert.Equal(t, 6, s.DistinctDays)
	assert.Equal(t, SummaryDaysNeeded, s.DaysNeeded)

	in := input("2024-01-07", 1)
	in.SleepHours = decimal.RequireFromString("6")
	in.Energy = 5
	_, err = f.j.SubmitEntry(ctx, p, in)
	require.NoError(t, err)

	s, err = f.j.Summarize(ctx, p)
	require.NoError(t, err)
	assert.False(t, s.Locked)
	assert.Equal(t, 7, s.DistinctDays)
	assert.Equal(t, 8, s.EntriesConsidered)
	// (7 * 7.5 + 6) / 8 = 7.3125
	assert.Equal(t, "7.3", s.AvgSleepHours.String())
	assert.Equal(t, "3.3", s.AvgEnergy.String())
	assert.Equal(t, "4", s.AvgSleepQuality.String())
	assert.Equal(t, 16, s.TotalDeepWorkBlocks)
}

func TestEventsCarryNoText(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.j.SubmitEntry(ctx, authz.User(u1), input("2024-01-01", 1))
	require.NoError(t, err)
	_, err = f.j.SubmitSignup(ctx, authz.Anonymous(), "ada@example.com")
	require.NoError(t, err)

	require.Len(t, f.events.events, 2)
	ev, ok := f.events.events[0].(queue.EntrySubmittedEvent)
	require.True(t, ok)
	assert.Equal(t, u1, ev.UserID)
	assert.Equal(t, "2024-01-01", ev.Date)
	assert.NotContains(t, fmt.Sprintf("%+v", ev), "walk")
	assert.Equal(t, queue.SignupCreatedQueue, f.events.events[1].QueueName())
}

func TestPublishFailureDoesNotFailRequest(t *testing.T) {
	f := newFixture(t)
	f.events.err = errors.New("broker down")
	_, err := f.j.SubmitEntry(context.Background(), authz.User(u1), input("2024-01-01", 1))
	require.NoError(t, err)
}

// flakyEntries fails the first n calls of the wrapped operations with a
// transient error.
type flakyEntries struct {
	repository.EntryStore
	mu          sync.Mutex
	failures    int
	commitFirst bool // the first failing Insert still writes the row
	inserts     int
	lists       int
}

func (f *flakyEntries) fail() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failures > 0 {
		f.failures--
		return true
	}
	return false
}

func (f *flakyEntries) Insert(ctx context.Context, e model.Entry) error {
	f.mu.Lock()
	f.inserts++
	first := f.inserts == 1
	f.mu.Unlock()
	if f.fail() {
		if first && f.commitFirst {
			if err := f.EntryStore.Insert(ctx, e); err != nil {
				return err
			}
		}
		return fmt.Errorf("insert entry: %w", repository.ErrUnavailable)
	}
	return f.EntryStore.Insert(ctx, e)
}

func (f *flakyEntries) ListForOwner(ctx context.Context, userID string, limit int) ([]model.Entry, error) {
	f.mu.Lock()
	f.lists++
	f.mu.Unlock()
	if f.fail() {
		return nil, repository.ErrUnavailable
	}
	return f.EntryStore.ListForOwner(ctx, userID, limit)
}

func newFlakyJournal(t *testing.T, flaky *flakyEntries, retries int) (*Journal, *sql.DB) {
	t.Helper()
	f := newFixture(t)
	flaky.EntryStore = f.entries
	j := New(flaky, repository.NewSignupRepo(f.db), f.crypt, nil, zaptest.NewLogger(t),
		Options{Retries: retries, Backoff: time.Millisecond})
	return j, f.db
}

func TestTransientFailuresAreRetried(t *testing.T) {
	flaky := &flakyEntries{failures: 2}
	j, db := newFlakyJournal(t, flaky, 3)

	_, err := j.SubmitEntry(context.Background(), authz.User(u1), input("2024-01-01", 1))
	require.NoError(t, err)
	assert.Equal(t, 3, flaky.inserts)
	assert.Equal(t, 1, countEntries(t, db))
}

func TestRetriedInsertThatAlreadyLandedSucceeds(t *testing.T) {
	flaky := &flakyEntries{failures: 1, commitFirst: true}
	j, db := newFlakyJournal(t, flaky, 3)

	_, err := j.SubmitEntry(context.Background(), authz.User(u1), input("2024-01-01", 1))
	require.NoError(t, err)
	assert.Equal(t, 2, flaky.inserts)
	assert.Equal(t, 1, countEntries(t, db))
}

func TestRetriesAreBounded(t *testing.T) {
	flaky := &flakyEntries{failures: 10}
	j, _ := newFlakyJournal(t, flaky, 3)

	_, err := j.ListEntries(context.Background(), authz.User(u1))
	assert.ErrorIs(t, err, ErrStorage)
	assert.Equal(t, 3, flaky.lists)
}

// countingEntries counts ListForOwner calls and records whether each one ran
// under a deadline.
type countingEntries struct {
	repository.EntryStore
	mu        sync.Mutex
	lists     int
	deadlines []bool
}

func (c *countingEntries) ListForOwner(ctx context.Context, userID string, limit int) ([]model.Entry, error) {
	_, ok := ctx.Deadline()
	c.mu.Lock()
	c.lists++
	c.deadlines = append(c.deadlines, ok)
	c.mu.Unlock()
	return c.EntryStore.ListForOwner(ctx, userID, limit)
}

func TestStoreTimeoutIsTransientAndBounded(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	_, err := f.j.SubmitEntry(ctx, authz.User(u1), input("2024-01-01", 1))
	require.NoError(t, err)

	// the SQLite pool has a single connection; holding it makes every
	// query wait until its deadline
	conn, err := f.db.Conn(ctx)
	require.NoError(t, err)

	counter := &countingEntries{EntryStore: f.entries}
	j := New(counter, repository.NewSignupRepo(f.db), f.crypt, f.events, zaptest.NewLogger(t),
		Options{StoreTimeout: 20 * time.Millisecond, Retries: 2, Backoff: time.Millisecond})

	start := time.Now()
	_, err = j.ListEntries(ctx, authz.User(u1))
	assert.ErrorIs(t, err, ErrStorage)
	assert.Equal(t, 2, counter.lists)
	assert.Equal(t, []bool{true, true}, counter.deadlines)
	assert.Less(t, time.Since(start), 2*time.Second)

	require.NoError(t, conn.Close())
	rows, err := j.ListEntries(ctx, authz.User(u1))
	require.NoError(t, err)
	assert.Len(t, rows, 1)
	assert.Equal(t, 3, counter.lists)
}

func TestSummaryGateLooksAtRecentEntries(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	p := authz.User(u1)

	for d := 1; d <= 7; d++ {
		_, err := f.j.SubmitEntry(ctx, p, input(fmt.Sprintf("2024-01-%02d", d), 1))
		require.NoError(t, err)
	}
	s, err := f.j.Summarize(ctx, p)
	require.NoError(t, err)
	require.False(t, s.Locked)

	// a later day with enough check-ins to fill the lookback on its own
	for n := 1; n <= SummaryLookback; n++ {
		_, err := f.j.SubmitEntry(ctx, p, input("2024-01-08", n))
		require.NoError(t, err)
	}
	s, err = f.j.Summarize(ctx, p)
	require.NoError(t, err)
	assert.True(t, s.Locked)
	assert.Equal(t, 1, s.DistinctDays)
}

func TestDeterministicErrorsAreNotRetried(t *testing.T) {
	flaky := &flakyEntries{}
	j, _ := newFlakyJournal(t, flaky, 3)

	in := input("2024-01-01", 1)
	in.Energy = 9
	_, err := j.SubmitEntry(context.Background(), authz.User(u1), in)
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, 0, flaky.inserts)

	_, err = j.SubmitEntry(context.Background(), authz.Anonymous(), input("2024-01-01", 1))
	assert.ErrorIs(t, err, ErrNotPermitted)
	assert.Equal(t, 0, flaky.inserts)

	_, err = j.SubmitEntry(context.Background(), authz.User(u1), input("2024-01-01", 1))
	require.NoError(t, err)
	_, err = j.SubmitEntry(context.Background(), authz.User(u1), input("2024-01-01", 1))
	assert.ErrorIs(t, err, ErrConflict)
	assert.Equal(t, 2, flaky.inserts)
}

func TestErrConflictWrapsRepositorySentinel(t *testing.T) {
	assert.ErrorIs(t, ErrConflict, repository.ErrConflict)
	assert.ErrorIs(t, ErrNotFound, repository.ErrNotFound)
}
