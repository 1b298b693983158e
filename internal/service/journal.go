// Package service is the access boundary of the check-in backend. Every
// operation takes the caller's principal, and nothing reaches a store until
// the policy has allowed it. Sensitive text is validated as plaintext,
// encrypted before it is handed to the store, and decrypted only on the way
// out.
package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/iliyamo/signal-checkin/internal/authz"
	"github.com/iliyamo/signal-checkin/internal/fieldcrypt"
	"github.com/iliyamo/signal-checkin/internal/model"
	"github.com/iliyamo/signal-checkin/internal/queue"
	"github.com/iliyamo/signal-checkin/internal/repository"
	"github.com/iliyamo/signal-checkin/internal/validation"
)

// EventPublisher delivers domain events. Failures never fail the request.
type EventPublisher interface {
	Publish(ctx context.Context, ev queue.Event) error
}

// Options tunes storage access. Zero fields take the defaults.
type Options struct {
	StoreTimeout time.Duration // per attempt; default 5s
	Retries      int           // attempts on transient failure; default 3
	Backoff      time.Duration // first retry delay, doubled each time; default 50ms
	ListLimit    int           // max entries per listing; default 90
}

func (o Options) withDefaults() Options {
	if o.StoreTimeout <= 0 {
		o.StoreTimeout = 5 * time.Second
	}
	if o.Retries <= 0 {
		o.Retries = 3
	}
	if o.Backoff <= 0 {
		o.Backoff = 50 * time.Millisecond
	}
	if o.ListLimit <= 0 {
		o.ListLimit = 90
	}
	return o
}

const publishTimeout = 2 * time.Second

// Journal implements the entry and signup operations.
type Journal struct {
	entries repository.EntryStore
	signups repository.SignupStore
	crypt   *fieldcrypt.Gateway
	events  EventPublisher
	log     *zap.Logger
	opts    Options

	now   func() time.Time
	newID func() string
}

// New wires a Journal. events and log may be nil.
func New(entries repository.EntryStore, signups repository.SignupStore, crypt *fieldcrypt.Gateway,
	events EventPublisher, log *zap.Logger, opts Options) *Journal {
	if log == nil {
		log = zap.NewNop()
	}
	return &Journal{
		entries: entries,
		signups: signups,
		crypt:   crypt,
		events:  events,
		log:     log.Named("journal"),
		opts:    opts.withDefaults(),
		now:     func() time.Time { return time.Now().UTC() },
		newID:   uuid.NewString,
	}
}

// EntryInput is a new check-in as submitted. Text fields are plaintext.
type EntryInput struct {
	// UserID is the declared owner. Empty means the principal's own id.
	UserID                string
	Date                  string
	SleepHours            decimal.Decimal
	SleepQuality          int
	Energy                int
	DeepWorkBlocks        int
	Transcript            string
	ReflectionSummary     string
	LikelyDrivers         []string
	PredictedImpact       string
	ExperimentForTomorrow string
	IsOutlier             bool
	// EntryNumber defaults to 1.
	EntryNumber int
	IsFollowUp  bool
}

// EntryPatch changes selected fields of an entry. Nil fields are left as
// they are. The date and entry number are part of the entry's identity and
// cannot be patched.
type EntryPatch struct {
	SleepHours            *decimal.Decimal
	SleepQuality          *int
	Energy                *int
	DeepWorkBlocks        *int
	Transcript            *string
	ReflectionSummary     *string
	LikelyDrivers         *[]string
	PredictedImpact       *string
	ExperimentForTomorrow *string
	IsOutlier             *bool
	IsFollowUp            *bool
}

// EntryDetail is a single entry plus whether it is the last check-in of its
// day.
type EntryDetail struct {
	model.Entry
	IsFinalForDay bool
}

// SubmitEntry validates, encrypts and stores a new entry for the declared
// owner.
func (j *Journal) SubmitEntry(ctx context.Context, p authz.Principal, in EntryInput) (model.Entry, error) {
	owner := in.UserID
	if owner == "" {
		owner, _ = authz.ReadScope(p)
	}
	if in.EntryNumber == 0 {
		in.EntryNumber = 1
	}

	e := model.Entry{
		ID:                    j.newID(),
		UserID:                owner,
		Date:                  in.Date,
		SleepHours:            in.SleepHours,
		SleepQuality:          in.SleepQuality,
		Energy:                in.Energy,
		DeepWorkBlocks:        in.DeepWorkBlocks,
		Transcript:            validation.Sanitize(in.Transcript),
		ReflectionSummary:     validation.Sanitize(in.ReflectionSummary),
		LikelyDrivers:         sanitizeList(in.LikelyDrivers),
		PredictedImpact:       validation.Sanitize(in.PredictedImpact),
		ExperimentForTomorrow: validation.Sanitize(in.ExperimentForTomorrow),
		IsOutlier:             in.IsOutlier,
		EntryNumber:           in.EntryNumber,
		IsFollowUp:            in.IsFollowUp,
		CreatedAt:             j.now(),
	}
	if v := validation.Validate(candidate(e)); len(v) > 0 {
		return model.Entry{}, &ValidationError{Violations: v}
	}

	sealed, err := j.seal(e)
	if err != nil {
		return model.Entry{}, err
	}

	if !authz.Authorize(p, authz.OpInsert, authz.ResourceEntry, owner) {
		j.deny(p, "submit entry")
		return model.Entry{}, ErrNotPermitted
	}

	err = j.withStore(ctx, "insert entry", func(ctx context.Context, attempt int) error {
		err := j.entries.Insert(ctx, sealed)
		if attempt > 1 && errors.Is(err, repository.ErrConflict) && j.ownInsertLanded(ctx, sealed) {
			// an earlier attempt committed before its error reached us
			return nil
		}
		return err
	})
	if err != nil {
		return model.Entry{}, storeError("submit entry", err)
	}

	j.log.Info("entry submitted",
		zap.String("entry_id", e.ID),
		zap.Stringer("principal", p),
		zap.String("date", e.Date),
		zap.Int("entry_number", e.EntryNumber))
	j.publish(ctx, queue.EntrySubmittedEvent{
		EntryID:     e.ID,
		UserID:      e.UserID,
		Date:        e.Date,
		EntryNumber: e.EntryNumber,
		IsFollowUp:  e.IsFollowUp,
		OccurredAt:  e.CreatedAt.Format(time.RFC3339),
	})
	return e, nil
}

// ownInsertLanded reports whether a row with e's generated id and owner is
// already stored.
func (j *Journal) ownInsertLanded(ctx context.Context, e model.Entry) bool {
	got, err := j.entries.Get(ctx, e.ID)
	return err == nil && got.UserID == e.UserID
}

// UpdateEntry applies patch to an entry the principal owns. The merged entry
// is validated as a whole before anything is written.
func (j *Journal) UpdateEntry(ctx context.Context, p authz.Principal, id string, patch EntryPatch) (model.Entry, error) {
	stored, err := j.loadOwned(ctx, p, authz.OpUpdate, id)
	if err != nil {
		return model.Entry{}, err
	}

	// work on the plaintext view; unreadable fields keep their stored value
	current := j.open(stored)
	merged := current
	merged.UnreadableFields = nil
	applyPatch(&merged, patch)

	if v := validation.Validate(candidate(merged)); len(v) > 0 {
		return model.Entry{}, &ValidationError{Violations: v}
	}

	sealed := merged
	if patch.Transcript != nil {
		if sealed.Transcript, err = j.encrypt(merged.Transcript, model.FieldTranscript); err != nil {
			return model.Entry{}, err
		}
	} else {
		sealed.Transcript = stored.Transcript
	}
	if patch.ReflectionSummary != nil {
		if sealed.ReflectionSummary, err = j.encrypt(merged.ReflectionSummary, model.FieldReflectionSummary); err != nil {
			return model.Entry{}, err
		}
	} else {
		sealed.ReflectionSummary = stored.ReflectionSummary
	}

	if !authz.Authorize(p, authz.OpUpdate, authz.ResourceEntry, stored.UserID) {
		j.deny(p, "update entry")
		return model.Entry{}, ErrNotPermitted
	}
	err = j.withStore(ctx, "update entry", func(ctx context.Context, _ int) error {
		return j.entries.Update(ctx, sealed)
	})
	if err != nil {
		return model.Entry{}, storeError("update entry", err)
	}

	j.log.Info("entry updated", zap.String("entry_id", id), zap.Stringer("principal", p))
	return j.open(sealed), nil
}

// DeleteEntry removes an entry the principal owns.
func (j *Journal) DeleteEntry(ctx context.Context, p authz.Principal, id string) error {
	stored, err := j.loadOwned(ctx, p, authz.OpDelete, id)
	if err != nil {
		return err
	}
	err = j.withStore(ctx, "delete entry", func(ctx context.Context, _ int) error {
		return j.entries.Delete(ctx, stored.ID, stored.UserID)
	})
	if err != nil {
		return storeError("delete entry", err)
	}
	j.log.Info("entry deleted", zap.String("entry_id", id), zap.Stringer("principal", p))
	return nil
}

// ListEntries returns the principal's own entries, newest first, with
// sensitive fields decrypted. Fields that fail to decrypt are left empty and
// named in UnreadableFields.
func (j *Journal) ListEntries(ctx context.Context, p authz.Principal) ([]model.Entry, error) {
	owner, ok := authz.ReadScope(p)
	if !ok || !authz.Authorize(p, authz.OpRead, authz.ResourceEntry, owner) {
		j.deny(p, "list entries")
		return nil, ErrNotPermitted
	}

	var rows []model.Entry
	err := j.withStore(ctx, "list entries", func(ctx context.Context, _ int) error {
		var err error
		rows, err = j.entries.ListForOwner(ctx, owner, j.opts.ListLimit)
		return err
	})
	if err != nil {
		return nil, storeError("list entries", err)
	}

	out := make([]model.Entry, 0, len(rows))
	for _, row := range rows {
		// the store is trusted for scoping, but a row for another owner is
		// never returned
		if row.UserID != owner {
			continue
		}
		out = append(out, j.open(row))
	}
	return out, nil
}

// GetEntry returns one entry the principal owns.
func (j *Journal) GetEntry(ctx context.Context, p authz.Principal, id string) (EntryDetail, error) {
	stored, err := j.loadOwned(ctx, p, authz.OpRead, id)
	if err != nil {
		return EntryDetail{}, err
	}

	var maxNum int
	err = j.withStore(ctx, "max entry number", func(ctx context.Context, _ int) error {
		var err error
		maxNum, err = j.entries.MaxEntryNumber(ctx, stored.UserID, stored.Date)
		return err
	})
	if err != nil {
		return EntryDetail{}, storeError("get entry", err)
	}
	return EntryDetail{
		Entry:         j.open(stored),
		IsFinalForDay: stored.EntryNumber >= maxNum,
	}, nil
}

// loadOwned fetches entry id and checks that p may perform op on it. Rows
// owned by someone else are reported as ErrNotFound so their existence is
// not revealed.
func (j *Journal) loadOwned(ctx context.Context, p authz.Principal, op authz.Op, id string) (model.Entry, error) {
	owner, ok := authz.ReadScope(p)
	if !ok || !authz.Authorize(p, op, authz.ResourceEntry, owner) {
		j.deny(p, op.String()+" entry")
		return model.Entry{}, ErrNotPermitted
	}
	if _, err := uuid.Parse(id); err != nil {
		return model.Entry{}, ErrNotFound
	}

	var stored model.Entry
	err := j.withStore(ctx, "get entry", func(ctx context.Context, _ int) error {
		var err error
		stored, err = j.entries.Get(ctx, id)
		return err
	})
	if err != nil {
		return model.Entry{}, storeError("get entry", err)
	}
	if !authz.Authorize(p, op, authz.ResourceEntry, stored.UserID) {
		return model.Entry{}, ErrNotFound
	}
	return stored, nil
}

// SubmitSignup registers email for the beta waitlist.
func (j *Journal) SubmitSignup(ctx context.Context, p authz.Principal, email string) (model.Signup, error) {
	email = repository.NormalizeEmail(email)
	if !validEmail(email) {
		return model.Signup{}, &ValidationError{Violations: []string{"email_format"}}
	}
	if !authz.Authorize(p, authz.OpInsert, authz.ResourceSignup, "") {
		j.deny(p, "submit signup")
		return model.Signup{}, ErrNotPermitted
	}

	s := model.Signup{ID: j.newID(), Email: email, CreatedAt: j.now()}
	err := j.withStore(ctx, "insert signup", func(ctx context.Context, _ int) error {
		return j.signups.InsertIfAbsent(ctx, s)
	})
	if err != nil {
		return model.Signup{}, storeError("submit signup", err)
	}

	j.log.Info("signup created", zap.String("signup_id", s.ID))
	j.publish(ctx, queue.SignupCreatedEvent{
		SignupID:   s.ID,
		Email:      s.Email,
		OccurredAt: s.CreatedAt.Format(time.RFC3339),
	})
	return s, nil
}

// ListSignups returns the newest signups. Only a service principal may read
// them.
func (j *Journal) ListSignups(ctx context.Context, p authz.Principal) ([]model.Signup, error) {
	if !authz.Authorize(p, authz.OpRead, authz.ResourceSignup, "") {
		j.deny(p, "list signups")
		return nil, ErrNotPermitted
	}
	var out []model.Signup
	err := j.withStore(ctx, "list signups", func(ctx context.Context, _ int) error {
		var err error
		out, err = j.signups.List(ctx, j.opts.ListLimit)
		return err
	})
	if err != nil {
		return nil, storeError("list signups", err)
	}
	return out, nil
}

func (j *Journal) seal(e model.Entry) (model.Entry, error) {
	var err error
	if e.Transcript, err = j.encrypt(e.Transcript, model.FieldTranscript); err != nil {
		return model.Entry{}, err
	}
	if e.ReflectionSummary, err = j.encrypt(e.ReflectionSummary, model.FieldReflectionSummary); err != nil {
		return model.Entry{}, err
	}
	return e, nil
}

func (j *Journal) encrypt(plaintext, field string) (string, error) {
	ct, err := j.crypt.Encrypt(plaintext)
	if err != nil {
		return "", fmt.Errorf("seal entry: %w", fieldcrypt.WithField(err, field))
	}
	return ct, nil
}

// open decrypts the sensitive fields of a stored entry. A field that cannot
// be decrypted is blanked and listed in UnreadableFields.
func (j *Journal) open(e model.Entry) model.Entry {
	e.UnreadableFields = nil
	for _, f := range []struct {
		name string
		val  *string
	}{
		{model.FieldTranscript, &e.Transcript},
		{model.FieldReflectionSummary, &e.ReflectionSummary},
	} {
		pt, err := j.crypt.Decrypt(*f.val)
		if err != nil {
			j.log.Warn("unreadable field", zap.String("entry_id", e.ID), zap.String("field", f.name), zap.Error(err))
			*f.val = ""
			e.UnreadableFields = append(e.UnreadableFields, f.name)
			continue
		}
		*f.val = pt
	}
	return e
}

func (j *Journal) publish(ctx context.Context, ev queue.Event) {
	if j.events == nil {
		return
	}
	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	if err := j.events.Publish(pctx, ev); err != nil {
		j.log.Warn("event publish failed", zap.String("queue", ev.QueueName()), zap.Error(err))
	}
}

func (j *Journal) deny(p authz.Principal, op string) {
	j.log.Info("denied", zap.String("op", op), zap.Stringer("principal", p))
}

func applyPatch(e *model.Entry, p EntryPatch) {
	if p.SleepHours != nil {
		e.SleepHours = *p.SleepHours
	}
	if p.SleepQuality != nil {
		e.SleepQuality = *p.SleepQuality
	}
	if p.Energy != nil {
		e.Energy = *p.Energy
	}
	if p.DeepWorkBlocks != nil {
		e.DeepWorkBlocks = *p.DeepWorkBlocks
	}
	if p.Transcript != nil {
		e.Transcript = validation.Sanitize(*p.Transcript)
	}
	if p.ReflectionSummary != nil {
		e.ReflectionSummary = validation.Sanitize(*p.ReflectionSummary)
	}
	if p.LikelyDrivers != nil {
		e.LikelyDrivers = sanitizeList(*p.LikelyDrivers)
	}
	if p.PredictedImpact != nil {
		e.PredictedImpact = validation.Sanitize(*p.PredictedImpact)
	}
	if p.ExperimentForTomorrow != nil {
		e.ExperimentForTomorrow = validation.Sanitize(*p.ExperimentForTomorrow)
	}
	if p.IsOutlier != nil {
		e.IsOutlier = *p.IsOutlier
	}
	if p.IsFollowUp != nil {
		e.IsFollowUp = *p.IsFollowUp
	}
}

func candidate(e model.Entry) validation.Candidate {
	return validation.Candidate{
		Date:              e.Date,
		SleepHours:        e.SleepHours,
		SleepQuality:      e.SleepQuality,
		Energy:            e.Energy,
		DeepWorkBlocks:    e.DeepWorkBlocks,
		Transcript:        e.Transcript,
		ReflectionSummary: e.ReflectionSummary,
		EntryNumber:       e.EntryNumber,
	}
}

func sanitizeList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = validation.Sanitize(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func validEmail(s string) bool {
	if s == "" || len(s) > 320 {
		return false
	}
	addr, err := mail.ParseAddress(s)
	return err == nil && addr.Address == s
}
