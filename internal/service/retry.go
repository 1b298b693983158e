package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/signal-checkin/internal/repository"
)

// withStore runs fn under a per-attempt timeout and retries it while the
// store reports ErrUnavailable. attempt starts at 1.
func (j *Journal) withStore(ctx context.Context, op string, fn func(ctx context.Context, attempt int) error) error {
	backoff := j.opts.Backoff
	var err error
	for attempt := 1; ; attempt++ {
		actx, cancel := context.WithTimeout(ctx, j.opts.StoreTimeout)
		err = fn(actx, attempt)
		cancel()
		if err == nil || !errors.Is(err, repository.ErrUnavailable) || attempt >= j.opts.Retries {
			return err
		}
		j.log.Warn("store unavailable, retrying",
			zap.String("op", op),
			zap.Int("attempt", attempt),
			zap.Duration("backoff", backoff),
			zap.Error(err))

		t := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			t.Stop()
			return err
		case <-t.C:
		}
		backoff *= 2
	}
}
