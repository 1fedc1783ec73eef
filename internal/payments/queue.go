package payments

import (
	"context"
	"encoding/json"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const (
	notifyRetryKey = "newebpay:notify:retry"
	notifyDeadKey  = "newebpay:notify:dead"

	// After this many redeliveries a notify is parked on the dead-letter
	// key for manual inspection instead of looping forever.
	maxNotifyAttempts = 5
)

// RetryQueue parks gateway notifies whose persistence failed, so the vendor
// is still acknowledged (its own retry storm stays suppressed) without the
// callback being silently dropped. Backed by a redis list; drained by the
// background worker.
type RetryQueue struct {
	rdb *redis.Client
	log *logrus.Logger
}

// NewRetryQueue wraps the redis client.
func NewRetryQueue(rdb *redis.Client, log *logrus.Logger) *RetryQueue {
	return &RetryQueue{rdb: rdb, log: log}
}

// Enqueue pushes a notify for later redelivery.
func (q *RetryQueue) Enqueue(ctx context.Context, notify *Notify) error {
	raw, err := json.Marshal(notify)
	if err != nil {
		return errors.Wrap(err, "marshal notify")
	}
	if err := q.rdb.RPush(ctx, notifyRetryKey, raw).Err(); err != nil {
		return errors.Wrap(err, "enqueue notify")
	}
	return nil
}

// Drain re-runs up to max parked notifies through the service. A notify
// whose store write fails again goes back on the queue with its attempt
// counter bumped; past maxNotifyAttempts it moves to the dead-letter key.
// Verification/decoding failures are terminal: retrying cannot fix a bad
// payload, so those are dead-lettered immediately.
func (q *RetryQueue) Drain(ctx context.Context, svc *Service, max int) {
	for i := 0; i < max; i++ {
		raw, err := q.rdb.LPop(ctx, notifyRetryKey).Bytes()
		if err == redis.Nil {
			return
		}
		if err != nil {
			q.log.WithError(err).Error("retry queue pop failed")
			return
		}

		var notify Notify
		if err := json.Unmarshal(raw, &notify); err != nil {
			q.log.WithError(err).Error("retry queue entry is not a notify; dead-lettering")
			q.deadLetter(ctx, raw)
			continue
		}

		_, err = svc.Reconcile(ctx, &notify)
		if err == nil {
			continue
		}

		switch errors.Cause(err) {
		case ErrMissingNotifyData, ErrInvalidCheckValue, ErrMalformedPayload:
			q.deadLetter(ctx, raw)
			continue
		}

		notify.Attempts++
		if notify.Attempts >= maxNotifyAttempts {
			q.log.WithField("attempts", notify.Attempts).Warn("notify exhausted retries; dead-lettering")
			bumped, _ := json.Marshal(&notify)
			q.deadLetter(ctx, bumped)
			continue
		}
		if err := q.Enqueue(ctx, &notify); err != nil {
			q.log.WithError(err).Error("re-enqueue notify failed")
		}
	}
}

func (q *RetryQueue) deadLetter(ctx context.Context, raw []byte) {
	if err := q.rdb.RPush(ctx, notifyDeadKey, raw).Err(); err != nil {
		q.log.WithError(err).Error("dead-letter push failed")
	}
}
