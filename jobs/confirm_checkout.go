// Package jobs runs the storefront's background work: webhook-driven
// checkout confirmation on river, and periodic store sweeps on cron.
package jobs

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/PaulFidika/auditstore/checkout"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
	"github.com/riverqueue/river/rivermigrate"
	"github.com/sirupsen/logrus"
)

// ConfirmCheckoutArgs asks a worker to reconcile one provider session.
type ConfirmCheckoutArgs struct {
	SessionID string `json:"session_id"`
}

func (ConfirmCheckoutArgs) Kind() string { return "confirm_checkout" }

// Duplicate webhooks for a session collapse into a single job.
func (ConfirmCheckoutArgs) InsertOpts() river.InsertOpts {
	return river.InsertOpts{
		MaxAttempts: 12,
		UniqueOpts:  river.UniqueOpts{ByArgs: true, ByPeriod: time.Hour},
	}
}

// Confirmer is the part of checkout.Completer the worker needs.
type Confirmer interface {
	Confirm(ctx context.Context, sessionID string) (checkout.Result, error)
}

// ConfirmCheckoutWorker retries upstream failures and cancels jobs that can
// never succeed.
type ConfirmCheckoutWorker struct {
	river.WorkerDefaults[ConfirmCheckoutArgs]
	Completer Confirmer
	Log       logrus.FieldLogger
}

func (w *ConfirmCheckoutWorker) Work(ctx context.Context, job *river.Job[ConfirmCheckoutArgs]) error {
	log := w.Log.WithFields(logrus.Fields{"session_id": job.Args.SessionID, "attempt": job.Attempt})
	res, err := w.Completer.Confirm(ctx, job.Args.SessionID)
	switch {
	case permanent(err):
		log.WithError(err).Warn("checkout confirmation rejected")
		return river.JobCancel(err)
	case err != nil:
		log.WithError(err).Warn("checkout confirmation failed; will retry")
		return err
	case res.Status == checkout.StatusPending:
		// The provider has not settled yet; retry on the river backoff.
		return fmt.Errorf("session %s still pending", job.Args.SessionID)
	}
	log.WithFields(logrus.Fields{"status": res.Status, "created": res.Created}).Info("checkout confirmation processed")
	return nil
}

// permanent reports failures no retry can fix.
func permanent(err error) bool {
	return err != nil && checkout.CouldNotConfirm(err)
}

// Queue wraps a river client for enqueueing confirmations.
type Queue struct {
	client *river.Client[pgx.Tx]
	log    logrus.FieldLogger
}

// NewQueue migrates the river schema and builds a client with the
// confirmation worker registered. Call Start to begin working jobs.
func NewQueue(ctx context.Context, pool *pgxpool.Pool, completer Confirmer, log logrus.FieldLogger, maxWorkers int) (*Queue, error) {
	if log == nil {
		log = logrus.StandardLogger()
	}
	if maxWorkers <= 0 {
		maxWorkers = 10
	}
	driver := riverpgxv5.New(pool)
	migrator, err := rivermigrate.New(driver, nil)
	if err != nil {
		return nil, fmt.Errorf("river migrator: %w", err)
	}
	if _, err := migrator.Migrate(ctx, rivermigrate.DirectionUp, nil); err != nil {
		return nil, fmt.Errorf("river migrate: %w", err)
	}

	workers := river.NewWorkers()
	river.AddWorker(workers, &ConfirmCheckoutWorker{Completer: completer, Log: log})
	client, err := river.NewClient(driver, &river.Config{
		Queues:  map[string]river.QueueConfig{river.QueueDefault: {MaxWorkers: maxWorkers}},
		Workers: workers,
	})
	if err != nil {
		return nil, fmt.Errorf("river client: %w", err)
	}
	return &Queue{client: client, log: log}, nil
}

func (q *Queue) Start(ctx context.Context) error { return q.client.Start(ctx) }

func (q *Queue) Stop(ctx context.Context) error { return q.client.Stop(ctx) }

// EnqueueConfirm schedules confirmation of sessionID.
func (q *Queue) EnqueueConfirm(ctx context.Context, sessionID string) error {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return checkout.ErrInvalidInput
	}
	res, err := q.client.Insert(ctx, ConfirmCheckoutArgs{SessionID: sessionID}, nil)
	if err != nil {
		return fmt.Errorf("%w: enqueue: %v", checkout.ErrUpstreamUnavailable, err)
	}
	q.log.WithFields(logrus.Fields{"session_id": sessionID, "job_id": res.Job.ID, "duplicate": res.UniqueSkippedAsDuplicate}).Debug("confirmation enqueued")
	return nil
}

// InlineConfirmer satisfies the webhook's enqueue contract without a queue
// by confirming synchronously. Used when no database is configured.
type InlineConfirmer struct {
	Completer Confirmer
}

func (c InlineConfirmer) EnqueueConfirm(ctx context.Context, sessionID string) error {
	_, err := c.Completer.Confirm(ctx, sessionID)
	return err
}
