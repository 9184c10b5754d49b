package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/jodli/geizhalsbot/helpers"
	"github.com/jodli/geizhalsbot/internal/metrics"
	"github.com/jodli/geizhalsbot/internal/models"
	"github.com/jodli/geizhalsbot/internal/tracker"
	"github.com/jodli/geizhalsbot/logger"
	"github.com/jodli/geizhalsbot/services/cache"
	"github.com/jodli/geizhalsbot/services/publisher"

	"golang.org/x/time/rate"
)

// Tracker is the part of the tracker service the worker drives
type Tracker interface {
	ListItems(ctx context.Context, variant models.Variant) ([]models.TrackedItem, error)
	Reconcile(ctx context.Context, variant models.Variant, id int64) (tracker.Result, error)
	Dispatch(ctx context.Context, result tracker.Result) (tracker.Notification, error)
}

// Config controls the check cycle
type Config struct {
	Interval    time.Duration
	Concurrency int
	// RatePerSecond paces upstream requests. Zero disables pacing.
	RatePerSecond float64
	// AlertAfter raises an operator alert at this many consecutive fetch failures
	AlertAfter int
}

// Worker periodically re-checks every tracked item
type Worker struct {
	tracker   Tracker
	publisher publisher.Publisher
	failures  *cache.FailureCounter
	alerts    helpers.AlertSink
	metrics   metrics.Recorder
	limiter   *rate.Limiter
	config    Config
}

// CycleStats summarizes one check cycle
type CycleStats struct {
	Items     int
	Changed   int
	Failed    int
	Published int
}

// NewWorker creates a new worker
func NewWorker(
	t Tracker,
	pub publisher.Publisher,
	failures *cache.FailureCounter,
	alerts helpers.AlertSink,
	recorder metrics.Recorder,
	config Config,
) *Worker {
	if config.Concurrency <= 0 {
		config.Concurrency = 1
	}
	if recorder == nil {
		recorder = metrics.Nop{}
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if config.RatePerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(config.RatePerSecond), 1)
	}

	return &Worker{
		tracker:   t,
		publisher: pub,
		failures:  failures,
		alerts:    alerts,
		metrics:   recorder,
		limiter:   limiter,
		config:    config,
	}
}

// Start runs a cycle immediately and then every interval until ctx is done
func (w *Worker) Start(ctx context.Context) {
	log := logger.ForWorker()
	log.Info().
		Dur("interval", w.config.Interval).
		Int("concurrency", w.config.Concurrency).
		Float64("rate_per_second", w.config.RatePerSecond).
		Msg("Worker started")

	ticker := time.NewTicker(w.config.Interval)
	defer ticker.Stop()

	w.runCycle(ctx)
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("Worker stopped")
			return
		case <-ticker.C:
			w.runCycle(ctx)
		}
	}
}

func (w *Worker) runCycle(ctx context.Context) {
	if _, err := w.RunOnce(ctx); err != nil {
		logger.LogError("worker", err, "Check cycle failed")
	}
}

// RunOnce checks every tracked item once. Failures of single items are
// logged and never abort the cycle.
func (w *Worker) RunOnce(ctx context.Context) (CycleStats, error) {
	start := time.Now()
	log := logger.ForWorker()

	var items []models.TrackedItem
	for _, variant := range models.Variants {
		list, err := w.tracker.ListItems(ctx, variant)
		if err != nil {
			return CycleStats{}, fmt.Errorf("failed to list %ss: %w", variant, err)
		}
		items = append(items, list...)
	}

	if len(items) == 0 {
		log.Info().Msg("No items to check")
		w.metrics.RecordCycle(time.Since(start), 0)
		return CycleStats{}, nil
	}

	log.Info().Int("items", len(items)).Msg("Check cycle started")

	var (
		mu    sync.Mutex
		stats = CycleStats{Items: len(items)}
		wg    sync.WaitGroup
		sem   = make(chan struct{}, w.config.Concurrency)
	)

loop:
	for _, item := range items {
		select {
		case <-ctx.Done():
			break loop
		case sem <- struct{}{}:
		}

		wg.Add(1)
		go func(item models.TrackedItem) {
			defer wg.Done()
			defer func() { <-sem }()

			outcome := w.checkItem(ctx, item)

			mu.Lock()
			defer mu.Unlock()
			if outcome.changed {
				stats.Changed++
			}
			if outcome.failed {
				stats.Failed++
			}
			if outcome.published {
				stats.Published++
			}
		}(item)
	}
	wg.Wait()

	if err := w.publisher.TrimStreams(ctx); err != nil {
		logger.LogError("worker", err, "Stream trimming failed")
	}

	elapsed := time.Since(start)
	w.metrics.RecordCycle(elapsed, len(items))
	log.Info().
		Int("items", stats.Items).
		Int("changed", stats.Changed).
		Int("failed", stats.Failed).
		Int("published", stats.Published).
		Dur("elapsed", elapsed).
		Msg("Check cycle finished")

	return stats, ctx.Err()
}

type itemOutcome struct {
	changed   bool
	failed    bool
	published bool
}

// checkItem reconciles one item, publishes its notification and tracks
// consecutive fetch failures
func (w *Worker) checkItem(ctx context.Context, item models.TrackedItem) itemOutcome {
	var outcome itemOutcome
	log := logger.ForWorker().WithFields(logger.Fields{"variant": item.Variant.String(), "item_id": item.ID})

	if err := w.limiter.Wait(ctx); err != nil {
		return outcome
	}

	start := time.Now()
	result, err := w.tracker.Reconcile(ctx, item.Variant, item.ID)
	w.metrics.RecordCheckLatency(item.Variant.String(), time.Since(start))
	if err != nil {
		log.Error().Err(err).Msg("Reconcile failed")
		w.metrics.RecordCheck(item.Variant.String(), "error")
		outcome.failed = true
		return outcome
	}
	w.metrics.RecordCheck(item.Variant.String(), result.Kind.String())

	w.trackFailures(item, result)

	switch result.Kind {
	case tracker.FetchFailed, tracker.ParseFailed:
		outcome.failed = true
		return outcome
	}

	if !result.Kind.Notifies() {
		return outcome
	}
	outcome.changed = true

	notification, err := w.tracker.Dispatch(ctx, result)
	if err != nil {
		log.Error().Err(err).Msg("Dispatch failed")
		return outcome
	}
	if notification.Empty() {
		return outcome
	}

	data, err := json.Marshal(notification)
	if err != nil {
		log.Error().Err(err).Msg("Failed to encode notification")
		return outcome
	}
	if err := w.publisher.Publish(ctx, notification.ID, data); err != nil {
		log.Error().Err(err).Msg("Failed to publish notification")
		return outcome
	}

	w.metrics.RecordNotification()
	outcome.published = true
	log.Info().
		Str("kind", result.Kind.String()).
		Int("subscribers", len(notification.UserIDs)).
		Msg("Notification published")
	return outcome
}

// trackFailures counts consecutive fetch failures and alerts the operator
// once the threshold is reached
func (w *Worker) trackFailures(item models.TrackedItem, result tracker.Result) {
	if w.failures == nil {
		return
	}
	log := logger.ForWorker().WithField("item", item.Key())

	if result.Kind != tracker.FetchFailed {
		if err := w.failures.Reset(item.Key()); err != nil {
			log.Warn().Err(err).Msg("Failed to reset failure counter")
		}
		return
	}

	count, err := w.failures.Increment(item.Key())
	if err != nil {
		log.Warn().Err(err).Msg("Failed to count fetch failure")
		return
	}

	if w.config.AlertAfter > 0 && count == w.config.AlertAfter {
		w.metrics.RecordAlert()
		if w.alerts != nil {
			w.alerts.Alert(item.Key(), fmt.Errorf("%d consecutive fetch failures: %w", count, result.Err))
		}
	}
}
