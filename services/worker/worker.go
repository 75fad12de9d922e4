// Package worker runs the poll cycle: every monitored item is scraped,
// reduced to a canonical price, recorded in history and checked against its
// alert threshold.
package worker

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"sjsage522/pricewatcher/internal/alert"
	"sjsage522/pricewatcher/internal/crawler"
	"sjsage522/pricewatcher/internal/history"
	"sjsage522/pricewatcher/internal/listing"
	"sjsage522/pricewatcher/internal/metrics"
	"sjsage522/pricewatcher/internal/model"
	"sjsage522/pricewatcher/internal/notify"
	"sjsage522/pricewatcher/internal/pricing"
	"sjsage522/pricewatcher/logger"
	"sjsage522/pricewatcher/services/publisher"
)

// Catalog is the read side of the store the worker iterates over.
type Catalog interface {
	ListMonitoredItems(ctx context.Context) ([]model.MonitoredItem, error)
	ListOwnersForURL(ctx context.Context, urlID string) ([]string, error)
}

// Options tunes the poll cycle.
type Options struct {
	PollInterval time.Duration
	ItemDelay    time.Duration
	ItemTimeout  time.Duration
	Sort         crawler.Sort
}

// Worker handles the poll cycle
type Worker struct {
	supplier   crawler.Supplier
	catalog    Catalog
	tracker    *history.Tracker
	dispatcher notify.Dispatcher
	publisher  publisher.Publisher
	logger     *logger.Logger
	opts       Options

	running atomic.Bool
	sleep   func(ctx context.Context, d time.Duration)
}

// NewWorker creates a new worker. pub may be nil.
func NewWorker(
	supplier crawler.Supplier,
	catalog Catalog,
	tracker *history.Tracker,
	dispatcher notify.Dispatcher,
	pub publisher.Publisher,
	opts Options,
) *Worker {
	if opts.Sort == "" {
		opts.Sort = crawler.SortPriceShipping
	}
	return &Worker{
		supplier:   supplier,
		catalog:    catalog,
		tracker:    tracker,
		dispatcher: dispatcher,
		publisher:  pub,
		logger:     logger.ForWorker(),
		opts:       opts,
		sleep:      sleepContext,
	}
}

// Start runs a cycle immediately and then once per poll interval until ctx
// is cancelled.
func (w *Worker) Start(ctx context.Context) error {
	w.logger.Info().
		Str("supplier", w.supplier.GetName()).
		Dur("interval", w.opts.PollInterval).
		Msg("Poll worker started")

	w.RunCycle(ctx)

	ticker := time.NewTicker(w.opts.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info().Msg("Poll worker stopped")
			return nil
		case <-ticker.C:
			w.RunCycle(ctx)
		}
	}
}

// RunCycle evaluates every monitored item once, in repository order. It
// returns false without doing anything when another cycle is still running.
func (w *Worker) RunCycle(ctx context.Context) bool {
	if !w.running.CompareAndSwap(false, true) {
		w.logger.Warn().Msg("Previous cycle still running, skipping")
		metrics.CyclesTotal.WithLabelValues("skipped").Inc()
		return false
	}
	defer w.running.Store(false)

	start := time.Now()
	items, err := w.catalog.ListMonitoredItems(ctx)
	if err != nil {
		w.logger.Error().Err(err).Msg("Failed to list monitored items, aborting cycle")
		metrics.CyclesTotal.WithLabelValues("aborted").Inc()
		return true
	}

	for i, item := range items {
		if ctx.Err() != nil {
			break
		}
		w.processItem(ctx, item)
		if i < len(items)-1 && w.opts.ItemDelay > 0 {
			w.sleep(ctx, w.opts.ItemDelay)
		}
	}

	// Trim all streams after the cycle
	if w.publisher != nil {
		if err := w.publisher.TrimStreams(); err != nil {
			w.logger.Warn().Err(err).Msg("Failed to trim streams")
		}
	}

	elapsed := time.Since(start)
	metrics.CyclesTotal.WithLabelValues("completed").Inc()
	metrics.CycleDuration.Observe(elapsed.Seconds())
	w.logger.Info().Int("items", len(items)).Dur("elapsed", elapsed).Msg("Cycle completed")
	return true
}

// processItem runs the pipeline for one item. Failures are logged and never
// escape, so one item cannot stop the cycle.
func (w *Worker) processItem(ctx context.Context, item model.MonitoredItem) {
	log := w.logger.WithFields(logger.Fields{
		"item_id": item.ID,
		"item":    item.Name,
	})

	if w.opts.ItemTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, w.opts.ItemTimeout)
		defer cancel()
	}

	outcome, err := w.evaluate(ctx, item)
	if err != nil {
		log.Error().Err(err).Msg("Failed to process item")
		metrics.ItemsProcessed.WithLabelValues(metrics.OutcomeFailed).Inc()
		return
	}
	metrics.ItemsProcessed.WithLabelValues(outcome).Inc()
}

func (w *Worker) evaluate(ctx context.Context, item model.MonitoredItem) (string, error) {
	fetchStart := time.Now()
	content, err := w.supplier.FetchListingContent(ctx, item.URL.URL, item.SellerVerified, w.opts.Sort)
	metrics.FetchDuration.Observe(time.Since(fetchStart).Seconds())
	if err != nil {
		return "", fmt.Errorf("fetch listing content: %w", err)
	}

	result := listing.Extract(content)
	canonical := pricing.Select(result.Entries, item.EffectiveCondition())
	if canonical == nil {
		w.logger.Warn().Str("item", item.Name).Str("url", item.URL.URL).Msg("No listings found")
		return metrics.OutcomeNoPrice, nil
	}
	canonical.ImageURL = result.ImageURL

	recorded, err := w.tracker.Record(ctx, item.URLID, *canonical)
	if err != nil {
		return "", fmt.Errorf("record price: %w", err)
	}

	owners, err := w.catalog.ListOwnersForURL(ctx, item.URLID)
	if err != nil {
		return "", fmt.Errorf("list owners: %w", err)
	}

	decision := alert.Decide(item, *canonical, owners)
	if decision.ShouldAlert {
		if err := w.dispatcher.SendAlert(ctx, decision.Recipients, decision.Payload); err != nil {
			metrics.AlertsSent.WithLabelValues("failed").Inc()
			w.logger.Error().Err(err).Str("item", item.Name).Msg("Failed to send alert")
		} else {
			metrics.AlertsSent.WithLabelValues("sent").Inc()
		}
	}

	if recorded.Changed {
		return metrics.OutcomeRecorded, nil
	}
	return metrics.OutcomeUnchanged, nil
}

func sleepContext(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
