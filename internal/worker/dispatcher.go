package worker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/polkiloo/marketpay/internal/domain/model"
)

// MarketFacade exposes the subset of application functionality required by the dispatcher.
type MarketFacade interface {
	OrdersForDispatch(ctx context.Context, limit int) ([]model.Order, error)
	DispatchOrder(ctx context.Context, order *model.Order) error
	FinishDispatch(ctx context.Context, orderID int64, ok bool) error
}

// Dispatcher polls for paid orders awaiting fulfillment and fans them out to
// a worker pool. Claimed orders are released back for retry on failure.
type Dispatcher struct {
	facade       MarketFacade
	pollInterval time.Duration
	batchSize    int
	workers      int
	logger       *slog.Logger

	jobs   chan model.Order
	wg     sync.WaitGroup
	cancel context.CancelFunc
	mu     sync.Mutex
}

// NewDispatcher constructs the fulfillment dispatcher worker pool.
func NewDispatcher(facade MarketFacade, pollInterval time.Duration, batchSize, workers int, logger *slog.Logger) *Dispatcher {
	if workers <= 0 {
		workers = 1
	}
	if batchSize <= 0 {
		batchSize = 1
	}
	return &Dispatcher{
		facade:       facade,
		pollInterval: pollInterval,
		batchSize:    batchSize,
		workers:      workers,
		logger:       logger,
		jobs:         make(chan model.Order, batchSize*workers),
	}
}

// Start launches background processing.
func (d *Dispatcher) Start(ctx context.Context) {
	d.mu.Lock()
	defer d.mu.Unlock()

	runCtx, cancel := context.WithCancel(ctx)
	d.cancel = cancel

	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go d.worker(runCtx)
	}

	d.wg.Add(1)
	go d.poll(runCtx)
}

// Stop waits for all workers to finish.
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.mu.Unlock()

	d.wg.Wait()
}

func (d *Dispatcher) poll(ctx context.Context) {
	defer d.wg.Done()
	defer close(d.jobs)
	ticker := time.NewTicker(d.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.fetchAndEnqueue(ctx)
		}
	}
}

func (d *Dispatcher) fetchAndEnqueue(ctx context.Context) {
	orders, err := d.facade.OrdersForDispatch(ctx, d.batchSize)
	if err != nil {
		d.logger.Error("fetch orders for dispatch failed", slog.String("error", err.Error()))
		return
	}
	for _, order := range orders {
		select {
		case <-ctx.Done():
			return
		case d.jobs <- order:
		}
	}
}

func (d *Dispatcher) worker(ctx context.Context) {
	defer d.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case order, ok := <-d.jobs:
			if !ok {
				return
			}
			d.handleOrder(ctx, order)
		}
	}
}

func (d *Dispatcher) handleOrder(ctx context.Context, order model.Order) {
	err := d.facade.DispatchOrder(ctx, &order)
	if err != nil {
		d.logger.Error("dispatch order failed",
			slog.Int64("order", order.ID),
			slog.String("error", err.Error()))
	}
	// The outcome write must land even when shutdown cancels the run
	// context, otherwise the order sits claimed until the stale reclaim.
	if finishErr := d.facade.FinishDispatch(context.WithoutCancel(ctx), order.ID, err == nil); finishErr != nil {
		d.logger.Error("finish dispatch failed",
			slog.Int64("order", order.ID),
			slog.String("error", finishErr.Error()))
	}
}
