package worker

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	domainErrors "paygate/internal/domain/errors"
	"paygate/internal/domain/model"
)

// ExpiryFacade exposes the subset of application functionality required
// by the expirer.
type ExpiryFacade interface {
	ExpiredPendingOrders(ctx context.Context, limit int) ([]model.Order, error)
	ExpireOrder(ctx context.Context, orderCode string) error
}

// Expirer polls for pending orders past their payment deadline and
// fails them concurrently.
type Expirer struct {
	facade       ExpiryFacade
	pollInterval time.Duration
	batchSize    int
	workers      int
	logger       *slog.Logger

	jobs   chan string
	wg     sync.WaitGroup
	cancel context.CancelFunc
	mu     sync.Mutex
}

// NewExpirer constructs the expirer worker pool.
func NewExpirer(facade ExpiryFacade, pollInterval time.Duration, batchSize, workers int, logger *slog.Logger) *Expirer {
	if workers <= 0 {
		workers = 1
	}
	if batchSize <= 0 {
		batchSize = 1
	}
	return &Expirer{
		facade:       facade,
		pollInterval: pollInterval,
		batchSize:    batchSize,
		workers:      workers,
		logger:       logger,
		jobs:         make(chan string, batchSize*workers),
	}
}

// Start launches background processing.
func (e *Expirer) Start(ctx context.Context) {
	e.mu.Lock()
	defer e.mu.Unlock()

	runCtx, cancel := context.WithCancel(ctx)
	e.cancel = cancel

	for i := 0; i < e.workers; i++ {
		e.wg.Add(1)
		go e.worker(runCtx)
	}

	e.wg.Add(1)
	go e.dispatch(runCtx)
}

// Stop waits for all workers to finish.
func (e *Expirer) Stop() {
	e.mu.Lock()
	if e.cancel != nil {
		e.cancel()
		e.cancel = nil
	}
	e.mu.Unlock()

	e.wg.Wait()
}

func (e *Expirer) dispatch(ctx context.Context) {
	defer e.wg.Done()
	defer close(e.jobs)
	ticker := time.NewTicker(e.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.fetchAndDispatch(ctx)
		}
	}
}

func (e *Expirer) fetchAndDispatch(ctx context.Context) {
	orders, err := e.facade.ExpiredPendingOrders(ctx, e.batchSize)
	if err != nil {
		e.logger.Error("fetch expired orders failed", slog.String("error", err.Error()))
		return
	}
	for _, order := range orders {
		select {
		case <-ctx.Done():
			return
		case e.jobs <- order.Code:
		}
	}
}

func (e *Expirer) worker(ctx context.Context) {
	defer e.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case code, ok := <-e.jobs:
			if !ok {
				return
			}
			e.expire(ctx, code)
		}
	}
}

func (e *Expirer) expire(ctx context.Context, code string) {
	err := e.facade.ExpireOrder(ctx, code)
	switch {
	case err == nil:
	case errors.Is(err, domainErrors.ErrOperationInProgress):
		// Another flow holds the order; the next poll picks it up
		// again if it is still pending.
	case errors.Is(err, domainErrors.ErrNotFound):
		e.logger.Warn("expired order vanished", slog.String("order", code))
	default:
		e.logger.Error("expire order failed",
			slog.String("order", code),
			slog.String("error", err.Error()),
		)
	}
}
