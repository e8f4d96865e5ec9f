package services

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/nowaiting/clinic-console/internal/domain/repositories"
	"github.com/nowaiting/clinic-console/internal/infrastructure/observability"
	"github.com/nowaiting/clinic-console/pkg/retry"
)

// taskTimeout bounds one detached push including its single retry.
const taskTimeout = 30 * time.Second

// Dispatcher runs best-effort writes detached from the operator flow. Each
// task gets exactly two attempts with no delay between them; an exhausted
// task is logged and recorded for diagnostics, never surfaced to a caller.
// In-flight tasks are not cancelled by the dispatching request ending; they
// complete or fail on their own.
type Dispatcher struct {
	wg       sync.WaitGroup
	retryCfg retry.Config
	failures repositories.ReconciliationLogRepository
	logger   zerolog.Logger
}

// NewDispatcher creates a dispatcher. The failure log may be nil, in which
// case exhausted tasks are only logged.
func NewDispatcher(failures repositories.ReconciliationLogRepository) *Dispatcher {
	return &Dispatcher{
		retryCfg: retry.SingleRetry(),
		failures: failures,
		logger:   observability.GetLogger().With().Str("component", "dispatcher").Logger(),
	}
}

// Dispatch runs fn asynchronously with the bounded retry policy. It returns
// immediately; the operator is never blocked on a secondary-store write.
func (d *Dispatcher) Dispatch(entryID, operation string, fn func(ctx context.Context) error) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()

		ctx, cancel := context.WithTimeout(context.Background(), taskTimeout)
		defer cancel()

		err := retry.Do(ctx, d.retryCfg, func() error {
			return fn(ctx)
		})
		if err == nil {
			return
		}

		d.logger.Warn().
			Err(err).
			Str("operation", operation).
			Str("entry_id", entryID).
			Msg("best-effort push exhausted its retry")

		if d.failures == nil {
			return
		}

		logCtx, logCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer logCancel()
		if logErr := d.failures.RecordFailure(logCtx, entryID, operation, err.Error()); logErr != nil {
			d.logger.Error().Err(logErr).Msg("failed to record reconciliation failure")
		}
	}()
}

// Wait blocks until every dispatched task has finished. Used on shutdown
// and in tests; operator paths never call it.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}
