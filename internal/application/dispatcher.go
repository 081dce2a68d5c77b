package application

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/wms-platform/asrs-service/internal/domain"
	"github.com/wms-platform/asrs-service/pkg/logging"
)

// ErrDispatcherClosed is returned once the dispatcher has begun shutting down
var ErrDispatcherClosed = errors.New("dispatcher is shut down")

// InProcessDispatcher runs each command on its own goroutine
type InProcessDispatcher struct {
	executor *CommandExecutor
	logger   *logging.Logger

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

// NewInProcessDispatcher creates a new InProcessDispatcher
func NewInProcessDispatcher(executor *CommandExecutor, logger *logging.Logger) *InProcessDispatcher {
	return &InProcessDispatcher{
		executor: executor,
		logger:   logger.WithComponent("dispatcher"),
	}
}

// Dispatch starts executing cmd in the background. The request context only
// carries values into the goroutine; its cancellation does not stop the command.
func (d *InProcessDispatcher) Dispatch(ctx context.Context, cmd *domain.Command) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return ErrDispatcherClosed
	}

	d.wg.Add(1)
	go func(ctx context.Context, commandID string) {
		defer d.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				d.logger.Panic(ctx, r)
			}
		}()

		if _, err := d.executor.Execute(ctx, commandID); err != nil {
			d.logger.WithError(err).Warn("Command finished with error", "commandId", commandID)
		}
	}(context.WithoutCancel(ctx), cmd.ID)

	return nil
}

// Wait blocks until every dispatched command has finished
func (d *InProcessDispatcher) Wait() {
	d.wg.Wait()
}

// Shutdown stops accepting commands and drains the running ones until ctx ends
func (d *InProcessDispatcher) Shutdown(ctx context.Context) error {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	start := time.Now()
	select {
	case <-done:
		d.logger.Info("Dispatcher drained", "elapsed", time.Since(start))
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
