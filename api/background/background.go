// Package background runs fire-and-forget tasks outside of the request
// lifecycle and waits for them on shutdown.
package background

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"

	"github.com/sirupsen/logrus"
)

var ErrShuttingDown = errors.New("background: shutting down")

type Background struct {
	log      logrus.FieldLogger
	wg       sync.WaitGroup
	mu       sync.Mutex
	shutdown bool
}

func New(log logrus.FieldLogger) *Background {
	return &Background{log: log}
}

// Go starts fn in its own goroutine. Panics are recovered and logged.
func (b *Background) Go(name string, fn func() error) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.shutdown {
		return ErrShuttingDown
	}

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		defer func() {
			if rec := recover(); rec != nil {
				b.log.WithFields(logrus.Fields{
					"task":  name,
					"panic": rec,
					"trace": string(debug.Stack()),
				}).Error("background task panicked")
			}
		}()

		if err := fn(); err != nil {
			b.log.WithField("task", name).WithError(err).Error("background task failed")
		}
	}()

	return nil
}

// Shutdown stops accepting tasks and waits for the running ones or for ctx.
func (b *Background) Shutdown(ctx context.Context) error {
	b.mu.Lock()
	b.shutdown = true
	b.mu.Unlock()

	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for background tasks: %w", ctx.Err())
	}
}
