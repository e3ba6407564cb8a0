package syncer

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/snapkeeper/internal/client/client"
	"github.com/dmitrijs2005/snapkeeper/internal/logging"
)

// Worker drains the queue in the background whenever it is woken.
// Wakes that arrive during a drain collapse into one more drain.
type Worker struct {
	drainer Drainer
	wake    chan struct{}
	log     logging.Logger
}

func NewWorker(drainer Drainer, log logging.Logger) *Worker {
	return &Worker{
		drainer: drainer,
		wake:    make(chan struct{}, 1),
		log:     log.With("component", "worker"),
	}
}

func (w *Worker) Wake() {
	select {
	case w.wake <- struct{}{}:
	default:
	}
}

// Run blocks until ctx is done.
func (w *Worker) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.wake:
			_, err := w.drainer.Drain(ctx)
			switch {
			case err == nil, errors.Is(err, context.Canceled):
			case errors.Is(err, client.ErrUnauthorized):
				w.log.Info(ctx, "drain stopped, not authorized")
			default:
				w.log.Warn(ctx, "drain failed", "err", err)
			}
		}
	}
}
