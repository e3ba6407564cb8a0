package syncer

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dmitrijs2005/snapkeeper/internal/client/client"
	"github.com/dmitrijs2005/snapkeeper/internal/logging"
)

// Passer is implemented by Reconciler.
type Passer interface {
	Pass(ctx context.Context) (Result, error)
}

// Runner calls Pass on a fixed tick. A tick that arrives while the
// previous pass is still running is skipped.
type Runner struct {
	passer Passer
	period time.Duration
	log    logging.Logger

	inProcess atomic.Bool

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewRunner ticks every interval plus one second, so a tick never lands
// just inside the debounce window of the previous pass.
func NewRunner(passer Passer, interval time.Duration, log logging.Logger) *Runner {
	return &Runner{
		passer: passer,
		period: interval + time.Second,
		log:    log.With("component", "runner"),
	}
}

// Start runs a pass now and then on every tick until Stop or ctx is done.
// Starting a running Runner does nothing.
func (r *Runner) Start(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.done = make(chan struct{})

	go r.loop(ctx, r.done)
}

func (r *Runner) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(r.period)
	defer ticker.Stop()

	r.tick(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.tick(ctx)
		}
	}
}

func (r *Runner) tick(ctx context.Context) {
	res, err := r.RunOnce(ctx)
	switch {
	case err == nil:
		if res.Skipped == "" {
			r.log.Debug(ctx, "sync pass", "intents", res.Intents, "removed", res.Removed)
		}
	case errors.Is(err, errBusy), errors.Is(err, context.Canceled):
	case errors.Is(err, client.ErrUnauthorized):
		r.log.Info(ctx, "sync pass rejected, waiting for a new token")
	default:
		r.log.Warn(ctx, "sync pass failed", "err", err)
	}
}

var errBusy = errors.New("sync pass already running")

// RunOnce runs one pass unless another one is in progress.
func (r *Runner) RunOnce(ctx context.Context) (Result, error) {
	if !r.inProcess.CompareAndSwap(false, true) {
		return Result{}, errBusy
	}
	defer r.inProcess.Store(false)
	return r.passer.Pass(ctx)
}

// Stop ends the loop and waits for a running pass to return.
func (r *Runner) Stop() {
	r.mu.Lock()
	cancel, done := r.cancel, r.done
	r.cancel, r.done = nil, nil
	r.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

func (r *Runner) Running() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cancel != nil
}
