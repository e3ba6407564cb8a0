package syncer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/snapkeeper/internal/client/client"
	"github.com/dmitrijs2005/snapkeeper/internal/client/models"
	"github.com/dmitrijs2005/snapkeeper/internal/client/notify"
	"github.com/dmitrijs2005/snapkeeper/internal/common"
	"github.com/dmitrijs2005/snapkeeper/internal/logging"
)

// Skip reasons reported in Result.Skipped.
const (
	SkipNoAuth    = "no-auth"
	SkipDebounced = "debounced"
)

// Waker starts a drain somewhere else. When set, the Reconciler does not
// drain inline.
type Waker interface {
	Wake()
}

type Drainer interface {
	Drain(ctx context.Context) (DrainResult, error)
}

// Result describes one reconcile pass.
type Result struct {
	Skipped string
	Intents int
	Removed int
	Drain   DrainResult
}

type Reconciler struct {
	store    Store
	remote   client.Remote
	auth     AuthSource
	folder   *Folder
	pub      notify.Publisher
	drainer  Drainer
	waker    Waker
	interval time.Duration
	now      func() time.Time
	log      logging.Logger
}

type ReconcilerConfig struct {
	Store    Store
	Remote   client.Remote
	Auth     AuthSource
	Folder   *Folder
	Notify   notify.Publisher
	Drainer  Drainer
	Waker    Waker
	Interval time.Duration
	Log      logging.Logger
}

func NewReconciler(c ReconcilerConfig) *Reconciler {
	return &Reconciler{
		store:    c.Store,
		remote:   c.Remote,
		auth:     c.Auth,
		folder:   c.Folder,
		pub:      c.Notify,
		drainer:  c.Drainer,
		waker:    c.Waker,
		interval: c.Interval,
		now:      time.Now,
		log:      c.Log.With("component", "reconciler"),
	}
}

// Pass runs one reconcile pass unless the last one finished less than the
// interval ago.
func (r *Reconciler) Pass(ctx context.Context) (Result, error) {
	return r.pass(ctx, false)
}

// ForcePass ignores the debounce. Running it twice before a drain only
// rewrites the same intents.
func (r *Reconciler) ForcePass(ctx context.Context) (Result, error) {
	return r.pass(ctx, true)
}

func (r *Reconciler) pass(ctx context.Context, force bool) (Result, error) {
	now := r.now()

	auth := r.auth.Current()
	if !auth.Valid(now) {
		reconcileRuns.WithLabelValues(SkipNoAuth).Inc()
		return Result{Skipped: SkipNoAuth}, nil
	}

	if !force {
		last, err := r.store.LastSyncTime(ctx)
		if err != nil {
			return Result{}, err
		}
		if !last.IsZero() && now.Before(last.Add(r.interval)) {
			reconcileRuns.WithLabelValues(SkipDebounced).Inc()
			return Result{Skipped: SkipDebounced}, nil
		}
	}

	start := time.Now()
	res, err := r.reconcile(ctx, auth, now)
	reconcileDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		reconcileRuns.WithLabelValues("error").Inc()
		return res, err
	}
	reconcileRuns.WithLabelValues("ok").Inc()

	if r.waker != nil {
		r.waker.Wake()
		return res, nil
	}
	if r.drainer != nil {
		res.Drain, err = r.drainer.Drain(ctx)
	}
	return res, err
}

func (r *Reconciler) reconcile(ctx context.Context, auth client.AuthContext, now time.Time) (Result, error) {
	var res Result

	folderID, err := r.folder.ID(ctx, auth)
	if err != nil {
		return res, err
	}
	files, err := r.remote.ListFolder(ctx, auth, folderID)
	if errors.Is(err, common.ErrorNotFound) {
		if ferr := r.folder.Forget(ctx); ferr != nil {
			r.log.Warn(ctx, "failed to forget folder id", "err", ferr)
		}
	}
	if err != nil {
		return res, err
	}

	local, err := r.store.ListRecords(ctx)
	if err != nil {
		return res, err
	}

	plan := Decide(local, files)

	for _, rec := range plan.Removals {
		if rec.Dirty() {
			r.log.Warn(ctx, "remote file trashed, discarding local changes",
				"id", rec.ID, "guid", rec.GUID,
				"image_changes", rec.LocalImageChanges, "filter_changes", rec.LocalFilterChanges)
		}
		if err := r.store.DeleteRecord(ctx, rec.ID, rec.Refs()); err != nil {
			return res, err
		}
		r.pub.Publish(ctx, notify.SyncMessage(models.ChangeRemove, rec.ID))
		res.Removed++
	}

	for _, in := range plan.Intents {
		if err := r.store.PutIntent(ctx, in); err != nil {
			return res, fmt.Errorf("failed to queue %s intent: %w", in.Direction, err)
		}
		reconcileIntents.WithLabelValues(string(in.Direction)).Inc()
		res.Intents++
	}

	if err := r.store.SetLastSyncTime(ctx, now); err != nil {
		return res, err
	}

	r.log.Info(ctx, "reconcile pass done",
		"remote", len(files), "local", len(local), "intents", res.Intents, "removed", res.Removed)
	return res, nil
}
