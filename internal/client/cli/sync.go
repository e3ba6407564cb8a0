package cli

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/snapkeeper/internal/client/client"
	"github.com/dmitrijs2005/snapkeeper/internal/client/syncer"
)

// Sync runs a reconcile pass immediately, bypassing the debounce window.
func (a *App) Sync(ctx context.Context, _ []string) error {
	res, err := a.syncer.ForcePass(ctx)
	if errors.Is(err, client.ErrUnauthorized) {
		return errors.New("not logged in or token rejected, use 'login'")
	}
	if err != nil {
		return err
	}

	if res.Skipped == syncer.SkipNoAuth {
		a.printf("Sync skipped: not logged in\n")
		return nil
	}
	a.printf("Sync: %d queued, %d removed, %d done, %d dropped, %d failed\n",
		res.Intents, res.Removed, res.Drain.Done, res.Drain.Dropped, res.Drain.Failed)
	return nil
}

func (a *App) Status(ctx context.Context, _ []string) error {
	st, err := a.status.Status(ctx)
	if err != nil {
		return err
	}

	a.printf("Photos:     %d (%d with local changes, %d linked)\n", st.Records, st.Dirty, st.Linked)
	a.printf("Queue:      %d uploads, %d downloads\n", st.PendingUploads, st.PendingDowns)
	a.printf("Last sync:  %s\n", formatTime(st.LastSync))
	if st.LoggedIn {
		a.printf("Session:    valid until %s\n", formatTime(st.TokenExpiry))
	} else {
		a.printf("Session:    logged out\n")
	}
	return nil
}
