package services

import (
	"context"
	"time"

	"github.com/dmitrijs2005/snapkeeper/internal/client/models"
)

// Status is a snapshot of the library and its sync state.
type Status struct {
	Records        int       `json:"records"`
	Dirty          int       `json:"dirty"`
	Linked         int       `json:"linked"`
	PendingUploads int       `json:"pending_uploads"`
	PendingDowns   int       `json:"pending_downloads"`
	LastSync       time.Time `json:"last_sync,omitempty"`
	LoggedIn       bool      `json:"logged_in"`
	TokenExpiry    time.Time `json:"token_expiry,omitempty"`
}

type StatusStore interface {
	ListRecords(ctx context.Context) ([]*models.Record, error)
	ListIntents(ctx context.Context) ([]models.Intent, error)
	LastSyncTime(ctx context.Context) (time.Time, error)
}

type StatusService struct {
	store StatusStore
	auth  AuthService
	now   func() time.Time
}

func NewStatusService(store StatusStore, auth AuthService) *StatusService {
	return &StatusService{store: store, auth: auth, now: time.Now}
}

func (s *StatusService) Status(ctx context.Context) (Status, error) {
	var st Status

	recs, err := s.store.ListRecords(ctx)
	if err != nil {
		return st, err
	}
	st.Records = len(recs)
	for _, r := range recs {
		if r.Dirty() {
			st.Dirty++
		}
		if r.GUID != "" {
			st.Linked++
		}
	}

	intents, err := s.store.ListIntents(ctx)
	if err != nil {
		return st, err
	}
	for _, in := range intents {
		if in.Direction == models.DirectionUpload {
			st.PendingUploads++
		} else {
			st.PendingDowns++
		}
	}

	if st.LastSync, err = s.store.LastSyncTime(ctx); err != nil {
		return st, err
	}

	ac := s.auth.Current()
	st.LoggedIn = ac.Valid(s.now())
	if st.LoggedIn {
		st.TokenExpiry = ac.Expiry
	}
	return st, nil
}
