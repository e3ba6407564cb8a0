// Package services contains application services for the SnapKeeper client.
// This file defines the authentication service: token login, resuming a
// saved session at startup, and logout.
package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/dmitrijs2005/snapkeeper/internal/client/client"
	"github.com/dmitrijs2005/snapkeeper/internal/client/notify"
	"github.com/dmitrijs2005/snapkeeper/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/snapkeeper/internal/common"
)

// DefaultTokenLifetime is assumed when neither the caller nor the token
// itself says when it expires.
const DefaultTokenLifetime = time.Hour

// MetaStore is the metadata part of the record store.
type MetaStore interface {
	GetMeta(ctx context.Context, key string) (string, bool, error)
	SetMeta(ctx context.Context, key, value string) error
	DeleteMeta(ctx context.Context, keys ...string) error
}

// AuthService defines authentication operations for the CLI.
//
// Contract:
//   - Login: persist a bearer token and publish "login".
//   - Resume: restore a saved token that has not expired yet.
//   - Current: the token the sync engine should use right now.
//   - Logout: forget the token and publish "logout".
type AuthService interface {
	Login(ctx context.Context, token string, expiry time.Time) error
	Resume(ctx context.Context) (bool, error)
	Current() client.AuthContext
	Logout(ctx context.Context) error
}

type authService struct {
	meta MetaStore
	pub  notify.Publisher
	now  func() time.Time

	mu      sync.RWMutex
	current client.AuthContext
}

func NewAuthService(meta MetaStore, pub notify.Publisher) AuthService {
	return &authService{meta: meta, pub: pub, now: time.Now}
}

// Login stores token. A zero expiry is taken from the token's exp claim
// when it is a JWT, otherwise DefaultTokenLifetime from now.
func (a *authService) Login(ctx context.Context, token string, expiry time.Time) error {
	if token == "" {
		return common.ErrInvalidToken
	}
	if expiry.IsZero() {
		expiry = a.tokenExpiry(token)
	}
	if !expiry.After(a.now()) {
		return fmt.Errorf("%w: already expired", common.ErrInvalidToken)
	}

	if err := a.meta.SetMeta(ctx, metadata.KeyToken, token); err != nil {
		return fmt.Errorf("failed to save token: %w", err)
	}
	if err := a.meta.SetMeta(ctx, metadata.KeyTokenExpiry, strconv.FormatInt(expiry.Unix(), 10)); err != nil {
		return fmt.Errorf("failed to save token expiry: %w", err)
	}

	a.set(client.AuthContext{Token: token, Expiry: expiry})
	a.pub.Publish(ctx, notify.Message{Channel: notify.ChannelLogin})
	return nil
}

func (a *authService) tokenExpiry(token string) time.Time {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err == nil {
		if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
			return exp.Time
		}
	}
	return a.now().Add(DefaultTokenLifetime)
}

// Resume loads the saved token. It reports false when there is none or it
// has expired; an expired token is left in place until the next Login.
func (a *authService) Resume(ctx context.Context) (bool, error) {
	token, ok, err := a.meta.GetMeta(ctx, metadata.KeyToken)
	if err != nil {
		return false, fmt.Errorf("failed to read token: %w", err)
	}
	if !ok || token == "" {
		return false, nil
	}

	raw, ok, err := a.meta.GetMeta(ctx, metadata.KeyTokenExpiry)
	if err != nil {
		return false, fmt.Errorf("failed to read token expiry: %w", err)
	}
	if !ok {
		return false, nil
	}
	secs, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return false, nil
	}

	expiry := time.Unix(secs, 0)
	if !expiry.After(a.now()) {
		return false, nil
	}

	a.set(client.AuthContext{Token: token, Expiry: expiry})
	a.pub.Publish(ctx, notify.Message{Channel: notify.ChannelLogin})
	return true, nil
}

func (a *authService) Current() client.AuthContext {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.current
}

func (a *authService) set(ac client.AuthContext) {
	a.mu.Lock()
	a.current = ac
	a.mu.Unlock()
}

func (a *authService) Logout(ctx context.Context) error {
	a.set(client.AuthContext{})
	if err := a.meta.DeleteMeta(ctx, metadata.KeyToken, metadata.KeyTokenExpiry); err != nil && !errors.Is(err, common.ErrorNotFound) {
		return fmt.Errorf("failed to clear token: %w", err)
	}
	a.pub.Publish(ctx, notify.Message{Channel: notify.ChannelLogout})
	return nil
}
