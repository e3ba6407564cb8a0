package services

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/snapkeeper/internal/client/notify"
	"github.com/dmitrijs2005/snapkeeper/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/snapkeeper/internal/common"
)

// ---- fakes ----

type memMeta struct {
	mu     sync.Mutex
	values map[string]string
	setErr error
}

func newMemMeta() *memMeta { return &memMeta{values: map[string]string{}} }

func (m *memMeta) GetMeta(_ context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[key]
	return v, ok, nil
}

func (m *memMeta) SetMeta(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.setErr != nil {
		return m.setErr
	}
	m.values[key] = value
	return nil
}

func (m *memMeta) DeleteMeta(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.values, k)
	}
	return nil
}

type recorder struct {
	mu   sync.Mutex
	msgs []notify.Message
}

func (r *recorder) Publish(_ context.Context, msg notify.Message) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, msg)
}

func (r *recorder) channels() []notify.Channel {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]notify.Channel, 0, len(r.msgs))
	for _, m := range r.msgs {
		out = append(out, m.Channel)
	}
	return out
}

var fixedNow = time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

func newTestAuth(meta *memMeta, pub *recorder) *authService {
	a := NewAuthService(meta, pub).(*authService)
	a.now = func() time.Time { return fixedNow }
	return a
}

// ---- tests ----

func TestAuthService_LoginPersistsAndPublishes(t *testing.T) {
	meta, pub := newMemMeta(), &recorder{}
	a := newTestAuth(meta, pub)
	expiry := fixedNow.Add(30 * time.Minute)

	require.NoError(t, a.Login(context.Background(), "tok", expiry))

	assert.Equal(t, "tok", meta.values[metadata.KeyToken])
	assert.Equal(t, strconv.FormatInt(expiry.Unix(), 10), meta.values[metadata.KeyTokenExpiry])
	assert.Equal(t, "tok", a.Current().Token)
	assert.True(t, a.Current().Valid(fixedNow))
	assert.Equal(t, []notify.Channel{notify.ChannelLogin}, pub.channels())
}

func TestAuthService_LoginDefaultsExpiry(t *testing.T) {
	a := newTestAuth(newMemMeta(), &recorder{})
	require.NoError(t, a.Login(context.Background(), "opaque-token", time.Time{}))
	assert.Equal(t, fixedNow.Add(DefaultTokenLifetime), a.Current().Expiry)
}

func TestAuthService_LoginReadsJWTExpiry(t *testing.T) {
	exp := fixedNow.Add(2 * time.Hour).Truncate(time.Second)
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"exp": exp.Unix()}).SignedString([]byte("k"))
	require.NoError(t, err)

	a := newTestAuth(newMemMeta(), &recorder{})
	require.NoError(t, a.Login(context.Background(), token, time.Time{}))
	assert.True(t, exp.Equal(a.Current().Expiry))
}

func TestAuthService_LoginRejects(t *testing.T) {
	a := newTestAuth(newMemMeta(), &recorder{})

	err := a.Login(context.Background(), "", fixedNow.Add(time.Hour))
	assert.ErrorIs(t, err, common.ErrInvalidToken)

	err = a.Login(context.Background(), "tok", fixedNow.Add(-time.Minute))
	assert.ErrorIs(t, err, common.ErrInvalidToken)
}

func TestAuthService_LoginStoreError(t *testing.T) {
	meta, pub := newMemMeta(), &recorder{}
	meta.setErr = errors.New("disk full")
	a := newTestAuth(meta, pub)

	err := a.Login(context.Background(), "tok", fixedNow.Add(time.Hour))
	require.Error(t, err)
	assert.Empty(t, a.Current().Token)
	assert.Empty(t, pub.channels())
}

func TestAuthService_Resume(t *testing.T) {
	tests := []struct {
		name   string
		values map[string]string
		want   bool
	}{
		{name: "no token", values: map[string]string{}, want: false},
		{name: "valid", values: map[string]string{
			metadata.KeyToken:       "tok",
			metadata.KeyTokenExpiry: strconv.FormatInt(fixedNow.Add(time.Hour).Unix(), 10),
		}, want: true},
		{name: "expired", values: map[string]string{
			metadata.KeyToken:       "tok",
			metadata.KeyTokenExpiry: strconv.FormatInt(fixedNow.Add(-time.Hour).Unix(), 10),
		}, want: false},
		{name: "missing expiry", values: map[string]string{metadata.KeyToken: "tok"}, want: false},
		{name: "garbled expiry", values: map[string]string{
			metadata.KeyToken:       "tok",
			metadata.KeyTokenExpiry: "soon",
		}, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			meta, pub := newMemMeta(), &recorder{}
			meta.values = tt.values
			a := newTestAuth(meta, pub)

			ok, err := a.Resume(context.Background())
			require.NoError(t, err)
			assert.Equal(t, tt.want, ok)
			if tt.want {
				assert.Equal(t, "tok", a.Current().Token)
				assert.Equal(t, []notify.Channel{notify.ChannelLogin}, pub.channels())
			} else {
				assert.Empty(t, a.Current().Token)
				assert.Empty(t, pub.channels())
			}
		})
	}
}

func TestAuthService_Logout(t *testing.T) {
	meta, pub := newMemMeta(), &recorder{}
	a := newTestAuth(meta, pub)
	ctx := context.Background()
	require.NoError(t, a.Login(ctx, "tok", fixedNow.Add(time.Hour)))

	require.NoError(t, a.Logout(ctx))

	assert.Empty(t, a.Current().Token)
	assert.Empty(t, meta.values)
	assert.Equal(t, []notify.Channel{notify.ChannelLogin, notify.ChannelLogout}, pub.channels())
}
