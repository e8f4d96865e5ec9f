package services

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nowaiting/clinic-console/internal/domain/entities"
	apperrors "github.com/nowaiting/clinic-console/pkg/errors"
)

// fakeCache is a map-backed CacheProvider.
type fakeCache struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newFakeCache() *fakeCache {
	return &fakeCache{data: make(map[string][]byte)}
}

func (c *fakeCache) Get(ctx context.Context, key string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	data, ok := c.data[key]
	if !ok {
		return nil, errors.New("miss")
	}
	return data, nil
}

func (c *fakeCache) Set(ctx context.Context, key string, value []byte, expirationSeconds int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = value
	return nil
}

func (c *fakeCache) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, key)
	return nil
}

func (c *fakeCache) Exists(ctx context.Context, key string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.data[key]
	return ok, nil
}

func TestSettingsService_GetDoctorSettings(t *testing.T) {
	t.Run("miss hits the ledger and warms the cache", func(t *testing.T) {
		ledger := &countingLedger{}
		cache := newFakeCache()
		service := NewSettingsService(ledger, cache)

		settings, err := service.GetDoctorSettings(context.Background(), "doc-1")
		require.NoError(t, err)
		assert.Equal(t, float64(300), settings.ConsultationFee)
		assert.Equal(t, 1, ledger.attempts)

		cached, ok := cache.data["doctor:settings:doc-1"]
		require.True(t, ok)
		assert.True(t, json.Valid(cached))
	})

	t.Run("hit skips the ledger", func(t *testing.T) {
		ledger := &countingLedger{}
		cache := newFakeCache()
		service := NewSettingsService(ledger, cache)

		_, err := service.GetDoctorSettings(context.Background(), "doc-1")
		require.NoError(t, err)
		_, err = service.GetDoctorSettings(context.Background(), "doc-1")
		require.NoError(t, err)

		assert.Equal(t, 1, ledger.attempts, "second lookup served from cache")
	})

	t.Run("nil cache goes straight through", func(t *testing.T) {
		ledger := &countingLedger{}
		service := NewSettingsService(ledger, nil)

		settings, err := service.GetDoctorSettings(context.Background(), "doc-1")
		require.NoError(t, err)
		assert.Equal(t, float64(150), settings.FollowUpFee)
	})

	t.Run("ledger outage surfaces as an external fault", func(t *testing.T) {
		service := NewSettingsService(&failingSettingsLedger{}, nil)

		_, err := service.GetDoctorSettings(context.Background(), "doc-1")
		require.Error(t, err)

		var appErr *apperrors.AppError
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, apperrors.ErrorTypeExternal, appErr.Type)
	})
}

type failingSettingsLedger struct {
	countingLedger
}

func (l *failingSettingsLedger) GetDoctorSettings(ctx context.Context, doctorID string) (*entities.DoctorSettings, error) {
	return nil, errors.New("ledger unreachable")
}
