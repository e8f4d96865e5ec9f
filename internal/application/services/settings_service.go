package services

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nowaiting/clinic-console/internal/domain/entities"
	"github.com/nowaiting/clinic-console/internal/domain/providers"
	apperrors "github.com/nowaiting/clinic-console/pkg/errors"
)

// settingsCacheTTLSeconds keeps fee schedules warm for a few minutes; the
// schedule is display/default data, staleness is harmless.
const settingsCacheTTLSeconds = 300

// SettingsService serves doctor fee schedules from the ledger API with a
// short-lived cache in front.
type SettingsService struct {
	ledger providers.LedgerProvider
	cache  providers.CacheProvider
}

// NewSettingsService creates a new settings service. The cache may be nil.
func NewSettingsService(ledger providers.LedgerProvider, cache providers.CacheProvider) *SettingsService {
	return &SettingsService{
		ledger: ledger,
		cache:  cache,
	}
}

// GetDoctorSettings returns a doctor's fee schedule.
func (s *SettingsService) GetDoctorSettings(ctx context.Context, doctorID string) (*entities.DoctorSettings, error) {
	key := settingsCacheKey(doctorID)

	if s.cache != nil {
		if data, err := s.cache.Get(ctx, key); err == nil {
			var settings entities.DoctorSettings
			if err := json.Unmarshal(data, &settings); err == nil {
				return &settings, nil
			}
		}
	}

	settings, err := s.ledger.GetDoctorSettings(ctx, doctorID)
	if err != nil {
		return nil, apperrors.NewExternalError("failed to load doctor settings", err)
	}

	if s.cache != nil {
		if data, err := json.Marshal(settings); err == nil {
			// Cache write failure is not worth failing the lookup over.
			_ = s.cache.Set(ctx, key, data, settingsCacheTTLSeconds)
		}
	}

	return settings, nil
}

func settingsCacheKey(doctorID string) string {
	return fmt.Sprintf("doctor:settings:%s", doctorID)
}
