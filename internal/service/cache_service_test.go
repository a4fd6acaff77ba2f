package service

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/staff-records-api/internal/models"
	appErrors "github.com/noah-isme/staff-records-api/pkg/errors"
)

type memCache struct {
	entries map[string][]byte
}

func (m *memCache) Get(ctx context.Context, key string, dest interface{}) error {
	raw, ok := m.entries[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (m *memCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.entries[key] = raw
	return nil
}

func (m *memCache) DeleteByPattern(ctx context.Context, pattern string) error {
	prefix := strings.TrimSuffix(pattern, "*")
	for k := range m.entries {
		if strings.HasPrefix(k, prefix) {
			delete(m.entries, k)
		}
	}
	return nil
}

func TestCacheServiceDisabledIsNoop(t *testing.T) {
	var nilCache *CacheService
	hit, err := nilCache.Get(context.Background(), "k", &struct{}{})
	assert.False(t, hit)
	assert.NoError(t, err)
	assert.NoError(t, nilCache.Invalidate(context.Background(), "k*"))

	disabled := NewCacheService(&memCache{entries: map[string][]byte{}}, nil, 0, nil, false)
	assert.False(t, disabled.Enabled())
	assert.NoError(t, disabled.Set(context.Background(), "k", 1, 0))
}

func TestStatisticsServedFromCacheUntilWrite(t *testing.T) {
	f := newFixture(fixedClock(2024, time.March, 10))
	cache := NewCacheService(&memCache{entries: map[string][]byte{}}, f.metrics, time.Minute, nil, true)
	svc := NewStaffService(profileFake{f.store}, employmentFake{f.store}, childFake{memStore: f.store}, f.derived, f.store, f.store, nil, nil,
		WithStatisticsCache(cache, time.Minute))

	_, err := svc.Create(context.Background(), createRequest("C1", "Cached"), hrActor)
	require.NoError(t, err)

	stats, hit, err := svc.Statistics(context.Background())
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, 1, stats.TotalStaff)

	seedProfile(t, f, models.StaffProfile{StaffID: "C2", StaffName: "Bypass", IsActive: true})
	stats, hit, err = svc.Statistics(context.Background())
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, 1, stats.TotalStaff)

	_, err = svc.Create(context.Background(), createRequest("C3", "Invalidates"), hrActor)
	require.NoError(t, err)
	stats, hit, err = svc.Statistics(context.Background())
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, 3, stats.TotalStaff)
}
