package service

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harmonia-mx/campus-api/internal/models"
	appErrors "github.com/harmonia-mx/campus-api/pkg/errors"
)

type mockCampusStore struct {
	listed    []models.Campus
	listCalls int
}

func (m *mockCampusStore) List(ctx context.Context, includeArchived bool) ([]models.Campus, error) {
	m.listCalls++
	return m.listed, nil
}

func (m *mockCampusStore) FindByID(ctx context.Context, id string) (*models.Campus, error) {
	return nil, nil
}

func (m *mockCampusStore) Create(ctx context.Context, campus *models.Campus) error { return nil }
func (m *mockCampusStore) Update(ctx context.Context, campus *models.Campus) error { return nil }
func (m *mockCampusStore) Archive(ctx context.Context, id string) error            { return nil }

type seededCampusCache struct {
	entries map[string][]models.Campus
	sets    int
}

func (m *seededCampusCache) Get(ctx context.Context, key string, dest interface{}) error {
	if entry, ok := m.entries[key]; ok {
		*dest.(*[]models.Campus) = entry
		return nil
	}
	return appErrors.ErrCacheMiss
}

func (m *seededCampusCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	m.sets++
	return nil
}

func (m *seededCampusCache) DeleteByPattern(ctx context.Context, pattern string) error { return nil }

func TestCampusServiceListCountsCacheOutcomes(t *testing.T) {
	store := &mockCampusStore{listed: []models.Campus{{ID: "campus-a", Name: "Roma Norte"}}}
	cache := &seededCampusCache{entries: map[string][]models.Campus{}}
	metrics := NewMetricsService()
	svc := NewCampusService(store, cache, metrics, nil, nil, time.Minute)

	list, err := svc.List(context.Background(), false)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, 1, store.listCalls)
	assert.Equal(t, 1, cache.sets)
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.cacheMisses))

	cache.entries[campusCacheKey] = store.listed
	list, err = svc.List(context.Background(), false)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, 1, store.listCalls)
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.cacheHits))
}

func TestCampusServiceListSkipsCacheForArchived(t *testing.T) {
	store := &mockCampusStore{listed: []models.Campus{{ID: "campus-a"}, {ID: "campus-b", Archived: true}}}
	cache := &seededCampusCache{entries: map[string][]models.Campus{}}
	svc := NewCampusService(store, cache, nil, nil, nil, time.Minute)

	list, err := svc.List(context.Background(), true)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, 0, cache.sets)
}
