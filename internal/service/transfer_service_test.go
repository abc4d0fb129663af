package service

import (
	"context"
	"database/sql"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harmonia-mx/campus-api/internal/models"
	appErrors "github.com/harmonia-mx/campus-api/pkg/errors"
)

type mockTransfers struct {
	performed  []*models.Transfer
	performErr error
	byID       map[string]*models.Transfer
	listed     []models.Transfer
}

func (m *mockTransfers) Perform(ctx context.Context, transfer *models.Transfer) error {
	if m.performErr != nil {
		return m.performErr
	}
	transfer.ID = "transfer-1"
	transfer.TransferDate = time.Now().UTC()
	m.performed = append(m.performed, transfer)
	return nil
}

func (m *mockTransfers) FindByID(ctx context.Context, id string) (*models.Transfer, error) {
	t, ok := m.byID[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return t, nil
}

func (m *mockTransfers) ListByCampus(ctx context.Context, campusID string) ([]models.Transfer, error) {
	return m.listed, nil
}

type mockStudents struct {
	byID map[string]*models.Student
}

func (m *mockStudents) FindByID(ctx context.Context, id string) (*models.Student, error) {
	s, ok := m.byID[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return s, nil
}

type mockInstruments struct {
	byStudent map[string]*models.Instrument
}

func (m *mockInstruments) FindByStudentID(ctx context.Context, studentID string) (*models.Instrument, error) {
	inst, ok := m.byStudent[studentID]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return inst, nil
}

type mockClasses struct {
	byID map[string]*models.Class
}

func (m *mockClasses) FindByID(ctx context.Context, id string) (*models.Class, error) {
	c, ok := m.byID[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return c, nil
}

type mockTutors struct {
	byID map[string]*models.Tutor
}

func (m *mockTutors) FindByID(ctx context.Context, id string) (*models.Tutor, error) {
	t, ok := m.byID[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return t, nil
}

type mockCache struct {
	gets        int
	sets        int
	invalidated []string
}

func (m *mockCache) Get(ctx context.Context, key string, dest interface{}) error {
	m.gets++
	return appErrors.ErrCacheMiss
}

func (m *mockCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	m.sets++
	return nil
}

func (m *mockCache) DeleteByPattern(ctx context.Context, pattern string) error {
	m.invalidated = append(m.invalidated, pattern)
	return nil
}

type seededTransferCache struct {
	mockCache
	entries map[string][]models.Transfer
}

func (m *seededTransferCache) Get(ctx context.Context, key string, dest interface{}) error {
	m.gets++
	if entry, ok := m.entries[key]; ok {
		*dest.(*[]models.Transfer) = entry
		return nil
	}
	return appErrors.ErrCacheMiss
}

func transferFixtures() (*mockTransfers, *mockStudents, *mockInstruments, *mockClasses, *mockTutors) {
	transfers := &mockTransfers{byID: map[string]*models.Transfer{}}
	students := &mockStudents{byID: map[string]*models.Student{
		"student-1": {
			ID:       "student-1",
			Status:   models.StudentStatusActive,
			TutorID:  "tutor-1",
			CampusID: "campus-a",
			ClassID:  "class-a",
		},
	}}
	instruments := &mockInstruments{byStudent: map[string]*models.Instrument{}}
	classes := &mockClasses{byID: map[string]*models.Class{
		"class-a": {ID: "class-a", CampusID: "campus-a"},
		"class-b": {ID: "class-b", CampusID: "campus-b"},
	}}
	tutors := &mockTutors{byID: map[string]*models.Tutor{
		"tutor-1": {ID: "tutor-1", CampusID: "campus-a"},
	}}
	return transfers, students, instruments, classes, tutors
}

func validTransferRequest() models.CreateTransferRequest {
	return models.CreateTransferRequest{
		StudentID:           "student-1",
		OriginCampusID:      "campus-a",
		DestinationCampusID: "campus-b",
		OriginClassID:       "class-a",
		DestinationClassID:  "class-b",
	}
}

func TestTransferServiceCreateAppliesAllEffects(t *testing.T) {
	transfers, students, instruments, classes, tutors := transferFixtures()
	cache := &mockCache{}
	audit := &mockAudit{}
	svc := NewTransferService(transfers, students, instruments, classes, tutors, cache, audit, nil, nil, nil, time.Minute)

	transfer, err := svc.Create(context.Background(), validTransferRequest(), "user-1")
	require.NoError(t, err)

	require.Len(t, transfers.performed, 1)
	applied := transfers.performed[0]
	assert.Equal(t, "student-1", applied.StudentID)
	assert.Equal(t, "campus-a", applied.OriginCampusID)
	assert.Equal(t, "campus-b", applied.DestinationCampusID)
	assert.Equal(t, "class-a", applied.OriginClassID)
	assert.Equal(t, "class-b", applied.DestinationClassID)
	assert.Equal(t, "tutor-1", applied.TutorID)
	assert.Equal(t, "user-1", applied.CreatedBy)
	assert.Equal(t, "transfer-1", transfer.ID)

	// both campus caches drop their transfer listings
	assert.ElementsMatch(t, []string{transferCacheKey("campus-a"), transferCacheKey("campus-b")}, cache.invalidated)
	require.Len(t, audit.logs, 1)
	assert.Equal(t, models.AuditActionTransfer, audit.logs[0].Action)
}

func TestTransferServiceCreateRejectsAssignedInstrumentBeforeAnyWrite(t *testing.T) {
	transfers, students, instruments, classes, tutors := transferFixtures()
	instruments.byStudent["student-1"] = &models.Instrument{ID: "inst-1", InternalID: "VLN-001"}
	cache := &mockCache{}
	svc := NewTransferService(transfers, students, instruments, classes, tutors, cache, &mockAudit{}, nil, nil, nil, time.Minute)

	_, err := svc.Create(context.Background(), validTransferRequest(), "user-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrPreconditionFailed.Code, appErrors.FromError(err).Code)
	assert.Empty(t, transfers.performed)
	assert.Empty(t, cache.invalidated)
}

func TestTransferServiceCreateRejectsSameCampus(t *testing.T) {
	transfers, students, instruments, classes, tutors := transferFixtures()
	svc := NewTransferService(transfers, students, instruments, classes, tutors, &mockCache{}, &mockAudit{}, nil, nil, nil, time.Minute)

	req := validTransferRequest()
	req.DestinationCampusID = "campus-a"
	req.OriginClassID = "class-a"
	req.DestinationClassID = "class-a"
	_, err := svc.Create(context.Background(), req, "user-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	assert.Empty(t, transfers.performed)
}

func TestTransferServiceCreateRejectsStudentAwayFromOrigin(t *testing.T) {
	transfers, students, instruments, classes, tutors := transferFixtures()
	students.byID["student-1"].CampusID = "campus-c"
	svc := NewTransferService(transfers, students, instruments, classes, tutors, &mockCache{}, &mockAudit{}, nil, nil, nil, time.Minute)

	_, err := svc.Create(context.Background(), validTransferRequest(), "user-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
	assert.Empty(t, transfers.performed)
}

func TestTransferServiceCreateRejectsOriginClassOutsideOriginCampus(t *testing.T) {
	transfers, students, instruments, classes, tutors := transferFixtures()
	classes.byID["class-a"].CampusID = "campus-c"
	svc := NewTransferService(transfers, students, instruments, classes, tutors, &mockCache{}, &mockAudit{}, nil, nil, nil, time.Minute)

	_, err := svc.Create(context.Background(), validTransferRequest(), "user-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	assert.Empty(t, transfers.performed)
}

func TestTransferServiceCreateRejectsClassCampusMismatch(t *testing.T) {
	transfers, students, instruments, classes, tutors := transferFixtures()
	classes.byID["class-b"].CampusID = "campus-c"
	svc := NewTransferService(transfers, students, instruments, classes, tutors, &mockCache{}, &mockAudit{}, nil, nil, nil, time.Minute)

	_, err := svc.Create(context.Background(), validTransferRequest(), "user-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	assert.Empty(t, transfers.performed)
}

func TestTransferServiceCreateMissingStudent(t *testing.T) {
	transfers, students, instruments, classes, tutors := transferFixtures()
	delete(students.byID, "student-1")
	svc := NewTransferService(transfers, students, instruments, classes, tutors, &mockCache{}, &mockAudit{}, nil, nil, nil, time.Minute)

	_, err := svc.Create(context.Background(), validTransferRequest(), "user-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestTransferServiceListByCampusPopulatesCache(t *testing.T) {
	transfers, students, instruments, classes, tutors := transferFixtures()
	transfers.listed = []models.Transfer{{ID: "transfer-1", OriginCampusID: "campus-a", DestinationCampusID: "campus-b"}}
	cache := &mockCache{}
	svc := NewTransferService(transfers, students, instruments, classes, tutors, cache, &mockAudit{}, nil, nil, nil, time.Minute)

	list, err := svc.ListByCampus(context.Background(), "campus-b")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, 1, cache.gets)
	assert.Equal(t, 1, cache.sets)
}

func TestTransferServiceListByCampusCountsCacheOutcomes(t *testing.T) {
	transfers, students, instruments, classes, tutors := transferFixtures()
	transfers.listed = []models.Transfer{{ID: "transfer-1", OriginCampusID: "campus-a", DestinationCampusID: "campus-b"}}
	cache := &seededTransferCache{entries: map[string][]models.Transfer{}}
	metrics := NewMetricsService()
	svc := NewTransferService(transfers, students, instruments, classes, tutors, cache, &mockAudit{}, metrics, nil, nil, time.Minute)

	_, err := svc.ListByCampus(context.Background(), "campus-b")
	require.NoError(t, err)
	assert.Equal(t, float64(0), testutil.ToFloat64(metrics.cacheHits))
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.cacheMisses))

	cache.entries[transferCacheKey("campus-b")] = transfers.listed
	list, err := svc.ListByCampus(context.Background(), "campus-b")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.cacheHits))
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.cacheMisses))
}

func TestTransferServiceExportCSV(t *testing.T) {
	transfers, students, instruments, classes, tutors := transferFixtures()
	transfers.listed = []models.Transfer{{
		ID:                  "transfer-1",
		StudentID:           "student-1",
		OriginCampusID:      "campus-a",
		DestinationCampusID: "campus-b",
		OriginClassID:       "class-a",
		DestinationClassID:  "class-b",
		TransferDate:        time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC),
	}}
	svc := NewTransferService(transfers, students, instruments, classes, tutors, nil, &mockAudit{}, nil, nil, nil, time.Minute)

	payload, contentType, err := svc.Export(context.Background(), "campus-a", "csv")
	require.NoError(t, err)
	assert.Equal(t, "text/csv", contentType)
	body := string(payload)
	assert.True(t, strings.Contains(body, "transfer-1"))
	assert.True(t, strings.Contains(body, "campus-b"))

	_, _, err = svc.Export(context.Background(), "campus-a", "xlsx")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}
