package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harmonia-mx/campus-api/internal/models"
	appErrors "github.com/harmonia-mx/campus-api/pkg/errors"
)

type mockInstrumentStore struct {
	byID      map[string]*models.Instrument
	byStudent map[string]*models.Instrument
	taken     map[string]string
	created   []*models.Instrument
	updated   []*models.Instrument
	deleted   []string
}

func newMockInstrumentStore() *mockInstrumentStore {
	return &mockInstrumentStore{
		byID:      map[string]*models.Instrument{},
		byStudent: map[string]*models.Instrument{},
		taken:     map[string]string{},
	}
}

func (m *mockInstrumentStore) FindByID(ctx context.Context, id string) (*models.Instrument, error) {
	inst, ok := m.byID[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return inst, nil
}

func (m *mockInstrumentStore) FindByStudentID(ctx context.Context, studentID string) (*models.Instrument, error) {
	inst, ok := m.byStudent[studentID]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return inst, nil
}

func (m *mockInstrumentStore) ExistsByInternalID(ctx context.Context, internalID, excludeID string) (bool, error) {
	owner, ok := m.taken[internalID]
	return ok && owner != excludeID, nil
}

func (m *mockInstrumentStore) ListByCampus(ctx context.Context, campusID string) ([]models.Instrument, error) {
	return nil, nil
}

func (m *mockInstrumentStore) Create(ctx context.Context, inst *models.Instrument) error {
	inst.ID = "inst-new"
	m.created = append(m.created, inst)
	return nil
}

func (m *mockInstrumentStore) Update(ctx context.Context, inst *models.Instrument) error {
	m.updated = append(m.updated, inst)
	return nil
}

func (m *mockInstrumentStore) Delete(ctx context.Context, id string) error {
	m.deleted = append(m.deleted, id)
	return nil
}

type mockInstrumentStudents struct {
	byID       map[string]*models.Student
	recomputed []string
}

func (m *mockInstrumentStudents) FindByID(ctx context.Context, id string) (*models.Student, error) {
	s, ok := m.byID[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return s, nil
}

func (m *mockInstrumentStudents) RecomputeHasInstrument(ctx context.Context, studentID string) error {
	m.recomputed = append(m.recomputed, studentID)
	return nil
}

func TestInstrumentServiceCreateAssignsAndRecomputes(t *testing.T) {
	store := newMockInstrumentStore()
	students := &mockInstrumentStudents{byID: map[string]*models.Student{
		"student-1": {ID: "student-1", TutorID: "tutor-1"},
	}}
	audit := &mockAudit{}
	svc := NewInstrumentService(store, students, audit, nil, nil)

	studentID := "student-1"
	inst, err := svc.Create(context.Background(), models.CreateInstrumentRequest{
		InternalID: "VLN-001",
		Name:       "Violin 4/4",
		StudentID:  &studentID,
	}, "campus-a", "user-1")
	require.NoError(t, err)

	require.NotNil(t, inst.StudentID)
	assert.Equal(t, "student-1", *inst.StudentID)
	require.NotNil(t, inst.TutorID)
	assert.Equal(t, "tutor-1", *inst.TutorID)
	require.NotNil(t, inst.AssignmentDate)
	assert.Equal(t, []string{"student-1"}, students.recomputed)
	require.Len(t, audit.logs, 1)
	assert.Equal(t, models.AuditActionAssignment, audit.logs[0].Action)
}

func TestInstrumentServiceCreateRejectsSecondInstrument(t *testing.T) {
	store := newMockInstrumentStore()
	store.byStudent["student-1"] = &models.Instrument{ID: "inst-1", InternalID: "VLN-001"}
	students := &mockInstrumentStudents{byID: map[string]*models.Student{
		"student-1": {ID: "student-1", TutorID: "tutor-1"},
	}}
	svc := NewInstrumentService(store, students, &mockAudit{}, nil, nil)

	studentID := "student-1"
	_, err := svc.Create(context.Background(), models.CreateInstrumentRequest{
		InternalID: "CEL-002",
		Name:       "Cello",
		StudentID:  &studentID,
	}, "campus-a", "user-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
	assert.Empty(t, store.created)
	assert.Empty(t, students.recomputed)
}

func TestInstrumentServiceCreateRejectsDuplicateInternalID(t *testing.T) {
	store := newMockInstrumentStore()
	store.taken["VLN-001"] = "inst-1"
	svc := NewInstrumentService(store, &mockInstrumentStudents{}, &mockAudit{}, nil, nil)

	_, err := svc.Create(context.Background(), models.CreateInstrumentRequest{
		InternalID: "VLN-001",
		Name:       "Violin 4/4",
	}, "campus-a", "user-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestInstrumentServiceUpdateReassignRecomputesBothStudents(t *testing.T) {
	oldStudent := "student-1"
	store := newMockInstrumentStore()
	store.byID["inst-1"] = &models.Instrument{ID: "inst-1", InternalID: "VLN-001", Name: "Violin 4/4", StudentID: &oldStudent, TutorID: strPtr("tutor-1")}
	store.byStudent["student-1"] = store.byID["inst-1"]
	students := &mockInstrumentStudents{byID: map[string]*models.Student{
		"student-1": {ID: "student-1", TutorID: "tutor-1"},
		"student-2": {ID: "student-2", TutorID: "tutor-2"},
	}}
	svc := NewInstrumentService(store, students, &mockAudit{}, nil, nil)

	newStudent := "student-2"
	inst, err := svc.Update(context.Background(), "inst-1", models.UpdateInstrumentRequest{
		InternalID: "VLN-001",
		Name:       "Violin 4/4",
		StudentID:  &newStudent,
	}, "user-1")
	require.NoError(t, err)

	require.NotNil(t, inst.StudentID)
	assert.Equal(t, "student-2", *inst.StudentID)
	require.NotNil(t, inst.TutorID)
	assert.Equal(t, "tutor-2", *inst.TutorID)
	assert.ElementsMatch(t, []string{"student-1", "student-2"}, students.recomputed)
}

func TestInstrumentServiceUpdateClearingAssignment(t *testing.T) {
	holder := "student-1"
	store := newMockInstrumentStore()
	store.byID["inst-1"] = &models.Instrument{ID: "inst-1", InternalID: "VLN-001", Name: "Violin 4/4", StudentID: &holder, TutorID: strPtr("tutor-1")}
	students := &mockInstrumentStudents{byID: map[string]*models.Student{
		"student-1": {ID: "student-1", TutorID: "tutor-1"},
	}}
	svc := NewInstrumentService(store, students, &mockAudit{}, nil, nil)

	inst, err := svc.Update(context.Background(), "inst-1", models.UpdateInstrumentRequest{
		InternalID: "VLN-001",
		Name:       "Violin 4/4",
	}, "user-1")
	require.NoError(t, err)

	assert.Nil(t, inst.StudentID)
	assert.Nil(t, inst.TutorID)
	assert.Nil(t, inst.AssignmentDate)
	assert.Equal(t, []string{"student-1"}, students.recomputed)
}

func TestInstrumentServiceDeleteRecomputesLosingStudent(t *testing.T) {
	holder := "student-1"
	store := newMockInstrumentStore()
	store.byID["inst-1"] = &models.Instrument{ID: "inst-1", InternalID: "VLN-001", StudentID: &holder}
	students := &mockInstrumentStudents{byID: map[string]*models.Student{}}
	svc := NewInstrumentService(store, students, &mockAudit{}, nil, nil)

	require.NoError(t, svc.Delete(context.Background(), "inst-1", "user-1"))
	assert.Equal(t, []string{"inst-1"}, store.deleted)
	assert.Equal(t, []string{"student-1"}, students.recomputed)
}

func strPtr(s string) *string {
	return &s
}
