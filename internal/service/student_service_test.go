package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harmonia-mx/campus-api/internal/models"
	"github.com/harmonia-mx/campus-api/pkg/config"
	appErrors "github.com/harmonia-mx/campus-api/pkg/errors"
)

type mockStudentStore struct {
	byID      map[string]*models.Student
	curpTaken bool
	created   []*models.Student
	updated   []*models.Student
	history   []string

	lastCURPCampus string
}

func (m *mockStudentStore) List(ctx context.Context, filter models.StudentFilter) ([]models.Student, int, error) {
	return nil, 0, nil
}

func (m *mockStudentStore) FindByID(ctx context.Context, id string) (*models.Student, error) {
	s, ok := m.byID[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return s, nil
}

func (m *mockStudentStore) PreviousClasses(ctx context.Context, studentID string) ([]string, error) {
	return m.history, nil
}

func (m *mockStudentStore) ExistsByCURP(ctx context.Context, curp, excludeID, campusID string) (bool, error) {
	m.lastCURPCampus = campusID
	return m.curpTaken, nil
}

func (m *mockStudentStore) Create(ctx context.Context, student *models.Student) error {
	student.ID = "student-new"
	m.created = append(m.created, student)
	return nil
}

func (m *mockStudentStore) Update(ctx context.Context, student *models.Student) error {
	m.updated = append(m.updated, student)
	return nil
}

type mockStudentTutors struct {
	byCURP    map[string]*models.Tutor
	created   []*models.Tutor
	refreshed []string
}

func (m *mockStudentTutors) FindByID(ctx context.Context, id string) (*models.Tutor, error) {
	return nil, sql.ErrNoRows
}

func (m *mockStudentTutors) FindByCURP(ctx context.Context, curp, campusID string) (*models.Tutor, error) {
	t, ok := m.byCURP[curp]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return t, nil
}

func (m *mockStudentTutors) Create(ctx context.Context, tutor *models.Tutor) error {
	tutor.ID = "tutor-new"
	m.created = append(m.created, tutor)
	return nil
}

func (m *mockStudentTutors) RefreshArchived(ctx context.Context, tutorID string) error {
	m.refreshed = append(m.refreshed, tutorID)
	return nil
}

func validEnrolment() models.CreateStudentRequest {
	return models.CreateStudentRequest{
		FirstName: "Ana",
		LastName:  "Lopez",
		Address:   "Calle 1",
		CURP:      "LOAA100101MDFXXX01",
		Gender:    "F",
		ClassID:   "class-a",
		Tutor: models.TutorPayload{
			Name:     "Rosa",
			LastName: "Lopez",
			CURP:     "LORO800101MDFXXX02",
			Phone:    "5550001111",
		},
	}
}

func TestStudentServiceCreateFindsExistingTutorByCURP(t *testing.T) {
	students := &mockStudentStore{byID: map[string]*models.Student{}}
	tutors := &mockStudentTutors{byCURP: map[string]*models.Tutor{
		"LORO800101MDFXXX02": {ID: "tutor-1", CURP: "LORO800101MDFXXX02", CampusID: "campus-a"},
	}}
	classes := &mockClasses{byID: map[string]*models.Class{
		"class-a": {ID: "class-a", CampusID: "campus-a"},
	}}
	svc := NewStudentService(students, tutors, classes, nil, nil, config.CURPScopeGlobal)

	student, err := svc.Create(context.Background(), validEnrolment(), "campus-a", "user-1")
	require.NoError(t, err)

	assert.Equal(t, "tutor-1", student.TutorID)
	assert.Empty(t, tutors.created)
	assert.Equal(t, models.StudentStatusActive, student.Status)
	assert.False(t, student.HasInstrument)
	assert.Equal(t, []string{"tutor-1"}, tutors.refreshed)
}

func TestStudentServiceCreateCreatesMissingTutor(t *testing.T) {
	students := &mockStudentStore{byID: map[string]*models.Student{}}
	tutors := &mockStudentTutors{byCURP: map[string]*models.Tutor{}}
	classes := &mockClasses{byID: map[string]*models.Class{
		"class-a": {ID: "class-a", CampusID: "campus-a"},
	}}
	svc := NewStudentService(students, tutors, classes, nil, nil, config.CURPScopeGlobal)

	student, err := svc.Create(context.Background(), validEnrolment(), "campus-a", "user-1")
	require.NoError(t, err)

	require.Len(t, tutors.created, 1)
	assert.Equal(t, "campus-a", tutors.created[0].CampusID)
	assert.Equal(t, "tutor-new", student.TutorID)
}

func TestStudentServiceCreateCURPConflict(t *testing.T) {
	students := &mockStudentStore{byID: map[string]*models.Student{}, curpTaken: true}
	svc := NewStudentService(students, &mockStudentTutors{}, &mockClasses{}, nil, nil, config.CURPScopeGlobal)

	_, err := svc.Create(context.Background(), validEnrolment(), "campus-a", "user-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
	assert.Empty(t, students.created)
	// global scope checks without a campus bound
	assert.Empty(t, students.lastCURPCampus)
}

func TestStudentServiceCreateCURPScopePerCampus(t *testing.T) {
	students := &mockStudentStore{byID: map[string]*models.Student{}}
	tutors := &mockStudentTutors{byCURP: map[string]*models.Tutor{}}
	classes := &mockClasses{byID: map[string]*models.Class{
		"class-a": {ID: "class-a", CampusID: "campus-a"},
	}}
	svc := NewStudentService(students, tutors, classes, nil, nil, config.CURPScopeCampus)

	_, err := svc.Create(context.Background(), validEnrolment(), "campus-a", "user-1")
	require.NoError(t, err)
	assert.Equal(t, "campus-a", students.lastCURPCampus)
}

func TestStudentServiceCreateClassMustMatchCampus(t *testing.T) {
	students := &mockStudentStore{byID: map[string]*models.Student{}}
	classes := &mockClasses{byID: map[string]*models.Class{
		"class-a": {ID: "class-a", CampusID: "campus-b"},
	}}
	svc := NewStudentService(students, &mockStudentTutors{}, classes, nil, nil, config.CURPScopeGlobal)

	_, err := svc.Create(context.Background(), validEnrolment(), "campus-a", "user-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestStudentServiceUpdateStatusChangeRefreshesTutor(t *testing.T) {
	students := &mockStudentStore{byID: map[string]*models.Student{
		"student-1": {
			ID:       "student-1",
			Status:   models.StudentStatusActive,
			TutorID:  "tutor-1",
			CampusID: "campus-a",
			ClassID:  "class-a",
		},
	}}
	tutors := &mockStudentTutors{}
	svc := NewStudentService(students, tutors, &mockClasses{}, nil, nil, config.CURPScopeGlobal)

	req := models.UpdateStudentRequest{
		FirstName: "Ana",
		LastName:  "Lopez",
		Address:   "Calle 1",
		CURP:      "LOAA100101MDFXXX01",
		Gender:    "F",
		ClassID:   "class-a",
		Status:    models.StudentStatusInactive,
	}
	student, err := svc.Update(context.Background(), "student-1", req, "user-1")
	require.NoError(t, err)
	assert.Equal(t, models.StudentStatusInactive, student.Status)
	assert.Equal(t, []string{"tutor-1"}, tutors.refreshed)

	// same status again: no refresh
	tutors.refreshed = nil
	req.Status = models.StudentStatusInactive
	_, err = svc.Update(context.Background(), "student-1", req, "user-1")
	require.NoError(t, err)
	assert.Empty(t, tutors.refreshed)
}

func TestStudentServiceGetIncludesHistory(t *testing.T) {
	students := &mockStudentStore{
		byID: map[string]*models.Student{
			"student-1": {ID: "student-1", CampusID: "campus-a"},
		},
		history: []string{"class-a", "class-b"},
	}
	svc := NewStudentService(students, &mockStudentTutors{}, &mockClasses{}, nil, nil, config.CURPScopeGlobal)

	detail, err := svc.Get(context.Background(), "student-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"class-a", "class-b"}, detail.PreviousClasses)

	_, err = svc.Get(context.Background(), "missing")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
