package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/uniplan/timetable-api/internal/dto"
	"github.com/uniplan/timetable-api/internal/models"
	"github.com/uniplan/timetable-api/internal/timetable"
	appErrors "github.com/uniplan/timetable-api/pkg/errors"
)

func adminActor() *models.Actor {
	return &models.Actor{UserID: 1, PersonID: 1, Permissions: models.PermissionSet{models.PermissionAdmin}}
}

func plainActor() *models.Actor {
	return &models.Actor{UserID: 2, PersonID: 2}
}

func newTestEngine() *timetable.Engine {
	return timetable.New(timetable.Config{LockTimeout: 200 * time.Millisecond}, zap.NewNop())
}

func errCode(t *testing.T, err error) string {
	t.Helper()
	require.Error(t, err)
	return appErrors.FromError(err).Code
}

func TestRegistryCreatePersonRequiresAdmin(t *testing.T) {
	svc := NewRegistryService(newTestEngine(), nil, zap.NewNop())
	req := dto.PersonRequest{Name: "Anna", Surname: "Petrova"}

	_, err := svc.CreatePerson(context.Background(), nil, req)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, errCode(t, err))

	_, err = svc.CreatePerson(context.Background(), plainActor(), req)
	assert.Equal(t, appErrors.ErrNotAuthorized.Code, errCode(t, err))
}

func TestRegistryPersonRoundtrip(t *testing.T) {
	svc := NewRegistryService(newTestEngine(), nil, zap.NewNop())
	ctx := context.Background()

	created, err := svc.CreatePerson(ctx, adminActor(), dto.PersonRequest{Name: "Anna", Surname: "Petrova"})
	require.NoError(t, err)
	require.NotZero(t, created.ID)

	got, err := svc.GetPerson(created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Petrova Anna", got.FullName())

	updated, err := svc.UpdatePerson(ctx, adminActor(), created.ID, dto.PersonRequest{Name: "Anna", Surname: "Petrova", Patronymic: "Ivanovna"})
	require.NoError(t, err)
	assert.Equal(t, "Petrova Anna Ivanovna", updated.FullName())

	assert.Len(t, svc.ListPersons(), 1)

	require.NoError(t, svc.DeletePerson(ctx, adminActor(), created.ID))
	_, err = svc.GetPerson(created.ID)
	assert.Equal(t, appErrors.ErrNotFound.Code, errCode(t, err))
}

func TestRegistryRejectsInvalidPayload(t *testing.T) {
	svc := NewRegistryService(newTestEngine(), nil, zap.NewNop())

	_, err := svc.CreatePerson(context.Background(), adminActor(), dto.PersonRequest{Name: "Anna"})
	assert.Equal(t, appErrors.ErrValidation.Code, errCode(t, err))

	_, err = svc.CreateGroup(context.Background(), adminActor(), dto.GroupRequest{Name: "CS-101", Year: 2024, Degree: "DIPLOMA"})
	assert.Equal(t, appErrors.ErrValidation.Code, errCode(t, err))
}

func TestRegistryDeletePersonBlockedByCourse(t *testing.T) {
	svc := NewRegistryService(newTestEngine(), nil, zap.NewNop())
	ctx := context.Background()

	person, err := svc.CreatePerson(ctx, adminActor(), dto.PersonRequest{Name: "Anna", Surname: "Petrova"})
	require.NoError(t, err)
	group, err := svc.CreateGroup(ctx, adminActor(), dto.GroupRequest{Name: "CS-101", Year: 2024, Degree: "BACHELOR", Students: 20})
	require.NoError(t, err)
	_, err = svc.CreateCourse(ctx, adminActor(), dto.CourseRequest{
		Code:     "ALG1",
		Name:     "Algorithms",
		Begin:    time.Date(2026, time.September, 1, 0, 0, 0, 0, time.UTC),
		End:      time.Date(2026, time.December, 20, 0, 0, 0, 0, time.UTC),
		PersonID: &person.ID,
		GroupID:  group.ID,
	})
	require.NoError(t, err)

	err = svc.DeletePerson(ctx, adminActor(), person.ID)
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrIntegrity.Code, appErr.Code)

	integrityErr, ok := appErr.Details.(*models.IntegrityError)
	require.True(t, ok)
	assert.Equal(t, "Course", integrityErr.DependentKind)
	assert.Equal(t, 1, integrityErr.Count)
}

func TestRegistryUnknownIDMapsNotFound(t *testing.T) {
	svc := NewRegistryService(newTestEngine(), nil, zap.NewNop())
	_, err := svc.GetRoom(42)
	assert.Equal(t, appErrors.ErrNotFound.Code, errCode(t, err))

	err = svc.DeleteCourse(context.Background(), adminActor(), 42)
	assert.Equal(t, appErrors.ErrNotFound.Code, errCode(t, err))
}

func TestRegistryCourseEnumsConvert(t *testing.T) {
	svc := NewRegistryService(newTestEngine(), nil, zap.NewNop())
	ctx := context.Background()

	group, err := svc.CreateGroup(ctx, adminActor(), dto.GroupRequest{Name: "CS-101", Year: 2024, Degree: "MASTER", Students: 12})
	require.NoError(t, err)
	assert.Equal(t, models.DegreeMaster, group.Degree)

	course, err := svc.CreateCourse(ctx, adminActor(), dto.CourseRequest{
		Code:     "ML1",
		Name:     "Machine Learning",
		Credits:  5,
		Controls: []string{"CREDIT_GRADE", "EXAM"},
		Begin:    time.Date(2026, time.September, 1, 0, 0, 0, 0, time.UTC),
		End:      time.Date(2026, time.December, 20, 0, 0, 0, 0, time.UTC),
		GroupID:  group.ID,
	})
	require.NoError(t, err)
	assert.True(t, course.Controls.Has(models.ControlExam))
	assert.True(t, course.Controls.Has(models.ControlCreditGrade))
	assert.False(t, course.Controls.Has(models.ControlCredit))
	assert.Nil(t, course.PersonID)
}
