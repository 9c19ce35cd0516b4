package timetable

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uniplan/timetable-api/internal/models"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func intPtr(v int) *int {
	return &v
}

func seedStorePerson(t *testing.T, s *Store) models.Person {
	t.Helper()
	person, err := s.CreatePerson(models.Person{Name: "Anna", Surname: "Petrova"})
	require.NoError(t, err)
	return person
}

func seedStoreGroup(t *testing.T, s *Store) models.EduGroup {
	t.Helper()
	group, err := s.CreateGroup(models.EduGroup{Name: "CS-101", Year: 2024, Degree: models.DegreeBachelor, Students: 20})
	require.NoError(t, err)
	return group
}

func TestStorePersonLifecycle(t *testing.T) {
	s := NewStore()

	person := seedStorePerson(t, s)
	assert.Equal(t, int64(1), person.ID)

	got, err := s.Person(person.ID)
	require.NoError(t, err)
	assert.Equal(t, "Petrova Anna", got.FullName())

	person.Patronymic = "Ivanovna"
	require.NoError(t, s.UpdatePerson(person))
	got, err = s.Person(person.ID)
	require.NoError(t, err)
	assert.Equal(t, "Petrova Anna Ivanovna", got.FullName())

	require.NoError(t, s.DeletePerson(person.ID))
	_, err = s.Person(person.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStoreRejectsInvalidPerson(t *testing.T) {
	s := NewStore()
	_, err := s.CreatePerson(models.Person{Name: "Anna"})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestStoreIDsNeverReused(t *testing.T) {
	s := NewStore()
	first := seedStorePerson(t, s)
	require.NoError(t, s.DeletePerson(first.ID))

	second := seedStorePerson(t, s)
	assert.Greater(t, second.ID, first.ID)
}

func TestStoreUserRequiresExistingPerson(t *testing.T) {
	s := NewStore()
	_, err := s.CreateUser(models.User{Logins: "apetrova", PersonID: 42})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestStoreDeletePersonBlockedByUser(t *testing.T) {
	s := NewStore()
	person := seedStorePerson(t, s)
	_, err := s.CreateUser(models.User{Logins: "apetrova", PersonID: person.ID})
	require.NoError(t, err)

	err = s.DeletePerson(person.ID)
	var integrityErr *models.IntegrityError
	require.ErrorAs(t, err, &integrityErr)
	assert.Equal(t, "Person", integrityErr.Kind)
	assert.Equal(t, "User", integrityErr.DependentKind)
	assert.Equal(t, 1, integrityErr.Count)
}

func TestStoreDeletePersonBlockedByCourse(t *testing.T) {
	s := NewStore()
	person := seedStorePerson(t, s)
	group := seedStoreGroup(t, s)
	_, err := s.CreateCourse(models.Course{
		Code:     "ALG1",
		Name:     "Algorithms",
		Begin:    day(2026, time.September, 1),
		End:      day(2026, time.December, 20),
		PersonID: &person.ID,
		GroupID:  group.ID,
	})
	require.NoError(t, err)

	err = s.DeletePerson(person.ID)
	var integrityErr *models.IntegrityError
	require.ErrorAs(t, err, &integrityErr)
	assert.Equal(t, "Course", integrityErr.DependentKind)
	assert.Equal(t, 1, integrityErr.Count)

	// Person stays fully intact after the refusal.
	_, err = s.Person(person.ID)
	assert.NoError(t, err)
}

func TestStoreDeleteGroupBlockedByCourse(t *testing.T) {
	s := NewStore()
	group := seedStoreGroup(t, s)
	_, err := s.CreateCourse(models.Course{
		Code:    "ALG1",
		Name:    "Algorithms",
		Begin:   day(2026, time.September, 1),
		End:     day(2026, time.December, 20),
		GroupID: group.ID,
	})
	require.NoError(t, err)

	err = s.DeleteGroup(group.ID)
	var integrityErr *models.IntegrityError
	require.ErrorAs(t, err, &integrityErr)
	assert.Equal(t, "EduGroup", integrityErr.Kind)
}

func TestStoreCourseValidation(t *testing.T) {
	s := NewStore()
	group := seedStoreGroup(t, s)

	_, err := s.CreateCourse(models.Course{
		Code:    "ALG1",
		Name:    "Algorithms",
		Begin:   day(2026, time.December, 20),
		End:     day(2026, time.September, 1),
		GroupID: group.ID,
	})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = s.CreateCourse(models.Course{
		Code:     "ALG1",
		Name:     "Algorithms",
		Begin:    day(2026, time.September, 1),
		End:      day(2026, time.December, 20),
		Controls: models.ControlSet{"ORAL"},
		GroupID:  group.ID,
	})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = s.CreateCourse(models.Course{
		Code:    "ALG1",
		Name:    "Algorithms",
		Begin:   day(2026, time.September, 1),
		End:     day(2026, time.December, 20),
		GroupID: group.ID + 99,
	})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestStoreRoomCapacityValidation(t *testing.T) {
	s := NewStore()
	_, err := s.CreateRoom(models.Room{Name: "A-100", Building: "Main", Capacity: intPtr(0)})
	assert.ErrorIs(t, err, ErrValidation)

	room, err := s.CreateRoom(models.Room{Name: "A-100", Building: "Main"})
	require.NoError(t, err)
	assert.True(t, room.Fits(500))
}

func TestStoreUpdateUserMovesReverseRef(t *testing.T) {
	s := NewStore()
	first := seedStorePerson(t, s)
	second, err := s.CreatePerson(models.Person{Name: "Boris", Surname: "Ivanov"})
	require.NoError(t, err)

	user, err := s.CreateUser(models.User{Logins: "acc", PersonID: first.ID})
	require.NoError(t, err)

	user.PersonID = second.ID
	require.NoError(t, s.UpdateUser(user))

	require.NoError(t, s.DeletePerson(first.ID))
	err = s.DeletePerson(second.ID)
	assert.True(t, errors.As(err, new(*models.IntegrityError)))
}
