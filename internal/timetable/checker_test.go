package timetable

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uniplan/timetable-api/internal/models"
)

type checkerFixture struct {
	store   *Store
	index   *ConflictIndex
	checker *Checker

	teacher models.Person
	group   models.EduGroup
	roomA   models.Room
	roomB   models.Room
	course  models.Course
}

func newCheckerFixture(t *testing.T) *checkerFixture {
	t.Helper()
	store := NewStore()
	index := NewConflictIndex()

	teacher, err := store.CreatePerson(models.Person{Name: "Anna", Surname: "Petrova"})
	require.NoError(t, err)
	group, err := store.CreateGroup(models.EduGroup{Name: "CS-101", Year: 2024, Degree: models.DegreeBachelor, Students: 20})
	require.NoError(t, err)
	roomA, err := store.CreateRoom(models.Room{Name: "A-100", Building: "Main", Capacity: intPtr(30)})
	require.NoError(t, err)
	roomB, err := store.CreateRoom(models.Room{Name: "B-200", Building: "Main", Capacity: intPtr(30)})
	require.NoError(t, err)
	course, err := store.CreateCourse(models.Course{
		Code:     "ALG1",
		Name:     "Algorithms",
		Begin:    day(2026, time.September, 1),
		End:      day(2026, time.December, 20),
		PersonID: &teacher.ID,
		GroupID:  group.ID,
	})
	require.NoError(t, err)

	return &checkerFixture{
		store:   store,
		index:   index,
		checker: NewChecker(store, index),
		teacher: teacher,
		group:   group,
		roomA:   roomA,
		roomB:   roomB,
		course:  course,
	}
}

// commit inserts an event directly, keeping store and index in lockstep the
// way the engine does.
func (f *checkerFixture) commit(t *testing.T, courseID *int64, roomID int64, begin, end time.Time) models.Event {
	t.Helper()
	ev, err := f.store.insertEvent(models.Event{
		Begin:    begin,
		End:      end,
		Name:     "Lecture",
		CourseID: courseID,
		RoomID:   roomID,
		Form:     models.FormLecture,
	})
	require.NoError(t, err)

	indexed := IndexedEvent{ID: ev.ID, Begin: ev.Begin, End: ev.End, RoomID: ev.RoomID}
	if courseID != nil {
		course, err := f.store.Course(*courseID)
		require.NoError(t, err)
		indexed.TeacherID = course.PersonID
		groupID := course.GroupID
		indexed.GroupID = &groupID
	}
	f.index.Insert(indexed)
	return ev
}

func TestCheckerRoomConflict(t *testing.T) {
	f := newCheckerFixture(t)
	monday := day(2026, time.September, 7)
	existing := f.commit(t, &f.course.ID, f.roomA.ID, at(monday, 9, 0), at(monday, 10, 30))

	result := f.checker.Check(models.Event{
		Begin:  at(monday, 10, 0),
		End:    at(monday, 11, 0),
		Name:   "Ad hoc",
		RoomID: f.roomA.ID,
		Form:   models.FormPractice,
	}, 0)

	assert.False(t, result.Feasible)
	require.Len(t, result.Conflicts, 1)
	assert.Equal(t, models.DimensionRoom, result.Conflicts[0].Dimension)
	assert.Equal(t, existing.ID, result.Conflicts[0].EventID)
}

func TestCheckerTeacherConflictAcrossRooms(t *testing.T) {
	f := newCheckerFixture(t)
	monday := day(2026, time.September, 7)
	f.commit(t, &f.course.ID, f.roomA.ID, at(monday, 9, 0), at(monday, 10, 30))

	otherGroup, err := f.store.CreateGroup(models.EduGroup{Name: "CS-102", Year: 2024, Degree: models.DegreeBachelor, Students: 15})
	require.NoError(t, err)
	otherCourse, err := f.store.CreateCourse(models.Course{
		Code:     "DS1",
		Name:     "Data Structures",
		Begin:    day(2026, time.September, 1),
		End:      day(2026, time.December, 20),
		PersonID: &f.teacher.ID,
		GroupID:  otherGroup.ID,
	})
	require.NoError(t, err)

	result := f.checker.Check(models.Event{
		Begin:    at(monday, 9, 30),
		End:      at(monday, 11, 0),
		Name:     "Lecture",
		CourseID: &otherCourse.ID,
		RoomID:   f.roomB.ID,
		Form:     models.FormLecture,
	}, 0)

	assert.False(t, result.Feasible)
	require.Len(t, result.Conflicts, 1)
	assert.Equal(t, models.DimensionTeacher, result.Conflicts[0].Dimension)
}

func TestCheckerGroupConflictAcrossTeachers(t *testing.T) {
	f := newCheckerFixture(t)
	monday := day(2026, time.September, 7)
	f.commit(t, &f.course.ID, f.roomA.ID, at(monday, 9, 0), at(monday, 10, 30))

	otherTeacher, err := f.store.CreatePerson(models.Person{Name: "Boris", Surname: "Ivanov"})
	require.NoError(t, err)
	otherCourse, err := f.store.CreateCourse(models.Course{
		Code:     "CAL1",
		Name:     "Calculus",
		Begin:    day(2026, time.September, 1),
		End:      day(2026, time.December, 20),
		PersonID: &otherTeacher.ID,
		GroupID:  f.group.ID,
	})
	require.NoError(t, err)

	result := f.checker.Check(models.Event{
		Begin:    at(monday, 10, 0),
		End:      at(monday, 11, 30),
		Name:     "Lecture",
		CourseID: &otherCourse.ID,
		RoomID:   f.roomB.ID,
		Form:     models.FormLecture,
	}, 0)

	assert.False(t, result.Feasible)
	require.Len(t, result.Conflicts, 1)
	assert.Equal(t, models.DimensionGroup, result.Conflicts[0].Dimension)
}

func TestCheckerCourseWindowViolation(t *testing.T) {
	f := newCheckerFixture(t)
	outside := day(2027, time.February, 1)

	result := f.checker.Check(models.Event{
		Begin:    at(outside, 9, 0),
		End:      at(outside, 10, 30),
		Name:     "Lecture",
		CourseID: &f.course.ID,
		RoomID:   f.roomA.ID,
		Form:     models.FormLecture,
	}, 0)

	assert.False(t, result.Feasible)
	require.Len(t, result.Conflicts, 1)
	assert.Equal(t, models.DimensionCourseWindow, result.Conflicts[0].Dimension)
	assert.Zero(t, result.Conflicts[0].EventID)
}

func TestCheckerDeterministicDimensionOrder(t *testing.T) {
	f := newCheckerFixture(t)
	monday := day(2026, time.September, 7)
	f.commit(t, nil, f.roomA.ID, at(monday, 9, 0), at(monday, 10, 30))

	// A course whose window closed before monday: the candidate hits both the
	// room and the window rule, and the room conflict is reported first.
	shortCourse, err := f.store.CreateCourse(models.Course{
		Code:    "INT1",
		Name:    "Intro",
		Begin:   day(2026, time.June, 1),
		End:     day(2026, time.June, 30),
		GroupID: f.group.ID,
	})
	require.NoError(t, err)

	result := f.checker.Check(models.Event{
		Begin:    at(monday, 9, 0),
		End:      at(monday, 10, 0),
		Name:     "Lecture",
		CourseID: &shortCourse.ID,
		RoomID:   f.roomA.ID,
		Form:     models.FormLecture,
	}, 0)

	assert.False(t, result.Feasible)
	require.Len(t, result.Conflicts, 2)
	assert.Equal(t, models.DimensionRoom, result.Conflicts[0].Dimension)
	assert.Equal(t, models.DimensionCourseWindow, result.Conflicts[1].Dimension)
}

func TestCheckerExcludesRescheduledEvent(t *testing.T) {
	f := newCheckerFixture(t)
	monday := day(2026, time.September, 7)
	existing := f.commit(t, &f.course.ID, f.roomA.ID, at(monday, 9, 0), at(monday, 10, 30))

	// Moving the event 30 minutes later overlaps only with itself.
	candidate := models.Event{
		ID:       existing.ID,
		Begin:    at(monday, 9, 30),
		End:      at(monday, 11, 0),
		Name:     existing.Name,
		CourseID: existing.CourseID,
		RoomID:   existing.RoomID,
		Form:     existing.Form,
	}

	blocked := f.checker.Check(candidate, 0)
	assert.False(t, blocked.Feasible)

	allowed := f.checker.Check(candidate, existing.ID)
	assert.True(t, allowed.Feasible)
	assert.Empty(t, allowed.Conflicts)
}
