package service

import (
	"bytes"
	"context"
	"strings"
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

type scheduleFixture struct {
	engine  *timetable.Engine
	svc     *ScheduleService
	exports *ExportService
	room    models.Room
	course  models.Course
	monday  time.Time
}

func newScheduleFixture(t *testing.T) *scheduleFixture {
	t.Helper()
	ctx := context.Background()
	engine := newTestEngine()

	teacher, err := engine.CreatePerson(ctx, models.Person{Name: "Anna", Surname: "Petrova"})
	require.NoError(t, err)
	group, err := engine.CreateGroup(ctx, models.EduGroup{Name: "CS-101", Year: 2024, Degree: models.DegreeBachelor, Students: 20})
	require.NoError(t, err)
	capacity := 30
	room, err := engine.CreateRoom(ctx, models.Room{Name: "A-100", Building: "Main", Capacity: &capacity})
	require.NoError(t, err)
	course, err := engine.CreateCourse(ctx, models.Course{
		Code:     "ALG1",
		Name:     "Algorithms",
		Begin:    time.Date(2026, time.September, 1, 0, 0, 0, 0, time.UTC),
		End:      time.Date(2026, time.December, 20, 0, 0, 0, 0, time.UTC),
		PersonID: &teacher.ID,
		GroupID:  group.ID,
	})
	require.NoError(t, err)

	svc := NewScheduleService(engine, nil, nil, zap.NewNop(), nil, ScheduleCacheConfig{})
	exports := NewExportService(engine, svc, nil, zap.NewNop())

	f := &scheduleFixture{
		engine:  engine,
		svc:     svc,
		exports: exports,
		room:    room,
		course:  course,
		monday:  time.Date(2026, time.September, 7, 0, 0, 0, 0, time.UTC),
	}

	for _, hour := range []int{13, 9} {
		_, err := engine.Commit(ctx, timetable.EventDraft{
			CourseID: &course.ID,
			RoomID:   room.ID,
			Begin:    f.monday.Add(time.Duration(hour) * time.Hour),
			End:      f.monday.Add(time.Duration(hour)*time.Hour + 90*time.Minute),
			Name:     "Lecture",
			Form:     models.FormLecture,
		})
		require.NoError(t, err)
	}
	return f
}

func TestWeeklyScheduleSortedByBegin(t *testing.T) {
	f := newScheduleFixture(t)

	events, err := f.svc.RoomSchedule(context.Background(), f.room.ID, f.monday)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.True(t, events[0].Begin.Before(events[1].Begin))

	again, err := f.svc.RoomSchedule(context.Background(), f.room.ID, f.monday)
	require.NoError(t, err)
	assert.Equal(t, events, again)
}

func TestWeeklyScheduleRejectsUnknownDimension(t *testing.T) {
	f := newScheduleFixture(t)

	_, err := f.svc.WeeklySchedule(context.Background(), dto.ScheduleQuery{
		Dimension: "BUILDING",
		Key:       1,
		WeekStart: f.monday,
	})
	assert.Equal(t, appErrors.ErrValidation.Code, errCode(t, err))
}

func TestWeeklyScheduleUnknownKeyIsEmpty(t *testing.T) {
	f := newScheduleFixture(t)

	events, err := f.svc.RoomSchedule(context.Background(), 9999, f.monday)
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestExportWeekCSV(t *testing.T) {
	f := newScheduleFixture(t)

	result, err := f.exports.ExportWeek(context.Background(), dto.ExportQuery{
		ScheduleQuery: dto.ScheduleQuery{Dimension: "ROOM", Key: f.room.ID, WeekStart: f.monday},
		Format:        "csv",
	})
	require.NoError(t, err)
	assert.Equal(t, "text/csv", result.ContentType)
	assert.True(t, strings.HasSuffix(result.Filename, ".csv"))

	body := string(result.Content)
	assert.Contains(t, body, "Begin,End,Name,Form,Room,Course,Teacher,Group")
	assert.Contains(t, body, "A-100")
	assert.Contains(t, body, "ALG1")
	assert.Contains(t, body, "Petrova Anna")
	assert.Equal(t, 3, strings.Count(body, "\n"))
}

func TestExportWeekPDF(t *testing.T) {
	f := newScheduleFixture(t)

	result, err := f.exports.ExportWeek(context.Background(), dto.ExportQuery{
		ScheduleQuery: dto.ScheduleQuery{Dimension: "ROOM", Key: f.room.ID, WeekStart: f.monday},
		Format:        "pdf",
	})
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", result.ContentType)
	assert.True(t, bytes.HasPrefix(result.Content, []byte("%PDF")))
}
