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

type placementFixture struct {
	engine *timetable.Engine
	svc    *PlacementService
	room   models.Room
	course models.Course
	monday time.Time
}

func newPlacementFixture(t *testing.T) *placementFixture {
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

	return &placementFixture{
		engine: engine,
		svc:    NewPlacementService(engine, nil, zap.NewNop(), nil, PlacementConfig{}),
		room:   room,
		course: course,
		monday: time.Date(2026, time.September, 7, 0, 0, 0, 0, time.UTC),
	}
}

func (f *placementFixture) proposeRequest() dto.ProposePlacementRequest {
	return dto.ProposePlacementRequest{
		CourseID:        f.course.ID,
		RoomCandidates:  []int64{f.room.ID},
		WindowBegin:     f.monday.Add(9 * time.Hour),
		WindowEnd:       f.monday.Add(17 * time.Hour),
		DurationMinutes: 90,
		Form:            "LECTURE",
	}
}

func TestPlacementProposeThenCommit(t *testing.T) {
	f := newPlacementFixture(t)
	ctx := context.Background()

	proposal, err := f.svc.Propose(ctx, f.proposeRequest())
	require.NoError(t, err)
	require.NotNil(t, proposal.Placed)
	require.NotEmpty(t, proposal.ProposalID)
	assert.True(t, proposal.Placed.Begin.Equal(f.monday.Add(9*time.Hour)))

	event, err := f.svc.Commit(ctx, adminActor(), dto.CommitPlacementRequest{ProposalID: proposal.ProposalID})
	require.NoError(t, err)
	assert.Equal(t, models.EventCommitted, event.Status)
	assert.Len(t, f.svc.ListEvents(), 1)

	// The proposal is consumed by the commit.
	_, err = f.svc.Commit(ctx, adminActor(), dto.CommitPlacementRequest{ProposalID: proposal.ProposalID})
	assert.Equal(t, appErrors.ErrNotFound.Code, errCode(t, err))
}

func TestPlacementCommitRequiresAdmin(t *testing.T) {
	f := newPlacementFixture(t)
	ctx := context.Background()

	proposal, err := f.svc.Propose(ctx, f.proposeRequest())
	require.NoError(t, err)

	_, err = f.svc.Commit(ctx, plainActor(), dto.CommitPlacementRequest{ProposalID: proposal.ProposalID})
	assert.Equal(t, appErrors.ErrNotAuthorized.Code, errCode(t, err))

	// Rejected commits leave the proposal intact for an authorized retry.
	_, err = f.svc.Commit(ctx, adminActor(), dto.CommitPlacementRequest{ProposalID: proposal.ProposalID})
	assert.NoError(t, err)
}

func TestPlacementProposeValidation(t *testing.T) {
	f := newPlacementFixture(t)
	req := f.proposeRequest()
	req.DurationMinutes = 0

	_, err := f.svc.Propose(context.Background(), req)
	assert.Equal(t, appErrors.ErrValidation.Code, errCode(t, err))
}

func TestPlacementCommitConflictCarriesDetails(t *testing.T) {
	f := newPlacementFixture(t)
	ctx := context.Background()

	first, err := f.svc.Propose(ctx, f.proposeRequest())
	require.NoError(t, err)
	_, err = f.svc.Commit(ctx, adminActor(), dto.CommitPlacementRequest{ProposalID: first.ProposalID})
	require.NoError(t, err)

	// An explicit draft on the now-occupied slot fails the final check.
	_, err = f.svc.Commit(ctx, adminActor(), dto.CommitPlacementRequest{Draft: &dto.EventDraftRequest{
		RoomID: f.room.ID,
		Begin:  f.monday.Add(9 * time.Hour),
		End:    f.monday.Add(10 * time.Hour),
		Name:   "Ad hoc meeting",
		Form:   "PRACTICE",
	}})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErr.Code)

	conflicts, ok := appErr.Details.([]models.Conflict)
	require.True(t, ok)
	require.NotEmpty(t, conflicts)
	assert.Equal(t, models.DimensionRoom, conflicts[0].Dimension)
}

func TestPlacementCommitInputRules(t *testing.T) {
	f := newPlacementFixture(t)
	ctx := context.Background()

	_, err := f.svc.Commit(ctx, adminActor(), dto.CommitPlacementRequest{})
	assert.Equal(t, appErrors.ErrValidation.Code, errCode(t, err))

	proposal, err := f.svc.Propose(ctx, f.proposeRequest())
	require.NoError(t, err)

	_, err = f.svc.Commit(ctx, adminActor(), dto.CommitPlacementRequest{
		ProposalID: proposal.ProposalID,
		Draft:      &dto.EventDraftRequest{RoomID: f.room.ID, Begin: f.monday, End: f.monday.Add(time.Hour), Name: "x", Form: "LECTURE"},
	})
	assert.Equal(t, appErrors.ErrValidation.Code, errCode(t, err))
}

func TestPlacementRescheduleAndCancel(t *testing.T) {
	f := newPlacementFixture(t)
	ctx := context.Background()

	proposal, err := f.svc.Propose(ctx, f.proposeRequest())
	require.NoError(t, err)
	event, err := f.svc.Commit(ctx, adminActor(), dto.CommitPlacementRequest{ProposalID: proposal.ProposalID})
	require.NoError(t, err)

	moved, err := f.svc.Reschedule(ctx, adminActor(), event.ID, dto.RescheduleRequest{
		Begin:  f.monday.Add(13 * time.Hour),
		End:    f.monday.Add(14*time.Hour + 30*time.Minute),
		RoomID: f.room.ID,
	})
	require.NoError(t, err)
	assert.True(t, moved.Begin.Equal(f.monday.Add(13*time.Hour)))

	require.NoError(t, f.svc.Cancel(ctx, adminActor(), event.ID))
	err = f.svc.Cancel(ctx, adminActor(), event.ID)
	assert.Equal(t, appErrors.ErrNotFound.Code, errCode(t, err))
}
