package dto

import (
	"time"

	"github.com/uniplan/timetable-api/internal/timetable"
)

// ProposePlacementRequest asks the engine for the earliest feasible slot.
// Room candidates are tried in the order given.
type ProposePlacementRequest struct {
	CourseID        int64     `json:"course_id" validate:"required,min=1"`
	RoomCandidates  []int64   `json:"room_candidates" validate:"required,min=1,dive,min=1"`
	WindowBegin     time.Time `json:"window_begin" validate:"required"`
	WindowEnd       time.Time `json:"window_end" validate:"required"`
	DurationMinutes int       `json:"duration_minutes" validate:"required,min=1,max=1440"`
	Form            string    `json:"form" validate:"required,oneof=LECTURE PRACTICE LAB_WORK EXAM"`
	Name            string    `json:"name" validate:"omitempty,max=50"`
}

// PlacementResponse returns either a placed draft (with a proposal id to
// commit later) or the per-room conflict summary.
type PlacementResponse struct {
	ProposalID string                       `json:"proposal_id,omitempty"`
	Placed     *timetable.EventDraft        `json:"placed,omitempty"`
	Reports    []timetable.RoomSearchReport `json:"reports,omitempty"`
}

// EventDraftRequest is an explicit draft for direct commits, covering ad hoc
// events that bypass the proposal flow (nil course id).
type EventDraftRequest struct {
	CourseID *int64    `json:"course_id" validate:"omitempty,min=1"`
	RoomID   int64     `json:"room_id" validate:"required,min=1"`
	Begin    time.Time `json:"begin" validate:"required"`
	End      time.Time `json:"end" validate:"required"`
	Name     string    `json:"name" validate:"required,max=50"`
	Form     string    `json:"form" validate:"required,oneof=LECTURE PRACTICE LAB_WORK EXAM"`
	Notes    string    `json:"notes"`
}

// CommitPlacementRequest commits a stored proposal or an explicit draft.
// Exactly one of ProposalID and Draft must be set.
type CommitPlacementRequest struct {
	ProposalID string             `json:"proposal_id" validate:"omitempty,uuid4"`
	Draft      *EventDraftRequest `json:"draft" validate:"omitempty"`
}

// RescheduleRequest moves a committed event to a new interval and room.
type RescheduleRequest struct {
	Begin  time.Time `json:"begin" validate:"required"`
	End    time.Time `json:"end" validate:"required"`
	RoomID int64     `json:"room_id" validate:"required,min=1"`
}
