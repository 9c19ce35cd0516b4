package models

import "time"

// EventForm classifies a scheduled occurrence.
type EventForm string

const (
	FormLecture  EventForm = "LECTURE"
	FormPractice EventForm = "PRACTICE"
	FormLabWork  EventForm = "LAB_WORK"
	FormExam     EventForm = "EXAM"
)

// Valid reports whether the event form is a known value.
func (f EventForm) Valid() bool {
	switch f {
	case FormLecture, FormPractice, FormLabWork, FormExam:
		return true
	}
	return false
}

// EventStatus tracks the placement lifecycle. Only committed events are
// stored; a proposal that never commits is simply discarded.
type EventStatus string

const (
	EventProposed  EventStatus = "PROPOSED"
	EventCommitted EventStatus = "COMMITTED"
	EventCancelled EventStatus = "CANCELLED"
)

// Event is a single scheduled occurrence in a room. A nil CourseID marks an
// ad hoc event not tied to any course.
type Event struct {
	ID       int64       `json:"id"`
	Begin    time.Time   `json:"begin"`
	End      time.Time   `json:"end"`
	Name     string      `json:"name"`
	CourseID *int64      `json:"course_id,omitempty"`
	RoomID   int64       `json:"room_id"`
	Form     EventForm   `json:"form"`
	Status   EventStatus `json:"status"`
	Notes    string      `json:"notes,omitempty"`
}

// Overlaps is the canonical half-open interval overlap test used everywhere
// conflicts are decided: aBegin < bEnd && bBegin < aEnd.
func Overlaps(aBegin, aEnd, bBegin, bEnd time.Time) bool {
	return aBegin.Before(bEnd) && bBegin.Before(aEnd)
}
