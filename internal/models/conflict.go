package models

import (
	"fmt"
	"time"
)

// Dimension is an axis along which overlap conflicts are checked.
type Dimension string

const (
	DimensionRoom    Dimension = "ROOM"
	DimensionTeacher Dimension = "TEACHER"
	DimensionGroup   Dimension = "GROUP"
	// DimensionCourseWindow reports a candidate falling outside its course's
	// date window. It never appears in the conflict index, only in checker
	// results.
	DimensionCourseWindow Dimension = "COURSE_WINDOW"
)

// Valid reports whether the dimension can be used for index queries.
func (d Dimension) Valid() bool {
	switch d {
	case DimensionRoom, DimensionTeacher, DimensionGroup:
		return true
	}
	return false
}

// Conflict describes one blocking collision found for a candidate placement.
// EventID is zero for COURSE_WINDOW conflicts.
type Conflict struct {
	Dimension Dimension `json:"dimension"`
	EventID   int64     `json:"event_id,omitempty"`
	Begin     time.Time `json:"begin"`
	End       time.Time `json:"end"`
}

// ConflictError is returned when a commit or reschedule collides with the
// committed timetable. The structured conflict list is preserved end to end.
type ConflictError struct {
	Message   string     `json:"message"`
	Conflicts []Conflict `json:"conflicts"`
}

// Error implements the error interface.
func (e *ConflictError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("%s (%d conflicts)", e.Message, len(e.Conflicts))
}

// IntegrityError is returned when a delete is blocked by dependent rows.
type IntegrityError struct {
	Kind          string `json:"kind"`
	ID            int64  `json:"id"`
	DependentKind string `json:"dependent_kind"`
	Count         int    `json:"count"`
}

// Error implements the error interface.
func (e *IntegrityError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("%s %d is referenced by %d %s record(s)", e.Kind, e.ID, e.Count, e.DependentKind)
}
