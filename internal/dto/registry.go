package dto

import "time"

// PersonRequest is the payload for creating or updating a person.
type PersonRequest struct {
	Name       string `json:"name" validate:"required,max=50"`
	Surname    string `json:"surname" validate:"required,max=50"`
	Patronymic string `json:"patronymic" validate:"omitempty,max=50"`
	Maiden     string `json:"maiden" validate:"omitempty,max=50"`
	Phones     string `json:"phones" validate:"omitempty,max=50"`
	Notes      string `json:"notes"`
}

// UserRequest is the payload for creating or updating a user account.
// Permissions is an explicit list of named grants; only ADMIN is defined.
type UserRequest struct {
	Logins      string   `json:"logins" validate:"required,max=50"`
	Permissions []string `json:"permissions" validate:"omitempty,dive,oneof=ADMIN"`
	PersonID    int64    `json:"person_id" validate:"required,min=1"`
	Notes       string   `json:"notes"`
}

// GroupRequest is the payload for creating or updating an edu group.
type GroupRequest struct {
	Name     string `json:"name" validate:"required,max=50"`
	Year     int    `json:"year" validate:"required,min=1900,max=2200"`
	Degree   string `json:"degree" validate:"required,oneof=BACHELOR MASTER PHD"`
	Students int    `json:"students" validate:"min=0"`
	Notes    string `json:"notes"`
}

// RoomRequest is the payload for creating or updating a room. A nil capacity
// means the room is unconstrained.
type RoomRequest struct {
	Name     string `json:"name" validate:"required,max=50"`
	Building string `json:"building" validate:"required,max=50"`
	Capacity *int   `json:"capacity" validate:"omitempty,min=1"`
	Notes    string `json:"notes"`
}

// CourseRequest is the payload for creating or updating a course. PersonID
// is optional: a course may stay unassigned until a teacher is found.
type CourseRequest struct {
	Code     string    `json:"code" validate:"required,max=15"`
	Name     string    `json:"name" validate:"required,max=50"`
	Elective bool      `json:"elective"`
	Credits  int       `json:"credits" validate:"min=0"`
	Controls []string  `json:"controls" validate:"omitempty,dive,oneof=CREDIT CREDIT_GRADE EXAM"`
	Begin    time.Time `json:"begin" validate:"required"`
	End      time.Time `json:"end" validate:"required"`
	PersonID *int64    `json:"person_id" validate:"omitempty,min=1"`
	GroupID  int64     `json:"edu_group_id" validate:"required,min=1"`
	Notes    string    `json:"notes"`
}
