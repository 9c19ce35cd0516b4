package dto

import "time"

// ScheduleQuery selects one week of events along a single dimension.
type ScheduleQuery struct {
	Dimension string    `form:"dimension" json:"dimension" validate:"required,oneof=ROOM TEACHER GROUP"`
	Key       int64     `form:"key" json:"key" validate:"required,min=1"`
	WeekStart time.Time `form:"week_start" json:"week_start" validate:"required"`
}

// ExportQuery renders one week of events as a downloadable file.
type ExportQuery struct {
	ScheduleQuery
	Format string `form:"format" json:"format" validate:"required,oneof=csv pdf"`
}
