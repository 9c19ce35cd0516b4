package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/uniplan/timetable-api/internal/dto"
	"github.com/uniplan/timetable-api/internal/service"
	appErrors "github.com/uniplan/timetable-api/pkg/errors"
	"github.com/uniplan/timetable-api/pkg/response"
)

// ScheduleHandler wires weekly schedule queries and exports to HTTP routes.
type ScheduleHandler struct {
	schedules *service.ScheduleService
	exports   *service.ExportService
}

// NewScheduleHandler constructs a new ScheduleHandler.
func NewScheduleHandler(schedules *service.ScheduleService, exports *service.ExportService) *ScheduleHandler {
	return &ScheduleHandler{schedules: schedules, exports: exports}
}

// Week returns one week of events along a single dimension.
func (h *ScheduleHandler) Week(c *gin.Context) {
	query, err := scheduleQueryFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	events, err := h.schedules.WeeklySchedule(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, events)
}

// Export renders one week of events as a CSV or PDF download.
func (h *ScheduleHandler) Export(c *gin.Context) {
	query, err := scheduleQueryFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	result, err := h.exports.ExportWeek(c.Request.Context(), dto.ExportQuery{
		ScheduleQuery: query,
		Format:        c.DefaultQuery("format", "csv"),
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", "attachment; filename="+result.Filename)
	c.Data(http.StatusOK, result.ContentType, result.Content)
}

func scheduleQueryFromContext(c *gin.Context) (dto.ScheduleQuery, error) {
	key, err := strconv.ParseInt(c.Query("key"), 10, 64)
	if err != nil || key <= 0 {
		return dto.ScheduleQuery{}, appErrors.Clone(appErrors.ErrValidation, "invalid key parameter")
	}
	weekStart, err := parseWeekStart(c.Query("week_start"))
	if err != nil {
		return dto.ScheduleQuery{}, appErrors.Clone(appErrors.ErrValidation, "invalid week_start parameter")
	}
	return dto.ScheduleQuery{
		Dimension: c.Query("dimension"),
		Key:       key,
		WeekStart: weekStart,
	}, nil
}

// parseWeekStart accepts full timestamps and bare dates.
func parseWeekStart(raw string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", raw)
}
