package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/uniplan/timetable-api/internal/dto"
	"github.com/uniplan/timetable-api/internal/service"
	appErrors "github.com/uniplan/timetable-api/pkg/errors"
	"github.com/uniplan/timetable-api/pkg/response"
)

// PlacementHandler wires the placement workflow to HTTP routes.
type PlacementHandler struct {
	placements *service.PlacementService
}

// NewPlacementHandler constructs a new PlacementHandler.
func NewPlacementHandler(placements *service.PlacementService) *PlacementHandler {
	return &PlacementHandler{placements: placements}
}

// Propose asks for the earliest feasible slot without mutating anything.
func (h *PlacementHandler) Propose(c *gin.Context) {
	var req dto.ProposePlacementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid placement payload"))
		return
	}
	result, err := h.placements.Propose(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result)
}

// Commit places a proposal or explicit draft into the timetable.
func (h *PlacementHandler) Commit(c *gin.Context) {
	var req dto.CommitPlacementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid commit payload"))
		return
	}
	event, err := h.placements.Commit(c.Request.Context(), actorFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, event)
}

// Cancel removes a committed event.
func (h *PlacementHandler) Cancel(c *gin.Context) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	if err := h.placements.Cancel(c.Request.Context(), actorFromContext(c), id); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Reschedule moves a committed event to a new interval and room.
func (h *PlacementHandler) Reschedule(c *gin.Context) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	var req dto.RescheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid reschedule payload"))
		return
	}
	event, err := h.placements.Reschedule(c.Request.Context(), actorFromContext(c), id, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, event)
}

// ListEvents returns all committed events.
func (h *PlacementHandler) ListEvents(c *gin.Context) {
	response.JSON(c, http.StatusOK, h.placements.ListEvents())
}

// GetEvent returns one committed event by id.
func (h *PlacementHandler) GetEvent(c *gin.Context) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	event, err := h.placements.GetEvent(id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, event)
}
