package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/uniplan/timetable-api/internal/dto"
	"github.com/uniplan/timetable-api/internal/service"
	appErrors "github.com/uniplan/timetable-api/pkg/errors"
	"github.com/uniplan/timetable-api/pkg/response"
)

// PersonHandler wires the person registry to HTTP routes.
type PersonHandler struct {
	registry *service.RegistryService
}

// NewPersonHandler constructs a new PersonHandler.
func NewPersonHandler(registry *service.RegistryService) *PersonHandler {
	return &PersonHandler{registry: registry}
}

// List returns all persons.
func (h *PersonHandler) List(c *gin.Context) {
	response.JSON(c, http.StatusOK, h.registry.ListPersons())
}

// Get returns one person by id.
func (h *PersonHandler) Get(c *gin.Context) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	person, err := h.registry.GetPerson(id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, person)
}

// Create stores a new person.
func (h *PersonHandler) Create(c *gin.Context) {
	var req dto.PersonRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid person payload"))
		return
	}
	person, err := h.registry.CreatePerson(c.Request.Context(), actorFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, person)
}

// Update replaces a stored person.
func (h *PersonHandler) Update(c *gin.Context) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	var req dto.PersonRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid person payload"))
		return
	}
	person, err := h.registry.UpdatePerson(c.Request.Context(), actorFromContext(c), id, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, person)
}

// Delete removes a person.
func (h *PersonHandler) Delete(c *gin.Context) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	if err := h.registry.DeletePerson(c.Request.Context(), actorFromContext(c), id); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
