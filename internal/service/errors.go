package service

import (
	"context"
	"errors"

	"github.com/uniplan/timetable-api/internal/models"
	"github.com/uniplan/timetable-api/internal/timetable"
	appErrors "github.com/uniplan/timetable-api/pkg/errors"
)

// mapEngineError translates engine sentinels and typed errors into the HTTP
// aware taxonomy. Conflict and integrity payloads ride along as details so
// clients can render the exact collisions.
func mapEngineError(err error) error {
	if err == nil {
		return nil
	}

	var conflictErr *models.ConflictError
	if errors.As(err, &conflictErr) {
		return appErrors.WithDetails(appErrors.Clone(appErrors.ErrConflict, conflictErr.Message), conflictErr.Conflicts)
	}

	var integrityErr *models.IntegrityError
	if errors.As(err, &integrityErr) {
		return appErrors.WithDetails(appErrors.Clone(appErrors.ErrIntegrity, integrityErr.Error()), integrityErr)
	}

	switch {
	case errors.Is(err, timetable.ErrNotFound):
		return appErrors.Clone(appErrors.ErrNotFound, err.Error())
	case errors.Is(err, timetable.ErrValidation):
		return appErrors.Clone(appErrors.ErrValidation, err.Error())
	case errors.Is(err, timetable.ErrBusy):
		return appErrors.Clone(appErrors.ErrBusy, err.Error())
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return appErrors.Wrap(err, appErrors.ErrBusy.Code, appErrors.ErrBusy.Status, "request expired while waiting for the engine")
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "engine operation failed")
}

// requireAdmin gates mutating calls on the admin grant.
func requireAdmin(actor *models.Actor) error {
	if actor == nil {
		return appErrors.ErrUnauthorized
	}
	if !actor.IsAdmin() {
		return appErrors.Clone(appErrors.ErrNotAuthorized, "admin permission required")
	}
	return nil
}
