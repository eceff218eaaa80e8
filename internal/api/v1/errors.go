package v1

import (
	"errors"

	"github.com/danielgtaylor/huma/v2"

	"github.com/gosuda/tasklive/internal/domain"
)

// httpError maps a tracker error onto a huma status error. what names the
// resource in client-facing messages.
func httpError(err error, what, action string) error {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return huma.Error404NotFound(what + " not found")
	case errors.Is(err, domain.ErrValidation):
		return huma.Error400BadRequest("invalid "+what, err)
	case errors.Is(err, domain.ErrInvalidReference):
		return huma.Error400BadRequest(what + " references a missing parent")
	default:
		return huma.Error500InternalServerError("failed to "+action+" "+what, err)
	}
}
