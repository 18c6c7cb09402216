// Package httpx provides HTTP response utilities.
package httpx

import (
	"errors"
	"net/http"

	"github.com/carecrm/carecrm/internal/platform/db"
	"github.com/carecrm/carecrm/internal/shared"
)

const internalMessage = "internal server error"

// StatusFor maps a domain error onto an HTTP status and title.
func StatusFor(err error) (int, string) {
	switch {
	case errors.Is(err, shared.ErrNotFound):
		return http.StatusNotFound, "Not Found"
	case errors.Is(err, shared.ErrDuplicate):
		return http.StatusBadRequest, "Duplicate"
	case errors.Is(err, shared.ErrValidation):
		return http.StatusBadRequest, "Validation Failed"
	case errors.Is(err, shared.ErrProductNotFound):
		return http.StatusBadRequest, "Product Not Found"
	case errors.Is(err, shared.ErrInsufficientStock):
		return http.StatusBadRequest, "Insufficient Stock"
	case errors.Is(err, db.ErrConflict):
		return http.StatusConflict, "Conflict"
	default:
		return http.StatusInternalServerError, "Internal Error"
	}
}

// RespondError maps domain errors to HTTP responses using RFC7807.
// Unclassified errors never leak their text.
func RespondError(w http.ResponseWriter, err error) {
	status, title := StatusFor(err)
	if status == http.StatusInternalServerError {
		Problem(w, status, title, internalMessage)
		return
	}
	Problem(w, status, title, err.Error())
}
