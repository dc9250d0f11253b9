package transport

import (
	"encoding/json"
	"errors"
	"net/http"

	"gastronomia-be/internal/catalog"
	"gastronomia-be/internal/configurator"
	"gastronomia-be/internal/orderline"
	"gastronomia-be/internal/utils"
)

// Response is the envelope of every endpoint.
type Response struct {
	Success    bool                          `json:"success"`
	Message    *string                       `json:"message,omitempty"`
	Data       any                           `json:"data,omitempty"`
	Violations []configurator.GroupViolation `json:"violations,omitempty"`
}

func writeOK(w http.ResponseWriter, code int, message string, data any) {
	utils.WriteJSON(w, code, Response{
		Success: true,
		Message: utils.StrPtr(message),
		Data:    data,
	})
}

func writeError(w http.ResponseWriter, err error) {
	res := Response{Message: utils.StrPtr(err.Error())}

	var verr *configurator.ValidationError
	if errors.As(err, &verr) {
		res.Violations = verr.Violations
	}
	utils.WriteJSON(w, statusFor(err), res)
}

func writeBadRequest(w http.ResponseWriter, message string) {
	utils.WriteJSON(w, http.StatusBadRequest, Response{Message: utils.StrPtr(message)})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, configurator.ErrSessionNotFound),
		errors.Is(err, configurator.ErrNodeNotFound),
		errors.Is(err, catalog.ErrProductNotFound),
		errors.Is(err, catalog.ErrGroupNotFound),
		errors.Is(err, orderline.ErrOrderItemNotFound):
		return http.StatusNotFound

	case errors.Is(err, configurator.ErrInvalidConfiguration),
		errors.Is(err, orderline.ErrProductNotFound):
		return http.StatusUnprocessableEntity

	case errors.Is(err, configurator.ErrSessionClosed),
		errors.Is(err, configurator.ErrEditModeRestricted):
		return http.StatusConflict

	case errors.Is(err, configurator.ErrInvalidQuantity),
		errors.Is(err, configurator.ErrProductRequired),
		errors.Is(err, configurator.ErrOptionNotAvailable),
		errors.Is(err, configurator.ErrInvalidSelection),
		errors.Is(err, orderline.ErrOrderRequired),
		errors.Is(err, orderline.ErrNothingToSubmit),
		errors.Is(err, orderline.ErrItemCountMismatch):
		return http.StatusBadRequest

	case errors.Is(err, catalog.ErrHydrationFailed):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func decode(r *http.Request, v any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}
