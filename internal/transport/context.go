package transport

import (
	"context"
	"net/http"

	"gastronomia-be/internal/logger"
	"gastronomia-be/internal/selection"
	"gastronomia-be/internal/utils"
)

// sessionRequest returns the {id} path value and a context tagged with it
// for logging.
func sessionRequest(r *http.Request) (context.Context, string) {
	id := r.PathValue("id")
	return logger.WithSessionID(r.Context(), id), id
}

// pathIndex parses a non-negative integer path value such as {index}.
func pathIndex(r *http.Request, name string) (int, bool) {
	return utils.ParseIndex(r.PathValue(name))
}

// nodeRequest addresses an item (empty path) or a nested selection.
type nodeRequest struct {
	ItemIndex int            `json:"itemIndex"`
	Path      selection.Path `json:"path"`
}
