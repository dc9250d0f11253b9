package transport

import (
	"net/http"

	"gastronomia-be/internal/catalog"
	"gastronomia-be/internal/configurator"
	"gastronomia-be/internal/logger"
	"gastronomia-be/internal/utils"

	"go.uber.org/zap"
)

// CatalogStats is satisfied by *catalog.Cache.
type CatalogStats interface {
	Stats() catalog.Stats
}

type Handler struct {
	svc     configurator.Service
	catalog CatalogStats
}

func NewHandler(svc configurator.Service, cat CatalogStats) *Handler {
	return &Handler{svc: svc, catalog: cat}
}

// Register mounts every configuration endpoint on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", h.Health)

	mux.HandleFunc("POST /sessions", h.Begin)
	mux.HandleFunc("POST /sessions/browse", h.BeginBrowsing)
	mux.HandleFunc("GET /sessions/{id}", h.Get)
	mux.HandleFunc("DELETE /sessions/{id}", h.Cancel)
	mux.HandleFunc("POST /sessions/{id}/items", h.AddItem)
	mux.HandleFunc("DELETE /sessions/{id}/items/{index}", h.RemoveItem)
	mux.HandleFunc("POST /sessions/{id}/select", h.SelectOption)
	mux.HandleFunc("POST /sessions/{id}/tab", h.SelectTab)
	mux.HandleFunc("POST /sessions/{id}/click", h.ClickNode)
	mux.HandleFunc("POST /sessions/{id}/expand", h.ToggleExpanded)
	mux.HandleFunc("POST /sessions/{id}/browse", h.BrowseCatalog)
	mux.HandleFunc("POST /sessions/{id}/remove", h.RemoveOption)
	mux.HandleFunc("POST /sessions/{id}/confirm", h.Confirm)
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeOK(w, http.StatusOK, "OK", map[string]any{
		"catalog":  h.catalog.Stats(),
		"sessions": h.svc.Stats(),
	})
}

func (h *Handler) Begin(w http.ResponseWriter, r *http.Request) {
	log := logger.FromCtx(r.Context()).With(
		zap.String("layer", "handler"),
		zap.String("method", "Begin"),
	)

	var in configurator.BeginInput
	if err := decode(r, &in); err != nil {
		log.Warn("invalid request body", zap.Error(err))
		writeBadRequest(w, "invalid request body")
		return
	}

	view, err := h.svc.Begin(r.Context(), in)
	if err != nil {
		log.Warn("failed to begin session", zap.Error(err))
		writeError(w, err)
		return
	}
	writeOK(w, http.StatusCreated, "Session started", view)
}

func (h *Handler) BeginBrowsing(w http.ResponseWriter, r *http.Request) {
	view, err := h.svc.BeginBrowsing(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeOK(w, http.StatusCreated, "Session started", view)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	ctx, id := sessionRequest(r)
	h.respond(w, "Session loaded")(h.svc.Get(ctx, id))
}

func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	ctx, id := sessionRequest(r)
	if err := h.svc.Cancel(ctx, id); err != nil {
		writeError(w, err)
		return
	}
	logger.FromCtx(ctx).Info("session cancelled", zap.String("layer", "handler"))
	writeOK(w, http.StatusOK, "Session cancelled", nil)
}

func (h *Handler) AddItem(w http.ResponseWriter, r *http.Request) {
	ctx, id := sessionRequest(r)
	var in struct {
		ProductID int64 `json:"productId"`
	}
	if err := decode(r, &in); err != nil || in.ProductID <= 0 {
		writeBadRequest(w, "productId is required")
		return
	}
	h.respond(w, "Item added")(h.svc.AddItem(ctx, id, in.ProductID))
}

func (h *Handler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	ctx, id := sessionRequest(r)
	index, ok := pathIndex(r, "index")
	if !ok {
		writeBadRequest(w, "invalid item index")
		return
	}
	h.respond(w, "Item removed")(h.svc.RemoveItem(ctx, id, index))
}

func (h *Handler) SelectOption(w http.ResponseWriter, r *http.Request) {
	ctx, id := sessionRequest(r)
	var in struct {
		OptionID int64 `json:"optionId"`
	}
	if err := decode(r, &in); err != nil || in.OptionID <= 0 {
		writeBadRequest(w, "optionId is required")
		return
	}
	h.respond(w, "Option selected")(h.svc.SelectOption(ctx, id, in.OptionID))
}

func (h *Handler) SelectTab(w http.ResponseWriter, r *http.Request) {
	ctx, id := sessionRequest(r)
	var in struct {
		Index int `json:"index"`
	}
	if err := decode(r, &in); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}
	h.respond(w, "Tab selected")(h.svc.SelectTab(ctx, id, in.Index))
}

func (h *Handler) ClickNode(w http.ResponseWriter, r *http.Request) {
	ctx, id := sessionRequest(r)
	var in nodeRequest
	if err := decode(r, &in); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}
	h.respond(w, "Node opened")(h.svc.ClickNode(ctx, id, in.ItemIndex, in.Path))
}

func (h *Handler) ToggleExpanded(w http.ResponseWriter, r *http.Request) {
	ctx, id := sessionRequest(r)
	var in nodeRequest
	if err := decode(r, &in); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}
	h.respond(w, "Node toggled")(h.svc.ToggleExpanded(ctx, id, in.ItemIndex, in.Path))
}

func (h *Handler) BrowseCatalog(w http.ResponseWriter, r *http.Request) {
	ctx, id := sessionRequest(r)
	h.respond(w, "Browsing catalog")(h.svc.BrowseCatalog(ctx, id))
}

func (h *Handler) RemoveOption(w http.ResponseWriter, r *http.Request) {
	ctx, id := sessionRequest(r)
	var in nodeRequest
	if err := decode(r, &in); err != nil || len(in.Path) == 0 {
		writeBadRequest(w, "path is required")
		return
	}
	h.respond(w, "Option removed")(h.svc.RemoveOption(ctx, id, in.ItemIndex, in.Path))
}

func (h *Handler) Confirm(w http.ResponseWriter, r *http.Request) {
	ctx, id := sessionRequest(r)
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "handler"),
		zap.String("method", "Confirm"),
	)

	var in configurator.ConfirmInput
	if err := decode(r, &in); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}
	in.SessionID = id

	res, err := h.svc.Confirm(ctx, in)
	if err != nil {
		log.Warn("confirm failed", zap.Error(err))
		if res != nil {
			// Some copies were stored; report which ones failed.
			utils.WriteJSON(w, statusFor(err), Response{
				Message: utils.StrPtr(err.Error()),
				Data:    res,
			})
			return
		}
		writeError(w, err)
		return
	}
	writeOK(w, http.StatusOK, "Configuration confirmed", res)
}

// respond writes a session view or the error that replaced it.
func (h *Handler) respond(w http.ResponseWriter, message string) func(*configurator.SessionView, error) {
	return func(view *configurator.SessionView, err error) {
		if err != nil {
			writeError(w, err)
			return
		}
		writeOK(w, http.StatusOK, message, view)
	}
}
