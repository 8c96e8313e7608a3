package examcfg

import (
	"encoding/json"
	"errors"
	"net/http"

	"certmaster/internal/app/apiresp"

	"github.com/go-chi/chi/v5"
)

type Handler struct {
	store *Store
}

func NewHandler(store *Store) *Handler {
	return &Handler{store: store}
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	apiresp.WriteOK(w, r, http.StatusOK, h.store.Get(chi.URLParam(r, "certId")))
}

func (h *Handler) Put(w http.ResponseWriter, r *http.Request) {
	var cfg Config
	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
		apiresp.WriteError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}
	cfg.CertID = chi.URLParam(r, "certId")
	if err := h.store.Put(r.Context(), cfg); err != nil {
		h.writeConfigError(w, r, err)
		return
	}
	apiresp.WriteOK(w, r, http.StatusOK, cfg)
}

// Patch applies a single-field update through the validated pure updater.
func (h *Handler) Patch(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Field string `json:"field"`
		Value int    `json:"value"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apiresp.WriteError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}
	cfg, err := h.store.UpdateField(r.Context(), chi.URLParam(r, "certId"), req.Field, req.Value)
	if err != nil {
		h.writeConfigError(w, r, err)
		return
	}
	apiresp.WriteOK(w, r, http.StatusOK, cfg)
}

func (h *Handler) writeConfigError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ErrInvalidConfig), errors.Is(err, ErrUnknownField):
		apiresp.WriteError(w, r, http.StatusBadRequest, err.Error())
	default:
		apiresp.WriteError(w, r, http.StatusInternalServerError, "internal error")
	}
}
