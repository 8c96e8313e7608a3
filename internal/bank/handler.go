package bank

import (
	"encoding/json"
	"errors"
	"net/http"

	"certmaster/internal/app/apiresp"

	"github.com/go-chi/chi/v5"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

type mergeRequest struct {
	FileName  string     `json:"file_name"`
	Questions []Question `json:"questions"`
}

func (h *Handler) ListCertificates(w http.ResponseWriter, r *http.Request) {
	apiresp.WriteOK(w, r, http.StatusOK, h.svc.Certificates())
}

func (h *Handler) SaveCertificate(w http.ResponseWriter, r *http.Request) {
	var cert Certificate
	if err := json.NewDecoder(r.Body).Decode(&cert); err != nil {
		apiresp.WriteError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}
	saved, err := h.svc.SaveCertificate(r.Context(), cert)
	if err != nil {
		h.writeBankError(w, r, err)
		return
	}
	apiresp.WriteOK(w, r, http.StatusOK, saved)
}

func (h *Handler) DeleteCertificate(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteCertificate(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.writeBankError(w, r, err)
		return
	}
	apiresp.WriteOK(w, r, http.StatusOK, nil)
}

func (h *Handler) ListQuestions(w http.ResponseWriter, r *http.Request) {
	apiresp.WriteOK(w, r, http.StatusOK, h.svc.Questions(chi.URLParam(r, "certId")))
}

func (h *Handler) SaveQuestion(w http.ResponseWriter, r *http.Request) {
	var q Question
	if err := json.NewDecoder(r.Body).Decode(&q); err != nil {
		apiresp.WriteError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}
	if q.CertID == "" {
		q.CertID = chi.URLParam(r, "certId")
	}
	saved, err := h.svc.SaveQuestion(r.Context(), q)
	if err != nil {
		h.writeBankError(w, r, err)
		return
	}
	apiresp.WriteOK(w, r, http.StatusOK, saved)
}

func (h *Handler) DeleteQuestion(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteQuestion(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.writeBankError(w, r, err)
		return
	}
	apiresp.WriteOK(w, r, http.StatusOK, nil)
}

// Merge accepts a pre-built question batch from the import or generation
// collaborators and merges it under a new file, de-duplicating by hash.
func (h *Handler) Merge(w http.ResponseWriter, r *http.Request) {
	var req mergeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apiresp.WriteError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}
	report, err := h.svc.MergeQuestions(r.Context(), chi.URLParam(r, "certId"), req.FileName, req.Questions)
	if err != nil {
		h.writeBankError(w, r, err)
		return
	}
	apiresp.WriteOK(w, r, http.StatusCreated, report)
}

func (h *Handler) ListFiles(w http.ResponseWriter, r *http.Request) {
	apiresp.WriteOK(w, r, http.StatusOK, h.svc.Files(chi.URLParam(r, "certId")))
}

func (h *Handler) DeleteFile(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteFile(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.writeBankError(w, r, err)
		return
	}
	apiresp.WriteOK(w, r, http.StatusOK, nil)
}

func (h *Handler) ToggleFile(w http.ResponseWriter, r *http.Request) {
	var req struct {
		IsActive bool `json:"is_active"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apiresp.WriteError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.svc.SetFileActive(r.Context(), chi.URLParam(r, "id"), req.IsActive); err != nil {
		h.writeBankError(w, r, err)
		return
	}
	apiresp.WriteOK(w, r, http.StatusOK, nil)
}

func (h *Handler) ClearCertificate(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.ClearCertificate(r.Context(), chi.URLParam(r, "certId")); err != nil {
		h.writeBankError(w, r, err)
		return
	}
	apiresp.WriteOK(w, r, http.StatusOK, nil)
}

func (h *Handler) ToggleBookmark(w http.ResponseWriter, r *http.Request) {
	bookmarked, err := h.svc.ToggleBookmark(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeBankError(w, r, err)
		return
	}
	apiresp.WriteOK(w, r, http.StatusOK, map[string]bool{"bookmarked": bookmarked})
}

func (h *Handler) ListBookmarked(w http.ResponseWriter, r *http.Request) {
	apiresp.WriteOK(w, r, http.StatusOK, h.svc.Bookmarked(chi.URLParam(r, "certId")))
}

func (h *Handler) writeBankError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		apiresp.WriteError(w, r, http.StatusNotFound, err.Error())
	case errors.Is(err, ErrInvalidInput), errors.Is(err, ErrEmptyBatch):
		apiresp.WriteError(w, r, http.StatusBadRequest, err.Error())
	default:
		apiresp.WriteError(w, r, http.StatusInternalServerError, "internal error")
	}
}
