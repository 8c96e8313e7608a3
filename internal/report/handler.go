package report

import (
	"errors"
	"net/http"

	"certmaster/internal/app/apiresp"
	"certmaster/internal/session"

	"github.com/go-chi/chi/v5"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) HistoryExcel(w http.ResponseWriter, r *http.Request) {
	data, err := h.svc.HistoryExcel(chi.URLParam(r, "certId"))
	if err != nil {
		apiresp.WriteError(w, r, http.StatusInternalServerError, "internal error")
		return
	}
	writeAttachment(w, data, "history.xlsx", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
}

func (h *Handler) KnowledgeExcel(w http.ResponseWriter, r *http.Request) {
	data, err := h.svc.KnowledgeExcel()
	if err != nil {
		apiresp.WriteError(w, r, http.StatusInternalServerError, "internal error")
		return
	}
	writeAttachment(w, data, "knowledge_stats.xlsx", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
}

func (h *Handler) SessionPDF(w http.ResponseWriter, r *http.Request) {
	data, err := h.svc.SessionPDF(chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, session.ErrSessionNotFound) {
			apiresp.WriteError(w, r, http.StatusNotFound, err.Error())
			return
		}
		apiresp.WriteError(w, r, http.StatusInternalServerError, "internal error")
		return
	}
	writeAttachment(w, data, "session_result.pdf", "application/pdf")
}

func writeAttachment(w http.ResponseWriter, data []byte, name, contentType string) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
