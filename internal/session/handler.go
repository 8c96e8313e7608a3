package session

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"certmaster/internal/app/apiresp"
	"certmaster/internal/bank"

	"github.com/go-chi/chi/v5"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

type startRequest struct {
	CertID string `json:"cert_id"`
	Mode   string `json:"mode"`
}

type answerRequest struct {
	QuestionID string   `json:"question_id"`
	Labels     []string `json:"labels"`
}

type advanceRequest struct {
	Delta int `json:"delta"`
}

type submodeRequest struct {
	Submode string `json:"submode"`
}

func (h *Handler) Start(w http.ResponseWriter, r *http.Request) {
	var req startRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apiresp.WriteError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.CertID) == "" {
		apiresp.WriteError(w, r, http.StatusBadRequest, "cert_id is required")
		return
	}
	mode := Mode(req.Mode)
	if mode != ModePractice && mode != ModeExam {
		apiresp.WriteError(w, r, http.StatusBadRequest, "mode must be practice or exam")
		return
	}

	state, err := h.svc.Start(r.Context(), req.CertID, mode)
	if err != nil {
		h.writeSessionError(w, r, err)
		return
	}
	apiresp.WriteOK(w, r, http.StatusCreated, state)
}

func (h *Handler) StartWrongRedo(w http.ResponseWriter, r *http.Request) {
	certID := chi.URLParam(r, "certId")
	state, err := h.svc.StartWrongRedo(r.Context(), certID)
	if err != nil {
		h.writeSessionError(w, r, err)
		return
	}
	apiresp.WriteOK(w, r, http.StatusCreated, state)
}

func (h *Handler) Resume(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "id")
	state, err := h.svc.Resume(r.Context(), sessionID)
	if err != nil {
		h.writeSessionError(w, r, err)
		return
	}
	apiresp.WriteOK(w, r, http.StatusOK, state)
}

func (h *Handler) State(w http.ResponseWriter, r *http.Request) {
	state, err := h.svc.State()
	if err != nil {
		h.writeSessionError(w, r, err)
		return
	}
	apiresp.WriteOK(w, r, http.StatusOK, state)
}

func (h *Handler) Answer(w http.ResponseWriter, r *http.Request) {
	var req answerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apiresp.WriteError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.QuestionID) == "" {
		apiresp.WriteError(w, r, http.StatusBadRequest, "question_id is required")
		return
	}
	if err := h.svc.Answer(r.Context(), req.QuestionID, req.Labels); err != nil {
		h.writeSessionError(w, r, err)
		return
	}
	apiresp.WriteOK(w, r, http.StatusOK, nil)
}

func (h *Handler) Advance(w http.ResponseWriter, r *http.Request) {
	var req advanceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apiresp.WriteError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}
	index, err := h.svc.Advance(req.Delta)
	if err != nil {
		h.writeSessionError(w, r, err)
		return
	}
	apiresp.WriteOK(w, r, http.StatusOK, map[string]int{"current_index": index})
}

func (h *Handler) SetSubmode(w http.ResponseWriter, r *http.Request) {
	var req submodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apiresp.WriteError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.svc.SetSubmode(Submode(req.Submode)); err != nil {
		h.writeSessionError(w, r, err)
		return
	}
	apiresp.WriteOK(w, r, http.StatusOK, nil)
}

func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	result, err := h.svc.Complete(r.Context())
	if err != nil {
		h.writeSessionError(w, r, err)
		return
	}
	apiresp.WriteOK(w, r, http.StatusOK, result)
}

func (h *Handler) Abandon(w http.ResponseWriter, r *http.Request) {
	result, err := h.svc.Abandon(r.Context())
	if err != nil {
		h.writeSessionError(w, r, err)
		return
	}
	apiresp.WriteOK(w, r, http.StatusOK, result)
}

func (h *Handler) Discard(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Discard(); err != nil {
		h.writeSessionError(w, r, err)
		return
	}
	apiresp.WriteOK(w, r, http.StatusOK, nil)
}

func (h *Handler) ListResumable(w http.ResponseWriter, r *http.Request) {
	certID := chi.URLParam(r, "certId")
	apiresp.WriteOK(w, r, http.StatusOK, h.svc.History().ListResumable(certID))
}

func (h *Handler) ListHistory(w http.ResponseWriter, r *http.Request) {
	certID := chi.URLParam(r, "certId")
	apiresp.WriteOK(w, r, http.StatusOK, h.svc.History().Records(certID))
}

func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	apiresp.WriteOK(w, r, http.StatusOK, h.svc.History().Stats())
}

func (h *Handler) WrongQuestions(w http.ResponseWriter, r *http.Request) {
	certID := chi.URLParam(r, "certId")
	questions := h.svc.WrongQuestions(certID)
	if questions == nil {
		questions = []bank.Question{}
	}
	apiresp.WriteOK(w, r, http.StatusOK, questions)
}

func (h *Handler) writeSessionError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ErrEmptyPool):
		apiresp.WriteError(w, r, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, ErrDataLost):
		apiresp.WriteError(w, r, http.StatusConflict, err.Error())
	case errors.Is(err, ErrSessionActive):
		apiresp.WriteError(w, r, http.StatusConflict, err.Error())
	case errors.Is(err, ErrNoActiveSession), errors.Is(err, ErrSessionNotFound):
		apiresp.WriteError(w, r, http.StatusNotFound, err.Error())
	case errors.Is(err, ErrNotResumable),
		errors.Is(err, ErrRecitationReadOnly),
		errors.Is(err, ErrQuestionNotInSession),
		errors.Is(err, ErrInvalidSubmode),
		errors.Is(err, ErrNotAbandonable):
		apiresp.WriteError(w, r, http.StatusBadRequest, err.Error())
	default:
		apiresp.WriteError(w, r, http.StatusInternalServerError, "internal error")
	}
}
