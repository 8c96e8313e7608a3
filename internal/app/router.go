package app

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"

	"certmaster/internal/app/observability"
	"certmaster/internal/bank"
	"certmaster/internal/examcfg"
	"certmaster/internal/report"
	"certmaster/internal/session"
	"certmaster/internal/storage"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"
)

func NewRouter(ctx context.Context, cfg Config, store storage.Store, db *sql.DB, log *logrus.Logger) (http.Handler, error) {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	collector := observability.NewCollector(db, log)
	r.Use(collector.Middleware)

	bankSvc, err := bank.NewService(ctx, store)
	if err != nil {
		return nil, fmt.Errorf("load question bank: %w", err)
	}
	configStore, err := examcfg.NewStore(ctx, store)
	if err != nil {
		return nil, fmt.Errorf("load exam configs: %w", err)
	}
	history, err := session.NewHistory(ctx, store)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}

	accumulation := session.AccumulateFull
	if cfg.StatsDelta {
		accumulation = session.AccumulateDelta
	}
	sessionSvc := session.NewService(bankSvc, configStore, history,
		session.WithLogger(log),
		session.WithAccumulation(accumulation),
	)

	bankHandler := bank.NewHandler(bankSvc)
	configHandler := examcfg.NewHandler(configStore)
	sessionHandler := session.NewHandler(sessionSvc)
	reportHandler := report.NewHandler(report.NewService(bankSvc, configStore, history))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"ok":true}`))
	})
	r.Get("/metrics", collector.MetricsHandler)

	r.Route("/api/v1", func(api chi.Router) {
		api.Get("/certificates", bankHandler.ListCertificates)
		api.Post("/certificates", bankHandler.SaveCertificate)
		api.Delete("/certificates/{id}", bankHandler.DeleteCertificate)

		api.Get("/certificates/{certId}/questions", bankHandler.ListQuestions)
		api.Post("/certificates/{certId}/questions", bankHandler.SaveQuestion)
		api.Post("/certificates/{certId}/questions/merge", bankHandler.Merge)
		api.Delete("/certificates/{certId}/questions", bankHandler.ClearCertificate)
		api.Delete("/questions/{id}", bankHandler.DeleteQuestion)

		api.Get("/certificates/{certId}/files", bankHandler.ListFiles)
		api.Delete("/files/{id}", bankHandler.DeleteFile)
		api.Put("/files/{id}/active", bankHandler.ToggleFile)

		api.Post("/questions/{id}/bookmark", bankHandler.ToggleBookmark)
		api.Get("/certificates/{certId}/bookmarks", bankHandler.ListBookmarked)

		api.Get("/certificates/{certId}/exam-config", configHandler.Get)
		api.Put("/certificates/{certId}/exam-config", configHandler.Put)
		api.Patch("/certificates/{certId}/exam-config", configHandler.Patch)

		api.Post("/sessions/start", sessionHandler.Start)
		api.Post("/certificates/{certId}/sessions/wrong-redo", sessionHandler.StartWrongRedo)
		api.Post("/sessions/{id}/resume", sessionHandler.Resume)
		api.Get("/sessions/current", sessionHandler.State)
		api.Put("/sessions/current/answer", sessionHandler.Answer)
		api.Post("/sessions/current/advance", sessionHandler.Advance)
		api.Put("/sessions/current/submode", sessionHandler.SetSubmode)
		api.Post("/sessions/current/submit", sessionHandler.Submit)
		api.Post("/sessions/current/abandon", sessionHandler.Abandon)
		api.Delete("/sessions/current", sessionHandler.Discard)

		api.Get("/certificates/{certId}/sessions/resumable", sessionHandler.ListResumable)
		api.Get("/certificates/{certId}/history", sessionHandler.ListHistory)
		api.Get("/stats", sessionHandler.Stats)
		api.Get("/certificates/{certId}/wrong-questions", sessionHandler.WrongQuestions)

		api.Get("/certificates/{certId}/reports/history.xlsx", reportHandler.HistoryExcel)
		api.Get("/reports/knowledge.xlsx", reportHandler.KnowledgeExcel)
		api.Get("/sessions/{id}/report.pdf", reportHandler.SessionPDF)
	})

	return r, nil
}
