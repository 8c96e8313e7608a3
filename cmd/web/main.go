package main

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"time"

	"certmaster/internal/app"
	"certmaster/internal/app/logging"
	"certmaster/internal/storage"

	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	cfg := app.LoadConfig()
	log := logging.New(logging.Options{
		Level:      cfg.LogLevel,
		File:       cfg.LogFile,
		MaxSizeMB:  cfg.LogMaxSizeMB,
		MaxBackups: cfg.LogMaxBackups,
	})

	ctx := context.Background()

	var (
		store storage.Store
		db    *sql.DB
	)
	switch cfg.StoreBackend {
	case "memory":
		store = storage.NewMemoryStore()
	case "postgres":
		pg, err := storage.OpenPostgresWithConfig(ctx, cfg.DBDSN, storage.PostgresConfig{
			MaxOpenConns:    cfg.DBMaxOpenConns,
			MaxIdleConns:    cfg.DBMaxIdleConns,
			ConnMaxLifetime: time.Duration(cfg.DBConnMaxLifeMins) * time.Minute,
		})
		if err != nil {
			log.WithError(err).Error("database error")
			os.Exit(1)
		}
		store = pg
		db = pg.DB()
	default:
		fs, err := storage.NewFileStore(cfg.FileStoreDir)
		if err != nil {
			log.WithError(err).Error("file store error")
			os.Exit(1)
		}
		store = fs
	}
	defer store.Close()

	r, err := app.NewRouter(ctx, cfg, store, db, log)
	if err != nil {
		log.WithError(err).Error("startup error")
		os.Exit(1)
	}

	log.WithField("addr", cfg.HTTPAddr).Info("certmaster web listening")
	if err := http.ListenAndServe(cfg.HTTPAddr, r); err != nil {
		log.WithError(err).Error("server stopped")
		os.Exit(1)
	}
}
