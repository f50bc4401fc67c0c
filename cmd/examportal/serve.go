package main

import (
	"context"
	"crypto/rand"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/vbonduro/examportal/internal/auth"
	"github.com/vbonduro/examportal/internal/catalogue"
	"github.com/vbonduro/examportal/internal/config"
	"github.com/vbonduro/examportal/internal/db"
	"github.com/vbonduro/examportal/internal/docstore/local"
	"github.com/vbonduro/examportal/internal/logging"
	"github.com/vbonduro/examportal/internal/notify"
	"github.com/vbonduro/examportal/internal/service"
	"github.com/vbonduro/examportal/internal/store"
	"github.com/vbonduro/examportal/internal/web"
	"github.com/vbonduro/examportal/internal/web/templates"
)

func loadDotEnv(path string) error {
	return config.LoadDotEnv(path)
}

func runServe() error {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger, cleanup, err := logging.New(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer cleanup()

	docs, err := local.NewLocalDocumentStore(cfg.UploadDir)
	if err != nil {
		logger.Error("failed to initialize document store", "error", err)
		return err
	}

	verifier, err := auth.LoadSecretFile(cfg.AuthFile)
	if err != nil {
		logger.Error("failed to load auth file", "error", err)
		return err
	}

	deps := service.Deps{
		Catalogue:     catalogue.Default(),
		Documents:     docs,
		Verifier:      verifier,
		Logger:        logger,
		NotifyTimeout: cfg.NotifyTimeout,
	}

	var database *sql.DB
	if cfg.EnableNotify || (cfg.EnableCalendar && cfg.CalendarBackend == "sqlite") {
		database, err = db.Open(cfg.DBPath)
		if err != nil {
			logger.Error("failed to open database", "error", err)
			return err
		}
		defer func() {
			if err := database.Close(); err != nil {
				logger.Error("failed to close database", "error", err)
			}
		}()
	}

	if cfg.EnableCalendar {
		if err := wireCalendar(cfg, database, &deps, logger); err != nil {
			return err
		}
	}
	if cfg.EnableNotify {
		deps.Notifier = newNotifier(cfg, logger)
		deps.NotificationLog = store.NewNotificationStore(database)
	}

	csrfKey := []byte(cfg.CSRFKey)
	if len(csrfKey) == 0 {
		csrfKey = make([]byte, 32)
		if _, err := rand.Read(csrfKey); err != nil {
			return fmt.Errorf("failed to generate csrf key: %w", err)
		}
		logger.Warn("CSRF_KEY not set, using a per-process key; forms break across restarts")
	}

	server := web.NewServer(service.New(deps), templates.FS, auth.NewSessionStore(), web.Options{
		CSRFKey:        csrfKey,
		SecureCookies:  cfg.SecureCookies,
		MaxUploadBytes: cfg.MaxUploadMB << 20,
	}, logger)

	if err := server.ListenAndServe(cfg.ListenAddr); err != nil {
		logger.Error("server error", "error", err)
		return err
	}
	return nil
}

// wireCalendar selects the calendar backend. The sqlite backend imports
// the JSON calendar once, while its table is still empty.
func wireCalendar(cfg *config.Config, database *sql.DB, deps *service.Deps, logger *slog.Logger) error {
	fileStore, err := store.NewCalendarFileStore(cfg.CalendarFile, logger)
	if err != nil {
		logger.Error("failed to initialize calendar store", "error", err)
		return err
	}

	if cfg.CalendarBackend != "sqlite" {
		logger.Info("using JSON calendar", "file", cfg.CalendarFile)
		deps.Calendar = fileStore
		return nil
	}

	sqlStore := store.NewCalendarSQLStore(database)
	ctx := context.Background()
	events, err := fileStore.Load(ctx)
	if err != nil {
		return err
	}
	imported, err := sqlStore.ImportIfEmpty(ctx, events)
	if err != nil {
		logger.Error("failed to import calendar", "error", err)
		return err
	}
	if imported > 0 {
		logger.Info("imported JSON calendar into sqlite", "events", imported, "file", cfg.CalendarFile)
	}
	logger.Info("using sqlite calendar", "db", cfg.DBPath)
	deps.Calendar = sqlStore
	return nil
}

func newNotifier(cfg *config.Config, logger *slog.Logger) notify.Notifier {
	switch cfg.NotifyBackend {
	case "smtp":
		logger.Info("using SMTP notifier", "host", cfg.SMTPHost, "port", cfg.SMTPPort)
		return notify.NewSMTPNotifier(notify.SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
			From:     cfg.MailFrom,
		})
	case "resend":
		logger.Info("using Resend notifier")
		return notify.NewResendNotifier(cfg.ResendAPIKey, cfg.MailFrom)
	default:
		logger.Info("using noop notifier, emails are logged but not sent")
		return notify.NoopNotifier{}
	}
}
