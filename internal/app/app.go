// Package app wires configuration, storage and services together for the
// binaries under cmd/.
package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/hray3182/daymemory/internal/ai"
	"github.com/hray3182/daymemory/internal/api"
	"github.com/hray3182/daymemory/internal/clock"
	"github.com/hray3182/daymemory/internal/config"
	"github.com/hray3182/daymemory/internal/database"
	"github.com/hray3182/daymemory/internal/logging"
	"github.com/hray3182/daymemory/internal/models"
	"github.com/hray3182/daymemory/internal/notify"
	"github.com/hray3182/daymemory/internal/reminder"
	"github.com/hray3182/daymemory/internal/repository"
	"github.com/hray3182/daymemory/internal/scheduler"
	"github.com/hray3182/daymemory/internal/service"
	"github.com/hray3182/daymemory/internal/storage"
)

type App struct {
	Config     *config.Config
	Log        logging.Logger
	DB         *database.DB
	Dispatcher *reminder.Dispatcher
	Scheduler  *scheduler.Scheduler

	loc            *time.Location
	defaultOffsets models.Offsets
}

// New connects to the database, applies migrations and builds the reminder
// pipeline. Optional channels are enabled by their configuration.
func New(ctx context.Context, cfg *config.Config, log logging.Logger) (*App, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	offsets, err := cfg.DefaultOffsets()
	if err != nil {
		return nil, err
	}

	db, err := database.New(ctx, cfg.Database.URI)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	log.Info(ctx, "connected to database")

	if err := db.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	log.Info(ctx, "database migrations completed")

	notifier, err := newNotifier(ctx, cfg, log)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	dispatcher := reminder.NewDispatcher(
		repository.NewReminderRepository(db.DB),
		notifier,
		clock.Real{},
		loc,
		log.With("component", "dispatcher"),
		reminder.Config{
			ClaimTimeout:   cfg.Reminder.ClaimTimeout,
			NotifyTimeout:  cfg.Reminder.NotifyTimeout,
			Workers:        cfg.Reminder.Workers,
			AutoRetryLimit: cfg.Reminder.AutoRetryLimit,
		},
	)

	return &App{
		Config:         cfg,
		Log:            log,
		DB:             db,
		Dispatcher:     dispatcher,
		Scheduler:      scheduler.New(dispatcher, cfg.Reminder.Interval, log.With("component", "scheduler")),
		loc:            loc,
		defaultOffsets: offsets,
	}, nil
}

func (a *App) Close() error {
	return a.DB.Close()
}

func newNotifier(ctx context.Context, cfg *config.Config, log logging.Logger) (*notify.Router, error) {
	router := &notify.Router{}

	if cfg.SMTPEnabled() {
		router.Email = notify.NewEmailSender(notify.EmailConfig{
			Host:     cfg.SMTP.Host,
			Port:     cfg.SMTP.Port,
			Username: cfg.SMTP.Username,
			Password: cfg.SMTP.Password,
			From:     cfg.SMTP.From,
		})
		log.Info(ctx, "email channel enabled", "host", cfg.SMTP.Host)
	}
	if cfg.SMSEnabled() {
		router.SMS = notify.NewSMSSender(notify.SMSConfig{
			Endpoint: cfg.SMS.Endpoint,
			APIKey:   cfg.SMS.APIKey,
			Sender:   cfg.SMS.Sender,
		}, &http.Client{Timeout: cfg.Reminder.NotifyTimeout})
		log.Info(ctx, "sms channel enabled")
	}
	if cfg.TelegramEnabled() {
		bot, err := tgbotapi.NewBotAPI(cfg.Telegram.Token)
		if err != nil {
			return nil, fmt.Errorf("failed to create Telegram API: %w", err)
		}
		router.Telegram = notify.NewTelegramSender(bot)
		log.Info(ctx, "telegram channel enabled", "bot", bot.Self.UserName)
	}
	return router, nil
}

// Handler builds the HTTP API on top of the shared pipeline.
func (a *App) Handler(ctx context.Context) (http.Handler, error) {
	cfg := a.Config
	db := a.DB.DB
	c := clock.Real{}

	events := repository.NewEventRepository(db)
	settings := repository.NewReminderSettingsRepository(db)
	gifts := repository.NewGiftRepository(db)
	logs := repository.NewReminderLogRepository(db)

	var images service.ImageStore
	if cfg.S3Enabled() {
		store, err := storage.NewImageStore(ctx, storage.Config{
			Region:       cfg.S3.Region,
			AccessKey:    cfg.S3.AccessKey,
			SecretKey:    cfg.S3.SecretKey,
			BaseEndpoint: cfg.S3.Endpoint,
			Bucket:       cfg.S3.Bucket,
			Expires:      cfg.S3.PresignExpiry,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to set up image storage: %w", err)
		}
		images = store
		a.Log.Info(ctx, "image storage enabled", "bucket", cfg.S3.Bucket)
	}

	var provider ai.Provider
	if cfg.AIEnabled() {
		p, err := ai.New(ai.Config{
			Provider: cfg.AI.Provider,
			APIKey:   cfg.AI.APIKey,
			BaseURL:  cfg.AI.BaseURL,
			Model:    cfg.AI.Model,
		})
		if err != nil {
			return nil, err
		}
		provider = p
		a.Log.Info(ctx, "AI client initialized", "provider", p.Name(), "model", cfg.AI.Model)
	} else {
		a.Log.Info(ctx, "AI client not configured, recommendations disabled")
	}

	server := api.NewServer(api.Deps{
		Events:    service.NewEventService(events, settings, a.Scheduler, c, a.loc, a.defaultOffsets, a.Log),
		Gifts:     service.NewGiftService(gifts, events, images, c, a.Log),
		Reminders: service.NewReminderService(logs, a.Dispatcher),
		Settings:  service.NewSettingsService(settings, a.defaultOffsets, c, a.Log),
		Recommendations: service.NewRecommendationService(
			repository.NewRecommendationRepository(db), events, gifts, provider, cfg.AI.Timeout, c, a.loc, a.Log),
		Insights:  service.NewInsightService(events, gifts, logs, c, a.loc),
		Users:     repository.NewUserRepository(db),
		DB:        db,
		JWTSecret: []byte(cfg.Auth.JWTSecret),
	}, a.Log.With("component", "http"))

	return server.Handler(), nil
}
