// Package api exposes the services over JSON/HTTP.
package api

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/hray3182/daymemory/internal/logging"
	"github.com/hray3182/daymemory/internal/models"
	"github.com/hray3182/daymemory/internal/service"
	"github.com/hray3182/daymemory/internal/storage"
)

type EventService interface {
	Create(ctx context.Context, userID uuid.UUID, in service.EventInput) (*service.EventView, error)
	Get(ctx context.Context, userID, eventID uuid.UUID) (*service.EventView, error)
	Update(ctx context.Context, userID, eventID uuid.UUID, in service.EventInput) (*service.EventView, error)
	Delete(ctx context.Context, userID, eventID uuid.UUID) error
	List(ctx context.Context, userID uuid.UUID, q models.EventQuery) (*models.Page[*service.EventView], error)
	SetTracking(ctx context.Context, userID, eventID uuid.UUID, tracked bool) (*service.EventView, error)
}

type GiftService interface {
	Create(ctx context.Context, userID uuid.UUID, in service.GiftInput) (*service.GiftView, error)
	Get(ctx context.Context, userID, giftID uuid.UUID) (*service.GiftView, error)
	Update(ctx context.Context, userID, giftID uuid.UUID, in service.GiftInput) (*service.GiftView, error)
	Delete(ctx context.Context, userID, giftID uuid.UUID) error
	List(ctx context.Context, userID uuid.UUID, q models.GiftQuery) (*models.Page[*models.Gift], error)
	SetPurchased(ctx context.Context, userID, giftID uuid.UUID, purchased bool) (*service.GiftView, error)
	PresignImageUpload(ctx context.Context, userID, giftID uuid.UUID, contentType string) (*storage.Upload, error)
}

type ReminderService interface {
	Logs(ctx context.Context, userID uuid.UUID, q models.ReminderLogQuery) (*models.Page[*models.ReminderLog], error)
	Log(ctx context.Context, userID, logID uuid.UUID) (*models.ReminderLog, error)
	Retry(ctx context.Context, userID, logID uuid.UUID) (*models.ReminderLog, error)
	RetryInstance(ctx context.Context, userID, instanceID uuid.UUID) (*models.ReminderLog, error)
	SendNow(ctx context.Context, userID, eventID uuid.UUID) (*models.ReminderLog, error)
}

type SettingsService interface {
	Get(ctx context.Context, userID uuid.UUID) (*models.ReminderSettings, error)
	Update(ctx context.Context, userID uuid.UUID, in service.SettingsInput) (*models.ReminderSettings, error)
}

type RecommendationService interface {
	Request(ctx context.Context, userID uuid.UUID, in service.RecommendationInput) (*models.Recommendation, error)
	Get(ctx context.Context, userID, recID uuid.UUID) (*models.Recommendation, error)
	List(ctx context.Context, userID uuid.UUID, req models.PageRequest) (*models.Page[*models.Recommendation], error)
	SaveSuggestion(ctx context.Context, userID, recID uuid.UUID, index int) (*models.Gift, bool, error)
}

type InsightService interface {
	Dashboard(ctx context.Context, userID uuid.UUID) (*service.Dashboard, error)
	ReminderStats(ctx context.Context, userID uuid.UUID, days int) (*service.ReminderStats, error)
	EventStats(ctx context.Context, userID uuid.UUID, year int) (*service.EventStats, error)
	GiftStats(ctx context.Context, userID uuid.UUID) (*service.GiftStats, error)
	Calendar(ctx context.Context, userID uuid.UUID, year, month int) ([]service.CalendarEntry, error)
}

// Users makes sure an authenticated caller has a user row.
type Users interface {
	GetOrCreate(ctx context.Context, userID uuid.UUID, email, name string) (*models.User, error)
}

// Pinger reports database health.
type Pinger interface {
	PingContext(ctx context.Context) error
}

type Deps struct {
	Events          EventService
	Gifts           GiftService
	Reminders       ReminderService
	Settings        SettingsService
	Recommendations RecommendationService
	Insights        InsightService
	Users           Users
	DB              Pinger
	JWTSecret       []byte
}

type Server struct {
	Deps
	log logging.Logger
}

func NewServer(deps Deps, log logging.Logger) *Server {
	return &Server{Deps: deps, log: log}
}

// Handler returns the routed handler with logging and auth applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", s.health)

	authed := http.NewServeMux()
	authed.HandleFunc("GET /events", s.listEvents)
	authed.HandleFunc("POST /events", s.createEvent)
	authed.HandleFunc("GET /events/{id}", s.getEvent)
	authed.HandleFunc("PUT /events/{id}", s.updateEvent)
	authed.HandleFunc("DELETE /events/{id}", s.deleteEvent)
	authed.HandleFunc("PATCH /events/{id}/tracking", s.setTracking)

	authed.HandleFunc("GET /gifts", s.listGifts)
	authed.HandleFunc("POST /gifts", s.createGift)
	authed.HandleFunc("GET /gifts/{id}", s.getGift)
	authed.HandleFunc("PUT /gifts/{id}", s.updateGift)
	authed.HandleFunc("DELETE /gifts/{id}", s.deleteGift)
	authed.HandleFunc("PATCH /gifts/{id}/purchased", s.setPurchased)
	authed.HandleFunc("POST /gifts/{id}/image", s.presignGiftImage)

	authed.HandleFunc("GET /reminders/logs", s.listLogs)
	authed.HandleFunc("GET /reminders/logs/{id}", s.getLog)
	authed.HandleFunc("POST /reminders/retry/{logId}", s.retryLog)
	authed.HandleFunc("POST /reminders/instances/{id}/retry", s.retryInstance)
	authed.HandleFunc("POST /reminders/immediate/{eventId}", s.sendNow)

	authed.HandleFunc("GET /users/reminder-settings", s.getSettings)
	authed.HandleFunc("PUT /users/reminder-settings", s.updateSettings)

	authed.HandleFunc("GET /dashboard", s.dashboard)
	authed.HandleFunc("GET /statistics/calendar", s.calendar)
	authed.HandleFunc("GET /statistics/reminders", s.reminderStats)
	authed.HandleFunc("GET /statistics/events", s.eventStats)
	authed.HandleFunc("GET /statistics/gifts", s.giftStats)

	authed.HandleFunc("POST /recommendations", s.requestRecommendation)
	authed.HandleFunc("GET /recommendations", s.listRecommendations)
	authed.HandleFunc("GET /recommendations/{id}", s.getRecommendation)
	authed.HandleFunc("POST /recommendations/{id}/suggestions/{index}/save", s.saveSuggestion)

	mux.Handle("/", s.authenticate(authed))

	return s.recoverPanics(s.logRequests(mux))
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	if s.DB != nil {
		if err := s.DB.PingContext(r.Context()); err != nil {
			s.log.Warn(r.Context(), "health check failed", "error", err)
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
