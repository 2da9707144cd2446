// Package api implements the HTTP query and user-management surface.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/smukkama/weather-monitor/internal/auth"
	"github.com/smukkama/weather-monitor/internal/database"
)

var validate = validator.New()

// Store is the persistence surface used by the handlers. *database.DB satisfies it.
type Store interface {
	PingContext(ctx context.Context) error

	InsertReading(ctx context.Context, r *database.Reading) error
	ReadingHistory(ctx context.Context, city string, since time.Time, limit int) ([]*database.Reading, error)
	LatestReadings(ctx context.Context, limit int) ([]*database.Reading, error)

	ListAlerts(ctx context.Context, f database.AlertFilter) ([]*database.Alert, error)
	ResolveAlert(ctx context.Context, id int64) (*database.Alert, error)
	AlertStats(ctx context.Context, since time.Time) (*database.AlertStats, error)

	CreateUser(ctx context.Context, u *database.User) error
	GetUserByEmail(ctx context.Context, email string) (*database.User, error)
	GetUserByUsername(ctx context.Context, username string) (*database.User, error)
	GetUserByID(ctx context.Context, id int64) (*database.User, error)

	CreateCustomAlert(ctx context.Context, c *database.CustomAlert) error
	ListCustomAlerts(ctx context.Context, userID int64) ([]*database.CustomAlert, error)
	UpdateCustomAlert(ctx context.Context, c *database.CustomAlert) error
	DeleteCustomAlert(ctx context.Context, userID, id int64) error

	AddUserCity(ctx context.Context, c *database.UserCity) error
	ListUserCities(ctx context.Context, userID int64) ([]*database.UserCity, error)
	DeleteUserCity(ctx context.Context, userID, id int64) error
}

// Fetcher retrieves a live reading. *weather.Client satisfies it.
type Fetcher interface {
	Fetch(ctx context.Context, city string) (*database.Reading, error)
}

// Handler serves the REST endpoints.
type Handler struct {
	store   Store
	fetcher Fetcher
	tokens  *auth.TokenManager
	logger  *slog.Logger
}

func NewHandler(store Store, fetcher Fetcher, tokens *auth.TokenManager, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		store:   store,
		fetcher: fetcher,
		tokens:  tokens,
		logger:  logger,
	}
}

// Mount registers every route on r.
func (h *Handler) Mount(r chi.Router) {
	r.Get("/health", h.Health)

	r.Route("/api", func(r chi.Router) {
		r.Route("/weather", func(r chi.Router) {
			r.Get("/current/{city}", h.CurrentWeather)
			r.Get("/history/{city}", h.WeatherHistory)
			r.Get("/latest", h.LatestReadings)
		})

		r.Route("/alerts", func(r chi.Router) {
			r.Get("/", h.ListAlerts)
			r.Get("/stats", h.AlertStats)
			r.Put("/{id}/resolve", h.ResolveAlert)
		})

		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", h.Register)
			r.Post("/login", h.Login)
		})

		r.Route("/user", func(r chi.Router) {
			r.Use(JWTAuth(h.tokens))

			r.Get("/alerts", h.ListCustomAlerts)
			r.Post("/alerts", h.CreateCustomAlert)
			r.Put("/alerts/{id}", h.UpdateCustomAlert)
			r.Delete("/alerts/{id}", h.DeleteCustomAlert)

			r.Get("/cities", h.ListUserCities)
			r.Post("/cities", h.AddUserCity)
			r.Delete("/cities/{id}", h.DeleteUserCity)
		})
	})
}

// Health reports service and database status.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := h.store.PingContext(ctx); err != nil {
		h.logger.Warn("health check failed", "error", err)
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status":   "unhealthy",
			"database": "unreachable",
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status":   "healthy",
		"database": "ok",
	})
}

// decodeBody decodes a JSON body into dst and runs struct validation.
func decodeBody(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return fmt.Errorf("invalid request body")
	}
	if err := validate.Struct(dst); err != nil {
		return validationMessage(err)
	}
	return nil
}

func validationMessage(err error) error {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s failed %s", strings.ToLower(fe.Field()), fe.Tag()))
	}
	return fmt.Errorf("%s", strings.Join(msgs, "; "))
}

func pathID(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}

// queryInt returns the named integer query parameter or def when absent.
func queryInt(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer", name)
	}
	return v, nil
}
