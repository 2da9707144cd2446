package api

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/smukkama/weather-monitor/internal/weather"
)

// windowQuery carries the common lookback and limit parameters.
type windowQuery struct {
	Hours int `validate:"min=1,max=720"`
	Limit int `validate:"min=1,max=1000"`
}

func parseWindow(r *http.Request, defHours, defLimit int) (windowQuery, error) {
	var q windowQuery
	var err error
	if q.Hours, err = queryInt(r, "hours", defHours); err != nil {
		return q, err
	}
	if q.Limit, err = queryInt(r, "limit", defLimit); err != nil {
		return q, err
	}
	if err := validate.Struct(q); err != nil {
		return q, validationMessage(err)
	}
	return q, nil
}

// CurrentWeather fetches a live reading for the city and stores it.
func (h *Handler) CurrentWeather(w http.ResponseWriter, r *http.Request) {
	city := strings.TrimSpace(chi.URLParam(r, "city"))
	if city == "" {
		jsonError(w, http.StatusBadRequest, errCodeBadRequest, "city is required")
		return
	}

	reading, err := h.fetcher.Fetch(r.Context(), city)
	if err != nil {
		h.logger.Warn("current weather fetch failed", "city", city, "error", err)
		writeFetchError(w, err)
		return
	}

	if err := h.store.InsertReading(r.Context(), reading); err != nil {
		h.storeError(w, err, "")
		return
	}

	writeJSON(w, http.StatusOK, reading)
}

func writeFetchError(w http.ResponseWriter, err error) {
	if errors.Is(err, weather.ErrCircuitOpen) {
		jsonError(w, http.StatusServiceUnavailable, errCodeUnavailable, "weather provider temporarily unavailable")
		return
	}

	var ue *weather.UpstreamError
	if errors.As(err, &ue) && ue.StatusCode == http.StatusNotFound {
		jsonError(w, http.StatusNotFound, errCodeNotFound, "city not found")
		return
	}

	jsonError(w, http.StatusBadGateway, errCodeUpstream, "failed to fetch weather data: "+err.Error())
}

// WeatherHistory lists stored readings for a city, newest first.
func (h *Handler) WeatherHistory(w http.ResponseWriter, r *http.Request) {
	q, err := parseWindow(r, 24, 100)
	if err != nil {
		jsonError(w, http.StatusBadRequest, errCodeBadRequest, err.Error())
		return
	}

	since := time.Now().UTC().Add(-time.Duration(q.Hours) * time.Hour)
	readings, err := h.store.ReadingHistory(r.Context(), chi.URLParam(r, "city"), since, q.Limit)
	if err != nil {
		h.storeError(w, err, "")
		return
	}
	writeJSON(w, http.StatusOK, readings)
}

// LatestReadings lists the newest readings across all cities.
func (h *Handler) LatestReadings(w http.ResponseWriter, r *http.Request) {
	q, err := parseWindow(r, 24, 10)
	if err != nil {
		jsonError(w, http.StatusBadRequest, errCodeBadRequest, err.Error())
		return
	}

	readings, err := h.store.LatestReadings(r.Context(), q.Limit)
	if err != nil {
		h.storeError(w, err, "")
		return
	}
	writeJSON(w, http.StatusOK, readings)
}
