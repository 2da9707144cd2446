package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/smukkama/weather-monitor/internal/database"
)

type statsQuery struct {
	Hours int `validate:"min=1,max=720"`
}

type alertQuery struct {
	windowQuery
	AlertType string `validate:"omitempty,oneof=temperature humidity aqi"`
}

// ListAlerts lists alerts newest first with optional city, type and resolution filters.
func (h *Handler) ListAlerts(w http.ResponseWriter, r *http.Request) {
	window, err := parseWindow(r, 24, 50)
	if err != nil {
		jsonError(w, http.StatusBadRequest, errCodeBadRequest, err.Error())
		return
	}

	q := alertQuery{windowQuery: window, AlertType: r.URL.Query().Get("alert_type")}
	if err := validate.Struct(q); err != nil {
		jsonError(w, http.StatusBadRequest, errCodeBadRequest, validationMessage(err).Error())
		return
	}

	filter := database.AlertFilter{
		City:      r.URL.Query().Get("city"),
		AlertType: q.AlertType,
		Since:     time.Now().UTC().Add(-time.Duration(q.Hours) * time.Hour),
		Limit:     q.Limit,
	}

	if raw := r.URL.Query().Get("resolved"); raw != "" {
		resolved, err := strconv.ParseBool(raw)
		if err != nil {
			jsonError(w, http.StatusBadRequest, errCodeBadRequest, "resolved must be true or false")
			return
		}
		filter.Resolved = &resolved
	}

	alerts, err := h.store.ListAlerts(r.Context(), filter)
	if err != nil {
		h.storeError(w, err, "")
		return
	}
	writeJSON(w, http.StatusOK, alerts)
}

// ResolveAlert marks an alert resolved. Resolving twice is a no-op.
func (h *Handler) ResolveAlert(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		jsonError(w, http.StatusBadRequest, errCodeBadRequest, "invalid alert id")
		return
	}

	if _, err := h.store.ResolveAlert(r.Context(), id); err != nil {
		h.storeError(w, err, "alert not found")
		return
	}

	h.logger.Info("alert resolved", "alert_id", id)
	jsonMessage(w, "Alert resolved successfully")
}

// AlertStats summarizes alerts created within the lookback window.
func (h *Handler) AlertStats(w http.ResponseWriter, r *http.Request) {
	var q statsQuery
	var err error
	if q.Hours, err = queryInt(r, "hours", 24); err != nil {
		jsonError(w, http.StatusBadRequest, errCodeBadRequest, err.Error())
		return
	}
	if err := validate.Struct(q); err != nil {
		jsonError(w, http.StatusBadRequest, errCodeBadRequest, validationMessage(err).Error())
		return
	}

	stats, err := h.store.AlertStats(r.Context(), time.Now().UTC().Add(-time.Duration(q.Hours)*time.Hour))
	if err != nil {
		h.storeError(w, err, "")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
