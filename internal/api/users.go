package api

import (
	"errors"
	"net/http"

	"github.com/smukkama/weather-monitor/internal/auth"
	"github.com/smukkama/weather-monitor/internal/database"
)

type registerRequest struct {
	Email    string  `json:"email" validate:"required,email"`
	Username string  `json:"username" validate:"required,min=3,max=50,alphanum"`
	Password string  `json:"password" validate:"required,min=8,max=72"`
	Phone    *string `json:"phone" validate:"omitempty,e164"`
}

type loginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

type customAlertRequest struct {
	City           string  `json:"city" validate:"required,max=100"`
	AlertType      string  `json:"alert_type" validate:"required,oneof=temperature humidity aqi"`
	ThresholdValue float64 `json:"threshold_value"`
	EmailEnabled   *bool   `json:"email_enabled"`
	SMSEnabled     bool    `json:"sms_enabled"`
}

func (req customAlertRequest) apply(c *database.CustomAlert) {
	c.City = req.City
	c.AlertType = req.AlertType
	c.ThresholdValue = req.ThresholdValue
	c.EmailEnabled = req.EmailEnabled == nil || *req.EmailEnabled
	c.SMSEnabled = req.SMSEnabled
}

type userCityRequest struct {
	City       string  `json:"city" validate:"required,max=100"`
	Latitude   float64 `json:"latitude" validate:"min=-90,max=90"`
	Longitude  float64 `json:"longitude" validate:"min=-180,max=180"`
	IsFavorite bool    `json:"is_favorite"`
}

// Register creates a user account.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeBody(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, errCodeBadRequest, err.Error())
		return
	}

	ctx := r.Context()
	if _, err := h.store.GetUserByEmail(ctx, req.Email); err == nil {
		jsonError(w, http.StatusConflict, errCodeConflict, "email already registered")
		return
	} else if !errors.Is(err, database.ErrNotFound) {
		h.storeError(w, err, "")
		return
	}
	if _, err := h.store.GetUserByUsername(ctx, req.Username); err == nil {
		jsonError(w, http.StatusConflict, errCodeConflict, "username already taken")
		return
	} else if !errors.Is(err, database.ErrNotFound) {
		h.storeError(w, err, "")
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		h.logger.Error("register failed", "error", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternal, "internal server error")
		return
	}

	user := &database.User{
		Email:        req.Email,
		Username:     req.Username,
		PasswordHash: hash,
		Phone:        req.Phone,
		IsActive:     true,
	}
	if err := h.store.CreateUser(ctx, user); err != nil {
		h.storeError(w, err, "")
		return
	}

	h.logger.Info("user registered", "user_id", user.ID, "username", user.Username)
	writeJSON(w, http.StatusCreated, user)
}

// Login exchanges credentials for an access token.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeBody(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, errCodeBadRequest, err.Error())
		return
	}

	user, err := h.store.GetUserByUsername(r.Context(), req.Username)
	if err != nil && !errors.Is(err, database.ErrNotFound) {
		h.storeError(w, err, "")
		return
	}
	if user == nil || !user.IsActive || !auth.CheckPassword(user.PasswordHash, req.Password) {
		h.logger.Warn("login failed", "username", req.Username)
		jsonError(w, http.StatusUnauthorized, errCodeUnauthorized, "invalid credentials")
		return
	}

	token, err := h.tokens.Issue(user.ID, user.Username)
	if err != nil {
		h.logger.Error("token issue failed", "error", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternal, "internal server error")
		return
	}

	writeJSON(w, http.StatusOK, tokenResponse{
		AccessToken: token,
		TokenType:   "bearer",
		ExpiresIn:   h.tokens.TTLSeconds(),
	})
}

func (h *Handler) ListCustomAlerts(w http.ResponseWriter, r *http.Request) {
	alerts, err := h.store.ListCustomAlerts(r.Context(), UserID(r.Context()))
	if err != nil {
		h.storeError(w, err, "")
		return
	}
	writeJSON(w, http.StatusOK, alerts)
}

func (h *Handler) CreateCustomAlert(w http.ResponseWriter, r *http.Request) {
	var req customAlertRequest
	if err := decodeBody(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, errCodeBadRequest, err.Error())
		return
	}

	rule := &database.CustomAlert{UserID: UserID(r.Context())}
	req.apply(rule)
	if err := h.store.CreateCustomAlert(r.Context(), rule); err != nil {
		h.storeError(w, err, "")
		return
	}
	writeJSON(w, http.StatusCreated, rule)
}

func (h *Handler) UpdateCustomAlert(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		jsonError(w, http.StatusBadRequest, errCodeBadRequest, "invalid alert id")
		return
	}

	var req customAlertRequest
	if err := decodeBody(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, errCodeBadRequest, err.Error())
		return
	}

	rule := &database.CustomAlert{ID: id, UserID: UserID(r.Context())}
	req.apply(rule)
	if err := h.store.UpdateCustomAlert(r.Context(), rule); err != nil {
		h.storeError(w, err, "alert not found")
		return
	}
	jsonMessage(w, "Alert updated successfully")
}

func (h *Handler) DeleteCustomAlert(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		jsonError(w, http.StatusBadRequest, errCodeBadRequest, "invalid alert id")
		return
	}

	if err := h.store.DeleteCustomAlert(r.Context(), UserID(r.Context()), id); err != nil {
		h.storeError(w, err, "alert not found")
		return
	}
	jsonMessage(w, "Alert deleted successfully")
}

func (h *Handler) ListUserCities(w http.ResponseWriter, r *http.Request) {
	cities, err := h.store.ListUserCities(r.Context(), UserID(r.Context()))
	if err != nil {
		h.storeError(w, err, "")
		return
	}
	writeJSON(w, http.StatusOK, cities)
}

func (h *Handler) AddUserCity(w http.ResponseWriter, r *http.Request) {
	var req userCityRequest
	if err := decodeBody(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, errCodeBadRequest, err.Error())
		return
	}

	city := &database.UserCity{
		UserID:     UserID(r.Context()),
		City:       req.City,
		Latitude:   req.Latitude,
		Longitude:  req.Longitude,
		IsFavorite: req.IsFavorite,
	}
	if err := h.store.AddUserCity(r.Context(), city); err != nil {
		h.storeError(w, err, "")
		return
	}
	writeJSON(w, http.StatusCreated, city)
}

func (h *Handler) DeleteUserCity(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		jsonError(w, http.StatusBadRequest, errCodeBadRequest, "invalid city id")
		return
	}

	if err := h.store.DeleteUserCity(r.Context(), UserID(r.Context()), id); err != nil {
		h.storeError(w, err, "city not found")
		return
	}
	jsonMessage(w, "City removed successfully")
}
