package database

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

const userColumns = `id, email, username, password_hash, phone, is_active, created_at`

// CreateUser inserts a user and sets its ID.
func (db *DB) CreateUser(ctx context.Context, u *User) error {
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}

	query := db.rebind(`
		INSERT INTO users (email, username, password_hash, phone, is_active, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		RETURNING id
	`)

	err := db.QueryRowContext(ctx, query,
		u.Email,
		u.Username,
		u.PasswordHash,
		u.Phone,
		u.IsActive,
		u.CreatedAt.UTC(),
	).Scan(&u.ID)
	return persistErr("create user", err)
}

func (db *DB) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	return db.getUser(ctx, "email = ?", email)
}

func (db *DB) GetUserByUsername(ctx context.Context, username string) (*User, error) {
	return db.getUser(ctx, "username = ?", username)
}

func (db *DB) GetUserByID(ctx context.Context, id int64) (*User, error) {
	return db.getUser(ctx, "id = ?", id)
}

func (db *DB) getUser(ctx context.Context, cond string, arg interface{}) (*User, error) {
	query := db.rebind(`SELECT ` + userColumns + ` FROM users WHERE ` + cond)

	var u User
	err := db.QueryRowContext(ctx, query, arg).Scan(
		&u.ID,
		&u.Email,
		&u.Username,
		&u.PasswordHash,
		&u.Phone,
		&u.IsActive,
		&u.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, persistErr("get user", err)
	}
	return &u, nil
}

const customAlertColumns = `id, user_id, city, alert_type, threshold_value, is_active, email_enabled, sms_enabled, created_at`

// CreateCustomAlert stores a user rule. New rules are active.
func (db *DB) CreateCustomAlert(ctx context.Context, c *CustomAlert) error {
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	c.IsActive = true

	query := db.rebind(`
		INSERT INTO custom_alerts (user_id, city, alert_type, threshold_value, is_active, email_enabled, sms_enabled, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id
	`)

	err := db.QueryRowContext(ctx, query,
		c.UserID,
		c.City,
		c.AlertType,
		c.ThresholdValue,
		c.IsActive,
		c.EmailEnabled,
		c.SMSEnabled,
		c.CreatedAt.UTC(),
	).Scan(&c.ID)
	return persistErr("create custom alert", err)
}

func (db *DB) ListCustomAlerts(ctx context.Context, userID int64) ([]*CustomAlert, error) {
	query := db.rebind(`
		SELECT ` + customAlertColumns + `
		FROM custom_alerts
		WHERE user_id = ?
		ORDER BY id
	`)

	rows, err := db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, persistErr("query custom alerts", err)
	}
	defer rows.Close()

	alerts := []*CustomAlert{}
	for rows.Next() {
		var c CustomAlert
		if err := rows.Scan(
			&c.ID,
			&c.UserID,
			&c.City,
			&c.AlertType,
			&c.ThresholdValue,
			&c.IsActive,
			&c.EmailEnabled,
			&c.SMSEnabled,
			&c.CreatedAt,
		); err != nil {
			return nil, persistErr("scan custom alert", err)
		}
		alerts = append(alerts, &c)
	}

	return alerts, persistErr("iterate custom alerts", rows.Err())
}

// UpdateCustomAlert overwrites the editable fields of a rule owned by c.UserID.
func (db *DB) UpdateCustomAlert(ctx context.Context, c *CustomAlert) error {
	query := db.rebind(`
		UPDATE custom_alerts
		SET city = ?, alert_type = ?, threshold_value = ?, email_enabled = ?, sms_enabled = ?
		WHERE id = ? AND user_id = ?
	`)

	res, err := db.ExecContext(ctx, query,
		c.City,
		c.AlertType,
		c.ThresholdValue,
		c.EmailEnabled,
		c.SMSEnabled,
		c.ID,
		c.UserID,
	)
	if err != nil {
		return persistErr("update custom alert", err)
	}
	return requireAffected(res, "update custom alert")
}

func (db *DB) DeleteCustomAlert(ctx context.Context, userID, id int64) error {
	query := db.rebind(`DELETE FROM custom_alerts WHERE id = ? AND user_id = ?`)

	res, err := db.ExecContext(ctx, query, id, userID)
	if err != nil {
		return persistErr("delete custom alert", err)
	}
	return requireAffected(res, "delete custom alert")
}

const userCityColumns = `id, user_id, city, latitude, longitude, is_favorite, created_at`

func (db *DB) AddUserCity(ctx context.Context, c *UserCity) error {
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}

	query := db.rebind(`
		INSERT INTO user_cities (user_id, city, latitude, longitude, is_favorite, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		RETURNING id
	`)

	err := db.QueryRowContext(ctx, query,
		c.UserID,
		c.City,
		c.Latitude,
		c.Longitude,
		c.IsFavorite,
		c.CreatedAt.UTC(),
	).Scan(&c.ID)
	return persistErr("add user city", err)
}

func (db *DB) ListUserCities(ctx context.Context, userID int64) ([]*UserCity, error) {
	query := db.rebind(`
		SELECT ` + userCityColumns + `
		FROM user_cities
		WHERE user_id = ?
		ORDER BY id
	`)

	rows, err := db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, persistErr("query user cities", err)
	}
	defer rows.Close()

	cities := []*UserCity{}
	for rows.Next() {
		var c UserCity
		if err := rows.Scan(
			&c.ID,
			&c.UserID,
			&c.City,
			&c.Latitude,
			&c.Longitude,
			&c.IsFavorite,
			&c.CreatedAt,
		); err != nil {
			return nil, persistErr("scan user city", err)
		}
		cities = append(cities, &c)
	}

	return cities, persistErr("iterate user cities", rows.Err())
}

func (db *DB) DeleteUserCity(ctx context.Context, userID, id int64) error {
	query := db.rebind(`DELETE FROM user_cities WHERE id = ? AND user_id = ?`)

	res, err := db.ExecContext(ctx, query, id, userID)
	if err != nil {
		return persistErr("delete user city", err)
	}
	return requireAffected(res, "delete user city")
}

func requireAffected(res sql.Result, op string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return persistErr(op, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
