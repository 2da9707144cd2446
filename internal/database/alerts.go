package database

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"
)

const alertColumns = `id, alert_type, threshold_value, actual_value, city, message, is_resolved, created_at, resolved_at`

// InsertAlert stores a new unresolved alert and sets its ID.
func (db *DB) InsertAlert(ctx context.Context, a *Alert) error {
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	a.IsResolved = false
	a.ResolvedAt = nil

	query := db.rebind(`
		INSERT INTO alerts (alert_type, threshold_value, actual_value, city, message, is_resolved, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		RETURNING id
	`)

	err := db.QueryRowContext(ctx, query,
		a.AlertType,
		a.ThresholdValue,
		a.ActualValue,
		a.City,
		a.Message,
		false,
		a.CreatedAt.UTC(),
	).Scan(&a.ID)
	return persistErr("insert alert", err)
}

// GetAlert retrieves an alert by id
func (db *DB) GetAlert(ctx context.Context, id int64) (*Alert, error) {
	query := db.rebind(`SELECT ` + alertColumns + ` FROM alerts WHERE id = ?`)

	a, err := scanAlert(db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, persistErr("get alert", err)
	}
	return a, nil
}

// ListAlerts returns alerts matching the filter, newest first.
func (db *DB) ListAlerts(ctx context.Context, f AlertFilter) ([]*Alert, error) {
	var (
		where = []string{"created_at >= ?"}
		args  = []interface{}{f.Since.UTC()}
	)
	if f.City != "" {
		where = append(where, "city = ?")
		args = append(args, f.City)
	}
	if f.AlertType != "" {
		where = append(where, "alert_type = ?")
		args = append(args, f.AlertType)
	}
	if f.Resolved != nil {
		where = append(where, "is_resolved = ?")
		args = append(args, *f.Resolved)
	}

	limit := f.Limit
	if limit <= 0 {
		limit = 50
	}
	args = append(args, limit)

	query := db.rebind(`
		SELECT ` + alertColumns + `
		FROM alerts
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`)

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, persistErr("query alerts", err)
	}
	defer rows.Close()

	alerts := []*Alert{}
	for rows.Next() {
		a, err := scanAlert(rows)
		if err != nil {
			return nil, persistErr("scan alert", err)
		}
		alerts = append(alerts, a)
	}

	return alerts, persistErr("iterate alerts", rows.Err())
}

// ResolveAlert marks an alert resolved. Resolving an already resolved alert
// leaves resolved_at unchanged and returns the stored row.
func (db *DB) ResolveAlert(ctx context.Context, id int64) (*Alert, error) {
	query := db.rebind(`
		UPDATE alerts
		SET is_resolved = ?, resolved_at = ?
		WHERE id = ? AND is_resolved = ?
	`)

	if _, err := db.ExecContext(ctx, query, true, time.Now().UTC(), id, false); err != nil {
		return nil, persistErr("resolve alert", err)
	}

	return db.GetAlert(ctx, id)
}

// AlertStats counts alerts created since the given time.
func (db *DB) AlertStats(ctx context.Context, since time.Time) (*AlertStats, error) {
	query := db.rebind(`
		SELECT alert_type,
		       COUNT(*),
		       COALESCE(SUM(CASE WHEN is_resolved THEN 1 ELSE 0 END), 0)
		FROM alerts
		WHERE created_at >= ?
		GROUP BY alert_type
	`)

	rows, err := db.QueryContext(ctx, query, since.UTC())
	if err != nil {
		return nil, persistErr("query alert stats", err)
	}
	defer rows.Close()

	stats := &AlertStats{
		ByType: map[string]int{
			AlertTypeTemperature: 0,
			AlertTypeHumidity:    0,
			AlertTypeAQI:         0,
		},
	}
	for rows.Next() {
		var (
			alertType       string
			total, resolved int
		)
		if err := rows.Scan(&alertType, &total, &resolved); err != nil {
			return nil, persistErr("scan alert stats", err)
		}
		stats.ByType[alertType] = total
		stats.Total += total
		stats.Resolved += resolved
	}
	if err := rows.Err(); err != nil {
		return nil, persistErr("iterate alert stats", err)
	}

	stats.Unresolved = stats.Total - stats.Resolved
	return stats, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanAlert(row rowScanner) (*Alert, error) {
	var a Alert
	if err := row.Scan(
		&a.ID,
		&a.AlertType,
		&a.ThresholdValue,
		&a.ActualValue,
		&a.City,
		&a.Message,
		&a.IsResolved,
		&a.CreatedAt,
		&a.ResolvedAt,
	); err != nil {
		return nil, err
	}
	return &a, nil
}
