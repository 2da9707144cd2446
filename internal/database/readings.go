package database

import (
	"context"
	"database/sql"
	"time"
)

const readingColumns = `id, city, temperature, humidity, pressure, aqi, condition_label, timestamp`

// InsertReading stores a reading and sets its ID. A zero timestamp is replaced with now.
func (db *DB) InsertReading(ctx context.Context, r *Reading) error {
	if r.Timestamp.IsZero() {
		r.Timestamp = time.Now().UTC()
	}

	query := db.rebind(`
		INSERT INTO readings (city, temperature, humidity, pressure, aqi, condition_label, timestamp)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		RETURNING id
	`)

	err := db.QueryRowContext(ctx, query,
		r.City,
		r.Temperature,
		r.Humidity,
		r.Pressure,
		r.AQI,
		r.Condition,
		r.Timestamp.UTC(),
	).Scan(&r.ID)
	return persistErr("insert reading", err)
}

// ReadingHistory returns readings for a city since the given time, newest first.
func (db *DB) ReadingHistory(ctx context.Context, city string, since time.Time, limit int) ([]*Reading, error) {
	query := db.rebind(`
		SELECT ` + readingColumns + `
		FROM readings
		WHERE city = ? AND timestamp >= ?
		ORDER BY timestamp DESC, id DESC
		LIMIT ?
	`)

	rows, err := db.QueryContext(ctx, query, city, since.UTC(), limit)
	if err != nil {
		return nil, persistErr("query reading history", err)
	}
	readings, err := scanReadings(rows)
	return readings, persistErr("scan reading history", err)
}

// LatestReadings returns the most recent readings across all cities.
func (db *DB) LatestReadings(ctx context.Context, limit int) ([]*Reading, error) {
	query := db.rebind(`
		SELECT ` + readingColumns + `
		FROM readings
		ORDER BY timestamp DESC, id DESC
		LIMIT ?
	`)

	rows, err := db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, persistErr("query latest readings", err)
	}
	readings, err := scanReadings(rows)
	return readings, persistErr("scan latest readings", err)
}

func scanReadings(rows *sql.Rows) ([]*Reading, error) {
	defer rows.Close()

	readings := []*Reading{}
	for rows.Next() {
		var r Reading
		if err := rows.Scan(
			&r.ID,
			&r.City,
			&r.Temperature,
			&r.Humidity,
			&r.Pressure,
			&r.AQI,
			&r.Condition,
			&r.Timestamp,
		); err != nil {
			return nil, err
		}
		readings = append(readings, &r)
	}

	return readings, rows.Err()
}
