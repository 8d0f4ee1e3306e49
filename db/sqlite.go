// Package db keeps an append-only audit log of predictions in SQLite.
package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"modeldemos/apps"
)

// PredictionLog stores finished predictions in SQLite.
type PredictionLog struct {
	db *sql.DB
}

// Open opens (creating if needed) the SQLite database at path.
func Open(path string) (*PredictionLog, error) {
	if path == "" {
		return nil, errors.New("database path is required")
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create database dir: %w", err)
		}
	}
	database, err := sql.Open("sqlite3", path+"?_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// one writer keeps :memory: databases on a single connection
	database.SetMaxOpenConns(1)

	query := `
    CREATE TABLE IF NOT EXISTS predictions (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        request_id TEXT NOT NULL,
        app VARCHAR(32) NOT NULL,
        inputs TEXT NOT NULL,
        label TEXT,
        value REAL,
        probability REAL,
        message TEXT,
        error TEXT,
        duration_ms REAL,
        created_at DATETIME NOT NULL,
        UNIQUE(request_id)
    );
    CREATE INDEX IF NOT EXISTS idx_predictions_app_created ON predictions(app, created_at);
    `
	if _, err := database.Exec(query); err != nil {
		database.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &PredictionLog{db: database}, nil
}

// Close closes the database.
func (l *PredictionLog) Close() error {
	return l.db.Close()
}

// Record stores one event.
func (l *PredictionLog) Record(ctx context.Context, e apps.Event) error {
	inputs, err := json.Marshal(e.Inputs)
	if err != nil {
		return err
	}
	var (
		label       sql.NullString
		value       sql.NullFloat64
		probability sql.NullFloat64
		message     sql.NullString
		errText     sql.NullString
	)
	if e.Result != nil {
		label = sql.NullString{String: e.Result.Label, Valid: e.Result.Label != ""}
		value = sql.NullFloat64{Float64: e.Result.Value, Valid: e.Result.Kind == apps.RegressionKind}
		probability = sql.NullFloat64{Float64: e.Result.Probability, Valid: e.Result.Kind == apps.ClassificationKind}
		message = sql.NullString{String: e.Result.Message, Valid: true}
	}
	if e.Error != "" {
		errText = sql.NullString{String: e.Error, Valid: true}
	}
	_, err = l.db.ExecContext(ctx, `
        INSERT INTO predictions (request_id, app, inputs, label, value, probability, message, error, duration_ms, created_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.App, string(inputs), label, value, probability, message, errText,
		float64(e.Duration)/float64(time.Millisecond), e.At.UTC())
	return err
}

// Entry is one stored prediction row.
type Entry struct {
	RequestID   string            `json:"request_id"`
	App         string            `json:"app"`
	Inputs      map[string]string `json:"inputs"`
	Label       string            `json:"label,omitempty"`
	Value       *float64          `json:"value,omitempty"`
	Probability *float64          `json:"probability,omitempty"`
	Message     string            `json:"message,omitempty"`
	Error       string            `json:"error,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
}

// Query returns the latest limit predictions of app, newest first.
func (l *PredictionLog) Query(ctx context.Context, app string, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := l.db.QueryContext(ctx, `
        SELECT request_id, app, inputs, label, value, probability, message, error, created_at
        FROM predictions
        WHERE app = ?
        ORDER BY created_at DESC, id DESC
        LIMIT ?`, app, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e           Entry
			inputs      string
			label       sql.NullString
			value       sql.NullFloat64
			probability sql.NullFloat64
			message     sql.NullString
			errText     sql.NullString
		)
		if err := rows.Scan(&e.RequestID, &e.App, &inputs, &label, &value, &probability, &message, &errText, &e.CreatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(inputs), &e.Inputs); err != nil {
			return nil, fmt.Errorf("decode inputs of %s: %w", e.RequestID, err)
		}
		e.Label = label.String
		e.Message = message.String
		e.Error = errText.String
		if value.Valid {
			e.Value = &value.Float64
		}
		if probability.Valid {
			e.Probability = &probability.Float64
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Count returns the number of stored predictions of app.
func (l *PredictionLog) Count(ctx context.Context, app string) (int, error) {
	var n int
	err := l.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM predictions WHERE app = ?`, app).Scan(&n)
	return n, err
}
