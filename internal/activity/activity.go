// Package activity records who did what to which record. Services write
// entries on create/update/finalize; the list endpoint feeds the activity
// screen in the client.
package activity

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Entry represents a row in the activities table.
type Entry struct {
	ID       int64          `json:"id"`
	Actor    string         `json:"actor"`
	Action   string         `json:"action"`
	Entity   string         `json:"entity"`
	EntityID string         `json:"entity_id"`
	Meta     map[string]any `json:"meta,omitempty"`
	At       time.Time      `json:"at"`
}

// Logger writes entries into the activities table.
type Logger struct {
	pool *pgxpool.Pool
}

// NewLogger returns a new Logger.
func NewLogger(pool *pgxpool.Pool) *Logger {
	return &Logger{pool: pool}
}

// Record persists the entry. Failures are for the caller to log; activity
// writing never blocks the user flow.
func (l *Logger) Record(ctx context.Context, e Entry) error {
	if l == nil {
		return errors.New("activity logger not initialised")
	}
	if e.Action == "" || e.Entity == "" || e.EntityID == "" {
		return errors.New("activity entry requires action/entity/entity_id")
	}
	metaJSON, err := json.Marshal(e.Meta)
	if err != nil {
		return err
	}
	at := e.At
	if at.IsZero() {
		at = time.Now().UTC()
	}
	_, err = l.pool.Exec(ctx,
		`INSERT INTO activities (actor, action, entity, entity_id, meta, occurred_at) VALUES ($1, $2, $3, $4, $5, $6)`,
		e.Actor, e.Action, e.Entity, e.EntityID, metaJSON, at)
	return err
}

// List returns entries newest first.
func (l *Logger) List(ctx context.Context, entity string, limit, offset int) ([]Entry, int, error) {
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	where := ""
	args := []any{}
	if entity != "" {
		where = "WHERE entity = $1"
		args = append(args, entity)
	}

	var total int
	if err := l.pool.QueryRow(ctx, "SELECT COUNT(*) FROM activities "+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT id, actor, action, entity, entity_id, meta, occurred_at FROM activities ` + where
	if entity != "" {
		query += ` ORDER BY occurred_at DESC, id DESC LIMIT $2 OFFSET $3`
	} else {
		query += ` ORDER BY occurred_at DESC, id DESC LIMIT $1 OFFSET $2`
	}
	args = append(args, limit, offset)

	rows, err := l.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var metaJSON []byte
		if err := rows.Scan(&e.ID, &e.Actor, &e.Action, &e.Entity, &e.EntityID, &metaJSON, &e.At); err != nil {
			return nil, 0, err
		}
		if len(metaJSON) > 0 {
			_ = json.Unmarshal(metaJSON, &e.Meta)
		}
		entries = append(entries, e)
	}
	return entries, total, rows.Err()
}
