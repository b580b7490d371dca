package events

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// Event is one committed change. Seq is assigned by the log and grows
// monotonically.
type Event struct {
	Seq       int64     `json:"offset"`
	SiteID    string    `json:"site_id"`
	Type      string    `json:"type"`
	Key       string    `json:"key"`
	Owner     string    `json:"-"`
	TestID    string    `json:"test_id"`
	CreatedAt time.Time `json:"created_at"`
}

type payload struct {
	TestID string `json:"test_id"`
}

// DefaultListLimit caps List when the caller passes no limit.
const DefaultListLimit = 100

type Log struct{ db *sql.DB }

func NewLog(db *sql.DB) *Log { return &Log{db: db} }

// Append stores e and sets its Seq.
func (l *Log) Append(ctx context.Context, e *Event) error {
	data, err := json.Marshal(payload{TestID: e.TestID})
	if err != nil {
		return err
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	err = l.db.QueryRowContext(ctx,
		`INSERT INTO event_log (site_id, typ, key, owner, data, created_at)
		 VALUES ($1,$2,$3,$4,$5,$6) RETURNING seq`,
		e.SiteID, e.Type, e.Key, e.Owner, string(data), e.CreatedAt.UnixMicro()).Scan(&e.Seq)
	if err != nil {
		return fmt.Errorf("append event: %w", err)
	}
	return nil
}

// List returns the owner's events with Seq > after, oldest first.
func (l *Log) List(ctx context.Context, owner string, after int64, limit int) ([]Event, error) {
	if limit <= 0 || limit > 1000 {
		limit = DefaultListLimit
	}
	rows, err := l.db.QueryContext(ctx,
		`SELECT seq, site_id, typ, key, owner, data, created_at FROM event_log
		 WHERE owner=$1 AND seq>$2 ORDER BY seq ASC LIMIT $3`, owner, after, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Event{}
	for rows.Next() {
		var (
			e       Event
			data    string
			created int64
		)
		if err := rows.Scan(&e.Seq, &e.SiteID, &e.Type, &e.Key, &e.Owner, &data, &created); err != nil {
			return nil, err
		}
		var p payload
		if err := json.Unmarshal([]byte(data), &p); err == nil {
			e.TestID = p.TestID
		}
		e.CreatedAt = time.UnixMicro(created).UTC()
		out = append(out, e)
	}
	return out, rows.Err()
}
