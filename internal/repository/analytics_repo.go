package repository

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"hostbook/internal/db"
)

type AnalyticsRepository struct {
	DB *sql.DB
}

func NewAnalyticsRepository(database *sql.DB) *AnalyticsRepository {
	return &AnalyticsRepository{DB: database}
}

func (r *AnalyticsRepository) Insert(ev *db.AnalyticsEvent) error {
	metadata := []byte("{}")
	if ev.Metadata != nil {
		var err error
		metadata, err = json.Marshal(ev.Metadata)
		if err != nil {
			return fmt.Errorf("error encoding event metadata: %w", err)
		}
	}
	query := `
		INSERT INTO analytics_events (host_id, event, session_id, metadata)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`
	return r.DB.QueryRow(query, ev.HostID, ev.Event, ev.SessionID, metadata).Scan(&ev.ID, &ev.CreatedAt)
}

// EventCounts returns the number of events per kind for the host since the
// given time.
func (r *AnalyticsRepository) EventCounts(hostID int, since time.Time) (map[string]int, error) {
	query := `
		SELECT event, COUNT(*)
		FROM analytics_events
		WHERE host_id = $1 AND created_at >= $2
		GROUP BY event`
	rows, err := r.DB.Query(query, hostID, since)
	if err != nil {
		return nil, fmt.Errorf("error querying event counts: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var event string
		var count int
		if err := rows.Scan(&event, &count); err != nil {
			return nil, fmt.Errorf("error scanning event count: %w", err)
		}
		counts[event] = count
	}
	return counts, rows.Err()
}

// ProfileViewsByPeriod splits the host's profile views into morning
// (before 12:00) and evening (17:00 onward) buckets.
func (r *AnalyticsRepository) ProfileViewsByPeriod(hostID int) (morning, evening int, err error) {
	query := `
		SELECT
			COUNT(*) FILTER (WHERE EXTRACT(HOUR FROM created_at) < 12),
			COUNT(*) FILTER (WHERE EXTRACT(HOUR FROM created_at) >= 17)
		FROM analytics_events
		WHERE host_id = $1 AND event = 'profile_view'`
	if err := r.DB.QueryRow(query, hostID).Scan(&morning, &evening); err != nil {
		return 0, 0, fmt.Errorf("error querying profile views by period: %w", err)
	}
	return morning, evening, nil
}

// TopReferrer returns the most frequent referrer recorded on the host's
// profile views, or "" when none is known.
func (r *AnalyticsRepository) TopReferrer(hostID int) (string, error) {
	query := `
		SELECT metadata->>'referrer'
		FROM analytics_events
		WHERE host_id = $1 AND event = 'profile_view' AND metadata ? 'referrer'
		GROUP BY metadata->>'referrer'
		ORDER BY COUNT(*) DESC
		LIMIT 1`
	var referrer sql.NullString
	err := r.DB.QueryRow(query, hostID).Scan(&referrer)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil
		}
		return "", fmt.Errorf("error querying top referrer: %w", err)
	}
	return referrer.String, nil
}
