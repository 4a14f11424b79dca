package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"hostbook/internal/db"
)

type AvailabilityRepository struct {
	DB *sql.DB
}

func NewAvailabilityRepository(database *sql.DB) *AvailabilityRepository {
	return &AvailabilityRepository{DB: database}
}

func (r *AvailabilityRepository) Create(rule *db.AvailabilityRule) error {
	query := `
		INSERT INTO availability_rules
		(host_id, day_of_week, specific_date, start_time, end_time, slot_duration, buffer_minutes, is_free, price, price_usd)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, created_at`
	return r.DB.QueryRow(query,
		rule.HostID,
		rule.DayOfWeek,
		nullDate(rule.SpecificDate),
		rule.StartTime,
		rule.EndTime,
		rule.SlotDuration,
		rule.BufferMinutes,
		rule.IsFree,
		rule.Price,
		rule.PriceUSD,
	).Scan(&rule.ID, &rule.CreatedAt)
}

// FindOverlapping returns an existing rule of the same host whose
// applicability intersects the candidate's: same weekday, same specific date
// for date-pinned rules or any recurring rule for that weekday, and an
// overlapping [start_time, end_time) window. HH:mm strings compare lexically.
func (r *AvailabilityRepository) FindOverlapping(rule db.AvailabilityRule) (*db.AvailabilityRule, error) {
	query := `
		SELECT id, host_id, day_of_week, specific_date, start_time, end_time, slot_duration, buffer_minutes, is_free, price, price_usd, created_at
		FROM availability_rules
		WHERE host_id = $1
		  AND day_of_week = $2
		  AND (specific_date = $3 OR specific_date IS NULL)
		  AND start_time < $5
		  AND end_time > $4
		LIMIT 1`
	row := r.DB.QueryRow(query, rule.HostID, rule.DayOfWeek, nullDate(rule.SpecificDate), rule.StartTime, rule.EndTime)
	existing, err := scanRule(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("error querying overlapping rule: %w", err)
	}
	return existing, nil
}

func (r *AvailabilityRepository) ListByHost(hostID int) ([]db.AvailabilityRule, error) {
	query := `
		SELECT id, host_id, day_of_week, specific_date, start_time, end_time, slot_duration, buffer_minutes, is_free, price, price_usd, created_at
		FROM availability_rules
		WHERE host_id = $1
		ORDER BY specific_date DESC NULLS LAST, day_of_week, start_time`
	rows, err := r.DB.Query(query, hostID)
	if err != nil {
		return nil, fmt.Errorf("error querying availability rules: %w", err)
	}
	defer rows.Close()

	var rules []db.AvailabilityRule
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning availability rule: %w", err)
		}
		rules = append(rules, *rule)
	}
	return rules, rows.Err()
}

func (r *AvailabilityRepository) Delete(id, hostID int) error {
	result, err := r.DB.Exec(`DELETE FROM availability_rules WHERE id = $1 AND host_id = $2`, id, hostID)
	if err != nil {
		return fmt.Errorf("error deleting availability rule %d: %w", id, err)
	}
	affected, err := result.RowsAffected()
	if err == nil && affected == 0 {
		return fmt.Errorf("availability rule %d not found for host %d", id, hostID)
	}
	return nil
}

// FindSpecificAt returns the date-pinned rule of the host whose window
// contains the given wall-clock time on the given date, if any.
func (r *AvailabilityRepository) FindSpecificAt(hostID int, date time.Time, clock string) (*db.AvailabilityRule, error) {
	query := `
		SELECT id, host_id, day_of_week, specific_date, start_time, end_time, slot_duration, buffer_minutes, is_free, price, price_usd, created_at
		FROM availability_rules
		WHERE host_id = $1 AND specific_date = $2 AND start_time <= $3 AND end_time > $3
		LIMIT 1`
	rule, err := scanRule(r.DB.QueryRow(query, hostID, date.Format("2006-01-02"), clock))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("error querying specific-date rule: %w", err)
	}
	return rule, nil
}

// FindRecurringAt returns the recurring rule of the host for the given
// weekday whose window contains the given wall-clock time, if any.
func (r *AvailabilityRepository) FindRecurringAt(hostID, dayOfWeek int, clock string) (*db.AvailabilityRule, error) {
	query := `
		SELECT id, host_id, day_of_week, specific_date, start_time, end_time, slot_duration, buffer_minutes, is_free, price, price_usd, created_at
		FROM availability_rules
		WHERE host_id = $1 AND day_of_week = $2 AND specific_date IS NULL AND start_time <= $3 AND end_time > $3
		LIMIT 1`
	rule, err := scanRule(r.DB.QueryRow(query, hostID, dayOfWeek, clock))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("error querying recurring rule: %w", err)
	}
	return rule, nil
}

func (r *AvailabilityRepository) CountByHost(hostID int) (int, error) {
	var count int
	err := r.DB.QueryRow(`SELECT COUNT(*) FROM availability_rules WHERE host_id = $1`, hostID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("error counting availability rules: %w", err)
	}
	return count, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRule(row rowScanner) (*db.AvailabilityRule, error) {
	var rule db.AvailabilityRule
	var specificDate sql.NullTime
	err := row.Scan(
		&rule.ID, &rule.HostID, &rule.DayOfWeek, &specificDate,
		&rule.StartTime, &rule.EndTime, &rule.SlotDuration, &rule.BufferMinutes,
		&rule.IsFree, &rule.Price, &rule.PriceUSD, &rule.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if specificDate.Valid {
		d := specificDate.Time
		rule.SpecificDate = &d
	}
	return &rule, nil
}

func nullDate(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
