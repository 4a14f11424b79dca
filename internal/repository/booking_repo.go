package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"hostbook/internal/db"

	"github.com/lib/pq"
)

// ErrSlotTaken is returned when a booking cannot be persisted because an
// active reservation already covers the requested window, or because the
// (host_id, start_time) uniqueness constraint rejected the insert after a
// lost race.
var ErrSlotTaken = errors.New("slot already booked")

type BookingRepository struct {
	DB *sql.DB
}

func NewBookingRepository(database *sql.DB) *BookingRepository {
	return &BookingRepository{DB: database}
}

const bookingColumns = `id, host_id, customer_name, customer_email, customer_user_id, start_time, end_time,
	status, amount, currency, gateway, razorpay_order_id, razorpay_payment_id, payu_txn_id, stripe_session_id,
	created_at, updated_at`

// Create persists a booking inside a transaction that serializes writes per
// host with an advisory lock and re-checks for an active overlapping
// reservation before inserting. This closes the window between the lock
// manager's pre-check and the insert for overlapping-but-different start
// times; the (host_id, start_time) uniqueness constraint remains the last
// backstop for identical starts.
func (r *BookingRepository) Create(b *db.Booking, expiryThreshold time.Time) error {
	tx, err := r.DB.Begin()
	if err != nil {
		return fmt.Errorf("error beginning booking transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`SELECT pg_advisory_xact_lock($1)`, int64(b.HostID)); err != nil {
		return fmt.Errorf("error taking host advisory lock: %w", err)
	}

	var busy bool
	err = tx.QueryRow(activeOverlapQuery, b.HostID, b.StartTime, b.EndTime, expiryThreshold).Scan(&busy)
	if err != nil {
		return fmt.Errorf("error re-checking overlap before insert: %w", err)
	}
	if busy {
		return ErrSlotTaken
	}

	query := `
		INSERT INTO bookings
		(host_id, customer_name, customer_email, customer_user_id, start_time, end_time, status, amount, currency, gateway, razorpay_order_id, payu_txn_id, stripe_session_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING id, created_at, updated_at`
	err = tx.QueryRow(query,
		b.HostID,
		b.CustomerName,
		b.CustomerEmail,
		nullInt(b.CustomerUserID),
		b.StartTime,
		b.EndTime,
		b.Status,
		b.Amount,
		b.Currency,
		b.Gateway,
		b.RazorpayOrderID,
		b.PayuTxnID,
		b.StripeSessionID,
	).Scan(&b.ID, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return ErrSlotTaken
		}
		return fmt.Errorf("error inserting booking: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("error committing booking: %w", err)
	}
	return nil
}

const activeOverlapQuery = `
	SELECT EXISTS (
		SELECT 1 FROM bookings
		WHERE host_id = $1
		  AND start_time < $3
		  AND end_time > $2
		  AND (status = 'confirmed' OR (status = 'locked' AND created_at > $4))
	)`

// HasActiveOverlap reports whether any confirmed booking, or any locked
// booking younger than the expiry threshold, overlaps [start, end) for the
// host.
func (r *BookingRepository) HasActiveOverlap(hostID int, start, end, expiryThreshold time.Time) (bool, error) {
	var busy bool
	err := r.DB.QueryRow(activeOverlapQuery, hostID, start, end, expiryThreshold).Scan(&busy)
	if err != nil {
		return false, fmt.Errorf("error querying active overlap: %w", err)
	}
	return busy, nil
}

// ListActiveBetween returns the active reservations (confirmed, or locked
// younger than the expiry threshold) intersecting [from, to) for the host.
func (r *BookingRepository) ListActiveBetween(hostID int, from, to, expiryThreshold time.Time) ([]db.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings
		WHERE host_id = $1
		  AND start_time < $3
		  AND end_time > $2
		  AND (status = 'confirmed' OR (status = 'locked' AND created_at > $4))
		ORDER BY start_time`
	return r.list(query, hostID, from, to, expiryThreshold)
}

// DeleteExpiredLock removes a dead lock on the exact (host, start) slot so
// the uniqueness constraint cannot reject a legitimate retry.
func (r *BookingRepository) DeleteExpiredLock(hostID int, start, before time.Time) error {
	_, err := r.DB.Exec(
		`DELETE FROM bookings WHERE host_id = $1 AND start_time = $2 AND status = 'locked' AND created_at < $3`,
		hostID, start, before,
	)
	if err != nil {
		return fmt.Errorf("error deleting expired lock: %w", err)
	}
	return nil
}

// DeleteExpiredLocks removes every locked booking older than the threshold,
// system-wide.
func (r *BookingRepository) DeleteExpiredLocks(before time.Time) (int64, error) {
	result, err := r.DB.Exec(`DELETE FROM bookings WHERE status = 'locked' AND created_at < $1`, before)
	if err != nil {
		return 0, fmt.Errorf("error deleting expired locks: %w", err)
	}
	return result.RowsAffected()
}

func (r *BookingRepository) GetByID(id int) (*db.Booking, error) {
	return r.getBy("id = $1", id)
}

func (r *BookingRepository) GetByRazorpayOrderID(orderID string) (*db.Booking, error) {
	return r.getBy("razorpay_order_id = $1", orderID)
}

func (r *BookingRepository) GetByPayuTxnID(txnID string) (*db.Booking, error) {
	return r.getBy("payu_txn_id = $1", txnID)
}

func (r *BookingRepository) GetByStripeSessionID(sessionID string) (*db.Booking, error) {
	return r.getBy("stripe_session_id = $1", sessionID)
}

func (r *BookingRepository) getBy(where string, arg interface{}) (*db.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE ` + where
	b, err := scanBooking(r.DB.QueryRow(query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("booking not found: %w", err)
		}
		return nil, fmt.Errorf("error querying booking: %w", err)
	}
	return b, nil
}

// Confirm transitions a booking to confirmed, attaching the provider's
// payment id when one is supplied.
func (r *BookingRepository) Confirm(id int, paymentID string) error {
	query := `
		UPDATE bookings
		SET status = 'confirmed',
		    razorpay_payment_id = CASE WHEN $2 <> '' THEN $2 ELSE razorpay_payment_id END,
		    updated_at = NOW()
		WHERE id = $1`
	_, err := r.DB.Exec(query, id, paymentID)
	if err != nil {
		return fmt.Errorf("error confirming booking %d: %w", id, err)
	}
	return nil
}

func (r *BookingRepository) SetRazorpayOrder(id int, orderID string) error {
	_, err := r.DB.Exec(`UPDATE bookings SET razorpay_order_id = $2, updated_at = NOW() WHERE id = $1`, id, orderID)
	if err != nil {
		return fmt.Errorf("error attaching razorpay order to booking %d: %w", id, err)
	}
	return nil
}

func (r *BookingRepository) SetStripeSession(id int, sessionID string) error {
	_, err := r.DB.Exec(`UPDATE bookings SET stripe_session_id = $2, updated_at = NOW() WHERE id = $1`, id, sessionID)
	if err != nil {
		return fmt.Errorf("error attaching stripe session to booking %d: %w", id, err)
	}
	return nil
}

func (r *BookingRepository) ListRecentByHost(hostID, limit int) ([]db.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE host_id = $1 ORDER BY start_time DESC LIMIT $2`
	return r.list(query, hostID, limit)
}

func (r *BookingRepository) ListByStatus(status string, limit int) ([]db.Booking, error) {
	if status == "" {
		return r.list(`SELECT `+bookingColumns+` FROM bookings ORDER BY created_at DESC LIMIT $1`, limit)
	}
	return r.list(`SELECT `+bookingColumns+` FROM bookings WHERE status = $1 ORDER BY created_at DESC LIMIT $2`, status, limit)
}

func (r *BookingRepository) list(query string, args ...interface{}) ([]db.Booking, error) {
	rows, err := r.DB.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("error querying bookings: %w", err)
	}
	defer rows.Close()

	var bookings []db.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning booking: %w", err)
		}
		bookings = append(bookings, *b)
	}
	return bookings, rows.Err()
}

func (r *BookingRepository) CountConfirmedByHost(hostID int) (int, error) {
	var count int
	err := r.DB.QueryRow(`SELECT COUNT(*) FROM bookings WHERE host_id = $1 AND status = 'confirmed'`, hostID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("error counting confirmed bookings: %w", err)
	}
	return count, nil
}

func (r *BookingRepository) ConfirmedEarnings(hostID int) (float64, error) {
	var total float64
	err := r.DB.QueryRow(
		`SELECT COALESCE(SUM(amount), 0) FROM bookings WHERE host_id = $1 AND status = 'confirmed'`,
		hostID,
	).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("error summing earnings: %w", err)
	}
	return total, nil
}

func (r *BookingRepository) CountAll() (int, error) {
	var count int
	err := r.DB.QueryRow(`SELECT COUNT(*) FROM bookings`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("error counting bookings: %w", err)
	}
	return count, nil
}

func (r *BookingRepository) ConfirmedRevenue() (float64, error) {
	var total float64
	err := r.DB.QueryRow(`SELECT COALESCE(SUM(amount), 0) FROM bookings WHERE status = 'confirmed'`).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("error summing revenue: %w", err)
	}
	return total, nil
}

// ConfirmedIDsPastEnd returns IDs of confirmed bookings whose end time has
// already passed, so the periodic job can transition them to completed.
func (r *BookingRepository) ConfirmedIDsPastEnd() ([]int, error) {
	rows, err := r.DB.Query(`SELECT id FROM bookings WHERE status = 'confirmed' AND end_time < NOW()`)
	if err != nil {
		return nil, fmt.Errorf("error querying confirmed bookings past end time: %w", err)
	}
	defer rows.Close()

	var ids []int
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("error scanning booking ID: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *BookingRepository) UpdateStatuses(ids []int, newStatus string) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := r.DB.Exec(`UPDATE bookings SET status = $1, updated_at = NOW() WHERE id = ANY($2)`, newStatus, pq.Array(ids))
	if err != nil {
		return fmt.Errorf("error updating booking statuses: %w", err)
	}
	return nil
}

func scanBooking(row rowScanner) (*db.Booking, error) {
	var b db.Booking
	var userID sql.NullInt64
	var razorpayOrderID, razorpayPaymentID, payuTxnID, stripeSessionID sql.NullString
	err := row.Scan(
		&b.ID, &b.HostID, &b.CustomerName, &b.CustomerEmail, &userID, &b.StartTime, &b.EndTime,
		&b.Status, &b.Amount, &b.Currency, &b.Gateway, &razorpayOrderID, &razorpayPaymentID, &payuTxnID, &stripeSessionID,
		&b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if userID.Valid {
		id := int(userID.Int64)
		b.CustomerUserID = &id
	}
	b.RazorpayOrderID = razorpayOrderID.String
	b.RazorpayPaymentID = razorpayPaymentID.String
	b.PayuTxnID = payuTxnID.String
	b.StripeSessionID = stripeSessionID.String
	return &b, nil
}

func nullInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}
