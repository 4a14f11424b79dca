package db

import "time"

// Booking statuses. A locked booking acts as a soft lock for the duration
// of the payment flow and is reaped once it ages past the lock TTL.
const (
	StatusLocked    = "locked"
	StatusConfirmed = "confirmed"
	StatusCancelled = "cancelled"
	StatusCompleted = "completed"
)

// Payment gateways.
const (
	GatewayRazorpay = "razorpay"
	GatewayPayU     = "payu"
	GatewayStripe   = "stripe"
)

type User struct {
	ID           int       `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         string    `json:"role"`               // host, customer or admin
	Username     string    `json:"username,omitempty"` // public profile slug, hosts only
	Phone        string    `json:"phone,omitempty"`    // E.164, used for booking SMS alerts when set
	CreatedAt    time.Time `json:"created_at"`
}

// AvailabilityRule describes a bookable window for a host, either recurring
// weekly or pinned to one calendar date. DayOfWeek is always set (0=Sunday),
// derived from SpecificDate for date-pinned rules. Rules are immutable once
// created; hosts delete and recreate instead of editing.
type AvailabilityRule struct {
	ID            int        `json:"id"`
	HostID        int        `json:"host_id"`
	DayOfWeek     int        `json:"day_of_week"`
	SpecificDate  *time.Time `json:"specific_date,omitempty"` // nil for recurring rules
	StartTime     string     `json:"start_time"`              // HH:mm
	EndTime       string     `json:"end_time"`                // HH:mm
	SlotDuration  int        `json:"slot_duration"`           // minutes
	BufferMinutes int        `json:"buffer_minutes"`          // gap between generated slots
	IsFree        bool       `json:"is_free"`
	Price         float64    `json:"price"`
	PriceUSD      float64    `json:"price_usd"`
	CreatedAt     time.Time  `json:"created_at"`
}

type Booking struct {
	ID                int       `json:"id"`
	HostID            int       `json:"host_id"`
	CustomerName      string    `json:"customer_name"`
	CustomerEmail     string    `json:"customer_email"`
	CustomerUserID    *int      `json:"customer_user_id,omitempty"` // nil for guest bookings
	StartTime         time.Time `json:"start_time"`
	EndTime           time.Time `json:"end_time"`
	Status            string    `json:"status"`
	Amount            float64   `json:"amount"`
	Currency          string    `json:"currency"`
	Gateway           string    `json:"gateway"`
	RazorpayOrderID   string    `json:"razorpay_order_id,omitempty"`
	RazorpayPaymentID string    `json:"razorpay_payment_id,omitempty"`
	PayuTxnID         string    `json:"payu_txn_id,omitempty"`
	StripeSessionID   string    `json:"stripe_session_id,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

type AnalyticsEvent struct {
	ID        int
	HostID    int
	Event     string // profile_view, checkout_view, payment_start, payment_success
	SessionID string
	Metadata  map[string]interface{}
	CreatedAt time.Time
}
