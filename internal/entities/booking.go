package entities

import "time"

// BookingRequest is a validated reservation attempt against a host's slot.
type BookingRequest struct {
	HostID         int
	StartTime      time.Time
	EndTime        time.Time
	Currency       string
	CustomerName   string
	CustomerEmail  string
	CustomerUserID *int
	SessionID      string
}

// CheckoutQuote is the server-resolved price shown on the checkout step.
// Amounts come from the governing rule, never from the client.
type CheckoutQuote struct {
	StartTime       time.Time `json:"start_time"`
	EndTime         time.Time `json:"end_time"`
	DurationMinutes int       `json:"duration_minutes"`
	Amount          float64   `json:"amount"`
	AmountUSD       float64   `json:"amount_usd"`
	IsFree          bool      `json:"is_free"`
}

type RazorpayOrderResponse struct {
	Success   bool    `json:"success"`
	IsFree    bool    `json:"is_free"`
	BookingID int     `json:"booking_id"`
	OrderID   string  `json:"order_id,omitempty"`
	Amount    float64 `json:"amount"`
	Currency  string  `json:"currency"`
	KeyID     string  `json:"key_id,omitempty"`
}

type PayUOrderResponse struct {
	Success   bool              `json:"success"`
	IsFree    bool              `json:"is_free"`
	BookingID int               `json:"booking_id"`
	Action    string            `json:"action,omitempty"`
	Params    map[string]string `json:"params,omitempty"`
}

type StripeCheckoutResponse struct {
	Success   bool   `json:"success"`
	IsFree    bool   `json:"is_free"`
	BookingID int    `json:"booking_id"`
	URL       string `json:"url,omitempty"`
	SessionID string `json:"session_id,omitempty"`
}

type BookingResponse struct {
	ID            int       `json:"id"`
	HostID        int       `json:"host_id"`
	CustomerName  string    `json:"customer_name"`
	CustomerEmail string    `json:"customer_email"`
	StartTime     time.Time `json:"start_time"`
	EndTime       time.Time `json:"end_time"`
	Status        string    `json:"status"`
	Amount        float64   `json:"amount"`
	Currency      string    `json:"currency"`
	Gateway       string    `json:"gateway"`
	CreatedAt     time.Time `json:"created_at"`
}
