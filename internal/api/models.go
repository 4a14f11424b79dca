package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	apperrors "hostbook/internal/errors"
)

// Auth
type SignupRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
	Phone    string `json:"phone"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type AuthResponse struct {
	Token    string `json:"token"`
	UserID   int    `json:"user_id"`
	Name     string `json:"name"`
	Role     string `json:"role"`
	Username string `json:"username,omitempty"`
}

// Availability
type CreateRuleRequest struct {
	DayOfWeek     int     `json:"day_of_week"`
	SpecificDate  string  `json:"specific_date,omitempty"`
	StartTime     string  `json:"start_time"`
	EndTime       string  `json:"end_time"`
	SlotDuration  int     `json:"slot_duration"`
	BufferMinutes int     `json:"buffer_minutes"`
	IsFree        bool    `json:"is_free"`
	Price         float64 `json:"price"`
	PriceUSD      float64 `json:"price_usd"`
}

// Booking
type QuoteRequest struct {
	HostID    int    `json:"host_id"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
}

type CreateOrderRequest struct {
	HostID        int    `json:"host_id"`
	StartTime     string `json:"start_time"`
	EndTime       string `json:"end_time"`
	Currency      string `json:"currency"`
	CustomerName  string `json:"customer_name"`
	CustomerEmail string `json:"customer_email"`
	SuccessURL    string `json:"surl,omitempty"`
	FailureURL    string `json:"furl,omitempty"`
}

type VerifyPaymentRequest struct {
	RazorpayOrderID   string `json:"razorpay_order_id"`
	RazorpayPaymentID string `json:"razorpay_payment_id"`
	RazorpaySignature string `json:"razorpay_signature"`
}

type SendEmailRequest struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

func parseRFC3339(value, field string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, apperrors.ErrValidation(field + " must be RFC3339")
	}
	return t, nil
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeErr maps service errors to their HTTP status. Anything that is not an
// HTTPError is logged and reported as a plain 500.
func writeErr(w http.ResponseWriter, err error) {
	var httpErr *apperrors.HTTPError
	if errors.As(err, &httpErr) {
		writeJSON(w, httpErr.Code, map[string]string{"error": httpErr.Message})
		return
	}
	log.Printf("Internal error: %v", err)
	writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Internal server error"})
}
