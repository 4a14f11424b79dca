package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"hostbook/internal/entities"
	apperrors "hostbook/internal/errors"
	"hostbook/internal/service"

	"github.com/gorilla/mux"
)

type BookingHandler struct {
	Service *service.BookingService

	// FrontendURL is where PayU responses redirect the customer after the
	// server-side hash check.
	FrontendURL string
}

func NewBookingHandler(svc *service.BookingService, frontendURL string) *BookingHandler {
	return &BookingHandler{Service: svc, FrontendURL: frontendURL}
}

func (h *BookingHandler) Quote(w http.ResponseWriter, r *http.Request) {
	var req QuoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	start, err := parseRFC3339(req.StartTime, "start_time")
	if err != nil {
		writeErr(w, err)
		return
	}
	end, err := parseRFC3339(req.EndTime, "end_time")
	if err != nil {
		writeErr(w, err)
		return
	}
	quote, err := h.Service.Quote(req.HostID, start, end, r.Header.Get("X-Session-ID"))
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, quote)
}

func (h *BookingHandler) bookingRequest(r *http.Request) (entities.BookingRequest, *CreateOrderRequest, error) {
	var req CreateOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return entities.BookingRequest{}, nil, apperrors.ErrValidation("invalid request body")
	}
	start, err := parseRFC3339(req.StartTime, "start_time")
	if err != nil {
		return entities.BookingRequest{}, nil, err
	}
	end, err := parseRFC3339(req.EndTime, "end_time")
	if err != nil {
		return entities.BookingRequest{}, nil, err
	}
	return entities.BookingRequest{
		HostID:        req.HostID,
		StartTime:     start,
		EndTime:       end,
		Currency:      req.Currency,
		CustomerName:  req.CustomerName,
		CustomerEmail: req.CustomerEmail,
		SessionID:     r.Header.Get("X-Session-ID"),
	}, &req, nil
}

func (h *BookingHandler) CreateRazorpayOrder(w http.ResponseWriter, r *http.Request) {
	req, _, err := h.bookingRequest(r)
	if err != nil {
		writeErr(w, err)
		return
	}
	resp, err := h.Service.CreateRazorpayOrder(req)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *BookingHandler) VerifyRazorpayPayment(w http.ResponseWriter, r *http.Request) {
	var req VerifyPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	booking, err := h.Service.VerifyRazorpayPayment(req.RazorpayOrderID, req.RazorpayPaymentID, req.RazorpaySignature)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":    true,
		"booking_id": booking.ID,
		"status":     booking.Status,
	})
}

func (h *BookingHandler) CreatePayUOrder(w http.ResponseWriter, r *http.Request) {
	req, raw, err := h.bookingRequest(r)
	if err != nil {
		writeErr(w, err)
		return
	}
	resp, err := h.Service.CreatePayUOrder(req, raw.SuccessURL, raw.FailureURL)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// HandlePayUResponse receives the form POST PayU sends after payment. The
// hash is verified before any state changes; the customer is then redirected
// back to the frontend.
func (h *BookingHandler) HandlePayUResponse(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form", http.StatusBadRequest)
		return
	}
	resp := service.PayUResponse{
		Key:         r.FormValue("key"),
		TxnID:       r.FormValue("txnid"),
		Amount:      r.FormValue("amount"),
		ProductInfo: r.FormValue("productinfo"),
		Firstname:   r.FormValue("firstname"),
		Email:       r.FormValue("email"),
		Status:      r.FormValue("status"),
		Hash:        r.FormValue("hash"),
	}
	for i := range resp.UDF {
		resp.UDF[i] = r.FormValue(fmt.Sprintf("udf%d", i+1))
	}
	booking, err := h.Service.HandlePayUResponse(resp)
	if err != nil {
		http.Redirect(w, r, h.FrontendURL+"/booking/failed", http.StatusSeeOther)
		return
	}
	target := fmt.Sprintf("%s/booking/success?booking_id=%d&txnid=%s",
		h.FrontendURL, booking.ID, url.QueryEscape(booking.PayuTxnID))
	http.Redirect(w, r, target, http.StatusSeeOther)
}

func (h *BookingHandler) GetBooking(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "Invalid ID", http.StatusBadRequest)
		return
	}
	booking, err := h.Service.GetBooking(id)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, booking)
}

func (h *BookingHandler) CancelBooking(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "Invalid ID", http.StatusBadRequest)
		return
	}
	if err := h.Service.CancelBooking(id); err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Booking cancelled"})
}

func (h *BookingHandler) CreateStripeCheckout(w http.ResponseWriter, r *http.Request) {
	req, _, err := h.bookingRequest(r)
	if err != nil {
		writeErr(w, err)
		return
	}
	resp, err := h.Service.CreateStripeCheckout(req)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}
