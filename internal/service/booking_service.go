package service

import (
	"errors"
	"fmt"
	"log"
	"math"
	"time"

	"hostbook/internal/db"
	"hostbook/internal/entities"
	apperrors "hostbook/internal/errors"
	"hostbook/internal/repository"
)

// Analytics funnel stages.
const (
	EventProfileView    = "profile_view"
	EventCheckoutView   = "checkout_view"
	EventPaymentStart   = "payment_start"
	EventPaymentSuccess = "payment_success"
)

// BookingStore is the booking-ledger surface the reservation flow depends on.
type BookingStore interface {
	Create(b *db.Booking, expiryThreshold time.Time) error
	GetByID(id int) (*db.Booking, error)
	GetByRazorpayOrderID(orderID string) (*db.Booking, error)
	GetByPayuTxnID(txnID string) (*db.Booking, error)
	GetByStripeSessionID(sessionID string) (*db.Booking, error)
	Confirm(id int, paymentID string) error
	SetRazorpayOrder(id int, orderID string) error
	SetStripeSession(id int, sessionID string) error
	UpdateStatuses(ids []int, newStatus string) error
}

// Notifier delivers booking notifications. Implementations never block the
// reservation flow; failures are logged and swallowed.
type Notifier interface {
	BookingConfirmed(b *db.Booking)
}

// EventRecorder is the fire-and-forget analytics sink.
type EventRecorder interface {
	Record(hostID int, event, sessionID string, metadata map[string]interface{})
}

type BookingService struct {
	bookings  BookingStore
	locker    SlotLocker
	prices    *PriceService
	notifier  Notifier
	analytics EventRecorder

	razorpayINR *RazorpayClient
	razorpayUSD *RazorpayClient
	payu        *PayUService
	stripe      *StripeService

	ttl time.Duration
	now func() time.Time
}

func NewBookingService(
	bookings BookingStore,
	locker SlotLocker,
	prices *PriceService,
	notifier Notifier,
	analytics EventRecorder,
	razorpayINR, razorpayUSD *RazorpayClient,
	payu *PayUService,
	stripe *StripeService,
	ttl time.Duration,
) *BookingService {
	if ttl <= 0 {
		ttl = DefaultLockTTL
	}
	return &BookingService{
		bookings:    bookings,
		locker:      locker,
		prices:      prices,
		notifier:    notifier,
		analytics:   analytics,
		razorpayINR: razorpayINR,
		razorpayUSD: razorpayUSD,
		payu:        payu,
		stripe:      stripe,
		ttl:         ttl,
		now:         time.Now,
	}
}

// Quote resolves the server-side price for a checkout view and records the
// checkout_view funnel stage.
func (s *BookingService) Quote(hostID int, start, end time.Time, sessionID string) (*entities.CheckoutQuote, error) {
	if !end.After(start) {
		return nil, apperrors.ErrValidation("end_time must be after start_time")
	}
	match, err := s.prices.FindGoverningRule(hostID, start)
	if err != nil {
		return nil, err
	}
	quote := &entities.CheckoutQuote{
		StartTime:       start,
		EndTime:         end,
		DurationMinutes: int(end.Sub(start) / time.Minute),
	}
	if match.Kind != NoMatch {
		quote.IsFree = match.Rule.IsFree
		if !match.Rule.IsFree {
			quote.Amount = match.Rule.Price
			quote.AmountUSD = match.Rule.PriceUSD
		}
	}
	s.analytics.Record(hostID, EventCheckoutView, sessionID, map[string]interface{}{
		"start_time": start,
		"is_free":    quote.IsFree,
	})
	return quote, nil
}

// acquireAndPrice runs the shared front half of every reservation attempt:
// validation, lock acquisition and price resolution. The lock grant is only
// a decision; the caller persists the locked row, which the ledger arbitrates
// with its per-host transaction and uniqueness constraint.
func (s *BookingService) acquireAndPrice(req entities.BookingRequest) (PriceQuote, error) {
	if !req.EndTime.After(req.StartTime) {
		return PriceQuote{}, apperrors.ErrValidation("end_time must be after start_time")
	}
	if !req.StartTime.After(s.now()) {
		return PriceQuote{}, apperrors.ErrValidation("slot start must be in the future")
	}

	granted, err := s.locker.TryAcquire(req.HostID, req.StartTime, req.EndTime)
	if err != nil {
		return PriceQuote{}, fmt.Errorf("acquiring slot lock: %w", err)
	}
	if !granted {
		return PriceQuote{}, apperrors.ErrSlotUnavailable("slot already booked or currently being booked by someone else")
	}

	match, err := s.prices.FindGoverningRule(req.HostID, req.StartTime)
	if err != nil {
		return PriceQuote{}, err
	}
	if match.Kind == NoMatch {
		return PriceQuote{}, apperrors.ErrPriceResolution("could not find the price for this slot; please retry from the slot listing")
	}
	quote := s.prices.QuoteFor(match.Rule, req.Currency)

	s.analytics.Record(req.HostID, EventPaymentStart, req.SessionID, map[string]interface{}{
		"start_time": req.StartTime,
		"amount":     quote.Amount,
		"currency":   quote.Currency,
	})
	return quote, nil
}

func (s *BookingService) newBooking(req entities.BookingRequest, quote PriceQuote, status, gateway string) *db.Booking {
	name, email := req.CustomerName, req.CustomerEmail
	if name == "" {
		name = "Guest"
	}
	if email == "" {
		email = "guest@example.com"
	}
	return &db.Booking{
		HostID:         req.HostID,
		CustomerName:   name,
		CustomerEmail:  email,
		CustomerUserID: req.CustomerUserID,
		StartTime:      req.StartTime,
		EndTime:        req.EndTime,
		Status:         status,
		Amount:         quote.Amount,
		Currency:       quote.Currency,
		Gateway:        gateway,
	}
}

func (s *BookingService) persist(b *db.Booking) error {
	err := s.bookings.Create(b, s.now().Add(-s.ttl))
	if errors.Is(err, repository.ErrSlotTaken) {
		return apperrors.ErrSlotUnavailable("slot already booked")
	}
	return err
}

// confirmFree persists a free booking directly as confirmed; there is no
// payment flow to hold a lock for.
func (s *BookingService) confirmFree(req entities.BookingRequest, quote PriceQuote, gateway string) (*db.Booking, error) {
	booking := s.newBooking(req, quote, db.StatusConfirmed, gateway)
	if err := s.persist(booking); err != nil {
		return nil, err
	}
	s.notifier.BookingConfirmed(booking)
	s.analytics.Record(req.HostID, EventPaymentSuccess, req.SessionID, map[string]interface{}{
		"booking_id": booking.ID,
		"amount":     0,
		"is_free":    true,
	})
	return booking, nil
}

// CreateRazorpayOrder reserves the slot and opens a Razorpay order for it.
// The locked booking is written before the provider call; if the provider
// fails, the lock is left to expire via TTL so a slow retry keeps its place.
func (s *BookingService) CreateRazorpayOrder(req entities.BookingRequest) (*entities.RazorpayOrderResponse, error) {
	quote, err := s.acquireAndPrice(req)
	if err != nil {
		return nil, err
	}

	if quote.IsFree || quote.Amount == 0 {
		booking, err := s.confirmFree(req, quote, db.GatewayRazorpay)
		if err != nil {
			return nil, err
		}
		return &entities.RazorpayOrderResponse{Success: true, IsFree: true, BookingID: booking.ID, Currency: quote.Currency}, nil
	}

	booking := s.newBooking(req, quote, db.StatusLocked, db.GatewayRazorpay)
	if err := s.persist(booking); err != nil {
		return nil, err
	}

	client := s.razorpayForCurrency(quote.Currency)
	receipt := fmt.Sprintf("receipt_%d", s.now().UnixNano())
	orderID, err := client.CreateOrder(minorUnits(quote.Amount), quote.Currency, receipt)
	if err != nil {
		log.Printf("Razorpay order creation failed for booking %d: %v", booking.ID, err)
		return nil, apperrors.ErrProvider("order creation failed")
	}
	if err := s.bookings.SetRazorpayOrder(booking.ID, orderID); err != nil {
		return nil, err
	}

	return &entities.RazorpayOrderResponse{
		Success:   true,
		BookingID: booking.ID,
		OrderID:   orderID,
		Amount:    quote.Amount,
		Currency:  quote.Currency,
		KeyID:     client.KeyID,
	}, nil
}

// VerifyRazorpayPayment confirms a booking after checking the callback
// signature against the per-currency secret. Only signature-verified paths
// ever set status to confirmed.
func (s *BookingService) VerifyRazorpayPayment(orderID, paymentID, signature string) (*db.Booking, error) {
	booking, err := s.bookings.GetByRazorpayOrderID(orderID)
	if err != nil {
		return nil, apperrors.ErrNotFound("booking not found")
	}

	client := s.razorpayForCurrency(booking.Currency)
	if !client.VerifySignature(orderID, paymentID, signature) {
		return nil, apperrors.ErrSignatureMismatch("payment verification failed")
	}

	if err := s.bookings.Confirm(booking.ID, paymentID); err != nil {
		return nil, err
	}
	booking.Status = db.StatusConfirmed
	booking.RazorpayPaymentID = paymentID

	s.notifier.BookingConfirmed(booking)
	s.analytics.Record(booking.HostID, EventPaymentSuccess, "", map[string]interface{}{
		"booking_id": booking.ID,
		"amount":     booking.Amount,
	})
	return booking, nil
}

// CreatePayUOrder reserves the slot and returns the form parameters,
// including the request hash, for PayU's hosted checkout.
func (s *BookingService) CreatePayUOrder(req entities.BookingRequest, surl, furl string) (*entities.PayUOrderResponse, error) {
	quote, err := s.acquireAndPrice(req)
	if err != nil {
		return nil, err
	}

	if quote.IsFree || quote.Amount == 0 {
		booking, err := s.confirmFree(req, quote, db.GatewayPayU)
		if err != nil {
			return nil, err
		}
		return &entities.PayUOrderResponse{Success: true, IsFree: true, BookingID: booking.ID}, nil
	}

	booking := s.newBooking(req, quote, db.StatusLocked, db.GatewayPayU)
	booking.PayuTxnID = fmt.Sprintf("txn_%d", s.now().UnixNano())
	if err := s.persist(booking); err != nil {
		return nil, err
	}

	payuReq := PayURequest{
		TxnID:       booking.PayuTxnID,
		Amount:      FormatAmount(quote.Amount),
		ProductInfo: "Session Booking",
		Firstname:   firstName(booking.CustomerName),
		Email:       booking.CustomerEmail,
	}
	params := map[string]string{
		"key":         s.payu.MerchantKey,
		"txnid":       payuReq.TxnID,
		"amount":      payuReq.Amount,
		"productinfo": payuReq.ProductInfo,
		"firstname":   payuReq.Firstname,
		"email":       payuReq.Email,
		"surl":        surl,
		"furl":        furl,
		"hash":        s.payu.RequestHash(payuReq),
	}
	return &entities.PayUOrderResponse{
		Success:   true,
		BookingID: booking.ID,
		Action:    s.payu.PaymentURL,
		Params:    params,
	}, nil
}

// HandlePayUResponse verifies the response hash and confirms the booking on
// success. A hash mismatch is a security fault: nothing changes state.
func (s *BookingService) HandlePayUResponse(resp PayUResponse) (*db.Booking, error) {
	if !s.payu.VerifyResponseHash(resp) {
		return nil, apperrors.ErrSignatureMismatch("hash mismatch")
	}
	if resp.Status != "success" {
		return nil, apperrors.ErrProvider("payment failed")
	}

	booking, err := s.bookings.GetByPayuTxnID(resp.TxnID)
	if err != nil {
		return nil, apperrors.ErrNotFound("booking not found")
	}
	if err := s.bookings.Confirm(booking.ID, ""); err != nil {
		return nil, err
	}
	booking.Status = db.StatusConfirmed

	s.notifier.BookingConfirmed(booking)
	s.analytics.Record(booking.HostID, EventPaymentSuccess, "", map[string]interface{}{
		"booking_id": booking.ID,
		"amount":     booking.Amount,
		"gateway":    db.GatewayPayU,
	})
	return booking, nil
}

// CreateStripeCheckout reserves the slot and opens a Stripe Checkout session
// for it. Same lock semantics as the Razorpay path.
func (s *BookingService) CreateStripeCheckout(req entities.BookingRequest) (*entities.StripeCheckoutResponse, error) {
	if s.stripe == nil {
		return nil, apperrors.ErrValidation("stripe payments are not enabled")
	}
	quote, err := s.acquireAndPrice(req)
	if err != nil {
		return nil, err
	}

	if quote.IsFree || quote.Amount == 0 {
		booking, err := s.confirmFree(req, quote, db.GatewayStripe)
		if err != nil {
			return nil, err
		}
		return &entities.StripeCheckoutResponse{Success: true, IsFree: true, BookingID: booking.ID}, nil
	}

	booking := s.newBooking(req, quote, db.StatusLocked, db.GatewayStripe)
	if err := s.persist(booking); err != nil {
		return nil, err
	}

	url, sessionID, err := s.stripe.CreateCheckoutSession(
		minorUnits(quote.Amount), quote.Currency, "Session Booking", booking.CustomerEmail)
	if err != nil {
		log.Printf("Stripe session creation failed for booking %d: %v", booking.ID, err)
		return nil, apperrors.ErrProvider("order creation failed")
	}
	if err := s.bookings.SetStripeSession(booking.ID, sessionID); err != nil {
		return nil, err
	}

	return &entities.StripeCheckoutResponse{
		Success:   true,
		BookingID: booking.ID,
		URL:       url,
		SessionID: sessionID,
	}, nil
}

// ConfirmStripeSession confirms the booking behind a completed checkout
// session. The webhook handler has already verified the event signature.
func (s *BookingService) ConfirmStripeSession(sessionID string) (*db.Booking, error) {
	booking, err := s.bookings.GetByStripeSessionID(sessionID)
	if err != nil {
		return nil, apperrors.ErrNotFound("booking not found")
	}
	if err := s.bookings.Confirm(booking.ID, ""); err != nil {
		return nil, err
	}
	booking.Status = db.StatusConfirmed

	s.notifier.BookingConfirmed(booking)
	s.analytics.Record(booking.HostID, EventPaymentSuccess, "", map[string]interface{}{
		"booking_id": booking.ID,
		"amount":     booking.Amount,
		"gateway":    db.GatewayStripe,
	})
	return booking, nil
}

// GetBooking returns the public view of a booking for confirmation pages.
func (s *BookingService) GetBooking(id int) (*entities.BookingResponse, error) {
	b, err := s.bookings.GetByID(id)
	if err != nil {
		return nil, apperrors.ErrNotFound("booking not found")
	}
	return &entities.BookingResponse{
		ID:            b.ID,
		HostID:        b.HostID,
		CustomerName:  b.CustomerName,
		CustomerEmail: b.CustomerEmail,
		StartTime:     b.StartTime,
		EndTime:       b.EndTime,
		Status:        b.Status,
		Amount:        b.Amount,
		Currency:      b.Currency,
		Gateway:       b.Gateway,
		CreatedAt:     b.CreatedAt,
	}, nil
}

// CancelBooking cancels a booking, refunding through Stripe when that was
// the gateway. Razorpay and PayU refunds are issued from the provider
// dashboards.
func (s *BookingService) CancelBooking(id int) error {
	b, err := s.bookings.GetByID(id)
	if err != nil {
		return apperrors.ErrNotFound("booking not found")
	}
	if b.Status == db.StatusCancelled {
		return nil
	}
	if b.Status == db.StatusConfirmed && b.Gateway == db.GatewayStripe && b.StripeSessionID != "" && s.stripe != nil {
		if err := s.stripe.RefundPaymentBySessionID(b.StripeSessionID); err != nil {
			log.Printf("Stripe refund failed for booking %d: %v", id, err)
			return apperrors.ErrProvider("refund failed")
		}
	}
	return s.bookings.UpdateStatuses([]int{id}, db.StatusCancelled)
}

func (s *BookingService) razorpayForCurrency(currency string) *RazorpayClient {
	if currency == "USD" && s.razorpayUSD != nil {
		return s.razorpayUSD
	}
	return s.razorpayINR
}

func minorUnits(amount float64) int64 {
	return int64(math.Round(amount * 100))
}

func firstName(full string) string {
	for i, r := range full {
		if r == ' ' {
			return full[:i]
		}
	}
	return full
}
