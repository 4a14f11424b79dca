package service

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"hostbook/internal/db"
	"hostbook/internal/entities"
	apperrors "hostbook/internal/errors"
	"hostbook/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBookingStore struct {
	nextID   int
	created  []*db.Booking
	createErr error

	confirmedID    int
	confirmedPayID string
	orderID        string
	sessionID      string
}

func (s *fakeBookingStore) Create(b *db.Booking, expiryThreshold time.Time) error {
	if s.createErr != nil {
		return s.createErr
	}
	s.nextID++
	b.ID = s.nextID
	s.created = append(s.created, b)
	return nil
}

func (s *fakeBookingStore) find(match func(*db.Booking) bool) (*db.Booking, error) {
	for _, b := range s.created {
		if match(b) {
			return b, nil
		}
	}
	return nil, repository.ErrSlotTaken // any error; callers map to not found
}

func (s *fakeBookingStore) GetByID(id int) (*db.Booking, error) {
	return s.find(func(b *db.Booking) bool { return b.ID == id })
}

func (s *fakeBookingStore) GetByRazorpayOrderID(orderID string) (*db.Booking, error) {
	return s.find(func(b *db.Booking) bool { return b.RazorpayOrderID == orderID })
}

func (s *fakeBookingStore) GetByPayuTxnID(txnID string) (*db.Booking, error) {
	return s.find(func(b *db.Booking) bool { return b.PayuTxnID == txnID })
}

func (s *fakeBookingStore) GetByStripeSessionID(sessionID string) (*db.Booking, error) {
	return s.find(func(b *db.Booking) bool { return b.StripeSessionID == sessionID })
}

func (s *fakeBookingStore) Confirm(id int, paymentID string) error {
	s.confirmedID = id
	s.confirmedPayID = paymentID
	return nil
}

func (s *fakeBookingStore) SetRazorpayOrder(id int, orderID string) error {
	s.orderID = orderID
	for _, b := range s.created {
		if b.ID == id {
			b.RazorpayOrderID = orderID
		}
	}
	return nil
}

func (s *fakeBookingStore) SetStripeSession(id int, sessionID string) error {
	s.sessionID = sessionID
	for _, b := range s.created {
		if b.ID == id {
			b.StripeSessionID = sessionID
		}
	}
	return nil
}

func (s *fakeBookingStore) UpdateStatuses(ids []int, newStatus string) error {
	for _, b := range s.created {
		for _, id := range ids {
			if b.ID == id {
				b.Status = newStatus
			}
		}
	}
	return nil
}

type stubLocker struct {
	granted bool
	err     error
	calls   int
}

func (l *stubLocker) TryAcquire(hostID int, start, end time.Time) (bool, error) {
	l.calls++
	return l.granted, l.err
}

func (l *stubLocker) Reap() (int64, error) { return 0, nil }

type fakeNotifier struct {
	confirmed []*db.Booking
}

func (n *fakeNotifier) BookingConfirmed(b *db.Booking) {
	n.confirmed = append(n.confirmed, b)
}

type fakeRecorder struct {
	events []string
}

func (r *fakeRecorder) Record(hostID int, event, sessionID string, metadata map[string]interface{}) {
	r.events = append(r.events, event)
}

type bookingFixture struct {
	svc      *BookingService
	store    *fakeBookingStore
	locker   *stubLocker
	notifier *fakeNotifier
	recorder *fakeRecorder
	rules    *fakePriceRuleStore
	now      time.Time
}

func newBookingFixture(rule *db.AvailabilityRule) *bookingFixture {
	f := &bookingFixture{
		store:    &fakeBookingStore{},
		locker:   &stubLocker{granted: true},
		notifier: &fakeNotifier{},
		recorder: &fakeRecorder{},
		rules:    &fakePriceRuleStore{recurring: rule},
		now:      time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC),
	}
	payu := NewPayUService("merchant-key", "merchant-salt", "")
	f.svc = NewBookingService(f.store, f.locker, NewPriceService(f.rules),
		f.notifier, f.recorder, NewRazorpayClient("rzp_test", "secret-inr"), nil, payu, nil, 5*time.Minute)
	f.svc.now = func() time.Time { return f.now }
	return f
}

func (f *bookingFixture) request() entities.BookingRequest {
	return entities.BookingRequest{
		HostID:        1,
		StartTime:     f.now.Add(time.Hour),
		EndTime:       f.now.Add(90 * time.Minute),
		CustomerName:  "Asha Rao",
		CustomerEmail: "asha@example.com",
		SessionID:     "sess-1",
	}
}

func TestFreeBookingConfirmsImmediately(t *testing.T) {
	f := newBookingFixture(&db.AvailabilityRule{IsFree: true})

	resp, err := f.svc.CreateRazorpayOrder(f.request())
	require.NoError(t, err)
	assert.True(t, resp.IsFree)

	require.Len(t, f.store.created, 1)
	assert.Equal(t, db.StatusConfirmed, f.store.created[0].Status)
	assert.Zero(t, f.store.created[0].Amount)
	assert.Len(t, f.notifier.confirmed, 1)
	assert.Contains(t, f.recorder.events, EventPaymentSuccess)
}

func TestBookingRejectedWhenLockDenied(t *testing.T) {
	f := newBookingFixture(&db.AvailabilityRule{Price: 500})
	f.locker.granted = false

	_, err := f.svc.CreateRazorpayOrder(f.request())
	require.Error(t, err)
	var httpErr *apperrors.HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusConflict, httpErr.Code)
	assert.Empty(t, f.store.created, "nothing persisted on a denied lock")
}

func TestBookingRejectedWithoutGoverningRule(t *testing.T) {
	f := newBookingFixture(nil)

	_, err := f.svc.CreateRazorpayOrder(f.request())
	require.Error(t, err)
	var httpErr *apperrors.HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusBadRequest, httpErr.Code)
	assert.Empty(t, f.store.created)
}

func TestBookingRejectsPastOrInvertedWindow(t *testing.T) {
	f := newBookingFixture(&db.AvailabilityRule{Price: 500})

	req := f.request()
	req.StartTime = f.now.Add(-time.Hour)
	req.EndTime = f.now
	_, err := f.svc.CreateRazorpayOrder(req)
	assert.Error(t, err, "past start")

	req = f.request()
	req.EndTime = req.StartTime
	_, err = f.svc.CreateRazorpayOrder(req)
	assert.Error(t, err, "empty window")
	assert.Zero(t, f.locker.calls, "validation fails before lock acquisition")
}

func TestCreateRazorpayOrderLocksThenOrders(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, float64(50000), body["amount"], "500.00 in minor units")
		assert.Equal(t, "INR", body["currency"])
		json.NewEncoder(w).Encode(map[string]string{"id": "order_abc123"})
	}))
	defer srv.Close()

	f := newBookingFixture(&db.AvailabilityRule{Price: 500})
	f.svc.razorpayINR = &RazorpayClient{KeyID: "rzp_test", KeySecret: "secret-inr", BaseURL: srv.URL, HTTP: srv.Client()}

	resp, err := f.svc.CreateRazorpayOrder(f.request())
	require.NoError(t, err)
	assert.Equal(t, "order_abc123", resp.OrderID)
	assert.Equal(t, "rzp_test", resp.KeyID)
	assert.Equal(t, 500.0, resp.Amount)

	require.Len(t, f.store.created, 1)
	assert.Equal(t, db.StatusLocked, f.store.created[0].Status)
	assert.Equal(t, "order_abc123", f.store.created[0].RazorpayOrderID)
	assert.Empty(t, f.notifier.confirmed, "locked bookings are not announced")
}

func TestProviderFailureLeavesLockToExpire(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	f := newBookingFixture(&db.AvailabilityRule{Price: 500})
	f.svc.razorpayINR = &RazorpayClient{KeyID: "rzp_test", KeySecret: "secret-inr", BaseURL: srv.URL, HTTP: srv.Client()}

	_, err := f.svc.CreateRazorpayOrder(f.request())
	require.Error(t, err)
	var httpErr *apperrors.HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusBadGateway, httpErr.Code)

	// The locked row stays in place; the TTL sweep reclaims it later.
	require.Len(t, f.store.created, 1)
	assert.Equal(t, db.StatusLocked, f.store.created[0].Status)
}

func TestPersistMapsSlotTakenToConflict(t *testing.T) {
	f := newBookingFixture(&db.AvailabilityRule{IsFree: true})
	f.store.createErr = repository.ErrSlotTaken

	_, err := f.svc.CreateRazorpayOrder(f.request())
	require.Error(t, err)
	var httpErr *apperrors.HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusConflict, httpErr.Code)
}

func razorpaySignature(secret, orderID, paymentID string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(orderID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

func TestVerifyRazorpayPayment(t *testing.T) {
	f := newBookingFixture(&db.AvailabilityRule{Price: 500})
	f.store.created = []*db.Booking{{
		ID: 7, HostID: 1, Status: db.StatusLocked,
		Currency: "INR", RazorpayOrderID: "order_abc123", Amount: 500,
	}}

	booking, err := f.svc.VerifyRazorpayPayment("order_abc123", "pay_1",
		razorpaySignature("secret-inr", "order_abc123", "pay_1"))
	require.NoError(t, err)
	assert.Equal(t, db.StatusConfirmed, booking.Status)
	assert.Equal(t, 7, f.store.confirmedID)
	assert.Equal(t, "pay_1", f.store.confirmedPayID)
	assert.Len(t, f.notifier.confirmed, 1)
	assert.Contains(t, f.recorder.events, EventPaymentSuccess)
}

func TestVerifyRazorpayPaymentBadSignature(t *testing.T) {
	f := newBookingFixture(&db.AvailabilityRule{Price: 500})
	f.store.created = []*db.Booking{{
		ID: 7, HostID: 1, Status: db.StatusLocked,
		Currency: "INR", RazorpayOrderID: "order_abc123",
	}}

	_, err := f.svc.VerifyRazorpayPayment("order_abc123", "pay_1", "forged")
	require.Error(t, err)
	assert.Zero(t, f.store.confirmedID, "nothing confirmed on a bad signature")
	assert.Empty(t, f.notifier.confirmed)
}

func TestCreatePayUOrderBuildsSignedForm(t *testing.T) {
	f := newBookingFixture(&db.AvailabilityRule{Price: 750})

	resp, err := f.svc.CreatePayUOrder(f.request(), "https://app.example.com/s", "https://app.example.com/f")
	require.NoError(t, err)
	assert.Equal(t, "https://secure.payu.in/_payment", resp.Action)
	assert.Equal(t, "750.00", resp.Params["amount"])
	assert.Equal(t, "Asha", resp.Params["firstname"])
	assert.NotEmpty(t, resp.Params["txnid"])
	assert.NotEmpty(t, resp.Params["hash"])

	require.Len(t, f.store.created, 1)
	assert.Equal(t, db.StatusLocked, f.store.created[0].Status)
	assert.Equal(t, resp.Params["txnid"], f.store.created[0].PayuTxnID)
}

func TestHandlePayUResponse(t *testing.T) {
	f := newBookingFixture(&db.AvailabilityRule{Price: 750})
	f.store.created = []*db.Booking{{
		ID: 3, HostID: 1, Status: db.StatusLocked, PayuTxnID: "txn_42", Amount: 750,
	}}
	payu := f.svc.payu

	resp := PayUResponse{
		Key: payu.MerchantKey, TxnID: "txn_42", Amount: "750.00",
		ProductInfo: "Session Booking", Firstname: "Asha",
		Email: "asha@example.com", Status: "success",
	}
	// salt|status|udf10..udf6|udf5..udf1|email|firstname|productinfo|amount|txnid|key
	resp.Hash = sha512Hex(strings.Join([]string{
		"merchant-salt", "success",
		"", "", "", "", "",
		"", "", "", "", "",
		"asha@example.com", "Asha", "Session Booking", "750.00", "txn_42", "merchant-key",
	}, "|"))

	booking, err := f.svc.HandlePayUResponse(resp)
	require.NoError(t, err)
	assert.Equal(t, db.StatusConfirmed, booking.Status)
	assert.Equal(t, 3, f.store.confirmedID)
	assert.Len(t, f.notifier.confirmed, 1)
}

func TestHandlePayUResponseRejectsTamperedHash(t *testing.T) {
	f := newBookingFixture(&db.AvailabilityRule{Price: 750})
	f.store.created = []*db.Booking{{
		ID: 3, HostID: 1, Status: db.StatusLocked, PayuTxnID: "txn_42",
	}}

	resp := PayUResponse{
		Key: "merchant-key", TxnID: "txn_42", Amount: "750.00",
		ProductInfo: "Session Booking", Firstname: "Asha",
		Email: "asha@example.com", Status: "success", Hash: "bogus",
	}
	_, err := f.svc.HandlePayUResponse(resp)
	require.Error(t, err)
	assert.Zero(t, f.store.confirmedID)
}

func TestConfirmStripeSession(t *testing.T) {
	f := newBookingFixture(&db.AvailabilityRule{Price: 500})
	f.store.created = []*db.Booking{{
		ID: 5, HostID: 1, Status: db.StatusLocked, StripeSessionID: "cs_test_1", Amount: 500,
	}}

	booking, err := f.svc.ConfirmStripeSession("cs_test_1")
	require.NoError(t, err)
	assert.Equal(t, db.StatusConfirmed, booking.Status)
	assert.Equal(t, 5, f.store.confirmedID)
	assert.Len(t, f.notifier.confirmed, 1)
}

func TestCancelBooking(t *testing.T) {
	f := newBookingFixture(&db.AvailabilityRule{Price: 500})
	f.store.created = []*db.Booking{{ID: 4, HostID: 1, Status: db.StatusConfirmed, Gateway: db.GatewayRazorpay}}

	require.NoError(t, f.svc.CancelBooking(4))
	assert.Equal(t, db.StatusCancelled, f.store.created[0].Status)

	// Cancelling twice is a no-op.
	require.NoError(t, f.svc.CancelBooking(4))
}

func TestMinorUnits(t *testing.T) {
	assert.Equal(t, int64(50000), minorUnits(500))
	assert.Equal(t, int64(1999), minorUnits(19.99))
	assert.Equal(t, int64(10), minorUnits(0.1))
}
