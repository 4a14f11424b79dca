package service

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// RazorpayClient talks to the Razorpay Orders API. One client is constructed
// per currency account in main and injected into the booking flow; clients
// are never held as package globals so tests can substitute doubles.
type RazorpayClient struct {
	KeyID     string
	KeySecret string
	BaseURL   string
	HTTP      *http.Client
}

func NewRazorpayClient(keyID, keySecret string) *RazorpayClient {
	return &RazorpayClient{
		KeyID:     keyID,
		KeySecret: keySecret,
		BaseURL:   "https://api.razorpay.com/v1",
		HTTP:      &http.Client{Timeout: 15 * time.Second},
	}
}

// CreateOrder creates an order for the amount in the currency's smallest
// unit and returns the provider's order id.
func (c *RazorpayClient) CreateOrder(amount int64, currency, receipt string) (string, error) {
	payload, err := json.Marshal(map[string]interface{}{
		"amount":   amount,
		"currency": currency,
		"receipt":  receipt,
	})
	if err != nil {
		return "", fmt.Errorf("encoding order payload: %w", err)
	}

	req, err := http.NewRequest(http.MethodPost, c.BaseURL+"/orders", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("building order request: %w", err)
	}
	req.SetBasicAuth(c.KeyID, c.KeySecret)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return "", fmt.Errorf("calling razorpay: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr struct {
			Error struct {
				Description string `json:"description"`
			} `json:"error"`
		}
		json.NewDecoder(resp.Body).Decode(&apiErr)
		return "", fmt.Errorf("razorpay order creation failed (%d): %s", resp.StatusCode, apiErr.Error.Description)
	}

	var order struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&order); err != nil {
		return "", fmt.Errorf("decoding order response: %w", err)
	}
	if order.ID == "" {
		return "", fmt.Errorf("razorpay returned an empty order id")
	}
	return order.ID, nil
}

// VerifySignature checks the checkout callback signature: a hex HMAC-SHA256
// over "orderID|paymentID" keyed with the account secret.
func (c *RazorpayClient) VerifySignature(orderID, paymentID, signature string) bool {
	mac := hmac.New(sha256.New, []byte(c.KeySecret))
	mac.Write([]byte(orderID + "|" + paymentID))
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}
