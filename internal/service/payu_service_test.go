package service

import (
	"crypto/sha512"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
)

func payuHash(sequence string) string {
	sum := sha512.Sum512([]byte(sequence))
	return hex.EncodeToString(sum[:])
}

func TestRequestHash(t *testing.T) {
	svc := NewPayUService("gtKFFx", "eCwWELxi", "")
	req := PayURequest{
		TxnID:       "txn_100",
		Amount:      "10.00",
		ProductInfo: "Session Booking",
		Firstname:   "Asha",
		Email:       "asha@example.com",
	}

	want := payuHash("gtKFFx|txn_100|10.00|Session Booking|Asha|asha@example.com|||||||||||eCwWELxi")
	assert.Equal(t, want, svc.RequestHash(req))
}

func TestRequestHashIncludesUDFs(t *testing.T) {
	svc := NewPayUService("gtKFFx", "eCwWELxi", "")
	req := PayURequest{
		TxnID:       "txn_100",
		Amount:      "10.00",
		ProductInfo: "Session Booking",
		Firstname:   "Asha",
		Email:       "asha@example.com",
		UDF:         [5]string{"a", "b", "c", "d", "e"},
	}

	want := payuHash("gtKFFx|txn_100|10.00|Session Booking|Asha|asha@example.com|a|b|c|d|e||||||eCwWELxi")
	assert.Equal(t, want, svc.RequestHash(req))
}

func TestVerifyResponseHash(t *testing.T) {
	svc := NewPayUService("gtKFFx", "eCwWELxi", "")
	resp := PayUResponse{
		Key:         "gtKFFx",
		TxnID:       "txn_100",
		Amount:      "10.00",
		ProductInfo: "Session Booking",
		Firstname:   "Asha",
		Email:       "asha@example.com",
		Status:      "success",
	}
	resp.Hash = payuHash("eCwWELxi|success|||||||||||asha@example.com|Asha|Session Booking|10.00|txn_100|gtKFFx")

	assert.True(t, svc.VerifyResponseHash(resp))

	resp.Amount = "100.00"
	assert.False(t, svc.VerifyResponseHash(resp), "changing any field invalidates the hash")
}

func TestFormatAmount(t *testing.T) {
	assert.Equal(t, "750.00", FormatAmount(750))
	assert.Equal(t, "19.99", FormatAmount(19.99))
	assert.Equal(t, "0.50", FormatAmount(0.5))
}
