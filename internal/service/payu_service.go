package service

import (
	"crypto/sha512"
	"encoding/hex"
	"fmt"
	"strings"
)

// PayUService computes the hashes PayU's hosted checkout requires. The field
// sequences are asymmetric between request and response and must match the
// provider's documented concatenation byte-for-byte.
type PayUService struct {
	MerchantKey string
	Salt        string
	PaymentURL  string
}

func NewPayUService(merchantKey, salt, paymentURL string) *PayUService {
	if paymentURL == "" {
		paymentURL = "https://secure.payu.in/_payment"
	}
	return &PayUService{MerchantKey: merchantKey, Salt: salt, PaymentURL: paymentURL}
}

// PayURequest carries the fields hashed into a payment request.
type PayURequest struct {
	TxnID       string
	Amount      string
	ProductInfo string
	Firstname   string
	Email       string
	UDF         [5]string
}

// PayUResponse carries the fields PayU posts back after payment.
type PayUResponse struct {
	Key         string
	TxnID       string
	Amount      string
	ProductInfo string
	Firstname   string
	Email       string
	Status      string
	UDF         [5]string
	Hash        string
}

// RequestHash computes the sha512 over
// key|txnid|amount|productinfo|firstname|email|udf1|udf2|udf3|udf4|udf5||||||salt.
func (s *PayUService) RequestHash(p PayURequest) string {
	fields := []string{
		s.MerchantKey, p.TxnID, p.Amount, p.ProductInfo, p.Firstname, p.Email,
		p.UDF[0], p.UDF[1], p.UDF[2], p.UDF[3], p.UDF[4],
		"", "", "", "", "",
		s.Salt,
	}
	return sha512Hex(strings.Join(fields, "|"))
}

// VerifyResponseHash checks the reversed response sequence
// salt|status||||||udf5|udf4|udf3|udf2|udf1|email|firstname|productinfo|amount|txnid|key.
func (s *PayUService) VerifyResponseHash(p PayUResponse) bool {
	fields := []string{
		s.Salt, p.Status,
		"", "", "", "", "",
		p.UDF[4], p.UDF[3], p.UDF[2], p.UDF[1], p.UDF[0],
		p.Email, p.Firstname, p.ProductInfo, p.Amount, p.TxnID, p.Key,
	}
	return sha512Hex(strings.Join(fields, "|")) == p.Hash
}

func sha512Hex(s string) string {
	sum := sha512.Sum512([]byte(s))
	return hex.EncodeToString(sum[:])
}

// FormatAmount renders an amount the way PayU expects it in hash input:
// no trailing zeros, no exponent.
func FormatAmount(amount float64) string {
	out := fmt.Sprintf("%.2f", amount)
	out = strings.TrimRight(out, "0")
	return strings.TrimRight(out, ".")
}
