package gateway

import (
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ticketd/internal/apperrors"
)

func newTestPaystack(t *testing.T, handler http.HandlerFunc) (*Paystack, *httptest.Server) {
	t.Helper()
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)

	return NewPaystack(PaystackConfig{
		SecretKey:     "sk_test_secret",
		WebhookSecret: "whsec_test",
		InitializeURL: ts.URL + "/transaction/initialize",
		VerifyURL:     ts.URL + "/transaction/verify",
		Timeout:       2 * time.Second,
	}), ts
}

func TestPaystack_InitializeSuccess(t *testing.T) {
	p, _ := newTestPaystack(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Bearer sk_test_secret", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":true,"message":"Authorization URL created","data":{"authorization_url":"https://checkout.example/abc","access_code":"abc","reference":"STKREF-1"}}`))
	})

	res, err := p.Initialize(context.Background(), &InitializeRequest{
		Amount:    decimal.NewFromFloat(150.50),
		Currency:  "NGN",
		Email:     "buyer@example.com",
		Reference: "STKREF-1",
	})
	require.NoError(t, err)
	assert.Equal(t, "STKREF-1", res.GatewayReference)
	assert.Equal(t, "https://checkout.example/abc", res.AuthorizationURL)
	assert.NotEmpty(t, res.RawResponse)
}

func TestPaystack_InitializeDeclined(t *testing.T) {
	p, _ := newTestPaystack(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"status":false,"message":"Invalid amount"}`))
	})

	_, err := p.Initialize(context.Background(), &InitializeRequest{
		Amount:    decimal.Zero,
		Currency:  "NGN",
		Email:     "buyer@example.com",
		Reference: "STKREF-2",
	})
	require.Error(t, err)
	assert.Equal(t, apperrors.KindGateway, apperrors.KindOf(err))
	assert.Contains(t, err.Error(), "Invalid amount")
}

func TestPaystack_VerifySuccess(t *testing.T) {
	p, _ := newTestPaystack(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/transaction/verify/STKREF-3", r.URL.Path)
		assert.Equal(t, "Bearer sk_test_secret", r.Header.Get("Authorization"))
		w.Write([]byte(`{"status":true,"data":{"status":"success","amount":15050}}`))
	})

	res, err := p.Verify(context.Background(), "STKREF-3")
	require.NoError(t, err)
	assert.True(t, res.Success)
}

func TestPaystack_VerifyFailedTransaction(t *testing.T) {
	p, _ := newTestPaystack(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":true,"data":{"status":"failed"}}`))
	})

	res, err := p.Verify(context.Background(), "STKREF-4")
	require.NoError(t, err)
	assert.False(t, res.Success)
}

func TestPaystack_VerifySignature(t *testing.T) {
	p := NewPaystack(PaystackConfig{WebhookSecret: "whsec_test"})
	body := []byte(`{"event":"charge.success","data":{"reference":"STKREF-5"}}`)

	mac := hmac.New(sha512.New, []byte("whsec_test"))
	mac.Write(body)
	valid := hex.EncodeToString(mac.Sum(nil))

	assert.True(t, p.VerifySignature(body, valid))
	assert.False(t, p.VerifySignature(body, "deadbeef"))
	assert.False(t, p.VerifySignature([]byte(`{"tampered":true}`), valid))
}
