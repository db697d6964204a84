package gateway

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"ticketd/internal/apperrors"
)

var decimalHundred = decimal.NewFromInt(100)

type PaystackConfig struct {
	SecretKey     string        `mapstructure:"secret_key"`
	WebhookSecret string        `mapstructure:"webhook_secret"`
	InitializeURL string        `mapstructure:"initialize_url"`
	VerifyURL     string        `mapstructure:"verify_url"`
	Timeout       time.Duration `mapstructure:"timeout"`
}

// Paystack talks to the Paystack transaction API: bearer-authenticated
// POST to initialize, GET to verify, HMAC-SHA512 signed webhooks.
type Paystack struct {
	secretKey     string
	webhookSecret string
	initializeURL string
	verifyURL     string

	hc *http.Client
}

func NewPaystack(cfg PaystackConfig) *Paystack {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Paystack{
		secretKey:     cfg.SecretKey,
		webhookSecret: cfg.WebhookSecret,
		initializeURL: cfg.InitializeURL,
		verifyURL:     cfg.VerifyURL,
		hc:            &http.Client{Timeout: timeout},
	}
}

func (p *Paystack) Name() string { return "paystack" }

func (p *Paystack) Initialize(ctx context.Context, req *InitializeRequest) (*InitializeResult, error) {
	// Paystack takes amounts in the currency subunit.
	payload := map[string]any{
		"amount":    req.Amount.Mul(decimalHundred).IntPart(),
		"email":     req.Email,
		"currency":  req.Currency,
		"reference": req.Reference,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal initialize payload: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.initializeURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("initialize request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+p.secretKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.hc.Do(httpReq)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindGateway, "payment initialization failed", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindGateway, "read initialize response", err)
	}

	var reply struct {
		Status  bool   `json:"status"`
		Message string `json:"message"`
		Data    struct {
			AuthorizationURL string `json:"authorization_url"`
			AccessCode       string `json:"access_code"`
			Reference        string `json:"reference"`
		} `json:"data"`
	}
	if err := json.Unmarshal(raw, &reply); err != nil {
		return nil, apperrors.Wrap(apperrors.KindGateway, "decode initialize response", err)
	}
	if resp.StatusCode != http.StatusOK || !reply.Status {
		return nil, apperrors.Newf(apperrors.KindGateway, "payment initialization declined: %s", reply.Message)
	}

	return &InitializeResult{
		GatewayReference: reply.Data.Reference,
		AuthorizationURL: reply.Data.AuthorizationURL,
		RawResponse:      raw,
	}, nil
}

func (p *Paystack) Verify(ctx context.Context, reference string) (*VerifyResult, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, p.verifyURL+"/"+reference, nil)
	if err != nil {
		return nil, fmt.Errorf("verify request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+p.secretKey)

	resp, err := p.hc.Do(httpReq)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindGateway, "transaction verification failed", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindGateway, "read verify response", err)
	}

	var reply struct {
		Status bool `json:"status"`
		Data   struct {
			Status string `json:"status"`
		} `json:"data"`
	}
	if err := json.Unmarshal(raw, &reply); err != nil {
		return nil, apperrors.Wrap(apperrors.KindGateway, "decode verify response", err)
	}

	return &VerifyResult{
		Success:     resp.StatusCode == http.StatusOK && reply.Status && reply.Data.Status == "success",
		RawResponse: raw,
	}, nil
}

// VerifySignature recomputes the HMAC-SHA512 of the raw body with the
// webhook secret and compares it to the header-provided signature.
func (p *Paystack) VerifySignature(body []byte, signature string) bool {
	mac := hmac.New(sha512.New, []byte(p.webhookSecret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}
