package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// Gateway is the payment processor surface the services depend on. The real
// implementation talks to Mercado Pago; tests substitute a stub.
type Gateway interface {
	CreatePreference(ctx context.Context, req *PreferenceRequest) (*Preference, error)
	GetPayment(ctx context.Context, paymentID string) (*Payment, error)
	CreateRefund(ctx context.Context, paymentID string, amountCents int64) (*Refund, error)
	CreatePixTransfer(ctx context.Context, req *PixTransferRequest) (*PixTransfer, error)
}

type PreferenceItem struct {
	Title      string  `json:"title"`
	Quantity   int     `json:"quantity"`
	UnitPrice  float64 `json:"unit_price"`
	CurrencyID string  `json:"currency_id"`
}

type PreferenceRequest struct {
	Items             []PreferenceItem `json:"items"`
	ExternalReference string           `json:"external_reference"`
	NotificationURL   string           `json:"notification_url,omitempty"`
	Expires           bool             `json:"expires"`
	ExpirationDateTo  *time.Time       `json:"expiration_date_to,omitempty"`
}

type Preference struct {
	ID               string `json:"id"`
	InitPoint        string `json:"init_point"`
	SandboxInitPoint string `json:"sandbox_init_point"`
}

type Payment struct {
	ID                string
	Status            string
	StatusDetail      string
	ExternalReference string
	TransactionAmount int64
	NetReceivedAmount int64
	FeeAmount         int64
	PaymentMethodID   string
	PaymentTypeID     string
	CurrencyID        string
}

type Refund struct {
	ID     string
	Status string
	Amount int64
}

type PixTransferRequest struct {
	IdempotencyKey string
	PixKey         string
	PixKeyType     string
	AmountCents    int64
	Description    string
}

type PixTransfer struct {
	TransactionID string
	EndToEndID    string
	Status        string
	ReceiptURL    *string
}

type mercadoPago struct {
	baseURL     string
	accessToken string
	client      *http.Client
	log         *zap.Logger
}

func NewMercadoPago(baseURL, accessToken string, log *zap.Logger) Gateway {
	return &mercadoPago{
		baseURL:     baseURL,
		accessToken: accessToken,
		client:      &http.Client{Timeout: 15 * time.Second},
		log:         log.With(zap.String("gateway", "mercadopago")),
	}
}

// CentsToReais converts centavos to the decimal reais the API expects.
func CentsToReais(cents int64) float64 {
	return float64(cents) / 100
}

// ReaisToCents converts a decimal reais amount back to centavos, rounding
// half up so 0.015 becomes 2.
func ReaisToCents(reais float64) int64 {
	return int64(math.Floor(reais*100 + 0.5))
}

func (g *mercadoPago) do(ctx context.Context, method, path string, body any, idempotencyKey string, out any) error {
	var reqBody io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request body: %w", err)
		}
		reqBody = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, g.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+g.accessToken)
	req.Header.Set("Content-Type", "application/json")
	if idempotencyKey != "" {
		req.Header.Set("X-Idempotency-Key", idempotencyKey)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("call %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response from %s: %w", path, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		g.log.Error("Gateway request failed",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", resp.StatusCode),
			zap.ByteString("body", raw),
		)
		return fmt.Errorf("%s %s returned status %d", method, path, resp.StatusCode)
	}

	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("decode response from %s: %w", path, err)
		}
	}

	return nil
}

func (g *mercadoPago) CreatePreference(ctx context.Context, req *PreferenceRequest) (*Preference, error) {
	var pref Preference
	if err := g.do(ctx, http.MethodPost, "/checkout/preferences", req, "", &pref); err != nil {
		return nil, err
	}

	g.log.Info("Checkout preference created",
		zap.String("preference_id", pref.ID),
		zap.String("external_reference", req.ExternalReference),
	)

	return &pref, nil
}

// paymentResponse mirrors the API payload. Amounts arrive as decimal reais
// and are converted to centavos once here.
type paymentResponse struct {
	ID                json.Number `json:"id"`
	Status            string      `json:"status"`
	StatusDetail      string      `json:"status_detail"`
	ExternalReference string      `json:"external_reference"`
	TransactionAmount float64     `json:"transaction_amount"`
	PaymentMethodID   string      `json:"payment_method_id"`
	PaymentTypeID     string      `json:"payment_type_id"`
	CurrencyID        string      `json:"currency_id"`
	TransactionDetails struct {
		NetReceivedAmount float64 `json:"net_received_amount"`
	} `json:"transaction_details"`
	FeeDetails []struct {
		Amount float64 `json:"amount"`
	} `json:"fee_details"`
}

func (g *mercadoPago) GetPayment(ctx context.Context, paymentID string) (*Payment, error) {
	var resp paymentResponse
	if err := g.do(ctx, http.MethodGet, "/v1/payments/"+paymentID, nil, "", &resp); err != nil {
		return nil, err
	}

	var feeCents int64
	for _, fee := range resp.FeeDetails {
		feeCents += ReaisToCents(fee.Amount)
	}

	return &Payment{
		ID:                resp.ID.String(),
		Status:            resp.Status,
		StatusDetail:      resp.StatusDetail,
		ExternalReference: resp.ExternalReference,
		TransactionAmount: ReaisToCents(resp.TransactionAmount),
		NetReceivedAmount: ReaisToCents(resp.TransactionDetails.NetReceivedAmount),
		FeeAmount:         feeCents,
		PaymentMethodID:   resp.PaymentMethodID,
		PaymentTypeID:     resp.PaymentTypeID,
		CurrencyID:        resp.CurrencyID,
	}, nil
}

func (g *mercadoPago) CreateRefund(ctx context.Context, paymentID string, amountCents int64) (*Refund, error) {
	var body map[string]any
	if amountCents > 0 {
		body = map[string]any{"amount": CentsToReais(amountCents)}
	}

	var resp struct {
		ID     json.Number `json:"id"`
		Status string      `json:"status"`
		Amount float64     `json:"amount"`
	}
	if err := g.do(ctx, http.MethodPost, "/v1/payments/"+paymentID+"/refunds", body, "refund-"+paymentID, &resp); err != nil {
		return nil, err
	}

	g.log.Info("Refund created",
		zap.String("payment_id", paymentID),
		zap.Int64("amount_cents", amountCents),
		zap.String("refund_status", resp.Status),
	)

	return &Refund{
		ID:     resp.ID.String(),
		Status: resp.Status,
		Amount: ReaisToCents(resp.Amount),
	}, nil
}

func (g *mercadoPago) CreatePixTransfer(ctx context.Context, req *PixTransferRequest) (*PixTransfer, error) {
	body := map[string]any{
		"pix_key":      req.PixKey,
		"pix_key_type": req.PixKeyType,
		"amount":       CentsToReais(req.AmountCents),
		"description":  req.Description,
	}

	var resp struct {
		TransactionID string  `json:"transaction_id"`
		EndToEndID    string  `json:"end_to_end_id"`
		Status        string  `json:"status"`
		ReceiptURL    *string `json:"receipt_url"`
	}
	if err := g.do(ctx, http.MethodPost, "/v1/pix/transfers", body, req.IdempotencyKey, &resp); err != nil {
		return nil, err
	}

	g.log.Info("PIX transfer sent",
		zap.String("transaction_id", resp.TransactionID),
		zap.Int64("amount_cents", req.AmountCents),
	)

	return &PixTransfer{
		TransactionID: resp.TransactionID,
		EndToEndID:    resp.EndToEndID,
		Status:        resp.Status,
		ReceiptURL:    resp.ReceiptURL,
	}, nil
}
