package utils

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/mercadopago/sdk-go/pkg/config"
	"github.com/mercadopago/sdk-go/pkg/payment"
	"github.com/mercadopago/sdk-go/pkg/preference"
)

const defaultPayerEmail = "cliente@compareeconomize.com"

type CheckoutItem struct {
	Title     string
	UnitPrice float64
}

type Checkout struct {
	Item              CheckoutItem
	ExternalReference string
	PayerEmail        string
	SuccessURL        string
	FailureURL        string
	PendingURL        string
	NotificationURL   string
	Metadata          map[string]any
}

type PaymentInfo struct {
	ID                int
	Status            string
	ExternalReference string
	Metadata          map[string]any
}

// PaymentGateway creates hosted checkouts and looks up payments.
type PaymentGateway interface {
	CreateCheckout(ctx context.Context, c Checkout) (initPoint string, err error)
	GetPayment(ctx context.Context, id int) (PaymentInfo, error)
}

type MercadoPago struct {
	preferences preference.Client
	payments    payment.Client
	sandbox     bool
}

func NewMercadoPago(accessToken string, sandbox bool) (*MercadoPago, error) {
	cfg, err := config.New(accessToken)
	if err != nil {
		return nil, fmt.Errorf("mercadopago config: %w", err)
	}
	return &MercadoPago{
		preferences: preference.NewClient(cfg),
		payments:    payment.NewClient(cfg),
		sandbox:     sandbox,
	}, nil
}

func (m *MercadoPago) CreateCheckout(ctx context.Context, c Checkout) (string, error) {
	email := strings.TrimSpace(c.PayerEmail)
	if email == "" {
		email = defaultPayerEmail
	}
	req := preference.Request{
		Items: []preference.ItemRequest{{
			Title:      c.Item.Title,
			Quantity:   1,
			CurrencyID: "BRL",
			UnitPrice:  c.Item.UnitPrice,
		}},
		ExternalReference: c.ExternalReference,
		BackURLs: &preference.BackURLsRequest{
			Success: c.SuccessURL,
			Failure: c.FailureURL,
			Pending: c.PendingURL,
		},
		Payer:           &preference.PayerRequest{Email: email},
		Metadata:        c.Metadata,
		NotificationURL: c.NotificationURL,
	}
	resp, err := m.preferences.Create(ctx, req)
	if err != nil {
		return "", err
	}
	initPoint := resp.InitPoint
	if (m.sandbox && resp.SandboxInitPoint != "") || initPoint == "" {
		initPoint = resp.SandboxInitPoint
	}
	if initPoint == "" {
		return "", errors.New("Mercado Pago não retornou init_point")
	}
	return initPoint, nil
}

func (m *MercadoPago) GetPayment(ctx context.Context, id int) (PaymentInfo, error) {
	resp, err := m.payments.Get(ctx, id)
	if err != nil {
		return PaymentInfo{}, err
	}
	return PaymentInfo{
		ID:                resp.ID,
		Status:            resp.Status,
		ExternalReference: resp.ExternalReference,
		Metadata:          resp.Metadata,
	}, nil
}

// VerifyWebhookSignature checks an x-signature header ("ts=...,v1=...") against
// the manifest "id:<dataID>;request-id:<requestID>;ts:<ts>;".
func VerifyWebhookSignature(secret, header, requestID, dataID string) bool {
	if header == "" || requestID == "" {
		return false
	}
	var ts, v1 string
	for _, part := range strings.Split(header, ",") {
		k, v, ok := strings.Cut(part, "=")
		if !ok {
			return false
		}
		switch strings.TrimSpace(k) {
		case "ts":
			ts = strings.TrimSpace(v)
		case "v1":
			v1 = strings.TrimSpace(v)
		}
	}
	if ts == "" || v1 == "" {
		return false
	}
	want := SignWebhook(secret, requestID, dataID, ts)
	return hmac.Equal([]byte(want), []byte(strings.ToLower(v1)))
}

func SignWebhook(secret, requestID, dataID, ts string) string {
	manifest := fmt.Sprintf("id:%s;request-id:%s;ts:%s;", strings.ToLower(dataID), requestID, ts)
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(manifest))
	return hex.EncodeToString(mac.Sum(nil))
}
