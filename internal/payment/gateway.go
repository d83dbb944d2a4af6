// Package payment wraps the Stripe payment-intents API behind a small
// gateway interface: intent creation on the way out, signature-verified
// event parsing on the way back in.
package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"citycar-backend/internal/domain"
)

// Event types delivered by the gateway that the reconciler understands.
const (
	EventIntentCreated   = "payment_intent.created"
	EventIntentSucceeded = "payment_intent.succeeded"
	EventIntentFailed    = "payment_intent.payment_failed"
	EventIntentCanceled  = "payment_intent.canceled"
)

// Intent is the result of creating a payment intent: the gateway reference
// we persist and the client secret the caller completes payment with.
type Intent struct {
	ID           string
	ClientSecret string
	AmountCents  int64
}

// Event is a verified webhook delivery.
type Event struct {
	ID     string
	Type   string
	Intent EventIntent
}

// EventIntent is the payment-intent object embedded in an event.
type EventIntent struct {
	ID          string
	AmountCents int64
	Metadata    map[string]string
}

// Gateway creates payment intents. Implementations must bound outbound calls
// with a timeout; a hung gateway call may not hold a car reservation open.
type Gateway interface {
	CreateIntent(ctx context.Context, amountCents int64, metadata map[string]string) (*Intent, error)
}

const stripeAPIBase = "https://api.stripe.com"

type stripeGateway struct {
	secretKey string
	currency  string
	baseURL   string
	client    *http.Client
}

// NewStripeGateway builds a gateway speaking the payment-intents wire API.
func NewStripeGateway(secretKey, currency string, timeout time.Duration) Gateway {
	return &stripeGateway{
		secretKey: secretKey,
		currency:  currency,
		baseURL:   stripeAPIBase,
		client:    &http.Client{Timeout: timeout},
	}
}

// NewStripeGatewayWithBaseURL is for tests pointing at a local stub.
func NewStripeGatewayWithBaseURL(secretKey, currency, baseURL string, timeout time.Duration) Gateway {
	return &stripeGateway{
		secretKey: secretKey,
		currency:  currency,
		baseURL:   baseURL,
		client:    &http.Client{Timeout: timeout},
	}
}

func (g *stripeGateway) CreateIntent(ctx context.Context, amountCents int64, metadata map[string]string) (*Intent, error) {
	form := url.Values{}
	form.Set("amount", strconv.FormatInt(amountCents, 10))
	form.Set("currency", g.currency)
	form.Add("payment_method_types[]", "card")
	for k, v := range metadata {
		form.Set(fmt.Sprintf("metadata[%s]", k), v)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		g.baseURL+"/v1/payment_intents", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+g.secretKey)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: create payment intent: %v", domain.ErrUpstream, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		var apiErr struct {
			Error struct {
				Message string `json:"message"`
			} `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&apiErr)
		return nil, fmt.Errorf("%w: create payment intent: status %d: %s",
			domain.ErrUpstream, resp.StatusCode, apiErr.Error.Message)
	}

	var out struct {
		ID           string `json:"id"`
		ClientSecret string `json:"client_secret"`
		Amount       int64  `json:"amount"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("%w: decode payment intent: %v", domain.ErrUpstream, err)
	}
	if out.ID == "" {
		return nil, fmt.Errorf("%w: empty payment intent id", domain.ErrUpstream)
	}

	return &Intent{ID: out.ID, ClientSecret: out.ClientSecret, AmountCents: out.Amount}, nil
}
