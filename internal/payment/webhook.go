package payment

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

var (
	ErrInvalidSignature = errors.New("webhook signature verification failed")
	ErrStaleTimestamp   = errors.New("webhook timestamp outside tolerance")
)

// DefaultTolerance bounds how old a signed timestamp may be. Replays older
// than this are rejected even with a valid signature.
const DefaultTolerance = 5 * time.Minute

// WebhookVerifier checks the Stripe-Signature header and parses the event.
// A forged or malformed payload must never reach the reconciler, so the
// signature is checked against the raw body before any JSON is parsed.
type WebhookVerifier struct {
	secret    []byte
	tolerance time.Duration
	now       func() time.Time
}

func NewWebhookVerifier(secret string) *WebhookVerifier {
	return &WebhookVerifier{
		secret:    []byte(secret),
		tolerance: DefaultTolerance,
		now:       time.Now,
	}
}

// VerifyAndParse authenticates the raw body against the signature header and
// only then decodes it. The header carries a unix timestamp and one or more
// v1 signatures: `t=1700000000,v1=hex(hmac-sha256(secret, "{t}.{body}"))`.
func (v *WebhookVerifier) VerifyAndParse(payload []byte, sigHeader string) (*Event, error) {
	timestamp, signatures, err := parseSignatureHeader(sigHeader)
	if err != nil {
		return nil, err
	}

	age := v.now().Sub(time.Unix(timestamp, 0))
	if age > v.tolerance || age < -v.tolerance {
		return nil, ErrStaleTimestamp
	}

	mac := hmac.New(sha256.New, v.secret)
	fmt.Fprintf(mac, "%d.", timestamp)
	mac.Write(payload)
	expected := mac.Sum(nil)

	verified := false
	for _, sig := range signatures {
		got, decErr := hex.DecodeString(sig)
		if decErr != nil {
			continue
		}
		if hmac.Equal(expected, got) {
			verified = true
			break
		}
	}
	if !verified {
		return nil, ErrInvalidSignature
	}

	var raw struct {
		ID   string `json:"id"`
		Type string `json:"type"`
		Data struct {
			Object struct {
				ID       string            `json:"id"`
				Amount   int64             `json:"amount"`
				Metadata map[string]string `json:"metadata"`
			} `json:"object"`
		} `json:"data"`
	}
	if err := json.Unmarshal(payload, &raw); err != nil {
		return nil, fmt.Errorf("decode webhook event: %w", err)
	}

	return &Event{
		ID:   raw.ID,
		Type: raw.Type,
		Intent: EventIntent{
			ID:          raw.Data.Object.ID,
			AmountCents: raw.Data.Object.Amount,
			Metadata:    raw.Data.Object.Metadata,
		},
	}, nil
}

func parseSignatureHeader(header string) (int64, []string, error) {
	if header == "" {
		return 0, nil, ErrInvalidSignature
	}

	var timestamp int64 = -1
	var signatures []string
	for _, part := range strings.Split(header, ",") {
		k, val, found := strings.Cut(strings.TrimSpace(part), "=")
		if !found {
			continue
		}
		switch k {
		case "t":
			ts, err := strconv.ParseInt(val, 10, 64)
			if err != nil {
				return 0, nil, ErrInvalidSignature
			}
			timestamp = ts
		case "v1":
			signatures = append(signatures, val)
		}
	}

	if timestamp < 0 || len(signatures) == 0 {
		return 0, nil, ErrInvalidSignature
	}
	return timestamp, signatures, nil
}

// SignPayload produces a valid signature header for the given body. Used by
// tests and local tooling to simulate gateway deliveries.
func SignPayload(secret string, payload []byte, at time.Time) string {
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.", at.Unix())
	mac.Write(payload)
	return fmt.Sprintf("t=%d,v1=%s", at.Unix(), hex.EncodeToString(mac.Sum(nil)))
}
