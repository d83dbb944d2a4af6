package payment

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "whsec_test_secret"

func testVerifier(now time.Time) *WebhookVerifier {
	v := NewWebhookVerifier(testSecret)
	v.now = func() time.Time { return now }
	return v
}

func TestVerifyAndParse(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	payload := []byte(`{
		"id": "evt_123",
		"type": "payment_intent.succeeded",
		"data": {
			"object": {
				"id": "pi_123",
				"amount": 35000,
				"metadata": {"action": "createLease", "leaseId": "lease-1"}
			}
		}
	}`)

	t.Run("valid signature round-trips", func(t *testing.T) {
		v := testVerifier(now)
		header := SignPayload(testSecret, payload, now)

		event, err := v.VerifyAndParse(payload, header)
		require.NoError(t, err)
		assert.Equal(t, "evt_123", event.ID)
		assert.Equal(t, EventIntentSucceeded, event.Type)
		assert.Equal(t, "pi_123", event.Intent.ID)
		assert.Equal(t, int64(35000), event.Intent.AmountCents)
		assert.Equal(t, "lease-1", event.Intent.Metadata["leaseId"])
	})

	t.Run("tampered body is rejected", func(t *testing.T) {
		v := testVerifier(now)
		header := SignPayload(testSecret, payload, now)

		tampered := append([]byte(nil), payload...)
		tampered[len(tampered)-2] = 'X'

		_, err := v.VerifyAndParse(tampered, header)
		assert.ErrorIs(t, err, ErrInvalidSignature)
	})

	t.Run("wrong secret is rejected", func(t *testing.T) {
		v := testVerifier(now)
		header := SignPayload("whsec_other", payload, now)

		_, err := v.VerifyAndParse(payload, header)
		assert.ErrorIs(t, err, ErrInvalidSignature)
	})

	t.Run("stale timestamp is rejected even with a valid signature", func(t *testing.T) {
		v := testVerifier(now)
		header := SignPayload(testSecret, payload, now.Add(-10*time.Minute))

		_, err := v.VerifyAndParse(payload, header)
		assert.ErrorIs(t, err, ErrStaleTimestamp)
	})

	t.Run("future timestamp outside tolerance is rejected", func(t *testing.T) {
		v := testVerifier(now)
		header := SignPayload(testSecret, payload, now.Add(10*time.Minute))

		_, err := v.VerifyAndParse(payload, header)
		assert.ErrorIs(t, err, ErrStaleTimestamp)
	})

	t.Run("signature moved to a different timestamp is rejected", func(t *testing.T) {
		v := testVerifier(now)
		header := SignPayload(testSecret, payload, now.Add(-10*time.Minute))
		// Splice a fresh timestamp onto the old signature.
		fresh := SignPayload(testSecret, payload, now)
		spliced := fresh[:len("t=1748779200")] + header[len("t=1748778600"):]

		_, err := v.VerifyAndParse(payload, spliced)
		assert.ErrorIs(t, err, ErrInvalidSignature)
	})

	t.Run("malformed headers are rejected", func(t *testing.T) {
		v := testVerifier(now)
		for _, header := range []string{
			"",
			"v1=deadbeef",
			"t=notanumber,v1=deadbeef",
			"t=1748779200",
		} {
			_, err := v.VerifyAndParse(payload, header)
			assert.ErrorIs(t, err, ErrInvalidSignature, "header %q", header)
		}
	})

	t.Run("second v1 signature is accepted during secret rotation", func(t *testing.T) {
		v := testVerifier(now)
		oldSig := SignPayload("whsec_retired", payload, now)
		goodSig := SignPayload(testSecret, payload, now)
		// header: t=...,v1=<old>,v1=<good>
		header := oldSig + ",v1=" + goodSig[len(goodSig)-64:]

		_, err := v.VerifyAndParse(payload, header)
		assert.NoError(t, err)
	})
}
