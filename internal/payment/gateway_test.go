package payment

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"citycar-backend/internal/domain"
)

func TestStripeGateway_CreateIntent(t *testing.T) {
	ctx := context.Background()

	t.Run("posts the form and decodes the intent", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/v1/payment_intents", r.URL.Path)
			assert.Equal(t, "Bearer sk_test_123", r.Header.Get("Authorization"))
			require.NoError(t, r.ParseForm())
			assert.Equal(t, "35000", r.PostForm.Get("amount"))
			assert.Equal(t, "usd", r.PostForm.Get("currency"))
			assert.Equal(t, "lease-1", r.PostForm.Get("metadata[leaseId]"))

			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"id":"pi_123","client_secret":"pi_123_secret","amount":35000}`))
		}))
		defer srv.Close()

		gw := NewStripeGatewayWithBaseURL("sk_test_123", "usd", srv.URL, 5*time.Second)
		intent, err := gw.CreateIntent(ctx, 35000, map[string]string{"leaseId": "lease-1"})
		require.NoError(t, err)
		assert.Equal(t, "pi_123", intent.ID)
		assert.Equal(t, "pi_123_secret", intent.ClientSecret)
		assert.Equal(t, int64(35000), intent.AmountCents)
	})

	t.Run("maps API errors to the upstream sentinel", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusPaymentRequired)
			_, _ = w.Write([]byte(`{"error":{"message":"Your card was declined."}}`))
		}))
		defer srv.Close()

		gw := NewStripeGatewayWithBaseURL("sk_test_123", "usd", srv.URL, 5*time.Second)
		_, err := gw.CreateIntent(ctx, 35000, nil)
		assert.ErrorIs(t, err, domain.ErrUpstream)
		assert.Contains(t, err.Error(), "card was declined")
	})

	t.Run("maps transport failures to the upstream sentinel", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
		srv.Close() // connection refused

		gw := NewStripeGatewayWithBaseURL("sk_test_123", "usd", srv.URL, time.Second)
		_, err := gw.CreateIntent(ctx, 35000, nil)
		assert.ErrorIs(t, err, domain.ErrUpstream)
	})
}
