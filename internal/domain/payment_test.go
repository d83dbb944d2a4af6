package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseIntentMetadata(t *testing.T) {
	start := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	t.Run("createLease round-trips", func(t *testing.T) {
		in := CreateLeaseIntent{
			UserID:    "user-1",
			CarID:     "car-1",
			LeaseID:   "lease-1",
			Email:     "u@test.com",
			StartDate: start,
			EndDate:   start.AddDate(0, 0, 7),
		}
		out, err := ParseIntentMetadata(in.Encode())
		require.NoError(t, err)
		parsed, ok := out.(CreateLeaseIntent)
		require.True(t, ok)
		assert.Equal(t, in.LeaseID, parsed.LeaseID)
		assert.True(t, parsed.StartDate.Equal(in.StartDate))
		assert.True(t, parsed.EndDate.Equal(in.EndDate))
		assert.Equal(t, "lease-1", out.LeaseRef())
	})

	t.Run("extendLease round-trips", func(t *testing.T) {
		in := ExtendLeaseIntent{
			UserID:         "user-1",
			CarID:          "car-1",
			LeaseID:        "lease-1",
			Email:          "u@test.com",
			AdditionalDays: 3,
			NewEndDate:     start.AddDate(0, 0, 10),
		}
		out, err := ParseIntentMetadata(in.Encode())
		require.NoError(t, err)
		parsed, ok := out.(ExtendLeaseIntent)
		require.True(t, ok)
		assert.Equal(t, 3, parsed.AdditionalDays)
		assert.True(t, parsed.NewEndDate.Equal(in.NewEndDate))
	})

	t.Run("unknown action is rejected", func(t *testing.T) {
		_, err := ParseIntentMetadata(map[string]string{"action": "refund"})
		assert.True(t, IsValidation(err))
	})

	t.Run("missing ids are rejected", func(t *testing.T) {
		meta := CreateLeaseIntent{
			UserID:    "user-1",
			CarID:     "car-1",
			StartDate: start,
			EndDate:   start.AddDate(0, 0, 7),
		}.Encode()
		delete(meta, "leaseId")
		_, err := ParseIntentMetadata(meta)
		assert.True(t, IsValidation(err))
	})

	t.Run("non-positive additional days are rejected", func(t *testing.T) {
		meta := ExtendLeaseIntent{
			UserID:         "user-1",
			CarID:          "car-1",
			LeaseID:        "lease-1",
			AdditionalDays: 1,
			NewEndDate:     start,
		}.Encode()
		meta["additionalDays"] = "0"
		_, err := ParseIntentMetadata(meta)
		assert.True(t, IsValidation(err))
	})
}
