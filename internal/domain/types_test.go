package domain_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/biorbit/biorbit/internal/domain"
)

func TestParseAddress(t *testing.T) {
	t.Run("checksums lowercase input", func(t *testing.T) {
		addr, err := domain.ParseAddress("0x5aaeb6053f3e94c9b9a09f33669435e7ef1beaed")
		require.NoError(t, err)
		assert.Equal(t, "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed", addr.String())
	})

	t.Run("accepts input without 0x prefix", func(t *testing.T) {
		addr, err := domain.ParseAddress("5aaeb6053f3e94c9b9a09f33669435e7ef1beaed")
		require.NoError(t, err)
		assert.Equal(t, "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed", addr.String())
	})

	t.Run("rejects malformed input", func(t *testing.T) {
		for _, s := range []string{"", "0x123", "not-an-address", "0xZZaeb6053f3e94c9b9a09f33669435e7ef1beaed"} {
			_, err := domain.ParseAddress(s)
			assert.ErrorIs(t, err, domain.ErrInvalidAddress, s)
		}
	})

	t.Run("zero address detection", func(t *testing.T) {
		addr, err := domain.ParseAddress("0x0000000000000000000000000000000000000000")
		require.NoError(t, err)
		assert.True(t, addr.IsZero())
		assert.True(t, domain.Address("").IsZero())
		assert.False(t, domain.MustAddress("0x1111111111111111111111111111111111111111").IsZero())
	})
}

func TestAmount(t *testing.T) {
	t.Run("parses decimal strings", func(t *testing.T) {
		a, err := domain.NewAmount("1000000000000000000")
		require.NoError(t, err)
		assert.Equal(t, "1000000000000000000", a.String())
		assert.False(t, a.IsZero())

		zero, err := domain.NewAmount("0")
		require.NoError(t, err)
		assert.True(t, zero.IsZero())
		assert.True(t, domain.ZeroAmount().IsZero())
	})

	t.Run("rejects invalid input", func(t *testing.T) {
		for _, s := range []string{"", "-1", "1.5", "1e18", "abc"} {
			_, err := domain.NewAmount(s)
			assert.ErrorIs(t, err, domain.ErrInvalidAmount, s)
		}
	})

	t.Run("comparison and addition", func(t *testing.T) {
		small := domain.MustAmount("500")
		large := domain.MustAmount("1000")
		assert.Equal(t, -1, small.Cmp(large))
		assert.Equal(t, 1, large.Cmp(small))
		assert.True(t, small.Equal(domain.MustAmount("500")))
		assert.Equal(t, "1500", small.Add(large).String())
		// Add must not mutate its operands
		assert.Equal(t, "500", small.String())
	})

	t.Run("json round trip as decimal string", func(t *testing.T) {
		raw, err := json.Marshal(domain.MustAmount("123456789012345678901234567890"))
		require.NoError(t, err)
		assert.Equal(t, `"123456789012345678901234567890"`, string(raw))

		var back domain.Amount
		require.NoError(t, json.Unmarshal(raw, &back))
		assert.Equal(t, "123456789012345678901234567890", back.String())

		assert.Error(t, json.Unmarshal([]byte(`"-5"`), &back))
	})

	t.Run("sql scan variants", func(t *testing.T) {
		var a domain.Amount
		require.NoError(t, a.Scan("42"))
		assert.Equal(t, "42", a.String())
		require.NoError(t, a.Scan([]byte("43")))
		assert.Equal(t, "43", a.String())
		require.NoError(t, a.Scan(int64(44)))
		assert.Equal(t, "44", a.String())
		require.NoError(t, a.Scan(nil))
		assert.True(t, a.IsZero())
		assert.Error(t, a.Scan(3.14))
	})
}

func TestIsValidRole(t *testing.T) {
	assert.True(t, domain.IsValidRole(domain.RoleAdmin))
	assert.True(t, domain.IsValidRole(domain.RoleDefaultAdmin))
	assert.False(t, domain.IsValidRole("minter"))
}

func TestNewEvent(t *testing.T) {
	ts := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	payload := map[string]any{"area_id": 0, "name": "Yasuni"}

	t.Run("digest is stable across key order", func(t *testing.T) {
		ev1, err := domain.NewEvent("01JG8XAMPLE1234567890123456", domain.EventAreaRegistered, "tx-1", ts, payload)
		require.NoError(t, err)
		ev2, err := domain.NewEvent("01JG8XAMPLE0000000000000000", domain.EventAreaRegistered, "tx-2", ts, map[string]any{"name": "Yasuni", "area_id": 0})
		require.NoError(t, err)

		assert.Len(t, ev1.Digest, 64)
		assert.Equal(t, ev1.Digest, ev2.Digest)
	})

	t.Run("digest changes with payload", func(t *testing.T) {
		ev1, err := domain.NewEvent("01JG8XAMPLE1234567890123456", domain.EventAreaRegistered, "tx-1", ts, payload)
		require.NoError(t, err)
		ev2, err := domain.NewEvent("01JG8XAMPLE1234567890123456", domain.EventAreaRegistered, "tx-1", ts, map[string]any{"area_id": 1, "name": "Yasuni"})
		require.NoError(t, err)
		assert.NotEqual(t, ev1.Digest, ev2.Digest)
	})

	t.Run("rejects unmarshalable payloads", func(t *testing.T) {
		_, err := domain.NewEvent("01JG8XAMPLE1234567890123456", domain.EventAreaRegistered, "tx-1", ts, make(chan int))
		assert.Error(t, err)
	})
}

func TestIsValidEventType(t *testing.T) {
	assert.True(t, domain.IsValidEventType(domain.EventAreaRegistered))
	assert.True(t, domain.IsValidEventType(domain.EventImageSold))
	assert.False(t, domain.IsValidEventType("area.deleted"))
}
