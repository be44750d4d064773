package utils

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatInvoiceNumber(t *testing.T) {
	cases := map[int64]string{
		1:     "INV-0001",
		42:    "INV-0042",
		9999:  "INV-9999",
		10000: "INV-10000",
	}
	for seq, want := range cases {
		assert.Equal(t, want, FormatInvoiceNumber("", seq))
	}
	assert.Equal(t, "POS-0007", FormatInvoiceNumber("POS-", 7))
}

func TestNormalizePhone(t *testing.T) {
	assert.Equal(t, "0712345678", NormalizePhone(" 0712 345-678 "))
	assert.Equal(t, "+254712345678", NormalizePhone("+254 (712) 345 678"))
	assert.Equal(t, "", NormalizePhone("   "))
}

func TestPasswordHash(t *testing.T) {
	hash, err := HashPassword("s3cret")
	require.NoError(t, err)
	assert.True(t, CheckPasswordHash("s3cret", hash))
	assert.False(t, CheckPasswordHash("wrong", hash))
}

func TestJWTRoundTrip(t *testing.T) {
	m := NewJWTManager("test-secret", "tillpoint-api", time.Minute, time.Hour)
	id := uuid.New()

	access, err := m.GenerateAccessToken(id, "cashier1", []string{"cashier"})
	require.NoError(t, err)

	claims, err := m.ValidateAccessToken(access)
	require.NoError(t, err)
	assert.Equal(t, id, claims.UserID)
	assert.Equal(t, "cashier1", claims.Username)
	assert.True(t, claims.HasRole("cashier"))
	assert.False(t, claims.HasRole("admin"))

	refresh, err := m.GenerateRefreshToken(id)
	require.NoError(t, err)
	got, err := m.ValidateRefreshToken(refresh)
	require.NoError(t, err)
	assert.Equal(t, id, got)

	other := NewJWTManager("other-secret", "tillpoint-api", time.Minute, time.Hour)
	_, err = other.ValidateAccessToken(access)
	assert.Error(t, err)
}
