package token

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMaker_IssueVerify(t *testing.T) {
	maker := NewMaker("test-secret", time.Hour, time.Minute)
	now := time.Now()

	value := maker.Issue("pay-123", now)
	require.Len(t, strings.Split(value, "."), 3)

	paymentID, err := maker.Verify(value, now.Add(30*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, "pay-123", paymentID)
}

func TestMaker_Verify_Expired(t *testing.T) {
	maker := NewMaker("test-secret", time.Hour, time.Minute)
	now := time.Now()

	value := maker.Issue("pay-123", now)

	_, err := maker.Verify(value, now.Add(time.Hour+time.Second))
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestMaker_Verify_FutureBeyondSkew(t *testing.T) {
	maker := NewMaker("test-secret", time.Hour, time.Minute)
	now := time.Now()

	value := maker.Issue("pay-123", now.Add(5*time.Minute))

	_, err := maker.Verify(value, now)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestMaker_Verify_WithinSkew(t *testing.T) {
	maker := NewMaker("test-secret", time.Hour, time.Minute)
	now := time.Now()

	value := maker.Issue("pay-123", now.Add(30*time.Second))

	_, err := maker.Verify(value, now)
	assert.NoError(t, err)
}

func TestMaker_Verify_TamperedPaymentID(t *testing.T) {
	maker := NewMaker("test-secret", time.Hour, time.Minute)
	now := time.Now()

	value := maker.Issue("pay-123", now)
	parts := strings.Split(value, ".")
	tampered := "pay-999." + parts[1] + "." + parts[2]

	_, err := maker.Verify(tampered, now)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestMaker_Verify_WrongSecret(t *testing.T) {
	now := time.Now()
	value := NewMaker("secret-a", time.Hour, time.Minute).Issue("pay-123", now)

	_, err := NewMaker("secret-b", time.Hour, time.Minute).Verify(value, now)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestMaker_Verify_Garbage(t *testing.T) {
	maker := NewMaker("test-secret", time.Hour, time.Minute)

	for _, value := range []string{"", "abc", "a.b", "a.b.c.d", ".123.sig"} {
		_, err := maker.Verify(value, time.Now())
		assert.ErrorIs(t, err, ErrInvalidToken, value)
	}
}
