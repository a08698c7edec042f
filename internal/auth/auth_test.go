package auth

import (
	"errors"
	"strings"
	"testing"
	"time"

	"finarth/internal/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashAndCheckPassword(t *testing.T) {
	hash, err := HashPassword("s3cret-pass")
	require.NoError(t, err)
	assert.NotEqual(t, "s3cret-pass", hash)

	assert.NoError(t, CheckPassword(hash, "s3cret-pass"))
	assert.ErrorIs(t, CheckPassword(hash, "wrong"), core.ErrInvalidCredentials)

	other, err := HashPassword("s3cret-pass")
	require.NoError(t, err)
	assert.NotEqual(t, hash, other, "digests must be salted")
}

func TestHashPasswordTooShort(t *testing.T) {
	_, err := HashPassword("abc")
	assert.ErrorIs(t, err, core.ErrPasswordTooShort)
}

func TestHashPasswordTooLong(t *testing.T) {
	_, err := HashPassword(strings.Repeat("p", MaxPasswordLength+8))
	assert.ErrorIs(t, err, core.ErrPasswordTooLong)

	_, err = HashPassword(strings.Repeat("p", MaxPasswordLength))
	assert.NoError(t, err)
	assert.True(t, core.IsValidation(err))
}

func TestTokenRoundTrip(t *testing.T) {
	m := NewTokenManager("test-secret", time.Hour)
	tok, err := m.Issue(42)
	require.NoError(t, err)

	id, err := m.Verify(tok)
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)
}

func TestTokenRejected(t *testing.T) {
	m := NewTokenManager("test-secret", time.Hour)
	tok, err := m.Issue(7)
	require.NoError(t, err)

	other := NewTokenManager("another-secret", time.Hour)
	_, err = other.Verify(tok)
	assert.True(t, errors.Is(err, ErrInvalidToken))

	_, err = m.Verify("not.a.token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenExpired(t *testing.T) {
	m := NewTokenManager("test-secret", time.Minute)
	issued := time.Now().Add(-time.Hour)
	m.now = func() time.Time { return issued }
	tok, err := m.Issue(7)
	require.NoError(t, err)

	m.now = time.Now
	_, err = m.Verify(tok)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestNewVerificationTokenUnique(t *testing.T) {
	a, b := NewVerificationToken(), NewVerificationToken()
	assert.Len(t, a, 36)
	assert.NotEqual(t, a, b)
}
