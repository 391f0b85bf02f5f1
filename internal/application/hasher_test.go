package application_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/ericfisherdev/teampanel/internal/application"
)

func newTestBcrypt(t *testing.T) *application.BcryptHasher {
	t.Helper()
	h, err := application.NewBcryptHasher(bcrypt.MinCost)
	require.NoError(t, err)
	return h
}

func TestNewBcryptHasher_RejectsBadCost(t *testing.T) {
	_, err := application.NewBcryptHasher(bcrypt.MinCost - 1)
	assert.Error(t, err)

	_, err = application.NewBcryptHasher(bcrypt.MaxCost + 1)
	assert.Error(t, err)
}

func TestBcryptHasher_HashAndVerify(t *testing.T) {
	h := newTestBcrypt(t)

	hashed, err := h.Hash("s3cret")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(hashed, "$2a$"), "got %q", hashed)
	assert.NotContains(t, hashed, "s3cret")

	ok, needsRehash, err := h.Verify(hashed, "s3cret")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.False(t, needsRehash)

	ok, _, err = h.Verify(hashed, "wrong")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestBcryptHasher_LegacyPlaintext(t *testing.T) {
	h := newTestBcrypt(t)

	ok, needsRehash, err := h.Verify("Hallo123", "Hallo123")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, needsRehash, "plaintext values should be upgraded")

	ok, _, err = h.Verify("Hallo123", "hallo123")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestBcryptHasher_CostChangeRequestsRehash(t *testing.T) {
	hashed, err := bcrypt.GenerateFromPassword([]byte("pw"), bcrypt.MinCost+1)
	require.NoError(t, err)

	ok, needsRehash, err := newTestBcrypt(t).Verify(string(hashed), "pw")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, needsRehash)
}

func TestPlaintextHasher(t *testing.T) {
	var h application.PlaintextHasher

	stored, err := h.Hash("pw1")
	require.NoError(t, err)
	assert.Equal(t, "pw1", stored)

	ok, needsRehash, err := h.Verify("pw1", "pw1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.False(t, needsRehash)

	ok, _, _ = h.Verify("pw1", "pw2")
	assert.False(t, ok)
}
