package utils

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/ecowaste-cert/internal/model"
)

func TestSessionCodecRoundTrip(t *testing.T) {
	codec, err := NewSessionCodec("secret", 7*24*time.Hour)
	require.NoError(t, err)

	in := SessionClaims{UserID: 42, Email: "john@recycletech.com", Role: model.RoleRecycler}
	tok, exp, err := codec.Issue(in)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(7*24*time.Hour), exp, 5*time.Second)

	out, ok := codec.Verify(tok)
	require.True(t, ok)
	assert.Equal(t, in, *out)
}

func TestSessionCodecRejectsTamperedSignature(t *testing.T) {
	codec, _ := NewSessionCodec("secret", time.Hour)
	tok, _, err := codec.Issue(SessionClaims{UserID: 1, Email: "a@b.co", Role: model.RoleAdmin})
	require.NoError(t, err)

	// Flip a character in the middle of the signature segment so every
	// decoded bit is significant.
	b := []byte(tok)
	i := strings.LastIndexByte(tok, '.') + 10
	if b[i] == 'A' {
		b[i] = 'B'
	} else {
		b[i] = 'A'
	}
	_, ok := codec.Verify(string(b))
	assert.False(t, ok)
}

func TestSessionCodecRejectsExpiredToken(t *testing.T) {
	codec, _ := NewSessionCodec("secret", -time.Minute)
	tok, _, err := codec.Issue(SessionClaims{UserID: 1, Email: "a@b.co", Role: model.RoleAdmin})
	require.NoError(t, err)

	_, ok := codec.Verify(tok)
	assert.False(t, ok)
}

func TestSessionCodecRejectsOtherSecretAndAlgorithms(t *testing.T) {
	a, _ := NewSessionCodec("secret-a", time.Hour)
	b, _ := NewSessionCodec("secret-b", time.Hour)
	tok, _, _ := a.Issue(SessionClaims{UserID: 9, Role: model.RoleCustomer})
	_, ok := b.Verify(tok)
	assert.False(t, ok)

	none := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"userId": 9, "exp": time.Now().Add(time.Hour).Unix()})
	raw, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, ok = a.Verify(raw)
	assert.False(t, ok)

	_, ok = a.Verify("")
	assert.False(t, ok)
	_, ok = a.Verify("garbage")
	assert.False(t, ok)
}

func TestNewSessionCodecRequiresSecret(t *testing.T) {
	_, err := NewSessionCodec("", time.Hour)
	assert.Error(t, err)
}
