package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/npremz/astrobackoffice/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSecret = []byte("invitation-secret")

func TestInvitationToken_RoundTrip(t *testing.T) {
	t.Parallel()

	now := time.Now()
	tok, err := GenerateInvitationToken("inv-1", "new@example.com", testSecret, now, now.Add(time.Hour))
	require.NoError(t, err)

	claims, err := ParseInvitationToken(tok, testSecret, now)
	require.NoError(t, err)
	assert.Equal(t, "inv-1", claims.ID)
	assert.Equal(t, "new@example.com", claims.Email)
}

func TestParseInvitationToken_Expired(t *testing.T) {
	t.Parallel()

	now := time.Now()
	tok, err := GenerateInvitationToken("inv-1", "new@example.com", testSecret, now.Add(-2*time.Hour), now.Add(-time.Hour))
	require.NoError(t, err)

	_, err = ParseInvitationToken(tok, testSecret, now)
	assert.ErrorIs(t, err, common.ErrTokenExpired)
}

func TestParseInvitationToken_ClockIsInjected(t *testing.T) {
	t.Parallel()

	now := time.Now()
	tok, err := GenerateInvitationToken("inv-1", "new@example.com", testSecret, now, now.Add(time.Hour))
	require.NoError(t, err)

	_, err = ParseInvitationToken(tok, testSecret, now.Add(2*time.Hour))
	assert.ErrorIs(t, err, common.ErrTokenExpired)
}

func TestParseInvitationToken_Rejects(t *testing.T) {
	t.Parallel()

	now := time.Now()
	good, err := GenerateInvitationToken("inv-1", "new@example.com", testSecret, now, now.Add(time.Hour))
	require.NoError(t, err)

	noneAlg, err := jwt.NewWithClaims(jwt.SigningMethodNone, InvitationClaims{
		RegisteredClaims: jwt.RegisteredClaims{ID: "inv-1", Issuer: invitationIssuer, ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour))},
		Email:            "new@example.com",
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	foreignIssuer, err := jwt.NewWithClaims(jwt.SigningMethodHS256, InvitationClaims{
		RegisteredClaims: jwt.RegisteredClaims{ID: "inv-1", Issuer: "someone-else", ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour))},
		Email:            "new@example.com",
	}).SignedString(testSecret)
	require.NoError(t, err)

	noExpiry, err := jwt.NewWithClaims(jwt.SigningMethodHS256, InvitationClaims{
		RegisteredClaims: jwt.RegisteredClaims{ID: "inv-1", Issuer: invitationIssuer},
		Email:            "new@example.com",
	}).SignedString(testSecret)
	require.NoError(t, err)

	noEmail, err := GenerateInvitationToken("inv-1", "", testSecret, now, now.Add(time.Hour))
	require.NoError(t, err)

	cases := map[string]struct {
		token  string
		secret []byte
	}{
		"wrong secret":   {good, []byte("other")},
		"malformed":      {"not.a.jwt", testSecret},
		"alg none":       {noneAlg, testSecret},
		"foreign issuer": {foreignIssuer, testSecret},
		"no expiry":      {noExpiry, testSecret},
		"no email":       {noEmail, testSecret},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseInvitationToken(tc.token, tc.secret, now)
			assert.ErrorIs(t, err, common.ErrInvalidToken)
		})
	}
}
