package jwttoken

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "startingline/pkg/domain"
	dErrors "startingline/pkg/domain-errors"
)

var accountID = id.NewAccountID()

func newService(ttl time.Duration) *JWTService {
	return NewJWTService("test-signing-key", "test-issuer", "test-audience", ttl)
}

func Test_GenerateIdentityToken(t *testing.T) {
	svc := newService(time.Hour)
	token, err := svc.GenerateIdentityToken(accountID, "runner@example.com", "participant")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, accountID.String(), claims.AccountID)
	assert.Equal(t, accountID.String(), claims.Subject)
	assert.Equal(t, "runner@example.com", claims.Email)
	assert.Equal(t, "participant", claims.Role)
	assert.WithinDuration(t, time.Now().Add(time.Hour), claims.ExpiresAt.Time, time.Minute)
}

func Test_ValidateToken_InvalidToken(t *testing.T) {
	_, err := newService(time.Hour).ValidateToken("invalid-token-string")
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
	assert.Equal(t, "invalid token", dErrors.MessageOf(err))
}

func Test_ValidateToken_ExpiredToken(t *testing.T) {
	svc := newService(-time.Hour)
	token, err := svc.GenerateIdentityToken(accountID, "runner@example.com", "participant")
	require.NoError(t, err)

	_, err = svc.ValidateToken(token)
	require.Error(t, err)
	assert.Equal(t, "token has expired", dErrors.MessageOf(err))
}

func Test_ValidateToken_WrongKey(t *testing.T) {
	token, err := newService(time.Hour).GenerateIdentityToken(accountID, "runner@example.com", "participant")
	require.NoError(t, err)

	other := NewJWTService("another-key", "test-issuer", "test-audience", time.Hour)
	_, err = other.ValidateToken(token)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func Test_ValidateToken_WrongAudience(t *testing.T) {
	token, err := newService(time.Hour).GenerateIdentityToken(accountID, "runner@example.com", "participant")
	require.NoError(t, err)

	other := NewJWTService("test-signing-key", "test-issuer", "someone-else", time.Hour)
	_, err = other.ValidateToken(token)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func Test_Adapter(t *testing.T) {
	svc := newService(time.Hour)
	token, err := svc.GenerateIdentityToken(accountID, "org@example.com", "organiser")
	require.NoError(t, err)

	claims, err := NewJWTServiceAdapter(svc).ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, accountID.String(), claims.AccountID)
	assert.Equal(t, "organiser", claims.Role)
}
