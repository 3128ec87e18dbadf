package auth

import (
	"testing"
	"time"

	"github.com/erp/reconciliation/internal/infrastructure/config"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-key-at-least-32-chars"

func newTestJWTService() *JWTService {
	return NewJWTService(config.JWTConfig{Secret: testSecret, Issuer: "reconciliation-test"})
}

func TestJWTService_GenerateAndValidate(t *testing.T) {
	svc := newTestJWTService()
	userID := uuid.New()

	token, expiresAt, err := svc.GenerateToken(GenerateTokenInput{
		UserID:      userID,
		Username:    "clerk",
		Permissions: []string{PermissionPaymentRecord},
		TTL:         15 * time.Minute,
	})
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(15*time.Minute), expiresAt, 5*time.Second)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, userID.String(), claims.UserID)
	assert.Equal(t, "clerk", claims.Actor())
	assert.True(t, claims.HasPermission(PermissionPaymentRecord))
	assert.False(t, claims.HasPermission(PermissionPaymentReverse))
}

func TestJWTService_ValidateToken_Rejections(t *testing.T) {
	svc := newTestJWTService()

	sign := func(t *testing.T, method jwt.SigningMethod, key any, claims *Claims) string {
		t.Helper()
		s, err := jwt.NewWithClaims(method, claims).SignedString(key)
		require.NoError(t, err)
		return s
	}
	base := func(mod func(c *Claims)) *Claims {
		now := time.Now()
		c := &Claims{
			RegisteredClaims: jwt.RegisteredClaims{
				Issuer:    "reconciliation-test",
				ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
				IssuedAt:  jwt.NewNumericDate(now),
			},
			UserID: uuid.NewString(),
		}
		if mod != nil {
			mod(c)
		}
		return c
	}

	tests := []struct {
		name    string
		token   string
		wantErr error
	}{
		{"garbage", "not-a-token", ErrInvalidToken},
		{"wrong secret", sign(t, jwt.SigningMethodHS256, []byte("another-secret-of-sufficient-size"), base(nil)), ErrInvalidToken},
		{"wrong algorithm", sign(t, jwt.SigningMethodHS512, []byte(testSecret), base(nil)), ErrInvalidToken},
		{"wrong issuer", sign(t, jwt.SigningMethodHS256, []byte(testSecret), base(func(c *Claims) { c.Issuer = "elsewhere" })), ErrInvalidToken},
		{"expired", sign(t, jwt.SigningMethodHS256, []byte(testSecret), base(func(c *Claims) {
			c.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Minute))
		})), ErrExpiredToken},
		{"not yet valid", sign(t, jwt.SigningMethodHS256, []byte(testSecret), base(func(c *Claims) {
			c.NotBefore = jwt.NewNumericDate(time.Now().Add(time.Hour))
		})), ErrTokenNotYetValid},
		{"missing user", sign(t, jwt.SigningMethodHS256, []byte(testSecret), base(func(c *Claims) { c.UserID = "" })), ErrMissingUserID},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.ValidateToken(tt.token)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestClaims(t *testing.T) {
	c := &Claims{UserID: "u-1", Permissions: []string{"*"}}
	assert.Equal(t, "u-1", c.Actor())
	assert.True(t, c.HasPermission(PermissionCreditApply))
}
