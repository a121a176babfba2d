//go:build unit

package jwt_test

import (
	"testing"
	"time"

	"roombook/internal/pkg/jwt"

	gojwt "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestService_ValidateToken(t *testing.T) {
	svc := jwt.NewService("secret", time.Hour)
	userID := uuid.New()
	valid, err := svc.GenerateToken(userID)
	require.NoError(t, err)
	expired, err := jwt.NewService("secret", -time.Minute).GenerateToken(userID)
	require.NoError(t, err)
	foreign, err := jwt.NewService("other", time.Hour).GenerateToken(userID)
	require.NoError(t, err)
	noUser, err := gojwt.NewWithClaims(gojwt.SigningMethodHS256, gojwt.MapClaims{"exp": time.Now().Add(time.Hour).Unix()}).
		SignedString([]byte("secret"))
	require.NoError(t, err)

	testCases := []struct {
		name    string
		token   string
		wantErr error
	}{
		{name: "success: valid token", token: valid},
		{name: "error: expired", token: expired, wantErr: jwt.ErrExpiredToken},
		{name: "error: wrong key", token: foreign, wantErr: jwt.ErrInvalidToken},
		{name: "error: no user id", token: noUser, wantErr: jwt.ErrInvalidToken},
		{name: "error: garbage", token: "not.a.token", wantErr: jwt.ErrInvalidToken},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			claims, err := svc.ValidateToken(tc.token)
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, userID, claims.UserID)
		})
	}
}
