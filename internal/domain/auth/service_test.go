package auth

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	apperrors "github.com/yanqian/photo-caption/pkg/errors"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestService(t *testing.T) Service {
	t.Helper()
	hash, err := HashPassword("pass1234")
	require.NoError(t, err)
	return NewService(Config{
		Secret:       "test-secret",
		Username:     "reviewer",
		PasswordHash: hash,
		TokenTTL:     time.Hour,
	}, newTestLogger())
}

func TestService_LoginAndValidate(t *testing.T) {
	svc := newTestService(t)

	resp, err := svc.Login(context.Background(), LoginRequest{Username: " reviewer ", Password: "pass1234"})
	require.NoError(t, err)
	require.NotEmpty(t, resp.Token)
	require.Equal(t, "reviewer", resp.Username)
	require.WithinDuration(t, time.Now().Add(time.Hour), resp.ExpiresAt, time.Minute)

	claims, err := svc.ValidateToken(context.Background(), resp.Token)
	require.NoError(t, err)
	require.Equal(t, "reviewer", claims.Username)
	require.Equal(t, tokenTypeAccess, claims.TokenType)
}

func TestService_LoginRejectsBadCredentials(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.Login(context.Background(), LoginRequest{Username: "reviewer", Password: "wrong-pass"})
	require.True(t, apperrors.IsCode(err, apperrors.CodeUnauthorized))

	_, err = svc.Login(context.Background(), LoginRequest{Username: "someone", Password: "pass1234"})
	require.True(t, apperrors.IsCode(err, apperrors.CodeUnauthorized))

	_, err = svc.Login(context.Background(), LoginRequest{Username: "reviewer"})
	require.True(t, apperrors.IsCode(err, apperrors.CodeInvalidInput))
}

func TestService_LoginNotConfigured(t *testing.T) {
	svc := NewService(Config{Username: "reviewer"}, newTestLogger())
	_, err := svc.Login(context.Background(), LoginRequest{Username: "reviewer", Password: "pass1234"})
	require.True(t, apperrors.IsCode(err, apperrors.CodeUnauthorized))
}

func TestService_ValidateTokenRejects(t *testing.T) {
	svc := newTestService(t).(*service)

	_, err := svc.ValidateToken(context.Background(), "")
	require.True(t, apperrors.IsCode(err, apperrors.CodeInvalidToken))

	_, err = svc.ValidateToken(context.Background(), "not-a-jwt")
	require.True(t, apperrors.IsCode(err, apperrors.CodeInvalidToken))

	other := NewService(Config{Secret: "other-secret", TokenTTL: time.Hour}, newTestLogger())
	foreign, err := other.IssueToken(context.Background(), "reviewer")
	require.NoError(t, err)
	_, err = svc.ValidateToken(context.Background(), foreign.Token)
	require.True(t, apperrors.IsCode(err, apperrors.CodeInvalidToken))

	issued, err := svc.IssueToken(context.Background(), "reviewer")
	require.NoError(t, err)
	svc.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err = svc.ValidateToken(context.Background(), issued.Token)
	require.True(t, apperrors.IsCode(err, apperrors.CodeInvalidToken))
}

func TestService_ValidateTokenTypeMismatch(t *testing.T) {
	svc := newTestService(t)
	claims := tokenClaims{
		Username:  "reviewer",
		TokenType: "refresh",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)

	_, err = svc.ValidateToken(context.Background(), signed)
	require.True(t, apperrors.IsCode(err, apperrors.CodeInvalidToken))
}

func TestHashPasswordRejectsShortPasswords(t *testing.T) {
	_, err := HashPassword("short")
	require.True(t, apperrors.IsCode(err, apperrors.CodeInvalidInput))
}
