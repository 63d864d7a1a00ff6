package auth

import "time"

// Config drives authentication behavior. PasswordHash is a bcrypt hash of
// the reviewer password.
type Config struct {
	Secret       string
	Username     string
	PasswordHash string
	TokenTTL     time.Duration
}

// LoginRequest captures login details.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResponse returns the signed token.
type LoginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
	Username  string    `json:"username"`
}

// Claims are extracted from the JWT token.
type Claims struct {
	Username  string
	TokenType string
	ExpiresAt time.Time
}
