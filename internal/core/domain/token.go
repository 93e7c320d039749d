package domain

import "time"

// TokenTypeBearer is the scheme tokens are presented with.
const TokenTypeBearer = "Bearer"

// AuthToken is the persisted record behind a bearer token. UserID is a weak
// reference; the user may have been removed since issuance.
type AuthToken struct {
	Token     string     `json:"token"`
	UserID    string     `json:"user_id"`
	IssuedAt  time.Time  `json:"issued_at"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"` // nil never expires
}

// ExpiredAt reports whether the token is past its expiry at now.
func (t *AuthToken) ExpiredAt(now time.Time) bool {
	return t.ExpiresAt != nil && t.ExpiresAt.Before(now)
}

// Verification is the answer to "is this token valid". Invalid and expired
// tokens are normal outcomes carried in Valid/Message, not errors.
type Verification struct {
	Valid    bool   `json:"valid"`
	Message  string `json:"message"`
	UserID   string `json:"userId,omitempty"`
	Username string `json:"username,omitempty"`
	Role     string `json:"role,omitempty"`
}

const (
	MsgTokenValid          = "Token is valid"
	MsgTokenInvalid        = "Invalid token"
	MsgTokenExpired        = "Token expired"
	MsgTokenFormat         = "Invalid token format"
	MsgTokenUserNotFound   = "User not found"
	MsgServiceUnavailable  = "service unavailable"
	MsgAuthUnavailable     = "Authentication service unavailable"
	MsgMissingBearerHeader = "Missing or invalid Authorization header"
)

const bearerPrefix = TokenTypeBearer + " "

// BearerToken extracts the token from an Authorization header value. It
// reports false when the "Bearer " prefix is missing or the token is empty.
func BearerToken(header string) (string, bool) {
	if len(header) <= len(bearerPrefix) || header[:len(bearerPrefix)] != bearerPrefix {
		return "", false
	}
	token := header[len(bearerPrefix):]
	for _, r := range token {
		if r == ' ' || r == '\t' {
			return "", false
		}
	}
	return token, true
}
