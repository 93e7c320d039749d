package domain

import "time"

// AuthEventKind names an auditable authentication outcome.
type AuthEventKind string

const (
	EventLoginSucceeded AuthEventKind = "login_succeeded"
	EventLoginFailed    AuthEventKind = "login_failed"
	EventRegistered     AuthEventKind = "registered"
	EventRegisterDenied AuthEventKind = "register_denied"
)

// AuthEvent is one entry of the authentication audit trail.
type AuthEvent struct {
	Kind      AuthEventKind
	Username  string
	UserID    string
	RequestID string
	Reason    string
	Timestamp time.Time
}
