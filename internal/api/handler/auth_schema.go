package handler

import "time"

// --- Request / Response types ---

type credentialsRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required,max=72"`
}

type registerResponse struct {
	Success  bool   `json:"success"`
	UserID   string `json:"userId,omitempty"`
	Username string `json:"username,omitempty"`
	Message  string `json:"message"`
}

type loginResponse struct {
	Success   bool       `json:"success"`
	Token     string     `json:"token"`
	TokenType string     `json:"tokenType"`
	UserID    string     `json:"userId"`
	Username  string     `json:"username"`
	Role      string     `json:"role"`
	ExpiresAt *time.Time `json:"expiresAt,omitempty"`
	Message   string     `json:"message"`
}

// verifyResponse mirrors domain.Verification for the API docs.
type verifyResponse struct {
	Valid    bool   `json:"valid"`
	Message  string `json:"message"`
	UserID   string `json:"userId,omitempty"`
	Username string `json:"username,omitempty"`
	Role     string `json:"role,omitempty"`
}

// errorResponse documents the error envelope rendered by the API error handler.
type errorResponse struct {
	Success   bool   `json:"success"`
	Code      string `json:"code"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
	RequestID string `json:"requestId,omitempty"`
}
