package domain

import "errors"

var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrUserNotFound       = errors.New("user not found")
	ErrUsernameTaken      = errors.New("username already exists")
	ErrMalformedToken     = errors.New("invalid token format")
	ErrTokenNotFound      = errors.New("token not found")
	ErrTokenExists        = errors.New("token already exists")
	ErrServiceUnavailable = errors.New("service unavailable")
	ErrUnauthorized       = errors.New("authentication required")
	ErrForbidden          = errors.New("access forbidden")
	ErrRateLimited        = errors.New("rate limit exceeded")
	ErrInvalidInput       = errors.New("invalid request")
)

// Code is the machine-readable error code carried in error responses.
type Code string

const (
	CodeInvalidCredentials Code = "INVALID_CREDENTIALS"
	CodeUserNotFound       Code = "USER_NOT_FOUND"
	CodeUsernameTaken      Code = "USERNAME_TAKEN"
	CodeMalformedToken     Code = "MALFORMED_TOKEN"
	CodeTokenInvalid       Code = "TOKEN_INVALID_OR_EXPIRED"
	CodeServiceUnavailable Code = "SERVICE_UNAVAILABLE"
	CodeUnauthorized       Code = "UNAUTHORIZED"
	CodeForbidden          Code = "FORBIDDEN"
	CodeRateLimited        Code = "RATE_LIMITED"
	CodeInvalidRequest     Code = "INVALID_REQUEST"
	CodeNotFound           Code = "NOT_FOUND"
	CodeInternal           Code = "INTERNAL_ERROR"
)
