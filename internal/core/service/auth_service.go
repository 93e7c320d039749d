package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/99minutos/trustgate/internal/core/domain"
	"github.com/99minutos/trustgate/internal/core/ports"
	"github.com/99minutos/trustgate/internal/pkg/metrics"
	"github.com/99minutos/trustgate/pkg/logger"
)

// DefaultTokenTTL is the lifetime of tokens issued at login.
const DefaultTokenTTL = 8 * time.Hour

const mintAttempts = 3

// MaxPasswordBytes is the longest password bcrypt accepts.
const MaxPasswordBytes = 72

// Options tunes an AuthService. The zero value is usable.
type Options struct {
	// TokenTTL is the token lifetime. Zero means DefaultTokenTTL; a negative
	// value issues tokens without expiry.
	TokenTTL time.Duration
	// HideUnknownUsers reports unknown usernames as ErrInvalidCredentials
	// instead of ErrUserNotFound at login.
	HideUnknownUsers bool
	Events           ports.AuthEventRecorder
	Log              zerolog.Logger
	Now              func() time.Time
}

// AuthService implements registration, token issuance and verification.
type AuthService struct {
	users  ports.CredentialStore
	tokens ports.TokenStore
	codec  *TokenCodec

	tokenTTL         time.Duration
	hideUnknownUsers bool
	events           ports.AuthEventRecorder
	log              zerolog.Logger
	now              func() time.Time
}

var _ ports.AuthService = (*AuthService)(nil)

func NewAuthService(users ports.CredentialStore, tokens ports.TokenStore, codec *TokenCodec, opts Options) *AuthService {
	if opts.TokenTTL == 0 {
		opts.TokenTTL = DefaultTokenTTL
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if codec == nil {
		codec = NewTokenCodec("")
	}
	return &AuthService{
		users:            users,
		tokens:           tokens,
		codec:            codec,
		tokenTTL:         opts.TokenTTL,
		hideUnknownUsers: opts.HideUnknownUsers,
		events:           opts.Events,
		log:              opts.Log,
		now:              opts.Now,
	}
}

// Register creates a USER account. A taken username is reported through the
// result, not as an error.
func (s *AuthService) Register(ctx context.Context, username, password string) (*ports.RegisterResult, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" || len(password) > MaxPasswordBytes {
		return nil, domain.ErrInvalidInput
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("register: hash password: %w", err)
	}

	created, err := s.users.Create(ctx, &domain.User{
		Username:     username,
		PasswordHash: string(hash),
		Role:         domain.RoleUser,
		CreatedAt:    s.now().UTC(),
	})
	if errors.Is(err, domain.ErrUsernameTaken) {
		metrics.RegistrationsTotal.WithLabelValues("taken").Inc()
		s.record(ctx, domain.EventRegisterDenied, username, "", "username taken")
		return &ports.RegisterResult{Success: false, Username: username, Message: "Username already exists"}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("register: %w", err)
	}

	metrics.RegistrationsTotal.WithLabelValues("created").Inc()
	s.record(ctx, domain.EventRegistered, created.Username, created.ID, "")
	logger.FromContext(ctx, s.log).Info().Str("user_id", created.ID).Msg("user registered")

	return &ports.RegisterResult{
		Success:  true,
		UserID:   created.ID,
		Username: created.Username,
		Message:  "User registered successfully",
	}, nil
}

// Login checks the credentials and issues a new token. Unknown usernames
// yield ErrUserNotFound (or ErrInvalidCredentials when hidden), wrong
// passwords ErrInvalidCredentials.
func (s *AuthService) Login(ctx context.Context, username, password string) (*ports.LoginResult, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, domain.ErrInvalidCredentials
	}

	user, err := s.users.FindByUsername(ctx, username)
	if errors.Is(err, domain.ErrUserNotFound) {
		// Burn a comparison so unknown users cost the same as wrong passwords.
		_ = bcrypt.CompareHashAndPassword(dummyHash(), []byte(password))
		s.loginFailed(ctx, username, "unknown user")
		if s.hideUnknownUsers {
			return nil, domain.ErrInvalidCredentials
		}
		return nil, domain.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		s.loginFailed(ctx, username, "bad password")
		return nil, domain.ErrInvalidCredentials
	}

	token, expiresAt, err := s.issue(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}

	metrics.LoginsTotal.WithLabelValues("success").Inc()
	s.record(ctx, domain.EventLoginSucceeded, user.Username, user.ID, "")

	return &ports.LoginResult{
		Token:     token,
		TokenType: domain.TokenTypeBearer,
		ExpiresAt: expiresAt,
		User:      user,
	}, nil
}

func (s *AuthService) issue(ctx context.Context, user *domain.User) (string, *time.Time, error) {
	issuedAt := s.now().UTC()
	var expiresAt *time.Time
	if s.tokenTTL > 0 {
		exp := issuedAt.Add(s.tokenTTL)
		expiresAt = &exp
	}

	for attempt := 0; attempt < mintAttempts; attempt++ {
		token, err := s.codec.Mint(user.ID, issuedAt, expiresAt)
		if err != nil {
			return "", nil, fmt.Errorf("mint token: %w", err)
		}
		err = s.tokens.Save(ctx, &domain.AuthToken{
			Token:     token,
			UserID:    user.ID,
			IssuedAt:  issuedAt,
			ExpiresAt: expiresAt,
		})
		if errors.Is(err, domain.ErrTokenExists) {
			continue
		}
		if err != nil {
			return "", nil, fmt.Errorf("save token: %w", err)
		}
		return token, expiresAt, nil
	}
	return "", nil, fmt.Errorf("save token: %w", domain.ErrTokenExists)
}

// Verify reports whether token is known, unexpired and still bound to a user.
// Only store failures are returned as errors.
func (s *AuthService) Verify(ctx context.Context, token string) (domain.Verification, error) {
	v, err := s.verify(ctx, token)
	if err != nil {
		metrics.VerificationsTotal.WithLabelValues("error").Inc()
		return v, err
	}
	if v.Valid {
		metrics.VerificationsTotal.WithLabelValues("valid").Inc()
	} else {
		metrics.VerificationsTotal.WithLabelValues("invalid").Inc()
	}
	return v, nil
}

func (s *AuthService) verify(ctx context.Context, token string) (domain.Verification, error) {
	if token == "" || s.codec.Check(token) != nil {
		return domain.Verification{Valid: false, Message: domain.MsgTokenInvalid}, nil
	}

	rec, err := s.tokens.FindByToken(ctx, token)
	if errors.Is(err, domain.ErrTokenNotFound) {
		return domain.Verification{Valid: false, Message: domain.MsgTokenInvalid}, nil
	}
	if err != nil {
		return domain.Verification{}, fmt.Errorf("verify: %w", err)
	}

	if rec.ExpiredAt(s.now()) {
		return domain.Verification{Valid: false, Message: domain.MsgTokenExpired}, nil
	}

	user, err := s.users.FindByID(ctx, rec.UserID)
	if errors.Is(err, domain.ErrUserNotFound) {
		return domain.Verification{Valid: false, Message: domain.MsgTokenUserNotFound}, nil
	}
	if err != nil {
		return domain.Verification{}, fmt.Errorf("verify: %w", err)
	}

	return domain.Verification{
		Valid:    true,
		Message:  domain.MsgTokenValid,
		UserID:   user.ID,
		Username: user.Username,
		Role:     domain.NormalizeRole(user.Role),
	}, nil
}

// VerifyHeader verifies a raw Authorization header value. A header without
// the "Bearer " prefix yields ErrMalformedToken.
func (s *AuthService) VerifyHeader(ctx context.Context, authHeader string) (domain.Verification, error) {
	token, ok := domain.BearerToken(authHeader)
	if !ok {
		return domain.Verification{Valid: false, Message: domain.MsgTokenFormat}, domain.ErrMalformedToken
	}
	return s.Verify(ctx, token)
}

// Verifier adapts the service to ports.Verifier for in-process callers.
func (s *AuthService) Verifier() ports.Verifier {
	return verifierFunc(s.VerifyHeader)
}

type verifierFunc func(ctx context.Context, authHeader string) (domain.Verification, error)

func (f verifierFunc) Verify(ctx context.Context, authHeader string) (domain.Verification, error) {
	return f(ctx, authHeader)
}

func (s *AuthService) loginFailed(ctx context.Context, username, reason string) {
	metrics.LoginsTotal.WithLabelValues("failure").Inc()
	s.record(ctx, domain.EventLoginFailed, username, "", reason)
	logger.FromContext(ctx, s.log).Info().Str("reason", reason).Msg("login rejected")
}

func (s *AuthService) record(ctx context.Context, kind domain.AuthEventKind, username, userID, reason string) {
	if s.events == nil {
		return
	}
	s.events.Record(domain.AuthEvent{
		Kind:      kind,
		Username:  username,
		UserID:    userID,
		RequestID: logger.RequestID(ctx),
		Reason:    reason,
		Timestamp: s.now().UTC(),
	})
}

var (
	dummyOnce sync.Once
	dummy     []byte
)

func dummyHash() []byte {
	dummyOnce.Do(func() {
		dummy, _ = bcrypt.GenerateFromPassword([]byte("trustgate-placeholder"), bcrypt.DefaultCost)
	})
	return dummy
}
