package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"pokeguide-backend/internal/metrics"
	"pokeguide-backend/internal/model"
	"pokeguide-backend/internal/repository"
	"pokeguide-backend/internal/telemetry"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const (
	minPasswordLength = 8
	maxNameLength     = 100
	maxEmailLength    = 254
)

type UserStore interface {
	Create(ctx context.Context, u *model.User) error
	GetByID(ctx context.Context, id string) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	UpdateRole(ctx context.Context, id string, role model.Role) (*model.User, error)
	CountTotal(ctx context.Context) (int, error)
}

type RefreshTokenStore interface {
	Store(ctx context.Context, rt *model.RefreshToken) error
	Consume(ctx context.Context, token string) (*model.RefreshToken, error)
	Delete(ctx context.Context, token string) error
	DeleteAllForUser(ctx context.Context, userID string) (int64, error)
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
	CountActive(ctx context.Context, now time.Time) (int, error)
}

// UserNotifier pushes an event to every open socket of one user.
type UserNotifier interface {
	SendToUser(userID string, event *model.WSEvent)
}

type AuthServiceConfig struct {
	RefreshTokenTTL time.Duration
	BcryptCost      int
}

type AuthService struct {
	users    UserStore
	sessions RefreshTokenStore
	tokens   *TokenManager
	notifier UserNotifier
	cfg      AuthServiceConfig
	log      *zap.Logger
	now      func() time.Time

	// dummyHash keeps login timing flat when the email is unknown.
	dummyHash []byte
}

func NewAuthService(users UserStore, sessions RefreshTokenStore, tokens *TokenManager, notifier UserNotifier, cfg AuthServiceConfig, log *zap.Logger) *AuthService {
	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = bcrypt.DefaultCost
	}
	if cfg.RefreshTokenTTL == 0 {
		cfg.RefreshTokenTTL = 7 * 24 * time.Hour
	}
	dummy, _ := bcrypt.GenerateFromPassword([]byte("pokeguide-dummy-password"), cfg.BcryptCost)

	return &AuthService{
		users:     users,
		sessions:  sessions,
		tokens:    tokens,
		notifier:  notifier,
		cfg:       cfg,
		log:       log,
		now:       time.Now,
		dummyHash: dummy,
	}
}

func (s *AuthService) Register(ctx context.Context, req *model.RegisterRequest) (*model.User, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.auth.register")
	defer span.End()

	name := strings.TrimSpace(req.Name)
	email := strings.ToLower(strings.TrimSpace(req.Email))

	if name == "" || len(name) > maxNameLength {
		return nil, invalid("name must be 1-100 characters")
	}
	if len(email) > maxEmailLength {
		return nil, invalid("email is too long")
	}
	if addr, err := mail.ParseAddress(email); err != nil || addr.Address != email {
		return nil, invalid("email is not valid")
	}
	if len(req.Password) < minPasswordLength {
		return nil, invalid(fmt.Sprintf("password must be at least %d characters", minPasswordLength))
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.cfg.BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := s.now().UTC()
	user := &model.User{
		ID:           uuid.NewString(),
		Name:         name,
		Email:        email,
		PasswordHash: string(hash),
		Role:         model.RolePlayer,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrAlreadyExists) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	span.SetAttributes(attribute.String("user_id", user.ID))
	s.log.Info("user registered", zap.String("user_id", user.ID))
	return user, nil
}

// Login never tells an unknown email apart from a wrong password.
func (s *AuthService) Login(ctx context.Context, req *model.LoginRequest) (*model.AuthResponse, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.auth.login")
	defer span.End()

	email := strings.ToLower(strings.TrimSpace(req.Email))
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("load user: %w", err)
		}
		_ = bcrypt.CompareHashAndPassword(s.dummyHash, []byte(req.Password))
		metrics.AuthEvents.WithLabelValues("login", metrics.OutcomeFailure).Inc()
		return nil, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		metrics.AuthEvents.WithLabelValues("login", metrics.OutcomeFailure).Inc()
		return nil, ErrInvalidCredentials
	}

	pair, err := s.Issue(ctx, user)
	if err != nil {
		return nil, err
	}

	metrics.AuthEvents.WithLabelValues("login", metrics.OutcomeSuccess).Inc()
	return &model.AuthResponse{AccessToken: pair.AccessToken, RefreshToken: pair.RefreshToken, User: user}, nil
}

// Issue mints an access token and persists a fresh refresh token for user.
func (s *AuthService) Issue(ctx context.Context, user *model.User) (*model.TokenPair, error) {
	access, expiresAt, err := s.tokens.IssueAccessToken(user.ID, user.Role)
	if err != nil {
		return nil, err
	}
	refresh, err := s.storeRefreshToken(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	return &model.TokenPair{AccessToken: access, RefreshToken: refresh, ExpiresAt: expiresAt}, nil
}

func (s *AuthService) storeRefreshToken(ctx context.Context, userID string) (string, error) {
	token, err := newRefreshToken()
	if err != nil {
		return "", err
	}
	rt := &model.RefreshToken{
		Token:     token,
		UserID:    userID,
		ExpiresAt: s.now().Add(s.cfg.RefreshTokenTTL),
	}
	if err := s.sessions.Store(ctx, rt); err != nil {
		return "", fmt.Errorf("store refresh token: %w", err)
	}
	return token, nil
}

func (s *AuthService) Verify(accessToken string) (*model.Principal, error) {
	return s.tokens.Verify(accessToken)
}

// Rotate spends refreshToken and issues its successor for the same user.
// The old row is deleted before the new one is written: if the insert fails
// the caller has no live token and must log in again.
func (s *AuthService) Rotate(ctx context.Context, refreshToken string) (string, string, error) {
	rt, err := s.sessions.Consume(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", "", ErrInvalidToken
		}
		return "", "", fmt.Errorf("consume refresh token: %w", err)
	}
	if !s.now().Before(rt.ExpiresAt) {
		return "", "", ErrInvalidToken
	}

	next, err := s.storeRefreshToken(ctx, rt.UserID)
	if err != nil {
		return "", "", err
	}
	return rt.UserID, next, nil
}

// Refresh rotates the refresh token and mints an access token carrying the
// user's current role.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*model.AuthResponse, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.auth.refresh")
	defer span.End()

	userID, next, err := s.Rotate(ctx, refreshToken)
	if err != nil {
		metrics.AuthEvents.WithLabelValues("refresh", metrics.OutcomeFailure).Inc()
		return nil, err
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		_ = s.sessions.Delete(ctx, next)
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, fmt.Errorf("load user: %w", err)
	}

	access, _, err := s.tokens.IssueAccessToken(user.ID, user.Role)
	if err != nil {
		return nil, err
	}

	metrics.AuthEvents.WithLabelValues("refresh", metrics.OutcomeSuccess).Inc()
	return &model.AuthResponse{AccessToken: access, RefreshToken: next, User: user}, nil
}

// Revoke deletes refreshToken. Unknown tokens are not an error.
func (s *AuthService) Revoke(ctx context.Context, refreshToken string) error {
	if err := s.sessions.Delete(ctx, refreshToken); err != nil {
		return fmt.Errorf("revoke refresh token: %w", err)
	}
	metrics.AuthEvents.WithLabelValues("logout", metrics.OutcomeSuccess).Inc()
	return nil
}

// RevokeAll ends every session of userID and tells its open sockets to log out.
func (s *AuthService) RevokeAll(ctx context.Context, userID string) error {
	n, err := s.sessions.DeleteAllForUser(ctx, userID)
	if err != nil {
		return fmt.Errorf("revoke sessions: %w", err)
	}
	s.log.Info("sessions revoked", zap.String("user_id", userID), zap.Int64("count", n))

	if s.notifier != nil {
		s.notifier.SendToUser(userID, &model.WSEvent{Type: model.WSEventLogout, Data: json.RawMessage(`{}`)})
	}
	return nil
}

func (s *AuthService) Me(ctx context.Context, userID string) (*model.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return user, nil
}

func (s *AuthService) PurgeExpired(ctx context.Context) (int64, error) {
	n, err := s.sessions.DeleteExpired(ctx, s.now())
	if err != nil {
		return 0, err
	}
	metrics.RefreshTokensPurged.Add(float64(n))
	return n, nil
}

// RunJanitor purges expired refresh tokens every interval until ctx is done.
// Expired tokens are already rejected on use; this only bounds table growth.
// A non-positive interval disables the janitor.
func (s *AuthService) RunJanitor(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		s.log.Warn("refresh token janitor disabled", zap.Duration("interval", interval))
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := s.PurgeExpired(ctx)
			if err != nil {
				s.log.Warn("purge expired refresh tokens", zap.Error(err))
				continue
			}
			if n > 0 {
				s.log.Info("purged expired refresh tokens", zap.Int64("count", n))
			}
		}
	}
}
