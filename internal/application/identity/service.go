package identity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-verify-nosql/internal/domain"
	"github.com/go-verify-nosql/internal/pkg/id"
	"golang.org/x/crypto/bcrypt"
)

// Provider is the account backend the verification workflows drive.
type Provider interface {
	// Register creates an unverified account.
	Register(ctx context.Context, req domain.SignUpRequest) (*domain.User, error)
	// VerifyUser marks the account as having proven ownership of its email.
	VerifyUser(ctx context.Context, userID string) error
	// LookupUser resolves an account by email.
	LookupUser(ctx context.Context, email string) (*domain.User, error)
	// ChangePassword replaces the password and signs the user out everywhere.
	ChangePassword(ctx context.Context, userID, newPassword string) error
	Authenticate(ctx context.Context, req domain.LoginRequest) (*LoginResult, error)
	SignOut(ctx context.Context, sessionID string) error
	GetSession(ctx context.Context, sessionID string) (*domain.Session, error)
}

type LoginResult struct {
	Bearer  string
	Session *domain.Session
}

type userStore interface {
	// Put fails with domain.ErrConflict when the id or email is already taken.
	Put(ctx context.Context, u *domain.User) error
	Get(ctx context.Context, userID string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	MarkVerified(ctx context.Context, userID string) error
	SetPasswordHash(ctx context.Context, userID, hash string) error
}

type sessionStore interface {
	Put(ctx context.Context, s *domain.Session) error
	Get(ctx context.Context, sessionID string) (*domain.Session, error)
	Disable(ctx context.Context, sessionID string) error
	DisableByUser(ctx context.Context, userID string) error
}

type jwtSigner interface {
	Sign(userID, sessionID string) (string, error)
}

type Service struct {
	users      userStore
	sessions   sessionStore
	signer     jwtSigner
	sessionTTL time.Duration
	bcryptCost int
	now        func() time.Time
}

type ServiceDeps struct {
	UserRepo    userStore
	SessionRepo sessionStore
	JWTProvider jwtSigner
	// SessionTTL should match the bearer token lifetime. Zero means sessions
	// only end on sign-out.
	SessionTTL time.Duration
	// BcryptCost defaults to bcrypt.DefaultCost.
	BcryptCost int
}

var _ Provider = (*Service)(nil)

func NewService(deps ServiceDeps) *Service {
	cost := deps.BcryptCost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	return &Service{
		users:      deps.UserRepo,
		sessions:   deps.SessionRepo,
		signer:     deps.JWTProvider,
		sessionTTL: deps.SessionTTL,
		bcryptCost: cost,
		now:        time.Now,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *Service) hashPassword(password string) (string, error) {
	if err := domain.CheckPasswordLength(password); err != nil {
		return "", err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return "", fmt.Errorf("%w: %w", domain.ErrBadRequest, err)
	}
	return string(hash), err
}

func (s *Service) Register(ctx context.Context, req domain.SignUpRequest) (*domain.User, error) {
	if err := domain.CheckPasswordLength(req.Password); err != nil {
		return nil, err
	}
	email := normalizeEmail(req.Email)
	_, err := s.users.GetByEmail(ctx, email)
	switch {
	case err == nil:
		return nil, fmt.Errorf("email already registered: %w", domain.ErrConflict)
	case !errors.Is(err, domain.ErrNotFound):
		return nil, err
	}
	hash, err := s.hashPassword(req.Password)
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()
	u := &domain.User{
		UserID:       id.New(),
		Email:        email,
		Name:         strings.TrimSpace(req.Name),
		PasswordHash: hash,
		Enable:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	// The lookup above is advisory; Put enforces uniqueness.
	if err := s.users.Put(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

func (s *Service) VerifyUser(ctx context.Context, userID string) error {
	return s.users.MarkVerified(ctx, userID)
}

func (s *Service) LookupUser(ctx context.Context, email string) (*domain.User, error) {
	return s.users.GetByEmail(ctx, normalizeEmail(email))
}

func (s *Service) ChangePassword(ctx context.Context, userID, newPassword string) error {
	hash, err := s.hashPassword(newPassword)
	if err != nil {
		return err
	}
	if err := s.users.SetPasswordHash(ctx, userID, hash); err != nil {
		return err
	}
	if err := s.sessions.DisableByUser(ctx, userID); err != nil {
		return fmt.Errorf("sign out after password change: %w", err)
	}
	slog.Info("password changed", "user_id", userID)
	return nil
}

func (s *Service) Authenticate(ctx context.Context, req domain.LoginRequest) (*LoginResult, error) {
	u, err := s.users.GetByEmail(ctx, normalizeEmail(req.Email))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("invalid credentials: %w", domain.ErrUnauthorized)
		}
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(req.Password)); err != nil {
		return nil, fmt.Errorf("invalid credentials: %w", domain.ErrUnauthorized)
	}
	if !u.Enable {
		return nil, fmt.Errorf("account disabled: %w", domain.ErrUnauthorized)
	}
	if !u.Verified {
		return nil, fmt.Errorf("email not verified: %w", domain.ErrUnauthorized)
	}
	now := s.now().UTC()
	sess := &domain.Session{
		SessionID: id.New(),
		UserID:    u.UserID,
		Enable:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if s.sessionTTL > 0 {
		sess.ExpiresAt = now.Add(s.sessionTTL).Unix()
	}
	if err := s.sessions.Put(ctx, sess); err != nil {
		return nil, err
	}
	bearer, err := s.signer.Sign(u.UserID, sess.SessionID)
	if err != nil {
		return nil, err
	}
	sess.User = u
	return &LoginResult{Bearer: bearer, Session: sess}, nil
}

func (s *Service) SignOut(ctx context.Context, sessionID string) error {
	return s.sessions.Disable(ctx, sessionID)
}

// GetSession returns an active session with its user attached.
func (s *Service) GetSession(ctx context.Context, sessionID string) (*domain.Session, error) {
	sess, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !sess.Active(s.now()) {
		return nil, fmt.Errorf("session revoked or expired: %w", domain.ErrUnauthorized)
	}
	u, err := s.users.Get(ctx, sess.UserID)
	if err != nil {
		return nil, err
	}
	sess.User = u
	return sess, nil
}
