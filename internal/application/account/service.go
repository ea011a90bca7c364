package account

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/go-verify-nosql/internal/application/identity"
	"github.com/go-verify-nosql/internal/domain"
)

// Service runs the sign-up confirmation and password reset workflows.
type Service interface {
	SignUp(ctx context.Context, req domain.SignUpRequest) (*domain.User, error)
	ConfirmRegistration(ctx context.Context, codeID string) error
	ResendVerification(ctx context.Context, email string) error
	ForgotPassword(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, codeID, newPassword string) error
}

type codeRegistry interface {
	Issue(ctx context.Context, c domain.CodeContext, subject string) (*domain.VerificationCode, error)
	Claim(ctx context.Context, c domain.CodeContext, id string) (string, error)
}

type dispatcher interface {
	Dispatch(recipient string, n domain.Notification)
}

type service struct {
	codes    codeRegistry
	users    identity.Provider
	notifier dispatcher
	appURL   string
}

type ServiceDeps struct {
	Registry codeRegistry
	Identity identity.Provider
	Notifier dispatcher
	// AppURL is the base of links embedded in notifications, without a trailing slash.
	AppURL string
}

func NewService(deps ServiceDeps) Service {
	return &service{
		codes:    deps.Registry,
		users:    deps.Identity,
		notifier: deps.Notifier,
		appURL:   deps.AppURL,
	}
}

func (s *service) SignUp(ctx context.Context, req domain.SignUpRequest) (*domain.User, error) {
	u, err := s.users.Register(ctx, req)
	if err != nil {
		return nil, err
	}
	if err := s.issueAndNotify(ctx, domain.ContextRegister, u); err != nil {
		return nil, err
	}
	return u, nil
}

func (s *service) ConfirmRegistration(ctx context.Context, codeID string) error {
	userID, err := s.codes.Claim(ctx, domain.ContextRegister, codeID)
	if err != nil {
		return err
	}
	if err := s.users.VerifyUser(ctx, userID); err != nil {
		return fmt.Errorf("verify user %s: %w", userID, err)
	}
	slog.Info("registration confirmed", "user_id", userID)
	return nil
}

// ResendVerification issues a fresh register code. Unknown or already
// verified accounts are ignored.
func (s *service) ResendVerification(ctx context.Context, email string) error {
	u, err := s.lookup(ctx, email)
	if err != nil || u == nil {
		return err
	}
	if u.Verified {
		slog.Info("verification resend for verified account ignored", "user_id", u.UserID)
		return nil
	}
	return s.issueAndNotify(ctx, domain.ContextRegister, u)
}

// ForgotPassword succeeds without sending anything when email is unknown.
func (s *service) ForgotPassword(ctx context.Context, email string) error {
	u, err := s.lookup(ctx, email)
	if err != nil || u == nil {
		return err
	}
	return s.issueAndNotify(ctx, domain.ContextReset, u)
}

// ResetPassword rejects an unusable password before the code is claimed, so the
// code survives for a retry.
func (s *service) ResetPassword(ctx context.Context, codeID, newPassword string) error {
	if err := domain.CheckPasswordLength(newPassword); err != nil {
		return err
	}
	userID, err := s.codes.Claim(ctx, domain.ContextReset, codeID)
	if err != nil {
		return err
	}
	if err := s.users.ChangePassword(ctx, userID, newPassword); err != nil {
		return fmt.Errorf("change password for %s: %w", userID, err)
	}
	return nil
}

// lookup returns (nil, nil) for unknown emails.
func (s *service) lookup(ctx context.Context, email string) (*domain.User, error) {
	u, err := s.users.LookupUser(ctx, email)
	if errors.Is(err, domain.ErrNotFound) {
		slog.Info("verification requested for unknown email")
		return nil, nil
	}
	return u, err
}

func (s *service) issueAndNotify(ctx context.Context, c domain.CodeContext, u *domain.User) error {
	code, err := s.codes.Issue(ctx, c, u.UserID)
	if err != nil {
		return err
	}
	s.notifier.Dispatch(u.Email, domain.Notification{
		Context:   c,
		Name:      u.Name,
		CodeID:    code.ID,
		Link:      s.appURL + "/" + string(c) + "/" + code.ID,
		ExpiresAt: code.ExpiresAt(),
	})
	return nil
}
