package verification

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-verify-nosql/internal/domain"
	pkgtoken "github.com/go-verify-nosql/internal/pkg/token"
)

// Default lifetimes per context.
const (
	DefaultRegisterTTL = 24 * time.Hour
	DefaultResetTTL    = time.Hour
)

// maxIssueAttempts bounds retries when the store reports an id collision.
const maxIssueAttempts = 3

// Store is the durable backing for verification codes. Both operations must be
// atomic for a single id.
type Store interface {
	// Put persists code and arranges for the store to evict it after ttl.
	// It returns domain.ErrConflict when a record with the same id already exists.
	Put(ctx context.Context, code *domain.VerificationCode, ttl time.Duration) error
	// DeleteAndReturn removes the record for id and returns what was stored.
	// It returns (nil, nil) when nothing was stored under id.
	DeleteAndReturn(ctx context.Context, id string) (*domain.VerificationCode, error)
}

// Registry owns the lifecycle of verification codes: issuance, atomic claim and
// expiry enforcement. It keeps no in-process state between calls.
type Registry struct {
	store   Store
	now     func() time.Time
	newID   func() (string, error)
	ttls    map[domain.CodeContext]time.Duration
	metrics *Metrics
	log     *slog.Logger
}

// Option configures a Registry.
type Option func(*Registry)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(r *Registry) {
		if now != nil {
			r.now = now
		}
	}
}

// WithTTL sets the lifetime of codes issued for c. Non-positive values are ignored.
func WithTTL(c domain.CodeContext, ttl time.Duration) Option {
	return func(r *Registry) {
		if ttl > 0 {
			r.ttls[c] = ttl
		}
	}
}

// WithMetrics records issue/claim outcomes.
func WithMetrics(m *Metrics) Option {
	return func(r *Registry) { r.metrics = m }
}

// WithLogger replaces slog.Default.
func WithLogger(l *slog.Logger) Option {
	return func(r *Registry) {
		if l != nil {
			r.log = l
		}
	}
}

// withIDGenerator is used by tests to force collisions.
func withIDGenerator(gen func() (string, error)) Option {
	return func(r *Registry) { r.newID = gen }
}

// NewRegistry builds a Registry over store.
func NewRegistry(store Store, opts ...Option) *Registry {
	r := &Registry{
		store: store,
		now:   time.Now,
		newID: pkgtoken.NewCodeID,
		ttls: map[domain.CodeContext]time.Duration{
			domain.ContextRegister: DefaultRegisterTTL,
			domain.ContextReset:    DefaultResetTTL,
		},
		log: slog.Default(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

// TTL returns the configured lifetime for c.
func (r *Registry) TTL(c domain.CodeContext) time.Duration {
	return r.ttls[c]
}

// Issue creates and persists a new code for subject. It sends nothing; the
// caller notifies the subject with the returned record.
func (r *Registry) Issue(ctx context.Context, c domain.CodeContext, subject string) (*domain.VerificationCode, error) {
	if !c.Valid() {
		return nil, fmt.Errorf("unsupported verification context %q: %w", c, domain.ErrBadRequest)
	}
	if subject == "" {
		return nil, fmt.Errorf("subject required: %w", domain.ErrBadRequest)
	}
	ttl := r.ttls[c]

	for attempt := 1; ; attempt++ {
		id, err := r.newID()
		if err != nil {
			return nil, err
		}
		code := &domain.VerificationCode{
			ID:      id,
			Context: c,
			Subject: subject,
			Expires: expiryAt(r.now().Add(ttl)),
		}
		err = r.store.Put(ctx, code, ttl)
		if err == nil {
			r.metrics.issued(c)
			r.log.Info("verification code issued", "context", c, "subject", subject, "expires", code.ExpiresAt())
			return code, nil
		}
		if errors.Is(err, domain.ErrConflict) && attempt < maxIssueAttempts {
			r.log.Warn("verification code id collision, regenerating", "context", c, "attempt", attempt)
			continue
		}
		r.metrics.issueFailed(c)
		return nil, fmt.Errorf("persist verification code: %w: %w", domain.ErrStorage, err)
	}
}

// expiryAt rounds t up to a whole second, so a code is never expired before
// its full TTL has elapsed.
func expiryAt(t time.Time) int64 {
	if t.Nanosecond() > 0 {
		return t.Unix() + 1
	}
	return t.Unix()
}

// Claim consumes the code identified by id and returns its subject. Every
// unusable code yields domain.ErrInvalidCode; a found record is destroyed even
// when it turns out to be expired or issued for another context.
func (r *Registry) Claim(ctx context.Context, c domain.CodeContext, id string) (string, error) {
	if id == "" {
		r.metrics.claimed(c, outcomeInvalid)
		return "", domain.ErrInvalidCode
	}
	rec, err := r.store.DeleteAndReturn(ctx, id)
	if err != nil {
		r.metrics.claimed(c, outcomeError)
		return "", fmt.Errorf("claim verification code: %w: %w", domain.ErrStorage, err)
	}
	if rec == nil {
		r.metrics.claimed(c, outcomeInvalid)
		return "", domain.ErrInvalidCode
	}
	if rec.Context != c {
		r.metrics.claimed(c, outcomeInvalid)
		r.log.Warn("verification code claimed for wrong context", "expected", c, "subject", rec.Subject)
		return "", domain.ErrInvalidCode
	}
	// Store eviction is best-effort and may lag the application clock.
	if rec.ExpiredAt(r.now()) {
		r.metrics.claimed(c, outcomeInvalid)
		r.log.Info("expired verification code consumed", "context", c, "subject", rec.Subject)
		return "", domain.ErrInvalidCode
	}
	r.metrics.claimed(c, outcomeSuccess)
	return rec.Subject, nil
}
