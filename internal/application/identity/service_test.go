package identity

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/go-verify-nosql/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// --- mocks ---

type mockUserStore struct{ mock.Mock }

func (m *mockUserStore) Put(ctx context.Context, u *domain.User) error {
	return m.Called(ctx, u).Error(0)
}
func (m *mockUserStore) Get(ctx context.Context, userID string) (*domain.User, error) {
	args := m.Called(ctx, userID)
	if u, _ := args.Get(0).(*domain.User); u != nil {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockUserStore) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	args := m.Called(ctx, email)
	if u, _ := args.Get(0).(*domain.User); u != nil {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockUserStore) MarkVerified(ctx context.Context, userID string) error {
	return m.Called(ctx, userID).Error(0)
}
func (m *mockUserStore) SetPasswordHash(ctx context.Context, userID, hash string) error {
	return m.Called(ctx, userID, hash).Error(0)
}

type mockSessionStore struct{ mock.Mock }

func (m *mockSessionStore) Put(ctx context.Context, s *domain.Session) error {
	return m.Called(ctx, s).Error(0)
}
func (m *mockSessionStore) Get(ctx context.Context, sessionID string) (*domain.Session, error) {
	args := m.Called(ctx, sessionID)
	if s, _ := args.Get(0).(*domain.Session); s != nil {
		return s, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockSessionStore) Disable(ctx context.Context, sessionID string) error {
	return m.Called(ctx, sessionID).Error(0)
}
func (m *mockSessionStore) DisableByUser(ctx context.Context, userID string) error {
	return m.Called(ctx, userID).Error(0)
}

type mockJWTSigner struct{ mock.Mock }

func (m *mockJWTSigner) Sign(userID, sessionID string) (string, error) {
	args := m.Called(userID, sessionID)
	return args.String(0), args.Error(1)
}

// --- helpers ---

func newSvc(us *mockUserStore, ss *mockSessionStore, jwt *mockJWTSigner) *Service {
	return NewService(ServiceDeps{
		UserRepo:    us,
		SessionRepo: ss,
		JWTProvider: jwt,
		SessionTTL:  time.Hour,
		BcryptCost:  bcrypt.MinCost,
	})
}

func hashed(t *testing.T, pw string) string {
	t.Helper()
	h, err := bcrypt.GenerateFromPassword([]byte(pw), bcrypt.MinCost)
	require.NoError(t, err)
	return string(h)
}

// --- Register ---

func TestRegister_CreatesUnverifiedUser(t *testing.T) {
	us := &mockUserStore{}
	us.On("GetByEmail", mock.Anything, "alice@example.com").Return(nil, domain.ErrNotFound)
	us.On("Put", mock.Anything, mock.MatchedBy(func(u *domain.User) bool {
		return u.Email == "alice@example.com" && !u.Verified && u.Enable && u.UserID != "" &&
			bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte("s3cretpass")) == nil
	})).Return(nil)

	u, err := newSvc(us, &mockSessionStore{}, &mockJWTSigner{}).Register(context.Background(), domain.SignUpRequest{
		Email: "  Alice@Example.com ", Password: "s3cretpass", Name: "Alice",
	})
	require.NoError(t, err)
	assert.Equal(t, "Alice", u.Name)
	assert.False(t, u.Verified)
	us.AssertExpectations(t)
}

func TestRegister_DuplicateEmail(t *testing.T) {
	us := &mockUserStore{}
	us.On("GetByEmail", mock.Anything, "alice@example.com").Return(&domain.User{UserID: "u1"}, nil)

	_, err := newSvc(us, &mockSessionStore{}, &mockJWTSigner{}).Register(context.Background(), domain.SignUpRequest{
		Email: "alice@example.com", Password: "s3cretpass", Name: "Alice",
	})
	assert.ErrorIs(t, err, domain.ErrConflict)
	us.AssertNotCalled(t, "Put", mock.Anything, mock.Anything)
}

func TestRegister_ConcurrentSignUpLosesOnPut(t *testing.T) {
	us := &mockUserStore{}
	us.On("GetByEmail", mock.Anything, "alice@example.com").Return(nil, domain.ErrNotFound)
	us.On("Put", mock.Anything, mock.Anything).Return(domain.ErrConflict)

	u, err := newSvc(us, &mockSessionStore{}, &mockJWTSigner{}).Register(context.Background(), domain.SignUpRequest{
		Email: "alice@example.com", Password: "s3cretpass", Name: "Alice",
	})
	assert.ErrorIs(t, err, domain.ErrConflict)
	assert.Nil(t, u)
}

func TestRegister_LookupFailure(t *testing.T) {
	us := &mockUserStore{}
	boom := errors.New("dynamo down")
	us.On("GetByEmail", mock.Anything, mock.Anything).Return(nil, boom)

	_, err := newSvc(us, &mockSessionStore{}, &mockJWTSigner{}).Register(context.Background(), domain.SignUpRequest{
		Email: "alice@example.com", Password: "s3cretpass", Name: "Alice",
	})
	assert.ErrorIs(t, err, boom)
}

// --- ChangePassword ---

func TestChangePassword_DisablesAllSessions(t *testing.T) {
	us := &mockUserStore{}
	ss := &mockSessionStore{}
	us.On("SetPasswordHash", mock.Anything, "u1", mock.MatchedBy(func(h string) bool {
		return bcrypt.CompareHashAndPassword([]byte(h), []byte("newpassword")) == nil
	})).Return(nil)
	ss.On("DisableByUser", mock.Anything, "u1").Return(nil)

	require.NoError(t, newSvc(us, ss, &mockJWTSigner{}).ChangePassword(context.Background(), "u1", "newpassword"))
	us.AssertExpectations(t)
	ss.AssertExpectations(t)
}

func TestChangePassword_UnknownUser(t *testing.T) {
	us := &mockUserStore{}
	ss := &mockSessionStore{}
	us.On("SetPasswordHash", mock.Anything, "ghost", mock.Anything).Return(domain.ErrNotFound)

	err := newSvc(us, ss, &mockJWTSigner{}).ChangePassword(context.Background(), "ghost", "newpassword")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	ss.AssertNotCalled(t, "DisableByUser", mock.Anything, mock.Anything)
}

// --- Authenticate ---

func TestAuthenticate_Success(t *testing.T) {
	us := &mockUserStore{}
	ss := &mockSessionStore{}
	jwt := &mockJWTSigner{}
	u := &domain.User{UserID: "u1", Email: "alice@example.com", PasswordHash: hashed(t, "s3cretpass"), Enable: true, Verified: true}
	us.On("GetByEmail", mock.Anything, "alice@example.com").Return(u, nil)
	ss.On("Put", mock.Anything, mock.AnythingOfType("*domain.Session")).Return(nil)
	jwt.On("Sign", "u1", mock.AnythingOfType("string")).Return("bearer-token", nil)

	res, err := newSvc(us, ss, jwt).Authenticate(context.Background(), domain.LoginRequest{Email: "alice@example.com", Password: "s3cretpass"})
	require.NoError(t, err)
	assert.Equal(t, "bearer-token", res.Bearer)
	assert.Equal(t, "u1", res.Session.UserID)
	assert.True(t, res.Session.Enable)
	assert.InDelta(t, time.Now().Add(time.Hour).Unix(), res.Session.ExpiresAt, 5)
	assert.Same(t, u, res.Session.User)
}

func TestAuthenticate_Rejections(t *testing.T) {
	cases := []struct {
		name string
		user *domain.User
		err  error
		pw   string
	}{
		{name: "unknown email", err: domain.ErrNotFound, pw: "s3cretpass"},
		{name: "wrong password", user: &domain.User{UserID: "u1", Enable: true, Verified: true}, pw: "wrong"},
		{name: "unverified", user: &domain.User{UserID: "u1", Enable: true}, pw: "s3cretpass"},
		{name: "disabled", user: &domain.User{UserID: "u1", Verified: true}, pw: "s3cretpass"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			us := &mockUserStore{}
			ss := &mockSessionStore{}
			if tc.user != nil {
				tc.user.PasswordHash = hashed(t, "s3cretpass")
				us.On("GetByEmail", mock.Anything, mock.Anything).Return(tc.user, nil)
			} else {
				us.On("GetByEmail", mock.Anything, mock.Anything).Return(nil, tc.err)
			}

			_, err := newSvc(us, ss, &mockJWTSigner{}).Authenticate(context.Background(), domain.LoginRequest{Email: "alice@example.com", Password: tc.pw})
			assert.ErrorIs(t, err, domain.ErrUnauthorized)
			ss.AssertNotCalled(t, "Put", mock.Anything, mock.Anything)
		})
	}
}

// --- sessions ---

func TestSignOut_DisablesSession(t *testing.T) {
	ss := &mockSessionStore{}
	ss.On("Disable", mock.Anything, "s1").Return(nil)

	require.NoError(t, newSvc(&mockUserStore{}, ss, &mockJWTSigner{}).SignOut(context.Background(), "s1"))
	ss.AssertExpectations(t)
}

func TestGetSession_AttachesUser(t *testing.T) {
	us := &mockUserStore{}
	ss := &mockSessionStore{}
	ss.On("Get", mock.Anything, "s1").Return(&domain.Session{SessionID: "s1", UserID: "u1", Enable: true}, nil)
	us.On("Get", mock.Anything, "u1").Return(&domain.User{UserID: "u1"}, nil)

	sess, err := newSvc(us, ss, &mockJWTSigner{}).GetSession(context.Background(), "s1")
	require.NoError(t, err)
	require.NotNil(t, sess.User)
	assert.Equal(t, "u1", sess.User.UserID)
}

func TestGetSession_Revoked(t *testing.T) {
	ss := &mockSessionStore{}
	ss.On("Get", mock.Anything, "s1").Return(&domain.Session{SessionID: "s1", UserID: "u1"}, nil)

	_, err := newSvc(&mockUserStore{}, ss, &mockJWTSigner{}).GetSession(context.Background(), "s1")
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestGetSession_Expired(t *testing.T) {
	ss := &mockSessionStore{}
	ss.On("Get", mock.Anything, "s1").Return(&domain.Session{
		SessionID: "s1", UserID: "u1", Enable: true, ExpiresAt: time.Now().Add(-time.Minute).Unix(),
	}, nil)

	_, err := newSvc(&mockUserStore{}, ss, &mockJWTSigner{}).GetSession(context.Background(), "s1")
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestChangePassword_MultibyteOverLimit(t *testing.T) {
	us := &mockUserStore{}
	ss := &mockSessionStore{}

	err := newSvc(us, ss, &mockJWTSigner{}).ChangePassword(context.Background(), "u1", strings.Repeat("é", 40))
	assert.ErrorIs(t, err, domain.ErrBadRequest)
	us.AssertNotCalled(t, "SetPasswordHash", mock.Anything, mock.Anything, mock.Anything)
}

func TestRegister_MultibyteOverLimit(t *testing.T) {
	us := &mockUserStore{}

	_, err := newSvc(us, &mockSessionStore{}, &mockJWTSigner{}).Register(context.Background(),
		domain.SignUpRequest{Email: "alice@example.com", Password: strings.Repeat("é", 40), Name: "Alice"})
	assert.ErrorIs(t, err, domain.ErrBadRequest)
	us.AssertNotCalled(t, "GetByEmail", mock.Anything, mock.Anything)
	us.AssertNotCalled(t, "Put", mock.Anything, mock.Anything)
}

func TestChangePassword_ExactlyAtByteLimit(t *testing.T) {
	us := &mockUserStore{}
	ss := &mockSessionStore{}
	pw := strings.Repeat("é", 36)
	us.On("SetPasswordHash", mock.Anything, "u1", mock.MatchedBy(func(h string) bool {
		return bcrypt.CompareHashAndPassword([]byte(h), []byte(pw)) == nil
	})).Return(nil)
	ss.On("DisableByUser", mock.Anything, "u1").Return(nil)

	require.NoError(t, newSvc(us, ss, &mockJWTSigner{}).ChangePassword(context.Background(), "u1", pw))
}
