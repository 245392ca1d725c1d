package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/learnerweave/auth-api/internal/logging"
	"github.com/learnerweave/auth-api/internal/ratelimit"
	"github.com/learnerweave/auth-api/internal/user"
)

// --- fakes ---

type fakeUserStore struct {
	mu    sync.Mutex
	users map[string]*user.User
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{users: make(map[string]*user.User)}
}

func (f *fakeUserStore) Create(ctx context.Context, email, passwordHash string, emailVerified bool) (*user.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.users[email]; ok {
		return nil, user.ErrDuplicateEmail
	}
	u := &user.User{
		ID:            uuid.New(),
		Email:         email,
		PasswordHash:  passwordHash,
		EmailVerified: emailVerified,
		CreatedAt:     time.Now(),
		UpdatedAt:     time.Now(),
	}
	f.users[email] = u
	return u, nil
}

func (f *fakeUserStore) GetByEmail(ctx context.Context, email string) (*user.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[email]
	if !ok {
		return nil, user.ErrNotFound
	}
	copied := *u
	return &copied, nil
}

func (f *fakeUserStore) MarkEmailAsVerified(ctx context.Context, email string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[email]
	if !ok {
		return user.ErrNotFound
	}
	u.EmailVerified = true
	return nil
}

func (f *fakeUserStore) UpdatePassword(ctx context.Context, email, passwordHash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[email]
	if !ok {
		return user.ErrNotFound
	}
	u.PasswordHash = passwordHash
	return nil
}

type fakeEmailService struct {
	mu         sync.Mutex
	lastOTP    string
	lastToken  string
	welcomes   int
	sendErr    error
	welcomeErr error
}

func (f *fakeEmailService) SendOTPEmail(ctx context.Context, toEmail, code string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return f.sendErr
	}
	f.lastOTP = code
	return nil
}

func (f *fakeEmailService) SendWelcomeEmail(ctx context.Context, toEmail string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.welcomeErr != nil {
		return f.welcomeErr
	}
	f.welcomes++
	return nil
}

func (f *fakeEmailService) SendPasswordResetEmail(ctx context.Context, toEmail, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return f.sendErr
	}
	f.lastToken = token
	return nil
}

// --- harness ---

type serviceHarness struct {
	service *Service
	users   *fakeUserStore
	emails  *fakeEmailService
	redis   *miniredis.Miniredis
	tokens  *PasetoService
}

func newServiceHarness(t *testing.T) *serviceHarness {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	pasetoService, err := NewPasetoService([]byte("0123456789abcdef0123456789abcdef"))
	require.NoError(t, err)

	users := newFakeUserStore()
	emails := &fakeEmailService{}

	svc := NewService(
		users,
		NewOTPRepository(client, 10*time.Minute),
		NewPasswordResetRepository(client, 1*time.Hour),
		ratelimit.NewLimiter(client),
		pasetoService,
		emails,
		logging.NewLogger(true),
		bcrypt.MinCost,
		3,
		30*24*time.Hour,
	)

	return &serviceHarness{
		service: svc,
		users:   users,
		emails:  emails,
		redis:   mr,
		tokens:  pasetoService,
	}
}

// --- tests ---

func TestRegisterCreatesUnverifiedUserAndOTP(t *testing.T) {
	h := newServiceHarness(t)
	ctx := context.Background()

	result, err := h.service.Register(ctx, "u@x.com", "Passw0rd")
	require.NoError(t, err)
	assert.True(t, result.Created)
	assert.Equal(t, "u@x.com", result.User.Email)
	assert.False(t, result.User.EmailVerified)

	// Exactly one live OTP, and it is the one that was mailed.
	assert.Len(t, h.emails.lastOTP, 6)
	assert.True(t, h.redis.Exists("otp:u@x.com"))

	stored, err := h.redis.Get("otp:u@x.com")
	require.NoError(t, err)
	assert.Equal(t, h.emails.lastOTP, stored)
}

func TestRegisterValidation(t *testing.T) {
	h := newServiceHarness(t)
	ctx := context.Background()

	tests := []struct {
		name     string
		email    string
		password string
		wantErr  error
	}{
		{"empty email", "", "Passw0rd", ErrEmailRequired},
		{"bad email no dot", "a@b", "Passw0rd", ErrInvalidEmailFormat},
		{"bad email empty local", "@b.c", "Passw0rd", ErrInvalidEmailFormat},
		{"bad email dot at edge", "a@.c", "Passw0rd", ErrInvalidEmailFormat},
		{"empty password", "u@x.com", "", ErrPasswordRequired},
		{"no uppercase", "u@x.com", "abc12345", ErrWeakPassword},
		{"no digit", "u@x.com", "ABCDEFGH", ErrWeakPassword},
		{"too short", "u@x.com", "Abc12", ErrWeakPassword},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h.service.Register(ctx, tt.email, tt.password)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestRegisterVerifiedDuplicateConflicts(t *testing.T) {
	h := newServiceHarness(t)
	ctx := context.Background()

	_, err := h.service.Register(ctx, "u@x.com", "Passw0rd")
	require.NoError(t, err)
	require.NoError(t, h.service.VerifyEmail(ctx, "u@x.com", h.emails.lastOTP))

	_, err = h.service.Register(ctx, "u@x.com", "Passw0rd")
	assert.ErrorIs(t, err, ErrEmailAlreadyRegistered)
}

func TestRegisterUnverifiedDuplicateReissuesOTP(t *testing.T) {
	h := newServiceHarness(t)
	ctx := context.Background()

	first, err := h.service.Register(ctx, "u@x.com", "Passw0rd")
	require.NoError(t, err)
	firstOTP := h.emails.lastOTP

	second, err := h.service.Register(ctx, "u@x.com", "Passw0rd")
	require.NoError(t, err)
	assert.False(t, second.Created)
	assert.Equal(t, first.User.ID, second.User.ID)

	// The old code was superseded.
	assert.NotEqual(t, firstOTP, h.emails.lastOTP)
	assert.ErrorIs(t, h.service.VerifyEmail(ctx, "u@x.com", firstOTP), ErrInvalidOTP)
	assert.NoError(t, h.service.VerifyEmail(ctx, "u@x.com", h.emails.lastOTP))
}

func TestVerifyEmailConsumesOTP(t *testing.T) {
	h := newServiceHarness(t)
	ctx := context.Background()

	_, err := h.service.Register(ctx, "u@x.com", "Passw0rd")
	require.NoError(t, err)
	code := h.emails.lastOTP

	// Wrong code fails without consuming the right one.
	assert.ErrorIs(t, h.service.VerifyEmail(ctx, "u@x.com", "000000"), ErrInvalidOTP)

	require.NoError(t, h.service.VerifyEmail(ctx, "u@x.com", code))
	assert.Equal(t, 1, h.emails.welcomes)

	u, err := h.users.GetByEmail(ctx, "u@x.com")
	require.NoError(t, err)
	assert.True(t, u.EmailVerified)

	// Not idempotent: the code was deleted on first use.
	assert.ErrorIs(t, h.service.VerifyEmail(ctx, "u@x.com", code), ErrInvalidOTP)
}

func TestVerifyEmailExpiredOTP(t *testing.T) {
	h := newServiceHarness(t)
	ctx := context.Background()

	_, err := h.service.Register(ctx, "u@x.com", "Passw0rd")
	require.NoError(t, err)
	code := h.emails.lastOTP

	h.redis.FastForward(11 * time.Minute)

	assert.ErrorIs(t, h.service.VerifyEmail(ctx, "u@x.com", code), ErrInvalidOTP)
}

func TestVerifyEmailWelcomeFailureDoesNotUndoVerification(t *testing.T) {
	h := newServiceHarness(t)
	ctx := context.Background()

	_, err := h.service.Register(ctx, "u@x.com", "Passw0rd")
	require.NoError(t, err)
	code := h.emails.lastOTP

	h.emails.welcomeErr = errors.New("smtp down")

	require.NoError(t, h.service.VerifyEmail(ctx, "u@x.com", code))

	u, err := h.users.GetByEmail(ctx, "u@x.com")
	require.NoError(t, err)
	assert.True(t, u.EmailVerified)
}

func TestResendOTP(t *testing.T) {
	h := newServiceHarness(t)
	ctx := context.Background()

	assert.ErrorIs(t, h.service.ResendOTP(ctx, "nobody@x.com"), ErrUserNotFound)

	_, err := h.service.Register(ctx, "u@x.com", "Passw0rd")
	require.NoError(t, err)
	firstOTP := h.emails.lastOTP

	require.NoError(t, h.service.ResendOTP(ctx, "u@x.com"))
	assert.NotEqual(t, firstOTP, h.emails.lastOTP)

	// Old code is dead after the resend.
	assert.ErrorIs(t, h.service.VerifyEmail(ctx, "u@x.com", firstOTP), ErrInvalidOTP)

	require.NoError(t, h.service.VerifyEmail(ctx, "u@x.com", h.emails.lastOTP))
	assert.ErrorIs(t, h.service.ResendOTP(ctx, "u@x.com"), ErrEmailAlreadyVerified)
}

func TestResendOTPDailyLimit(t *testing.T) {
	h := newServiceHarness(t)
	ctx := context.Background()

	// Registration issues the first OTP of the rolling window.
	_, err := h.service.Register(ctx, "u@x.com", "Passw0rd")
	require.NoError(t, err)

	require.NoError(t, h.service.ResendOTP(ctx, "u@x.com"))
	require.NoError(t, h.service.ResendOTP(ctx, "u@x.com"))

	assert.ErrorIs(t, h.service.ResendOTP(ctx, "u@x.com"), ErrOTPRequestLimit)
}

func TestForgotAndResetPassword(t *testing.T) {
	h := newServiceHarness(t)
	ctx := context.Background()

	assert.ErrorIs(t, h.service.ForgotPassword(ctx, "nobody@x.com"), ErrUserNotFound)

	_, err := h.service.Register(ctx, "u@x.com", "Passw0rd")
	require.NoError(t, err)
	require.NoError(t, h.service.VerifyEmail(ctx, "u@x.com", h.emails.lastOTP))

	require.NoError(t, h.service.ForgotPassword(ctx, "u@x.com"))
	token := h.emails.lastToken
	require.NotEmpty(t, token)

	// Weak replacement password is rejected before the token is consumed.
	assert.ErrorIs(t, h.service.ResetPassword(ctx, "u@x.com", token, "weak"), ErrWeakPassword)

	require.NoError(t, h.service.ResetPassword(ctx, "u@x.com", token, "NewPassw0rd"))

	// Single use: the consumed token no longer works.
	assert.ErrorIs(t, h.service.ResetPassword(ctx, "u@x.com", token, "OtherPassw0rd"), ErrInvalidResetToken)

	// Old password is gone, new one logs in.
	_, _, err = h.service.Login(ctx, "u@x.com", "Passw0rd")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, _, err = h.service.Login(ctx, "u@x.com", "NewPassw0rd")
	assert.NoError(t, err)
}

func TestResetPasswordExpiredToken(t *testing.T) {
	h := newServiceHarness(t)
	ctx := context.Background()

	_, err := h.service.Register(ctx, "u@x.com", "Passw0rd")
	require.NoError(t, err)
	require.NoError(t, h.service.ForgotPassword(ctx, "u@x.com"))
	token := h.emails.lastToken

	h.redis.FastForward(61 * time.Minute)

	assert.ErrorIs(t, h.service.ResetPassword(ctx, "u@x.com", token, "NewPassw0rd"), ErrInvalidResetToken)
}

func TestForgotPasswordSupersedesToken(t *testing.T) {
	h := newServiceHarness(t)
	ctx := context.Background()

	_, err := h.service.Register(ctx, "u@x.com", "Passw0rd")
	require.NoError(t, err)

	require.NoError(t, h.service.ForgotPassword(ctx, "u@x.com"))
	firstToken := h.emails.lastToken
	require.NoError(t, h.service.ForgotPassword(ctx, "u@x.com"))

	assert.ErrorIs(t, h.service.ResetPassword(ctx, "u@x.com", firstToken, "NewPassw0rd"), ErrInvalidResetToken)
	assert.NoError(t, h.service.ResetPassword(ctx, "u@x.com", h.emails.lastToken, "NewPassw0rd"))
}

func TestLogin(t *testing.T) {
	h := newServiceHarness(t)
	ctx := context.Background()

	_, _, err := h.service.Login(ctx, "u@x.com", "Passw0rd")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err2 := h.service.Register(ctx, "u@x.com", "Passw0rd")
	require.NoError(t, err2)

	// Unverified accounts can't log in even with the right password.
	_, _, err = h.service.Login(ctx, "u@x.com", "Passw0rd")
	assert.ErrorIs(t, err, ErrEmailNotVerified)

	require.NoError(t, h.service.VerifyEmail(ctx, "u@x.com", h.emails.lastOTP))

	_, _, err = h.service.Login(ctx, "u@x.com", "WrongPassw0rd")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	token, loggedIn, err := h.service.Login(ctx, "u@x.com", "Passw0rd")
	require.NoError(t, err)
	assert.Equal(t, "u@x.com", loggedIn.Email)

	claims, err := h.tokens.VerifyToken(token)
	require.NoError(t, err)
	assert.Equal(t, loggedIn.ID.String(), claims.UserID)
	assert.Equal(t, "u@x.com", claims.Email)
	assert.WithinDuration(t, time.Now().Add(30*24*time.Hour), claims.ExpiresAt, time.Minute)
}

func TestLoginWithGoogleCreatesVerifiedUser(t *testing.T) {
	h := newServiceHarness(t)
	ctx := context.Background()

	token, created, err := h.service.LoginWithGoogle(ctx, "g@x.com")
	require.NoError(t, err)
	assert.True(t, created.EmailVerified)

	claims, err := h.tokens.VerifyToken(token)
	require.NoError(t, err)
	assert.Equal(t, created.ID.String(), claims.UserID)

	// The placeholder password can't be used for local login.
	_, _, err = h.service.Login(ctx, "g@x.com", "Passw0rd")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLoginWithGoogleMarksExistingUserVerified(t *testing.T) {
	h := newServiceHarness(t)
	ctx := context.Background()

	result, err := h.service.Register(ctx, "u@x.com", "Passw0rd")
	require.NoError(t, err)
	require.False(t, result.User.EmailVerified)

	_, resolved, err := h.service.LoginWithGoogle(ctx, "u@x.com")
	require.NoError(t, err)
	assert.Equal(t, result.User.ID, resolved.ID)
	assert.True(t, resolved.EmailVerified)

	// The local password still works once the account is verified.
	_, _, err = h.service.Login(ctx, "u@x.com", "Passw0rd")
	assert.NoError(t, err)
}

func TestRegisterOTPSendFailurePropagates(t *testing.T) {
	h := newServiceHarness(t)
	ctx := context.Background()

	h.emails.sendErr = fmt.Errorf("smtp down")

	_, err := h.service.Register(ctx, "u@x.com", "Passw0rd")
	require.Error(t, err)

	// The account exists unverified; a later resend can recover it.
	u, err := h.users.GetByEmail(ctx, "u@x.com")
	require.NoError(t, err)
	assert.False(t, u.EmailVerified)
}

func TestFullRegistrationScenario(t *testing.T) {
	h := newServiceHarness(t)
	ctx := context.Background()

	_, err := h.service.Register(ctx, "u@x.com", "Passw0rd")
	require.NoError(t, err)
	code := h.emails.lastOTP

	assert.ErrorIs(t, h.service.VerifyEmail(ctx, "u@x.com", "999999"), ErrInvalidOTP)
	require.NoError(t, h.service.VerifyEmail(ctx, "u@x.com", code))

	token, _, err := h.service.Login(ctx, "u@x.com", "Passw0rd")
	require.NoError(t, err)

	_, err = h.tokens.VerifyToken(token)
	assert.NoError(t, err)
}
