package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/learnerweave/auth-api/internal/logging"
	"github.com/learnerweave/auth-api/internal/user"
)

var (
	ErrEmailRequired          = errors.New("email is required")
	ErrPasswordRequired       = errors.New("password is required")
	ErrInvalidEmailFormat     = errors.New("invalid email format")
	ErrWeakPassword           = errors.New("password must contain at least one uppercase letter, one number, and be at least 8 characters long")
	ErrEmailAlreadyRegistered = errors.New("email already registered and verified")
	ErrUserNotFound           = errors.New("user with this email does not exist")
	ErrEmailAlreadyVerified   = errors.New("email is already verified")
	ErrOTPRequestLimit        = errors.New("maximum number of OTP requests for today reached")
	ErrInvalidCredentials     = errors.New("invalid email or password")
	ErrEmailNotVerified       = errors.New("email not verified, please check your inbox")
)

// Service orchestrates the credential lifecycle: registration, OTP
// verification, password reset, login, and federated identity upsert.
// All persisted credential state is owned by this service; nothing else
// writes users, OTPs, or reset tokens.
type Service struct {
	users           UserStore
	otps            OTPStore
	resets          ResetTokenStore
	limiter         OTPLimiter
	tokenService    TokenService
	emailService    EmailService
	logger          *logging.Logger
	bcryptCost      int
	otpDailyLimit   int
	sessionDuration time.Duration
}

func NewService(
	users UserStore,
	otps OTPStore,
	resets ResetTokenStore,
	limiter OTPLimiter,
	tokenService TokenService,
	emailService EmailService,
	logger *logging.Logger,
	bcryptCost int,
	otpDailyLimit int,
	sessionDuration time.Duration,
) *Service {
	return &Service{
		users:           users,
		otps:            otps,
		resets:          resets,
		limiter:         limiter,
		tokenService:    tokenService,
		emailService:    emailService,
		logger:          logger,
		bcryptCost:      bcryptCost,
		otpDailyLimit:   otpDailyLimit,
		sessionDuration: sessionDuration,
	}
}

// RegisterResult reports whether Register created a new account or re-issued
// an OTP for an existing unverified one.
type RegisterResult struct {
	User    *user.User
	Created bool
}

// Register creates a new unverified user and sends an OTP to the email.
// Registering an email that already exists unverified re-issues the OTP and
// succeeds; a verified email is a conflict.
func (s *Service) Register(ctx context.Context, email, password string) (*RegisterResult, error) {
	if email == "" {
		return nil, ErrEmailRequired
	}
	if !isValidEmailFormat(email) {
		return nil, ErrInvalidEmailFormat
	}
	if password == "" {
		return nil, ErrPasswordRequired
	}
	if !isValidPasswordStrength(password) {
		return nil, ErrWeakPassword
	}

	existing, err := s.users.GetByEmail(ctx, email)
	if err == nil {
		if existing.EmailVerified {
			return nil, ErrEmailAlreadyRegistered
		}
		// Unverified duplicate: supersede the old OTP and let the user
		// finish verification. Nothing else about the account changes.
		if err := s.issueAndSendOTP(ctx, email); err != nil {
			return nil, err
		}
		return &RegisterResult{User: existing, Created: false}, nil
	}
	if !errors.Is(err, user.ErrNotFound) {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	newUser, err := s.users.Create(ctx, email, string(passwordHash), false)
	if err != nil {
		if errors.Is(err, user.ErrDuplicateEmail) {
			// Lost a race with a concurrent registration for the same email.
			return nil, ErrEmailAlreadyRegistered
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	if err := s.issueAndSendOTP(ctx, email); err != nil {
		// The account exists and is unverified; a resend can recover.
		return nil, err
	}

	return &RegisterResult{User: newUser, Created: true}, nil
}

// VerifyEmail consumes an OTP and marks the account verified. The code is
// validated and deleted at the store boundary, so an expired or superseded
// code fails identically to a wrong one. The welcome email is best-effort:
// verification is the durable fact and is never rolled back over a
// notification failure.
func (s *Service) VerifyEmail(ctx context.Context, email, code string) error {
	if email == "" || code == "" {
		return ErrInvalidOTP
	}

	if err := s.otps.Consume(ctx, email, code); err != nil {
		return err
	}

	if err := s.users.MarkEmailAsVerified(ctx, email); err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return ErrInvalidOTP
		}
		return fmt.Errorf("failed to mark email as verified: %w", err)
	}

	if err := s.emailService.SendWelcomeEmail(ctx, email); err != nil {
		s.logger.Warn("failed to send welcome email", "email", email, "error", err)
	}

	return nil
}

// ResendOTP issues a fresh OTP for an unverified account, invalidating any
// code issued earlier. Requests are capped per email over a rolling day.
func (s *Service) ResendOTP(ctx context.Context, email string) error {
	if email == "" {
		return ErrEmailRequired
	}

	existing, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("failed to get user: %w", err)
	}

	if existing.EmailVerified {
		return ErrEmailAlreadyVerified
	}

	count, err := s.limiter.CountRecent(ctx, email)
	if err != nil {
		return fmt.Errorf("failed to count recent OTP requests: %w", err)
	}
	if count >= s.otpDailyLimit {
		return ErrOTPRequestLimit
	}

	return s.issueAndSendOTP(ctx, email)
}

// ForgotPassword issues a reset token and mails a reset link. The caller at
// the HTTP boundary maps ErrUserNotFound to a generic success response so
// the endpoint can't be used to enumerate accounts.
func (s *Service) ForgotPassword(ctx context.Context, email string) error {
	if email == "" {
		return ErrEmailRequired
	}

	if _, err := s.users.GetByEmail(ctx, email); err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("failed to get user: %w", err)
	}

	token, err := generateRandomToken()
	if err != nil {
		return fmt.Errorf("failed to generate password reset token: %w", err)
	}

	if err := s.resets.Store(ctx, email, token); err != nil {
		return err
	}

	if err := s.emailService.SendPasswordResetEmail(ctx, email, token); err != nil {
		return fmt.Errorf("failed to send password reset email: %w", err)
	}

	return nil
}

// ResetPassword consumes a reset token and stores a new password hash.
// The strength check runs before the token is consumed so a weak password
// doesn't burn a valid token.
func (s *Service) ResetPassword(ctx context.Context, email, token, newPassword string) error {
	if email == "" || token == "" {
		return ErrInvalidResetToken
	}
	if newPassword == "" {
		return ErrPasswordRequired
	}
	if !isValidPasswordStrength(newPassword) {
		return ErrWeakPassword
	}

	if err := s.resets.Consume(ctx, email, token); err != nil {
		return err
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(newPassword), s.bcryptCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	if err := s.users.UpdatePassword(ctx, email, string(passwordHash)); err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}

	return nil
}

// Login authenticates email and password and mints a session token.
// Unknown email and wrong password are indistinguishable to the caller.
func (s *Service) Login(ctx context.Context, email, password string) (string, *user.User, error) {
	if email == "" || password == "" {
		return "", nil, ErrInvalidCredentials
	}

	existing, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return "", nil, ErrInvalidCredentials
		}
		return "", nil, fmt.Errorf("failed to get user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(existing.PasswordHash), []byte(password)); err != nil {
		return "", nil, ErrInvalidCredentials
	}

	if !existing.EmailVerified {
		return "", nil, ErrEmailNotVerified
	}

	token, err := s.tokenService.CreateToken(existing.ID, existing.Email, s.sessionDuration)
	if err != nil {
		return "", nil, fmt.Errorf("failed to create session token: %w", err)
	}

	return token, existing, nil
}

// LoginWithGoogle resolves a provider-verified email to a local account and
// mints a session token. A missing account is created with an unusable
// random password placeholder. An existing unverified account is marked
// verified: the provider already proved mailbox ownership, and the local
// password hash is left untouched.
func (s *Service) LoginWithGoogle(ctx context.Context, email string) (string, *user.User, error) {
	resolved, err := s.upsertGoogleUser(ctx, email)
	if err != nil {
		return "", nil, err
	}

	token, err := s.tokenService.CreateToken(resolved.ID, resolved.Email, s.sessionDuration)
	if err != nil {
		return "", nil, fmt.Errorf("failed to create session token: %w", err)
	}

	return token, resolved, nil
}

func (s *Service) upsertGoogleUser(ctx context.Context, email string) (*user.User, error) {
	existing, err := s.users.GetByEmail(ctx, email)
	if err == nil {
		if !existing.EmailVerified {
			if err := s.users.MarkEmailAsVerified(ctx, email); err != nil {
				return nil, fmt.Errorf("failed to mark email as verified: %w", err)
			}
			existing.EmailVerified = true
		}
		return existing, nil
	}
	if !errors.Is(err, user.ErrNotFound) {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	// No local account: create one that can only authenticate via Google
	// until the user sets a password through the reset flow.
	placeholder, err := generateRandomToken()
	if err != nil {
		return nil, fmt.Errorf("failed to generate placeholder password: %w", err)
	}
	placeholderHash, err := bcrypt.GenerateFromPassword([]byte(placeholder), s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash placeholder password: %w", err)
	}

	created, err := s.users.Create(ctx, email, string(placeholderHash), true)
	if err != nil {
		if errors.Is(err, user.ErrDuplicateEmail) {
			// Lost a race with a concurrent signup; the record exists now.
			return s.users.GetByEmail(ctx, email)
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return created, nil
}

// issueAndSendOTP supersedes any live OTP for the email, records the
// issuance against the rolling-window cap, and awaits the email send.
// A send failure propagates; the already-stored code stays valid.
func (s *Service) issueAndSendOTP(ctx context.Context, email string) error {
	code, err := s.otps.Issue(ctx, email)
	if err != nil {
		return err
	}

	if err := s.limiter.Record(ctx, email); err != nil {
		s.logger.Warn("failed to record OTP issuance", "email", email, "error", err)
	}

	if err := s.emailService.SendOTPEmail(ctx, email, code); err != nil {
		return fmt.Errorf("failed to send OTP email: %w", err)
	}

	return nil
}
