package auth

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/learnerweave/auth-api/internal/user"
)

// TokenService mints and validates session tokens.
// The production implementation is PasetoService (PASETO v4.local).
type TokenService interface {
	CreateToken(userID uuid.UUID, email string, duration time.Duration) (string, error)
	VerifyToken(tokenStr string) (*TokenClaims, error)
}

// UserStore is the slice of user persistence the service needs.
type UserStore interface {
	Create(ctx context.Context, email, passwordHash string, emailVerified bool) (*user.User, error)
	GetByEmail(ctx context.Context, email string) (*user.User, error)
	MarkEmailAsVerified(ctx context.Context, email string) error
	UpdatePassword(ctx context.Context, email, passwordHash string) error
}

// OTPStore issues and consumes one-time passcodes. Expiry is enforced at
// this boundary: an expired code behaves exactly like an unknown one.
type OTPStore interface {
	Issue(ctx context.Context, email string) (string, error)
	Consume(ctx context.Context, email, code string) error
}

// ResetTokenStore issues and consumes single-use password reset tokens.
type ResetTokenStore interface {
	Store(ctx context.Context, email, token string) error
	Consume(ctx context.Context, email, token string) error
}

// OTPLimiter tracks OTP issuances per email over a rolling window.
type OTPLimiter interface {
	CountRecent(ctx context.Context, email string) (int, error)
	Record(ctx context.Context, email string) error
}

// EmailService defines the outbound notification operations
type EmailService interface {
	SendOTPEmail(ctx context.Context, toEmail, code string) error
	SendWelcomeEmail(ctx context.Context, toEmail string) error
	SendPasswordResetEmail(ctx context.Context, toEmail, token string) error
}
