package email

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"net/smtp"
	"net/url"

	"github.com/learnerweave/auth-api/internal/logging"
)

type Service struct {
	smtpHost     string
	smtpPort     string
	smtpUser     string
	smtpPassword string
	fromEmail    string
	frontendURL  string
}

func NewService(smtpHost, smtpPort, smtpUser, smtpPassword, frontendURL string) *Service {
	return &Service{
		smtpHost:     smtpHost,
		smtpPort:     smtpPort,
		smtpUser:     smtpUser,
		smtpPassword: smtpPassword,
		fromEmail:    smtpUser,
		frontendURL:  frontendURL,
	}
}

// SendOTPEmail sends the one-time passcode used for email verification.
func (s *Service) SendOTPEmail(ctx context.Context, toEmail, code string) error {
	logger := logging.GetLoggerFromContext(ctx)

	body, err := renderTemplate(otpTemplate, struct{ Code string }{Code: code})
	if err != nil {
		logger.Error("failed to render OTP email template", "error", err)
		return fmt.Errorf("render template: %w", err)
	}

	if err := s.sendEmail(toEmail, "Verify Your Email Address - Learnerweave", body); err != nil {
		logger.Error("failed to send OTP email", "email", toEmail, "error", err)
		return fmt.Errorf("send email: %w", err)
	}

	logger.Info("OTP email sent", "email", toEmail)
	return nil
}

// SendWelcomeEmail greets a freshly verified account.
func (s *Service) SendWelcomeEmail(ctx context.Context, toEmail string) error {
	logger := logging.GetLoggerFromContext(ctx)

	body, err := renderTemplate(welcomeTemplate, struct{}{})
	if err != nil {
		logger.Error("failed to render welcome email template", "error", err)
		return fmt.Errorf("render template: %w", err)
	}

	if err := s.sendEmail(toEmail, "Welcome to Learnerweave", body); err != nil {
		logger.Error("failed to send welcome email", "email", toEmail, "error", err)
		return fmt.Errorf("send email: %w", err)
	}

	logger.Info("welcome email sent", "email", toEmail)
	return nil
}

// SendPasswordResetEmail sends a reset link with the token embedded.
func (s *Service) SendPasswordResetEmail(ctx context.Context, toEmail, token string) error {
	logger := logging.GetLoggerFromContext(ctx)

	resetLink := fmt.Sprintf("%s/reset-password?email=%s&token=%s", s.frontendURL, url.QueryEscape(toEmail), url.QueryEscape(token))

	body, err := renderTemplate(passwordResetTemplate, struct{ ResetLink string }{ResetLink: resetLink})
	if err != nil {
		logger.Error("failed to render password reset email template", "error", err)
		return fmt.Errorf("render template: %w", err)
	}

	if err := s.sendEmail(toEmail, "Password Reset Request - Learnerweave", body); err != nil {
		logger.Error("failed to send password reset email", "email", toEmail, "error", err)
		return fmt.Errorf("send email: %w", err)
	}

	logger.Info("password reset email sent", "email", toEmail)
	return nil
}

func (s *Service) sendEmail(to, subject, body string) error {
	auth := smtp.PlainAuth("", s.smtpUser, s.smtpPassword, s.smtpHost)

	msg := []byte(fmt.Sprintf(
		"From: %s\r\n"+
			"To: %s\r\n"+
			"Subject: %s\r\n"+
			"MIME-Version: 1.0\r\n"+
			"Content-Type: text/html; charset=UTF-8\r\n"+
			"\r\n"+
			"%s\r\n",
		s.fromEmail, to, subject, body,
	))

	addr := fmt.Sprintf("%s:%s", s.smtpHost, s.smtpPort)
	return smtp.SendMail(addr, auth, s.fromEmail, []string{to}, msg)
}

func renderTemplate(tmpl string, data any) (string, error) {
	t, err := template.New("email").Parse(tmpl)
	if err != nil {
		return "", fmt.Errorf("parse template: %w", err)
	}

	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("execute template: %w", err)
	}

	return buf.String(), nil
}

const otpTemplate = `
<div style="font-family: Arial, sans-serif; line-height: 1.6;">
  <h2>Email Verification</h2>
  <p>Hello,</p>
  <p>Please use the following One-Time Password (OTP) to verify your email address for <strong>Learnerweave</strong>:</p>
  <p style="font-size: 24px; font-weight: bold; color: #333;">{{.Code}}</p>
  <p>This OTP is valid for <strong>10 minutes</strong>.</p>
  <p>If you did not request this, please ignore this email.</p>
  <hr>
  <p>Thanks,<br>The Learnerweave Team</p>
</div>
`

const welcomeTemplate = `
<div style="font-family: Arial, sans-serif; line-height: 1.6;">
  <h2>Welcome to Learnerweave!</h2>
  <p>Hello,</p>
  <p>We're excited to have you on board.</p>
  <p>Your account has been successfully verified and you can now start building your learning paths.</p>
  <p>If you have any questions or need assistance, please don't hesitate to reach out to our support team.</p>
  <hr>
  <p>Best regards,<br>The Learnerweave Team</p>
</div>
`

const passwordResetTemplate = `
<div style="font-family: Arial, sans-serif; line-height: 1.6;">
  <h2>Password Reset Request</h2>
  <p>Hello,</p>
  <p>You requested a password reset. Click the link below to reset your password:</p>
  <p><a href="{{.ResetLink}}">Reset Password</a></p>
  <p>This link is valid for <strong>1 hour</strong>.</p>
  <p>If you did not request this, please ignore this email. Your password will remain unchanged.</p>
  <hr>
  <p>Thanks,<br>The Learnerweave Team</p>
</div>
`
