package httputil

// Machine-readable error codes returned alongside error messages so clients
// don't have to match on human-readable strings.
const (
	CodeInvalidRequestBody = "invalid_request_body"
	CodeInvalidEmailFormat = "invalid_email_format"
	CodeEmailRequired      = "email_required"
	CodePasswordRequired   = "password_required"
	CodeWeakPassword       = "weak_password"

	CodeEmailAlreadyExists = "email_already_exists"
	CodeInvalidOTP         = "invalid_otp"
	CodeAlreadyVerified    = "already_verified"
	CodeInvalidResetToken  = "invalid_reset_token"
	CodeOTPRequestLimit    = "otp_request_limit"

	CodeInvalidCredentials = "invalid_credentials"
	CodeEmailNotVerified   = "email_not_verified"

	CodeMissingAuth       = "missing_authentication"
	CodeInvalidAuthHeader = "invalid_auth_header"
	CodeInvalidToken      = "invalid_token"

	CodeOAuthFailed = "oauth_failed"

	CodeNotFound      = "not_found"
	CodeInternalError = "internal_error"
)
