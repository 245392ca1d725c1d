package auth

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/learnerweave/auth-api/internal/config"
	"github.com/learnerweave/auth-api/internal/httputil"
	"github.com/learnerweave/auth-api/internal/logging"
)

const (
	oauthStateCookie = "oauth_state"
	oauthStateTTL    = 10 * time.Minute

	googleUserInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"
)

// GoogleHandler runs the Google OAuth handshake and hands the resolved
// identity to the credential service.
type GoogleHandler struct {
	service      *Service
	oauthConfig  *oauth2.Config
	logger       *logging.Logger
	isProduction bool
}

func NewGoogleHandler(service *Service, cfg config.GoogleConfig, logger *logging.Logger, isProduction bool) *GoogleHandler {
	return &GoogleHandler{
		service: service,
		oauthConfig: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       []string{"openid", "email"},
			Endpoint:     google.Endpoint,
		},
		logger:       logger,
		isProduction: isProduction,
	}
}

// googleUserInfo is the subset of the userinfo response we care about.
type googleUserInfo struct {
	Email         string `json:"email"`
	VerifiedEmail bool   `json:"verified_email"`
}

// Start redirects the browser to Google's consent page. A random state value
// is set as a short-lived cookie and checked on callback.
func (h *GoogleHandler) Start(w http.ResponseWriter, r *http.Request) {
	state, err := generateRandomToken()
	if err != nil {
		logging.GetLoggerFromContext(r.Context()).Error("failed to generate oauth state", "error", err.Error())
		httputil.RespondErrorWithCode(w, "failed to start google login", httputil.CodeInternalError, http.StatusInternalServerError)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     oauthStateCookie,
		Value:    state,
		Path:     "/",
		MaxAge:   int(oauthStateTTL.Seconds()),
		HttpOnly: true,
		Secure:   h.isProduction,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, h.oauthConfig.AuthCodeURL(state), http.StatusTemporaryRedirect)
}

// Callback validates the state, exchanges the authorization code, fetches
// the user's profile, and logs the user in. Only provider-verified emails
// are accepted.
func (h *GoogleHandler) Callback(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	stateCookie, err := r.Cookie(oauthStateCookie)
	if err != nil || stateCookie.Value == "" || r.URL.Query().Get("state") != stateCookie.Value {
		logger.Warn("google callback with missing or mismatched state")
		httputil.RespondErrorWithCode(w, "invalid oauth state", httputil.CodeOAuthFailed, http.StatusBadRequest)
		return
	}

	// The state is single-use; expire the cookie immediately.
	http.SetCookie(w, &http.Cookie{
		Name:     oauthStateCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.isProduction,
		SameSite: http.SameSiteLaxMode,
	})

	code := r.URL.Query().Get("code")
	if code == "" {
		logger.Warn("google callback without authorization code")
		httputil.RespondErrorWithCode(w, "authorization code missing", httputil.CodeOAuthFailed, http.StatusBadRequest)
		return
	}

	oauthToken, err := h.oauthConfig.Exchange(r.Context(), code)
	if err != nil {
		logger.Warn("google code exchange failed", "error", err.Error())
		httputil.RespondErrorWithCode(w, "google login failed", httputil.CodeOAuthFailed, http.StatusUnauthorized)
		return
	}

	info, err := h.fetchUserInfo(r, oauthToken)
	if err != nil {
		logger.Error("failed to fetch google user info", "error", err.Error())
		httputil.RespondErrorWithCode(w, "google login failed", httputil.CodeOAuthFailed, http.StatusBadGateway)
		return
	}

	if !info.VerifiedEmail || info.Email == "" {
		logger.Warn("google account email not verified")
		httputil.RespondErrorWithCode(w, "google account email is not verified", httputil.CodeOAuthFailed, http.StatusForbidden)
		return
	}

	logger = logger.WithFields(map[string]any{"email": info.Email})

	sessionToken, loggedIn, err := h.service.LoginWithGoogle(r.Context(), info.Email)
	if err != nil {
		logger.Error("google login failed: internal error", "error", err.Error())
		httputil.RespondErrorWithCode(w, "google login failed", httputil.CodeInternalError, http.StatusInternalServerError)
		return
	}

	logger.Info("user logged in via google", "user_id", loggedIn.ID)

	httputil.RespondJSON(w, LoginResponse{
		Token: sessionToken,
		User:  toUserResponse(loggedIn),
	}, http.StatusOK)
}

func (h *GoogleHandler) fetchUserInfo(r *http.Request, token *oauth2.Token) (*googleUserInfo, error) {
	client := h.oauthConfig.Client(r.Context(), token)

	resp, err := client.Get(googleUserInfoURL)
	if err != nil {
		return nil, fmt.Errorf("failed to request user info: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("user info request returned status %d", resp.StatusCode)
	}

	var info googleUserInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("failed to decode user info: %w", err)
	}

	return &info, nil
}
