package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequireAuth(t *testing.T) {
	tokenService := newTestPasetoService(t)
	middleware := NewMiddleware(tokenService)

	userID := uuid.New()
	validToken, err := tokenService.CreateToken(userID, "u@x.com", time.Hour)
	require.NoError(t, err)

	expiredToken, err := tokenService.CreateToken(userID, "u@x.com", -time.Minute)
	require.NoError(t, err)

	var gotUserID uuid.UUID
	var gotEmail string
	var downstreamCalled bool

	handler := middleware.RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		downstreamCalled = true
		gotUserID, _ = GetUserIDFromContext(r.Context())
		gotEmail, _ = GetUserEmailFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	tests := []struct {
		name           string
		authHeader     string
		wantStatus     int
		wantDownstream bool
	}{
		{"missing header", "", http.StatusUnauthorized, false},
		{"not bearer", "Basic abc123", http.StatusUnauthorized, false},
		{"missing token part", "Bearer", http.StatusUnauthorized, false},
		{"garbage token", "Bearer garbage", http.StatusUnauthorized, false},
		{"expired token", "Bearer " + expiredToken, http.StatusUnauthorized, false},
		{"valid token", "Bearer " + validToken, http.StatusOK, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			downstreamCalled = false

			req := httptest.NewRequest(http.MethodGet, "/api/paths", nil)
			if tt.authHeader != "" {
				req.Header.Set("Authorization", tt.authHeader)
			}
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantDownstream, downstreamCalled)
		})
	}

	assert.Equal(t, userID, gotUserID)
	assert.Equal(t, "u@x.com", gotEmail)
}
