package path

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/learnerweave/auth-api/internal/auth"
	"github.com/learnerweave/auth-api/internal/httputil"
	"github.com/learnerweave/auth-api/internal/logging"
)

// Store is the slice of path persistence the handler needs.
type Store interface {
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*LearningPath, error)
	GetByID(ctx context.Context, userID, id uuid.UUID) (*LearningPath, error)
	Create(ctx context.Context, userID uuid.UUID, title, description, difficulty string, estimatedHours int) (*LearningPath, error)
	Update(ctx context.Context, userID, id uuid.UUID, title, description, difficulty string, estimatedHours int) (*LearningPath, error)
	Delete(ctx context.Context, userID, id uuid.UUID) error
}

// Handler contains HTTP handlers for learning path endpoints. All routes sit
// behind the auth middleware, which guarantees a user ID in the context.
type Handler struct {
	store  Store
	logger *logging.Logger
}

func NewHandler(store Store, logger *logging.Logger) *Handler {
	return &Handler{store: store, logger: logger}
}

// PathRequest represents the create/update request body
type PathRequest struct {
	Title          string `json:"title"`
	Description    string `json:"description"`
	Difficulty     string `json:"difficulty"`
	EstimatedHours int    `json:"estimated_hours"`
}

// DeleteResponse confirms a deletion
type DeleteResponse struct {
	Message string `json:"message"`
}

// List returns all learning paths owned by the authenticated user.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	userID, ok := auth.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.RespondErrorWithCode(w, "missing authentication", httputil.CodeMissingAuth, http.StatusUnauthorized)
		return
	}

	paths, err := h.store.ListByUser(r.Context(), userID)
	if err != nil {
		logger.Error("failed to list paths", "user_id", userID, "error", err.Error())
		httputil.RespondErrorWithCode(w, "failed to fetch paths", httputil.CodeInternalError, http.StatusInternalServerError)
		return
	}

	httputil.RespondJSON(w, paths, http.StatusOK)
}

// Get returns a single learning path by ID.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	userID, ok := auth.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.RespondErrorWithCode(w, "missing authentication", httputil.CodeMissingAuth, http.StatusUnauthorized)
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httputil.RespondErrorWithCode(w, "path not found", httputil.CodeNotFound, http.StatusNotFound)
		return
	}

	found, err := h.store.GetByID(r.Context(), userID, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			httputil.RespondErrorWithCode(w, "path not found", httputil.CodeNotFound, http.StatusNotFound)
			return
		}
		logger.Error("failed to get path", "path_id", id, "error", err.Error())
		httputil.RespondErrorWithCode(w, "failed to fetch path", httputil.CodeInternalError, http.StatusInternalServerError)
		return
	}

	httputil.RespondJSON(w, found, http.StatusOK)
}

// Create adds a new learning path owned by the authenticated user.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	userID, ok := auth.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.RespondErrorWithCode(w, "missing authentication", httputil.CodeMissingAuth, http.StatusUnauthorized)
		return
	}

	var req PathRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.RespondErrorWithCode(w, "invalid request body", httputil.CodeInvalidRequestBody, http.StatusBadRequest)
		return
	}

	if req.Title == "" {
		httputil.RespondErrorWithCode(w, "title is required", httputil.CodeInvalidRequestBody, http.StatusBadRequest)
		return
	}

	created, err := h.store.Create(r.Context(), userID, req.Title, req.Description, req.Difficulty, req.EstimatedHours)
	if err != nil {
		logger.Error("failed to create path", "user_id", userID, "error", err.Error())
		httputil.RespondErrorWithCode(w, "failed to create path", httputil.CodeInternalError, http.StatusInternalServerError)
		return
	}

	logger.Info("path created", "path_id", created.ID, "user_id", userID)

	httputil.RespondJSON(w, created, http.StatusCreated)
}

// Update modifies an existing learning path.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	userID, ok := auth.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.RespondErrorWithCode(w, "missing authentication", httputil.CodeMissingAuth, http.StatusUnauthorized)
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httputil.RespondErrorWithCode(w, "path not found", httputil.CodeNotFound, http.StatusNotFound)
		return
	}

	var req PathRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.RespondErrorWithCode(w, "invalid request body", httputil.CodeInvalidRequestBody, http.StatusBadRequest)
		return
	}

	updated, err := h.store.Update(r.Context(), userID, id, req.Title, req.Description, req.Difficulty, req.EstimatedHours)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			httputil.RespondErrorWithCode(w, "path not found", httputil.CodeNotFound, http.StatusNotFound)
			return
		}
		logger.Error("failed to update path", "path_id", id, "error", err.Error())
		httputil.RespondErrorWithCode(w, "failed to update path", httputil.CodeInternalError, http.StatusInternalServerError)
		return
	}

	httputil.RespondJSON(w, updated, http.StatusOK)
}

// Delete removes a learning path.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	userID, ok := auth.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.RespondErrorWithCode(w, "missing authentication", httputil.CodeMissingAuth, http.StatusUnauthorized)
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httputil.RespondErrorWithCode(w, "path not found", httputil.CodeNotFound, http.StatusNotFound)
		return
	}

	if err := h.store.Delete(r.Context(), userID, id); err != nil {
		if errors.Is(err, ErrNotFound) {
			httputil.RespondErrorWithCode(w, "path not found", httputil.CodeNotFound, http.StatusNotFound)
			return
		}
		logger.Error("failed to delete path", "path_id", id, "error", err.Error())
		httputil.RespondErrorWithCode(w, "failed to delete path", httputil.CodeInternalError, http.StatusInternalServerError)
		return
	}

	logger.Info("path deleted", "path_id", id, "user_id", userID)

	httputil.RespondJSON(w, DeleteResponse{Message: "Path deleted successfully"}, http.StatusOK)
}
