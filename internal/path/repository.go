package path

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/learnerweave/auth-api/internal/database"
)

var ErrNotFound = errors.New("path not found")

// Repository handles learning path persistence. All reads and writes are
// scoped to the owning user.
type Repository struct {
	db *bun.DB
}

func NewRepository(db *bun.DB) *Repository {
	return &Repository{db: db}
}

// ListByUser returns all learning paths owned by the user, newest first.
func (r *Repository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*LearningPath, error) {
	var dbPaths []*database.LearningPath
	err := r.db.NewSelect().
		Model(&dbPaths).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Scan(ctx)

	if err != nil {
		return nil, fmt.Errorf("failed to list paths: %w", err)
	}

	paths := make([]*LearningPath, 0, len(dbPaths))
	for _, p := range dbPaths {
		paths = append(paths, mapDBPathToModel(p))
	}

	return paths, nil
}

// GetByID retrieves one of the user's learning paths by ID.
func (r *Repository) GetByID(ctx context.Context, userID, id uuid.UUID) (*LearningPath, error) {
	dbPath := new(database.LearningPath)
	err := r.db.NewSelect().
		Model(dbPath).
		Where("id = ?", id).
		Where("user_id = ?", userID).
		Scan(ctx)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get path: %w", err)
	}

	return mapDBPathToModel(dbPath), nil
}

// Create inserts a new learning path owned by the user.
func (r *Repository) Create(ctx context.Context, userID uuid.UUID, title, description, difficulty string, estimatedHours int) (*LearningPath, error) {
	dbPath := &database.LearningPath{
		UserID:         userID,
		Title:          title,
		Description:    description,
		Difficulty:     difficulty,
		EstimatedHours: estimatedHours,
	}

	_, err := r.db.NewInsert().
		Model(dbPath).
		Returning("*").
		Exec(ctx)

	if err != nil {
		return nil, fmt.Errorf("failed to create path: %w", err)
	}

	return mapDBPathToModel(dbPath), nil
}

// Update modifies one of the user's learning paths and returns the updated row.
func (r *Repository) Update(ctx context.Context, userID, id uuid.UUID, title, description, difficulty string, estimatedHours int) (*LearningPath, error) {
	dbPath := new(database.LearningPath)
	err := r.db.NewUpdate().
		Model(dbPath).
		Set("title = ?", title).
		Set("description = ?", description).
		Set("difficulty = ?", difficulty).
		Set("estimated_hours = ?", estimatedHours).
		Set("updated_at = NOW()").
		Where("id = ?", id).
		Where("user_id = ?", userID).
		Returning("*").
		Scan(ctx)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to update path: %w", err)
	}

	return mapDBPathToModel(dbPath), nil
}

// Delete removes one of the user's learning paths.
func (r *Repository) Delete(ctx context.Context, userID, id uuid.UUID) error {
	result, err := r.db.NewDelete().
		Model((*database.LearningPath)(nil)).
		Where("id = ?", id).
		Where("user_id = ?", userID).
		Exec(ctx)

	if err != nil {
		return fmt.Errorf("failed to delete path: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}

// mapDBPathToModel converts database model to domain model
func mapDBPathToModel(dbp *database.LearningPath) *LearningPath {
	return &LearningPath{
		ID:             dbp.ID,
		UserID:         dbp.UserID,
		Title:          dbp.Title,
		Description:    dbp.Description,
		Difficulty:     dbp.Difficulty,
		EstimatedHours: dbp.EstimatedHours,
		CreatedAt:      dbp.CreatedAt,
		UpdatedAt:      dbp.UpdatedAt,
	}
}
