package path

import (
	"time"

	"github.com/google/uuid"
)

// LearningPath is a user-owned learning plan.
type LearningPath struct {
	ID             uuid.UUID `json:"id"`
	UserID         uuid.UUID `json:"user_id"`
	Title          string    `json:"title"`
	Description    string    `json:"description"`
	Difficulty     string    `json:"difficulty"`
	EstimatedHours int       `json:"estimated_hours"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}
