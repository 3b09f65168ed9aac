package database

import (
	"database/sql"
	"fmt"

	"github.com/example/onboardtrack/pkg/models"
)

// StepRepository handles database operations for step definitions.
// Definitions are authored by the path editor; this core only reads them.
type StepRepository struct{}

// NewStepRepository creates a new repository instance
func NewStepRepository() *StepRepository {
	return &StepRepository{}
}

// GetByID returns a step definition, or (nil, nil) when unknown
func (r *StepRepository) GetByID(stepID string) (*models.Step, error) {
	var step models.Step
	err := DB.Get(&step, "SELECT * FROM steps WHERE id = $1", stepID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get step: %v", err)
	}
	return &step, nil
}

// ListByPath returns the step definitions of a path in order
func (r *StepRepository) ListByPath(pathID string) ([]models.Step, error) {
	var steps []models.Step
	err := DB.Select(&steps, "SELECT * FROM steps WHERE path_id = $1 ORDER BY position ASC", pathID)
	if err != nil {
		return nil, fmt.Errorf("failed to list steps: %v", err)
	}
	return steps, nil
}

// CountByPath returns the total number of steps in a path
func (r *StepRepository) CountByPath(pathID string) (int, error) {
	var count int
	err := DB.Get(&count, "SELECT COUNT(*) FROM steps WHERE path_id = $1", pathID)
	if err != nil {
		return 0, fmt.Errorf("failed to count steps: %v", err)
	}
	return count, nil
}

// Create inserts a step definition
func (r *StepRepository) Create(step *models.Step) error {
	_, err := DB.Exec(`
		INSERT INTO steps (id, path_id, position, title, estimated_minutes)
		VALUES ($1, $2, $3, $4, $5)
	`, step.ID, step.PathID, step.Position, step.Title, step.EstimatedMinutes)
	if err != nil {
		return fmt.Errorf("failed to create step: %v", err)
	}
	return nil
}
