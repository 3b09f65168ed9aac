package database

import (
	"database/sql"
	"fmt"
	"os"

	"github.com/example/onboardtrack/pkg/models"
)

// StepProgressRepository handles database operations for step progress
type StepProgressRepository struct{}

// NewStepProgressRepository creates a new repository instance
func NewStepProgressRepository() *StepProgressRepository {
	return &StepProgressRepository{}
}

// GetBySessionAndStep returns the progress row for a (session, step) pair.
// Absence is not an error: a missing row returns (nil, nil).
func (r *StepProgressRepository) GetBySessionAndStep(sessionID, stepID string) (*models.StepProgress, error) {
	var progress models.StepProgress
	err := DB.Get(&progress, "SELECT * FROM step_progress WHERE session_id = $1 AND step_id = $2", sessionID, stepID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get step progress: %v", err)
	}
	return &progress, nil
}

// ListBySession returns all progress rows for a session
func (r *StepProgressRepository) ListBySession(sessionID string) ([]models.StepProgress, error) {
	var progress []models.StepProgress
	err := DB.Select(&progress, "SELECT * FROM step_progress WHERE session_id = $1 ORDER BY created_at ASC", sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list step progress: %v", err)
	}
	return progress, nil
}

// Create inserts a new progress row
func (r *StepProgressRepository) Create(progress *models.StepProgress) error {
	dbType := os.Getenv("DB_TYPE")
	if dbType == "" {
		dbType = "sqlite"
	}

	query := `
		INSERT INTO step_progress (
			session_id, step_id, user_id, status, started_at, completed_at,
			time_spent, attempts, score, feedback, user_actions, step_result,
			errors, achievements
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`

	if dbType == "sqlite" {
		result, err := DB.Exec(
			query,
			progress.SessionID,
			progress.StepID,
			progress.UserID,
			progress.Status,
			progress.StartedAt,
			progress.CompletedAt,
			progress.TimeSpent,
			progress.Attempts,
			progress.Score,
			progress.Feedback,
			progress.UserActions,
			progress.StepResult,
			progress.Errors,
			progress.Achievements,
		)
		if err != nil {
			return fmt.Errorf("failed to create step progress: %v", err)
		}

		id, err := result.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to get last insert ID: %v", err)
		}
		progress.ID = id

		return DB.QueryRow("SELECT created_at, updated_at FROM step_progress WHERE id = $1",
			progress.ID).Scan(&progress.CreatedAt, &progress.UpdatedAt)
	}

	// PostgreSQL supports RETURNING
	return DB.QueryRow(
		query+" RETURNING id, created_at, updated_at",
		progress.SessionID,
		progress.StepID,
		progress.UserID,
		progress.Status,
		progress.StartedAt,
		progress.CompletedAt,
		progress.TimeSpent,
		progress.Attempts,
		progress.Score,
		progress.Feedback,
		progress.UserActions,
		progress.StepResult,
		progress.Errors,
		progress.Achievements,
	).Scan(&progress.ID, &progress.CreatedAt, &progress.UpdatedAt)
}

// Update modifies an existing progress row
func (r *StepProgressRepository) Update(progress *models.StepProgress) error {
	_, err := DB.Exec(
		`UPDATE step_progress SET
			status = $1,
			started_at = $2,
			completed_at = $3,
			time_spent = $4,
			attempts = $5,
			score = $6,
			feedback = $7,
			user_actions = $8,
			step_result = $9,
			errors = $10,
			achievements = $11,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = $12`,
		progress.Status,
		progress.StartedAt,
		progress.CompletedAt,
		progress.TimeSpent,
		progress.Attempts,
		progress.Score,
		progress.Feedback,
		progress.UserActions,
		progress.StepResult,
		progress.Errors,
		progress.Achievements,
		progress.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update step progress: %v", err)
	}

	// Read back the bumped updated_at
	return DB.QueryRow("SELECT updated_at FROM step_progress WHERE id = $1", progress.ID).Scan(&progress.UpdatedAt)
}

// CreateOrUpdate creates the row if absent, otherwise updates it in place
func (r *StepProgressRepository) CreateOrUpdate(progress *models.StepProgress) error {
	var existingID int64
	err := DB.QueryRow("SELECT id FROM step_progress WHERE session_id = $1 AND step_id = $2",
		progress.SessionID, progress.StepID).Scan(&existingID)

	if err == nil {
		progress.ID = existingID
		return r.Update(progress)
	}
	if err != sql.ErrNoRows {
		return fmt.Errorf("failed to look up step progress: %v", err)
	}

	return r.Create(progress)
}
