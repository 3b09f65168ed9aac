package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/example/onboardtrack/pkg/models"
)

// SessionRepository handles database operations for onboarding sessions
type SessionRepository struct{}

// NewSessionRepository creates a new repository instance
func NewSessionRepository() *SessionRepository {
	return &SessionRepository{}
}

// GetByID returns a session, or (nil, nil) when it does not exist
func (r *SessionRepository) GetByID(ctx context.Context, sessionID string) (*models.Session, error) {
	var session models.Session
	err := DB.GetContext(ctx, &session, "SELECT * FROM sessions WHERE session_id = $1", sessionID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %v", err)
	}
	return &session, nil
}

// Create inserts a new session row
func (r *SessionRepository) Create(ctx context.Context, session *models.Session) error {
	if session.LastActiveAt.IsZero() {
		session.LastActiveAt = time.Now()
	}
	_, err := DB.ExecContext(ctx, `
		INSERT INTO sessions (
			session_id, user_id, organization_id, path_id, current_step_index,
			progress_percentage, time_spent, status, last_active_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`,
		session.SessionID,
		session.UserID,
		session.OrganizationID,
		session.PathID,
		session.CurrentStepIndex,
		session.ProgressPercentage,
		session.TimeSpent,
		session.Status,
		session.LastActiveAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create session: %v", err)
	}
	return nil
}

// UpdateAggregate writes the recomputed aggregate fields of a session.
// The percentage is always derived from step rows, never adjusted
// independently.
func (r *SessionRepository) UpdateAggregate(ctx context.Context, sessionID string, progressPercentage float64, timeSpent int, currentStepIndex int) error {
	result, err := DB.ExecContext(ctx, `
		UPDATE sessions SET
			progress_percentage = $1,
			time_spent = $2,
			current_step_index = $3,
			last_active_at = $4,
			updated_at = CURRENT_TIMESTAMP
		WHERE session_id = $5
	`, progressPercentage, timeSpent, currentStepIndex, time.Now(), sessionID)
	if err != nil {
		return fmt.Errorf("failed to update session aggregate: %v", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %v", err)
	}
	if rows == 0 {
		return fmt.Errorf("session %s not found", sessionID)
	}

	return nil
}

// ListActive returns all sessions currently marked active
func (r *SessionRepository) ListActive(ctx context.Context) ([]models.Session, error) {
	var sessions []models.Session
	err := DB.SelectContext(ctx, &sessions, "SELECT * FROM sessions WHERE status = 'active' ORDER BY last_active_at DESC")
	if err != nil {
		return nil, fmt.Errorf("failed to list active sessions: %v", err)
	}
	return sessions, nil
}
