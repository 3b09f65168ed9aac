package models

import "time"

// Session represents one user's run through one onboarding path
type Session struct {
	SessionID          string    `json:"session_id" db:"session_id"`
	UserID             string    `json:"user_id" db:"user_id"`
	OrganizationID     string    `json:"organization_id" db:"organization_id"`
	PathID             string    `json:"path_id" db:"path_id"`
	CurrentStepIndex   int       `json:"current_step_index" db:"current_step_index"`
	ProgressPercentage float64   `json:"progress_percentage" db:"progress_percentage"` // completedSteps / totalSteps * 100
	TimeSpent          int       `json:"time_spent" db:"time_spent"`                   // Accumulated seconds across all steps
	Status             string    `json:"status" db:"status"`
	LastActiveAt       time.Time `json:"last_active_at" db:"last_active_at"`
	CreatedAt          time.Time `json:"created_at" db:"created_at"`
	UpdatedAt          time.Time `json:"updated_at" db:"updated_at"`
}
