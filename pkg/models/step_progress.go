package models

import "time"

// Step progress statuses
const (
	StatusNotStarted = "not_started"
	StatusInProgress = "in_progress"
	StatusCompleted  = "completed"
	StatusSkipped    = "skipped"
	StatusFailed     = "failed"
)

// StepProgress tracks a user's progress on a single onboarding step.
// One row exists per (session, step) pair; rows are never deleted.
type StepProgress struct {
	ID           int64      `json:"id" db:"id"`
	SessionID    string     `json:"session_id" db:"session_id"`
	StepID       string     `json:"step_id" db:"step_id"`
	UserID       string     `json:"user_id" db:"user_id"`
	Status       string     `json:"status" db:"status"`
	StartedAt    *time.Time `json:"started_at" db:"started_at"`
	CompletedAt  *time.Time `json:"completed_at" db:"completed_at"` // Set iff status is completed, skipped or failed
	TimeSpent    int        `json:"time_spent" db:"time_spent"`     // Accumulated seconds
	Attempts     int        `json:"attempts" db:"attempts"`
	Score        *float64   `json:"score" db:"score"` // Optional quiz/assessment result
	Feedback     JSONMap    `json:"feedback" db:"feedback"`
	UserActions  JSONMap    `json:"user_actions" db:"user_actions"`
	StepResult   JSONMap    `json:"step_result" db:"step_result"`
	Errors       JSONMap    `json:"errors" db:"errors"` // Keys feed blocker classification
	Achievements JSONMap    `json:"achievements" db:"achievements"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at" db:"updated_at"`
}

// IsTerminal reports whether the step reached a terminal status
func (p *StepProgress) IsTerminal() bool {
	return p.Status == StatusCompleted || p.Status == StatusSkipped || p.Status == StatusFailed
}
