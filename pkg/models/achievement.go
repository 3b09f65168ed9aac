package models

import "time"

// UserAchievement is a one-time grant of a milestone to a user within a
// session. Created exactly once per (user, session, milestone); never
// updated or deleted.
type UserAchievement struct {
	ID              int64     `json:"id" db:"id"`
	UserID          string    `json:"user_id" db:"user_id"`
	SessionID       string    `json:"session_id" db:"session_id"`
	MilestoneID     string    `json:"milestone_id" db:"milestone_id"`
	EarnedAt        time.Time `json:"earned_at" db:"earned_at"`
	AchievementData JSONMap   `json:"achievement_data" db:"achievement_data"` // e.g. certificate metadata
	CreatedAt       time.Time `json:"created_at" db:"created_at"`
}
