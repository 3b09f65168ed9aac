package models

import "time"

// Step is the definition of a single onboarding step within a path.
// Definitions are authored elsewhere; this core only reads them.
type Step struct {
	ID               string    `json:"id" db:"id"`
	PathID           string    `json:"path_id" db:"path_id"`
	Position         int       `json:"position" db:"position"` // 0-based order within the path
	Title            string    `json:"title" db:"title"`
	EstimatedMinutes int       `json:"estimated_minutes" db:"estimated_minutes"`
	CreatedAt        time.Time `json:"created_at" db:"created_at"`
}
