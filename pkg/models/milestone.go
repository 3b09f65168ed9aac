package models

import "time"

// Milestone types
const (
	MilestoneProgress    = "progress"    // Reached a percentage of the path
	MilestoneCompletion  = "completion"  // Completed a required set of steps
	MilestoneTimeBased   = "time_based"  // Finished within a time budget
	MilestoneAchievement = "achievement" // Custom predicate, pluggable
)

// Milestone is a definition of a criterion that grants an achievement
// when met. Definitions are treated as immutable during evaluation.
type Milestone struct {
	ID            string    `json:"id" db:"id"`
	Name          string    `json:"name" db:"name"`
	Description   string    `json:"description" db:"description"`
	MilestoneType string    `json:"milestone_type" db:"milestone_type"`
	Criteria      JSONMap   `json:"criteria" db:"criteria"` // Variant payload keyed by milestone type
	Points        int       `json:"points" db:"points"`
	IsActive      bool      `json:"is_active" db:"is_active"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
}
