package models

import "time"

// OverallProgress is the recomputed aggregate view of one session
type OverallProgress struct {
	SessionID       string            `json:"session_id"`
	OverallProgress float64           `json:"overall_progress"` // Percentage, rounded to 2 decimals
	TotalSteps      int               `json:"total_steps"`
	CompletedCount  int               `json:"completed_count"`
	TimeSpent       int               `json:"time_spent"` // Seconds
	CompletedSteps  []string          `json:"completed_steps"`
	SkippedSteps    []string          `json:"skipped_steps"`
	Achievements    []UserAchievement `json:"achievements"` // Ordered by earned_at
	LastUpdated     time.Time         `json:"last_updated"`
}

// Trends summarizes the derived trend indicators of a report
type Trends struct {
	EngagementTrend string  `json:"engagement_trend"` // increasing / stable / decreasing
	DifficultyTrend string  `json:"difficulty_trend"`
	TimeEfficiency  float64 `json:"time_efficiency"` // 0-100
}

// ProgressReport composes overall progress, blockers and achievements
// into derived scores and recommendations
type ProgressReport struct {
	SessionID          string          `json:"session_id"`
	GeneratedAt        time.Time       `json:"generated_at"`
	Overall            OverallProgress `json:"overall"`
	Blockers           []Blocker       `json:"blockers"`
	CompletionRate     float64         `json:"completion_rate"`
	SkipRate           float64         `json:"skip_rate"`
	FailureRate        float64         `json:"failure_rate"`
	EngagementScore    float64         `json:"engagement_score"`
	DifficultyScore    float64         `json:"difficulty_score"` // Deliberately unclamped
	AverageTimePerStep float64         `json:"average_time_per_step"` // Minutes
	Recommendations    []string        `json:"recommendations"`
	Trends             Trends          `json:"trends"`
}
