package models

// Blocker is a derived diagnosis that a user is stuck on a step or on a
// session-wide pattern. Blockers are computed fresh on every call and
// never persisted.
type Blocker struct {
	StepID              string   `json:"step_id"` // "pattern_based" for cross-step patterns
	StepTitle           string   `json:"step_title"`
	BlockerType         string   `json:"blocker_type"`
	Description         string   `json:"description"`
	Frequency           int      `json:"frequency"` // Attempt count for step blockers, occurrence count for patterns
	SuggestedResolution string   `json:"suggested_resolution"`
	Severity            string   `json:"severity"`
	Impact              string   `json:"impact"`
	TimeStuck           float64  `json:"time_stuck"` // Minutes
	Patterns            []string `json:"patterns"`
}
