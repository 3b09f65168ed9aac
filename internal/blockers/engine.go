package blockers

import (
	"fmt"
	"time"

	"github.com/example/onboardtrack/internal/database"
	"github.com/example/onboardtrack/pkg/models"
)

// Blocker types
const (
	TypeTechnical         = "technical"
	TypeUserUnderstanding = "user_understanding"
	TypeSystem            = "system"
	TypeContent           = "content"
	TypeEngagement        = "engagement"
	TypeTimePressure      = "time_pressure"
	TypeUnknown           = "unknown"
)

// Severity / impact levels
const (
	LevelLow    = "low"
	LevelMedium = "medium"
	LevelHigh   = "high"
)

// Pattern tags attached to blockers
const (
	PatternExcessiveTime      = "excessive_time"
	PatternMultipleAttempts   = "multiple_attempts"
	PatternLowEngagement      = "low_engagement"
	PatternConsistentFailures = "consistent_failures"
	PatternExcessiveSkipping  = "excessive_skipping"
	PatternSlowProgress       = "slow_progress"
	PatternAbandonedSession   = "abandoned_session"
)

// StepID used for session-wide pattern blockers
const PatternStepID = "pattern_based"

// DefaultEstimatedMinutes is assumed when a step has no estimate
const DefaultEstimatedMinutes = 10

// Engine detects blockers from a session's progress rows. Detection is
// pure: nothing is persisted and every call re-derives from scratch.
type Engine struct {
	// A step with more attempts than this is considered blocked
	MaxAttempts int
	// Stuck-time multiplier over the step's estimate that marks a blocker
	StuckMultiplier float64
	// Stuck-time multiplier that adds the excessive_time tag
	ExcessiveMultiplier float64
	// Attempts beyond this force high severity and impact
	HighAttempts int
	// Fewer distinct user actions than this while in progress is low engagement
	MinUserActions int
	// Failed step count that triggers the consistent_failures pattern
	FailedPatternCount int
	// Skipped step count that triggers the excessive_skipping pattern
	SkippedPatternCount int
	// Average minutes per completed step that triggers slow_progress
	SlowAverageMinutes float64
	// Idle time after which the session counts as abandoned
	AbandonedAfter time.Duration

	progressRepo *database.StepProgressRepository
	stepRepo     *database.StepRepository
}

// NewEngine creates an engine with the default thresholds
func NewEngine() *Engine {
	return &Engine{
		MaxAttempts:         3,
		StuckMultiplier:     2,
		ExcessiveMultiplier: 3,
		HighAttempts:        5,
		MinUserActions:      3,
		FailedPatternCount:  3,
		SkippedPatternCount: 4,
		SlowAverageMinutes:  15,
		AbandonedAfter:      24 * time.Hour,
		progressRepo:        database.NewStepProgressRepository(),
		stepRepo:            database.NewStepRepository(),
	}
}

// IdentifyBlockers runs per-step analysis plus cross-step pattern
// analysis over a session's rows
func (e *Engine) IdentifyBlockers(sessionID string) ([]models.Blocker, error) {
	rows, err := e.progressRepo.ListBySession(sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to identify blockers: %v", err)
	}

	now := time.Now()
	var result []models.Blocker

	for i := range rows {
		title := rows[i].StepID
		estimated := DefaultEstimatedMinutes
		if step, err := e.stepRepo.GetByID(rows[i].StepID); err == nil && step != nil {
			title = step.Title
			if step.EstimatedMinutes > 0 {
				estimated = step.EstimatedMinutes
			}
		}

		if b := e.AnalyzeStep(&rows[i], title, estimated, now); b != nil {
			result = append(result, *b)
		}
	}

	result = append(result, e.IdentifyProgressPatterns(rows, now)...)
	return result, nil
}

// AnalyzeStep diagnoses a single step. It returns nil when the step shows
// no blocking signal at all; that is a short-circuit, not a zero-severity
// blocker.
func (e *Engine) AnalyzeStep(p *models.StepProgress, stepTitle string, estimatedMinutes int, now time.Time) *models.Blocker {
	timeStuck := stuckMinutes(p, now)
	estimate := float64(estimatedMinutes)

	blocked := p.Status == models.StatusFailed ||
		p.Attempts > e.MaxAttempts ||
		timeStuck > e.StuckMultiplier*estimate ||
		len(p.Errors) > 0
	if !blocked {
		return nil
	}

	blocker := &models.Blocker{
		StepID:    p.StepID,
		StepTitle: stepTitle,
		Frequency: p.Attempts,
		TimeStuck: timeStuck,
		Severity:  LevelMedium,
		Impact:    LevelMedium,
	}

	// Classification precedence over error keys, first match wins
	switch {
	case hasAnyKey(p.Errors, "validation", "input"):
		blocker.BlockerType = TypeUserUnderstanding
		blocker.Description = "User input is repeatedly rejected by validation"
	case hasAnyKey(p.Errors, "technical", "system"):
		blocker.BlockerType = TypeTechnical
		blocker.Severity = LevelHigh
		blocker.Impact = LevelHigh
		blocker.Description = "Technical errors are preventing step completion"
	case hasAnyKey(p.Errors, "timeout", "network"):
		blocker.BlockerType = TypeSystem
		blocker.Severity = LevelHigh
		blocker.Description = "Connectivity problems are interrupting the step"
	default:
		blocker.BlockerType = TypeUnknown
		blocker.Description = "encountered difficulties"
	}

	// Additive pattern tags; they refine an unknown type but never
	// override an already decided one
	if timeStuck > e.ExcessiveMultiplier*estimate {
		blocker.Patterns = append(blocker.Patterns, PatternExcessiveTime)
		if blocker.BlockerType == TypeUnknown {
			blocker.BlockerType = TypeContent
			blocker.Description = "Step is taking far longer than its estimate"
		}
	}
	if p.Attempts > e.HighAttempts {
		blocker.Patterns = append(blocker.Patterns, PatternMultipleAttempts)
		blocker.Severity = LevelHigh
		blocker.Impact = LevelHigh
		if blocker.BlockerType == TypeUnknown {
			blocker.BlockerType = TypeUserUnderstanding
			blocker.Description = "Repeated attempts without completing the step"
		}
	}
	if p.Status == models.StatusInProgress && len(p.UserActions) < e.MinUserActions {
		blocker.Patterns = append(blocker.Patterns, PatternLowEngagement)
		if blocker.BlockerType == TypeUnknown {
			blocker.BlockerType = TypeEngagement
			blocker.Description = "Little recorded activity while the step is open"
		}
	}

	blocker.SuggestedResolution = resolutionFor(blocker.BlockerType)
	return blocker
}

// IdentifyProgressPatterns evaluates session-wide signals. Each detected
// pattern is an independent, additive blocker.
func (e *Engine) IdentifyProgressPatterns(rows []models.StepProgress, now time.Time) []models.Blocker {
	var patterns []models.Blocker

	failed := 0
	skipped := 0
	completedMinutes := 0.0
	completedCount := 0
	var lastUpdate time.Time

	for _, row := range rows {
		switch row.Status {
		case models.StatusFailed:
			failed++
		case models.StatusSkipped:
			skipped++
		case models.StatusCompleted:
			completedMinutes += float64(row.TimeSpent) / 60
			completedCount++
		}
		if row.UpdatedAt.After(lastUpdate) {
			lastUpdate = row.UpdatedAt
		}
	}

	if failed >= e.FailedPatternCount {
		patterns = append(patterns, models.Blocker{
			StepID:              PatternStepID,
			StepTitle:           "Session pattern",
			BlockerType:         TypeUserUnderstanding,
			Description:         "Multiple steps are failing across the session",
			Frequency:           failed,
			SuggestedResolution: resolutionFor(TypeUserUnderstanding),
			Severity:            LevelHigh,
			Impact:              LevelHigh,
			Patterns:            []string{PatternConsistentFailures},
		})
	}

	if skipped >= e.SkippedPatternCount {
		patterns = append(patterns, models.Blocker{
			StepID:              PatternStepID,
			StepTitle:           "Session pattern",
			BlockerType:         TypeEngagement,
			Description:         "The user is skipping a large share of steps",
			Frequency:           skipped,
			SuggestedResolution: resolutionFor(TypeEngagement),
			Severity:            LevelMedium,
			Impact:              LevelHigh,
			Patterns:            []string{PatternExcessiveSkipping},
		})
	}

	if completedCount > 0 {
		average := completedMinutes / float64(completedCount)
		if average > e.SlowAverageMinutes {
			patterns = append(patterns, models.Blocker{
				StepID:              PatternStepID,
				StepTitle:           "Session pattern",
				BlockerType:         TypeTimePressure,
				Description:         "Completed steps take well above the expected time",
				Frequency:           completedCount,
				SuggestedResolution: resolutionFor(TypeTimePressure),
				Severity:            LevelMedium,
				Impact:              LevelMedium,
				TimeStuck:           average,
				Patterns:            []string{PatternSlowProgress},
			})
		}
	}

	if !lastUpdate.IsZero() && now.Sub(lastUpdate) > e.AbandonedAfter {
		patterns = append(patterns, models.Blocker{
			StepID:              PatternStepID,
			StepTitle:           "Session pattern",
			BlockerType:         TypeEngagement,
			Description:         "No activity recorded for over a day",
			Frequency:           1,
			SuggestedResolution: resolutionFor(TypeEngagement),
			Severity:            LevelHigh,
			Impact:              LevelHigh,
			TimeStuck:           now.Sub(lastUpdate).Minutes(),
			Patterns:            []string{PatternAbandonedSession},
		})
	}

	return patterns
}

// stuckMinutes is the time a step has been stuck: minutes since start
// while still in progress, otherwise the recorded time spent
func stuckMinutes(p *models.StepProgress, now time.Time) float64 {
	if p.Status == models.StatusInProgress && p.StartedAt != nil {
		return now.Sub(*p.StartedAt).Minutes()
	}
	return float64(p.TimeSpent) / 60
}

func hasAnyKey(m models.JSONMap, keys ...string) bool {
	for _, k := range keys {
		if _, ok := m[k]; ok {
			return true
		}
	}
	return false
}

func resolutionFor(blockerType string) string {
	switch blockerType {
	case TypeUserUnderstanding:
		return "Clarify the step instructions and offer guided help"
	case TypeTechnical:
		return "Investigate the reported errors and verify system status"
	case TypeSystem:
		return "Check connectivity and retry the step"
	case TypeContent:
		return "Split the step into smaller tasks or improve its materials"
	case TypeEngagement:
		return "Reach out to the user and restate the value of the step"
	case TypeTimePressure:
		return "Review the time estimates or reduce the workload per step"
	default:
		return "Review the session with the user"
	}
}
