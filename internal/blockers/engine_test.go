package blockers

import (
	"testing"
	"time"

	"github.com/example/onboardtrack/pkg/models"
)

func newTestEngine() *Engine {
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
	}
}

func hasPattern(b *models.Blocker, pattern string) bool {
	for _, p := range b.Patterns {
		if p == pattern {
			return true
		}
	}
	return false
}

func TestAnalyzeStepNoSignals(t *testing.T) {
	e := newTestEngine()
	now := time.Now()

	p := &models.StepProgress{
		StepID:    "step-1",
		Status:    models.StatusCompleted,
		TimeSpent: 300, // 5 minutes against a 10 minute estimate
		Attempts:  1,
	}
	if b := e.AnalyzeStep(p, "Intro", 10, now); b != nil {
		t.Fatalf("expected no blocker, got %+v", b)
	}
}

func TestAnalyzeStepManyAttemptsNoErrors(t *testing.T) {
	e := newTestEngine()
	now := time.Now()

	p := &models.StepProgress{
		StepID:   "step-1",
		Status:   models.StatusCompleted,
		Attempts: 6,
	}
	b := e.AnalyzeStep(p, "Setup", 10, now)
	if b == nil {
		t.Fatal("expected a blocker for attempts > 3")
	}
	if b.Severity != LevelHigh || b.Impact != LevelHigh {
		t.Fatalf("expected high/high, got %s/%s", b.Severity, b.Impact)
	}
	if !hasPattern(b, PatternMultipleAttempts) {
		t.Fatalf("expected multiple_attempts pattern, got %v", b.Patterns)
	}
	if b.BlockerType != TypeUserUnderstanding {
		t.Fatalf("expected user_understanding, got %s", b.BlockerType)
	}
}

func TestAnalyzeStepValidationErrors(t *testing.T) {
	e := newTestEngine()
	now := time.Now()

	p := &models.StepProgress{
		StepID: "step-2",
		Status: models.StatusFailed,
		Errors: models.JSONMap{"validation": "email format rejected"},
	}
	b := e.AnalyzeStep(p, "Profile", 10, now)
	if b == nil {
		t.Fatal("expected a blocker for a failed step")
	}
	if b.BlockerType != TypeUserUnderstanding {
		t.Fatalf("expected user_understanding, got %s", b.BlockerType)
	}
	if b.Severity != LevelMedium {
		t.Fatalf("expected medium severity, got %s", b.Severity)
	}
}

func TestAnalyzeStepClassificationPrecedence(t *testing.T) {
	e := newTestEngine()
	now := time.Now()

	// validation outranks technical when both keys are present
	p := &models.StepProgress{
		StepID: "step-3",
		Status: models.StatusFailed,
		Errors: models.JSONMap{
			"validation": "bad input",
			"technical":  "db write failed",
		},
	}
	b := e.AnalyzeStep(p, "Billing", 10, now)
	if b == nil || b.BlockerType != TypeUserUnderstanding {
		t.Fatalf("expected user_understanding to win precedence, got %+v", b)
	}

	p.Errors = models.JSONMap{"technical": "db write failed", "timeout": "slow"}
	b = e.AnalyzeStep(p, "Billing", 10, now)
	if b == nil || b.BlockerType != TypeTechnical {
		t.Fatalf("expected technical to outrank timeout, got %+v", b)
	}
	if b.Severity != LevelHigh || b.Impact != LevelHigh {
		t.Fatalf("expected high/high for technical, got %s/%s", b.Severity, b.Impact)
	}

	p.Errors = models.JSONMap{"network": "offline"}
	b = e.AnalyzeStep(p, "Billing", 10, now)
	if b == nil || b.BlockerType != TypeSystem {
		t.Fatalf("expected system for network errors, got %+v", b)
	}
	if b.Severity != LevelHigh || b.Impact != LevelMedium {
		t.Fatalf("expected high/medium for system, got %s/%s", b.Severity, b.Impact)
	}
}

func TestAnalyzeStepExcessiveTime(t *testing.T) {
	e := newTestEngine()
	now := time.Now()
	started := now.Add(-100 * time.Minute)

	p := &models.StepProgress{
		StepID:    "step-4",
		Status:    models.StatusInProgress,
		StartedAt: &started,
		Attempts:  1,
		UserActions: models.JSONMap{
			"click": 4, "scroll": 10, "input": 2,
		},
	}
	b := e.AnalyzeStep(p, "Integration", 10, now)
	if b == nil {
		t.Fatal("expected a blocker for 100 minutes on a 10 minute step")
	}
	if !hasPattern(b, PatternExcessiveTime) {
		t.Fatalf("expected excessive_time pattern, got %v", b.Patterns)
	}
	if b.BlockerType != TypeContent {
		t.Fatalf("expected content type, got %s", b.BlockerType)
	}
	if hasPattern(b, PatternLowEngagement) {
		t.Fatalf("did not expect low_engagement with 3 action kinds, got %v", b.Patterns)
	}
	if b.TimeStuck < 99 || b.TimeStuck > 101 {
		t.Fatalf("expected timeStuck near 100 minutes, got %f", b.TimeStuck)
	}
}

func TestAnalyzeStepLowEngagement(t *testing.T) {
	e := newTestEngine()
	now := time.Now()
	started := now.Add(-25 * time.Minute)

	p := &models.StepProgress{
		StepID:      "step-5",
		Status:      models.StatusInProgress,
		StartedAt:   &started,
		Attempts:    1,
		UserActions: models.JSONMap{"click": 1},
	}
	b := e.AnalyzeStep(p, "Team invite", 10, now)
	if b == nil {
		t.Fatal("expected a blocker for 25 minutes on a 10 minute step")
	}
	if !hasPattern(b, PatternLowEngagement) {
		t.Fatalf("expected low_engagement pattern, got %v", b.Patterns)
	}
	if b.BlockerType != TypeEngagement {
		t.Fatalf("expected engagement type, got %s", b.BlockerType)
	}
}

func TestIdentifyProgressPatterns(t *testing.T) {
	e := newTestEngine()
	now := time.Now()

	var rows []models.StepProgress
	for i := 0; i < 3; i++ {
		rows = append(rows, models.StepProgress{Status: models.StatusFailed, UpdatedAt: now})
	}
	for i := 0; i < 4; i++ {
		rows = append(rows, models.StepProgress{Status: models.StatusSkipped, UpdatedAt: now})
	}
	// Two completed steps averaging 20 minutes
	rows = append(rows,
		models.StepProgress{Status: models.StatusCompleted, TimeSpent: 18 * 60, UpdatedAt: now},
		models.StepProgress{Status: models.StatusCompleted, TimeSpent: 22 * 60, UpdatedAt: now},
	)

	patterns := e.IdentifyProgressPatterns(rows, now)
	if len(patterns) != 3 {
		t.Fatalf("expected 3 patterns, got %d: %+v", len(patterns), patterns)
	}

	byTag := map[string]models.Blocker{}
	for _, p := range patterns {
		if p.StepID != PatternStepID {
			t.Fatalf("pattern blocker has stepID %q", p.StepID)
		}
		byTag[p.Patterns[0]] = p
	}

	if b, ok := byTag[PatternConsistentFailures]; !ok || b.BlockerType != TypeUserUnderstanding || b.Severity != LevelHigh {
		t.Fatalf("bad consistent_failures blocker: %+v", b)
	}
	if b, ok := byTag[PatternExcessiveSkipping]; !ok || b.BlockerType != TypeEngagement || b.Impact != LevelHigh {
		t.Fatalf("bad excessive_skipping blocker: %+v", b)
	}
	if b, ok := byTag[PatternSlowProgress]; !ok || b.BlockerType != TypeTimePressure || b.TimeStuck != 20 {
		t.Fatalf("bad slow_progress blocker: %+v", b)
	}
}

func TestIdentifyProgressPatternsAbandoned(t *testing.T) {
	e := newTestEngine()
	now := time.Now()

	rows := []models.StepProgress{
		{Status: models.StatusInProgress, UpdatedAt: now.Add(-30 * time.Hour)},
	}
	patterns := e.IdentifyProgressPatterns(rows, now)
	if len(patterns) != 1 {
		t.Fatalf("expected 1 pattern, got %d", len(patterns))
	}
	b := patterns[0]
	if !hasPattern(&b, PatternAbandonedSession) {
		t.Fatalf("expected abandoned_session, got %v", b.Patterns)
	}
	if b.Severity != LevelHigh || b.Impact != LevelHigh {
		t.Fatalf("expected high/high, got %s/%s", b.Severity, b.Impact)
	}
}

func TestIdentifyProgressPatternsQuietSession(t *testing.T) {
	e := newTestEngine()
	now := time.Now()

	rows := []models.StepProgress{
		{Status: models.StatusCompleted, TimeSpent: 10 * 60, UpdatedAt: now},
		{Status: models.StatusCompleted, TimeSpent: 8 * 60, UpdatedAt: now},
		{Status: models.StatusSkipped, UpdatedAt: now},
	}
	if patterns := e.IdentifyProgressPatterns(rows, now); len(patterns) != 0 {
		t.Fatalf("expected no patterns, got %+v", patterns)
	}
}
