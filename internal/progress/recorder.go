package progress

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/example/onboardtrack/internal/database"
	"github.com/example/onboardtrack/pkg/models"
)

// MilestoneChecker evaluates milestone criteria after a step completes.
// Implemented by the milestones engine; kept as an interface so the
// recorder does not depend on it directly.
type MilestoneChecker interface {
	CheckAndAwardMilestones(ctx context.Context, sessionID, stepID, userID string) error
}

// Patch carries the fields a mutation wants to overwrite on a progress
// row. Nil pointers leave the current value untouched. Map fields replace
// the whole map; callers that want a merge must pre-merge.
type Patch struct {
	Status       *string
	StartedAt    *time.Time
	CompletedAt  *time.Time
	TimeSpent    *int
	Attempts     *int
	Score        *float64
	Feedback     models.JSONMap
	UserActions  models.JSONMap
	StepResult   models.JSONMap
	Errors       models.JSONMap
	Achievements models.JSONMap
}

// Recorder is the state machine that creates and updates step progress
// rows. It is the only writer of step_progress.
type Recorder struct {
	progressRepo *database.StepProgressRepository
	sessionRepo  *database.SessionRepository
	stepRepo     *database.StepRepository
	analytics    *database.AnalyticsRepository
	milestones   MilestoneChecker
}

// NewRecorder creates a recorder. The milestone checker may be nil, in
// which case completions skip milestone evaluation.
func NewRecorder(milestones MilestoneChecker) *Recorder {
	return &Recorder{
		progressRepo: database.NewStepProgressRepository(),
		sessionRepo:  database.NewSessionRepository(),
		stepRepo:     database.NewStepRepository(),
		analytics:    database.NewAnalyticsRepository(),
		milestones:   milestones,
	}
}

// RecordProgress is the single upsert primitive behind every mutation.
// The row is created with defaults on first use, then the patch is
// applied field by field. The write is a hard error; the aggregate
// recompute and the analytics event are best-effort side effects.
func (r *Recorder) RecordProgress(ctx context.Context, sessionID, stepID, userID string, patch Patch) (*models.StepProgress, error) {
	row, err := r.progressRepo.GetBySessionAndStep(sessionID, stepID)
	if err != nil {
		return nil, fmt.Errorf("failed to record progress: %v", err)
	}
	if row == nil {
		row = &models.StepProgress{
			SessionID: sessionID,
			StepID:    stepID,
			UserID:    userID,
			Status:    models.StatusNotStarted,
			Attempts:  0,
			TimeSpent: 0,
		}
	}

	applyPatch(row, patch)

	if err := r.progressRepo.CreateOrUpdate(row); err != nil {
		return nil, fmt.Errorf("failed to record progress: %v", err)
	}

	r.recomputeSessionAggregate(ctx, sessionID)
	r.analytics.LogAsync("step_progress_updated", sessionID, userID, stepID, models.JSONMap{
		"status":     row.Status,
		"attempts":   row.Attempts,
		"time_spent": row.TimeSpent,
	})

	return row, nil
}

// StartStep marks a step as started. The attempt counter is set to 1 on
// the first start only; restarts increment it explicitly via the patch.
func (r *Recorder) StartStep(ctx context.Context, sessionID, stepID, userID string) (*models.StepProgress, error) {
	existing, err := r.progressRepo.GetBySessionAndStep(sessionID, stepID)
	if err != nil {
		return nil, fmt.Errorf("failed to start step: %v", err)
	}

	now := time.Now()
	status := models.StatusInProgress
	patch := Patch{
		Status:    &status,
		StartedAt: &now,
	}
	if existing == nil {
		attempts := 1
		patch.Attempts = &attempts
	}

	return r.RecordProgress(ctx, sessionID, stepID, userID, patch)
}

// UpdateStepProgress records accumulated time and user activity while the
// step stays in progress
func (r *Recorder) UpdateStepProgress(ctx context.Context, sessionID, stepID, userID string, timeSpent int, userActions models.JSONMap) (*models.StepProgress, error) {
	status := models.StatusInProgress
	return r.RecordProgress(ctx, sessionID, stepID, userID, Patch{
		Status:      &status,
		TimeSpent:   &timeSpent,
		UserActions: userActions,
	})
}

// SkipStep marks a step as skipped and records the reason
func (r *Recorder) SkipStep(ctx context.Context, sessionID, stepID, userID, reason string) (*models.StepProgress, error) {
	now := time.Now()
	status := models.StatusSkipped
	return r.RecordProgress(ctx, sessionID, stepID, userID, Patch{
		Status:      &status,
		CompletedAt: &now,
		StepResult:  models.JSONMap{"skip_reason": reason},
	})
}

// FailStep marks a step as failed with structured errors and counts the
// failed attempt
func (r *Recorder) FailStep(ctx context.Context, sessionID, stepID, userID string, stepErrors models.JSONMap) (*models.StepProgress, error) {
	existing, err := r.progressRepo.GetBySessionAndStep(sessionID, stepID)
	if err != nil {
		return nil, fmt.Errorf("failed to fail step: %v", err)
	}
	attempts := 1
	if existing != nil {
		attempts = existing.Attempts + 1
	}

	now := time.Now()
	status := models.StatusFailed
	return r.RecordProgress(ctx, sessionID, stepID, userID, Patch{
		Status:      &status,
		CompletedAt: &now,
		Attempts:    &attempts,
		Errors:      stepErrors,
	})
}

// CompletionResult is the caller-supplied outcome of a finished step
type CompletionResult struct {
	Status       string // Normally "completed"
	Score        *float64
	TimeSpent    *int
	Feedback     models.JSONMap
	StepResult   models.JSONMap
	Achievements models.JSONMap
}

// RecordStepCompletion writes the terminal state of a step and then
// triggers milestone evaluation. The write propagates failure to the
// caller; the milestone check is best-effort.
func (r *Recorder) RecordStepCompletion(ctx context.Context, sessionID, stepID, userID string, result CompletionResult) (*models.StepProgress, error) {
	status := result.Status
	if status == "" {
		status = models.StatusCompleted
	}

	patch := Patch{
		Status:       &status,
		Score:        result.Score,
		TimeSpent:    result.TimeSpent,
		Feedback:     result.Feedback,
		StepResult:   result.StepResult,
		Achievements: result.Achievements,
	}
	if status == models.StatusCompleted || status == models.StatusSkipped || status == models.StatusFailed {
		now := time.Now()
		patch.CompletedAt = &now
	}

	row, err := r.RecordProgress(ctx, sessionID, stepID, userID, patch)
	if err != nil {
		return nil, err
	}

	if r.milestones != nil {
		if err := r.milestones.CheckAndAwardMilestones(ctx, sessionID, stepID, userID); err != nil {
			log.Printf("Error checking milestones for session %s: %v", sessionID, err)
		}
	}

	r.analytics.LogAsync("step_completed", sessionID, userID, stepID, models.JSONMap{
		"status": status,
	})

	return row, nil
}

// recomputeSessionAggregate re-derives the session's percentage, time and
// step index from the step rows. Failures are logged, never propagated.
func (r *Recorder) recomputeSessionAggregate(ctx context.Context, sessionID string) {
	session, err := r.sessionRepo.GetByID(ctx, sessionID)
	if err != nil {
		log.Printf("Error loading session %s for aggregate recompute: %v", sessionID, err)
		return
	}
	if session == nil {
		log.Printf("Session %s not found during aggregate recompute", sessionID)
		return
	}

	totalSteps, err := r.stepRepo.CountByPath(session.PathID)
	if err != nil {
		log.Printf("Error counting steps for path %s: %v", session.PathID, err)
		return
	}

	rows, err := r.progressRepo.ListBySession(sessionID)
	if err != nil {
		log.Printf("Error listing progress for session %s: %v", sessionID, err)
		return
	}

	completed := 0
	advanced := 0
	timeSpent := 0
	for _, row := range rows {
		timeSpent += row.TimeSpent
		switch row.Status {
		case models.StatusCompleted:
			completed++
			advanced++
		case models.StatusSkipped:
			advanced++
		}
	}

	percentage := 0.0
	if totalSteps > 0 {
		percentage = float64(completed) / float64(totalSteps) * 100
	}

	if err := r.sessionRepo.UpdateAggregate(ctx, sessionID, percentage, timeSpent, advanced); err != nil {
		log.Printf("Error updating session aggregate for %s: %v", sessionID, err)
	}
}

// applyPatch overwrites row fields from the patch. Field-level overwrite,
// no deep merge.
func applyPatch(row *models.StepProgress, patch Patch) {
	if patch.Status != nil {
		row.Status = *patch.Status
	}
	if patch.StartedAt != nil {
		row.StartedAt = patch.StartedAt
	}
	if patch.CompletedAt != nil {
		row.CompletedAt = patch.CompletedAt
	}
	if patch.TimeSpent != nil {
		row.TimeSpent = *patch.TimeSpent
	}
	if patch.Attempts != nil {
		row.Attempts = *patch.Attempts
	}
	if patch.Score != nil {
		row.Score = patch.Score
	}
	if patch.Feedback != nil {
		row.Feedback = patch.Feedback
	}
	if patch.UserActions != nil {
		row.UserActions = patch.UserActions
	}
	if patch.StepResult != nil {
		row.StepResult = patch.StepResult
	}
	if patch.Errors != nil {
		row.Errors = patch.Errors
	}
	if patch.Achievements != nil {
		row.Achievements = patch.Achievements
	}

	// A terminal status always carries a completion time; clearing it
	// again only happens when the status leaves the terminal set.
	if row.IsTerminal() && row.CompletedAt == nil {
		now := time.Now()
		row.CompletedAt = &now
	}
	if !row.IsTerminal() {
		row.CompletedAt = nil
	}
	if row.TimeSpent < 0 {
		row.TimeSpent = 0
	}
}
