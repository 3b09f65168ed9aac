package analytics

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/example/onboardtrack/internal/blockers"
	"github.com/example/onboardtrack/internal/database"
	"github.com/example/onboardtrack/pkg/models"
)

// Trend labels
const (
	TrendIncreasing = "increasing"
	TrendStable     = "stable"
	TrendDecreasing = "decreasing"
)

// OnTrackRecommendation is returned alone when no threshold triggers
const OnTrackRecommendation = "User is on track: no intervention needed"

// Service aggregates progress, blockers and achievements into reports.
// Everything here is read-only apart from best-effort analytics logging.
type Service struct {
	progressRepo    *database.StepProgressRepository
	stepRepo        *database.StepRepository
	sessionRepo     *database.SessionRepository
	achievementRepo *database.AchievementRepository
	analytics       *database.AnalyticsRepository
	blockers        *blockers.Engine
}

// NewService creates the analytics service. A nil engine gets the default
// blocker thresholds.
func NewService(engine *blockers.Engine) *Service {
	if engine == nil {
		engine = blockers.NewEngine()
	}
	return &Service{
		progressRepo:    database.NewStepProgressRepository(),
		stepRepo:        database.NewStepRepository(),
		sessionRepo:     database.NewSessionRepository(),
		achievementRepo: database.NewAchievementRepository(),
		analytics:       database.NewAnalyticsRepository(),
		blockers:        engine,
	}
}

// OverallProgress recomputes the aggregate view of a session from its
// step rows. The percentage is completed / total path steps, rounded to
// two decimals.
func (s *Service) OverallProgress(ctx context.Context, sessionID string) (*models.OverallProgress, error) {
	session, err := s.sessionRepo.GetByID(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get overall progress: %v", err)
	}
	if session == nil {
		return nil, fmt.Errorf("session %s not found", sessionID)
	}

	totalSteps, err := s.stepRepo.CountByPath(session.PathID)
	if err != nil {
		return nil, fmt.Errorf("failed to get overall progress: %v", err)
	}

	rows, err := s.progressRepo.ListBySession(sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get overall progress: %v", err)
	}

	overall := &models.OverallProgress{
		SessionID:      sessionID,
		TotalSteps:     totalSteps,
		CompletedSteps: []string{},
		SkippedSteps:   []string{},
		LastUpdated:    session.UpdatedAt,
	}

	for _, row := range rows {
		overall.TimeSpent += row.TimeSpent
		switch row.Status {
		case models.StatusCompleted:
			overall.CompletedSteps = append(overall.CompletedSteps, row.StepID)
		case models.StatusSkipped:
			overall.SkippedSteps = append(overall.SkippedSteps, row.StepID)
		}
		if row.UpdatedAt.After(overall.LastUpdated) {
			overall.LastUpdated = row.UpdatedAt
		}
	}
	overall.CompletedCount = len(overall.CompletedSteps)

	if totalSteps > 0 {
		overall.OverallProgress = round2(float64(overall.CompletedCount) / float64(totalSteps) * 100)
	}

	achievements, err := s.achievementRepo.ListBySession(sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get overall progress: %v", err)
	}
	overall.Achievements = achievements

	return overall, nil
}

// GenerateReport composes overall progress, blockers and achievements
// into derived scores, recommendations and trends
func (s *Service) GenerateReport(ctx context.Context, sessionID string) (*models.ProgressReport, error) {
	overall, err := s.OverallProgress(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	rows, err := s.progressRepo.ListBySession(sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to generate report: %v", err)
	}

	blockerList, err := s.blockers.IdentifyBlockers(sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to generate report: %v", err)
	}

	completed := 0
	skipped := 0
	failed := 0
	completedMinutes := 0.0
	for _, row := range rows {
		switch row.Status {
		case models.StatusCompleted:
			completed++
			completedMinutes += float64(row.TimeSpent) / 60
		case models.StatusSkipped:
			skipped++
		case models.StatusFailed:
			failed++
		}
	}

	report := &models.ProgressReport{
		SessionID:   sessionID,
		GeneratedAt: time.Now(),
		Overall:     *overall,
		Blockers:    blockerList,
	}

	// Rates are over recorded step rows, not over the path's step count
	if len(rows) > 0 {
		total := float64(len(rows))
		report.CompletionRate = float64(completed) / total * 100
		report.SkipRate = float64(skipped) / total * 100
		report.FailureRate = float64(failed) / total * 100
	}
	if completed > 0 {
		report.AverageTimePerStep = completedMinutes / float64(completed)
	}

	report.EngagementScore = math.Max(0, 100-2*report.SkipRate-3*report.FailureRate)
	// Difficulty has no upper clamp: raw magnitude is meaningful for very
	// difficult paths
	report.DifficultyScore = 2*report.FailureRate + report.AverageTimePerStep/10 + 10*float64(len(blockerList))

	report.Recommendations = s.recommendations(report)
	report.Trends = models.Trends{
		EngagementTrend: trendFor(report.EngagementScore, 70, 40),
		DifficultyTrend: trendFor(report.DifficultyScore, 60, 30),
		TimeEfficiency:  math.Max(0, 100-report.AverageTimePerStep/15*100),
	}

	s.analytics.LogAsync("report_generated", sessionID, "", "", models.JSONMap{
		"completion_rate":  report.CompletionRate,
		"engagement_score": report.EngagementScore,
		"difficulty_score": report.DifficultyScore,
		"blocker_count":    len(blockerList),
	})

	return report, nil
}

// recommendations appends one advice line per triggered threshold; when
// nothing triggers the single on-track message is returned instead
func (s *Service) recommendations(report *models.ProgressReport) []string {
	var recs []string

	if report.CompletionRate < 50 {
		recs = append(recs, "Completion rate is below half: simplify early steps or provide more guidance")
	}
	if report.SkipRate > 30 {
		recs = append(recs, "Skip rate is high: clarify why skipped steps matter and make them easier to finish")
	}
	if report.FailureRate > 20 {
		recs = append(recs, "Failure rate is high: review failing steps for unclear requirements")
	}
	if report.EngagementScore < 40 {
		recs = append(recs, "Engagement is low: reduce the skip rate and address failing steps to re-engage the user")
	}
	if report.DifficultyScore > 60 {
		recs = append(recs, "The path is running very difficult: consider splitting or reordering demanding steps")
	}
	if report.AverageTimePerStep > 20 {
		recs = append(recs, "Steps take longer than expected: revisit time estimates and content length")
	}
	if len(report.Blockers) > 3 {
		recs = append(recs, "Several blockers are active: prioritize resolving them before adding steps")
	}

	if len(recs) == 0 {
		return []string{OnTrackRecommendation}
	}
	return recs
}

func trendFor(score, high, low float64) string {
	if score >= high {
		return TrendIncreasing
	}
	if score >= low {
		return TrendStable
	}
	return TrendDecreasing
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
