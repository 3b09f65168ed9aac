package milestones

import (
	"context"
	"fmt"
	"log"
	"math"

	"github.com/example/onboardtrack/internal/analytics"
	"github.com/example/onboardtrack/internal/database"
	"github.com/example/onboardtrack/pkg/models"
)

// Notifier delivers achievement notifications. Sends are best-effort;
// a failing notifier never fails an award.
type Notifier interface {
	NotifyAchievement(achievement *models.UserAchievement, milestone *models.Milestone) error
}

// CustomPredicate decides an "achievement" type milestone against the
// current aggregate progress. Registered per milestone id; a milestone
// without a predicate never evaluates true.
type CustomPredicate func(progress *models.OverallProgress) bool

// BadgeProgress is the 0-100 completion preview toward an unearned
// milestone
type BadgeProgress struct {
	Milestone models.Milestone `json:"milestone"`
	Percent   float64          `json:"percent"`
}

// Engine evaluates milestone criteria and grants achievements exactly
// once per (user, session, milestone)
type Engine struct {
	milestoneRepo   *database.MilestoneRepository
	achievementRepo *database.AchievementRepository
	analyticsRepo   *database.AnalyticsRepository
	progress        *analytics.Service
	notifier        Notifier
	custom          map[string]CustomPredicate
}

// NewEngine creates a milestone engine. The notifier may be nil.
func NewEngine(progress *analytics.Service, notifier Notifier) *Engine {
	if progress == nil {
		progress = analytics.NewService(nil)
	}
	return &Engine{
		milestoneRepo:   database.NewMilestoneRepository(),
		achievementRepo: database.NewAchievementRepository(),
		analyticsRepo:   database.NewAnalyticsRepository(),
		progress:        progress,
		notifier:        notifier,
		custom:          make(map[string]CustomPredicate),
	}
}

// RegisterCustomPredicate attaches the predicate used by an
// "achievement" type milestone
func (e *Engine) RegisterCustomPredicate(milestoneID string, predicate CustomPredicate) {
	e.custom[milestoneID] = predicate
}

// CheckAndAwardMilestones evaluates every active milestone against the
// session's current progress and awards the ones whose criteria hold.
// Individual award failures are logged and do not stop the sweep.
func (e *Engine) CheckAndAwardMilestones(ctx context.Context, sessionID, stepID, userID string) error {
	overall, err := e.progress.OverallProgress(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("failed to check milestones: %v", err)
	}

	milestones, err := e.milestoneRepo.ListActive()
	if err != nil {
		return fmt.Errorf("failed to check milestones: %v", err)
	}

	for i := range milestones {
		if !e.criteriaMet(&milestones[i], overall) {
			continue
		}
		data := models.JSONMap{
			"milestone_name": milestones[i].Name,
			"points":         milestones[i].Points,
			"step_id":        stepID,
		}
		if _, err := e.AwardMilestone(ctx, userID, sessionID, milestones[i].ID, data); err != nil {
			log.Printf("Error awarding milestone %s: %v", milestones[i].ID, err)
		}
	}

	return nil
}

// AwardMilestone grants a milestone exactly once. A second call with the
// same (user, session, milestone) returns the existing row unchanged;
// the unique key on the table closes the race between check and insert.
func (e *Engine) AwardMilestone(ctx context.Context, userID, sessionID, milestoneID string, data models.JSONMap) (*models.UserAchievement, error) {
	existing, err := e.achievementRepo.GetByKey(userID, sessionID, milestoneID)
	if err != nil {
		return nil, fmt.Errorf("failed to award milestone: %v", err)
	}
	if existing != nil {
		return existing, nil
	}

	achievement := &models.UserAchievement{
		UserID:          userID,
		SessionID:       sessionID,
		MilestoneID:     milestoneID,
		AchievementData: data,
	}

	err = e.achievementRepo.Create(achievement)
	if err == database.ErrDuplicateAchievement {
		// A concurrent caller won the insert; return its row
		return e.achievementRepo.GetByKey(userID, sessionID, milestoneID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to award milestone: %v", err)
	}

	e.analyticsRepo.LogAsync("milestone_awarded", sessionID, userID, "", models.JSONMap{
		"milestone_id": milestoneID,
	})

	if e.notifier != nil {
		milestone, mErr := e.milestoneRepo.GetByID(milestoneID)
		if mErr != nil || milestone == nil {
			log.Printf("Milestone %s not loadable for notification: %v", milestoneID, mErr)
		} else if nErr := e.notifier.NotifyAchievement(achievement, milestone); nErr != nil {
			log.Printf("Error notifying achievement for milestone %s: %v", milestoneID, nErr)
		}
	}

	return achievement, nil
}

// AvailableBadges previews the completion percentage toward every active
// milestone the user has not earned in this session yet
func (e *Engine) AvailableBadges(ctx context.Context, sessionID, userID string) ([]BadgeProgress, error) {
	overall, err := e.progress.OverallProgress(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get available badges: %v", err)
	}

	milestones, err := e.milestoneRepo.ListActive()
	if err != nil {
		return nil, fmt.Errorf("failed to get available badges: %v", err)
	}

	var badges []BadgeProgress
	for i := range milestones {
		earned, err := e.achievementRepo.GetByKey(userID, sessionID, milestones[i].ID)
		if err != nil {
			return nil, fmt.Errorf("failed to get available badges: %v", err)
		}
		if earned != nil {
			continue
		}
		badges = append(badges, BadgeProgress{
			Milestone: milestones[i],
			Percent:   e.badgePercent(&milestones[i], overall),
		})
	}

	return badges, nil
}

// criteriaMet evaluates a milestone's criteria against current progress
func (e *Engine) criteriaMet(m *models.Milestone, overall *models.OverallProgress) bool {
	switch m.MilestoneType {
	case models.MilestoneProgress:
		required, ok := criteriaFloat(m.Criteria, "progress_percentage")
		return ok && overall.OverallProgress >= required
	case models.MilestoneCompletion:
		required := criteriaStrings(m.Criteria, "required_steps")
		if len(required) == 0 {
			return false
		}
		for _, stepID := range required {
			if !containsString(overall.CompletedSteps, stepID) {
				return false
			}
		}
		return true
	case models.MilestoneTimeBased:
		maxMinutes, ok := criteriaFloat(m.Criteria, "max_time_minutes")
		return ok && float64(overall.TimeSpent)/60 <= maxMinutes
	case models.MilestoneAchievement:
		predicate, ok := e.custom[m.ID]
		return ok && predicate(overall)
	default:
		return false
	}
}

// badgePercent uses the same criteria formulas as criteriaMet, expressed
// as progress toward the threshold and clamped to [0, 100]
func (e *Engine) badgePercent(m *models.Milestone, overall *models.OverallProgress) float64 {
	var percent float64

	switch m.MilestoneType {
	case models.MilestoneProgress:
		required, ok := criteriaFloat(m.Criteria, "progress_percentage")
		if ok && required > 0 {
			percent = overall.OverallProgress / required * 100
		}
	case models.MilestoneCompletion:
		required := criteriaStrings(m.Criteria, "required_steps")
		if len(required) > 0 {
			done := 0
			for _, stepID := range required {
				if containsString(overall.CompletedSteps, stepID) {
					done++
				}
			}
			percent = float64(done) / float64(len(required)) * 100
		}
	case models.MilestoneTimeBased:
		maxMinutes, ok := criteriaFloat(m.Criteria, "max_time_minutes")
		if ok && float64(overall.TimeSpent)/60 <= maxMinutes {
			percent = 100
		}
	case models.MilestoneAchievement:
		// Custom predicates are boolean; no partial progress to show
		percent = 0
	}

	return math.Max(0, math.Min(100, percent))
}

// criteriaFloat reads a numeric criteria value. JSON numbers decode as
// float64; integer payloads written in Go land as int.
func criteriaFloat(criteria models.JSONMap, key string) (float64, bool) {
	switch v := criteria[key].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	default:
		return 0, false
	}
}

// criteriaStrings reads a string-list criteria value
func criteriaStrings(criteria models.JSONMap, key string) []string {
	var result []string
	switch v := criteria[key].(type) {
	case []interface{}:
		for _, item := range v {
			if s, ok := item.(string); ok {
				result = append(result, s)
			}
		}
	case []string:
		result = v
	}
	return result
}

func containsString(list []string, target string) bool {
	for _, item := range list {
		if item == target {
			return true
		}
	}
	return false
}
