package database

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/example/onboardtrack/pkg/models"
)

// ErrDuplicateAchievement is returned when an insert hits the unique key
// on (user_id, session_id, milestone_id). Callers treat it as "already
// awarded", not as a failure.
var ErrDuplicateAchievement = errors.New("achievement already exists")

// AchievementRepository handles database operations for user achievements
type AchievementRepository struct{}

// NewAchievementRepository creates a new repository instance
func NewAchievementRepository() *AchievementRepository {
	return &AchievementRepository{}
}

// GetByKey returns the achievement for a (user, session, milestone) triple,
// or (nil, nil) when none was awarded yet
func (r *AchievementRepository) GetByKey(userID, sessionID, milestoneID string) (*models.UserAchievement, error) {
	var achievement models.UserAchievement
	err := DB.Get(&achievement,
		"SELECT * FROM user_achievements WHERE user_id = $1 AND session_id = $2 AND milestone_id = $3",
		userID, sessionID, milestoneID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get achievement: %v", err)
	}
	return &achievement, nil
}

// ListBySession returns a session's achievements ordered by earn time
func (r *AchievementRepository) ListBySession(sessionID string) ([]models.UserAchievement, error) {
	var achievements []models.UserAchievement
	err := DB.Select(&achievements,
		"SELECT * FROM user_achievements WHERE session_id = $1 ORDER BY earned_at ASC", sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list achievements: %v", err)
	}
	return achievements, nil
}

// Create inserts an achievement row. A unique-key violation comes back as
// ErrDuplicateAchievement so a racing second award stays a no-op.
func (r *AchievementRepository) Create(achievement *models.UserAchievement) error {
	if achievement.EarnedAt.IsZero() {
		achievement.EarnedAt = time.Now()
	}

	result, err := DB.Exec(`
		INSERT INTO user_achievements (user_id, session_id, milestone_id, earned_at, achievement_data)
		VALUES ($1, $2, $3, $4, $5)
	`,
		achievement.UserID,
		achievement.SessionID,
		achievement.MilestoneID,
		achievement.EarnedAt,
		achievement.AchievementData,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateAchievement
		}
		return fmt.Errorf("failed to create achievement: %v", err)
	}

	id, err := result.LastInsertId()
	if err == nil {
		achievement.ID = id
	}
	return nil
}

// isUniqueViolation recognizes the unique-constraint error of both drivers
func isUniqueViolation(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") || // sqlite3
		strings.Contains(msg, "duplicate key value") // postgres
}
