package database

import (
	"database/sql"
	"fmt"

	"github.com/example/onboardtrack/pkg/models"
)

// MilestoneRepository handles database operations for milestone definitions
type MilestoneRepository struct{}

// NewMilestoneRepository creates a new repository instance
func NewMilestoneRepository() *MilestoneRepository {
	return &MilestoneRepository{}
}

// GetByID returns a milestone definition, or (nil, nil) when unknown
func (r *MilestoneRepository) GetByID(id string) (*models.Milestone, error) {
	var milestone models.Milestone
	err := DB.Get(&milestone, "SELECT * FROM milestones WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get milestone: %v", err)
	}
	return &milestone, nil
}

// ListActive returns all active milestone definitions
func (r *MilestoneRepository) ListActive() ([]models.Milestone, error) {
	var milestones []models.Milestone
	err := DB.Select(&milestones, "SELECT * FROM milestones WHERE is_active = true ORDER BY created_at ASC")
	if err != nil {
		return nil, fmt.Errorf("failed to list active milestones: %v", err)
	}
	return milestones, nil
}

// Create inserts a milestone definition
func (r *MilestoneRepository) Create(milestone *models.Milestone) error {
	_, err := DB.Exec(`
		INSERT INTO milestones (id, name, description, milestone_type, criteria, points, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`,
		milestone.ID,
		milestone.Name,
		milestone.Description,
		milestone.MilestoneType,
		milestone.Criteria,
		milestone.Points,
		milestone.IsActive,
	)
	if err != nil {
		return fmt.Errorf("failed to create milestone: %v", err)
	}
	return nil
}
