package database

import (
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/example/onboardtrack/pkg/models"
)

// AnalyticsEvent is one append-only entry in the analytics log
type AnalyticsEvent struct {
	ID        string         `db:"id"`
	EventType string         `db:"event_type"`
	SessionID string         `db:"session_id"`
	UserID    string         `db:"user_id"`
	StepID    string         `db:"step_id"`
	Payload   models.JSONMap `db:"payload"`
	CreatedAt time.Time      `db:"created_at"`
}

// AnalyticsRepository handles the append-only analytics event log
type AnalyticsRepository struct{}

// NewAnalyticsRepository creates a new repository instance
func NewAnalyticsRepository() *AnalyticsRepository {
	return &AnalyticsRepository{}
}

// Append writes one analytics event
func (r *AnalyticsRepository) Append(event *AnalyticsEvent) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	_, err := DB.Exec(`
		INSERT INTO analytics_events (id, event_type, session_id, user_id, step_id, payload)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, event.ID, event.EventType, event.SessionID, event.UserID, event.StepID, event.Payload)
	if err != nil {
		return fmt.Errorf("failed to append analytics event: %v", err)
	}
	return nil
}

// LogAsync appends an event without blocking the caller. Failures are
// logged and swallowed; analytics must never fail a primary operation.
func (r *AnalyticsRepository) LogAsync(eventType, sessionID, userID, stepID string, payload models.JSONMap) {
	event := &AnalyticsEvent{
		EventType: eventType,
		SessionID: sessionID,
		UserID:    userID,
		StepID:    stepID,
		Payload:   payload,
	}
	go func() {
		if err := r.Append(event); err != nil {
			log.Printf("Error logging analytics event %s: %v", eventType, err)
		}
	}()
}

// ListBySession returns a session's analytics events in append order
func (r *AnalyticsRepository) ListBySession(sessionID string) ([]AnalyticsEvent, error) {
	var events []AnalyticsEvent
	err := DB.Select(&events, "SELECT * FROM analytics_events WHERE session_id = $1 ORDER BY created_at ASC", sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list analytics events: %v", err)
	}
	return events, nil
}
