package offline

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/example/onboardtrack/internal/analytics"
	"github.com/example/onboardtrack/internal/database"
	"github.com/example/onboardtrack/pkg/models"
)

// ConflictTolerance is how far the cache and server timestamps may
// diverge before a conflict is reported
const ConflictTolerance = 30 * time.Second

const backupKeyPrefix = "onboarding_backup_"

// Manager mirrors session progress into the local cache and reconciles
// it with server state on reconnect. The record store stays the source
// of truth; the manager only ever reports conflicts, it never merges.
type Manager struct {
	store           CacheStore
	progress        *analytics.Service
	achievementRepo *database.AchievementRepository
}

// NewManager creates an offline manager. A nil store turns every
// operation into a silent no-op.
func NewManager(store CacheStore, progress *analytics.Service) *Manager {
	if progress == nil {
		progress = analytics.NewService(nil)
	}
	return &Manager{
		store:           store,
		progress:        progress,
		achievementRepo: database.NewAchievementRepository(),
	}
}

// Backup snapshots the session's current server state into the cache.
// Best-effort: failures are logged and never surface to the caller.
func (m *Manager) Backup(ctx context.Context, sessionID, userID string) {
	if m.store == nil {
		return
	}

	overall, err := m.progress.OverallProgress(ctx, sessionID)
	if err != nil {
		log.Printf("Error backing up session %s: %v", sessionID, err)
		return
	}

	achievements, err := m.achievementRepo.ListBySession(sessionID)
	if err != nil {
		log.Printf("Error backing up session %s: %v", sessionID, err)
		return
	}

	now := time.Now()
	snapshot := models.ProgressSnapshot{
		SessionID:    sessionID,
		UserID:       userID,
		Progress:     overall,
		Achievements: achievements,
		LastBackup:   &now,
	}

	data, err := json.Marshal(snapshot)
	if err != nil {
		log.Printf("Error serializing backup for session %s: %v", sessionID, err)
		return
	}

	if err := m.store.Set(ctx, backupKey(sessionID), string(data)); err != nil {
		log.Printf("Error writing backup for session %s: %v", sessionID, err)
	}
}

// Restore reads the cached snapshot back. It never fails: a missing or
// unparseable entry returns an empty snapshot.
func (m *Manager) Restore(ctx context.Context, sessionID string) *models.ProgressSnapshot {
	empty := &models.ProgressSnapshot{
		SessionID:    sessionID,
		Achievements: []models.UserAchievement{},
	}

	if m.store == nil {
		return empty
	}

	raw, ok, err := m.store.Get(ctx, backupKey(sessionID))
	if err != nil {
		log.Printf("Error reading backup for session %s: %v", sessionID, err)
		return empty
	}
	if !ok {
		return empty
	}

	var snapshot models.ProgressSnapshot
	if err := json.Unmarshal([]byte(raw), &snapshot); err != nil {
		log.Printf("Error parsing backup for session %s: %v", sessionID, err)
		return empty
	}
	if snapshot.Achievements == nil {
		snapshot.Achievements = []models.UserAchievement{}
	}
	return &snapshot
}

// Synchronize compares the cached snapshot against server state and
// reports conflicts outside the tolerance window. Neither side's data is
// applied; after comparing, current server state overwrites the cache.
func (m *Manager) Synchronize(ctx context.Context, sessionID, userID string) models.SyncResult {
	result := models.SyncResult{Conflicts: []models.Conflict{}}
	if m.store == nil {
		return result
	}

	overall, err := m.progress.OverallProgress(ctx, sessionID)
	if err != nil {
		log.Printf("Error synchronizing session %s: %v", sessionID, err)
		return result
	}

	snapshot := m.Restore(ctx, sessionID)
	if snapshot.LastBackup != nil {
		local := *snapshot.LastBackup
		server := overall.LastUpdated
		diff := server.Sub(local)
		if diff < 0 {
			diff = -diff
		}
		if diff > ConflictTolerance {
			resolution := models.ResolutionServerWins
			if local.After(server) {
				resolution = models.ResolutionLocalWins
			}
			result.Conflicts = append(result.Conflicts, models.Conflict{
				Field:           "session_progress",
				LocalTimestamp:  local,
				ServerTimestamp: server,
				Resolution:      resolution,
			})
		}
	}

	// Server state always re-mirrors into the cache, conflict or not
	m.Backup(ctx, sessionID, userID)

	result.Synchronized = true
	return result
}

// Clear evicts the session's cached snapshot. Best-effort.
func (m *Manager) Clear(ctx context.Context, sessionID string) {
	if m.store == nil {
		return
	}
	if err := m.store.Remove(ctx, backupKey(sessionID)); err != nil {
		log.Printf("Error clearing backup for session %s: %v", sessionID, err)
	}
}

func backupKey(sessionID string) string {
	return backupKeyPrefix + sessionID
}
