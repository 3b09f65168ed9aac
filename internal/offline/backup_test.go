package offline

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/example/onboardtrack/internal/analytics"
	"github.com/example/onboardtrack/internal/database"
	"github.com/example/onboardtrack/pkg/models"
)

func setupTestDB(t *testing.T) {
	t.Helper()
	t.Setenv("DB_TYPE", "sqlite")
	t.Setenv("DB_PATH", ":memory:")
	if err := database.Connect(); err != nil {
		t.Fatalf("failed to connect to database: %v", err)
	}
	t.Cleanup(func() { database.Close() })
}

func seedSessionWithProgress(t *testing.T, sessionID, userID, pathID string) {
	t.Helper()
	ctx := context.Background()

	err := database.NewSessionRepository().Create(ctx, &models.Session{
		SessionID: sessionID,
		UserID:    userID,
		PathID:    pathID,
		Status:    "active",
	})
	if err != nil {
		t.Fatalf("failed to seed session: %v", err)
	}

	stepRepo := database.NewStepRepository()
	for i, stepID := range []string{pathID + "-step-1", pathID + "-step-2"} {
		err := stepRepo.Create(&models.Step{
			ID:               stepID,
			PathID:           pathID,
			Position:         i,
			Title:            stepID,
			EstimatedMinutes: 10,
		})
		if err != nil {
			t.Fatalf("failed to seed step: %v", err)
		}
	}

	err = database.NewStepProgressRepository().Create(&models.StepProgress{
		SessionID: sessionID,
		StepID:    pathID + "-step-1",
		UserID:    userID,
		Status:    models.StatusCompleted,
		TimeSpent: 300,
	})
	if err != nil {
		t.Fatalf("failed to seed progress row: %v", err)
	}
}

// writeSnapshot plants a cached snapshot with a chosen backup time
func writeSnapshot(t *testing.T, store CacheStore, sessionID string, lastBackup time.Time) {
	t.Helper()
	snapshot := models.ProgressSnapshot{
		SessionID:  sessionID,
		LastBackup: &lastBackup,
	}
	data, err := json.Marshal(snapshot)
	if err != nil {
		t.Fatalf("failed to marshal snapshot: %v", err)
	}
	if err := store.Set(context.Background(), backupKey(sessionID), string(data)); err != nil {
		t.Fatalf("failed to plant snapshot: %v", err)
	}
}

func serverTime(t *testing.T, svc *analytics.Service, sessionID string) time.Time {
	t.Helper()
	overall, err := svc.OverallProgress(context.Background(), sessionID)
	if err != nil {
		t.Fatalf("OverallProgress: %v", err)
	}
	return overall.LastUpdated
}

func TestRestoreMissingSnapshot(t *testing.T) {
	setupTestDB(t)
	mgr := NewManager(NewMemoryStore(), analytics.NewService(nil))

	snapshot := mgr.Restore(context.Background(), "sess-o1")
	if snapshot.SessionID != "sess-o1" {
		t.Fatalf("expected session id carried through, got %q", snapshot.SessionID)
	}
	if snapshot.Progress != nil {
		t.Fatalf("expected empty snapshot, got progress %+v", snapshot.Progress)
	}
	if snapshot.LastBackup != nil {
		t.Fatal("expected no backup timestamp")
	}
	if snapshot.Achievements == nil || len(snapshot.Achievements) != 0 {
		t.Fatalf("expected empty achievements slice, got %v", snapshot.Achievements)
	}
}

func TestBackupAndRestore(t *testing.T) {
	setupTestDB(t)
	seedSessionWithProgress(t, "sess-o2", "user-1", "path-o2")
	ctx := context.Background()
	mgr := NewManager(NewMemoryStore(), analytics.NewService(nil))

	mgr.Backup(ctx, "sess-o2", "user-1")

	snapshot := mgr.Restore(ctx, "sess-o2")
	if snapshot.Progress == nil {
		t.Fatal("expected progress in the restored snapshot")
	}
	if snapshot.Progress.CompletedCount != 1 {
		t.Fatalf("expected 1 completed step, got %d", snapshot.Progress.CompletedCount)
	}
	if snapshot.LastBackup == nil {
		t.Fatal("expected a backup timestamp")
	}
	if snapshot.UserID != "user-1" {
		t.Fatalf("expected user id in snapshot, got %q", snapshot.UserID)
	}
}

func TestRestoreCorruptSnapshot(t *testing.T) {
	setupTestDB(t)
	store := NewMemoryStore()
	mgr := NewManager(store, analytics.NewService(nil))
	ctx := context.Background()

	if err := store.Set(ctx, backupKey("sess-o3"), "{not json"); err != nil {
		t.Fatalf("Set: %v", err)
	}

	snapshot := mgr.Restore(ctx, "sess-o3")
	if snapshot.Progress != nil || snapshot.LastBackup != nil {
		t.Fatalf("expected empty snapshot for corrupt cache entry, got %+v", snapshot)
	}
}

func TestSynchronizeWithinTolerance(t *testing.T) {
	setupTestDB(t)
	seedSessionWithProgress(t, "sess-o4", "user-1", "path-o4")
	ctx := context.Background()
	store := NewMemoryStore()
	svc := analytics.NewService(nil)
	mgr := NewManager(store, svc)

	server := serverTime(t, svc, "sess-o4")
	writeSnapshot(t, store, "sess-o4", server.Add(-10*time.Second))

	result := mgr.Synchronize(ctx, "sess-o4", "user-1")
	if !result.Synchronized {
		t.Fatal("expected synchronized result")
	}
	if len(result.Conflicts) != 0 {
		t.Fatalf("expected no conflicts inside tolerance, got %+v", result.Conflicts)
	}
}

func TestSynchronizeServerWins(t *testing.T) {
	setupTestDB(t)
	seedSessionWithProgress(t, "sess-o5", "user-1", "path-o5")
	ctx := context.Background()
	store := NewMemoryStore()
	svc := analytics.NewService(nil)
	mgr := NewManager(store, svc)

	server := serverTime(t, svc, "sess-o5")
	stale := server.Add(-40 * time.Second)
	writeSnapshot(t, store, "sess-o5", stale)

	result := mgr.Synchronize(ctx, "sess-o5", "user-1")
	if !result.Synchronized {
		t.Fatal("expected synchronized result")
	}
	if len(result.Conflicts) != 1 {
		t.Fatalf("expected one conflict, got %+v", result.Conflicts)
	}
	conflict := result.Conflicts[0]
	if conflict.Field != "session_progress" {
		t.Fatalf("expected session_progress conflict, got %q", conflict.Field)
	}
	if conflict.Resolution != models.ResolutionServerWins {
		t.Fatalf("expected server_wins, got %s", conflict.Resolution)
	}

	// The cache is re-mirrored from server state regardless of the conflict
	snapshot := mgr.Restore(ctx, "sess-o5")
	if snapshot.LastBackup == nil || !snapshot.LastBackup.After(stale) {
		t.Fatalf("expected the cache overwritten with a fresh backup, got %v", snapshot.LastBackup)
	}
	if snapshot.Progress == nil || snapshot.Progress.CompletedCount != 1 {
		t.Fatalf("expected server progress mirrored into cache, got %+v", snapshot.Progress)
	}
}

func TestSynchronizeLocalWins(t *testing.T) {
	setupTestDB(t)
	seedSessionWithProgress(t, "sess-o6", "user-1", "path-o6")
	ctx := context.Background()
	store := NewMemoryStore()
	svc := analytics.NewService(nil)
	mgr := NewManager(store, svc)

	server := serverTime(t, svc, "sess-o6")
	writeSnapshot(t, store, "sess-o6", server.Add(40*time.Second))

	result := mgr.Synchronize(ctx, "sess-o6", "user-1")
	if len(result.Conflicts) != 1 {
		t.Fatalf("expected one conflict, got %+v", result.Conflicts)
	}
	if result.Conflicts[0].Resolution != models.ResolutionLocalWins {
		t.Fatalf("expected local_wins, got %s", result.Conflicts[0].Resolution)
	}
}

func TestClear(t *testing.T) {
	setupTestDB(t)
	seedSessionWithProgress(t, "sess-o7", "user-1", "path-o7")
	ctx := context.Background()
	mgr := NewManager(NewMemoryStore(), analytics.NewService(nil))

	mgr.Backup(ctx, "sess-o7", "user-1")
	mgr.Clear(ctx, "sess-o7")

	if snapshot := mgr.Restore(ctx, "sess-o7"); snapshot.Progress != nil {
		t.Fatalf("expected cleared cache, got %+v", snapshot.Progress)
	}
}

func TestNilStoreIsNoOp(t *testing.T) {
	setupTestDB(t)
	mgr := NewManager(nil, analytics.NewService(nil))
	ctx := context.Background()

	mgr.Backup(ctx, "sess-o8", "user-1")
	mgr.Clear(ctx, "sess-o8")

	if snapshot := mgr.Restore(ctx, "sess-o8"); snapshot.Progress != nil {
		t.Fatalf("expected empty snapshot without a store, got %+v", snapshot)
	}

	result := mgr.Synchronize(ctx, "sess-o8", "user-1")
	if result.Synchronized {
		t.Fatal("expected unsynchronized result without a store")
	}
	if len(result.Conflicts) != 0 {
		t.Fatalf("expected no conflicts, got %+v", result.Conflicts)
	}
}
