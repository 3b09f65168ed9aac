package scheduler

import (
	"context"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/example/onboardtrack/internal/blockers"
	"github.com/example/onboardtrack/internal/database"
	"github.com/example/onboardtrack/internal/offline"
	"github.com/example/onboardtrack/pkg/models"
)

// Default quiet-hours window for blocker alerts
const (
	DefaultNotificationStartHour = 8
	DefaultNotificationEndHour   = 22
)

// DefaultBackupIntervalMinutes is how often active sessions re-mirror
// into the offline cache
const DefaultBackupIntervalMinutes = 30

// Notifier delivers blocker alerts raised by the periodic checks
type Notifier interface {
	NotifyBlocker(sessionID string, blocker *models.Blocker) error
}

// MilestoneSweeper re-evaluates milestone criteria for a session,
// catching awards for progress written outside the completion path
type MilestoneSweeper interface {
	CheckAndAwardMilestones(ctx context.Context, sessionID, stepID, userID string) error
}

// Scheduler manages the periodic maintenance jobs around the core:
// cache backups, stuck-session alerts and milestone sweeps. The core
// operations themselves stay single-shot request/response calls.
type Scheduler struct {
	scheduler   *gocron.Scheduler
	offline     *offline.Manager
	blockers    *blockers.Engine
	milestones  MilestoneSweeper
	sessionRepo *database.SessionRepository
	notifier    Notifier
}

// New creates a scheduler instance. Notifier and sweeper may be nil.
func New(offlineMgr *offline.Manager, engine *blockers.Engine, milestones MilestoneSweeper, notifier Notifier) *Scheduler {
	if engine == nil {
		engine = blockers.NewEngine()
	}
	return &Scheduler{
		scheduler:   gocron.NewScheduler(time.UTC),
		offline:     offlineMgr,
		blockers:    engine,
		milestones:  milestones,
		sessionRepo: database.NewSessionRepository(),
		notifier:    notifier,
	}
}

// Start begins running all scheduled tasks
func (s *Scheduler) Start() {
	interval := DefaultBackupIntervalMinutes
	if raw := os.Getenv("BACKUP_INTERVAL_MINUTES"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			interval = n
		}
	}

	s.scheduler.Every(interval).Minutes().Do(s.backupActiveSessions)
	s.scheduler.Every(1).Hour().Do(s.checkStuckSessions)
	s.scheduler.Every(1).Hour().Do(s.sweepMilestones)

	// Start the scheduler in a non-blocking manner
	s.scheduler.StartAsync()
}

// Stop terminates all scheduled tasks
func (s *Scheduler) Stop() {
	s.scheduler.Stop()
}

// backupActiveSessions re-mirrors every active session into the cache
func (s *Scheduler) backupActiveSessions() {
	if s.offline == nil {
		return
	}
	ctx := context.Background()

	sessions, err := s.sessionRepo.ListActive(ctx)
	if err != nil {
		log.Printf("Error listing sessions for backup: %v", err)
		return
	}

	for _, session := range sessions {
		s.offline.Backup(ctx, session.SessionID, session.UserID)
	}
}

// checkStuckSessions raises alerts for high-severity blockers in active
// sessions, inside the configured notification hours
func (s *Scheduler) checkStuckSessions() {
	if s.notifier == nil {
		return
	}
	if !withinNotificationHours(time.Now().Hour()) {
		return
	}
	ctx := context.Background()

	sessions, err := s.sessionRepo.ListActive(ctx)
	if err != nil {
		log.Printf("Error listing sessions for blocker check: %v", err)
		return
	}

	for _, session := range sessions {
		if err := s.RunManualCheck(session.SessionID); err != nil {
			log.Printf("Error checking session %s for blockers: %v", session.SessionID, err)
		}
	}
}

// RunManualCheck forces a blocker check for a specific session
func (s *Scheduler) RunManualCheck(sessionID string) error {
	found, err := s.blockers.IdentifyBlockers(sessionID)
	if err != nil {
		return err
	}

	for i := range found {
		if found[i].Severity != blockers.LevelHigh {
			continue
		}
		if err := s.notifier.NotifyBlocker(sessionID, &found[i]); err != nil {
			log.Printf("Error sending blocker alert for session %s: %v", sessionID, err)
		}
	}

	return nil
}

// sweepMilestones re-runs milestone evaluation for every active session
func (s *Scheduler) sweepMilestones() {
	if s.milestones == nil {
		return
	}
	ctx := context.Background()

	sessions, err := s.sessionRepo.ListActive(ctx)
	if err != nil {
		log.Printf("Error listing sessions for milestone sweep: %v", err)
		return
	}

	for _, session := range sessions {
		if err := s.milestones.CheckAndAwardMilestones(ctx, session.SessionID, "", session.UserID); err != nil {
			log.Printf("Error sweeping milestones for session %s: %v", session.SessionID, err)
		}
	}
}

func withinNotificationHours(currentHour int) bool {
	startHour := DefaultNotificationStartHour
	endHour := DefaultNotificationEndHour

	if raw := os.Getenv("NOTIFICATION_START_HOUR"); raw != "" {
		if h, err := strconv.Atoi(raw); err == nil && h >= 0 && h <= 23 {
			startHour = h
		}
	}
	if raw := os.Getenv("NOTIFICATION_END_HOUR"); raw != "" {
		if h, err := strconv.Atoi(raw); err == nil && h >= 0 && h <= 23 {
			endHour = h
		}
	}

	return currentHour >= startHour && currentHour <= endHour
}
