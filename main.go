package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/example/onboardtrack/internal/analytics"
	"github.com/example/onboardtrack/internal/blockers"
	"github.com/example/onboardtrack/internal/database"
	"github.com/example/onboardtrack/internal/milestones"
	"github.com/example/onboardtrack/internal/notify"
	"github.com/example/onboardtrack/internal/offline"
	"github.com/example/onboardtrack/internal/scheduler"
)

func main() {
	// Load .env when present; real deployments set the environment
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file loaded, using environment as-is")
	}

	if err := database.Connect(); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close()

	notifier, err := notify.NewTelegramNotifier()
	if err != nil {
		log.Fatalf("Failed to create notifier: %v", err)
	}
	if notifier == nil {
		log.Println("TELEGRAM_BOT_TOKEN not set, notifications disabled")
	}

	// Offline cache is optional: without Redis the manager degrades to a
	// silent no-op
	var store offline.CacheStore
	if s, err := offline.NewRedisStore(); err != nil {
		log.Printf("Offline cache disabled: %v", err)
	} else {
		store = s
	}

	engine := blockers.NewEngine()
	reports := analytics.NewService(engine)
	offlineMgr := offline.NewManager(store, reports)

	milestoneEngine := milestones.NewEngine(reports, nilIfDisabled(notifier))

	sched := scheduler.New(offlineMgr, engine, milestoneEngine, schedulerNotifier(notifier))
	sched.Start()
	defer sched.Stop()

	log.Println("Onboarding progress tracker started. Press Ctrl+C to stop.")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	sig := <-sigChan
	log.Printf("Received signal: %v, shutting down", sig)
}

// nilIfDisabled keeps a disabled notifier out of the milestone engine; a
// typed nil inside the interface would dodge its nil checks
func nilIfDisabled(n *notify.TelegramNotifier) milestones.Notifier {
	if n == nil {
		return nil
	}
	return n
}

func schedulerNotifier(n *notify.TelegramNotifier) scheduler.Notifier {
	if n == nil {
		return nil
	}
	return n
}
