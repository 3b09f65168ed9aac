package database

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

// DB is the global database connection
var DB *sqlx.DB

// Connect establishes a connection to the database. DB_TYPE selects the
// backend: "sqlite" (default) or "postgres".
func Connect() error {
	dbType := os.Getenv("DB_TYPE")
	if dbType == "" {
		dbType = "sqlite"
	}

	if dbType == "postgres" {
		dsn := os.Getenv("DATABASE_URL")
		if dsn == "" {
			return fmt.Errorf("DATABASE_URL environment variable is not set")
		}
		db, err := sqlx.Connect("postgres", dsn)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %v", err)
		}
		DB = db
		// Postgres schema is managed by migrations, not bootstrapped here
		return nil
	}

	dbPath := os.Getenv("DB_PATH")
	if dbPath == "" {
		// Create data directory if it doesn't exist
		dataDir := "data"
		if err := os.MkdirAll(dataDir, 0755); err != nil {
			return fmt.Errorf("failed to create data directory: %v", err)
		}
		dbPath = filepath.Join(dataDir, "onboardtrack.db")
	}

	db, err := sqlx.Connect("sqlite3", dbPath)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %v", err)
	}

	// Enable foreign keys
	_, err = db.Exec("PRAGMA foreign_keys = ON")
	if err != nil {
		return fmt.Errorf("failed to enable foreign keys: %v", err)
	}

	// Set connection pool settings
	db.SetMaxOpenConns(1) // SQLite doesn't support multiple writers
	db.SetMaxIdleConns(1)

	DB = db

	// Initialize schema
	return initializeSchema()
}

// Close closes the database connection
func Close() error {
	if DB != nil {
		return DB.Close()
	}
	return nil
}

// initializeSchema creates necessary tables if they don't exist
func initializeSchema() error {
	// Create sessions table
	_, err := DB.Exec(`
		CREATE TABLE IF NOT EXISTS sessions (
			session_id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			organization_id TEXT NOT NULL DEFAULT '',
			path_id TEXT NOT NULL,
			current_step_index INTEGER DEFAULT 0,
			progress_percentage REAL DEFAULT 0,
			time_spent INTEGER DEFAULT 0,
			status TEXT DEFAULT 'active',
			last_active_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create sessions table: %v", err)
	}

	// Create steps table (path step definitions, read-only here)
	_, err = DB.Exec(`
		CREATE TABLE IF NOT EXISTS steps (
			id TEXT PRIMARY KEY,
			path_id TEXT NOT NULL,
			position INTEGER NOT NULL,
			title TEXT NOT NULL,
			estimated_minutes INTEGER DEFAULT 10,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			UNIQUE(path_id, position)
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create steps table: %v", err)
	}

	// Create step_progress table
	_, err = DB.Exec(`
		CREATE TABLE IF NOT EXISTS step_progress (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id TEXT NOT NULL,
			step_id TEXT NOT NULL,
			user_id TEXT NOT NULL,
			status TEXT DEFAULT 'not_started',
			started_at TIMESTAMP,
			completed_at TIMESTAMP,
			time_spent INTEGER DEFAULT 0,
			attempts INTEGER DEFAULT 0,
			score REAL,
			feedback TEXT DEFAULT '{}',
			user_actions TEXT DEFAULT '{}',
			step_result TEXT DEFAULT '{}',
			errors TEXT DEFAULT '{}',
			achievements TEXT DEFAULT '{}',
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (session_id) REFERENCES sessions(session_id),
			UNIQUE(session_id, step_id)
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create step_progress table: %v", err)
	}

	// Create milestones table
	_, err = DB.Exec(`
		CREATE TABLE IF NOT EXISTS milestones (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			description TEXT DEFAULT '',
			milestone_type TEXT NOT NULL,
			criteria TEXT DEFAULT '{}',
			points INTEGER DEFAULT 0,
			is_active BOOLEAN DEFAULT true,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create milestones table: %v", err)
	}

	// Create user_achievements table. The unique key makes the award
	// idempotent even when the check-then-insert races.
	_, err = DB.Exec(`
		CREATE TABLE IF NOT EXISTS user_achievements (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id TEXT NOT NULL,
			session_id TEXT NOT NULL,
			milestone_id TEXT NOT NULL,
			earned_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			achievement_data TEXT DEFAULT '{}',
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (milestone_id) REFERENCES milestones(id),
			UNIQUE(user_id, session_id, milestone_id)
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create user_achievements table: %v", err)
	}

	// Create analytics_events table
	_, err = DB.Exec(`
		CREATE TABLE IF NOT EXISTS analytics_events (
			id TEXT PRIMARY KEY,
			event_type TEXT NOT NULL,
			session_id TEXT,
			user_id TEXT,
			step_id TEXT,
			payload TEXT DEFAULT '{}',
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create analytics_events table: %v", err)
	}

	return nil
}
