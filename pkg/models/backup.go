package models

import "time"

// Conflict resolutions reported by synchronization
const (
	ResolutionLocalWins  = "local_wins"
	ResolutionServerWins = "server_wins"
)

// ProgressSnapshot is the local, non-authoritative mirror of session
// progress kept by the offline component. It is overwritten wholesale on
// each backup.
type ProgressSnapshot struct {
	SessionID    string            `json:"session_id"`
	UserID       string            `json:"user_id"`
	Progress     *OverallProgress  `json:"progress"`
	Achievements []UserAchievement `json:"achievements"`
	LastBackup   *time.Time        `json:"last_backup"`
}

// Conflict records a detected divergence between the local cache and the
// server. Reporting only; neither side's data is applied.
type Conflict struct {
	Field           string    `json:"field"`
	LocalTimestamp  time.Time `json:"local_timestamp"`
	ServerTimestamp time.Time `json:"server_timestamp"`
	Resolution      string    `json:"resolution"`
}

// SyncResult is the outcome of one synchronization pass
type SyncResult struct {
	Synchronized bool       `json:"synchronized"`
	Conflicts    []Conflict `json:"conflicts"`
}
