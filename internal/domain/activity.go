package domain

import "time"

// ============================================================
// Training progress
// ============================================================

// TrainingProgress is one entry of the per-user progress map.
// LastUpdated is refreshed by both the video and the worksheet write.
type TrainingProgress struct {
	VideoCompleted     bool      `json:"videoCompleted"`
	WorksheetCompleted bool      `json:"worksheetCompleted"`
	LastUpdated        time.Time `json:"lastUpdated"`
}

// Completed reports whether both halves of the training are done.
func (p TrainingProgress) Completed() bool {
	return p.VideoCompleted && p.WorksheetCompleted
}

// TrainingProgressMap is keyed by training id.
type TrainingProgressMap map[string]TrainingProgress

// TrainingProgressUpdate is a merge write into one map entry.
type TrainingProgressUpdate struct {
	VideoCompleted     *bool
	WorksheetCompleted *bool
	LastUpdated        time.Time
}

// ============================================================
// Bold Actions
// ============================================================

const (
	BoldActionActive    = "active"
	BoldActionCompleted = "completed"
)

// BoldAction is a commitment a user makes after submitting a worksheet.
type BoldAction struct {
	ID              string     `json:"id"`
	Action          string     `json:"action"`
	Status          string     `json:"status"`
	Timeframe       string     `json:"timeframe"`
	ActualTimeframe string     `json:"actualTimeframe,omitempty"`
	ReflectionNotes string     `json:"reflectionNotes,omitempty"`
	TrainingID      string     `json:"trainingId,omitempty"`
	CreatedAt       time.Time  `json:"createdAt"`
	CompletedAt     *time.Time `json:"completedAt,omitempty"`
}

// IsCompleted reports whether the action has been closed out.
func (b BoldAction) IsCompleted() bool {
	return b.Status == BoldActionCompleted && b.CompletedAt != nil
}

// BoldActionQuery filters a user's bold actions. Field names the
// timestamp the range applies to ("createdAt" or "completedAt").
type BoldActionQuery struct {
	Status string
	Field  string
	From   time.Time
	To     time.Time
	Limit  int
}

// BoldActionCompletion carries the reflection captured when closing an action.
type BoldActionCompletion struct {
	ActualTimeframe string    `json:"actualTimeframe"`
	ReflectionNotes string    `json:"reflectionNotes"`
	CompletedAt     time.Time `json:"-"`
}

// CreateBoldActionRequest is the body of POST /v1/bold-actions.
type CreateBoldActionRequest struct {
	Action     string `json:"action"`
	Timeframe  string `json:"timeframe"`
	TrainingID string `json:"trainingId,omitempty"`
}

// ============================================================
// Standups
// ============================================================

const (
	StandupScheduled = "scheduled"
	StandupCompleted = "completed"
)

// Standup is a check-in between a supervisor and one team member,
// stored under the member.
type Standup struct {
	ID           string     `json:"id"`
	MemberID     string     `json:"memberId"`
	SupervisorID string     `json:"supervisorId"`
	Status       string     `json:"status"`
	ScheduledFor time.Time  `json:"scheduledFor"`
	CompletedAt  *time.Time `json:"completedAt,omitempty"`
	Notes        string     `json:"notes,omitempty"`
}

// IsCompleted reports whether the standup took place.
func (s Standup) IsCompleted() bool {
	return s.Status == StandupCompleted && s.CompletedAt != nil
}

// StandupQuery filters a user's standups. Field is "scheduledFor" or "completedAt".
type StandupQuery struct {
	SupervisorID string
	Status       string
	Field        string
	From         time.Time
	To           time.Time
}

// ScheduleStandupRequest is the body of POST /v1/team/{memberId}/standups.
type ScheduleStandupRequest struct {
	ScheduledFor time.Time `json:"scheduledFor"`
}

// CompleteStandupRequest is the body of the standup completion route.
type CompleteStandupRequest struct {
	Notes string `json:"notes"`
}
