package domain

import "time"

// ============================================================
// Weekly progress report
// ============================================================

// WeeksInReport is the number of calendar weeks covered by a report,
// the current week plus the three before it.
const WeeksInReport = 4

// Submission is one bucketed activity inside a week.
type Submission struct {
	Completed bool      `json:"completed"`
	Timestamp time.Time `json:"timestamp"`
}

// WeekRecord groups a member's activity for one week window.
type WeekRecord struct {
	WeekStart   time.Time    `json:"weekStartDate"`
	WeekEnd     time.Time    `json:"weekEndDate"`
	Trainings   []Submission `json:"trainings"`
	BoldActions []Submission `json:"boldActions"`
	Standups    []Submission `json:"standups"`
}

// NewWeekRecord returns a record with empty, non-nil lists.
func NewWeekRecord(start, end time.Time) WeekRecord {
	return WeekRecord{
		WeekStart:   start,
		WeekEnd:     end,
		Trainings:   []Submission{},
		BoldActions: []Submission{},
		Standups:    []Submission{},
	}
}

// HasTraining reports whether any training was completed in the week.
func (w WeekRecord) HasTraining() bool { return anyCompleted(w.Trainings) }

// HasBoldAction reports whether any bold action was completed in the week.
func (w WeekRecord) HasBoldAction() bool { return anyCompleted(w.BoldActions) }

// HasStandup reports whether any standup was completed in the week.
func (w WeekRecord) HasStandup() bool { return anyCompleted(w.Standups) }

func anyCompleted(items []Submission) bool {
	for _, s := range items {
		if s.Completed {
			return true
		}
	}
	return false
}

// FourWeekTotals counts completed items over the rolling four-week window.
type FourWeekTotals struct {
	TotalTrainings   int `json:"totalTrainings"`
	TotalBoldActions int `json:"totalBoldActions"`
	TotalStandups    int `json:"totalStandups"`
}

// MemberReport is one team member's row in the executive report.
type MemberReport struct {
	ID               string         `json:"id"`
	FirstName        string         `json:"firstName"`
	LastName         string         `json:"lastName"`
	Role             Role           `json:"role"`
	SupervisorID     string         `json:"supervisorId"`
	WeeklyProgress   WeekRecord     `json:"weeklyProgress"`
	Weeks            []WeekRecord   `json:"allWeeklyData"`
	FourWeekProgress FourWeekTotals `json:"fourWeekProgress"`
	// FetchFailed marks a member whose activity could not be read; the
	// week records are then empty placeholders rather than real data.
	FetchFailed bool `json:"fetchFailed,omitempty"`
}

// Ratio is a completed/total pair with its percentage.
type Ratio struct {
	Completed int     `json:"completed"`
	Total     int     `json:"total"`
	Percent   float64 `json:"percent"`
}

// NewRatio builds a ratio; the percentage is zero when total is zero.
func NewRatio(completed, total int) Ratio {
	r := Ratio{Completed: completed, Total: total}
	if total > 0 {
		r.Percent = float64(completed) / float64(total) * 100
	}
	return r
}

// Add sums two ratios and recomputes the percentage.
func (r Ratio) Add(o Ratio) Ratio {
	return NewRatio(r.Completed+o.Completed, r.Total+o.Total)
}

// CategoryTotals holds one ratio per tracked activity.
type CategoryTotals struct {
	Trainings   Ratio `json:"trainings"`
	BoldActions Ratio `json:"boldActions"`
	Standups    Ratio `json:"standups"`
}

// Add sums category totals.
func (c CategoryTotals) Add(o CategoryTotals) CategoryTotals {
	return CategoryTotals{
		Trainings:   c.Trainings.Add(o.Trainings),
		BoldActions: c.BoldActions.Add(o.BoldActions),
		Standups:    c.Standups.Add(o.Standups),
	}
}

// TeamReport aggregates one supervisor's direct reports.
type TeamReport struct {
	SupervisorID   string         `json:"supervisorId"`
	SupervisorName string         `json:"supervisorName"`
	TeamSize       int            `json:"teamSize"`
	Members        []MemberReport `json:"members"`
	Weekly         CategoryTotals `json:"weekly"`
	FourWeek       CategoryTotals `json:"fourWeek"`
}

// WeeklyMetrics is the company-wide executive report.
type WeeklyMetrics struct {
	CompanyName string         `json:"companyName"`
	WeekStart   time.Time      `json:"weekStart"`
	GeneratedAt time.Time      `json:"generatedAt"`
	Weekly      CategoryTotals `json:"weekly"`
	FourWeek    CategoryTotals `json:"fourWeek"`
	Teams       []TeamReport   `json:"teams"`
}

// ============================================================
// Directory
// ============================================================

// LatestTraining is the most recent training a user worked on.
type LatestTraining struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	CompletedAt time.Time `json:"completedAt"`
}

// DirectoryEntry is a user row with their most recent activity.
type DirectoryEntry struct {
	ID               string          `json:"id"`
	FirstName        string          `json:"firstName"`
	LastName         string          `json:"lastName"`
	Role             Role            `json:"role"`
	SupervisorID     string          `json:"supervisorId"`
	LatestBoldAction *BoldAction     `json:"latestBoldAction,omitempty"`
	LatestTraining   *LatestTraining `json:"latestTraining,omitempty"`
}

// BatchUserUpdate is the body of POST /v1/company/users/batch.
type BatchUserUpdate struct {
	UserIDs      []string `json:"userIds"`
	Role         Role     `json:"role,omitempty"`
	SupervisorID string   `json:"supervisorId,omitempty"`
}

// ============================================================
// Training catalog
// ============================================================

// Training is one video training from the content API.
type Training struct {
	ID            string    `json:"id"`
	Title         string    `json:"title"`
	Description   string    `json:"description"`
	PublishedAt   time.Time `json:"trainingDate"`
	Instructor    string    `json:"instructor"`
	VideoURL      string    `json:"videoUrl,omitempty"`
	FeaturedImage string    `json:"featuredImage,omitempty"`
}

// TrainingStatus is a catalog entry with the caller's progress on it.
type TrainingStatus struct {
	Training
	VideoCompleted     bool `json:"videoCompleted"`
	WorksheetCompleted bool `json:"worksheetCompleted"`
}

// TrainingPlan is the caller's view of the catalog, oldest first.
// NextTrainingID follows the last completed training and is empty once
// every training is done.
type TrainingPlan struct {
	Trainings      []TrainingStatus `json:"trainings"`
	NextTrainingID string           `json:"nextTrainingId,omitempty"`
}
