package model

import "time"

// Project statuses.
const (
	ProjectActive    = "active"
	ProjectCompleted = "completed"
	ProjectSuspended = "suspended"
)

type Project struct {
	ID                   int       `json:"id"`
	ProjectCode          string    `json:"project_code"`
	Title                string    `json:"title"`
	State                string    `json:"state"`
	District             string    `json:"district"`
	ExecutingAgencyID    int       `json:"executing_agency_id"`
	ImplementingAgencyID int       `json:"implementing_agency_id"`
	Status               string    `json:"status"`
	CreatedAt            time.Time `json:"created_at"`
	UpdatedAt            time.Time `json:"updated_at"`
}

// Milestone statuses. A milestone is overdue only while its actual date
// is unset; once the actual date is recorded the status is completed and
// never moves back.
const (
	MilestonePending    = "pending"
	MilestoneInProgress = "in_progress"
	MilestoneCompleted  = "completed"
	MilestoneOverdue    = "overdue"
)

type Milestone struct {
	ID              int        `json:"id"`
	ProjectID       int        `json:"project_id"`
	MilestoneNumber int        `json:"milestone_number"`
	Title           string     `json:"title"`
	ExpectedDate    time.Time  `json:"expected_date"`
	ActualDate      *time.Time `json:"actual_date,omitempty"`
	Status          string     `json:"status"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// Tranche statuses. Only a pending tranche may be frozen, and a frozen
// tranche can only return to pending, never straight to released.
const (
	TranchePending  = "pending"
	TrancheReleased = "released"
	TrancheFrozen   = "frozen"
)

type Tranche struct {
	ID            int       `json:"id"`
	ProjectID     int       `json:"project_id"`
	TrancheNumber int       `json:"tranche_number"`
	Amount        int64     `json:"amount"`
	Status        string    `json:"status"`
	Notes         string    `json:"notes"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// OverdueMilestone pairs a milestone that has slipped with the project it
// belongs to, as returned by the overdue scan.
type OverdueMilestone struct {
	Milestone Milestone `json:"milestone"`
	Project   Project   `json:"project"`
}
