package model

import "time"

// Escalation levels. Level 1 addresses the project's executing agency and
// each advancement moves exactly one level up until MaxEscalationLevel.
const (
	MinEscalationLevel = 1
	MaxEscalationLevel = 4
)

// Escalation statuses. closed escalations are never reopened; advancement
// always creates a fresh record at the next level. requires_admin_action
// is terminal until a human resolves it.
const (
	EscalationOpen                = "open"
	EscalationClosed              = "closed"
	EscalationResolved            = "resolved"
	EscalationRequiresAdminAction = "requires_admin_action"
)

// Escalation types.
const (
	EscalationTypeMilestoneOverdue = "milestone_overdue"
	EscalationTypeUCPending        = "uc_pending"
	EscalationTypeManual           = "manual"
)

type Escalation struct {
	ID              int        `json:"id"`
	ProjectID       int        `json:"project_id"`
	MilestoneID     *int       `json:"milestone_id,omitempty"`
	Level           int        `json:"escalation_level"`
	Type            string     `json:"escalation_type"`
	Description     string     `json:"description"`
	Status          string     `json:"status"`
	EscalatedTo     int        `json:"escalated_to"`
	ResolutionNotes string     `json:"resolution_notes,omitempty"`
	ResolvedAt      *time.Time `json:"resolved_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// EscalationCase pairs an open escalation with its project, as returned
// by the stale-escalation scan. The advancer needs the project's state
// and district to resolve the next recipient.
type EscalationCase struct {
	Escalation Escalation `json:"escalation"`
	Project    Project    `json:"project"`
}

// EscalationStats summarises escalations for the dashboard endpoints.
type EscalationStats struct {
	Total    int            `json:"total"`
	ByStatus map[string]int `json:"by_status"`
	ByLevel  map[int]int    `json:"by_level"`
}
