package escalation

import (
	"context"
	"errors"
	"time"

	"fundportal/internal/model"
)

var (
	// ErrNotFound indicates the escalation does not exist.
	ErrNotFound = errors.New("escalation not found")
	// ErrAlreadyResolved indicates the escalation was resolved earlier and
	// cannot be resolved again.
	ErrAlreadyResolved = errors.New("escalation already resolved")
	// ErrNotOpen indicates the escalation left the open state since it was
	// read, typically because another sweep advanced it first.
	ErrNotOpen = errors.New("escalation is not open")
)

// RoleQuery identifies the responsible party for an escalation level by
// role and geographic scope. Empty scope fields are unconstrained.
type RoleQuery struct {
	Role     string
	State    string
	District string
}

// Store is the persistence contract the engine depends on. Implementations
// back it with the portal's record store; the engine never sees SQL.
type Store interface {
	// FindOverdueMilestones returns milestones whose expected date has
	// passed without a recorded actual date, together with their projects.
	FindOverdueMilestones(ctx context.Context, now time.Time) ([]model.OverdueMilestone, error)

	// MarkMilestoneOverdue flips a slipped milestone to overdue. Milestones
	// that already completed are left untouched.
	MarkMilestoneOverdue(ctx context.Context, milestoneID int) error

	// CompleteMilestone records the actual date and completes the milestone.
	CompleteMilestone(ctx context.Context, milestoneID int, completedOn time.Time) error

	// InsertOpenEscalation atomically creates an open escalation unless one
	// already exists for the same milestone. Returns false when the insert
	// was skipped because of an existing open escalation.
	InsertOpenEscalation(ctx context.Context, esc *model.Escalation) (bool, error)

	// FindStaleOpenEscalations returns open escalations created at or
	// before the cutoff, with their projects.
	FindStaleOpenEscalations(ctx context.Context, cutoff time.Time) ([]model.EscalationCase, error)

	// CloseEscalation closes an escalation that is still open. Returns
	// ErrNotOpen when it already left the open state.
	CloseEscalation(ctx context.Context, escalationID int) error

	// AdvanceEscalation closes the current escalation and creates its
	// successor as one atomic unit. Returns ErrNotOpen when the current
	// escalation already left the open state.
	AdvanceEscalation(ctx context.Context, currentID int, next *model.Escalation) error

	// FlagRequiresAdminAction marks the open escalation as requiring
	// administrator action and appends the marker to its description.
	// Returns ErrNotOpen when the escalation already left the open state,
	// so a concurrent resolution is never overwritten.
	FlagRequiresAdminAction(ctx context.Context, escalationID int, marker string) error

	// ResolveEscalation resolves the escalation, completes its linked
	// milestone and returns every frozen tranche of the project to pending,
	// all as one atomic unit. Returns ErrNotFound or ErrAlreadyResolved
	// without mutating anything.
	ResolveEscalation(ctx context.Context, escalationID int, notes string, now time.Time) (*model.Escalation, error)

	// FindEarliestPendingTranche returns the pending tranche with the
	// lowest tranche number for the project, or nil when none is pending.
	FindEarliestPendingTranche(ctx context.Context, projectID int) (*model.Tranche, error)

	// FreezeTranche freezes a pending tranche with an explanatory note.
	// Freezing a tranche that is no longer pending is a no-op.
	FreezeTranche(ctx context.Context, trancheID int, note string) error

	// GetUser returns a user by ID, or nil when missing.
	GetUser(ctx context.Context, userID int) (*model.User, error)

	// FindUsersByRole returns users matching the role query.
	FindUsersByRole(ctx context.Context, q RoleQuery) ([]model.User, error)
}

// Notice is an outbound notification request. Delivery is best effort and
// never blocks or rolls back a state transition.
type Notice struct {
	UserID        int
	Kind          string
	Title         string
	Message       string
	ReferenceID   int
	ReferenceType string
	PhoneNumber   string
}

// Notifier queues a notice for delivery.
type Notifier interface {
	Notify(ctx context.Context, n Notice) error
}
