package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"fundportal/internal/model"
	"fundportal/internal/service/escalation"
)

// EngineStore bundles the per-table repositories behind the single
// escalation.Store surface the engine works against.
type EngineStore struct {
	Milestones  *MilestoneRepository
	Escalations *EscalationRepository
	Tranches    *TrancheRepository
	Users       *UserRepository
}

func NewEngineStore(db *pgxpool.Pool, logger *zap.Logger) *EngineStore {
	return &EngineStore{
		Milestones:  NewMilestoneRepository(db, logger),
		Escalations: NewEscalationRepository(db, logger),
		Tranches:    NewTrancheRepository(db, logger),
		Users:       NewUserRepository(db, logger),
	}
}

var _ escalation.Store = (*EngineStore)(nil)

func (s *EngineStore) FindOverdueMilestones(ctx context.Context, now time.Time) ([]model.OverdueMilestone, error) {
	return s.Milestones.FindOverdueMilestones(ctx, now)
}

func (s *EngineStore) MarkMilestoneOverdue(ctx context.Context, milestoneID int) error {
	return s.Milestones.MarkMilestoneOverdue(ctx, milestoneID)
}

func (s *EngineStore) CompleteMilestone(ctx context.Context, milestoneID int, completedOn time.Time) error {
	return s.Milestones.CompleteMilestone(ctx, milestoneID, completedOn)
}

func (s *EngineStore) InsertOpenEscalation(ctx context.Context, e *model.Escalation) (bool, error) {
	return s.Escalations.InsertOpenEscalation(ctx, e)
}

func (s *EngineStore) FindStaleOpenEscalations(ctx context.Context, cutoff time.Time) ([]model.EscalationCase, error) {
	return s.Escalations.FindStaleOpenEscalations(ctx, cutoff)
}

func (s *EngineStore) CloseEscalation(ctx context.Context, escalationID int) error {
	return s.Escalations.CloseEscalation(ctx, escalationID)
}

func (s *EngineStore) AdvanceEscalation(ctx context.Context, currentID int, next *model.Escalation) error {
	return s.Escalations.AdvanceEscalation(ctx, currentID, next)
}

func (s *EngineStore) FlagRequiresAdminAction(ctx context.Context, escalationID int, marker string) error {
	return s.Escalations.FlagRequiresAdminAction(ctx, escalationID, marker)
}

func (s *EngineStore) ResolveEscalation(ctx context.Context, escalationID int, notes string, now time.Time) (*model.Escalation, error) {
	return s.Escalations.ResolveEscalation(ctx, escalationID, notes, now)
}

func (s *EngineStore) FindEarliestPendingTranche(ctx context.Context, projectID int) (*model.Tranche, error) {
	return s.Tranches.FindEarliestPendingTranche(ctx, projectID)
}

func (s *EngineStore) FreezeTranche(ctx context.Context, trancheID int, note string) error {
	return s.Tranches.FreezeTranche(ctx, trancheID, note)
}

func (s *EngineStore) GetUser(ctx context.Context, userID int) (*model.User, error) {
	return s.Users.GetUser(ctx, userID)
}

func (s *EngineStore) FindUsersByRole(ctx context.Context, q escalation.RoleQuery) ([]model.User, error) {
	return s.Users.FindUsersByRole(ctx, q)
}
