package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"fundportal/internal/model"
)

type MilestoneRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewMilestoneRepository(db *pgxpool.Pool, logger *zap.Logger) *MilestoneRepository {
	return &MilestoneRepository{
		db:     db,
		logger: logger,
	}
}

// FindOverdueMilestones returns milestones whose expected date has passed
// while still pending or in progress, joined with their projects.
func (r *MilestoneRepository) FindOverdueMilestones(ctx context.Context, now time.Time) ([]model.OverdueMilestone, error) {
	query := `
        SELECT m.id, m.project_id, m.milestone_number, m.title, m.expected_date, m.status,
               p.id, p.project_code, p.title, p.state, p.district, p.executing_agency_id
        FROM milestones m
        JOIN projects p ON p.id = m.project_id
        WHERE m.expected_date < $1
          AND m.status IN ('pending', 'in_progress')
          AND m.actual_date IS NULL
        ORDER BY m.expected_date ASC
    `
	rows, err := r.db.Query(ctx, query, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []model.OverdueMilestone
	for rows.Next() {
		var item model.OverdueMilestone
		if err := rows.Scan(
			&item.Milestone.ID,
			&item.Milestone.ProjectID,
			&item.Milestone.MilestoneNumber,
			&item.Milestone.Title,
			&item.Milestone.ExpectedDate,
			&item.Milestone.Status,
			&item.Project.ID,
			&item.Project.ProjectCode,
			&item.Project.Title,
			&item.Project.State,
			&item.Project.District,
			&item.Project.ExecutingAgencyID,
		); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// MarkMilestoneOverdue flips a slipped milestone to overdue. The actual
// date guard keeps a completed milestone from ever going back.
func (r *MilestoneRepository) MarkMilestoneOverdue(ctx context.Context, milestoneID int) error {
	query := `
        UPDATE milestones
        SET status = 'overdue', updated_at = NOW()
        WHERE id = $1
          AND actual_date IS NULL
    `
	result, err := r.db.Exec(ctx, query, milestoneID)
	if err != nil {
		r.logger.Error("Failed to mark milestone overdue",
			zap.Int("milestone_id", milestoneID),
			zap.Error(err),
		)
		return err
	}

	if result.RowsAffected() > 0 {
		r.logger.Info("Milestone marked overdue",
			zap.Int("milestone_id", milestoneID),
		)
	}
	return nil
}

// CompleteMilestone records the actual date and completes the milestone.
func (r *MilestoneRepository) CompleteMilestone(ctx context.Context, milestoneID int, completedOn time.Time) error {
	query := `
        UPDATE milestones
        SET status = 'completed', actual_date = $2, updated_at = NOW()
        WHERE id = $1
    `
	_, err := r.db.Exec(ctx, query, milestoneID, completedOn)
	if err != nil {
		r.logger.Error("Failed to complete milestone",
			zap.Int("milestone_id", milestoneID),
			zap.Error(err),
		)
	}
	return err
}

// ListByProject returns a project's milestones in sequence order.
func (r *MilestoneRepository) ListByProject(ctx context.Context, projectID int) ([]model.Milestone, error) {
	query := `
        SELECT id, project_id, milestone_number, title, expected_date, actual_date, status, created_at, updated_at
        FROM milestones
        WHERE project_id = $1
        ORDER BY milestone_number ASC
    `
	rows, err := r.db.Query(ctx, query, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var milestones []model.Milestone
	for rows.Next() {
		var m model.Milestone
		if err := rows.Scan(
			&m.ID,
			&m.ProjectID,
			&m.MilestoneNumber,
			&m.Title,
			&m.ExpectedDate,
			&m.ActualDate,
			&m.Status,
			&m.CreatedAt,
			&m.UpdatedAt,
		); err != nil {
			return nil, err
		}
		milestones = append(milestones, m)
	}
	return milestones, rows.Err()
}
