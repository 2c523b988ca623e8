package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"fundportal/internal/model"
)

// notes is nullable and scanned into a plain string, so it is coalesced.
const trancheColumns = `id, project_id, tranche_number, amount, status, COALESCE(notes, ''), created_at, updated_at`

type TrancheRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewTrancheRepository(db *pgxpool.Pool, logger *zap.Logger) *TrancheRepository {
	return &TrancheRepository{
		db:     db,
		logger: logger,
	}
}

// FindEarliestPendingTranche returns the pending tranche with the lowest
// tranche number for the project, or nil when none is pending.
func (r *TrancheRepository) FindEarliestPendingTranche(ctx context.Context, projectID int) (*model.Tranche, error) {
	query := `
        SELECT ` + trancheColumns + `
        FROM tranches
        WHERE project_id = $1 AND status = 'pending'
        ORDER BY tranche_number ASC
        LIMIT 1
    `
	var t model.Tranche
	err := r.db.QueryRow(ctx, query, projectID).Scan(
		&t.ID,
		&t.ProjectID,
		&t.TrancheNumber,
		&t.Amount,
		&t.Status,
		&t.Notes,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &t, nil
}

// FreezeTranche freezes a pending tranche with an explanatory note. The
// status guard makes freezing anything but a pending tranche a no-op.
func (r *TrancheRepository) FreezeTranche(ctx context.Context, trancheID int, note string) error {
	query := `
        UPDATE tranches
        SET status = 'frozen', notes = $2, updated_at = NOW()
        WHERE id = $1 AND status = 'pending'
    `
	result, err := r.db.Exec(ctx, query, trancheID, note)
	if err != nil {
		r.logger.Error("Failed to freeze tranche",
			zap.Int("tranche_id", trancheID),
			zap.Error(err),
		)
		return err
	}

	if result.RowsAffected() > 0 {
		r.logger.Info("Tranche frozen",
			zap.Int("tranche_id", trancheID),
		)
	}
	return nil
}

// ListByProject returns a project's tranches in sequence order.
func (r *TrancheRepository) ListByProject(ctx context.Context, projectID int) ([]model.Tranche, error) {
	query := `
        SELECT ` + trancheColumns + `
        FROM tranches
        WHERE project_id = $1
        ORDER BY tranche_number ASC
    `
	rows, err := r.db.Query(ctx, query, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tranches []model.Tranche
	for rows.Next() {
		var t model.Tranche
		if err := rows.Scan(
			&t.ID,
			&t.ProjectID,
			&t.TrancheNumber,
			&t.Amount,
			&t.Status,
			&t.Notes,
			&t.CreatedAt,
			&t.UpdatedAt,
		); err != nil {
			return nil, err
		}
		tranches = append(tranches, t)
	}
	return tranches, rows.Err()
}
