package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"fundportal/internal/model"
	"fundportal/internal/service/escalation"
)

const escalationColumns = `id, project_id, milestone_id, escalation_level, escalation_type,
       description, status, escalated_to, resolution_notes, resolved_at, created_at, updated_at`

type EscalationRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewEscalationRepository(db *pgxpool.Pool, logger *zap.Logger) *EscalationRepository {
	return &EscalationRepository{
		db:     db,
		logger: logger,
	}
}

func scanEscalation(row pgx.Row, e *model.Escalation) error {
	var notes *string
	err := row.Scan(
		&e.ID,
		&e.ProjectID,
		&e.MilestoneID,
		&e.Level,
		&e.Type,
		&e.Description,
		&e.Status,
		&e.EscalatedTo,
		&notes,
		&e.ResolvedAt,
		&e.CreatedAt,
		&e.UpdatedAt,
	)
	if notes != nil {
		e.ResolutionNotes = *notes
	}
	return err
}

// InsertOpenEscalation creates an open escalation unless an open one
// already exists for the same milestone. The partial unique index on
// (milestone_id) WHERE status = 'open' makes the check-and-insert a
// single atomic statement; the conflict outcome means "already exists".
func (r *EscalationRepository) InsertOpenEscalation(ctx context.Context, esc *model.Escalation) (bool, error) {
	query := `
        INSERT INTO escalations (project_id, milestone_id, escalation_level, escalation_type, description, status, escalated_to)
        VALUES ($1, $2, $3, $4, $5, 'open', $6)
        ON CONFLICT (milestone_id) WHERE status = 'open' DO NOTHING
        RETURNING id, created_at, updated_at
    `
	err := r.db.QueryRow(ctx, query,
		esc.ProjectID,
		esc.MilestoneID,
		esc.Level,
		esc.Type,
		esc.Description,
		esc.EscalatedTo,
	).Scan(&esc.ID, &esc.CreatedAt, &esc.UpdatedAt)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Conflict: an open escalation for this milestone already exists.
			return false, nil
		}
		r.logger.Error("Failed to insert escalation",
			zap.Int("project_id", esc.ProjectID),
			zap.Error(err),
		)
		return false, err
	}

	esc.Status = model.EscalationOpen
	return true, nil
}

// FindStaleOpenEscalations returns open escalations created at or before
// the cutoff, with their projects.
func (r *EscalationRepository) FindStaleOpenEscalations(ctx context.Context, cutoff time.Time) ([]model.EscalationCase, error) {
	query := `
        SELECT e.id, e.project_id, e.milestone_id, e.escalation_level, e.escalation_type,
               e.description, e.status, e.escalated_to, e.created_at,
               p.id, p.project_code, p.title, p.state, p.district, p.executing_agency_id
        FROM escalations e
        JOIN projects p ON p.id = e.project_id
        WHERE e.status = 'open'
          AND e.created_at <= $1
        ORDER BY e.created_at ASC
    `
	rows, err := r.db.Query(ctx, query, cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cases []model.EscalationCase
	for rows.Next() {
		var c model.EscalationCase
		if err := rows.Scan(
			&c.Escalation.ID,
			&c.Escalation.ProjectID,
			&c.Escalation.MilestoneID,
			&c.Escalation.Level,
			&c.Escalation.Type,
			&c.Escalation.Description,
			&c.Escalation.Status,
			&c.Escalation.EscalatedTo,
			&c.Escalation.CreatedAt,
			&c.Project.ID,
			&c.Project.ProjectCode,
			&c.Project.Title,
			&c.Project.State,
			&c.Project.District,
			&c.Project.ExecutingAgencyID,
		); err != nil {
			return nil, err
		}
		cases = append(cases, c)
	}
	return cases, rows.Err()
}

// CloseEscalation closes an escalation that is still open.
func (r *EscalationRepository) CloseEscalation(ctx context.Context, escalationID int) error {
	query := `
        UPDATE escalations
        SET status = 'closed', updated_at = NOW()
        WHERE id = $1 AND status = 'open'
    `
	result, err := r.db.Exec(ctx, query, escalationID)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return escalation.ErrNotOpen
	}
	return nil
}

// AdvanceEscalation closes the current escalation and inserts its
// successor in one transaction, so a sweep can never leave a chain with
// the old record closed and no record of what happened to the new one.
func (r *EscalationRepository) AdvanceEscalation(ctx context.Context, currentID int, next *model.Escalation) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	result, err := tx.Exec(ctx, `
        UPDATE escalations
        SET status = 'closed', updated_at = NOW()
        WHERE id = $1 AND status = 'open'
    `, currentID)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		// Already advanced or resolved by someone else.
		return escalation.ErrNotOpen
	}

	err = tx.QueryRow(ctx, `
        INSERT INTO escalations (project_id, milestone_id, escalation_level, escalation_type, description, status, escalated_to)
        VALUES ($1, $2, $3, $4, $5, 'open', $6)
        ON CONFLICT (milestone_id) WHERE status = 'open' DO NOTHING
        RETURNING id, created_at, updated_at
    `,
		next.ProjectID,
		next.MilestoneID,
		next.Level,
		next.Type,
		next.Description,
		next.EscalatedTo,
	).Scan(&next.ID, &next.CreatedAt, &next.UpdatedAt)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// A concurrent manual creation opened an escalation for the same
			// milestone; rolling back leaves the current one open for the
			// next sweep.
			return escalation.ErrNotOpen
		}
		return err
	}

	next.Status = model.EscalationOpen
	return tx.Commit(ctx)
}

// FlagRequiresAdminAction marks the escalation as requiring administrator
// action and appends the marker to its description. Only an open
// escalation can be flagged: a concurrent resolve between the stale scan
// and this update must stay resolved.
func (r *EscalationRepository) FlagRequiresAdminAction(ctx context.Context, escalationID int, marker string) error {
	query := `
        UPDATE escalations
        SET status = 'requires_admin_action', description = description || $2, updated_at = NOW()
        WHERE id = $1 AND status = 'open'
    `
	result, err := r.db.Exec(ctx, query, escalationID, marker)
	if err != nil {
		r.logger.Error("Failed to flag escalation for admin action",
			zap.Int("escalation_id", escalationID),
			zap.Error(err),
		)
		return err
	}
	if result.RowsAffected() == 0 {
		return escalation.ErrNotOpen
	}
	return nil
}

// ResolveEscalation resolves the escalation, completes its linked
// milestone and unfreezes every frozen tranche of the project, all in one
// transaction. A missing or already-resolved escalation mutates nothing.
func (r *EscalationRepository) ResolveEscalation(ctx context.Context, escalationID int, notes string, now time.Time) (*model.Escalation, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	var resolved model.Escalation
	err = scanEscalation(tx.QueryRow(ctx, `
        UPDATE escalations
        SET status = 'resolved', resolved_at = $2, resolution_notes = $3, updated_at = NOW()
        WHERE id = $1 AND status <> 'resolved'
        RETURNING `+escalationColumns+`
    `, escalationID, now, notes), &resolved)

	if err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		var exists bool
		if checkErr := r.db.QueryRow(ctx, `
            SELECT EXISTS (SELECT 1 FROM escalations WHERE id = $1)
        `, escalationID).Scan(&exists); checkErr != nil {
			return nil, checkErr
		}
		if exists {
			return nil, escalation.ErrAlreadyResolved
		}
		return nil, escalation.ErrNotFound
	}

	if resolved.MilestoneID != nil {
		_, err = tx.Exec(ctx, `
            UPDATE milestones
            SET status = 'completed', actual_date = $2, updated_at = NOW()
            WHERE id = $1
        `, *resolved.MilestoneID, now)
		if err != nil {
			return nil, err
		}
	}

	// Project-wide: one unresolved critical issue blocks all disbursement,
	// so its resolution releases every frozen tranche of the project.
	unfrozen, err := tx.Exec(ctx, `
        UPDATE tranches
        SET status = 'pending', updated_at = NOW()
        WHERE project_id = $1 AND status = 'frozen'
    `, resolved.ProjectID)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	if n := unfrozen.RowsAffected(); n > 0 {
		r.logger.Info("Unfroze project tranches",
			zap.Int("project_id", resolved.ProjectID),
			zap.Int64("count", n),
		)
	}
	return &resolved, nil
}

// GetByID returns a single escalation.
func (r *EscalationRepository) GetByID(ctx context.Context, escalationID int) (*model.Escalation, error) {
	var e model.Escalation
	err := scanEscalation(r.db.QueryRow(ctx, `
        SELECT `+escalationColumns+`
        FROM escalations
        WHERE id = $1
    `, escalationID), &e)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, escalation.ErrNotFound
		}
		return nil, err
	}
	return &e, nil
}

// List returns escalations, newest first, optionally filtered by status
// and project.
func (r *EscalationRepository) List(ctx context.Context, status string, projectID int, limit int) ([]model.Escalation, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `
        SELECT ` + escalationColumns + `
        FROM escalations
        WHERE ($1 = '' OR status = $1)
          AND ($2 = 0 OR project_id = $2)
        ORDER BY created_at DESC
        LIMIT $3
    `
	rows, err := r.db.Query(ctx, query, status, projectID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var escalations []model.Escalation
	for rows.Next() {
		var e model.Escalation
		if err := scanEscalation(rows, &e); err != nil {
			return nil, err
		}
		escalations = append(escalations, e)
	}
	return escalations, rows.Err()
}

// Stats summarises escalation counts by status and level.
func (r *EscalationRepository) Stats(ctx context.Context) (*model.EscalationStats, error) {
	rows, err := r.db.Query(ctx, `
        SELECT status, escalation_level, COUNT(*)
        FROM escalations
        GROUP BY status, escalation_level
    `)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	stats := &model.EscalationStats{
		ByStatus: make(map[string]int),
		ByLevel:  make(map[int]int),
	}
	for rows.Next() {
		var status string
		var level, count int
		if err := rows.Scan(&status, &level, &count); err != nil {
			return nil, err
		}
		stats.Total += count
		stats.ByStatus[status] += count
		stats.ByLevel[level] += count
	}
	return stats, rows.Err()
}
