package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/anchora-app/anchora/internal/anchoring/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lib/pq"
)

// PostgresRunRepository implements domain.RunRepository using PostgreSQL.
type PostgresRunRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRunRepository creates a new PostgreSQL run repository.
func NewPostgresRunRepository(pool *pgxpool.Pool) *PostgresRunRepository {
	return &PostgresRunRepository{pool: pool}
}

// Save persists a run and its placements in one transaction. Saving the
// same run ID again replaces its placements.
func (r *PostgresRunRepository) Save(ctx context.Context, run *domain.AnchoringRun) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	conflicts := make([]string, 0, len(run.ConflictActivityIDs()))
	for _, id := range run.ConflictActivityIDs() {
		conflicts = append(conflicts, id.String())
	}

	summary := run.Summary()
	_, err = tx.Exec(ctx, `
		INSERT INTO anchoring_runs (
			id, user_id, run_date, window_start, window_end,
			tasks_total, tasks_anchored, tasks_fallback,
			average_confidence, conflicts_detected, conflict_activity_ids,
			utilization_pct, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (id) DO UPDATE SET
			tasks_total = EXCLUDED.tasks_total,
			tasks_anchored = EXCLUDED.tasks_anchored,
			tasks_fallback = EXCLUDED.tasks_fallback,
			average_confidence = EXCLUDED.average_confidence,
			conflicts_detected = EXCLUDED.conflicts_detected,
			conflict_activity_ids = EXCLUDED.conflict_activity_ids,
			utilization_pct = EXCLUDED.utilization_pct,
			updated_at = NOW()`,
		run.ID(),
		run.UserID(),
		run.Date().Format(runDateLayout),
		run.WindowStart(),
		run.WindowEnd(),
		summary.TasksTotal,
		summary.TasksAnchored,
		summary.TasksFallback,
		summary.AverageConfidence,
		summary.ConflictsDetected,
		pq.Array(conflicts),
		summary.UtilizationPct,
		run.CreatedAt(),
		run.UpdatedAt(),
	)
	if err != nil {
		return fmt.Errorf("save run: %w", err)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM anchoring_placements WHERE run_id = $1`, run.ID()); err != nil {
		return fmt.Errorf("clear placements: %w", err)
	}

	for i, p := range run.Placements() {
		var breakdown []byte
		if p.Breakdown != nil {
			if breakdown, err = json.Marshal(p.Breakdown); err != nil {
				return fmt.Errorf("encode breakdown: %w", err)
			}
		}
		_, err = tx.Exec(ctx, `
			INSERT INTO anchoring_placements (
				run_id, activity_id, position, slot_id,
				start_time, end_time, confidence, is_fallback, breakdown
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			run.ID(),
			p.ActivityID,
			i,
			p.SlotID,
			p.Start,
			p.End,
			p.Confidence,
			p.IsFallback,
			breakdown,
		)
		if err != nil {
			return fmt.Errorf("save placement: %w", err)
		}
	}

	return tx.Commit(ctx)
}

// FindByID retrieves a run by its ID.
func (r *PostgresRunRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.AnchoringRun, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, user_id, run_date, window_start, window_end,
		       tasks_total, tasks_anchored, tasks_fallback,
		       average_confidence, conflicts_detected, conflict_activity_ids,
		       utilization_pct, created_at, updated_at
		FROM anchoring_runs
		WHERE id = $1`, id)

	run, err := r.scanRun(ctx, row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrRunNotFound
		}
		return nil, err
	}
	return run, nil
}

// FindByUserAndDate returns the most recent run for the user and date, or
// nil if none exists.
func (r *PostgresRunRepository) FindByUserAndDate(ctx context.Context, userID uuid.UUID, date time.Time) (*domain.AnchoringRun, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, user_id, run_date, window_start, window_end,
		       tasks_total, tasks_anchored, tasks_fallback,
		       average_confidence, conflicts_detected, conflict_activity_ids,
		       utilization_pct, created_at, updated_at
		FROM anchoring_runs
		WHERE user_id = $1 AND run_date = $2
		ORDER BY created_at DESC
		LIMIT 1`, userID, date.Format(runDateLayout))

	run, err := r.scanRun(ctx, row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return run, nil
}

// ListByUser retrieves the user's runs, newest first.
func (r *PostgresRunRepository) ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]*domain.AnchoringRun, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, user_id, run_date, window_start, window_end,
		       tasks_total, tasks_anchored, tasks_fallback,
		       average_confidence, conflicts_detected, conflict_activity_ids,
		       utilization_pct, created_at, updated_at
		FROM anchoring_runs
		WHERE user_id = $1
		ORDER BY created_at DESC, id
		LIMIT $2`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	runs := make([]*domain.AnchoringRun, 0)
	for rows.Next() {
		run, err := r.scanRun(ctx, rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

func (r *PostgresRunRepository) scanRun(ctx context.Context, row pgx.Row) (*domain.AnchoringRun, error) {
	var (
		id, userID           uuid.UUID
		date                 time.Time
		windowStart          time.Time
		windowEnd            time.Time
		conflictStrs         []string
		summary              domain.RunSummary
		createdAt, updatedAt time.Time
	)
	err := row.Scan(
		&id, &userID, &date, &windowStart, &windowEnd,
		&summary.TasksTotal, &summary.TasksAnchored, &summary.TasksFallback,
		&summary.AverageConfidence, &summary.ConflictsDetected, pq.Array(&conflictStrs),
		&summary.UtilizationPct, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	var conflicts []uuid.UUID
	for _, s := range conflictStrs {
		cid, err := uuid.Parse(s)
		if err != nil {
			return nil, err
		}
		conflicts = append(conflicts, cid)
	}

	placements, err := r.loadPlacements(ctx, id)
	if err != nil {
		return nil, err
	}

	return domain.RehydrateRun(id, userID, date, windowStart, windowEnd, placements, conflicts, summary, createdAt, updatedAt), nil
}

func (r *PostgresRunRepository) loadPlacements(ctx context.Context, runID uuid.UUID) ([]domain.Placement, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT activity_id, slot_id, start_time, end_time, confidence, is_fallback, breakdown
		FROM anchoring_placements
		WHERE run_id = $1
		ORDER BY position`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	placements := make([]domain.Placement, 0)
	for rows.Next() {
		var p domain.Placement
		var breakdown []byte
		if err := rows.Scan(&p.ActivityID, &p.SlotID, &p.Start, &p.End, &p.Confidence, &p.IsFallback, &breakdown); err != nil {
			return nil, err
		}
		if len(breakdown) > 0 {
			var b domain.ScoreBreakdown
			if err := json.Unmarshal(breakdown, &b); err != nil {
				return nil, fmt.Errorf("decode breakdown: %w", err)
			}
			p.Breakdown = &b
		}
		placements = append(placements, p)
	}
	return placements, rows.Err()
}
