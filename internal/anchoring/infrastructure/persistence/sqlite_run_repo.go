// Package persistence implements the anchoring run repository for SQLite
// and PostgreSQL.
package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/anchora-app/anchora/internal/anchoring/domain"
	"github.com/google/uuid"
)

// runDateLayout canonicalizes run_date to a calendar date. The run's
// location never reaches storage: a run saved for 2026-03-02 in Berlin
// and a lookup for 2026-03-02 in UTC hit the same row.
const runDateLayout = "2006-01-02"

// SQLiteRunRepository implements domain.RunRepository using SQLite.
type SQLiteRunRepository struct {
	dbConn *sql.DB
}

// NewSQLiteRunRepository creates a new SQLite run repository.
func NewSQLiteRunRepository(dbConn *sql.DB) *SQLiteRunRepository {
	return &SQLiteRunRepository{dbConn: dbConn}
}

// Save persists a run and its placements in one transaction. Saving the
// same run ID again replaces its placements.
func (r *SQLiteRunRepository) Save(ctx context.Context, run *domain.AnchoringRun) error {
	tx, err := r.dbConn.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var conflicts any
	if ids := run.ConflictActivityIDs(); len(ids) > 0 {
		encoded, err := json.Marshal(ids)
		if err != nil {
			return fmt.Errorf("encode conflicts: %w", err)
		}
		conflicts = string(encoded)
	}

	summary := run.Summary()
	_, err = tx.ExecContext(ctx, `
		INSERT INTO anchoring_runs (
			id, user_id, run_date, window_start, window_end,
			tasks_total, tasks_anchored, tasks_fallback,
			average_confidence, conflicts_detected, conflict_activity_ids,
			utilization_pct, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			tasks_total = excluded.tasks_total,
			tasks_anchored = excluded.tasks_anchored,
			tasks_fallback = excluded.tasks_fallback,
			average_confidence = excluded.average_confidence,
			conflicts_detected = excluded.conflicts_detected,
			conflict_activity_ids = excluded.conflict_activity_ids,
			utilization_pct = excluded.utilization_pct,
			updated_at = excluded.updated_at`,
		run.ID().String(),
		run.UserID().String(),
		run.Date().Format(runDateLayout),
		run.WindowStart().UTC().Format(time.RFC3339),
		run.WindowEnd().UTC().Format(time.RFC3339),
		summary.TasksTotal,
		summary.TasksAnchored,
		summary.TasksFallback,
		summary.AverageConfidence,
		summary.ConflictsDetected,
		conflicts,
		summary.UtilizationPct,
		run.CreatedAt().UTC().Format(time.RFC3339),
		run.UpdatedAt().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("save run: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM anchoring_placements WHERE run_id = ?`, run.ID().String()); err != nil {
		return fmt.Errorf("clear placements: %w", err)
	}

	for i, p := range run.Placements() {
		var slotID any
		if p.SlotID != nil {
			slotID = p.SlotID.String()
		}
		var breakdown any
		if p.Breakdown != nil {
			encoded, err := json.Marshal(p.Breakdown)
			if err != nil {
				return fmt.Errorf("encode breakdown: %w", err)
			}
			breakdown = string(encoded)
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO anchoring_placements (
				run_id, activity_id, position, slot_id,
				start_time, end_time, confidence, is_fallback, breakdown
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			run.ID().String(),
			p.ActivityID.String(),
			i,
			slotID,
			p.Start.UTC().Format(time.RFC3339),
			p.End.UTC().Format(time.RFC3339),
			p.Confidence,
			boolToInt64(p.IsFallback),
			breakdown,
		)
		if err != nil {
			return fmt.Errorf("save placement: %w", err)
		}
	}

	return tx.Commit()
}

// FindByID retrieves a run by its ID.
func (r *SQLiteRunRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.AnchoringRun, error) {
	row := r.dbConn.QueryRowContext(ctx, `
		SELECT id, user_id, run_date, window_start, window_end,
		       tasks_total, tasks_anchored, tasks_fallback,
		       average_confidence, conflicts_detected, conflict_activity_ids,
		       utilization_pct, created_at, updated_at
		FROM anchoring_runs
		WHERE id = ?`, id.String())

	run, err := r.scanRun(ctx, row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrRunNotFound
		}
		return nil, err
	}
	return run, nil
}

// FindByUserAndDate returns the most recent run for the user and date, or
// nil if none exists.
func (r *SQLiteRunRepository) FindByUserAndDate(ctx context.Context, userID uuid.UUID, date time.Time) (*domain.AnchoringRun, error) {
	row := r.dbConn.QueryRowContext(ctx, `
		SELECT id, user_id, run_date, window_start, window_end,
		       tasks_total, tasks_anchored, tasks_fallback,
		       average_confidence, conflicts_detected, conflict_activity_ids,
		       utilization_pct, created_at, updated_at
		FROM anchoring_runs
		WHERE user_id = ? AND run_date = ?
		ORDER BY created_at DESC
		LIMIT 1`, userID.String(), date.Format(runDateLayout))

	run, err := r.scanRun(ctx, row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return run, nil
}

// ListByUser retrieves the user's runs, newest first.
func (r *SQLiteRunRepository) ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]*domain.AnchoringRun, error) {
	rows, err := r.dbConn.QueryContext(ctx, `
		SELECT id, user_id, run_date, window_start, window_end,
		       tasks_total, tasks_anchored, tasks_fallback,
		       average_confidence, conflicts_detected, conflict_activity_ids,
		       utilization_pct, created_at, updated_at
		FROM anchoring_runs
		WHERE user_id = ?
		ORDER BY created_at DESC, id
		LIMIT ?`, userID.String(), limit)
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

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *SQLiteRunRepository) scanRun(ctx context.Context, row rowScanner) (*domain.AnchoringRun, error) {
	var (
		idStr, userStr            string
		dateStr, startStr, endStr string
		createdStr, updatedStr    string
		conflictsStr              sql.NullString
		summary                   domain.RunSummary
	)
	err := row.Scan(
		&idStr, &userStr, &dateStr, &startStr, &endStr,
		&summary.TasksTotal, &summary.TasksAnchored, &summary.TasksFallback,
		&summary.AverageConfidence, &summary.ConflictsDetected, &conflictsStr,
		&summary.UtilizationPct, &createdStr, &updatedStr,
	)
	if err != nil {
		return nil, err
	}

	id, err := uuid.Parse(idStr)
	if err != nil {
		return nil, err
	}
	userID, err := uuid.Parse(userStr)
	if err != nil {
		return nil, err
	}
	date, err := time.Parse(runDateLayout, dateStr)
	if err != nil {
		return nil, err
	}
	windowStart, err := time.Parse(time.RFC3339, startStr)
	if err != nil {
		return nil, err
	}
	windowEnd, err := time.Parse(time.RFC3339, endStr)
	if err != nil {
		return nil, err
	}
	createdAt, err := time.Parse(time.RFC3339, createdStr)
	if err != nil {
		return nil, err
	}
	updatedAt, err := time.Parse(time.RFC3339, updatedStr)
	if err != nil {
		return nil, err
	}

	var conflicts []uuid.UUID
	if conflictsStr.Valid {
		if err := json.Unmarshal([]byte(conflictsStr.String), &conflicts); err != nil {
			return nil, fmt.Errorf("decode conflicts: %w", err)
		}
	}

	placements, err := r.loadPlacements(ctx, id)
	if err != nil {
		return nil, err
	}

	return domain.RehydrateRun(id, userID, date, windowStart, windowEnd, placements, conflicts, summary, createdAt, updatedAt), nil
}

func (r *SQLiteRunRepository) loadPlacements(ctx context.Context, runID uuid.UUID) ([]domain.Placement, error) {
	rows, err := r.dbConn.QueryContext(ctx, `
		SELECT activity_id, slot_id, start_time, end_time, confidence, is_fallback, breakdown
		FROM anchoring_placements
		WHERE run_id = ?
		ORDER BY position`, runID.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	placements := make([]domain.Placement, 0)
	for rows.Next() {
		var (
			activityStr        string
			slotStr, breakdown sql.NullString
			startStr, endStr   string
			confidence         float64
			isFallback         int64
		)
		if err := rows.Scan(&activityStr, &slotStr, &startStr, &endStr, &confidence, &isFallback, &breakdown); err != nil {
			return nil, err
		}

		p := domain.Placement{Confidence: confidence, IsFallback: isFallback != 0}
		if p.ActivityID, err = uuid.Parse(activityStr); err != nil {
			return nil, err
		}
		if slotStr.Valid {
			slotID, err := uuid.Parse(slotStr.String)
			if err != nil {
				return nil, err
			}
			p.SlotID = &slotID
		}
		if p.Start, err = time.Parse(time.RFC3339, startStr); err != nil {
			return nil, err
		}
		if p.End, err = time.Parse(time.RFC3339, endStr); err != nil {
			return nil, err
		}
		if breakdown.Valid {
			var b domain.ScoreBreakdown
			if err := json.Unmarshal([]byte(breakdown.String), &b); err != nil {
				return nil, fmt.Errorf("decode breakdown: %w", err)
			}
			p.Breakdown = &b
		}
		placements = append(placements, p)
	}
	return placements, rows.Err()
}

func boolToInt64(b bool) int64 {
	if b {
		return 1
	}
	return 0
}
