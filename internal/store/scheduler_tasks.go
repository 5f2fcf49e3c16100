package store

import (
	"context"
	"database/sql"
	"time"
)

// SchedulerTaskRow is one registered scheduler entry and its run state.
// Grounded on the teacher's scheduler plan-row persistence pattern, adapted
// from cron "plans" to heartbeat task registrations.
type SchedulerTaskRow struct {
	Name              string
	CronExpr          string
	Enabled           bool
	CriticalAllowed   bool
	NextFire          time.Time
	ConsecutiveFails  int
	Degraded          bool
	LastRunAt         time.Time
	LastError         string
}

// UpsertSchedulerTask registers or updates a task's static definition
// without disturbing its run-state columns.
func (db *DB) UpsertSchedulerTask(ctx context.Context, name, cronExpr string, enabled, criticalAllowed bool, nextFire time.Time) error {
	_, err := db.ExecContext(ctx,
		`INSERT INTO scheduler_tasks (name, cron_expr, enabled, critical_allowed, next_fire)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(name) DO UPDATE SET
			cron_expr = excluded.cron_expr,
			enabled = excluded.enabled,
			critical_allowed = excluded.critical_allowed`,
		name, cronExpr, enabled, criticalAllowed, nextFire,
	)
	return err
}

// DueSchedulerTasks returns enabled tasks whose next_fire has passed, in
// name order for deterministic serial execution within one tick.
func (db *DB) DueSchedulerTasks(ctx context.Context, now time.Time) ([]SchedulerTaskRow, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT name, cron_expr, enabled, critical_allowed, next_fire, consecutive_fails, degraded, last_run_at, last_error
		 FROM scheduler_tasks WHERE enabled = 1 AND next_fire IS NOT NULL AND next_fire <= ? ORDER BY name ASC`,
		now,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanSchedulerTasks(rows)
}

// AllSchedulerTasks returns every registered task regardless of due state.
func (db *DB) AllSchedulerTasks(ctx context.Context) ([]SchedulerTaskRow, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT name, cron_expr, enabled, critical_allowed, next_fire, consecutive_fails, degraded, last_run_at, last_error
		 FROM scheduler_tasks ORDER BY name ASC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanSchedulerTasks(rows)
}

// RecordTaskSuccess advances next_fire and clears failure/degradation state.
func (db *DB) RecordTaskSuccess(ctx context.Context, name string, nextFire, ranAt time.Time) error {
	_, err := db.ExecContext(ctx,
		`UPDATE scheduler_tasks SET next_fire = ?, last_run_at = ?, consecutive_fails = 0, degraded = 0, last_error = NULL WHERE name = ?`,
		nextFire, ranAt, name,
	)
	return err
}

// RecordTaskFailure advances next_fire, increments the failure streak, and
// marks the task degraded once the streak reaches three.
func (db *DB) RecordTaskFailure(ctx context.Context, name string, nextFire, ranAt time.Time, errMsg string) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var fails int
	if err := tx.QueryRowContext(ctx, `SELECT consecutive_fails FROM scheduler_tasks WHERE name = ?`, name).Scan(&fails); err != nil {
		return err
	}
	fails++
	degraded := fails >= 3

	if _, err := tx.ExecContext(ctx,
		`UPDATE scheduler_tasks SET next_fire = ?, last_run_at = ?, consecutive_fails = ?, degraded = ?, last_error = ? WHERE name = ?`,
		nextFire, ranAt, fails, degraded, errMsg, name,
	); err != nil {
		return err
	}
	return tx.Commit()
}

func scanSchedulerTasks(rows *sql.Rows) ([]SchedulerTaskRow, error) {
	var out []SchedulerTaskRow
	for rows.Next() {
		var t SchedulerTaskRow
		var nextFire, lastRunAt sql.NullTime
		var lastError sql.NullString
		if err := rows.Scan(&t.Name, &t.CronExpr, &t.Enabled, &t.CriticalAllowed, &nextFire, &t.ConsecutiveFails, &t.Degraded, &lastRunAt, &lastError); err != nil {
			return nil, err
		}
		if nextFire.Valid {
			t.NextFire = nextFire.Time
		}
		if lastRunAt.Valid {
			t.LastRunAt = lastRunAt.Time
		}
		if lastError.Valid {
			t.LastError = lastError.String
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
