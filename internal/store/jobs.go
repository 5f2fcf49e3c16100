package store

import (
	"context"
	"database/sql"
	"time"
)

// Job is a long-running objective the automaton is tracking across turns —
// the "epic" that outlives any single turn's tool calls. Surfaced in the
// Operational Context layer of the system prompt so the automaton does not
// lose track of open work between turns.
type Job struct {
	ID            int64      `json:"id"`
	Owner         string     `json:"owner"` // "self", "creator", or a child automaton's id
	Title         string     `json:"title"`
	Description   string     `json:"description"`
	Status        string     `json:"status"` // "open", "blocked", "closed"
	BlockedReason string     `json:"blocked_reason,omitempty"`
	SnoozedUntil  *time.Time `json:"snoozed_until,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// CreateJob opens a new job.
func (db *DB) CreateJob(ctx context.Context, owner, title, description string) (int64, error) {
	res, err := db.ExecContext(ctx,
		`INSERT INTO jobs (user_id, title, description, status) VALUES (?, ?, ?, 'open')`,
		owner, title, description,
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// UpdateJobStatus updates the status and optionally the blocked reason,
// clearing any snooze.
func (db *DB) UpdateJobStatus(ctx context.Context, id int64, status, blockedReason string) error {
	_, err := db.ExecContext(ctx,
		`UPDATE jobs SET status = ?, blocked_reason = ?, snoozed_until = NULL, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		status, blockedReason, id,
	)
	return err
}

// SnoozeJob hides a job from the prompt until the given time.
func (db *DB) SnoozeJob(ctx context.Context, id int64, until time.Time) error {
	_, err := db.ExecContext(ctx,
		`UPDATE jobs SET snoozed_until = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		until, id,
	)
	return err
}

// ListJobs returns an owner's jobs, optionally filtered by status, excluding
// anything still snoozed.
func (db *DB) ListJobs(ctx context.Context, owner, status string) ([]Job, error) {
	query := `SELECT id, user_id, title, description, status, blocked_reason, snoozed_until, created_at, updated_at
	          FROM jobs WHERE user_id = ? AND (snoozed_until IS NULL OR snoozed_until <= ?)`
	args := []interface{}{owner, time.Now()}
	if status != "" {
		query += ` AND status = ?`
		args = append(args, status)
	}
	query += ` ORDER BY updated_at DESC`

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []Job
	for rows.Next() {
		var j Job
		var reason sql.NullString
		var snoozed sql.NullTime
		if err := rows.Scan(&j.ID, &j.Owner, &j.Title, &j.Description, &j.Status, &reason, &snoozed, &j.CreatedAt, &j.UpdatedAt); err != nil {
			return nil, err
		}
		if reason.Valid {
			j.BlockedReason = reason.String
		}
		if snoozed.Valid {
			j.SnoozedUntil = &snoozed.Time
		}
		jobs = append(jobs, j)
	}
	return jobs, nil
}

// GetActiveJob returns the most recently updated open or blocked job for an
// owner, excluding snoozed ones — the job the Operational Context layer
// surfaces as "what I'm currently working on".
func (db *DB) GetActiveJob(ctx context.Context, owner string) (*Job, error) {
	query := `SELECT id, user_id, title, description, status, blocked_reason, snoozed_until, created_at, updated_at FROM jobs
	          WHERE user_id = ? AND status IN ('open', 'blocked')
	          AND (snoozed_until IS NULL OR snoozed_until <= ?)
	          ORDER BY updated_at DESC LIMIT 1`

	var j Job
	var reason sql.NullString
	var snoozed sql.NullTime
	err := db.QueryRowContext(ctx, query, owner, time.Now()).Scan(&j.ID, &j.Owner, &j.Title, &j.Description, &j.Status, &reason, &snoozed, &j.CreatedAt, &j.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if reason.Valid {
		j.BlockedReason = reason.String
	}
	if snoozed.Valid {
		j.SnoozedUntil = &snoozed.Time
	}
	return &j, nil
}
