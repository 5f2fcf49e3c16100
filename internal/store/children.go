package store

import (
	"context"

	"github.com/automaton-run/automaton/internal/core"
)

// InsertChild records a newly spawned child automaton.
func (db *DB) InsertChild(ctx context.Context, c core.ChildAutomaton) error {
	_, err := db.ExecContext(ctx,
		`INSERT INTO child_automatons (id, name, sandbox_id, address, status, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		c.ID, c.Name, c.SandboxID, c.Address, c.Status, c.CreatedAt,
	)
	return err
}

// UpdateChildStatus records a status transition observed for a child.
func (db *DB) UpdateChildStatus(ctx context.Context, id string, status core.ChildStatus) error {
	_, err := db.ExecContext(ctx, `UPDATE child_automatons SET status = ? WHERE id = ?`, status, id)
	return err
}

// ListChildren returns every known child, most recently created first.
func (db *DB) ListChildren(ctx context.Context) ([]core.ChildAutomaton, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT id, name, sandbox_id, address, status, created_at FROM child_automatons ORDER BY created_at DESC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []core.ChildAutomaton
	for rows.Next() {
		var c core.ChildAutomaton
		if err := rows.Scan(&c.ID, &c.Name, &c.SandboxID, &c.Address, &c.Status, &c.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
