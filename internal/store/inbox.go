package store

import (
	"context"
	"database/sql"

	"github.com/automaton-run/automaton/internal/core"
)

// InsertInboxMessageIfAbsent inserts m keyed by its external id, doing
// nothing if that id is already present. Returns true if a row was newly
// inserted — check_social_inbox's shouldWake signal is "at least one row
// newly inserted this poll".
func (db *DB) InsertInboxMessageIfAbsent(ctx context.Context, m core.InboxMessage) (bool, error) {
	res, err := db.ExecContext(ctx,
		`INSERT INTO inbox_messages (id, from_addr, to_addr, content, signed_at, received_at, processed)
		 VALUES (?, ?, ?, ?, ?, ?, 0)
		 ON CONFLICT(id) DO NOTHING`,
		m.ID, m.From, m.To, m.Content, m.SignedAt, m.ReceivedAt,
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// UnprocessedInboxMessage returns the oldest unprocessed inbox message, or
// (zero value, false) if the inbox is empty. The Turn Engine consumes at
// most one per turn. Ordered by signedAt first (ties broken by receivedAt,
// then id) so a redelivered, earlier-signed message is not jumped ahead of
// by one that merely arrived first.
func (db *DB) UnprocessedInboxMessage(ctx context.Context) (core.InboxMessage, bool, error) {
	row := db.QueryRowContext(ctx,
		`SELECT id, from_addr, to_addr, content, signed_at, received_at, processed
		 FROM inbox_messages WHERE processed = 0 ORDER BY signed_at ASC, received_at ASC, id ASC LIMIT 1`,
	)
	m, err := scanInboxMessage(row)
	if err == sql.ErrNoRows {
		return core.InboxMessage{}, false, nil
	}
	if err != nil {
		return core.InboxMessage{}, false, err
	}
	return m, true, nil
}

// MarkInboxMessageProcessed marks a consumed message so it is not re-read.
func (db *DB) MarkInboxMessageProcessed(ctx context.Context, id string) error {
	_, err := db.ExecContext(ctx, `UPDATE inbox_messages SET processed = 1 WHERE id = ?`, id)
	return err
}

func scanInboxMessage(r scanner) (core.InboxMessage, error) {
	var m core.InboxMessage
	var signedAt sql.NullTime
	var processed int
	if err := r.Scan(&m.ID, &m.From, &m.To, &m.Content, &signedAt, &m.ReceivedAt, &processed); err != nil {
		return m, err
	}
	if signedAt.Valid {
		m.SignedAt = signedAt.Time
	}
	m.Processed = processed != 0
	return m, nil
}
