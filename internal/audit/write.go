package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/roach88/recordsim/internal/ir"
)

// Append writes e and returns it with ID, Seq and CreatedOn assigned.
// A zero CreatedOn is filled from the log clock.
func (l *Log) Append(ctx context.Context, e Entry) (Entry, error) {
	if e.Action < ActionCreate || e.Action > ActionDelete {
		return Entry{}, fmt.Errorf("append audit entry: invalid action %d", int(e.Action))
	}
	if e.CreatedOn.IsZero() {
		e.CreatedOn = l.now()
	}
	id, err := ulid.New(ulid.Timestamp(e.CreatedOn), l.entropy)
	if err != nil {
		return Entry{}, fmt.Errorf("append audit entry: %w", err)
	}
	e.ID = id
	e.Seq = l.seq + 1

	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return Entry{}, fmt.Errorf("append audit entry: begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO entries
		(id, seq, action, operation, entity, target_id, user_id, created_on)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		e.ID.String(),
		e.Seq,
		int(e.Action),
		e.Operation,
		ir.Key(e.Target.LogicalName),
		e.Target.ID.String(),
		e.UserID.String(),
		e.CreatedOn.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return Entry{}, fmt.Errorf("append audit entry: %w", err)
	}

	for i, c := range e.Changes {
		oldJSON, err := marshalValue(c.Old)
		if err != nil {
			return Entry{}, fmt.Errorf("append audit entry: %s: %w", c.Attribute, err)
		}
		newJSON, err := marshalValue(c.New)
		if err != nil {
			return Entry{}, fmt.Errorf("append audit entry: %s: %w", c.Attribute, err)
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO changes
			(entry_id, position, attribute, attribute_key, old_value, new_value)
			VALUES (?, ?, ?, ?, ?, ?)
		`, e.ID.String(), i, c.Attribute, ir.Key(c.Attribute), oldJSON, newJSON)
		if err != nil {
			return Entry{}, fmt.Errorf("append audit entry: %s: %w", c.Attribute, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return Entry{}, fmt.Errorf("append audit entry: commit: %w", err)
	}
	l.seq = e.Seq
	l.logger.Debug("audit entry appended",
		"seq", e.Seq,
		"action", e.Action.String(),
		"entity", e.Target.LogicalName,
		"id", e.Target.ID,
		"changes", len(e.Changes),
	)
	return e, nil
}
