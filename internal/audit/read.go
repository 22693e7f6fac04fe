package audit

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"

	"github.com/roach88/recordsim/internal/ir"
)

// ByTarget returns every entry for ref, oldest first.
//
// Returns an empty slice (not nil) when the record has no history.
func (l *Log) ByTarget(ctx context.Context, ref ir.Reference) ([]Entry, error) {
	rows, err := l.db.QueryContext(ctx, `
		SELECT id, seq, action, operation, entity, target_id, user_id, created_on
		FROM entries
		WHERE entity = ? AND target_id = ?
		ORDER BY seq ASC, id COLLATE BINARY ASC
	`, ir.Key(ref.LogicalName), ref.ID.String())
	if err != nil {
		return nil, fmt.Errorf("query entries: %w", err)
	}
	entries, err := l.scanEntries(rows, ref.LogicalName)
	if err != nil {
		return nil, err
	}
	for i := range entries {
		if entries[i].Changes, err = l.changes(ctx, entries[i].ID, ""); err != nil {
			return nil, err
		}
	}
	return entries, nil
}

// ByAttribute returns the entries for ref that changed attribute, oldest
// first. Each entry carries only the change to that attribute.
func (l *Log) ByAttribute(ctx context.Context, ref ir.Reference, attribute string) ([]Entry, error) {
	rows, err := l.db.QueryContext(ctx, `
		SELECT e.id, e.seq, e.action, e.operation, e.entity, e.target_id, e.user_id, e.created_on
		FROM entries e
		WHERE e.entity = ? AND e.target_id = ?
		  AND EXISTS (
			SELECT 1 FROM changes c
			WHERE c.entry_id = e.id AND c.attribute_key = ?
		  )
		ORDER BY e.seq ASC, e.id COLLATE BINARY ASC
	`, ir.Key(ref.LogicalName), ref.ID.String(), ir.Key(attribute))
	if err != nil {
		return nil, fmt.Errorf("query entries by attribute: %w", err)
	}
	entries, err := l.scanEntries(rows, ref.LogicalName)
	if err != nil {
		return nil, err
	}
	for i := range entries {
		if entries[i].Changes, err = l.changes(ctx, entries[i].ID, attribute); err != nil {
			return nil, err
		}
	}
	return entries, nil
}

func (l *Log) scanEntries(rows *sql.Rows, logicalName string) ([]Entry, error) {
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		var (
			e                        Entry
			id, entity, target, user string
			created                  string
			action                   int
		)
		if err := rows.Scan(&id, &e.Seq, &action, &e.Operation, &entity, &target, &user, &created); err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		var err error
		if e.ID, err = ulid.ParseStrict(id); err != nil {
			return nil, fmt.Errorf("scan entry: id: %w", err)
		}
		targetID, err := uuid.Parse(target)
		if err != nil {
			return nil, fmt.Errorf("scan entry %s: target: %w", id, err)
		}
		if e.UserID, err = uuid.Parse(user); err != nil {
			return nil, fmt.Errorf("scan entry %s: user: %w", id, err)
		}
		if e.CreatedOn, err = time.Parse(time.RFC3339Nano, created); err != nil {
			return nil, fmt.Errorf("scan entry %s: created_on: %w", id, err)
		}
		e.Action = Action(action)
		e.Target = ir.NewReference(logicalName, targetID)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate entries: %w", err)
	}
	return entries, nil
}

// changes loads the changes of one entry, restricted to attribute when it
// is not empty.
func (l *Log) changes(ctx context.Context, entryID ulid.ULID, attribute string) ([]Change, error) {
	q := `
		SELECT attribute, old_value, new_value
		FROM changes
		WHERE entry_id = ?`
	args := []any{entryID.String()}
	if attribute != "" {
		q += ` AND attribute_key = ?`
		args = append(args, ir.Key(attribute))
	}
	q += ` ORDER BY position ASC`

	rows, err := l.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query changes: %w", err)
	}
	defer rows.Close()

	var out []Change
	for rows.Next() {
		var c Change
		var oldJSON, newJSON string
		if err := rows.Scan(&c.Attribute, &oldJSON, &newJSON); err != nil {
			return nil, fmt.Errorf("scan change: %w", err)
		}
		if c.Old, err = unmarshalValue(oldJSON); err != nil {
			return nil, fmt.Errorf("change %s: old: %w", c.Attribute, err)
		}
		if c.New, err = unmarshalValue(newJSON); err != nil {
			return nil, fmt.Errorf("change %s: new: %w", c.Attribute, err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate changes: %w", err)
	}
	return out, nil
}
