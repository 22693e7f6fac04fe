// Package audit keeps an append-only log of record changes in an in-memory
// SQLite database.
//
// Each entry carries:
//   - a ULID id and a sequence number
//   - the action code (1=Create, 2=Update, 3=Delete) and operation name
//   - the target reference and the user who made the change
//   - the attribute changes, old and new value side by side
//
// All reads order by seq ASC, id ASC COLLATE BINARY so results are stable
// across runs. Values are stored as canonical JSON produced by
// ir.MarshalCanonical.
package audit
