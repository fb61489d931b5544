package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Entry is one journaled action.
type Entry struct {
	StoreID    string
	Seq        int64
	Type       string
	Payload    []byte
	RecordedAt time.Time
}

// Append writes e. Writing the same (StoreID, Seq) twice is a no-op, so a
// retried append never duplicates an action.
// A zero RecordedAt is stamped with the journal clock.
func (j *Journal) Append(ctx context.Context, e Entry) error {
	if e.StoreID == "" {
		return errors.New("append: store id is required")
	}
	if e.Type == "" {
		return errors.New("append: action type is required")
	}
	if e.RecordedAt.IsZero() {
		e.RecordedAt = j.clock.Now()
	}
	payload := e.Payload
	if payload == nil {
		payload = []byte("null")
	}

	_, err := j.db.ExecContext(ctx, `
		INSERT INTO actions (store_id, seq, type, payload, recorded_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(store_id, seq) DO NOTHING
	`,
		e.StoreID,
		e.Seq,
		e.Type,
		payload,
		e.RecordedAt.UTC().UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("append: %w", err)
	}
	return nil
}

// Read returns every entry for storeID ordered by seq.
// Returns an empty slice (not nil) when nothing was journaled.
func (j *Journal) Read(ctx context.Context, storeID string) ([]Entry, error) {
	return j.readSince(ctx, storeID, 0)
}

// ReadSince returns entries for storeID with seq greater than after.
func (j *Journal) ReadSince(ctx context.Context, storeID string, after int64) ([]Entry, error) {
	return j.readSince(ctx, storeID, after)
}

func (j *Journal) readSince(ctx context.Context, storeID string, after int64) ([]Entry, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT store_id, seq, type, payload, recorded_at
		FROM actions
		WHERE store_id = ? AND seq > ?
		ORDER BY seq ASC
	`, storeID, after)
	if err != nil {
		return nil, fmt.Errorf("query actions: %w", err)
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate actions: %w", err)
	}
	return entries, nil
}

// LastSeq returns the highest journaled seq for storeID, or 0.
func (j *Journal) LastSeq(ctx context.Context, storeID string) (int64, error) {
	var seq sql.NullInt64
	err := j.db.QueryRowContext(ctx,
		`SELECT MAX(seq) FROM actions WHERE store_id = ?`, storeID,
	).Scan(&seq)
	if err != nil {
		return 0, fmt.Errorf("last seq: %w", err)
	}
	return seq.Int64, nil
}

// Stores lists journaled store ids in lexical order.
func (j *Journal) Stores(ctx context.Context) ([]string, error) {
	rows, err := j.db.QueryContext(ctx,
		`SELECT DISTINCT store_id FROM actions ORDER BY store_id COLLATE BINARY ASC`)
	if err != nil {
		return nil, fmt.Errorf("query stores: %w", err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan store id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate stores: %w", err)
	}
	return ids, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(row scanner) (Entry, error) {
	var (
		e        Entry
		recorded int64
	)
	if err := row.Scan(&e.StoreID, &e.Seq, &e.Type, &e.Payload, &recorded); err != nil {
		return Entry{}, fmt.Errorf("scan action: %w", err)
	}
	e.RecordedAt = time.Unix(0, recorded).UTC()
	return e, nil
}
