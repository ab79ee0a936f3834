package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	pendla "github.com/pendla/pendla/internal"
)

// Get returns the entry for key, or (nil, nil) when no row exists.
func (s *Store) Get(ctx context.Context, key pendla.Key) (*pendla.Entry, error) {
	row := s.read.QueryRowContext(ctx,
		`SELECT doc_id, value, synced_at FROM cache_entries WHERE key_type=? AND id=?`,
		key.Type, key.ID,
	)

	var docID string
	var value []byte
	var syncedAt int64
	if err := row.Scan(&docID, &value, &syncedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: sqlite: %v", pendla.ErrBackendUnavailable, err)
	}
	return &pendla.Entry{
		Value:    value,
		SyncedAt: time.Unix(syncedAt, 0),
		Ref:      docID,
	}, nil
}

// GetMany fetches all requested ids of a key type in a single indexed query.
func (s *Store) GetMany(ctx context.Context, keyType string, ids []string) (map[string]*pendla.Entry, error) {
	if len(ids) == 0 {
		return map[string]*pendla.Entry{}, nil
	}

	args := make([]any, 0, len(ids)+1)
	args = append(args, keyType)
	for _, id := range ids {
		args = append(args, id)
	}
	query := `SELECT id, doc_id, value, synced_at FROM cache_entries
	          WHERE key_type=? AND id IN (?` + strings.Repeat(",?", len(ids)-1) + `)`

	rows, err := s.read.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: sqlite: %v", pendla.ErrBackendUnavailable, err)
	}
	defer rows.Close()

	out := make(map[string]*pendla.Entry, len(ids))
	for rows.Next() {
		var id, docID string
		var value []byte
		var syncedAt int64
		if err := rows.Scan(&id, &docID, &value, &syncedAt); err != nil {
			return nil, fmt.Errorf("%w: sqlite: %v", pendla.ErrBackendUnavailable, err)
		}
		out[id] = &pendla.Entry{
			Value:    value,
			SyncedAt: time.Unix(syncedAt, 0),
			Ref:      docID,
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: sqlite: %v", pendla.ErrBackendUnavailable, err)
	}
	return out, nil
}

// PutWithRef inserts a new row when prev is nil and updates the referenced
// row in place otherwise. A concurrent insert of the same key resolves
// last-write-wins through the unique (key_type, id) index.
func (s *Store) PutWithRef(ctx context.Context, key pendla.Key, prev pendla.Ref, e pendla.Entry) error {
	if prev == nil {
		_, err := s.write.ExecContext(ctx,
			`INSERT INTO cache_entries (doc_id, key_type, id, value, synced_at)
			 VALUES (?, ?, ?, ?, ?)
			 ON CONFLICT (key_type, id) DO UPDATE SET value=excluded.value, synced_at=excluded.synced_at`,
			uuid.Must(uuid.NewV7()).String(), key.Type, key.ID, e.Value, e.SyncedAt.Unix(),
		)
		if err != nil {
			return fmt.Errorf("%w: sqlite: %v", pendla.ErrBackendUnavailable, err)
		}
		return nil
	}

	docID, ok := prev.(string)
	if !ok {
		return fmt.Errorf("%w: sqlite: foreign ref type %T", pendla.ErrBackendUnavailable, prev)
	}
	_, err := s.write.ExecContext(ctx,
		`UPDATE cache_entries SET value=?, synced_at=? WHERE doc_id=?`,
		e.Value, e.SyncedAt.Unix(), docID,
	)
	if err != nil {
		return fmt.Errorf("%w: sqlite: %v", pendla.ErrBackendUnavailable, err)
	}
	return nil
}
