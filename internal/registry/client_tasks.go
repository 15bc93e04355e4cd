package registry

import (
	"context"
	"database/sql"
	"time"
)

// ReplaceClientTasks stores the full task listing of one client. Rows for
// hashes the client no longer reports are removed.
func (s *Store) ReplaceClientTasks(ctx context.Context, clientID string, tasks []ClientTask, seenAt time.Time) error {
	stamp := seenAt.UTC().Format(time.RFC3339Nano)
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		for _, task := range tasks {
			var topic any
			if task.TopicID > 0 {
				topic = task.TopicID
			}
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO ClientTasks (client_id, hash, topic_id, name, status, seen_at)
				 VALUES (?, ?, ?, ?, ?, ?)
				 ON CONFLICT(client_id, hash) DO UPDATE SET
					topic_id = COALESCE(excluded.topic_id, ClientTasks.topic_id),
					name = COALESCE(NULLIF(excluded.name, ''), ClientTasks.name),
					status = excluded.status,
					seen_at = excluded.seen_at`,
				clientID, NormalizeHash(task.Hash), topic, task.Name, task.Status, stamp,
			); err != nil {
				return err
			}
		}
		_, err := tx.ExecContext(ctx, `DELETE FROM ClientTasks WHERE client_id = ? AND seen_at <> ?`, clientID, stamp)
		return err
	})
	return wrapStorage("replace client tasks", err)
}

// CachedTasksByHashes returns cached tasks of clientID for the given hashes,
// keyed by upper-cased hash.
func (s *Store) CachedTasksByHashes(ctx context.Context, clientID string, hashes []string) (map[string]ClientTask, error) {
	ctx = ensureContext(ctx)
	normalized := make([]string, 0, len(hashes))
	for _, h := range hashes {
		if h = NormalizeHash(h); h != "" {
			normalized = append(normalized, h)
		}
	}
	out := make(map[string]ClientTask)
	for _, part := range chunk(normalized, lookupChunkSize) {
		args := append([]any{clientID}, stringArgs(part)...)
		rows, err := s.db.QueryContext(ctx,
			`SELECT client_id, hash, topic_id, name, status, seen_at FROM ClientTasks
			 WHERE client_id = ? AND hash IN (`+makePlaceholders(len(part))+`)`, args...)
		if err != nil {
			return nil, storageError("cached tasks", "", err)
		}
		tasks, err := scanClientTasks(rows)
		if err != nil {
			return nil, storageError("cached tasks", "scan", err)
		}
		for _, task := range tasks {
			out[task.Hash] = task
		}
	}
	return out, nil
}

// ListClientTasks returns the cached tasks of one client ordered by hash.
func (s *Store) ListClientTasks(ctx context.Context, clientID string) ([]ClientTask, error) {
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(ctx,
		`SELECT client_id, hash, topic_id, name, status, seen_at FROM ClientTasks WHERE client_id = ? ORDER BY hash`, clientID)
	if err != nil {
		return nil, storageError("list client tasks", "", err)
	}
	tasks, err := scanClientTasks(rows)
	if err != nil {
		return nil, storageError("list client tasks", "scan", err)
	}
	return tasks, nil
}

func scanClientTasks(rows *sql.Rows) ([]ClientTask, error) {
	defer rows.Close()
	var tasks []ClientTask
	for rows.Next() {
		var (
			task  ClientTask
			topic sql.NullInt64
			name  sql.NullString
			seen  string
		)
		if err := rows.Scan(&task.ClientID, &task.Hash, &topic, &name, &task.Status, &seen); err != nil {
			return nil, err
		}
		task.TopicID = topic.Int64
		task.Name = name.String
		if ts, err := time.Parse(time.RFC3339Nano, seen); err == nil {
			task.SeenAt = ts
		}
		tasks = append(tasks, task)
	}
	return tasks, rows.Err()
}
