package registry

import (
	"context"
	"database/sql"
)

// ReconcileKeepers makes the durable roster agree with a freshly scanned set
// of pairs, in one transaction. Every scanned pair is inserted (existing pairs
// are ignored), then unmatched durable rows inside scope are deleted. An empty
// scan changes nothing.
func (s *Store) ReconcileKeepers(ctx context.Context, scanned []KeeperPair, scope KeeperScope) (KeeperChanges, error) {
	if len(scanned) == 0 {
		return KeeperChanges{}, nil
	}
	if err := validateBatch("reconcile keepers", scanned); err != nil {
		return KeeperChanges{}, err
	}

	seen := make(map[KeeperPair]struct{}, len(scanned))
	unique := make([]KeeperPair, 0, len(scanned))
	for _, p := range scanned {
		if _, dup := seen[p]; dup {
			continue
		}
		seen[p] = struct{}{}
		unique = append(unique, p)
	}
	covered := make(map[int64]struct{}, len(scope.TopicIDs))
	for _, id := range scope.TopicIDs {
		covered[id] = struct{}{}
	}

	var changes KeeperChanges
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		changes = KeeperChanges{}
		for _, p := range unique {
			res, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO Keepers (topic_id, nick) VALUES (?, ?)`, p.TopicID, p.Nick)
			if err != nil {
				return err
			}
			n, err := res.RowsAffected()
			if err != nil {
				return err
			}
			changes.Inserted += n
		}

		stale, err := staleKeeperIDsTx(ctx, tx, seen, covered, scope.Global)
		if err != nil {
			return err
		}
		for _, id := range stale {
			if _, err := tx.ExecContext(ctx, `DELETE FROM Keepers WHERE id = ?`, id); err != nil {
				return err
			}
		}
		changes.Deleted = int64(len(stale))
		return nil
	})
	if err != nil {
		return KeeperChanges{}, wrapStorage("reconcile keepers", err)
	}
	return changes, nil
}

func staleKeeperIDsTx(ctx context.Context, tx *sql.Tx, seen map[KeeperPair]struct{}, covered map[int64]struct{}, global bool) ([]int64, error) {
	rows, err := tx.QueryContext(ctx, `SELECT id, topic_id, nick FROM Keepers`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stale []int64
	for rows.Next() {
		var (
			id int64
			p  KeeperPair
		)
		if err := rows.Scan(&id, &p.TopicID, &p.Nick); err != nil {
			return nil, err
		}
		if _, ok := seen[p]; ok {
			continue
		}
		if !global {
			if _, ok := covered[p.TopicID]; !ok {
				continue
			}
		}
		stale = append(stale, id)
	}
	return stale, rows.Err()
}

// Keepers returns the nicks recorded for a topic, sorted.
func (s *Store) Keepers(ctx context.Context, topicID int64) ([]string, error) {
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(ctx, `SELECT nick FROM Keepers WHERE topic_id = ? ORDER BY nick`, topicID)
	if err != nil {
		return nil, storageError("keepers", "", err)
	}
	defer rows.Close()
	var nicks []string
	for rows.Next() {
		var nick string
		if err := rows.Scan(&nick); err != nil {
			return nil, storageError("keepers", "scan", err)
		}
		nicks = append(nicks, nick)
	}
	if err := rows.Err(); err != nil {
		return nil, storageError("keepers", "iterate", err)
	}
	return nicks, nil
}

// ListKeepers returns every durable pair ordered by topic and nick.
func (s *Store) ListKeepers(ctx context.Context) ([]KeeperPair, error) {
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(ctx, `SELECT topic_id, nick FROM Keepers ORDER BY topic_id, nick`)
	if err != nil {
		return nil, storageError("list keepers", "", err)
	}
	defer rows.Close()
	var pairs []KeeperPair
	for rows.Next() {
		var p KeeperPair
		if err := rows.Scan(&p.TopicID, &p.Nick); err != nil {
			return nil, storageError("list keepers", "scan", err)
		}
		pairs = append(pairs, p)
	}
	if err := rows.Err(); err != nil {
		return nil, storageError("list keepers", "iterate", err)
	}
	return pairs, nil
}

// CountKeepers returns the number of durable keeper rows.
func (s *Store) CountKeepers(ctx context.Context) (int64, error) {
	return s.count(ctx, "Keepers")
}
