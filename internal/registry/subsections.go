package registry

import (
	"context"
	"database/sql"
)

// UpsertSubsections inserts new subsections and renames existing ones. On
// conflict only the name changes; Count and Size apply to new rows only.
func (s *Store) UpsertSubsections(ctx context.Context, batch []Subsection) error {
	if len(batch) == 0 {
		return nil
	}
	if err := validateBatch("upsert subsections", batch); err != nil {
		return err
	}
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		for _, sub := range batch {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO Forums (id, na, qt, si) VALUES (?, ?, ?, ?)
				 ON CONFLICT(id) DO UPDATE SET na = excluded.na`,
				sub.ID, sub.Name, ptrArg(sub.Count), ptrArg(sub.Size),
			); err != nil {
				return err
			}
		}
		return nil
	})
	return wrapStorage("upsert subsections", err)
}

// ListSubsections returns every stored subsection ordered by id.
func (s *Store) ListSubsections(ctx context.Context) ([]Subsection, error) {
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(ctx, `SELECT id, na, qt, si FROM Forums ORDER BY id`)
	if err != nil {
		return nil, storageError("list subsections", "", err)
	}
	defer rows.Close()

	var out []Subsection
	for rows.Next() {
		var (
			sub   Subsection
			name  sql.NullString
			count sql.NullInt64
			size  sql.NullInt64
		)
		if err := rows.Scan(&sub.ID, &name, &count, &size); err != nil {
			return nil, storageError("list subsections", "scan", err)
		}
		sub.Name = name.String
		if count.Valid {
			sub.Count = Ptr(count.Int64)
		}
		if size.Valid {
			sub.Size = Ptr(size.Int64)
		}
		out = append(out, sub)
	}
	if err := rows.Err(); err != nil {
		return nil, storageError("list subsections", "iterate", err)
	}
	return out, nil
}
