package registry

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"webtlo/internal/services"
)

const releaseColumns = "id, ss, na, hs, se, si, st, rg, dl, qt, ds, cl"

func scanRelease(scanner interface{ Scan(dest ...any) error }) (Release, error) {
	var (
		r         Release
		ss        sql.NullInt64
		name      sql.NullString
		hash      sql.NullString
		seeders   sql.NullFloat64
		size      sql.NullInt64
		status    sql.NullInt64
		rank      sql.NullInt64
		download  sql.NullInt64
		metricB   sql.NullFloat64
		dayMarker sql.NullInt64
		label     sql.NullString
	)
	if err := scanner.Scan(&r.ID, &ss, &name, &hash, &seeders, &size, &status, &rank, &download, &metricB, &dayMarker, &label); err != nil {
		return Release{}, err
	}
	r.SubsectionID = ss.Int64
	r.Name = name.String
	r.Hash = hash.String
	r.Seeders = seeders.Float64
	r.Size = size.Int64
	r.Status = status.Int64
	r.Rank = rank.Int64
	r.Download = download.Int64 != 0
	r.MetricB = metricB.Float64
	if dayMarker.Valid {
		v := dayMarker.Int64
		r.DayMarker = &v
	}
	r.Label = label.String
	return r, nil
}

func normalizeUpdate(u ReleaseUpdate) ReleaseUpdate {
	if u.Hash != nil {
		u.Hash = Ptr(NormalizeHash(*u.Hash))
	}
	return u
}

// UpsertReleases inserts or merges a batch of partial release records in one
// transaction. New rows take defaults for absent fields and get an empty
// history row. Existing rows change only the fields that are present. When a
// present day marker differs from the stored one the history windows rotate
// before the live metrics are overwritten.
func (s *Store) UpsertReleases(ctx context.Context, batch []ReleaseUpdate) error {
	if len(batch) == 0 {
		return nil
	}
	if err := validateBatch("upsert releases", batch); err != nil {
		return err
	}
	normalized := make([]ReleaseUpdate, len(batch))
	for i, u := range batch {
		normalized[i] = normalizeUpdate(u)
	}

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		for _, u := range normalized {
			st, found, err := readLiveTx(ctx, tx, u.ID)
			if err != nil {
				return err
			}
			if !found {
				if err := insertReleaseTx(ctx, tx, u); err != nil {
					return err
				}
				continue
			}
			if u.DayMarker != nil && st.needsRotation(*u.DayMarker) {
				if err := rotateTx(ctx, tx, u.ID, st); err != nil {
					return err
				}
			}
			if err := mergeReleaseTx(ctx, tx, u); err != nil {
				return err
			}
		}
		return nil
	})
	return wrapStorage("upsert releases", err)
}

func insertReleaseTx(ctx context.Context, tx *sql.Tx, u ReleaseUpdate) error {
	download := 0
	if u.Download != nil {
		download = boolToInt(*u.Download)
	}
	_, err := tx.ExecContext(ctx,
		`INSERT INTO Topics (`+releaseColumns+`)
		 VALUES (?, COALESCE(?, 0), COALESCE(?, ''), COALESCE(?, ''), COALESCE(?, 0), COALESCE(?, 0),
		         COALESCE(?, 0), COALESCE(?, 0), ?, COALESCE(?, 0), ?, COALESCE(?, ''))`,
		u.ID, ptrArg(u.SubsectionID), ptrArg(u.Name), ptrArg(u.Hash), ptrArg(u.Seeders), ptrArg(u.Size),
		ptrArg(u.Status), ptrArg(u.Rank), download, ptrArg(u.MetricB), ptrArg(u.DayMarker), ptrArg(u.Label),
	)
	if err != nil {
		return err
	}
	// Seeders rows are strictly 1:1 with Topics; a stale row from legacy data is reset.
	if _, err := tx.ExecContext(ctx, `DELETE FROM Seeders WHERE id = ?`, u.ID); err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, `INSERT INTO Seeders (id) VALUES (?)`, u.ID)
	return err
}

func mergeReleaseTx(ctx context.Context, tx *sql.Tx, u ReleaseUpdate) error {
	var download any
	if u.Download != nil {
		download = boolToInt(*u.Download)
	}
	_, err := tx.ExecContext(ctx,
		`UPDATE Topics SET
			ss = COALESCE(?, ss),
			na = COALESCE(?, na),
			hs = COALESCE(?, hs),
			se = COALESCE(?, se),
			si = COALESCE(?, si),
			st = COALESCE(?, st),
			rg = COALESCE(?, rg),
			dl = COALESCE(?, dl),
			qt = COALESCE(?, qt),
			ds = COALESCE(?, ds),
			cl = COALESCE(?, cl)
		 WHERE id = ?`,
		ptrArg(u.SubsectionID), ptrArg(u.Name), ptrArg(u.Hash), ptrArg(u.Seeders), ptrArg(u.Size),
		ptrArg(u.Status), ptrArg(u.Rank), download, ptrArg(u.MetricB), ptrArg(u.DayMarker), ptrArg(u.Label),
		u.ID,
	)
	return err
}

// DeleteRelease removes a release and its history together. It reports
// whether the release existed.
func (s *Store) DeleteRelease(ctx context.Context, id int64) (bool, error) {
	var existed bool
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM Topics WHERE id = ?`, id)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		existed = n > 0
		_, err = tx.ExecContext(ctx, `DELETE FROM Seeders WHERE id = ?`, id)
		return err
	})
	if err != nil {
		return false, wrapStorage("delete release", err)
	}
	return existed, nil
}

// GetRelease fetches a release by id, returning ErrNotFound when absent.
func (s *Store) GetRelease(ctx context.Context, id int64) (Release, error) {
	ctx = ensureContext(ctx)
	row := s.db.QueryRowContext(ctx, `SELECT `+releaseColumns+` FROM Topics WHERE id = ?`, id)
	r, err := scanRelease(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Release{}, services.Wrap(services.ErrNotFound, "registry", "get release", fmt.Sprintf("release %d", id), nil)
	}
	if err != nil {
		return Release{}, storageError("get release", "", err)
	}
	return r, nil
}

// ListReleases returns releases ordered by id. subsectionID 0 lists every release.
func (s *Store) ListReleases(ctx context.Context, subsectionID int64) ([]Release, error) {
	ctx = ensureContext(ctx)
	query := `SELECT ` + releaseColumns + ` FROM Topics`
	var args []any
	if subsectionID > 0 {
		query += ` WHERE ss = ?`
		args = append(args, subsectionID)
	}
	query += ` ORDER BY id`
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storageError("list releases", "", err)
	}
	defer rows.Close()

	var releases []Release
	for rows.Next() {
		r, err := scanRelease(rows)
		if err != nil {
			return nil, storageError("list releases", "scan", err)
		}
		releases = append(releases, r)
	}
	if err := rows.Err(); err != nil {
		return nil, storageError("list releases", "iterate", err)
	}
	return releases, nil
}

// ReleasesByHashes returns the releases whose content hash is among hashes,
// keyed by upper-cased hash.
func (s *Store) ReleasesByHashes(ctx context.Context, hashes []string) (map[string]Release, error) {
	ctx = ensureContext(ctx)
	out := make(map[string]Release)
	normalized := make([]string, 0, len(hashes))
	for _, h := range hashes {
		if h = NormalizeHash(h); h != "" {
			normalized = append(normalized, h)
		}
	}
	for _, part := range chunk(normalized, lookupChunkSize) {
		query := `SELECT ` + releaseColumns + ` FROM Topics WHERE hs IN (` + makePlaceholders(len(part)) + `)`
		rows, err := s.db.QueryContext(ctx, query, stringArgs(part)...)
		if err != nil {
			return nil, storageError("releases by hashes", "", err)
		}
		for rows.Next() {
			r, err := scanRelease(rows)
			if err != nil {
				rows.Close()
				return nil, storageError("releases by hashes", "scan", err)
			}
			out[NormalizeHash(r.Hash)] = r
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return nil, storageError("releases by hashes", "iterate", err)
		}
		rows.Close()
	}
	return out, nil
}

// ReleaseIDsInSubsections returns the ids of releases owned by any of the given subsections.
func (s *Store) ReleaseIDsInSubsections(ctx context.Context, subsectionIDs []int64) ([]int64, error) {
	ctx = ensureContext(ctx)
	var ids []int64
	for _, part := range chunk(subsectionIDs, lookupChunkSize) {
		query := `SELECT id FROM Topics WHERE ss IN (` + makePlaceholders(len(part)) + `) ORDER BY id`
		rows, err := s.db.QueryContext(ctx, query, int64Args(part)...)
		if err != nil {
			return nil, storageError("release ids in subsections", "", err)
		}
		for rows.Next() {
			var id int64
			if err := rows.Scan(&id); err != nil {
				rows.Close()
				return nil, storageError("release ids in subsections", "scan", err)
			}
			ids = append(ids, id)
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return nil, storageError("release ids in subsections", "iterate", err)
		}
		rows.Close()
	}
	return ids, nil
}
