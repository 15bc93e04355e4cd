package registry

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"webtlo/internal/services"
)

var (
	historyColumnsA = historyColumnNames("d")
	historyColumnsB = historyColumnNames("q")
)

func historyColumnNames(prefix string) []string {
	names := make([]string, HistorySlots)
	for i := range names {
		names[i] = fmt.Sprintf("%s%d", prefix, i)
	}
	return names
}

func historyColumnDefs() string {
	defs := make([]string, 0, 2*HistorySlots)
	for _, name := range historyColumnsA {
		defs = append(defs, name+" REAL")
	}
	for _, name := range historyColumnsB {
		defs = append(defs, name+" REAL")
	}
	return strings.Join(defs, ",\n\t\t\t")
}

func historySelectColumns() string {
	return strings.Join(historyColumnsA, ", ") + ", " + strings.Join(historyColumnsB, ", ")
}

// shiftWindow returns w advanced by one day: prev becomes slot 0 and the
// oldest slot is dropped.
func shiftWindow(w Window, prev *float64) Window {
	var out Window
	out[0] = prev
	copy(out[1:], w[:HistorySlots-1])
	return out
}

// liveState is the part of a Topics row the rotator reads.
type liveState struct {
	dayMarker sql.NullInt64
	metricA   sql.NullFloat64
	metricB   sql.NullFloat64
}

func readLiveTx(ctx context.Context, tx *sql.Tx, id int64) (liveState, bool, error) {
	var st liveState
	err := tx.QueryRowContext(ctx, `SELECT ds, se, qt FROM Topics WHERE id = ?`, id).
		Scan(&st.dayMarker, &st.metricA, &st.metricB)
	if errors.Is(err, sql.ErrNoRows) {
		return liveState{}, false, nil
	}
	if err != nil {
		return liveState{}, false, err
	}
	return st, true, nil
}

// needsRotation reports whether moving to marker starts a new day. A release
// that has never been measured adopts its first marker without rotating.
func (st liveState) needsRotation(marker int64) bool {
	return st.dayMarker.Valid && st.dayMarker.Int64 != marker
}

func readHistoryTx(ctx context.Context, tx *sql.Tx, id int64) (History, bool, error) {
	row := tx.QueryRowContext(ctx, `SELECT id, `+historySelectColumns()+` FROM Seeders WHERE id = ?`, id)
	h, err := scanHistory(row)
	if errors.Is(err, sql.ErrNoRows) {
		return History{ID: id}, false, nil
	}
	if err != nil {
		return History{}, false, err
	}
	return h, true, nil
}

func scanHistory(scanner interface{ Scan(dest ...any) error }) (History, error) {
	var (
		h     History
		slots [2 * HistorySlots]sql.NullFloat64
	)
	dest := make([]any, 0, 1+len(slots))
	dest = append(dest, &h.ID)
	for i := range slots {
		dest = append(dest, &slots[i])
	}
	if err := scanner.Scan(dest...); err != nil {
		return History{}, err
	}
	for i := 0; i < HistorySlots; i++ {
		h.A[i] = nullFloatPtr(slots[i])
		h.B[i] = nullFloatPtr(slots[HistorySlots+i])
	}
	return h, nil
}

func writeHistoryTx(ctx context.Context, tx *sql.Tx, h History, exists bool) error {
	args := make([]any, 0, 2*HistorySlots+1)
	for _, v := range h.A {
		args = append(args, ptrArg(v))
	}
	for _, v := range h.B {
		args = append(args, ptrArg(v))
	}
	if !exists {
		query := `INSERT INTO Seeders (` + historySelectColumns() + `, id) VALUES (` + makePlaceholders(2*HistorySlots+1) + `)`
		_, err := tx.ExecContext(ctx, query, append(args, h.ID)...)
		return err
	}
	sets := make([]string, 0, 2*HistorySlots)
	for _, name := range historyColumnsA {
		sets = append(sets, name+" = ?")
	}
	for _, name := range historyColumnsB {
		sets = append(sets, name+" = ?")
	}
	query := `UPDATE Seeders SET ` + strings.Join(sets, ", ") + ` WHERE id = ?`
	_, err := tx.ExecContext(ctx, query, append(args, h.ID)...)
	return err
}

// rotateTx shifts both windows of id using the live values being replaced.
func rotateTx(ctx context.Context, tx *sql.Tx, id int64, st liveState) error {
	h, exists, err := readHistoryTx(ctx, tx, id)
	if err != nil {
		return err
	}
	h.A = shiftWindow(h.A, nullFloatPtr(st.metricA))
	h.B = shiftWindow(h.B, nullFloatPtr(st.metricB))
	return writeHistoryTx(ctx, tx, h, exists)
}

// ApplyMetricUpdate records one live measurement. When the day marker differs
// from the stored one both windows shift first, in the same transaction.
// It reports whether a rotation happened.
func (s *Store) ApplyMetricUpdate(ctx context.Context, update MetricUpdate) (bool, error) {
	rotated, err := s.ApplyMetricUpdates(ctx, []MetricUpdate{update})
	return rotated > 0, err
}

// ApplyMetricUpdates applies a batch of measurements in one transaction and
// returns how many releases rotated. An unknown release id fails the batch
// with ErrNotFound.
func (s *Store) ApplyMetricUpdates(ctx context.Context, updates []MetricUpdate) (int, error) {
	if len(updates) == 0 {
		return 0, nil
	}
	if err := validateBatch("apply metric update", updates); err != nil {
		return 0, err
	}
	var rotated int
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		rotated = 0
		for _, u := range updates {
			st, found, err := readLiveTx(ctx, tx, u.ID)
			if err != nil {
				return err
			}
			if !found {
				return services.Wrap(services.ErrNotFound, "registry", "apply metric update",
					fmt.Sprintf("release %d", u.ID), nil)
			}
			if st.needsRotation(u.DayMarker) {
				if err := rotateTx(ctx, tx, u.ID, st); err != nil {
					return err
				}
				rotated++
			}
			if _, err := tx.ExecContext(ctx,
				`UPDATE Topics SET se = ?, qt = ?, ds = ? WHERE id = ?`,
				u.MetricA, u.MetricB, u.DayMarker, u.ID,
			); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, wrapStorage("apply metric update", err)
	}
	return rotated, nil
}

// History returns both windows for a release.
func (s *Store) History(ctx context.Context, id int64) (History, error) {
	ctx = ensureContext(ctx)
	row := s.db.QueryRowContext(ctx, `SELECT id, `+historySelectColumns()+` FROM Seeders WHERE id = ?`, id)
	h, err := scanHistory(row)
	if errors.Is(err, sql.ErrNoRows) {
		return History{}, services.Wrap(services.ErrNotFound, "registry", "history", fmt.Sprintf("release %d", id), nil)
	}
	if err != nil {
		return History{}, storageError("history", "", err)
	}
	return h, nil
}
