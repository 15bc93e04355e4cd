package registry

import (
	"context"
	"strings"
	"time"
)

func (s *Store) count(ctx context.Context, table string) (int64, error) {
	var n int64
	if err := s.db.QueryRowContext(ensureContext(ctx), `SELECT COUNT(*) FROM `+table).Scan(&n); err != nil {
		return 0, storageError("count", table, err)
	}
	return n, nil
}

// CheckHealth returns diagnostic information about the registry database.
func (s *Store) CheckHealth(ctx context.Context) (DatabaseHealth, error) {
	health := DatabaseHealth{DBPath: s.path, LatestVersion: LatestSchemaVersion()}

	connCtx, cancel := context.WithTimeout(ensureContext(ctx), 5*time.Second)
	defer cancel()

	if err := s.db.PingContext(connCtx); err != nil {
		health.Error = err.Error()
		return health, storageError("check health", "ping", err)
	}

	version, err := s.SchemaVersion(connCtx)
	if err != nil {
		health.Error = err.Error()
		return health, err
	}
	health.SchemaVersion = version

	var integrity string
	if err := s.db.QueryRowContext(connCtx, "PRAGMA integrity_check").Scan(&integrity); err != nil {
		health.Error = err.Error()
		return health, storageError("check health", "integrity check", err)
	}
	health.IntegrityCheck = strings.EqualFold(integrity, "ok")

	counts := []struct {
		table string
		dst   *int64
	}{
		{"Forums", &health.Subsections},
		{"Topics", &health.Releases},
		{"Seeders", &health.Histories},
		{"Keepers", &health.Keepers},
		{"ClientTasks", &health.ClientTasks},
	}
	for _, c := range counts {
		n, err := s.count(connCtx, c.table)
		if err != nil {
			health.Error = err.Error()
			return health, err
		}
		*c.dst = n
	}
	return health, nil
}
