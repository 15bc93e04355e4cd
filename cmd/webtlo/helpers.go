package main

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"webtlo/internal/config"
	"webtlo/internal/logging"
)

func flushRunLog(cfg *config.Config, runLog *logging.RunLog, job string, logger *slog.Logger) {
	if err := runLog.Flush(cfg.RunLogPath(job), cfg.Logging.RunLogMaxBytes); err != nil {
		logger.Warn("run log flush failed", logging.Error(err))
	}
}

func parseIDs(args []string) ([]int64, error) {
	ids := make([]int64, 0, len(args))
	for _, raw := range args {
		id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
		if err != nil || id <= 0 {
			return nil, fmt.Errorf("invalid id %q", raw)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func formatSlot(v *float64) string {
	if v == nil {
		return "-"
	}
	return formatFloat(*v)
}
