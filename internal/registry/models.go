package registry

import "time"

// HistorySlots is the length of each rolling metric window.
const HistorySlots = 30

// Subsection is a forum section that owns releases.
type Subsection struct {
	ID   int64  `json:"id" validate:"required,gt=0"`
	Name string `json:"name" validate:"required"`
	// Count and Size are informational totals; they are written on insert only.
	Count *int64 `json:"count,omitempty" validate:"omitempty,gte=0"`
	Size  *int64 `json:"size,omitempty" validate:"omitempty,gte=0"`
}

// Release is the stored state of one tracked topic.
type Release struct {
	ID           int64   `json:"id"`
	SubsectionID int64   `json:"subsection_id"`
	Name         string  `json:"name"`
	Hash         string  `json:"hash"`
	Seeders      float64 `json:"seeders"`
	Size         int64   `json:"size"`
	Status       int64   `json:"status"`
	Rank         int64   `json:"rank"`
	Download     bool    `json:"download"`
	MetricB      float64 `json:"metric_b"`
	// DayMarker is nil until the first metric update.
	DayMarker *int64 `json:"day_marker,omitempty"`
	Label     string `json:"label,omitempty"`
}

// ReleaseUpdate carries a partial release record. Nil fields are absent: they
// take defaults on insert and keep their stored value on update.
type ReleaseUpdate struct {
	ID           int64  `validate:"required,gt=0"`
	SubsectionID *int64 `validate:"omitempty,gte=0"`
	Name         *string
	Hash         *string  `validate:"omitempty,len=40,hexadecimal"`
	Seeders      *float64 `validate:"omitempty,gte=0"`
	Size         *int64   `validate:"omitempty,gte=0"`
	Status       *int64
	Rank         *int64
	Download     *bool
	MetricB      *float64
	DayMarker    *int64 `validate:"omitempty,gte=0"`
	Label        *string
}

// Ptr returns a pointer to v, for building ReleaseUpdate literals.
func Ptr[T any](v T) *T {
	return &v
}

// Window is one rolling metric series; slot 0 is the most recent completed day.
// Nil slots have no recorded value.
type Window [HistorySlots]*float64

// History holds both rolling windows of a release.
type History struct {
	ID int64  `json:"id"`
	A  Window `json:"a"`
	B  Window `json:"b"`
}

// MetricUpdate is one live measurement of a release on a given day.
type MetricUpdate struct {
	ID        int64   `validate:"required,gt=0"`
	MetricA   float64 `validate:"gte=0"`
	MetricB   float64
	DayMarker int64 `validate:"gte=0"`
}

// KeeperPair records that nick keeps a copy of topic TopicID.
type KeeperPair struct {
	TopicID int64  `json:"topic_id" validate:"required,gt=0"`
	Nick    string `json:"nick" validate:"required"`
}

// KeeperScope limits which durable keeper rows a reconciliation may delete.
type KeeperScope struct {
	// Global allows deleting any unmatched row.
	Global bool
	// TopicIDs are the topics covered by the scan when Global is false.
	TopicIDs []int64
}

// KeeperChanges summarizes a reconciliation.
type KeeperChanges struct {
	Inserted int64 `json:"inserted"`
	Deleted  int64 `json:"deleted"`
}

// ClientTask is the last known state of one task reported by a torrent client.
type ClientTask struct {
	ClientID string    `json:"client_id"`
	Hash     string    `json:"hash"`
	TopicID  int64     `json:"topic_id,omitempty"`
	Name     string    `json:"name,omitempty"`
	Status   string    `json:"status"`
	SeenAt   time.Time `json:"seen_at"`
}

// DatabaseHealth is diagnostic information about the registry database.
type DatabaseHealth struct {
	DBPath         string `json:"db_path"`
	SchemaVersion  int    `json:"schema_version"`
	LatestVersion  int    `json:"latest_version"`
	IntegrityCheck bool   `json:"integrity_check"`
	Subsections    int64  `json:"subsections"`
	Releases       int64  `json:"releases"`
	Histories      int64  `json:"histories"`
	Keepers        int64  `json:"keepers"`
	ClientTasks    int64  `json:"client_tasks"`
	Error          string `json:"error,omitempty"`
}
