package clients

import "strings"

// Status is the vendor-neutral state of a client task.
type Status string

const (
	StatusDownloading Status = "downloading"
	StatusSeeding     Status = "seeding"
	StatusPaused      Status = "paused"
)

// Int returns the legacy numeric code: -1 paused, 0 downloading, 1 seeding.
func (s Status) Int() int {
	switch s {
	case StatusPaused:
		return -1
	case StatusSeeding:
		return 1
	default:
		return 0
	}
}

// Normalize maps a vendor task state and its transfer sizes to a Status. The
// second result is false when the task must be left out of a listing: error
// states, and any combination other than a complete paused or seeding task or
// an incomplete downloading task.
func Normalize(vendorState string, total, downloaded int64) (Status, bool) {
	state := strings.ToLower(strings.TrimSpace(vendorState))
	if state == "error" {
		return "", false
	}
	remaining := total - downloaded
	switch {
	case remaining == 0 && state == "paused":
		return StatusPaused, true
	case remaining == 0 && state == "seeding":
		return StatusSeeding, true
	case remaining != 0 && state == "downloading":
		return StatusDownloading, true
	}
	return "", false
}
