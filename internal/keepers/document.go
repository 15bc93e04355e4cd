package keepers

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
	"golang.org/x/text/cases"

	"webtlo/internal/registry"
	"webtlo/internal/services"
)

// Report links a report topic to the subsection title it covers.
type Report struct {
	Title   string `json:"title"`
	TopicID int64  `json:"topic_id"`
}

// Entry is one keeper claim listed inside a report topic.
type Entry struct {
	TopicID int64  `json:"topic_id"`
	Nick    string `json:"nick"`
}

// Document is an exported snapshot of the forum keeper reports. Keepers is
// keyed by the report topic id in decimal.
type Document struct {
	Reports []Report           `json:"reports"`
	Keepers map[string][]Entry `json:"keepers"`
}

// LoadDocument reads a roster snapshot from disk.
func LoadDocument(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read keeper roster: %w", err)
	}
	return ParseDocument(data)
}

// ParseDocument decodes a roster snapshot.
func ParseDocument(data []byte) (*Document, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, services.Wrap(services.ErrValidation, "keepers", "parse roster", "invalid JSON", err)
	}
	for key := range doc.Keepers {
		if _, err := strconv.ParseInt(key, 10, 64); err != nil {
			return nil, services.Wrap(services.ErrValidation, "keepers", "parse roster", fmt.Sprintf("report key %q is not a topic id", key), nil)
		}
	}
	return &doc, nil
}

var folder = cases.Fold()

func foldTitle(title string) string {
	return folder.String(strings.Join(strings.Fields(title), " "))
}

// FindReleaseIDByTitle matches report titles case-insensitively. An exact
// match wins over a report whose title merely contains the subsection title.
func (d *Document) FindReleaseIDByTitle(_ context.Context, title string) (int64, bool, error) {
	want := foldTitle(title)
	if want == "" {
		return 0, false, nil
	}
	var partial int64
	for _, r := range d.Reports {
		got := foldTitle(r.Title)
		if got == want {
			return r.TopicID, true, nil
		}
		if partial == 0 && strings.Contains(got, want) {
			partial = r.TopicID
		}
	}
	if partial != 0 {
		return partial, true, nil
	}
	return 0, false, nil
}

// ScanKeeperRoster returns the entries listed under a report topic. The
// snapshot already holds whole reports, so keepersOnly and pageSize have no
// effect here.
func (d *Document) ScanKeeperRoster(ctx context.Context, topicID int64, _ bool, _ int) ([]registry.KeeperPair, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	entries := d.Keepers[strconv.FormatInt(topicID, 10)]
	pairs := make([]registry.KeeperPair, 0, len(entries))
	for _, e := range entries {
		pairs = append(pairs, registry.KeeperPair{TopicID: e.TopicID, Nick: e.Nick})
	}
	return pairs, nil
}
