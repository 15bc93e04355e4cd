package clients

import "testing"

func TestNormalize(t *testing.T) {
	cases := []struct {
		name       string
		state      string
		total      int64
		downloaded int64
		want       Status
		ok         bool
	}{
		{"complete paused", "paused", 100, 100, StatusPaused, true},
		{"complete seeding", "seeding", 100, 100, StatusSeeding, true},
		{"partial downloading", "downloading", 100, 10, StatusDownloading, true},
		{"mixed case", " Seeding ", 5, 5, StatusSeeding, true},
		{"error complete", "error", 100, 100, "", false},
		{"error partial", "error", 100, 1, "", false},
		{"partial paused", "paused", 100, 50, "", false},
		{"complete downloading", "downloading", 100, 100, "", false},
		{"partial seeding", "seeding", 100, 99, "", false},
		{"unknown state", "finished", 100, 100, "", false},
		{"hash checking", "hash_checking", 100, 3, "", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := Normalize(tc.state, tc.total, tc.downloaded)
			if got != tc.want || ok != tc.ok {
				t.Fatalf("Normalize(%q, %d, %d) = (%q, %v), want (%q, %v)",
					tc.state, tc.total, tc.downloaded, got, ok, tc.want, tc.ok)
			}
		})
	}
}

func TestStatusInt(t *testing.T) {
	if StatusPaused.Int() != -1 || StatusDownloading.Int() != 0 || StatusSeeding.Int() != 1 {
		t.Fatal("unexpected legacy status codes")
	}
}
