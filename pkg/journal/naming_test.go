package journal_test

import (
	"testing"
	"time"

	"github.com/downfa11-org/go-journal/pkg/journal"
)

func TestFileNameRoundTrip(t *testing.T) {
	tests := []struct {
		uniqueID string
		label    string
	}{
		{"node-a", "2026031410"},
		{"host_1-4242", "2026031410"},
		{"weird id/with:chars", "2026-03-14_10"},
	}

	for _, tt := range tests {
		name := journal.FileName(tt.uniqueID, tt.label)
		owner, label, ok := journal.ParseFileName(name)
		if !ok {
			t.Fatalf("ParseFileName(%q) not ok", name)
		}
		if owner != tt.uniqueID || label != tt.label {
			t.Errorf("ParseFileName(%q) = %q, %q; want %q, %q", name, owner, label, tt.uniqueID, tt.label)
		}
	}
}

func TestParseFileNameRejects(t *testing.T) {
	for _, name := range []string{
		"journal_.journal",
		"journal_node.journal",
		"segment_0.log",
		"journal_node_2026.log",
		"archive",
	} {
		if _, _, ok := journal.ParseFileName(name); ok {
			t.Errorf("ParseFileName(%q) should fail", name)
		}
	}
}

func TestBucketLabel(t *testing.T) {
	loc, err := time.LoadLocation("Asia/Seoul")
	if err != nil {
		t.Skip("tzdata unavailable")
	}
	ts := time.Date(2026, 3, 14, 20, 30, 0, 0, time.UTC)
	if got := journal.BucketLabel(ts, "2006010215", loc); got != "2026031505" {
		t.Errorf("BucketLabel = %q", got)
	}
}
