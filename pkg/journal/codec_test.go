package journal_test

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"

	"github.com/downfa11-org/go-journal/pkg/journal"
)

func TestEncodeDecodeRecord(t *testing.T) {
	meta := journal.EntryMetadata{Timestamp: "20260314100000.000", MessageID: "msg-42"}
	payload := []byte("payload bytes")

	rec, err := journal.EncodeRecord(meta, payload)
	if err != nil {
		t.Fatalf("EncodeRecord: %v", err)
	}

	segmentOffset := binary.BigEndian.Uint32(rec[0:4])
	messageOffset := binary.BigEndian.Uint32(rec[4:8])
	if int(segmentOffset) != len(rec) {
		t.Fatalf("segment offset %d, record length %d", segmentOffset, len(rec))
	}
	if !bytes.Equal(rec[messageOffset:len(rec)-1], payload) {
		t.Fatalf("payload not at message offset %d", messageOffset)
	}
	if rec[len(rec)-1] != journal.RecordTerminator {
		t.Fatalf("missing terminator")
	}

	hdr, got, gotPayload, err := journal.DecodeRecord(rec)
	if err != nil {
		t.Fatalf("DecodeRecord: %v", err)
	}
	if hdr.SegmentOffset != segmentOffset || hdr.MessageOffset != messageOffset {
		t.Errorf("header mismatch: %+v", hdr)
	}
	if got != meta {
		t.Errorf("metadata mismatch: %+v", got)
	}
	if !bytes.Equal(gotPayload, payload) {
		t.Errorf("payload mismatch: %q", gotPayload)
	}
}

func TestMetadataDeleteKeepsLength(t *testing.T) {
	meta := journal.EntryMetadata{Timestamp: "20260314100000.000", MessageID: "abc"}
	live, err := journal.EncodeMetadata(meta)
	if err != nil {
		t.Fatal(err)
	}
	meta.Deleted = true
	deleted, err := journal.EncodeMetadata(meta)
	if err != nil {
		t.Fatal(err)
	}
	if len(live) != len(deleted) {
		t.Fatalf("delete changed metadata length: %d -> %d", len(live), len(deleted))
	}

	got, err := journal.DecodeMetadata(deleted)
	if err != nil {
		t.Fatal(err)
	}
	if !got.Deleted || got.MessageID != "abc" {
		t.Errorf("unexpected metadata %+v", got)
	}
}

func TestDecodeRecordRejectsDamage(t *testing.T) {
	rec, err := journal.EncodeRecord(journal.EntryMetadata{Timestamp: "t", MessageID: "id"}, []byte("x"))
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name   string
		mutate func([]byte) []byte
	}{
		{"short", func(b []byte) []byte { return b[:5] }},
		{"truncated", func(b []byte) []byte { return b[:len(b)-2] }},
		{"no terminator", func(b []byte) []byte { b[len(b)-1] = 0; return b }},
		{"bad flag", func(b []byte) []byte { b[journal.HeaderSize+2+1] = 7; return b }},
		{"message offset past end", func(b []byte) []byte {
			binary.BigEndian.PutUint32(b[4:8], uint32(len(b)+10))
			return b
		}},
		{"segment offset too small", func(b []byte) []byte {
			binary.BigEndian.PutUint32(b[0:4], 3)
			return b
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			damaged := tt.mutate(append([]byte(nil), rec...))
			_, _, _, err := journal.DecodeRecord(damaged)
			if !errors.Is(err, journal.ErrMalformedRecord) {
				t.Fatalf("expected ErrMalformedRecord, got %v", err)
			}
		})
	}
}

func TestEncodeMetadataTooLong(t *testing.T) {
	_, err := journal.EncodeMetadata(journal.EntryMetadata{MessageID: string(make([]byte, 70000))})
	if err == nil {
		t.Fatal("expected error for oversized message id")
	}
}
