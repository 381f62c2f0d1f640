package util_test

import (
	"bytes"
	"testing"

	"github.com/downfa11-org/go-journal/pkg/types"
	"github.com/downfa11-org/go-journal/util"
)

func TestPayloadRoundTrip(t *testing.T) {
	msg := &types.Message{
		Headers: map[string]string{"content-type": "text/plain", "priority": "4"},
		Body:    []byte("order #1138 accepted"),
	}

	for _, id := range []byte{util.CompressionNone, util.CompressionGzip, util.CompressionLZ4} {
		data, err := util.EncodePayload(msg, id)
		if err != nil {
			t.Fatalf("EncodePayload(%d): %v", id, err)
		}
		if data[0] != id {
			t.Fatalf("expected compression id %d in first byte, got %d", id, data[0])
		}

		got, err := util.DecodePayload(data)
		if err != nil {
			t.Fatalf("DecodePayload(%d): %v", id, err)
		}
		if !bytes.Equal(got.Body, msg.Body) {
			t.Errorf("body mismatch: %q", got.Body)
		}
		if got.Headers["priority"] != "4" || len(got.Headers) != 2 {
			t.Errorf("headers mismatch: %v", got.Headers)
		}
	}
}

func TestDecodePayload_Garbage(t *testing.T) {
	if _, err := util.DecodePayload(nil); err == nil {
		t.Fatal("expected error for empty payload")
	}
	if _, err := util.DecodePayload([]byte{9, 1, 2, 3}); err == nil {
		t.Fatal("expected error for unknown compression id")
	}
}

func TestEncodePayload_Nil(t *testing.T) {
	if _, err := util.EncodePayload(nil, util.CompressionNone); err == nil {
		t.Fatal("expected error for nil message")
	}
}
