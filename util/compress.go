package util

import (
	"bytes"
	"compress/gzip"
	"fmt"
	"io"
	"strings"

	"github.com/pierrec/lz4/v4"
	snappy "github.com/segmentio/kafka-go/compress/snappy/go-xerial-snappy"
)

// Compression ids as stored in the first byte of a journal payload.
const (
	CompressionNone   byte = 0
	CompressionGzip   byte = 1
	CompressionSnappy byte = 2
	CompressionLZ4    byte = 3
)

// CompressionID maps a configured compression name to its payload id.
func CompressionID(name string) (byte, error) {
	switch strings.ToLower(name) {
	case "none", "":
		return CompressionNone, nil
	case "gzip":
		return CompressionGzip, nil
	case "snappy":
		return CompressionSnappy, nil
	case "lz4":
		return CompressionLZ4, nil
	default:
		return 0, fmt.Errorf("unsupported compression type: %s", name)
	}
}

// CompressMessage compresses data with the codec identified by id.
func CompressMessage(data []byte, id byte) ([]byte, error) {
	switch id {
	case CompressionGzip:
		var buf bytes.Buffer
		gw := gzip.NewWriter(&buf)
		if _, err := gw.Write(data); err != nil {
			return nil, err
		}
		if err := gw.Close(); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil

	case CompressionSnappy:
		return snappy.Encode(data), nil

	case CompressionLZ4:
		var buf bytes.Buffer
		zw := lz4.NewWriter(&buf)
		if _, err := zw.Write(data); err != nil {
			return nil, err
		}
		if err := zw.Close(); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil

	case CompressionNone:
		return data, nil

	default:
		return nil, fmt.Errorf("unsupported compression id: %d", id)
	}
}

// DecompressMessage reverses CompressMessage.
func DecompressMessage(data []byte, id byte) ([]byte, error) {
	switch id {
	case CompressionGzip:
		gr, err := gzip.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, err
		}
		defer func() {
			if err := gr.Close(); err != nil {
				Error("failed to close gzip reader: %v", err)
			}
		}()
		return io.ReadAll(gr)

	case CompressionSnappy:
		return snappy.Decode(data)

	case CompressionLZ4:
		reader := lz4.NewReader(bytes.NewReader(data))
		return io.ReadAll(reader)

	case CompressionNone:
		return data, nil

	default:
		return nil, fmt.Errorf("unsupported compression id: %d", id)
	}
}
