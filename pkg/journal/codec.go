package journal

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// Record layout, all integers big-endian:
//
//	[segmentOffset:4][messageOffset:4][metadata][payload][terminator:1]
//
// segmentOffset is the full record length so a scanner can skip to the next record.
// messageOffset is the distance from the record start to the payload so the metadata
// can be read without touching the payload.
//
// Metadata layout:
//
//	[timestampLen:2][timestamp][deleted:1][messageIDLen:2][messageID]
//
// A delete rewrites the metadata in place; its length never changes.
const (
	HeaderSize       = 8
	RecordTerminator = byte(0x1E)

	minMetadataSize = 2 + 1 + 2
	minRecordSize   = HeaderSize + minMetadataSize + 1
	maxFieldLen     = 0xFFFF
)

var ErrMalformedRecord = errors.New("malformed journal record")

// RecordHeader is the fixed prefix of every record.
type RecordHeader struct {
	SegmentOffset uint32
	MessageOffset uint32
}

// EntryMetadata sits between the header and the payload.
type EntryMetadata struct {
	Timestamp string
	Deleted   bool
	MessageID string
}

func (m EntryMetadata) size() int {
	return minMetadataSize + len(m.Timestamp) + len(m.MessageID)
}

// EncodeMetadata serializes metadata; the deleted flag is a single byte so toggling it
// keeps the encoded length stable.
func EncodeMetadata(m EntryMetadata) ([]byte, error) {
	if len(m.Timestamp) > maxFieldLen {
		return nil, fmt.Errorf("timestamp too long: %d bytes", len(m.Timestamp))
	}
	if len(m.MessageID) > maxFieldLen {
		return nil, fmt.Errorf("message id too long: %d bytes", len(m.MessageID))
	}

	buf := make([]byte, m.size())
	off := 0
	binary.BigEndian.PutUint16(buf[off:], uint16(len(m.Timestamp)))
	off += 2
	off += copy(buf[off:], m.Timestamp)
	if m.Deleted {
		buf[off] = 1
	}
	off++
	binary.BigEndian.PutUint16(buf[off:], uint16(len(m.MessageID)))
	off += 2
	copy(buf[off:], m.MessageID)
	return buf, nil
}

// DecodeMetadata parses a metadata region. Trailing bytes are an error so that a region
// read with the header's messageOffset must match exactly.
func DecodeMetadata(b []byte) (EntryMetadata, error) {
	var m EntryMetadata
	if len(b) < minMetadataSize {
		return m, fmt.Errorf("%w: metadata too short (%d bytes)", ErrMalformedRecord, len(b))
	}

	off := 0
	tsLen := int(binary.BigEndian.Uint16(b[off:]))
	off += 2
	if off+tsLen+1+2 > len(b) {
		return m, fmt.Errorf("%w: invalid timestamp length %d", ErrMalformedRecord, tsLen)
	}
	m.Timestamp = string(b[off : off+tsLen])
	off += tsLen

	switch b[off] {
	case 0:
	case 1:
		m.Deleted = true
	default:
		return m, fmt.Errorf("%w: invalid delete flag %#x", ErrMalformedRecord, b[off])
	}
	off++

	idLen := int(binary.BigEndian.Uint16(b[off:]))
	off += 2
	if off+idLen != len(b) {
		return m, fmt.Errorf("%w: invalid message id length %d", ErrMalformedRecord, idLen)
	}
	m.MessageID = string(b[off : off+idLen])
	return m, nil
}

// EncodeRecord builds a complete record ready to append.
func EncodeRecord(m EntryMetadata, payload []byte) ([]byte, error) {
	meta, err := EncodeMetadata(m)
	if err != nil {
		return nil, err
	}

	messageOffset := HeaderSize + len(meta)
	total := messageOffset + len(payload) + 1
	if uint64(total) > uint64(^uint32(0)) {
		return nil, fmt.Errorf("record too large: %d bytes", total)
	}

	buf := make([]byte, total)
	binary.BigEndian.PutUint32(buf[0:4], uint32(total))
	binary.BigEndian.PutUint32(buf[4:8], uint32(messageOffset))
	copy(buf[HeaderSize:], meta)
	copy(buf[messageOffset:], payload)
	buf[total-1] = RecordTerminator
	return buf, nil
}

// DecodeHeader validates the fixed header. It does not look past the first 8 bytes.
func DecodeHeader(b []byte) (RecordHeader, error) {
	var h RecordHeader
	if len(b) < HeaderSize {
		return h, fmt.Errorf("%w: header too short (%d bytes)", ErrMalformedRecord, len(b))
	}
	h.SegmentOffset = binary.BigEndian.Uint32(b[0:4])
	h.MessageOffset = binary.BigEndian.Uint32(b[4:8])

	if h.SegmentOffset < minRecordSize {
		return h, fmt.Errorf("%w: segment offset %d below minimum", ErrMalformedRecord, h.SegmentOffset)
	}
	if h.MessageOffset < HeaderSize+minMetadataSize || h.MessageOffset > h.SegmentOffset-1 {
		return h, fmt.Errorf("%w: message offset %d outside record of %d bytes",
			ErrMalformedRecord, h.MessageOffset, h.SegmentOffset)
	}
	return h, nil
}

// DecodeRecord splits a full record into its parts. payload aliases rec.
func DecodeRecord(rec []byte) (RecordHeader, EntryMetadata, []byte, error) {
	h, err := DecodeHeader(rec)
	if err != nil {
		return h, EntryMetadata{}, nil, err
	}
	if int(h.SegmentOffset) != len(rec) {
		return h, EntryMetadata{}, nil, fmt.Errorf("%w: record length %d, header says %d",
			ErrMalformedRecord, len(rec), h.SegmentOffset)
	}
	if rec[len(rec)-1] != RecordTerminator {
		return h, EntryMetadata{}, nil, fmt.Errorf("%w: missing terminator", ErrMalformedRecord)
	}

	m, err := DecodeMetadata(rec[HeaderSize:h.MessageOffset])
	if err != nil {
		return h, m, nil, err
	}
	return h, m, rec[h.MessageOffset : len(rec)-1], nil
}
