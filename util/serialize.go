package util

import (
	"errors"
	"fmt"

	"github.com/downfa11-org/go-journal/pkg/types"
	"github.com/hashicorp/go-msgpack/v2/codec"
)

var msgpackHandle = &codec.MsgpackHandle{}

// EncodePayload serializes a message for the journal payload region.
// Layout: [compression id:1][msgpack(message), compressed].
func EncodePayload(msg *types.Message, compression byte) ([]byte, error) {
	if msg == nil {
		return nil, errors.New("nil message")
	}

	var raw []byte
	if err := codec.NewEncoderBytes(&raw, msgpackHandle).Encode(msg); err != nil {
		return nil, fmt.Errorf("encode message: %w", err)
	}

	packed, err := CompressMessage(raw, compression)
	if err != nil {
		return nil, fmt.Errorf("compress message: %w", err)
	}

	out := make([]byte, 1+len(packed))
	out[0] = compression
	copy(out[1:], packed)
	return out, nil
}

// DecodePayload reverses EncodePayload.
func DecodePayload(data []byte) (*types.Message, error) {
	if len(data) < 1 {
		return nil, errors.New("payload too short")
	}

	raw, err := DecompressMessage(data[1:], data[0])
	if err != nil {
		return nil, fmt.Errorf("decompress message: %w", err)
	}

	msg := &types.Message{}
	if err := codec.NewDecoderBytes(raw, msgpackHandle).Decode(msg); err != nil {
		return nil, fmt.Errorf("decode message: %w", err)
	}
	return msg, nil
}
