package sink

import (
	"encoding/json"
	"fmt"
	"time"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"

	"firestige.xyz/batadv/internal/core"
	"firestige.xyz/batadv/internal/core/decoder"
)

// Tap record encodings.
const (
	EncodingJSON  = "json"
	EncodingProto = "proto"
)

// TapRecord is one tapped header with the addressing snapshot that came
// with it.
type TapRecord struct {
	Timestamp time.Time         `json:"timestamp"`
	Protocol  string            `json:"protocol"`
	Type      uint8             `json:"type"`
	Version   uint8             `json:"version"`
	Src       core.HardwareAddr `json:"src"`
	Dst       core.HardwareAddr `json:"dst"`
	DLSrc     core.HardwareAddr `json:"dl_src"`
	DLDst     core.HardwareAddr `json:"dl_dst"`
	Header    decoder.Header    `json:"header"`
}

// NewTapRecord builds a record stamped with ts.
func NewTapRecord(hdr decoder.Header, addr core.Addressing, ts time.Time) *TapRecord {
	return &TapRecord{
		Timestamp: ts,
		Protocol:  hdr.Protocol(),
		Type:      hdr.PacketType(),
		Version:   hdr.PacketVersion(),
		Src:       addr.Src,
		Dst:       addr.Dst,
		DLSrc:     addr.DLSrc,
		DLDst:     addr.DLDst,
		Header:    hdr,
	}
}

// recordEncoder serializes tap records for an external transport.
type recordEncoder func(*TapRecord) ([]byte, error)

func encoderFor(encoding string) (recordEncoder, error) {
	switch encoding {
	case EncodingJSON, "":
		return encodeJSON, nil
	case EncodingProto:
		return encodeProto, nil
	default:
		return nil, fmt.Errorf("%w: invalid encoding %q, must be json or proto", core.ErrConfigInvalid, encoding)
	}
}

func encodeJSON(r *TapRecord) ([]byte, error) {
	return json.Marshal(r)
}

// encodeProto carries the JSON shape in a google.protobuf.Struct so that
// consumers can read records without a batadv-specific schema.
func encodeProto(r *TapRecord) ([]byte, error) {
	raw, err := json.Marshal(r)
	if err != nil {
		return nil, err
	}
	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, err
	}
	s, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, fmt.Errorf("failed to build record struct: %w", err)
	}
	return proto.Marshal(s)
}
