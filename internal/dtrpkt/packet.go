// Package dtrpkt implements the fixed-layout wire frame shared by every DTR
// peer.
//
//	 0               1               2               3               4
//	+---------------+---------------+---------------+---------------+---------------+-- - -
//	| packet_size   | message_type  | source_id     | target_id     | data_size     | data...
//	+---------------+---------------+---------------+---------------+---------------+-- - -
//
// All scalar fields are single bytes, so there is no endianness to worry
// about: "encoding" a frame is concatenation, and "decoding" is a bounds
// check plus a slice.
package dtrpkt

import "fmt"

// MessageType identifies the purpose of a Packet on the wire.
type MessageType byte

const (
	DataFrame MessageType = iota + 1
	TokenFrame
	RTSFrame
	CTSFrame
	DataAckFrame
	HandshakeFrame
	TopologyReconfig
)

func (t MessageType) String() string {
	switch t {
	case DataFrame:
		return "DATA"
	case TokenFrame:
		return "TOKEN"
	case RTSFrame:
		return "RTS"
	case CTSFrame:
		return "CTS"
	case DataAckFrame:
		return "DATA_ACK"
	case HandshakeFrame:
		return "HANDSHAKE"
	case TopologyReconfig:
		return "TOPOLOGY_RECONFIG"
	default:
		return fmt.Sprintf("MessageType(%d)", byte(t))
	}
}

// BroadcastID is the reserved target_id meaning "every peer in the ring".
const BroadcastID byte = 255

// HeaderSize is the number of header bytes preceding the payload.
const HeaderSize = 5

// MaxPayload bounds data_size. The spec requires MaxPayload >= 60; 64 keeps
// a full Packet plus header comfortably inside a single short radio burst.
const MaxPayload = 64

// Packet is the sole on-wire unit exchanged between DTR peers.
type Packet struct {
	MessageType MessageType
	SourceID    byte
	TargetID    byte
	Data        []byte
}

// PacketSize returns the total encoded length: header plus payload.
func (p Packet) PacketSize() int {
	return HeaderSize + len(p.Data)
}

// Encode serializes p. The invariant packet_size == header_size + data_size
// is enforced by construction: the first byte is always len(out).
func Encode(p Packet) ([]byte, error) {
	if len(p.Data) > MaxPayload {
		return nil, fmt.Errorf("dtrpkt: data_size %d exceeds MaxPayload %d", len(p.Data), MaxPayload)
	}

	out := make([]byte, HeaderSize+len(p.Data))
	out[0] = byte(p.PacketSize())
	out[1] = byte(p.MessageType)
	out[2] = p.SourceID
	out[3] = p.TargetID
	out[4] = byte(len(p.Data))
	copy(out[HeaderSize:], p.Data)

	return out, nil
}

// Decode parses a received byte string into a Packet. It rejects frames
// whose declared packet_size exceeds either the bytes actually received or
// HeaderSize+MaxPayload, and frames shorter than a bare header. Malformed
// input is reported, never panicked on: the caller (the radio adapter) is
// expected to drop the frame silently per the error-handling table.
func Decode(raw []byte) (Packet, error) {
	if len(raw) < HeaderSize {
		return Packet{}, fmt.Errorf("dtrpkt: %d bytes shorter than header (%d)", len(raw), HeaderSize)
	}

	size := int(raw[0])
	if size > len(raw) {
		return Packet{}, fmt.Errorf("dtrpkt: declared packet_size %d exceeds received length %d", size, len(raw))
	}
	if size > HeaderSize+MaxPayload {
		return Packet{}, fmt.Errorf("dtrpkt: declared packet_size %d exceeds header+MaxPayload (%d)", size, HeaderSize+MaxPayload)
	}
	if size < HeaderSize {
		return Packet{}, fmt.Errorf("dtrpkt: declared packet_size %d shorter than header (%d)", size, HeaderSize)
	}

	dataSize := int(raw[4])
	if HeaderSize+dataSize != size {
		return Packet{}, fmt.Errorf("dtrpkt: data_size %d inconsistent with packet_size %d", dataSize, size)
	}

	data := make([]byte, dataSize)
	copy(data, raw[HeaderSize:size])

	return Packet{
		MessageType: MessageType(raw[1]),
		SourceID:    raw[2],
		TargetID:    raw[3],
		Data:        data,
	}, nil
}

// EncodeTopology packs a topology list into a payload: byte 0 is the size,
// bytes 1..size are the ordered peer IDs. 255 is reserved as a private
// "uninitialized" sentinel during handshake and must never appear here as a
// real size.
func EncodeTopology(ids []byte) ([]byte, error) {
	if len(ids) >= 255 {
		return nil, fmt.Errorf("dtrpkt: topology of %d peers collides with the uninitialized sentinel", len(ids))
	}

	out := make([]byte, 1+len(ids))
	out[0] = byte(len(ids))
	copy(out[1:], ids)

	return out, nil
}

// DecodeTopology is the inverse of EncodeTopology.
func DecodeTopology(payload []byte) ([]byte, error) {
	if len(payload) < 1 {
		return nil, fmt.Errorf("dtrpkt: empty topology payload")
	}

	size := int(payload[0])
	if len(payload) < 1+size {
		return nil, fmt.Errorf("dtrpkt: topology payload declares %d peers but has only %d bytes", size, len(payload)-1)
	}

	ids := make([]byte, size)
	copy(ids, payload[1:1+size])

	return ids, nil
}
