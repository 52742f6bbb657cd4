// Package wire implements the default framed codec for XTABLES messages.
//
// The server and client exchange two kinds of records: a Message record
// (request/reply/telemetry traffic on the push and req sockets) and an
// Update record (subscription traffic on the sub socket). Neither record
// layout is generated from an IDL; both are a small hand-rolled
// presence-tracking TLV format, chosen so the Update record's key prefix
// is always a literal byte prefix of its full encoding (see
// EncodeUpdatePrefix), which is what lets the sub transport filter
// subscriptions without inspecting decoded fields.
package wire

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
)

// Command identifies the operation a Message record carries.
type Command uint8

const (
	CommandUnknown Command = iota
	CommandPut
	CommandPublish
	CommandGet
	CommandDelete
	CommandPing
	CommandGetTables
	CommandDebug
	CommandInformation
	CommandRegistry
	CommandSubscribeUpdate
	CommandUpdateEvent
)

// Category identifies the kind of Update record on the sub socket.
type Category uint8

const (
	CategoryUnknown Category = iota
	CategoryUpdate
	CategoryPublish
	CategoryInformation
	CategoryRegistry
	CategoryLog
)

// Type tags the encoding of a value payload.
type Type uint8

const (
	TypeUnknown Type = iota
	TypeBool
	TypeInt64 // shared tag for 4-byte int and 8-byte long; disambiguated by length on decode
	TypeDouble
	TypeString
	TypeBytes
	TypeBoolList
	TypeIntegerList
	TypeLongList
	TypeDoubleList
	TypeFloatList
	TypeStringList
	TypeBytesList
)

// Message is the wire unit exchanged on the push and req sockets.
// Every field is independently optional; Has* flags record presence
// so a zero value ("" or 0) is distinguishable from "absent".
type Message struct {
	HasID   bool
	ID      int64
	Command Command
	HasKey  bool
	Key     string
	HasVal  bool
	Value   []byte
	Type    Type
}

// UpdateRecord is the wire unit exchanged on the sub socket.
type UpdateRecord struct {
	Category Category
	Key      string
	HasVal   bool
	Value    []byte
	Type     Type
}

// DecodeError reports a malformed frame. It is never fatal to a caller's
// read loop; callers log and discard.
type DecodeError struct {
	Reason string
}

func (e *DecodeError) Error() string { return "wire: decode error: " + e.Reason }

const (
	flagHasID byte = 1 << iota
	flagHasKey
	flagHasVal
)

func putUvarint(buf *bytes.Buffer, v uint64) {
	var tmp [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(tmp[:], v)
	buf.Write(tmp[:n])
}

func putLenPrefixed(buf *bytes.Buffer, b []byte) {
	putUvarint(buf, uint64(len(b)))
	buf.Write(b)
}

func readUvarint(r *bytes.Reader) (uint64, error) {
	v, err := binary.ReadUvarint(r)
	if err != nil {
		return 0, &DecodeError{Reason: "truncated varint"}
	}
	return v, nil
}

func readLenPrefixed(r *bytes.Reader) ([]byte, error) {
	n, err := readUvarint(r)
	if err != nil {
		return nil, err
	}
	if n > uint64(r.Len()) {
		return nil, &DecodeError{Reason: "length prefix exceeds remaining buffer"}
	}
	out := make([]byte, n)
	if _, err := r.Read(out); err != nil {
		return nil, &DecodeError{Reason: "short read on length-prefixed field"}
	}
	return out, nil
}

// EncodeMessage serializes a Message to its wire form. The result is one
// logical frame; callers on a stream transport length-prefix it with
// package internal/framing.
func EncodeMessage(m Message) []byte {
	var buf bytes.Buffer
	var flags byte
	if m.HasID {
		flags |= flagHasID
	}
	if m.HasKey {
		flags |= flagHasKey
	}
	if m.HasVal {
		flags |= flagHasVal
	}
	buf.WriteByte(flags)
	buf.WriteByte(byte(m.Command))
	if m.HasID {
		putUvarint(&buf, uint64(m.ID))
	}
	if m.HasKey {
		putLenPrefixed(&buf, []byte(m.Key))
	}
	if m.HasVal {
		buf.WriteByte(byte(m.Type))
		putLenPrefixed(&buf, m.Value)
	}
	return buf.Bytes()
}

// DecodeMessage parses bytes produced by EncodeMessage.
func DecodeMessage(b []byte) (Message, error) {
	r := bytes.NewReader(b)
	flagsB, err := r.ReadByte()
	if err != nil {
		return Message{}, &DecodeError{Reason: "empty frame"}
	}
	cmdB, err := r.ReadByte()
	if err != nil {
		return Message{}, &DecodeError{Reason: "missing command byte"}
	}
	m := Message{Command: Command(cmdB)}
	if flagsB&flagHasID != 0 {
		id, err := readUvarint(r)
		if err != nil {
			return Message{}, err
		}
		m.HasID = true
		m.ID = int64(id)
	}
	if flagsB&flagHasKey != 0 {
		kb, err := readLenPrefixed(r)
		if err != nil {
			return Message{}, err
		}
		m.HasKey = true
		m.Key = string(kb)
	}
	if flagsB&flagHasVal != 0 {
		typeB, err := r.ReadByte()
		if err != nil {
			return Message{}, &DecodeError{Reason: "missing type byte"}
		}
		vb, err := readLenPrefixed(r)
		if err != nil {
			return Message{}, err
		}
		m.HasVal = true
		m.Type = Type(typeB)
		m.Value = vb
	}
	if r.Len() != 0 {
		return Message{}, &DecodeError{Reason: "trailing bytes after message"}
	}
	return m, nil
}

// EncodeUpdate serializes an UpdateRecord. The key is encoded first and
// length-prefixed so that EncodeUpdatePrefix(key) is always a literal
// byte-prefix of EncodeUpdate(UpdateRecord{Key: key, ...}) regardless of
// category/value — this is what lets the sub transport filter frames by
// prefix without decoding them.
func EncodeUpdate(u UpdateRecord) []byte {
	var buf bytes.Buffer
	putLenPrefixed(&buf, []byte(u.Key))
	buf.WriteByte(byte(u.Category))
	if u.HasVal {
		buf.WriteByte(1)
		buf.WriteByte(byte(u.Type))
		putLenPrefixed(&buf, u.Value)
	} else {
		buf.WriteByte(0)
	}
	return buf.Bytes()
}

// DecodeUpdate parses bytes produced by EncodeUpdate.
func DecodeUpdate(b []byte) (UpdateRecord, error) {
	r := bytes.NewReader(b)
	kb, err := readLenPrefixed(r)
	if err != nil {
		return UpdateRecord{}, err
	}
	catB, err := r.ReadByte()
	if err != nil {
		return UpdateRecord{}, &DecodeError{Reason: "missing category byte"}
	}
	u := UpdateRecord{Key: string(kb), Category: Category(catB)}
	hasVal, err := r.ReadByte()
	if err != nil {
		return UpdateRecord{}, &DecodeError{Reason: "missing value-presence byte"}
	}
	if hasVal == 1 {
		typeB, err := r.ReadByte()
		if err != nil {
			return UpdateRecord{}, &DecodeError{Reason: "missing type byte"}
		}
		vb, err := readLenPrefixed(r)
		if err != nil {
			return UpdateRecord{}, err
		}
		u.HasVal = true
		u.Type = Type(typeB)
		u.Value = vb
	}
	if r.Len() != 0 {
		return UpdateRecord{}, &DecodeError{Reason: "trailing bytes after update"}
	}
	return u, nil
}

// EncodeUpdatePrefix returns the byte prefix every EncodeUpdate(record)
// with record.Key == key will start with. An empty key is the wildcard
// filter: it must be the literal empty slice, not the varint encoding of
// a zero-length string (which happens to be the same single zero byte in
// this scheme, but the empty slice is used here explicitly so the
// property holds even if the length-prefix scheme changes).
func EncodeUpdatePrefix(key string) []byte {
	if key == "" {
		return []byte{}
	}
	var buf bytes.Buffer
	putLenPrefixed(&buf, []byte(key))
	return buf.Bytes()
}

// HasPrefix reports whether an encoded update frame matches a filter
// produced by EncodeUpdatePrefix.
func HasPrefix(frame, prefix []byte) bool {
	return bytes.HasPrefix(frame, prefix)
}

// EncodeScalar renders a value of the given type to its wire bytes.
func EncodeScalar(t Type, v interface{}) ([]byte, error) {
	switch t {
	case TypeBool:
		b, ok := v.(bool)
		if !ok {
			return nil, fmt.Errorf("wire: EncodeScalar: want bool, got %T", v)
		}
		if b {
			return []byte{1}, nil
		}
		return []byte{0}, nil
	case TypeInt64:
		switch n := v.(type) {
		case int32:
			out := make([]byte, 4)
			binary.BigEndian.PutUint32(out, uint32(n))
			return out, nil
		case int64:
			out := make([]byte, 8)
			binary.BigEndian.PutUint64(out, uint64(n))
			return out, nil
		default:
			return nil, fmt.Errorf("wire: EncodeScalar: want int32/int64, got %T", v)
		}
	case TypeDouble:
		f, ok := v.(float64)
		if !ok {
			return nil, fmt.Errorf("wire: EncodeScalar: want float64, got %T", v)
		}
		out := make([]byte, 8)
		binary.BigEndian.PutUint64(out, math.Float64bits(f))
		return out, nil
	case TypeString:
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("wire: EncodeScalar: want string, got %T", v)
		}
		return []byte(s), nil
	case TypeBytes:
		b, ok := v.([]byte)
		if !ok {
			return nil, fmt.Errorf("wire: EncodeScalar: want []byte, got %T", v)
		}
		return b, nil
	default:
		return nil, fmt.Errorf("wire: EncodeScalar: unsupported type %v", t)
	}
}

// DecodeBool decodes a TypeBool payload.
func DecodeBool(b []byte) (bool, error) {
	if len(b) != 1 {
		return false, &DecodeError{Reason: "bool payload must be 1 byte"}
	}
	return b[0] != 0, nil
}

// DecodeInt32 decodes a 4-byte TypeInt64 payload as an int.
func DecodeInt32(b []byte) (int32, error) {
	if len(b) != 4 {
		return 0, &DecodeError{Reason: "int payload must be 4 bytes"}
	}
	return int32(binary.BigEndian.Uint32(b)), nil
}

// DecodeInt64 decodes an 8-byte TypeInt64 payload as a long.
func DecodeInt64(b []byte) (int64, error) {
	if len(b) != 8 {
		return 0, &DecodeError{Reason: "long payload must be 8 bytes"}
	}
	return int64(binary.BigEndian.Uint64(b)), nil
}

// DecodeDouble decodes a TypeDouble payload.
func DecodeDouble(b []byte) (float64, error) {
	if len(b) != 8 {
		return 0, &DecodeError{Reason: "double payload must be 8 bytes"}
	}
	return math.Float64frombits(binary.BigEndian.Uint64(b)), nil
}
