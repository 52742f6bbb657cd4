package xtables

import (
	"fmt"

	"github.com/Kobeeeef/XTABLES/internal/wire"
)

func (c *Client) enqueue(key string, t wire.Type, value []byte, cmd wire.Command) error {
	if err := validateKey(key); err != nil {
		return err
	}
	msg := wire.Message{
		Command: cmd,
		HasKey:  true,
		Key:     key,
		HasVal:  true,
		Value:   value,
		Type:    t,
	}
	payload := wire.EncodeMessage(msg)
	if err := c.push.Send(payload); err != nil {
		return fmt.Errorf("%w: %v", ErrTransport, err)
	}
	return nil
}

// PutBoolean writes a BOOL value, fire-and-forget.
func (c *Client) PutBoolean(key string, v bool) error {
	b, _ := wire.EncodeScalar(wire.TypeBool, v)
	return c.enqueue(key, wire.TypeBool, b, wire.CommandPut)
}

// PutInteger writes a 4-byte INT64-tagged value.
func (c *Client) PutInteger(key string, v int32) error {
	b, _ := wire.EncodeScalar(wire.TypeInt64, v)
	return c.enqueue(key, wire.TypeInt64, b, wire.CommandPut)
}

// PutLong writes an 8-byte INT64-tagged value.
func (c *Client) PutLong(key string, v int64) error {
	b, _ := wire.EncodeScalar(wire.TypeInt64, v)
	return c.enqueue(key, wire.TypeInt64, b, wire.CommandPut)
}

// PutDouble writes a DOUBLE value.
func (c *Client) PutDouble(key string, v float64) error {
	b, _ := wire.EncodeScalar(wire.TypeDouble, v)
	return c.enqueue(key, wire.TypeDouble, b, wire.CommandPut)
}

// PutString writes a STRING value.
func (c *Client) PutString(key string, v string) error {
	b, _ := wire.EncodeScalar(wire.TypeString, v)
	return c.enqueue(key, wire.TypeString, b, wire.CommandPut)
}

// PutBytes writes an opaque BYTES value.
func (c *Client) PutBytes(key string, v []byte) error {
	b, _ := wire.EncodeScalar(wire.TypeBytes, v)
	return c.enqueue(key, wire.TypeBytes, b, wire.CommandPut)
}

// PutStringList writes a STRING_LIST value.
func (c *Client) PutStringList(key string, v []string) error {
	return c.enqueue(key, wire.TypeStringList, wire.EncodeStringList(v), wire.CommandPut)
}

// PutIntegerList writes an INTEGER_LIST value.
func (c *Client) PutIntegerList(key string, v []int32) error {
	return c.enqueue(key, wire.TypeIntegerList, wire.EncodeIntegerList(v), wire.CommandPut)
}

// PutLongList writes a LONG_LIST value.
func (c *Client) PutLongList(key string, v []int64) error {
	return c.enqueue(key, wire.TypeLongList, wire.EncodeLongList(v), wire.CommandPut)
}

// PutDoubleList writes a DOUBLE_LIST value.
func (c *Client) PutDoubleList(key string, v []float64) error {
	return c.enqueue(key, wire.TypeDoubleList, wire.EncodeDoubleList(v), wire.CommandPut)
}

// PutBooleanList writes a BOOLEAN_LIST value.
func (c *Client) PutBooleanList(key string, v []bool) error {
	return c.enqueue(key, wire.TypeBoolList, wire.EncodeBoolList(v), wire.CommandPut)
}

// PutFloatList writes a FLOAT_LIST value.
func (c *Client) PutFloatList(key string, v []float32) error {
	return c.enqueue(key, wire.TypeFloatList, wire.EncodeFloatList(v), wire.CommandPut)
}

// PutBytesList writes a BYTES_LIST value.
func (c *Client) PutBytesList(key string, v [][]byte) error {
	return c.enqueue(key, wire.TypeBytesList, wire.EncodeBytesList(v), wire.CommandPut)
}

// PublishBoolean writes a BOOL value under PUBLISH semantics (delivered
// to subscribers as a PUBLISH-category update rather than UPDATE); the
// wire shape is identical to Put, distinguished by Command.
func (c *Client) PublishBoolean(key string, v bool) error {
	b, _ := wire.EncodeScalar(wire.TypeBool, v)
	return c.enqueue(key, wire.TypeBool, b, wire.CommandPublish)
}

// PublishInteger writes a 4-byte INT64-tagged value under PUBLISH
// semantics.
func (c *Client) PublishInteger(key string, v int32) error {
	b, _ := wire.EncodeScalar(wire.TypeInt64, v)
	return c.enqueue(key, wire.TypeInt64, b, wire.CommandPublish)
}

// PublishLong writes an 8-byte INT64-tagged value under PUBLISH
// semantics.
func (c *Client) PublishLong(key string, v int64) error {
	b, _ := wire.EncodeScalar(wire.TypeInt64, v)
	return c.enqueue(key, wire.TypeInt64, b, wire.CommandPublish)
}

// PublishDouble writes a DOUBLE value under PUBLISH semantics.
func (c *Client) PublishDouble(key string, v float64) error {
	b, _ := wire.EncodeScalar(wire.TypeDouble, v)
	return c.enqueue(key, wire.TypeDouble, b, wire.CommandPublish)
}

// PublishString writes a STRING value under PUBLISH semantics.
func (c *Client) PublishString(key string, v string) error {
	b, _ := wire.EncodeScalar(wire.TypeString, v)
	return c.enqueue(key, wire.TypeString, b, wire.CommandPublish)
}

// PublishBytes writes an opaque BYTES value under PUBLISH semantics.
func (c *Client) PublishBytes(key string, v []byte) error {
	b, _ := wire.EncodeScalar(wire.TypeBytes, v)
	return c.enqueue(key, wire.TypeBytes, b, wire.CommandPublish)
}

// PublishStringList writes a STRING_LIST value under PUBLISH semantics.
func (c *Client) PublishStringList(key string, v []string) error {
	return c.enqueue(key, wire.TypeStringList, wire.EncodeStringList(v), wire.CommandPublish)
}

// PublishIntegerList writes an INTEGER_LIST value under PUBLISH
// semantics.
func (c *Client) PublishIntegerList(key string, v []int32) error {
	return c.enqueue(key, wire.TypeIntegerList, wire.EncodeIntegerList(v), wire.CommandPublish)
}

// PublishLongList writes a LONG_LIST value under PUBLISH semantics.
func (c *Client) PublishLongList(key string, v []int64) error {
	return c.enqueue(key, wire.TypeLongList, wire.EncodeLongList(v), wire.CommandPublish)
}

// PublishDoubleList writes a DOUBLE_LIST value under PUBLISH semantics.
func (c *Client) PublishDoubleList(key string, v []float64) error {
	return c.enqueue(key, wire.TypeDoubleList, wire.EncodeDoubleList(v), wire.CommandPublish)
}

// PublishBooleanList writes a BOOLEAN_LIST value under PUBLISH
// semantics.
func (c *Client) PublishBooleanList(key string, v []bool) error {
	return c.enqueue(key, wire.TypeBoolList, wire.EncodeBoolList(v), wire.CommandPublish)
}

// PublishFloatList writes a FLOAT_LIST value under PUBLISH semantics.
func (c *Client) PublishFloatList(key string, v []float32) error {
	return c.enqueue(key, wire.TypeFloatList, wire.EncodeFloatList(v), wire.CommandPublish)
}

// PublishBytesList writes a BYTES_LIST value under PUBLISH semantics.
func (c *Client) PublishBytesList(key string, v [][]byte) error {
	return c.enqueue(key, wire.TypeBytesList, wire.EncodeBytesList(v), wire.CommandPublish)
}
