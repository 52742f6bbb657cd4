package xtables

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Kobeeeef/XTABLES/internal/transport"
	"github.com/Kobeeeef/XTABLES/internal/wire"
)

// call sends a GET-shaped request on the Req transport and decodes the
// reply, translating transport failures into the error taxonomy in §7.
func (c *Client) call(ctx context.Context, cmd wire.Command, key string) (wire.Message, error) {
	id := c.nextID()
	out := wire.Message{HasID: true, ID: id, Command: cmd}
	if key != "" {
		out.HasKey = true
		out.Key = key
	}
	reqCtx, cancel := context.WithTimeout(ctx, transport.ReceiveTimeout)
	defer cancel()

	raw, err := c.req.Call(reqCtx, wire.EncodeMessage(out))
	if err != nil {
		if errors.Is(err, transport.ErrTransportReset) {
			if ctx.Err() != nil || reqCtx.Err() != nil {
				return wire.Message{}, fmt.Errorf("%w: %v", ErrTimeout, err)
			}
			return wire.Message{}, fmt.Errorf("%w: %v", ErrTransportReset, err)
		}
		return wire.Message{}, fmt.Errorf("%w: %v", ErrTransport, err)
	}
	reply, err := wire.DecodeMessage(raw)
	if err != nil {
		return wire.Message{}, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return reply, nil
}

// getTyped fetches key and requires the reply to carry a value of type
// want. Returns ErrNotPresent if the reply has no value, ErrTypeMismatch
// if it has a value of a different type, and ErrNotPresent (rather than
// the underlying transport error) if the Req round trip itself fails —
// the Req endpoint has already reconnected by the time Call returns, per
// §4.D, so there is nothing left for the caller to act on beyond "the
// value could not be retrieved this time."
func (c *Client) getTyped(ctx context.Context, key string, want wire.Type) ([]byte, error) {
	if err := validateKey(key); err != nil {
		return nil, err
	}
	reply, err := c.call(ctx, wire.CommandGet, key)
	if err != nil {
		if errors.Is(err, ErrDecode) {
			return nil, err
		}
		return nil, ErrNotPresent
	}
	if !reply.HasVal || reply.Type == wire.TypeUnknown {
		return nil, ErrNotPresent
	}
	if reply.Type != want {
		return nil, fmt.Errorf("%w: want %v got %v", ErrTypeMismatch, want, reply.Type)
	}
	return reply.Value, nil
}

// GetBoolean fetches a BOOL value.
func (c *Client) GetBoolean(ctx context.Context, key string) (bool, error) {
	b, err := c.getTyped(ctx, key, wire.TypeBool)
	if err != nil {
		return false, err
	}
	return wire.DecodeBool(b)
}

// GetInteger fetches a 4-byte INT64-tagged value as an int32. A reply
// carrying an 8-byte payload (a long) is a TypeMismatch, per §6.
func (c *Client) GetInteger(ctx context.Context, key string) (int32, error) {
	b, err := c.getTyped(ctx, key, wire.TypeInt64)
	if err != nil {
		return 0, err
	}
	v, decErr := wire.DecodeInt32(b)
	if decErr != nil {
		return 0, fmt.Errorf("%w: %v", ErrTypeMismatch, decErr)
	}
	return v, nil
}

// GetLong fetches an 8-byte INT64-tagged value as an int64.
func (c *Client) GetLong(ctx context.Context, key string) (int64, error) {
	b, err := c.getTyped(ctx, key, wire.TypeInt64)
	if err != nil {
		return 0, err
	}
	v, decErr := wire.DecodeInt64(b)
	if decErr != nil {
		return 0, fmt.Errorf("%w: %v", ErrTypeMismatch, decErr)
	}
	return v, nil
}

// GetDouble fetches a DOUBLE value.
func (c *Client) GetDouble(ctx context.Context, key string) (float64, error) {
	b, err := c.getTyped(ctx, key, wire.TypeDouble)
	if err != nil {
		return 0, err
	}
	return wire.DecodeDouble(b)
}

// GetString fetches a STRING value.
func (c *Client) GetString(ctx context.Context, key string) (string, error) {
	b, err := c.getTyped(ctx, key, wire.TypeString)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// GetBytes fetches an opaque BYTES value.
func (c *Client) GetBytes(ctx context.Context, key string) ([]byte, error) {
	return c.getTyped(ctx, key, wire.TypeBytes)
}

// GetStringList fetches a STRING_LIST value.
func (c *Client) GetStringList(ctx context.Context, key string) ([]string, error) {
	b, err := c.getTyped(ctx, key, wire.TypeStringList)
	if err != nil {
		return nil, err
	}
	return wire.DecodeStringList(b)
}

// GetIntegerList fetches an INTEGER_LIST value.
func (c *Client) GetIntegerList(ctx context.Context, key string) ([]int32, error) {
	b, err := c.getTyped(ctx, key, wire.TypeIntegerList)
	if err != nil {
		return nil, err
	}
	return wire.DecodeIntegerList(b)
}

// GetLongList fetches a LONG_LIST value.
func (c *Client) GetLongList(ctx context.Context, key string) ([]int64, error) {
	b, err := c.getTyped(ctx, key, wire.TypeLongList)
	if err != nil {
		return nil, err
	}
	return wire.DecodeLongList(b)
}

// GetDoubleList fetches a DOUBLE_LIST value.
func (c *Client) GetDoubleList(ctx context.Context, key string) ([]float64, error) {
	b, err := c.getTyped(ctx, key, wire.TypeDoubleList)
	if err != nil {
		return nil, err
	}
	return wire.DecodeDoubleList(b)
}

// GetFloatList fetches a FLOAT_LIST value.
func (c *Client) GetFloatList(ctx context.Context, key string) ([]float32, error) {
	b, err := c.getTyped(ctx, key, wire.TypeFloatList)
	if err != nil {
		return nil, err
	}
	return wire.DecodeFloatList(b)
}

// GetBooleanList fetches a BOOLEAN_LIST value.
func (c *Client) GetBooleanList(ctx context.Context, key string) ([]bool, error) {
	b, err := c.getTyped(ctx, key, wire.TypeBoolList)
	if err != nil {
		return nil, err
	}
	return wire.DecodeBoolList(b)
}

// GetBytesList fetches a BYTES_LIST value.
func (c *Client) GetBytesList(ctx context.Context, key string) ([][]byte, error) {
	b, err := c.getTyped(ctx, key, wire.TypeBytesList)
	if err != nil {
		return nil, err
	}
	return wire.DecodeBytesList(b)
}

// Delete removes key from the server's table.
func (c *Client) Delete(ctx context.Context, key string) (bool, error) {
	if err := validateKey(key); err != nil {
		return false, err
	}
	reply, err := c.call(ctx, wire.CommandDelete, key)
	if err != nil {
		return false, err
	}
	if reply.HasVal {
		if ok, decErr := wire.DecodeBool(reply.Value); decErr == nil {
			return ok, nil
		}
	}
	return true, nil
}

// GetTables lists known table keys, optionally scoped under parent (""
// for the root).
func (c *Client) GetTables(ctx context.Context, parent string) ([]string, error) {
	reply, err := c.call(ctx, wire.CommandGetTables, parent)
	if err != nil {
		return nil, err
	}
	if !reply.HasVal {
		return nil, nil
	}
	return wire.DecodeStringList(reply.Value)
}

// RenameKey asks the server to rename oldKey to newKey, piggybacked on
// the DEBUG command with a structured value since §3's command enum is
// closed (see DESIGN.md).
func (c *Client) RenameKey(ctx context.Context, oldKey, newKey string) (bool, error) {
	if err := validateKey(oldKey); err != nil {
		return false, err
	}
	if err := validateKey(newKey); err != nil {
		return false, err
	}
	value := wire.EncodeStringList([]string{oldKey, newKey})
	id := c.nextID()
	out := wire.Message{
		HasID:   true,
		ID:      id,
		Command: wire.CommandDebug,
		HasVal:  true,
		Value:   value,
		Type:    wire.TypeStringList,
	}
	reqCtx, cancel := context.WithTimeout(ctx, transport.ReceiveTimeout)
	defer cancel()
	raw, err := c.req.Call(reqCtx, wire.EncodeMessage(out))
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrTransport, err)
	}
	reply, err := wire.DecodeMessage(raw)
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	if reply.HasVal {
		if ok, decErr := wire.DecodeBool(reply.Value); decErr == nil {
			return ok, nil
		}
	}
	return false, nil
}

// PingResult is the outcome of a Ping call.
type PingResult struct {
	Success     bool
	Nanoseconds int64
}

// Ping measures round-trip latency to the server over the Req
// transport. On failure it returns {false, -1}, per §4.H.
func (c *Client) Ping(ctx context.Context) PingResult {
	start := time.Now()
	_, err := c.call(ctx, wire.CommandPing, "")
	if err != nil {
		return PingResult{Success: false, Nanoseconds: -1}
	}
	return PingResult{Success: true, Nanoseconds: time.Since(start).Nanoseconds()}
}
