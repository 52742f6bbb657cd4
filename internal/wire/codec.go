package wire

// Codec is the boundary every other component uses to turn Message and
// UpdateRecord values into bytes and back. The default implementation
// (DefaultCodec) is the bespoke TLV format in this package; a caller may
// supply their own Codec (for example one backed by a generated IDL) to
// the client without any other component needing to change.
type Codec interface {
	EncodeMessage(m Message) []byte
	DecodeMessage(b []byte) (Message, error)
	EncodeUpdate(u UpdateRecord) []byte
	DecodeUpdate(b []byte) (UpdateRecord, error)
	UpdatePrefix(key string) []byte
}

// DefaultCodec is the Codec backed by this package's TLV functions.
type DefaultCodec struct{}

func (DefaultCodec) EncodeMessage(m Message) []byte                { return EncodeMessage(m) }
func (DefaultCodec) DecodeMessage(b []byte) (Message, error)       { return DecodeMessage(b) }
func (DefaultCodec) EncodeUpdate(u UpdateRecord) []byte            { return EncodeUpdate(u) }
func (DefaultCodec) DecodeUpdate(b []byte) (UpdateRecord, error)   { return DecodeUpdate(b) }
func (DefaultCodec) UpdatePrefix(key string) []byte                { return EncodeUpdatePrefix(key) }

var _ Codec = DefaultCodec{}
