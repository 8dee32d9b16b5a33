package codec

import (
	"errors"
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

// ErrMalformed is returned when a payload cannot be decoded.
var ErrMalformed = errors.New("malformed payload")

type field struct {
	typ protowire.Type
	v   uint64
	b   []byte
}

// message holds every occurrence of every field of a decoded payload.
type message map[protowire.Number][]field

func parse(b []byte) (message, error) {
	msg := make(message)
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return nil, errors.Join(ErrMalformed, protowire.ParseError(n))
		}
		b = b[n:]

		f := field{typ: typ}
		switch typ {
		case protowire.VarintType:
			f.v, n = protowire.ConsumeVarint(b)
		case protowire.BytesType:
			f.b, n = protowire.ConsumeBytes(b)
		default:
			n = protowire.ConsumeFieldValue(num, typ, b)
		}
		if n < 0 {
			return nil, errors.Join(ErrMalformed, fmt.Errorf("field %d", num), protowire.ParseError(n))
		}
		b = b[n:]

		msg[num] = append(msg[num], f)
	}
	return msg, nil
}

func (m message) has(num protowire.Number) bool { return len(m[num]) > 0 }

// varint returns the last occurrence of a varint field, or zero.
func (m message) varint(num protowire.Number) (uint64, error) {
	fs := m[num]
	if len(fs) == 0 {
		return 0, nil
	}
	f := fs[len(fs)-1]
	if f.typ != protowire.VarintType {
		return 0, fmt.Errorf("%w: field %d is not a varint", ErrMalformed, num)
	}
	return f.v, nil
}

// bytes returns a copy of the last occurrence of a length-delimited field.
func (m message) bytes(num protowire.Number) ([]byte, error) {
	fs := m[num]
	if len(fs) == 0 {
		return nil, nil
	}
	f := fs[len(fs)-1]
	if f.typ != protowire.BytesType {
		return nil, fmt.Errorf("%w: field %d is not length-delimited", ErrMalformed, num)
	}
	return append([]byte{}, f.b...), nil
}

func (m message) str(num protowire.Number) (string, error) {
	b, err := m.bytes(num)
	return string(b), err
}

// repeated returns copies of every occurrence of a length-delimited field,
// in wire order.
func (m message) repeated(num protowire.Number) ([][]byte, error) {
	fs := m[num]
	out := make([][]byte, 0, len(fs))
	for _, f := range fs {
		if f.typ != protowire.BytesType {
			return nil, fmt.Errorf("%w: field %d is not length-delimited", ErrMalformed, num)
		}
		out = append(out, append([]byte{}, f.b...))
	}
	return out, nil
}

func appendVarint(b []byte, num protowire.Number, v uint64) []byte {
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, v)
}

func appendBytes(b []byte, num protowire.Number, v []byte) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, v)
}

func appendString(b []byte, num protowire.Number, v string) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, v)
}
