package datasync

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Format is a compiled binary layout, described with a Python-struct-style
// format string. Supported byte-order prefixes are '!' and '>' (big-endian),
// '<' (little-endian), and '=' or '@' (native). Supported codes:
//
//	x        pad byte (no value)
//	b, B     int8, uint8
//	?        bool
//	h, H     int16, uint16
//	i, I     int32, uint32
//	l, L     int32, uint32
//	q, Q     int64, uint64
//	f, d     float32, float64
//
// A decimal count before a code repeats it, so "!4d" equals "!dddd". A
// format with no prefix uses native order, matching Python's struct module.
type Format struct {
	source string
	order  byteOrder
	codes  []byte // one entry per field, pads included
	size   int
	values int // field count excluding pads
}

// byteOrder joins encoding/binary's read and append order interfaces;
// BigEndian, LittleEndian, and NativeEndian all satisfy it.
type byteOrder interface {
	binary.ByteOrder
	binary.AppendByteOrder
}

var codeSizes = map[byte]int{
	'x': 1, 'b': 1, 'B': 1, '?': 1,
	'h': 2, 'H': 2,
	'i': 4, 'I': 4, 'l': 4, 'L': 4,
	'q': 8, 'Q': 8,
	'f': 4, 'd': 8,
}

// Compile parses a format string. Unknown codes are reported here, not at
// pack time.
func Compile(format string) (*Format, error) {
	f := &Format{source: format, order: binary.NativeEndian}
	rest := format
	if len(rest) > 0 {
		switch rest[0] {
		case '!', '>':
			f.order = binary.BigEndian
			rest = rest[1:]
		case '<':
			f.order = binary.LittleEndian
			rest = rest[1:]
		case '=', '@':
			f.order = binary.NativeEndian
			rest = rest[1:]
		}
	}
	count := 0
	for i := 0; i < len(rest); i++ {
		c := rest[i]
		if c >= '0' && c <= '9' {
			count = count*10 + int(c-'0')
			continue
		}
		size, ok := codeSizes[c]
		if !ok {
			return nil, fmt.Errorf("datasync: format %q: unknown code %q", format, string(c))
		}
		n := count
		if n == 0 {
			n = 1
		}
		count = 0
		for j := 0; j < n; j++ {
			f.codes = append(f.codes, c)
			f.size += size
			if c != 'x' {
				f.values++
			}
		}
	}
	if count != 0 {
		return nil, fmt.Errorf("datasync: format %q: trailing repeat count", format)
	}
	if f.values == 0 {
		return nil, fmt.Errorf("datasync: format %q carries no values", format)
	}
	return f, nil
}

// Size returns the encoded size in bytes.
func (f *Format) Size() int {
	return f.size
}

// NumValues returns the number of values the format carries (pads excluded).
func (f *Format) NumValues() int {
	return f.values
}

// String returns the source format string.
func (f *Format) String() string {
	return f.source
}

// Pack encodes values according to the format. The value count must match
// NumValues exactly.
func (f *Format) Pack(values ...any) ([]byte, error) {
	if len(values) != f.values {
		return nil, fmt.Errorf("datasync: format %q needs %d values, got %d", f.source, f.values, len(values))
	}
	out := make([]byte, 0, f.size)
	vi := 0
	for _, c := range f.codes {
		if c == 'x' {
			out = append(out, 0)
			continue
		}
		v := values[vi]
		vi++
		var err error
		out, err = f.packOne(out, c, v)
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (f *Format) packOne(out []byte, code byte, v any) ([]byte, error) {
	switch code {
	case '?':
		b, ok := v.(bool)
		if !ok {
			return nil, fmt.Errorf("datasync: code '?' needs bool, got %T", v)
		}
		if b {
			return append(out, 1), nil
		}
		return append(out, 0), nil
	case 'f', 'd':
		fv, ok := toFloat64(v)
		if !ok {
			return nil, fmt.Errorf("datasync: code %q needs a number, got %T", string(code), v)
		}
		if code == 'f' {
			return f.order.AppendUint32(out, math.Float32bits(float32(fv))), nil
		}
		return f.order.AppendUint64(out, math.Float64bits(fv)), nil
	}
	iv, ok := toInt64(v)
	if !ok {
		return nil, fmt.Errorf("datasync: code %q needs an integer, got %T", string(code), v)
	}
	switch code {
	case 'b', 'B':
		return append(out, byte(iv)), nil
	case 'h', 'H':
		return f.order.AppendUint16(out, uint16(iv)), nil
	case 'i', 'I', 'l', 'L':
		return f.order.AppendUint32(out, uint32(iv)), nil
	case 'q', 'Q':
		return f.order.AppendUint64(out, uint64(iv)), nil
	}
	return nil, fmt.Errorf("datasync: unhandled code %q", string(code))
}

// Unpack decodes data according to the format. Returned element types are
// int64 for signed integer codes, uint64 for unsigned ones, float64 for
// 'f' and 'd', and bool for '?'. The data length must match Size exactly.
func (f *Format) Unpack(data []byte) ([]any, error) {
	if len(data) != f.size {
		return nil, fmt.Errorf("datasync: format %q expects %d bytes, got %d", f.source, f.size, len(data))
	}
	out := make([]any, 0, f.values)
	pos := 0
	for _, c := range f.codes {
		size := codeSizes[c]
		field := data[pos : pos+size]
		pos += size
		switch c {
		case 'x':
			// pad, no value
		case '?':
			out = append(out, field[0] != 0)
		case 'b':
			out = append(out, int64(int8(field[0])))
		case 'B':
			out = append(out, uint64(field[0]))
		case 'h':
			out = append(out, int64(int16(f.order.Uint16(field))))
		case 'H':
			out = append(out, uint64(f.order.Uint16(field)))
		case 'i', 'l':
			out = append(out, int64(int32(f.order.Uint32(field))))
		case 'I', 'L':
			out = append(out, uint64(f.order.Uint32(field)))
		case 'q':
			out = append(out, int64(f.order.Uint64(field)))
		case 'Q':
			out = append(out, f.order.Uint64(field))
		case 'f':
			out = append(out, float64(math.Float32frombits(f.order.Uint32(field))))
		case 'd':
			out = append(out, math.Float64frombits(f.order.Uint64(field)))
		}
	}
	return out, nil
}

// UnpackFloats decodes data and converts every value to float64. Fails if
// the format contains a '?' field.
func (f *Format) UnpackFloats(data []byte) ([]float64, error) {
	vals, err := f.Unpack(data)
	if err != nil {
		return nil, err
	}
	return Floats(vals)
}

// Floats converts a decoded message to float64 values. Fails on a value
// that is not numeric (a '?' field).
func Floats(vals []any) ([]float64, error) {
	out := make([]float64, 0, len(vals))
	for _, v := range vals {
		fv, ok := toFloat64(v)
		if !ok {
			return nil, fmt.Errorf("datasync: value %T is not numeric", v)
		}
		out = append(out, fv)
	}
	return out, nil
}

// Pack is a convenience wrapper compiling format and packing values in one
// call.
func Pack(format string, values ...any) ([]byte, error) {
	f, err := Compile(format)
	if err != nil {
		return nil, err
	}
	return f.Pack(values...)
}

// Unpack is a convenience wrapper compiling format and unpacking data in one
// call.
func Unpack(format string, data []byte) ([]any, error) {
	f, err := Compile(format)
	if err != nil {
		return nil, err
	}
	return f.Unpack(data)
}

func toFloat64(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int:
		return float64(x), true
	case int8:
		return float64(x), true
	case int16:
		return float64(x), true
	case int32:
		return float64(x), true
	case int64:
		return float64(x), true
	case uint:
		return float64(x), true
	case uint8:
		return float64(x), true
	case uint16:
		return float64(x), true
	case uint32:
		return float64(x), true
	case uint64:
		return float64(x), true
	}
	return 0, false
}

func toInt64(v any) (int64, bool) {
	switch x := v.(type) {
	case int:
		return int64(x), true
	case int8:
		return int64(x), true
	case int16:
		return int64(x), true
	case int32:
		return int64(x), true
	case int64:
		return x, true
	case uint:
		return int64(x), true
	case uint8:
		return int64(x), true
	case uint16:
		return int64(x), true
	case uint32:
		return int64(x), true
	case uint64:
		return int64(x), true
	}
	return 0, false
}
