// Package record implements the schema-driven tuple codec used to turn a
// row of typed values into the opaque byte string a heap file stores, and
// back again.
package record

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// FieldType identifies how a single field is encoded on the wire.
type FieldType int

const (
	// Int is a 4-byte little-endian unsigned integer. A schema's first
	// field must be Int, since the heap engine's find/update/delete
	// operations key on a record's first four bytes.
	Int FieldType = iota
	// Short is a 2-byte little-endian unsigned integer.
	Short
	// Byte is a single unsigned byte.
	Byte
	// VarStr is a length-prefixed ASCII string: one length byte followed
	// by that many bytes.
	VarStr
)

// ErrSchemaType is returned when a schema names an unrecognised field type.
var ErrSchemaType = errors.New("record: unknown field type")

// ErrLengthOverflow is returned when a VarStr value is longer than 255
// bytes, the largest length its one-byte prefix can express.
var ErrLengthOverflow = errors.New("record: var_str value exceeds 255 bytes")

// ErrFieldCount is returned when the number of values does not match the
// schema's field count.
var ErrFieldCount = errors.New("record: value count does not match schema")

// ErrUnsupportedKeyField is returned by ValidatesAsKey when a schema's
// first field is not Int, making the record unusable with the heap
// engine's first-four-bytes key convention.
var ErrUnsupportedKeyField = errors.New("record: schema's first field must be Int to serve as a key")

// Field names one column of a schema.
type Field struct {
	Name string
	Type FieldType
}

// Schema describes a fixed sequence of typed fields making up one record.
type Schema []Field

// ValidatesAsKey reports whether this schema's first field is Int, the
// requirement for records whose first four bytes will be compared as a
// primary key by pkg/page's Find.
func (s Schema) ValidatesAsKey() error {
	if len(s) == 0 || s[0].Type != Int {
		return ErrUnsupportedKeyField
	}
	return nil
}

// Encode packs values into a byte string according to schema. values must
// have the same length and order as schema.
func Encode(values []any, schema Schema) ([]byte, error) {
	if len(values) != len(schema) {
		return nil, fmt.Errorf("%w: got %d values for %d fields", ErrFieldCount, len(values), len(schema))
	}

	var out []byte
	for i, f := range schema {
		enc, err := encodeField(f, values[i])
		if err != nil {
			return nil, fmt.Errorf("record: field %q: %w", f.Name, err)
		}
		out = append(out, enc...)
	}
	return out, nil
}

func encodeField(f Field, value any) ([]byte, error) {
	switch f.Type {
	case Int:
		v, err := toUint32(value)
		if err != nil {
			return nil, err
		}
		buf := make([]byte, 4)
		binary.LittleEndian.PutUint32(buf, v)
		return buf, nil

	case Short:
		v, err := toUint16(value)
		if err != nil {
			return nil, err
		}
		buf := make([]byte, 2)
		binary.LittleEndian.PutUint16(buf, v)
		return buf, nil

	case Byte:
		v, err := toUint8(value)
		if err != nil {
			return nil, err
		}
		return []byte{v}, nil

	case VarStr:
		s, ok := value.(string)
		if !ok {
			return nil, fmt.Errorf("var_str field requires a string, got %T", value)
		}
		if len(s) > 255 {
			return nil, ErrLengthOverflow
		}
		buf := make([]byte, 1+len(s))
		buf[0] = byte(len(s))
		copy(buf[1:], s)
		return buf, nil

	default:
		return nil, fmt.Errorf("%w: %d", ErrSchemaType, f.Type)
	}
}

// Decode unpacks data into a slice of values ordered per schema.
func Decode(data []byte, schema Schema) ([]any, error) {
	values := make([]any, len(schema))
	offset := 0

	for i, f := range schema {
		switch f.Type {
		case Int:
			if offset+4 > len(data) {
				return nil, fmt.Errorf("record: truncated int field %q", f.Name)
			}
			values[i] = binary.LittleEndian.Uint32(data[offset : offset+4])
			offset += 4

		case Short:
			if offset+2 > len(data) {
				return nil, fmt.Errorf("record: truncated short field %q", f.Name)
			}
			values[i] = binary.LittleEndian.Uint16(data[offset : offset+2])
			offset += 2

		case Byte:
			if offset+1 > len(data) {
				return nil, fmt.Errorf("record: truncated byte field %q", f.Name)
			}
			values[i] = data[offset]
			offset++

		case VarStr:
			if offset+1 > len(data) {
				return nil, fmt.Errorf("record: truncated var_str length for field %q", f.Name)
			}
			length := int(data[offset])
			offset++
			if offset+length > len(data) {
				return nil, fmt.Errorf("record: truncated var_str body for field %q", f.Name)
			}
			values[i] = string(data[offset : offset+length])
			offset += length

		default:
			return nil, fmt.Errorf("%w: %d", ErrSchemaType, f.Type)
		}
	}
	return values, nil
}

func toUint32(value any) (uint32, error) {
	switch v := value.(type) {
	case uint32:
		return v, nil
	case int:
		return uint32(v), nil
	case int64:
		return uint32(v), nil
	default:
		return 0, fmt.Errorf("int field requires a numeric value, got %T", value)
	}
}

func toUint16(value any) (uint16, error) {
	switch v := value.(type) {
	case uint16:
		return v, nil
	case int:
		return uint16(v), nil
	default:
		return 0, fmt.Errorf("short field requires a numeric value, got %T", value)
	}
}

func toUint8(value any) (uint8, error) {
	switch v := value.(type) {
	case uint8:
		return v, nil
	case int:
		return uint8(v), nil
	default:
		return 0, fmt.Errorf("byte field requires a numeric value, got %T", value)
	}
}
