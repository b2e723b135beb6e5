package datasource

import (
	"encoding/binary"
	"fmt"
	"math"
	"strings"
)

// NexusDataType identifies the element type of a representation.
//
// The low byte holds the element size in bits, the high byte the numeric
// family (1 = unsigned, 2 = signed, 4 = floating point).
type NexusDataType uint16

const (
	UINT8   NexusDataType = 0x108
	INT8    NexusDataType = 0x208
	UINT16  NexusDataType = 0x110
	INT16   NexusDataType = 0x210
	UINT32  NexusDataType = 0x120
	INT32   NexusDataType = 0x220
	UINT64  NexusDataType = 0x140
	INT64   NexusDataType = 0x240
	FLOAT32 NexusDataType = 0x420
	FLOAT64 NexusDataType = 0x440
)

var dataTypeNames = map[NexusDataType]string{
	UINT8:   "UINT8",
	INT8:    "INT8",
	UINT16:  "UINT16",
	INT16:   "INT16",
	UINT32:  "UINT32",
	INT32:   "INT32",
	UINT64:  "UINT64",
	INT64:   "INT64",
	FLOAT32: "FLOAT32",
	FLOAT64: "FLOAT64",
}

// ElementSize returns the size of one element in bytes.
func (t NexusDataType) ElementSize() int {
	return int(t&0xFF) / 8
}

// Valid reports whether t is one of the known type codes.
func (t NexusDataType) Valid() bool {
	_, ok := dataTypeNames[t]
	return ok
}

func (t NexusDataType) String() string {
	if name, ok := dataTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("NexusDataType(0x%x)", uint16(t))
}

// ParseDataType parses the upper- or lower-case type name.
func ParseDataType(name string) (NexusDataType, error) {
	upper := strings.ToUpper(strings.TrimSpace(name))
	for t, n := range dataTypeNames {
		if n == upper {
			return t, nil
		}
	}
	return 0, fmt.Errorf("unknown data type %q", name)
}

func (t NexusDataType) MarshalText() ([]byte, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("invalid data type 0x%x", uint16(t))
	}
	return []byte(t.String()), nil
}

func (t *NexusDataType) UnmarshalText(text []byte) error {
	parsed, err := ParseDataType(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// PutValue encodes v as element index of buf in little endian.
func (t NexusDataType) PutValue(buf []byte, index int, v float64) {
	size := t.ElementSize()
	b := buf[index*size : (index+1)*size]

	switch t {
	case UINT8:
		b[0] = uint8(v)
	case INT8:
		b[0] = uint8(int8(v))
	case UINT16:
		binary.LittleEndian.PutUint16(b, uint16(v))
	case INT16:
		binary.LittleEndian.PutUint16(b, uint16(int16(v)))
	case UINT32:
		binary.LittleEndian.PutUint32(b, uint32(v))
	case INT32:
		binary.LittleEndian.PutUint32(b, uint32(int32(v)))
	case UINT64:
		binary.LittleEndian.PutUint64(b, uint64(v))
	case INT64:
		binary.LittleEndian.PutUint64(b, uint64(int64(v)))
	case FLOAT32:
		binary.LittleEndian.PutUint32(b, math.Float32bits(float32(v)))
	case FLOAT64:
		binary.LittleEndian.PutUint64(b, math.Float64bits(v))
	}
}

// Value decodes element index of buf as float64.
func (t NexusDataType) Value(buf []byte, index int) float64 {
	size := t.ElementSize()
	b := buf[index*size : (index+1)*size]

	switch t {
	case UINT8:
		return float64(b[0])
	case INT8:
		return float64(int8(b[0]))
	case UINT16:
		return float64(binary.LittleEndian.Uint16(b))
	case INT16:
		return float64(int16(binary.LittleEndian.Uint16(b)))
	case UINT32:
		return float64(binary.LittleEndian.Uint32(b))
	case INT32:
		return float64(int32(binary.LittleEndian.Uint32(b)))
	case UINT64:
		return float64(binary.LittleEndian.Uint64(b))
	case INT64:
		return float64(int64(binary.LittleEndian.Uint64(b)))
	case FLOAT32:
		return float64(math.Float32frombits(binary.LittleEndian.Uint32(b)))
	case FLOAT64:
		return math.Float64frombits(binary.LittleEndian.Uint64(b))
	}
	return math.NaN()
}
