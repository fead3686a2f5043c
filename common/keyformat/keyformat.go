// Package keyformat implements ordered key construction for key-value
// backends.
//
// A key is a one byte prefix followed by fixed width elements and at most
// one variable width element. Integers are encoded big endian, signed ones
// with the sign bit flipped, so the byte order of keys follows the numeric
// order of their elements and range scans work on encoded keys.
package keyformat

import (
	"encoding/binary"
	"fmt"
)

const signBit = 1 << 63

type element struct {
	// size is the encoded size, or -1 for the variable width element.
	size   int
	encode func(dst []byte, v interface{}) []byte
	decode func(src []byte, v interface{})
}

var (
	uint64Element = element{
		size: 8,
		encode: func(dst []byte, v interface{}) []byte {
			return binary.BigEndian.AppendUint64(dst, v.(uint64))
		},
		decode: func(src []byte, v interface{}) {
			*v.(*uint64) = binary.BigEndian.Uint64(src)
		},
	}
	int64Element = element{
		size: 8,
		encode: func(dst []byte, v interface{}) []byte {
			return binary.BigEndian.AppendUint64(dst, uint64(v.(int64))^signBit)
		},
		decode: func(src []byte, v interface{}) {
			*v.(*int64) = int64(binary.BigEndian.Uint64(src) ^ signBit)
		},
	}
	bytesElement = element{
		size: -1,
		encode: func(dst []byte, v interface{}) []byte {
			return append(dst, v.([]byte)...)
		},
		decode: func(src []byte, v interface{}) {
			*v.(*[]byte) = append([]byte{}, src...)
		},
	}
)

func elementFor(example interface{}) element {
	switch example.(type) {
	case uint64:
		return uint64Element
	case int64:
		return int64Element
	case []byte:
		return bytesElement
	default:
		panic(fmt.Sprintf("keyformat: unsupported element type %T", example))
	}
}

// KeyFormat describes the layout of a family of keys.
type KeyFormat struct {
	prefix   byte
	elements []element
	// fixed is the total size of the fixed width elements.
	fixed int
}

// New creates a key format with the given prefix. The layout is given by
// example values of the element types: uint64, int64 or []byte.
func New(prefix byte, layout ...interface{}) *KeyFormat {
	kf := &KeyFormat{prefix: prefix}

	var variable bool
	for _, example := range layout {
		elem := elementFor(example)
		switch {
		case elem.size >= 0:
			kf.fixed += elem.size
		case variable:
			panic("keyformat: more than one variable width element")
		default:
			variable = true
		}
		kf.elements = append(kf.elements, elem)
	}

	return kf
}

// Size returns the minimum size of a complete key.
func (k *KeyFormat) Size() int {
	return 1 + k.fixed
}

// Encode encodes values into a key. Passing fewer values than the layout
// has elements yields a key prefix suitable for iteration.
func (k *KeyFormat) Encode(values ...interface{}) []byte {
	if len(values) > len(k.elements) {
		panic("keyformat: more values than elements")
	}

	key := make([]byte, 1, k.Size())
	key[0] = k.prefix
	for i, v := range values {
		key = k.elements[i].encode(key, v)
	}
	return key
}

// Decode decodes a key into pointers to the leading element values.
//
// It returns false without touching values when the prefix does not match
// or the key is too short.
func (k *KeyFormat) Decode(key []byte, values ...interface{}) bool {
	if len(key) < k.Size() || key[0] != k.prefix {
		return false
	}
	if len(values) > len(k.elements) {
		panic("keyformat: more values than elements")
	}

	variableSize := len(key) - k.Size()
	rest := key[1:]
	for i, v := range values {
		size := k.elements[i].size
		if size < 0 {
			size = variableSize
		}
		k.elements[i].decode(rest[:size], v)
		rest = rest[size:]
	}

	return true
}
