// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package rdi

import (
	"encoding/binary"
	"errors"
	"fmt"
	"reflect"
)

// ErrTruncated is returned when decoding runs past the end of the data.
var ErrTruncated = errors.New("rdi: truncated data")

var order = binary.LittleEndian

// Hash is the name hash used by name-map buckets. Readers must hash
// names the same way to find them.
func Hash(s []byte) uint64 {
	h := uint64(5381)
	for _, c := range s {
		h = (h << 5) + h + uint64(c)
	}
	return h
}

// HashString is Hash for a string.
func HashString(s string) uint64 {
	h := uint64(5381)
	for i := 0; i < len(s); i++ {
		h = (h << 5) + h + uint64(s[i])
	}
	return h
}

// Size returns the encoded size of a record of type T.
func Size[T any]() int {
	var v T
	return sizeOf(reflect.TypeOf(v))
}

func sizeOf(t reflect.Type) int {
	switch t.Kind() {
	case reflect.Struct:
		n := 0
		for i := 0; i < t.NumField(); i++ {
			n += sizeOf(t.Field(i).Type)
		}
		return n
	case reflect.Array:
		return t.Len() * sizeOf(t.Elem())
	case reflect.Uint8, reflect.Int8:
		return 1
	case reflect.Uint16, reflect.Int16:
		return 2
	case reflect.Uint32, reflect.Int32:
		return 4
	case reflect.Uint64, reflect.Int64:
		return 8
	}
	panic(fmt.Sprintf("rdi: type %s has no fixed encoding", t))
}

// Append appends the packed encoding of v to buf. v may be a fixed-size
// value or a slice of them.
func Append(buf []byte, v any) []byte {
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Slice {
		for i := 0; i < rv.Len(); i++ {
			buf = append1(buf, rv.Index(i))
		}
		return buf
	}
	return append1(buf, rv)
}

func append1(buf []byte, v reflect.Value) []byte {
	switch v.Kind() {
	case reflect.Struct:
		for i := 0; i < v.NumField(); i++ {
			buf = append1(buf, v.Field(i))
		}
		return buf
	case reflect.Array:
		for i := 0; i < v.Len(); i++ {
			buf = append1(buf, v.Index(i))
		}
		return buf
	case reflect.Uint8:
		return append(buf, uint8(v.Uint()))
	case reflect.Uint16:
		return order.AppendUint16(buf, uint16(v.Uint()))
	case reflect.Uint32:
		return order.AppendUint32(buf, uint32(v.Uint()))
	case reflect.Uint64:
		return order.AppendUint64(buf, v.Uint())
	case reflect.Int8:
		return append(buf, uint8(v.Int()))
	case reflect.Int16:
		return order.AppendUint16(buf, uint16(v.Int()))
	case reflect.Int32:
		return order.AppendUint32(buf, uint32(v.Int()))
	case reflect.Int64:
		return order.AppendUint64(buf, uint64(v.Int()))
	}
	panic(fmt.Sprintf("rdi: cannot encode kind %s", v.Kind()))
}

// Read decodes data into out, which must be a pointer to a fixed-size
// value or a slice of them, and returns the number of bytes consumed.
func Read(data []byte, out any) (int, error) {
	rv := reflect.ValueOf(out)
	switch rv.Kind() {
	case reflect.Pointer:
		return read1(data, rv.Elem())
	case reflect.Slice:
		pos := 0
		n := rv.Len()
		for i := 0; i < n; i++ {
			len, err := read1(data[pos:], rv.Index(i))
			if err != nil {
				return pos, err
			}
			pos += len
		}
		return pos, nil
	default:
		return 0, fmt.Errorf("out must be a pointer, got %T", out)
	}
}

func read1(data []byte, out reflect.Value) (int, error) {
	kind := out.Kind()

	switch kind {
	case reflect.Struct:
		pos := 0
		nf := out.NumField()
		for i := 0; i < nf; i++ {
			len, err := read1(data[pos:], out.Field(i))
			if err != nil {
				return pos, err
			}
			pos += len
		}
		return pos, nil

	case reflect.Array:
		pos := 0
		n := out.Len()
		for i := 0; i < n; i++ {
			len, err := read1(data[pos:], out.Index(i))
			if err != nil {
				return pos, err
			}
			pos += len
		}
		return pos, nil
	}

	size := sizeOf(out.Type())
	if len(data) < size {
		return 0, ErrTruncated
	}
	switch kind {
	default:
		return 0, fmt.Errorf("unimplemented kind %s", kind)
	case reflect.Uint8:
		out.SetUint(uint64(data[0]))
	case reflect.Uint16:
		out.SetUint(uint64(order.Uint16(data)))
	case reflect.Uint32:
		out.SetUint(uint64(order.Uint32(data)))
	case reflect.Uint64:
		out.SetUint(order.Uint64(data))
	case reflect.Int8:
		out.SetInt(int64(int8(data[0])))
	case reflect.Int16:
		out.SetInt(int64(int16(order.Uint16(data))))
	case reflect.Int32:
		out.SetInt(int64(int32(order.Uint32(data))))
	case reflect.Int64:
		out.SetInt(int64(order.Uint64(data)))
	}
	return size, nil
}

// DecodeTable decodes data as a packed array of T.
func DecodeTable[T any](data []byte) ([]T, error) {
	size := Size[T]()
	if len(data)%size != 0 {
		var v T
		return nil, fmt.Errorf("rdi: %d bytes is not a whole number of %T records: %w", len(data), v, ErrTruncated)
	}
	out := make([]T, len(data)/size)
	if _, err := Read(data, out); err != nil {
		return nil, err
	}
	return out, nil
}
