// Copyright (c) 2018, Google LLC All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package tpmutil

import (
	"fmt"
	"reflect"
)

var selfMarshalerType = reflect.TypeOf((*SelfMarshaler)(nil)).Elem()

// Pack encodes a set of elements into a single byte array, in argument order.
//
// Supported elements are fixed-width unsigned integers (uint8, uint16,
// uint32, uint64, bool encoded as one byte, and any named type with one of
// those underlying kinds such as Handle or Command), RawBytes, and any type
// implementing SelfMarshaler either by value or by pointer. Integers are
// written big-endian. Anything else, including plain []byte whose length
// prefix width would be ambiguous, is rejected.
func Pack(elts ...interface{}) ([]byte, error) {
	buf := new(Buffer)
	if err := PackBuf(buf, elts...); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// PackBuf is like Pack, but appends the encoding of elts to buf. On error buf
// may hold a partial encoding and should be discarded.
func PackBuf(buf *Buffer, elts ...interface{}) error {
	for _, e := range elts {
		if err := packValue(buf, reflect.ValueOf(e)); err != nil {
			return err
		}
	}
	return nil
}

// tryMarshal attempts to use a TPMMarshal() method defined on the type
// to pack v into buf. True is returned if the method exists and the
// marshal was attempted.
func tryMarshal(buf *Buffer, v reflect.Value) (bool, error) {
	t := v.Type()
	if t.Implements(selfMarshalerType) {
		if t.Kind() == reflect.Ptr && v.IsNil() {
			return true, fmt.Errorf("%w: cannot pack nil %s", ErrInputParameter, t)
		}
		return true, v.Interface().(SelfMarshaler).TPMMarshal(buf)
	}

	// We might have a non-pointer value whose pointer type implements the
	// interface. Copy it into a fresh pointer to call TPMMarshal().
	if reflect.PtrTo(t).Implements(selfMarshalerType) {
		tmp := reflect.New(t)
		tmp.Elem().Set(v)
		return true, tmp.Interface().(SelfMarshaler).TPMMarshal(buf)
	}

	return false, nil
}

func packValue(buf *Buffer, v reflect.Value) error {
	if !v.IsValid() {
		return fmt.Errorf("%w: cannot pack untyped nil", ErrInputParameter)
	}
	if canMarshal, err := tryMarshal(buf, v); canMarshal {
		return err
	}

	switch v.Kind() {
	case reflect.Ptr:
		if v.IsNil() {
			return fmt.Errorf("%w: cannot pack nil %s", ErrInputParameter, v.Type())
		}
		return packValue(buf, v.Elem())
	case reflect.Bool:
		if v.Bool() {
			buf.WriteUint8(1)
		} else {
			buf.WriteUint8(0)
		}
	case reflect.Uint8:
		buf.WriteUint8(uint8(v.Uint()))
	case reflect.Uint16:
		buf.WriteUint16(uint16(v.Uint()))
	case reflect.Uint32:
		buf.WriteUint32(uint32(v.Uint()))
	case reflect.Uint64:
		buf.WriteUint64(v.Uint())
	default:
		return fmt.Errorf("%w: cannot pack value of type %s", ErrInputParameter, v.Type())
	}
	return nil
}

// tryUnmarshal attempts to use TPMUnmarshal() to perform the unpack, if the
// given value implements SelfMarshaler. True is returned if TPMUnmarshal was
// called, along with its error.
func tryUnmarshal(buf *Buffer, v reflect.Value) (bool, error) {
	t := v.Type()
	if t.Kind() == reflect.Ptr && t.Implements(selfMarshalerType) {
		return true, v.Interface().(SelfMarshaler).TPMUnmarshal(buf)
	}
	return false, nil
}

// Unpack is a convenience wrapper around UnpackBuf. Unpack returns the number
// of bytes read from b to fill elts and error, if any.
func Unpack(b []byte, elts ...interface{}) (int, error) {
	buf := NewBuffer(b)
	err := UnpackBuf(buf, elts...)
	return len(b) - buf.Len(), err
}

// UnpackBuf decodes elts from buf in argument order, as the inverse of
// PackBuf. Every element must be a non-nil pointer. A RawBytes element is
// filled with exactly len(*elt) bytes.
func UnpackBuf(buf *Buffer, elts ...interface{}) error {
	for _, e := range elts {
		v := reflect.ValueOf(e)
		if !v.IsValid() || v.Kind() != reflect.Ptr {
			return fmt.Errorf("%w: non-pointer value %T passed to UnpackBuf", ErrInputParameter, e)
		}
		if v.IsNil() {
			return fmt.Errorf("%w: nil pointer passed to UnpackBuf", ErrInputParameter)
		}
		if err := unpackValue(buf, v); err != nil {
			return err
		}
	}
	return nil
}

func unpackValue(buf *Buffer, v reflect.Value) error {
	if didUnmarshal, err := tryUnmarshal(buf, v); didUnmarshal {
		return err
	}

	elem := v.Elem()
	switch elem.Kind() {
	case reflect.Bool:
		b, err := buf.ReadUint8()
		if err != nil {
			return err
		}
		if b > 1 {
			return fmt.Errorf("%w: invalid boolean encoding 0x%x", ErrDecode, b)
		}
		elem.SetBool(b == 1)
	case reflect.Uint8:
		x, err := buf.ReadUint8()
		if err != nil {
			return err
		}
		elem.SetUint(uint64(x))
	case reflect.Uint16:
		x, err := buf.ReadUint16()
		if err != nil {
			return err
		}
		elem.SetUint(uint64(x))
	case reflect.Uint32:
		x, err := buf.ReadUint32()
		if err != nil {
			return err
		}
		elem.SetUint(uint64(x))
	case reflect.Uint64:
		x, err := buf.ReadUint64()
		if err != nil {
			return err
		}
		elem.SetUint(x)
	default:
		return fmt.Errorf("%w: cannot unpack into %s", ErrInputParameter, v.Type())
	}
	return nil
}
