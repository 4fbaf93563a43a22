// Copyright 2025 The indexed Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package indexed

import "fmt"

// KeyCodec converts caller keys to and from the byte strings stored in the
// on-disk index. A codec rejecting a key's type must return an error
// wrapping ErrKeySerialization rather than coercing.
type KeyCodec interface {
	Encode(key any) ([]byte, error)
	Decode(b []byte) (any, error)
}

// StringCodec stores string keys as their UTF-8 bytes. It is the default.
type StringCodec struct{}

func (StringCodec) Encode(key any) ([]byte, error) {
	s, ok := key.(string)
	if !ok {
		return nil, fmt.Errorf("%w: want string, got %T", ErrKeySerialization, key)
	}
	return []byte(s), nil
}

func (StringCodec) Decode(b []byte) (any, error) {
	return string(b), nil
}

// BytesCodec stores []byte keys as-is.
type BytesCodec struct{}

func (BytesCodec) Encode(key any) ([]byte, error) {
	b, ok := key.([]byte)
	if !ok {
		return nil, fmt.Errorf("%w: want []byte, got %T", ErrKeySerialization, key)
	}
	return b, nil
}

func (BytesCodec) Decode(b []byte) (any, error) {
	out := make([]byte, len(b))
	copy(out, b)
	return out, nil
}
