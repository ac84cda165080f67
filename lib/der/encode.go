/*
 * Copyright (c) SAS Institute Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package der

import (
	"bytes"
	"encoding/asn1"
	"fmt"
)

// Encode returns the DER encoding of v.
func Encode(v Value) []byte {
	var buf bytes.Buffer
	buf.Grow(v.EncodedLen())
	// writes to a bytes.Buffer cannot fail
	_ = v.Encode(&buf)
	return buf.Bytes()
}

// EncodeTo writes the encoding of v into dst and returns the number of bytes
// written. If dst is too small nothing is written and ErrOutputTooSmall is
// returned.
func EncodeTo(dst []byte, v Value) (int, error) {
	n := v.EncodedLen()
	if n > len(dst) {
		return 0, fmt.Errorf("%w: need %d bytes, have %d", ErrOutputTooSmall, n, len(dst))
	}
	w := &fixedWriter{buf: dst[:n]}
	if err := v.Encode(w); err != nil {
		return 0, err
	}
	return w.n, nil
}

// CopyTo is the fixed-capacity counterpart of returning an already encoded
// blob.
func CopyTo(dst, src []byte) (int, error) {
	if len(src) > len(dst) {
		return 0, fmt.Errorf("%w: need %d bytes, have %d", ErrOutputTooSmall, len(src), len(dst))
	}
	return copy(dst, src), nil
}

type fixedWriter struct {
	buf []byte
	n   int
}

func (w *fixedWriter) Write(d []byte) (int, error) {
	if len(d) > len(w.buf)-w.n {
		return 0, ErrOutputTooSmall
	}
	copy(w.buf[w.n:], d)
	w.n += len(d)
	return len(d), nil
}

func (w *fixedWriter) WriteByte(c byte) error {
	if w.n >= len(w.buf) {
		return ErrOutputTooSmall
	}
	w.buf[w.n] = c
	w.n++
	return nil
}

// Marshal encodes a Go value with encoding/asn1 and then checks that the
// result is canonical.
func Marshal(val any) ([]byte, error) {
	return MarshalWithParams(val, "")
}

func MarshalWithParams(val any, params string) ([]byte, error) {
	blob, err := asn1.MarshalWithParams(val, params)
	if err != nil {
		return nil, err
	}
	if _, err := Parse(blob); err != nil {
		return nil, err
	}
	return blob, nil
}

// Unmarshal validates that data is a single canonical DER value and then
// decodes it into val with encoding/asn1.
func Unmarshal(data []byte, val any) error {
	return UnmarshalWithParams(data, val, "")
}

func UnmarshalWithParams(data []byte, val any, params string) error {
	if _, err := Parse(data); err != nil {
		return err
	}
	if _, err := asn1.UnmarshalWithParams(data, val, params); err != nil {
		return fmt.Errorf("%w: %s", ErrMalformedStructure, err)
	}
	return nil
}
