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
	"encoding/asn1"
	"fmt"
)

type decodeOptions struct {
	maxDepth int
}

type Option func(*decodeOptions)

// WithMaxDepth overrides DefaultMaxDepth.
func WithMaxDepth(depth int) Option {
	return func(o *decodeOptions) {
		o.maxDepth = depth
	}
}

// Decode reads one value from the start of data and returns it along with the
// number of bytes consumed. Decoded values alias data.
func Decode(data []byte, opts ...Option) (Value, int, error) {
	o := decodeOptions{maxDepth: DefaultMaxDepth}
	for _, opt := range opts {
		opt(&o)
	}
	d := decoder{data: data, maxDepth: o.maxDepth}
	v, end, err := d.value(0, 1)
	if err != nil {
		return nil, 0, err
	}
	return v, end, nil
}

// Parse decodes data as exactly one value with nothing following it.
func Parse(data []byte, opts ...Option) (Value, error) {
	if len(data) == 0 {
		return nil, structureError(0, "empty input")
	}
	v, n, err := Decode(data, opts...)
	if err != nil {
		return nil, err
	} else if n != len(data) {
		return nil, structureError(n, "trailing data")
	}
	return v, nil
}

// PeekObjectIdentifier returns the first member of a SEQUENCE when it is an
// OBJECT IDENTIFIER, which for a ContentInfo is its content type.
func PeekObjectIdentifier(data []byte) (asn1.ObjectIdentifier, error) {
	id, off, err := decodeIdentifier(data, 0)
	if err != nil {
		return nil, err
	}
	if identifierClass(id) != ClassUniversal || identifierTag(id) != TagSequence || !identifierConstructed(id) {
		return nil, structureError(0, "expected sequence")
	}
	length, off, err := decodeLength(data, off)
	if err != nil {
		return nil, err
	}
	body := data[:off+length]
	d := decoder{data: body, maxDepth: 1}
	v, _, err := d.value(off, 1)
	if err != nil {
		return nil, err
	}
	return AsObjectIdentifier(v)
}

type decoder struct {
	data     []byte
	maxDepth int
}

// value decodes the element at off and returns it with the offset following
// it. depth is the nesting level of the element being decoded.
func (d *decoder) value(off, depth int) (Value, int, error) {
	if depth > d.maxDepth {
		return nil, off, structureError(off, fmt.Sprintf("nesting exceeds depth %d", d.maxDepth))
	}
	start := off
	id, off, err := decodeIdentifier(d.data, off)
	if err != nil {
		return nil, off, err
	}
	length, off, err := decodeLength(d.data, off)
	if err != nil {
		return nil, off, err
	}
	end := off + length
	if err := checkForm(id); err != nil {
		return nil, start, structureError(start, err.Error())
	}
	if !identifierConstructed(id) {
		return &Primitive{identifier: id, content: d.data[off:end]}, end, nil
	}
	sub := decoder{data: d.data[:end], maxDepth: d.maxDepth}
	var members []Value
	for off < end {
		m, next, err := sub.value(off, depth+1)
		if err != nil {
			return nil, next, err
		}
		members = append(members, m)
		off = next
	}
	return &Constructed{identifier: id, length: length, members: members}, end, nil
}

// checkForm enforces the primitive/constructed encoding DER mandates for
// universal types.
func checkForm(id []byte) error {
	if identifierClass(id) != ClassUniversal {
		return nil
	}
	switch identifierTag(id) {
	case TagSequence, TagSet:
		if !identifierConstructed(id) {
			return fmt.Errorf("primitive encoding of constructed type %d", identifierTag(id))
		}
	case 0:
		return fmt.Errorf("reserved universal tag 0")
	default:
		if identifierConstructed(id) {
			return fmt.Errorf("constructed encoding of primitive type %d", identifierTag(id))
		}
	}
	return nil
}
