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
)

// Primitive is a value whose content octets are stored directly.
type Primitive struct {
	identifier []byte
	content    []byte
}

// NewPrimitive returns a primitive value with the given content. The content
// slice is retained.
func NewPrimitive(class Class, tag int, content []byte) *Primitive {
	return &Primitive{
		identifier: makeIdentifier(class, false, tag),
		content:    content,
	}
}

func (v *Primitive) Class() Class        { return identifierClass(v.identifier) }
func (v *Primitive) Tag() int            { return identifierTag(v.identifier) }
func (v *Primitive) IsConstructed() bool { return false }
func (v *Primitive) Content() []byte     { return v.content }

func (v *Primitive) EncodedLen() int {
	return len(v.identifier) + encodedLengthSize(len(v.content)) + len(v.content)
}

func (v *Primitive) Encode(w ValueWriter) error {
	if _, err := w.Write(v.identifier); err != nil {
		return err
	}
	if err := encodeLength(w, len(v.content)); err != nil {
		return err
	}
	_, err := w.Write(v.content)
	return err
}

// Constructed is a value made up of other values.
type Constructed struct {
	identifier []byte
	length     int
	members    []Value
}

// NewConstructed returns a constructed value holding members in the order
// given.
func NewConstructed(class Class, tag int, members ...Value) *Constructed {
	var length int
	for _, m := range members {
		length += m.EncodedLen()
	}
	return &Constructed{
		identifier: makeIdentifier(class, true, tag),
		length:     length,
		members:    members,
	}
}

func (v *Constructed) Class() Class        { return identifierClass(v.identifier) }
func (v *Constructed) Tag() int            { return identifierTag(v.identifier) }
func (v *Constructed) IsConstructed() bool { return true }

// Members returns the child values.
func (v *Constructed) Members() []Value { return v.members }

func (v *Constructed) Content() []byte {
	var buf bytes.Buffer
	buf.Grow(v.length)
	for _, m := range v.members {
		_ = m.Encode(&buf)
	}
	return buf.Bytes()
}

func (v *Constructed) EncodedLen() int {
	return len(v.identifier) + encodedLengthSize(v.length) + v.length
}

func (v *Constructed) Encode(w ValueWriter) error {
	if _, err := w.Write(v.identifier); err != nil {
		return err
	}
	if err := encodeLength(w, v.length); err != nil {
		return err
	}
	for _, m := range v.members {
		if err := m.Encode(w); err != nil {
			return err
		}
	}
	return nil
}

// Retag returns a copy of v with a different class and tag, keeping the
// constructed flag and content. This is how IMPLICIT tagging is applied and
// removed.
func Retag(v Value, class Class, tag int) Value {
	switch vv := v.(type) {
	case *Constructed:
		return &Constructed{
			identifier: makeIdentifier(class, true, tag),
			length:     vv.length,
			members:    vv.members,
		}
	default:
		return &Primitive{
			identifier: makeIdentifier(class, v.IsConstructed(), tag),
			content:    v.Content(),
		}
	}
}
