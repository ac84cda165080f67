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

import "io"

const constructedBit = 0x20

// makeIdentifier builds identifier octets, using the high-tag-number form for
// tags of 31 and above.
func makeIdentifier(class Class, constructed bool, tag int) []byte {
	b := byte(class) << 6
	if constructed {
		b |= constructedBit
	}
	if tag < 0x1f {
		return []byte{b | byte(tag)}
	}
	var rev []byte
	for t := tag; t > 0; t >>= 7 {
		rev = append(rev, byte(t&0x7f))
	}
	id := make([]byte, 1, len(rev)+1)
	id[0] = b | 0x1f
	for i := len(rev) - 1; i >= 0; i-- {
		c := rev[i]
		if i > 0 {
			c |= 0x80
		}
		id = append(id, c)
	}
	return id
}

func identifierClass(id []byte) Class {
	return Class(id[0] >> 6)
}

func identifierConstructed(id []byte) bool {
	return id[0]&constructedBit != 0
}

func identifierTag(id []byte) int {
	if id[0]&0x1f != 0x1f {
		return int(id[0] & 0x1f)
	}
	var tag int
	for _, c := range id[1:] {
		tag = tag<<7 | int(c&0x7f)
	}
	return tag
}

// encodedLengthSize gives the number of octets used for encoding the length.
func encodedLengthSize(length int) int {
	if length < 0x80 {
		return 1
	}
	lengthSize := 1
	for ; length > 0; lengthSize++ {
		length >>= 8
	}
	return lengthSize
}

// encodeLength writes length octets using the short form below 128 and the
// minimal long form otherwise.
func encodeLength(w io.ByteWriter, length int) error {
	if length < 0x80 {
		return w.WriteByte(byte(length))
	}
	lengthSize := encodedLengthSize(length)
	if err := w.WriteByte(0x80 | byte(lengthSize-1)); err != nil {
		return err
	}
	for i := lengthSize - 1; i > 0; i-- {
		if err := w.WriteByte(byte(length >> (8 * (i - 1)))); err != nil {
			return err
		}
	}
	return nil
}

// decodeIdentifier reads identifier octets starting at off and returns them
// along with the offset following them.
func decodeIdentifier(data []byte, off int) ([]byte, int, error) {
	if off >= len(data) {
		return nil, off, structureError(off, "missing identifier")
	}
	start := off
	b := data[off]
	off++
	if b&0x1f != 0x1f {
		return data[start:off], off, nil
	}
	// high-tag-number form
	for i := 0; ; i++ {
		if off >= len(data) {
			return nil, off, structureError(off, "truncated identifier")
		}
		c := data[off]
		off++
		if i == 0 && c == 0x80 {
			return nil, off, structureError(start, "non-minimal tag number")
		}
		if i >= 3 {
			return nil, off, structureError(start, "tag number too large")
		}
		if c&0x80 == 0 {
			break
		}
	}
	id := data[start:off]
	if identifierTag(id) < 0x1f {
		return nil, off, structureError(start, "high-tag-number form used for small tag")
	}
	return id, off, nil
}

// decodeLength reads length octets starting at off. The returned length is
// guaranteed to fit within data.
func decodeLength(data []byte, off int) (int, int, error) {
	if off >= len(data) {
		return 0, off, lengthError(off, "missing length")
	}
	start := off
	b := data[off]
	off++
	switch {
	case b < 0x80:
		if int(b) > len(data)-off {
			return 0, off, lengthError(start, "length exceeds remaining input")
		}
		return int(b), off, nil
	case b == 0x80:
		return 0, off, lengthError(start, "indefinite length")
	case b == 0xff:
		return 0, off, lengthError(start, "reserved length octet")
	}
	n := int(b & 0x7f)
	if n > 4 {
		return 0, off, lengthError(start, "too many length octets")
	}
	if n > len(data)-off {
		return 0, off, lengthError(start, "truncated length")
	}
	if data[off] == 0 {
		return 0, off, lengthError(start, "non-minimal length")
	}
	var length uint64
	for i := 0; i < n; i++ {
		length = length<<8 | uint64(data[off])
		off++
	}
	if length < 0x80 {
		return 0, off, lengthError(start, "long form used for short length")
	}
	if length > uint64(len(data)-off) {
		return 0, off, lengthError(start, "length exceeds remaining input")
	}
	return int(length), off, nil
}
