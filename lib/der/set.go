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
	"sort"
)

// SortSet orders encoded elements the way X.690 11.6 requires for SET OF:
// ascending by encoding, with a shorter element sorting first when it is a
// prefix of a longer one.
func SortSet(elems [][]byte) {
	sort.SliceStable(elems, func(i, j int) bool {
		return bytes.Compare(elems[i], elems[j]) < 0
	})
}

// MarshalSet sorts the already encoded elements and wraps them in a SET. The
// input slice is reordered.
func MarshalSet(elems [][]byte) []byte {
	return marshalSet(ClassUniversal, TagSet, elems)
}

// MarshalImplicitSet is MarshalSet with a context-specific tag, for fields
// such as "[0] IMPLICIT SET OF Attribute".
func MarshalImplicitSet(tag int, elems [][]byte) []byte {
	return marshalSet(ClassContextSpecific, tag, elems)
}

func marshalSet(class Class, tag int, elems [][]byte) []byte {
	SortSet(elems)
	var length int
	for _, e := range elems {
		length += len(e)
	}
	var buf bytes.Buffer
	id := makeIdentifier(class, true, tag)
	buf.Grow(len(id) + encodedLengthSize(length) + length)
	buf.Write(id)
	_ = encodeLength(&buf, length)
	for _, e := range elems {
		buf.Write(e)
	}
	return buf.Bytes()
}

func sortValues(vals []Value) {
	enc := make([][]byte, len(vals))
	for i, v := range vals {
		enc[i] = Encode(v)
	}
	idx := make([]int, len(vals))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return bytes.Compare(enc[idx[a]], enc[idx[b]]) < 0
	})
	sorted := make([]Value, len(vals))
	for i, j := range idx {
		sorted[i] = vals[j]
	}
	copy(vals, sorted)
}
