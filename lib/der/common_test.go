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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeLength(t *testing.T) {
	tests := []struct {
		name   string
		length int
		want   []byte
	}{
		{"zero", 0, []byte{0x00}},
		{"short form", 42, []byte{0x2a}},
		{"short form max", 127, []byte{0x7f}},
		{"long form min", 128, []byte{0x81, 0x80}},
		{"two octets", 0x1234, []byte{0x82, 0x12, 0x34}},
		{"long form", 1234567890, []byte{0x84, 0x49, 0x96, 0x02, 0xd2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, encodeLength(&buf, tt.length))
			assert.Equal(t, tt.want, buf.Bytes())
			assert.Equal(t, len(tt.want), encodedLengthSize(tt.length))
		})
	}
}

func TestDecodeLength(t *testing.T) {
	tests := []struct {
		name    string
		encoded []byte
		want    int
		wantErr bool
	}{
		{"short form", []byte{0x02, 0xaa, 0xbb}, 2, false},
		{"long form", append([]byte{0x81, 0x80}, make([]byte, 128)...), 128, false},
		{"indefinite", []byte{0x80, 0x00, 0x00}, 0, true},
		{"reserved", []byte{0xff}, 0, true},
		{"too many octets", []byte{0x85, 0x01, 0x00, 0x00, 0x00, 0x00}, 0, true},
		{"leading zero", []byte{0x82, 0x00, 0x85}, 0, true},
		{"long form for short length", []byte{0x81, 0x05, 1, 2, 3, 4, 5}, 0, true},
		{"overrun", []byte{0x05, 0x01, 0x02}, 0, true},
		{"truncated long form", []byte{0x82, 0x01}, 0, true},
		{"empty", nil, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, _, err := decodeLength(tt.encoded, 0)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrMalformedLength)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDecodeIdentifier(t *testing.T) {
	tests := []struct {
		name    string
		encoded []byte
		tag     int
		wantErr bool
	}{
		{"low tag", []byte{0x30}, TagSequence, false},
		{"context specific", []byte{0xa0}, 0, false},
		{"high tag", []byte{0x9f, 0x81, 0x00}, 128, false},
		{"high tag one octet", []byte{0x9f, 0x1f}, 31, false},
		{"high tag for small number", []byte{0x9f, 0x05}, 0, true},
		{"high tag leading zero", []byte{0x9f, 0x80, 0x01}, 0, true},
		{"truncated", []byte{0x9f, 0x81}, 0, true},
		{"empty", nil, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, _, err := decodeIdentifier(tt.encoded, 0)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrMalformedStructure)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.tag, identifierTag(id))
			assert.Equal(t, tt.encoded, makeIdentifier(identifierClass(id), identifierConstructed(id), tt.tag))
		})
	}
}
