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

package magic

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sassoftware/fwseal/lib/pkcs7"
)

func TestDetectBytes(t *testing.T) {
	tests := []struct {
		blob     []byte
		expected FileType
	}{
		{nil, FileTypeUnknown},
		{[]byte("\x1f\x8b\x08\x00"), FileTypeGzip},
		{[]byte("\xfd7zXZ\x00\x00"), FileTypeXz},
		{[]byte{0x28, 0xb5, 0x2f, 0xfd, 0x00}, FileTypeZstd},
		{[]byte("BZh91AY"), FileTypeBzip2},
		{[]byte("PK\x03\x04\x14\x00"), FileTypeZip},
		{[]byte("\x7fELF\x02\x01\x01"), FileTypeELF},
		{[]byte{0x27, 0x05, 0x19, 0x56, 0x00}, FileTypeUImage},
		{[]byte("\n-----BEGIN CMS-----\n"), FileTypePEM},
		{[]byte{0x30, 0x03, 0x02, 0x01, 0x00}, FileTypeUnknown},
		{[]byte("plain text"), FileTypeUnknown},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, DetectBytes(tt.blob), "%q", tt.blob)
	}
}

func TestDetectCMS(t *testing.T) {
	payload := bytes.Repeat([]byte("firmware"), 1000)
	comp, err := pkcs7.Compress(pkcs7.OidFirmwarePackage, payload)
	require.NoError(t, err)
	compDER, err := comp.Marshal()
	require.NoError(t, err)
	assert.Equal(t, FileTypeCompressedData, DetectBytes(compDER))

	key := bytes.Repeat([]byte{1}, 16)
	enc, err := pkcs7.Encrypt(pkcs7.OidCompressedData, payload, key, pkcs7.OidEncryptionAES128CBC, nil)
	require.NoError(t, err)
	encDER, err := enc.Marshal()
	require.NoError(t, err)
	// Detect only sees the first 1KiB of the larger encoding
	ft := Detect(bytes.NewReader(encDER))
	assert.Equal(t, FileTypeEncryptedData, ft)
	assert.True(t, ft.IsCMS())
	assert.Equal(t, "cms-encrypted", ft.String())
	assert.False(t, FileTypeGzip.IsCMS())
	assert.Equal(t, "unknown", FileType(99).String())
}
