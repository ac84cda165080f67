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

package pkcs7

import (
	"encoding/asn1"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sassoftware/fwseal/lib/der"
)

func TestContentInfoData(t *testing.T) {
	for _, ct := range []asn1.ObjectIdentifier{OidData, OidFirmwarePackage} {
		ci, err := NewContentInfo(ct, helloWorld)
		require.NoError(t, err)
		blob, err := ci.Marshal()
		require.NoError(t, err)
		parsed, content, err := ParseContentInfo(blob)
		require.NoError(t, err)
		assert.True(t, parsed.ContentType.Equal(ct))
		assert.Equal(t, Data(helloWorld), content)
	}
}

func TestContentInfoDispatch(t *testing.T) {
	comp, err := Compress(OidFirmwarePackage, helloWorld)
	require.NoError(t, err)
	enc, err := Encrypt(OidCompressedData, helloWorld, aes256Key, OidEncryptionAES256CBC, nil)
	require.NoError(t, err)
	compBlob, err := comp.Marshal()
	require.NoError(t, err)
	encBlob, err := enc.Marshal()
	require.NoError(t, err)

	_, content, err := ParseContentInfo(compBlob)
	require.NoError(t, err)
	assert.IsType(t, &CompressedData{}, content)
	_, content, err = ParseContentInfo(encBlob)
	require.NoError(t, err)
	assert.IsType(t, &EncryptedData{}, content)
}

func TestContentInfoUnknownType(t *testing.T) {
	ci, err := NewContentInfo(asn1.ObjectIdentifier{1, 2, 3, 4}, helloWorld)
	require.NoError(t, err)
	blob, err := ci.Marshal()
	require.NoError(t, err)
	_, _, err = ParseContentInfo(blob)
	assert.ErrorIs(t, err, ErrUnexpectedContentType)
}

func TestContentInfoMalformed(t *testing.T) {
	ci, err := NewContentInfo(OidData, helloWorld)
	require.NoError(t, err)
	blob, err := ci.Marshal()
	require.NoError(t, err)

	_, _, err = ParseContentInfo(blob[:len(blob)-1])
	assert.ErrorIs(t, err, der.ErrMalformedLength)
	_, _, err = ParseContentInfo(append(blob, 0))
	assert.ErrorIs(t, err, der.ErrMalformedStructure)

	// a SignedData type with OCTET STRING content does not decode
	ci.ContentType = OidSignedData
	blob, err = ci.Marshal()
	require.NoError(t, err)
	_, _, err = ParseContentInfo(blob)
	assert.ErrorIs(t, err, der.ErrMalformedStructure)

	// [1] instead of [0]
	bad := ContentInfo{ContentType: OidData, Content: ci.Content}
	bad.Content.Tag = 1
	_, err = bad.Bytes()
	assert.ErrorIs(t, err, der.ErrMalformedStructure)
}

func TestContentInfoExpect(t *testing.T) {
	ci := ContentInfo{ContentType: OidCompressedData}
	assert.NoError(t, ci.Expect(OidCompressedData))
	assert.NoError(t, ci.Expect(OidData, OidCompressedData))
	err := ci.Expect(OidEncryptedData)
	assert.ErrorIs(t, err, ErrUnexpectedContentType)
	var cte *ContentTypeError
	require.True(t, errors.As(err, &cte))
	assert.True(t, cte.Expected.Equal(OidEncryptedData))
	assert.True(t, cte.Found.Equal(OidCompressedData))
	assert.Equal(t, "pkcs7: expected content type encryptedData but found compressedData", err.Error())
}

func TestContentInfoDetached(t *testing.T) {
	ci, err := NewContentInfo(OidData, nil)
	require.NoError(t, err)
	blob, err := ci.Marshal()
	require.NoError(t, err)
	// SEQUENCE { OID }
	assert.Equal(t, byte(0x30), blob[0])
	assert.Equal(t, 2+len(der.Encode(der.MustObjectIdentifier(OidData))), len(blob))
	b, err := ci.Bytes()
	require.NoError(t, err)
	assert.Nil(t, b)
	var sd SignedData
	assert.ErrorIs(t, ci.Unmarshal(&sd), ErrNoContent)
}
