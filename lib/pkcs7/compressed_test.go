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
	"bytes"
	"encoding/asn1"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func compressAndParse(t *testing.T, content []byte) *CompressedData {
	t.Helper()
	ci, err := Compress(OidFirmwarePackage, content)
	require.NoError(t, err)
	blob, err := ci.Marshal()
	require.NoError(t, err)
	outer, parsed, err := ParseContentInfo(blob)
	require.NoError(t, err)
	assert.True(t, outer.ContentType.Equal(OidCompressedData))
	cd, ok := parsed.(*CompressedData)
	require.True(t, ok)
	return cd
}

func TestCompressRoundTrip(t *testing.T) {
	big := bytes.Repeat([]byte("firmware "), 10000)
	for _, content := range [][]byte{helloWorld, big, {}} {
		cd := compressAndParse(t, content)
		assert.Equal(t, 0, cd.Version)
		assert.True(t, cd.CompressionAlgorithm.Algorithm.Equal(OidCompressionZlib))
		assert.True(t, cd.ContentType().Equal(OidFirmwarePackage))
		out, err := cd.Decompress(0)
		require.NoError(t, err)
		assert.Equal(t, len(content), len(out))
		assert.True(t, bytes.Equal(content, out))
	}
	compressed, err := compressAndParse(t, big).EncapContentInfo.Bytes()
	require.NoError(t, err)
	assert.Less(t, len(compressed), len(big)/10)
}

func TestDecompressLimit(t *testing.T) {
	content := bytes.Repeat([]byte{0}, 4096)
	cd := compressAndParse(t, content)
	_, err := cd.Decompress(4095)
	assert.ErrorIs(t, err, ErrOutputTooSmall)
	out, err := cd.Decompress(4096)
	require.NoError(t, err)
	assert.Len(t, out, 4096)

	buf := make([]byte, 4096)
	n, err := cd.DecompressTo(buf)
	require.NoError(t, err)
	assert.Equal(t, 4096, n)
	n, err = cd.DecompressTo(buf[:100])
	assert.ErrorIs(t, err, ErrOutputTooSmall)
	assert.Zero(t, n)
}

func TestDecompressErrors(t *testing.T) {
	cd := compressAndParse(t, helloWorld)

	unknown := *cd
	unknown.CompressionAlgorithm.Algorithm = asn1.ObjectIdentifier{1, 2, 3}
	_, err := unknown.Decompress(0)
	assert.ErrorIs(t, err, ErrUnsupportedAlgorithm)

	compressed, err := cd.EncapContentInfo.Bytes()
	require.NoError(t, err)
	corrupt := append([]byte{}, compressed...)
	// flip a bit in the adler32 trailer
	corrupt[len(corrupt)-1] ^= 0x01
	bad := *cd
	bad.EncapContentInfo, err = NewContentInfo(OidFirmwarePackage, corrupt)
	require.NoError(t, err)
	_, err = bad.Decompress(0)
	assert.ErrorIs(t, err, ErrDecompression)

	garbage := *cd
	garbage.EncapContentInfo, err = NewContentInfo(OidFirmwarePackage, []byte("not zlib at all"))
	require.NoError(t, err)
	_, err = garbage.Decompress(0)
	assert.ErrorIs(t, err, ErrDecompression)

	missing := *cd
	missing.EncapContentInfo = ContentInfo{ContentType: OidFirmwarePackage}
	_, err = missing.Decompress(0)
	assert.ErrorIs(t, err, ErrNoContent)
}
