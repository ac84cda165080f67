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
	"crypto/rand"
	"encoding/asn1"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sassoftware/fwseal/lib/der"
)

func encryptAndParse(t *testing.T, content, key []byte, alg asn1.ObjectIdentifier, unprotected AttributeList) *EncryptedData {
	t.Helper()
	ci, err := Encrypt(OidCompressedData, content, key, alg, unprotected)
	require.NoError(t, err)
	blob, err := ci.Marshal()
	require.NoError(t, err)
	_, content2, err := ParseContentInfo(blob)
	require.NoError(t, err)
	ed, ok := content2.(*EncryptedData)
	require.True(t, ok)
	return ed
}

func TestEncryptRoundTrip(t *testing.T) {
	for _, name := range CipherNames() {
		t.Run(name, func(t *testing.T) {
			c, err := CipherByName(name)
			require.NoError(t, err)
			key, err := c.GenerateKey(rand.Reader)
			require.NoError(t, err)
			for _, size := range []int{0, 1, c.BlockSize - 1, c.BlockSize, 1000} {
				content := bytes.Repeat([]byte{0x5a}, size)
				ed := encryptAndParse(t, content, key, c.Oid, nil)
				assert.Equal(t, 0, ed.Version)
				assert.True(t, ed.ContentType().Equal(OidCompressedData))
				ct := ed.EncryptedContentInfo.EncryptedContent
				assert.Zero(t, len(ct)%c.BlockSize)
				assert.Greater(t, len(ct), size)
				plain, err := ed.Decrypt(key)
				require.NoError(t, err)
				assert.Equal(t, content, plain)
			}
		})
	}
}

func TestEncryptRandomIV(t *testing.T) {
	a := encryptAndParse(t, helloWorld, aes256Key, OidEncryptionAES256CBC, nil)
	b := encryptAndParse(t, helloWorld, aes256Key, OidEncryptionAES256CBC, nil)
	assert.NotEqual(t, a.EncryptedContentInfo.ContentEncryptionAlgorithm.Parameters.FullBytes,
		b.EncryptedContentInfo.ContentEncryptionAlgorithm.Parameters.FullBytes)
	assert.NotEqual(t, a.EncryptedContentInfo.EncryptedContent, b.EncryptedContentInfo.EncryptedContent)
}

func TestEncryptUnprotectedAttributes(t *testing.T) {
	var attrs AttributeList
	require.NoError(t, attrs.AddRaw(OidAttributeMessageType, []byte{0x13, 0x02, '1', '9'}))
	ed := encryptAndParse(t, helloWorld, aes256Key, OidEncryptionAES256CBC, attrs)
	assert.Equal(t, 2, ed.Version)
	var mt string
	require.NoError(t, ed.UnprotectedAttrs.GetOne(OidAttributeMessageType, &mt))
	assert.Equal(t, "19", mt)
	plain, err := ed.Decrypt(aes256Key)
	require.NoError(t, err)
	assert.Equal(t, helloWorld, plain)
}

func TestEncryptKeyMismatch(t *testing.T) {
	_, err := Encrypt(OidCompressedData, helloWorld, aes256Key[:16], OidEncryptionAES256CBC, nil)
	assert.ErrorIs(t, err, ErrKeyMismatch)
	_, err = Encrypt(OidCompressedData, helloWorld, aes256Key, asn1.ObjectIdentifier{1, 2, 3}, nil)
	assert.ErrorIs(t, err, ErrUnsupportedAlgorithm)

	ed := encryptAndParse(t, helloWorld, aes256Key, OidEncryptionAES256CBC, nil)
	_, err = ed.Decrypt(aes256Key[:24])
	assert.ErrorIs(t, err, ErrKeyMismatch)
}

func TestDecryptWrongKey(t *testing.T) {
	ed := encryptAndParse(t, helloWorld, aes256Key, OidEncryptionAES256CBC, nil)
	wrong := bytes.Repeat([]byte{0x42}, 32)
	plain, err := ed.Decrypt(wrong)
	// a wrong key almost always breaks the padding, and never yields the
	// original plaintext
	if err != nil {
		assert.Equal(t, ErrInvalidPadding, err)
	} else {
		assert.NotEqual(t, helloWorld, plain)
	}
}

func TestDecryptMalformed(t *testing.T) {
	ed := encryptAndParse(t, helloWorld, aes256Key, OidEncryptionAES256CBC, nil)

	truncated := *ed
	truncated.EncryptedContentInfo.EncryptedContent = ed.EncryptedContentInfo.EncryptedContent[:15]
	_, err := truncated.Decrypt(aes256Key)
	assert.ErrorIs(t, err, ErrDecryption)

	empty := *ed
	empty.EncryptedContentInfo.EncryptedContent = nil
	_, err = empty.Decrypt(aes256Key)
	assert.ErrorIs(t, err, ErrDecryption)

	badIV := *ed
	badIV.EncryptedContentInfo.ContentEncryptionAlgorithm.Parameters = asn1.RawValue{FullBytes: der.Encode(der.OctetString(make([]byte, 8)))}
	_, err = badIV.Decrypt(aes256Key)
	assert.ErrorIs(t, err, ErrDecryption)

	noIV := *ed
	noIV.EncryptedContentInfo.ContentEncryptionAlgorithm.Parameters = asn1.RawValue{}
	_, err = noIV.Decrypt(aes256Key)
	assert.ErrorIs(t, err, ErrDecryption)

	unknown := *ed
	unknown.EncryptedContentInfo.ContentEncryptionAlgorithm.Algorithm = asn1.ObjectIdentifier{1, 2, 3, 4}
	_, err = unknown.Decrypt(aes256Key)
	assert.ErrorIs(t, err, ErrUnsupportedAlgorithm)
}

func TestDecryptTo(t *testing.T) {
	ed := encryptAndParse(t, helloWorld, aes256Key, OidEncryptionAES256CBC, nil)
	buf := make([]byte, len(helloWorld))
	n, err := ed.DecryptTo(aes256Key, buf)
	require.NoError(t, err)
	assert.Equal(t, helloWorld, buf[:n])

	n, err = ed.DecryptTo(aes256Key, buf[:4])
	assert.ErrorIs(t, err, ErrOutputTooSmall)
	assert.Zero(t, n)
}
