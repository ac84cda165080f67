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
	"crypto/aes"
	"crypto/cipher"
	"crypto/des"
	"crypto/rand"
	"crypto/x509/pkix"
	"encoding/asn1"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/sassoftware/fwseal/lib/der"
)

var (
	OidEncryptionAES128CBC  = asn1.ObjectIdentifier{2, 16, 840, 1, 101, 3, 4, 1, 2}
	OidEncryptionAES192CBC  = asn1.ObjectIdentifier{2, 16, 840, 1, 101, 3, 4, 1, 22}
	OidEncryptionAES256CBC  = asn1.ObjectIdentifier{2, 16, 840, 1, 101, 3, 4, 1, 42}
	OidEncryptionDESEDE3CBC = asn1.ObjectIdentifier{1, 2, 840, 113549, 3, 7}
)

// Cipher describes a supported content-encryption algorithm.
type Cipher struct {
	Name      string
	Oid       asn1.ObjectIdentifier
	KeySize   int
	BlockSize int
	newBlock  func(key []byte) (cipher.Block, error)
}

var ciphers = []*Cipher{
	{"aes128-cbc", OidEncryptionAES128CBC, 16, aes.BlockSize, aes.NewCipher},
	{"aes192-cbc", OidEncryptionAES192CBC, 24, aes.BlockSize, aes.NewCipher},
	{"aes256-cbc", OidEncryptionAES256CBC, 32, aes.BlockSize, aes.NewCipher},
	{"des-ede3-cbc", OidEncryptionDESEDE3CBC, 24, des.BlockSize, des.NewTripleDESCipher},
}

// CipherByOid looks up a content-encryption algorithm.
func CipherByOid(oid asn1.ObjectIdentifier) (*Cipher, error) {
	for _, c := range ciphers {
		if c.Oid.Equal(oid) {
			return c, nil
		}
	}
	return nil, fmt.Errorf("%w: content encryption %s", ErrUnsupportedAlgorithm, oid)
}

// CipherByName looks up a content-encryption algorithm by a name such as
// "aes256-cbc".
func CipherByName(name string) (*Cipher, error) {
	lname := strings.ToLower(name)
	for _, c := range ciphers {
		if c.Name == lname {
			return c, nil
		}
	}
	return nil, fmt.Errorf("%w: cipher %q, supported ciphers are: %s", ErrUnsupportedAlgorithm, name, strings.Join(CipherNames(), ", "))
}

func CipherNames() []string {
	names := make([]string, len(ciphers))
	for i, c := range ciphers {
		names[i] = c.Name
	}
	sort.Strings(names)
	return names
}

// GenerateKey returns a random key of the right size for the cipher.
func (c *Cipher) GenerateKey(rand io.Reader) ([]byte, error) {
	key := make([]byte, c.KeySize)
	if _, err := io.ReadFull(rand, key); err != nil {
		return nil, err
	}
	return key, nil
}

func (c *Cipher) block(key []byte) (cipher.Block, error) {
	if len(key) != c.KeySize {
		return nil, fmt.Errorf("%w: %s needs a %d byte key but got %d bytes", ErrKeyMismatch, c.Name, c.KeySize, len(key))
	}
	block, err := c.newBlock(key)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrKeyMismatch, err)
	}
	return block, nil
}

// Encrypt pads and encrypts content in CBC mode under a fresh random IV and
// returns it as an EncryptedData ContentInfo. contentType names what the
// plaintext is. Unprotected attributes are optional.
func Encrypt(contentType asn1.ObjectIdentifier, content, key []byte, alg asn1.ObjectIdentifier, unprotected AttributeList) (*ContentInfoEncryptedData, error) {
	c, err := CipherByOid(alg)
	if err != nil {
		return nil, err
	}
	block, err := c.block(key)
	if err != nil {
		return nil, err
	}
	iv := make([]byte, c.BlockSize)
	if _, err := io.ReadFull(rand.Reader, iv); err != nil {
		return nil, err
	}
	ciphertext := pad(content, c.BlockSize)
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(ciphertext, ciphertext)

	version := 0
	if len(unprotected) != 0 {
		version = 2
	} else {
		unprotected = nil
	}
	return &ContentInfoEncryptedData{
		ContentType: OidEncryptedData,
		Content: EncryptedData{
			Version: version,
			EncryptedContentInfo: EncryptedContentInfo{
				ContentType: contentType,
				ContentEncryptionAlgorithm: pkix.AlgorithmIdentifier{
					Algorithm:  alg,
					Parameters: asn1.RawValue{FullBytes: der.Encode(der.OctetString(iv))},
				},
				EncryptedContent: ciphertext,
			},
			UnprotectedAttrs: unprotected,
		},
	}, nil
}

// ContentType returns the type of the encrypted plaintext.
func (ed *EncryptedData) ContentType() asn1.ObjectIdentifier {
	return ed.EncryptedContentInfo.ContentType
}

// Decrypt recovers the plaintext. Any problem with the padding is reported as
// ErrInvalidPadding without further detail.
func (ed *EncryptedData) Decrypt(key []byte) ([]byte, error) {
	eci := ed.EncryptedContentInfo
	c, err := CipherByOid(eci.ContentEncryptionAlgorithm.Algorithm)
	if err != nil {
		return nil, err
	}
	block, err := c.block(key)
	if err != nil {
		return nil, err
	}
	var iv []byte
	if err := der.Unmarshal(eci.ContentEncryptionAlgorithm.Parameters.FullBytes, &iv); err != nil {
		return nil, fmt.Errorf("%w: invalid IV parameter: %s", ErrDecryption, err)
	} else if len(iv) != c.BlockSize {
		return nil, fmt.Errorf("%w: IV must be %d bytes but got %d", ErrDecryption, c.BlockSize, len(iv))
	}
	ciphertext := eci.EncryptedContent
	if len(ciphertext) == 0 || len(ciphertext)%c.BlockSize != 0 {
		return nil, fmt.Errorf("%w: ciphertext length %d is not a multiple of the block size", ErrDecryption, len(ciphertext))
	}
	plaintext := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(plaintext, ciphertext)
	return unpad(plaintext, c.BlockSize)
}

// DecryptTo is Decrypt into a caller-supplied buffer.
func (ed *EncryptedData) DecryptTo(key, dst []byte) (int, error) {
	plaintext, err := ed.Decrypt(key)
	if err != nil {
		return 0, err
	}
	return der.CopyTo(dst, plaintext)
}
