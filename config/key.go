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

package config

import (
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"
	"os"

	"github.com/sassoftware/fwseal/lib/pkcs7"
)

// GetCipher returns the configured content-encryption algorithm.
func (enc *EncryptionConfig) GetCipher() (*pkcs7.Cipher, error) {
	return pkcs7.CipherByName(enc.Cipher)
}

// LoadKey returns the content-encryption key from key_env or key_file, in
// that order. Files may hold the raw key or its hex encoding.
func (enc *EncryptionConfig) LoadKey() ([]byte, error) {
	ciph, err := enc.GetCipher()
	if err != nil {
		return nil, err
	}
	var key []byte
	switch {
	case enc.KeyEnv != "":
		value, ok := os.LookupEnv(enc.KeyEnv)
		if !ok {
			return nil, fmt.Errorf("encryption.key_env: %s is not set", enc.KeyEnv)
		}
		key, err = hex.DecodeString(string(bytes.TrimSpace([]byte(value))))
		if err != nil {
			return nil, fmt.Errorf("encryption.key_env: %w", err)
		}
	case enc.KeyFile != "":
		blob, err := os.ReadFile(enc.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("encryption.key_file: %w", err)
		}
		key = decodeKey(blob, ciph.KeySize)
	default:
		return nil, errors.New("no content-encryption key configured; set encryption.key_file or encryption.key_env")
	}
	if len(key) != ciph.KeySize {
		return nil, fmt.Errorf("%w: %s needs a %d byte key but got %d", pkcs7.ErrKeyMismatch, ciph.Name, ciph.KeySize, len(key))
	}
	return key, nil
}

// decodeKey accepts either exactly size raw bytes or their hex encoding.
func decodeKey(blob []byte, size int) []byte {
	if len(blob) == size {
		return blob
	}
	trimmed := bytes.TrimSpace(blob)
	if decoded, err := hex.DecodeString(string(trimmed)); err == nil {
		return decoded
	}
	return blob
}
