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

package fwbundle

import (
	"bytes"
	"encoding/pem"
	"errors"
)

const pemType = "CMS"

var pemPrefix = []byte("-----BEGIN ")

// Armor wraps a DER bundle in a CMS PEM block.
func Armor(blob []byte) []byte {
	return pem.EncodeToMemory(&pem.Block{Type: pemType, Bytes: blob})
}

// Unarmor returns the DER contents of a CMS or PKCS7 PEM block. Input that is
// not PEM is returned unchanged.
func Unarmor(blob []byte) ([]byte, error) {
	trimmed := bytes.TrimLeft(blob, " \t\r\n")
	if !bytes.HasPrefix(trimmed, pemPrefix) {
		return blob, nil
	}
	rest := trimmed
	for {
		var block *pem.Block
		block, rest = pem.Decode(rest)
		if block == nil {
			return nil, errors.New("fwbundle: no CMS block found in PEM input")
		}
		if block.Type == pemType || block.Type == "PKCS7" {
			return block.Bytes, nil
		}
	}
}
