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
	"fmt"

	"github.com/sassoftware/fwseal/lib/der"
)

var (
	ErrUnsupportedAlgorithm  = errors.New("pkcs7: unsupported algorithm")
	ErrDecompression         = errors.New("pkcs7: decompression failed")
	ErrInvalidPadding        = errors.New("pkcs7: invalid padding")
	ErrKeyMismatch           = errors.New("pkcs7: key does not match")
	ErrDecryption            = errors.New("pkcs7: decryption failed")
	ErrSignatureMismatch     = errors.New("pkcs7: signature verification failed")
	ErrDigestMismatch        = errors.New("pkcs7: content digest does not match")
	ErrCertificateNotFound   = errors.New("pkcs7: certificate missing from signedData")
	ErrUnexpectedContentType = errors.New("pkcs7: unexpected content type")
	ErrNoAttribute           = errors.New("pkcs7: attribute not found")
	ErrNoContent             = errors.New("pkcs7: missing content")

	// ErrOutputTooSmall is returned by the fixed-capacity variants.
	ErrOutputTooSmall = der.ErrOutputTooSmall
)

// ContentTypeError reports a ContentInfo or attribute naming a different type
// than the one required. It matches ErrUnexpectedContentType.
type ContentTypeError struct {
	Expected asn1.ObjectIdentifier
	Found    asn1.ObjectIdentifier
}

func (e *ContentTypeError) Error() string {
	return fmt.Sprintf("pkcs7: expected content type %s but found %s", ContentTypeName(e.Expected), ContentTypeName(e.Found))
}

func (e *ContentTypeError) Is(target error) bool {
	return target == ErrUnexpectedContentType
}

// ContentTypeName gives a short name for well-known content types.
func ContentTypeName(oid asn1.ObjectIdentifier) string {
	switch {
	case oid.Equal(OidData):
		return "data"
	case oid.Equal(OidSignedData):
		return "signedData"
	case oid.Equal(OidEncryptedData):
		return "encryptedData"
	case oid.Equal(OidCompressedData):
		return "compressedData"
	case oid.Equal(OidFirmwarePackage):
		return "firmwarePackage"
	case oid == nil:
		return "<none>"
	default:
		return oid.String()
	}
}
