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
	"io"

	"github.com/sassoftware/fwseal/lib/der"
	"github.com/sassoftware/fwseal/lib/pkcs7"
)

type FileType int

const (
	FileTypeUnknown FileType = iota
	FileTypeSignedData
	FileTypeEncryptedData
	FileTypeCompressedData
	FileTypePEM
	FileTypeGzip
	FileTypeXz
	FileTypeZstd
	FileTypeBzip2
	FileTypeZip
	FileTypeELF
	FileTypeUImage
)

var names = map[FileType]string{
	FileTypeUnknown:        "unknown",
	FileTypeSignedData:     "cms-signed",
	FileTypeEncryptedData:  "cms-encrypted",
	FileTypeCompressedData: "cms-compressed",
	FileTypePEM:            "pem",
	FileTypeGzip:           "gzip",
	FileTypeXz:             "xz",
	FileTypeZstd:           "zstd",
	FileTypeBzip2:          "bzip2",
	FileTypeZip:            "zip",
	FileTypeELF:            "elf",
	FileTypeUImage:         "uimage",
}

func (t FileType) String() string {
	if name, ok := names[t]; ok {
		return name
	}
	return names[FileTypeUnknown]
}

var (
	signedDataOID     = der.Encode(der.MustObjectIdentifier(pkcs7.OidSignedData))
	encryptedDataOID  = der.Encode(der.MustObjectIdentifier(pkcs7.OidEncryptedData))
	compressedDataOID = der.Encode(der.MustObjectIdentifier(pkcs7.OidCompressedData))
)

// IsCMS is true for the DER envelope types.
func (t FileType) IsCMS() bool {
	return t == FileTypeSignedData || t == FileTypeEncryptedData || t == FileTypeCompressedData
}

// Detect reads up to 1KiB from r and identifies the content.
func Detect(r io.Reader) FileType {
	var buf [1024]byte
	n, _ := io.ReadFull(r, buf[:])
	return DetectBytes(buf[:n])
}

// DetectBytes identifies blob from its leading bytes.
func DetectBytes(blob []byte) FileType {
	switch {
	case len(blob) == 0:
		return FileTypeUnknown
	case blob[0] == 0x30:
		// the content type OID follows the outer SEQUENCE header, which is
		// at most 6 bytes. The rest of the input may be truncated.
		head := blob
		if len(head) > 6+len(compressedDataOID) {
			head = head[:6+len(compressedDataOID)]
		}
		switch {
		case bytes.Contains(head, signedDataOID):
			return FileTypeSignedData
		case bytes.Contains(head, encryptedDataOID):
			return FileTypeEncryptedData
		case bytes.Contains(head, compressedDataOID):
			return FileTypeCompressedData
		}
	case bytes.HasPrefix(bytes.TrimLeft(blob, " \t\r\n"), []byte("-----BEGIN ")):
		return FileTypePEM
	case bytes.HasPrefix(blob, []byte{0x1f, 0x8b}):
		return FileTypeGzip
	case bytes.HasPrefix(blob, []byte("\xfd7zXZ\x00")):
		return FileTypeXz
	case bytes.HasPrefix(blob, []byte{0x28, 0xb5, 0x2f, 0xfd}):
		return FileTypeZstd
	case bytes.HasPrefix(blob, []byte("BZh")):
		return FileTypeBzip2
	case bytes.HasPrefix(blob, []byte{0x50, 0x4b, 0x03, 0x04}):
		return FileTypeZip
	case bytes.HasPrefix(blob, []byte("\x7fELF")):
		return FileTypeELF
	case bytes.HasPrefix(blob, []byte{0x27, 0x05, 0x19, 0x56}):
		return FileTypeUImage
	}
	return FileTypeUnknown
}
