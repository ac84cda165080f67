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
	"crypto/x509/pkix"
	"encoding/asn1"
	"errors"
	"fmt"
	"io"

	"github.com/klauspost/compress/zlib"
)

// DefaultMaxDecompressedSize bounds Decompress when the caller passes a limit
// of zero.
const DefaultMaxDecompressedSize = 64 << 20

// Compress deflates content with zlib and returns it as a CompressedData
// ContentInfo. contentType names the uncompressed content.
func Compress(contentType asn1.ObjectIdentifier, content []byte) (*ContentInfoCompressedData, error) {
	return CompressLevel(contentType, content, zlib.DefaultCompression)
}

// CompressLevel is Compress with an explicit zlib level.
func CompressLevel(contentType asn1.ObjectIdentifier, content []byte, level int) (*ContentInfoCompressedData, error) {
	var buf bytes.Buffer
	w, err := zlib.NewWriterLevel(&buf, level)
	if err != nil {
		return nil, fmt.Errorf("pkcs7: %w", err)
	}
	if _, err := w.Write(content); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	encap, err := NewContentInfo(contentType, buf.Bytes())
	if err != nil {
		return nil, err
	}
	return &ContentInfoCompressedData{
		ContentType: OidCompressedData,
		Content: CompressedData{
			Version:              0,
			CompressionAlgorithm: pkix.AlgorithmIdentifier{Algorithm: OidCompressionZlib},
			EncapContentInfo:     encap,
		},
	}, nil
}

// ContentType returns the type of the compressed content.
func (cd *CompressedData) ContentType() asn1.ObjectIdentifier {
	return cd.EncapContentInfo.ContentType
}

// Decompress inflates the content. If the result would exceed limit bytes it
// fails with ErrOutputTooSmall. A limit of zero means
// DefaultMaxDecompressedSize.
func (cd *CompressedData) Decompress(limit int) ([]byte, error) {
	if limit <= 0 {
		limit = DefaultMaxDecompressedSize
	}
	var buf bytes.Buffer
	if err := cd.decompress(&buf, limit); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DecompressTo inflates into dst and returns the number of bytes written.
func (cd *CompressedData) DecompressTo(dst []byte) (int, error) {
	w := &sliceWriter{buf: dst}
	if err := cd.decompress(w, len(dst)); err != nil {
		return 0, err
	}
	return w.n, nil
}

func (cd *CompressedData) decompress(w io.Writer, limit int) error {
	if !cd.CompressionAlgorithm.Algorithm.Equal(OidCompressionZlib) {
		return fmt.Errorf("%w: compression %s", ErrUnsupportedAlgorithm, cd.CompressionAlgorithm.Algorithm)
	}
	compressed, err := cd.EncapContentInfo.Bytes()
	if err != nil {
		return err
	} else if compressed == nil {
		return ErrNoContent
	}
	r, err := zlib.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return fmt.Errorf("%w: %s", ErrDecompression, err)
	}
	defer r.Close()
	// read one byte past the limit to detect overflow
	n, err := io.Copy(w, io.LimitReader(r, int64(limit)+1))
	if err == errSliceFull || n > int64(limit) {
		return fmt.Errorf("%w: decompressed content exceeds %d bytes", ErrOutputTooSmall, limit)
	} else if err != nil {
		return fmt.Errorf("%w: %s", ErrDecompression, err)
	}
	return nil
}

var errSliceFull = errors.New("pkcs7: output buffer full")

type sliceWriter struct {
	buf []byte
	n   int
}

func (w *sliceWriter) Write(d []byte) (int, error) {
	if len(d) > len(w.buf)-w.n {
		return 0, errSliceFull
	}
	copy(w.buf[w.n:], d)
	w.n += len(d)
	return len(d), nil
}
