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

package sealcmd

import (
	"encoding/asn1"
	"fmt"
	"io"
	"strings"

	"github.com/kr/pretty"
	"github.com/spf13/cobra"

	"github.com/sassoftware/fwseal/cmdline/shared"
	"github.com/sassoftware/fwseal/lib/fwbundle"
	"github.com/sassoftware/fwseal/lib/magic"
	"github.com/sassoftware/fwseal/lib/pkcs7"
	"github.com/sassoftware/fwseal/lib/x509tools"
)

var InspectCmd = &cobra.Command{
	Use:   "inspect <file>",
	Short: "Show the envelope structure of a bundle",
	Args:  cobra.ExactArgs(1),
	RunE:  inspectCmd,
}

var argDump bool

func init() {
	shared.RootCmd.AddCommand(InspectCmd)
	flags := InspectCmd.Flags()
	addEncryptionFlags(flags, true)
	flags.BoolVar(&argDump, "dump", false, "Pretty-print the decoded structure of each layer")
}

var attributeNames = map[string]string{
	pkcs7.OidAttributeContentType.String():   "contentType",
	pkcs7.OidAttributeMessageDigest.String(): "messageDigest",
	pkcs7.OidAttributeSigningTime.String():   "signingTime",
	pkcs7.OidAttributeMessageType.String():   "messageType",
}

func inspectCmd(cmd *cobra.Command, args []string) error {
	path := args[0]
	blob, err := shared.ReadFile(path)
	if err != nil {
		return err
	}
	// the key is optional; without it the walk stops at the encrypted layer
	var key []byte
	enc := encryptionConfig()
	if enc.KeyFile != "" || enc.KeyEnv != "" {
		if key, err = enc.LoadKey(); err != nil {
			return err
		}
	}
	out := cmd.OutOrStdout()
	kind := magic.DetectBytes(blob)
	if kind == magic.FileTypePEM {
		if blob, err = fwbundle.Unarmor(blob); err != nil {
			return err
		}
		kind = magic.DetectBytes(blob)
	}
	fmt.Fprintf(out, "%s: %s\n", path, kind)
	if !kind.IsCMS() {
		return fmt.Errorf("%s is not a CMS bundle", path)
	}
	ins := &inspector{w: out, key: key, maxSize: shared.CurrentConfig.Compression.MaxPayloadSize}
	return ins.layer(blob, 1)
}

type inspector struct {
	w       io.Writer
	key     []byte
	maxSize int
}

func (ins *inspector) printf(depth int, format string, args ...interface{}) {
	fmt.Fprintf(ins.w, strings.Repeat("  ", depth)+format+"\n", args...)
}

func (ins *inspector) layer(blob []byte, depth int) error {
	ci, content, err := pkcs7.ParseContentInfo(blob)
	if err != nil {
		return err
	}
	ins.printf(depth-1, "%s (%d bytes)", pkcs7.ContentTypeName(ci.ContentType), len(blob))
	if argDump {
		pretty.Fprintf(ins.w, "%# v\n", content)
	}
	switch c := content.(type) {
	case pkcs7.Data:
		ins.printf(depth, "payload: %d bytes", len(c))
		return nil
	case *pkcs7.SignedData:
		return ins.signed(c, depth)
	case *pkcs7.EncryptedData:
		return ins.encrypted(c, depth)
	case *pkcs7.CompressedData:
		return ins.compressed(c, depth)
	}
	return nil
}

func (ins *inspector) signed(sd *pkcs7.SignedData, depth int) error {
	ins.printf(depth, "version: %d", sd.Version)
	var digests []string
	for _, alg := range sd.DigestAlgorithmIdentifiers {
		if hash, ok := x509tools.PkixDigestToHash(alg); ok {
			digests = append(digests, hash.String())
		} else {
			digests = append(digests, alg.Algorithm.String())
		}
	}
	ins.printf(depth, "digest algorithms: %s", strings.Join(digests, ", "))
	certs, err := sd.Certificates.Parse()
	if err != nil {
		return err
	}
	for _, cert := range certs {
		ins.printf(depth, "certificate: %s", x509tools.FormatSubject(cert))
	}
	for _, si := range sd.SignerInfos {
		ins.printf(depth, "signer: serial %x, issuer %s", si.IssuerAndSerialNumber.SerialNumber, x509tools.FormatPkixName(si.IssuerAndSerialNumber.IssuerName.FullBytes))
		ins.attributes(depth+1, "signed", si.AuthenticatedAttributes)
		ins.attributes(depth+1, "unsigned", si.UnauthenticatedAttributes)
	}
	ins.printf(depth, "content type: %s", pkcs7.ContentTypeName(sd.ContentInfo.ContentType))
	inner, err := sd.ContentInfo.Bytes()
	if err != nil {
		return err
	} else if inner == nil {
		ins.printf(depth, "content: detached")
		return nil
	}
	return ins.layer(inner, depth+1)
}

func (ins *inspector) encrypted(ed *pkcs7.EncryptedData, depth int) error {
	ins.printf(depth, "version: %d", ed.Version)
	alg := ed.EncryptedContentInfo.ContentEncryptionAlgorithm.Algorithm
	if ciph, err := pkcs7.CipherByOid(alg); err == nil {
		ins.printf(depth, "cipher: %s", ciph.Name)
	} else {
		ins.printf(depth, "cipher: %s", alg)
	}
	ins.printf(depth, "content type: %s", pkcs7.ContentTypeName(ed.ContentType()))
	ins.printf(depth, "ciphertext: %d bytes", len(ed.EncryptedContentInfo.EncryptedContent))
	ins.attributes(depth, "unprotected", ed.UnprotectedAttrs)
	if ins.key == nil {
		ins.printf(depth, "(no key given, not decrypting)")
		return nil
	}
	inner, err := ed.Decrypt(ins.key)
	if err != nil {
		return err
	}
	return ins.layer(inner, depth+1)
}

func (ins *inspector) compressed(cd *pkcs7.CompressedData, depth int) error {
	ins.printf(depth, "version: %d", cd.Version)
	ins.printf(depth, "algorithm: %s", cd.CompressionAlgorithm.Algorithm)
	ins.printf(depth, "content type: %s", pkcs7.ContentTypeName(cd.ContentType()))
	payload, err := cd.Decompress(ins.maxSize)
	if err != nil {
		return err
	}
	ins.printf(depth, "payload: %d bytes", len(payload))
	return nil
}

func (ins *inspector) attributes(depth int, kind string, attrs pkcs7.AttributeList) {
	for _, attr := range attrs {
		name, ok := attributeNames[attr.Type.String()]
		if !ok {
			name = attr.Type.String()
		}
		ins.printf(depth, "%s attribute %s: %s", kind, name, attributeValue(attrs, attr.Type))
	}
}

func attributeValue(attrs pkcs7.AttributeList, oid asn1.ObjectIdentifier) string {
	var s string
	if err := attrs.GetOne(oid, &s); err == nil {
		return fmt.Sprintf("%q", s)
	}
	raw, err := attrs.Raw(oid)
	if err != nil || len(raw) == 0 {
		return "?"
	}
	return fmt.Sprintf("%x", raw[0])
}
