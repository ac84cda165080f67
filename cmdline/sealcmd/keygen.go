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
	"crypto/rand"
	"crypto/x509"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sassoftware/fwseal/cmdline/shared"
	"github.com/sassoftware/fwseal/lib/x509tools"
)

var KeygenCmd = &cobra.Command{
	Use:   "keygen",
	Short: "Generate a content-encryption key, and optionally a self-signed signer",
	Args:  cobra.NoArgs,
	RunE:  keygenCmd,
}

var (
	argKeyPath  string
	argRaw      bool
	argSelfSign bool
	argKeyType  string
	argBits     uint
	argCertOut  string
	argKeyOut   string
	certOpts    x509tools.CertOptions
)

func init() {
	shared.RootCmd.AddCommand(KeygenCmd)
	flags := KeygenCmd.Flags()
	flags.StringVar(&argCipher, "cipher", "", "Content-encryption algorithm the key is for (overrides encryption.cipher)")
	flags.StringVarP(&argKeyPath, "output", "o", "-", "Write the content-encryption key here")
	flags.BoolVar(&argRaw, "raw", false, "Write the key as raw bytes instead of hex")
	flags.BoolVar(&argSelfSign, "self-sign", false, "Also generate a signing key and self-signed certificate")
	flags.StringVar(&argKeyType, "key-type", "rsa", "Signing key type: rsa or ecdsa")
	flags.UintVar(&argBits, "bits", 0, "RSA modulus size or ECDSA curve size (default 2048 or 256)")
	flags.StringVar(&argCertOut, "cert-out", "signer.crt", "Write the self-signed certificate here")
	flags.StringVar(&argKeyOut, "key-out", "signer.key", "Write the signing key here")
	x509tools.AddCertFlags(flags, &certOpts)
}

func keygenCmd(cmd *cobra.Command, args []string) error {
	enc := encryptionConfig()
	ciph, err := enc.GetCipher()
	if err != nil {
		return err
	}
	if argKeyPath == "" {
		return errors.New("--output is required")
	}
	key, err := ciph.GenerateKey(rand.Reader)
	if err != nil {
		return err
	}
	blob := key
	if !argRaw {
		blob = []byte(hex.EncodeToString(key) + "\n")
	}
	if err := shared.WritePrivateFile(argKeyPath, blob); err != nil {
		return err
	}
	if argSelfSign {
		return selfSign(cmd)
	}
	return nil
}

func selfSign(cmd *cobra.Command) error {
	if certOpts.CommonName == "" {
		return errors.New("--commonName is required with --self-sign")
	}
	signer, err := x509tools.GenerateKey(rand.Reader, argKeyType, argBits)
	if err != nil {
		return err
	}
	certDER, err := x509tools.MakeCertificate(rand.Reader, signer, &certOpts)
	if err != nil {
		return err
	}
	keyDER, err := x509.MarshalPKCS8PrivateKey(signer)
	if err != nil {
		return err
	}
	if err := shared.WritePrivateFile(argKeyOut, x509tools.ToPEM(keyDER, "PRIVATE KEY")); err != nil {
		return err
	}
	if err := shared.WriteFile(argCertOut, x509tools.ToPEM(certDER, "CERTIFICATE")); err != nil {
		return err
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "Wrote %s and %s\n", argCertOut, argKeyOut)
	return nil
}
