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
	"errors"
	"os"

	"github.com/spf13/pflag"

	"github.com/sassoftware/fwseal/cmdline/shared"
	"github.com/sassoftware/fwseal/config"
	"github.com/sassoftware/fwseal/lib/certloader"
	"github.com/sassoftware/fwseal/lib/passprompt"
)

var (
	argCert    string
	argKey     string
	argPKCS12  string
	argKeyFile string
	argKeyEnv  string
	argCipher  string
)

func addSignerFlags(flags *pflag.FlagSet) {
	flags.StringVar(&argCert, "cert", "", "Signer certificate (overrides signer.certificate)")
	flags.StringVar(&argKey, "key", "", "Signer private key (overrides signer.key)")
	flags.StringVar(&argPKCS12, "pkcs12", "", "PKCS#12 file holding the signer certificate and key")
}

func addEncryptionFlags(flags *pflag.FlagSet, withCipher bool) {
	flags.StringVar(&argKeyFile, "key-file", "", "Content-encryption key file (overrides encryption.key_file)")
	flags.StringVar(&argKeyEnv, "key-env", "", "Environment variable holding a hex content-encryption key")
	if withCipher {
		flags.StringVar(&argCipher, "cipher", "", "Content-encryption algorithm (overrides encryption.cipher)")
	}
}

// encryptionConfig applies command-line overrides to the configured
// encryption settings.
func encryptionConfig() config.EncryptionConfig {
	enc := shared.CurrentConfig.Encryption
	if argCipher != "" {
		enc.Cipher = argCipher
	}
	if argKeyFile != "" || argKeyEnv != "" {
		enc.KeyFile = argKeyFile
		enc.KeyEnv = argKeyEnv
	}
	return enc
}

func passwordGetter(cfg config.SignerConfig) passprompt.PasswordGetter {
	if cfg.PasswordEnv != "" {
		return &passprompt.EnvPrompt{Name: cfg.PasswordEnv}
	}
	return passprompt.PasswordPrompt{Out: os.Stderr}
}

func loadSigner() (*certloader.Certificate, error) {
	cfg := shared.CurrentConfig.Signer
	if argCert != "" || argKey != "" || argPKCS12 != "" {
		cfg.Certificate = argCert
		cfg.Key = argKey
		cfg.PKCS12 = argPKCS12
	}
	switch {
	case cfg.PKCS12 != "":
		return certloader.LoadPKCS12(cfg.PKCS12, passwordGetter(cfg))
	case cfg.Certificate != "" && cfg.Key != "":
		return certloader.LoadX509KeyPair(cfg.Certificate, cfg.Key)
	default:
		return nil, errors.New("no signer configured; set signer.certificate and signer.key, or signer.pkcs12")
	}
}
