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
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/sassoftware/fwseal/lib/fwbundle"
	"github.com/sassoftware/fwseal/lib/pkcs7"
	"github.com/sassoftware/fwseal/lib/x509tools"
)

const (
	defaultCipher = "aes256-cbc"
	defaultDigest = "SHA-256"
	defaultSuffix = ".p7"
)

type SignerConfig struct {
	Certificate  string   `yaml:"certificate"`   // PEM/DER certificate or p7b bundle
	Key          string   `yaml:"key"`           // PKCS#1, PKCS#8 or SEC1 private key
	PKCS12       string   `yaml:"pkcs12"`        // PFX holding both, instead of the above
	PasswordEnv  string   `yaml:"password_env"`  // Read the PFX password from this variable instead of prompting
	Digest       string   `yaml:"digest"`        // Digest algorithm name, default SHA-256
	NoAttributes bool     `yaml:"no_attributes"` // Sign the content digest directly
	Certificates []string `yaml:"certificates"`  // Extra certificates used to find the signer when opening
}

type EncryptionConfig struct {
	Cipher  string `yaml:"cipher"`   // aes128-cbc, aes192-cbc, aes256-cbc or des-ede3-cbc
	KeyFile string `yaml:"key_file"` // Raw or hex-encoded content-encryption key
	KeyEnv  string `yaml:"key_env"`  // Hex-encoded key in an environment variable
}

type CompressionConfig struct {
	Level          int `yaml:"level"`            // zlib level, 0 for the default
	MaxPayloadSize int `yaml:"max_payload_size"` // Refuse to inflate beyond this many bytes
}

type AttributesConfig struct {
	Signed      []AttributeConfig `yaml:"signed"`
	Unsigned    []AttributeConfig `yaml:"unsigned"`
	Unprotected []AttributeConfig `yaml:"unprotected"`
}

type OutputConfig struct {
	PEM    bool   `yaml:"pem"`    // Armor sealed bundles
	Suffix string `yaml:"suffix"` // Appended to input names when sealing
}

type LoggingConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"` // "" for text on stderr, "-" for JSON on stderr
}

type MetricsConfig struct {
	Textfile string `yaml:"textfile"` // Write metrics here for node_exporter
}

type Config struct {
	Signer      SignerConfig      `yaml:"signer"`
	Encryption  EncryptionConfig  `yaml:"encryption"`
	Compression CompressionConfig `yaml:"compression"`
	Attributes  AttributesConfig  `yaml:"attributes"`
	Output      OutputConfig      `yaml:"output"`
	Logging     LoggingConfig     `yaml:"logging"`
	Metrics     MetricsConfig     `yaml:"metrics"`

	path string
}

// ReadFile parses a YAML config. Unknown keys are an error.
func ReadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	config, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	config.path = path
	return config, nil
}

// Parse reads a YAML config from memory and normalizes it.
func Parse(data []byte) (*Config, error) {
	config := new(Config)
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(config); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	if err := config.Normalize(); err != nil {
		return nil, err
	}
	return config, nil
}

// New returns a config with every default filled in.
func New() *Config {
	config := new(Config)
	_ = config.Normalize()
	return config
}

// Path is the file the config was read from, if any.
func (config *Config) Path() string {
	return config.path
}

// Normalize fills in defaults and checks algorithm and attribute names.
func (config *Config) Normalize() error {
	if config.Encryption.Cipher == "" {
		config.Encryption.Cipher = defaultCipher
	}
	if _, err := pkcs7.CipherByName(config.Encryption.Cipher); err != nil {
		return fmt.Errorf("encryption.cipher: %w", err)
	}
	if config.Signer.Digest == "" {
		config.Signer.Digest = defaultDigest
	}
	if _, err := x509tools.HashByName(config.Signer.Digest); err != nil {
		return fmt.Errorf("signer.digest: %w", err)
	}
	if config.Signer.PKCS12 != "" && (config.Signer.Key != "" || config.Signer.Certificate != "") {
		return errors.New("signer: pkcs12 cannot be combined with certificate and key")
	}
	if config.Compression.Level < -1 || config.Compression.Level > 9 {
		return fmt.Errorf("compression.level: %d is out of range", config.Compression.Level)
	}
	if config.Compression.MaxPayloadSize <= 0 {
		config.Compression.MaxPayloadSize = fwbundle.DefaultMaxPayloadSize
	}
	if config.Output.Suffix == "" {
		config.Output.Suffix = defaultSuffix
	}
	if config.Logging.Level == "" {
		config.Logging.Level = "info"
	}
	for name, list := range map[string][]AttributeConfig{
		"signed":      config.Attributes.Signed,
		"unsigned":    config.Attributes.Unsigned,
		"unprotected": config.Attributes.Unprotected,
	} {
		for i := range list {
			if _, _, err := list[i].Encode(); err != nil {
				return fmt.Errorf("attributes.%s[%d]: %w", name, i, err)
			}
		}
	}
	if config.Signer.NoAttributes && len(config.Attributes.Signed) != 0 {
		return errors.New("signer.no_attributes is set but attributes.signed is not empty")
	}
	return nil
}
