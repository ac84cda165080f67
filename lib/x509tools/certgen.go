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

package x509tools

import (
	"crypto"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"errors"
	"io"
	"math/big"
	"strings"
	"time"

	"github.com/spf13/pflag"
)

// CertOptions describes a signer certificate to be generated.
type CertOptions struct {
	CommonName         string
	Organization       string
	OrganizationalUnit string
	Country            string
	KeyUsage           string
	ExpireDays         uint
	CertAuthority      bool
	Serial             string
}

// AddCertFlags binds the certificate options to a flag set.
func AddCertFlags(flags *pflag.FlagSet, opts *CertOptions) {
	flags.StringVarP(&opts.CommonName, "commonName", "n", "", "Subject commonName")
	flags.StringVar(&opts.Organization, "organizationName", "", "Subject name")
	flags.StringVar(&opts.OrganizationalUnit, "organizationalUnitName", "", "Subject name")
	flags.StringVar(&opts.Country, "countryName", "", "Subject name")
	flags.StringVarP(&opts.KeyUsage, "key-usage", "U", "codeSigning", "Key usage, one of: codeSigning emailProtection")
	flags.UintVarP(&opts.ExpireDays, "expire-days", "e", 3650, "Number of days before certificate expires")
	flags.BoolVar(&opts.CertAuthority, "cert-authority", false, "If this certificate is an authority")
	flags.StringVar(&opts.Serial, "serial", "", "Set the serial number of the certificate. Random if not specified.")
}

func (opts *CertOptions) subject() (name pkix.Name) {
	if opts.Country != "" {
		name.Country = []string{opts.Country}
	}
	if opts.Organization != "" {
		name.Organization = []string{opts.Organization}
	}
	if opts.OrganizationalUnit != "" {
		name.OrganizationalUnit = []string{opts.OrganizationalUnit}
	}
	name.CommonName = opts.CommonName
	return
}

// Set both basic and extended key usage
func (opts *CertOptions) setUsage(template *x509.Certificate) error {
	usage := x509.KeyUsageDigitalSignature
	var extended x509.ExtKeyUsage
	switch strings.ToLower(opts.KeyUsage) {
	case "codesigning", "":
		extended = x509.ExtKeyUsageCodeSigning
	case "emailprotection":
		usage |= x509.KeyUsageContentCommitment
		extended = x509.ExtKeyUsageEmailProtection
	default:
		return errors.New("invalid key-usage")
	}
	if opts.CertAuthority {
		usage |= x509.KeyUsageCertSign
	}
	template.KeyUsage = usage
	template.ExtKeyUsage = []x509.ExtKeyUsage{extended}
	return nil
}

func (opts *CertOptions) fill(template *x509.Certificate, pub crypto.PublicKey) error {
	if opts.CommonName == "" {
		return errors.New("a commonName is required")
	}
	if opts.Serial != "" {
		serial, ok := new(big.Int).SetString(opts.Serial, 0)
		if !ok {
			return errors.New("invalid serial number, must be decimal or hexadecimal format")
		}
		template.SerialNumber = serial
	} else {
		template.SerialNumber = MakeSerial()
		if template.SerialNumber == nil {
			return errors.New("failed to generate a serial number")
		}
	}
	days := opts.ExpireDays
	if days == 0 {
		days = 3650
	}
	template.Subject = opts.subject()
	template.SignatureAlgorithm = X509SignatureAlgorithm(pub)
	template.NotBefore = time.Now().Add(time.Hour * -24)
	template.NotAfter = time.Now().Add(time.Hour * 24 * time.Duration(days))
	template.IsCA = opts.CertAuthority
	template.BasicConstraintsValid = true
	ski, err := SubjectKeyID(pub)
	if err != nil {
		return err
	}
	template.SubjectKeyId = ski
	return opts.setUsage(template)
}

// MakeCertificate creates a self-signed certificate for key and returns it in
// DER form.
func MakeCertificate(rand io.Reader, key crypto.Signer, opts *CertOptions) ([]byte, error) {
	var template x509.Certificate
	if err := opts.fill(&template, key.Public()); err != nil {
		return nil, err
	}
	return x509.CreateCertificate(rand, &template, &template, key.Public(), key)
}

// IssueCertificate creates a certificate for pub signed by a CA.
func IssueCertificate(rand io.Reader, pub crypto.PublicKey, opts *CertOptions, caCert *x509.Certificate, caKey crypto.Signer) ([]byte, error) {
	var template x509.Certificate
	if err := opts.fill(&template, pub); err != nil {
		return nil, err
	}
	template.SignatureAlgorithm = X509SignatureAlgorithm(caKey.Public())
	return x509.CreateCertificate(rand, &template, caCert, pub, caKey)
}

func ToPEM(der []byte, pemType string) []byte {
	return pem.EncodeToMemory(&pem.Block{Type: pemType, Bytes: der})
}
