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

package shared

import (
	"crypto"

	"github.com/spf13/pflag"

	"github.com/sassoftware/fwseal/lib/x509tools"
)

var ArgDigest string

const DefaultHash = "SHA-256"

// AddDigestFlag adds --digest to a flag set. Without it the configured
// signer digest applies.
func AddDigestFlag(flags *pflag.FlagSet) {
	flags.StringVar(&ArgDigest, "digest", "", "Digest algorithm for the signature (default from config, else "+DefaultHash+")")
}

func GetDigest() (crypto.Hash, error) {
	name := ArgDigest
	if name == "" && CurrentConfig != nil {
		name = CurrentConfig.Signer.Digest
	}
	if name == "" {
		name = DefaultHash
	}
	return x509tools.HashByName(name)
}
