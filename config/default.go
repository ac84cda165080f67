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
	"errors"
	"io/fs"
	"os"
	"path/filepath"
)

// EnvConfig names the environment variable consulted when --config is not
// given.
const EnvConfig = "FWSEAL_CONFIG"

func DefaultDir() string {
	profile := os.Getenv("USERPROFILE")
	if profile != "" {
		// windows
		return filepath.Join(profile, "fwseal")
	}
	home := os.Getenv("HOME")
	if home != "" {
		return filepath.Join(home, ".config", "fwseal")
	}
	return ""
}

func DefaultConfig() string {
	dir := DefaultDir()
	if dir != "" {
		dir = filepath.Join(dir, "fwseal.yaml")
	}
	return dir
}

// Load reads the config named by path, then $FWSEAL_CONFIG, then the default
// location. Only a missing default file is tolerated, giving built-in
// defaults.
func Load(path string) (*Config, error) {
	if path != "" {
		return ReadFile(path)
	}
	if env := os.Getenv(EnvConfig); env != "" {
		return ReadFile(env)
	}
	if def := DefaultConfig(); def != "" {
		config, err := ReadFile(def)
		if err == nil {
			return config, nil
		} else if !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}
	return New(), nil
}
