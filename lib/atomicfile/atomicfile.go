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

// Package atomicfile writes output through a temporary file that is renamed
// into place on Commit, so readers never observe a partial bundle.
package atomicfile

import (
	"errors"
	"io"
	"os"
	"path/filepath"
)

type AtomicFile interface {
	io.WriteCloser
	// Commit moves the written data into place. Close without Commit
	// discards it.
	Commit() error
}

type atomicFile struct {
	name     string
	mode     os.FileMode
	tempfile *os.File
}

// New starts writing name with mode 0644.
func New(name string) (AtomicFile, error) {
	return NewMode(name, 0644)
}

// NewMode starts writing name, which will get the given permissions when
// committed.
func NewMode(name string, mode os.FileMode) (AtomicFile, error) {
	tempfile, err := os.CreateTemp(filepath.Dir(name), filepath.Base(name)+".tmp")
	if err != nil {
		return nil, err
	}
	return &atomicFile{name: name, mode: mode, tempfile: tempfile}, nil
}

func (f *atomicFile) Write(d []byte) (int, error) {
	if f.tempfile == nil {
		return 0, os.ErrClosed
	}
	return f.tempfile.Write(d)
}

func (f *atomicFile) Close() error {
	if f.tempfile == nil {
		return nil
	}
	f.tempfile.Close()
	os.Remove(f.tempfile.Name())
	f.tempfile = nil
	return nil
}

func (f *atomicFile) Commit() error {
	if f.tempfile == nil {
		return errors.New("file is closed")
	}
	if err := f.tempfile.Chmod(f.mode); err != nil {
		f.Close()
		return err
	}
	if err := f.tempfile.Sync(); err != nil {
		f.Close()
		return err
	}
	if err := f.tempfile.Close(); err != nil {
		os.Remove(f.tempfile.Name())
		f.tempfile = nil
		return err
	}
	// rename can't overwrite on windows
	if err := os.Remove(f.name); err != nil && !os.IsNotExist(err) {
		os.Remove(f.tempfile.Name())
		f.tempfile = nil
		return err
	}
	if err := os.Rename(f.tempfile.Name(), f.name); err != nil {
		os.Remove(f.tempfile.Name())
		f.tempfile = nil
		return err
	}
	f.tempfile = nil
	return nil
}

type nopAtomic struct {
	*os.File
	doClose bool
}

func (a nopAtomic) Commit() error {
	if a.doClose {
		return a.File.Close()
	}
	return nil
}

func (a nopAtomic) Close() error {
	if a.doClose {
		return a.File.Close()
	}
	return nil
}

func isSpecial(path string) bool {
	if stat, err := os.Stat(path); err == nil {
		if !stat.Mode().IsRegular() {
			return true
		}
	}
	return false
}

// WriteAny picks the best strategy for writing to the given path. "-" means
// stdout, pipes and devices are written to directly, and anything else goes
// through write-rename.
func WriteAny(path string) (AtomicFile, error) {
	if path == "-" {
		return nopAtomic{os.Stdout, false}, nil
	}
	if isSpecial(path) {
		f, err := os.Create(path)
		if err != nil {
			return nil, err
		}
		return nopAtomic{f, true}, nil
	}
	return New(path)
}

// WriteFile replaces name with data in one step.
func WriteFile(name string, data []byte) error {
	f, err := WriteAny(name)
	if err != nil {
		return err
	}
	defer f.Close()
	if _, err := f.Write(data); err != nil {
		return err
	}
	return f.Commit()
}
