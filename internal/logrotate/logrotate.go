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

// Package logrotate appends to a log file and follows it when an external
// tool such as logrotate renames or deletes it.
package logrotate

import (
	"os"
	"sync"
)

// Writer reopens its file whenever the path no longer refers to the file it
// has open.
type Writer struct {
	path string
	mode os.FileMode
	f    *os.File
	fi   os.FileInfo
	mu   sync.Mutex
}

// NewWriter opens path for appending, creating it with mode 0640.
func NewWriter(path string) (*Writer, error) {
	w := &Writer{path: path, mode: 0640}
	return w, w.openLocked()
}

func (w *Writer) openLocked() error {
	f, err := os.OpenFile(w.path, os.O_WRONLY|os.O_APPEND|os.O_CREATE, w.mode)
	if err != nil {
		return err
	}
	// stat file to get inode to compare against later
	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return err
	}
	if w.f != nil {
		w.f.Close()
	}
	w.f = f
	w.fi = fi
	return nil
}

func (w *Writer) reopenLocked() error {
	if w.f != nil {
		fi, err := os.Stat(w.path)
		if err != nil && !os.IsNotExist(err) {
			return err
		}
		if fi != nil && os.SameFile(fi, w.fi) {
			// file has not changed; do nothing
			return nil
		}
	}
	// file missing, changed or closed; reopen
	return w.openLocked()
}

func (w *Writer) Write(d []byte) (n int, err error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err = w.reopenLocked(); err != nil {
		return 0, err
	}
	return w.f.Write(d)
}

// Sync flushes the current file to disk.
func (w *Writer) Sync() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.f == nil {
		return nil
	}
	return w.f.Sync()
}

func (w *Writer) Close() (err error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.f != nil {
		err = w.f.Close()
		w.f = nil
	}
	return
}
