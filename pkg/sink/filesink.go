/*
Copyright 2025 The Kubernetes Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package sink

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

type reservedMemoryFile struct {
	// ExtraReservedMemory is the amount of device memory in bytes the
	// host keeps free on top of its own estimates.
	ExtraReservedMemory uint64 `json:"extra_reserved_memory"`
}

type fileSink struct {
	mu sync.RWMutex

	name     string
	reserved uint64
}

var _ Sink = &fileSink{}

// NewFileSink returns a sink backed by a JSON file at the given path.
// The host inference server watches this file for the reserved value.
// An existing file seeds the last-published value.
func NewFileSink(name string) (Sink, error) {
	s := &fileSink{
		name: name,
	}

	data, err := os.ReadFile(name)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}

		return nil, fmt.Errorf("failed to read reserved memory file %s: %w", name, err)
	}

	slot := reservedMemoryFile{}
	if err := json.Unmarshal(data, &slot); err != nil {
		return nil, fmt.Errorf("failed to unmarshal reserved memory file %s: %w", name, err)
	}

	s.reserved = slot.ExtraReservedMemory

	return s, nil
}

func (s *fileSink) SetReservedMemory(bytes uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.Marshal(reservedMemoryFile{ExtraReservedMemory: bytes})
	if err != nil {
		return fmt.Errorf("failed to marshal reserved memory: %w", err)
	}

	// Write-then-rename so the host never observes a partial file.
	tmp, err := os.CreateTemp(filepath.Dir(s.name), filepath.Base(s.name)+".*")
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())

		return fmt.Errorf("failed to write reserved memory file: %w", err)
	}

	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())

		return fmt.Errorf("failed to close reserved memory file: %w", err)
	}

	if err := os.Rename(tmp.Name(), s.name); err != nil {
		os.Remove(tmp.Name())

		return fmt.Errorf("failed to rename reserved memory file: %w", err)
	}

	s.reserved = bytes

	return nil
}

func (s *fileSink) ReservedMemory() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.reserved
}
