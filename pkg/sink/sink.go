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

// Package sink publishes the reserved memory value to the slot the host
// inference server reads before allocating.
package sink

import (
	"sync"
)

// Sink is the write-port for the host-owned reserved memory slot. The
// manager performs a single overwrite per decision, it does not own the
// slot's lifecycle.
type Sink interface {
	// SetReservedMemory overwrites the slot with the value in bytes.
	SetReservedMemory(bytes uint64) error
	// ReservedMemory returns the last published value in bytes.
	ReservedMemory() uint64
}

type memorySink struct {
	mu sync.RWMutex

	reserved uint64
}

var _ Sink = &memorySink{}

// NewMemorySink returns an in-process sink for embedding and tests.
func NewMemorySink() Sink {
	return &memorySink{}
}

func (s *memorySink) SetReservedMemory(bytes uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.reserved = bytes

	return nil
}

func (s *memorySink) ReservedMemory() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.reserved
}
