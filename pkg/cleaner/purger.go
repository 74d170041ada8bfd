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

package cleaner

import (
	"context"
	"runtime"
	"runtime/debug"
)

type hostPurger struct{}

var _ Purger = &hostPurger{}

// NewHostPurger returns a purger that releases host-process memory:
// a garbage collection pass followed by returning freed pages to the OS.
// Device-side caches are owned by the inference runtime and are purged
// through its own Purger.
func NewHostPurger() Purger {
	return &hostPurger{}
}

func (p *hostPurger) Purge(_ context.Context, _ int) error {
	runtime.GC()
	debug.FreeOSMemory()

	return nil
}
