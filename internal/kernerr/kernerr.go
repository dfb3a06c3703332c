// Copyright 2024 The Gokernel Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package kernerr defines the small set of comparable sentinel errors
// returned at the syscall-surface boundary of the kernel core.
//
// Errors here are returned directly, never wrapped, so callers can compare
// them with ==. Invariant violations are not represented here; those are
// programmer errors and panic instead (see internal/klog.Fatalf).
package kernerr

import "errors"

var (
	// ErrNoSuchProcess is returned when a pid does not name a live slot.
	ErrNoSuchProcess = errors.New("kernerr: no such process")

	// ErrInvalidArgument is returned when a caller-supplied argument is out
	// of the domain the active policy or operation accepts (for example, a
	// priority outside a scheduler's valid range, or a non-positive count
	// passed to ProcDump).
	ErrInvalidArgument = errors.New("kernerr: invalid argument")

	// ErrNoChildren is returned by Wait/WaitX when the calling process has
	// no children at all, live or zombie.
	ErrNoChildren = errors.New("kernerr: no children")

	// ErrInterrupted is returned by Wait/WaitX when the calling process was
	// killed while blocked waiting for a child.
	ErrInterrupted = errors.New("kernerr: interrupted")

	// ErrChprRejected is returned when the active scheduler policy does not
	// permit priority changes through Chpr (round-robin and MLQ manage
	// priority internally).
	ErrChprRejected = errors.New("kernerr: priority change rejected by policy")

	// ErrNoFreeSlot is returned by AllocProc when the process table is full.
	ErrNoFreeSlot = errors.New("kernerr: no free process slot")

	// ErrAllocFailed is returned by AllocProc when a kernel stack, and by
	// Fork when an address space or trap frame, could not be allocated for
	// a new slot.
	ErrAllocFailed = errors.New("kernerr: resource allocation failed")
)
