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

package gokernel

import (
	"sync/atomic"

	"github.com/vkernel/gokernel/internal/kernerr"
)

// AddressSpace stands in for the out-of-scope pgdir/allocuvm/copyuvm/freevm
// virtual-memory layer (spec.md §1). A production embedder supplies its own
// implementation; the in-memory reference implementation below is used by
// tests and the demo CLI.
type AddressSpace interface {
	// Fork returns an independent copy of the address space, as copyuvm
	// does for fork's child.
	Fork() (AddressSpace, error)
	// Destroy releases the address space, as freevm does at reap time.
	Destroy()
	// Size returns the current user memory size in bytes.
	Size() uintptr
	// Grow adjusts the user memory size by delta bytes (sbrk), returning
	// an error if the space cannot be grown or shrunk past zero.
	Grow(delta int) error
}

// KernelStack stands in for the kalloc/kfree-backed kernel stack page a
// real process slot owns exclusively.
type KernelStack interface {
	// Frame returns the trap-frame slot reserved at the top of the stack.
	Frame() *TrapFrame
	// Free releases the stack page, as kfree does at reap time.
	Free()
}

// File stands in for the open-file-table entry the fd layer manages.
type File interface {
	// Dup returns a reference-counted duplicate, as filedup does on fork.
	Dup() File
	// Close releases one reference, as fileclose does.
	Close()
}

// FileTable is the fixed NOFILE-slot open-file table a process owns.
type FileTable [NOFILE]File

// WorkingDir stands in for the cwd inode reference the inode layer manages.
type WorkingDir interface {
	// Dup returns a reference-counted duplicate, as idup does on fork.
	Dup() WorkingDir
	// Put releases one reference, as iput does on exit.
	Put()
}

// KernelStackAllocator allocates KernelStack instances for AllocProc. It is
// a narrow seam so tests can inject transient allocation failures and
// exercise the retry-then-unwind path described in spec.md §7.
type KernelStackAllocator interface {
	Alloc() (KernelStack, error)
}

// --- in-memory reference implementations -----------------------------------

type memAddressSpace struct {
	size uintptr
}

// NewMemAddressSpace returns a minimal in-memory AddressSpace, the default
// collaborator used by the demo CLI and by tests that don't need a custom
// one.
func NewMemAddressSpace() AddressSpace {
	return &memAddressSpace{}
}

func (a *memAddressSpace) Fork() (AddressSpace, error) {
	return &memAddressSpace{size: a.size}, nil
}

func (a *memAddressSpace) Destroy() {}

func (a *memAddressSpace) Size() uintptr { return a.size }

func (a *memAddressSpace) Grow(delta int) error {
	next := int(a.size) + delta
	if next < 0 {
		return kernerr.ErrInvalidArgument
	}
	a.size = uintptr(next)
	return nil
}

type memKernelStack struct {
	frame TrapFrame
}

func (s *memKernelStack) Frame() *TrapFrame { return &s.frame }

func (s *memKernelStack) Free() {}

// memKernelStackAllocator is the default KernelStackAllocator. transientFails
// counts down allocation attempts that should fail before a real allocation
// succeeds, letting tests exercise AllocProc's retry-then-unwind path
// without a real resource-exhaustion scenario.
type memKernelStackAllocator struct {
	transientFails int32
}

func (a *memKernelStackAllocator) Alloc() (KernelStack, error) {
	if atomic.AddInt32(&a.transientFails, -1) >= 0 {
		return nil, kernerr.ErrAllocFailed
	}
	return &memKernelStack{}, nil
}

// InjectTransientStackFailures arranges for the next n kernel-stack
// allocation attempts on this kernel's allocator to fail before succeeding.
// It is a hook for exercising the retry/unwind path; neither the package's
// tests nor the demo CLI call it.
func (k *Kernel) InjectTransientStackFailures(n int) {
	if a, ok := k.stackAlloc.(*memKernelStackAllocator); ok {
		atomic.StoreInt32(&a.transientFails, int32(n))
	}
}

type memFile struct {
	refs *int32
}

// NewMemFile returns a minimal in-memory File with its own refcount.
func NewMemFile() File {
	var refs int32 = 1
	return &memFile{refs: &refs}
}

func (f *memFile) Dup() File {
	atomic.AddInt32(f.refs, 1)
	return &memFile{refs: f.refs}
}

func (f *memFile) Close() { atomic.AddInt32(f.refs, -1) }

type memWorkingDir struct {
	path string
	refs *int32
}

// NewMemWorkingDir returns a minimal in-memory WorkingDir rooted at path.
func NewMemWorkingDir(path string) WorkingDir {
	var refs int32 = 1
	return &memWorkingDir{path: path, refs: &refs}
}

func (d *memWorkingDir) Dup() WorkingDir {
	atomic.AddInt32(d.refs, 1)
	return &memWorkingDir{path: d.path, refs: d.refs}
}

func (d *memWorkingDir) Put() { atomic.AddInt32(d.refs, -1) }
