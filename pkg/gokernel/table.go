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
	"sync"
	"sync/atomic"

	"github.com/vkernel/gokernel/internal/bootconfig"
)

// ptableMutex is a sync.Mutex that also remembers whether it is currently
// held, so Sched and its callers can reproduce the original's holding()
// panic guard. Go's sync.Mutex has no owner affinity, so any goroutine may
// Lock or Unlock it — the same "whoever's logically running owns the
// spinlock" discipline the original depends on across swtch.
type ptableMutex struct {
	mu    sync.Mutex
	held  atomic.Bool
}

func (m *ptableMutex) Lock() {
	m.mu.Lock()
	m.held.Store(true)
}

func (m *ptableMutex) Unlock() {
	m.held.Store(false)
	m.mu.Unlock()
}

// Holding reports whether the lock is currently held by anyone.
func (m *ptableMutex) Holding() bool { return m.held.Load() }

// noRunnablePriority is the priority_scheduler's "no candidate" sentinel.
const noRunnablePriority = 101

// ProcTable is the fixed-size process table and its associated global
// scheduling state (spec.md §3 "Global state").
type ProcTable struct {
	mu    ptableMutex
	slots []*Proc

	// priorityChanged[i] signals CPU i's scheduler loop to abandon its
	// current priority band and recompute the minimum.
	priorityChanged []atomic.Bool

	// queue[k] is the population counter of MLQ band k+1. It counts a slot
	// from AllocProc (while still Embryo) until the MLQ scheduler demotes
	// it out of the band or sees it exit there, and keeps counting it while
	// it is Sleeping; it is not the number of Runnable/Running slots.
	queue [3]int

	nextPID     int
	initProcIdx int

	scheduler bootconfig.Policy
}

func newProcTable(cfg bootconfig.Config) *ProcTable {
	t := &ProcTable{
		slots:           make([]*Proc, cfg.NPROC),
		priorityChanged: make([]atomic.Bool, cfg.NCPU),
		nextPID:         1,
		initProcIdx:     -1,
		scheduler:       cfg.Scheduler,
	}
	for i := range t.slots {
		t.slots[i] = newEmptySlot(i)
	}
	return t
}

func newEmptySlot(index int) *Proc {
	return &Proc{
		index:     index,
		state:     Unused,
		parentIdx: -1,
		resume:    make(chan struct{}),
		yielded:   make(chan struct{}),
		reapedCh:  make(chan struct{}),
	}
}

// minRunnablePriority returns the minimum priority over all Runnable slots,
// or noRunnablePriority if none are runnable. Caller holds the table lock.
func (t *ProcTable) minRunnablePriority() int {
	min := noRunnablePriority
	for _, p := range t.slots {
		if p.state != Runnable {
			continue
		}
		if p.priority < min {
			min = p.priority
		}
	}
	return min
}

// NCPU returns the number of CPUs this table's priorityChanged bitmap is
// sized for.
func (t *ProcTable) NCPU() int { return len(t.priorityChanged) }

// Slots returns the table's slots. Callers iterating without holding the
// kernel's lock get a point-in-time, possibly racy, view — used by debug
// introspection (Procdump) that intentionally runs lock-free.
func (t *ProcTable) Slots() []*Proc { return t.slots }
