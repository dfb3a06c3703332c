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
	"time"

	"github.com/cenkalti/backoff"

	"github.com/vkernel/gokernel/internal/bootconfig"
	"github.com/vkernel/gokernel/internal/kernerr"
)

// AllocProc scans the table for an Unused slot, transitions it to Embryo,
// assigns it a fresh pid, seeds its statistics and policy-dependent default
// priority, and spawns its kernel-thread goroutine (parked until the slot
// is first dispatched). workload is the function that goroutine will run
// once scheduled; it may be nil for a slot that exits immediately.
//
// On kernel-stack allocation failure the slot is reverted to Unused and an
// error is returned. The table lock is released before the kernel-stack
// allocation (the original's allocproc does the same before calling
// kalloc): a concurrent AllocProc may transiently observe this slot as
// Embryo and simply skip it, which is benign (spec.md §9 Open Question,
// preserved rather than tightened).
func AllocProc(k *Kernel, workload Workload) (*Proc, error) {
	tbl := k.table
	tbl.mu.Lock()

	var p *Proc
	for _, s := range tbl.slots {
		if s.state == Unused {
			p = s
			break
		}
	}
	if p == nil {
		tbl.mu.Unlock()
		return nil, kernerr.ErrNoFreeSlot
	}

	p.state = Embryo
	p.pid = tbl.nextPID
	tbl.nextPID++

	now := k.Now()
	p.stime = now
	p.etime = 0
	p.rtime = 0
	p.iotime = 0
	p.killed = false
	p.parentIdx = -1
	p.parentPID = 0
	p.name = ""
	p.chanWait = nil
	p.files = FileTable{}
	p.cwd = nil
	p.addrSpace = nil

	switch tbl.scheduler {
	case bootconfig.MAIN:
		p.priority = 0
	case bootconfig.TEST:
		p.priority = 10
	case bootconfig.PRIORITY:
		p.priority = 60
	case bootconfig.MLQ:
		p.priority = 1
		tbl.queue[0]++
	}
	tbl.mu.Unlock()

	kstack, err := allocKernelStackWithRetry(k.stackAlloc)
	if err != nil {
		tbl.mu.Lock()
		p.state = Unused
		if tbl.scheduler == bootconfig.MLQ {
			tbl.queue[0]--
		}
		tbl.mu.Unlock()
		return nil, kernerr.ErrAllocFailed
	}
	p.kstack = kstack
	p.tf = kstack.Frame()
	p.context = &Context{}

	go p.driver(k, workload)

	return p, nil
}

// allocKernelStackWithRetry retries transient kernel-stack allocation
// failures with an exponential backoff before giving up, exercising the
// "resource-allocation failures unwind" error path of spec.md §7 with a
// concrete retry policy instead of a single bare attempt.
func allocKernelStackWithRetry(alloc KernelStackAllocator) (KernelStack, error) {
	var ks KernelStack
	op := func() error {
		s, err := alloc.Alloc()
		if err != nil {
			return err
		}
		ks = s
		return nil
	}
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = time.Millisecond
	bo.MaxElapsedTime = 20 * time.Millisecond
	if err := backoff.Retry(op, bo); err != nil {
		return nil, err
	}
	return ks, nil
}
