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
	"github.com/mohae/deepcopy"

	"github.com/vkernel/gokernel/internal/bootconfig"
	"github.com/vkernel/gokernel/internal/kernerr"
	"github.com/vkernel/gokernel/internal/klog"
)

// UserInit allocates and installs the first process: a fresh in-memory
// address space with sz set to PGSIZE (no init-code image is loaded into
// it), a seeded user-mode trap frame, and cwd set to "/". The lock-then-publish pattern (state flips to Runnable only
// after every other field is set up, under the table lock) ensures other
// CPUs observe a fully-initialized slot, never a partially-built one.
func UserInit(k *Kernel, workload Workload) (*Proc, error) {
	p, err := AllocProc(k, workload)
	if err != nil {
		return nil, err
	}

	tbl := k.table
	tbl.mu.Lock()
	tbl.initProcIdx = p.index
	tbl.mu.Unlock()

	p.addrSpace = NewMemAddressSpace()
	p.sz = PGSIZE
	p.tf = &TrapFrame{
		CS:     0x1b, // (SEG_UCODE << 3) | DPL_USER
		DS:     0x23, // (SEG_UDATA << 3) | DPL_USER
		SS:     0x23,
		EFlags: 0x200, // FL_IF
		ESP:    PGSIZE,
		EIP:    0,
	}
	p.name = "initcode"
	p.cwd = NewMemWorkingDir("/")

	tbl.mu.Lock()
	p.state = Runnable
	tbl.mu.Unlock()

	klog.Infof("userinit: pid=%d", p.pid)
	return p, nil
}

// Fork allocates a child slot, clones the parent's address space and size,
// duplicates each open file and the cwd reference, copies the trap frame
// with the child's return-value slot zeroed so the child observes 0, and
// marks the child Runnable. Returns the child's pid.
func Fork(t *Task, workload Workload) (int, error) {
	k := t.kernel
	parent := t.proc

	child, err := AllocProc(k, workload)
	if err != nil {
		return -1, err
	}

	as, err := parent.addrSpace.Fork()
	if err != nil {
		revertFailedFork(k, child)
		return -1, kernerr.ErrAllocFailed
	}
	child.addrSpace = as
	child.sz = parent.sz

	tfCopy, ok := deepcopy.Copy(parent.tf).(*TrapFrame)
	if !ok || tfCopy == nil {
		child.addrSpace.Destroy()
		revertFailedFork(k, child)
		return -1, kernerr.ErrAllocFailed
	}
	tfCopy.EAX = 0 // fork returns 0 in the child
	child.tf = tfCopy

	for i, f := range parent.files {
		if f != nil {
			child.files[i] = f.Dup()
		}
	}
	if parent.cwd != nil {
		child.cwd = parent.cwd.Dup()
	}
	child.name = parent.name

	pid := child.pid

	k.table.mu.Lock()
	child.parentIdx = parent.index
	child.parentPID = parent.pid
	child.state = Runnable
	k.table.mu.Unlock()

	return pid, nil
}

// revertFailedFork unwinds a child slot whose post-AllocProc setup failed:
// frees the kernel stack and reverts the slot to Unused, the same unwind
// AllocProc itself performs on its own allocation failures.
func revertFailedFork(k *Kernel, child *Proc) {
	tbl := k.table
	tbl.mu.Lock()
	child.state = Unused
	if tbl.scheduler == bootconfig.MLQ {
		tbl.queue[0]--
	}
	tbl.mu.Unlock()
	if child.kstack != nil {
		child.kstack.Free()
		child.kstack = nil
	}
}

// Exit terminates the calling task's process. Forbidden for initproc.
// Closes open files and the cwd outside the table lock; under the lock,
// wakes a parent possibly blocked in Wait/WaitX, reparents every child to
// initproc (waking initproc too if any reparented child is already a
// zombie), stamps etime, and marks the slot Zombie. The call does not
// return until Wait/WaitX has reaped the slot; it then returns so the
// slot's driver goroutine can end.
func Exit(t *Task) {
	k := t.kernel
	p := t.proc
	tbl := k.table

	if p.index == tbl.initProcIdx {
		klog.Fatalf("init exiting")
	}

	for i, f := range p.files {
		if f != nil {
			f.Close()
			p.files[i] = nil
		}
	}
	if p.cwd != nil {
		p.cwd.Put()
		p.cwd = nil
	}

	t.PushCli()
	tbl.mu.Lock()

	wakeup1(tbl, chanKeyForSlot(p.parentIdx))
	for _, c := range tbl.slots {
		if c.state == Unused || c.parentIdx != p.index {
			continue
		}
		c.parentIdx = tbl.initProcIdx
		if tbl.initProcIdx >= 0 {
			c.parentPID = tbl.slots[tbl.initProcIdx].pid
		}
		if c.state == Zombie {
			wakeup1(tbl, chanKeyForSlot(tbl.initProcIdx))
		}
	}

	p.etime = k.Now()
	p.state = Zombie

	// Enter the scheduler one final time. Unlike Sched, this never
	// resumes via p.resume (a Zombie slot is never dispatched again); it
	// instead parks until the reaper (Wait/WaitX) closes reapedCh, giving
	// the driver goroutine an explicit teardown signal instead of the
	// original's implicit "stack is abandoned" ending.
	if !tbl.mu.Holding() {
		klog.Fatalf("sched: ptable.lock")
	}
	if t.cpu.ncli != 1 {
		klog.Fatalf("sched: locks")
	}
	if t.cpu.intrEnabled {
		klog.Fatalf("sched: interruptible")
	}
	p.yielded <- struct{}{}
	<-p.reapedCh
}

// chanKeyForSlot is the wait-channel value Exit/Wait use to rendezvous a
// parent blocked in Wait with an exiting child: the parent's own slot
// index, mirroring the original's "sleep(curproc, ...)" / "wakeup1(parent)"
// using the struct proc pointer itself as the channel.
func chanKeyForSlot(idx int) any {
	if idx < 0 {
		return nil
	}
	return idx
}

// Wait blocks until a child of the calling task's process exits, reaps it,
// and returns its pid. Returns ErrNoChildren if the caller has no children
// at all, live or zombie, and ErrInterrupted if the caller is killed while
// waiting.
func Wait(t *Task) (int, error) {
	k := t.kernel
	tbl := k.table
	curr := t.proc

	t.PushCli()
	tbl.mu.Lock()
	for {
		haveKids := false
		for _, c := range tbl.slots {
			if c.state == Unused || c.parentIdx != curr.index {
				continue
			}
			haveKids = true
			if c.state == Zombie {
				pid := reapLocked(tbl, c)
				tbl.mu.Unlock()
				t.PopCli()
				return pid, nil
			}
		}
		if !haveKids {
			tbl.mu.Unlock()
			t.PopCli()
			return -1, kernerr.ErrNoChildren
		}
		if curr.killed {
			tbl.mu.Unlock()
			t.PopCli()
			return -1, kernerr.ErrInterrupted
		}
		Sleep(t, chanKeyForSlot(curr.index), &tbl.mu)
	}
}

// WaitX behaves like Wait but additionally reports the reaped child's run
// time and wait time (waitx-style accounting, spec.md §4.3).
func WaitX(t *Task) (pid int, wtime int64, rtime int64, err error) {
	k := t.kernel
	tbl := k.table
	curr := t.proc

	t.PushCli()
	tbl.mu.Lock()
	for {
		haveKids := false
		for _, c := range tbl.slots {
			if c.state == Unused || c.parentIdx != curr.index {
				continue
			}
			haveKids = true
			if c.state == Zombie {
				rtime = c.rtime
				wtime = (c.etime - c.stime) - c.rtime
				pid = reapLocked(tbl, c)
				tbl.mu.Unlock()
				t.PopCli()
				return pid, wtime, rtime, nil
			}
		}
		if !haveKids {
			tbl.mu.Unlock()
			t.PopCli()
			return -1, 0, 0, kernerr.ErrNoChildren
		}
		if curr.killed {
			tbl.mu.Unlock()
			t.PopCli()
			return -1, 0, 0, kernerr.ErrInterrupted
		}
		Sleep(t, chanKeyForSlot(curr.index), &tbl.mu)
	}
}

// reapLocked frees c's kernel stack and address space and returns it to
// Unused, returning its pid. Caller holds the table lock.
func reapLocked(tbl *ProcTable, c *Proc) int {
	pid := c.pid
	if c.kstack != nil {
		c.kstack.Free()
		c.kstack = nil
	}
	if c.addrSpace != nil {
		c.addrSpace.Destroy()
		c.addrSpace = nil
	}
	c.pid = 0
	c.parentIdx = -1
	c.parentPID = 0
	c.name = ""
	c.killed = false
	c.state = Unused
	close(c.reapedCh)
	c.reapedCh = make(chan struct{})
	return pid
}

// Kill sets pid's killed flag and, if it is Sleeping, promotes it to
// Runnable so it observes the flag at the next scheduling point. Returns
// ErrNoSuchProcess if pid names no live slot. Termination itself is lazy:
// it happens when the victim's workload next calls CheckKilled.
func Kill(k *Kernel, pid int) error {
	tbl := k.table
	tbl.mu.Lock()
	defer tbl.mu.Unlock()
	for _, p := range tbl.slots {
		if p.state == Unused || p.pid != pid {
			continue
		}
		p.killed = true
		if p.state == Sleeping {
			p.state = Runnable
		}
		return nil
	}
	return kernerr.ErrNoSuchProcess
}
