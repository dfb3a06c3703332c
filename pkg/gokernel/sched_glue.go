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

import "github.com/vkernel/gokernel/internal/klog"

// Workload is the body a process slot's kernel thread runs between its
// first dispatch and its exit. It is handed a *Task and is free to call
// Yield, Sleep and the other lifecycle operations on it; returning without
// having called Exit causes the driver to call Exit on its behalf.
type Workload func(t *Task)

// Sched enters the scheduler: it must be called with the table lock held,
// with exactly one critical section nested on the calling task's CPU, on a
// process that is not Running, and with interrupts disabled — the same
// four invariants the original checks before swtch. It hands control back
// to the CPU's dispatch loop and blocks until that CPU (or another one)
// resumes this slot again, at which point the table lock is held once
// more, exactly as it was on entry.
func Sched(t *Task) {
	tbl := t.kernel.table
	if !tbl.mu.Holding() {
		klog.Fatalf("sched: ptable.lock")
	}
	if t.cpu.ncli != 1 {
		klog.Fatalf("sched: locks")
	}
	if t.proc.state == Running {
		klog.Fatalf("sched: running")
	}
	if t.cpu.intrEnabled {
		klog.Fatalf("sched: interruptible")
	}
	intena := t.cpu.intena
	t.proc.yielded <- struct{}{}
	<-t.proc.resume
	t.cpu = t.proc.currentCPU
	t.cpu.intena = intena
}

// Yield gives up the CPU for one scheduling round. PushCli/PopCli bracket
// the lock exactly as acquire/release do around the original's yield(), so
// that by the time Sched checks ncli == 1 and interrupts disabled, both
// hold.
func Yield(t *Task) {
	tbl := t.kernel.table
	t.PushCli()
	tbl.mu.Lock()
	t.proc.state = Runnable
	Sched(t)
	tbl.mu.Unlock()
	t.PopCli()
}

// ForkRet is the first code run by every newly-scheduled process slot. It
// releases the table lock held by the scheduler across the dispatch (and
// pops the cli nesting level that lock acquisition pushed), and on the
// very first invocation across the whole kernel performs one-shot
// initialization that must run in process context (standing in for the
// original's inode-cache and log initialization, which call sleep and so
// cannot run from Boot).
func ForkRet(t *Task) {
	t.kernel.table.mu.Unlock()
	t.PopCli()
	t.kernel.initOnce.Do(func() {
		klog.Debugf("forkret: one-shot process-context kernel initialization")
	})
}

// driver is the goroutine body spawned once per slot by AllocProc: the
// slot's kernel thread. It waits to be dispatched for the first time, runs
// ForkRet, then the supplied workload (which may itself call Yield/Sleep
// any number of times, each one blocking here until redispatched), and
// finally exits if the workload hasn't already.
func (p *Proc) driver(k *Kernel, workload Workload) {
	<-p.resume
	t := &Task{cpu: p.currentCPU, proc: p, kernel: k}
	ForkRet(t)
	if workload != nil {
		workload(t)
	}
	if p.state != Zombie {
		Exit(t)
	}
}
