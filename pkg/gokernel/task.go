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

// Task is the explicit handle a Go translation needs in place of the
// original's implicit mycpu()/myproc() globals: every operation that reads
// "the current CPU" or "the current process" takes a *Task bundling both,
// mirroring how gvisor threads an explicit *kernel.Task through every
// syscall implementation instead of reading ambient state.
type Task struct {
	cpu    *CPU
	proc   *Proc
	kernel *Kernel
}

// CPU returns the task's bound CPU. Panics if called with the CPU's
// simulated interrupt flag enabled, reproducing mycpu()'s "must not be
// called with interrupts enabled" guard.
func (t *Task) CPU() *CPU {
	if t == nil || t.cpu == nil {
		klog.Fatalf("mycpu: no current task")
	}
	if t.cpu.intrEnabled {
		klog.Fatalf("mycpu called with interrupts enabled")
	}
	return t.cpu
}

// CPUID returns the task's bound CPU's dense index.
func (t *Task) CPUID() int {
	return t.CPU().id
}

// Proc returns the task's bound process slot.
func (t *Task) Proc() *Proc {
	if t == nil || t.proc == nil {
		klog.Fatalf("myproc: no current task")
	}
	return t.proc
}

// Kernel returns the kernel instance this task belongs to.
func (t *Task) Kernel() *Kernel { return t.kernel }

// PushCli disables interrupts on the task's CPU, nesting safely: only the
// outermost call saves the previous interrupt-enabled state. Delegates to
// the CPU-level PushCli, which is also called directly by the scheduler's
// Round implementations, where no *Task exists yet.
func (t *Task) PushCli() {
	t.cpu.PushCli()
}

// PopCli restores interrupts on the task's CPU once the outermost PushCli
// is unwound. Panics on an unbalanced call, matching popcli()'s guards.
func (t *Task) PopCli() {
	t.cpu.PopCli()
}

// CheckPreempt yields the CPU if the timer source has requested preemption
// since the task last checked. Workloads call this at safe points, standing
// in for "a timer tick invokes yield on return from trap" (spec.md §2).
func (t *Task) CheckPreempt() {
	if t.cpu.preemptRequested.CompareAndSwap(true, false) {
		Yield(t)
	}
}
