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

// Package gokernel is the process-scheduling and process-lifecycle core of a
// small teaching-grade Unix-like kernel: the process table, the four
// dispatch disciplines, context-switch glue, sleep/wakeup, and the fork,
// exit, wait, waitx and kill lifecycle operations.
package gokernel

import "fmt"

// ProcState is the state of a process slot. A slot is always in exactly one
// of these six states.
type ProcState int

const (
	// Unused marks a free slot.
	Unused ProcState = iota
	// Embryo marks a slot that has been allocated but is still being
	// initialized by AllocProc's caller.
	Embryo
	// Sleeping marks a slot blocked on a wait channel.
	Sleeping
	// Runnable marks a slot eligible for dispatch.
	Runnable
	// Running marks a slot currently bound to a CPU.
	Running
	// Zombie marks a slot that has exited and awaits reaping by its parent.
	Zombie
)

var procStateNames = [...]string{
	Unused:   "unused",
	Embryo:   "embryo",
	Sleeping: "sleep",
	Runnable: "runble",
	Running:  "run",
	Zombie:   "zombie",
}

// String implements fmt.Stringer.
func (s ProcState) String() string {
	if int(s) >= 0 && int(s) < len(procStateNames) && procStateNames[s] != "" {
		return procStateNames[s]
	}
	return "???"
}

// NPROC is the compiled-in default table size; a booted Kernel may size
// its table and CPU set differently via bootconfig.Config.
const (
	NPROC  = 64
	NOFILE = 16
	PGSIZE = 4096
)

// TrapFrame is the saved user-mode register snapshot kept at the top of a
// process's kernel stack. It stands in for the original's x86 trapframe;
// only the fields this core's lifecycle operations touch are modeled.
type TrapFrame struct {
	CS, DS, SS uint16
	EFlags     uint32
	ESP, EIP   uint32
	// EAX is the syscall return-value slot. Fork zeroes it in the child's
	// copy so the child observes a return value of 0.
	EAX uint32
}

// Context is the saved kernel-mode register snapshot a real swtch would
// restore. This translation has no raw stack to unwind, so Context only
// keeps enough of a fiction to drive Procdump's debug stack walk.
type Context struct {
	FramePointer uintptr
	trace        []uintptr
}

// Proc is one slot of the fixed-size process table.
type Proc struct {
	index int
	pid   int
	name  string

	// parentIdx is a slot index, not a pointer (Design Notes §9): a weak
	// back-reference that may be stale after the parent has exited and been
	// reaped. parentPID is the pid last observed at parentIdx, kept for
	// stale-reference detection.
	parentIdx int
	parentPID int
	killed    bool
	state     ProcState

	addrSpace AddressSpace
	sz        uintptr
	kstack    KernelStack
	tf        *TrapFrame
	context   *Context

	// chanWait is the opaque wait-channel value recorded while Sleeping.
	chanWait any

	files FileTable
	cwd   WorkingDir

	priority int
	stime    int64
	rtime    int64
	iotime   int64
	etime    int64

	// resume/yielded are the goroutine rendezvous pair standing in for
	// swtch: the scheduler sends on resume to dispatch this slot and
	// receives from yielded when the slot's kernel thread calls Sched.
	resume   chan struct{}
	yielded  chan struct{}
	reapedCh chan struct{}

	// currentCPU is set by the scheduler immediately before a resume send,
	// so the process goroutine can learn which CPU it has been dispatched
	// to this round (a process may migrate CPUs between rounds).
	currentCPU *CPU
}

// Pid returns the slot's process id, or 0 if the slot is Unused.
func (p *Proc) Pid() int { return p.pid }

// Name returns the slot's process name.
func (p *Proc) Name() string { return p.name }

// State returns the slot's current state.
func (p *Proc) State() ProcState { return p.state }

// Priority returns the slot's current scheduling priority.
func (p *Proc) Priority() int { return p.priority }

// Killed reports whether the slot's killed flag is set.
func (p *Proc) Killed() bool { return p.killed }

// Size returns the slot's user memory size in bytes.
func (p *Proc) Size() uintptr { return p.sz }

// Stats returns the slot's accounting fields: start, run, I/O and end
// ticks, per §3's "statistics stime/rtime/iotime/etime".
func (p *Proc) Stats() (stime, rtime, iotime, etime int64) {
	return p.stime, p.rtime, p.iotime, p.etime
}

// TrapFrame returns the slot's trap frame, or nil if none has been set up
// yet (the slot is Unused or Embryo without a completed AllocProc).
func (p *Proc) TrapFrame() *TrapFrame { return p.tf }

func (p *Proc) String() string {
	return fmt.Sprintf("proc{pid=%d name=%q state=%s priority=%d}", p.pid, p.name, p.state, p.priority)
}
