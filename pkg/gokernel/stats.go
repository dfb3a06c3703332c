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
	"fmt"
	"io"

	"github.com/vkernel/gokernel/internal/bootconfig"
	"github.com/vkernel/gokernel/internal/kernerr"
)

// UpdateStatistics is invoked once per timer tick (from the kernel's clock
// goroutine) to advance every slot's rtime or iotime counter, the "process
// accounting" half of spec.md §3's statistics fields.
func UpdateStatistics(k *Kernel) {
	tbl := k.table
	tbl.mu.Lock()
	defer tbl.mu.Unlock()
	for _, p := range tbl.slots {
		switch p.state {
		case Running:
			p.rtime++
		case Sleeping:
			p.iotime++
		}
	}
}

// ProcInfo is one row of a ProcDump snapshot.
type ProcInfo struct {
	Pid int
	Sz  uintptr
}

// ProcDump fills out with up to len(out) Running or Runnable slots sorted
// ascending by size in place (an insertion sort; kproc_dump's bubble sort
// gives the same order), and returns the filled prefix. Returns ErrInvalidArgument if
// out has zero length.
func ProcDump(k *Kernel, out []ProcInfo) ([]ProcInfo, error) {
	if len(out) == 0 {
		return nil, kernerr.ErrInvalidArgument
	}
	tbl := k.table
	tbl.mu.Lock()
	defer tbl.mu.Unlock()

	n := 0
	for _, p := range tbl.slots {
		if n == len(out) {
			break
		}
		if p.state != Running && p.state != Runnable {
			continue
		}
		out[n] = ProcInfo{Pid: p.pid, Sz: p.sz}
		n++
	}
	res := out[:n]

	for i := 1; i < len(res); i++ {
		for j := i; j > 0 && res[j-1].Sz > res[j].Sz; j-- {
			res[j-1], res[j] = res[j], res[j-1]
		}
	}
	return res, nil
}

// Procdump writes a lock-free debug dump of every non-Unused slot to w: pid,
// name, state, and a simulated stack trace, one line per frame, matching
// the original's console debug command bound to Ctrl-P. Lock-free by
// design (a debug dump must work even with the table wedged), so the
// output may race with concurrent state transitions.
func Procdump(k *Kernel, w io.Writer) {
	for _, p := range k.table.Slots() {
		if p.state == Unused {
			continue
		}
		fmt.Fprintf(w, "%d %s %s", p.pid, p.state, p.name)
		if p.context != nil {
			trace := p.context.trace
			if len(trace) > 10 {
				trace = trace[:10]
			}
			for _, pc := range trace {
				fmt.Fprintf(w, " %x", pc)
			}
		}
		fmt.Fprintln(w)
	}
}

var policyNames = map[bootconfig.Policy]string{
	bootconfig.MAIN:     "round-robin",
	bootconfig.TEST:     "test",
	bootconfig.PRIORITY: "priority",
	bootconfig.MLQ:      "mlq",
}

// Cps prints the active scheduling policy followed by a table of every
// Sleeping, Running or Runnable slot's name, pid, state and priority —
// the cps console command.
func Cps(k *Kernel, w io.Writer) {
	tbl := k.table
	tbl.mu.Lock()
	defer tbl.mu.Unlock()

	fmt.Fprintf(w, "scheduler: %s\n", policyNames[tbl.scheduler])
	for _, p := range tbl.slots {
		switch p.state {
		case Sleeping, Running, Runnable:
			fmt.Fprintf(w, "%s %d %s %d\n", p.name, p.pid, p.state, p.priority)
		}
	}
}

// Chpr changes pid's scheduling priority, subject to the active policy's
// allowed range (MAIN and MLQ manage priority themselves and reject any
// external change; TEST allows 0..20; PRIORITY allows 0..100). Marks every
// CPU's priorityChanged flag so in-progress priority scans abandon and
// restart, then yields the caller.
func Chpr(t *Task, pid, priority int) (int, error) {
	k := t.kernel
	tbl := k.table

	tbl.mu.Lock()
	switch tbl.scheduler {
	case bootconfig.MAIN, bootconfig.MLQ:
		tbl.mu.Unlock()
		return -1, kernerr.ErrChprRejected
	case bootconfig.TEST:
		if priority < 0 || priority > 20 {
			tbl.mu.Unlock()
			return -1, kernerr.ErrInvalidArgument
		}
	case bootconfig.PRIORITY:
		if priority < 0 || priority > 100 {
			tbl.mu.Unlock()
			return -1, kernerr.ErrInvalidArgument
		}
	}

	var target *Proc
	for _, p := range tbl.slots {
		if p.state != Unused && p.pid == pid {
			target = p
			break
		}
	}
	if target == nil {
		tbl.mu.Unlock()
		return -1, kernerr.ErrNoSuchProcess
	}
	target.priority = priority
	for i := range tbl.priorityChanged {
		tbl.priorityChanged[i].Store(true)
	}
	tbl.mu.Unlock()

	Yield(t)
	return priority, nil
}

// SetPriority sets the calling task's own process priority, unconditionally
// validated against the 0..100 range regardless of the active policy (the
// original's setpriority syscall, unlike chpr, applies this one range to
// every policy). Marks every CPU's priorityChanged flag and yields.
func SetPriority(t *Task, priority int) (int, error) {
	if priority < 0 || priority > 100 {
		return -1, kernerr.ErrInvalidArgument
	}
	k := t.kernel
	tbl := k.table

	tbl.mu.Lock()
	old := t.proc.priority
	t.proc.priority = priority
	for i := range tbl.priorityChanged {
		tbl.priorityChanged[i].Store(true)
	}
	tbl.mu.Unlock()

	Yield(t)
	return old, nil
}
