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

import "context"

// PriorityScheduler picks the numerically lowest (highest) priority band
// among Runnable slots and round-robins within that band, restarting the
// minimum computation whenever an external Chpr/SetPriority call marks
// this CPU's priorityChanged flag.
type PriorityScheduler struct{}

// Round implements Scheduler. One call is one "band pass": it computes the
// current minimum, dispatches every Runnable slot at that priority in slot
// order, and returns early (to be re-invoked by the kernel's per-CPU loop,
// which is equivalent to the original's "break" back to recomputing the
// minimum) if priorityChanged fires mid-band.
func (PriorityScheduler) Round(_ context.Context, k *Kernel, cpu *CPU) {
	t := k.table
	cpu.PushCli()
	t.mu.Lock()
	defer func() {
		t.mu.Unlock()
		cpu.PopCli()
	}()

	min := t.minRunnablePriority()
	if min == noRunnablePriority {
		return
	}
	for _, p := range t.slots {
		if p.state != Runnable || p.priority != min {
			continue
		}
		k.dispatch(cpu, p)
		if t.priorityChanged[cpu.id].CompareAndSwap(true, false) {
			return
		}
	}
}
