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

// TestScheduler is the TEST scheduler: documented in the original as
// non-production. For each candidate in slot order it re-scans the whole
// table to find the current lowest-numeric (highest) priority, dispatches
// that instead, then resumes the outer scan. Quadratic; preserved exactly
// as specified, not optimized away.
type TestScheduler struct{}

// Round implements Scheduler.
func (TestScheduler) Round(_ context.Context, k *Kernel, cpu *CPU) {
	t := k.table
	cpu.PushCli()
	t.mu.Lock()
	defer func() {
		t.mu.Unlock()
		cpu.PopCli()
	}()
	for _, p := range t.slots {
		if p.state != Runnable {
			continue
		}
		high := p
		for _, p1 := range t.slots {
			if p1.state != Runnable {
				continue
			}
			if high.priority > p1.priority { // larger value means lower priority
				high = p1
			}
		}
		k.dispatch(cpu, high)
	}
}
