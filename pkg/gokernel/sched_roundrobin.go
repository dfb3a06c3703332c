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

// RoundRobinScheduler is the MAIN scheduler: scan the table in slot order,
// dispatch the first Runnable slot found, continue the scan after it
// yields. Fair over slot order, not over time.
type RoundRobinScheduler struct{}

// Round implements Scheduler.
func (RoundRobinScheduler) Round(_ context.Context, k *Kernel, cpu *CPU) {
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
		k.dispatch(cpu, p)
	}
}
