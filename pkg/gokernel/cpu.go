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
	"sync/atomic"

	"github.com/vkernel/gokernel/internal/klog"
)

// CPU is one CPU's scheduler-loop state: its densely-indexed id, the slot
// it is currently running (if any), and the interrupt-disable nesting /
// saved-interrupt-state pair the original kept on the per-CPU struct.
type CPU struct {
	id     int
	apicID int

	proc *Proc

	// ncli/intena implement the push/pop-cli nesting discipline: ncli
	// counts nested critical sections, intena is the interrupt-enabled
	// state saved at the outermost PushCli and restored at the matching
	// PopCli.
	ncli        int
	intena      bool
	intrEnabled bool

	preemptRequested atomic.Bool
}

// ID returns the CPU's dense index — its offset into the kernel's CPU
// slice, matching cpuid()'s "c - cpus" arithmetic.
func (c *CPU) ID() int { return c.id }

// APICID returns the CPU's simulated local-APIC identifier.
func (c *CPU) APICID() int { return c.apicID }

// Proc returns the slot currently bound to this CPU, or nil if idle.
func (c *CPU) Proc() *Proc { return c.proc }

// PushCli disables interrupts on c, nesting safely: only the outermost call
// saves the previous interrupt-enabled state, mirroring pushcli(). Every
// acquire of the table lock on this CPU must be paired with one of these.
func (c *CPU) PushCli() {
	if c.ncli == 0 {
		c.intena = c.intrEnabled
	}
	c.intrEnabled = false
	c.ncli++
}

// PopCli restores interrupts on c once the outermost PushCli is unwound.
// Panics on an unbalanced call, matching popcli()'s guards.
func (c *CPU) PopCli() {
	if c.intrEnabled {
		klog.Fatalf("popcli - interruptible")
	}
	c.ncli--
	if c.ncli < 0 {
		klog.Fatalf("popcli")
	}
	if c.ncli == 0 {
		c.intrEnabled = c.intena
	}
}
