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
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/vkernel/gokernel/internal/bootconfig"
	"github.com/vkernel/gokernel/internal/klog"
	"github.com/vkernel/gokernel/internal/timersrc"
)

// Kernel is one instance of the process-scheduling core: a process table,
// a set of CPUs each running the configured scheduler's dispatch loop, and
// a timer source driving statistics and preemption.
type Kernel struct {
	cfg   bootconfig.Config
	table *ProcTable
	cpus  []*CPU

	scheduler Scheduler
	clock     *timersrc.Source
	stackAlloc KernelStackAllocator

	ticks int64

	initOnce sync.Once

	g      *errgroup.Group
	cancel context.CancelFunc
}

// New constructs a Kernel from a boot configuration. The kernel is not yet
// running; call Boot to start its CPU and timer goroutines.
func New(cfg bootconfig.Config) *Kernel {
	k := &Kernel{
		cfg:        cfg,
		table:      newProcTable(cfg),
		clock:      timersrc.New(cfg.TickInterval()),
		stackAlloc: &memKernelStackAllocator{},
	}
	k.scheduler = schedulerFor(cfg.Scheduler)
	k.cpus = make([]*CPU, cfg.NCPU)
	for i := range k.cpus {
		k.cpus[i] = &CPU{id: i, apicID: i}
	}
	return k
}

// Table returns the kernel's process table, for introspection.
func (k *Kernel) Table() *ProcTable { return k.table }

// CPUs returns the kernel's CPU slice.
func (k *Kernel) CPUs() []*CPU { return k.cpus }

// Now returns the current tick count, the unit of all statistics.
func (k *Kernel) Now() int64 { return atomic.LoadInt64(&k.ticks) }

// Boot starts one scheduler-loop goroutine per CPU plus the timer source,
// supervised by an errgroup: Shutdown (or cancellation of ctx) stops every
// one of them and waits for them to return. A panic in any of them is not
// recovered and ends the program.
func (k *Kernel) Boot(ctx context.Context) {
	gctx, cancel := context.WithCancel(ctx)
	g, gctx := errgroup.WithContext(gctx)
	k.g = g
	k.cancel = cancel

	for _, cpu := range k.cpus {
		cpu := cpu
		g.Go(func() error {
			k.runCPU(gctx, cpu)
			return nil
		})
	}
	g.Go(func() error {
		return k.clock.Run(gctx, func(now int64) {
			atomic.StoreInt64(&k.ticks, now)
			UpdateStatistics(k)
			k.requestPreemption()
		})
	})
}

// Shutdown cancels the kernel's context and waits for every supervised
// goroutine to return. The context.Canceled the timer source reports for
// that cancellation is not treated as an error; any other error is returned.
func (k *Kernel) Shutdown() error {
	if k.cancel != nil {
		k.cancel()
	}
	if k.g != nil {
		if err := k.g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
	}
	return nil
}

// requestPreemption marks every CPU running a time-sliced policy (every
// policy but MLQ, which manages demotion through its own explicit dispatch
// returns) for preemption at the running process's next CheckPreempt call.
func (k *Kernel) requestPreemption() {
	if k.cfg.Scheduler == bootconfig.MLQ {
		return
	}
	for _, cpu := range k.cpus {
		if cpu.proc != nil {
			cpu.preemptRequested.Store(true)
		}
	}
}

// runCPU is the per-CPU "forever" loop described in spec.md §4.5: enable
// interrupts (sti, so a pending timer tick can land), then run one
// policy-specific scheduling round. Every Round implementation's first act
// is PushCli around its table-lock acquisition, which disables interrupts
// again for the critical section and the Sched calls nested inside it; its
// matching PopCli, run once the lock is released, is what brings
// intrEnabled back to true for the next iteration.
func (k *Kernel) runCPU(ctx context.Context, cpu *CPU) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		cpu.intrEnabled = true
		k.scheduler.Round(ctx, k, cpu)
	}
}

// dispatch hands control to p: the caller must hold the table lock. It
// returns once p next calls Sched (via Yield, Sleep or Exit), at which
// point the table lock is held again — the dispatch handshake of
// spec.md §4.5.
func (k *Kernel) dispatch(cpu *CPU, p *Proc) {
	if !k.table.mu.Holding() {
		klog.Fatalf("dispatch: ptable lock not held")
	}
	cpu.proc = p
	p.currentCPU = cpu
	p.state = Running
	p.resume <- struct{}{}
	<-p.yielded
	cpu.proc = nil
}
