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
	"sync"

	"github.com/vkernel/gokernel/internal/kernerr"
	"github.com/vkernel/gokernel/internal/klog"
)

// Sleep atomically releases lk and blocks the calling task on the opaque
// channel value ch, resuming with lk reacquired. If lk is not the table's
// own lock, the table lock is acquired first and lk released, so that no
// wakeup on ch can be missed between releasing lk and actually sleeping
// (wakeup always runs with the table lock held).
func Sleep(t *Task, ch any, lk sync.Locker) {
	if t == nil || t.proc == nil {
		klog.Fatalf("sleep")
	}
	if lk == nil {
		klog.Fatalf("sleep without lk")
	}
	tbl := t.kernel.table
	tableLock := sync.Locker(&tbl.mu)
	if lk != tableLock {
		t.PushCli()
		tbl.mu.Lock()
		lk.Unlock()
	}

	t.proc.chanWait = ch
	t.proc.state = Sleeping

	Sched(t)

	t.proc.chanWait = nil

	if lk != tableLock {
		tbl.mu.Unlock()
		t.PopCli()
		lk.Lock()
	}
}

// CheckKilled returns kernerr.ErrInterrupted if the task's process has been
// killed, and nil otherwise. Callers are expected to call this immediately
// after Sleep returns, per the spurious-wakeup discipline of spec.md §4.6:
// a woken process must re-check its condition, and killed is part of it.
func CheckKilled(t *Task) error {
	if t.proc.killed {
		return kernerr.ErrInterrupted
	}
	return nil
}

// wakeup1 transitions every Sleeping slot waiting on ch to Runnable. Caller
// holds the table lock.
func wakeup1(tbl *ProcTable, ch any) {
	for _, p := range tbl.slots {
		if p.state == Sleeping && p.chanWait == ch {
			p.state = Runnable
		}
	}
}

// Wakeup wakes every task sleeping on ch. Idempotent: waking a channel with
// no sleepers, or waking it twice in a row, is a no-op.
func Wakeup(k *Kernel, ch any) {
	tbl := k.table
	tbl.mu.Lock()
	wakeup1(tbl, ch)
	tbl.mu.Unlock()
}
