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
	"sync"
	"testing"
	"time"

	"github.com/vkernel/gokernel/internal/bootconfig"
	"github.com/vkernel/gokernel/internal/kernerr"
)

func newTestKernel(t *testing.T, cfg bootconfig.Config) (*Kernel, context.CancelFunc) {
	t.Helper()
	k := New(cfg)
	ctx, cancel := context.WithCancel(context.Background())
	k.Boot(ctx)
	t.Cleanup(func() {
		cancel()
		k.Shutdown()
	})
	return k, cancel
}

// parkInit blocks the calling init process in Sleep on a channel no test
// wakes. Exit panics for initproc, so an init workload passed to UserInit
// must not return; each test defers this at the top of its root workload.
func parkInit(rt *Task) {
	var mu sync.Mutex
	mu.Lock()
	Sleep(rt, "init-parked", &mu)
}

// TestForkExitWait covers scenario S1: a parent forks a child that exits
// immediately, wait() returns the child's pid, the slot becomes Unused, and
// the child observed a different pid than its parent's.
func TestForkExitWait(t *testing.T) {
	k, _ := newTestKernel(t, bootconfig.Default())

	done := make(chan struct{})
	var parentPid, childPid, childObservedPid, waitedPid int
	var waitErr error

	root := func(rt *Task) {
		defer parkInit(rt)
		parentPid = rt.Proc().Pid()
		cpid, err := Fork(rt, func(ct *Task) {
			childObservedPid = ct.Proc().Pid()
		})
		if err != nil {
			t.Errorf("fork: %v", err)
			close(done)
			return
		}
		childPid = cpid
		waitedPid, waitErr = Wait(rt)
		close(done)
	}

	if _, err := UserInit(k, root); err != nil {
		t.Fatalf("userinit: %v", err)
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for fork/exit/wait")
	}

	if waitErr != nil {
		t.Fatalf("wait: %v", waitErr)
	}
	if waitedPid != childPid {
		t.Fatalf("wait returned pid %d, want %d", waitedPid, childPid)
	}
	if childObservedPid != childPid {
		t.Fatalf("child observed pid %d, want %d", childObservedPid, childPid)
	}
	if childPid == parentPid {
		t.Fatalf("child pid %d must differ from parent pid %d", childPid, parentPid)
	}

	for _, p := range k.Table().Slots() {
		if p.Pid() == childPid {
			t.Fatalf("reaped child's pid %d still present in a slot", childPid)
		}
	}
}

// TestKillSleeper covers scenario S6: a process blocked in Sleep becomes
// Runnable once Killed, observes CheckKilled, exits, and its parent's Wait
// returns its pid.
func TestKillSleeper(t *testing.T) {
	k, _ := newTestKernel(t, bootconfig.Default())

	done := make(chan struct{})
	var childPid, waitedPid int
	var sawKilled bool

	var sleepMu sync.Mutex
	root := func(rt *Task) {
		defer parkInit(rt)
		cpid, err := Fork(rt, func(ct *Task) {
			sleepMu.Lock()
			Sleep(ct, "never-woken", &sleepMu)
			sawKilled = CheckKilled(ct) == kernerr.ErrInterrupted
			sleepMu.Unlock()
		})
		if err != nil {
			t.Errorf("fork: %v", err)
			close(done)
			return
		}
		childPid = cpid

		// Give the child a moment to reach Sleep before killing it.
		time.Sleep(20 * time.Millisecond)
		if err := Kill(rt.Kernel(), cpid); err != nil {
			t.Errorf("kill: %v", err)
		}

		waitedPid, _ = Wait(rt)
		close(done)
	}

	if _, err := UserInit(k, root); err != nil {
		t.Fatalf("userinit: %v", err)
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for kill/exit/wait")
	}

	if waitedPid != childPid {
		t.Fatalf("wait returned pid %d, want %d", waitedPid, childPid)
	}
	if !sawKilled {
		t.Fatal("killed sleeper did not observe CheckKilled == ErrInterrupted")
	}
}

// TestWaitNoChildren covers the ErrNoChildren path: a process with no
// children gets an immediate error rather than blocking forever.
func TestWaitNoChildren(t *testing.T) {
	k, _ := newTestKernel(t, bootconfig.Default())

	done := make(chan struct{})
	var err error
	root := func(rt *Task) {
		defer parkInit(rt)
		_, err = Wait(rt)
		close(done)
	}
	if _, uerr := UserInit(k, root); uerr != nil {
		t.Fatalf("userinit: %v", uerr)
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out")
	}
	if err != kernerr.ErrNoChildren {
		t.Fatalf("wait err = %v, want ErrNoChildren", err)
	}
}

// TestWaitXTiming covers scenario S2 in a weak form: a child yields
// spinRounds times then exits; waitx succeeds and reports a non-negative
// rtime and a non-negative wtime.
func TestWaitXTiming(t *testing.T) {
	cfg := bootconfig.Default()
	cfg.NCPU = 1
	k, _ := newTestKernel(t, cfg)

	const spinRounds = 20
	done := make(chan struct{})
	var wtime, rtime int64
	var waitErr error

	root := func(rt *Task) {
		defer parkInit(rt)
		_, err := Fork(rt, func(ct *Task) {
			for i := 0; i < spinRounds; i++ {
				Yield(ct)
			}
		})
		if err != nil {
			t.Errorf("fork: %v", err)
			close(done)
			return
		}
		_, wtime, rtime, waitErr = WaitX(rt)
		close(done)
	}

	if _, err := UserInit(k, root); err != nil {
		t.Fatalf("userinit: %v", err)
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for waitx")
	}

	if waitErr != nil {
		t.Fatalf("waitx: %v", waitErr)
	}
	if rtime < 0 {
		t.Fatalf("rtime = %d, want >= 0", rtime)
	}
	if wtime < 0 {
		t.Fatalf("wtime = %d, want >= 0", wtime)
	}
}
