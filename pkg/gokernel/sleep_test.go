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
	"sync/atomic"
	"testing"
	"time"

	"github.com/vkernel/gokernel/internal/bootconfig"
)

// TestSleepWakeupAll covers scenario S5: N waiters sleep on the same
// channel value; one Wakeup transitions all of them to Runnable, and a
// second Wakeup on the same channel is a no-op (none were re-added to the
// sleep set).
func TestSleepWakeupAll(t *testing.T) {
	const n = 5
	cfg := bootconfig.Default()
	k, _ := newTestKernel(t, cfg)

	var mu sync.Mutex
	var woken atomic.Int32
	var wg sync.WaitGroup
	wg.Add(n)

	root := func(rt *Task) {
		defer parkInit(rt)
		for i := 0; i < n; i++ {
			_, err := Fork(rt, func(ct *Task) {
				mu.Lock()
				Sleep(ct, "the-channel", &mu)
				mu.Unlock()
				woken.Add(1)
				wg.Done()
			})
			if err != nil {
				t.Errorf("fork %d: %v", i, err)
			}
		}
		for i := 0; i < n; i++ {
			if _, err := Wait(rt); err != nil {
				t.Errorf("wait: %v", err)
			}
		}
	}

	if _, err := UserInit(k, root); err != nil {
		t.Fatalf("userinit: %v", err)
	}

	// Give every child a chance to reach Sleep.
	time.Sleep(50 * time.Millisecond)

	Wakeup(k, "the-channel")
	// A second wakeup on the same (by now empty) sleep set must be benign.
	Wakeup(k, "the-channel")

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for all sleepers to wake")
	}

	if got := woken.Load(); got != n {
		t.Fatalf("woken = %d, want %d", got, n)
	}
}
