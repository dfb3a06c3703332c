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
	"testing"
	"time"

	"github.com/vkernel/gokernel/internal/bootconfig"
)

// TestPriorityPolicyFavorsLowerNumber covers scenario S3: under the
// PRIORITY scheduler, a lower-numbered (higher) priority process should
// receive the large majority of Running ticks over a long interval versus
// a higher-numbered (lower) priority competitor.
func TestPriorityPolicyFavorsLowerNumber(t *testing.T) {
	cfg := bootconfig.Default()
	cfg.NCPU = 1
	cfg.Scheduler = bootconfig.PRIORITY
	cfg.TickIntervalMS = 1
	k, _ := newTestKernel(t, cfg)

	var highPID, lowPID int
	stop := make(chan struct{})

	root := func(rt *Task) {
		defer parkInit(rt)
		hpid, err := Fork(rt, func(ct *Task) {
			SetPriority(ct, 30)
			for {
				select {
				case <-stop:
					return
				default:
				}
				Yield(ct)
			}
		})
		if err != nil {
			t.Errorf("fork high: %v", err)
			return
		}
		highPID = hpid

		lpid, err := Fork(rt, func(ct *Task) {
			SetPriority(ct, 60)
			for {
				select {
				case <-stop:
					return
				default:
				}
				Yield(ct)
			}
		})
		if err != nil {
			t.Errorf("fork low: %v", err)
			return
		}
		lowPID = lpid
	}

	if _, err := UserInit(k, root); err != nil {
		t.Fatalf("userinit: %v", err)
	}

	time.Sleep(300 * time.Millisecond)
	close(stop)
	time.Sleep(50 * time.Millisecond)

	var highRtime, lowRtime int64
	for _, p := range k.Table().Slots() {
		switch p.Pid() {
		case highPID:
			_, highRtime, _, _ = p.Stats()
		case lowPID:
			_, lowRtime, _, _ = p.Stats()
		}
	}

	total := highRtime + lowRtime
	if total == 0 {
		t.Fatal("neither competitor accumulated any rtime")
	}
	if frac := float64(highRtime) / float64(total); frac < 0.9 {
		t.Fatalf("priority-30 process received only %.2f%% of running ticks, want >= 90%%", frac*100)
	}
}

// TestMLQDemotion covers the demotion half of scenario S4: a CPU-bound
// process entering at queue 1 keeps yielding, is demoted until its priority
// reaches 3, and then runs to completion and is reaped. The queue[]
// counters and the short-lived-process case are not checked here.
func TestMLQDemotion(t *testing.T) {
	cfg := bootconfig.Default()
	cfg.NCPU = 1
	cfg.Scheduler = bootconfig.MLQ
	cfg.TickIntervalMS = 1
	k, _ := newTestKernel(t, cfg)

	var cpuBoundPID int
	reached3 := make(chan struct{})
	done := make(chan struct{})

	root := func(rt *Task) {
		defer parkInit(rt)
		pid, err := Fork(rt, func(ct *Task) {
			for i := 0; i < 50; i++ {
				Yield(ct)
				if ct.Proc().Priority() == 3 {
					select {
					case <-reached3:
					default:
						close(reached3)
					}
				}
			}
		})
		if err != nil {
			t.Errorf("fork: %v", err)
			close(done)
			return
		}
		cpuBoundPID = pid
		Wait(rt)
		close(done)
	}

	if _, err := UserInit(k, root); err != nil {
		t.Fatalf("userinit: %v", err)
	}
	_ = cpuBoundPID

	select {
	case <-reached3:
	case <-time.After(2 * time.Second):
		t.Fatal("process never demoted to queue 3")
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("process never exited")
	}
}
