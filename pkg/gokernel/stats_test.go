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
	"bytes"
	"testing"
	"time"

	"github.com/vkernel/gokernel/internal/bootconfig"
	"github.com/vkernel/gokernel/internal/kernerr"
)

func TestProcDumpRejectsEmptyOut(t *testing.T) {
	k, _ := newTestKernel(t, bootconfig.Default())
	if _, err := ProcDump(k, nil); err != kernerr.ErrInvalidArgument {
		t.Fatalf("ProcDump(nil) = %v, want ErrInvalidArgument", err)
	}
}

func TestProcDumpSortedBySize(t *testing.T) {
	cfg := bootconfig.Default()
	k, _ := newTestKernel(t, cfg)

	done := make(chan struct{})
	root := func(rt *Task) {
		defer parkInit(rt)
		for _, grow := range []int{300, 100, 200} {
			g := grow
			_, err := Fork(rt, func(ct *Task) {
				ct.Proc().addrSpace.Grow(g)
				for i := 0; i < 20; i++ {
					Yield(ct)
				}
			})
			if err != nil {
				t.Errorf("fork: %v", err)
			}
		}
		close(done)
	}
	if _, err := UserInit(k, root); err != nil {
		t.Fatalf("userinit: %v", err)
	}
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out")
	}

	time.Sleep(20 * time.Millisecond)
	out := make([]ProcInfo, 10)
	rows, err := ProcDump(k, out)
	if err != nil {
		t.Fatalf("ProcDump: %v", err)
	}
	for i := 1; i < len(rows); i++ {
		if rows[i-1].Sz > rows[i].Sz {
			t.Fatalf("ProcDump not sorted ascending by size: %+v", rows)
		}
	}
}

func TestChprRejectedUnderRoundRobin(t *testing.T) {
	cfg := bootconfig.Default()
	cfg.Scheduler = bootconfig.MAIN
	k, _ := newTestKernel(t, cfg)

	done := make(chan struct{})
	var gotErr error
	root := func(rt *Task) {
		defer parkInit(rt)
		_, gotErr = Chpr(rt, rt.Proc().Pid(), 5)
		close(done)
	}
	if _, err := UserInit(k, root); err != nil {
		t.Fatalf("userinit: %v", err)
	}
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out")
	}
	if gotErr != kernerr.ErrChprRejected {
		t.Fatalf("chpr err = %v, want ErrChprRejected", gotErr)
	}
}

func TestSetPriorityValidatesRange(t *testing.T) {
	cfg := bootconfig.Default()
	k, _ := newTestKernel(t, cfg)

	done := make(chan struct{})
	var err1, err2 error
	root := func(rt *Task) {
		defer parkInit(rt)
		_, err1 = SetPriority(rt, -1)
		_, err2 = SetPriority(rt, 101)
		close(done)
	}
	if _, err := UserInit(k, root); err != nil {
		t.Fatalf("userinit: %v", err)
	}
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out")
	}
	if err1 != kernerr.ErrInvalidArgument {
		t.Fatalf("SetPriority(-1) err = %v, want ErrInvalidArgument", err1)
	}
	if err2 != kernerr.ErrInvalidArgument {
		t.Fatalf("SetPriority(101) err = %v, want ErrInvalidArgument", err2)
	}
}

func TestCpsReportsScheduler(t *testing.T) {
	cfg := bootconfig.Default()
	cfg.Scheduler = bootconfig.TEST
	k, _ := newTestKernel(t, cfg)

	done := make(chan struct{})
	root := func(rt *Task) {
		defer parkInit(rt)
		close(done)
	}
	if _, err := UserInit(k, root); err != nil {
		t.Fatalf("userinit: %v", err)
	}
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out")
	}

	var buf bytes.Buffer
	Cps(k, &buf)
	if !bytes.Contains(buf.Bytes(), []byte("scheduler: test")) {
		t.Fatalf("Cps output missing scheduler name: %q", buf.String())
	}
}
