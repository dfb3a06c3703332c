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

package main

import (
	"context"
	"time"

	"github.com/vkernel/gokernel/internal/bootconfig"
	"github.com/vkernel/gokernel/internal/klog"
	"github.com/vkernel/gokernel/pkg/gokernel"
)

// loadConfig reads the TOML file at path, falling back to the compiled-in
// default when path is empty.
func loadConfig(path string) bootconfig.Config {
	cfg, err := bootconfig.Load(path)
	if err != nil {
		klog.Warningf("loading config %q: %v, using defaults", path, err)
		return bootconfig.Default()
	}
	return cfg
}

// action is a unit of work the demo's init process runs on its own task,
// letting CLI commands reach operations like Chpr/SetPriority that require
// a *Task belonging to a live process, without those commands having to be
// kernel workloads themselves.
type action func(t *gokernel.Task)

// spin is a synthetic workload: it yields a fixed number of rounds,
// occasionally checking for preemption and for having been killed, then
// returns (causing its driver to Exit it). It stands in for the shell/user
// processes a real boot would run, giving the demo CLI something concrete
// to fork, wait on and kill.
func spin(rounds int) gokernel.Workload {
	return func(t *gokernel.Task) {
		for i := 0; i < rounds; i++ {
			if err := gokernel.CheckKilled(t); err != nil {
				return
			}
			t.CheckPreempt()
			gokernel.Yield(t)
		}
	}
}

// initWorkload forks n spinning children, then services actions sent on
// actions (running each on its own task) until it has reaped every child,
// draining any actions that arrive afterward so a slow CLI command never
// blocks on a send to a channel nobody reads anymore. It yields between
// checks, so its CPU's dispatch loop keeps running and Shutdown can stop it.
func initWorkload(n int, actions <-chan action) gokernel.Workload {
	return func(t *gokernel.Task) {
		remaining := n
		for i := 0; i < n; i++ {
			if _, err := gokernel.Fork(t, spin(50)); err != nil {
				klog.Warningf("fork: %v", err)
				remaining--
			}
		}
		for remaining > 0 {
			select {
			case act := <-actions:
				act(t)
			default:
				if _, err := gokernel.Wait(t); err == nil {
					remaining--
				} else {
					gokernel.Yield(t)
				}
			}
		}
		for {
			select {
			case act, ok := <-actions:
				if !ok {
					return
				}
				act(t)
			default:
				gokernel.Yield(t)
			}
		}
	}
}

// demoKernel is a booted kernel plus the channel used to reach its init
// process's task for task-bound debug operations.
type demoKernel struct {
	k       *gokernel.Kernel
	actions chan action
}

// bootDemoKernel builds a kernel from cfg, installs an init process that
// forks n spinning children, and boots the kernel's CPU and timer
// goroutines. The caller is responsible for calling Shutdown.
func bootDemoKernel(ctx context.Context, cfg bootconfig.Config, n int) (*demoKernel, error) {
	k := gokernel.New(cfg)
	actions := make(chan action)

	if _, err := gokernel.UserInit(k, initWorkload(n, actions)); err != nil {
		return nil, err
	}

	k.Boot(ctx)
	time.Sleep(5 * time.Millisecond)

	return &demoKernel{k: k, actions: actions}, nil
}

// runAction sends act to the init process and waits for it to run, timing
// out rather than blocking forever if init has already wound down.
func (d *demoKernel) runAction(act action) bool {
	done := make(chan struct{})
	wrapped := func(t *gokernel.Task) {
		act(t)
		close(done)
	}
	select {
	case d.actions <- wrapped:
	case <-time.After(200 * time.Millisecond):
		return false
	}
	select {
	case <-done:
		return true
	case <-time.After(200 * time.Millisecond):
		return false
	}
}
