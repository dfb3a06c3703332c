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
	"flag"
	"fmt"
	"strconv"
	"time"

	"github.com/google/subcommands"

	"github.com/vkernel/gokernel/internal/klog"
	"github.com/vkernel/gokernel/pkg/gokernel"
)

// niceCmd implements subcommands.Command for "nice".
type niceCmd struct {
	workers int
}

func (*niceCmd) Name() string     { return "nice" }
func (*niceCmd) Synopsis() string { return "change a process's scheduling priority via chpr" }
func (*niceCmd) Usage() string {
	return "nice PID PRIORITY - boot a demo kernel, then change PID's priority\n"
}

func (c *niceCmd) SetFlags(f *flag.FlagSet) {
	f.IntVar(&c.workers, "workers", 4, "number of synthetic workloads to fork under init")
}

// Execute implements subcommands.Command. Because Chpr requires a *Task
// belonging to a live process, the priority change runs on the demo
// kernel's init process via its action channel rather than directly from
// this command's own goroutine.
func (c *niceCmd) Execute(ctx context.Context, f *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 2 {
		f.Usage()
		return subcommands.ExitUsageError
	}
	pid, err := strconv.Atoi(f.Arg(0))
	if err != nil {
		fmt.Println(err)
		return subcommands.ExitUsageError
	}
	priority, err := strconv.Atoi(f.Arg(1))
	if err != nil {
		fmt.Println(err)
		return subcommands.ExitUsageError
	}

	cfg := loadConfig(*configPath)
	dk, err := bootDemoKernel(ctx, cfg, c.workers)
	if err != nil {
		klog.Warningf("nice: %v", err)
		return subcommands.ExitFailure
	}
	time.Sleep(20 * time.Millisecond)

	var chprErr error
	ok := dk.runAction(func(t *gokernel.Task) {
		_, chprErr = gokernel.Chpr(t, pid, priority)
	})
	if !ok {
		klog.Warningf("nice: init process did not respond")
	} else if chprErr != nil {
		klog.Warningf("chpr: %v", chprErr)
	} else {
		fmt.Printf("pid %d priority set to %d\n", pid, priority)
	}

	if err := dk.k.Shutdown(); err != nil {
		klog.Warningf("shutdown: %v", err)
	}
	if chprErr != nil {
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}
