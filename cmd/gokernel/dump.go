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
	"time"

	"github.com/google/subcommands"

	"github.com/vkernel/gokernel/internal/klog"
	"github.com/vkernel/gokernel/pkg/gokernel"
)

// dumpCmd implements subcommands.Command for "dump".
type dumpCmd struct {
	workers int
}

func (*dumpCmd) Name() string     { return "dump" }
func (*dumpCmd) Synopsis() string { return "print up to N proc_dump entries sorted by memory size" }
func (*dumpCmd) Usage() string    { return "dump N - boot a demo kernel and print ProcDump's top N entries\n" }

func (c *dumpCmd) SetFlags(f *flag.FlagSet) {
	f.IntVar(&c.workers, "workers", 4, "number of synthetic workloads to fork under init")
}

// Execute implements subcommands.Command.
func (c *dumpCmd) Execute(ctx context.Context, f *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		f.Usage()
		return subcommands.ExitUsageError
	}
	n, err := parsePositiveInt(f.Arg(0))
	if err != nil {
		fmt.Println(err)
		return subcommands.ExitUsageError
	}

	cfg := loadConfig(*configPath)
	dk, err := bootDemoKernel(ctx, cfg, c.workers)
	if err != nil {
		klog.Warningf("dump: %v", err)
		return subcommands.ExitFailure
	}
	time.Sleep(20 * time.Millisecond)

	out := make([]gokernel.ProcInfo, n)
	rows, err := gokernel.ProcDump(dk.k, out)
	if err != nil {
		klog.Warningf("proc_dump: %v", err)
	} else {
		for _, r := range rows {
			fmt.Printf("pid=%d sz=%d\n", r.Pid, r.Sz)
		}
	}

	if err := dk.k.Shutdown(); err != nil {
		klog.Warningf("shutdown: %v", err)
	}
	return subcommands.ExitSuccess
}
