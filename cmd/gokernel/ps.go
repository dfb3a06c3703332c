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
	"os"
	"time"

	"github.com/google/subcommands"

	"github.com/vkernel/gokernel/internal/klog"
	"github.com/vkernel/gokernel/pkg/gokernel"
)

// psCmd implements subcommands.Command for "ps".
type psCmd struct {
	workers int
}

func (*psCmd) Name() string     { return "ps" }
func (*psCmd) Synopsis() string { return "print the process table of a freshly booted demo kernel" }
func (*psCmd) Usage() string    { return "ps [-workers N] - boot, let N workers run briefly, print cps()\n" }

func (c *psCmd) SetFlags(f *flag.FlagSet) {
	f.IntVar(&c.workers, "workers", 4, "number of synthetic workloads to fork under init")
}

// Execute implements subcommands.Command. It boots an ephemeral demo
// kernel, lets its workloads run for a moment, prints the cps()-style
// table, and shuts the kernel down.
func (c *psCmd) Execute(ctx context.Context, f *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	cfg := loadConfig(*configPath)
	dk, err := bootDemoKernel(ctx, cfg, c.workers)
	if err != nil {
		klog.Warningf("ps: %v", err)
		return subcommands.ExitFailure
	}
	time.Sleep(20 * time.Millisecond)
	gokernel.Cps(dk.k, os.Stdout)
	if err := dk.k.Shutdown(); err != nil {
		klog.Warningf("shutdown: %v", err)
	}
	return subcommands.ExitSuccess
}
