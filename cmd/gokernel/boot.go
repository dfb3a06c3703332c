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
	"os"
	"os/signal"
	"time"

	"github.com/google/subcommands"
	"golang.org/x/sys/unix"

	"github.com/vkernel/gokernel/internal/klog"
	"github.com/vkernel/gokernel/pkg/gokernel"
)

// bootCmd implements subcommands.Command for "boot".
type bootCmd struct {
	workers  int
	duration time.Duration
}

func (*bootCmd) Name() string     { return "boot" }
func (*bootCmd) Synopsis() string { return "boot an in-memory kernel with synthetic workloads" }
func (*bootCmd) Usage() string {
	return "boot [-workers N] [-duration D] - run the kernel until signaled or D elapses\n"
}

func (c *bootCmd) SetFlags(f *flag.FlagSet) {
	f.IntVar(&c.workers, "workers", 4, "number of synthetic workloads to fork under init")
	f.DurationVar(&c.duration, "duration", 0, "stop after this long even without a signal (0 = run until signaled)")
}

// Execute implements subcommands.Command. It boots the kernel, prints a
// cps-style table every few ticks, and tears the kernel down cleanly on
// SIGINT/SIGTERM (or after -duration, if set), translating unix signals
// into errgroup-supervised shutdown per the corpus's own runsc CLI.
func (c *bootCmd) Execute(ctx context.Context, f *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	cfg := loadConfig(*configPath)

	dk, err := bootDemoKernel(ctx, cfg, c.workers)
	if err != nil {
		klog.Warningf("boot: %v", err)
		return subcommands.ExitFailure
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, unix.SIGINT, unix.SIGTERM)
	defer signal.Stop(sigCh)

	var timeout <-chan time.Time
	if c.duration > 0 {
		timeout = time.After(c.duration)
	}

	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

loop:
	for {
		select {
		case <-ticker.C:
			gokernel.Cps(dk.k, os.Stdout)
		case <-timeout:
			break loop
		case sig := <-sigCh:
			fmt.Fprintf(os.Stdout, "received %s, shutting down\n", sig)
			break loop
		case <-ctx.Done():
			break loop
		}
	}

	if err := dk.k.Shutdown(); err != nil {
		klog.Warningf("shutdown: %v", err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}
