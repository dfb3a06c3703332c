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

// Command gokernel is a demo and debug CLI for the process-scheduling
// kernel core in pkg/gokernel: it boots an in-memory kernel from a TOML
// configuration and drives its cps/proc_dump/nice-equivalent operations,
// the same role runsc's debug subcommands play for a sentry instance.
package main

import (
	"context"
	"flag"
	"os"

	"github.com/google/subcommands"

	"github.com/vkernel/gokernel/internal/klog"
)

var configPath = flag.String("config", "", "path to a TOML boot configuration (defaults built in if omitted)")
var logLevel = flag.String("log-level", "info", "log level: debug, info, warn, error")

func main() {
	subcommands.Register(subcommands.HelpCommand(), "")
	subcommands.Register(subcommands.FlagsCommand(), "")
	subcommands.Register(subcommands.CommandsCommand(), "")
	subcommands.Register(&bootCmd{}, "")
	subcommands.Register(&psCmd{}, "")
	subcommands.Register(&dumpCmd{}, "")
	subcommands.Register(&niceCmd{}, "")

	flag.Parse()
	if err := klog.SetLevel(*logLevel); err != nil {
		klog.Warningf("invalid -log-level %q: %v", *logLevel, err)
	}

	ctx := context.Background()
	os.Exit(int(subcommands.Execute(ctx)))
}
