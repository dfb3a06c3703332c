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

// Package bootconfig loads the boot-time configuration that the original
// kernel fixed at compile time: the process table size, CPU count,
// scheduler policy, and timer tick rate.
package bootconfig

import (
	"time"

	"github.com/BurntSushi/toml"
)

// Policy names a scheduler discipline. These match the original's
// compile-time SCHEDULER selector.
type Policy string

const (
	MAIN     Policy = "MAIN"
	TEST     Policy = "TEST"
	PRIORITY Policy = "PRIORITY"
	MLQ      Policy = "MLQ"
)

// Config is the boot-time configuration of a kernel instance.
type Config struct {
	NPROC       int    `toml:"nproc"`
	NCPU        int    `toml:"ncpu"`
	Scheduler   Policy `toml:"scheduler"`
	TickIntervalMS int `toml:"tick_interval_ms"`
}

// Default returns the configuration used when no TOML file is supplied,
// matching the original's compile-time constants.
func Default() Config {
	return Config{
		NPROC:          64,
		NCPU:           8,
		Scheduler:      MAIN,
		TickIntervalMS: 10,
	}
}

// TickInterval is the configured tick interval as a time.Duration.
func (c Config) TickInterval() time.Duration {
	return time.Duration(c.TickIntervalMS) * time.Millisecond
}

// Load reads a TOML document from path and overlays it on Default(). A
// field the file does not set leaves the default in place, so a caller may
// specify only the fields they want to override; a field set in the file,
// even to zero, replaces the default.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
