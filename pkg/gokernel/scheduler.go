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
	"context"

	"github.com/vkernel/gokernel/internal/bootconfig"
)

// Scheduler is one dispatch discipline. Round performs a single
// policy-specific scheduling round on cpu and returns; the kernel's
// per-CPU loop calls Round repeatedly, which is what gives each
// implementation's internal "continue looking" logic the shape of an
// outer forever loop without actually writing one per policy.
type Scheduler interface {
	Round(ctx context.Context, k *Kernel, cpu *CPU)
}

// schedulerFor selects the Scheduler implementation named by a boot
// configuration's policy, the Go stand-in for the original's compile-time
// SCHEDULER selector (spec.md §6 "Compile-time selector").
func schedulerFor(policy bootconfig.Policy) Scheduler {
	switch policy {
	case bootconfig.TEST:
		return TestScheduler{}
	case bootconfig.PRIORITY:
		return PriorityScheduler{}
	case bootconfig.MLQ:
		return MLQScheduler{}
	default:
		return RoundRobinScheduler{}
	}
}
