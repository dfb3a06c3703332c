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

// Package timersrc is the kernel core's timer interrupt source: it paces
// ticks at a configured interval and invokes a callback on each one,
// standing in for the original's timer-interrupt handler incrementing a
// global ticks counter and waking anyone sleeping on it.
package timersrc

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Source paces ticks at a fixed interval using a token-bucket limiter
// rather than a bare time.Ticker, so a caller can later widen this into
// jittered or bursty tick delivery without changing Run's shape.
type Source struct {
	limiter *rate.Limiter
}

// New returns a Source that permits one tick per interval, with no burst
// allowance: ticks cannot accumulate while the kernel is busy.
func New(interval time.Duration) *Source {
	if interval <= 0 {
		interval = time.Millisecond
	}
	return &Source{limiter: rate.NewLimiter(rate.Every(interval), 1)}
}

// Run blocks, invoking tick once per paced interval with a monotonically
// increasing tick count starting at 1, until ctx is canceled. It returns
// ctx.Err() on cancellation, the errgroup-friendly shape the kernel's Boot
// uses to supervise the timer goroutine alongside its per-CPU loops.
func (s *Source) Run(ctx context.Context, tick func(now int64)) error {
	var n int64
	for {
		if err := s.limiter.Wait(ctx); err != nil {
			return ctx.Err()
		}
		n++
		tick(n)
	}
}
