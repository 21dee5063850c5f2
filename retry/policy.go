// Copyright 2021 The httpx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package retry

import (
	"time"

	"github.com/gogama/scrapex/request"
)

// A Policy controls if and how retries are done in an execution. After
// every attempt, a Policy decides what to do next and, if the decision
// is not Stop, how long to wait first.
//
// A Policy is composed of the Decider and Waiter interfaces. Use one
// of the built-in policies, DefaultPolicy or Never, build one from a
// retry budget and backoff with NewPolicy, or compose your own with
// Compose.
type Policy interface {
	Decider
	Waiter
}

// DefaultPolicy retries connection failures up to DefaultTimes times
// without waiting in between. It is NewPolicy(DefaultTimes, 0).
var DefaultPolicy = NewPolicy(DefaultTimes, 0)

// Never is a policy that never retries, whatever the failure.
var Never = Compose(Times(0), NewFixedWaiter(0))

type policy struct {
	decider Decider
	waiter  Waiter
}

// NewPolicy returns the standard policy: decisions by Budget(budget),
// and a fixed wait of backoff between connection failure retries. A
// zero backoff retries without waiting.
func NewPolicy(budget int, backoff time.Duration) Policy {
	return Compose(Budget(budget), NewBackoffWaiter(NewFixedWaiter(backoff)))
}

// Compose composes a Decider and a Waiter into a retry Policy.
func Compose(d Decider, w Waiter) Policy {
	if d == nil {
		panic("scrapex/retry: nil decider")
	}
	if w == nil {
		panic("scrapex/retry: nil waiter")
	}
	return policy{decider: d, waiter: w}
}

func (p policy) Decide(e *request.Execution) Action {
	return p.decider.Decide(e)
}

func (p policy) Wait(e *request.Execution) time.Duration {
	return p.waiter.Wait(e)
}
