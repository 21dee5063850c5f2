// Copyright 2021 The httpx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package retry

import (
	"time"

	"github.com/gogama/scrapex/request"
	"github.com/gogama/scrapex/transient"
)

// An Action is what a Decider tells the session to do after an
// attempt.
type Action int

const (
	// Stop ends the execution with the outcome of the last attempt.
	Stop Action = iota
	// Retry makes another attempt through the same egress proxy.
	Retry
	// Rotate discards the active proxy from the session's proxy bag,
	// then makes another attempt through the next one. Without an
	// active bag, Rotate behaves like Retry.
	Rotate
)

var actionNames = []string{"Stop", "Retry", "Rotate"}

// String returns the name of the action.
func (a Action) String() string {
	if a < 0 || int(a) >= len(actionNames) {
		return "Unknown"
	}
	return actionNames[a]
}

// A Decider decides whether, and how, a retry should be done.
//
// The session consults the Decider after every attempt, successful or
// not. The attempt outcome is in e.Err, e.Category and e.Response, and
// the failure counters e.ConnFailures and e.ProxyFailures already
// include it.
//
// Use the built-in constructors Budget, Times, Before, and StatusCode;
// or implement your own Decider. Use DeciderFunc to convert an
// ordinary function into a Decider, and to compose deciders with
// DeciderFunc.And and DeciderFunc.Or.
type Decider interface {
	Decide(e *request.Execution) Action
}

// The DeciderFunc type is an adapter to allow the use of ordinary
// functions as retry deciders. It implements the Decider interface, and
// also provides the composition methods And and Or.
type DeciderFunc func(e *request.Execution) Action

// DefaultTimes is the retry budget of DefaultPolicy.
const DefaultTimes = 5

// DefaultDecider is Budget(DefaultTimes).
var DefaultDecider = Budget(DefaultTimes)

// Decide returns the action to take after examining the current
// execution state.
func (f DeciderFunc) Decide(e *request.Execution) Action {
	return f(e)
}

// And composes two deciders into a decider which stops if either
// sub-decider stops. Otherwise it returns the stronger of the two
// actions, Rotate being stronger than Retry.
//
// Short-circuit logic is used, so g will not be evaluated if f returns
// Stop.
func (f DeciderFunc) And(g DeciderFunc) DeciderFunc {
	return func(e *request.Execution) Action {
		a := f(e)
		if a == Stop {
			return Stop
		}
		b := g(e)
		if b == Stop {
			return Stop
		}
		if b > a {
			return b
		}
		return a
	}
}

// Or composes two deciders into a decider which returns the action of
// f, unless f returns Stop, in which case it returns the action of g.
func (f DeciderFunc) Or(g DeciderFunc) DeciderFunc {
	return func(e *request.Execution) Action {
		if a := f(e); a != Stop {
			return a
		}
		return g(e)
	}
}

// Budget constructs the standard failover decider. It examines the
// failure category of the last attempt:
//
// • Proxy: Rotate if a proxy bag is active. Otherwise Retry through the
// same proxy, up to n times.
//
// • TLS: Retry with certificate verification off if the session allows
// it and the failed attempt was verified. Otherwise Stop.
//
// • Connection: Stop once more than n connection failures have
// happened. Otherwise Rotate if a proxy bag is active, or Retry.
//
// • Truncated: Rotate if a proxy bag is active. Otherwise Stop.
//
// Successful attempts and errors which are not retry triggers Stop.
// Budget(0) disables connection retries but still rotates away from
// failed proxies.
func Budget(n int) DeciderFunc {
	return func(e *request.Execution) Action {
		if e.Err == nil {
			return Stop
		}
		switch e.Category {
		case transient.Proxy:
			if e.Pooled {
				return Rotate
			}
			if e.ProxyFailures > n {
				return Stop
			}
			return Retry
		case transient.TLS:
			if e.SkipVerify && e.Egress.TLSVerify {
				return Retry
			}
			return Stop
		case transient.Connection:
			if e.ConnFailures > n {
				return Stop
			}
			if e.Pooled {
				return Rotate
			}
			return Retry
		case transient.Truncated:
			if e.Pooled {
				return Rotate
			}
			return Stop
		default:
			return Stop
		}
	}
}

// Times constructs a decider which returns Retry while the zero-based
// attempt number e.Attempt is less than n, and Stop afterward.
func Times(n int) DeciderFunc {
	return func(e *request.Execution) Action {
		if e.Attempt < n {
			return Retry
		}
		return Stop
	}
}

// Before constructs a decider which returns Retry while the execution
// duration is less than d, and Stop afterward.
func Before(d time.Duration) DeciderFunc {
	return func(e *request.Execution) Action {
		if e.Duration() < d {
			return Retry
		}
		return Stop
	}
}

// StatusCode constructs a decider which returns Retry if the last
// attempt received a response whose status code is in ss, and Stop
// otherwise. Responses are never retried by the default policy; use
// StatusCode to opt in:
//
//	d := retry.DefaultDecider.Or(retry.StatusCode(503).And(retry.Times(3)))
func StatusCode(ss ...int) DeciderFunc {
	ss2 := make([]int, len(ss))
	copy(ss2, ss)
	return func(e *request.Execution) Action {
		for _, s := range ss2 {
			if e.StatusCode() == s {
				return Retry
			}
		}
		return Stop
	}
}
