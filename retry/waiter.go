// Copyright 2021 The httpx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package retry

import (
	"math/rand"
	"sync"
	"time"

	"github.com/gogama/scrapex/request"
	"github.com/gogama/scrapex/transient"
)

// ProxyWait is how long the standard waiter pauses after a proxy
// failure when no proxy bag is active, giving the proxy time to
// recover.
const ProxyWait = 5 * time.Second

// A Waiter specifies how long to wait before retrying a failed
// attempt. The session calls the Waiter only if the Decider did not
// return Stop.
//
// Implementations of Waiter must be safe for concurrent use by multiple
// goroutines.
type Waiter interface {
	Wait(e *request.Execution) time.Duration
}

// NewFixedWaiter constructs a Waiter that always returns d.
func NewFixedWaiter(d time.Duration) Waiter {
	return fixedWaiter(d)
}

type fixedWaiter time.Duration

func (w fixedWaiter) Wait(_ *request.Execution) time.Duration {
	return time.Duration(w)
}

// NewBackoffWaiter constructs the standard waiter, which picks the
// wait by failure category: ProxyWait after a proxy failure without an
// active proxy bag, the wait returned by conn after a connection
// failure, and no wait otherwise.
func NewBackoffWaiter(conn Waiter) Waiter {
	if conn == nil {
		panic("scrapex/retry: nil connection waiter")
	}
	return backoffWaiter{conn}
}

type backoffWaiter struct {
	conn Waiter
}

func (w backoffWaiter) Wait(e *request.Execution) time.Duration {
	switch e.Category {
	case transient.Proxy:
		if !e.Pooled {
			return ProxyWait
		}
	case transient.Connection:
		return w.conn.Wait(e)
	}
	return 0
}

// NewExpWaiter constructs a Waiter implementing an exponential backoff
// formula with optional jitter, for use with NewBackoffWaiter.
//
// The formula implemented is the "Full Jitter" approach described in:
// https://aws.amazon.com/blogs/architecture/exponential-backoff-and-jitter.
// The exponent is the number of connection failures so far, minus one:
//
//	ceil := min(base * 2**(e.ConnFailures-1), max)
//
// Base and max must be positive values, and max must be at least equal
// to base. Pass nil for jitter to always wait ceil, or a seed (a
// time.Time, int, or int64) or a rand.Source to draw a random wait
// between 0 and ceil.
func NewExpWaiter(base, max time.Duration, jitter interface{}) Waiter {
	if base < 1 {
		panic("scrapex/retry: base must be positive")
	}
	if max < base {
		panic("scrapex/retry: max must be at least base")
	}
	return &jitterExpWaiter{
		base: base,
		max:  max,
		rand: jitterToRand(jitter),
	}
}

type jitterExpWaiter struct {
	base time.Duration
	max  time.Duration
	rand *rand.Rand
	lock sync.Mutex
}

func (w *jitterExpWaiter) Wait(e *request.Execution) time.Duration {
	n := e.ConnFailures - 1
	if n < 0 {
		n = 0
	}
	ceil := int64(w.max)
	if n < 62 {
		c := int64(w.base) << n
		if c >= int64(w.base) && c < ceil {
			ceil = c
		}
	}
	if w.rand == nil {
		return time.Duration(ceil)
	}
	w.lock.Lock()
	defer w.lock.Unlock()
	return time.Duration(w.rand.Int63n(ceil))
}

func jitterToRand(jitter interface{}) *rand.Rand {
	var s rand.Source
	switch j := jitter.(type) {
	case nil:
		return nil
	case time.Time:
		s = rand.NewSource(j.UnixNano())
	case int:
		s = rand.NewSource(int64(j))
	case int64:
		s = rand.NewSource(j)
	case *rand.Rand:
		if j == nil {
			panic("scrapex/retry: jitter may not be a typed nil")
		}
		return j
	case rand.Source:
		s = j
	default:
		panic("scrapex/retry: invalid jitter type")
	}
	return rand.New(s)
}
