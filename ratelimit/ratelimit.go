// Copyright 2021 The httpx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Package ratelimit enforces a minimum interval between consecutive
// requests to the same destination host.
//
// A Limiter never sleeps. The session asks it how long to wait with
// ShouldDelay, does the waiting itself, and then records the dispatch
// time with Record:
//
//	if d := l.ShouldDelay(key, now); d > 0 {
//		time.Sleep(d)
//	}
//	l.Record(key, time.Now())
package ratelimit

import "time"

// A Limiter tracks the last request time per host key. The zero value
// has a zero Floor and never asks for a delay.
//
// A Limiter is not safe for concurrent use by multiple goroutines.
type Limiter struct {
	// Floor is the minimum interval between two requests to the same
	// host key. Sub-second floors are honored.
	Floor time.Duration

	last map[string]time.Time
}

// New returns a Limiter with the given floor.
func New(floor time.Duration) *Limiter {
	return &Limiter{Floor: floor}
}

// ShouldDelay returns how long the caller must wait, as of now, before
// sending a request to host. The result is zero when no request to host
// has been recorded, or when at least Floor has elapsed since the last
// one. Otherwise it is Floor minus the elapsed time.
func (l *Limiter) ShouldDelay(host string, now time.Time) time.Duration {
	if l.Floor <= 0 {
		return 0
	}
	t, ok := l.last[host]
	if !ok {
		return 0
	}
	elapsed := now.Sub(t)
	if elapsed >= l.Floor {
		return 0
	}
	if elapsed < 0 {
		// The clock went backwards. Wait out the full floor.
		return l.Floor
	}
	return l.Floor - elapsed
}

// Record stores t as the time of the most recent request to host.
func (l *Limiter) Record(host string, t time.Time) {
	if l.last == nil {
		l.last = make(map[string]time.Time)
	}
	l.last[host] = t
}

// Last returns the time of the most recent request recorded for host.
func (l *Limiter) Last(host string) (time.Time, bool) {
	t, ok := l.last[host]
	return t, ok
}
