// Copyright 2021 The httpx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package request

import (
	"context"
	"net/http"
	"time"

	"github.com/gogama/scrapex/transient"
	"github.com/gogama/scrapex/transport"
)

// An Execution represents the state of a single Plan execution.
//
// When a session executes a plan, it creates an Execution for it. The
// Execution is updated as the plan execution progresses, for example
// when a response arrives or a retry is needed, and is ultimately
// returned to the caller.
//
// Retry policies and event handlers may set values on an Execution
// using its SetValue method and read them back using Value. They should
// treat the exported fields as read-only, with the exception of
// reasonable changes to the http.Request before it is sent.
type Execution struct {
	// Plan specifies the HTTP request plan being executed. It is never
	// nil.
	Plan *Plan

	// Start is the start time of the execution.
	Start time.Time

	// End is the end time of the execution. It is zero until the
	// execution ends.
	End time.Time

	// Attempt is the zero-based number of the current attempt. When
	// the execution has ended, it is the number of the last attempt.
	Attempt int

	// Egress is the network path of the current or most recent
	// attempt.
	Egress transport.Egress

	// Pooled reports whether the session had a proxy bag active for
	// the current or most recent attempt, so that a retry policy may
	// rotate to another proxy.
	Pooled bool

	// SkipVerify reports whether the session allows TLS certificate
	// verification to be turned off after a TLS failure.
	SkipVerify bool

	// Request specifies the HTTP request of the current or most
	// recent attempt.
	Request *http.Request

	// Response specifies the HTTP response received in the most recent
	// attempt. It is nil if that attempt ended in an error.
	Response *http.Response

	// Err is the error of the most recent attempt, or nil. Once the
	// execution has ended, Err is the error returned by the session,
	// which is always a *url.Error when not nil.
	Err error

	// Category is the failure category of the most recent attempt's
	// error, as reported by transient.Categorize.
	Category transient.Category

	// ConnFailures counts the attempts which failed with a Connection
	// failure.
	ConnFailures int

	// ProxyFailures counts the attempts which failed with a Proxy
	// failure.
	ProxyFailures int

	// Body is the response body read after the most recent attempt.
	// Body may be non-nil alongside a non-nil Err when the read was
	// truncated.
	Body []byte

	data context.Context
}

// StatusCode returns the status code of the most recent response, or 0
// if there is none.
func (e *Execution) StatusCode() int {
	if e.Response == nil {
		return 0
	}
	return e.Response.StatusCode
}

// Header returns the headers of the most recent response, or a nil
// header if there is none.
func (e *Execution) Header() http.Header {
	if e.Response == nil {
		var nilHeader http.Header
		return nilHeader
	}
	return e.Response.Header
}

// Duration returns the duration of the execution: zero before it
// starts, End minus Start once it ends, and the time elapsed since
// Start in between.
func (e *Execution) Duration() time.Duration {
	if !e.Started() {
		return time.Duration(0)
	} else if !e.Ended() {
		return time.Since(e.Start)
	}
	return e.End.Sub(e.Start)
}

// Started indicates whether the execution has started.
func (e *Execution) Started() bool {
	return !e.Start.IsZero()
}

// Ended indicates whether the execution has ended.
func (e *Execution) Ended() bool {
	return !e.End.IsZero()
}

// Failed indicates whether the most recent attempt failed with a
// retry trigger error.
func (e *Execution) Failed() bool {
	return e.Err != nil && e.Category != transient.Not
}

// SetValue allows event handlers to store arbitrary data in the
// execution. The key must follow the rules for the key parameter of
// context.WithValue.
func (e *Execution) SetValue(key, value interface{}) {
	ctx := e.data
	if ctx == nil {
		ctx = context.Background()
	}
	e.data = context.WithValue(ctx, key, value)
}

// Value returns the data value associated with this execution for key,
// or nil if there is no value associated with key.
func (e *Execution) Value(key interface{}) interface{} {
	ctx := e.data
	if ctx == nil {
		return nil
	}
	return ctx.Value(key)
}
