// Copyright 2021 The httpx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package scrapex

// An Event identifies the event type when installing or running a
// Handler. Install event handlers in a Session to extend it with custom
// functionality, such as the collector in package metrics.
type Event int

const (
	// BeforeExecutionStart identifies the event that occurs before the
	// plan execution starts, after the rate limit wait.
	//
	// When Session fires BeforeExecutionStart, the execution is non-nil
	// and its plan and start time are set.
	BeforeExecutionStart Event = iota
	// BeforeAttempt identifies the event that occurs before each
	// individual HTTP request attempt during the plan execution.
	//
	// When Session fires BeforeAttempt, the execution's request and
	// egress fields describe the attempt that WILL BE sent after all
	// BeforeAttempt handlers have finished. Handlers may modify the
	// request. Its header is a private copy, but its URL is shared with
	// the plan and should be cloned before being changed.
	BeforeAttempt
	// BeforeReadBody identifies the event that occurs after an HTTP
	// request attempt has resulted in an HTTP response (as opposed to
	// an error) but before the response body is read and buffered.
	//
	// BeforeReadBody never fires if the attempt ended in error, but
	// always fires if a response is received, regardless of its status
	// code.
	BeforeReadBody
	// AfterAttempt identifies the event that occurs after an HTTP
	// request attempt is concluded, regardless of whether it concluded
	// successfully or not.
	//
	// When Session fires AfterAttempt, the execution's failure
	// category is set, its failure counters are updated, and either
	// its response or its error (or both, if the body read failed) is
	// non-nil. AfterAttempt runs before the retry policy is consulted.
	AfterAttempt
	// AfterRotate identifies the event that occurs after the retry
	// policy asked for a new proxy and the session rotated its proxy
	// bag. The execution still describes the failed attempt.
	AfterRotate
	// AfterExecutionEnd identifies the event that occurs after the plan
	// execution ends.
	//
	// When Session fires AfterExecutionEnd, the execution is in the
	// same state it was in after the final attempt EXCEPT that the end
	// time is set, and Err holds the error returned to the caller.
	AfterExecutionEnd
	// eventSentinel provides the total number of events typed as an
	// Event.
	eventSentinel

	// numEvents provides the total number of events types as an int.
	numEvents = int(eventSentinel)
)

var eventNames = []string{
	"BeforeExecutionStart",
	"BeforeAttempt",
	"BeforeReadBody",
	"AfterAttempt",
	"AfterRotate",
	"AfterExecutionEnd",
}

// Events returns a slice containing all events which can occur in an
// HTTP request plan execution by Session, in the order in which they
// would occur.
func Events() []Event {
	return []Event{
		BeforeExecutionStart,
		BeforeAttempt,
		BeforeReadBody,
		AfterAttempt,
		AfterRotate,
		AfterExecutionEnd,
	}
}

// Name returns the name of the event.
func (evt Event) Name() string {
	return eventNames[int(evt)]
}

// String returns the name of the event.
func (evt Event) String() string {
	return evt.Name()
}
