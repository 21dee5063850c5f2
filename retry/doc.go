// Copyright 2021 The httpx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Package retry provides the policies deciding how a scrapex session
// recovers from a failed attempt: give up, retry through the same
// egress, or rotate to the next proxy; and how long to wait first.
//
// The interface Policy defines a retry policy. NewPolicy builds the
// standard one from a retry budget and a fixed backoff:
//
//	policy := retry.NewPolicy(3, 2*time.Second)
//
// Policies can also be composed from a Decider and a Waiter, both of
// which have constructors for common use cases:
//
//	decider := retry.Budget(3).Or(retry.StatusCode(503).And(retry.Times(2)))
//	waiter := retry.NewBackoffWaiter(retry.NewExpWaiter(100*time.Millisecond, 2*time.Second, time.Now()))
//	policy := retry.Compose(decider, waiter)
package retry
