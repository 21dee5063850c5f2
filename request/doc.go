// Copyright 2021 The httpx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

/*
Package request contains the core types Plan (describes an HTTP request
plan) and Execution (describes a Plan execution), plus Fields, the
ordered key/value map used for headers and form or query payloads.

A Plan describes how to make a logical HTTP request, potentially
involving repeated attempts if a retry is needed after a failure. A
Plan looks like a stripped-down http.Request with a pre-buffered body,
so that a retried POST resends exactly the same bytes:

	p, err := request.NewPlan("POST", "example.com/search", request.NewFields("q", "golang"))
	...
	e, err := session.Do(p)
	...

The second core type is Execution, which represents the state of the
execution of a plan. It is both the output of the session's executing
methods and the input of retry policies and event handlers.
*/
package request
