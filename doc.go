// Copyright 2021 The httpx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

/*
Package scrapex provides a resilient HTTP session for data collection:
requests are retried through transient failures, rotated across a pool
of egress proxies, paced per destination host, and recorded in a
request manifest.

Create a Session to begin making requests.

	s := &scrapex.Session{}
	ex, err := s.Get("https://www.example.com", nil)
	...
	ex, err := s.Get("example.com/search", map[string]string{"q": "widgets"})
	...
	ex, err := s.Post("https://www.example.com/form",
		url.Values{"key": {"Value"}, "id": {"123"}})

To pace requests to the same site, set a minimum wait. Two requests to
"www.example.com" and "api.example.com" count as the same site:

	s := &scrapex.Session{
		MinimumWait: 2 * time.Second,
	}

To send requests through a pool of proxies, configure a proxy source
and activate the proxy bag. Proxy failures, connection failures and
truncated transfers then rotate to the next proxy in the bag:

	s := &scrapex.Session{
		ProxySource: &proxy.RemoteSource{BaseURL: "https://proxies.example.com/api"},
	}
	err := s.FillProxyBag(ctx, []string{"Europe", "North America"}, true)
	...
	err = s.UseRandomPublicProxy(ctx, true)

For control over retry decisions and timing, build a retry policy with
package retry:

	s := &scrapex.Session{
		RetryPolicy: retry.NewPolicy(3, time.Second),
	}

Every error that ends a request is a *url.Error. When the cause was a
retry trigger the error matches one of the sentinels in package
transient:

	_, err := s.Get("https://www.example.com", nil)
	if errors.Is(err, transient.ErrConnection) {
		...
	}

To hook into the fine-grained details of request execution, install a
handler into the appropriate handler chain:

	handlers := &scrapex.HandlerGroup{}
	handlers.PushBack(scrapex.BeforeAttempt, scrapex.HandlerFunc(
		func(_ scrapex.Event, e *request.Execution) {
			log.Printf("Attempt %d to %s", e.Attempt, e.Request.URL)
		}),
	)
	s := &scrapex.Session{
		Handlers: handlers,
	}

Package scrapex provides basic interfaces for each method of the
session (Doer, Getter, Poster, Putter, Deleter, Requester and
IdleCloser); a combined interface that composes all the basic methods
(Executor); and utility functions for working with a Doer (Inflate,
Get, Post, Put, Delete and Request).
*/
package scrapex
