// Copyright 2021 The httpx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

/*
Package proxy manages the pool of egress proxies a scrapex session
sends its requests through.

The core type is Bag, an ordered, self-depleting pool. The front
element of a Bag is the active proxy. A proxy is removed only from the
front, by Rotate, and is never reinserted, so once a bag has been
populated it can only shrink:

	var bag proxy.Bag
	err := bag.Populate(candidates, []string{"Europe", "Asia"}, false)
	...
	p, err := bag.Rotate() // discard the active proxy, promote the next
	if errors.Is(err, proxy.ErrEmptyBag) {
		...
	}

Candidate proxies are obtained from a Source. RemoteSource queries a
JSON proxy list service, and StaticSource serves a fixed list, which is
handy for proxies the caller already operates and for tests.
*/
package proxy
