// Copyright 2021 The httpx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package scrapex

import (
	"errors"

	"github.com/gogama/scrapex/proxy"
)

// Errors a caller may test for with errors.Is. The retry trigger
// sentinels live in package transient.
var (
	// ErrEmptyProxyBag is returned when a proxy is needed from the bag
	// but none is left.
	ErrEmptyProxyBag = proxy.ErrEmptyBag
	// ErrInvalidContinent is returned when a continent filter names an
	// unknown continent.
	ErrInvalidContinent = proxy.ErrInvalidContinent
	// ErrNoRemoteService is returned when the proxy source cannot be
	// used.
	ErrNoRemoteService = proxy.ErrNoRemoteService
	// ErrCannotOverwriteFile is returned by Save when the destination
	// file exists and overwriting was not requested.
	ErrCannotOverwriteFile = errors.New("scrapex: cannot overwrite existing file")
	// ErrContentTooLarge is returned by Save when the remote content
	// is larger than the session's MaxContentLength.
	ErrContentTooLarge = errors.New("scrapex: content too large")
)
