// Copyright 2021 The httpx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Package transient classifies errors from HTTP request attempts into
// the retry trigger categories understood by the scrapex session:
// proxy failures, TLS validation failures, connection failures, and
// truncated transfers.
//
// The Error type is the tagged signal passed around inside the retry
// loop. Once a retry budget is exhausted it becomes the cause of the
// terminal error returned to the caller, who can match it against the
// sentinel errors ErrProxy, ErrTLS, ErrConnection, and ErrTruncated.
//
// Package transient depends only on the standard library.
package transient
