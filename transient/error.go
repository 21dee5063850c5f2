// Copyright 2021 The httpx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package transient

import "errors"

// Sentinel errors, one per retry trigger category. A terminal error
// returned by the session wraps an *Error, so callers can test for the
// category that ended the execution with errors.Is:
//
//	if errors.Is(err, transient.ErrConnection) {
//		...
//	}
var (
	ErrProxy      = errors.New("scrapex/transient: proxy failure")
	ErrTLS        = errors.New("scrapex/transient: tls validation failure")
	ErrConnection = errors.New("scrapex/transient: connection failure")
	ErrTruncated  = errors.New("scrapex/transient: truncated transfer")
)

// An Error is a transport failure tagged with its Category. It is the
// retry signal consumed by the session's retry loop and, once the retry
// policy gives up, the cause carried by the terminal error.
type Error struct {
	Category Category
	Err      error
}

// Wrap tags err with the category c. Wrap returns nil if err is nil.
//
// Use Wrap in a custom transport to report a failure category that
// Categorize cannot infer from the error chain.
func Wrap(c Category, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Category: c, Err: err}
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Category.String() + " failure"
	}
	return e.Err.Error()
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is the sentinel error for e's category.
func (e *Error) Is(target error) bool {
	return target != nil && target == sentinel(e.Category)
}

func sentinel(c Category) error {
	switch c {
	case Proxy:
		return ErrProxy
	case TLS:
		return ErrTLS
	case Connection:
		return ErrConnection
	case Truncated:
		return ErrTruncated
	default:
		return nil
	}
}
