// Copyright 2021 The httpx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package transient

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
	"io"
	"net"
	"syscall"
)

// A Category is the failure category of a particular error, as
// reported by function Categorize().
//
// The category Not means the error is not one the session knows how to
// recover from, so it is propagated to the caller immediately.
//
// All other categories identify a retry trigger which the session
// resolves according to its retry policy: by resubmitting, rotating to
// a new egress proxy, or relaxing TLS certificate verification.
type Category int

const (
	// Not indicates any error that is not a retry trigger.
	Not Category = iota
	// Proxy indicates the egress proxy could not be reached, or refused
	// to relay the request.
	//
	// Function Categorize() will return Proxy if the error or any of
	// its wrapped causes is a *net.OpError whose Op is "proxyconnect",
	// which is how net/http reports failures talking to a proxy.
	Proxy
	// TLS indicates the remote server's certificate could not be
	// verified. This happens with expired, self-signed, or otherwise
	// untrusted certificates, and is recoverable only by retrying with
	// certificate verification disabled.
	TLS
	// Connection indicates the remote host could not be reached or
	// dropped the connection: refused or reset connections, name
	// resolution failures, unreachable networks, and timeouts.
	//
	// Although some of these conditions may be permanent, they are
	// classified as transient because they often happen while a
	// service is restarting, or because of a bad egress path.
	Connection
	// Truncated indicates the response body ended before the expected
	// number of bytes was received. A slow or misbehaving proxy is the
	// usual cause.
	Truncated
)

var categoryNames = []string{
	"Not",
	"Proxy",
	"TLS",
	"Connection",
	"Truncated",
}

// String returns the name of the category.
func (c Category) String() string {
	if c < 0 || int(c) >= len(categoryNames) {
		return "Unknown"
	}
	return categoryNames[c]
}

// Categorize returns the failure category of the given error. A nil
// error, and an error that is not a known retry trigger, both produce
// the return value Not.
//
// In assessing the category, Categorize looks at wrapped cause errors
// contained within err, not just err itself. If err wraps an *Error, the
// category of that Error wins over any other inspection, which allows a
// custom transport to tag its own failures.
func Categorize(err error) Category {
	if err == nil {
		return Not
	}

	var tagged *Error
	if errors.As(err, &tagged) {
		return tagged.Category
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "proxyconnect" {
		return Proxy
	}

	if isTLS(err) {
		return TLS
	}

	if errors.Is(err, io.ErrUnexpectedEOF) {
		return Truncated
	}

	var hasTimeout hasTimeout
	if errors.As(err, &hasTimeout) && hasTimeout.Timeout() {
		return Connection
	}

	var errno syscall.Errno
	if errors.As(err, &errno) {
		switch errno {
		case syscall.ECONNREFUSED, syscall.ECONNRESET, syscall.ECONNABORTED,
			syscall.ETIMEDOUT, syscall.EHOSTUNREACH, syscall.ENETUNREACH,
			syscall.ENETDOWN, syscall.EPIPE:
			return Connection
		}
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return Connection
	}

	if opErr != nil {
		return Connection
	}

	if errors.Is(err, io.EOF) {
		return Connection
	}

	return Not
}

func isTLS(err error) bool {
	var unknownAuthority x509.UnknownAuthorityError
	var hostname x509.HostnameError
	var invalid x509.CertificateInvalidError
	var verification *tls.CertificateVerificationError
	return errors.As(err, &unknownAuthority) ||
		errors.As(err, &hostname) ||
		errors.As(err, &invalid) ||
		errors.As(err, &verification)
}

type hasTimeout interface {
	Timeout() bool
}
