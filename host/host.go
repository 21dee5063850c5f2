// Copyright 2021 The httpx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Package host derives the canonical host key of a URL. The key
// identifies a destination for rate limiting and for logging, so that
// "www.example.com" and "api.example.com" count as the same site.
package host

import (
	"net"
	"net/url"
	"strings"

	"golang.org/x/net/publicsuffix"
)

// Key returns the canonical host key for u. Scheme, port, user info,
// path, and query are ignored.
//
// An IP literal (IPv4 or IPv6) is its own key, as is "localhost".
// Otherwise the key is the registrable domain, the public suffix plus
// one label ("news.bbc.co.uk" gives "bbc.co.uk"). A host with no
// registrable domain, such as a single-label intranet name or a bare
// public suffix, is its own key. Keys are lower case and carry no
// trailing dot.
func Key(u *url.URL) string {
	if u == nil {
		return ""
	}
	return KeyOf(u.Hostname())
}

// KeyOf returns the canonical host key for a host name without port.
func KeyOf(hostname string) string {
	h := strings.TrimSuffix(strings.ToLower(hostname), ".")
	h = strings.TrimSuffix(strings.TrimPrefix(h, "["), "]")
	if h == "" {
		return ""
	}
	if net.ParseIP(h) != nil || h == "localhost" {
		return h
	}
	d, err := publicsuffix.EffectiveTLDPlusOne(h)
	if err != nil {
		return h
	}
	return d
}

// Parse parses rawURL and returns its host key. A URL without a scheme
// is read as "http://" + rawURL.
func Parse(rawURL string) (string, error) {
	if !strings.Contains(rawURL, "://") {
		rawURL = "http://" + rawURL
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}
	return Key(u), nil
}
