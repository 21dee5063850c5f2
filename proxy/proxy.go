// Copyright 2021 The httpx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package proxy

import (
	"net/http"
	"net/url"
	"strings"
)

// A Proxy describes one egress proxy. Proxies are immutable once
// fetched from a Source.
type Proxy struct {
	ID      int    `json:"id"`
	Address string `json:"address"`
	// Scheme is the protocol spoken to the proxy itself, "http" or
	// "https". Empty means "http".
	Scheme    string  `json:"scheme,omitempty"`
	IP        string  `json:"ip,omitempty"`
	SSL       bool    `json:"ssl"`
	Continent string  `json:"continent"`
	Country   string  `json:"country"`
	Quality   float64 `json:"quality"`
}

// Relays returns the request URL scheme the proxy relays: "https" if
// the proxy supports SSL, and "http" otherwise.
func (p Proxy) Relays() string {
	if p.SSL {
		return "https"
	}
	return "http"
}

// Endpoint returns the proxy address as stored in a Map. An https
// proxy gets an explicit "https://" prefix; any other proxy is the bare
// address, which Map.Func reads as plain HTTP.
func (p Proxy) Endpoint() string {
	if strings.EqualFold(p.Scheme, "https") && !strings.Contains(p.Address, "://") {
		return "https://" + p.Address
	}
	return p.Address
}

// Map returns the proxy map a transport uses to route requests through
// p. The map has a single key, the scheme returned by Relays.
func (p Proxy) Map() Map {
	return Map{p.Relays(): p.Endpoint()}
}

// Map maps a request URL scheme to the address of the proxy which
// relays requests for that scheme. A request whose URL scheme is not a
// key of the map is sent directly.
type Map map[string]string

// Key returns a stable string form of m, usable as a cache key.
func (m Map) Key() string {
	if len(m) == 0 {
		return ""
	}
	var b strings.Builder
	for _, s := range []string{"http", "https"} {
		if a, ok := m[s]; ok {
			b.WriteString(s)
			b.WriteByte('=')
			b.WriteString(a)
			b.WriteByte(';')
		}
	}
	return b.String()
}

// Func returns a function suitable for http.Transport.Proxy. The
// returned function picks the proxy keyed by the request URL scheme.
// Proxy addresses without a scheme are taken to be plain HTTP proxies.
func (m Map) Func() func(*http.Request) (*url.URL, error) {
	if len(m) == 0 {
		return nil
	}
	return func(r *http.Request) (*url.URL, error) {
		a, ok := m[r.URL.Scheme]
		if !ok || a == "" {
			return nil, nil
		}
		if !strings.Contains(a, "://") {
			a = "http://" + a
		}
		return url.Parse(a)
	}
}
