// Copyright 2021 The httpx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Package identity manages the client identity a scrapex session
// presents: the User-Agent string and the extra headers sent with
// each request.
//
// A Provider runs in one of two User-Agent modes. In fixed mode the
// caller's string (or DefaultUserAgent) is sent verbatim. In random
// mode a string is drawn from Pool when the mode is enabled, and is
// kept until Reset draws a different one. There is no per-request
// reroll.
//
// Headers come in three layers which Headers merges, lowest precedence
// first: the User-Agent, persistent headers, one-time headers, and the
// per-call headers passed to Headers itself. One-time headers apply to
// the next request only and are dropped by ClearOneTime.
package identity

import (
	"math/rand"
	"net/http"

	"github.com/gogama/scrapex/request"
)

const userAgentKey = "User-Agent"

// A Provider holds the identity state of one session. The zero value
// is ready to use, in fixed mode with DefaultUserAgent.
//
// A Provider is not safe for concurrent use by multiple goroutines.
type Provider struct {
	// Pool, if not empty, replaces the package-level Pool for random
	// mode.
	Pool []string

	// Intn, if not nil, replaces the random number source used to draw
	// from the pool. It must return a value in [0, n).
	Intn func(n int) int

	userAgent  string
	random     bool
	persistent request.Fields
	oneTime    request.Fields
}

// UserAgent returns the User-Agent string sent with requests.
func (p *Provider) UserAgent() string {
	if p.userAgent == "" {
		return DefaultUserAgent
	}
	return p.userAgent
}

// SetUserAgent switches to fixed mode with ua. An empty ua selects
// DefaultUserAgent.
func (p *Provider) SetUserAgent(ua string) {
	p.random = false
	p.userAgent = ua
}

// Random reports whether random mode is enabled.
func (p *Provider) Random() bool {
	return p.random
}

// UseRandom enables or disables random mode. Enabling draws a new
// User-Agent from the pool. Disabling goes back to DefaultUserAgent.
func (p *Provider) UseRandom(enable bool) {
	if !enable {
		p.random = false
		p.userAgent = ""
		return
	}
	p.random = true
	p.userAgent = p.draw("")
}

// Reset draws a new User-Agent different from the current one, if
// random mode is enabled, and returns the User-Agent in effect. In
// fixed mode Reset changes nothing.
func (p *Provider) Reset() string {
	if p.random {
		p.userAgent = p.draw(p.userAgent)
	}
	return p.UserAgent()
}

// SetHeader sets a persistent header, sent with every request.
func (p *Provider) SetHeader(key, value string) {
	p.persistent.Set(http.CanonicalHeaderKey(key), value)
}

// DelHeader removes a persistent or one-time header.
func (p *Provider) DelHeader(key string) {
	k := http.CanonicalHeaderKey(key)
	p.persistent.Del(k)
	p.oneTime.Del(k)
}

// SetOneTimeHeader sets a header sent with the next request only. It
// wins over a persistent header with the same key for that request.
func (p *Provider) SetOneTimeHeader(key, value string) {
	p.oneTime.Set(http.CanonicalHeaderKey(key), value)
}

// ClearOneTime drops all one-time headers. The session calls it after
// every logical request, whatever its outcome.
func (p *Provider) ClearOneTime() {
	p.oneTime = request.Fields{}
}

// Headers returns the headers for the next request: the User-Agent,
// overlaid by persistent headers, then one-time headers, then perCall.
// Header keys are canonicalized, so "user-agent" in perCall replaces
// the provider's User-Agent.
func (p *Provider) Headers(perCall *request.Fields) *request.Fields {
	h := request.NewFields(userAgentKey, p.UserAgent())
	h.Merge(&p.persistent)
	h.Merge(&p.oneTime)
	for _, k := range perCall.Keys() {
		v, _ := perCall.Get(k)
		h.Set(http.CanonicalHeaderKey(k), v)
	}
	return h
}

func (p *Provider) draw(except string) string {
	pool := p.Pool
	if len(pool) == 0 {
		pool = Pool
	}
	candidates := make([]string, 0, len(pool))
	for _, ua := range pool {
		if ua != except {
			candidates = append(candidates, ua)
		}
	}
	if len(candidates) == 0 {
		return except
	}
	return candidates[p.intn(len(candidates))]
}

func (p *Provider) intn(n int) int {
	if p.Intn != nil {
		return p.Intn(n)
	}
	return rand.Intn(n)
}
