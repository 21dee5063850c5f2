// Copyright 2021 The httpx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Package transport defines the physical transport a scrapex session
// sends request attempts through, and provides the default one, built
// on net/http.
//
// Every attempt is sent with an Egress describing how it leaves the
// process: through which proxy, and whether the server certificate is
// verified. The session changes the egress between attempts when it
// rotates proxies or relaxes TLS verification.
package transport

import (
	"crypto/tls"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gogama/scrapex/proxy"
	"golang.org/x/net/http2"
)

// An Egress describes the network path of one request attempt.
type Egress struct {
	// Proxies routes the attempt through a proxy, keyed by request URL
	// scheme. If empty, the attempt is sent directly, unless the
	// environment names a proxy (HTTP_PROXY and friends).
	Proxies proxy.Map

	// TLSVerify controls whether the server certificate chain and host
	// name are verified.
	TLSVerify bool
}

// Key returns a string uniquely identifying e.
func (e Egress) Key() string {
	return e.Proxies.Key() + "|tls=" + strconv.FormatBool(e.TLSVerify)
}

// Doer sends one request attempt through the given egress.
//
// Implementations report failures the same way http.Client does. To
// force a particular retry category, wrap the error with
// transient.Wrap.
type Doer interface {
	Do(r *http.Request, e Egress) (*http.Response, error)
}

// The DoerFunc type is an adapter to allow the use of ordinary
// functions as a Doer.
type DoerFunc func(r *http.Request, e Egress) (*http.Response, error)

// Do calls f(r, e).
func (f DoerFunc) Do(r *http.Request, e Egress) (*http.Response, error) {
	return f(r, e)
}

// HTTP is the default Doer. It keeps one http.Client per distinct
// Egress, so connections are pooled per proxy and TLS mode. HTTP/2 is
// enabled on every client's transport.
//
// The zero value is ready to use. HTTP is safe for concurrent use by
// multiple goroutines, so several sessions may share one.
type HTTP struct {
	// Timeout is the per-attempt timeout, as in http.Client. Zero
	// means no timeout.
	Timeout time.Duration

	// CheckRedirect, if not nil, is installed on every client.
	CheckRedirect func(req *http.Request, via []*http.Request) error

	lock    sync.Mutex
	clients map[string]*http.Client
}

// Do sends r through a client configured for e.
func (h *HTTP) Do(r *http.Request, e Egress) (*http.Response, error) {
	return h.Client(e).Do(r)
}

// Client returns the client used for egress e, creating it if needed.
func (h *HTTP) Client(e Egress) *http.Client {
	k := e.Key()
	h.lock.Lock()
	defer h.lock.Unlock()
	if c, ok := h.clients[k]; ok {
		return c
	}
	if h.clients == nil {
		h.clients = make(map[string]*http.Client)
	}
	c := &http.Client{
		Transport:     newTransport(e),
		Timeout:       h.Timeout,
		CheckRedirect: h.CheckRedirect,
	}
	h.clients[k] = c
	return c
}

// A Forgetter is a Doer which holds resources per proxy, and can
// release them once a proxy will not be used again.
type Forgetter interface {
	Forget(proxies proxy.Map)
}

// Forget closes the idle connections of, and drops, the clients of
// every egress routed through proxies, in both TLS modes. A later
// request through the same proxies gets a new client.
func (h *HTTP) Forget(proxies proxy.Map) {
	if len(proxies) == 0 {
		return
	}
	prefix := proxies.Key() + "|"
	h.lock.Lock()
	defer h.lock.Unlock()
	for k, c := range h.clients {
		if strings.HasPrefix(k, prefix) {
			c.CloseIdleConnections()
			delete(h.clients, k)
		}
	}
}

// CloseIdleConnections closes idle connections on every client.
func (h *HTTP) CloseIdleConnections() {
	h.lock.Lock()
	defer h.lock.Unlock()
	for _, c := range h.clients {
		c.CloseIdleConnections()
	}
}

func newTransport(e Egress) *http.Transport {
	t := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   30 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		TLSClientConfig: &tls.Config{
			InsecureSkipVerify: !e.TLSVerify,
		},
	}
	if f := e.Proxies.Func(); f != nil {
		t.Proxy = f
	}
	// An error here leaves the transport on HTTP/1.1, which is fine.
	_ = http2.ConfigureTransport(t)
	return t
}
