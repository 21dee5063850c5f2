// Copyright 2021 The httpx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package scrapex

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gogama/scrapex/proxy"
	"github.com/gogama/scrapex/transport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type proxyService struct {
	*httptest.Server
	proxies []proxy.Proxy
	ip      string
	ipBody  string
	status  int
	apiKeys []string
}

func newProxyService(t *testing.T, proxies ...proxy.Proxy) *proxyService {
	ps := &proxyService{proxies: proxies, ip: "203.0.113.7", status: http.StatusOK}
	mux := http.NewServeMux()
	mux.HandleFunc("/api/proxies", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"objects": ps.proxies})
	})
	mux.HandleFunc("/test", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(ps.status)
	})
	mux.HandleFunc("/ip", func(w http.ResponseWriter, r *http.Request) {
		ps.apiKeys = append(ps.apiKeys, r.Header.Get("Api-Key"))
		w.WriteHeader(ps.status)
		if ps.ipBody != "" {
			_, _ = io.WriteString(w, ps.ipBody)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"ip": ps.ip})
	})
	ps.Server = httptest.NewServer(mux)
	t.Cleanup(ps.Close)
	return ps
}

// relay sends every request to the service directly, and fails the
// attempts routed through a proxy in dead as a proxy failure would.
type relay struct {
	server *httptest.Server
	dead   map[string]bool
	egress []transport.Egress
}

func (r *relay) Do(req *http.Request, eg transport.Egress) (*http.Response, error) {
	r.egress = append(r.egress, eg)
	for _, addr := range eg.Proxies {
		if r.dead[addr] {
			return nil, &net.OpError{Op: "proxyconnect", Net: "tcp", Err: errors.New("connection refused")}
		}
	}
	return r.server.Client().Do(req)
}

func newServiceSession(t *testing.T, ps *proxyService, dead ...string) (*Session, *relay) {
	rl := &relay{server: ps.Server, dead: map[string]bool{}}
	for _, addr := range dead {
		rl.dead[addr] = true
	}
	s, _ := newTestSession(rl)
	s.ProxySource = &proxy.RemoteSource{BaseURL: ps.URL + "/api", APIKey: "key"}
	s.bag.Shuffle = func([]proxy.Proxy) {}
	return s, rl
}

func TestSession_TestProxy(t *testing.T) {
	ctx := context.Background()
	a := proxy.Proxy{ID: 1, Address: "a.proxy:80", Continent: "Europe"}
	b := proxy.Proxy{ID: 2, Address: "b.proxy:80", Continent: "Europe"}
	c := proxy.Proxy{ID: 3, Address: "c.proxy:80", Continent: "Europe"}

	t.Run("passes", func(t *testing.T) {
		ps := newProxyService(t, a, b)
		s, rl := newServiceSession(t, ps)
		require.NoError(t, s.UseRandomPublicProxy(ctx, true))

		require.NoError(t, s.TestProxy(ctx))

		assert.Equal(t, []proxy.Proxy{a, b}, s.ProxyBag())
		require.Len(t, rl.egress, 1)
		assert.Equal(t, a.Map(), rl.egress[0].Proxies)
		assert.False(t, rl.egress[0].TLSVerify)
		assert.Empty(t, s.Manifest(), "checks are not recorded")
	})
	t.Run("rotates past dead proxies", func(t *testing.T) {
		ps := newProxyService(t, a, b, c)
		s, rl := newServiceSession(t, ps, a.Address, b.Address)
		require.NoError(t, s.UseRandomPublicProxy(ctx, true))

		require.NoError(t, s.TestProxy(ctx))

		assert.Equal(t, []proxy.Proxy{c}, s.ProxyBag())
		assert.Len(t, rl.egress, 3)
	})
	t.Run("bag runs out", func(t *testing.T) {
		ps := newProxyService(t, a, b)
		s, _ := newServiceSession(t, ps, a.Address, b.Address)
		require.NoError(t, s.UseRandomPublicProxy(ctx, true))

		assert.ErrorIs(t, s.TestProxy(ctx), ErrEmptyProxyBag)
	})
	t.Run("bad status rotates", func(t *testing.T) {
		ps := newProxyService(t, a, b)
		ps.status = http.StatusBadGateway
		s, _ := newServiceSession(t, ps)
		require.NoError(t, s.UseRandomPublicProxy(ctx, true))

		assert.ErrorIs(t, s.TestProxy(ctx), ErrEmptyProxyBag)
	})
	t.Run("fixed proxy fails", func(t *testing.T) {
		ps := newProxyService(t)
		s, _ := newServiceSession(t, ps, a.Address)
		s.SetProxy(a.Map())

		err := s.TestProxy(ctx)

		assert.ErrorIs(t, err, ErrNoRemoteService)
		assert.Equal(t, a.Map(), s.Proxy())
	})
	t.Run("direct passes", func(t *testing.T) {
		ps := newProxyService(t)
		s, rl := newServiceSession(t, ps)

		require.NoError(t, s.TestProxy(ctx))
		require.Len(t, rl.egress, 1)
		assert.Empty(t, rl.egress[0].Proxies)
	})
	t.Run("no service", func(t *testing.T) {
		s := &Session{Logger: quietLogger, ProxySource: proxy.StaticSource{a}}
		assert.ErrorIs(t, s.TestProxy(ctx), ErrNoRemoteService)
	})
}

func TestSession_OutboundIP(t *testing.T) {
	ctx := context.Background()
	a := proxy.Proxy{ID: 1, Address: "a.proxy:80", Continent: "Asia", SSL: true}

	t.Run("through the bag", func(t *testing.T) {
		ps := newProxyService(t, a)
		s, rl := newServiceSession(t, ps)
		require.NoError(t, s.UseRandomPublicProxy(ctx, true))

		ip, err := s.OutboundIP(ctx)

		require.NoError(t, err)
		assert.Equal(t, "203.0.113.7", ip)
		assert.Equal(t, []string{"key"}, ps.apiKeys)
		require.Len(t, rl.egress, 1)
		assert.Equal(t, a.Map(), rl.egress[0].Proxies)
		assert.True(t, rl.egress[0].TLSVerify)
	})
	t.Run("bad answers", func(t *testing.T) {
		testCases := []struct {
			name   string
			status int
			body   string
		}{
			{"status", http.StatusInternalServerError, ""},
			{"not json", http.StatusOK, "<html>"},
			{"no ip", http.StatusOK, "{}"},
		}
		for _, testCase := range testCases {
			t.Run(testCase.name, func(t *testing.T) {
				ps := newProxyService(t)
				ps.status = testCase.status
				ps.ipBody = testCase.body
				s, _ := newServiceSession(t, ps)

				_, err := s.OutboundIP(ctx)

				assert.ErrorIs(t, err, ErrNoRemoteService)
			})
		}
	})
	t.Run("dead proxy", func(t *testing.T) {
		ps := newProxyService(t)
		s, _ := newServiceSession(t, ps, a.Address)
		s.SetProxy(a.Map())

		_, err := s.OutboundIP(ctx)

		assert.ErrorIs(t, err, ErrNoRemoteService)
	})
	t.Run("no service", func(t *testing.T) {
		s := &Session{Logger: quietLogger}
		_, err := s.OutboundIP(ctx)
		assert.ErrorIs(t, err, ErrNoRemoteService)
	})
}
