// Copyright 2021 The httpx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package scrapex

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/gogama/scrapex/proxy"
	"github.com/gogama/scrapex/transport"
)

// maxServiceBody bounds the answers read from the proxy service.
const maxServiceBody = 1 << 20

// SetProxy sets the fixed proxy map used when the proxy bag is not
// active. A nil or empty map sends requests directly, or through the
// proxy named by the environment.
func (s *Session) SetProxy(m proxy.Map) {
	if len(m) == 0 {
		s.proxy = nil
		return
	}
	s.proxy = make(proxy.Map, len(m))
	for k, v := range m {
		s.proxy[k] = v
	}
}

// Proxy returns the proxy map the next attempt will use.
func (s *Session) Proxy() proxy.Map {
	return s.egressProxies()
}

// FillProxyBag fetches proxies from ProxySource and replaces the bag
// contents with those matching continents and sslOnly, shuffled and
// ordered by continent priority. An invalid continent fails with
// ErrInvalidContinent before anything is fetched.
//
// Filling the bag does not activate it. See UseRandomPublicProxy.
func (s *Session) FillProxyBag(ctx context.Context, continents []string, sslOnly bool) error {
	if err := proxy.ValidateContinents(continents); err != nil {
		return err
	}
	if s.ProxySource == nil {
		return fmt.Errorf("%w: no proxy source", ErrNoRemoteService)
	}
	candidates, err := s.ProxySource.Fetch(ctx, proxy.Query{
		Continents: continents,
		SSLOnly:    sslOnly,
	})
	if err != nil {
		return err
	}
	if err = s.bag.Populate(candidates, continents, sslOnly); err != nil {
		return err
	}
	s.logger().Info("scrapex: filled proxy bag",
		"proxies", s.bag.Len(),
		"continents", continents,
		"ssl_only", sslOnly)
	return nil
}

// UseRandomPublicProxy activates or deactivates the proxy bag. When
// activating an empty bag, it is first filled from ProxySource with no
// continent or SSL constraint. Once active, every attempt goes through
// the front proxy of the bag.
//
// Activation fails with ErrEmptyProxyBag if no proxy is available.
func (s *Session) UseRandomPublicProxy(ctx context.Context, enable bool) error {
	if !enable {
		s.pooled = false
		return nil
	}
	if s.bag.Len() == 0 {
		if err := s.FillProxyBag(ctx, nil, false); err != nil {
			return err
		}
	}
	if s.bag.Len() == 0 {
		return ErrEmptyProxyBag
	}
	s.pooled = true
	return nil
}

// UsingProxyBag reports whether the proxy bag is active.
func (s *Session) UsingProxyBag() bool {
	return s.pooled
}

// ProxyBag returns a copy of the bag contents, active proxy first.
func (s *Session) ProxyBag() []proxy.Proxy {
	return s.bag.Proxies()
}

// CurrentProxy returns the active proxy of the bag. The return value
// ok is false if the bag is empty.
func (s *Session) CurrentProxy() (proxy.Proxy, bool) {
	return s.bag.Current()
}

// ResetProxyFromBag discards the active proxy and promotes the next
// one in the bag, returning it. It fails with ErrEmptyProxyBag when no
// proxy is left.
func (s *Session) ResetProxyFromBag() (proxy.Proxy, error) {
	next, err := s.rotate()
	if err != nil {
		return proxy.Proxy{}, err
	}
	s.logger().Info("scrapex: reset proxy",
		"proxy", next.Address,
		"remaining", s.bag.Len())
	return next, nil
}

// TestProxy checks the current egress by fetching the proxy service's
// test endpoint through it, in a single attempt with certificate
// verification off. When the proxy bag is active and the check fails,
// the failed proxy is discarded and the next one is checked, until a
// proxy passes or the bag runs out with ErrEmptyProxyBag. Without an
// active bag, a failed check returns an error wrapping
// ErrNoRemoteService.
//
// TestProxy fails with ErrNoRemoteService if ProxySource is not a
// proxy.Service.
func (s *Session) TestProxy(ctx context.Context) error {
	u, err := s.serviceURL(proxy.TestEndpoint)
	if err != nil {
		return err
	}
	for {
		start := s.clock()
		_, err = s.serviceGet(ctx, u, transport.Egress{Proxies: s.egressProxies()})
		if err == nil {
			s.logger().Info("scrapex: proxy test passed",
				"proxy", s.egressProxies().Key(),
				"roundtrip", s.clock().Sub(start))
			return nil
		}
		s.logger().Warn("scrapex: proxy test failed",
			"proxy", s.egressProxies().Key(),
			"err", err)
		if !s.pooled {
			return err
		}
		if ctx.Err() != nil {
			return err
		}
		if _, err = s.ResetProxyFromBag(); err != nil {
			return err
		}
	}
}

// OutboundIP returns the IP address the proxy service sees requests
// from, which is the address of the current egress. Any failure to
// reach the service or read its answer wraps ErrNoRemoteService.
func (s *Session) OutboundIP(ctx context.Context) (string, error) {
	u, err := s.serviceURL(proxy.IPEndpoint)
	if err != nil {
		return "", err
	}
	b, err := s.serviceGet(ctx, u, transport.Egress{
		Proxies:   s.egressProxies(),
		TLSVerify: !s.SkipSSLVerify,
	})
	if err != nil {
		return "", err
	}
	var answer struct {
		IP string `json:"ip"`
	}
	if err = json.Unmarshal(b, &answer); err != nil {
		return "", fmt.Errorf("%w: %v", ErrNoRemoteService, err)
	}
	if answer.IP == "" {
		return "", fmt.Errorf("%w: no ip in answer", ErrNoRemoteService)
	}
	return answer.IP, nil
}

func (s *Session) serviceURL(endpoint string) (string, error) {
	svc, ok := s.ProxySource.(proxy.Service)
	if !ok {
		return "", fmt.Errorf("%w: no proxy service", ErrNoRemoteService)
	}
	return svc.ServiceURL(endpoint)
}

// serviceGet sends one GET to the proxy service through eg, bypassing
// retries, rate limiting and the manifest.
func (s *Session) serviceGet(ctx context.Context, rawURL string, eg transport.Egress) ([]byte, error) {
	r, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoRemoteService, err)
	}
	r.Header.Set("Accept", "application/json")
	r.Header.Set("User-Agent", s.UserAgent())
	if rs, ok := s.ProxySource.(*proxy.RemoteSource); ok && rs.APIKey != "" {
		r.Header.Set("Api-Key", rs.APIKey)
	}
	resp, err := s.doer().Do(r, eg)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoRemoteService, err)
	}
	defer resp.Body.Close()
	b, err := io.ReadAll(io.LimitReader(resp.Body, maxServiceBody))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoRemoteService, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: status %d", ErrNoRemoteService, resp.StatusCode)
	}
	return b, nil
}
