// Copyright 2021 The httpx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package proxy

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// ErrNoRemoteService is returned by RemoteSource when the proxy list
// service cannot be reached or returns an unusable answer.
var ErrNoRemoteService = errors.New("scrapex/proxy: cannot connect to remote proxy service")

// A Query narrows the proxies fetched from a Source. The zero value
// asks for every proxy.
type Query struct {
	Continents []string
	SSLOnly    bool
}

// A Source supplies candidate proxies for a Bag.
type Source interface {
	Fetch(ctx context.Context, q Query) ([]Proxy, error)
}

// Endpoints of a proxy service besides the proxy list.
const (
	// TestEndpoint answers any successful status when reached, and is
	// used to check that a proxy relays requests.
	TestEndpoint = "test"
	// IPEndpoint answers {"ip": "<address>"} with the address the
	// request came from.
	IPEndpoint = "ip"
)

// A Service is a Source backed by a remote proxy service which also
// offers the TestEndpoint and IPEndpoint endpoints.
type Service interface {
	Source
	ServiceURL(endpoint string) (string, error)
}

// StaticSource is a Source serving a fixed list of proxies. Fetch
// applies the query with Filter.
type StaticSource []Proxy

// Fetch returns the proxies in s matching q.
func (s StaticSource) Fetch(_ context.Context, q Query) ([]Proxy, error) {
	return Filter(s, q.Continents, q.SSLOnly)
}

// RemoteSource fetches proxies from a JSON proxy list service.
//
// The service is queried with a GET request to BaseURL + "/proxies"
// carrying a "q" parameter holding a JSON filter document, and must
// answer with a JSON object whose "objects" member is the list of
// proxies:
//
//	GET /api/proxies?q={"filters":[{"name":"continent","op":"in","val":["Europe"]}]}
//
//	{"objects": [{"id": 1, "address": "10.0.0.1:8080", "ssl": true, ...}]}
type RemoteSource struct {
	// BaseURL is the API root, for example "https://example.com/api".
	BaseURL string

	// APIKey, if not empty, is sent in the Api-Key header.
	APIKey string

	// UserAgent, if not empty, is sent in the User-Agent header.
	UserAgent string

	// Client is used to make the request. If nil, http.DefaultClient
	// is used.
	Client *http.Client
}

type filter struct {
	Name string      `json:"name"`
	Op   string      `json:"op"`
	Val  interface{} `json:"val"`
}

type filterDoc struct {
	Filters []filter `json:"filters,omitempty"`
}

type listing struct {
	Objects []Proxy `json:"objects"`
}

// Fetch queries the service. Any failure to reach the service or
// decode its answer is reported as an error wrapping
// ErrNoRemoteService. An invalid continent in q is reported as
// ErrInvalidContinent without contacting the service.
//
// The service may not honor every filter, so the answer is filtered
// again locally.
func (s *RemoteSource) Fetch(ctx context.Context, q Query) ([]Proxy, error) {
	if err := ValidateContinents(q.Continents); err != nil {
		return nil, err
	}
	u, err := s.queryURL(q)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoRemoteService, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoRemoteService, err)
	}
	req.Header.Set("Accept", "application/json")
	if s.UserAgent != "" {
		req.Header.Set("User-Agent", s.UserAgent)
	}
	if s.APIKey != "" {
		req.Header.Set("Api-Key", s.APIKey)
	}
	c := s.Client
	if c == nil {
		c = http.DefaultClient
	}
	resp, err := c.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoRemoteService, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: status %d", ErrNoRemoteService, resp.StatusCode)
	}
	var l listing
	if err = json.NewDecoder(resp.Body).Decode(&l); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoRemoteService, err)
	}
	return Filter(l.Objects, q.Continents, q.SSLOnly)
}

func (s *RemoteSource) queryURL(q Query) (string, error) {
	if s.BaseURL == "" {
		return "", errors.New("no base URL")
	}
	var doc filterDoc
	switch len(q.Continents) {
	case 0:
	case 1:
		doc.Filters = append(doc.Filters, filter{Name: "continent", Op: "eq", Val: q.Continents[0]})
	default:
		doc.Filters = append(doc.Filters, filter{Name: "continent", Op: "in", Val: q.Continents})
	}
	if q.SSLOnly {
		doc.Filters = append(doc.Filters, filter{Name: "ssl", Op: "eq", Val: true})
	}
	b, err := json.Marshal(doc)
	if err != nil {
		return "", err
	}
	return strings.TrimSuffix(s.BaseURL, "/") + "/proxies?" + url.Values{"q": {string(b)}}.Encode(), nil
}

// ServiceURL returns the URL of a service endpoint other than the
// proxy list. The endpoint replaces a trailing "api" segment of
// BaseURL, so "https://example.com/api" gives "https://example.com/ip"
// for IPEndpoint. Otherwise the endpoint is appended to BaseURL.
func (s *RemoteSource) ServiceURL(endpoint string) (string, error) {
	if s.BaseURL == "" {
		return "", fmt.Errorf("%w: no base URL", ErrNoRemoteService)
	}
	u, err := url.Parse(strings.TrimSuffix(s.BaseURL, "/"))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrNoRemoteService, err)
	}
	if strings.HasSuffix(u.Path, "/api") {
		u.Path = strings.TrimSuffix(u.Path, "api") + endpoint
	} else {
		u.Path += "/" + endpoint
	}
	return u.String(), nil
}
