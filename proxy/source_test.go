// Copyright 2021 The httpx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package proxy

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStaticSource_Fetch(t *testing.T) {
	s := StaticSource(mixed)
	ps, err := s.Fetch(context.Background(), Query{})
	require.NoError(t, err)
	assert.Equal(t, mixed, ps)
	ps, err = s.Fetch(context.Background(), Query{Continents: []string{"Europe"}})
	require.NoError(t, err)
	assert.Equal(t, []Proxy{mixed[0]}, ps)
	_, err = s.Fetch(context.Background(), Query{Continents: []string{"Oz"}})
	assert.ErrorIs(t, err, ErrInvalidContinent)
}

func TestRemoteSource_Fetch(t *testing.T) {
	var lastQuery string
	var lastKey string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/proxies":
			lastQuery = r.URL.Query().Get("q")
			lastKey = r.Header.Get("Api-Key")
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(listing{Objects: mixed})
		case "/broken/proxies":
			_, _ = w.Write([]byte("{not json"))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	t.Run("all", func(t *testing.T) {
		s := &RemoteSource{BaseURL: server.URL + "/api/", APIKey: "k"}
		ps, err := s.Fetch(context.Background(), Query{})
		require.NoError(t, err)
		assert.Equal(t, mixed, ps)
		assert.Equal(t, "{}", lastQuery)
		assert.Equal(t, "k", lastKey)
	})
	t.Run("single continent", func(t *testing.T) {
		s := &RemoteSource{BaseURL: server.URL + "/api"}
		ps, err := s.Fetch(context.Background(), Query{Continents: []string{"Asia"}})
		require.NoError(t, err)
		assert.Equal(t, []Proxy{mixed[1], mixed[3]}, ps)
		assert.JSONEq(t, `{"filters":[{"name":"continent","op":"eq","val":"Asia"}]}`, lastQuery)
	})
	t.Run("several continents and ssl", func(t *testing.T) {
		s := &RemoteSource{BaseURL: server.URL + "/api"}
		ps, err := s.Fetch(context.Background(), Query{Continents: []string{"Europe", "Asia"}, SSLOnly: true})
		require.NoError(t, err)
		assert.Equal(t, []Proxy{mixed[0], mixed[3]}, ps)
		assert.JSONEq(t, `{"filters":[{"name":"continent","op":"in","val":["Europe","Asia"]},{"name":"ssl","op":"eq","val":true}]}`, lastQuery)
	})
	t.Run("invalid continent", func(t *testing.T) {
		s := &RemoteSource{BaseURL: server.URL + "/api"}
		_, err := s.Fetch(context.Background(), Query{Continents: []string{"Atlantis"}})
		assert.ErrorIs(t, err, ErrInvalidContinent)
		assert.NotErrorIs(t, err, ErrNoRemoteService)
	})
	t.Run("bad status", func(t *testing.T) {
		s := &RemoteSource{BaseURL: server.URL + "/nowhere"}
		_, err := s.Fetch(context.Background(), Query{})
		assert.ErrorIs(t, err, ErrNoRemoteService)
	})
	t.Run("bad body", func(t *testing.T) {
		s := &RemoteSource{BaseURL: server.URL + "/broken"}
		_, err := s.Fetch(context.Background(), Query{})
		assert.ErrorIs(t, err, ErrNoRemoteService)
	})
	t.Run("unreachable", func(t *testing.T) {
		s := &RemoteSource{BaseURL: "http://127.0.0.1:1/api"}
		_, err := s.Fetch(context.Background(), Query{})
		assert.ErrorIs(t, err, ErrNoRemoteService)
	})
	t.Run("no base URL", func(t *testing.T) {
		s := &RemoteSource{}
		_, err := s.Fetch(context.Background(), Query{})
		assert.ErrorIs(t, err, ErrNoRemoteService)
	})
}

func TestRemoteSource_ServiceURL(t *testing.T) {
	testCases := []struct {
		base     string
		endpoint string
		want     string
	}{
		{"https://example.com/api", IPEndpoint, "https://example.com/ip"},
		{"https://example.com/api/", TestEndpoint, "https://example.com/test"},
		{"https://example.com/v2/api", IPEndpoint, "https://example.com/v2/ip"},
		{"https://example.com/service", IPEndpoint, "https://example.com/service/ip"},
		{"https://example.com", TestEndpoint, "https://example.com/test"},
	}
	for _, testCase := range testCases {
		t.Run(testCase.base, func(t *testing.T) {
			s := &RemoteSource{BaseURL: testCase.base}
			u, err := s.ServiceURL(testCase.endpoint)
			require.NoError(t, err)
			assert.Equal(t, testCase.want, u)
		})
	}
	t.Run("no base URL", func(t *testing.T) {
		_, err := (&RemoteSource{}).ServiceURL(IPEndpoint)
		assert.ErrorIs(t, err, ErrNoRemoteService)
	})
}
