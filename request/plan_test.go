// Copyright 2021 The httpx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package request

import (
	"context"
	"errors"
	"io"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestNewPlan(t *testing.T) {
	for _, testCase := range newPlanTestCases {
		t.Run(testCase.name, func(t *testing.T) {
			p, err := NewPlan(testCase.method, testCase.url, resolveBody(t, testCase.body))
			testCase.asserts(t, p, err)
			if p != nil {
				assert.Equal(t, context.Background(), p.Context())
			}
		})
	}
}

func TestNewPlanWithContext(t *testing.T) {
	type foo struct{}
	ctx := context.WithValue(context.Background(), foo{}, "bar")
	for _, testCase := range newPlanTestCases {
		t.Run(testCase.name+" with special context", func(t *testing.T) {
			p, err := NewPlanWithContext(ctx, testCase.method, testCase.url, resolveBody(t, testCase.body))
			testCase.asserts(t, p, err)
			if p != nil {
				assert.Same(t, ctx, p.Context())
			}
		})
		t.Run(testCase.name+" with nil context", func(t *testing.T) {
			p, err := NewPlanWithContext(nil, testCase.method, testCase.url, nil)
			assert.Nil(t, p)
			assert.EqualError(t, err, nilCtxMsg)
		})
	}
}

var newPlanTestCases = []struct {
	name    string
	method  string
	url     string
	body    interface{}
	asserts func(*testing.T, *Plan, error)
}{
	{
		name:   "empty method means GET",
		method: "",
		url:    "https://foo.com",
		asserts: func(t *testing.T, p *Plan, err error) {
			assert.NoError(t, err)
			require.NotNil(t, p)
			assert.Equal(t, "GET", p.Method)
			assert.Equal(t, "https://foo.com", p.URL.String())
			assert.Nil(t, p.Body)
		},
	},
	{
		name:   "fake valid extension method",
		method: "Fake",
		url:    "http://baz.com",
		asserts: func(t *testing.T, p *Plan, err error) {
			assert.NoError(t, err)
			require.NotNil(t, p)
			assert.Equal(t, "Fake", p.Method)
		},
	},
	{
		name:   "default scheme",
		method: "GET",
		url:    "www.example.com/a?b=c",
		asserts: func(t *testing.T, p *Plan, err error) {
			assert.NoError(t, err)
			require.NotNil(t, p)
			assert.Equal(t, "http://www.example.com/a?b=c", p.URL.String())
			assert.Equal(t, "www.example.com", p.Host)
		},
	},
	{
		name:   "remove empty port",
		method: "GET",
		url:    "http://ham:",
		asserts: func(t *testing.T, p *Plan, err error) {
			assert.NoError(t, err)
			require.NotNil(t, p)
			assert.Equal(t, "ham", p.Host)
			assert.Equal(t, "ham", p.URL.Host)
		},
	},
	{
		name:   "body type string",
		method: "POST",
		body:   "str",
		url:    "str",
		asserts: func(t *testing.T, p *Plan, err error) {
			assert.NoError(t, err)
			require.NotNil(t, p)
			assert.Equal(t, []byte("str"), p.Body)
			assert.Empty(t, p.Header.Get("Content-Type"))
		},
	},
	{
		name:   "body type io.Reader",
		method: "PUT",
		body: func(_ *testing.T) interface{} {
			return strings.NewReader("io.Reader")
		},
		url: "io.Reader",
		asserts: func(t *testing.T, p *Plan, err error) {
			assert.NoError(t, err)
			require.NotNil(t, p)
			assert.Equal(t, []byte("io.Reader"), p.Body)
		},
	},
	{
		name:   "fields as query",
		method: "GET",
		url:    "http://example.com/search?lang=en",
		body:   NewFields("q", "go lang", "page", "2"),
		asserts: func(t *testing.T, p *Plan, err error) {
			assert.NoError(t, err)
			require.NotNil(t, p)
			assert.Equal(t, "lang=en&q=go+lang&page=2", p.URL.RawQuery)
			assert.Nil(t, p.Body)
		},
	},
	{
		name:   "map as query",
		method: "DELETE",
		url:    "http://example.com/things",
		body:   map[string]string{"id": "7", "force": "yes"},
		asserts: func(t *testing.T, p *Plan, err error) {
			assert.NoError(t, err)
			require.NotNil(t, p)
			assert.Equal(t, "force=yes&id=7", p.URL.RawQuery)
		},
	},
	{
		name:   "values as form",
		method: "POST",
		url:    "http://example.com/login",
		body:   url.Values{"user": {"patsy"}, "pass": {"coconut"}},
		asserts: func(t *testing.T, p *Plan, err error) {
			assert.NoError(t, err)
			require.NotNil(t, p)
			assert.Equal(t, "pass=coconut&user=patsy", string(p.Body))
			assert.Equal(t, formContentType, p.Header.Get("Content-Type"))
			assert.Empty(t, p.URL.RawQuery)
		},
	},
	{
		name:   "empty fields",
		method: "GET",
		url:    "http://example.com/?a=b",
		body:   &Fields{},
		asserts: func(t *testing.T, p *Plan, err error) {
			assert.NoError(t, err)
			require.NotNil(t, p)
			assert.Equal(t, "a=b", p.URL.RawQuery)
		},
	},
	{
		name:   "error invalid method",
		method: "\tGET",
		url:    "eggs",
		body:   strings.NewReader("spam"),
		asserts: func(t *testing.T, p *Plan, err error) {
			assert.Nil(t, p)
			assert.EqualError(t, err, `scrapex/request: invalid method "\tGET"`)
		},
	},
	{
		name:   "error invalid URL",
		method: "GET",
		url:    "http://[::1",
		asserts: func(t *testing.T, p *Plan, err error) {
			assert.Nil(t, p)
			assert.Error(t, err)
		},
	},
	{
		name:   "error invalid body type",
		method: "POST",
		url:    "spam",
		body:   map[string]int{},
		asserts: func(t *testing.T, p *Plan, err error) {
			assert.Nil(t, p)
			assert.EqualError(t, err, badBodyTypeMsg)
		},
	},
	{
		name:   "error body read",
		method: "PUT",
		url:    "hello",
		body: func(t *testing.T) interface{} {
			m := &mockReadCloser{}
			m.Test(t)
			m.On("Read", mock.AnythingOfType("[]uint8")).
				Return(5, errors.New("problematic")).
				Once()
			return m
		},
		asserts: func(t *testing.T, p *Plan, err error) {
			assert.Nil(t, p)
			assert.EqualError(t, err, "problematic")
		},
	},
}

func resolveBody(t *testing.T, body interface{}) interface{} {
	if f, ok := body.(func(*testing.T) interface{}); ok {
		body = f(t)
	}
	return body
}

func TestDefaultScheme(t *testing.T) {
	assert.Equal(t, "", DefaultScheme(""))
	assert.Equal(t, "http://a.com", DefaultScheme("a.com"))
	assert.Equal(t, "https://a.com", DefaultScheme("https://a.com"))
	assert.Equal(t, "ftp://a.com", DefaultScheme("ftp://a.com"))
}

func TestPlan_Context(t *testing.T) {
	t.Run("implicit context.Background", func(t *testing.T) {
		p := &Plan{}
		assert.Equal(t, context.Background(), p.Context())
	})
	t.Run("explicit custom context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		q, err := NewPlanWithContext(ctx, "GET", "http://managemystuff.com/stuff/1", "")
		require.NotNil(t, q)
		assert.NoError(t, err)
		assert.Same(t, ctx, q.Context())
	})
}

func TestPlan_SetHeaders(t *testing.T) {
	p, err := NewPlan("GET", "http://example.com", nil)
	require.NoError(t, err)
	p.Header.Set("Accept", "*/*")
	p.SetHeaders(nil)
	p.SetHeaders(NewFields("accept", "text/html", "X-Trace", "1"))
	assert.Equal(t, "text/html", p.Header.Get("Accept"))
	assert.Equal(t, "1", p.Header.Get("X-Trace"))
	assert.Len(t, p.Header, 2)
}

func TestPlan_ToRequest(t *testing.T) {
	t.Run("method", func(t *testing.T) {
		p, err := NewPlan("HEAD", "test", nil)
		require.NoError(t, err)
		r := p.ToRequest(context.Background())
		require.NotNil(t, r)
		assert.Equal(t, "HEAD", r.Method)
		assert.Equal(t, "test", r.Host)
	})
	t.Run("context other", func(t *testing.T) {
		p, err := NewPlan("PUT", "test", "body")
		require.NoError(t, err)
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		r := p.ToRequest(ctx)
		require.NotNil(t, r)
		assert.Same(t, ctx, r.Context())
	})
	t.Run("body empty", func(t *testing.T) {
		for _, body := range []interface{}{nil, "", []byte{}, strings.NewReader("")} {
			p, err := NewPlan("POST", "test", body)
			require.NoError(t, err)
			r := p.ToRequest(context.Background())
			assert.Nil(t, r.Body)
			assert.Nil(t, r.GetBody)
			assert.Equal(t, int64(0), r.ContentLength)
		}
	})
	t.Run("body resent verbatim", func(t *testing.T) {
		p, err := NewPlan("POST", "test", "foo")
		require.NoError(t, err)
		for i := 0; i < 2; i++ {
			r := p.ToRequest(context.Background())
			assert.Equal(t, int64(3), r.ContentLength)
			require.NotNil(t, r.Body)
			b, err := io.ReadAll(r.Body)
			assert.NoError(t, err)
			assert.Equal(t, "foo", string(b))
			rc, err := r.GetBody()
			require.NoError(t, err)
			b, err = io.ReadAll(rc)
			assert.NoError(t, err)
			assert.Equal(t, "foo", string(b))
		}
	})
}

func TestPlan_WithContext(t *testing.T) {
	p, err := NewPlan("PATCH", "test", "body")
	require.NoError(t, err)
	t.Run("nil context", func(t *testing.T) {
		assert.PanicsWithValue(t, nilCtxMsg, func() {
			p.WithContext(nil)
		})
	})
	t.Run("valid context", func(t *testing.T) {
		type parent struct{}
		ctx := context.WithValue(context.Background(), parent{}, p)
		q := p.WithContext(ctx)
		assert.NotSame(t, q, p)
		assert.Equal(t, context.Background(), p.Context())
		assert.Same(t, ctx, q.Context())
		assert.Equal(t, p.Body, q.Body)
		assert.Same(t, p.URL, q.URL)
	})
}
