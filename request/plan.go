// Copyright 2021 The httpx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package request

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	urlpkg "net/url"
	"strings"

	"golang.org/x/net/http/httpguts"
)

var (
	template, _ = http.NewRequest("GET", "", nil)
)

const (
	nilCtxMsg = "scrapex/request: nil context"

	formContentType = "application/x-www-form-urlencoded"
)

// A Plan contains a logical HTTP request plan for execution by a
// session.
//
// The logical request described by a Plan results in one or more
// lower-level http.Request attempts being made, for example when an
// attempt fails on a bad proxy and needs to be retried through another
// one.
//
// The field structure of plan mirrors the structure of the lower-level
// http.Request, minus the server-only and stream-oriented fields. The
// body is pre-buffered, so a retried POST or PUT resends exactly the
// same bytes.
type Plan struct {
	// Method specifies the HTTP method (GET, POST, PUT, etc.).
	// An empty string means GET.
	Method string

	// URL specifies the URL to access.
	URL *urlpkg.URL

	// Header contains the request header fields to be sent by the
	// session, in addition to the session's identity headers. Values
	// set here win over the session's persistent and one-time headers.
	Header http.Header

	// Body is the pre-buffered request body to be sent. A nil or
	// empty body indicates no request body should be sent.
	Body []byte

	// Close stipulates whether to close the connection after sending
	// each attempt and reading the response.
	Close bool

	// Host optionally overrides the Host header to send. If empty, the
	// value of URL.Host will be sent.
	Host string

	// ctx is passed to the transport on every attempt. It should only
	// be modified by copying the whole Plan using WithContext.
	ctx context.Context
}

// NewPlan wraps NewPlanWithContext using the background context.
func NewPlan(method, url string, payload interface{}) (*Plan, error) {
	return NewPlanWithContext(context.Background(), method, url, payload)
}

// NewPlanWithContext returns a new Plan given a method, URL, and
// optional payload.
//
// A URL without a scheme is given the "http://" prefix, so
// "example.com/a" becomes "http://example.com/a".
//
// Parameter payload may be nil (no payload), a key/value payload of
// type *Fields, url.Values or map[string]string, or a raw body of any
// type accepted by BodyBytes. A key/value payload is appended to the
// URL query for GET, HEAD, DELETE and OPTIONS requests, and sent as an
// "application/x-www-form-urlencoded" body for all other methods.
func NewPlanWithContext(ctx context.Context, method, url string, payload interface{}) (*Plan, error) {
	if ctx == nil {
		return nil, errors.New(nilCtxMsg)
	}
	if method == "" {
		method = "GET"
	}
	if !validMethod(method) {
		return nil, fmt.Errorf("scrapex/request: invalid method %q", method)
	}
	u, err := urlpkg.Parse(DefaultScheme(url))
	if err != nil {
		return nil, err
	}
	u.Host = removeEmptyPort(u.Host)
	p := &Plan{
		ctx:    ctx,
		Method: method,
		URL:    u,
		Header: make(http.Header),
		Host:   u.Host,
	}
	if f := payloadFields(payload); f != nil {
		if queryMethod(method) {
			q := f.Encode()
			if u.RawQuery != "" && q != "" {
				q = u.RawQuery + "&" + q
			} else if q == "" {
				q = u.RawQuery
			}
			u.RawQuery = q
		} else {
			p.Body = []byte(f.Encode())
			p.Header.Set("Content-Type", formContentType)
		}
		return p, nil
	}
	p.Body, err = BodyBytes(payload)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// DefaultScheme prepends "http://" to rawURL if it does not name a
// scheme.
func DefaultScheme(rawURL string) string {
	if rawURL == "" || strings.Contains(rawURL, "://") {
		return rawURL
	}
	return "http://" + rawURL
}

// Context returns the request plan's context. The returned context is
// always non-nil; it defaults to the background context.
func (p *Plan) Context() context.Context {
	if p.ctx != nil {
		return p.ctx
	}
	return context.Background()
}

// WithContext returns a shallow copy of p with its context changed to
// ctx, which must be non-nil.
func (p *Plan) WithContext(ctx context.Context) *Plan {
	if ctx == nil {
		panic(nilCtxMsg)
	}
	p2 := new(Plan)
	*p2 = *p
	p2.ctx = ctx
	return p2
}

// SetHeaders sets every field of f as a header on the plan, replacing
// existing values.
func (p *Plan) SetHeaders(f *Fields) {
	if f == nil {
		return
	}
	for _, k := range f.keys {
		p.Header.Set(k, f.values[k])
	}
}

// ToRequest creates an HTTP request corresponding to the given request
// plan. The context of the new request is set to ctx, which may not be
// nil.
func (p *Plan) ToRequest(ctx context.Context) *http.Request {
	r := template.WithContext(ctx)
	r.Method = p.Method
	r.URL = p.URL
	r.Header = p.Header
	if len(p.Body) > 0 {
		r.Body = io.NopCloser(bytes.NewReader(p.Body))
		r.GetBody = func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(p.Body)), nil
		}
		r.ContentLength = int64(len(p.Body))
	}
	r.Close = p.Close
	r.Host = p.Host
	return r
}

func payloadFields(payload interface{}) *Fields {
	switch x := payload.(type) {
	case *Fields:
		if x == nil {
			return &Fields{}
		}
		return x
	case Fields:
		return &x
	case urlpkg.Values:
		return FieldsFromValues(x)
	case map[string]string:
		return FieldsFromMap(x)
	default:
		return nil
	}
}

func queryMethod(method string) bool {
	switch strings.ToUpper(method) {
	case "GET", "HEAD", "DELETE", "OPTIONS":
		return true
	default:
		return false
	}
}

// validMethod reports whether method is an RFC 7230 token. The empty
// string is never passed in since it is interpreted as "GET".
func validMethod(method string) bool {
	return strings.IndexFunc(method, isNotToken) == -1
}

func isNotToken(r rune) bool {
	return !httpguts.IsTokenRune(r)
}

// removeEmptyPort strips the empty port in ":port" to "" as mandated
// by RFC 3986 Section 6.2.3.
func removeEmptyPort(host string) string {
	if strings.LastIndex(host, ":") > strings.LastIndex(host, "]") {
		return strings.TrimSuffix(host, ":")
	}
	return host
}
