// Copyright 2021 The httpx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package scrapex

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gogama/scrapex/host"
	"github.com/gogama/scrapex/identity"
	"github.com/gogama/scrapex/manifest"
	"github.com/gogama/scrapex/proxy"
	"github.com/gogama/scrapex/ratelimit"
	"github.com/gogama/scrapex/request"
	"github.com/gogama/scrapex/retry"
	"github.com/gogama/scrapex/transient"
	"github.com/gogama/scrapex/transport"
)

// DefaultMaxContentLength is the largest download Save accepts when
// Session.MaxContentLength is zero: 200 MB.
const DefaultMaxContentLength int64 = 200000000

var (
	emptyHandlers    = HandlerGroup{}
	defaultTransport = &transport.HTTP{}
)

// A Session is a resilient HTTP client for data collection. Its zero
// value is a valid configuration.
//
// The zero value session sends requests through a shared transport.HTTP,
// follows retry.DefaultPolicy, identifies itself with
// identity.DefaultUserAgent, does not rate limit, and uses no proxy
// other than the one configured in the environment.
//
// On top of the transport, Session adds the following features:
//
// • Session reads and buffers the entire HTTP response body into a
// []byte (returned as the Execution.Body field);
//
// • Session classifies failed attempts into retry triggers and
// resolves them following its retry policy: by retrying, by rotating
// to the next proxy in its proxy bag, or by turning off TLS
// certificate verification when allowed;
//
// • Session waits between consecutive requests to the same host so
// that at least MinimumWait passes between them;
//
// • Session sends a consistent identity (User-Agent and headers) and
// records every logical request in its manifest; and
//
// • Session invokes user-provided handler functions at designated
// plug-in points within the attempt/retry loop.
//
// A Session holds mutable state (proxy bag, identity, rate limiter,
// manifest) and is NOT safe for concurrent use by multiple goroutines.
// Run one session per goroutine for parallel scrapes; they may share a
// Transport.
type Session struct {
	// Transport sends the individual request attempts.
	//
	// If Transport is nil, a package-level transport.HTTP is used.
	Transport transport.Doer
	// RetryPolicy decides what to do about failed attempts and how
	// long to sleep before retrying.
	//
	// If RetryPolicy is nil, retry.DefaultPolicy is used.
	RetryPolicy retry.Policy
	// Handlers allows custom handler chains to be invoked when
	// designated events occur during execution of a request plan.
	//
	// If Handlers is nil, no custom handlers will be run.
	Handlers *HandlerGroup
	// Logger receives warnings about failures and debug traces of
	// attempts and waits.
	//
	// If Logger is nil, slog.Default() is used.
	Logger *slog.Logger
	// MinimumWait is the minimum interval between the starts of two
	// consecutive requests to the same host key. Zero disables rate
	// limiting.
	MinimumWait time.Duration
	// SkipSSLVerify allows retrying without TLS certificate
	// verification after an attempt fails certificate validation. The
	// first attempt of every request always verifies.
	SkipSSLVerify bool
	// MaxContentLength is the largest remote file Save downloads, in
	// bytes. Zero means DefaultMaxContentLength.
	MaxContentLength int64
	// ProxySource provides candidates for the proxy bag.
	//
	// If ProxySource is nil, FillProxyBag fails with ErrNoRemoteService.
	ProxySource proxy.Source

	identity identity.Provider
	bag      proxy.Bag
	pooled   bool
	proxy    proxy.Map
	limiter  ratelimit.Limiter
	manifest manifest.Manifest
	requests int

	now   func() time.Time
	sleep func(time.Duration)
}

// Do executes an HTTP request plan and returns the results, following
// the retry policy and rate limit set on Session.
//
// Do waits out the rate limit once per call, before the first attempt,
// and then runs the attempt loop. Every attempt goes through the current
// egress: the front proxy of the bag when it is active, otherwise the
// proxy set with SetProxy. When an attempt fails, the failure is
// classified with transient.Categorize and the retry policy decides to
// stop, retry, or rotate the bag and retry.
//
// A non-2XX status code in the final attempt does not result in an
// error. A 5XX status code is logged as a warning.
//
// The returned Execution is never nil. Any returned error is of type
// *url.Error. If the failure was a retry trigger, the url.Error wraps a
// *transient.Error, so errors.Is(err, transient.ErrConnection) and the
// like report the category that ended the execution. When the bag runs
// out of proxies, the url.Error wraps ErrEmptyProxyBag instead.
//
// One-time headers are dropped when Do returns, whatever the outcome.
func (s *Session) Do(p *request.Plan) (*request.Execution, error) {
	e := request.Execution{
		Plan:       p,
		SkipVerify: s.SkipSSLVerify,
	}

	doer := s.doer()
	policy := s.RetryPolicy
	if policy == nil {
		policy = retry.DefaultPolicy
	}
	handlers := s.Handlers
	if handlers == nil {
		handlers = &emptyHandlers
	}
	logger := s.logger()

	hdr := s.identity.Headers(nil).Header()
	for k, vs := range p.Header {
		hdr[k] = vs
	}
	defer s.identity.ClearOneTime()

	s.waitTurn(p.URL, logger)
	s.requests++

	s.manifest.Now = s.clock
	entry, err := s.manifest.Begin(p.Method, p.URL.String(), len(p.Body))
	if err != nil {
		e.Err = urlErrorWrap(p, err)
		e.Start = s.clock()
		e.End = e.Start
		return &e, e.Err
	}
	defer func() {
		if !entry.Sealed {
			_ = s.manifest.Seal(entry, e.Response, s.clock().Sub(e.Start), false)
		}
	}()

	e.Start = s.clock()
	handlers.run(BeforeExecutionStart, &e)

	for {
		if s.pooled && s.bag.Len() == 0 {
			e.Err = urlErrorWrap(p, ErrEmptyProxyBag)
			break
		}
		e.Pooled = s.pooled
		e.Egress = transport.Egress{
			Proxies:   s.egressProxies(),
			TLSVerify: e.Attempt == 0 || !s.SkipSSLVerify,
		}
		logger.Debug("scrapex: attempt",
			"method", p.Method,
			"url", p.URL.String(),
			"attempt", e.Attempt,
			"proxy", e.Egress.Proxies.Key(),
			"tls_verify", e.Egress.TLSVerify)

		sendAndReceive(p, &e, doer, handlers, hdr)
		classify(p, &e)
		_ = s.manifest.Attempt(entry, errName(&e))
		handlers.run(AfterAttempt, &e)

		action := policy.Decide(&e)
		if action == retry.Stop {
			break
		}
		if e.Category != transient.Not {
			logger.Warn("scrapex: attempt failed",
				"url", p.URL.String(),
				"attempt", e.Attempt,
				"category", e.Category.String(),
				"action", action.String(),
				"err", e.Err)
		}
		if action == retry.Rotate && s.pooled {
			next, err := s.rotate()
			if err != nil {
				e.Err = urlErrorWrap(p, fmt.Errorf("%w: %v", err, errCause(e.Err)))
				break
			}
			logger.Warn("scrapex: rotated proxy",
				"proxy", next.Address,
				"remaining", s.bag.Len())
			handlers.run(AfterRotate, &e)
		}
		if wait := policy.Wait(&e); wait > 0 {
			logger.Debug("scrapex: waiting before retry", "wait", wait)
			s.pause(wait)
		}
		e.Response = nil
		e.Err = nil
		e.Body = nil
		e.Category = transient.Not
		e.Attempt++
	}

	if e.Err != nil && e.Category == transient.TLS && !s.SkipSSLVerify {
		e.Err = advise(e.Err)
	}
	if code := e.StatusCode(); e.Err == nil && code >= 500 {
		logger.Warn("scrapex: server error",
			"url", p.URL.String(),
			"status", code)
	}

	e.End = s.clock()
	s.limiter.Record(host.Key(p.URL), e.End)
	_ = s.manifest.Seal(entry, e.Response, e.End.Sub(e.Start), e.Err == nil)
	handlers.run(AfterExecutionEnd, &e)
	return &e, e.Err
}

func sendAndReceive(p *request.Plan, e *request.Execution, doer transport.Doer, handlers *HandlerGroup, hdr http.Header) {
	e.Request = p.ToRequest(p.Context())
	e.Request.Header = hdr.Clone()
	handlers.run(BeforeAttempt, e)
	var err error
	e.Response, err = doer.Do(e.Request, e.Egress)
	if err != nil {
		e.Response = nil
		e.Err = urlErrorWrap(p, err)
	} else {
		readBody(p, e, handlers)
	}
}

func readBody(p *request.Plan, e *request.Execution, handlers *HandlerGroup) {
	defer func() {
		_ = e.Response.Body.Close()
	}()
	handlers.run(BeforeReadBody, e)
	var err error
	e.Body, err = io.ReadAll(e.Response.Body)
	if err != nil {
		e.Err = urlErrorWrap(p, err)
	}
}

// classify sets the failure category of the latest attempt, counts it,
// and tags the attempt error with its category.
func classify(p *request.Plan, e *request.Execution) {
	e.Category = transient.Categorize(e.Err)
	switch e.Category {
	case transient.Not:
		return
	case transient.Connection:
		e.ConnFailures++
	case transient.Proxy:
		e.ProxyFailures++
	}
	var tagged *transient.Error
	if errors.As(e.Err, &tagged) {
		return
	}
	if ue, ok := e.Err.(*url.Error); ok {
		e.Err = &url.Error{Op: ue.Op, URL: ue.URL, Err: transient.Wrap(e.Category, ue.Err)}
		return
	}
	e.Err = urlErrorWrap(p, transient.Wrap(e.Category, e.Err))
}

func errName(e *request.Execution) string {
	if e.Err == nil {
		return ""
	}
	if e.Category != transient.Not {
		return e.Category.String() + "Error"
	}
	return fmt.Sprintf("%T", errCause(e.Err))
}

func errCause(err error) error {
	if ue, ok := err.(*url.Error); ok {
		return ue.Err
	}
	return err
}

func advise(err error) error {
	ue, ok := err.(*url.Error)
	if !ok {
		return err
	}
	var tagged *transient.Error
	if !errors.As(ue.Err, &tagged) {
		return err
	}
	return &url.Error{
		Op:  ue.Op,
		URL: ue.URL,
		Err: &transient.Error{
			Category: tagged.Category,
			Err:      fmt.Errorf("%w (set SkipSSLVerify to retry without certificate verification)", tagged.Err),
		},
	}
}

// waitTurn sleeps until the host's floor has passed since its last
// dispatch or completion, then records the dispatch.
func (s *Session) waitTurn(u *url.URL, logger *slog.Logger) {
	key := host.Key(u)
	s.limiter.Floor = s.MinimumWait
	if d := s.limiter.ShouldDelay(key, s.clock()); d > 0 {
		logger.Debug("scrapex: rate limit wait", "host", key, "wait", d)
		s.pause(d)
	}
	s.limiter.Record(key, s.clock())
}

// rotate discards the front proxy of the bag and lets the transport
// release what it holds for it.
func (s *Session) rotate() (proxy.Proxy, error) {
	old, ok := s.bag.Current()
	next, err := s.bag.Rotate()
	if ok {
		if f, isForgetter := s.doer().(transport.Forgetter); isForgetter {
			f.Forget(old.Map())
		}
	}
	return next, err
}

func (s *Session) egressProxies() proxy.Map {
	if s.pooled {
		if px, ok := s.bag.Current(); ok {
			return px.Map()
		}
	}
	return s.proxy
}

func (s *Session) doer() transport.Doer {
	if s.Transport == nil {
		return defaultTransport
	}
	return s.Transport
}

func (s *Session) logger() *slog.Logger {
	if s.Logger == nil {
		return slog.Default()
	}
	return s.Logger
}

func (s *Session) clock() time.Time {
	if s.now != nil {
		return s.now()
	}
	return time.Now()
}

func (s *Session) pause(d time.Duration) {
	if s.sleep != nil {
		s.sleep(d)
		return
	}
	time.Sleep(d)
}

// Get issues a GET to the specified URL. The payload, if any, is
// encoded into the URL query. See request.NewPlan for the supported
// payload types.
func (s *Session) Get(url string, payload interface{}) (*request.Execution, error) {
	return s.Request(http.MethodGet, url, payload)
}

// Post issues a POST to the specified URL. A key/value payload is sent
// as a form body; any other payload is sent verbatim.
func (s *Session) Post(url string, payload interface{}) (*request.Execution, error) {
	return s.Request(http.MethodPost, url, payload)
}

// Put issues a PUT to the specified URL, encoding the payload like
// Post.
func (s *Session) Put(url string, payload interface{}) (*request.Execution, error) {
	return s.Request(http.MethodPut, url, payload)
}

// Delete issues a DELETE to the specified URL, encoding the payload
// like Get.
func (s *Session) Delete(url string, payload interface{}) (*request.Execution, error) {
	return s.Request(http.MethodDelete, url, payload)
}

// Head issues a HEAD to the specified URL.
func (s *Session) Head(url string) (*request.Execution, error) {
	return s.Request(http.MethodHead, url, nil)
}

// Request builds a request plan from method, url and payload and
// executes it with Do. One-time headers are dropped even if the plan
// cannot be built.
func (s *Session) Request(method, url string, payload interface{}) (*request.Execution, error) {
	p, err := request.NewPlan(method, url, payload)
	if err != nil {
		s.identity.ClearOneTime()
		return nil, err
	}
	return s.Do(p)
}

// CloseIdleConnections invokes the same method on the session's
// transport, if it has one.
func (s *Session) CloseIdleConnections() {
	if ic, ok := s.doer().(IdleCloser); ok {
		ic.CloseIdleConnections()
	}
}

// Requests returns the number of logical requests the session has
// executed.
func (s *Session) Requests() int {
	return s.requests
}

// Manifest returns the session's request trail, most recent first.
func (s *Session) Manifest() []manifest.Entry {
	return s.manifest.Entries()
}

// LastEntry returns the manifest entry of the most recent request. The
// return value ok is false if no request has been made.
func (s *Session) LastEntry() (manifest.Entry, bool) {
	return s.manifest.Latest()
}

func urlErrorWrap(p *request.Plan, err error) error {
	if _, ok := err.(*url.Error); ok {
		return err
	}

	return &url.Error{
		Op:  urlErrorOp(p.Method),
		URL: p.URL.String(),
		Err: err,
	}
}

// urlErrorOp is lifted verbatim from net/http/client.go
func urlErrorOp(method string) string {
	if method == "" {
		return "Get"
	}
	return method[:1] + strings.ToLower(method[1:])
}
