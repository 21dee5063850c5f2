// Copyright 2021 The httpx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package scrapex

import (
	"net/http"

	"github.com/gogama/scrapex/request"
)

// Doer is the interface that wraps the basic Do method.
//
// Do executes an HTTP request plan and returns the final execution
// state (and error, if any). Session implements the Doer interface,
// and any other Doer implementation must behave substantially the same
// as Session.Do.
//
// Any Doer can be converted into an Executor via the Inflate function.
type Doer interface {
	Do(p *request.Plan) (*request.Execution, error)
}

// Getter is the interface that wraps the basic Get method.
//
// Get issues a GET to the specified URL with the payload encoded into
// the query. Any Doer can be used to emulate a Getter via the Get
// function.
type Getter interface {
	Get(url string, payload interface{}) (*request.Execution, error)
}

// Poster is the interface that wraps the basic Post method.
//
// Post issues a POST to the specified URL. A key/value payload is sent
// as a form body. Any Doer can be used to emulate a Poster via the Post
// function.
type Poster interface {
	Post(url string, payload interface{}) (*request.Execution, error)
}

// Putter is the interface that wraps the basic Put method.
type Putter interface {
	Put(url string, payload interface{}) (*request.Execution, error)
}

// Deleter is the interface that wraps the basic Delete method.
type Deleter interface {
	Delete(url string, payload interface{}) (*request.Execution, error)
}

// Requester is the interface that wraps the basic Request method,
// which issues a request with an arbitrary method.
type Requester interface {
	Request(method, url string, payload interface{}) (*request.Execution, error)
}

// IdleCloser is the interface that wraps the basic CloseIdleConnections
// method.
//
// If the underlying implementation supports it, CloseIdleConnections
// closes any connections which were previously connected from previous
// requests but are now sitting idle in a "keep-alive" state. It does
// not interrupt any connections currently in use.
type IdleCloser interface {
	CloseIdleConnections()
}

// Executor is the interface that groups the basic Do, Get, Post, Put,
// Delete, Request and CloseIdleConnections methods.
//
// Any Doer can be converted into an Executor via the Inflate function.
type Executor interface {
	Doer
	Getter
	Poster
	Putter
	Deleter
	Requester
	IdleCloser
}

// Request uses the specified Doer to issue a request with the given
// method, URL and payload. See request.NewPlan for the payload types.
func Request(d Doer, method, url string, payload interface{}) (*request.Execution, error) {
	p, err := request.NewPlan(method, url, payload)
	if err != nil {
		return nil, err
	}
	return d.Do(p)
}

// Get uses the specified Doer to issue a GET to the specified URL.
func Get(d Doer, url string, payload interface{}) (*request.Execution, error) {
	return Request(d, http.MethodGet, url, payload)
}

// Post uses the specified Doer to issue a POST to the specified URL.
func Post(d Doer, url string, payload interface{}) (*request.Execution, error) {
	return Request(d, http.MethodPost, url, payload)
}

// Put uses the specified Doer to issue a PUT to the specified URL.
func Put(d Doer, url string, payload interface{}) (*request.Execution, error) {
	return Request(d, http.MethodPut, url, payload)
}

// Delete uses the specified Doer to issue a DELETE to the specified
// URL.
func Delete(d Doer, url string, payload interface{}) (*request.Execution, error) {
	return Request(d, http.MethodDelete, url, payload)
}

// Inflate converts any non-nil Doer into an Executor. This may be
// helpful for interop across library boundaries, i.e. if code that only
// has access to a Doer needs to call a function that requires an
// Executor.
func Inflate(d Doer) Executor {
	if d == nil {
		panic("scrapex: nil doer")
	}

	if e, ok := d.(Executor); ok {
		return e
	}

	return inflated{d}
}

type inflated struct {
	doer Doer
}

func (i inflated) Do(p *request.Plan) (*request.Execution, error) {
	return i.doer.Do(p)
}

func (i inflated) Get(url string, payload interface{}) (*request.Execution, error) {
	return Get(i.doer, url, payload)
}

func (i inflated) Post(url string, payload interface{}) (*request.Execution, error) {
	return Post(i.doer, url, payload)
}

func (i inflated) Put(url string, payload interface{}) (*request.Execution, error) {
	return Put(i.doer, url, payload)
}

func (i inflated) Delete(url string, payload interface{}) (*request.Execution, error) {
	return Delete(i.doer, url, payload)
}

func (i inflated) Request(method, url string, payload interface{}) (*request.Execution, error) {
	return Request(i.doer, method, url, payload)
}

func (i inflated) CloseIdleConnections() {
	if ic, ok := i.doer.(IdleCloser); ok {
		ic.CloseIdleConnections()
	}
}
