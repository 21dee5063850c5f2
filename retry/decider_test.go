// Copyright 2021 The httpx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package retry

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/gogama/scrapex/request"
	"github.com/gogama/scrapex/transient"
	"github.com/gogama/scrapex/transport"
	"github.com/stretchr/testify/assert"
)

var errAttempt = errors.New("attempt failed")

func failed(c transient.Category) *request.Execution {
	return &request.Execution{
		Err:      transient.Wrap(c, errAttempt),
		Category: c,
		Egress:   transport.Egress{TLSVerify: true},
	}
}

func TestAction_String(t *testing.T) {
	assert.Equal(t, "Stop", Stop.String())
	assert.Equal(t, "Retry", Retry.String())
	assert.Equal(t, "Rotate", Rotate.String())
	assert.Equal(t, "Unknown", Action(7).String())
}

func TestBudget(t *testing.T) {
	d := Budget(2)
	t.Run("success", func(t *testing.T) {
		assert.Equal(t, Stop, d(&request.Execution{Response: &http.Response{StatusCode: 500}}))
	})
	t.Run("not a retry trigger", func(t *testing.T) {
		assert.Equal(t, Stop, d(failed(transient.Not)))
	})
	t.Run("proxy", func(t *testing.T) {
		e := failed(transient.Proxy)
		e.Pooled = true
		e.ProxyFailures = 100
		assert.Equal(t, Rotate, d(e), "pooled proxies always rotate")
		e.Pooled = false
		for i := 1; i <= 2; i++ {
			e.ProxyFailures = i
			assert.Equal(t, Retry, d(e), fmt.Sprintf("failure %d", i))
		}
		e.ProxyFailures = 3
		assert.Equal(t, Stop, d(e))
	})
	t.Run("tls", func(t *testing.T) {
		e := failed(transient.TLS)
		assert.Equal(t, Stop, d(e), "skip verify not allowed")
		e.SkipVerify = true
		assert.Equal(t, Retry, d(e))
		e.Egress.TLSVerify = false
		assert.Equal(t, Stop, d(e), "already unverified")
	})
	t.Run("connection", func(t *testing.T) {
		e := failed(transient.Connection)
		for i := 1; i <= 2; i++ {
			e.ConnFailures = i
			e.Pooled = false
			assert.Equal(t, Retry, d(e), fmt.Sprintf("failure %d", i))
			e.Pooled = true
			assert.Equal(t, Rotate, d(e), fmt.Sprintf("pooled failure %d", i))
		}
		e.ConnFailures = 3
		assert.Equal(t, Stop, d(e))
		e.Pooled = false
		assert.Equal(t, Stop, d(e))
	})
	t.Run("truncated", func(t *testing.T) {
		e := failed(transient.Truncated)
		assert.Equal(t, Stop, d(e))
		e.Pooled = true
		assert.Equal(t, Rotate, d(e))
	})
	t.Run("zero budget", func(t *testing.T) {
		e := failed(transient.Connection)
		e.ConnFailures = 1
		assert.Equal(t, Stop, Budget(0)(e))
		e = failed(transient.Proxy)
		e.ProxyFailures = 1
		assert.Equal(t, Stop, Budget(0)(e))
		e.Pooled = true
		assert.Equal(t, Rotate, Budget(0)(e))
	})
}

func TestTimes(t *testing.T) {
	d := Times(2)
	assert.Equal(t, Retry, d(&request.Execution{Attempt: 0}))
	assert.Equal(t, Retry, d(&request.Execution{Attempt: 1}))
	assert.Equal(t, Stop, d(&request.Execution{Attempt: 2}))
	assert.Equal(t, Stop, Times(0)(failed(transient.Connection)))
}

func TestBefore(t *testing.T) {
	d := Before(time.Hour)
	assert.Equal(t, Retry, d(&request.Execution{}))
	assert.Equal(t, Retry, d(&request.Execution{Start: time.Now()}))
	assert.Equal(t, Stop, d(&request.Execution{Start: time.Now().Add(-2 * time.Hour)}))
}

func TestStatusCode(t *testing.T) {
	d := StatusCode(429, 503)
	assert.Equal(t, Stop, d(&request.Execution{}))
	assert.Equal(t, Retry, d(&request.Execution{Response: &http.Response{StatusCode: 503}}))
	assert.Equal(t, Stop, d(&request.Execution{Response: &http.Response{StatusCode: 500}}))
}

func TestDeciderFunc(t *testing.T) {
	stop := DeciderFunc(func(*request.Execution) Action { return Stop })
	retry := DeciderFunc(func(*request.Execution) Action { return Retry })
	rotate := DeciderFunc(func(*request.Execution) Action { return Rotate })
	panics := DeciderFunc(func(*request.Execution) Action { panic("evaluated") })
	e := &request.Execution{}

	t.Run("And", func(t *testing.T) {
		assert.Equal(t, Stop, stop.And(panics)(e))
		assert.Equal(t, Stop, retry.And(stop)(e))
		assert.Equal(t, Retry, retry.And(retry)(e))
		assert.Equal(t, Rotate, retry.And(rotate)(e))
		assert.Equal(t, Rotate, rotate.And(retry)(e))
	})
	t.Run("Or", func(t *testing.T) {
		assert.Equal(t, Retry, retry.Or(panics)(e))
		assert.Equal(t, Rotate, stop.Or(rotate)(e))
		assert.Equal(t, Stop, stop.Or(stop)(e))
	})
	t.Run("Decide", func(t *testing.T) {
		assert.Equal(t, Rotate, rotate.Decide(e))
	})
	t.Run("status code opt-in", func(t *testing.T) {
		d := DefaultDecider.Or(StatusCode(503).And(Times(1)))
		resp := &http.Response{StatusCode: 503}
		assert.Equal(t, Retry, d(&request.Execution{Attempt: 0, Response: resp}))
		assert.Equal(t, Stop, d(&request.Execution{Attempt: 1, Response: resp}))
	})
}
