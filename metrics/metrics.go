// Copyright 2021 The httpx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Package metrics exports Prometheus metrics about the requests made
// by scrapex sessions.
//
// Create a Collector, register it, and install it into the handler
// group of each session to observe:
//
//	c := metrics.NewCollector()
//	prometheus.MustRegister(c)
//	s := &scrapex.Session{Handlers: &scrapex.HandlerGroup{}}
//	c.Install(s.Handlers)
package metrics

import (
	"strings"

	"github.com/gogama/scrapex"
	"github.com/gogama/scrapex/request"
	"github.com/gogama/scrapex/transient"
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "scrapex"

// A Collector counts attempts, executions and proxy rotations, and
// observes execution durations. It is a prometheus.Collector and a
// scrapex.Handler. One Collector may serve any number of sessions.
type Collector struct {
	attempts   *prometheus.CounterVec
	executions *prometheus.CounterVec
	rotations  prometheus.Counter
	duration   *prometheus.HistogramVec
}

// NewCollector returns a new unregistered Collector.
func NewCollector() *Collector {
	return &Collector{
		attempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "attempts_total",
			Help:      "Physical request attempts, by result.",
		}, []string{"result"}),
		executions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "executions_total",
			Help:      "Logical requests, by outcome.",
		}, []string{"method", "outcome"}),
		rotations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "proxy_rotations_total",
			Help:      "Proxies discarded from a proxy bag after failing.",
		}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "execution_duration_seconds",
			Help:      "Duration of logical requests, including retries and waits.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
		}, []string{"method"}),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	c.attempts.Describe(ch)
	c.executions.Describe(ch)
	c.rotations.Describe(ch)
	c.duration.Describe(ch)
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	c.attempts.Collect(ch)
	c.executions.Collect(ch)
	c.rotations.Collect(ch)
	c.duration.Collect(ch)
}

// Install adds c to g for every event it observes.
func (c *Collector) Install(g *scrapex.HandlerGroup) {
	g.PushBack(scrapex.AfterAttempt, c)
	g.PushBack(scrapex.AfterRotate, c)
	g.PushBack(scrapex.AfterExecutionEnd, c)
}

// Handle implements scrapex.Handler.
func (c *Collector) Handle(evt scrapex.Event, e *request.Execution) {
	switch evt {
	case scrapex.AfterAttempt:
		c.attempts.WithLabelValues(attemptResult(e)).Inc()
	case scrapex.AfterRotate:
		c.rotations.Inc()
	case scrapex.AfterExecutionEnd:
		outcome := "success"
		if e.Err != nil {
			outcome = "failure"
		}
		c.executions.WithLabelValues(e.Plan.Method, outcome).Inc()
		c.duration.WithLabelValues(e.Plan.Method).Observe(e.Duration().Seconds())
	}
}

func attemptResult(e *request.Execution) string {
	if e.Err == nil {
		return "ok"
	}
	if e.Category == transient.Not {
		return "error"
	}
	return strings.ToLower(e.Category.String())
}
