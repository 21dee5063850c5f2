// Copyright 2021 The httpx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package proxy

import (
	"errors"
	"math/rand"
	"time"
)

// ErrEmptyBag is returned by Rotate when no proxy remains to replace
// the one being discarded.
var ErrEmptyBag = errors.New("scrapex/proxy: proxy bag is empty")

// A Bag is an ordered pool of proxies. The front element, if any, is
// the active proxy.
//
// The zero value is an empty Bag. A Bag is not safe for concurrent use
// by multiple goroutines; give each session its own.
type Bag struct {
	proxies []Proxy

	// Shuffle, if not nil, replaces the default random shuffle applied
	// by Populate.
	Shuffle func([]Proxy)
}

// Populate replaces the contents of the bag with the candidates that
// pass Filter, after shuffling them.
//
// The continents are validated first, so an invalid continent leaves
// the bag unchanged. Candidates are shuffled before filtering so that
// independent sessions fetching the same list do not all start on the
// same proxy. Continent priority ordering from Filter is kept.
func (b *Bag) Populate(candidates []Proxy, continents []string, sslOnly bool) error {
	if err := ValidateContinents(continents); err != nil {
		return err
	}
	shuffled := make([]Proxy, len(candidates))
	copy(shuffled, candidates)
	b.shuffle(shuffled)
	filtered, err := Filter(shuffled, continents, sslOnly)
	if err != nil {
		return err
	}
	b.proxies = filtered
	return nil
}

// Current returns the active proxy. The return value ok is false if
// the bag is empty.
func (b *Bag) Current() (p Proxy, ok bool) {
	if len(b.proxies) == 0 {
		return Proxy{}, false
	}
	return b.proxies[0], true
}

// Rotate discards the active proxy and returns the one promoted in its
// place. If nothing remains after the discard, Rotate returns
// ErrEmptyBag. Rotating an empty bag also returns ErrEmptyBag.
func (b *Bag) Rotate() (Proxy, error) {
	if len(b.proxies) == 0 {
		return Proxy{}, ErrEmptyBag
	}
	b.proxies[0] = Proxy{}
	b.proxies = b.proxies[1:]
	if len(b.proxies) == 0 {
		return Proxy{}, ErrEmptyBag
	}
	return b.proxies[0], nil
}

// Len returns the number of proxies in the bag, including the active
// one.
func (b *Bag) Len() int {
	return len(b.proxies)
}

// Proxies returns a copy of the bag contents, front first.
func (b *Bag) Proxies() []Proxy {
	out := make([]Proxy, len(b.proxies))
	copy(out, b.proxies)
	return out
}

func (b *Bag) shuffle(ps []Proxy) {
	if b.Shuffle != nil {
		b.Shuffle(ps)
		return
	}
	r := rand.New(rand.NewSource(time.Now().UnixNano()))
	r.Shuffle(len(ps), func(i, j int) {
		ps[i], ps[j] = ps[j], ps[i]
	})
}
