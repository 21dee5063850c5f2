// Copyright 2021 The httpx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package proxy

import (
	"errors"
	"fmt"
)

// ErrInvalidContinent is returned when a continent filter names a
// continent which is not one of Continents.
var ErrInvalidContinent = errors.New("scrapex/proxy: invalid continent")

// Continents lists the continent names accepted by Filter.
var Continents = []string{
	"North America",
	"South America",
	"Asia",
	"Europe",
	"Africa",
	"Australia",
	"Antarctica",
}

// ValidateContinents returns an error wrapping ErrInvalidContinent if
// any element of continents is not one of Continents.
func ValidateContinents(continents []string) error {
	for _, c := range continents {
		if !validContinent(c) {
			return fmt.Errorf("%w: %q", ErrInvalidContinent, c)
		}
	}
	return nil
}

func validContinent(c string) bool {
	for _, v := range Continents {
		if c == v {
			return true
		}
	}
	return false
}

// Filter returns the candidates matching the given continents and SSL
// constraint. Filter does not modify candidates.
//
// If continents is non-empty, only proxies on one of the listed
// continents are kept and the result is ordered by continent priority:
// all proxies on continents[0] first, then continents[1], and so on.
// Within a continent the input order is preserved. If sslOnly is true,
// only proxies supporting SSL are kept.
//
// The continents are validated before any filtering happens. If
// continents is empty and sslOnly is false, the result holds the same
// elements as candidates, in the same order.
func Filter(candidates []Proxy, continents []string, sslOnly bool) ([]Proxy, error) {
	if err := ValidateContinents(continents); err != nil {
		return nil, err
	}
	keep := func(p Proxy) bool {
		return !sslOnly || p.SSL
	}
	out := make([]Proxy, 0, len(candidates))
	if len(continents) == 0 {
		for _, p := range candidates {
			if keep(p) {
				out = append(out, p)
			}
		}
		return out, nil
	}
	seen := make(map[string]bool, len(continents))
	for _, c := range continents {
		if seen[c] {
			continue
		}
		seen[c] = true
		for _, p := range candidates {
			if p.Continent == c && keep(p) {
				out = append(out, p)
			}
		}
	}
	return out, nil
}
