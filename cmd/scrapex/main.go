// Copyright 2021 The httpx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Command scrapex fetches and saves web resources through a resilient
// scrapex session.
package main

import "github.com/gogama/scrapex/internal/cli"

func main() {
	cli.Execute()
}
