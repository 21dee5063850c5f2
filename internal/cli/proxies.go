// Copyright 2021 The httpx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func (a *app) proxiesCmd() *cobra.Command {
	var (
		continents []string
		sslOnly    bool
	)
	cmd := &cobra.Command{
		Use:   "proxies",
		Short: "List the proxies the proxy service offers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := a.session(cmd.Context())
			if err != nil {
				return err
			}
			if len(continents) == 0 {
				continents = a.cfg.Proxy.Continents
			}
			if err = s.FillProxyBag(cmd.Context(), continents, sslOnly || a.cfg.Proxy.SSLOnly); err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tADDRESS\tSSL\tCONTINENT\tCOUNTRY\tQUALITY")
			for _, p := range s.ProxyBag() {
				fmt.Fprintf(w, "%d\t%s\t%t\t%s\t%s\t%.2f\n", p.ID, p.Address, p.SSL, p.Continent, p.Country, p.Quality)
			}
			return w.Flush()
		},
	}
	cmd.Flags().StringSliceVar(&continents, "continent", nil, "continent filter, in priority order")
	cmd.Flags().BoolVar(&sslOnly, "ssl-only", false, "only list proxies supporting SSL")
	return cmd
}
