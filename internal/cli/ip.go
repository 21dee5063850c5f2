// Copyright 2021 The httpx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func (a *app) ipCmd() *cobra.Command {
	var test bool
	cmd := &cobra.Command{
		Use:   "ip",
		Short: "Print the outbound IP address the proxy service sees",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := a.session(cmd.Context())
			if err != nil {
				return err
			}
			defer s.CloseIdleConnections()
			if test {
				if err = s.TestProxy(cmd.Context()); err != nil {
					return err
				}
			}
			ip, err := s.OutboundIP(cmd.Context())
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), ip)
			return err
		},
	}
	cmd.Flags().BoolVar(&test, "test", false, "check the current proxy first")
	return cmd
}
