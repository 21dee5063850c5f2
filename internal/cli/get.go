// Copyright 2021 The httpx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package cli

import (
	"fmt"
	"strings"

	"github.com/gogama/scrapex"
	"github.com/gogama/scrapex/manifest"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func (a *app) getCmd() *cobra.Command {
	var (
		method       string
		data         string
		headers      []string
		showManifest bool
	)
	cmd := &cobra.Command{
		Use:   "get URL...",
		Short: "Fetch URLs and write the response bodies to stdout",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.session(cmd.Context())
			if err != nil {
				return err
			}
			defer s.CloseIdleConnections()
			for _, h := range headers {
				k, v, ok := strings.Cut(h, ":")
				if !ok {
					return fmt.Errorf("invalid header %q, want Key: Value", h)
				}
				s.SetHeader(strings.TrimSpace(k), strings.TrimSpace(v))
			}

			var payload interface{}
			if data != "" {
				payload = data
			}
			for _, u := range args {
				e, err := s.Request(strings.ToUpper(method), u, payload)
				if err != nil {
					return err
				}
				a.logger.Info("fetched", "url", u, "status", e.StatusCode(), "bytes", len(e.Body), "attempts", e.Attempt+1)
				if _, err = cmd.OutOrStdout().Write(e.Body); err != nil {
					return err
				}
			}
			if showManifest {
				return writeManifest(cmd, s)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&method, "method", "X", "GET", "request method")
	cmd.Flags().StringVarP(&data, "data", "d", "", "request body")
	cmd.Flags().StringArrayVarP(&headers, "header", "H", nil, "extra header, as Key: Value")
	cmd.Flags().BoolVar(&showManifest, "manifest", false, "write the request manifest to stderr as YAML")
	return cmd
}

type manifestEntry struct {
	ID        string   `yaml:"id"`
	Method    string   `yaml:"method"`
	URL       string   `yaml:"url"`
	Host      string   `yaml:"host"`
	Status    int      `yaml:"status"`
	Attempts  int      `yaml:"attempts"`
	Errors    []string `yaml:"errors,omitempty"`
	Roundtrip string   `yaml:"roundtrip"`
	Success   bool     `yaml:"success"`
}

func writeManifest(cmd *cobra.Command, s *scrapex.Session) error {
	entries := s.Manifest()
	out := make([]manifestEntry, len(entries))
	for i := range entries {
		out[i] = toManifestEntry(&entries[i])
	}
	enc := yaml.NewEncoder(cmd.ErrOrStderr())
	defer enc.Close()
	return enc.Encode(out)
}

func toManifestEntry(e *manifest.Entry) manifestEntry {
	return manifestEntry{
		ID:        e.ID,
		Method:    e.Method,
		URL:       e.URL,
		Host:      e.Host,
		Status:    e.StatusCode(),
		Attempts:  e.Attempts,
		Errors:    e.Errors,
		Roundtrip: e.Roundtrip.String(),
		Success:   e.Success,
	}
}
