// Copyright 2021 The httpx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package scrapex

import (
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gogama/scrapex/request"
	"github.com/gogama/scrapex/transport"
)

// Preferred extensions for common content types, where the mime
// package would pick an unusual one.
var preferredExt = map[string]string{
	"image/jpeg":       ".jpg",
	"image/png":        ".png",
	"image/gif":        ".gif",
	"image/webp":       ".webp",
	"image/svg+xml":    ".svg",
	"text/html":        ".html",
	"text/plain":       ".txt",
	"text/css":         ".css",
	"text/csv":         ".csv",
	"application/json": ".json",
	"application/pdf":  ".pdf",
	"application/zip":  ".zip",
	"application/xml":  ".xml",
	"text/xml":         ".xml",
}

// Save downloads rawURL and writes the response body to the local
// file system, returning the path of the written file.
//
// Before downloading, Save sends a HEAD request and refuses, with
// ErrContentTooLarge, content whose declared length exceeds
// MaxContentLength. The download itself is an ordinary Get, with
// retries, rate limiting and a manifest entry.
//
// If destination is an existing directory, or ends with a path
// separator, the file is named after the last segment of the URL path,
// with an extension derived from the response Content-Type when the
// segment has none. Otherwise destination names the file; when it has
// no extension, the URL's extension, or one derived from the
// Content-Type, is appended. Missing parent directories are created.
//
// Save fails with ErrCannotOverwriteFile if the file exists and
// overwrite is false.
func (s *Session) Save(rawURL, destination string, overwrite bool) (string, error) {
	limit := s.MaxContentLength
	if limit <= 0 {
		limit = DefaultMaxContentLength
	}
	if n, ok := s.headLength(rawURL); ok && n > limit {
		s.logger().Warn("scrapex: remote content too large",
			"url", rawURL,
			"content_length", n,
			"max", limit)
		return "", fmt.Errorf("%w: %d bytes exceeds %d", ErrContentTooLarge, n, limit)
	}

	e, err := s.Get(rawURL, nil)
	if err != nil {
		return "", err
	}
	if int64(len(e.Body)) > limit {
		return "", fmt.Errorf("%w: %d bytes exceeds %d", ErrContentTooLarge, len(e.Body), limit)
	}

	name := saveFileName(destination, e.Plan.URL, e.Header().Get("Content-Type"))
	if err = os.MkdirAll(filepath.Dir(name), 0o755); err != nil {
		return "", err
	}
	if !overwrite {
		if _, err = os.Stat(name); err == nil {
			s.logger().Error("scrapex: file already exists", "path", name)
			return "", fmt.Errorf("%w: %s", ErrCannotOverwriteFile, name)
		}
	}
	if err = os.WriteFile(name, e.Body, 0o644); err != nil {
		return "", err
	}
	return name, nil
}

// headLength sends a single HEAD request through the current egress
// and returns the declared Content-Length. It bypasses the retry loop
// and the manifest.
func (s *Session) headLength(rawURL string) (int64, bool) {
	p, err := request.NewPlan(http.MethodHead, rawURL, nil)
	if err != nil {
		return 0, false
	}
	r := p.ToRequest(p.Context())
	r.Header = s.identity.Headers(nil).Header()
	resp, err := s.doer().Do(r, transport.Egress{
		Proxies:   s.egressProxies(),
		TLSVerify: !s.SkipSSLVerify,
	})
	if err != nil {
		s.logger().Debug("scrapex: HEAD request failed", "url", rawURL, "err", err)
		return 0, false
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
	n, err := strconv.ParseInt(resp.Header.Get("Content-Length"), 10, 64)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

func saveFileName(destination string, u *url.URL, contentType string) string {
	last := path.Base(u.Path)
	if last == "/" || last == "." {
		last = ""
	}
	ext := contentTypeExt(contentType)

	if isDirDestination(destination) {
		name := last
		if name == "" {
			name = "index"
		}
		if path.Ext(name) == "" {
			name += ext
		}
		return filepath.Join(destination, name)
	}

	if filepath.Ext(destination) != "" {
		return destination
	}
	if urlExt := path.Ext(last); urlExt != "" {
		return destination + urlExt
	}
	return destination + ext
}

func isDirDestination(destination string) bool {
	if strings.HasSuffix(destination, "/") || strings.HasSuffix(destination, string(filepath.Separator)) {
		return true
	}
	fi, err := os.Stat(destination)
	return err == nil && fi.IsDir()
}

func contentTypeExt(contentType string) string {
	if contentType == "" {
		return ""
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return ""
	}
	if ext, ok := preferredExt[mediaType]; ok {
		return ext
	}
	exts, err := mime.ExtensionsByType(mediaType)
	if err != nil || len(exts) == 0 {
		return ""
	}
	return exts[0]
}
