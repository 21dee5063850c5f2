// Copyright 2021 The httpx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package scrapex

// UserAgent returns the User-Agent sent with requests.
func (s *Session) UserAgent() string {
	return s.identity.UserAgent()
}

// SetUserAgent sends ua as the User-Agent, turning random mode off. An
// empty ua restores identity.DefaultUserAgent.
func (s *Session) SetUserAgent(ua string) {
	s.identity.SetUserAgent(ua)
}

// UseRandomUserAgent turns random mode on or off and returns the
// User-Agent now in effect. Turning it on draws a User-Agent from
// identity.Pool, which is kept until ResetIdentity.
func (s *Session) UseRandomUserAgent(enable bool) string {
	s.identity.UseRandom(enable)
	return s.identity.UserAgent()
}

// SetHeader sets a header sent with every request.
func (s *Session) SetHeader(key, value string) {
	s.identity.SetHeader(key, value)
}

// SetOneTimeHeader sets a header sent with the next request only.
func (s *Session) SetOneTimeHeader(key, value string) {
	s.identity.SetOneTimeHeader(key, value)
}

// DelHeader removes a header set with SetHeader or SetOneTimeHeader.
func (s *Session) DelHeader(key string) {
	s.identity.DelHeader(key)
}

// ResetIdentity changes how the session looks to remote servers. In
// random mode it draws a new User-Agent different from the current one.
// If the proxy bag is active it also rotates to the next proxy, and
// fails with ErrEmptyProxyBag if none is left.
func (s *Session) ResetIdentity() error {
	ua := s.identity.Reset()
	s.logger().Info("scrapex: reset identity", "user_agent", ua)
	if !s.pooled {
		return nil
	}
	_, err := s.ResetProxyFromBag()
	return err
}
