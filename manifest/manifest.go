// Copyright 2021 The httpx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Package manifest keeps an in-memory, append-only trail of the
// logical requests made by a session, for debugging and telemetry.
//
// Each logical request produces one Entry. The entry is opened with
// Begin when the request starts, counts every physical attempt made
// for it, and is sealed with Seal when the request reaches its outcome.
// Only one entry may be open at a time. Entries are kept for the life
// of the Manifest, most recent first.
package manifest

import (
	"errors"
	"net/http"
	"time"

	"github.com/gogama/scrapex/host"
	"github.com/google/uuid"
)

var (
	// ErrEntryOpen is returned by Begin when the most recent entry has
	// not been sealed yet.
	ErrEntryOpen = errors.New("scrapex/manifest: an entry is already open")
	// ErrSealed is returned when modifying a sealed entry.
	ErrSealed = errors.New("scrapex/manifest: entry is sealed")
	// ErrUnknownEntry is returned for an entry handle that does not
	// belong to the manifest.
	ErrUnknownEntry = errors.New("scrapex/manifest: unknown entry")
)

// An Entry records one logical request.
type Entry struct {
	// ID uniquely identifies the entry.
	ID string
	// Method and URL are the request method and URL.
	Method string
	URL    string
	// Host is the canonical host key of URL.
	Host string
	// PayloadSize is the size of the request body, in bytes.
	PayloadSize int
	// Start is when the logical request started.
	Start time.Time
	// End is when the entry was sealed, or zero while it is open.
	End time.Time
	// Roundtrip is the duration of the logical request as measured by
	// the caller of Seal, including retries and waits.
	Roundtrip time.Duration
	// Attempts counts the physical request attempts.
	Attempts int
	// Errors lists the names of the errors met by failed attempts, in
	// the order they happened.
	Errors []string
	// Response is the final response, if one was received.
	Response *http.Response
	// Success reports whether the logical request succeeded. It is
	// only meaningful once the entry is sealed.
	Success bool
	// Sealed reports whether the entry is sealed.
	Sealed bool
}

// StatusCode returns the status code of the final response, or 0 if
// there is none.
func (e *Entry) StatusCode() int {
	if e.Response == nil {
		return 0
	}
	return e.Response.StatusCode
}

// A Manifest is the ordered trail of entries. The zero value is an
// empty Manifest ready to use.
//
// A Manifest is not safe for concurrent use by multiple goroutines.
type Manifest struct {
	// Now, if not nil, replaces time.Now as the entry clock.
	Now func() time.Time

	// entries is kept oldest first; the public view is reversed.
	entries []*Entry
}

// Begin opens a new entry, which becomes the most recent one. Begin
// fails with ErrEntryOpen if the most recent entry is still open.
func (m *Manifest) Begin(method, url string, payloadSize int) (*Entry, error) {
	if last := m.last(); last != nil && !last.Sealed {
		return nil, ErrEntryOpen
	}
	k, _ := host.Parse(url)
	e := &Entry{
		ID:          uuid.New().String(),
		Method:      method,
		URL:         url,
		Host:        k,
		PayloadSize: payloadSize,
		Start:       m.now(),
	}
	m.entries = append(m.entries, e)
	return e, nil
}

// Attempt counts one physical attempt on the open entry e. If errName
// is not empty it is appended to the entry's errors.
func (m *Manifest) Attempt(e *Entry, errName string) error {
	if err := m.check(e); err != nil {
		return err
	}
	e.Attempts++
	if errName != "" {
		e.Errors = append(e.Errors, errName)
	}
	return nil
}

// Seal stamps the end time, roundtrip, final response and success flag
// on e. The entry cannot be modified afterwards.
func (m *Manifest) Seal(e *Entry, resp *http.Response, roundtrip time.Duration, success bool) error {
	if err := m.check(e); err != nil {
		return err
	}
	e.End = m.now()
	if e.End.Before(e.Start) {
		e.End = e.Start
	}
	e.Roundtrip = roundtrip
	e.Response = resp
	e.Success = success
	e.Sealed = true
	return nil
}

// Entries returns copies of all entries, most recent first.
func (m *Manifest) Entries() []Entry {
	n := len(m.entries)
	out := make([]Entry, n)
	for i, e := range m.entries {
		out[n-1-i] = *e
		out[n-1-i].Errors = append([]string(nil), e.Errors...)
	}
	return out
}

// Latest returns a copy of the most recent entry. The return value ok
// is false if the manifest is empty.
func (m *Manifest) Latest() (e Entry, ok bool) {
	last := m.last()
	if last == nil {
		return Entry{}, false
	}
	e = *last
	e.Errors = append([]string(nil), e.Errors...)
	return e, true
}

// Len returns the number of entries.
func (m *Manifest) Len() int {
	return len(m.entries)
}

func (m *Manifest) check(e *Entry) error {
	if e == nil || m.last() != e {
		if e != nil && e.Sealed {
			return ErrSealed
		}
		return ErrUnknownEntry
	}
	if e.Sealed {
		return ErrSealed
	}
	return nil
}

func (m *Manifest) last() *Entry {
	if len(m.entries) == 0 {
		return nil
	}
	return m.entries[len(m.entries)-1]
}

func (m *Manifest) now() time.Time {
	if m.Now != nil {
		return m.Now()
	}
	return time.Now()
}
