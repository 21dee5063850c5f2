// Copyright 2021 The httpx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package manifest

import (
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManifest_BeginSeal(t *testing.T) {
	for _, success := range []bool{true, false} {
		t.Run(map[bool]string{true: "success", false: "failure"}[success], func(t *testing.T) {
			var m Manifest
			e, err := m.Begin("GET", "https://www.example.com/a", 0)
			require.NoError(t, err)
			require.NotNil(t, e)
			assert.False(t, e.Sealed)
			_, err = uuid.Parse(e.ID)
			assert.NoError(t, err)
			assert.Equal(t, "example.com", e.Host)

			require.NoError(t, m.Seal(e, nil, time.Millisecond, success))
			require.Equal(t, 1, m.Len())
			l, ok := m.Latest()
			require.True(t, ok)
			assert.True(t, l.Sealed)
			assert.Equal(t, success, l.Success)
			assert.False(t, l.End.Before(l.Start))
			assert.Equal(t, time.Millisecond, l.Roundtrip)
		})
	}
}

func TestManifest_OneOpenEntry(t *testing.T) {
	var m Manifest
	e, err := m.Begin("GET", "http://a.com", 0)
	require.NoError(t, err)
	_, err = m.Begin("GET", "http://b.com", 0)
	assert.ErrorIs(t, err, ErrEntryOpen)
	assert.Equal(t, 1, m.Len())
	require.NoError(t, m.Seal(e, nil, 0, true))
	_, err = m.Begin("GET", "http://b.com", 0)
	assert.NoError(t, err)
	assert.Equal(t, 2, m.Len())
}

func TestManifest_Prepends(t *testing.T) {
	var m Manifest
	for _, u := range []string{"http://a.com", "http://b.com", "http://c.com"} {
		e, err := m.Begin("POST", u, 3)
		require.NoError(t, err)
		require.NoError(t, m.Seal(e, nil, 0, true))
	}
	entries := m.Entries()
	require.Len(t, entries, 3)
	assert.Equal(t, "http://c.com", entries[0].URL)
	assert.Equal(t, "http://b.com", entries[1].URL)
	assert.Equal(t, "http://a.com", entries[2].URL)
	assert.Equal(t, 3, entries[2].PayloadSize)
	assert.NotEqual(t, entries[0].ID, entries[1].ID)
}

func TestManifest_ManyEntries(t *testing.T) {
	const n = 1000
	var m Manifest
	handles := make([]*Entry, n)
	for i := 0; i < n; i++ {
		e, err := m.Begin("GET", fmt.Sprintf("http://h%d.com", i), i)
		require.NoError(t, err)
		require.NoError(t, m.Seal(e, nil, 0, true))
		handles[i] = e
	}
	require.Equal(t, n, m.Len())

	t.Run("most recent first", func(t *testing.T) {
		entries := m.Entries()
		require.Len(t, entries, n)
		for i := range entries {
			assert.Equal(t, n-1-i, entries[i].PayloadSize)
		}
		assert.Equal(t, "http://h999.com", entries[0].URL)
		assert.Equal(t, "http://h0.com", entries[n-1].URL)
	})
	t.Run("latest", func(t *testing.T) {
		e, ok := m.Latest()
		require.True(t, ok)
		assert.Equal(t, "http://h999.com", e.URL)
		assert.Equal(t, handles[n-1].ID, e.ID)
	})
	t.Run("handles stay sealed", func(t *testing.T) {
		assert.ErrorIs(t, m.Attempt(handles[0], "x"), ErrSealed)
		assert.ErrorIs(t, m.Seal(handles[n/2], nil, 0, false), ErrSealed)
	})
	t.Run("one open entry", func(t *testing.T) {
		e, err := m.Begin("GET", "http://open.com", 0)
		require.NoError(t, err)
		_, err = m.Begin("GET", "http://next.com", 0)
		assert.ErrorIs(t, err, ErrEntryOpen)
		require.NoError(t, m.Attempt(e, ""))
		require.NoError(t, m.Seal(e, nil, 0, true))
		latest, _ := m.Latest()
		assert.Equal(t, "http://open.com", latest.URL)
		assert.Equal(t, 1, latest.Attempts)
		assert.Equal(t, n+1, m.Len())
	})
}

func TestManifest_Attempt(t *testing.T) {
	var m Manifest
	e, err := m.Begin("GET", "http://a.com", 0)
	require.NoError(t, err)
	require.NoError(t, m.Attempt(e, "Proxy"))
	require.NoError(t, m.Attempt(e, "Connection"))
	require.NoError(t, m.Attempt(e, ""))
	resp := &http.Response{StatusCode: 200}
	require.NoError(t, m.Seal(e, resp, 0, true))
	l, _ := m.Latest()
	assert.Equal(t, 3, l.Attempts)
	assert.Equal(t, []string{"Proxy", "Connection"}, l.Errors)
	assert.Equal(t, 200, l.StatusCode())
}

func TestManifest_Sealed(t *testing.T) {
	var m Manifest
	e, err := m.Begin("GET", "http://a.com", 0)
	require.NoError(t, err)
	require.NoError(t, m.Seal(e, nil, 0, false))
	assert.ErrorIs(t, m.Seal(e, nil, 0, true), ErrSealed)
	assert.ErrorIs(t, m.Attempt(e, "x"), ErrSealed)
	l, _ := m.Latest()
	assert.False(t, l.Success)
	assert.Equal(t, 0, l.Attempts)

	e2, err := m.Begin("GET", "http://b.com", 0)
	require.NoError(t, err)
	assert.ErrorIs(t, m.Seal(e, nil, 0, true), ErrSealed)
	assert.ErrorIs(t, m.Attempt(&Entry{}, "x"), ErrUnknownEntry)
	assert.ErrorIs(t, m.Attempt(nil, "x"), ErrUnknownEntry)
	assert.NoError(t, m.Attempt(e2, ""))
}

func TestManifest_Copies(t *testing.T) {
	var m Manifest
	e, err := m.Begin("GET", "http://a.com", 0)
	require.NoError(t, err)
	require.NoError(t, m.Attempt(e, "Truncated"))
	entries := m.Entries()
	entries[0].Errors[0] = "changed"
	entries[0].URL = "changed"
	l, _ := m.Latest()
	assert.Equal(t, []string{"Truncated"}, l.Errors)
	assert.Equal(t, "http://a.com", l.URL)
}

func TestManifest_Clock(t *testing.T) {
	t0 := time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC)
	now := t0
	m := Manifest{Now: func() time.Time { return now }}
	e, err := m.Begin("GET", "http://a.com", 0)
	require.NoError(t, err)
	assert.Equal(t, t0, e.Start)
	now = t0.Add(-time.Second)
	require.NoError(t, m.Seal(e, nil, 0, true))
	assert.Equal(t, t0, e.End)
	_, ok := (&Manifest{}).Latest()
	assert.False(t, ok)
}
