// Copyright 2021 The httpx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package request

import (
	"net/http"
	"net/url"
	"sort"
	"strings"
)

// Fields is an ordered map of string keys to string values. It holds
// request headers and form or query payloads, where the order in which
// the caller added the keys is preserved on the wire.
//
// The zero value is an empty Fields ready to use. A nil *Fields is
// valid for all read-only methods and behaves as an empty Fields.
type Fields struct {
	keys   []string
	values map[string]string
}

// NewFields returns a Fields populated from alternating key and value
// arguments. A trailing key without a value is given the empty value.
func NewFields(kv ...string) *Fields {
	f := &Fields{}
	for i := 0; i < len(kv); i += 2 {
		v := ""
		if i+1 < len(kv) {
			v = kv[i+1]
		}
		f.Set(kv[i], v)
	}
	return f
}

// FieldsFromMap returns a Fields holding the entries of m in sorted key
// order. Go maps have no order, so sorting keeps the encoding stable.
func FieldsFromMap(m map[string]string) *Fields {
	f := &Fields{}
	for _, k := range sortedKeys(m) {
		f.Set(k, m[k])
	}
	return f
}

// FieldsFromValues returns a Fields holding the first value of each
// key in v, in sorted key order.
func FieldsFromValues(v url.Values) *Fields {
	f := &Fields{}
	m := make(map[string]string, len(v))
	for k, vs := range v {
		if len(vs) > 0 {
			m[k] = vs[0]
		} else {
			m[k] = ""
		}
	}
	for _, k := range sortedKeys(m) {
		f.Set(k, m[k])
	}
	return f
}

// Set sets the value for key. A new key is appended at the end; an
// existing key keeps its position.
func (f *Fields) Set(key, value string) {
	if f.values == nil {
		f.values = make(map[string]string)
	}
	if _, ok := f.values[key]; !ok {
		f.keys = append(f.keys, key)
	}
	f.values[key] = value
}

// Get returns the value for key and whether the key is present.
func (f *Fields) Get(key string) (string, bool) {
	if f == nil {
		return "", false
	}
	v, ok := f.values[key]
	return v, ok
}

// Del removes key, if present.
func (f *Fields) Del(key string) {
	if f == nil {
		return
	}
	if _, ok := f.values[key]; !ok {
		return
	}
	delete(f.values, key)
	for i, k := range f.keys {
		if k == key {
			f.keys = append(f.keys[:i:i], f.keys[i+1:]...)
			break
		}
	}
}

// Keys returns a copy of the keys in insertion order.
func (f *Fields) Keys() []string {
	if f == nil {
		return nil
	}
	keys := make([]string, len(f.keys))
	copy(keys, f.keys)
	return keys
}

// Len returns the number of keys.
func (f *Fields) Len() int {
	if f == nil {
		return 0
	}
	return len(f.keys)
}

// Merge copies every entry of g into f. Values in g win over values
// already in f.
func (f *Fields) Merge(g *Fields) {
	if g == nil {
		return
	}
	for _, k := range g.keys {
		f.Set(k, g.values[k])
	}
}

// Clone returns a deep copy of f. Cloning a nil *Fields returns an
// empty, non-nil Fields.
func (f *Fields) Clone() *Fields {
	g := &Fields{}
	g.Merge(f)
	return g
}

// Header converts f to an http.Header with canonical header keys.
func (f *Fields) Header() http.Header {
	h := make(http.Header, f.Len())
	if f == nil {
		return h
	}
	for _, k := range f.keys {
		h.Set(k, f.values[k])
	}
	return h
}

// Encode encodes f in "URL encoded" form ("bar=baz&foo=quux"),
// preserving insertion order.
func (f *Fields) Encode() string {
	if f == nil {
		return ""
	}
	var b strings.Builder
	for _, k := range f.keys {
		if b.Len() > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(k))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(f.values[k]))
	}
	return b.String()
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
