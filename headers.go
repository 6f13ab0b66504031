// Copyright 2023 Sneller, Inc.
// Copyright 2025 Roman Atachiants
//
//  Licensed under the Apache License, Version 2.0 (the "License");
//  you may not use this file except in compliance with the License.
//  You may obtain a copy of the License at
//
//    http://www.apache.org/licenses/LICENSE-2.0
//
//  Unless required by applicable law or agreed to in writing, software
//  distributed under the License is distributed on an "AS IS" BASIS,
//  WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
//  See the License for the specific language governing permissions and
//  limitations under the License.

package s3

import (
	"strings"
)

// Headers is a case-insensitive header map that remembers
// the order in which names were first written. The signer
// iterates headers in exactly this order, so two requests
// built the same way always produce the same canonical string.
type Headers struct {
	order   []string
	entries map[string]headerEntry
}

type headerEntry struct {
	name  string // original spelling of the name
	value string
}

// NewHeaders returns an empty header map.
func NewHeaders() *Headers {
	return &Headers{entries: make(map[string]headerEntry)}
}

func canonicalName(name string) string {
	return strings.ToLower(name)
}

// Set stores value under name. The position of a name in the
// iteration order is fixed by its first write; overwriting a
// value does not move it.
func (h *Headers) Set(name, value string) {
	key := canonicalName(name)
	if _, ok := h.entries[key]; !ok {
		h.order = append(h.order, key)
	}
	h.entries[key] = headerEntry{name: name, value: value}
}

// Get returns the value stored under name, or "" if absent.
func (h *Headers) Get(name string) string {
	return h.entries[canonicalName(name)].value
}

// Has reports whether name is present.
func (h *Headers) Has(name string) bool {
	_, ok := h.entries[canonicalName(name)]
	return ok
}

// Del removes name from the map and from the iteration order.
func (h *Headers) Del(name string) {
	key := canonicalName(name)
	if _, ok := h.entries[key]; !ok {
		return
	}
	delete(h.entries, key)
	for i := range h.order {
		if h.order[i] == key {
			h.order = append(h.order[:i], h.order[i+1:]...)
			break
		}
	}
}

// Len returns the number of stored headers.
func (h *Headers) Len() int { return len(h.order) }

// Names returns the canonical (lowercase) names in insertion order.
func (h *Headers) Names() []string {
	out := make([]string, len(h.order))
	copy(out, h.order)
	return out
}

// Clone returns a deep copy of h.
func (h *Headers) Clone() *Headers {
	out := &Headers{
		order:   make([]string, len(h.order)),
		entries: make(map[string]headerEntry, len(h.entries)),
	}
	copy(out.order, h.order)
	for k, v := range h.entries {
		out.entries[k] = v
	}
	return out
}

// Update copies every header from src into h, preserving
// h's existing ordering for names already present.
func (h *Headers) Update(src *Headers) {
	if src == nil {
		return
	}
	for _, key := range src.order {
		e := src.entries[key]
		h.Set(e.name, e.value)
	}
}

// headersFromHTTP converts a net/http response header block,
// lowercasing names the way the rest of the engine expects.
func headersFromHTTP(src map[string][]string) *Headers {
	out := NewHeaders()
	for name, values := range src {
		if len(values) > 0 {
			out.Set(name, values[0])
		}
	}
	return out
}
