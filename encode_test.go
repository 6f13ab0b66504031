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
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestURLEncode_Normal(t *testing.T) {
	c, _, _ := newTestClient("s3.amazonaws.com")
	tests := []struct {
		input    string
		expected string
	}{
		{"simple", "simple"},
		{"with space", "with%20space"},
		{"with+plus", "with%2Bplus"},
		{"quote\"hash#", "quote%22hash%23"},
		{"pct%amp&", "pct%25amp%26"},
		{"lt<gt>q?", "lt%3Cgt%3Eq%3F"},
		{"tick`brace{", "tick%60brace%7B"},
		{"path/is/kept", "path/is/kept"},
		{"čúrák", "%C4%8D%C3%BAr%C3%A1k"},
	}
	for _, test := range tests {
		t.Run(test.input, func(t *testing.T) {
			assert.Equal(t, test.expected, c.urlencodeMode(test.input, EncodeNormal))
		})
	}
}

func TestURLEncode_Verbatim(t *testing.T) {
	c, _, _ := newTestClient("s3.amazonaws.com")
	assert.Equal(t, "left alone?&#", c.urlencodeMode("left alone?&#", EncodeVerbatim))
}

func TestURLEncode_FixBucket(t *testing.T) {
	c, _, _ := newTestClient("s3.amazonaws.com")
	// non-printables become %XX instead of glyph escapes
	assert.Equal(t, "a%01b", c.urlencodeMode("a\x01b", EncodeFixBucket))
	assert.Equal(t, "a^Ab", c.urlencodeMode("a\x01b", EncodeNormal))
}

func TestURLEncode_IdempotentOnUnreserved(t *testing.T) {
	c, _, _ := newTestClient("s3.amazonaws.com")
	in := "unreserved-._/AZaz09"
	once := c.urlencodeMode(in, EncodeNormal)
	assert.Equal(t, in, once)
	assert.Equal(t, once, c.urlencodeMode(once, EncodeNormal))
}
