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
	"fmt"
	"strings"
)

// EncodingMode selects how object keys are percent-encoded
// before they are placed into a request URI.
type EncodingMode string

const (
	// EncodeVerbatim passes the byte string through unchanged.
	EncodeVerbatim EncodingMode = "verbatim"
	// EncodeNormal percent-encodes the characters S3 is known
	// to reject in signed URIs and replaces non-printables.
	EncodeNormal EncodingMode = "normal"
	// EncodeFixBucket behaves like EncodeNormal but
	// percent-encodes non-printable bytes instead of
	// substituting them.
	EncodeFixBucket EncodingMode = "fixbucket"
)

// escaped reports whether byte o must be percent-encoded.
// The set is not in any official document; it is the set that
// S3 has been observed to reject in practice. If InvalidSignature
// errors start appearing, this list is the first suspect.
func escaped(o byte) bool {
	switch o {
	case 0x20, // space
		0x22, // "
		0x23, // #
		0x25, // % (the escape character itself)
		0x26, // &
		0x2B, // + (would decode to a space)
		0x3C, // <
		0x3E, // >
		0x3F, // ?
		0x60: // `
		return true
	}
	return o >= 0x7B // { and above, including all of UTF-8
}

func nonPrintable(o byte) bool {
	return o < 0x20 || o == 0x7F
}

// replaceNonprintables substitutes control bytes with their
// glyph-escape form so they remain visible in logs and listings.
func replaceNonprintables(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		o := s[i]
		if nonPrintable(o) {
			fmt.Fprintf(&b, "^%c", o+64)
			continue
		}
		b.WriteByte(o)
	}
	return b.String()
}

func (c *Client) urlencode(s string) string {
	return c.urlencodeMode(s, c.config.URLEncodingMode)
}

func (c *Client) urlencodeMode(s string, mode EncodingMode) string {
	if mode == EncodeVerbatim {
		return s
	}
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		o := s[i]
		switch {
		case nonPrintable(o):
			if mode == EncodeFixBucket {
				fmt.Fprintf(&b, "%%%02X", o)
				continue
			}
			c.log.Errorf("Non-printable character 0x%02x in: %s", o, replaceNonprintables(s))
			b.WriteString(replaceNonprintables(string(o)))
		case escaped(o):
			fmt.Fprintf(&b, "%%%02X", o)
		default:
			b.WriteByte(o)
		}
	}
	return b.String()
}
