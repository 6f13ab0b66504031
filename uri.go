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

	"github.com/pkg/errors"
)

// URI is a parsed s3://bucket/object locator.
type URI struct {
	bucket string
	object string
}

// ParseURI parses an s3://bucket[/object] string.
func ParseURI(s string) (*URI, error) {
	rest, ok := strings.CutPrefix(s, "s3://")
	if !ok {
		return nil, errors.Wrapf(ErrInvalidURI, "%q", s)
	}
	bucket, object, _ := strings.Cut(rest, "/")
	if bucket == "" {
		return nil, errors.Wrapf(ErrInvalidURI, "%q has no bucket", s)
	}
	return &URI{bucket: bucket, object: object}, nil
}

// MustParseURI is ParseURI that panics on malformed input.
// It is intended for tests and compile-time-constant locators.
func MustParseURI(s string) *URI {
	u, err := ParseURI(s)
	if err != nil {
		panic(err)
	}
	return u
}

// Bucket returns the bucket component.
func (u *URI) Bucket() string { return u.bucket }

// Object returns the object key, which may be empty.
func (u *URI) Object() string { return u.object }

// HasObject reports whether the URI names an object
// rather than a bare bucket.
func (u *URI) HasObject() bool { return u.object != "" }

// String reassembles the s3:// form.
func (u *URI) String() string {
	if u.object == "" {
		return "s3://" + u.bucket
	}
	return "s3://" + u.bucket + "/" + u.object
}
