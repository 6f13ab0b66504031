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
	"time"

	"github.com/t3rm1n4l/s3cmd/aws"
)

// Operation is a bitmask combining a target with an HTTP
// method; it is used to look up the method string during
// request construction.
type Operation int

const (
	methodGET    Operation = 0x01
	methodPUT    Operation = 0x02
	methodHEAD   Operation = 0x04
	methodDELETE Operation = 0x08
	methodPOST   Operation = 0x20
	methodMask   Operation = 0xFF

	targetService Operation = 0x0100
	targetBucket  Operation = 0x0200
	targetObject  Operation = 0x0400
	targetMask    Operation = 0x0700
)

const (
	OpListAllBuckets = targetService | methodGET
	OpBucketCreate   = targetBucket | methodPUT
	OpBucketList     = targetBucket | methodGET
	OpBucketDelete   = targetBucket | methodDELETE
	OpObjectPut      = targetObject | methodPUT
	OpObjectGet      = targetObject | methodGET
	OpObjectHead     = targetObject | methodHEAD
	OpObjectPost     = targetObject | methodPOST
	OpObjectDelete   = targetObject | methodDELETE
)

// Method returns the HTTP method string encoded in the
// operation code.
func (op Operation) Method() string {
	switch op & methodMask {
	case methodGET:
		return "GET"
	case methodPUT:
		return "PUT"
	case methodHEAD:
		return "HEAD"
	case methodDELETE:
		return "DELETE"
	case methodPOST:
		return "POST"
	}
	return ""
}

// Resource addresses a bucket and, optionally, an object
// within it. URI is the canonical object path, already
// percent-encoded, possibly followed by a ?subresource
// suffix such as "?acl" or "?logging".
type Resource struct {
	Bucket string
	URI    string
}

// Param is a single query parameter. A Param with an empty
// Value is rendered bare, without "=".
type Param struct {
	Key   string
	Value string
}

// Query parameters that participate in the signature.
var signedParams = map[string]bool{
	"uploads":    true,
	"partNumber": true,
	"uploadId":   true,
	"acl":        true,
	"location":   true,
	"logging":    true,
	"torrent":    true,
}

// patched by tests that need a fixed timestamp
var timeNow = time.Now

// Request is a signed S3 request. The timestamp and signature
// are refreshed every time the request is materialized for
// sending, so a Request can safely be re-sent on retry.
type Request struct {
	key      *aws.SigningKey
	Method   string
	Resource Resource
	Headers  *Headers
	Params   []Param
}

func newRequest(key *aws.SigningKey, method string, res Resource, headers *Headers, params []Param) *Request {
	if headers == nil {
		headers = NewHeaders()
	}
	r := &Request{
		key:      key,
		Method:   method,
		Resource: res,
		Headers:  headers,
		Params:   params,
	}
	r.refresh()
	return r
}

// refresh stamps a fresh x-amz-date and recomputes the
// signature over the headers and params present right now.
func (r *Request) refresh() {
	r.Headers.Del("date")
	r.Headers.Set("x-amz-date", aws.AmzDate(timeNow()))
	r.sign()
}

// paramString renders all query parameters as
// "?k1=v1&k2&k3=v3", or "" when there are none.
func (r *Request) paramString() string {
	if len(r.Params) == 0 {
		return ""
	}
	parts := make([]string, 0, len(r.Params))
	for _, p := range r.Params {
		if p.Value != "" {
			parts = append(parts, p.Key+"="+p.Value)
		} else {
			parts = append(parts, p.Key)
		}
	}
	return "?" + strings.Join(parts, "&")
}

// canonicalString is the exact byte sequence fed to HMAC-SHA1.
func (r *Request) canonicalString() string {
	var b strings.Builder
	b.WriteString(r.Method)
	b.WriteByte('\n')
	b.WriteString(r.Headers.Get("content-md5"))
	b.WriteByte('\n')
	b.WriteString(r.Headers.Get("content-type"))
	b.WriteByte('\n')
	b.WriteString(r.Headers.Get("date"))
	b.WriteByte('\n')
	for _, name := range r.Headers.Names() {
		if strings.HasPrefix(name, "x-amz-") {
			b.WriteString(name)
			b.WriteByte(':')
			b.WriteString(r.Headers.Get(name))
			b.WriteByte('\n')
		}
	}
	if r.Resource.Bucket != "" {
		b.WriteString("/" + r.Resource.Bucket)
	}
	b.WriteString(r.Resource.URI)

	var sub []string
	for _, p := range r.Params {
		if !signedParams[p.Key] {
			continue
		}
		if p.Value != "" {
			sub = append(sub, p.Key+"="+p.Value)
		} else {
			sub = append(sub, p.Key)
		}
	}
	if len(sub) > 0 {
		b.WriteString("?" + strings.Join(sub, "&"))
	}
	return b.String()
}

func (r *Request) sign() {
	r.Headers.Set("Authorization", r.key.Authorization(r.canonicalString()))
}

// triplet materializes (method, resource, headers) for one
// send attempt: the timestamp is refreshed, the signature
// recomputed, and the query string appended to a copy of the
// resource URI.
func (r *Request) triplet() (string, Resource, *Headers) {
	r.refresh()
	res := r.Resource
	res.URI += r.paramString()
	return r.Method, res, r.Headers
}
