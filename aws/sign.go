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

// Package aws implements AWS request signing.
//
// The S3 REST dialect spoken by this module uses the
// signature version 2 scheme: an HMAC-SHA1 over a canonical
// representation of the request, carried in the Authorization
// header as "AWS <access-key>:<base64 signature>".
package aws

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"time"
)

// SigningKey is a static access-key/secret-key pair.
type SigningKey struct {
	AccessKey string
	SecretKey string
}

// DeriveKey constructs a SigningKey from a static credential pair.
func DeriveKey(accessKey, secretKey string) *SigningKey {
	return &SigningKey{AccessKey: accessKey, SecretKey: secretKey}
}

// SignV2 computes the base64-encoded HMAC-SHA1 signature
// of the canonical request string.
func (k *SigningKey) SignV2(canonical string) string {
	mac := hmac.New(sha1.New, []byte(k.SecretKey))
	mac.Write([]byte(canonical))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// Authorization returns the full Authorization header value
// for the canonical request string.
func (k *SigningKey) Authorization(canonical string) string {
	return "AWS " + k.AccessKey + ":" + k.SignV2(canonical)
}

// amzTimeFormat is RFC-1123 with a numeric GMT zone, which is
// what S3 expects in the x-amz-date header.
const amzTimeFormat = "Mon, 02 Jan 2006 15:04:05 +0000"

// AmzDate formats t for the x-amz-date header.
func AmzDate(t time.Time) string {
	return t.UTC().Format(amzTimeFormat)
}
