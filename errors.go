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

	"github.com/pkg/errors"
)

// Sentinel errors for argument validation.
var (
	// ErrInvalidURI means the locator is not an s3:// URI.
	ErrInvalidURI = errors.New("invalid S3 URI")
	// ErrInvalidBucket means the bucket name violates the
	// S3 naming rules.
	ErrInvalidBucket = errors.New("invalid bucket name")
	// ErrAmbiguousTarget means both a URI and an explicit
	// bucket/object pair were supplied.
	ErrAmbiguousTarget = errors.New("both 'uri' and 'bucket'/'object' parameters supplied")
)

func badBucket(bucket string) error {
	return errors.Wrapf(ErrInvalidBucket, "%q", bucket)
}

// InvalidFileError means the local path cannot serve as the
// source of an upload.
type InvalidFileError struct {
	Path   string
	Reason string
}

func (e *InvalidFileError) Error() string {
	return fmt.Sprintf("%s: %s", e.Path, e.Reason)
}

// Error is a structured non-2xx server response. Code and
// Message carry the parsed <Code> and <Message> elements of
// the XML error body, when present.
type Error struct {
	Status  int
	Reason  string
	Code    string
	Message string
	// Resource is the request URI the error was returned for.
	Resource string
}

// Human-readable templates for well-known error codes; the
// %s is the bucket or resource the request addressed.
var errorFormats = map[string]string{
	"NoSuchBucket":        "Bucket '%s' does not exist",
	"AccessDenied":        "Access to bucket '%s' was denied",
	"BucketAlreadyExists": "Bucket '%s' already exists",
	"BucketNotEmpty":      "Bucket '%s' is not empty",
}

func (e *Error) Error() string {
	if format, ok := errorFormats[e.Code]; ok {
		name := e.Message
		if name == "" {
			name = e.Resource
		}
		return fmt.Sprintf(format, name)
	}
	if e.Code != "" {
		return fmt.Sprintf("S3 error %d (%s): %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("S3 error %d (%s)", e.Status, e.Reason)
}

// newServerError builds an *Error from a non-2xx response,
// parsing the XML error document when one is present.
func newServerError(resp *Response, resource string) *Error {
	e := &Error{
		Status:   resp.Status,
		Reason:   resp.Reason,
		Resource: resource,
	}
	if len(resp.Data) > 0 {
		e.Code = textFromXML(resp.Data, "Code")
		e.Message = textFromXML(resp.Data, "Message")
	}
	return e
}

// RequestError means the retry budget was exhausted by
// network or transport failures before a response arrived.
type RequestError struct {
	Resource string
	Err      error
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("request failed for: %s: %v", e.Resource, e.Err)
}

func (e *RequestError) Unwrap() error { return e.Err }

// UploadError means the retry budget was exhausted while
// streaming an upload body.
type UploadError struct {
	Resource string
	Err      error
}

func (e *UploadError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("upload failed for: %s: %v", e.Resource, e.Err)
	}
	return fmt.Sprintf("upload failed for: %s", e.Resource)
}

func (e *UploadError) Unwrap() error { return e.Err }

// DownloadError means the retry budget was exhausted while
// streaming a download body.
type DownloadError struct {
	Resource string
	Err      error
}

func (e *DownloadError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("download failed for: %s: %v", e.Resource, e.Err)
	}
	return fmt.Sprintf("download failed for: %s", e.Resource)
}

func (e *DownloadError) Unwrap() error { return e.Err }

// Client errors that are worth one more attempt: transient
// conditions S3 reports with a 4xx status.
var retriableCodes = map[string]bool{
	"BadDigest":            true,
	"OperationAborted":     true,
	"TokenRefreshRequired": true,
	"RequestTimeout":       true,
}
