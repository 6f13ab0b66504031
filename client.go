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
	"mime"
	"net/http"
	"os"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/t3rm1n4l/s3cmd/aws"
)

// Client is the S3 engine: it builds signed requests for
// high-level operations and dispatches them with retry,
// redirect caching, throttling and integrity verification.
// A Client is safe for concurrent use.
type Client struct {
	config *Config
	key    *aws.SigningKey
	http   *http.Client
	log    *logrus.Logger
	redir  redirMap
	status statusRecord
	limits *limiter

	// injected for tests
	sleep func(time.Duration)
	timer backoff.Timer
}

// New creates a Client for the given configuration.
func New(cfg *Config) *Client {
	return &Client{
		config: cfg,
		key:    aws.DeriveKey(cfg.AccessKey, cfg.SecretKey),
		http:   newHTTPClient(cfg),
		log:    logrus.StandardLogger(),
		limits: newLimiter(cfg),
		sleep:  time.Sleep,
	}
}

// SetLogger replaces the engine's logger.
func (c *Client) SetLogger(log *logrus.Logger) { c.log = log }

// guessMimeType maps the filename extension to a MIME type,
// or "" when the extension is unknown.
func guessMimeType(filename string) string {
	ct := mime.TypeByExtension(path.Ext(filename))
	// strip the charset parameter added by the stdlib table
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = ct[:i]
	}
	return ct
}

// createRequest converts an operation plus addressing
// information into a signed Request. At most one of uri or the
// explicit bucket/object pair may be supplied. extra is an
// optional sub-resource suffix such as "?acl".
func (c *Client) createRequest(op Operation, uri *URI, bucket, object string, headers *Headers, extra string, params ...Param) (*Request, error) {
	res := Resource{URI: "/"}

	if uri != nil && (bucket != "" || object != "") {
		return nil, ErrAmbiguousTarget
	}
	if uri != nil {
		bucket = uri.Bucket()
		object = uri.Object()
	}
	if bucket != "" {
		res.Bucket = bucket
		if object != "" {
			res.URI = "/" + c.urlencode(object)
		}
	}
	if extra != "" {
		res.URI += extra
	}

	req := newRequest(c.key, op.Method(), res, headers, params)
	c.log.Debugf("CreateRequest: resource.uri=%s", res.URI)
	return req, nil
}

// BucketEntry is one bucket in a service listing.
type BucketEntry struct {
	Name         string
	CreationDate string
}

// ListAllBuckets returns all buckets owned by the credentials.
func (c *Client) ListAllBuckets() ([]BucketEntry, error) {
	req, err := c.createRequest(OpListAllBuckets, nil, "", "", nil, "")
	if err != nil {
		return nil, err
	}
	resp, err := c.SendRequest(req, nil)
	if err != nil {
		return nil, err
	}
	var out []BucketEntry
	for _, item := range listFromXML(resp.Data, "Bucket") {
		out = append(out, BucketEntry{
			Name:         item["Name"],
			CreationDate: item["CreationDate"],
		})
	}
	return out, nil
}

// ObjectEntry is one object in a bucket listing.
type ObjectEntry struct {
	Key          string
	LastModified string
	ETag         string
	Size         string
}

// ListResult is a fully-drained bucket listing.
type ListResult struct {
	Contents       []ObjectEntry
	CommonPrefixes []string
}

// BucketList lists the contents of bucket under prefix,
// following truncation markers until the listing is complete.
// Unless recursive (or the configured default) is set, a "/"
// delimiter groups keys into common prefixes.
func (c *Client) BucketList(bucket, prefix string, recursive bool) (*ListResult, error) {
	out := &ListResult{}
	var marker string
	for {
		resp, err := c.bucketListOnce(bucket, prefix, recursive, marker)
		if err != nil {
			return nil, err
		}
		contents := listFromXML(resp.Data, "Contents")
		prefixes := listFromXML(resp.Data, "CommonPrefixes")
		for _, item := range contents {
			out.Contents = append(out.Contents, ObjectEntry{
				Key:          item["Key"],
				LastModified: item["LastModified"],
				ETag:         item["ETag"],
				Size:         item["Size"],
			})
		}
		for _, item := range prefixes {
			out.CommonPrefixes = append(out.CommonPrefixes, item["Prefix"])
		}
		truncated := strings.EqualFold(textFromXML(resp.Data, "IsTruncated"), "true")
		if !truncated {
			return out, nil
		}
		switch {
		case len(contents) > 0:
			marker = c.urlencode(contents[len(contents)-1]["Key"])
		case len(prefixes) > 0:
			marker = c.urlencode(prefixes[len(prefixes)-1]["Prefix"])
		default:
			return out, nil
		}
		c.log.Debugf("Listing continues after '%s'", marker)
	}
}

func (c *Client) bucketListOnce(bucket, prefix string, recursive bool, marker string) (*Response, error) {
	var params []Param
	if prefix != "" {
		params = append(params, Param{Key: "prefix", Value: c.urlencode(prefix)})
	}
	if !c.config.Recursive && !recursive {
		params = append(params, Param{Key: "delimiter", Value: "/"})
	}
	if marker != "" {
		params = append(params, Param{Key: "marker", Value: marker})
	}
	req, err := c.createRequest(OpBucketList, nil, bucket, "", nil, "", params...)
	if err != nil {
		return nil, err
	}
	return c.SendRequest(req, nil)
}

// BucketCreate creates bucket, optionally in a specific
// location ("EU", "eu-west-1", ...).
func (c *Client) BucketCreate(bucket, location string) (*Response, error) {
	headers := NewHeaders()
	var body []byte
	location = strings.TrimSpace(location)
	if location != "" && !strings.EqualFold(location, "US") {
		if strings.EqualFold(location, "EU") {
			location = strings.ToUpper(location)
		} else {
			location = strings.ToLower(location)
		}
		body = []byte("<CreateBucketConfiguration><LocationConstraint>" +
			location + "</LocationConstraint></CreateBucketConfiguration>")
		if err := CheckBucketName(bucket, true); err != nil {
			return nil, err
		}
	} else if err := CheckBucketName(bucket, false); err != nil {
		return nil, err
	}
	if c.config.ACLPublic {
		headers.Set("x-amz-acl", "public-read")
	}
	req, err := c.createRequest(OpBucketCreate, nil, bucket, "", headers, "")
	if err != nil {
		return nil, err
	}
	return c.SendRequest(req, body)
}

// BucketDelete removes an empty bucket.
func (c *Client) BucketDelete(bucket string) (*Response, error) {
	req, err := c.createRequest(OpBucketDelete, nil, bucket, "", nil, "")
	if err != nil {
		return nil, err
	}
	return c.SendRequest(req, nil)
}

// BucketLocation returns the region the bucket lives in.
func (c *Client) BucketLocation(uri *URI) (string, error) {
	req, err := c.createRequest(OpBucketList, nil, uri.Bucket(), "", nil, "?location")
	if err != nil {
		return "", err
	}
	resp, err := c.SendRequest(req, nil)
	if err != nil {
		return "", err
	}
	location := textFromXML(resp.Data, "LocationConstraint")
	switch location {
	case "", "US":
		location = "us-east-1"
	case "EU":
		location = "eu-west-1"
	}
	return location, nil
}

// BucketInfo reports metadata about a bucket. For now this is
// only its location.
func (c *Client) BucketInfo(uri *URI) (map[string]string, error) {
	location, err := c.BucketLocation(uri)
	if err != nil {
		return nil, err
	}
	return map[string]string{"bucket-location": location}, nil
}

// WebsiteConfig describes a bucket's static-website state.
type WebsiteConfig struct {
	IndexDocument string
	ErrorDocument string
	Endpoint      string
}

// websiteEndpoint expands the configured endpoint template.
func (c *Client) websiteEndpoint(bucket, location string) string {
	out := strings.ReplaceAll(c.config.WebsiteEndpoint, "%(bucket)s", bucket)
	return strings.ReplaceAll(out, "%(location)s", location)
}

// WebsiteInfo returns the website configuration of a bucket,
// or nil when the bucket has none.
func (c *Client) WebsiteInfo(uri *URI) (*WebsiteConfig, error) {
	req, err := c.createRequest(OpBucketList, nil, uri.Bucket(), "", nil, "?website")
	if err != nil {
		return nil, err
	}
	resp, err := c.SendRequest(req, nil)
	if err != nil {
		var serverErr *Error
		if errors.As(err, &serverErr) && serverErr.Status == 404 {
			c.log.Debugf("Could not get /?website - website probably not configured for this bucket")
			return nil, nil
		}
		return nil, err
	}
	location, err := c.BucketLocation(uri)
	if err != nil {
		return nil, err
	}
	return &WebsiteConfig{
		IndexDocument: textFromXML(resp.Data, "Suffix"),
		ErrorDocument: textFromXML(resp.Data, "Key"),
		Endpoint:      c.websiteEndpoint(uri.Bucket(), location),
	}, nil
}

// WebsiteCreate enables static-website serving for a bucket
// using the configured index and error documents.
func (c *Client) WebsiteCreate(uri *URI) (*Response, error) {
	var body strings.Builder
	body.WriteString(`<WebsiteConfiguration xmlns="http://s3.amazonaws.com/doc/2006-03-01/">`)
	body.WriteString("<IndexDocument><Suffix>" + c.config.WebsiteIndex + "</Suffix></IndexDocument>")
	if c.config.WebsiteError != "" {
		body.WriteString("<ErrorDocument><Key>" + c.config.WebsiteError + "</Key></ErrorDocument>")
	}
	body.WriteString("</WebsiteConfiguration>")

	req, err := c.createRequest(OpBucketCreate, nil, uri.Bucket(), "", nil, "?website")
	if err != nil {
		return nil, err
	}
	return c.SendRequest(req, []byte(body.String()))
}

// WebsiteDelete disables static-website serving for a bucket.
func (c *Client) WebsiteDelete(uri *URI) (*Response, error) {
	req, err := c.createRequest(OpBucketDelete, nil, uri.Bucket(), "", nil, "?website")
	if err != nil {
		return nil, err
	}
	resp, err := c.SendRequest(req, nil)
	if err != nil {
		return nil, err
	}
	if resp.Status != 204 {
		return nil, errors.Errorf("expected status 204, got %d", resp.Status)
	}
	return resp, nil
}

// ObjectPut uploads filename to uri as a single-part upload.
func (c *Client) ObjectPut(filename string, uri *URI, extraHeaders *Headers, extraLabel string) (*Response, error) {
	fi, err := os.Stat(filename)
	if err != nil || !fi.Mode().IsRegular() {
		return nil, &InvalidFileError{Path: filename, Reason: "not a regular file"}
	}
	file, err := os.Open(filename)
	if err != nil {
		return nil, &InvalidFileError{Path: filename, Reason: err.Error()}
	}
	defer file.Close()

	headers := NewHeaders()
	headers.Update(extraHeaders)
	headers.Set("content-length", strconv.FormatInt(fi.Size(), 10))
	headers.Set("content-type", c.contentType(filename))
	if c.config.ACLPublic {
		headers.Set("x-amz-acl", "public-read")
	}
	if c.config.ReducedRedundancy {
		headers.Set("x-amz-storage-class", "REDUCED_REDUNDANCY")
	}
	req, err := c.createRequest(OpObjectPut, uri, "", "", headers, "")
	if err != nil {
		return nil, err
	}
	labels := Labels{Source: filename, Destination: uri.String(), Extra: extraLabel}
	return c.SendFile(req, file, labels, 0, c.config.MaxRetries, nil)
}

// ObjectGet downloads uri into stream, optionally resuming
// from startPosition.
func (c *Client) ObjectGet(uri *URI, stream *os.File, startPosition int64, extraLabel string) (*Response, error) {
	req, err := c.createRequest(OpObjectGet, uri, "", "", nil, "")
	if err != nil {
		return nil, err
	}
	labels := Labels{Source: uri.String(), Destination: stream.Name(), Extra: extraLabel}
	return c.RecvFile(req, stream, labels, startPosition, c.config.MaxRetries, -1)
}

// ObjectDelete removes the object at uri.
func (c *Client) ObjectDelete(uri *URI) (*Response, error) {
	req, err := c.createRequest(OpObjectDelete, uri, "", "", nil, "")
	if err != nil {
		return nil, err
	}
	return c.SendRequest(req, nil)
}

// ObjectCopy performs a server-side copy of src to dst.
func (c *Client) ObjectCopy(src, dst *URI) (*Response, error) {
	headers := NewHeaders()
	headers.Set("x-amz-copy-source", "/"+src.Bucket()+"/"+c.urlencode(src.Object()))
	headers.Set("x-amz-metadata-directive", "COPY")
	if c.config.ACLPublic {
		headers.Set("x-amz-acl", "public-read")
	}
	if c.config.ReducedRedundancy {
		headers.Set("x-amz-storage-class", "REDUCED_REDUNDANCY")
	}
	req, err := c.createRequest(OpObjectPut, dst, "", "", headers, "")
	if err != nil {
		return nil, err
	}
	return c.SendRequest(req, nil)
}

// ObjectMove copies src to dst and, when the copy succeeded,
// deletes the source.
func (c *Client) ObjectMove(src, dst *URI) (*Response, error) {
	resp, err := c.ObjectCopy(src, dst)
	if err != nil {
		return nil, err
	}
	c.log.Debugf("Object %s copied to %s", src, dst)
	if rootTagName(resp.Data) == "CopyObjectResult" {
		if _, err := c.ObjectDelete(src); err != nil {
			return nil, err
		}
		c.log.Debugf("Object %s deleted", src)
	}
	return resp, nil
}

// ObjectInfo issues a HEAD for the object at uri.
func (c *Client) ObjectInfo(uri *URI) (*Response, error) {
	req, err := c.createRequest(OpObjectHead, uri, "", "", nil, "")
	if err != nil {
		return nil, err
	}
	return c.SendRequest(req, nil)
}
