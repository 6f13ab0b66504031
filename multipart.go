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
	"context"
	"encoding/xml"
	"os"
	"sort"
	"strconv"
	"sync"

	"github.com/pkg/errors"
	"github.com/t3rm1n4l/s3cmd/fsutil"
	"golang.org/x/sync/errgroup"
)

// MinPartSize is the smallest part S3 accepts in a multipart
// upload, except for the final part.
const MinPartSize = 5 * 1024 * 1024

// Part is a contiguous byte range of a file or object,
// transferred as a single HTTP exchange within a multipart
// operation. Part numbers are 1-based.
type Part struct {
	Num   int
	Start int64
	End   int64
}

// planParts cuts [0, fileSize) into at most maxParts
// contiguous, non-overlapping ranges of partSize bytes each;
// the last part absorbs the remainder.
func planParts(fileSize, partSize int64, maxParts int) []Part {
	var parts []Part
	for offset := int64(0); offset < fileSize; offset += partSize {
		start := offset
		end := start + partSize - 1
		if end >= fileSize || len(parts)+1 == maxParts {
			end = fileSize - 1
		}
		parts = append(parts, Part{Num: len(parts) + 1, Start: start, End: end})
		if end == fileSize-1 {
			break
		}
	}
	return parts
}

type tagpart struct {
	Num  int    `xml:"PartNumber"`
	ETag string `xml:"ETag"`
}

// completeBody builds the CompleteMultipartUpload XML listing
// parts in ascending part-number order.
func completeBody(results map[int]string) ([]byte, error) {
	parts := make([]tagpart, 0, len(results))
	for num, etag := range results {
		parts = append(parts, tagpart{Num: num, ETag: etag})
	}
	sort.Slice(parts, func(i, j int) bool { return parts[i].Num < parts[j].Num })
	return xml.Marshal(&struct {
		XMLName xml.Name  `xml:"CompleteMultipartUpload"`
		Parts   []tagpart `xml:"Part"`
	}{Parts: parts})
}

// contentType resolves the Content-Type for an upload:
// explicit override, then MIME guess, then the configured
// default.
func (c *Client) contentType(filename string) string {
	ct := c.config.MimeType
	if ct == "" && c.config.GuessMimeType {
		ct = guessMimeType(filename)
	}
	if ct == "" {
		ct = c.config.DefaultMimeType
	}
	c.log.Debugf("Content-Type set to '%s'", ct)
	return ct
}

// abortMultipartUpload cancels the multipart upload identified
// by uploadID and records the abort in the exit status.
func (c *Client) abortMultipartUpload(uri *URI, uploadID string) (*Response, error) {
	req, err := c.createRequest(OpObjectDelete, uri, "", "", nil, "", Param{Key: "uploadId", Value: uploadID})
	if err != nil {
		return nil, err
	}
	resp, err := c.SendRequest(req, nil)
	c.status.set(ExitUploadAbort)
	return resp, err
}

// ObjectMultipartUpload uploads filename to uri as a parallel
// multipart upload. When the file is too small to be cut into
// parts of at least MinPartSize, it degrades to a single-part
// ObjectPut.
func (c *Client) ObjectMultipartUpload(filename string, uri *URI, extraHeaders *Headers, extraLabel string) (*Response, error) {
	fi, err := os.Stat(filename)
	if err != nil || !fi.Mode().IsRegular() {
		return nil, &InvalidFileError{Path: filename, Reason: "not a regular file"}
	}
	fileSize := fi.Size()

	partSize := fileSize / int64(c.config.ParallelMultipartUploadCount)
	c.log.Debugf("File size=%d part size=%d", fileSize, partSize)
	if partSize < MinPartSize {
		c.log.Warnf("File part size is less than minimum required size (5 MB). Disabled parallel multipart upload")
		return c.ObjectPut(filename, uri, extraHeaders, extraLabel)
	}

	c.log.Infof("Calculating md5sum for %s", filename)
	md5sum, err := fsutil.HashFileMD5(filename)
	if err != nil {
		return nil, &InvalidFileError{Path: filename, Reason: err.Error()}
	}

	headers := NewHeaders()
	headers.Update(extraHeaders)
	headers.Set("content-type", c.contentType(filename))
	if c.config.ACLPublic {
		headers.Set("x-amz-acl", "public-read")
	}
	if c.config.ReducedRedundancy {
		headers.Set("x-amz-storage-class", "REDUCED_REDUNDANCY")
	}
	headers.Set("x-amz-meta-md5sum", md5sum)

	initReq, err := c.createRequest(OpObjectPost, uri, "", "", headers, "", Param{Key: "uploads"})
	if err != nil {
		return nil, err
	}
	initResp, err := c.SendRequest(initReq, nil)
	if err != nil {
		return nil, err
	}
	uploadID := textFromXML(initResp.Data, "UploadId")
	c.log.Debugf("Upload ID = %s", uploadID)

	parts := planParts(fileSize, partSize, c.config.ParallelMultipartUploadCount)
	queue := make(chan Part, len(parts))
	for _, p := range parts {
		c.log.Debugf("Part %d start=%d end=%d (part size=%d)", p.Num, p.Start, p.End, partSize)
		queue <- p
	}
	close(queue)

	var mu sync.Mutex
	results := make(map[int]string)

	timestampStart := timeNow()
	g, ctx := errgroup.WithContext(context.Background())
	workers := c.config.ParallelMultipartUploadThreads
	for i := 0; i < workers; i++ {
		g.Go(func() error {
			for part := range queue {
				// another worker failed and the upload
				// is being aborted; stop taking parts and exit
				if ctx.Err() != nil {
					return nil
				}
				etag, err := c.uploadPart(uri, uploadID, filename, part, extraLabel)
				if err != nil {
					c.abortMultipartUpload(uri, uploadID)
					return errors.Wrapf(err, "failed to upload part-%d", part.Num)
				}
				mu.Lock()
				results[part.Num] = etag
				mu.Unlock()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	c.log.Debugf("Upload of file parts complete")

	body, err := completeBody(results)
	if err != nil {
		return nil, err
	}
	completeReq, err := c.createRequest(OpObjectPost, uri, "", "", nil, "", Param{Key: "uploadId", Value: uploadID})
	if err != nil {
		return nil, err
	}
	if _, err := c.SendRequest(completeReq, body); err != nil {
		return nil, err
	}
	elapsed := timeNow().Sub(timestampStart)

	objectInfo, err := c.ObjectInfo(uri)
	if err != nil {
		return nil, err
	}
	uploadSize, _ := strconv.ParseInt(objectInfo.Headers.Get("content-length"), 10, 64)

	resp := &Response{
		Status:  objectInfo.Status,
		Reason:  objectInfo.Reason,
		Headers: objectInfo.Headers,
		MD5:     md5sum,
		Size:    fileSize,
		Elapsed: elapsed,
	}
	if resp.Elapsed > 0 {
		resp.Speed = float64(resp.Size) / resp.Elapsed.Seconds()
	}
	if fileSize != uploadSize {
		c.log.Warnf("Reported size (%d) does not match received size (%d)", uploadSize, fileSize)
		c.abortMultipartUpload(uri, uploadID)
	}
	return resp, nil
}

// uploadPart sends one part of a multipart upload through the
// streaming uploader, using its own file handle so workers do
// not contend on a shared seek offset.
func (c *Client) uploadPart(uri *URI, uploadID, filename string, part Part, extraLabel string) (string, error) {
	file, err := os.Open(filename)
	if err != nil {
		return "", &InvalidFileError{Path: filename, Reason: err.Error()}
	}
	defer file.Close()

	headers := NewHeaders()
	headers.Set("content-length", strconv.FormatInt(part.End-part.Start+1, 10))
	headers.Set("Expect", "100-continue")

	req, err := c.createRequest(OpObjectPut, uri, "", "", headers, "",
		Param{Key: "partNumber", Value: strconv.Itoa(part.Num)},
		Param{Key: "uploadId", Value: uploadID})
	if err != nil {
		return "", err
	}
	labels := Labels{Source: filename, Destination: uri.String(), Extra: extraLabel}
	resp, err := c.SendFile(req, file, labels, 0, c.config.MaxRetries, &part)
	if err != nil {
		return "", err
	}
	return stripETag(resp.Headers.Get("etag")), nil
}
