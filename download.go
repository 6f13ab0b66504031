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
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/t3rm1n4l/s3cmd/fsutil"
)

// isCompositeETag reports whether etag is the <hex>-<N> form
// produced for multipart uploads, which is not an MD5 of the
// whole object.
func isCompositeETag(etag string) bool {
	return len(strings.Split(etag, "-")) == 2
}

// RecvFile streams the body of req into stream. A positive
// startPosition requests "Range: bytes=<start>-"; a
// non-negative endPosition bounds the range. endPosition of -1
// means open-ended. The MD5 of the received bytes is computed
// on the fly only for full-object downloads.
//
// Mid-stream failures are resumed while the budget lasts: a
// bounded range continues from the current position, an
// unbounded download restarts from startPosition.
func (c *Client) RecvFile(req *Request, stream *os.File, labels Labels, startPosition int64, retries int, endPosition int64) (*Response, error) {
	progress := c.newProgress(labels, 0)
	if !c.config.ProgressMeter {
		c.log.Infof("Receiving file '%s', please wait...", stream.Name())
	}
	resource := req.Resource.URI

	retry := func(reason error) bool {
		progress.Done("failed")
		if retries <= 0 {
			return false
		}
		retries--
		wait := failWaitAfter(c.config.MaxRetries, retries)
		c.log.Warnf("Retrying failed request: %s (%v)", resource, reason)
		c.log.Warnf("Waiting %d sec...", int(wait/time.Second))
		c.sleep(wait)
		return true
	}

	initialStart := startPosition
	attemptStart := startPosition
	var resp *Response
	var current int64

	timestampStart := timeNow()
attempts:
	for {
		method, res, headers := req.triplet()
		httpReq, err := c.buildHTTPRequest(method, res, headers, nil, 0)
		if err != nil {
			return nil, err
		}
		// the Range header rides on the wire only; it is not
		// part of the signed header set
		if endPosition != -1 {
			c.log.Debugf("Requesting Range: %d .. %d", attemptStart, endPosition)
			httpReq.Header.Set("Range", fmt.Sprintf("bytes=%d-%d", attemptStart, endPosition))
		} else if attemptStart > 0 {
			c.log.Debugf("Requesting Range: %d .. end", attemptStart)
			httpReq.Header.Set("Range", fmt.Sprintf("bytes=%d-", attemptStart))
		}

		httpResp, err := c.http.Do(httpReq)
		if err != nil {
			if retry(err) {
				continue
			}
			c.status.set(ExitRetriesExceeded)
			return nil, &DownloadError{Resource: resource, Err: err}
		}

		resp = &Response{
			Status:  httpResp.StatusCode,
			Reason:  reasonPhrase(httpResp),
			Headers: headersFromHTTP(httpResp.Header),
		}
		if resp.Status == 307 {
			resp.Data, _ = io.ReadAll(httpResp.Body)
			httpResp.Body.Close()
			c.redirectFrom(resp)
			continue
		}
		if resp.Status < 200 || resp.Status > 299 {
			resp.Data, _ = io.ReadAll(httpResp.Body)
			httpResp.Body.Close()
			return nil, newServerError(resp, resource)
		}

		contentLength, _ := strconv.ParseInt(resp.Headers.Get("content-length"), 10, 64)
		sizeTotal := attemptStart + contentLength
		progress.SetTotal(sizeTotal, attemptStart)

		// a bounded range writes into its own part file,
		// relative to the range start; a whole-object resume
		// writes at the absolute offset
		writeOffset := attemptStart
		if endPosition != -1 {
			writeOffset = attemptStart - initialStart
		}
		if _, err := stream.Seek(writeOffset, io.SeekStart); err != nil {
			httpResp.Body.Close()
			return nil, &DownloadError{Resource: resource, Err: err}
		}
		// MD5 makes sense only over the whole object from
		// the beginning; reset it on every full restart
		computeMD5 := initialStart == 0 && endPosition == -1
		sum := md5.New()

		current = attemptStart
		body := c.limits.downstreamReader(httpResp.Body)
		buf := make([]byte, c.config.RecvChunk)
		for current < sizeTotal {
			want := sizeTotal - current
			if want > int64(len(buf)) {
				want = int64(len(buf))
			}
			n, err := body.Read(buf[:want])
			if n > 0 {
				if _, werr := stream.Write(buf[:n]); werr != nil {
					httpResp.Body.Close()
					return nil, &DownloadError{Resource: resource, Err: werr}
				}
				if computeMD5 {
					sum.Write(buf[:n])
				}
				current += int64(n)
				progress.Update(int64(n))
			}
			if err != nil {
				if err == io.EOF && current >= sizeTotal {
					break
				}
				httpResp.Body.Close()
				if retry(err) {
					if endPosition != -1 {
						attemptStart = current
					} else {
						attemptStart = startPosition
					}
					continue attempts
				}
				c.status.set(ExitRetriesExceeded)
				return nil, &DownloadError{Resource: resource, Err: err}
			}
		}
		httpResp.Body.Close()

		if computeMD5 {
			resp.MD5 = hex.EncodeToString(sum.Sum(nil))
		}
		break
	}
	if err := stream.Sync(); err != nil {
		c.log.Debugf("flush of %s: %v", stream.Name(), err)
	}

	progress.Update(0)
	progress.Done("done")

	if endPosition == -1 {
		if initialStart != 0 {
			// the stream was appended from an offset; the
			// only trustworthy digest is a re-read of the
			// final file
			md5sum, err := fsutil.HashFileMD5(stream.Name())
			if err != nil {
				c.log.Warnf("Unable to verify MD5 of %s: %v. Assume it matches.", stream.Name(), err)
				md5sum = stripETag(resp.Headers.Get("etag"))
			}
			resp.MD5 = md5sum
		}

		reference := stripETag(resp.Headers.Get("etag"))
		if isCompositeETag(reference) {
			if meta := resp.Headers.Get("x-amz-meta-md5sum"); meta != "" {
				reference = meta
			} else {
				c.log.Warnf("md5sum meta information not found in multipart uploaded file")
				c.status.set(ExitMD5MetaNotFound)
			}
		}
		resp.MD5Match = reference == resp.MD5
		c.log.Debugf("ReceiveFile: computed MD5 = %s", resp.MD5)
		if !resp.MD5Match {
			c.log.Warnf("MD5 signatures do not match: computed=%s, received=%s", resp.MD5, reference)
			c.status.set(ExitMD5Mismatch)
		}
	}

	resp.Elapsed = timeNow().Sub(timestampStart)
	resp.Size = current
	if resp.Elapsed > 0 {
		resp.Speed = float64(resp.Size) / resp.Elapsed.Seconds()
	}
	reported, _ := strconv.ParseInt(resp.Headers.Get("content-length"), 10, 64)
	if resp.Size != attemptStart+reported {
		c.log.Warnf("Reported size (%d) does not match received size (%d)", reported, resp.Size)
		c.status.set(ExitSizeMismatch)
	}
	return resp, nil
}
