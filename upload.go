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
	"hash"
	"io"
	"os"
	"strconv"
	"strings"
	"time"
)

// chunkReader feeds an upload body to the transport one chunk
// at a time, maintaining a running MD5 of everything read and
// reporting progress. An optional per-chunk throttle slows the
// transfer down.
type chunkReader struct {
	src      io.Reader
	hash     hash.Hash
	chunk    int
	throttle time.Duration
	progress Progress
	sleep    func(time.Duration)
}

func (r *chunkReader) Read(p []byte) (int, error) {
	if len(p) > r.chunk {
		p = p[:r.chunk]
	}
	n, err := r.src.Read(p)
	if n > 0 {
		r.hash.Write(p[:n])
		r.progress.Update(int64(n))
		if r.throttle > 0 {
			r.sleep(r.throttle)
		}
	}
	return n, err
}

// stripETag removes the quoting S3 wraps around ETag values.
func stripETag(etag string) string {
	return strings.Trim(etag, `"'`)
}

// SendFile streams the contents of file as the body of req.
// The byte count to send must already be present in the
// request's content-length header. When part is non-nil the
// stream is positioned at the part's start offset and only the
// part's bytes are sent.
//
// The on-the-fly MD5 of the transmitted bytes is compared to
// the returned ETag; a mismatch re-sends the file while the
// retry budget lasts. Transient failures escalate throttle so
// later attempts run at a lower speed.
func (c *Client) SendFile(req *Request, file *os.File, labels Labels, throttle time.Duration, retries int, part *Part) (*Response, error) {
	sizeTotal, _ := strconv.ParseInt(req.Headers.Get("content-length"), 10, 64)
	progress := c.newProgress(labels, sizeTotal)
	if !c.config.ProgressMeter {
		if part != nil {
			c.log.Infof("Sending file '%s' part-%d, please wait...", file.Name(), part.Num)
		} else {
			c.log.Infof("Sending file '%s', please wait...", file.Name())
		}
	}
	resource := req.Resource.URI

	// retry consumes budget and, from the second retry on,
	// stretches the throttle
	retry := func(reason error) bool {
		progress.Done("failed")
		if retries <= 0 {
			return false
		}
		if retries < c.config.MaxRetries {
			if throttle > 0 {
				throttle *= 5
			} else {
				throttle = 10 * time.Millisecond
			}
		}
		retries--
		wait := failWaitAfter(c.config.MaxRetries, retries)
		c.log.Warnf("Upload failed: %s (%v)", resource, reason)
		c.log.Warnf("Retrying on lower speed (throttle=%v)", throttle)
		c.log.Warnf("Waiting %d sec...", int(wait/time.Second))
		c.sleep(wait)
		return true
	}

	timestampStart := timeNow()
	for {
		start := int64(0)
		if part != nil {
			start = part.Start
		}
		if _, err := file.Seek(start, io.SeekStart); err != nil {
			return nil, &UploadError{Resource: resource, Err: err}
		}
		sum := md5.New()
		body := &chunkReader{
			src:      c.limits.upstreamReader(io.LimitReader(file, sizeTotal)),
			hash:     sum,
			chunk:    c.config.SendChunk,
			throttle: throttle,
			progress: progress,
			sleep:    c.sleep,
		}

		method, res, headers := req.triplet()
		httpReq, err := c.buildHTTPRequest(method, res, headers, body, sizeTotal)
		if err != nil {
			return nil, err
		}
		httpResp, err := c.http.Do(httpReq)
		if err != nil {
			if retry(err) {
				continue
			}
			c.status.set(ExitRetriesExceeded)
			return nil, &UploadError{Resource: resource, Err: err}
		}
		data, err := io.ReadAll(httpResp.Body)
		httpResp.Body.Close()
		if err != nil {
			if retry(err) {
				continue
			}
			c.status.set(ExitRetriesExceeded)
			return nil, &UploadError{Resource: resource, Err: err}
		}
		resp := &Response{
			Status:  httpResp.StatusCode,
			Reason:  reasonPhrase(httpResp),
			Headers: headersFromHTTP(httpResp.Header),
			Data:    data,
			Size:    sizeTotal,
		}

		// a permanent redirect re-sends against the new
		// endpoint without consuming the budget
		if resp.Status == 307 {
			c.redirectFrom(resp)
			continue
		}

		if resp.Status < 200 || resp.Status > 299 {
			serverErr := newServerError(resp, resource)
			if resp.Status >= 500 || retriableCodes[serverErr.Code] {
				if retry(serverErr) {
					continue
				}
				c.log.Warnf("Too many failures. Giving up on '%s'", file.Name())
				c.status.set(ExitRetriesExceeded)
				return nil, &UploadError{Resource: resource, Err: serverErr}
			}
			return nil, serverErr
		}

		// S3 occasionally omits the ETag; treat that as a
		// failed integrity check and force a re-upload
		etag := stripETag(resp.Headers.Get("etag"))
		computed := hex.EncodeToString(sum.Sum(nil))
		c.log.Debugf("MD5 sums: computed=%s, received=%s", computed, etag)
		if etag != computed {
			c.log.Warnf("MD5 sums don't match!")
			c.status.set(ExitMD5Mismatch)
			if retries > 0 {
				retries--
				c.log.Warnf("Retrying upload of %s", file.Name())
				continue
			}
			c.log.Warnf("Too many failures. Giving up on '%s'", file.Name())
			c.status.set(ExitRetriesExceeded)
			return nil, &UploadError{Resource: resource}
		}

		resp.Elapsed = timeNow().Sub(timestampStart)
		if resp.Elapsed > 0 {
			resp.Speed = float64(resp.Size) / resp.Elapsed.Seconds()
		}
		progress.Update(0)
		progress.Done("done")
		return resp, nil
	}
}
