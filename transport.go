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
	"bytes"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	pkgerrors "github.com/pkg/errors"
)

// Response is the parsed result of one S3 exchange.
type Response struct {
	Status  int
	Reason  string
	Headers *Headers
	Data    []byte

	// Transfer statistics, populated by the streaming paths.
	Size    int64
	Elapsed time.Duration
	Speed   float64

	// Integrity results, populated by the streaming paths.
	MD5      string
	MD5Match bool
}

// newHTTPClient builds the pooled HTTP client used for all
// exchanges. Connections go through the configured proxy when
// one is set; the proxy sees the absolute request URL.
func newHTTPClient(cfg *Config) *http.Client {
	transport := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout: 30 * time.Second,
		}).DialContext,
		ResponseHeaderTimeout: 60 * time.Second,
		ExpectContinueTimeout: time.Second,
		MaxIdleConnsPerHost:   5,
		DisableCompression:    true,
	}
	if cfg.ProxyHost != "" {
		proxy := &url.URL{
			Scheme: "http",
			Host:   fmt.Sprintf("%s:%d", cfg.ProxyHost, cfg.ProxyPort),
		}
		transport.Proxy = http.ProxyURL(proxy)
	}
	return &http.Client{
		Transport: transport,
		// redirects are handled by the engine so the
		// permanent-redirect cache sees them
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

func (c *Client) scheme() string {
	if c.config.UseHTTPS {
		return "https"
	}
	return "http"
}

// failWaitUnit is the base spacing of the retry schedule.
const failWaitUnit = 3 * time.Second

// failWaitAfter returns how long to wait before the next
// attempt when retries attempts remain out of max. The more a
// request fails, the longer we wait.
func failWaitAfter(max, retries int) time.Duration {
	return time.Duration(max-retries+1) * failWaitUnit
}

// failWait is the linear retry schedule as a backoff policy:
// with max=5 it yields 6s, 9s, 12s, 15s, 18s, then stops.
type failWait struct {
	max     int
	retries int
}

func newFailWait(max int) *failWait {
	return &failWait{max: max, retries: max}
}

func (b *failWait) Reset() { b.retries = b.max }

func (b *failWait) NextBackOff() time.Duration {
	if b.retries <= 0 {
		return backoff.Stop
	}
	b.retries--
	return failWaitAfter(b.max, b.retries)
}

// buildHTTPRequest materializes a triplet into a net/http
// request. The content-length pseudo-header and Host are
// handled by the transport; everything else is copied under
// its lowercase name, which net/http rewrites into canonical
// MIME form.
func (c *Client) buildHTTPRequest(method string, res Resource, headers *Headers, body io.Reader, size int64) (*http.Request, error) {
	rawurl := c.scheme() + "://" + c.hostname(res.Bucket) + c.formatURI(res)
	u, err := url.Parse(rawurl)
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "building request URL %q", rawurl)
	}
	req, err := http.NewRequest(method, u.String(), body)
	if err != nil {
		return nil, err
	}
	req.ContentLength = size
	for _, name := range headers.Names() {
		if name == "content-length" || name == "host" {
			continue
		}
		req.Header.Set(name, headers.Get(name))
	}
	return req, nil
}

// sendOnce performs exactly one HTTP exchange and reads the
// entire response body.
func (c *Client) sendOnce(req *Request, body []byte) (*Response, error) {
	method, res, headers := req.triplet()
	if !headers.Has("content-length") {
		headers.Set("content-length", strconv.Itoa(len(body)))
	}
	size, _ := strconv.ParseInt(headers.Get("content-length"), 10, 64)

	var rd io.Reader
	if len(body) > 0 {
		rd = bytes.NewReader(body)
	}
	httpReq, err := c.buildHTTPRequest(method, res, headers, rd, size)
	if err != nil {
		return nil, err
	}
	c.log.Debugf("Sending request: %s %s headers=%v", method, httpReq.URL, headers.Names())

	httpResp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer httpResp.Body.Close()
	data, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, err
	}
	resp := &Response{
		Status:  httpResp.StatusCode,
		Reason:  reasonPhrase(httpResp),
		Headers: headersFromHTTP(httpResp.Header),
		Data:    data,
	}
	c.log.Debugf("Response: %d %s", resp.Status, resp.Reason)
	return resp, nil
}

func reasonPhrase(resp *http.Response) string {
	return strings.TrimSpace(strings.TrimPrefix(resp.Status, strconv.Itoa(resp.StatusCode)))
}

// redirectFrom reads the <Bucket> and <Endpoint> elements of a
// 307 response and updates the redirect cache.
func (c *Client) redirectFrom(resp *Response) {
	bucket := textFromXML(resp.Data, "Bucket")
	endpoint := textFromXML(resp.Data, "Endpoint")
	c.setHostname(bucket, endpoint)
	c.log.Warnf("Redirected to: %s", endpoint)
}

// SendRequest issues req with the full retry policy: permanent
// redirects are followed without consuming the budget, 5xx
// responses and network failures are retried on the linear
// backoff schedule, and any other non-2xx response fails
// immediately with a structured error.
func (c *Client) SendRequest(req *Request, body []byte) (*Response, error) {
	var resp *Response
	operation := func() error {
		r, err := c.sendOnce(req, body)
		if err != nil {
			return err
		}
		// A permanent redirect re-sends the same logical
		// request against the new endpoint; it does not
		// count against the retry budget.
		for r.Status == 307 {
			c.redirectFrom(r)
			r, err = c.sendOnce(req, body)
			if err != nil {
				return err
			}
		}
		resp = r
		if r.Status >= 500 {
			return newServerError(r, req.Resource.URI)
		}
		if r.Status < 200 || r.Status > 299 {
			return backoff.Permanent(newServerError(r, req.Resource.URI))
		}
		return nil
	}

	notify := func(err error, wait time.Duration) {
		c.log.Warnf("Retrying failed request: %s (%v)", req.Resource.URI, err)
		c.log.Warnf("Waiting %d sec...", int(wait/time.Second))
	}
	err := backoff.RetryNotifyWithTimer(operation, newFailWait(c.config.MaxRetries), notify, c.timer)
	if err != nil {
		var serverErr *Error
		if pkgerrors.As(err, &serverErr) {
			return nil, serverErr
		}
		return nil, &RequestError{Resource: req.Resource.URI, Err: err}
	}
	return resp, nil
}
