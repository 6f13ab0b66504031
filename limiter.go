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
	"io"

	"golang.org/x/time/rate"
)

// limiter caps the streaming upload and download byte rates.
// Either side may be nil, meaning unlimited.
type limiter struct {
	upstream   *rate.Limiter
	downstream *rate.Limiter
}

func newLimiter(cfg *Config) *limiter {
	l := &limiter{}
	if cfg.UploadLimitKB > 0 {
		bps := rate.Limit(cfg.UploadLimitKB * 1024)
		l.upstream = rate.NewLimiter(bps, cfg.UploadLimitKB*1024)
	}
	if cfg.DownloadLimitKB > 0 {
		bps := rate.Limit(cfg.DownloadLimitKB * 1024)
		l.downstream = rate.NewLimiter(bps, cfg.DownloadLimitKB*1024)
	}
	return l
}

type limitedReader struct {
	r io.Reader
	b *rate.Limiter
}

func (r *limitedReader) Read(p []byte) (int, error) {
	n, err := r.r.Read(p)
	if n > 0 {
		waitErr := r.b.WaitN(context.Background(), n)
		if waitErr != nil && err == nil {
			err = waitErr
		}
	}
	return n, err
}

// upstreamReader wraps an upload body so that reads, and
// therefore bytes on the wire, respect the upload cap.
func (l *limiter) upstreamReader(r io.Reader) io.Reader {
	if l == nil || l.upstream == nil {
		return r
	}
	return &limitedReader{r: r, b: l.upstream}
}

// downstreamReader wraps a response body so reads respect
// the download cap.
func (l *limiter) downstreamReader(r io.Reader) io.Reader {
	if l == nil || l.downstream == nil {
		return r
	}
	return &limitedReader{r: r, b: l.downstream}
}
