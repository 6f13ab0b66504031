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
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/pkg/errors"
	"github.com/t3rm1n4l/s3cmd/fsutil"
	"golang.org/x/sync/errgroup"
)

// ObjectMultipartGet downloads uri into stream by fetching
// byte ranges in parallel. Each range lands in a temporary
// part file in a sibling "tmps3" directory; once every worker
// finishes, the parts are concatenated into stream in part
// order and the result is verified against the object's
// digest and size.
func (c *Client) ObjectMultipartGet(uri *URI, stream *os.File, extraLabel string) (*Response, error) {
	c.log.Debugf("Executing multipart download")
	objectInfo, err := c.ObjectInfo(uri)
	if err != nil {
		return nil, err
	}
	fileSize, _ := strconv.ParseInt(objectInfo.Headers.Get("content-length"), 10, 64)
	reference := stripETag(objectInfo.Headers.Get("etag"))
	if isCompositeETag(reference) {
		if meta := objectInfo.Headers.Get("x-amz-meta-md5sum"); meta != "" {
			reference = meta
		} else {
			c.log.Warnf("md5sum meta information not found in multipart uploaded file")
		}
	}

	partSize := fileSize / int64(c.config.ParallelMultipartDownloadCount)
	parts := planParts(fileSize, partSize, c.config.ParallelMultipartDownloadCount)

	tmpDir := filepath.Join(filepath.Dir(stream.Name()), "tmps3")
	if err := os.Mkdir(tmpDir, 0755); err != nil {
		return nil, errors.Wrap(err, "creating part directory")
	}
	defer os.RemoveAll(tmpDir)

	partName := func(p Part) string {
		return filepath.Join(tmpDir, fmt.Sprintf("%s.part-%d", filepath.Base(stream.Name()), p.Num))
	}

	queue := make(chan Part, len(parts))
	for _, p := range parts {
		queue <- p
	}
	close(queue)

	var mu sync.Mutex
	partFiles := make(map[int]string)

	timestampStart := timeNow()
	g, ctx := errgroup.WithContext(context.Background())
	for i := 0; i < c.config.ParallelMultipartDownloadThreads; i++ {
		g.Go(func() error {
			for part := range queue {
				if ctx.Err() != nil {
					return nil
				}
				name := partName(part)
				if err := c.downloadPart(uri, part, name, extraLabel); err != nil {
					return errors.Wrapf(err, "failed to download part-%d", part.Num)
				}
				mu.Lock()
				partFiles[part.Num] = name
				mu.Unlock()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	c.log.Debugf("Download of file parts complete")

	sources := make([]string, 0, len(parts))
	for _, p := range parts {
		mu.Lock()
		name := partFiles[p.Num]
		mu.Unlock()
		sources = append(sources, name)
	}
	md5sum, downloadSize, err := fsutil.ConcatFiles(stream, true, sources...)
	if err != nil {
		return nil, errors.Wrap(err, "assembling parts")
	}
	elapsed := timeNow().Sub(timestampStart)
	if err := stream.Sync(); err != nil {
		c.log.Debugf("flush of %s: %v", stream.Name(), err)
	}
	c.log.Debugf("ReceivedFile: computed MD5 = %s", md5sum)

	resp := &Response{
		Status:  objectInfo.Status,
		Reason:  objectInfo.Reason,
		Headers: objectInfo.Headers,
		MD5:     reference,
		Size:    fileSize,
		Elapsed: elapsed,
	}
	resp.MD5Match = reference == md5sum
	if !resp.MD5Match {
		c.log.Warnf("MD5 signatures do not match: computed=%s, received=%s", md5sum, reference)
		c.status.set(ExitMD5Mismatch)
	}
	if resp.Elapsed > 0 {
		resp.Speed = float64(resp.Size) / resp.Elapsed.Seconds()
	}
	if fileSize != downloadSize {
		c.log.Warnf("Reported size (%d) does not match received size (%d)", fileSize, downloadSize)
		c.status.set(ExitSizeMismatch)
	}
	return resp, nil
}

// downloadPart fetches one byte range into its own part file
// through the streaming downloader.
func (c *Client) downloadPart(uri *URI, part Part, name, extraLabel string) error {
	partStream, err := os.OpenFile(name, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return err
	}
	defer partStream.Close()

	req, err := c.createRequest(OpObjectGet, uri, "", "", nil, "")
	if err != nil {
		return err
	}
	labels := Labels{Source: uri.String(), Destination: name, Extra: extraLabel}
	_, err = c.RecvFile(req, partStream, labels, part.Start, c.config.MaxRetries, part.End)
	return err
}
