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
	"crypto/md5"
	"encoding/hex"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/t3rm1n4l/s3cmd/mock"
)

// mockClient points a test client at an in-process server;
// the dotted bucket name forces path-style addressing so every
// request lands on the mock.
func mockClient(t *testing.T) (*Client, *mock.Server) {
	t.Helper()
	srv := mock.New()
	t.Cleanup(srv.Close)
	c, _, _ := newTestClient(srv.Host())
	return c, srv
}

const mockBucket = "mock.bucket"

func outputFile(t *testing.T, name string) *os.File {
	t.Helper()
	f, err := os.Create(filepath.Join(t.TempDir(), name))
	require.NoError(t, err)
	t.Cleanup(func() { f.Close() })
	return f
}

func TestObjectGet_FullObject(t *testing.T) {
	c, srv := mockClient(t)
	payload := []byte("the quick brown fox jumps over the lazy dog")
	srv.PutObject(mockBucket, "dir/file.txt", payload, nil)

	out := outputFile(t, "file.txt")
	resp, err := c.ObjectGet(MustParseURI("s3://mock.bucket/dir/file.txt"), out, 0, "")
	require.NoError(t, err)

	got, err := os.ReadFile(out.Name())
	require.NoError(t, err)
	assert.Equal(t, payload, got)

	sum := md5.Sum(payload)
	assert.Equal(t, hex.EncodeToString(sum[:]), resp.MD5)
	assert.True(t, resp.MD5Match)
	assert.Equal(t, int64(len(payload)), resp.Size)
	assert.Equal(t, ExitOK, c.ExitStatus())
}

func TestObjectGet_Resume(t *testing.T) {
	c, srv := mockClient(t)
	payload := []byte("0123456789abcdefghij")
	srv.PutObject(mockBucket, "file.bin", payload, nil)

	// pre-write the first 10 bytes, then resume from offset 10
	out := outputFile(t, "file.bin")
	_, err := out.Write(payload[:10])
	require.NoError(t, err)

	resp, err := c.ObjectGet(MustParseURI("s3://mock.bucket/file.bin"), out, 10, "")
	require.NoError(t, err)

	// the request carried an open-ended Range
	var ranges []string
	for _, r := range srv.Requests() {
		if r.Method == http.MethodGet {
			ranges = append(ranges, r.Header.Get("Range"))
		}
	}
	assert.Equal(t, []string{"bytes=10-"}, ranges)

	got, err := os.ReadFile(out.Name())
	require.NoError(t, err)
	assert.Equal(t, payload, got)
	assert.Equal(t, int64(len(payload)), resp.Size)
	// the digest comes from re-reading the file, not the stream
	sum := md5.Sum(payload)
	assert.Equal(t, hex.EncodeToString(sum[:]), resp.MD5)
	assert.True(t, resp.MD5Match)
}

func TestRecvFile_BoundedRange(t *testing.T) {
	c, srv := mockClient(t)
	payload := []byte("0123456789abcdefghij")
	srv.PutObject(mockBucket, "file.bin", payload, nil)

	out := outputFile(t, "file.part-2")
	req, err := c.createRequest(OpObjectGet, MustParseURI("s3://mock.bucket/file.bin"), "", "", nil, "")
	require.NoError(t, err)
	resp, err := c.RecvFile(req, out, Labels{}, 5, c.config.MaxRetries, 14)
	require.NoError(t, err)

	got, err := os.ReadFile(out.Name())
	require.NoError(t, err)
	assert.Equal(t, payload[5:15], got)
	assert.Equal(t, int64(15), resp.Size)
	// ranged reads do not verify MD5
	assert.Empty(t, resp.MD5)
}

func TestObjectGet_CompositeETagUsesMeta(t *testing.T) {
	c, srv := mockClient(t)
	payload := bytes.Repeat([]byte("x"), 1024)
	sum := md5.Sum(payload)
	digest := hex.EncodeToString(sum[:])

	srv.PutObject(mockBucket, "multi.bin", payload, map[string]string{
		"x-amz-meta-md5sum": digest,
	})
	srv.SetObjectETag(mockBucket, "multi.bin", `"abc-2"`)

	out := outputFile(t, "multi.bin")
	resp, err := c.ObjectGet(MustParseURI("s3://mock.bucket/multi.bin"), out, 0, "")
	require.NoError(t, err)
	// md5match is computed against the meta digest, not the
	// composite ETag
	assert.True(t, resp.MD5Match)
	assert.Equal(t, ExitOK, c.ExitStatus())
}

func TestObjectGet_CompositeETagWithoutMeta(t *testing.T) {
	c, srv := mockClient(t)
	payload := bytes.Repeat([]byte("y"), 512)
	srv.PutObject(mockBucket, "multi.bin", payload, nil)
	srv.SetObjectETag(mockBucket, "multi.bin", `"abc-2"`)

	out := outputFile(t, "multi.bin")
	resp, err := c.ObjectGet(MustParseURI("s3://mock.bucket/multi.bin"), out, 0, "")
	require.NoError(t, err)
	assert.False(t, resp.MD5Match)
	assert.Equal(t, ExitMD5MetaNotFound, c.ExitStatus())
}

func TestObjectGet_NotFound(t *testing.T) {
	c, srv := mockClient(t)
	srv.CreateBucket(mockBucket)

	out := outputFile(t, "missing.txt")
	_, err := c.ObjectGet(MustParseURI("s3://mock.bucket/missing.txt"), out, 0, "")
	var serverErr *Error
	require.ErrorAs(t, err, &serverErr)
	assert.Equal(t, 404, serverErr.Status)
	assert.Equal(t, "NoSuchKey", serverErr.Code)
}

func TestObjectGet_MD5MismatchFlagged(t *testing.T) {
	c, srv := mockClient(t)
	payload := []byte("content that will not match")
	srv.PutObject(mockBucket, "bad.bin", payload, nil)
	srv.SetObjectETag(mockBucket, "bad.bin", `"00000000000000000000000000000000"`)

	out := outputFile(t, "bad.bin")
	resp, err := c.ObjectGet(MustParseURI("s3://mock.bucket/bad.bin"), out, 0, "")
	require.NoError(t, err)
	assert.False(t, resp.MD5Match)
	assert.Equal(t, ExitMD5Mismatch, c.ExitStatus())
}
