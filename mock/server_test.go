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

package mock

import (
	"bytes"
	"io"
	"net/http"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func get(t *testing.T, url string, headers map[string]string) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, url, nil)
	require.NoError(t, err)
	for name, value := range headers {
		req.Header.Set(name, value)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	resp.Body.Close()
	return resp, body
}

func TestServer_ServiceListing(t *testing.T) {
	srv := New()
	defer srv.Close()
	srv.CreateBucket("alpha")
	srv.CreateBucket("beta")

	resp, body := get(t, "http://"+srv.Host()+"/", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "<Name>alpha</Name>")
	assert.Contains(t, string(body), "<Name>beta</Name>")
}

func TestServer_ObjectRoundTrip(t *testing.T) {
	srv := New()
	defer srv.Close()
	url := "http://" + srv.Host() + "/bkt/key.txt"

	req, err := http.NewRequest(http.MethodPut, url, strings.NewReader("payload"))
	require.NoError(t, err)
	req.Header.Set("x-amz-meta-tag", "v")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("ETag"))

	got, body := get(t, url, nil)
	assert.Equal(t, http.StatusOK, got.StatusCode)
	assert.Equal(t, "payload", string(body))
	assert.Equal(t, "v", got.Header.Get("X-Amz-Meta-Tag"))
}

func TestServer_RangeRequests(t *testing.T) {
	srv := New()
	defer srv.Close()
	srv.PutObject("bkt", "data", []byte("0123456789"), nil)
	url := "http://" + srv.Host() + "/bkt/data"

	resp, body := get(t, url, map[string]string{"Range": "bytes=2-5"})
	assert.Equal(t, http.StatusPartialContent, resp.StatusCode)
	assert.Equal(t, "2345", string(body))

	resp, body = get(t, url, map[string]string{"Range": "bytes=7-"})
	assert.Equal(t, http.StatusPartialContent, resp.StatusCode)
	assert.Equal(t, "789", string(body))

	resp, _ = get(t, url, map[string]string{"Range": "bytes=99-"})
	assert.Equal(t, http.StatusRequestedRangeNotSatisfiable, resp.StatusCode)
}

func TestServer_Multipart(t *testing.T) {
	srv := New()
	defer srv.Close()
	base := "http://" + srv.Host() + "/bkt/assembled"

	resp, body := postRequest(t, base+"?uploads", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	id := textBetween(string(body), "<UploadId>", "</UploadId>")
	require.NotEmpty(t, id)

	for i, part := range []string{"first-", "second"} {
		req, err := http.NewRequest(http.MethodPut,
			base+"?partNumber="+strconv.Itoa(i+1)+"&uploadId="+id,
			strings.NewReader(part))
		require.NoError(t, err)
		r, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		r.Body.Close()
		assert.Equal(t, http.StatusOK, r.StatusCode)
	}

	complete := `<CompleteMultipartUpload>` +
		`<Part><PartNumber>1</PartNumber><ETag>x</ETag></Part>` +
		`<Part><PartNumber>2</PartNumber><ETag>y</ETag></Part>` +
		`</CompleteMultipartUpload>`
	resp, _ = postRequest(t, base+"?uploadId="+id, complete)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	obj, ok := srv.GetObject("bkt", "assembled")
	require.True(t, ok)
	assert.True(t, bytes.Equal([]byte("first-second"), obj.Content))
	assert.True(t, strings.HasSuffix(strings.Trim(obj.ETag, `"`), "-2"))
	assert.Equal(t, 0, srv.UploadCount())
}

func postRequest(t *testing.T, url, body string) (*http.Response, []byte) {
	t.Helper()
	resp, err := http.Post(url, "application/xml", strings.NewReader(body))
	require.NoError(t, err)
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	resp.Body.Close()
	return resp, data
}

func textBetween(s, open, close string) string {
	_, rest, ok := strings.Cut(s, open)
	if !ok {
		return ""
	}
	out, _, _ := strings.Cut(rest, close)
	return out
}

func TestServer_FailNext(t *testing.T) {
	srv := New()
	defer srv.Close()
	srv.CreateBucket("bkt")
	srv.FailNext(2, http.StatusInternalServerError, `<Error><Code>InternalError</Code></Error>`, nil)

	url := "http://" + srv.Host() + "/bkt"
	for i := 0; i < 2; i++ {
		resp, _ := get(t, url, nil)
		assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	}
	resp, _ := get(t, url, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
