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
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLimiter_Unlimited(t *testing.T) {
	l := newLimiter(NewConfig())
	r := strings.NewReader("data")
	// with no caps configured the readers pass through untouched
	assert.Equal(t, io.Reader(r), l.upstreamReader(r))
	assert.Equal(t, io.Reader(r), l.downstreamReader(r))
}

func TestLimiter_CappedReaderDeliversAllBytes(t *testing.T) {
	cfg := NewConfig()
	cfg.UploadLimitKB = 1024
	cfg.DownloadLimitKB = 512
	l := newLimiter(cfg)

	payload := strings.Repeat("x", 8192)
	up, err := io.ReadAll(l.upstreamReader(strings.NewReader(payload)))
	require.NoError(t, err)
	assert.Equal(t, payload, string(up))

	down, err := io.ReadAll(l.downstreamReader(strings.NewReader(payload)))
	require.NoError(t, err)
	assert.Equal(t, payload, string(down))
}
