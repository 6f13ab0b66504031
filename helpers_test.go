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
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

// quietLogger drops all engine output during tests.
func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

// instantTimer satisfies the backoff timer interface but fires
// immediately, recording the waits it was asked for.
type instantTimer struct {
	waits []time.Duration
	ch    chan time.Time
}

func (t *instantTimer) Start(d time.Duration) {
	t.waits = append(t.waits, d)
	ch := make(chan time.Time, 1)
	ch <- time.Now()
	t.ch = ch
}

func (t *instantTimer) C() <-chan time.Time { return t.ch }

func (t *instantTimer) Stop() {}

// newTestClient builds a Client pointed at host with all
// sleeping disabled; waits requested by the streaming retry
// paths are recorded instead.
func newTestClient(host string) (*Client, *instantTimer, *[]time.Duration) {
	cfg := NewConfig()
	cfg.HostBase = host
	cfg.AccessKey = "fake-access-key"
	cfg.SecretKey = "fake-secret-key"

	c := New(cfg)
	c.SetLogger(quietLogger())

	timer := &instantTimer{}
	c.timer = timer
	waits := &[]time.Duration{}
	c.sleep = func(d time.Duration) { *waits = append(*waits, d) }
	return c, timer, waits
}

// roundTripFunc adapts a function to http.RoundTripper for
// exact-wire tests.
type roundTripFunc func(req *http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

// writeTempFile creates a file with the given contents and
// returns its path.
func writeTempFile(t *testing.T, name string, contents []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, contents, 0644))
	return path
}
