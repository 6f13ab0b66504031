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
	"sync"
)

// redirMap caches permanent bucket-to-endpoint redirects
// learned from HTTP 307 responses. Entries are added or
// overwritten, never removed, and live for the lifetime of
// the Client.
type redirMap struct {
	mu    sync.Mutex
	hosts map[string]string
}

func (m *redirMap) get(bucket string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	host, ok := m.hosts[bucket]
	return host, ok
}

func (m *redirMap) set(bucket, host string) {
	m.mu.Lock()
	if m.hosts == nil {
		m.hosts = make(map[string]string)
	}
	m.hosts[bucket] = host
	m.mu.Unlock()
}

// dnsConformantBucket reports whether bucket can be used as a
// DNS label in virtual-host addressing. Names with dots are
// deliberately excluded: they break wildcard TLS certificates,
// so they are addressed path-style instead.
func dnsConformantBucket(bucket string) bool {
	if len(bucket) < 3 || len(bucket) > 63 {
		return false
	}
	for i := 0; i < len(bucket); i++ {
		c := bucket[i]
		switch {
		case c >= 'a' && c <= 'z':
		case c >= '0' && c <= '9':
		case c == '-':
			if i == 0 || i == len(bucket)-1 {
				return false
			}
		default:
			return false
		}
	}
	return true
}

// CheckBucketName validates bucket against the S3 naming
// rules. With dnsStrict the name must also be usable in
// virtual-host addressing.
func CheckBucketName(bucket string, dnsStrict bool) error {
	if dnsStrict {
		if !dnsConformantBucket(bucket) {
			return badBucket(bucket)
		}
		return nil
	}
	if len(bucket) == 0 || len(bucket) > 255 {
		return badBucket(bucket)
	}
	for i := 0; i < len(bucket); i++ {
		c := bucket[i]
		switch {
		case c >= 'a' && c <= 'z':
		case c >= 'A' && c <= 'Z':
		case c >= '0' && c <= '9':
		case c == '.' || c == '_' || c == '-':
		default:
			return badBucket(bucket)
		}
	}
	return nil
}

// hostname chooses the host for a request addressing bucket:
// a cached redirect if one was learned, otherwise
// virtual-host style for DNS-conformant names, otherwise the
// configured base host.
func (c *Client) hostname(bucket string) string {
	host := c.config.HostBase
	if bucket != "" {
		if redir, ok := c.redir.get(bucket); ok {
			host = redir
		} else if dnsConformantBucket(bucket) {
			host = bucket + "." + c.config.HostBase
		}
	}
	c.log.Debugf("hostname(%s): %s", bucket, host)
	return host
}

// setHostname records a permanent redirect for bucket.
func (c *Client) setHostname(bucket, host string) {
	c.redir.set(bucket, host)
}

// formatURI returns the path portion of the request-URI.
// Buckets that cannot be addressed by hostname are prefixed
// onto the path.
func (c *Client) formatURI(res Resource) string {
	if res.Bucket != "" && !dnsConformantBucket(res.Bucket) {
		return "/" + res.Bucket + res.URI
	}
	return res.URI
}
