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

// Labels identifies a transfer for progress reporting.
type Labels struct {
	Source      string
	Destination string
	Extra       string
}

// Progress receives transfer progress events. A new Progress is
// created per request via Config.ProgressFactory.
type Progress interface {
	// Update advances the meter by delta bytes. A delta of
	// zero forces a refresh of the average-speed display.
	Update(delta int64)
	// SetTotal adjusts the expected total size and the
	// position the transfer (re)starts from.
	SetTotal(total, initial int64)
	// Done finalizes the meter with a status of "done"
	// or "failed".
	Done(status string)
}

// ProgressFactory builds a Progress for one transfer.
type ProgressFactory func(labels Labels, total int64) Progress

// Config carries all settings necessary to talk to an
// S3-compatible server.
type Config struct {
	AccessKey string
	SecretKey string

	// HostBase is the service endpoint, e.g. "s3.amazonaws.com".
	// DNS-conformant buckets are addressed as <bucket>.HostBase;
	// everything else falls back to path-style requests
	// against HostBase itself.
	HostBase string

	UseHTTPS  bool
	ProxyHost string
	ProxyPort int

	ACLPublic         bool
	ReducedRedundancy bool

	MimeType        string
	GuessMimeType   bool
	DefaultMimeType string

	Recursive bool

	// SendChunk and RecvChunk are the unit sizes for the
	// streaming upload and download loops.
	SendChunk int
	RecvChunk int

	URLEncodingMode EncodingMode

	ProgressMeter   bool
	ProgressFactory ProgressFactory

	WebsiteIndex string
	WebsiteError string
	// WebsiteEndpoint is a template with %(bucket)s and
	// %(location)s placeholders.
	WebsiteEndpoint string

	// Multipart upload: the file is cut into at most
	// ParallelMultipartUploadCount parts, uploaded by
	// ParallelMultipartUploadThreads workers.
	ParallelMultipartUploadCount   int
	ParallelMultipartUploadThreads int

	ParallelMultipartDownloadCount   int
	ParallelMultipartDownloadThreads int

	// MaxRetries bounds re-issues of failed requests.
	MaxRetries int

	// UploadLimitKB and DownloadLimitKB cap the streaming
	// byte rate. Zero means unlimited.
	UploadLimitKB   int
	DownloadLimitKB int
}

// NewConfig returns a Config with the default values filled in.
func NewConfig() *Config {
	return &Config{
		HostBase:        "s3.amazonaws.com",
		UseHTTPS:        false,
		GuessMimeType:   true,
		DefaultMimeType: "binary/octet-stream",
		SendChunk:       4096,
		RecvChunk:       4096,
		URLEncodingMode: EncodeNormal,
		WebsiteIndex:    "index.html",
		WebsiteEndpoint: "http://%(bucket)s.s3-website-%(location)s.amazonaws.com/",

		ParallelMultipartUploadCount:     4,
		ParallelMultipartUploadThreads:   4,
		ParallelMultipartDownloadCount:   4,
		ParallelMultipartDownloadThreads: 4,

		MaxRetries: 5,
	}
}
