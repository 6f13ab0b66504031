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

package fsutil

import (
	"crypto/md5"
	"encoding/hex"
	"hash"
	"io"
	"os"
)

// ConcatFiles appends the named sources, in order, to dst.
// When computeMD5 is set the hex MD5 of the concatenated bytes
// is returned alongside the total byte count written.
func ConcatFiles(dst io.Writer, computeMD5 bool, sources ...string) (string, int64, error) {
	var sum hash.Hash
	out := dst
	if computeMD5 {
		sum = md5.New()
		out = io.MultiWriter(dst, sum)
	}
	var total int64
	for _, source := range sources {
		n, err := appendFile(out, source)
		total += n
		if err != nil {
			return "", total, err
		}
	}
	if !computeMD5 {
		return "", total, nil
	}
	return hex.EncodeToString(sum.Sum(nil)), total, nil
}

func appendFile(dst io.Writer, source string) (int64, error) {
	f, err := os.Open(source)
	if err != nil {
		return 0, err
	}
	defer f.Close()
	return io.Copy(dst, f)
}
