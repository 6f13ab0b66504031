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

// noopProgress is used when the progress meter is disabled.
type noopProgress struct{}

func (noopProgress) Update(int64)          {}
func (noopProgress) SetTotal(int64, int64) {}
func (noopProgress) Done(string)           {}

// newProgress builds the progress meter for one transfer,
// falling back to a no-op meter when metering is disabled or
// no factory is configured.
func (c *Client) newProgress(labels Labels, total int64) Progress {
	if !c.config.ProgressMeter || c.config.ProgressFactory == nil {
		return noopProgress{}
	}
	return c.config.ProgressFactory(labels, total)
}
