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
	"encoding/xml"

	"github.com/pkg/errors"
)

// AccessLog is a BucketLoggingStatus document controlling
// server access logging for a bucket.
type AccessLog struct {
	XMLName        xml.Name        `xml:"BucketLoggingStatus"`
	XMLNS          string          `xml:"xmlns,attr"`
	LoggingEnabled *LoggingEnabled `xml:"LoggingEnabled,omitempty"`
}

// LoggingEnabled names the bucket and key prefix that receive
// the access-log deliveries.
type LoggingEnabled struct {
	TargetBucket string `xml:"TargetBucket"`
	TargetPrefix string `xml:"TargetPrefix"`
}

// NewAccessLog returns a disabled logging status.
func NewAccessLog() *AccessLog {
	return &AccessLog{XMLNS: "http://doc.s3.amazonaws.com/2006-03-01"}
}

// ParseAccessLog decodes a ?logging response body.
func ParseAccessLog(data []byte) (*AccessLog, error) {
	al := &AccessLog{}
	if err := xml.Unmarshal(data, al); err != nil {
		return nil, err
	}
	return al, nil
}

// IsEnabled reports whether access logging is on.
func (a *AccessLog) IsEnabled() bool { return a.LoggingEnabled != nil }

// Enable points log delivery at the bucket and prefix of
// target, which must be an s3:// URI.
func (a *AccessLog) Enable(target *URI) {
	a.LoggingEnabled = &LoggingEnabled{
		TargetBucket: target.Bucket(),
		TargetPrefix: target.Object(),
	}
}

// Disable turns access logging off.
func (a *AccessLog) Disable() { a.LoggingEnabled = nil }

// Marshal serializes the status for a ?logging PUT.
func (a *AccessLog) Marshal() ([]byte, error) {
	return xml.Marshal(a)
}

// GetAccessLog fetches the access-log configuration of the
// bucket named by uri.
func (c *Client) GetAccessLog(uri *URI) (*AccessLog, error) {
	req, err := c.createRequest(OpBucketList, nil, uri.Bucket(), "", nil, "?logging")
	if err != nil {
		return nil, err
	}
	resp, err := c.SendRequest(req, nil)
	if err != nil {
		return nil, err
	}
	return ParseAccessLog(resp.Data)
}

// setAccessLogACL grants the log-delivery group the
// permissions it needs on the target bucket.
func (c *Client) setAccessLogACL(uri *URI) error {
	acl, err := c.GetACL(uri)
	if err != nil {
		return err
	}
	c.log.Debugf("Current ACL(%s): %d grants", uri, len(acl.Grants))
	acl.AppendGrantee(GranteeLogDelivery("READ_ACP"))
	acl.AppendGrantee(GranteeLogDelivery("WRITE"))
	c.log.Debugf("Updated ACL(%s): %d grants", uri, len(acl.Grants))
	_, err = c.SetACL(uri, acl)
	return err
}

// SetAccessLog enables or disables access logging for the
// bucket named by uri. When the target bucket is not yet set
// up for log delivery, its ACL is fixed up and the request is
// re-issued once.
func (c *Client) SetAccessLog(uri *URI, enable bool, target *URI) (*AccessLog, *Response, error) {
	req, err := c.createRequest(OpBucketCreate, nil, uri.Bucket(), "", nil, "?logging")
	if err != nil {
		return nil, nil, err
	}
	accesslog := NewAccessLog()
	if enable {
		accesslog.Enable(target)
	} else {
		accesslog.Disable()
	}
	body, err := accesslog.Marshal()
	if err != nil {
		return nil, nil, err
	}
	c.log.Debugf("SetAccessLog(%s): accesslog-xml: %s", uri, body)

	resp, err := c.SendRequest(req, body)
	if err != nil {
		var serverErr *Error
		if errors.As(err, &serverErr) && serverErr.Code == "InvalidTargetBucketForLogging" {
			c.log.Infof("Setting up log-delivery ACL for target bucket.")
			if aclErr := c.setAccessLogACL(&URI{bucket: target.Bucket()}); aclErr != nil {
				return nil, nil, aclErr
			}
			resp, err = c.SendRequest(req, body)
			if err != nil {
				return nil, nil, err
			}
			return accesslog, resp, nil
		}
		return nil, nil, err
	}
	return accesslog, resp, nil
}
