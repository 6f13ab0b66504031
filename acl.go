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
)

// Grantee is the target of one ACL grant. Type mirrors the
// xsi:type discriminator of the wire format.
type Grantee struct {
	XMLName     xml.Name `xml:"Grantee"`
	XMLNSXSI    string   `xml:"xmlns:xsi,attr"`
	Type        string   `xml:"xsi:type,attr"`
	ID          string   `xml:"ID,omitempty"`
	DisplayName string   `xml:"DisplayName,omitempty"`
	URI         string   `xml:"URI,omitempty"`
}

// Grant pairs a grantee with a permission.
type Grant struct {
	XMLName    xml.Name `xml:"Grant"`
	Grantee    Grantee  `xml:"Grantee"`
	Permission string   `xml:"Permission"`
}

// ACL is an AccessControlPolicy document.
type ACL struct {
	XMLName          xml.Name `xml:"AccessControlPolicy"`
	OwnerID          string   `xml:"Owner>ID"`
	OwnerDisplayName string   `xml:"Owner>DisplayName"`
	Grants           []Grant  `xml:"AccessControlList>Grant"`
}

const logDeliveryURI = "http://acs.amazonaws.com/groups/s3/LogDelivery"

// GranteeLogDelivery builds a grant for the S3 log-delivery
// group with the given permission.
func GranteeLogDelivery(permission string) Grant {
	return Grant{
		Grantee: Grantee{
			XMLNSXSI: "http://www.w3.org/2001/XMLSchema-instance",
			Type:     "Group",
			URI:      logDeliveryURI,
		},
		Permission: permission,
	}
}

// ParseACL decodes an AccessControlPolicy response body.
func ParseACL(data []byte) (*ACL, error) {
	acl := &ACL{}
	if err := xml.Unmarshal(data, acl); err != nil {
		return nil, err
	}
	return acl, nil
}

// AppendGrantee adds a grant to the policy.
func (a *ACL) AppendGrantee(grant Grant) {
	a.Grants = append(a.Grants, grant)
}

// Marshal serializes the policy for a ?acl PUT.
func (a *ACL) Marshal() ([]byte, error) {
	return xml.Marshal(a)
}

// GetACL fetches the access-control policy of the bucket or
// object named by uri.
func (c *Client) GetACL(uri *URI) (*ACL, error) {
	var req *Request
	var err error
	if uri.HasObject() {
		req, err = c.createRequest(OpObjectGet, uri, "", "", nil, "?acl")
	} else {
		req, err = c.createRequest(OpBucketList, nil, uri.Bucket(), "", nil, "?acl")
	}
	if err != nil {
		return nil, err
	}
	resp, err := c.SendRequest(req, nil)
	if err != nil {
		return nil, err
	}
	return ParseACL(resp.Data)
}

// SetACL stores the access-control policy on the bucket or
// object named by uri.
func (c *Client) SetACL(uri *URI, acl *ACL) (*Response, error) {
	var req *Request
	var err error
	if uri.HasObject() {
		req, err = c.createRequest(OpObjectPut, uri, "", "", nil, "?acl")
	} else {
		req, err = c.createRequest(OpBucketCreate, nil, uri.Bucket(), "", nil, "?acl")
	}
	if err != nil {
		return nil, err
	}
	body, err := acl.Marshal()
	if err != nil {
		return nil, err
	}
	c.log.Debugf("SetACL(%s): acl-xml: %s", uri, body)
	return c.SendRequest(req, body)
}
