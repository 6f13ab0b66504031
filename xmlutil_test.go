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
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

const listingXML = `<?xml version="1.0" encoding="UTF-8"?>
<ListAllMyBucketsResult xmlns="http://s3.amazonaws.com/doc/2006-03-01/">
  <Owner><ID>abc</ID></Owner>
  <Buckets>
    <Bucket><Name>first</Name><CreationDate>2011-01-01T00:00:00.000Z</CreationDate></Bucket>
    <Bucket><Name>second</Name><CreationDate>2012-02-02T00:00:00.000Z</CreationDate></Bucket>
  </Buckets>
</ListAllMyBucketsResult>`

func TestTextFromXML(t *testing.T) {
	data := []byte(`<Error><Code>NoSuchKey</Code><Message>not found</Message></Error>`)
	assert.Equal(t, "NoSuchKey", textFromXML(data, "Code"))
	assert.Equal(t, "not found", textFromXML(data, "Message"))
	assert.Equal(t, "", textFromXML(data, "Absent"))
	assert.Equal(t, "", textFromXML([]byte("not xml"), "Code"))

	redirect := []byte(`<Error><Bucket>b</Bucket><Endpoint>b.s3-eu.amazonaws.com</Endpoint></Error>`)
	assert.Equal(t, "b.s3-eu.amazonaws.com", textFromXML(redirect, "Endpoint"))
}

func TestListFromXML(t *testing.T) {
	list := listFromXML([]byte(listingXML), "Bucket")
	assert.Len(t, list, 2)
	assert.Equal(t, "first", list[0]["Name"])
	assert.Equal(t, "second", list[1]["Name"])
	assert.Equal(t, "2012-02-02T00:00:00.000Z", list[1]["CreationDate"])

	assert.Empty(t, listFromXML([]byte(listingXML), "Nothing"))
}

func TestRootTagName(t *testing.T) {
	assert.Equal(t, "ListAllMyBucketsResult", rootTagName([]byte(listingXML)))
	assert.Equal(t, "CopyObjectResult", rootTagName([]byte(`<CopyObjectResult/>`)))
	assert.Equal(t, "", rootTagName([]byte("")))
}

func TestExtractMessage(t *testing.T) {
	assert.Equal(t, "Test error message",
		extractMessage(strings.NewReader(`<Error><Message>Test error message</Message></Error>`)))
	assert.Equal(t, "(no message)", extractMessage(strings.NewReader("not xml")))
	assert.Equal(t, "", extractMessage(strings.NewReader(`<Error><Code>X</Code></Error>`)))
}
