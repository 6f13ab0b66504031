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
	"bytes"
	"encoding/xml"
	"io"
	"strings"
)

// textFromXML returns the character data of the first element
// named tag anywhere in the document, or "".
func textFromXML(data []byte, tag string) string {
	dec := xml.NewDecoder(bytes.NewReader(data))
	depth := -1
	var text strings.Builder
	for {
		tok, err := dec.Token()
		if err != nil {
			return ""
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if depth >= 0 {
				depth++
				continue
			}
			if t.Name.Local == tag {
				depth = 0
				text.Reset()
			}
		case xml.EndElement:
			if depth == 0 {
				return text.String()
			}
			if depth > 0 {
				depth--
			}
		case xml.CharData:
			if depth >= 0 {
				text.Write(t)
			}
		}
	}
}

// listFromXML decodes every element named tag into a flat
// map from each descendant's path below it (names joined by
// "/") to its text, one map per occurrence.
func listFromXML(data []byte, tag string) []map[string]string {
	dec := xml.NewDecoder(bytes.NewReader(data))
	var out []map[string]string
	for {
		tok, err := dec.Token()
		if err != nil {
			return out
		}
		start, ok := tok.(xml.StartElement)
		if !ok || start.Name.Local != tag {
			continue
		}
		if item, err := decodeFlat(dec, start); err == nil {
			out = append(out, item)
		}
	}
}

// decodeFlat consumes the element opened by start and collects
// leaf text keyed by the leaf's path below start, joined by "/".
func decodeFlat(dec *xml.Decoder, start xml.StartElement) (map[string]string, error) {
	item := make(map[string]string)
	var path []string
	var text strings.Builder
	for {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			path = append(path, t.Name.Local)
			text.Reset()
		case xml.CharData:
			text.Write(t)
		case xml.EndElement:
			if len(path) == 0 {
				return item, nil // closed start itself
			}
			item[strings.Join(path, "/")] = text.String()
			path = path[:len(path)-1]
			text.Reset()
		}
	}
}

// rootTagName returns the name of the document's root element,
// or "" when data is not well-formed XML.
func rootTagName(data []byte) string {
	dec := xml.NewDecoder(bytes.NewReader(data))
	for {
		tok, err := dec.Token()
		if err != nil {
			return ""
		}
		if start, ok := tok.(xml.StartElement); ok {
			return start.Name.Local
		}
	}
}

// extractMessage tries to extract the <Message/> field of an
// XML response to improve error messages.
func extractMessage(r io.Reader) string {
	rt := struct {
		Message string `xml:"Message"`
	}{}
	if xml.NewDecoder(r).Decode(&rt) == nil {
		return rt.Message
	}
	return "(no message)"
}
