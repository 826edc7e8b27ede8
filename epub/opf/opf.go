// Copyright 2025 Readium Foundation. All rights reserved.
// Use of this source code is governed by a BSD-style license
// that can be found in the LICENSE file exposed on Github (readium) in the project repository.

// Package opf reads EPUB package documents. The manifest and the spine are decoded
// into structs; the metadata block is kept as an element tree, its refinements
// being cross-referenced by id.
package opf

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/beevik/etree"
	"golang.org/x/net/html/charset"
)

// Package is the main opf structure
type Package struct {
	XMLName          xml.Name
	Version          string   `xml:"version,attr"`
	UniqueIdentifier string   `xml:"unique-identifier,attr"`
	Manifest         Manifest `xml:"manifest"`
	Spine            Spine    `xml:"spine"`

	// Metadata is the <metadata> element, nil when the package has none
	Metadata *etree.Element `xml:"-"`
}

// Manifest is the package manifest structure
type Manifest struct {
	Items []Item `xml:"item"`
}

// Item is the manifest item structure
type Item struct {
	ID           string `xml:"id,attr"`
	Href         string `xml:"href,attr"`
	MediaType    string `xml:"media-type,attr"`
	Properties   string `xml:"properties,attr"`
	MediaOverlay string `xml:"media-overlay,attr"`
}

type Spine struct {
	Toc                      string    `xml:"toc,attr"`
	PageProgressionDirection string    `xml:"page-progression-direction,attr"`
	ItemRefs                 []ItemRef `xml:"itemref"`
}

type ItemRef struct {
	IDRef      string `xml:"idref,attr"`
	Linear     string `xml:"linear,attr"`
	Properties string `xml:"properties,attr"`
}

// ItemWithID looks for the manifest item with a given id
func (m Manifest) ItemWithID(id string) (Item, bool) {
	for _, i := range m.Items {
		if i.ID == id {
			return i, true
		}
	}
	return Item{}, false
}

// Linear tells whether the item belongs to the default reading order
func (r ItemRef) IsLinear() bool {
	return !strings.EqualFold(strings.TrimSpace(r.Linear), "no")
}

var unsupportedXMLDeclaration = regexp.MustCompile(`^<\?\s*xml\s+version\s*=\s*"\s*1.[1-9]\s*"`)
var supportedXMLDeclaration = []byte(`<?xml version="1.0"`)

// Parse parses the opf document and returns a Package object
func Parse(r io.Reader) (Package, error) {
	var p Package

	buf := new(bytes.Buffer)
	if _, err := buf.ReadFrom(r); err != nil {
		return p, err
	}
	opf := bytes.TrimPrefix(buf.Bytes(), []byte("\xef\xbb\xbf"))
	if unsupportedXMLDeclaration.Match(opf) {
		opf = unsupportedXMLDeclaration.ReplaceAll(opf, supportedXMLDeclaration)
	}

	xd := xml.NewDecoder(bytes.NewReader(opf))
	// deal with non utf-8 xml files
	xd.CharsetReader = charset.NewReaderLabel
	if err := xd.Decode(&p); err != nil {
		return p, err
	}
	if p.XMLName.Local != "package" {
		return p, fmt.Errorf("unexpected root element %s", p.XMLName.Local)
	}

	doc := etree.NewDocument()
	doc.ReadSettings.CharsetReader = charset.NewReaderLabel
	if err := doc.ReadFromBytes(opf); err != nil {
		return p, err
	}
	if root := doc.Root(); root != nil {
		p.Metadata = root.SelectElement("metadata")
	}
	return p, nil
}
