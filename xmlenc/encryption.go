// Copyright 2025 Readium Foundation. All rights reserved.
// Use of this source code is governed by a BSD-style license
// that can be found in the LICENSE file exposed on Github (readium) in the project repository.

// Package xmlenc models META-INF/encryption.xml, the list of encrypted resources of
// an OCF container.
package xmlenc

import (
	"encoding/xml"
	"io"
	"net/url"
	"strings"

	"golang.org/x/net/html/charset"
)

// CompressionDeflate is the Method value of deflated resources
const CompressionDeflate = 8

type Manifest struct {
	XMLName struct{} `xml:"urn:oasis:names:tc:opendocument:xmlns:container encryption"`
	Data    []Data   `xml:"http://www.w3.org/2001/04/xmlenc# EncryptedData"`
}

type Method struct {
	Algorithm string `xml:"Algorithm,attr,omitempty"`
}

type CipherReference struct {
	URI string `xml:"URI,attr"`
}

type CipherData struct {
	CipherReference CipherReference `xml:"http://www.w3.org/2001/04/xmlenc# CipherReference"`
}

type RetrievalMethod struct {
	URI  string `xml:"URI,attr"`
	Type string `xml:"Type,attr,omitempty"`
}

type KeyInfo struct {
	RetrievalMethod *RetrievalMethod `xml:"http://www.w3.org/2000/09/xmldsig# RetrievalMethod"`
}

type Compression struct {
	Method         int   `xml:"Method,attr"`
	OriginalLength int64 `xml:"OriginalLength,attr"`
}

type EncryptionProperty struct {
	Compression *Compression `xml:"http://www.idpf.org/2016/encryption#compression Compression"`
}

type EncryptionProperties struct {
	Properties []EncryptionProperty `xml:"http://www.w3.org/2001/04/xmlenc# EncryptionProperty"`
}

// Data is one EncryptedData element
type Data struct {
	Method     Method                `xml:"http://www.w3.org/2001/04/xmlenc# EncryptionMethod"`
	KeyInfo    *KeyInfo              `xml:"http://www.w3.org/2000/09/xmldsig# KeyInfo"`
	CipherData CipherData            `xml:"http://www.w3.org/2001/04/xmlenc# CipherData"`
	Properties *EncryptionProperties `xml:"http://www.w3.org/2001/04/xmlenc# EncryptionProperties,omitempty"`
}

// Read parses an encryption document
func Read(r io.Reader) (Manifest, error) {
	var m Manifest
	dec := xml.NewDecoder(r)
	// deal with non utf-8 xml files
	dec.CharsetReader = charset.NewReaderLabel
	err := dec.Decode(&m)
	return m, err
}

// Path returns the decoded container path of the encrypted resource
func (d Data) Path() string {
	uri := d.CipherData.CipherReference.URI
	if p, err := url.PathUnescape(uri); err == nil {
		uri = p
	}
	return strings.TrimPrefix(uri, "/")
}

// KeyRetrievalURI returns the URI locating the key, empty when none is given
func (d Data) KeyRetrievalURI() string {
	if d.KeyInfo == nil || d.KeyInfo.RetrievalMethod == nil {
		return ""
	}
	return d.KeyInfo.RetrievalMethod.URI
}

// Compression returns the compression property of the resource, if any
func (d Data) Compression() (Compression, bool) {
	if d.Properties == nil {
		return Compression{}, false
	}
	for _, p := range d.Properties.Properties {
		if p.Compression != nil {
			return *p.Compression, true
		}
	}
	return Compression{}, false
}
