// Copyright 2025 Readium Foundation. All rights reserved.
// Use of this source code is governed by a BSD-style license
// that can be found in the LICENSE file exposed on Github (readium) in the project repository.

package epub

import (
	"bytes"
	"encoding/xml"

	"golang.org/x/net/html/charset"

	"github.com/readium/readium-streamer/container"
	"github.com/readium/readium-streamer/epub/opf"
	"github.com/readium/readium-streamer/logger"
	"github.com/readium/readium-streamer/rwpm"
)

type ncxDocument struct {
	NavMap   []ncxPoint `xml:"navMap>navPoint"`
	PageList []ncxPoint `xml:"pageList>pageTarget"`
}

type ncxPoint struct {
	Label   string `xml:"navLabel>text"`
	Content struct {
		Src string `xml:"src,attr"`
	} `xml:"content"`
	Children []ncxPoint `xml:"navPoint"`
}

// parseNcxDocument backfills the table of contents and the page list from the
// EPUB 2 NCX, when the navigation document left them empty
func parseNcxDocument(c container.Container, pub *rwpm.Publication, pkg opf.Package, opfPath string, log logger.StdLogger) {
	if len(pub.TOC) > 0 && len(pub.PageList) > 0 {
		return
	}

	var ncxPath string
	if item, ok := pkg.Manifest.ItemWithID(pkg.Spine.Toc); ok {
		ncxPath = resolveHref(opfPath, item.Href)
	} else {
		for _, l := range pub.Resources {
			if l.Type == ContentTypeNcx {
				ncxPath = l.Href
				break
			}
		}
	}
	if ncxPath == "" {
		return
	}

	data, err := c.Read(ncxPath)
	if err != nil {
		log.Warnf("cannot read ncx %s: %v", ncxPath, err)
		return
	}
	var doc ncxDocument
	dec := xml.NewDecoder(bytes.NewReader(data))
	// deal with non utf-8 xml files
	dec.CharsetReader = charset.NewReaderLabel
	if err := dec.Decode(&doc); err != nil {
		log.Warnf("ignoring malformed ncx %s: %v", ncxPath, err)
		return
	}

	if len(pub.TOC) == 0 {
		pub.TOC = ncxLinks(doc.NavMap, ncxPath)
	}
	if len(pub.PageList) == 0 {
		pub.PageList = ncxLinks(doc.PageList, ncxPath)
	}
}

func ncxLinks(points []ncxPoint, ncxPath string) []rwpm.Link {
	var links []rwpm.Link
	for _, p := range points {
		links = append(links, rwpm.Link{
			Href:     resolveHref(ncxPath, p.Content.Src),
			Title:    normalizeSpace(p.Label),
			Children: ncxLinks(p.Children, ncxPath),
		})
	}
	return links
}
