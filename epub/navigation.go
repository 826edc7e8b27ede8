// Copyright 2025 Readium Foundation. All rights reserved.
// Use of this source code is governed by a BSD-style license
// that can be found in the LICENSE file exposed on Github (readium) in the project repository.

package epub

import (
	"bytes"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/readium/readium-streamer/container"
	"github.com/readium/readium-streamer/logger"
	"github.com/readium/readium-streamer/rwpm"
)

// parseNavigationDocument reads the <nav> collections of the EPUB 3 navigation
// document
func parseNavigationDocument(c container.Container, pub *rwpm.Publication, log logger.StdLogger) {
	nav, ok := pub.NavDoc()
	if !ok {
		return
	}
	navPath := nav.Href
	data, err := c.Read(navPath)
	if err != nil {
		log.Warnf("cannot read navigation document %s: %v", navPath, err)
		return
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(data))
	if err != nil {
		log.Warnf("ignoring malformed navigation document %s: %v", navPath, err)
		return
	}

	doc.Find("nav").Each(func(_ int, s *goquery.Selection) {
		types, _ := s.Attr("epub:type")
		links := navList(s.ChildrenFiltered("ol").First(), navPath)
		for _, t := range strings.Fields(types) {
			switch t {
			case "toc":
				pub.TOC = append(pub.TOC, links...)
			case "page-list":
				pub.PageList = append(pub.PageList, links...)
			case "landmarks":
				pub.Landmarks = append(pub.Landmarks, links...)
			case "loi":
				pub.LOI = append(pub.LOI, links...)
			case "loa":
				pub.LOA = append(pub.LOA, links...)
			case "lot":
				pub.LOT = append(pub.LOT, links...)
			case "lov":
				pub.LOV = append(pub.LOV, links...)
			}
		}
	})
}

// navList builds the link tree of an <ol>, bottom-up
func navList(ol *goquery.Selection, navPath string) []rwpm.Link {
	var links []rwpm.Link
	ol.ChildrenFiltered("li").Each(func(_ int, li *goquery.Selection) {
		label := li.ChildrenFiltered("a, span").First()
		link := rwpm.Link{Title: normalizeSpace(label.Text())}
		if href, ok := label.Attr("href"); ok {
			link.Href = resolveHref(navPath, href)
		}
		link.Children = navList(li.ChildrenFiltered("ol").First(), navPath)
		if link.Href == "" && link.Title == "" && len(link.Children) == 0 {
			return
		}
		links = append(links, link)
	})
	return links
}
