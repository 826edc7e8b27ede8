// Copyright 2025 Readium Foundation. All rights reserved.
// Use of this source code is governed by a BSD-style license
// that can be found in the LICENSE file exposed on Github (readium) in the project repository.

// Package rwpm holds the Readium Web Publication Manifest model served to reading
// systems, plus the locators and media overlays built from it.
package rwpm

import (
	"encoding/json"
	"strings"
)

const (
	ContentTypeManifest = "application/webpub+json"

	ContextWebPub = "https://readium.org/webpub-manifest/context.jsonld"
)

// PublicationType drives the presentation defaults of a publication
type PublicationType string

const (
	TypeEPUB   PublicationType = "epub"
	TypeCBZ    PublicationType = "cbz"
	TypeWebPub PublicationType = "webpub"
)

// LayoutStyle is the ReadiumCSS flavour selected for a publication
type LayoutStyle string

const (
	StyleLTR           LayoutStyle = "ltr"
	StyleRTL           LayoutStyle = "rtl"
	StyleCJKVertical   LayoutStyle = "cjk-vertical"
	StyleCJKHorizontal LayoutStyle = "cjk-horizontal"
)

// Publication = Readium manifest
type Publication struct {
	Context      MultiString `json:"@context,omitempty"`
	Metadata     Metadata    `json:"metadata"`
	Links        []Link      `json:"links"`
	ReadingOrder []Link      `json:"readingOrder"`
	Resources    []Link      `json:"resources,omitempty"`
	TOC          []Link      `json:"toc,omitempty"`
	PageList     []Link      `json:"page-list,omitempty"`
	Landmarks    []Link      `json:"landmarks,omitempty"`
	LOI          []Link      `json:"loi,omitempty"` //List of illustrations
	LOA          []Link      `json:"loa,omitempty"` //List of audio files
	LOV          []Link      `json:"lov,omitempty"` //List of videos
	LOT          []Link      `json:"lot,omitempty"` //List of tables

	Type        PublicationType `json:"-"`
	Version     float64         `json:"-"`
	LayoutStyle LayoutStyle     `json:"-"`
	// Preset lists the user settings a reading system should force or disable
	Preset map[string]bool `json:"-"`
}

// Link object used in collections and links
type Link struct {
	Href       string      `json:"href"`
	Templated  bool        `json:"templated,omitempty"`
	Type       string      `json:"type,omitempty"`
	Title      string      `json:"title,omitempty"`
	Rel        MultiString `json:"rel,omitempty"`
	Height     int         `json:"height,omitempty"`
	Width      int         `json:"width,omitempty"`
	Duration   float64     `json:"duration,omitempty"`
	Bitrate    int         `json:"bitrate,omitempty"`
	Properties *Properties `json:"properties,omitempty"`
	Children   []Link      `json:"children,omitempty"`

	// MediaOverlays is the synchronized narration of the resource, served apart
	MediaOverlays *MediaOverlays `json:"-"`
}

// Manifest serializes the publication
func (publication *Publication) Manifest() ([]byte, error) {
	return json.Marshal(publication)
}

// Cover returns the link relative to the cover
func (publication *Publication) Cover() (*Link, bool) {
	return publication.LinkWithRel("cover")
}

// NavDoc returns the link relative to the navigation document
func (publication *Publication) NavDoc() (*Link, bool) {
	return publication.LinkWithRel("contents")
}

// LinkWithRel returns the first link which has a specific relation
func (publication *Publication) LinkWithRel(rel string) (*Link, bool) {
	for _, links := range [][]Link{publication.Resources, publication.ReadingOrder, publication.Links} {
		for i := range links {
			if links[i].HasRel(rel) {
				return &links[i], true
			}
		}
	}
	return nil, false
}

// LinkWithHref resolves a resource path against the reading order, then the resources
func (publication *Publication) LinkWithHref(href string) (*Link, bool) {
	href = strings.TrimPrefix(href, "/")
	for _, links := range [][]Link{publication.ReadingOrder, publication.Resources, publication.Links} {
		for i := range links {
			if strings.TrimPrefix(links[i].Href, "/") == href {
				return &links[i], true
			}
		}
	}
	return nil, false
}

// LinksWithHref returns every reading order and resource entry for a path, so that
// copies of the same resource can be updated together
func (publication *Publication) LinksWithHref(href string) []*Link {
	href = strings.TrimPrefix(href, "/")
	var found []*Link
	for _, links := range [][]Link{publication.ReadingOrder, publication.Resources} {
		for i := range links {
			if strings.TrimPrefix(links[i].Href, "/") == href {
				found = append(found, &links[i])
			}
		}
	}
	return found
}

// AddLink Adds a link to a publication
func (publication *Publication) AddLink(linkType string, rel []string, url string, templated bool) {
	link := Link{
		Href:      url,
		Type:      linkType,
		Templated: templated,
	}
	if len(rel) > 0 {
		link.Rel = rel
	}
	publication.Links = append(publication.Links, link)
}

// HasMediaOverlays tells whether at least one reading order item is narrated
func (publication *Publication) HasMediaOverlays() bool {
	for _, l := range publication.ReadingOrder {
		if l.MediaOverlays != nil && len(l.MediaOverlays.Nodes) > 0 {
			return true
		}
	}
	return false
}

// HasRel checks the link relations
func (link *Link) HasRel(rel string) bool {
	for _, r := range link.Rel {
		if r == rel {
			return true
		}
	}
	return false
}

// AddRel adds a relation to a Link
func (link *Link) AddRel(rel string) {
	if !link.HasRel(rel) {
		link.Rel = append(link.Rel, rel)
	}
}

// Props returns the link properties, creating them if needed
func (link *Link) Props() *Properties {
	if link.Properties == nil {
		link.Properties = &Properties{}
	}
	return link.Properties
}

// IsHTML tells whether the resource is a markup document
func (link *Link) IsHTML() bool {
	switch link.Type {
	case "application/xhtml+xml", "text/html", "application/html":
		return true
	}
	return false
}
