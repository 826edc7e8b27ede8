// Copyright 2025 Readium Foundation. All rights reserved.
// Use of this source code is governed by a BSD-style license
// that can be found in the LICENSE file exposed on Github (readium) in the project repository.

package epub

import (
	"strings"

	"github.com/readium/readium-streamer/epub/opf"
	"github.com/readium/readium-streamer/logger"
	"github.com/readium/readium-streamer/rwpm"
)

// parseManifest fills the resources with every manifest item and the reading order
// with copies of the linear spine items, in spine order
func parseManifest(pub *rwpm.Publication, pkg opf.Package, opfPath string, md *metadataParser, log logger.StdLogger) {
	byID := make(map[string]int, len(pkg.Manifest.Items))

	for _, item := range pkg.Manifest.Items {
		link := rwpm.Link{
			Href: resolveHref(opfPath, item.Href),
			Type: item.MediaType,
		}
		for _, p := range strings.Fields(item.Properties) {
			switch p {
			case "nav":
				link.AddRel("contents")
			case "cover-image":
				link.AddRel("cover")
			case "scripted", "mathml", "svg", "remote-resources", "switch":
				link.Props().Contains = append(link.Props().Contains, p)
			}
		}
		if md.coverID != "" && item.ID == md.coverID {
			link.AddRel("cover")
		}
		if item.MediaOverlay != "" {
			if smilItem, ok := pkg.Manifest.ItemWithID(item.MediaOverlay); ok {
				link.Props().MediaOverlay = resolveHref(opfPath, smilItem.Href)
				link.Duration = md.durations[smilItem.ID]
			} else {
				log.Warnf("media overlay %s of %s is not declared", item.MediaOverlay, item.Href)
			}
		}
		if d, ok := md.durations[item.ID]; ok && link.Duration == 0 {
			link.Duration = d
		}

		byID[item.ID] = len(pub.Resources)
		pub.Resources = append(pub.Resources, link)
	}

	for _, ref := range pkg.Spine.ItemRefs {
		i, ok := byID[ref.IDRef]
		if !ok {
			log.Warnf("spine item %s is not declared in the manifest", ref.IDRef)
			continue
		}
		if !ref.IsLinear() {
			continue
		}
		link := copyLink(pub.Resources[i])
		applySpineProperties(&link, ref.Properties)
		pub.ReadingOrder = append(pub.ReadingOrder, link)
	}
}

func copyLink(l rwpm.Link) rwpm.Link {
	c := l
	c.Rel = append(rwpm.MultiString(nil), l.Rel...)
	if l.Properties != nil {
		p := *l.Properties
		p.Contains = append([]string(nil), l.Properties.Contains...)
		if l.Properties.Encrypted != nil {
			e := *l.Properties.Encrypted
			p.Encrypted = &e
		}
		c.Properties = &p
	}
	return c
}

// applySpineProperties maps itemref overrides on the reading order link
func applySpineProperties(link *rwpm.Link, properties string) {
	for _, p := range strings.Fields(properties) {
		switch {
		case p == "page-spread-left" || p == "rendition:page-spread-left":
			link.Props().Page = "left"
		case p == "page-spread-right" || p == "rendition:page-spread-right":
			link.Props().Page = "right"
		case p == "page-spread-center" || p == "rendition:page-spread-center":
			link.Props().Page = "center"
		case p == "rendition:layout-pre-paginated":
			link.Props().Layout = "fixed"
		case p == "rendition:layout-reflowable":
			link.Props().Layout = "reflowable"
		case strings.HasPrefix(p, "rendition:spread-"):
			spread := strings.TrimPrefix(p, "rendition:spread-")
			if spread == "portrait" {
				spread = "both"
			}
			link.Props().Spread = spread
		case strings.HasPrefix(p, "rendition:orientation-"):
			link.Props().Orientation = strings.TrimPrefix(p, "rendition:orientation-")
		case strings.HasPrefix(p, "rendition:flow-"):
			link.Props().Overflow = strings.TrimPrefix(p, "rendition:flow-")
		}
	}
}
