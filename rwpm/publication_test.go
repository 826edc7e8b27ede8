// Copyright 2025 Readium Foundation. All rights reserved.
// Use of this source code is governed by a BSD-style license
// that can be found in the LICENSE file exposed on Github (readium) in the project repository.

package rwpm

import (
	"encoding/json"
	"testing"
)

func samplePublication() Publication {
	return Publication{
		Context:  MultiString{ContextWebPub},
		Metadata: Metadata{Title: MultiLanguage{SingleString: "Moby Dick"}, Identifier: "urn:isbn:123"},
		ReadingOrder: []Link{
			{Href: "OEBPS/ch1.xhtml", Type: "application/xhtml+xml"},
			{Href: "OEBPS/ch2.xhtml", Type: "application/xhtml+xml"},
		},
		Resources: []Link{
			{Href: "OEBPS/ch1.xhtml", Type: "application/xhtml+xml"},
			{Href: "OEBPS/ch2.xhtml", Type: "application/xhtml+xml"},
			{Href: "OEBPS/cover.jpg", Type: "image/jpeg", Rel: MultiString{"cover"}},
			{Href: "OEBPS/nav.xhtml", Type: "application/xhtml+xml", Rel: MultiString{"contents"}},
		},
	}
}

func TestLinkLookup(t *testing.T) {
	p := samplePublication()

	l, ok := p.LinkWithHref("/OEBPS/ch2.xhtml")
	if !ok || l.Href != "OEBPS/ch2.xhtml" {
		t.Fatalf("ch2 not found")
	}
	if _, ok := p.LinkWithHref("OEBPS/missing.xhtml"); ok {
		t.Error("missing resource should not resolve")
	}

	cover, ok := p.Cover()
	if !ok || cover.Href != "OEBPS/cover.jpg" {
		t.Errorf("unexpected cover %v", cover)
	}
	nav, ok := p.NavDoc()
	if !ok || nav.Href != "OEBPS/nav.xhtml" {
		t.Errorf("unexpected nav %v", nav)
	}

	links := p.LinksWithHref("OEBPS/ch1.xhtml")
	if len(links) != 2 {
		t.Fatalf("expected reading order and resource entries, got %d", len(links))
	}
	for _, l := range links {
		l.Props().Encrypted = &Encrypted{Algorithm: "alg"}
	}
	if p.ReadingOrder[0].Properties.Encrypted.Algorithm != "alg" || p.Resources[0].Properties.Encrypted.Algorithm != "alg" {
		t.Error("both entries should be updated")
	}
}

func TestManifest(t *testing.T) {
	p := samplePublication()
	p.AddLink(ContentTypeManifest, []string{"self"}, "http://127.0.0.1:8989/book1/manifest.json", false)

	data, err := p.Manifest()
	if err != nil {
		t.Fatal(err)
	}
	var decoded map[string]interface{}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatal(err)
	}
	metadata := decoded["metadata"].(map[string]interface{})
	if metadata["identifier"] != "urn:isbn:123" {
		t.Errorf("unexpected identifier %v", metadata["identifier"])
	}
	links := decoded["links"].([]interface{})
	self := links[0].(map[string]interface{})
	if self["rel"] != "self" || self["type"] != ContentTypeManifest {
		t.Errorf("unexpected self link %v", self)
	}
}

func TestMediaOverlays(t *testing.T) {
	p := samplePublication()
	if p.HasMediaOverlays() {
		t.Error("no overlays expected")
	}
	p.ReadingOrder[0].MediaOverlays = &MediaOverlays{Nodes: []MediaOverlayNode{
		{Role: []string{"section"}, Children: []MediaOverlayNode{
			{Text: "ch1.xhtml#p1", Audio: "audio/ch1.mp3#t=0,1.5"},
			{Text: "ch1.xhtml#p2", Audio: "audio/ch1.mp3#t=1.5,3"},
		}},
	}}
	if !p.HasMediaOverlays() {
		t.Error("overlays expected")
	}
	clips := p.ReadingOrder[0].MediaOverlays.Clips()
	if len(clips) != 2 || clips[1].Fragment() != "p2" {
		t.Errorf("unexpected clips %v", clips)
	}
}
