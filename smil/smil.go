// Copyright 2025 Readium Foundation. All rights reserved.
// Use of this source code is governed by a BSD-style license
// that can be found in the LICENSE file exposed on Github (readium) in the project repository.

// Package smil reads EPUB media overlay documents.
package smil

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"net/url"
	"path"
	"strings"

	"golang.org/x/net/html/charset"

	"github.com/readium/readium-streamer/rwpm"
)

const ContentType = "application/smil+xml"

type element struct {
	XMLName  xml.Name
	Attrs    []xml.Attr `xml:",any,attr"`
	Children []element  `xml:",any"`
}

func (e element) attr(local string) string {
	for _, a := range e.Attrs {
		if a.Name.Local == local {
			return strings.TrimSpace(a.Value)
		}
	}
	return ""
}

func (e element) child(local string) (element, bool) {
	for _, c := range e.Children {
		if c.XMLName.Local == local {
			return c, true
		}
	}
	return element{}, false
}

// Parse builds the narration tree of a SMIL document. References are resolved
// against smilPath, the location of the document in the container.
func Parse(data []byte, smilPath string) (*rwpm.MediaOverlays, error) {
	var root element
	dec := xml.NewDecoder(bytes.NewReader(data))
	// deal with non utf-8 xml files
	dec.CharsetReader = charset.NewReaderLabel
	if err := dec.Decode(&root); err != nil {
		return nil, fmt.Errorf("invalid smil document %s: %w", smilPath, err)
	}
	if root.XMLName.Local != "smil" {
		return nil, fmt.Errorf("invalid smil document %s: root element is %s", smilPath, root.XMLName.Local)
	}
	body, ok := root.child("body")
	if !ok {
		return nil, fmt.Errorf("invalid smil document %s: no body", smilPath)
	}

	nodes, err := parseChildren(body, smilPath)
	if err != nil {
		return nil, err
	}
	return &rwpm.MediaOverlays{Nodes: nodes}, nil
}

func parseChildren(e element, smilPath string) ([]rwpm.MediaOverlayNode, error) {
	var nodes []rwpm.MediaOverlayNode
	for _, c := range e.Children {
		switch c.XMLName.Local {
		case "seq":
			children, err := parseChildren(c, smilPath)
			if err != nil {
				return nil, err
			}
			node := rwpm.MediaOverlayNode{
				Text:     resolve(smilPath, c.attr("textref")),
				Role:     append([]string{"section"}, strings.Fields(c.attr("type"))...),
				Children: children,
			}
			nodes = append(nodes, node)
		case "par":
			node, err := parsePar(c, smilPath)
			if err != nil {
				return nil, err
			}
			nodes = append(nodes, node)
		}
	}
	return nodes, nil
}

func parsePar(par element, smilPath string) (rwpm.MediaOverlayNode, error) {
	var node rwpm.MediaOverlayNode
	if t := par.attr("type"); t != "" {
		node.Role = strings.Fields(t)
	}
	if text, ok := par.child("text"); ok {
		node.Text = resolve(smilPath, text.attr("src"))
	}
	audio, ok := par.child("audio")
	if !ok {
		return node, nil
	}
	src := resolve(smilPath, audio.attr("src"))
	if src == "" {
		return node, nil
	}

	begin, end := 0.0, -1.0
	if v := audio.attr("clipBegin"); v != "" {
		b, err := ParseClockValue(v)
		if err != nil {
			return node, fmt.Errorf("%s: %w", smilPath, err)
		}
		begin = b
	}
	if v := audio.attr("clipEnd"); v != "" {
		e, err := ParseClockValue(v)
		if err != nil {
			return node, fmt.Errorf("%s: %w", smilPath, err)
		}
		end = e
	}

	node.Audio = src + "#t=" + formatSeconds(begin)
	if end >= 0 {
		node.Audio += "," + formatSeconds(end)
	}
	return node, nil
}

// resolve makes a reference relative to the container root, keeping its fragment
func resolve(base, href string) string {
	if href == "" {
		return ""
	}
	frag := ""
	if i := strings.Index(href, "#"); i >= 0 {
		href, frag = href[:i], href[i:]
	}
	if u, err := url.PathUnescape(href); err == nil {
		href = u
	}
	if href == "" {
		return base + frag
	}
	return strings.TrimPrefix(path.Join(path.Dir(base), href), "/") + frag
}
