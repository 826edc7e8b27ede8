// Copyright 2025 Readium Foundation. All rights reserved.
// Use of this source code is governed by a BSD-style license
// that can be found in the LICENSE file exposed on Github (readium) in the project repository.

// Package search finds text in the documents of a publication and returns locators
// carrying content CFIs and the text around each match.
package search

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"
	"unicode/utf16"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/readium/readium-streamer/fetcher"
	"github.com/readium/readium-streamer/rwpm"
)

var ErrInvalidIndex = errors.New("spine index out of range")

// DefaultContext is the number of characters kept before and after a match
const DefaultContext = 30

type Options struct {
	Context int
	// MaxResults bounds the locators of a whole publication search, 0 means no limit
	MaxResults int
}

// textNode is a DOM text node with its CFI path and its position in the document text
type textNode struct {
	cfi   string
	start int // rune offset in the document text
	runes []rune
}

// Publication searches one reading order document, or all of them when spineIndex
// is negative
func Publication(f *fetcher.Fetcher, query string, spineIndex int, opts Options) ([]rwpm.Locator, error) {
	pub := f.Box().Publication
	links := pub.ReadingOrder
	if spineIndex >= 0 {
		if spineIndex >= len(links) {
			return nil, fmt.Errorf("%w: %d", ErrInvalidIndex, spineIndex)
		}
		links = links[spineIndex : spineIndex+1]
	}

	locators := []rwpm.Locator{}
	for i := range links {
		link := links[i]
		if !link.IsHTML() {
			continue
		}
		data, err := f.Data(link.Href)
		if err != nil {
			return nil, err
		}
		found, err := Resource(data, link, titleOf(pub, link), query, opts)
		if err != nil {
			return nil, err
		}
		locators = append(locators, found...)
		if opts.MaxResults > 0 && len(locators) >= opts.MaxResults {
			return locators[:opts.MaxResults], nil
		}
	}
	return locators, nil
}

// titleOf returns the title of the table of contents entry pointing at the document
func titleOf(pub *rwpm.Publication, link rwpm.Link) string {
	if link.Title != "" {
		return link.Title
	}
	var find func(links []rwpm.Link) string
	find = func(links []rwpm.Link) string {
		for _, l := range links {
			href := l.Href
			if i := strings.IndexByte(href, '#'); i >= 0 {
				href = href[:i]
			}
			if href == link.Href && l.Title != "" {
				return l.Title
			}
			if t := find(l.Children); t != "" {
				return t
			}
		}
		return ""
	}
	return find(pub.TOC)
}

// Resource searches a markup document. Matching ignores case, each locator CFI
// points at the first character of the match.
func Resource(data []byte, link rwpm.Link, title, query string, opts Options) ([]rwpm.Locator, error) {
	locators := []rwpm.Locator{}
	if !link.IsHTML() || strings.TrimSpace(query) == "" {
		return locators, nil
	}
	if opts.Context <= 0 {
		opts.Context = DefaultContext
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	root := doc.Find("html")
	if root.Length() == 0 {
		return locators, nil
	}

	var nodes []textNode
	var text []rune
	collect(root.Get(0), "", func(cfi string, s string) {
		r := []rune(s)
		nodes = append(nodes, textNode{cfi: cfi, start: len(text), runes: r})
		text = append(text, r...)
	})

	folded, origin := collapse(fold(text))
	needle, _ := collapse(fold([]rune(strings.TrimSpace(query))))
	now := time.Now().UnixMilli()

	for i := 0; i+len(needle) <= len(folded); {
		if !equalRunes(folded[i:i+len(needle)], needle) {
			i++
			continue
		}
		start, end := origin[i], origin[i+len(needle)-1]+1
		locators = append(locators, rwpm.Locator{
			Href:      link.Href,
			Timestamp: now,
			Title:     title,
			Locations: rwpm.Locations{CFI: cfiAt(nodes, start)},
			Text: rwpm.LocatorText{
				Before:    clean(text[max(0, start-opts.Context):start]),
				Highlight: string(text[start:end]),
				After:     clean(text[end:min(len(text), end+opts.Context)]),
			},
		})
		i += len(needle)
	}
	return locators, nil
}

// collect walks the body of the document in order, reporting text nodes with their
// CFI path. Element steps are even, text steps odd.
func collect(n *html.Node, path string, visit func(cfi, text string)) {
	elements := 0
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		switch c.Type {
		case html.ElementNode:
			elements++
			switch strings.ToLower(c.Data) {
			case "head", "script", "style", "noscript", "template":
				continue
			}
			step := fmt.Sprintf("%s/%d", path, elements*2)
			if id := attr(c, "id"); id != "" {
				step += "[" + id + "]"
			}
			collect(c, step, visit)
		case html.TextNode:
			if c.Data == "" {
				continue
			}
			visit(fmt.Sprintf("%s/%d", path, elements*2+1), c.Data)
		}
	}
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

// cfiAt returns the CFI of a character of the document text. Character offsets
// count UTF-16 code units.
func cfiAt(nodes []textNode, pos int) string {
	for _, n := range nodes {
		if pos < n.start+len(n.runes) {
			offset := len(utf16.Encode(n.runes[:pos-n.start]))
			return fmt.Sprintf("%s:%d", n.cfi, offset)
		}
	}
	return ""
}

func fold(r []rune) []rune {
	out := make([]rune, len(r))
	for i, c := range r {
		out[i] = unicode.ToLower(c)
	}
	return out
}

// collapse turns every run of white space into a single space. origin maps each
// kept rune to its index in r.
func collapse(r []rune) ([]rune, []int) {
	out := make([]rune, 0, len(r))
	origin := make([]int, 0, len(r))
	for i, c := range r {
		if unicode.IsSpace(c) {
			if len(out) > 0 && out[len(out)-1] == ' ' {
				continue
			}
			c = ' '
		}
		out = append(out, c)
		origin = append(origin, i)
	}
	return out, origin
}

func equalRunes(a, b []rune) bool {
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// clean collapses the white space of a context snippet
func clean(r []rune) string {
	s := string(r)
	var b strings.Builder
	space := false
	for _, c := range s {
		if unicode.IsSpace(c) {
			space = true
			continue
		}
		if space && b.Len() > 0 {
			b.WriteByte(' ')
		}
		space = false
		b.WriteRune(c)
	}
	if space && b.Len() > 0 {
		b.WriteByte(' ')
	}
	if len(r) > 0 && unicode.IsSpace(r[0]) {
		return " " + b.String()
	}
	return b.String()
}
