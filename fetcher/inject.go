// Copyright 2025 Readium Foundation. All rights reserved.
// Use of this source code is governed by a BSD-style license
// that can be found in the LICENSE file exposed on Github (readium) in the project repository.

package fetcher

import (
	"encoding/json"
	"fmt"
	"html"
	"os"
	"path"
	"regexp"
	"strings"

	"github.com/readium/readium-streamer/logger"
	"github.com/readium/readium-streamer/parser"
	"github.com/readium/readium-streamer/rwpm"
)

var (
	headStart = regexp.MustCompile(`(?i)<head(\s[^>]*)?>`)
	headEnd   = regexp.MustCompile(`(?i)</head\s*>`)
	htmlStart = regexp.MustCompile(`(?i)<html(\s[^>]*)?>`)
	dirAttr   = regexp.MustCompile(`(?i)\sdir\s*=`)
	styleAttr = regexp.MustCompile(`(?i)\sstyle\s*=\s*("[^"]*"|'[^']*')`)
)

// Scripts are added to every injected document
var Scripts = []string{"touchHandling.js", "utils.js"}

// UserProperty is a reader setting applied as a CSS custom property
type UserProperty struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// injectFilter adds the reader styles and scripts to the documents of the reading
// order. The markup is spliced as text so that XHTML stays well formed.
type injectFilter struct {
	userPropertiesPath string
	fonts              []string
	log                logger.StdLogger
}

func (inj *injectFilter) Accepts(link *rwpm.Link, box *parser.Box) bool {
	if !link.IsHTML() {
		return false
	}
	for _, l := range box.Publication.ReadingOrder {
		if l.Href == link.Href {
			return true
		}
	}
	return false
}

func (inj *injectFilter) Apply(data []byte, link *rwpm.Link, box *parser.Box) ([]byte, error) {
	doc := string(data)
	pub := box.Publication
	style := pub.LayoutStyle
	if style == "" {
		style = rwpm.StyleLTR
	}

	before := fmt.Sprintf("/styles/%s-before.css", style)
	if strings.Contains(doc, before) {
		return data, nil
	}

	var end strings.Builder
	for _, s := range Scripts {
		fmt.Fprintf(&end, "<script type=\"text/javascript\" src=\"/scripts/%s\"></script>\n", s)
	}

	if fixedLayout(link, pub) {
		return []byte(insertBeforeHeadEnd(doc, end.String())), nil
	}

	start := fmt.Sprintf("<link rel=\"stylesheet\" type=\"text/css\" href=\"%s\"/>\n", before)
	end.WriteString(fmt.Sprintf("<link rel=\"stylesheet\" type=\"text/css\" href=\"/styles/%s-after.css\"/>\n", style))
	end.WriteString(fontFaces(inj.fonts))

	doc = insertAfterHeadStart(doc, start)
	doc = insertBeforeHeadEnd(doc, end.String())
	doc = decorateHTML(doc, style == rwpm.StyleRTL, inj.userProperties())
	return []byte(doc), nil
}

func fixedLayout(link *rwpm.Link, pub *rwpm.Publication) bool {
	if link.Properties != nil && link.Properties.Layout != "" {
		return link.Properties.Layout == "fixed"
	}
	return pub.Metadata.Rendition != nil && pub.Metadata.Rendition.Layout == "fixed"
}

func fontFaces(fonts []string) string {
	if len(fonts) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("<style type=\"text/css\">\n")
	for _, f := range fonts {
		family := strings.TrimSuffix(f, path.Ext(f))
		fmt.Fprintf(&b, "@font-face { font-family: \"%s\"; src: url(\"/fonts/%s\"); }\n", family, f)
	}
	b.WriteString("</style>\n")
	return b.String()
}

// insertAfterHeadStart adds markup at the start of the head, creating the head after
// the html tag when the document has none
func insertAfterHeadStart(doc, markup string) string {
	if loc := headStart.FindStringIndex(doc); loc != nil {
		return doc[:loc[1]] + "\n" + markup + doc[loc[1]:]
	}
	if loc := htmlStart.FindStringIndex(doc); loc != nil {
		return doc[:loc[1]] + "\n<head>\n" + markup + "</head>" + doc[loc[1]:]
	}
	return doc
}

func insertBeforeHeadEnd(doc, markup string) string {
	if loc := headEnd.FindStringIndex(doc); loc != nil {
		return doc[:loc[0]] + markup + doc[loc[0]:]
	}
	if loc := htmlStart.FindStringIndex(doc); loc != nil {
		return doc[:loc[1]] + "\n<head>\n" + markup + "</head>" + doc[loc[1]:]
	}
	return doc
}

// decorateHTML sets the direction and the user settings on the html element
func decorateHTML(doc string, rtl bool, props []UserProperty) string {
	loc := htmlStart.FindStringIndex(doc)
	if loc == nil {
		return doc
	}
	tag := doc[loc[0]:loc[1]]
	if rtl && !dirAttr.MatchString(tag) {
		tag = tag[:len("<html")] + " dir=\"rtl\"" + tag[len("<html"):]
	}
	if len(props) > 0 {
		var decls []string
		for _, p := range props {
			decls = append(decls, p.Name+": "+p.Value)
		}
		css := html.EscapeString(strings.Join(decls, "; "))
		if m := styleAttr.FindStringSubmatchIndex(tag); m != nil {
			value := tag[m[2]+1 : m[3]-1]
			if value != "" && !strings.HasSuffix(strings.TrimSpace(value), ";") {
				value += ";"
			}
			tag = tag[:m[2]+1] + value + css + tag[m[3]-1:]
		} else {
			tag = tag[:len(tag)-1] + " style=\"" + css + "\">"
		}
	}
	return doc[:loc[0]] + tag + doc[loc[1]:]
}

// userProperties reads the settings file on each call, the reader may rewrite it
// while the publication is open
func (inj *injectFilter) userProperties() []UserProperty {
	if inj.userPropertiesPath == "" {
		return nil
	}
	data, err := os.ReadFile(inj.userPropertiesPath)
	if err != nil {
		inj.log.Debugf("no user properties: %v", err)
		return nil
	}
	var props []UserProperty
	if err := json.Unmarshal(data, &props); err != nil {
		inj.log.Warnf("ignoring malformed user properties %s: %v", inj.userPropertiesPath, err)
		return nil
	}
	return props
}
