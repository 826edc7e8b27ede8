// Copyright 2025 Readium Foundation. All rights reserved.
// Use of this source code is governed by a BSD-style license
// that can be found in the LICENSE file exposed on Github (readium) in the project repository.

package epub

import (
	"strconv"
	"strings"
	"time"

	"github.com/beevik/etree"

	"github.com/readium/readium-streamer/epub/opf"
	"github.com/readium/readium-streamer/rwpm"
	"github.com/readium/readium-streamer/smil"
)

// metadataParser reads the <metadata> element. EPUB 3 refinements are indexed by
// the id they refine.
type metadataParser struct {
	md          *etree.Element
	pkg         opf.Package
	version     float64
	metas       []*etree.Element
	refines     map[string][]*etree.Element
	defaultLang string

	// coverID is the manifest id of the EPUB 2 cover, durations the media:duration
	// refinements by manifest id
	coverID   string
	durations map[string]float64
}

func newMetadataParser(pkg opf.Package, version float64) *metadataParser {
	p := &metadataParser{
		md:        pkg.Metadata,
		pkg:       pkg,
		version:   version,
		refines:   make(map[string][]*etree.Element),
		durations: make(map[string]float64),
	}
	if p.md == nil {
		p.md = etree.NewElement("metadata")
	}
	p.metas = p.md.SelectElements("meta")
	for _, m := range p.metas {
		if r := attr(m, "refines"); r != "" {
			id := strings.TrimPrefix(r, "#")
			p.refines[id] = append(p.refines[id], m)
		}
	}
	if langs := p.md.SelectElements("language"); len(langs) > 0 {
		p.defaultLang = text(langs[0])
	}
	return p
}

// attr returns an attribute by local name, whatever its prefix
func attr(e *etree.Element, key string) string {
	for _, a := range e.Attr {
		if a.Key == key {
			return strings.TrimSpace(a.Value)
		}
	}
	return ""
}

func text(e *etree.Element) string {
	return strings.TrimSpace(e.Text())
}

// refinement returns the metas refining an element with a given property
func (p *metadataParser) refinement(id, property string) []*etree.Element {
	if id == "" {
		return nil
	}
	var found []*etree.Element
	for _, m := range p.refines[id] {
		if attr(m, "property") == property {
			found = append(found, m)
		}
	}
	return found
}

func (p *metadataParser) firstRefinement(id, property string) string {
	if r := p.refinement(id, property); len(r) > 0 {
		return text(r[0])
	}
	return ""
}

// meta returns the text of the first global meta with a given property
func (p *metadataParser) meta(property string) (string, bool) {
	for _, m := range p.metas {
		if attr(m, "property") == property && attr(m, "refines") == "" {
			return text(m), true
		}
	}
	return "", false
}

func (p *metadataParser) fill(m *rwpm.Metadata) {
	m.RDFType = "http://schema.org/Book"
	m.Title = p.mainTitle()
	if sortAs := p.firstRefinement(p.mainTitleID(), "file-as"); sortAs != "" {
		m.SortAs = sortAs
	}
	m.Identifier = p.uniqueIdentifier()
	for _, l := range p.md.SelectElements("language") {
		if t := text(l); t != "" {
			m.Language = append(m.Language, t)
		}
	}
	if e := p.md.SelectElement("description"); e != nil {
		m.Description = text(e)
	}
	if e := p.md.SelectElement("rights"); e != nil {
		m.Rights = text(e)
	}
	if e := p.md.SelectElement("source"); e != nil {
		m.Source = text(e)
	}
	p.dates(m)
	m.Subject = p.subjects()
	m.Rendition = p.rendition()
	p.contributors(m)
	m.BelongsTo = p.collections()
	p.mediaDurations(m)

	switch dir := p.pkg.Spine.PageProgressionDirection; dir {
	case "rtl", "ltr":
		m.Direction = dir
	default:
		m.Direction = "auto"
	}

	for _, meta := range p.metas {
		if attr(meta, "name") == "cover" {
			p.coverID = attr(meta, "content")
		}
	}
}

func (p *metadataParser) mainTitleID() string {
	titles := p.md.SelectElements("title")
	for _, t := range titles {
		id := attr(t, "id")
		for _, r := range p.refinement(id, "title-type") {
			if text(r) == "main" {
				return id
			}
		}
	}
	if len(titles) > 0 {
		return attr(titles[0], "id")
	}
	return ""
}

// mainTitle keeps the first title as single string, the alternate scripts of the
// main title feeding the localized values
func (p *metadataParser) mainTitle() rwpm.MultiLanguage {
	var title rwpm.MultiLanguage
	titles := p.md.SelectElements("title")
	if len(titles) == 0 {
		return title
	}
	title.SingleString = text(titles[0])

	main := titles[0]
	id := p.mainTitleID()
	for _, t := range titles {
		if id != "" && attr(t, "id") == id {
			main = t
			break
		}
	}
	title.MultiString = p.multiString(main)
	return title
}

// multiString collects the alternate-script refinements of an element, the element
// itself being stored under its own language
func (p *metadataParser) multiString(e *etree.Element) map[string]string {
	values := make(map[string]string)
	for _, alt := range p.refinement(attr(e, "id"), "alternate-script") {
		lang := attr(alt, "lang")
		if lang != "" && text(alt) != "" {
			values[lang] = text(alt)
		}
	}
	if len(values) == 0 {
		return nil
	}
	lang := attr(e, "lang")
	if lang == "" {
		lang = p.defaultLang
	}
	values[lang] = text(e)
	return values
}

func (p *metadataParser) uniqueIdentifier() string {
	identifiers := p.md.SelectElements("identifier")
	if len(identifiers) == 0 {
		return ""
	}
	if len(identifiers) > 1 && p.pkg.UniqueIdentifier != "" {
		for _, id := range identifiers {
			if attr(id, "id") == p.pkg.UniqueIdentifier {
				return text(id)
			}
		}
	}
	return text(identifiers[0])
}

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
	"2006-01",
	"2006",
}

func parseDate(s string) *time.Time {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return &t
		}
	}
	return nil
}

func (p *metadataParser) dates(m *rwpm.Metadata) {
	if v, ok := p.meta("dcterms:modified"); ok {
		m.Modified = parseDate(v)
	}
	for _, d := range p.md.SelectElements("date") {
		switch attr(d, "event") {
		case "modification":
			if m.Modified == nil {
				m.Modified = parseDate(text(d))
			}
		case "", "publication":
			if m.PublicationDate == nil {
				m.PublicationDate = parseDate(text(d))
			}
		}
	}
}

func (p *metadataParser) subjects() []rwpm.Subject {
	var subjects []rwpm.Subject
	for _, s := range p.md.SelectElements("subject") {
		name := text(s)
		if name == "" {
			continue
		}
		subject := rwpm.Subject{
			Name:   name,
			Scheme: attr(s, "authority"),
			Code:   attr(s, "term"),
		}
		id := attr(s, "id")
		if v := p.firstRefinement(id, "authority"); v != "" {
			subject.Scheme = v
		}
		if v := p.firstRefinement(id, "term"); v != "" {
			subject.Code = v
		}
		if v := p.firstRefinement(id, "file-as"); v != "" {
			subject.SortAs = v
		}
		subjects = append(subjects, subject)
	}
	return subjects
}

// rendition reads the global rendition properties, layout defaulting to reflowable
func (p *metadataParser) rendition() *rwpm.Rendition {
	r := &rwpm.Rendition{Layout: "reflowable"}
	if len(p.metas) == 0 {
		return r
	}
	if v, ok := p.meta("rendition:layout"); ok && v == "pre-paginated" {
		r.Layout = "fixed"
	}
	if v, ok := p.meta("rendition:flow"); ok {
		switch v {
		case "paginated":
			r.Flow = "paginated"
		case "scrolled-continuous":
			r.Flow = "continuous"
		case "scrolled-doc":
			r.Flow = "document"
		default:
			r.Flow = "auto"
		}
	}
	if v, ok := p.meta("rendition:orientation"); ok {
		r.Orientation = v
	}
	if v, ok := p.meta("rendition:spread"); ok {
		if v == "portrait" {
			v = "both"
		}
		r.Spread = v
	}
	if v, ok := p.meta("rendition:viewport"); ok {
		r.Viewport = v
	}
	return r
}

func (p *metadataParser) contributors(m *rwpm.Metadata) {
	var elements []*etree.Element
	for _, e := range p.md.ChildElements() {
		switch e.Tag {
		case "creator", "publisher", "contributor":
			elements = append(elements, e)
		}
	}
	if p.version >= 3 {
		for _, meta := range p.metas {
			switch attr(meta, "property") {
			case "dcterms:creator", "dcterms:publisher", "dcterms:contributor":
				if attr(meta, "refines") == "" {
					elements = append(elements, meta)
				}
			}
		}
	}

	for _, e := range elements {
		name := text(e)
		if name == "" {
			continue
		}
		c := rwpm.Contributor{
			Name:   rwpm.MultiLanguage{SingleString: name, MultiString: p.multiString(e)},
			SortAs: attr(e, "file-as"),
		}
		id := attr(e, "id")
		if v := p.firstRefinement(id, "file-as"); v != "" {
			c.SortAs = v
		}

		var roles []string
		if r := attr(e, "role"); r != "" {
			roles = append(roles, r)
		}
		for _, r := range p.refinement(id, "role") {
			roles = append(roles, text(r))
		}

		if len(roles) == 0 {
			switch {
			case e.Tag == "creator" || attr(e, "property") == "dcterms:creator":
				m.Author = append(m.Author, c)
			case e.Tag == "publisher" || attr(e, "property") == "dcterms:publisher":
				m.Publisher = append(m.Publisher, c)
			default:
				m.Contributor = append(m.Contributor, c)
			}
			continue
		}
		for _, role := range roles {
			switch role {
			case "aut":
				m.Author = append(m.Author, c)
			case "trl":
				m.Translator = append(m.Translator, c)
			case "art":
				m.Artist = append(m.Artist, c)
			case "edt":
				m.Editor = append(m.Editor, c)
			case "ill":
				m.Illustrator = append(m.Illustrator, c)
			case "clr":
				m.Colorist = append(m.Colorist, c)
			case "nrt":
				m.Narrator = append(m.Narrator, c)
			case "pbl":
				m.Publisher = append(m.Publisher, c)
			default:
				generic := c
				generic.Role = role
				m.Contributor = append(m.Contributor, generic)
			}
		}
	}
}

func (p *metadataParser) collections() *rwpm.BelongsTo {
	var b rwpm.BelongsTo
	for _, meta := range p.metas {
		if attr(meta, "property") != "belongs-to-collection" || attr(meta, "refines") != "" {
			continue
		}
		id := attr(meta, "id")
		c := rwpm.Collection{
			Name:       text(meta),
			SortAs:     p.firstRefinement(id, "file-as"),
			Identifier: p.firstRefinement(id, "dcterms:identifier"),
		}
		if v, err := strconv.ParseFloat(p.firstRefinement(id, "group-position"), 64); err == nil {
			c.Position = v
		}
		if p.firstRefinement(id, "collection-type") == "series" {
			b.Series = append(b.Series, c)
		} else {
			b.Collection = append(b.Collection, c)
		}
	}

	// calibre series
	var series rwpm.Collection
	for _, meta := range p.metas {
		switch attr(meta, "name") {
		case "calibre:series":
			series.Name = attr(meta, "content")
		case "calibre:series_index":
			if v, err := strconv.ParseFloat(attr(meta, "content"), 64); err == nil {
				series.Position = v
			}
		}
	}
	if series.Name != "" {
		b.Series = append(b.Series, series)
	}

	if len(b.Series) == 0 && len(b.Collection) == 0 {
		return nil
	}
	return &b
}

// mediaDurations reads the publication duration and the per item durations
func (p *metadataParser) mediaDurations(m *rwpm.Metadata) {
	for _, meta := range p.metas {
		if attr(meta, "property") != "media:duration" {
			continue
		}
		seconds, err := smil.ParseClockValue(text(meta))
		if err != nil {
			continue
		}
		if refines := attr(meta, "refines"); refines != "" {
			p.durations[strings.TrimPrefix(refines, "#")] = seconds
		} else {
			m.Duration = seconds
		}
	}
}
