// Copyright 2025 Readium Foundation. All rights reserved.
// Use of this source code is governed by a BSD-style license
// that can be found in the LICENSE file exposed on Github (readium) in the project repository.

package rwpm

import (
	"bytes"
	"encoding/json"
	"errors"
	"sort"
	"time"
)

// Metadata for the default context in WebPub
type Metadata struct {
	RDFType         string        `json:"@type,omitempty"` //Defaults to schema.org for EBook
	Title           MultiLanguage `json:"title"`
	SortAs          string        `json:"sortAs,omitempty"`
	Identifier      string        `json:"identifier,omitempty"`
	Author          Contributors  `json:"author,omitempty"`
	Translator      Contributors  `json:"translator,omitempty"`
	Editor          Contributors  `json:"editor,omitempty"`
	Artist          Contributors  `json:"artist,omitempty"`
	Illustrator     Contributors  `json:"illustrator,omitempty"`
	Colorist        Contributors  `json:"colorist,omitempty"`
	Narrator        Contributors  `json:"narrator,omitempty"`
	Contributor     Contributors  `json:"contributor,omitempty"`
	Publisher       Contributors  `json:"publisher,omitempty"`
	Imprint         Contributors  `json:"imprint,omitempty"`
	Language        []string      `json:"language,omitempty"`
	Modified        *time.Time    `json:"modified,omitempty"`
	PublicationDate *time.Time    `json:"published,omitempty"`
	Description     string        `json:"description,omitempty"`
	Direction       string        `json:"direction,omitempty"`
	Rendition       *Rendition    `json:"rendition,omitempty"`
	Source          string        `json:"source,omitempty"`
	Rights          string        `json:"rights,omitempty"`
	Subject         []Subject     `json:"subject,omitempty"`
	BelongsTo       *BelongsTo    `json:"belongs_to,omitempty"`
	Duration        float64       `json:"duration,omitempty"`
}

// Rendition holds the presentation hints of the publication
type Rendition struct {
	Layout      string `json:"layout,omitempty"`
	Flow        string `json:"flow,omitempty"`
	Orientation string `json:"orientation,omitempty"`
	Spread      string `json:"spread,omitempty"`
	Viewport    string `json:"viewport,omitempty"`
}

type Contributors []Contributor

func (c *Contributors) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		return nil
	}
	if len(b) == 0 {
		return errors.New("cannot parse a 0-length buffer")
	}

	if b[0] == '"' || b[0] == '{' {
		var contributor Contributor
		if err := json.Unmarshal(b, &contributor); err != nil {
			return err
		}
		*c = Contributors{contributor}
		return nil
	}

	var ctors []Contributor
	if err := json.Unmarshal(b, &ctors); err != nil {
		return err
	}
	*c = ctors
	return nil
}

// MarshalJSON writes a single contributor as an object, several as an array
func (c Contributors) MarshalJSON() ([]byte, error) {
	if len(c) == 1 {
		return json.Marshal(c[0])
	}
	return json.Marshal([]Contributor(c))
}

// Contributor construct used internally for all contributors
type Contributor struct {
	Name       MultiLanguage `json:"name"`
	SortAs     string        `json:"sortAs,omitempty"`
	Identifier string        `json:"identifier,omitempty"`
	Role       string        `json:"role,omitempty"`
}

type contributorAlias Contributor

func (c *Contributor) UnmarshalJSON(b []byte) error {
	var name string
	if err := json.Unmarshal(b, &name); err == nil {
		*c = Contributor{Name: MultiLanguage{SingleString: name}}
		return nil
	}
	var alias contributorAlias
	if err := json.Unmarshal(b, &alias); err != nil {
		return errors.New("expected a string or an object")
	}
	*c = Contributor(alias)
	return nil
}

// Properties object use to link properties
// Use also in Rendition for fxl
type Properties struct {
	Contains     []string   `json:"contains,omitempty"`
	Layout       string     `json:"layout,omitempty"`
	MediaOverlay string     `json:"media-overlay,omitempty"`
	Orientation  string     `json:"orientation,omitempty"`
	Overflow     string     `json:"overflow,omitempty"`
	Page         string     `json:"page,omitempty"`
	Spread       string     `json:"spread,omitempty"`
	Encrypted    *Encrypted `json:"encrypted,omitempty"`
}

// Encrypted contains metadata from encryption xml
type Encrypted struct {
	Scheme         string `json:"scheme,omitempty"`
	Profile        string `json:"profile,omitempty"`
	Algorithm      string `json:"algorithm,omitempty"`
	Compression    string `json:"compression,omitempty"`
	OriginalLength int64  `json:"originalLength,omitempty"`
}

// Subject as based on EPUB 3.1 and WePpub
type Subject struct {
	Name   string `json:"name"`
	SortAs string `json:"sortAs,omitempty"`
	Scheme string `json:"scheme,omitempty"`
	Code   string `json:"code,omitempty"`
}

// BelongsTo is a list of collections/series that a publication belongs to
type BelongsTo struct {
	Series     []Collection `json:"series,omitempty"`
	Collection []Collection `json:"collection,omitempty"`
}

// Collection construct used for collection/serie metadata
type Collection struct {
	Name       string  `json:"name"`
	SortAs     string  `json:"sortAs,omitempty"`
	Identifier string  `json:"identifier,omitempty"`
	Position   float64 `json:"position,omitempty"`
}

// MultiLanguage store the a basic string when we only have one lang
// Store in a hash by language for multiple string representation
type MultiLanguage struct {
	SingleString string
	MultiString  map[string]string
}

// MarshalJSON overwrite json marshalling for MultiLanguage
// when we have an entry in the Multi fields we use it
// otherwise we use the single string
func (m MultiLanguage) MarshalJSON() ([]byte, error) {
	if len(m.MultiString) > 0 {
		return json.Marshal(m.MultiString)
	}
	return json.Marshal(m.SingleString)
}

func (m *MultiLanguage) UnmarshalJSON(b []byte) error {
	if err := json.Unmarshal(b, &m.SingleString); err == nil {
		return nil
	}
	return json.Unmarshal(b, &m.MultiString)
}

// String returns the single string, or the value of the first language in
// alphabetical order
func (m MultiLanguage) String() string {
	if m.SingleString != "" || len(m.MultiString) == 0 {
		return m.SingleString
	}
	langs := make([]string, 0, len(m.MultiString))
	for l := range m.MultiString {
		langs = append(langs, l)
	}
	sort.Strings(langs)
	return m.MultiString[langs[0]]
}

// MultiString is a list of strings written as a bare string when it has one value
type MultiString []string

func (m MultiString) MarshalJSON() ([]byte, error) {
	if len(m) == 1 {
		return json.Marshal(m[0])
	}
	return json.Marshal([]string(m))
}

func (m *MultiString) UnmarshalJSON(b []byte) error {
	var single string
	if err := json.Unmarshal(b, &single); err == nil {
		*m = MultiString{single}
		return nil
	}
	var multi []string
	if err := json.Unmarshal(b, &multi); err != nil {
		return err
	}
	*m = multi
	return nil
}
