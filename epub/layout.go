// Copyright 2025 Readium Foundation. All rights reserved.
// Use of this source code is governed by a BSD-style license
// that can be found in the LICENSE file exposed on Github (readium) in the project repository.

package epub

import (
	"golang.org/x/text/language"

	"github.com/readium/readium-streamer/rwpm"
)

// userSettingsUIPreset lists, per layout style, the user settings a reading system
// should not offer
var userSettingsUIPreset = map[rwpm.LayoutStyle]map[string]bool{
	rwpm.StyleLTR: {
		"hyphens":   false,
		"ligatures": false,
	},
	rwpm.StyleRTL: {
		"hyphens":       false,
		"wordSpacing":   false,
		"letterSpacing": false,
		"ligatures":     true,
	},
	rwpm.StyleCJKVertical: {
		"scroll":        true,
		"columnCount":   false,
		"textAlignment": false,
		"hyphens":       false,
		"paraIndent":    false,
		"wordSpacing":   false,
		"letterSpacing": false,
	},
	rwpm.StyleCJKHorizontal: {
		"textAlignment": false,
		"hyphens":       false,
		"paraIndent":    false,
		"wordSpacing":   false,
		"letterSpacing": false,
	},
}

var forceScrollPreset = map[string]bool{"scroll": true}

type langType int

const (
	langOther langType = iota
	langCJK
	langAFH
)

func languageType(langs []string) langType {
	for _, l := range langs {
		tag, err := language.Parse(l)
		if err != nil {
			continue
		}
		base, _ := tag.Base()
		switch base.String() {
		case "zh", "ja", "ko":
			return langCJK
		case "ar", "fa", "he":
			return langAFH
		}
	}
	return langOther
}

// LayoutStyleFor selects the ReadiumCSS flavour from the languages and the page
// progression direction
func LayoutStyleFor(langs []string, direction string) rwpm.LayoutStyle {
	rtl := direction == "rtl"
	switch languageType(langs) {
	case langAFH:
		return rwpm.StyleRTL
	case langCJK:
		if rtl {
			return rwpm.StyleCJKVertical
		}
		return rwpm.StyleCJKHorizontal
	}
	if rtl {
		return rwpm.StyleRTL
	}
	return rwpm.StyleLTR
}

// SetLayoutStyle records the layout style and the matching user settings preset
func SetLayoutStyle(pub *rwpm.Publication) {
	pub.LayoutStyle = LayoutStyleFor(pub.Metadata.Language, pub.Metadata.Direction)
	if pub.Type == rwpm.TypeWebPub {
		pub.Preset = copyPreset(forceScrollPreset)
		return
	}
	pub.Preset = copyPreset(userSettingsUIPreset[pub.LayoutStyle])
}

func copyPreset(p map[string]bool) map[string]bool {
	c := make(map[string]bool, len(p))
	for k, v := range p {
		c[k] = v
	}
	return c
}
