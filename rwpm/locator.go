// Copyright 2025 Readium Foundation. All rights reserved.
// Use of this source code is governed by a BSD-style license
// that can be found in the LICENSE file exposed on Github (readium) in the project repository.

package rwpm

// Locator points at a position in a resource, with the text around it
type Locator struct {
	Href      string      `json:"href"`
	Timestamp int64       `json:"timestamp"`
	Title     string      `json:"title"`
	Locations Locations   `json:"locations"`
	Text      LocatorText `json:"text"`
}

type Locations struct {
	CFI string `json:"cfi,omitempty"`
}

type LocatorText struct {
	Before    string `json:"before"`
	Highlight string `json:"highlight"`
	After     string `json:"after"`
}
