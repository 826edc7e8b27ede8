// Copyright 2025 Readium Foundation. All rights reserved.
// Use of this source code is governed by a BSD-style license
// that can be found in the LICENSE file exposed on Github (readium) in the project repository.

package rwpm

import "strings"

// MediaOverlays is the narration tree of a resource
type MediaOverlays struct {
	Nodes []MediaOverlayNode `json:"media-overlay"`
}

// MediaOverlayNode synchronizes a text fragment with an audio clip. Structural nodes
// only have a role and children.
type MediaOverlayNode struct {
	Text     string             `json:"text,omitempty"`
	Audio    string             `json:"audio,omitempty"`
	Role     []string           `json:"role,omitempty"`
	Children []MediaOverlayNode `json:"children,omitempty"`
}

// Fragment returns the fragment identifier of the text reference
func (n MediaOverlayNode) Fragment() string {
	if i := strings.Index(n.Text, "#"); i >= 0 {
		return n.Text[i+1:]
	}
	return ""
}

// Clips flattens the tree into the narrated nodes, in document order
func (m *MediaOverlays) Clips() []MediaOverlayNode {
	var clips []MediaOverlayNode
	var walk func(nodes []MediaOverlayNode)
	walk = func(nodes []MediaOverlayNode) {
		for _, n := range nodes {
			if n.Audio != "" {
				clips = append(clips, n)
			}
			walk(n.Children)
		}
	}
	if m != nil {
		walk(m.Nodes)
	}
	return clips
}
