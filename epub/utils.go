// Copyright 2025 Readium Foundation. All rights reserved.
// Use of this source code is governed by a BSD-style license
// that can be found in the LICENSE file exposed on Github (readium) in the project repository.

package epub

import (
	"net/url"
	"path"
	"strings"
)

// resolveHref makes a reference found in baseFile relative to the container root.
// Escapes are decoded and the fragment is kept.
func resolveHref(baseFile, href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}
	if u, err := url.Parse(href); err == nil && u.Scheme != "" {
		return href
	}

	frag := ""
	if i := strings.Index(href, "#"); i >= 0 {
		href, frag = href[:i], href[i:]
	}
	if u, err := url.PathUnescape(href); err == nil {
		href = u
	}
	if href == "" {
		return strings.TrimPrefix(baseFile, "/") + frag
	}
	if strings.HasPrefix(href, "/") {
		return strings.TrimPrefix(path.Clean(href), "/") + frag
	}
	return strings.TrimPrefix(path.Join(path.Dir(baseFile), href), "/") + frag
}

func normalizeSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
