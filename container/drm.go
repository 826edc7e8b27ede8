// Copyright 2025 Readium Foundation. All rights reserved.
// Use of this source code is governed by a BSD-style license
// that can be found in the LICENSE file exposed on Github (readium) in the project repository.

package container

import (
	"bytes"
	"fmt"

	"github.com/readium/readium-streamer/drm"
	"github.com/readium/readium-streamer/license"
)

// ScanForDRM looks for a license document in the container. It returns nil
// without error when the publication is not protected.
func ScanForDRM(c Container) (*drm.DRM, error) {
	if !c.Exists(LicenseFile) {
		return nil, nil
	}
	doc, err := c.Read(LicenseFile)
	if err != nil {
		return nil, err
	}
	l, err := license.Parse(bytes.NewReader(doc))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", LicenseFile, err)
	}
	return drm.NewLCP(l.Encryption.Profile, doc), nil
}
