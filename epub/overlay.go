// Copyright 2025 Readium Foundation. All rights reserved.
// Use of this source code is governed by a BSD-style license
// that can be found in the LICENSE file exposed on Github (readium) in the project repository.

package epub

import (
	"github.com/readium/readium-streamer/container"
	"github.com/readium/readium-streamer/logger"
	"github.com/readium/readium-streamer/rwpm"
	"github.com/readium/readium-streamer/smil"
)

// parseMediaOverlays loads the SMIL document of every narrated resource. A
// document shared by several resources is parsed once.
func parseMediaOverlays(c container.Container, pub *rwpm.Publication, log logger.StdLogger) {
	parsed := make(map[string]*rwpm.MediaOverlays)
	load := func(smilPath string) *rwpm.MediaOverlays {
		if mo, ok := parsed[smilPath]; ok {
			return mo
		}
		parsed[smilPath] = nil
		data, err := c.Read(smilPath)
		if err != nil {
			log.Warnf("cannot read media overlay %s: %v", smilPath, err)
			return nil
		}
		mo, err := smil.Parse(data, smilPath)
		if err != nil {
			log.Warnf("ignoring media overlay: %v", err)
			return nil
		}
		parsed[smilPath] = mo
		return mo
	}

	for _, links := range [][]rwpm.Link{pub.ReadingOrder, pub.Resources} {
		for i := range links {
			if p := links[i].Properties; p != nil && p.MediaOverlay != "" {
				links[i].MediaOverlays = load(p.MediaOverlay)
			}
		}
	}
}
