// Copyright 2025 Readium Foundation. All rights reserved.
// Use of this source code is governed by a BSD-style license
// that can be found in the LICENSE file exposed on Github (readium) in the project repository.

package epub

import (
	"bytes"

	"github.com/readium/readium-streamer/container"
	"github.com/readium/readium-streamer/drm"
	"github.com/readium/readium-streamer/logger"
	"github.com/readium/readium-streamer/rwpm"
	"github.com/readium/readium-streamer/xmlenc"
)

// parseEncryption attaches the encryption descriptors of encryption.xml to the
// resources. A missing or malformed document leaves the publication untouched.
func ParseEncryption(c container.Container, pub *rwpm.Publication, d *drm.DRM, log logger.StdLogger) {
	if !c.Exists(EncryptionFile) {
		return
	}
	data, err := c.Read(EncryptionFile)
	if err != nil {
		log.Warnf("cannot read %s: %v", EncryptionFile, err)
		return
	}
	m, err := xmlenc.Read(bytes.NewReader(data))
	if err != nil {
		log.Warnf("ignoring malformed %s: %v", EncryptionFile, err)
		return
	}

	for _, ed := range m.Data {
		enc := rwpm.Encrypted{Algorithm: ed.Method.Algorithm}
		if ed.KeyRetrievalURI() == drm.LCPContentKeyURI && d != nil && d.Brand == drm.BrandLCP {
			enc.Scheme = drm.SchemeLCP
		}
		if comp, ok := ed.Compression(); ok {
			if comp.Method == xmlenc.CompressionDeflate {
				enc.Compression = "deflate"
			} else {
				enc.Compression = "none"
			}
			enc.OriginalLength = comp.OriginalLength
		}

		links := pub.LinksWithHref(ed.Path())
		if len(links) == 0 {
			log.Debugf("encrypted resource %s is not declared", ed.Path())
		}
		for _, l := range links {
			e := enc
			l.Props().Encrypted = &e
		}
	}
}

// FillEncryptionProfile copies the DRM profile on the descriptors of its scheme
func FillEncryptionProfile(pub *rwpm.Publication, d *drm.DRM) {
	if d == nil {
		return
	}
	for _, links := range [][]rwpm.Link{pub.Resources, pub.ReadingOrder} {
		for i := range links {
			if p := links[i].Properties; p != nil && p.Encrypted != nil && p.Encrypted.Scheme == d.Scheme {
				p.Encrypted.Profile = d.Profile
			}
		}
	}
}
