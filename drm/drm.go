// Copyright 2025 Readium Foundation. All rights reserved.
// Use of this source code is governed by a BSD-style license
// that can be found in the LICENSE file exposed on Github (readium) in the project repository.

// Package drm describes the protection attached to an opened archive. The container
// only records which DRM was found; deciphering is delegated to a License once the
// caller unlocks it.
package drm

type Brand string

const (
	BrandLCP Brand = "lcp"

	// SchemeLCP is the encryption scheme of resources protected by LCP
	SchemeLCP = "http://readium.org/2014/01/lcp"

	// LCPContentKeyURI is the key retrieval URI found in encryption.xml for LCP resources
	LCPContentKeyURI = "license.lcpl#/encryption/content_key"
)

// License deciphers resources. Decipher returns the decrypted payload with its padding
// still in place, the last byte giving the padding length.
type License interface {
	Decipher(data []byte) ([]byte, error)
}

type DRM struct {
	Brand   Brand
	Scheme  string
	Profile string
	// Document holds the raw license document found in the archive
	Document []byte
	License  License
}

// NewLCP returns an LCP DRM reference for a license document
func NewLCP(profile string, document []byte) *DRM {
	return &DRM{
		Brand:    BrandLCP,
		Scheme:   SchemeLCP,
		Profile:  profile,
		Document: document,
	}
}

// Unlocked tells whether resources can be deciphered
func (d *DRM) Unlocked() bool {
	return d != nil && d.License != nil
}
