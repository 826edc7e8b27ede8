// Copyright 2025 Readium Foundation. All rights reserved.
// Use of this source code is governed by a BSD-style license
// that can be found in the LICENSE file exposed on Github (readium) in the project repository.

package fetcher

import (
	"bytes"
	"compress/flate"
	"crypto/aes"
	"fmt"
	"io"

	"github.com/readium/readium-streamer/crypto"
	"github.com/readium/readium-streamer/parser"
	"github.com/readium/readium-streamer/rwpm"
)

// ContentFilter is one stateless step of a filter chain
type ContentFilter interface {
	Accepts(link *rwpm.Link, box *parser.Box) bool
	Apply(data []byte, link *rwpm.Link, box *parser.Box) ([]byte, error)
}

func encryption(link *rwpm.Link) *rwpm.Encrypted {
	if link.Properties == nil {
		return nil
	}
	return link.Properties.Encrypted
}

// deciphered tells whether the DRM of the container handles the resource
func deciphered(link *rwpm.Link, box *parser.Box) bool {
	enc := encryption(link)
	if enc == nil || enc.Scheme == "" {
		return false
	}
	d := box.Container.DRM()
	return d.Unlocked() && d.Scheme == enc.Scheme
}

type decryptFilter struct{}

func (decryptFilter) Accepts(link *rwpm.Link, box *parser.Box) bool {
	return deciphered(link, box)
}

// Apply deciphers the resource. The padding is kept for compressed resources, the
// inflate filter reads its length.
func (decryptFilter) Apply(data []byte, link *rwpm.Link, box *parser.Box) ([]byte, error) {
	plain, err := box.Container.DRM().License.Decipher(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrDecodeFailed, link.Href, err)
	}
	if encryption(link).Compression == "deflate" {
		return plain, nil
	}
	if plain, err = crypto.Unpad(plain, aes.BlockSize); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrDecodeFailed, link.Href, err)
	}
	return plain, nil
}

type inflateFilter struct{}

func (inflateFilter) Accepts(link *rwpm.Link, box *parser.Box) bool {
	return deciphered(link, box) && encryption(link).Compression == "deflate"
}

// Apply strips the padding announced by the last byte and inflates the raw deflate
// stream left. The stream must end exactly with the payload.
func (inflateFilter) Apply(data []byte, link *rwpm.Link, box *parser.Box) ([]byte, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: %s: empty payload", ErrDecodeFailed, link.Href)
	}
	padding := int(data[len(data)-1])
	if padding == 0 || padding > len(data) {
		return nil, fmt.Errorf("%w: %s: invalid padding %d", ErrDecodeFailed, link.Href, padding)
	}
	return inflate(data[:len(data)-padding])
}

func inflate(data []byte) ([]byte, error) {
	src := bytes.NewReader(data)
	r := flate.NewReader(src)
	defer r.Close()

	var out bytes.Buffer
	if _, err := io.Copy(&out, r); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecodeFailed, err)
	}
	if src.Len() > 0 {
		return nil, fmt.Errorf("%w: %d bytes after the deflate stream", ErrDecodeFailed, src.Len())
	}
	return out.Bytes(), nil
}
