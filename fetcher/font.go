// Copyright 2025 Readium Foundation. All rights reserved.
// Use of this source code is governed by a BSD-style license
// that can be found in the LICENSE file exposed on Github (readium) in the project repository.

package fetcher

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/readium/readium-streamer/logger"
	"github.com/readium/readium-streamer/parser"
	"github.com/readium/readium-streamer/rwpm"
)

const (
	AlgorithmIDPF  = "http://www.idpf.org/2008/embedding"
	AlgorithmAdobe = "http://ns.adobe.com/pdf/enc#RC"

	idpfLength  = 1040
	adobeLength = 1024
)

var obfuscationLength = map[string]int{
	AlgorithmIDPF:  idpfLength,
	AlgorithmAdobe: adobeLength,
}

type fontFilter struct {
	log logger.StdLogger
}

// Accepts encrypted resources outside of any DRM scheme, so that unknown algorithms
// are reported
func (ff fontFilter) Accepts(link *rwpm.Link, box *parser.Box) bool {
	enc := encryption(link)
	return enc != nil && enc.Scheme == "" && enc.Algorithm != ""
}

func (ff fontFilter) Apply(data []byte, link *rwpm.Link, box *parser.Box) ([]byte, error) {
	algorithm := encryption(link).Algorithm
	length, ok := obfuscationLength[algorithm]
	if !ok {
		ff.log.WithFields(logger.Fields{"href": link.Href, "algorithm": algorithm}).
			Warnf("%s is encrypted, but can't handle it", link.Href)
		return data, nil
	}
	key, err := ObfuscationKey(algorithm, box.Publication.Metadata.Identifier)
	if err != nil {
		ff.log.WithFields(logger.Fields{"href": link.Href, "algorithm": algorithm}).
			Warnf("cannot deobfuscate %s: %v", link.Href, err)
		return data, nil
	}
	return Deobfuscate(data, key, length), nil
}

// ObfuscationKey derives the font obfuscation key from the publication identifier
func ObfuscationKey(algorithm, identifier string) ([]byte, error) {
	switch algorithm {
	case AlgorithmIDPF:
		sum := sha1.Sum([]byte(stripSpaces(identifier)))
		return sum[:], nil
	case AlgorithmAdobe:
		id := strings.TrimPrefix(identifier, "urn:uuid:")
		id = strings.ReplaceAll(id, "-", "")
		key, err := hex.DecodeString(id)
		if err != nil || len(key) == 0 {
			return nil, fmt.Errorf("identifier %q is not a uuid", identifier)
		}
		return key, nil
	}
	return nil, fmt.Errorf("unknown obfuscation algorithm %s", algorithm)
}

func stripSpaces(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\t', '\r', '\n':
			return -1
		}
		return r
	}, s)
}

// Deobfuscate XORs the first length bytes of data with the cycled key, in place.
// Applying it twice restores the input.
func Deobfuscate(data, key []byte, length int) []byte {
	if length > len(data) {
		length = len(data)
	}
	for i := 0; i < length; i++ {
		data[i] ^= key[i%len(key)]
	}
	return data
}
