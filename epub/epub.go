// Copyright 2025 Readium Foundation. All rights reserved.
// Use of this source code is governed by a BSD-style license
// that can be found in the LICENSE file exposed on Github (readium) in the project repository.

// Package epub turns the package document and the navigation documents of an EPUB
// container into a publication.
package epub

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/readium/readium-streamer/container"
	"github.com/readium/readium-streamer/epub/opf"
	"github.com/readium/readium-streamer/logger"
	"github.com/readium/readium-streamer/rwpm"
)

// ErrParseFailed reports a missing or malformed required file. No publication is
// returned along with it.
var ErrParseFailed = errors.New("publication parsing failed")

const (
	MimetypeFile    = "mimetype"
	ContainerFile   = "META-INF/container.xml"
	EncryptionFile  = "META-INF/encryption.xml"
	DefaultRootFile = "content.opf"

	ContentTypeXhtml = "application/xhtml+xml"
	ContentTypeHtml  = "text/html"
	ContentTypeNcx   = "application/x-dtbncx+xml"

	RootFileElement = "rootfile"

	defaultVersion = 1.2
)

type rootFile struct {
	FullPath  string `xml:"full-path,attr"`
	MediaType string `xml:"media-type,attr"`
}

func findRootFiles(r io.Reader) ([]rootFile, error) {
	xd := xml.NewDecoder(r)
	var roots []rootFile
	for {
		x, err := xd.Token()
		if err == io.EOF {
			return roots, nil
		}
		if err != nil {
			return roots, err
		}
		if start, ok := x.(xml.StartElement); ok && start.Name.Local == RootFileElement {
			var file rootFile
			if err = xd.DecodeElement(&file, &start); err != nil {
				return roots, err
			}
			roots = append(roots, file)
		}
	}
}

// rootFilePath returns the package document path declared by container.xml, or
// the conventional name when the pointer cannot be read
func rootFilePath(data []byte) string {
	roots, _ := findRootFiles(bytes.NewReader(data))
	for _, r := range roots {
		if r.FullPath != "" && (r.MediaType == "" || r.MediaType == container.MimeTypeOEBPS) {
			return r.FullPath
		}
	}
	for _, r := range roots {
		if r.FullPath != "" {
			return r.FullPath
		}
	}
	return DefaultRootFile
}

// Parse builds the publication of an EPUB container. The container gets its root
// file and the DRM found in it.
func Parse(c container.Container, log logger.StdLogger) (*rwpm.Publication, error) {
	if log == nil {
		log = logger.Discard()
	}

	data, err := c.Read(ContainerFile)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrParseFailed, err)
	}
	root := c.RootFile()
	root.MimeType = container.MimeTypeEPUB
	pubType := rwpm.TypeEPUB
	if declared, err := c.Read(MimetypeFile); err == nil && strings.TrimSpace(string(declared)) == container.MimeTypeWebPub {
		root.MimeType = container.MimeTypeWebPub
		pubType = rwpm.TypeWebPub
	}
	root.RootFilePath = rootFilePath(data)

	opfData, err := c.Read(root.RootFilePath)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrParseFailed, err)
	}
	pkg, err := opf.Parse(bytes.NewReader(opfData))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrParseFailed, root.RootFilePath, err)
	}

	pub := &rwpm.Publication{
		Context: rwpm.MultiString{rwpm.ContextWebPub},
		Type:    pubType,
		Version: defaultVersion,
	}
	if v, err := strconv.ParseFloat(pkg.Version, 64); err == nil {
		pub.Version = v
	}

	md := newMetadataParser(pkg, pub.Version)
	md.fill(&pub.Metadata)
	parseManifest(pub, pkg, root.RootFilePath, md, log)

	d, err := container.ScanForDRM(c)
	if err != nil {
		log.Warnf("ignoring license of %s: %v", root.Path, err)
		d = nil
	}
	c.SetDRM(d)
	ParseEncryption(c, pub, d, log)

	parseNavigationDocument(c, pub, log)
	parseNcxDocument(c, pub, pkg, root.RootFilePath, log)
	parseMediaOverlays(c, pub, log)

	SetLayoutStyle(pub)
	FillEncryptionProfile(pub, d)
	return pub, nil
}
