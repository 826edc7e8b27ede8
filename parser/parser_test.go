// Copyright 2025 Readium Foundation. All rights reserved.
// Use of this source code is governed by a BSD-style license
// that can be found in the LICENSE file exposed on Github (readium) in the project repository.

package parser

import (
	"archive/zip"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/readium/readium-streamer/cbz"
	"github.com/readium/readium-streamer/container"
	"github.com/readium/readium-streamer/crypto"
	"github.com/readium/readium-streamer/epub"
	"github.com/readium/readium-streamer/license"
	"github.com/readium/readium-streamer/rwpm"
)

var book = map[string]string{
	"mimetype": "application/epub+zip",
	"META-INF/container.xml": `<container xmlns="urn:oasis:names:tc:opendocument:xmlns:container"><rootfiles>
<rootfile full-path="content.opf" media-type="application/oebps-package+xml"/></rootfiles></container>`,
	"content.opf": `<package xmlns="http://www.idpf.org/2007/opf" version="3.0" unique-identifier="id">
<metadata xmlns:dc="http://purl.org/dc/elements/1.1/"><dc:identifier id="id">book-1</dc:identifier><dc:title>Book</dc:title></metadata>
<manifest><item id="c1" href="c1.xhtml" media-type="application/xhtml+xml"/></manifest>
<spine><itemref idref="c1"/></spine></package>`,
	"c1.xhtml": "<html><head></head><body>hello</body></html>",
}

func writeZip(t *testing.T, name string, files map[string]string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	f, err := os.Create(p)
	require.NoError(t, err)
	zw := zip.NewWriter(f)
	for n, content := range files {
		w, err := zw.Create(n)
		require.NoError(t, err)
		_, err = w.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())
	return p
}

func TestOpenArchive(t *testing.T) {
	box, err := Open(writeZip(t, "book.epub", book), Options{})
	require.NoError(t, err)
	defer box.Close()

	assert.Equal(t, "book-1", box.Publication.Metadata.Identifier)
	assert.IsType(t, &container.Archive{}, box.Container)
	assert.Equal(t, container.MimeTypeEPUB, box.Container.RootFile().MimeType)
}

func TestOpenDirectory(t *testing.T) {
	dir := t.TempDir()
	for n, content := range book {
		p := filepath.Join(dir, filepath.FromSlash(n))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0644))
	}
	box, err := Open(dir, Options{})
	require.NoError(t, err)
	defer box.Close()

	assert.IsType(t, &container.Directory{}, box.Container)
	require.Len(t, box.Publication.ReadingOrder, 1)
	data, err := box.Container.Read(box.Publication.ReadingOrder[0].Href)
	require.NoError(t, err)
	assert.Contains(t, string(data), "hello")
}

func TestOpenComic(t *testing.T) {
	p := writeZip(t, "comic.cbz", map[string]string{"1.png": "a", "2.png": "b"})
	box, err := Open(p, Options{Comics: cbz.Options{Include: []string{"*.png"}}})
	require.NoError(t, err)
	defer box.Close()

	assert.Equal(t, rwpm.TypeCBZ, box.Publication.Type)
	assert.Len(t, box.Publication.ReadingOrder, 2)
}

func TestOpenFailures(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "absent.epub"), Options{})
	assert.ErrorIs(t, err, epub.ErrParseFailed)

	noRoot := map[string]string{"mimetype": "application/epub+zip"}
	_, err = Open(writeZip(t, "broken.epub", noRoot), Options{})
	assert.ErrorIs(t, err, epub.ErrParseFailed)

	notZip := filepath.Join(t.TempDir(), "plain.epub")
	require.NoError(t, os.WriteFile(notZip, []byte("not a zip"), 0644))
	_, err = Open(notZip, Options{})
	assert.ErrorIs(t, err, epub.ErrParseFailed)
}

func TestOpenProtected(t *testing.T) {
	key, err := crypto.GenerateKey(32)
	require.NoError(t, err)
	l, err := license.NewBasic("lic-1", "provider", "open sesame", "the usual", key)
	require.NoError(t, err)
	doc, err := json.Marshal(l)
	require.NoError(t, err)

	files := map[string]string{container.LicenseFile: string(doc)}
	for k, v := range book {
		files[k] = v
	}
	p := writeZip(t, "protected.epub", files)

	box, err := Open(p, Options{Passphrases: []string{"wrong"}})
	require.NoError(t, err, "a wrong passphrase does not prevent opening")
	require.NotNil(t, box.Container.DRM())
	assert.False(t, box.Container.DRM().Unlocked())

	err = box.Unlock("still wrong")
	assert.ErrorIs(t, err, license.ErrInvalidPassphrase)
	assert.ErrorContains(t, err, "hint: the usual")
	require.NoError(t, box.Unlock("open sesame"))
	assert.True(t, box.Container.DRM().Unlocked())
	require.NoError(t, box.Close())

	box, err = Open(p, Options{Passphrases: []string{"wrong", "open sesame"}})
	require.NoError(t, err)
	defer box.Close()
	assert.True(t, box.Container.DRM().Unlocked())
}
