// Copyright 2025 Readium Foundation. All rights reserved.
// Use of this source code is governed by a BSD-style license
// that can be found in the LICENSE file exposed on Github (readium) in the project repository.

package fetcher

import (
	"archive/zip"
	"bytes"
	"compress/flate"
	"encoding/json"
	"io"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/readium/readium-streamer/container"
	"github.com/readium/readium-streamer/crypto"
	"github.com/readium/readium-streamer/license"
	"github.com/readium/readium-streamer/parser"
	"github.com/readium/readium-streamer/rwpm"
)

const (
	bookID     = "urn:uuid:0b9bd4a8-4d4c-4d1b-9f6e-2a1c7b3e5f10"
	passphrase = "correct horse"
)

const containerXML = `<?xml version="1.0"?>
<container version="1.0" xmlns="urn:oasis:names:tc:opendocument:xmlns:container">
  <rootfiles><rootfile full-path="OEBPS/content.opf" media-type="application/oebps-package+xml"/></rootfiles>
</container>`

const opf = `<?xml version="1.0" encoding="UTF-8"?>
<package xmlns="http://www.idpf.org/2007/opf" version="3.0" unique-identifier="uid">
  <metadata xmlns:dc="http://purl.org/dc/elements/1.1/">
    <dc:identifier id="uid">` + bookID + `</dc:identifier>
    <dc:title>Filters</dc:title>
    <dc:language>en</dc:language>
  </metadata>
  <manifest>
    <item id="c1" href="text/c1.xhtml" media-type="application/xhtml+xml"/>
    <item id="c2" href="text/c2.xhtml" media-type="application/xhtml+xml"/>
    <item id="c3" href="text/c3.xhtml" media-type="application/xhtml+xml"/>
    <item id="style" href="style.css" media-type="text/css"/>
    <item id="f1" href="fonts/idpf.otf" media-type="font/otf"/>
    <item id="f2" href="fonts/adobe.otf" media-type="font/otf"/>
    <item id="f3" href="fonts/other.otf" media-type="font/otf"/>
  </manifest>
  <spine><itemref idref="c1"/><itemref idref="c2"/><itemref idref="c3"/></spine>
</package>`

const encryptionXML = `<?xml version="1.0" encoding="UTF-8"?>
<encryption xmlns="urn:oasis:names:tc:opendocument:xmlns:container" xmlns:enc="http://www.w3.org/2001/04/xmlenc#" xmlns:ds="http://www.w3.org/2000/09/xmldsig#" xmlns:comp="http://www.idpf.org/2016/encryption#compression">
  <enc:EncryptedData>
    <enc:EncryptionMethod Algorithm="http://www.w3.org/2001/04/xmlenc#aes256-cbc"/>
    <ds:KeyInfo><ds:RetrievalMethod URI="license.lcpl#/encryption/content_key"/></ds:KeyInfo>
    <enc:CipherData><enc:CipherReference URI="OEBPS/text/c2.xhtml"/></enc:CipherData>
    <enc:EncryptionProperties><enc:EncryptionProperty>
      <comp:Compression Method="8" OriginalLength="0"/>
    </enc:EncryptionProperty></enc:EncryptionProperties>
  </enc:EncryptedData>
  <enc:EncryptedData>
    <enc:EncryptionMethod Algorithm="http://www.w3.org/2001/04/xmlenc#aes256-cbc"/>
    <ds:KeyInfo><ds:RetrievalMethod URI="license.lcpl#/encryption/content_key"/></ds:KeyInfo>
    <enc:CipherData><enc:CipherReference URI="OEBPS/style.css"/></enc:CipherData>
  </enc:EncryptedData>
  <enc:EncryptedData>
    <enc:EncryptionMethod Algorithm="http://www.w3.org/2001/04/xmlenc#aes256-cbc"/>
    <ds:KeyInfo><ds:RetrievalMethod URI="license.lcpl#/encryption/content_key"/></ds:KeyInfo>
    <enc:CipherData><enc:CipherReference URI="OEBPS/text/c3.xhtml"/></enc:CipherData>
    <enc:EncryptionProperties><enc:EncryptionProperty>
      <comp:Compression Method="8" OriginalLength="0"/>
    </enc:EncryptionProperty></enc:EncryptionProperties>
  </enc:EncryptedData>
  <enc:EncryptedData>
    <enc:EncryptionMethod Algorithm="http://www.idpf.org/2008/embedding"/>
    <enc:CipherData><enc:CipherReference URI="OEBPS/fonts/idpf.otf"/></enc:CipherData>
  </enc:EncryptedData>
  <enc:EncryptedData>
    <enc:EncryptionMethod Algorithm="http://ns.adobe.com/pdf/enc#RC"/>
    <enc:CipherData><enc:CipherReference URI="OEBPS/fonts/adobe.otf"/></enc:CipherData>
  </enc:EncryptedData>
  <enc:EncryptedData>
    <enc:EncryptionMethod Algorithm="http://example.com/unknown"/>
    <enc:CipherData><enc:CipherReference URI="OEBPS/fonts/other.otf"/></enc:CipherData>
  </enc:EncryptedData>
</encryption>`

const (
	chapter1 = `<?xml version="1.0" encoding="UTF-8"?>
<html xmlns="http://www.w3.org/1999/xhtml"><head><title>One</title></head><body><p>One</p></body></html>`
	chapter2   = `<html xmlns="http://www.w3.org/1999/xhtml"><head><title>Two</title></head><body><p>Two</p></body></html>`
	stylesheet = "body { margin: 0 }"
)

type fixture struct {
	path  string
	fonts map[string][]byte
}

func deflate(t *testing.T, data []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	w, err := flate.NewWriter(&buf, flate.BestCompression)
	require.NoError(t, err)
	_, err = w.Write(data)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func obfuscate(t *testing.T, algorithm string, font []byte) []byte {
	t.Helper()
	key, err := ObfuscationKey(algorithm, bookID)
	require.NoError(t, err)
	return Deobfuscate(append([]byte(nil), font...), key, obfuscationLength[algorithm])
}

// buildBook writes a protected EPUB: c2 is compressed then encrypted, style.css is
// encrypted only, c3 is compressed with trailing garbage, the fonts are obfuscated
func buildBook(t *testing.T) fixture {
	t.Helper()
	key, err := crypto.GenerateKey(32)
	require.NoError(t, err)
	l, err := license.NewBasic("lic-fetcher", "provider", passphrase, "hint", key)
	require.NoError(t, err)
	lcpl, err := json.Marshal(l)
	require.NoError(t, err)

	encChapter, err := crypto.EncryptCBC(key, deflate(t, []byte(chapter2)))
	require.NoError(t, err)
	encStyle, err := crypto.EncryptCBC(key, []byte(stylesheet))
	require.NoError(t, err)
	corrupt, err := crypto.EncryptCBC(key, append(deflate(t, []byte(chapter2)), "trailing"...))
	require.NoError(t, err)

	rnd := rand.New(rand.NewSource(42))
	fonts := map[string][]byte{}
	for _, name := range []string{"idpf", "adobe", "other"} {
		font := make([]byte, 2000)
		rnd.Read(font)
		fonts[name] = font
	}

	files := map[string][]byte{
		"mimetype":                []byte(container.MimeTypeEPUB),
		"META-INF/container.xml":  []byte(containerXML),
		"META-INF/encryption.xml": []byte(encryptionXML),
		container.LicenseFile:     lcpl,
		"OEBPS/content.opf":       []byte(opf),
		"OEBPS/text/c1.xhtml":     []byte(chapter1),
		"OEBPS/text/c2.xhtml":     encChapter,
		"OEBPS/text/c3.xhtml":     corrupt,
		"OEBPS/style.css":         encStyle,
		"OEBPS/fonts/idpf.otf":    obfuscate(t, AlgorithmIDPF, fonts["idpf"]),
		"OEBPS/fonts/adobe.otf":   obfuscate(t, AlgorithmAdobe, fonts["adobe"]),
		"OEBPS/fonts/other.otf":   fonts["other"],
	}

	p := filepath.Join(t.TempDir(), "filters.epub")
	f, err := os.Create(p)
	require.NoError(t, err)
	zw := zip.NewWriter(f)
	for name, content := range files {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())
	return fixture{path: p, fonts: fonts}
}

func open(t *testing.T, path string, opts Options, passphrases ...string) *Fetcher {
	t.Helper()
	box, err := parser.Open(path, parser.Options{Passphrases: passphrases})
	require.NoError(t, err)
	t.Cleanup(func() { box.Close() })
	f, err := New(box, opts)
	require.NoError(t, err)
	return f
}

func readAll(t *testing.T, f *Fetcher, path string) []byte {
	t.Helper()
	res, err := f.Fetch(path)
	require.NoError(t, err)
	defer res.Close()
	data, err := io.ReadAll(res)
	require.NoError(t, err)
	assert.EqualValues(t, len(data), res.Length)
	return data
}

func TestFetchDecryptAndInflate(t *testing.T) {
	book := buildBook(t)
	f := open(t, book.path, Options{}, passphrase)

	assert.Equal(t, chapter2, string(readAll(t, f, "OEBPS/text/c2.xhtml")))
	assert.Equal(t, stylesheet, string(readAll(t, f, "OEBPS/style.css")))
	assert.Equal(t, chapter1, string(readAll(t, f, "OEBPS/text/c1.xhtml")))

	n, err := f.DataLength("OEBPS/text/c2.xhtml")
	require.NoError(t, err)
	assert.EqualValues(t, len(chapter2), n)
}

func TestFetchLockedPassesThrough(t *testing.T) {
	book := buildBook(t)
	f := open(t, book.path, Options{})

	data, err := f.Data("OEBPS/style.css")
	require.NoError(t, err)
	assert.NotEqual(t, stylesheet, string(data))
	raw, err := f.Box().Container.Read("OEBPS/style.css")
	require.NoError(t, err)
	assert.Equal(t, raw, data)
}

func TestFetchCorruptDeflate(t *testing.T) {
	book := buildBook(t)
	f := open(t, book.path, Options{}, passphrase)

	_, err := f.Fetch("OEBPS/text/c3.xhtml")
	assert.ErrorIs(t, err, ErrDecodeFailed)

	// the rest of the publication stays readable
	assert.Equal(t, chapter2, string(readAll(t, f, "OEBPS/text/c2.xhtml")))
}

func TestFetchFonts(t *testing.T) {
	book := buildBook(t)
	f := open(t, book.path, Options{})

	assert.Equal(t, book.fonts["idpf"], readAll(t, f, "OEBPS/fonts/idpf.otf"))
	assert.Equal(t, book.fonts["adobe"], readAll(t, f, "OEBPS/fonts/adobe.otf"))
	// unknown algorithm: untouched
	assert.Equal(t, book.fonts["other"], readAll(t, f, "OEBPS/fonts/other.otf"))
}

func TestFetchUndeclared(t *testing.T) {
	book := buildBook(t)
	f := open(t, book.path, Options{})

	_, err := f.Fetch("OEBPS/missing.xhtml")
	assert.ErrorIs(t, err, container.ErrResourceNotFound)
	_, err = f.DataLength("META-INF/container.xml")
	assert.ErrorIs(t, err, container.ErrResourceNotFound)
}

func TestUnsupportedMediaType(t *testing.T) {
	book := buildBook(t)
	box, err := parser.Open(book.path, parser.Options{})
	require.NoError(t, err)
	defer box.Close()

	box.Container.RootFile().MimeType = "application/pdf"
	_, err = New(box, Options{})
	assert.ErrorIs(t, err, ErrUnsupportedMediaType)

	box.Container.RootFile().MimeType = container.MimeTypeWebPub
	f, err := New(box, Options{})
	require.NoError(t, err)
	assert.Len(t, f.filters, 3)
}

func TestDeobfuscateIsInvolutive(t *testing.T) {
	for _, algorithm := range []string{AlgorithmIDPF, AlgorithmAdobe} {
		key, err := ObfuscationKey(algorithm, bookID)
		require.NoError(t, err)
		for _, size := range []int{0, 10, 1024, 1040, 3000} {
			font := bytes.Repeat([]byte{0xA5, 0x17, 0x00}, size/3+1)[:size]
			once := Deobfuscate(append([]byte(nil), font...), key, obfuscationLength[algorithm])
			twice := Deobfuscate(append([]byte(nil), once...), key, obfuscationLength[algorithm])
			assert.True(t, bytes.Equal(font, twice), "%s %d", algorithm, size)
			assert.Len(t, twice, size)
			if size > 1040 {
				assert.Equal(t, font[1040:], once[1040:], "bytes after the window are untouched")
			}
		}
	}
}

func TestObfuscationKey(t *testing.T) {
	key, err := ObfuscationKey(AlgorithmIDPF, " urn:uuid:0b9bd4a8-4d4c-4d1b-9f6e-2a1c7b3e5f10\n")
	require.NoError(t, err)
	assert.Len(t, key, 20)

	key, err = ObfuscationKey(AlgorithmAdobe, bookID)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x0b, 0x9b, 0xd4, 0xa8}, key[:4])
	assert.Len(t, key, 16)

	_, err = ObfuscationKey(AlgorithmAdobe, "isbn:978")
	assert.Error(t, err)
}

func TestInflate(t *testing.T) {
	out, err := inflate(deflate(t, []byte("hello hello hello")))
	require.NoError(t, err)
	assert.Equal(t, "hello hello hello", string(out))

	_, err = inflate([]byte{0xff, 0xff, 0xff})
	assert.ErrorIs(t, err, ErrDecodeFailed)

	_, err = inflate(append(deflate(t, []byte("a")), deflate(t, []byte("b"))...))
	assert.ErrorIs(t, err, ErrDecodeFailed, "a second member is rejected")
}

func TestInjection(t *testing.T) {
	book := buildBook(t)
	props := filepath.Join(t.TempDir(), "user.json")
	require.NoError(t, os.WriteFile(props, []byte(`[{"name":"--USER__fontSize","value":"120%"}]`), 0644))

	f := open(t, book.path, Options{
		InjectHTML:         true,
		UserPropertiesPath: props,
		Fonts:              []string{"OpenDyslexic.otf"},
	}, passphrase)

	doc := string(readAll(t, f, "OEBPS/text/c1.xhtml"))
	assert.True(t, strings.HasPrefix(doc, `<?xml version="1.0" encoding="UTF-8"?>`))
	head := doc[strings.Index(doc, "<head>"):strings.Index(doc, "</head>")]
	assert.True(t, strings.Index(head, "/styles/ltr-before.css") < strings.Index(head, "<title>"))
	assert.Contains(t, head, "/styles/ltr-after.css")
	assert.Contains(t, head, `src="/scripts/touchHandling.js"`)
	assert.Contains(t, head, `src="/scripts/utils.js"`)
	assert.Contains(t, head, `font-family: "OpenDyslexic"; src: url("/fonts/OpenDyslexic.otf")`)
	assert.Contains(t, doc, `style="--USER__fontSize: 120%"`)
	assert.NotContains(t, doc, `dir="rtl"`)

	// decrypted documents are injected too
	assert.Contains(t, string(readAll(t, f, "OEBPS/text/c2.xhtml")), "/styles/ltr-after.css")
	// stylesheets are not
	assert.Equal(t, stylesheet, string(readAll(t, f, "OEBPS/style.css")))
}

func TestInjectFixedLayoutAndRTL(t *testing.T) {
	pub := &rwpm.Publication{
		LayoutStyle:  rwpm.StyleRTL,
		ReadingOrder: []rwpm.Link{{Href: "a.xhtml", Type: "application/xhtml+xml"}},
	}
	box := &parser.Box{Publication: pub}
	inj := &injectFilter{}
	link := &pub.ReadingOrder[0]
	require.True(t, inj.Accepts(link, box))
	assert.False(t, inj.Accepts(&rwpm.Link{Href: "b.xhtml", Type: "application/xhtml+xml"}, box))

	out, err := inj.Apply([]byte(`<html lang="ar"><head></head><body/></html>`), link, box)
	require.NoError(t, err)
	assert.Contains(t, string(out), `<html dir="rtl" lang="ar">`)
	assert.Contains(t, string(out), "/styles/rtl-before.css")

	// already injected
	again, err := inj.Apply(out, link, box)
	require.NoError(t, err)
	assert.Equal(t, out, again)

	link.Props().Layout = "fixed"
	out, err = inj.Apply([]byte(`<html><head></head><body/></html>`), link, box)
	require.NoError(t, err)
	assert.Contains(t, string(out), "/scripts/utils.js")
	assert.NotContains(t, string(out), "/styles/")
}

func TestDecorateHTML(t *testing.T) {
	props := []UserProperty{{Name: "--USER__a", Value: "1"}}
	assert.Equal(t, `<html style="color: red;--USER__a: 1"><body/></html>`,
		decorateHTML(`<html style="color: red"><body/></html>`, false, props))
	assert.Equal(t, `<html dir="ltr"><body/></html>`,
		decorateHTML(`<html dir="ltr"><body/></html>`, true, nil))
	assert.Equal(t, `<p>no root</p>`, decorateHTML(`<p>no root</p>`, true, props))
}

func TestInsertHead(t *testing.T) {
	assert.Equal(t, "<html>\n<head>\nX</head><body/></html>", insertAfterHeadStart("<html><body/></html>", "X"))
	assert.Equal(t, "<html><HEAD>Y</HEAD></html>", insertBeforeHeadEnd("<html><HEAD></HEAD></html>", "Y"))
	assert.Equal(t, "<html>\n<head>\nZ</head><header></header></html>",
		insertAfterHeadStart("<html><header></header></html>", "Z"))
}
