// Copyright 2025 Readium Foundation. All rights reserved.
// Use of this source code is governed by a BSD-style license
// that can be found in the LICENSE file exposed on Github (readium) in the project repository.

package cbz

import (
	"archive/zip"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/readium/readium-streamer/container"
	"github.com/readium/readium-streamer/epub"
	"github.com/readium/readium-streamer/rwpm"
)

var defaultOptions = Options{
	Include: []string{"*.jpg", "*.jpeg", "*.png", "*.gif", "*.webp"},
	Exclude: []string{"__MACOSX/", ".*"},
}

func writeComic(t *testing.T, names ...string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "My Comic.cbz")
	f, err := os.Create(p)
	require.NoError(t, err)
	zw := zip.NewWriter(f)
	for _, n := range names {
		w, err := zw.Create(n)
		require.NoError(t, err)
		_, err = w.Write([]byte("img"))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())
	return p
}

func TestParse(t *testing.T) {
	p := writeComic(t,
		"pages/page10.jpg",
		"pages/page2.JPG",
		"pages/page1.png",
		"__MACOSX/pages/._page1.png",
		"pages/.hidden.jpg",
		"ComicInfo.xml",
	)
	c, err := container.NewComic(p)
	require.NoError(t, err)
	defer c.Close()

	pub, err := Parse(c, defaultOptions, nil)
	require.NoError(t, err)

	assert.Equal(t, rwpm.TypeCBZ, pub.Type)
	assert.Equal(t, "My Comic", pub.Metadata.Title.String())
	assert.Equal(t, container.MimeTypeCBZ, c.RootFile().MimeType)

	var hrefs []string
	for _, l := range pub.ReadingOrder {
		hrefs = append(hrefs, l.Href)
	}
	assert.Equal(t, []string{"pages/page1.png", "pages/page2.JPG", "pages/page10.jpg"}, hrefs)
	assert.Equal(t, "image/png", pub.ReadingOrder[0].Type)
	assert.Equal(t, "image/jpeg", pub.ReadingOrder[1].Type)
	assert.Equal(t, pub.ReadingOrder, pub.Resources)

	cover, ok := pub.Cover()
	require.True(t, ok)
	assert.Equal(t, "pages/page1.png", cover.Href)
	assert.Nil(t, c.DRM())
}

func TestParseWithoutPages(t *testing.T) {
	c, err := container.NewComic(writeComic(t, "readme.txt"))
	require.NoError(t, err)
	defer c.Close()

	_, err = Parse(c, defaultOptions, nil)
	assert.ErrorIs(t, err, epub.ErrParseFailed)
}

func TestNaturalLess(t *testing.T) {
	assert.True(t, naturalLess("p2.jpg", "p10.jpg"))
	assert.False(t, naturalLess("p10.jpg", "p2.jpg"))
	assert.True(t, naturalLess("a/1.jpg", "a/1a.jpg"))
	assert.True(t, naturalLess("Chapter 1/10.jpg", "chapter 2/1.jpg"))
	assert.True(t, naturalLess("p1", "p1.jpg"))
}
