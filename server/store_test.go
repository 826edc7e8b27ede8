// Copyright 2025 Readium Foundation. All rights reserved.
// Use of this source code is governed by a BSD-style license
// that can be found in the LICENSE file exposed on Github (readium) in the project repository.

package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/readium/readium-streamer/storage"
)

func TestStoreAPI(t *testing.T) {
	store, err := storage.NewFileSystem(filepath.Join(t.TempDir(), "store"), "")
	require.NoError(t, err)
	cache, err := storage.NewCache(store, filepath.Join(t.TempDir(), "cache"), time.Hour, nil)
	require.NoError(t, err)
	s, _ := newServer(t, Options{Cache: cache})

	call := func(method, target string, body []byte) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		s.Handler.ServeHTTP(w, httptest.NewRequest(method, target, bytes.NewReader(body)))
		return w
	}
	list := func() []ArchiveInfo {
		w := call("GET", "/api/store", nil)
		require.Equal(t, http.StatusOK, w.Code)
		var archives []ArchiveInfo
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &archives))
		return archives
	}

	assert.Empty(t, list())

	book, err := os.ReadFile(writeBook(t, t.TempDir(), "moby.epub"))
	require.NoError(t, err)
	w := call("PUT", "/api/store/shelf/moby.epub", book)
	require.Equal(t, http.StatusCreated, w.Code)
	var created ArchiveInfo
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.Equal(t, "shelf/moby.epub", created.Key)
	assert.Equal(t, "store://shelf/moby.epub", created.Location)

	w = call("POST", "/api/publications", []byte(`{"location":"store://shelf/moby.epub","mount":"moby"}`))
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, http.StatusOK, call("GET", "/moby/manifest.json", nil).Code)

	archives := list()
	require.Len(t, archives, 1)
	assert.Equal(t, "moby", archives[0].Mount)

	assert.Equal(t, http.StatusConflict, call("DELETE", "/api/store/shelf/moby.epub", nil).Code)
	assert.Equal(t, http.StatusConflict, call("PUT", "/api/store/shelf/moby.epub", book).Code)

	require.Equal(t, http.StatusNoContent, call("DELETE", "/api/publications/moby", nil).Code)
	assert.Equal(t, http.StatusNoContent, call("DELETE", "/api/store/shelf/moby.epub", nil).Code)
	assert.Equal(t, http.StatusNotFound, call("DELETE", "/api/store/shelf/moby.epub", nil).Code)
	assert.Empty(t, list())
}

func TestStoreAPIWithoutStorage(t *testing.T) {
	s, _ := newServer(t, Options{})
	assert.Equal(t, http.StatusNotFound, do(s, "GET", "/api/store", nil).Code)

	w := httptest.NewRecorder()
	s.Handler.ServeHTTP(w, httptest.NewRequest("PUT", "/api/store/a.epub", strings.NewReader("zip")))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestMountOtherBucket(t *testing.T) {
	store, err := storage.NewFileSystem(t.TempDir(), "")
	require.NoError(t, err)
	cache, err := storage.NewCache(store, t.TempDir(), time.Hour, nil)
	require.NoError(t, err)
	s := New(":0", Options{BaseURL: "http://localhost", Cache: cache})
	t.Cleanup(s.CloseMounts)

	_, err = s.Mount("s3://elsewhere/moby.epub", "moby")
	assert.ErrorIs(t, err, storage.ErrBucketMismatch)
}

func TestValidKey(t *testing.T) {
	for _, key := range []string{"a.epub", "shelf/a.cbz", "x/y/z.epub"} {
		assert.True(t, validKey(key), key)
	}
	for _, key := range []string{"", "/a.epub", "../a.epub", "..", "a/../../b.epub", "a//b.epub", "shelf/"} {
		assert.False(t, validKey(key), key)
	}
}
