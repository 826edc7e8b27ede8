// Copyright 2025 Readium Foundation. All rights reserved.
// Use of this source code is governed by a BSD-style license
// that can be found in the LICENSE file exposed on Github (readium) in the project repository.

package storage

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/readium/readium-streamer/config"
)

func TestFileSystemStorage(t *testing.T) {
	store, err := NewFileSystem(filepath.Join(t.TempDir(), "books"), "http://localhost/assets/")
	require.NoError(t, err)

	item, err := store.Add("shelf/test.epub", strings.NewReader("test1234"))
	require.NoError(t, err)
	assert.Equal(t, "shelf/test.epub", item.Key())
	assert.Equal(t, "http://localhost/assets/shelf/test.epub", item.PublicURL())

	got, err := store.Get("shelf/test.epub")
	require.NoError(t, err)
	rc, err := got.Contents()
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	rc.Close()
	require.NoError(t, err)
	assert.Equal(t, "test1234", string(data))

	items, err := store.List()
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "shelf/test.epub", items[0].Key())

	_, err = store.Get("missing.epub")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = store.Get("../outside.epub")
	assert.Error(t, err)

	require.NoError(t, store.Remove("shelf/test.epub"))
	_, err = store.Get("shelf/test.epub")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, store.Remove("shelf/test.epub"), ErrNotFound)
}

func TestNew(t *testing.T) {
	store, err := New(config.Storage{Mode: "filesystem", FileSystem: config.FileSystem{Directory: t.TempDir()}})
	require.NoError(t, err)
	assert.Implements(t, (*Locator)(nil), store)

	store, err = New(config.Storage{Mode: "filesystem"})
	require.NoError(t, err)
	assert.Equal(t, NoStorage(), store)

	_, err = New(config.Storage{Mode: "minio", Endpoint: "localhost:9000"})
	assert.Error(t, err, "a bucket is required")

	store, err = New(config.Storage{Mode: "minio", Endpoint: "localhost:9000", Bucket: "books", DisableSSL: true})
	require.NoError(t, err)
	assert.NotNil(t, store)

	store, err = New(config.Storage{Mode: "s3", Region: "us-east-1", Bucket: "books"})
	require.NoError(t, err)
	assert.NotNil(t, store)

	_, err = New(config.Storage{Mode: "tape"})
	assert.Error(t, err)
}

func TestKey(t *testing.T) {
	bucket, key, ok := Key("store://a/b.epub")
	assert.True(t, ok)
	assert.Equal(t, "", bucket)
	assert.Equal(t, "a/b.epub", key)
	assert.Equal(t, "store://a/b.epub", Ref(key))

	bucket, key, ok = Key("s3://books/a/b.epub")
	assert.True(t, ok)
	assert.Equal(t, "books", bucket)
	assert.Equal(t, "a/b.epub", key)

	for _, ref := range []string{"/home/me/b.epub", "s3://bucket", "s3://bucket/", "s3:///b.epub"} {
		_, _, ok = Key(ref)
		assert.False(t, ok, ref)
	}
}

func TestCheckBucket(t *testing.T) {
	minio, err := New(config.Storage{Mode: "minio", Endpoint: "localhost:9000", Bucket: "books", DisableSSL: true})
	require.NoError(t, err)
	assert.NoError(t, CheckBucket(minio, "books"))
	assert.NoError(t, CheckBucket(minio, ""))
	assert.ErrorIs(t, CheckBucket(minio, "other"), ErrBucketMismatch)

	fs, err := NewFileSystem(t.TempDir(), "")
	require.NoError(t, err)
	assert.NoError(t, CheckBucket(fs, ""))
	assert.ErrorIs(t, CheckBucket(fs, "books"), ErrBucketMismatch)
}

func TestNoStorage(t *testing.T) {
	_, err := NoStorage().Add("a.epub", strings.NewReader("zip"))
	assert.ErrorIs(t, err, ErrNoStorage)
	_, err = NoStorage().Get("a.epub")
	assert.ErrorIs(t, err, ErrNotFound)
}

// memStore is a remote store kept in memory
type memStore struct {
	objects map[string][]byte
	gets    int
}

type memItem struct {
	key  string
	data []byte
}

func (i memItem) Key() string       { return i.key }
func (i memItem) PublicURL() string { return "mem://" + i.key }
func (i memItem) Contents() (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(i.data)), nil
}

func (s *memStore) Add(key string, r io.ReadSeeker) (Item, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	s.objects[key] = data
	return memItem{key, data}, nil
}

func (s *memStore) Get(key string) (Item, error) {
	s.gets++
	data, ok := s.objects[key]
	if !ok {
		return nil, ErrNotFound
	}
	return memItem{key, data}, nil
}

func (s *memStore) Remove(key string) error {
	delete(s.objects, key)
	return nil
}

func (s *memStore) List() ([]Item, error) {
	var items []Item
	for k, v := range s.objects {
		items = append(items, memItem{k, v})
	}
	return items, nil
}

func TestCacheDownload(t *testing.T) {
	remote := &memStore{objects: map[string][]byte{"books/moby.epub": []byte("zip")}}
	cache, err := NewCache(remote, filepath.Join(t.TempDir(), "cache"), time.Hour, nil)
	require.NoError(t, err)

	p, err := cache.Fetch("books/moby.epub")
	require.NoError(t, err)
	assert.Equal(t, ".epub", filepath.Ext(p))
	data, err := os.ReadFile(p)
	require.NoError(t, err)
	assert.Equal(t, "zip", string(data))

	again, err := cache.Fetch("books/moby.epub")
	require.NoError(t, err)
	assert.Equal(t, p, again)
	assert.Equal(t, 1, remote.gets, "the second fetch uses the local copy")

	_, err = cache.Fetch("books/absent.epub")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCacheResolve(t *testing.T) {
	remote := &memStore{objects: map[string][]byte{"books/moby.epub": []byte("zip")}}
	cache, err := NewCache(remote, t.TempDir(), time.Hour, nil)
	require.NoError(t, err)
	assert.Same(t, remote, cache.Store())

	p, err := cache.Resolve("/local/moby.epub")
	require.NoError(t, err)
	assert.Equal(t, "/local/moby.epub", p)

	p, err = cache.Resolve("store://books/moby.epub")
	require.NoError(t, err)
	assert.FileExists(t, p)

	_, err = cache.Resolve("s3://other/books/moby.epub")
	assert.ErrorIs(t, err, ErrBucketMismatch)

	require.NoError(t, cache.Forget("books/moby.epub"))
	assert.NoFileExists(t, p)
	require.NoError(t, cache.Forget("books/moby.epub"))
	_, err = cache.Fetch("books/moby.epub")
	require.NoError(t, err)
	assert.Equal(t, 2, remote.gets, "a forgotten archive is downloaded again")
}

func TestCacheUsesLocalFiles(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileSystem(dir, "")
	require.NoError(t, err)
	_, err = store.Add("a.cbz", strings.NewReader("cbz"))
	require.NoError(t, err)

	cache, err := NewCache(store, filepath.Join(t.TempDir(), "cache"), time.Hour, nil)
	require.NoError(t, err)
	p, err := cache.Fetch("a.cbz")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "a.cbz"), p)

	_, err = cache.Fetch("b.cbz")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCachePurge(t *testing.T) {
	remote := &memStore{objects: map[string][]byte{"old.epub": []byte("1"), "kept.epub": []byte("2"), "new.epub": []byte("3")}}
	cache, err := NewCache(remote, t.TempDir(), time.Hour, nil)
	require.NoError(t, err)

	paths := map[string]string{}
	for k := range remote.objects {
		p, err := cache.Fetch(k)
		require.NoError(t, err)
		paths[k] = p
	}
	past := time.Now().Add(-2 * time.Hour)
	require.NoError(t, os.Chtimes(paths["old.epub"], past, past))
	require.NoError(t, os.Chtimes(paths["kept.epub"], past, past))

	n, err := cache.Purge(func(p string) bool { return p == paths["kept.epub"] })
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.NoFileExists(t, paths["old.epub"])
	assert.FileExists(t, paths["kept.epub"])
	assert.FileExists(t, paths["new.epub"])
}

func TestCacheSchedule(t *testing.T) {
	cache, err := NewCache(&memStore{objects: map[string][]byte{}}, t.TempDir(), time.Hour, nil)
	require.NoError(t, err)
	cache.Schedule(10, nil)
	cache.Stop()
	cache.Stop()
}
