// Copyright 2025 Readium Foundation. All rights reserved.
// Use of this source code is governed by a BSD-style license
// that can be found in the LICENSE file exposed on Github (readium) in the project repository.

package server

import (
	"errors"
	"io"
	"net/http"
	"os"
	"path"
	"sort"
	"strings"

	"github.com/gorilla/mux"

	"github.com/readium/readium-streamer/logger"
	"github.com/readium/readium-streamer/problem"
	"github.com/readium/readium-streamer/storage"
)

// ArchiveInfo is an archive of the store. Location can be posted to
// /api/publications to mount it.
type ArchiveInfo struct {
	Key       string `json:"key"`
	Location  string `json:"location"`
	PublicURL string `json:"url,omitempty"`
	Mount     string `json:"mount,omitempty"`
}

func (s *Server) archiveInfo(item storage.Item) ArchiveInfo {
	info := ArchiveInfo{Key: item.Key(), Location: storage.Ref(item.Key()), PublicURL: item.PublicURL()}
	if m := s.mountOfKey(item.Key()); m != nil {
		info.Mount = m.Name
	}
	return info
}

// mountOfKey returns the mount served from a store key
func (s *Server) mountOfKey(key string) *Mount {
	for _, m := range s.Mounts() {
		if _, k, ok := storage.Key(m.Location); ok && k == key {
			return m
		}
	}
	return nil
}

// validKey rejects empty keys and keys climbing out of the store
func validKey(key string) bool {
	if key == "" || strings.HasPrefix(key, "/") || strings.HasSuffix(key, "/") {
		return false
	}
	return path.Clean(key) == key && !strings.HasPrefix(key, "../") && key != ".."
}

func (s *Server) store(w http.ResponseWriter, r *http.Request) (storage.Store, bool) {
	if s.opts.Cache == nil {
		problem.Error(w, r, problem.Problem{Type: problem.NoStorageType, Detail: storage.ErrNoStorage.Error()}, http.StatusNotFound)
		return nil, false
	}
	return s.opts.Cache.Store(), true
}

// ListArchives lists the archives of the store, sorted by key
func ListArchives(w http.ResponseWriter, r *http.Request, s *Server) {
	if !CheckAuth(s.opts.Auth, w, r, s.log) {
		return
	}
	store, ok := s.store(w, r)
	if !ok {
		return
	}
	items, err := store.List()
	if err != nil {
		s.failure(w, r, err)
		return
	}
	list := make([]ArchiveInfo, 0, len(items))
	for _, item := range items {
		list = append(list, s.archiveInfo(item))
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Key < list[j].Key })
	writeJSON(w, http.StatusOK, list)
}

// UploadArchive stores the request body under a key, replacing any archive
// with that key which is not mounted
func UploadArchive(w http.ResponseWriter, r *http.Request, s *Server) {
	if !CheckAuth(s.opts.Auth, w, r, s.log) {
		return
	}
	store, ok := s.store(w, r)
	if !ok {
		return
	}
	key := mux.Vars(r)["key"]
	if !validKey(key) {
		problem.Error(w, r, problem.Problem{Type: problem.BadRequestType, Detail: "invalid archive key " + key}, http.StatusBadRequest)
		return
	}
	if m := s.mountOfKey(key); m != nil {
		problem.Error(w, r, problem.Problem{Type: problem.ArchiveInUseType, Detail: key + " is mounted as " + m.Name}, http.StatusConflict)
		return
	}

	// the stores need a seekable body
	tmp, err := os.CreateTemp("", "upload-*"+path.Ext(key))
	if err != nil {
		s.failure(w, r, err)
		return
	}
	defer os.Remove(tmp.Name())
	defer tmp.Close()
	if _, err = io.Copy(tmp, r.Body); err != nil {
		problem.Error(w, r, problem.Problem{Type: problem.BadRequestType, Detail: err.Error()}, http.StatusBadRequest)
		return
	}
	if _, err = tmp.Seek(0, io.SeekStart); err != nil {
		s.failure(w, r, err)
		return
	}

	item, err := store.Add(key, tmp)
	switch {
	case errors.Is(err, storage.ErrNoStorage):
		problem.Error(w, r, problem.Problem{Type: problem.NoStorageType, Detail: err.Error()}, http.StatusNotFound)
		return
	case err != nil:
		s.failure(w, r, err)
		return
	}
	if err = s.opts.Cache.Forget(key); err != nil {
		s.log.Warnf("cannot drop the cached copy of %s: %v", key, err)
	}
	s.log.WithFields(logger.Fields{"key": key}).Infof("archive stored")
	writeJSON(w, http.StatusCreated, s.archiveInfo(item))
}

// RemoveArchive deletes an archive which is not mounted from the store
func RemoveArchive(w http.ResponseWriter, r *http.Request, s *Server) {
	if !CheckAuth(s.opts.Auth, w, r, s.log) {
		return
	}
	store, ok := s.store(w, r)
	if !ok {
		return
	}
	key := mux.Vars(r)["key"]
	if !validKey(key) {
		problem.Error(w, r, problem.Problem{Type: problem.BadRequestType, Detail: "invalid archive key " + key}, http.StatusBadRequest)
		return
	}
	if m := s.mountOfKey(key); m != nil {
		problem.Error(w, r, problem.Problem{Type: problem.ArchiveInUseType, Detail: key + " is mounted as " + m.Name}, http.StatusConflict)
		return
	}
	err := store.Remove(key)
	switch {
	case err == nil:
		if err = s.opts.Cache.Forget(key); err != nil {
			s.log.Warnf("cannot drop the cached copy of %s: %v", key, err)
		}
		w.WriteHeader(http.StatusNoContent)
	case errors.Is(err, storage.ErrNotFound):
		problem.Error(w, r, problem.Problem{Type: problem.NotFoundType, Detail: key}, http.StatusNotFound)
	default:
		s.failure(w, r, err)
	}
}
