// Copyright 2025 Readium Foundation. All rights reserved.
// Use of this source code is governed by a BSD-style license
// that can be found in the LICENSE file exposed on Github (readium) in the project repository.

package server

import (
	"encoding/json"
	"errors"
	"net/http"

	auth "github.com/abbot/go-http-auth"
	"github.com/gorilla/mux"

	"github.com/readium/readium-streamer/catalog"
	"github.com/readium/readium-streamer/logger"
	"github.com/readium/readium-streamer/problem"
)

// MountRequest is the payload of POST /api/publications
type MountRequest struct {
	Location string `json:"location"`
	Mount    string `json:"mount,omitempty"`
}

// PublicationInfo is a mounted publication as listed by the api
type PublicationInfo struct {
	catalog.Entry
	Manifest string `json:"manifest"`
}

func (s *Server) info(m *Mount) PublicationInfo {
	return PublicationInfo{Entry: m.Entry(), Manifest: s.opts.BaseURL + "/" + m.Name + "/manifest.json"}
}

// CheckAuth answers 401 and returns false when the request is not authenticated.
// Without authenticator every request passes.
func CheckAuth(authenticator *auth.BasicAuth, w http.ResponseWriter, r *http.Request, log logger.StdLogger) bool {
	if authenticator == nil {
		return true
	}
	var username string
	if username = authenticator.CheckAuth(r); username == "" {
		log.WithFields(logger.Fields{"method": r.Method, "path": r.URL.Path}).Warnf("unauthorized")
		w.Header().Set("WWW-Authenticate", `Basic realm="`+authenticator.Realm+`"`)
		problem.Error(w, r, problem.Problem{Type: problem.UnauthorizedType, Detail: "User or password do not match!"}, http.StatusUnauthorized)
		return false
	}
	log.WithFields(logger.Fields{"user": username}).Debugf("authenticated")
	return true
}

// ListPublications lists the mounted publications
func ListPublications(w http.ResponseWriter, r *http.Request, s *Server) {
	if !CheckAuth(s.opts.Auth, w, r, s.log) {
		return
	}
	list := []PublicationInfo{}
	for _, m := range s.Mounts() {
		list = append(list, s.info(m))
	}
	writeJSON(w, http.StatusOK, list)
}

// GetPublication describes a mounted publication
func GetPublication(w http.ResponseWriter, r *http.Request, s *Server) {
	if !CheckAuth(s.opts.Auth, w, r, s.log) {
		return
	}
	m, ok := s.Lookup(mux.Vars(r)["mount"])
	if !ok {
		problem.Error(w, r, problem.Problem{Type: problem.UnknownMountType}, http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, s.info(m))
}

// AddPublication opens and mounts an archive
func AddPublication(w http.ResponseWriter, r *http.Request, s *Server) {
	if !CheckAuth(s.opts.Auth, w, r, s.log) {
		return
	}
	var req MountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Location == "" {
		problem.Error(w, r, problem.Problem{Type: problem.BadRequestType, Detail: "a json object with a location is expected"}, http.StatusBadRequest)
		return
	}

	m, err := s.Mount(req.Location, req.Mount)
	switch {
	case err == nil:
		w.Header().Set("Location", s.opts.BaseURL+"/"+m.Name+"/manifest.json")
		writeJSON(w, http.StatusCreated, s.info(m))
	case errors.Is(err, ErrMountConflict):
		problem.Error(w, r, problem.Problem{Type: problem.MountConflictType, Detail: err.Error()}, http.StatusConflict)
	case errors.Is(err, ErrReservedName):
		problem.Error(w, r, problem.Problem{Type: problem.BadRequestType, Detail: err.Error()}, http.StatusBadRequest)
	default:
		s.log.WithFields(logger.Fields{"location": req.Location}).Warnf("cannot mount: %v", err)
		problem.Error(w, r, problem.Problem{Type: problem.OpenFailedType, Detail: err.Error()}, http.StatusUnprocessableEntity)
	}
}

// RemovePublication unmounts a publication
func RemovePublication(w http.ResponseWriter, r *http.Request, s *Server) {
	if !CheckAuth(s.opts.Auth, w, r, s.log) {
		return
	}
	err := s.Unmount(mux.Vars(r)["mount"])
	switch {
	case err == nil:
		w.WriteHeader(http.StatusNoContent)
	case errors.Is(err, catalog.ErrNotFound):
		problem.Error(w, r, problem.Problem{Type: problem.UnknownMountType, Detail: err.Error()}, http.StatusNotFound)
	default:
		s.failure(w, r, err)
	}
}
