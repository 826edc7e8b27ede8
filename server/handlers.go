// Copyright 2025 Readium Foundation. All rights reserved.
// Use of this source code is governed by a BSD-style license
// that can be found in the LICENSE file exposed on Github (readium) in the project repository.

package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"strconv"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/gorilla/mux"
	uuid "github.com/satori/go.uuid"

	"github.com/readium/readium-streamer/assets"
	"github.com/readium/readium-streamer/container"
	"github.com/readium/readium-streamer/problem"
	"github.com/readium/readium-streamer/rwpm"
	"github.com/readium/readium-streamer/search"
)

// ServeManifest returns the publication manifest
func ServeManifest(w http.ResponseWriter, r *http.Request, m *Mount) {
	w.Header().Set("Content-Type", rwpm.ContentTypeManifest)
	w.Header().Set("Content-Length", strconv.Itoa(len(m.manifest)))
	w.WriteHeader(http.StatusOK)
	w.Write(m.manifest)
}

// etag identifies a filtered resource stream
func (m *Mount) etag(href string, length int64) string {
	name := fmt.Sprintf("%s|%s|%s|%d|%d", m.Publication().Metadata.Identifier, m.Name, href, length, m.Added.UnixNano())
	return `"` + uuid.NewV5(uuid.NamespaceURL, name).String() + `"`
}

func etagMatch(header, etag string) bool {
	for _, candidate := range strings.Split(header, ",") {
		candidate = strings.TrimPrefix(strings.TrimSpace(candidate), "W/")
		if candidate == "*" || candidate == etag {
			return true
		}
	}
	return false
}

func (m *Mount) notFound(w http.ResponseWriter, r *http.Request, err error) {
	problem.Error(w, r, problem.Problem{Type: problem.NotFoundType, Detail: err.Error()}, http.StatusNotFound)
}

// ServeResource streams a resource of the publication through its content filters,
// honouring byte ranges and entity tags
func ServeResource(w http.ResponseWriter, r *http.Request, m *Mount) {
	href := mux.Vars(r)["path"]
	res, err := m.Fetcher.Fetch(href)
	if err != nil {
		if errors.Is(err, container.ErrResourceNotFound) || errors.Is(err, container.ErrInvalidPath) {
			m.notFound(w, r, err)
			return
		}
		m.server.failure(w, r, err)
		return
	}
	defer res.Close()

	h := w.Header()
	h.Set("Accept-Ranges", "bytes")
	if res.Link.Type != "" {
		h.Set("Content-Type", res.Link.Type)
	}

	rng, ranged, err := parseRange(r.Header.Get("Range"), res.Length)
	if err != nil {
		h.Set("Content-Range", fmt.Sprintf("bytes 0-0/%d", res.Length))
		w.WriteHeader(http.StatusRequestedRangeNotSatisfiable)
		return
	}

	if !ranged {
		etag := m.etag(res.Link.Href, res.Length)
		h.Set("ETag", etag)
		if inm := r.Header.Get("If-None-Match"); inm != "" && etagMatch(inm, etag) {
			w.WriteHeader(http.StatusNotModified)
			return
		}
		h.Set("Content-Length", strconv.FormatInt(res.Length, 10))
		w.WriteHeader(http.StatusOK)
		if r.Method != http.MethodHead {
			io.Copy(w, res)
		}
		return
	}

	if err = skip(res, rng.start); err != nil {
		m.server.failure(w, r, err)
		return
	}
	h.Set("Content-Length", strconv.FormatInt(rng.length(), 10))
	h.Set("Content-Range", fmt.Sprintf("bytes %d-%d/%d", rng.start, rng.end, res.Length))
	w.WriteHeader(http.StatusPartialContent)
	if r.Method != http.MethodHead {
		io.CopyN(w, res, rng.length())
	}
}

// skip moves a stream forward, seeking when the stream allows it
func skip(r io.Reader, n int64) error {
	if n == 0 {
		return nil
	}
	if s, ok := r.(io.Seeker); ok {
		_, err := s.Seek(n, io.SeekStart)
		return err
	}
	_, err := io.CopyN(io.Discard, r, n)
	return err
}

// SearchPublication answers /{mount}/search?query=&spineIndex=
func SearchPublication(w http.ResponseWriter, r *http.Request, m *Mount) {
	query := r.URL.Query().Get("query")
	spineIndex := -1
	if v := r.URL.Query().Get("spineIndex"); v != "" {
		i, err := strconv.Atoi(v)
		if err != nil {
			problem.Error(w, r, problem.Problem{Type: problem.BadRequestType, Detail: "spineIndex must be a number"}, http.StatusBadRequest)
			return
		}
		spineIndex = i
	}

	locators, err := search.Publication(m.Fetcher, query, spineIndex, m.server.opts.Search)
	if err != nil {
		if errors.Is(err, search.ErrInvalidIndex) {
			problem.Error(w, r, problem.Problem{Type: problem.BadRequestType, Detail: err.Error()}, http.StatusBadRequest)
			return
		}
		m.server.failure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, locators)
}

// ServeMediaOverlay returns the narration of a reading order resource, or an
// empty object when the resource is not narrated
func ServeMediaOverlay(w http.ResponseWriter, r *http.Request, m *Mount) {
	if !m.HasMediaOverlays() {
		problem.Error(w, r, problem.Problem{Type: problem.NoMediaOverlayType, Detail: m.Name + " has no media overlay"}, http.StatusNotFound)
		return
	}
	resource := strings.TrimPrefix(r.URL.Query().Get("resource"), "/")
	for _, l := range m.Publication().ReadingOrder {
		if l.Href == resource && l.MediaOverlays != nil {
			writeJSON(w, http.StatusOK, l.MediaOverlays)
			return
		}
	}
	writeJSON(w, http.StatusOK, struct{}{})
}

// ServeCover returns the cover image, resized when a width is given
func ServeCover(w http.ResponseWriter, r *http.Request, m *Mount) {
	cover, ok := m.Publication().Cover()
	if !ok {
		problem.Error(w, r, problem.Problem{Type: problem.NotFoundType, Detail: m.Name + " has no cover"}, http.StatusNotFound)
		return
	}
	width := 0
	if v := r.URL.Query().Get("width"); v != "" {
		var err error
		if width, err = strconv.Atoi(v); err != nil || width < 0 {
			problem.Error(w, r, problem.Problem{Type: problem.BadRequestType, Detail: "width must be a positive number"}, http.StatusBadRequest)
			return
		}
	}

	data, err := m.Fetcher.Data(cover.Href)
	if err != nil {
		if errors.Is(err, container.ErrResourceNotFound) {
			m.notFound(w, r, err)
			return
		}
		m.server.failure(w, r, err)
		return
	}
	contentType := cover.Type

	if width > 0 {
		img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
		if err != nil {
			m.server.failure(w, r, fmt.Errorf("decoding cover %s: %w", cover.Href, err))
			return
		}
		if width < img.Bounds().Dx() {
			img = imaging.Resize(img, width, 0, imaging.Lanczos)
		}
		format, err := imaging.FormatFromFilename(cover.Href)
		if err != nil {
			format = imaging.JPEG
		}
		var buf bytes.Buffer
		if err = imaging.Encode(&buf, img, format); err != nil {
			m.server.failure(w, r, err)
			return
		}
		data = buf.Bytes()
		contentType = "image/" + strings.ToLower(format.String())
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// staticHandler serves the shared reader assets by base name
func (s *Server) staticHandler(kind assets.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := path.Base(mux.Vars(r)["name"])
		a, ok := s.opts.Assets.Get(kind, name)
		if !ok {
			problem.Error(w, r, problem.Problem{Type: problem.NotFoundType, Detail: fmt.Sprintf("no %s named %s", kind, name)}, http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", a.Type)
		w.Header().Set("Accept-Ranges", "bytes")
		http.ServeContent(w, r, a.Name, a.ModTime, bytes.NewReader(a.Data))
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		w.Header().Set("Content-Type", ContentType_JSON)
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(FailureMarker))
		return
	}
	w.Header().Set("Content-Type", ContentType_JSON)
	w.WriteHeader(status)
	w.Write(data)
}
