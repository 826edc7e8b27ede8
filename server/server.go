// Copyright 2025 Readium Foundation. All rights reserved.
// Use of this source code is governed by a BSD-style license
// that can be found in the LICENSE file exposed on Github (readium) in the project repository.

// Package server streams mounted publications over HTTP: manifests, filtered
// resources with byte ranges, search, media overlays and the shared reader assets.
package server

import (
	"context"
	"net/http"
	"strings"
	"sync"

	auth "github.com/abbot/go-http-auth"
	"github.com/gorilla/mux"
	"github.com/jeffbmartinez/delay"
	"github.com/rs/cors"
	"github.com/urfave/negroni"

	"github.com/readium/readium-streamer/assets"
	"github.com/readium/readium-streamer/catalog"
	"github.com/readium/readium-streamer/fetcher"
	"github.com/readium/readium-streamer/logger"
	"github.com/readium/readium-streamer/parser"
	"github.com/readium/readium-streamer/problem"
	"github.com/readium/readium-streamer/search"
	"github.com/readium/readium-streamer/storage"
)

const (
	ContentType_JSON = "application/json"

	// FailureMarker is the body of every internal failure response
	FailureMarker = `{"success":false}`
)

type Options struct {
	// BaseURL prefixes the links written into the manifests, without trailing slash
	BaseURL string
	Parser  parser.Options
	Fetcher fetcher.Options
	Search  search.Options
	Assets  *assets.Registry
	// Catalog persists the mounts, optional
	Catalog catalog.Catalog
	// Cache resolves store references to local archives, optional
	Cache *storage.Cache
	// Auth protects the publication api, optional
	Auth   *auth.BasicAuth
	Logger logger.StdLogger
}

// Server owns the route table, the mounted publications and the shared assets
type Server struct {
	http.Server
	router *mux.Router
	opts   Options
	log    logger.StdLogger

	// mounting serializes Mount and Unmount
	mounting sync.Mutex
	mu       sync.RWMutex
	mounts   map[string]*Mount
}

type HandlerFunc func(w http.ResponseWriter, r *http.Request, s *Server)

type MountHandlerFunc func(w http.ResponseWriter, r *http.Request, m *Mount)

func New(bindAddr string, opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = logger.Discard()
	}
	if opts.Assets == nil {
		opts.Assets = assets.NewRegistry()
	}
	if opts.Fetcher.Logger == nil {
		opts.Fetcher.Logger = opts.Logger
	}
	if opts.Parser.Logger == nil {
		opts.Parser.Logger = opts.Logger
	}
	opts.BaseURL = strings.TrimSuffix(opts.BaseURL, "/")

	r := mux.NewRouter()
	s := &Server{
		router: r,
		opts:   opts,
		log:    opts.Logger,
		mounts: make(map[string]*Mount),
	}
	s.Server = http.Server{
		Handler: s.middleware(r),
		Addr:    bindAddr,
	}

	for _, kind := range []assets.Kind{assets.Scripts, assets.Styles, assets.Fonts} {
		r.HandleFunc("/"+string(kind)+"/{name}", s.staticHandler(kind)).Methods("GET", "HEAD")
	}

	s.handleFunc("/api/publications", ListPublications).Methods("GET")
	s.handleFunc("/api/publications", AddPublication).Methods("POST")
	s.handleFunc("/api/publications/{mount}", GetPublication).Methods("GET")
	s.handleFunc("/api/publications/{mount}", RemovePublication).Methods("DELETE")
	s.handleFunc("/api/store", ListArchives).Methods("GET")
	s.handleFunc("/api/store/{key:.+}", UploadArchive).Methods("PUT")
	s.handleFunc("/api/store/{key:.+}", RemoveArchive).Methods("DELETE")

	s.mountFunc("/{mount}/manifest", ServeManifest).Methods("GET", "HEAD")
	s.mountFunc("/{mount}/manifest.json", ServeManifest).Methods("GET", "HEAD")
	s.mountFunc("/{mount}/search", SearchPublication).Methods("GET")
	s.mountFunc("/{mount}/media-overlay", ServeMediaOverlay).Methods("GET")
	s.mountFunc("/{mount}/cover", ServeCover).Methods("GET", "HEAD")
	s.mountFunc("/{mount}/{path:.+}", ServeResource).Methods("GET", "HEAD")

	r.NotFoundHandler = http.HandlerFunc(problem.NotFoundHandler)

	return s
}

func (s *Server) middleware(h http.Handler) http.Handler {
	n := negroni.New()

	// HTTP client can emit requests with custom header:
	//X-Add-Delay: 300ms
	n.Use(delay.Middleware{})

	recovery := negroni.NewRecovery()
	recovery.Logger = s.log
	recovery.PrintStack = true
	recovery.Formatter = failureFormatter{}
	recovery.ErrorHandlerFunc = s.panicReport
	n.Use(recovery)

	access := negroni.NewLogger()
	access.ALogger = s.log
	n.Use(access)

	c := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"HEAD", "POST", "GET", "OPTIONS", "DELETE"},
		AllowedHeaders: []string{"Range", "Content-Type", "Origin", "X-Requested-With", "Accept", "Accept-Language", "Content-Language", "Authorization", "If-None-Match"},
		ExposedHeaders: []string{"Content-Range", "Content-Length", "Accept-Ranges", "ETag"},
		Debug:          false,
	})
	n.Use(c)

	n.UseHandler(h)
	return n
}

// failureFormatter replaces the panic page by the failure marker
type failureFormatter struct{}

func (failureFormatter) FormatPanicError(w http.ResponseWriter, r *http.Request, infos *negroni.PanicInformation) {
	w.Write([]byte(FailureMarker))
}

func (s *Server) panicReport(err interface{}) {
	switch t := err.(type) {
	case error:
		s.log.WithFields(logger.Fields{"panic": t.Error()}).Errorf("panic recovery")
	default:
		s.log.WithFields(logger.Fields{"panic": t}).Errorf("panic recovery")
	}
}

func (s *Server) handleFunc(route string, fn HandlerFunc) *mux.Route {
	return s.router.HandleFunc(route, func(w http.ResponseWriter, r *http.Request) {
		fn(w, r, s)
	})
}

// mountFunc resolves the mount of the request before calling the handler
func (s *Server) mountFunc(route string, fn MountHandlerFunc) *mux.Route {
	return s.router.HandleFunc(route, func(w http.ResponseWriter, r *http.Request) {
		name := mux.Vars(r)["mount"]
		m, ok := s.Lookup(name)
		if !ok {
			problem.Error(w, r, problem.Problem{Type: problem.UnknownMountType, Detail: "no publication mounted as " + name}, http.StatusNotFound)
			return
		}
		fn(w, r, m)
	})
}

// Shutdown stops the listener then closes every mounted publication. The catalog
// keeps the mounts for the next start.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.Server.Shutdown(ctx)
	s.CloseMounts()
	return err
}

// CloseMounts releases the containers of the mounted publications
func (s *Server) CloseMounts() {
	s.mounting.Lock()
	defer s.mounting.Unlock()
	s.mu.Lock()
	defer s.mu.Unlock()
	for name, m := range s.mounts {
		if err := m.close(); err != nil {
			s.log.Warnf("closing %s: %v", name, err)
		}
		delete(s.mounts, name)
	}
}

// failure answers an internal failure with the fixed marker
func (s *Server) failure(w http.ResponseWriter, r *http.Request, err error) {
	s.log.WithFields(logger.Fields{"path": r.URL.Path}).Errorf("request failed: %v", err)
	w.Header().Set("Content-Type", ContentType_JSON)
	w.WriteHeader(http.StatusInternalServerError)
	w.Write([]byte(FailureMarker))
}
