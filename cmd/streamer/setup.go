// Copyright 2025 Readium Foundation. All rights reserved.
// Use of this source code is governed by a BSD-style license
// that can be found in the LICENSE file exposed on Github (readium) in the project repository.

package main

import (
	"fmt"
	"os"
	"strconv"

	auth "github.com/abbot/go-http-auth"

	"github.com/readium/readium-streamer/assets"
	"github.com/readium/readium-streamer/catalog"
	"github.com/readium/readium-streamer/cbz"
	"github.com/readium/readium-streamer/config"
	"github.com/readium/readium-streamer/fetcher"
	"github.com/readium/readium-streamer/logger"
	"github.com/readium/readium-streamer/parser"
	"github.com/readium/readium-streamer/server"
	"github.com/readium/readium-streamer/storage"
)

// newLogger builds the process logger from the logging section, the returned
// function closes the log file if any
func newLogger(cfg config.Logging) (*logger.Logger, func(), error) {
	log := logger.New()
	level, err := logger.ParseLevel(cfg.Level)
	if err != nil {
		return nil, nil, err
	}
	log.SetLevel(level)
	if cfg.Format == "json" {
		log.SetFormatter(&logger.JSONFormatter{})
	}
	closer := func() {}
	if cfg.File != "" {
		f, err := logger.Open(cfg.File, 0644)
		if err != nil {
			return nil, nil, fmt.Errorf("can't open log file: %w", err)
		}
		log.SetOutput(f)
		closer = func() { f.Close() }
	}
	return log, closer, nil
}

func parserOptions(cfg config.Configuration, log logger.StdLogger) parser.Options {
	return parser.Options{
		Comics:      cbz.Options{Include: cfg.Comics.Include, Exclude: cfg.Comics.Exclude},
		Passphrases: cfg.Server.Passphrases,
		Logger:      log,
	}
}

func loadAssets(cfg config.Assets) (*assets.Registry, error) {
	reg := assets.NewRegistry()
	for kind, dir := range map[assets.Kind]string{
		assets.Scripts: cfg.Scripts,
		assets.Styles:  cfg.Styles,
		assets.Fonts:   cfg.Fonts,
	} {
		if err := reg.LoadDir(kind, dir); err != nil {
			return nil, fmt.Errorf("loading %s from %s: %w", kind, dir, err)
		}
	}
	return reg, nil
}

// buildServer wires the configured storage, catalog, assets and authentication
// into a server. cleanup stops the cache purge and closes the database.
func buildServer(cfg config.Configuration, log *logger.Logger) (*server.Server, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	reg, err := loadAssets(cfg.Assets)
	if err != nil {
		return nil, nil, err
	}

	store, err := storage.New(cfg.Storage)
	if err != nil {
		return nil, nil, err
	}
	cache, err := storage.NewCache(store, cfg.Storage.CacheDir, cfg.Storage.TTL(), log)
	if err != nil {
		return nil, nil, err
	}

	opts := server.Options{
		BaseURL: cfg.Server.PublicBaseUrl,
		Parser:  parserOptions(cfg, log),
		Fetcher: fetcher.Options{
			InjectHTML:         cfg.Reader.Inject(),
			UserPropertiesPath: cfg.Reader.UserPropertiesPath,
			Fonts:              reg.Names(assets.Fonts),
			Logger:             log,
		},
		Assets: reg,
		Cache:  cache,
		Logger: log,
	}

	if cfg.Catalog.Database != "" {
		cat, db, err := catalog.OpenURI(cfg.Catalog.Database)
		if err != nil {
			return nil, nil, fmt.Errorf("can't open the catalog: %w", err)
		}
		closers = append(closers, func() { db.Close() })
		opts.Catalog = cat
	}

	if authFile := cfg.Server.AuthFile; authFile != "" {
		if _, err := os.Stat(authFile); err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("error reaching passwords file: %w", err)
		}
		htpasswd := auth.HtpasswdFileProvider(authFile)
		opts.Auth = auth.NewBasicAuthenticator("Readium Streamer", htpasswd)
	}

	s := server.New(cfg.Server.Host+":"+strconv.Itoa(cfg.Server.Port), opts)
	cache.Schedule(purgeEvery, s.InUse)
	closers = append(closers, cache.Stop)
	return s, cleanup, nil
}
