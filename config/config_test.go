// Copyright 2025 Readium Foundation. All rights reserved.
// Use of this source code is governed by a BSD-style license
// that can be found in the LICENSE file exposed on Github (readium) in the project repository.

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaults(t *testing.T) {
	cfg := Default()

	if cfg.Server.Port != 8989 || cfg.Server.Host != "127.0.0.1" {
		t.Errorf("unexpected server defaults %+v", cfg.Server)
	}
	if cfg.Server.PublicBaseUrl != "http://127.0.0.1:8989" {
		t.Errorf("unexpected public base url %s", cfg.Server.PublicBaseUrl)
	}
	if !cfg.Reader.Inject() {
		t.Error("html injection should be on by default")
	}
	if cfg.Storage.TTL() != 24*time.Hour {
		t.Errorf("unexpected ttl %v", cfg.Storage.TTL())
	}
	if len(cfg.Comics.Include) == 0 {
		t.Error("expected default comic page rules")
	}
}

func TestReadConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yml := `server:
  port: 9000
reader:
  inject_html: false
storage:
  mode: s3
  bucket: books
  cache_ttl: 2h
logging:
  level: debug
`
	if err := os.WriteFile(path, []byte(yml), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := ReadConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Port != 9000 || cfg.Server.PublicBaseUrl != "http://127.0.0.1:9000" {
		t.Errorf("unexpected server config %+v", cfg.Server)
	}
	if cfg.Reader.Inject() {
		t.Error("explicit inject_html: false must be kept")
	}
	if cfg.Storage.Mode != "s3" || cfg.Storage.Bucket != "books" || cfg.Storage.TTL() != 2*time.Hour {
		t.Errorf("unexpected storage config %+v", cfg.Storage)
	}
	if cfg.Logging.Level != "debug" || cfg.Logging.Format != "text" {
		t.Errorf("unexpected logging config %+v", cfg.Logging)
	}
}

func TestReadConfigErrors(t *testing.T) {
	if _, err := ReadConfig(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected an error for a missing file")
	}

	path := filepath.Join(t.TempDir(), "bad.yaml")
	os.WriteFile(path, []byte("storage:\n  cache_ttl: soon\n"), 0644)
	if _, err := ReadConfig(path); err == nil {
		t.Error("expected an error for an invalid ttl")
	}
}
