// Copyright 2025 Readium Foundation. All rights reserved.
// Use of this source code is governed by a BSD-style license
// that can be found in the LICENSE file exposed on Github (readium) in the project repository.

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v2"
)

// EnvConfigFile names the environment variable holding the configuration file path
const EnvConfigFile = "READIUM_STREAMER_CONFIG"

type Configuration struct {
	Server  ServerInfo `yaml:"server"`
	Assets  Assets     `yaml:"assets"`
	Reader  Reader     `yaml:"reader"`
	Comics  Comics     `yaml:"comics"`
	Storage Storage    `yaml:"storage"`
	Catalog Catalog    `yaml:"catalog"`
	Logging Logging    `yaml:"logging"`
}

type ServerInfo struct {
	Host          string `yaml:"host,omitempty"`
	Port          int    `yaml:"port,omitempty"`
	AuthFile      string `yaml:"auth_file,omitempty"`
	PublicBaseUrl string `yaml:"public_base_url,omitempty"`
	// Passphrases are tried in order when an opened archive carries a license
	Passphrases []string `yaml:"passphrases,omitempty"`
}

// Assets lists the directories holding the shared scripts, styles and fonts
type Assets struct {
	Scripts string `yaml:"scripts,omitempty"`
	Styles  string `yaml:"styles,omitempty"`
	Fonts   string `yaml:"fonts,omitempty"`
}

type Reader struct {
	// InjectHTML is a pointer so that an explicit false survives the defaults
	InjectHTML         *bool  `yaml:"inject_html,omitempty"`
	UserPropertiesPath string `yaml:"user_properties,omitempty"`
}

// Comics holds the page selection rules of comic archives, gitignore style
type Comics struct {
	Include []string `yaml:"include,omitempty"`
	Exclude []string `yaml:"exclude,omitempty"`
}

type FileSystem struct {
	Directory string `yaml:"directory"`
}

type Storage struct {
	Mode       string     `yaml:"mode,omitempty"`
	FileSystem FileSystem `yaml:"filesystem"`
	CacheDir   string     `yaml:"cache_directory,omitempty"`
	CacheTTL   string     `yaml:"cache_ttl,omitempty"`
	AccessId   string     `yaml:"access_id"`
	DisableSSL bool       `yaml:"disable_ssl"`
	PathStyle  bool       `yaml:"path_style"`
	Secret     string
	Endpoint   string
	Bucket     string
	Region     string
	Token      string
}

type Catalog struct {
	// Database is a "driver://connection" string, the catalog is disabled when empty
	// mysql connections need parseTime=true
	Database string `yaml:"database,omitempty"`
}

type Logging struct {
	Level  string `yaml:"level,omitempty"`
	Format string `yaml:"format,omitempty"`
	File   string `yaml:"file,omitempty"`
}

// ReadConfig reads a yaml configuration file and resolves its defaults
func ReadConfig(configFileName string) (Configuration, error) {
	var cfg Configuration

	filename, _ := filepath.Abs(configFileName)
	yamlFile, err := os.ReadFile(filename)
	if err != nil {
		return cfg, fmt.Errorf("can't read config file %s: %w", configFileName, err)
	}

	if err = yaml.Unmarshal(yamlFile, &cfg); err != nil {
		return cfg, fmt.Errorf("can't unmarshal config %s: %w", configFileName, err)
	}

	if err = SetDefaults(&cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Default returns a configuration made of defaults only
func Default() Configuration {
	var cfg Configuration
	SetDefaults(&cfg)
	return cfg
}

// SetDefaults fills every unset value of the configuration. This is the only place
// where silent defaults are decided.
func SetDefaults(cfg *Configuration) error {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "127.0.0.1"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8989
	}
	if cfg.Server.PublicBaseUrl == "" {
		cfg.Server.PublicBaseUrl = "http://" + cfg.Server.Host + ":" + strconv.Itoa(cfg.Server.Port)
	}

	if cfg.Reader.InjectHTML == nil {
		inject := true
		cfg.Reader.InjectHTML = &inject
	}

	if len(cfg.Comics.Include) == 0 {
		cfg.Comics.Include = []string{"*.jpg", "*.jpeg", "*.png", "*.gif", "*.webp", "*.bmp"}
	}
	if len(cfg.Comics.Exclude) == 0 {
		cfg.Comics.Exclude = []string{"__MACOSX/", ".*"}
	}

	if cfg.Storage.Mode == "" {
		cfg.Storage.Mode = "filesystem"
	}
	if cfg.Storage.CacheDir == "" {
		cfg.Storage.CacheDir = filepath.Join(os.TempDir(), "readium-streamer")
	}
	if cfg.Storage.CacheTTL == "" {
		cfg.Storage.CacheTTL = "24h"
	}
	if _, err := time.ParseDuration(cfg.Storage.CacheTTL); err != nil {
		return fmt.Errorf("invalid storage cache_ttl %q: %w", cfg.Storage.CacheTTL, err)
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "text"
	}
	return nil
}

// TTL returns the parsed cache time-to-live
func (s Storage) TTL() time.Duration {
	d, err := time.ParseDuration(s.CacheTTL)
	if err != nil {
		return 24 * time.Hour
	}
	return d
}

// Inject tells whether HTML resources get the reader markup
func (r Reader) Inject() bool {
	return r.InjectHTML == nil || *r.InjectHTML
}
