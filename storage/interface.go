// Copyright 2025 Readium Foundation. All rights reserved.
// Use of this source code is governed by a BSD-style license
// that can be found in the LICENSE file exposed on Github (readium) in the project repository.

// Package storage gives access to the publication archives kept in a store: a local
// directory, an S3 bucket or a MinIO server. Remote archives are copied to a local
// cache before being opened.
package storage

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/readium/readium-streamer/config"
)

var (
	ErrNotFound       = errors.New("item could not be found")
	ErrNoStorage      = errors.New("no storage configured")
	ErrBucketMismatch = errors.New("bucket is not the configured one")
)

// Item is an archive held by a store
type Item interface {
	Key() string
	PublicURL() string
	Contents() (io.ReadCloser, error)
}

// Store is a flat set of archives, indexed by key
type Store interface {
	Add(key string, r io.ReadSeeker) (Item, error)
	Get(key string) (Item, error)
	Remove(key string) error
	List() ([]Item, error)
}

// Locator is implemented by stores whose items are plain local files
type Locator interface {
	Path(key string) (string, error)
}

// Bucketed is implemented by the stores backed by a named bucket
type Bucketed interface {
	Bucket() string
}

// New creates the store described by the configuration
func New(cfg config.Storage) (Store, error) {
	switch cfg.Mode {
	case "filesystem":
		if cfg.FileSystem.Directory == "" {
			return NoStorage(), nil
		}
		return NewFileSystem(cfg.FileSystem.Directory, "")
	case "s3":
		return S3(S3Config{
			Bucket:         cfg.Bucket,
			Endpoint:       cfg.Endpoint,
			Region:         cfg.Region,
			ID:             cfg.AccessId,
			Secret:         cfg.Secret,
			Token:          cfg.Token,
			DisableSSL:     cfg.DisableSSL,
			ForcePathStyle: cfg.PathStyle,
		})
	case "minio":
		return MinIO(MinIOConfig{
			Endpoint:  cfg.Endpoint,
			Bucket:    cfg.Bucket,
			AccessKey: cfg.AccessId,
			SecretKey: cfg.Secret,
			Token:     cfg.Token,
			UseSSL:    !cfg.DisableSSL,
		})
	case "none":
		return NoStorage(), nil
	}
	return nil, fmt.Errorf("unknown storage mode %q", cfg.Mode)
}

const storeScheme = "store://"

// Key splits an archive reference, "store://key" or "s3://bucket/key", into its
// bucket and key. The bucket is empty for store references. ok is false for any
// other reference, which is a local path.
func Key(ref string) (bucket, key string, ok bool) {
	switch {
	case strings.HasPrefix(ref, storeScheme):
		return "", strings.TrimPrefix(ref, storeScheme), true
	case strings.HasPrefix(ref, "s3://"):
		rest := strings.TrimPrefix(ref, "s3://")
		if i := strings.IndexByte(rest, '/'); i > 0 && i < len(rest)-1 {
			return rest[:i], rest[i+1:], true
		}
	}
	return "", "", false
}

// Ref is the store reference of a key
func Ref(key string) string {
	return storeScheme + key
}

// CheckBucket rejects a bucket named by a reference when the store is not backed
// by that bucket
func CheckBucket(store Store, bucket string) error {
	if bucket == "" {
		return nil
	}
	if b, ok := store.(Bucketed); ok && b.Bucket() == bucket {
		return nil
	}
	return fmt.Errorf("%w: %s", ErrBucketMismatch, bucket)
}
