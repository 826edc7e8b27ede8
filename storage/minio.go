// Copyright 2025 Readium Foundation. All rights reserved.
// Use of this source code is governed by a BSD-style license
// that can be found in the LICENSE file exposed on Github (readium) in the project repository.

package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

type MinIOConfig struct {
	Endpoint  string
	Bucket    string
	AccessKey string
	SecretKey string
	Token     string
	UseSSL    bool
	// Client replaces the client built from the other fields
	Client *minio.Client
}

type minioStore struct {
	client *minio.Client
	bucket string
}

type minioItem struct {
	key   string
	store *minioStore
}

func (i minioItem) Key() string {
	return i.key
}

func (i minioItem) PublicURL() string {
	return strings.TrimSuffix(i.store.client.EndpointURL().String(), "/") + "/" + i.store.bucket + "/" + i.key
}

func (i minioItem) Contents() (io.ReadCloser, error) {
	ctx := context.Background()
	// GetObject is lazy, stat first so that a missing key fails here
	if _, err := i.store.client.StatObject(ctx, i.store.bucket, i.key, minio.StatObjectOptions{}); err != nil {
		return nil, translateMinIO(err)
	}
	obj, err := i.store.client.GetObject(ctx, i.store.bucket, i.key, minio.GetObjectOptions{})
	if err != nil {
		return nil, translateMinIO(err)
	}
	return obj, nil
}

func translateMinIO(err error) error {
	if err == nil {
		return nil
	}
	switch minio.ToErrorResponse(err).Code {
	case "NoSuchKey", "NoSuchBucket", "NotFound":
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	}
	return err
}

// MinIO returns a store on a bucket of an S3 compatible server
func MinIO(cfg MinIOConfig) (Store, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("minio storage needs a bucket")
	}
	client := cfg.Client
	if client == nil {
		var err error
		client, err = minio.New(cfg.Endpoint, &minio.Options{
			Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, cfg.Token),
			Secure: cfg.UseSSL,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create minio client: %w", err)
		}
	}
	return &minioStore{client: client, bucket: cfg.Bucket}, nil
}

func (s *minioStore) Bucket() string {
	return s.bucket
}

func (s *minioStore) Add(key string, r io.ReadSeeker) (Item, error) {
	size, err := r.Seek(0, io.SeekEnd)
	if err != nil {
		return nil, err
	}
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}
	_, err = s.client.PutObject(context.Background(), s.bucket, key, r, size, minio.PutObjectOptions{})
	if err != nil {
		return nil, translateMinIO(err)
	}
	return minioItem{key: key, store: s}, nil
}

func (s *minioStore) Get(key string) (Item, error) {
	if _, err := s.client.StatObject(context.Background(), s.bucket, key, minio.StatObjectOptions{}); err != nil {
		return nil, translateMinIO(err)
	}
	return minioItem{key: key, store: s}, nil
}

func (s *minioStore) Remove(key string) error {
	return translateMinIO(s.client.RemoveObject(context.Background(), s.bucket, key, minio.RemoveObjectOptions{}))
}

func (s *minioStore) List() ([]Item, error) {
	var items []Item
	for object := range s.client.ListObjects(context.Background(), s.bucket, minio.ListObjectsOptions{Recursive: true}) {
		if object.Err != nil {
			return nil, translateMinIO(object.Err)
		}
		items = append(items, minioItem{key: object.Key, store: s})
	}
	return items, nil
}
