// Copyright 2025 Readium Foundation. All rights reserved.
// Use of this source code is governed by a BSD-style license
// that can be found in the LICENSE file exposed on Github (readium) in the project repository.

package storage

import (
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
)

type s3store struct {
	bucket string
	client *s3.S3
}

type s3item struct {
	key   string
	store *s3store
}

func (i s3item) Key() string {
	return i.key
}

func (i s3item) PublicURL() string {
	return fmt.Sprintf("%s/%s/%s", i.store.client.Endpoint, i.store.bucket, i.key)
}

func (i s3item) Contents() (io.ReadCloser, error) {
	resp, err := i.store.client.GetObject(&s3.GetObjectInput{
		Bucket: aws.String(i.store.bucket),
		Key:    aws.String(i.key),
	})
	if err != nil {
		return nil, translateS3(err)
	}
	return resp.Body, nil
}

// translateS3 maps missing objects to ErrNotFound
func translateS3(err error) error {
	var aerr awserr.Error
	if errors.As(err, &aerr) {
		switch aerr.Code() {
		case s3.ErrCodeNoSuchKey, s3.ErrCodeNoSuchBucket, "NotFound":
			return fmt.Errorf("%w: %v", ErrNotFound, err)
		}
	}
	return err
}

func (s *s3store) Bucket() string {
	return s.bucket
}

func (s *s3store) Add(key string, r io.ReadSeeker) (Item, error) {
	_, err := s.client.PutObject(&s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   r,
	})
	if err != nil {
		return nil, err
	}
	return s3item{key: key, store: s}, nil
}

func (s *s3store) Get(key string) (Item, error) {
	_, err := s.client.HeadObject(&s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, translateS3(err)
	}
	return s3item{key: key, store: s}, nil
}

func (s *s3store) Remove(key string) error {
	_, err := s.client.DeleteObject(&s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	return translateS3(err)
}

func (s *s3store) List() ([]Item, error) {
	var items []Item
	err := s.client.ListObjectsPages(&s3.ListObjectsInput{
		Bucket: aws.String(s.bucket),
	}, func(page *s3.ListObjectsOutput, last bool) bool {
		for _, o := range page.Contents {
			items = append(items, s3item{key: aws.StringValue(o.Key), store: s})
		}
		return true
	})
	if err != nil {
		return nil, translateS3(err)
	}
	return items, nil
}

type S3Config struct {
	Bucket   string
	Endpoint string
	Region   string

	ID     string
	Secret string
	Token  string

	DisableSSL     bool
	ForcePathStyle bool
}

// S3 returns a store on an S3 bucket
func S3(config S3Config) (Store, error) {
	awsConfig := &aws.Config{
		DisableSSL:       aws.Bool(config.DisableSSL),
		S3ForcePathStyle: aws.Bool(config.ForcePathStyle),
		Region:           aws.String(config.Region),
	}
	if config.ID != "" {
		awsConfig.Credentials = credentials.NewStaticCredentials(config.ID, config.Secret, config.Token)
	}
	if config.Endpoint != "" {
		awsConfig.Endpoint = aws.String(config.Endpoint)
	}
	sess, err := session.NewSession(awsConfig)
	if err != nil {
		return nil, err
	}
	return &s3store{client: s3.New(sess), bucket: config.Bucket}, nil
}
