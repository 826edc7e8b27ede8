// Copyright 2025 Readium Foundation. All rights reserved.
// Use of this source code is governed by a BSD-style license
// that can be found in the LICENSE file exposed on Github (readium) in the project repository.

package license

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/readium/readium-streamer/crypto"
	"github.com/readium/readium-streamer/drm"
)

var (
	ErrInvalidPassphrase  = errors.New("the passphrase does not match the license")
	ErrUnsupportedProfile = errors.New("unsupported encryption profile")
	ErrNotActive          = errors.New("the license is not active")
)

type Key struct {
	Algorithm string `json:"algorithm,omitempty"`
}

type ContentKey struct {
	Key
	Value []byte `json:"encrypted_value,omitempty"`
}

type UserKey struct {
	Key
	Hint  string `json:"text_hint,omitempty"`
	Check []byte `json:"key_check,omitempty"`
}

type Encryption struct {
	Profile    string     `json:"profile,omitempty"`
	ContentKey ContentKey `json:"content_key"`
	UserKey    UserKey    `json:"user_key"`
}

type Link struct {
	Rel       string `json:"rel"`
	Href      string `json:"href"`
	Type      string `json:"type,omitempty"`
	Title     string `json:"title,omitempty"`
	Profile   string `json:"profile,omitempty"`
	Templated bool   `json:"templated,omitempty"`
	Size      int64  `json:"length,omitempty"`
	Checksum  string `json:"hash,omitempty"`
}

type UserInfo struct {
	ID        string   `json:"id"`
	Email     string   `json:"email,omitempty"`
	Name      string   `json:"name,omitempty"`
	Encrypted []string `json:"encrypted,omitempty"`
}

type UserRights struct {
	Print *int32     `json:"print,omitempty"`
	Copy  *int32     `json:"copy,omitempty"`
	Start *time.Time `json:"start,omitempty"`
	End   *time.Time `json:"end,omitempty"`
}

// License is an LCP license document, as found in META-INF/license.lcpl
type License struct {
	Provider   string          `json:"provider"`
	ID         string          `json:"id"`
	Issued     time.Time       `json:"issued"`
	Updated    *time.Time      `json:"updated,omitempty"`
	Encryption Encryption      `json:"encryption"`
	Links      []Link          `json:"links,omitempty"`
	User       UserInfo        `json:"user"`
	Rights     *UserRights     `json:"rights,omitempty"`
	Signature  json.RawMessage `json:"signature,omitempty"`
}

type EncryptionProfile int

const (
	BasicProfile EncryptionProfile = iota
	V1Profile
)

func (profile EncryptionProfile) String() string {
	switch profile {
	case BasicProfile:
		return "http://readium.org/lcp/basic-profile"
	case V1Profile:
		return "http://readium.org/lcp/profile-1.0"
	}
	return "unknown-profile"
}

// Parse decodes a license document
func Parse(r io.Reader) (License, error) {
	var l License
	dec := json.NewDecoder(r)
	if err := dec.Decode(&l); err != nil {
		return l, fmt.Errorf("invalid license document: %w", err)
	}
	if l.ID == "" {
		return l, errors.New("invalid license document: missing id")
	}
	return l, nil
}

// Active checks the license rights against a point in time
func (l License) Active(now time.Time) bool {
	if l.Rights == nil {
		return true
	}
	if l.Rights.Start != nil && now.Before(*l.Rights.Start) {
		return false
	}
	if l.Rights.End != nil && now.After(*l.Rights.End) {
		return false
	}
	return true
}

// Decipherer holds a clear content key
type Decipherer struct {
	contentKey crypto.ContentKey
}

// Decipher decrypts an IV-prefixed resource, keeping its padding
func (d *Decipherer) Decipher(data []byte) ([]byte, error) {
	return crypto.DecryptCBC(d.contentKey, data)
}

// Unlock checks the passphrase against the license and recovers the content key.
// Only the basic profile is supported.
func (l License) Unlock(passphrase string) (*Decipherer, error) {
	if l.Encryption.Profile != "" && l.Encryption.Profile != BasicProfile.String() {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedProfile, l.Encryption.Profile)
	}
	if !l.Active(time.Now()) {
		return nil, ErrNotActive
	}

	userKey := crypto.UserKey(passphrase)

	var check bytes.Buffer
	err := crypto.NewAESCBCDecrypter().Decrypt(userKey, bytes.NewReader(l.Encryption.UserKey.Check), &check)
	if err != nil || check.String() != l.ID {
		return nil, ErrInvalidPassphrase
	}

	var contentKey bytes.Buffer
	err = crypto.NewAESCBCDecrypter().Decrypt(userKey, bytes.NewReader(l.Encryption.ContentKey.Value), &contentKey)
	if err != nil {
		return nil, fmt.Errorf("cannot decrypt the content key: %w", err)
	}
	return &Decipherer{contentKey: crypto.ContentKey(contentKey.Bytes())}, nil
}

// Attach unlocks the license document held by a DRM reference with the first matching
// passphrase and attaches the resulting decipherer
func Attach(d *drm.DRM, passphrases ...string) error {
	if d == nil || d.Brand != drm.BrandLCP {
		return nil
	}
	l, err := Parse(bytes.NewReader(d.Document))
	if err != nil {
		return err
	}
	err = ErrInvalidPassphrase
	for _, p := range passphrases {
		var dec *Decipherer
		if dec, err = l.Unlock(p); err == nil {
			d.License = dec
			return nil
		}
		if !errors.Is(err, ErrInvalidPassphrase) {
			return err
		}
	}
	return err
}

// Hint returns the passphrase hint of an encoded license
func Hint(document []byte) string {
	l, err := Parse(bytes.NewReader(document))
	if err != nil {
		return ""
	}
	return l.Encryption.UserKey.Hint
}

// NewBasic builds a basic profile license protecting contentKey with a passphrase
func NewBasic(id, provider, passphrase, hint string, contentKey crypto.ContentKey) (License, error) {
	l := License{
		Provider: provider,
		ID:       id,
		Issued:   time.Now().UTC().Truncate(time.Second),
	}
	userKey := crypto.UserKey(passphrase)

	check, err := crypto.EncryptCBC(userKey, []byte(id))
	if err != nil {
		return l, err
	}
	value, err := crypto.EncryptCBC(userKey, contentKey)
	if err != nil {
		return l, err
	}

	l.Encryption = Encryption{
		Profile:    BasicProfile.String(),
		ContentKey: ContentKey{Key: Key{Algorithm: crypto.AES256CBC}, Value: value},
		UserKey: UserKey{
			Key:   Key{Algorithm: "http://www.w3.org/2001/04/xmlenc#sha256"},
			Hint:  hint,
			Check: check,
		},
	}
	return l, nil
}
