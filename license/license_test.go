// Copyright 2025 Readium Foundation. All rights reserved.
// Use of this source code is governed by a BSD-style license
// that can be found in the LICENSE file exposed on Github (readium) in the project repository.

package license

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/readium/readium-streamer/crypto"
	"github.com/readium/readium-streamer/drm"
)

func newTestLicense(t *testing.T) (License, crypto.ContentKey) {
	key, err := crypto.GenerateKey(32)
	if err != nil {
		t.Fatal(err)
	}
	l, err := NewBasic("f7e2c8b4-lic", "https://provider.example", "open sesame", "the usual", key)
	if err != nil {
		t.Fatal(err)
	}
	return l, key
}

func TestParse(t *testing.T) {
	l, _ := newTestLicense(t)
	doc, err := json.Marshal(l)
	if err != nil {
		t.Fatal(err)
	}

	parsed, err := Parse(bytes.NewReader(doc))
	if err != nil {
		t.Fatal(err)
	}
	if parsed.ID != l.ID || parsed.Encryption.Profile != BasicProfile.String() {
		t.Errorf("unexpected license %+v", parsed)
	}
	if Hint(doc) != "the usual" {
		t.Errorf("unexpected hint %q", Hint(doc))
	}

	if _, err = Parse(bytes.NewBufferString(`{"provider":"x"}`)); err == nil {
		t.Error("a license without id should be rejected")
	}
}

func TestUnlock(t *testing.T) {
	l, key := newTestLicense(t)

	if _, err := l.Unlock("wrong"); !errors.Is(err, ErrInvalidPassphrase) {
		t.Errorf("expected ErrInvalidPassphrase, got %v", err)
	}

	dec, err := l.Unlock("open sesame")
	if err != nil {
		t.Fatal(err)
	}

	resource, _ := crypto.EncryptCBC(key, []byte("<html/>"))
	plain, err := dec.Decipher(resource)
	if err != nil {
		t.Fatal(err)
	}
	plain, err = crypto.Unpad(plain, 16)
	if err != nil || string(plain) != "<html/>" {
		t.Errorf("unexpected deciphered resource %q %v", plain, err)
	}
}

func TestUnlockProfileAndRights(t *testing.T) {
	l, _ := newTestLicense(t)
	l.Encryption.Profile = V1Profile.String()
	if _, err := l.Unlock("open sesame"); !errors.Is(err, ErrUnsupportedProfile) {
		t.Errorf("expected ErrUnsupportedProfile, got %v", err)
	}

	l, _ = newTestLicense(t)
	end := time.Now().Add(-time.Hour)
	l.Rights = &UserRights{End: &end}
	if _, err := l.Unlock("open sesame"); !errors.Is(err, ErrNotActive) {
		t.Errorf("expected ErrNotActive, got %v", err)
	}
}

func TestAttach(t *testing.T) {
	l, _ := newTestLicense(t)
	doc, _ := json.Marshal(l)
	d := drm.NewLCP(l.Encryption.Profile, doc)

	if err := Attach(d, "nope"); !errors.Is(err, ErrInvalidPassphrase) {
		t.Errorf("expected ErrInvalidPassphrase, got %v", err)
	}
	if d.Unlocked() {
		t.Error("drm should still be locked")
	}

	if err := Attach(d, "nope", "open sesame"); err != nil {
		t.Fatal(err)
	}
	if !d.Unlocked() {
		t.Error("drm should be unlocked")
	}

	if err := Attach(nil, "x"); err != nil {
		t.Errorf("attaching to no drm is a no-op, got %v", err)
	}
}
