// Copyright 2025 Readium Foundation. All rights reserved.
// Use of this source code is governed by a BSD-style license
// that can be found in the LICENSE file exposed on Github (readium) in the project repository.

package crypto

import (
	"crypto/rand"
	"crypto/sha256"
)

// GenerateKey returns a random key of the given size
func GenerateKey(size int) ([]byte, error) {
	k := make([]byte, size)

	if _, err := rand.Read(k); err != nil {
		return nil, err
	}
	return k, nil
}

// UserKey hashes a passphrase into an AES-256 key
func UserKey(passphrase string) ContentKey {
	sum := sha256.Sum256([]byte(passphrase))
	return ContentKey(sum[:])
}
