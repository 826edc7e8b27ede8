// Copyright 2025 Readium Foundation. All rights reserved.
// Use of this source code is governed by a BSD-style license
// that can be found in the LICENSE file exposed on Github (readium) in the project repository.

// Package crypto holds the AES-256-CBC primitives used by LCP protected publications:
// the IV is prepended to the ciphertext and the plaintext is padded so that its last
// byte gives the padding length (W3C xmlenc and PKCS#7 both qualify).
package crypto

import (
	"errors"
	"io"
)

const (
	// AES256CBC is the xmlenc algorithm identifier of the cipher
	AES256CBC = "http://www.w3.org/2001/04/xmlenc#aes256-cbc"
)

// ErrInvalidCiphertext is returned when a payload cannot be an AES-CBC ciphertext
var ErrInvalidCiphertext = errors.New("invalid ciphertext")

// ErrInvalidPadding is returned when the last byte is not a plausible padding length
var ErrInvalidPadding = errors.New("invalid padding")

type ContentKey []byte

type Decrypter interface {
	Decrypt(key ContentKey, r io.Reader, w io.Writer) error
}
