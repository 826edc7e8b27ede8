// Copyright 2025 Readium Foundation. All rights reserved.
// Use of this source code is governed by a BSD-style license
// that can be found in the LICENSE file exposed on Github (readium) in the project repository.

package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"fmt"
	"io"
)

type cbcDecrypter struct{}

func NewAESCBCDecrypter() Decrypter {
	return cbcDecrypter(struct{}{})
}

func (e cbcDecrypter) Decrypt(key ContentKey, r io.Reader, w io.Writer) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	plain, err := DecryptCBC(key, data)
	if err != nil {
		return err
	}
	plain, err = Unpad(plain, aes.BlockSize)
	if err != nil {
		return err
	}
	_, err = w.Write(plain)
	return err
}

// EncryptCBC pads the plaintext and returns the IV followed by the ciphertext
func EncryptCBC(key ContentKey, plain []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}

	padded := Pad(append([]byte(nil), plain...), aes.BlockSize)
	out := make([]byte, aes.BlockSize+len(padded))

	// generate the IV and write it first
	iv := out[:aes.BlockSize]
	if _, err := io.ReadFull(rand.Reader, iv); err != nil {
		return nil, err
	}

	mode := cipher.NewCBCEncrypter(block, iv)
	mode.CryptBlocks(out[aes.BlockSize:], padded)
	return out, nil
}

// DecryptCBC deciphers an IV-prefixed payload. The padding is left in place, callers
// decide how to interpret the last byte.
func DecryptCBC(key ContentKey, data []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	if len(data) < 2*aes.BlockSize || len(data)%aes.BlockSize != 0 {
		return nil, fmt.Errorf("%w: %d bytes", ErrInvalidCiphertext, len(data))
	}

	iv := data[:aes.BlockSize]
	out := make([]byte, len(data)-aes.BlockSize)
	mode := cipher.NewCBCDecrypter(block, iv)
	mode.CryptBlocks(out, data[aes.BlockSize:])
	return out, nil
}
