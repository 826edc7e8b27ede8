// Copyright 2025 Readium Foundation. All rights reserved.
// Use of this source code is governed by a BSD-style license
// that can be found in the LICENSE file exposed on Github (readium) in the project repository.

package main

import (
	"crypto/rand"
	"fmt"
	"math/big"

	auth "github.com/abbot/go-http-auth"
	"github.com/spf13/cobra"
)

const saltChars = "./0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

func newPasswdCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "passwd <user> <password>",
		Short: "Print an htpasswd line for the publication api",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			salt, _ := cmd.Flags().GetString("salt")
			line, err := htpasswdLine(args[0], args[1], salt)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), line)
			return err
		},
	}
	cmd.Flags().String("salt", "", "salt of the hash, random when empty")
	return cmd
}

// htpasswdLine hashes the password with the apache MD5 crypt
func htpasswdLine(user, password, salt string) (string, error) {
	if salt == "" {
		b := make([]byte, 8)
		for i := range b {
			n, err := rand.Int(rand.Reader, big.NewInt(int64(len(saltChars))))
			if err != nil {
				return "", err
			}
			b[i] = saltChars[n.Int64()]
		}
		salt = string(b)
	}
	return user + ":" + string(auth.MD5Crypt([]byte(password), []byte(salt), []byte("$apr1$"))), nil
}
