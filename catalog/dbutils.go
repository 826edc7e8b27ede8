// Copyright 2025 Readium Foundation. All rights reserved.
// Use of this source code is governed by a BSD-style license
// that can be found in the LICENSE file exposed on Github (readium) in the project repository.

package catalog

import (
	"bytes"
	"fmt"
	"strings"
)

func numberedQuery(query, prefix string) string {
	var buffer bytes.Buffer
	idx := 1
	for _, char := range query {
		if char == '?' {
			buffer.WriteString(fmt.Sprintf("%s%d", prefix, idx))
			idx += 1
		} else {
			buffer.WriteRune(char)
		}
	}
	return buffer.String()
}

// GetParamQuery replaces parameter placeholders '?' in the SQL query to
// placeholders supported by the selected database driver.
func GetParamQuery(database, query string) string {
	switch {
	case strings.HasPrefix(database, "postgres"):
		return numberedQuery(query, "$")
	case database == "sqlserver" || database == "mssql":
		return numberedQuery(query, "@p")
	}
	return query
}

// dbFromURI splits a "driver://connection" string
func dbFromURI(uri string) (string, string, error) {
	parts := strings.SplitN(uri, "://", 2)
	if len(parts) != 2 || parts[0] == "" {
		return "", "", fmt.Errorf("invalid database uri %q, expected driver://connection", uri)
	}
	return parts[0], parts[1], nil
}
