// Copyright 2025 Readium Foundation. All rights reserved.
// Use of this source code is governed by a BSD-style license
// that can be found in the LICENSE file exposed on Github (readium) in the project repository.

package server

import (
	"errors"
	"strconv"
	"strings"
)

var ErrRangeNotSatisfiable = errors.New("range not satisfiable")

// byteRange is an inclusive range of a resource
type byteRange struct {
	start, end int64
}

func (r byteRange) length() int64 {
	return r.end - r.start + 1
}

// parseRange reads the first range of a "bytes=start-end" header against the
// resource length. ok is false when the header is absent or cannot be read, the
// whole resource is then served. A start beyond the length is not satisfiable.
func parseRange(header string, length int64) (r byteRange, ok bool, err error) {
	set, found := strings.CutPrefix(strings.TrimSpace(header), "bytes=")
	if !found {
		return r, false, nil
	}
	if i := strings.IndexByte(set, ','); i >= 0 {
		set = set[:i]
	}
	first, last, found := strings.Cut(strings.TrimSpace(set), "-")
	if !found {
		return r, false, nil
	}

	if first == "" {
		// suffix range, the last n bytes
		n, perr := strconv.ParseInt(last, 10, 64)
		if perr != nil || n <= 0 {
			return r, false, nil
		}
		if length == 0 {
			return r, true, ErrRangeNotSatisfiable
		}
		return byteRange{start: max(0, length-n), end: length - 1}, true, nil
	}

	start, perr := strconv.ParseInt(first, 10, 64)
	if perr != nil || start < 0 {
		return r, false, nil
	}
	if start >= length {
		return r, true, ErrRangeNotSatisfiable
	}
	end := length - 1
	if last != "" {
		e, perr := strconv.ParseInt(last, 10, 64)
		if perr != nil || e < start {
			return r, false, nil
		}
		end = min(e, length-1)
	}
	return byteRange{start: start, end: end}, true, nil
}
