// Copyright 2025 Readium Foundation. All rights reserved.
// Use of this source code is governed by a BSD-style license
// that can be found in the LICENSE file exposed on Github (readium) in the project repository.

package problem

// rfc 7807
// "application/problem+json" media type
import (
	"encoding/json"
	"net/http"
)

const (
	ContentType_PROBLEM_JSON = "application/problem+json"

	ErrorBaseUrl       = "http://readium.org/streamer/error/"
	NotFoundType       = ErrorBaseUrl + "not-found"
	UnknownMountType   = ErrorBaseUrl + "unknown-mount"
	BadRequestType     = ErrorBaseUrl + "bad-request"
	UnauthorizedType   = ErrorBaseUrl + "unauthorized"
	OpenFailedType     = ErrorBaseUrl + "open"
	MountConflictType  = ErrorBaseUrl + "mount-conflict"
	NoMediaOverlayType = ErrorBaseUrl + "no-media-overlay"
	NoStorageType      = ErrorBaseUrl + "no-storage"
	ArchiveInUseType   = ErrorBaseUrl + "archive-in-use"
)

type Problem struct {
	Type string `json:"type"`
	//optional
	Title    string `json:"title,omitempty"`
	Status   int    `json:"status,omitempty"` //if present = http response code
	Detail   string `json:"detail,omitempty"`
	Instance string `json:"instance,omitempty"`
}

// Error writes a problem document with the given status
func Error(w http.ResponseWriter, r *http.Request, problem Problem, status int) {
	w.Header().Set("Content-Type", ContentType_PROBLEM_JSON)
	w.Header().Set("X-Content-Type-Options", "nosniff")

	if problem.Type == "" {
		problem.Type = "about:blank"
	}
	if problem.Title == "" {
		// statusText should match http status
		problem.Title = http.StatusText(status)
	}
	if problem.Instance == "" && r != nil {
		problem.Instance = r.URL.Path
	}
	problem.Status = status

	jsonError, err := json.Marshal(problem)
	if err != nil {
		jsonError = []byte("{}")
	}
	w.WriteHeader(status)
	w.Write(jsonError)
}

// NotFoundHandler answers every unrouted request
func NotFoundHandler(w http.ResponseWriter, r *http.Request) {
	Error(w, r, Problem{Type: NotFoundType, Detail: "no route for " + r.URL.Path}, http.StatusNotFound)
}
