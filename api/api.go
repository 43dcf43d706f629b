// Copyright 2018 Google Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package api implements the gffget annotation retrieval API.
//
// The API follows the htsget ticket pattern: a features request answers
// with a list of URLs which, fetched in order and concatenated, form a
// valid GFF3 document containing every record overlapping the requested
// region.  The first URL is a data URL carrying the version directive; the
// remaining URL points at the slice endpoint which streams the matching
// byte range of the underlying object.
package api

import (
	"bytes"
	"encoding/base64"
	"encoding/gob"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/googlegenomics/gffget/genomics"
	"github.com/googlegenomics/gffget/gff"
	"github.com/googlegenomics/gffget/index"
	"github.com/googlegenomics/gffget/internal/analytics"
)

const (
	featuresPath = "/features/"
	slicePath    = "/slice/"

	versionDirective = "##gff-version 3\n"
)

// versionDataURL carries the version directive that must precede the
// sliced records for the concatenated download to be a valid GFF3 file.
var versionDataURL = "data:;base64," + base64.StdEncoding.EncodeToString([]byte(versionDirective))

var (
	errInvalidOrUnspecifiedID = errors.New("invalid or unspecified ID")
	errMissingReferenceName   = errors.New("no reference name specified")
	errMissingOrInvalidToken  = errors.New("missing or invalid token")
)

// NewStorageClientFunc is the type of function that constructs the
// appropriate storage.Client to satisfy the incoming request.  Any headers
// that caused this particular client to be created are returned to allow
// slice requests to be generated correctly.
type NewStorageClientFunc func(*http.Request) (Client, http.Header, error)

// Server provides a gffget protocol server.  Must be created with
// NewServer.
type Server struct {
	newStorageClient NewStorageClientFunc
	period           int
	whitelist        map[string]bool
}

// NewServer returns a new Server configured to use newStorageClient and
// the provided index sampling period.  The server calls newStorageClient
// on each request to determine which GCS storage client to use.
func NewServer(newStorageClient NewStorageClientFunc, period int) *Server {
	if period < 1 {
		period = gff.DefaultPeriod
	}
	return &Server{newStorageClient, period, make(map[string]bool)}
}

// Whitelist adds buckets to the set of buckets which the server is allowed
// to access.  If Whitelist is never called for a given Server then reads
// from any bucket are allowed.
func (server *Server) Whitelist(buckets []string) {
	for _, bucket := range buckets {
		server.whitelist[bucket] = true
	}
}

// Export registers the gffget API endpoints with mux.
func (server *Server) Export(mux *http.ServeMux) {
	mux.Handle(featuresPath, forwardOrigin(server.serveFeatures))
	mux.Handle(slicePath, forwardOrigin(server.serveSlice))
}

func (server *Server) serveFeatures(w http.ResponseWriter, req *http.Request) {
	ctx := req.Context()

	track := analytics.TrackerFromContext(ctx)
	track(analytics.Event("Features", "Features Request Received", "", nil))

	query := req.URL.Query()
	if err := parseFormat(query.Get("format")); err != nil {
		writeError(w, newUnsupportedFormatError(err))
		return
	}

	bucket, object, err := parseID(req.URL.Path[len(featuresPath):])
	if err != nil {
		writeError(w, newInvalidInputError("parsing annotation ID", err))
		return
	}

	if err := server.checkWhitelist(bucket); err != nil {
		writeError(w, newPermissionDeniedError("checking whitelist", err))
		return
	}

	region, err := parseRegion(query)
	if err != nil {
		writeError(w, newInvalidInputError("parsing region", err))
		return
	}

	if region.End > 0 && region.Start > region.End {
		writeError(w, newInvalidRangeError(fmt.Errorf("%s: start > end", region)))
		return
	}

	gcs, headers, err := server.newStorageClient(req)
	if err != nil {
		writeError(w, newStorageError("creating client", err))
		return
	}

	request := &featuresRequest{
		object: gcs.NewObjectHandle(bucket, object),
		region: region,
		period: server.period,
	}

	chunk, count, err := request.handle(ctx)
	if err != nil {
		track(analytics.Event("Features", "Features Internal Error", "", nil))
		writeError(w, err)
		return
	}

	var base string
	if req.Host != "" {
		if req.TLS != nil {
			base = "https://"
		} else {
			base = "http://"
		}
		base += req.Host
	}
	base += strings.Replace(req.URL.Path, featuresPath, slicePath, 1)

	urls := []map[string]interface{}{{"url": versionDataURL}}
	if count > 0 {
		var buf bytes.Buffer
		if err := gob.NewEncoder(&buf).Encode(chunk); err != nil {
			writeError(w, fmt.Errorf("encoding chunk: %v", err))
			return
		}

		url := map[string]interface{}{
			"url": fmt.Sprintf("%s?%s", base, base64.URLEncoding.EncodeToString(buf.Bytes())),
		}
		if len(headers) > 0 {
			// Tickets do not support multiple values for a single header.
			flattened := make(map[string]string)
			for k, v := range headers {
				flattened[k] = v[0]
			}
			url["headers"] = flattened
		}
		urls = append(urls, url)
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"gffget": map[string]interface{}{
			"format": "GFF3",
			"urls":   urls,
		}})

	records := int64(count)
	track(analytics.Event("Features", "Features Response Record Count", "", &records))
	track(analytics.Event("Features", "Features Response Sent", "", nil))
}

func (server *Server) serveSlice(w http.ResponseWriter, req *http.Request) {
	bucket, object, err := parseID(req.URL.Path[len(slicePath):])
	if err != nil {
		writeError(w, newInvalidInputError("parsing annotation ID", err))
		return
	}

	if err := server.checkWhitelist(bucket); err != nil {
		writeError(w, newPermissionDeniedError("checking whitelist", err))
		return
	}

	var chunk gff.Chunk
	if err := decodeRawQuery(req.URL.RawQuery, &chunk); err != nil {
		writeError(w, fmt.Errorf("decoding raw query: %v", err))
		return
	}

	gcs, _, err := server.newStorageClient(req)
	if err != nil {
		writeError(w, fmt.Errorf("creating storage client: %v", err))
		return
	}

	request := &sliceRequest{
		object: gcs.NewObjectHandle(bucket, object),
		chunk:  chunk,
	}

	response, err := request.handle(req.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	defer response.Close()

	w.Header().Add("Content-type", "text/plain")
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, response); err != nil {
		log.Printf("Failed to copy response: %v", err)
		return
	}
}

func (server *Server) checkWhitelist(bucket string) error {
	if len(server.whitelist) == 0 || server.whitelist[bucket] {
		return nil
	}
	return fmt.Errorf("access to bucket %s is not allowed", bucket)
}

func decodeRawQuery(rawQuery string, v interface{}) error {
	b, err := base64.URLEncoding.DecodeString(rawQuery)
	if err != nil {
		return fmt.Errorf("base64: %v", err)
	}

	if err := gob.NewDecoder(bytes.NewBuffer(b)).Decode(v); err != nil {
		return fmt.Errorf("gob: %v", err)
	}

	return nil
}

// parseID parses path and returns a GCS bucket and object, or an error.
func parseID(path string) (string, string, error) {
	if parts := strings.SplitN(path, "/", 2); len(parts) == 2 {
		if parts[0] != "" && parts[1] != "" {
			return parts[0], parts[1], nil
		}
	}
	return "", "", errInvalidOrUnspecifiedID
}

func parseFormat(format string) error {
	if format != "" && format != "GFF3" {
		return fmt.Errorf("unsupported format %q", format)
	}
	return nil
}

func parseRegion(query url.Values) (genomics.Region, error) {
	name := query.Get("referenceName")
	if name == "" {
		return genomics.Region{}, errMissingReferenceName
	}

	region := genomics.Region{Sequence: name}

	if start := query.Get("start"); start != "" {
		n, err := strconv.ParseInt(start, 10, 64)
		if err != nil {
			return genomics.Region{}, fmt.Errorf("parsing start: %v", err)
		}
		if n < 0 {
			return genomics.Region{}, fmt.Errorf("start %d is negative", n)
		}
		region.Start = n
	}

	if end := query.Get("end"); end != "" {
		n, err := strconv.ParseInt(end, 10, 64)
		if err != nil {
			return genomics.Region{}, fmt.Errorf("parsing end: %v", err)
		}
		if n < 0 {
			return genomics.Region{}, fmt.Errorf("end %d is negative", n)
		}
		region.End = n
	}

	return region, nil
}

// newFetchError maps errors from the annotation engine onto API errors.
func newFetchError(context string, err error) error {
	switch err.(type) {
	case *gff.VersionError:
		return newUnsupportedFormatError(err)
	case *gff.MalformedRecordError:
		return newInvalidInputError(context, err)
	case *index.MissingThresholdError:
		return newInvalidInputError(context, err)
	case *index.UnknownSequenceError:
		return newNotFoundError(context, err)
	case *index.OutOfRangeError:
		return newInvalidRangeError(err)
	}
	return err
}

// apiError is used to capture errors that have been defined in the API.
type apiError struct {
	name  string
	code  int
	cause error
}

func (err *apiError) Error() string {
	return fmt.Sprintf("%s (%d): %v", err.name, err.code, err.cause)
}

func newApiError(name string, code int, context string, err error) error {
	return &apiError{name, code, fmt.Errorf("%s: %v", context, err)}
}

func newInvalidAuthenticationError(context string, err error) error {
	return newApiError("InvalidAuthentication", http.StatusUnauthorized, context, err)
}

func newInvalidInputError(context string, err error) error {
	return newApiError("InvalidInput", http.StatusBadRequest, context, err)
}

func newInvalidRangeError(err error) error {
	return &apiError{"InvalidRange", http.StatusBadRequest, err}
}

func newPermissionDeniedError(context string, err error) error {
	return newApiError("PermissionDenied", http.StatusForbidden, context, err)
}

func newUnsupportedFormatError(err error) error {
	return &apiError{"UnsupportedFormat", http.StatusBadRequest, err}
}

func newNotFoundError(context string, err error) error {
	return newApiError("NotFound", http.StatusNotFound, context, err)
}

// writeError writes either a JSON object or bare HTTP error describing err
// to w.  A JSON object is written only when the error has a name and code
// defined by the API.
func writeError(w http.ResponseWriter, err error) {
	if err, ok := err.(*apiError); ok {
		writeJSON(w, err.code, map[string]interface{}{
			"error":   err.name,
			"message": fmt.Sprintf("%s: %v", http.StatusText(err.code), err.cause),
		})
		return
	}

	writeHTTPError(w, http.StatusInternalServerError, err)
}

func writeHTTPError(w http.ResponseWriter, code int, err error) {
	http.Error(w, fmt.Sprintf("%s: %v", http.StatusText(code), err), code)
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Add("Content-type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

type forwardOrigin func(w http.ResponseWriter, req *http.Request)

func (f forwardOrigin) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	if origin := req.Header.Get("Origin"); origin != "" {
		w.Header().Set("Access-Control-Allow-Origin", origin)
	}
	f(w, req)
}
