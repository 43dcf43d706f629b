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

package analytics

import (
	"bufio"
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"reflect"
	"testing"
)

func TestSendBatches(t *testing.T) {
	var requests int
	client, quit := fakeBackend(func(w http.ResponseWriter, _ *http.Request) {
		requests++
		w.WriteHeader(http.StatusOK)
	})
	defer close(quit)

	var hits []Hit
	for i := 0; i < client.batchSize*4; i++ {
		hits = append(hits, Event("tests", "test", "", nil))
	}
	if err := client.Send(hits); err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	if got, want := requests, len(hits)/client.batchSize; got != want {
		t.Errorf("Wrong number of requests: got %d, want %d", got, want)
	}
}

func TestSendPayloads(t *testing.T) {
	var payloads []string
	client, quit := fakeBackend(func(w http.ResponseWriter, req *http.Request) {
		scanner := bufio.NewScanner(req.Body)
		for scanner.Scan() {
			payloads = append(payloads, scanner.Text())
		}
		if err := scanner.Err(); err != nil {
			t.Fatalf("Failed to read request body: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	})
	defer close(quit)

	value := int64(7)
	hits := []Hit{Event("features", "request", "query", &value)}
	if err := client.Send(hits); err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	if len(payloads) != 1 {
		t.Fatalf("Wrong payload count: got %d, want 1", len(payloads))
	}
	got, err := url.ParseQuery(payloads[0])
	if err != nil {
		t.Fatalf("Failed to parse payload %q: %v", payloads[0], err)
	}
	want := url.Values{
		"v":   []string{"1"},
		"cid": []string{client.clientID},
		"tid": []string{client.propertyID},
	}
	for key, value := range hits[0] {
		want.Add(key, value)
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Wrong payload: got %v, want %v", got, want)
	}
}

func TestEventParameters(t *testing.T) {
	hit := Event("tests", "test", "", nil)
	if got, want := hit["t"], "event"; got != want {
		t.Errorf("Wrong hit type: got %q, want %q", got, want)
	}
	if _, ok := hit["el"]; ok {
		t.Error("Label parameter was added for empty label")
	}
	if _, ok := hit["ev"]; ok {
		t.Error("Value parameter was added for nil value")
	}
}

func TestTrackingHandler(t *testing.T) {
	want := []Hit{
		Event("tests", "test", "a", nil),
		Event("tests", "test", "b", nil),
	}

	handler := http.HandlerFunc(func(_ http.ResponseWriter, req *http.Request) {
		track := TrackerFromContext(req.Context())
		for i := range want {
			track(want[i])
		}
	})

	var invoked bool
	tracker := func(got []Hit) {
		if !reflect.DeepEqual(got, want) {
			t.Errorf("Wrong hits: got %v, want %v", got, want)
		}
		invoked = true
	}

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/test", nil)
	TrackingHandler(handler, tracker).ServeHTTP(w, req)

	if !invoked {
		t.Error("Tracker function was not invoked")
	}
}

func TestTrackerFromEmptyContext(t *testing.T) {
	if track := TrackerFromContext(context.Background()); track == nil {
		t.Error("TrackerFromContext returned nil")
	}
}

func fakeBackend(handler http.HandlerFunc) (*Client, chan<- struct{}) {
	server := httptest.NewServer(handler)
	quit := make(chan struct{})
	go func() {
		<-quit
		server.Close()
	}()

	client := NewClient("UA-TEST123", "0001-0002-0003-0004")
	client.endpoint = server.URL
	return client, quit
}
