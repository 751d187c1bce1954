package integration_test

import (
	"bufio"
	"context"
	"net/http"
	"testing"
	"time"

	"pkt.systems/rollcall/core"
	"pkt.systems/rollcall/schema"
)

type addNameResponse struct {
	schema.Snapshot
	Added bool `json:"added"`
}

func TestHTTPNameListFlow(t *testing.T) {
	requireLong(t)
	ts := newTestServer(t, testServerOptions{})
	client := ts.httpClient(t)

	var state schema.Snapshot
	readJSON(t, sendJSON(t, client, http.MethodGet, ts.httpURL+"/api/state", nil), &state)
	if len(state.Names) != 0 || !state.Flag || state.FlagText != core.FlagTrueText {
		t.Fatalf("unexpected initial state: %+v", state)
	}

	for _, name := range []string{"Ann", " Bob "} {
		var added addNameResponse
		readJSON(t, sendJSON(t, client, http.MethodPost, ts.httpURL+"/api/names", map[string]string{"name": name}), &added)
		if !added.Added {
			t.Fatalf("expected %q to be added", name)
		}
	}
	var skipped addNameResponse
	readJSON(t, sendJSON(t, client, http.MethodPost, ts.httpURL+"/api/names", map[string]string{"name": "   "}), &skipped)
	if skipped.Added || len(skipped.Names) != 2 {
		t.Fatalf("expected blank name to be ignored: %+v", skipped)
	}
	if skipped.Names[1] != " Bob " {
		t.Fatalf("expected untrimmed name, got %q", skipped.Names[1])
	}

	readJSON(t, sendJSON(t, client, http.MethodDelete, ts.httpURL+"/api/names/0", nil), &state)
	if len(state.Names) != 1 || state.Names[0] != " Bob " {
		t.Fatalf("unexpected names after remove: %#v", state.Names)
	}

	readJSON(t, sendJSON(t, client, http.MethodPost, ts.httpURL+"/api/toggle", nil), &state)
	if state.Flag || state.FlagText != core.FlagFalseText {
		t.Fatalf("expected toggle off: %+v", state)
	}
	if len(state.Names) != 1 {
		t.Fatalf("toggle must not touch names: %#v", state.Names)
	}

	resp := sendJSON(t, client, http.MethodDelete, ts.httpURL+"/api/names/nope", nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad index, got %d", resp.StatusCode)
	}
}

func TestHTTPClientsAreIsolated(t *testing.T) {
	requireLong(t)
	ts := newTestServer(t, testServerOptions{})
	alice := ts.httpClient(t)
	bob := ts.httpClient(t)

	var added addNameResponse
	readJSON(t, sendJSON(t, alice, http.MethodPost, ts.httpURL+"/api/names", map[string]string{"name": "Ann"}), &added)

	var state schema.Snapshot
	readJSON(t, sendJSON(t, bob, http.MethodGet, ts.httpURL+"/api/state", nil), &state)
	if len(state.Names) != 0 {
		t.Fatalf("expected a separate list per cookie, got %#v", state.Names)
	}
	ts.waitMetric(t, "rollcall_sessions 2", 5*time.Second)
}

func TestHTTPStreamFollowsChanges(t *testing.T) {
	requireLong(t)
	ts := newTestServer(t, testServerOptions{})
	client := ts.httpClient(t)

	// Create the session before streaming so both requests share the cookie.
	var state schema.Snapshot
	readJSON(t, sendJSON(t, client, http.MethodGet, ts.httpURL+"/api/state", nil), &state)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ts.httpURL+"/api/stream", nil)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("stream: %v", err)
	}
	defer resp.Body.Close()
	if got := resp.Header.Get("Content-Type"); got != "text/event-stream" {
		t.Fatalf("unexpected content type %q", got)
	}
	output := &lockedBuffer{}
	done := make(chan struct{})
	go func() {
		defer close(done)
		scanner := bufio.NewScanner(resp.Body)
		for scanner.Scan() {
			_, _ = output.Write(append(scanner.Bytes(), '\n'))
		}
	}()
	expectOutput(t, output, "event: snapshot", 5*time.Second)

	var added addNameResponse
	readJSON(t, sendJSON(t, client, http.MethodPost, ts.httpURL+"/api/names", map[string]string{"name": "Ann"}), &added)
	expectOutput(t, output, "event: names", 5*time.Second)
	expectOutput(t, output, `"Ann"`, 5*time.Second)

	readJSON(t, sendJSON(t, client, http.MethodPost, ts.httpURL+"/api/toggle", nil), &state)
	expectOutput(t, output, "event: flag", 5*time.Second)

	var deleted map[string]any
	readJSON(t, sendJSON(t, client, http.MethodDelete, ts.httpURL+"/api/session", nil), &deleted)
	expectOutput(t, output, "event: closed", 5*time.Second)
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatalf("stream did not end after session close")
	}
}
