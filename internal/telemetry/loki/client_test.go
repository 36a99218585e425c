package loki

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"
)

func captureServer(t *testing.T, status int, got *PushRequest) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/loki/api/v1/push" {
			t.Errorf("path = %q, want /loki/api/v1/push", r.URL.Path)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("content-type = %q", ct)
		}
		if err := json.NewDecoder(r.Body).Decode(got); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.WriteHeader(status)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestNewClient_EmptyURL(t *testing.T) {
	if _, err := NewClient(" ", "", nil); err == nil {
		t.Fatal("expected error for empty base URL")
	}
}

func TestPushEventJSON_LabelsAndTimestamp(t *testing.T) {
	var got PushRequest
	srv := captureServer(t, http.StatusNoContent, &got)
	c, err := NewClient(srv.URL+"/", "", srv.Client())
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}

	raw := []byte(`{"company_id":"acme corp","employee_id":"e-1","event_type":"auto_checkout","source":"sweeper","created_at":"2025-06-02T09:05:00Z"}`)
	if err := c.PushEventJSON(context.Background(), raw); err != nil {
		t.Fatalf("PushEventJSON: %v", err)
	}
	if len(got.Streams) != 1 {
		t.Fatalf("streams = %d, want 1", len(got.Streams))
	}
	s := got.Streams[0]
	want := map[string]string{"job": "presence-engine", "company_id": "acme_corp", "event_type": "auto_checkout", "source": "sweeper"}
	for k, v := range want {
		if s.Stream[k] != v {
			t.Errorf("label %q = %q, want %q", k, s.Stream[k], v)
		}
	}
	if _, ok := s.Stream["employee_id"]; ok {
		t.Error("employee_id must not be a label")
	}
	wantTS := strconv.FormatInt(time.Date(2025, 6, 2, 9, 5, 0, 0, time.UTC).UnixNano(), 10)
	if s.Values[0][0] != wantTS || s.Values[0][1] != string(raw) {
		t.Errorf("values = %v, want [%s, raw]", s.Values, wantTS)
	}
}

func TestPushEventJSON_UndecodableLine(t *testing.T) {
	var got PushRequest
	srv := captureServer(t, http.StatusNoContent, &got)
	c, _ := NewClient(srv.URL, "job-x", srv.Client())
	if err := c.PushEventJSON(context.Background(), []byte("not json")); err != nil {
		t.Fatalf("PushEventJSON: %v", err)
	}
	if got.Streams[0].Stream["job"] != "job-x" || len(got.Streams[0].Stream) != 1 {
		t.Errorf("labels = %v, want only job", got.Streams[0].Stream)
	}
}

func TestPush_Non2xx(t *testing.T) {
	var got PushRequest
	srv := captureServer(t, http.StatusBadRequest, &got)
	c, _ := NewClient(srv.URL, "", srv.Client())
	if err := c.Push(context.Background(), time.Now(), "line", nil); err == nil {
		t.Fatal("expected error for 400 response")
	}
}
