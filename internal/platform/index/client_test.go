package index

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/rs/zerolog"
)

// fakeES stands in for an Elasticsearch node. The v8 client verifies
// the product header, so every response must carry it.
func fakeES(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		handler(w, r)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestClient(t *testing.T, srv *httptest.Server) *Client {
	t.Helper()
	c, err := NewClient(srv.URL, "namaste_terms", zerolog.New(os.Stderr))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return c
}

func TestEnsureIndex_AlreadyExists(t *testing.T) {
	var created bool
	srv := fakeES(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodHead:
			w.WriteHeader(http.StatusOK)
		case r.Method == http.MethodPut:
			created = true
			w.WriteHeader(http.StatusOK)
		}
	})

	c := newTestClient(t, srv)
	if err := c.EnsureIndex(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if created {
		t.Error("index should not be created when it already exists")
	}
}

func TestEnsureIndex_Creates(t *testing.T) {
	var created bool
	srv := fakeES(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodHead:
			w.WriteHeader(http.StatusNotFound)
		case http.MethodPut:
			created = true
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"acknowledged":true}`))
		}
	})

	c := newTestClient(t, srv)
	if err := c.EnsureIndex(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !created {
		t.Error("expected index creation")
	}
}

func TestEnsureIndex_CreationRaceIsSuccess(t *testing.T) {
	srv := fakeES(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodHead:
			w.WriteHeader(http.StatusNotFound)
		case http.MethodPut:
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"error":{"type":"resource_already_exists_exception","reason":"index already exists"}}`))
		}
	})

	c := newTestClient(t, srv)
	if err := c.EnsureIndex(context.Background()); err != nil {
		t.Fatalf("creation race should be treated as success, got: %v", err)
	}
}

func TestBulkUpsert_ReportsPerItemInOrder(t *testing.T) {
	srv := fakeES(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"errors":true,"items":[
			{"index":{"_id":"NAM001","status":201}},
			{"index":{"_id":"NAM002","status":400,"error":{"type":"mapper_parsing_exception","reason":"bad field"}}}
		]}`))
	})

	c := newTestClient(t, srv)
	report, err := c.BulkUpsert(context.Background(), []Document{
		{Code: "NAM001", Display: "Jwara", Source: "namaste"},
		{Code: "NAM002", Display: "Atisara", Source: "namaste"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.Succeeded != 1 || report.Failed != 1 {
		t.Errorf("expected 1 succeeded / 1 failed, got %d / %d", report.Succeeded, report.Failed)
	}
	if len(report.Items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(report.Items))
	}
	if report.Items[0].Code != "NAM001" || report.Items[0].Error != "" {
		t.Errorf("unexpected first item: %+v", report.Items[0])
	}
	if report.Items[1].Code != "NAM002" || report.Items[1].Error == "" {
		t.Errorf("expected failure on second item: %+v", report.Items[1])
	}
}

func TestBulkUpsert_EmptyInput(t *testing.T) {
	srv := fakeES(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected for empty input")
	})

	c := newTestClient(t, srv)
	report, err := c.BulkUpsert(context.Background(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(report.Items) != 0 {
		t.Errorf("expected empty report, got %+v", report)
	}
}

func TestSearch_DecodesScoredHits(t *testing.T) {
	srv := fakeES(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"hits":{"hits":[
			{"_score":7.2,"_source":{"code":"NAM001","display":"Jwara","definition":"Fever","synonyms":"Fever;Santapa","source":"namaste"}},
			{"_score":1.3,"_source":{"code":"NAM042","display":"Jvaratisara","source":"namaste"}}
		]}}`))
	})

	c := newTestClient(t, srv)
	hits, err := c.Search(context.Background(), Query{
		Text:   "jwara",
		Fields: []string{"display^3", "synonyms", "definition"},
		Size:   20,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(hits) != 2 {
		t.Fatalf("expected 2 hits, got %d", len(hits))
	}
	if hits[0].Source.Code != "NAM001" || hits[0].Score != 7.2 {
		t.Errorf("unexpected first hit: %+v", hits[0])
	}
}

func TestSearch_BackendErrorSurfaces(t *testing.T) {
	srv := fakeES(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte(`{"error":{"type":"cluster_block_exception","reason":"blocked"}}`))
	})

	c := newTestClient(t, srv)
	if _, err := c.Search(context.Background(), Query{Text: "jwara", Fields: []string{"display"}, Size: 10}); err == nil {
		t.Error("expected error from backend failure")
	}
}
