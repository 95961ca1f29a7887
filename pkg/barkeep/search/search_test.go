package search

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestWolframQueryCollectsPods(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("input"); got != "mass of the moon" {
			t.Errorf("input = %q", got)
		}
		w.Write([]byte(`{"queryresult":{"success":true,"pods":[
			{"title":"Input interpretation","subpods":[{"plaintext":"moon | mass"}]},
			{"title":"Result","subpods":[{"plaintext":"7.3e22 kg"}]},
			{"title":"Image only","subpods":[{"plaintext":""}]}
		]}}`))
	}))
	defer srv.Close()

	c := NewWolframClient("app-id", nil)
	c.baseURL = srv.URL

	out, err := c.Query(context.Background(), "mass of the moon")
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if !strings.Contains(out, "7.3e22 kg") || !strings.Contains(out, "Result") {
		t.Errorf("output missing result pod: %q", out)
	}
	if strings.Contains(out, "Image only") {
		t.Errorf("empty pod rendered: %q", out)
	}
}

func TestWolframQueryUnsuccessful(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"queryresult":{"success":false,"pods":[]}}`))
	}))
	defer srv.Close()

	c := NewWolframClient("app-id", nil)
	c.baseURL = srv.URL
	if _, err := c.Query(context.Background(), "gibberish"); err == nil {
		t.Error("unsuccessful query did not error")
	}
}

func TestGoogleSearch(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("q") != "golang generics" || q.Get("cx") != "engine-1" {
			t.Errorf("query params = %v", q)
		}
		w.Write([]byte(`{"items":[
			{"title":"A","link":"https://a","snippet":"first"},
			{"title":"B","link":"https://b","snippet":"second"}
		]}`))
	}))
	defer srv.Close()

	c := NewGoogleClient("key", "engine-1", nil)
	c.baseURL = srv.URL

	results, err := c.Search(context.Background(), "golang generics")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 2 || results[0].Link != "https://a" {
		t.Errorf("results = %+v", results)
	}
}

func TestGoogleSearchAPIError(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"error":{"message":"quota exceeded"}}`))
	}))
	defer srv.Close()

	c := NewGoogleClient("key", "engine-1", nil)
	c.baseURL = srv.URL
	if _, err := c.Search(context.Background(), "x"); err == nil || !strings.Contains(err.Error(), "quota exceeded") {
		t.Errorf("err = %v, want quota message", err)
	}
}
