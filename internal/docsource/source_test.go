package docsource

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestSource_LoadPlainText(t *testing.T) {
	var gotPath, gotToken string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotToken = r.URL.Query().Get("token")
		w.Header().Set("Content-Type", "text/plain")
		io.WriteString(w, "First paragraph.\n\nSecond paragraph.\n")
	}))
	defer srv.Close()

	src := NewSource(srv.URL, "/courses/{id}/pdf", 1<<20, 5*time.Second, testLogger())
	doc, err := src.Load(context.Background(), "book-42", "secret-token")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	defer doc.Close()

	if gotPath != "/courses/book-42/pdf" {
		t.Errorf("path = %q", gotPath)
	}
	if gotToken != "secret-token" {
		t.Errorf("token = %q", gotToken)
	}
	if doc.PageCount() != 1 {
		t.Errorf("page count = %d, want 1", doc.PageCount())
	}
}

func TestSource_NoTokenOmitsQuery(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		io.WriteString(w, "content\n")
	}))
	defer srv.Close()

	src := NewSource(srv.URL, "/docs/{id}", 1<<20, 5*time.Second, testLogger())
	doc, err := src.Load(context.Background(), "d1", "")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	doc.Close()

	if gotQuery != "" {
		t.Errorf("query = %q, want empty", gotQuery)
	}
}

func TestSource_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "not found", http.StatusNotFound)
	}))
	defer srv.Close()

	src := NewSource(srv.URL, "/docs/{id}", 1<<20, 5*time.Second, testLogger())
	_, err := src.Load(context.Background(), "missing", "")
	if err == nil {
		t.Fatal("expected error")
	}
	var lerr *LoadError
	if !errors.As(err, &lerr) {
		t.Fatalf("error %T, want *LoadError", err)
	}
	if lerr.Kind != KindHTTP || lerr.Status != http.StatusNotFound {
		t.Errorf("kind=%v status=%d, want http/404", lerr.Kind, lerr.Status)
	}
}

func TestSource_NetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	src := NewSource(srv.URL, "/docs/{id}", 1<<20, time.Second, testLogger())
	_, err := src.Load(context.Background(), "d1", "")
	var lerr *LoadError
	if !errors.As(err, &lerr) {
		t.Fatalf("error %T, want *LoadError", err)
	}
	if lerr.Kind != KindNetwork {
		t.Errorf("kind = %v, want network", lerr.Kind)
	}
}

func TestSource_SizeCap(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, strings.Repeat("x", 2048))
	}))
	defer srv.Close()

	src := NewSource(srv.URL, "/docs/{id}", 1024, 5*time.Second, testLogger())
	_, err := src.Load(context.Background(), "big", "")
	var lerr *LoadError
	if !errors.As(err, &lerr) {
		t.Fatalf("error %T, want *LoadError", err)
	}
	if !strings.Contains(lerr.Msg, "max size") {
		t.Errorf("message %q does not mention size", lerr.Msg)
	}
}

func TestSource_CancelledContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "content\n")
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	src := NewSource(srv.URL, "/docs/{id}", 1<<20, 5*time.Second, testLogger())
	if _, err := src.Load(ctx, "d1", ""); err == nil {
		t.Fatal("expected error from cancelled context")
	}
}

func TestParseDocument_MarkdownByContentType(t *testing.T) {
	doc, err := parseDocument([]byte("# Title\n\nBody.\n"), "text/markdown; charset=utf-8", "")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	defer doc.Close()

	page, err := doc.Page(1)
	if err != nil {
		t.Fatalf("page 1: %v", err)
	}
	text, _ := page.Text()
	if !strings.Contains(text, "Title") || !strings.Contains(text, "Body.") {
		t.Errorf("markdown content missing: %q", text)
	}
}

func TestParseDocument_HTMLByExtension(t *testing.T) {
	doc, err := parseDocument([]byte("<html><body><p>Hello</p></body></html>"), "application/octet-stream", "page.html")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	defer doc.Close()

	page, _ := doc.Page(1)
	text, _ := page.Text()
	if !strings.Contains(text, "Hello") {
		t.Errorf("html content missing: %q", text)
	}
}

func TestParseDocument_Empty(t *testing.T) {
	if _, err := parseDocument(nil, "text/plain", ""); err == nil {
		t.Fatal("empty body did not error")
	}
}

func TestDispositionFilename(t *testing.T) {
	tests := []struct {
		header string
		want   string
	}{
		{`attachment; filename="report.pdf"`, "report.pdf"},
		{`inline; filename=notes.md`, "notes.md"},
		{"", ""},
		{"attachment", ""},
	}
	for _, tt := range tests {
		if got := dispositionFilename(tt.header); got != tt.want {
			t.Errorf("dispositionFilename(%q) = %q, want %q", tt.header, got, tt.want)
		}
	}
}
