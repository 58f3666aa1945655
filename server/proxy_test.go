package server

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"UndercoverFM/storage"
)

type memStore struct {
	objects map[string][]byte
	err     error
	gets    int
}

func (m *memStore) StatObject(_ context.Context, key string) (storage.ObjectInfo, error) {
	if m.err != nil {
		return storage.ObjectInfo{}, m.err
	}
	data, ok := m.objects[key]
	if !ok {
		return storage.ObjectInfo{}, storage.ErrObjectNotFound
	}
	return storage.ObjectInfo{Key: key, Size: int64(len(data)), ETag: "abc123"}, nil
}

func (m *memStore) GetObject(_ context.Context, key string, start, end int64) (io.ReadCloser, error) {
	m.gets++
	data, ok := m.objects[key]
	if !ok {
		return nil, storage.ErrObjectNotFound
	}
	if end < 0 {
		end = int64(len(data)) - 1
	}
	return io.NopCloser(bytes.NewReader(data[start : end+1])), nil
}

func newTestProxy(t *testing.T) (*memStore, http.Handler) {
	t.Helper()
	store := &memStore{objects: map[string][]byte{
		"Tiberiu/Ed Sheeran/Plus/01 The A Team.mp3": []byte("0123456789"),
		"notes.bin": []byte("xyz"),
	}}
	return store, NewProxy(store).Router()
}

func TestProxyOptions(t *testing.T) {
	_, h := newTestProxy(t)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/anything.mp3", nil))

	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("Allow-Origin = %q", got)
	}
	if got := rec.Header().Get("Access-Control-Allow-Methods"); got != "GET, HEAD, OPTIONS" {
		t.Errorf("Allow-Methods = %q", got)
	}
	if rec.Body.Len() != 0 {
		t.Errorf("OPTIONS body should be empty, got %q", rec.Body.String())
	}
}

func TestProxyMethodNotAllowed(t *testing.T) {
	_, h := newTestProxy(t)
	for _, method := range []string{http.MethodPost, http.MethodPut, http.MethodDelete} {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(method, "/notes.bin", nil))
		if rec.Code != http.StatusMethodNotAllowed {
			t.Errorf("%s status = %d, want 405", method, rec.Code)
		}
		if got := rec.Header().Get("Allow"); got != "GET, HEAD, OPTIONS" {
			t.Errorf("%s Allow = %q", method, got)
		}
	}
}

func TestProxyFullObject(t *testing.T) {
	_, h := newTestProxy(t)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/Tiberiu/Ed%20Sheeran/Plus/01%20The%20A%20Team.mp3", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	hdr := rec.Header()
	checks := map[string]string{
		"Content-Type":                "audio/mpeg",
		"Cache-Control":               "public, max-age=86400",
		"Accept-Ranges":               "bytes",
		"Content-Length":              "10",
		"ETag":                        `"abc123"`,
		"Access-Control-Allow-Origin": "*",
	}
	for k, want := range checks {
		if got := hdr.Get(k); got != want {
			t.Errorf("%s = %q, want %q", k, got, want)
		}
	}
	if rec.Body.String() != "0123456789" {
		t.Errorf("body = %q", rec.Body.String())
	}
}

func TestProxyUnknownExtension(t *testing.T) {
	_, h := newTestProxy(t)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/notes.bin", nil))
	if got := rec.Header().Get("Content-Type"); got != "application/octet-stream" {
		t.Errorf("Content-Type = %q", got)
	}
}

func TestProxyRanges(t *testing.T) {
	tests := []struct {
		name         string
		header       string
		status       int
		contentRange string
		body         string
	}{
		{"bounded", "bytes=2-5", http.StatusPartialContent, "bytes 2-5/10", "2345"},
		{"open ended", "bytes=7-", http.StatusPartialContent, "bytes 7-9/10", "789"},
		{"suffix", "bytes=-3", http.StatusPartialContent, "bytes 7-9/10", "789"},
		{"suffix larger than object", "bytes=-50", http.StatusPartialContent, "bytes 0-9/10", "0123456789"},
		{"end clamped", "bytes=8-100", http.StatusPartialContent, "bytes 8-9/10", "89"},
		{"start past end", "bytes=10-", http.StatusRequestedRangeNotSatisfiable, "bytes */10", ""},
		{"multi range ignored", "bytes=0-1,4-5", http.StatusOK, "", "0123456789"},
		{"garbage ignored", "items=1-2", http.StatusOK, "", "0123456789"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, h := newTestProxy(t)
			req := httptest.NewRequest(http.MethodGet, "/Tiberiu/Ed%20Sheeran/Plus/01%20The%20A%20Team.mp3", nil)
			req.Header.Set("Range", tt.header)
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			if rec.Code != tt.status {
				t.Fatalf("status = %d, want %d", rec.Code, tt.status)
			}
			if got := rec.Header().Get("Content-Range"); got != tt.contentRange {
				t.Errorf("Content-Range = %q, want %q", got, tt.contentRange)
			}
			if tt.body != "" && rec.Body.String() != tt.body {
				t.Errorf("body = %q, want %q", rec.Body.String(), tt.body)
			}
		})
	}
}

func TestProxyHead(t *testing.T) {
	store, h := newTestProxy(t)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodHead, "/notes.bin", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if rec.Header().Get("Content-Length") != "3" {
		t.Errorf("Content-Length = %q", rec.Header().Get("Content-Length"))
	}
	if rec.Body.Len() != 0 || store.gets != 0 {
		t.Errorf("HEAD should not read the object (body %d bytes, %d gets)", rec.Body.Len(), store.gets)
	}
}

func TestProxyNotFound(t *testing.T) {
	_, h := newTestProxy(t)
	for _, path := range []string{"/missing.mp3", "/"} {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusNotFound {
			t.Errorf("%s status = %d, want 404", path, rec.Code)
		}
		if rec.Header().Get("Access-Control-Allow-Origin") != "*" {
			t.Errorf("%s 404 should carry CORS headers", path)
		}
	}
}

func TestProxyStoreFailure(t *testing.T) {
	store, h := newTestProxy(t)
	store.err = errors.New("bucket offline")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/notes.bin", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
}
